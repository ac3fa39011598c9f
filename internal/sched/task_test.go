package sched

import (
	"testing"
	"time"
)

func TestSummarize(t *testing.T) {
	results := []Result{
		{Status: StatusPassed, Duration: 100 * time.Millisecond},
		{Status: StatusFailed, Duration: 50 * time.Millisecond},
		{Status: StatusSkipped},
		{Status: StatusPassed, Duration: 25 * time.Millisecond},
	}

	sum := Summarize(results)
	if sum.Total != 4 || sum.Passed != 2 || sum.Failed != 1 || sum.Skipped != 1 {
		t.Fatalf("bad counts: %+v", sum)
	}
	if sum.Duration != 175*time.Millisecond {
		t.Fatalf("duration = %v, want 175ms", sum.Duration)
	}
}

func TestNewTaskGeneratesID(t *testing.T) {
	a := NewTask("  spaced  ", nil)
	b := NewTask("spaced", nil)
	if a.ID == "" || b.ID == "" || a.ID == b.ID {
		t.Fatalf("expected unique generated IDs, got %q / %q", a.ID, b.ID)
	}
	if a.Name != "spaced" {
		t.Fatalf("name not trimmed: %q", a.Name)
	}
	if a.Attempt != 0 {
		t.Fatalf("fresh task attempt = %d, want 0", a.Attempt)
	}
}

func TestTaskRetryDerivation(t *testing.T) {
	orig := NewTask("x", nil)
	next := orig.retry()
	if next.Attempt != 1 || next.ID != orig.ID || next.Name != orig.Name {
		t.Fatalf("retry must keep identity and bump attempt: %+v", next)
	}
	if orig.Attempt != 0 {
		t.Fatalf("retry mutated the original task")
	}
}
