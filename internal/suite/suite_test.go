package suite

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runq/internal/config"
	"runq/internal/sched"
	logx "runq/pkg/logx"
)

func TestBuildAssignsNamesAndIDs(t *testing.T) {
	tasks := Build([]config.TaskSpec{
		{Name: "one", Command: "true"},
		{Name: "two", Command: "true"},
	}, logx.Nop())

	require.Len(t, tasks, 2)
	assert.Equal(t, "one", tasks[0].Name)
	assert.Equal(t, "two", tasks[1].Name)
	assert.NotEmpty(t, tasks[0].ID)
	assert.NotEqual(t, tasks[0].ID, tasks[1].ID)
}

func TestCommandWorkPasses(t *testing.T) {
	work := commandWork(config.TaskSpec{Name: "ok", Command: "true"}, logx.Nop())
	r, err := work(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sched.StatusPassed, r.Status)
}

func TestCommandWorkFailsWithOutputTail(t *testing.T) {
	work := commandWork(config.TaskSpec{
		Name:    "bad",
		Command: "sh",
		Args:    []string{"-c", "echo it broke >&2; exit 3"},
	}, logx.Nop())

	_, err := work(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 3")
	assert.Contains(t, err.Error(), "it broke")
}

func TestCommandWorkSkip(t *testing.T) {
	work := commandWork(config.TaskSpec{Name: "later", Command: "true", Skip: true}, logx.Nop())
	r, err := work(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sched.StatusSkipped, r.Status)
}

func TestCommandWorkHonorsContext(t *testing.T) {
	work := commandWork(config.TaskSpec{
		Name:    "slow",
		Command: "sleep",
		Args:    []string{"5"},
	}, logx.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := work(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestCommandWorkEnvAndDir(t *testing.T) {
	dir := t.TempDir()
	work := commandWork(config.TaskSpec{
		Name:    "env",
		Command: "sh",
		Args:    []string{"-c", `[ "$GREETING" = hello ] && [ "$(pwd)" = "$EXPECT_DIR" ]`},
		Dir:     dir,
		Env:     []string{"GREETING=hello", "EXPECT_DIR=" + dir},
	}, logx.Nop())

	r, err := work(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sched.StatusPassed, r.Status)
}

func TestOutputTailTruncatesAndFlattens(t *testing.T) {
	long := strings.Repeat("x", 2*maxOutputTail)
	tail := outputTail([]byte(long))
	assert.True(t, strings.HasPrefix(tail, "..."))
	assert.LessOrEqual(t, len(tail), maxOutputTail+3)

	assert.Equal(t, "a b c", outputTail([]byte(" a\n b\tc \n")))
	assert.Empty(t, outputTail(nil))
}
