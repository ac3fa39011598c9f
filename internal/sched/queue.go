package sched

// runQueue holds pending tasks as two cooperating queues: a retry stack that
// is drained first (most recent failure wins) and a FIFO for fresh
// submissions. It is mutated only by the coordinating goroutine, so no lock.
type runQueue struct {
	retries []Task // LIFO
	fresh   []Task // FIFO
	head    int
}

func (q *runQueue) push(t Task) {
	q.fresh = append(q.fresh, t)
}

// pushRetry inserts at the front of the pending queue so a freshly failed
// task is rescheduled before untouched backlog.
func (q *runQueue) pushRetry(t Task) {
	q.retries = append(q.retries, t)
}

func (q *runQueue) pop() (Task, bool) {
	if n := len(q.retries); n > 0 {
		t := q.retries[n-1]
		q.retries[n-1] = Task{}
		q.retries = q.retries[:n-1]
		return t, true
	}
	if q.head < len(q.fresh) {
		t := q.fresh[q.head]
		q.fresh[q.head] = Task{}
		q.head++
		if q.head == len(q.fresh) {
			q.fresh = q.fresh[:0]
			q.head = 0
		}
		return t, true
	}
	return Task{}, false
}

func (q *runQueue) len() int {
	return len(q.retries) + len(q.fresh) - q.head
}
