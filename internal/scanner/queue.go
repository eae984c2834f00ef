package scanner

import "sync"

// taskQueue is the explicit FIFO of pending directory listings. It replaces
// recursion so traversal depth never touches the goroutine stack, and it is
// unbounded so a worker enqueueing subdirectories can never deadlock against
// a full channel.
//
// Termination: outstanding counts tasks pushed but not yet finished. Workers
// push children before calling finish on the parent, so outstanding only
// reaches zero when the whole tree has been listed; at that point the queue
// closes itself and every parked worker drains out.
type taskQueue struct {
	mu          sync.Mutex
	cond        *sync.Cond
	tasks       []dirTask
	outstanding int
	closed      bool
}

func newTaskQueue() *taskQueue {
	q := &taskQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *taskQueue) push(t dirTask) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.tasks = append(q.tasks, t)
	q.outstanding++
	q.cond.Signal()
}

// pop blocks until a task is available or the queue is closed.
func (q *taskQueue) pop() (dirTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.tasks) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.tasks) == 0 {
		return dirTask{}, false
	}
	t := q.tasks[0]
	q.tasks = q.tasks[1:]
	return t, true
}

// finish marks one popped task complete. The last finish closes the queue.
func (q *taskQueue) finish() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.outstanding--
	if q.outstanding <= 0 && !q.closed {
		q.closed = true
		q.cond.Broadcast()
	}
}

// idle reports whether no task has been pushed or all are finished.
func (q *taskQueue) idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.outstanding == 0
}

// close drains the queue and releases all waiters. Idempotent.
func (q *taskQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.tasks = nil
	q.cond.Broadcast()
}
