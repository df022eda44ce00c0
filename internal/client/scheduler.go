package client

import "sync"

// Scheduler moves listener calls off the network goroutine onto whatever
// goroutine the consumer renders on.
type Scheduler interface {
	Post(task func())
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(task func())

func (f SchedulerFunc) Post(task func()) { f(task) }

// Immediate runs tasks on the posting goroutine. Suitable for headless
// consumers whose listeners are safe for concurrent use.
var Immediate Scheduler = SchedulerFunc(func(task func()) { task() })

// Queue is a Scheduler drained by its consumer, typically once per frame.
type Queue struct {
	mu     sync.Mutex
	tasks  []func()
	signal chan struct{}
}

func NewQueue() *Queue {
	return &Queue{signal: make(chan struct{}, 1)}
}

// Post appends task. It never blocks.
func (q *Queue) Post(task func()) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Drain runs every pending task in posting order on the calling goroutine
// and returns how many ran. Tasks posted while draining wait for the next
// call.
func (q *Queue) Drain() int {
	q.mu.Lock()
	tasks := q.tasks
	q.tasks = nil
	q.mu.Unlock()
	for _, task := range tasks {
		task()
	}
	return len(tasks)
}

// Signal fires after Post when the consumer may have work to drain.
func (q *Queue) Signal() <-chan struct{} {
	return q.signal
}
