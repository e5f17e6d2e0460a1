package bus

import "sync"

// Scheduler defers a task to a later point in time. A bus never runs a flush
// inside Dispatch; it always hands it to its Scheduler.
type Scheduler interface {
	Schedule(task func())
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(task func())

// Schedule calls f(task).
func (f SchedulerFunc) Schedule(task func()) {
	f(task)
}

// GoScheduler runs every task on its own goroutine.
var GoScheduler Scheduler = SchedulerFunc(func(task func()) {
	go task()
})

// ManualScheduler queues tasks until RunPending is called. It makes flush
// cycles observable step by step.
type ManualScheduler struct {
	mu    sync.Mutex
	tasks []func()
}

// Schedule queues task.
func (s *ManualScheduler) Schedule(task func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
}

// Pending returns the number of queued tasks.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// RunPending runs the tasks queued before the call and returns how many ran.
// Tasks scheduled while they run wait for the next call.
func (s *ManualScheduler) RunPending() int {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()

	for _, task := range tasks {
		task()
	}
	return len(tasks)
}
