package ops

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQueue indicates an operation that requires at least one task.
	ErrEmptyQueue = errors.New("task queue is empty")

	// ErrNoActiveTask indicates an operation that requires a started queue.
	ErrNoActiveTask = errors.New("no active task")

	// ErrAlreadyStarted indicates StartFirst on a queue with an active task.
	ErrAlreadyStarted = errors.New("queue already started")

	// ErrActiveNotCompleted indicates Advance before the active task completed.
	ErrActiveNotCompleted = errors.New("active task is not completed")
)

// TaskQueue is an ordered sequence of tasks with a pointer to the task
// currently being executed. Insertion order is execution order.
//
// TaskQueue is not safe for concurrent use; it is owned by the
// Orchestrator, which serializes all access.
type TaskQueue struct {
	tasks  []Task
	active int // index of the active task, -1 when nothing has started
}

// NewTaskQueue returns an empty, unstarted queue.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{active: -1}
}

// Len returns the number of tasks in the queue.
func (q *TaskQueue) Len() int { return len(q.tasks) }

// ActiveIndex returns the index of the active task, or -1 if execution
// has not started.
func (q *TaskQueue) ActiveIndex() int { return q.active }

// Snapshot returns a deep copy of the task sequence.
func (q *TaskQueue) Snapshot() []Task { return cloneTasks(q.tasks) }

// Active returns a copy of the active task.
func (q *TaskQueue) Active() (Task, error) {
	if q.active < 0 || q.active >= len(q.tasks) {
		return Task{}, ErrNoActiveTask
	}
	return q.tasks[q.active], nil
}

// Replace atomically swaps the entire sequence and resets the active
// index. Used only by plan generation.
func (q *TaskQueue) Replace(tasks []Task) {
	q.tasks = cloneTasks(tasks)
	q.active = -1
}

// StartFirst marks the first task in-progress and anchors the active
// index to it. Fails on an empty or already-started queue.
func (q *TaskQueue) StartFirst() error {
	if len(q.tasks) == 0 {
		return ErrEmptyQueue
	}
	if q.active != -1 {
		return ErrAlreadyStarted
	}
	q.tasks[0].Status = StatusInProgress
	q.active = 0
	return nil
}

// CompleteActive marks the active task completed.
func (q *TaskQueue) CompleteActive() error {
	if q.active < 0 || q.active >= len(q.tasks) {
		return ErrNoActiveTask
	}
	q.tasks[q.active].Status = StatusCompleted
	return nil
}

// Advance moves execution to the next task. The active task must be
// completed. Returns true if a next task was started, false if the
// queue is exhausted (the active index then stays on the last task and
// nothing is in-progress).
func (q *TaskQueue) Advance() (bool, error) {
	if q.active < 0 || q.active >= len(q.tasks) {
		return false, ErrNoActiveTask
	}
	if q.tasks[q.active].Status != StatusCompleted {
		return false, fmt.Errorf("%w: %s", ErrActiveNotCompleted, q.tasks[q.active].Title)
	}
	if q.active+1 >= len(q.tasks) {
		return false, nil
	}
	q.active++
	q.tasks[q.active].Status = StatusInProgress
	return true, nil
}

// Merge accepts an externally supplied queue verbatim, keeping the
// active index where it is except for clamping it into range when the
// new queue is shorter. Status reconciliation against the machine state
// is the Orchestrator's job (see reconcileAfterMerge).
func (q *TaskQueue) Merge(tasks []Task) {
	q.tasks = cloneTasks(tasks)
	if len(q.tasks) == 0 {
		q.active = -1
		return
	}
	if q.active >= len(q.tasks) {
		q.active = len(q.tasks) - 1
	}
}

// allCompleted reports whether every task is completed. False for an
// empty queue.
func (q *TaskQueue) allCompleted() bool {
	if len(q.tasks) == 0 {
		return false
	}
	for _, t := range q.tasks {
		if t.Status != StatusCompleted {
			return false
		}
	}
	return true
}

// firstIncomplete returns the index of the first task that is not
// completed, or -1 if all tasks are completed or the queue is empty.
func (q *TaskQueue) firstIncomplete() int {
	for i, t := range q.tasks {
		if t.Status != StatusCompleted {
			return i
		}
	}
	return -1
}

// demoteInProgress resets every in-progress task back to pending. Used
// when merged contents claim progress the machine never made.
func (q *TaskQueue) demoteInProgress() {
	for i := range q.tasks {
		if q.tasks[i].Status == StatusInProgress {
			q.tasks[i].Status = StatusPending
		}
	}
}

// anchor points the active index at idx, forces that task in-progress,
// and demotes any other in-progress task back to pending so at most one
// task is ever in-progress.
func (q *TaskQueue) anchor(idx int) {
	for i := range q.tasks {
		if i != idx && q.tasks[i].Status == StatusInProgress {
			q.tasks[i].Status = StatusPending
		}
	}
	q.tasks[idx].Status = StatusInProgress
	q.active = idx
}
