package ops

// OperationState is the finite-state controller value gating all queue
// mutation and advancement.
type OperationState string

const (
	// StateIdle means a plan may exist but execution has not started.
	StateIdle OperationState = "idle"

	// StatePlanning means an external plan request is outstanding.
	StatePlanning OperationState = "planning"

	// StateExecuting means the active task's execution delay is running.
	StateExecuting OperationState = "executing"

	// StatePaused means an operator suspended execution.
	StatePaused OperationState = "paused"

	// StateAwaitingApproval means the active task finished executing and
	// the machine is parked at the approval gate.
	StateAwaitingApproval OperationState = "awaiting_approval"

	// StateCompleted means every task in the queue has been approved.
	// Re-enterable only via a new plan request.
	StateCompleted OperationState = "completed"
)

// String implements fmt.Stringer.
func (s OperationState) String() string { return string(s) }

// Running reports whether the machine is actively working a task, i.e.
// a stale timer or command merge could race with it.
func (s OperationState) Running() bool {
	return s == StateExecuting || s == StateAwaitingApproval
}
