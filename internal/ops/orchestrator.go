package ops

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrInvalidState indicates an operator action not allowed in the
	// current operation state. The action is a no-op.
	ErrInvalidState = errors.New("operation not allowed in current state")

	// ErrInterpreterBusy indicates a command arrived while another
	// command was still outstanding.
	ErrInterpreterBusy = errors.New("a command is already being interpreted")

	// ErrEmptyTranscript indicates a blank command transcript.
	ErrEmptyTranscript = errors.New("command transcript is empty")
)

// Planner produces an initial task queue for a disaster scenario. It is
// an external collaborator; it never mutates orchestrator state.
type Planner interface {
	Generate(ctx context.Context, disasterType, location string) ([]Task, error)
}

// Interpreter rewrites the task queue from a free-text command. It
// returns the replacement queue and an operator-facing confirmation
// message. It never mutates orchestrator state; the snapshot it
// receives is a private copy.
type Interpreter interface {
	Interpret(ctx context.Context, transcript string, queue []Task) ([]Task, string, error)
}

// Config holds orchestrator timing parameters.
type Config struct {
	// TaskDelay is the simulated per-task execution delay before the
	// machine parks at the approval gate.
	TaskDelay time.Duration

	// PlannerTimeout bounds a single plan request.
	PlannerTimeout time.Duration

	// InterpreterTimeout bounds a single command interpretation.
	InterpreterTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		TaskDelay:          4 * time.Second,
		PlannerTimeout:     45 * time.Second,
		InterpreterTimeout: 30 * time.Second,
	}
}

// Status is a point-in-time read-only observation of the orchestrator.
type Status struct {
	State          OperationState `json:"state"`
	ActiveIndex    int            `json:"active_index"`
	QueueLength    int            `json:"queue_length"`
	CommandPending bool           `json:"command_pending"`
}

// QueueSnapshot is a read-only copy of the task queue.
type QueueSnapshot struct {
	Tasks       []Task `json:"tasks"`
	ActiveIndex int    `json:"active_index"`
}

// Orchestrator owns the task queue, operation state, and activity log.
// Every transition is applied under one lock, so no two transitions
// interleave and a command merge is atomic relative to timer-driven
// advancement.
type Orchestrator struct {
	mu       sync.Mutex
	cfg      Config
	state    OperationState
	queue    *TaskQueue
	activity *ActivityLog

	planner Planner
	interp  Interpreter
	logger  *zap.Logger

	// timerGen invalidates scheduled task-elapsed events. Any state
	// change the timer did not itself cause bumps the generation; a
	// firing timer whose generation is stale is a no-op.
	timerGen uint64
	timer    *time.Timer

	// planGen invalidates plan results that were superseded.
	planGen uint64

	commandBusy  bool
	onTransition func(from, to OperationState)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an orchestrator in the idle state with an empty queue.
// logger may be nil.
func New(planner Planner, interp Interpreter, logger *zap.Logger, cfg Config) (*Orchestrator, error) {
	if planner == nil {
		return nil, errors.New("planner is required")
	}
	if interp == nil {
		return nil, errors.New("interpreter is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.TaskDelay <= 0 {
		cfg.TaskDelay = def.TaskDelay
	}
	if cfg.PlannerTimeout <= 0 {
		cfg.PlannerTimeout = def.PlannerTimeout
	}
	if cfg.InterpreterTimeout <= 0 {
		cfg.InterpreterTimeout = def.InterpreterTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:      cfg,
		state:    StateIdle,
		queue:    NewTaskQueue(),
		activity: NewActivityLog(),
		planner:  planner,
		interp:   interp,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Close cancels outstanding collaborator calls and waits for them to
// drain. The orchestrator must not be used after Close.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.invalidateTimer()
	o.mu.Unlock()
	o.cancel()
	o.wg.Wait()
}

// OnTransition registers a hook invoked for every state change, under
// the orchestrator lock. The hook must not call back into the
// orchestrator.
func (o *Orchestrator) OnTransition(fn func(from, to OperationState)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onTransition = fn
}

// State returns the current operation state.
func (o *Orchestrator) State() OperationState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Status returns a point-in-time observation.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Status{
		State:          o.state,
		ActiveIndex:    o.queue.ActiveIndex(),
		QueueLength:    o.queue.Len(),
		CommandPending: o.commandBusy,
	}
}

// Queue returns a deep copy of the task queue.
func (o *Orchestrator) Queue() QueueSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return QueueSnapshot{
		Tasks:       o.queue.Snapshot(),
		ActiveIndex: o.queue.ActiveIndex(),
	}
}

// Activity returns the activity log.
func (o *Orchestrator) Activity() *ActivityLog {
	return o.activity
}

// GeneratePlan requests a recovery plan from the external planner.
// Allowed from idle and completed. The request is asynchronous: the
// machine moves to planning immediately and returns to idle when the
// plan (or the fallback default) is installed. Planner failure is never
// fatal; the default checklist is substituted and a degraded-mode
// notice logged.
func (o *Orchestrator) GeneratePlan(disasterType, location string) error {
	o.mu.Lock()
	if o.state != StateIdle && o.state != StateCompleted {
		defer o.mu.Unlock()
		return fmt.Errorf("%w: generate plan while %s", ErrInvalidState, o.state)
	}
	o.invalidateTimer()
	o.setState(StatePlanning)
	o.planGen++
	gen := o.planGen
	o.activity.Append(CategorySystem,
		fmt.Sprintf("Requesting recovery plan: %s near %s", disasterType, location))
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(o.ctx, o.cfg.PlannerTimeout)
		defer cancel()
		tasks, err := o.planner.Generate(ctx, disasterType, location)
		if err == nil && len(tasks) == 0 {
			err = errors.New("planner returned an empty plan")
		}
		o.installPlan(gen, tasks, err, disasterType)
	}()
	return nil
}

// installPlan applies a plan result. Superseded results (a newer plan
// request, or a state the plan no longer belongs to) are discarded.
func (o *Orchestrator) installPlan(gen uint64, tasks []Task, err error, disasterType string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StatePlanning || gen != o.planGen {
		return
	}
	if err != nil {
		o.logger.Warn("planner failed, installing default checklist", zap.Error(err))
		plannerFallbacksTotal.Inc()
		tasks = DefaultPlan()
		o.activity.Append(CategorySystem,
			"Planner unavailable; loaded the default recovery checklist")
	} else {
		o.activity.Append(CategoryAI,
			fmt.Sprintf("Plan ready: %d tasks for the %s response", len(tasks), disasterType))
	}
	o.queue.Replace(tasks)
	queueLength.Set(float64(o.queue.Len()))
	o.setState(StateIdle)
}

// Start begins or resumes execution. Requires a non-empty queue and the
// idle or paused state. If nothing has started yet, the first task
// becomes in-progress; the per-task execution delay is (re)scheduled
// either way.
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateIdle && o.state != StatePaused {
		return fmt.Errorf("%w: start while %s", ErrInvalidState, o.state)
	}
	if o.queue.Len() == 0 {
		return ErrEmptyQueue
	}

	resuming := o.state == StatePaused
	if o.queue.ActiveIndex() == -1 {
		if err := o.queue.StartFirst(); err != nil {
			return err
		}
		active, _ := o.queue.Active()
		o.activity.Append(CategoryTask, fmt.Sprintf("Started: %s", active.Title))
	}
	if resuming {
		o.activity.Append(CategorySystem, "Execution resumed")
	} else {
		o.activity.Append(CategorySystem, "Execution started")
	}
	o.setState(StateExecuting)
	o.scheduleTimer()
	return nil
}

// Pause suspends execution from either the executing state or the
// approval gate. Task statuses are untouched; a pending execution
// delay is cancelled.
func (o *Orchestrator) Pause() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.state.Running() {
		return fmt.Errorf("%w: pause while %s", ErrInvalidState, o.state)
	}
	o.invalidateTimer()
	o.setState(StatePaused)
	o.activity.Append(CategorySystem, "Execution paused")
	return nil
}

// Approve confirms completion of the active task at the approval gate.
// The task is marked completed and execution advances; if the queue is
// exhausted the operation is complete.
func (o *Orchestrator) Approve() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateAwaitingApproval {
		return fmt.Errorf("%w: approve while %s", ErrInvalidState, o.state)
	}

	active, err := o.queue.Active()
	if err != nil {
		return err
	}
	if err := o.queue.CompleteActive(); err != nil {
		return err
	}
	approvalsTotal.Inc()
	o.activity.Append(CategoryTask, fmt.Sprintf("Completed: %s", active.Title))

	advanced, err := o.queue.Advance()
	if err != nil {
		return err
	}
	if !advanced {
		o.invalidateTimer()
		o.setState(StateCompleted)
		o.activity.Append(CategorySystem, "All recovery tasks completed")
		return nil
	}

	next, _ := o.queue.Active()
	o.activity.Append(CategoryTask, fmt.Sprintf("Started: %s", next.Title))
	o.setState(StateExecuting)
	o.scheduleTimer()
	return nil
}

// SubmitCommand forwards a free-text operator command to the external
// interpreter. Interpretation is one-at-a-time: a command submitted
// while another is outstanding is rejected with ErrInterpreterBusy and
// the original is unaffected. On interpreter failure the queue and
// state are unchanged and a failure entry is logged.
func (o *Orchestrator) SubmitCommand(transcript string) error {
	if strings.TrimSpace(transcript) == "" {
		return ErrEmptyTranscript
	}

	o.mu.Lock()
	if o.commandBusy {
		o.mu.Unlock()
		return ErrInterpreterBusy
	}
	o.commandBusy = true
	snapshot := o.queue.Snapshot()
	o.activity.Append(CategoryComms, fmt.Sprintf("Operator: %s", transcript))
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(o.ctx, o.cfg.InterpreterTimeout)
		defer cancel()
		tasks, confirmation, err := o.interp.Interpret(ctx, transcript, snapshot)
		o.applyCommand(tasks, confirmation, err)
	}()
	return nil
}

// applyCommand merges an interpreter result into the queue, atomically
// relative to timer-driven transitions.
func (o *Orchestrator) applyCommand(tasks []Task, confirmation string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.commandBusy = false

	if err != nil {
		commandsTotal.WithLabelValues("failed").Inc()
		o.logger.Warn("command interpretation failed", zap.Error(err))
		o.activity.Append(CategoryComms, fmt.Sprintf("Command failed: %v", err))
		return
	}

	hadProgress := o.queue.ActiveIndex() >= 0
	var prevActiveID string
	if active, aerr := o.queue.Active(); aerr == nil {
		prevActiveID = active.ID
	}

	o.queue.Merge(tasks)
	queueLength.Set(float64(o.queue.Len()))
	o.reconcileAfterMerge(hadProgress, prevActiveID)

	commandsTotal.WithLabelValues("applied").Inc()
	if confirmation == "" {
		confirmation = "Command applied"
	}
	o.activity.Append(CategoryAI, confirmation)
}

// reconcileAfterMerge restores the active-task invariants after an
// external queue replacement. The merged contents are authoritative;
// the active index re-anchors to the first non-completed task once
// forward progress has started:
//
//   - the merged queue is empty: execution stops and the machine
//     returns to idle;
//   - every merged task is completed: the operation is complete;
//   - otherwise exactly one task (the re-anchored one) is in-progress.
//     A pending approval survives only if the active task identity is
//     unchanged; otherwise the machine resumes executing with a fresh
//     delay, since the approval no longer refers to a real completion.
func (o *Orchestrator) reconcileAfterMerge(hadProgress bool, prevActiveID string) {
	if !hadProgress {
		// Forward progress never started; the merge only swaps contents.
		// The interpreter is untrusted, so any in-progress status it
		// invented is demoted — otherwise a later StartFirst would leave
		// two tasks in-progress.
		o.queue.demoteInProgress()
		return
	}

	if o.queue.Len() == 0 {
		o.invalidateTimer()
		o.setState(StateIdle)
		o.activity.Append(CategorySystem, "Command cleared the task queue")
		return
	}

	if o.queue.allCompleted() {
		o.invalidateTimer()
		o.queue.active = o.queue.Len() - 1
		o.setState(StateCompleted)
		o.activity.Append(CategorySystem, "All recovery tasks completed")
		return
	}

	o.queue.anchor(o.queue.firstIncomplete())
	active, _ := o.queue.Active()

	switch o.state {
	case StateExecuting:
		// Restart the delay for the (possibly different) active task.
		o.scheduleTimer()
	case StateAwaitingApproval:
		if active.ID != prevActiveID {
			o.setState(StateExecuting)
			o.scheduleTimer()
		}
	case StateCompleted:
		// The command reopened work after completion. The operator
		// decides when to resume.
		o.setState(StatePaused)
		o.activity.Append(CategorySystem, "Command reopened tasks; execution paused")
	default:
		// Paused or idle: no timer is running and none is started.
	}
}

// scheduleTimer schedules the task-elapsed event for the active task.
// Caller must hold the lock.
func (o *Orchestrator) scheduleTimer() {
	o.invalidateTimer()
	gen := o.timerGen
	o.timer = time.AfterFunc(o.cfg.TaskDelay, func() {
		o.taskElapsed(gen)
	})
}

// invalidateTimer cancels any scheduled task-elapsed event and bumps
// the generation so an already-fired callback becomes a no-op. Caller
// must hold the lock.
func (o *Orchestrator) invalidateTimer() {
	o.timerGen++
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}

// taskElapsed handles the simulated execution delay elapsing. A stale
// generation means the state moved on since the timer was scheduled;
// the event is silently discarded.
func (o *Orchestrator) taskElapsed(gen uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.timerGen || o.state != StateExecuting {
		return
	}

	active, err := o.queue.Active()
	if err != nil {
		return
	}
	o.setState(StateAwaitingApproval)
	o.activity.Append(CategoryTask,
		fmt.Sprintf("%s finished executing; pending operator approval", active.Title))
}

// setState transitions the machine. Caller must hold the lock.
func (o *Orchestrator) setState(to OperationState) {
	if to == o.state {
		return
	}
	from := o.state
	o.state = to
	transitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	o.logger.Debug("state transition",
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	if o.onTransition != nil {
		o.onTransition(from, to)
	}
}
