// Package ops implements the recovery operations orchestration engine.
//
// The engine executes an ordered queue of recovery tasks one at a time.
// Each task runs for a simulated execution delay, then parks in an
// approval gate until an operator confirms completion. A free-text
// command channel can rewrite the queue while execution is active; the
// orchestrator serializes every mutation so a command can never corrupt
// an in-flight approval or resurrect a superseded timer.
//
// All state (task queue, operation state, activity log) is owned by a
// single Orchestrator and mutated only through its methods. External
// collaborators (the Planner and the Interpreter) are injected
// interfaces; their failures are absorbed at the orchestrator boundary
// and translated into activity log entries plus a safe default state.
package ops
