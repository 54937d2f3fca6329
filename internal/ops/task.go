package ops

import "github.com/google/uuid"

// TaskStatus represents the lifecycle state of a single recovery task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

// Task is a single unit of recovery work.
type Task struct {
	// ID uniquely identifies the task for the lifetime of its queue entry.
	ID string `json:"id"`

	// Title is a short display label.
	Title string `json:"title"`

	// Description is the full operator-facing instruction text.
	Description string `json:"description"`

	// Status is the task lifecycle state.
	Status TaskStatus `json:"status"`

	// AssignedAgent is a free-text role label (e.g. "Search & Rescue").
	AssignedAgent string `json:"assigned_agent"`

	// EstimatedTime is a free-text duration label (e.g. "45 min").
	EstimatedTime string `json:"estimated_time"`
}

// NewTask creates a pending task with a fresh ID.
func NewTask(title, description, agent, estimate string) Task {
	return Task{
		ID:            uuid.New().String(),
		Title:         title,
		Description:   description,
		Status:        StatusPending,
		AssignedAgent: agent,
		EstimatedTime: estimate,
	}
}

// DefaultPlan returns the minimal fallback checklist used when the
// external planner is unavailable. It is never empty.
func DefaultPlan() []Task {
	return []Task{
		NewTask("Establish communications",
			"Set up a command post and verify radio or cellular contact with all field teams.",
			"Communications Lead", "30 min"),
		NewTask("Assess immediate hazards",
			"Survey the affected area for structural damage, downed lines, and access routes.",
			"Assessment Team", "45 min"),
		NewTask("Stage emergency supplies",
			"Move water, medical kits, and shelter materials to the designated staging area.",
			"Logistics", "60 min"),
	}
}

// cloneTasks returns a deep copy of tasks. Task has no reference fields,
// so a slice copy is sufficient.
func cloneTasks(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out
}
