// Package interpreter turns free-text operator commands into task queue
// rewrites via an OpenAI-compatible chat model.
//
// The interpreter receives the command transcript plus a snapshot of
// the current queue and returns a full replacement queue and a
// confirmation message. It is a black box to the orchestrator: only the
// result shape and the failure mode matter. On failure the orchestrator
// keeps the previous queue untouched.
package interpreter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fyrsmithlabs/reliefd/internal/ops"
)

// maxQueueTasks caps the size of a rewritten queue.
const maxQueueTasks = 30

var (
	// ErrMalformedResult indicates the model response could not be
	// parsed into a queue rewrite.
	ErrMalformedResult = errors.New("malformed interpreter response")

	// ErrInvalidConfig indicates missing required configuration.
	ErrInvalidConfig = errors.New("invalid interpreter configuration")
)

// Config holds interpreter model configuration.
type Config struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
}

// Validate checks required fields.
func (c Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	return nil
}

// LLM interprets commands with a langchaingo chat model.
type LLM struct {
	model       llms.Model
	temperature float64
	tracer      trace.Tracer
}

// NewLLM creates an interpreter backed by an OpenAI-compatible endpoint.
func NewLLM(cfg Config) (*LLM, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []openai.Option{openai.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating interpreter model: %w", err)
	}

	return NewLLMWithModel(model, cfg.Temperature), nil
}

// NewLLMWithModel wraps an existing model.
func NewLLMWithModel(model llms.Model, temperature float64) *LLM {
	return &LLM{
		model:       model,
		temperature: temperature,
		tracer:      otel.Tracer("reliefd/interpreter"),
	}
}

// Interpret implements ops.Interpreter.
func (l *LLM) Interpret(ctx context.Context, transcript string, queue []ops.Task) ([]ops.Task, string, error) {
	ctx, span := l.tracer.Start(ctx, "interpreter.interpret",
		trace.WithAttributes(attribute.Int("queue.tasks", len(queue))))
	defer span.End()

	prompt, err := buildPrompt(transcript, queue)
	if err != nil {
		return nil, "", err
	}

	out, err := llms.GenerateFromSinglePrompt(ctx, l.model, prompt,
		llms.WithTemperature(l.temperature))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model call failed")
		return nil, "", fmt.Errorf("command interpretation: %w", err)
	}

	tasks, confirmation, err := ParseResult(out, queue)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unparseable result")
		return nil, "", err
	}

	span.SetAttributes(attribute.Int("result.tasks", len(tasks)))
	return tasks, confirmation, nil
}

func buildPrompt(transcript string, queue []ops.Task) (string, error) {
	current, err := json.Marshal(queue)
	if err != nil {
		return "", fmt.Errorf("encoding queue: %w", err)
	}

	return fmt.Sprintf(`You manage a disaster recovery task queue.

Current queue:
%s

Operator command: %q

Apply the command and return the FULL updated queue. Respond with ONLY
a JSON object, no prose:
{"tasks": [{"id": "...", "title": "...", "description": "...",
"status": "pending|in-progress|completed", "assigned_agent": "...",
"estimated_time": "..."}], "confirmation": "one short sentence"}

Rules: keep the id of every task you retain, omit id for new tasks,
keep tasks in execution order, never invent statuses.`, current, transcript), nil
}

// resultSpec is the wire shape of an interpreter response.
type resultSpec struct {
	Tasks        []taskSpec `json:"tasks"`
	Confirmation string     `json:"confirmation"`
}

type taskSpec struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Status        string `json:"status"`
	AssignedAgent string `json:"assigned_agent"`
	EstimatedTime string `json:"estimated_time"`
}

// ParseResult converts a model response into a replacement queue.
// Retained IDs are preserved; tasks without an ID get a fresh one.
// Unknown or missing statuses fall back to the matching current task's
// status, or pending for new tasks.
func ParseResult(response string, current []ops.Task) ([]ops.Task, string, error) {
	raw, err := extractJSONObject(response)
	if err != nil {
		return nil, "", err
	}

	var spec resultSpec
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	if len(spec.Tasks) > maxQueueTasks {
		spec.Tasks = spec.Tasks[:maxQueueTasks]
	}

	byID := make(map[string]ops.Task, len(current))
	for _, t := range current {
		byID[t.ID] = t
	}

	tasks := make([]ops.Task, 0, len(spec.Tasks))
	for _, s := range spec.Tasks {
		title := strings.TrimSpace(s.Title)
		if title == "" {
			return nil, "", fmt.Errorf("%w: task with empty title", ErrMalformedResult)
		}

		task := ops.Task{
			ID:            strings.TrimSpace(s.ID),
			Title:         title,
			Description:   strings.TrimSpace(s.Description),
			Status:        normalizeStatus(s.Status, byID[s.ID]),
			AssignedAgent: strings.TrimSpace(s.AssignedAgent),
			EstimatedTime: strings.TrimSpace(s.EstimatedTime),
		}
		if task.ID == "" {
			task.ID = uuid.New().String()
		}
		tasks = append(tasks, task)
	}

	confirmation := strings.TrimSpace(spec.Confirmation)
	if confirmation == "" {
		confirmation = "Command applied"
	}
	return tasks, confirmation, nil
}

// normalizeStatus validates a reported status, falling back to the
// prior status of the same task, then to pending.
func normalizeStatus(raw string, prior ops.Task) ops.TaskStatus {
	switch ops.TaskStatus(strings.TrimSpace(raw)) {
	case ops.StatusPending:
		return ops.StatusPending
	case ops.StatusInProgress:
		return ops.StatusInProgress
	case ops.StatusCompleted:
		return ops.StatusCompleted
	}
	if prior.ID != "" {
		return prior.Status
	}
	return ops.StatusPending
}

// extractJSONObject pulls the outermost JSON object out of a response
// that may be wrapped in code fences or prose.
func extractJSONObject(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("%w: no JSON object found", ErrMalformedResult)
	}
	return s[start : end+1], nil
}
