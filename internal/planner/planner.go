// Package planner generates recovery task plans via an OpenAI-compatible
// chat model.
//
// The planner is an external collaborator of the orchestration engine:
// it produces an ordered task sequence for a disaster type and location
// and never touches orchestrator state. Malformed or unavailable model
// output surfaces as an error; the orchestrator substitutes its default
// checklist.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fyrsmithlabs/reliefd/internal/ops"
)

// maxPlanTasks caps how many tasks a single plan may contain.
const maxPlanTasks = 20

var (
	// ErrMalformedPlan indicates the model response could not be parsed
	// into a usable task list.
	ErrMalformedPlan = errors.New("malformed plan response")

	// ErrInvalidConfig indicates missing required configuration.
	ErrInvalidConfig = errors.New("invalid planner configuration")
)

// Config holds planner model configuration.
type Config struct {
	// BaseURL is the OpenAI-compatible API endpoint.
	BaseURL string

	// Model is the chat model name.
	Model string

	// APIKey authenticates against the endpoint.
	APIKey string

	// Temperature controls sampling; low values keep plans consistent.
	Temperature float64
}

// Validate checks required fields.
func (c Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	return nil
}

// LLM generates plans with a langchaingo chat model.
type LLM struct {
	model       llms.Model
	temperature float64
	tracer      trace.Tracer
}

// NewLLM creates a planner backed by an OpenAI-compatible endpoint.
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
		return nil, fmt.Errorf("creating planner model: %w", err)
	}

	return NewLLMWithModel(model, cfg.Temperature), nil
}

// NewLLMWithModel wraps an existing model. Used by tests and carriers
// of pre-built clients.
func NewLLMWithModel(model llms.Model, temperature float64) *LLM {
	return &LLM{
		model:       model,
		temperature: temperature,
		tracer:      otel.Tracer("reliefd/planner"),
	}
}

// Generate implements ops.Planner.
func (l *LLM) Generate(ctx context.Context, disasterType, location string) ([]ops.Task, error) {
	ctx, span := l.tracer.Start(ctx, "planner.generate",
		trace.WithAttributes(
			attribute.String("disaster.type", disasterType),
			attribute.String("disaster.location", location),
		))
	defer span.End()

	out, err := llms.GenerateFromSinglePrompt(ctx, l.model, buildPrompt(disasterType, location),
		llms.WithTemperature(l.temperature))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model call failed")
		return nil, fmt.Errorf("plan generation: %w", err)
	}

	tasks, err := ParsePlan(out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unparseable plan")
		return nil, err
	}

	span.SetAttributes(attribute.Int("plan.tasks", len(tasks)))
	return tasks, nil
}

func buildPrompt(disasterType, location string) string {
	return fmt.Sprintf(`You are a disaster recovery operations planner.
Produce an ordered recovery task list for a %s near %s.

Respond with ONLY a JSON array, no prose. Each element:
{"title": "...", "description": "...", "assigned_agent": "...", "estimated_time": "..."}

Rules: 3 to 8 tasks, ordered by execution priority, titles under 60
characters, assigned_agent is a team role label, estimated_time is a
short duration label like "45 min".`, disasterType, location)
}

// taskSpec is the wire shape of a planned task.
type taskSpec struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	AssignedAgent string `json:"assigned_agent"`
	EstimatedTime string `json:"estimated_time"`
}

// ParsePlan converts a model response into pending tasks with fresh
// IDs. Code fences and surrounding prose are tolerated; anything else
// malformed is rejected.
func ParsePlan(response string) ([]ops.Task, error) {
	raw, err := extractJSONArray(response)
	if err != nil {
		return nil, err
	}

	var specs []taskSpec
	if err := json.Unmarshal([]byte(raw), &specs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPlan, err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: empty task list", ErrMalformedPlan)
	}
	if len(specs) > maxPlanTasks {
		specs = specs[:maxPlanTasks]
	}

	tasks := make([]ops.Task, 0, len(specs))
	for _, s := range specs {
		title := strings.TrimSpace(s.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: task with empty title", ErrMalformedPlan)
		}
		tasks = append(tasks, ops.NewTask(title, strings.TrimSpace(s.Description),
			strings.TrimSpace(s.AssignedAgent), strings.TrimSpace(s.EstimatedTime)))
	}
	return tasks, nil
}

// extractJSONArray pulls the outermost JSON array out of a response
// that may be wrapped in code fences or prose.
func extractJSONArray(s string) (string, error) {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("%w: no JSON array found", ErrMalformedPlan)
	}
	return s[start : end+1], nil
}
