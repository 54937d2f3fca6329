package interpreter

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/fyrsmithlabs/reliefd/internal/ops"
)

type fakeModel struct {
	response   string
	err        error
	lastPrompt string
}

func (m *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if tc, ok := part.(llms.TextContent); ok {
				m.lastPrompt = tc.Text
			}
		}
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.response}},
	}, nil
}

func (m *fakeModel) Call(_ context.Context, prompt string, _ ...llms.CallOption) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.lastPrompt = prompt
	return m.response, nil
}

func currentQueue() []ops.Task {
	a := ops.NewTask("Evacuate riverside district", "Door-to-door sweep", "Search & Rescue", "90 min")
	a.Status = ops.StatusInProgress
	b := ops.NewTask("Open shelter", "High school gym", "Shelter Team", "60 min")
	return []ops.Task{a, b}
}

func TestLLM_Interpret(t *testing.T) {
	queue := currentQueue()
	response := fmt.Sprintf(`{
	  "tasks": [
	    {"id": %q, "title": "Evacuate riverside district", "status": "in-progress", "assigned_agent": "Search & Rescue", "estimated_time": "90 min"},
	    {"title": "Airlift medical supplies", "description": "Helicopter drop", "assigned_agent": "Air Ops", "estimated_time": "40 min"}
	  ],
	  "confirmation": "Replaced the shelter task with a medical airlift."
	}`, queue[0].ID)

	model := &fakeModel{response: response}
	i := NewLLMWithModel(model, 0.2)

	tasks, confirmation, err := i.Interpret(context.Background(), "swap the shelter for an airlift", queue)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "Replaced the shelter task with a medical airlift.", confirmation)
	assert.Equal(t, queue[0].ID, tasks[0].ID, "retained task keeps its id")
	assert.Equal(t, ops.StatusInProgress, tasks[0].Status)
	assert.NotEmpty(t, tasks[1].ID, "new task gets a fresh id")
	assert.Equal(t, ops.StatusPending, tasks[1].Status)

	assert.Contains(t, model.lastPrompt, "swap the shelter for an airlift")
	assert.Contains(t, model.lastPrompt, queue[0].ID)
}

func TestLLM_InterpretModelError(t *testing.T) {
	i := NewLLMWithModel(&fakeModel{err: errors.New("rate limited")}, 0)

	_, _, err := i.Interpret(context.Background(), "anything", currentQueue())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command interpretation")
}

func TestParseResult_StatusFallsBackToPrior(t *testing.T) {
	queue := currentQueue()
	response := fmt.Sprintf(`{"tasks": [{"id": %q, "title": "Evacuate riverside district", "status": "on-fire"}], "confirmation": "ok"}`, queue[0].ID)

	tasks, _, err := ParseResult(response, queue)
	require.NoError(t, err)
	assert.Equal(t, ops.StatusInProgress, tasks[0].Status, "unknown status keeps the prior one")
}

func TestParseResult_EmptyQueueAllowed(t *testing.T) {
	tasks, confirmation, err := ParseResult(`{"tasks": [], "confirmation": "Stood down"}`, currentQueue())
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Equal(t, "Stood down", confirmation)
}

func TestParseResult_DefaultConfirmation(t *testing.T) {
	_, confirmation, err := ParseResult(`{"tasks": [{"title": "x"}]}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "Command applied", confirmation)
}

func TestParseResult_Malformed(t *testing.T) {
	cases := []struct {
		name     string
		response string
	}{
		{"no object", "sorry, cannot do that"},
		{"broken json", `{"tasks": [`},
		{"empty title", `{"tasks": [{"title": ""}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ParseResult(tc.response, nil)
			require.ErrorIs(t, err, ErrMalformedResult)
		})
	}
}

func TestParseResult_StripsCodeFences(t *testing.T) {
	fenced := "```json\n{\"tasks\": [{\"title\": \"x\"}], \"confirmation\": \"done\"}\n```"
	tasks, confirmation, err := ParseResult(fenced, nil)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Equal(t, "done", confirmation)
}

func TestConfig_Validate(t *testing.T) {
	require.ErrorIs(t, Config{}.Validate(), ErrInvalidConfig)
	require.NoError(t, Config{Model: "gpt-4o-mini"}.Validate())
}
