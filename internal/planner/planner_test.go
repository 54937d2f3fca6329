package planner

import (
	"context"
	"errors"
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

const validPlan = `[
  {"title": "Evacuate low-lying areas", "description": "Door-to-door sweep", "assigned_agent": "Search & Rescue", "estimated_time": "90 min"},
  {"title": "Open emergency shelter", "description": "High school gym", "assigned_agent": "Shelter Team", "estimated_time": "60 min"}
]`

func TestLLM_Generate(t *testing.T) {
	model := &fakeModel{response: validPlan}
	p := NewLLMWithModel(model, 0.2)

	tasks, err := p.Generate(context.Background(), "Flood", "Cedar Valley")
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "Evacuate low-lying areas", tasks[0].Title)
	assert.Equal(t, "Search & Rescue", tasks[0].AssignedAgent)
	assert.Equal(t, ops.StatusPending, tasks[0].Status)
	assert.NotEmpty(t, tasks[0].ID)
	assert.NotEqual(t, tasks[0].ID, tasks[1].ID)

	assert.Contains(t, model.lastPrompt, "Flood")
	assert.Contains(t, model.lastPrompt, "Cedar Valley")
}

func TestLLM_GenerateModelError(t *testing.T) {
	p := NewLLMWithModel(&fakeModel{err: errors.New("connection refused")}, 0)

	_, err := p.Generate(context.Background(), "Flood", "X")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plan generation")
}

func TestParsePlan_StripsCodeFences(t *testing.T) {
	fenced := "Here is your plan:\n```json\n" + validPlan + "\n```\nGood luck."
	tasks, err := ParsePlan(fenced)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestParsePlan_Malformed(t *testing.T) {
	cases := []struct {
		name     string
		response string
	}{
		{"no array", "I cannot help with that."},
		{"broken json", `[{"title": "x"`},
		{"empty array", `[]`},
		{"empty title", `[{"title": "  ", "description": "d"}]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePlan(tc.response)
			require.ErrorIs(t, err, ErrMalformedPlan)
		})
	}
}

func TestParsePlan_CapsTaskCount(t *testing.T) {
	long := "["
	for i := 0; i < 25; i++ {
		if i > 0 {
			long += ","
		}
		long += `{"title": "task", "description": "d"}`
	}
	long += "]"

	tasks, err := ParsePlan(long)
	require.NoError(t, err)
	assert.Len(t, tasks, maxPlanTasks)
}

func TestConfig_Validate(t *testing.T) {
	require.ErrorIs(t, Config{}.Validate(), ErrInvalidConfig)
	require.NoError(t, Config{Model: "gpt-4o-mini"}.Validate())
}
