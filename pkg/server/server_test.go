package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/reliefd/internal/config"
	"github.com/fyrsmithlabs/reliefd/internal/ops"
)

type stubPlanner struct {
	tasks []ops.Task
	err   error
}

func (p *stubPlanner) Generate(_ context.Context, _, _ string) ([]ops.Task, error) {
	return p.tasks, p.err
}

type stubInterpreter struct {
	tasks        []ops.Task
	confirmation string
	err          error
}

func (i *stubInterpreter) Interpret(_ context.Context, _ string, _ []ops.Task) ([]ops.Task, string, error) {
	return i.tasks, i.confirmation, i.err
}

func planTasks() []ops.Task {
	return []ops.Task{
		ops.NewTask("Restore power grid", "Bring substations back online", "power-crew", "4h"),
		ops.NewTask("Clear access roads", "Open routes for supply trucks", "roads-crew", "6h"),
	}
}

type testServer struct {
	*httptest.Server
	orch *ops.Orchestrator
}

func newTestServer(t *testing.T, cfg config.ServerConfig, planner ops.Planner, interp ops.Interpreter) *testServer {
	t.Helper()

	if planner == nil {
		planner = &stubPlanner{tasks: planTasks()}
	}
	if interp == nil {
		interp = &stubInterpreter{confirmation: "ok"}
	}

	orch, err := ops.New(planner, interp, nil, ops.Config{
		TaskDelay:          25 * time.Millisecond,
		PlannerTimeout:     time.Second,
		InterpreterTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(orch.Close)

	srv := NewServer(cfg, orch, nil, nil)
	ts := httptest.NewServer(srv.Echo())
	t.Cleanup(ts.Close)

	return &testServer{Server: ts, orch: orch}
}

func (ts *testServer) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func (ts *testServer) post(t *testing.T, path string, payload any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(payload))
	}
	resp, err := http.Post(ts.URL+path, "application/json", &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func waitState(t *testing.T, ts *testServer, want ops.OperationState) {
	t.Helper()
	require.Eventually(t, func() bool {
		return ts.orch.State() == want
	}, 3*time.Second, 5*time.Millisecond, "state never reached %s", want)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{}, nil, nil)

	resp, body := ts.get(t, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "reliefd", health.Service)
}

func TestStateStartsIdle(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{}, nil, nil)

	resp, body := ts.get(t, "/v1/state")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status ops.Status
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, ops.StateIdle, status.State)
	assert.Equal(t, -1, status.ActiveIndex)
	assert.Zero(t, status.QueueLength)
}

func TestStartWithEmptyQueueConflicts(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{}, nil, nil)

	resp, _ := ts.post(t, "/v1/start", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestPlanStartPauseFlow(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{}, nil, nil)

	resp, _ := ts.post(t, "/v1/plan", PlanRequest{DisasterType: "flood", Location: "Cedar Falls"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	waitState(t, ts, ops.StateIdle)
	require.Eventually(t, func() bool {
		return ts.orch.Queue().ActiveIndex == -1 && len(ts.orch.Queue().Tasks) == 2
	}, 3*time.Second, 5*time.Millisecond)

	resp, _ = ts.post(t, "/v1/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ops.StateExecuting, ts.orch.State())

	resp, _ = ts.post(t, "/v1/pause", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ops.StatePaused, ts.orch.State())

	resp, _ = ts.post(t, "/v1/resume", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ops.StateExecuting, ts.orch.State())
}

func TestPlanRequiresFields(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{}, nil, nil)

	resp, _ := ts.post(t, "/v1/plan", PlanRequest{DisasterType: "flood"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestApproveOutsideGateConflicts(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{}, nil, nil)

	resp, _ := ts.post(t, "/v1/approve", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestApproveAtGateAdvances(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{}, nil, nil)

	_, _ = ts.post(t, "/v1/plan", PlanRequest{DisasterType: "flood", Location: "Cedar Falls"})
	waitState(t, ts, ops.StateIdle)
	_, _ = ts.post(t, "/v1/start", nil)
	waitState(t, ts, ops.StateAwaitingApproval)

	resp, _ := ts.post(t, "/v1/approve", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ops.StateExecuting, ts.orch.State())
}

func TestCommandEmptyTranscriptRejected(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{}, nil, nil)

	resp, _ := ts.post(t, "/v1/command", CommandRequest{Transcript: "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCommandAccepted(t *testing.T) {
	interp := &stubInterpreter{
		tasks:        planTasks(),
		confirmation: "Queue rebuilt",
	}
	ts := newTestServer(t, config.ServerConfig{}, nil, interp)

	resp, _ := ts.post(t, "/v1/command", CommandRequest{Transcript: "add power and road tasks"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		return len(ts.orch.Queue().Tasks) == 2
	}, 3*time.Second, 5*time.Millisecond)
}

func TestCommandRateLimit(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{CommandRatePerMinute: 1}, nil, nil)

	resp, _ := ts.post(t, "/v1/command", CommandRequest{Transcript: "first"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	// The limiter's burst is spent; the refill interval is a minute.
	require.Eventually(t, func() bool {
		return !ts.orch.Status().CommandPending
	}, 3*time.Second, 5*time.Millisecond)

	resp, _ = ts.post(t, "/v1/command", CommandRequest{Transcript: "second"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestActivityTail(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{}, nil, nil)

	for i := 0; i < 5; i++ {
		ts.orch.Activity().Append(ops.CategorySystem, fmt.Sprintf("note %d", i))
	}

	resp, body := ts.get(t, "/v1/activity?limit=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var activity ActivityResponse
	require.NoError(t, json.Unmarshal(body, &activity))
	require.Len(t, activity.Entries, 2)
	assert.Equal(t, "note 3", activity.Entries[0].Message)
	assert.Equal(t, "note 4", activity.Entries[1].Message)
}

func TestActivityFullLog(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{}, nil, nil)

	for i := 0; i < 3; i++ {
		ts.orch.Activity().Append(ops.CategorySystem, fmt.Sprintf("note %d", i))
	}

	resp, body := ts.get(t, "/v1/activity")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var activity ActivityResponse
	require.NoError(t, json.Unmarshal(body, &activity))
	require.Len(t, activity.Entries, 3)
	assert.Equal(t, "note 0", activity.Entries[0].Message)
}

func TestActivityBadLimit(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{}, nil, nil)

	resp, _ := ts.get(t, "/v1/activity?limit=nope")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestActivityStreamWithoutNATS(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{}, nil, nil)

	resp, _ := ts.get(t, "/v1/activity/stream")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestQueueSnapshot(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{}, nil, nil)

	_, _ = ts.post(t, "/v1/plan", PlanRequest{DisasterType: "wildfire", Location: "Pine Ridge"})
	waitState(t, ts, ops.StateIdle)

	resp, body := ts.get(t, "/v1/queue")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snapshot ops.QueueSnapshot
	require.NoError(t, json.Unmarshal(body, &snapshot))
	require.Len(t, snapshot.Tasks, 2)
	assert.Equal(t, -1, snapshot.ActiveIndex)
	assert.Equal(t, ops.StatusPending, snapshot.Tasks[0].Status)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{}, nil, nil)

	resp, body := ts.get(t, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}
