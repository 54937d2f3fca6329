package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/reliefd/internal/ops"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// PlanRequest is the JSON body for POST /v1/plan.
type PlanRequest struct {
	DisasterType string `json:"disaster_type"`
	Location     string `json:"location"`
}

// CommandRequest is the JSON body for POST /v1/command.
type CommandRequest struct {
	Transcript string `json:"transcript"`
}

// StateResponse reports the operation state after a control action.
type StateResponse struct {
	State ops.OperationState `json:"state"`
}

// ActivityResponse wraps the activity log entries.
type ActivityResponse struct {
	Entries []ops.Entry `json:"entries"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeOpsError maps engine errors onto HTTP status codes. Precondition
// violations are conflicts, caller mistakes are bad requests.
func writeOpsError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ops.ErrInvalidState),
		errors.Is(err, ops.ErrEmptyQueue),
		errors.Is(err, ops.ErrInterpreterBusy):
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, ops.ErrEmptyTranscript):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: "reliefd",
	})
}

func (s *Server) handleState(c echo.Context) error {
	return c.JSON(http.StatusOK, s.orch.Status())
}

func (s *Server) handleQueue(c echo.Context) error {
	return c.JSON(http.StatusOK, s.orch.Queue())
}

func (s *Server) handleActivity(c echo.Context) error {
	log := s.orch.Activity()

	var entries []ops.Entry
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
		}
		entries = log.Tail(limit)
	} else {
		entries = log.Entries()
	}

	return c.JSON(http.StatusOK, ActivityResponse{Entries: entries})
}

func (s *Server) handlePlan(c echo.Context) error {
	var req PlanRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if req.DisasterType == "" || req.Location == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "disaster_type and location are required"})
	}

	if err := s.orch.GeneratePlan(req.DisasterType, req.Location); err != nil {
		return writeOpsError(c, err)
	}
	return c.JSON(http.StatusAccepted, StateResponse{State: s.orch.State()})
}

func (s *Server) handleStart(c echo.Context) error {
	if err := s.orch.Start(); err != nil {
		return writeOpsError(c, err)
	}
	return c.JSON(http.StatusOK, StateResponse{State: s.orch.State()})
}

func (s *Server) handlePause(c echo.Context) error {
	if err := s.orch.Pause(); err != nil {
		return writeOpsError(c, err)
	}
	return c.JSON(http.StatusOK, StateResponse{State: s.orch.State()})
}

func (s *Server) handleApprove(c echo.Context) error {
	if err := s.orch.Approve(); err != nil {
		return writeOpsError(c, err)
	}
	return c.JSON(http.StatusOK, StateResponse{State: s.orch.State()})
}

func (s *Server) handleCommand(c echo.Context) error {
	if s.cmdLimiter != nil && !s.cmdLimiter.Allow() {
		return c.JSON(http.StatusTooManyRequests, errorResponse{Error: "command rate limit exceeded"})
	}

	var req CommandRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	if err := s.orch.SubmitCommand(req.Transcript); err != nil {
		return writeOpsError(c, err)
	}
	return c.JSON(http.StatusAccepted, StateResponse{State: s.orch.State()})
}
