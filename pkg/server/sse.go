package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/reliefd/internal/events"
)

// sseHeartbeat keeps proxies from timing out idle streams.
const sseHeartbeat = 30 * time.Second

// handleActivityStream streams activity log entries and state
// transitions via Server-Sent Events.
//
// The handler subscribes to the NATS event subjects and forwards each
// message until the client disconnects. Event types:
//   - state: operation state transition
//   - system, ai, comms, task: activity entries by category
//
// Example:
//
//	GET /v1/activity/stream
//
//	event: state
//	data: {"from":"idle","to":"planning","timestamp":"..."}
//
//	event: task
//	data: {"timestamp":"...","category":"TASK","message":"Task completed: ..."}
func (s *Server) handleActivityStream(c echo.Context) error {
	if s.nc == nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{
			Error: "event stream is not configured",
		})
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	msgChan := make(chan *nats.Msg, 16)

	actSub, err := s.nc.ChanSubscribe(events.SubjectActivityWildcard, msgChan)
	if err != nil {
		return err
	}
	defer func() {
		_ = actSub.Unsubscribe()
	}()

	stateSub, err := s.nc.ChanSubscribe(events.SubjectState, msgChan)
	if err != nil {
		return err
	}
	defer func() {
		_ = stateSub.Unsubscribe()
	}()

	c.Response().Flush()
	s.logger.Debug("activity stream opened",
		zap.String("remote", c.Request().RemoteAddr))

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case msg := <-msgChan:
			fmt.Fprintf(c.Response(), "event: %s\n", sseEventType(msg.Subject))
			fmt.Fprintf(c.Response(), "data: %s\n\n", string(msg.Data))
			c.Response().Flush()

		case <-ticker.C:
			fmt.Fprintf(c.Response(), ": heartbeat\n\n")
			c.Response().Flush()

		case <-c.Request().Context().Done():
			return nil
		}
	}
}

// sseEventType derives the SSE event name from a NATS subject: the
// state subject maps to "state", activity subjects to their lowercased
// category token.
func sseEventType(subject string) string {
	if subject == events.SubjectState {
		return "state"
	}
	if idx := strings.LastIndex(subject, "."); idx != -1 {
		return subject[idx+1:]
	}
	return "activity"
}
