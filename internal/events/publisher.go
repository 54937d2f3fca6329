// Package events fans orchestrator observations out over NATS.
//
// Activity log entries and state transitions are published as JSON to
// well-known subjects so that SSE streams, dashboards, and other
// processes can follow an operation without polling. Publishing is
// strictly best-effort: the orchestrator never blocks or fails because
// a subscriber is slow or the connection dropped.
package events

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/reliefd/internal/ops"
)

const (
	// SubjectState carries operation state transitions.
	SubjectState = "reliefd.state"

	// SubjectActivityWildcard matches every activity entry.
	SubjectActivityWildcard = "reliefd.activity.>"

	subjectActivityPrefix = "reliefd.activity."
)

// ActivitySubject returns the subject for a log category.
func ActivitySubject(category ops.Category) string {
	return subjectActivityPrefix + strings.ToLower(string(category))
}

// Transition is the wire shape of a state change event.
type Transition struct {
	From      ops.OperationState `json:"from"`
	To        ops.OperationState `json:"to"`
	Timestamp time.Time          `json:"timestamp"`
}

// Publisher publishes orchestrator events to NATS.
type Publisher struct {
	nc     *nats.Conn
	logger *zap.Logger
}

// NewPublisher creates a publisher. logger may be nil.
func NewPublisher(nc *nats.Conn, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{nc: nc, logger: logger}
}

// PublishEntry publishes an activity log entry. Intended as the
// ActivityLog OnAppend hook; it must stay non-blocking.
func (p *Publisher) PublishEntry(e ops.Entry) {
	data, err := json.Marshal(e)
	if err != nil {
		p.logger.Warn("encoding activity entry", zap.Error(err))
		return
	}
	if err := p.nc.Publish(ActivitySubject(e.Category), data); err != nil {
		p.logger.Warn("publishing activity entry", zap.Error(err))
	}
}

// PublishTransition publishes a state change. Intended as the
// Orchestrator OnTransition hook.
func (p *Publisher) PublishTransition(from, to ops.OperationState) {
	data, err := json.Marshal(Transition{
		From:      from,
		To:        to,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		p.logger.Warn("encoding transition", zap.Error(err))
		return
	}
	if err := p.nc.Publish(SubjectState, data); err != nil {
		p.logger.Warn("publishing transition", zap.Error(err))
	}
}
