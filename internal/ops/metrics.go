package ops

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reliefd",
		Subsystem: "ops",
		Name:      "state_transitions_total",
		Help:      "Operation state machine transitions.",
	}, []string{"from", "to"})

	approvalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reliefd",
		Subsystem: "ops",
		Name:      "approvals_total",
		Help:      "Operator approvals accepted at the approval gate.",
	})

	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reliefd",
		Subsystem: "ops",
		Name:      "commands_total",
		Help:      "Natural-language commands by outcome.",
	}, []string{"outcome"})

	plannerFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reliefd",
		Subsystem: "ops",
		Name:      "planner_fallbacks_total",
		Help:      "Plan requests that fell back to the default checklist.",
	})

	queueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "reliefd",
		Subsystem: "ops",
		Name:      "queue_length",
		Help:      "Current number of tasks in the queue.",
	})
)
