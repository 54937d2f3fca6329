package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderStatus(t *testing.T) {
	out := renderStatus(StatusResponse{
		State:       "executing",
		ActiveIndex: 1,
		QueueLength: 3,
	})

	assert.Contains(t, out, "State:           executing")
	assert.Contains(t, out, "Queue length:    3")
	assert.Contains(t, out, "Active task:     #2")
}

func TestRenderStatusIdle(t *testing.T) {
	out := renderStatus(StatusResponse{
		State:          "idle",
		ActiveIndex:    -1,
		CommandPending: true,
	})

	assert.Contains(t, out, "Active task:     none")
	assert.Contains(t, out, "Command pending: yes")
}

func TestRenderQueue(t *testing.T) {
	out := renderQueue(QueueResponse{
		Tasks: []Task{
			{Title: "Restore power grid", Status: "completed", AssignedAgent: "power-crew", EstimatedTime: "4h"},
			{Title: "Clear access roads", Status: "in-progress"},
		},
		ActiveIndex: 1,
	})

	assert.Contains(t, out, "  1. [completed] Restore power grid (power-crew, 4h)")
	assert.Contains(t, out, "> 2. [in-progress] Clear access roads")
}

func TestRenderQueueEmpty(t *testing.T) {
	assert.Equal(t, "Task queue is empty.\n", renderQueue(QueueResponse{ActiveIndex: -1}))
}

func TestRenderActivity(t *testing.T) {
	entries := []Entry{
		{Timestamp: time.Date(2025, 6, 1, 9, 30, 0, 0, time.Local), Category: "SYSTEM", Message: "Execution started"},
		{Timestamp: time.Date(2025, 6, 1, 9, 30, 4, 0, time.Local), Category: "TASK", Message: "Task completed: Restore power grid"},
	}

	out := renderActivity(entries)
	assert.Contains(t, out, "09:30:00  SYSTEM Execution started")
	assert.Contains(t, out, "09:30:04  TASK   Task completed: Restore power grid")
}

func TestRenderActivityEmpty(t *testing.T) {
	assert.Equal(t, "Activity log is empty.\n", renderActivity(nil))
}
