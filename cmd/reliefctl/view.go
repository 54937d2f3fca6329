package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// HealthResponse matches pkg/server HealthResponse
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// StatusResponse matches internal/ops Status
type StatusResponse struct {
	State          string `json:"state"`
	ActiveIndex    int    `json:"active_index"`
	QueueLength    int    `json:"queue_length"`
	CommandPending bool   `json:"command_pending"`
}

// Task matches internal/ops Task
type Task struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Status        string `json:"status"`
	AssignedAgent string `json:"assigned_agent"`
	EstimatedTime string `json:"estimated_time"`
}

// QueueResponse matches internal/ops QueueSnapshot
type QueueResponse struct {
	Tasks       []Task `json:"tasks"`
	ActiveIndex int    `json:"active_index"`
}

// Entry matches internal/ops Entry
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
}

// ActivityResponse matches pkg/server ActivityResponse
type ActivityResponse struct {
	Entries []Entry `json:"entries"`
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check reliefd server health",
	RunE: func(cmd *cobra.Command, args []string) error {
		var health HealthResponse
		if err := getJSON("/health", &health); err != nil {
			return err
		}
		fmt.Printf("Server Status: %s\n", health.Status)
		fmt.Printf("Server URL: %s\n", serverURL)
		return nil
	},
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the current operation state",
	RunE: func(cmd *cobra.Command, args []string) error {
		var status StatusResponse
		if err := getJSON("/v1/state", &status); err != nil {
			return err
		}
		fmt.Print(renderStatus(status))
		return nil
	},
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show the task queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		var queue QueueResponse
		if err := getJSON("/v1/queue", &queue); err != nil {
			return err
		}
		fmt.Print(renderQueue(queue))
		return nil
	},
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the activity log",
	Long: `Show the operation activity log, newest entries last.

Examples:
  # Full log
  reliefctl log

  # Last 10 entries
  reliefctl log --tail 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/v1/activity"
		if logTail > 0 {
			path += "?limit=" + strconv.Itoa(logTail)
		}
		var activity ActivityResponse
		if err := getJSON(path, &activity); err != nil {
			return err
		}
		fmt.Print(renderActivity(activity.Entries))
		return nil
	},
}

var logTail int

func init() {
	logCmd.Flags().IntVar(&logTail, "tail", 0, "show only the last N entries")
}

func renderStatus(status StatusResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "State:           %s\n", status.State)
	fmt.Fprintf(&b, "Queue length:    %d\n", status.QueueLength)
	if status.ActiveIndex >= 0 {
		fmt.Fprintf(&b, "Active task:     #%d\n", status.ActiveIndex+1)
	} else {
		fmt.Fprintf(&b, "Active task:     none\n")
	}
	if status.CommandPending {
		fmt.Fprintf(&b, "Command pending: yes\n")
	}
	return b.String()
}

func renderQueue(queue QueueResponse) string {
	if len(queue.Tasks) == 0 {
		return "Task queue is empty.\n"
	}

	var b strings.Builder
	for i, task := range queue.Tasks {
		marker := " "
		if i == queue.ActiveIndex {
			marker = ">"
		}
		fmt.Fprintf(&b, "%s %d. [%s] %s", marker, i+1, task.Status, task.Title)
		if task.AssignedAgent != "" {
			fmt.Fprintf(&b, " (%s", task.AssignedAgent)
			if task.EstimatedTime != "" {
				fmt.Fprintf(&b, ", %s", task.EstimatedTime)
			}
			fmt.Fprintf(&b, ")")
		}
		fmt.Fprintln(&b)
	}
	return b.String()
}

func renderActivity(entries []Entry) string {
	if len(entries) == 0 {
		return "Activity log is empty.\n"
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s  %-6s %s\n",
			e.Timestamp.Local().Format("15:04:05"),
			e.Category,
			e.Message)
	}
	return b.String()
}
