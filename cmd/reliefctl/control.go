package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// PlanRequest matches pkg/server PlanRequest
type PlanRequest struct {
	DisasterType string `json:"disaster_type"`
	Location     string `json:"location"`
}

// CommandRequest matches pkg/server CommandRequest
type CommandRequest struct {
	Transcript string `json:"transcript"`
}

// StateResponse matches pkg/server StateResponse
type StateResponse struct {
	State string `json:"state"`
}

var planCmd = &cobra.Command{
	Use:   "plan <disaster-type> <location>",
	Short: "Request a recovery plan",
	Long: `Request a recovery plan for a disaster near a location.

The plan is generated asynchronously; watch "reliefctl state" or the
activity log for the result.

Examples:
  reliefctl plan flood "Cedar Falls"
  reliefctl plan wildfire "Pine Ridge"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var state StateResponse
		req := PlanRequest{DisasterType: args[0], Location: args[1]}
		if err := postJSON("/v1/plan", req, &state); err != nil {
			return err
		}
		fmt.Printf("Plan requested, state: %s\n", state.State)
		return nil
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start executing the task queue",
	RunE:  runControl("/v1/start", "Execution started"),
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused operation",
	RunE:  runControl("/v1/resume", "Execution resumed"),
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the running operation",
	RunE:  runControl("/v1/pause", "Execution paused"),
}

var approveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Approve the active task and move on",
	RunE:  runControl("/v1/approve", "Task approved"),
}

var commandCmd = &cobra.Command{
	Use:   "command <text>...",
	Short: "Send a free-text command to reshape the queue",
	Long: `Send a natural-language command to the operation.

The command is interpreted asynchronously and merged into the task
queue; completed work is never reopened by a merge.

Examples:
  reliefctl command add a task to restore the water supply
  reliefctl command "drop the staging task"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := CommandRequest{Transcript: strings.Join(args, " ")}
		if err := postJSON("/v1/command", req, nil); err != nil {
			return err
		}
		fmt.Println("Command accepted")
		return nil
	},
}

// runControl returns a RunE that posts to a control endpoint and prints
// the resulting state.
func runControl(path, verb string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		var state StateResponse
		if err := postJSON(path, nil, &state); err != nil {
			return err
		}
		fmt.Printf("%s, state: %s\n", verb, state.State)
		return nil
	}
}
