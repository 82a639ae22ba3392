package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lectern/internal/daemonctl"
	"lectern/internal/ipc"
	"lectern/internal/preflight"
)

type statusJSON struct {
	Running bool                `json:"running"`
	Status  *ipc.StatusResponse `json:"status,omitempty"`
	Checks  []preflight.Result  `json:"checks"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, recording and environment status",
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), ctx.configValue())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, statusJSON{
					Running: snapshot.Status != nil && snapshot.Status.Running,
					Status:  snapshot.Status,
					Checks:  snapshot.Checks,
				})
			}
			stdout := cmd.OutOrStdout()
			renderStatus(stdout, snapshot, shouldColorize(stdout), time.Now())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")
	return cmd
}

func renderStatus(out io.Writer, snapshot *daemonctl.Snapshot, colorize bool, now time.Time) {
	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	status := snapshot.Status
	if status == nil {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "not running", colorize))
	} else {
		for _, line := range daemonLines(status, colorize, now) {
			fmt.Fprintln(out, line)
		}
		fmt.Fprintln(out)
		for _, line := range renderSectionHeader("Recording", colorize) {
			fmt.Fprintln(out, line)
		}
		for _, line := range recordingLines(status.Recording, colorize) {
			fmt.Fprintln(out, line)
		}
	}

	if len(snapshot.Checks) == 0 {
		return
	}
	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Checks", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, line := range checkLines(snapshot.Checks, colorize) {
		fmt.Fprintln(out, line)
	}
}

func daemonLines(status *ipc.StatusResponse, colorize bool, now time.Time) []string {
	lines := []string{
		renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", status.PID), colorize),
		renderStatusLine("Agent bridge", statusInfo, status.AgentAddress, colorize),
	}
	agent := status.Agent
	if agent.Connected {
		detail := "connected"
		if agent.AgentVersion != "" {
			detail += " (" + agent.AgentVersion + ")"
		}
		if len(agent.Pages) > 0 {
			detail += "; pages: " + strings.Join(agent.Pages, ", ")
		}
		lines = append(lines, renderStatusLine("Extension", statusOK, detail, colorize))
	} else {
		detail := "not connected"
		if !agent.LastPoll.IsZero() {
			detail = fmt.Sprintf("last seen %s ago", now.Sub(agent.LastPoll).Round(time.Second))
		}
		lines = append(lines, renderStatusLine("Extension", statusWarn, detail, colorize))
	}
	if status.DatabasePath != "" {
		lines = append(lines, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
	}
	return lines
}

func recordingLines(rec ipc.RecordingStatus, colorize bool) []string {
	state := string(rec.State)
	if rec.Outcome != "" && !rec.Active {
		state = rec.Outcome
	}
	lines := []string{renderStatusLine("State", recordingKind(rec.State), state, colorize)}
	if rec.CourseTitle != "" {
		lines = append(lines, renderStatusLine("Course", statusInfo, rec.CourseTitle, colorize))
	}
	if rec.Page != "" {
		lines = append(lines, renderStatusLine("Page", statusInfo, rec.Page, colorize))
	}
	if rec.Total > 0 {
		progress := fmt.Sprintf("%d/%d lectures", rec.Handled, rec.Total)
		if rec.Strategy != "" {
			progress += fmt.Sprintf(" (%s)", rec.Strategy)
		}
		lines = append(lines, renderStatusLine("Progress", statusInfo, progress, colorize))
	}
	if rec.Active && rec.Lecture != "" {
		lines = append(lines, renderStatusLine("Current", statusInfo, rec.Section+" / "+rec.Lecture, colorize))
	}
	if rec.MaxErrors > 0 && (rec.Active || rec.ConsecutiveErrors > 0) {
		kind := statusOK
		if rec.ConsecutiveErrors > 0 {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine("Errors", kind,
			fmt.Sprintf("%d of %d consecutive", rec.ConsecutiveErrors, rec.MaxErrors), colorize))
	}
	if rec.LastError != "" {
		lines = append(lines, renderStatusLine("Last error", statusWarn, rec.LastError, colorize))
	}
	return lines
}

// writeJSON prints v as indented JSON followed by a newline.
func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
	return err
}
