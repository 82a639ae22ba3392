package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lectern/internal/ipc"
	"lectern/internal/preflight"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check extension connectivity, storage and environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Health()
				if err != nil {
					return err
				}
				if asJSON {
					if err := writeJSON(cmd, resp); err != nil {
						return err
					}
				} else {
					out := cmd.OutOrStdout()
					for _, line := range healthLines(resp, shouldColorize(out), time.Now()) {
						fmt.Fprintln(out, line)
					}
				}
				if !resp.StoreOK || failedChecks(resp.Checks) > 0 {
					return errors.New("health check failed")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print health as JSON")
	return cmd
}

func healthLines(resp *ipc.HealthResponse, colorize bool, now time.Time) []string {
	var lines []string
	lines = append(lines, renderSectionHeader("Connectivity", colorize)...)
	switch {
	case resp.Agent.Connected:
		lines = append(lines, renderStatusLine("Extension", statusOK,
			fmt.Sprintf("polling (%d pages)", len(resp.Agent.Pages)), colorize))
	case resp.Agent.LastPoll.IsZero():
		lines = append(lines, renderStatusLine("Extension", statusWarn, "never connected", colorize))
	default:
		lines = append(lines, renderStatusLine("Extension", statusWarn,
			fmt.Sprintf("last seen %s ago", now.Sub(resp.Agent.LastPoll).Round(time.Second)), colorize))
	}
	if resp.StoreOK {
		lines = append(lines, renderStatusLine("Storage", statusOK, "Ready", colorize))
	} else {
		lines = append(lines, renderStatusLine("Storage", statusError, resp.StoreError, colorize))
	}

	if len(resp.Checks) == 0 {
		return lines
	}
	results := make([]preflight.Result, 0, len(resp.Checks))
	for _, c := range resp.Checks {
		results = append(results, preflight.Result{Name: c.Name, Passed: c.Passed, Detail: c.Detail})
	}
	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Checks", colorize)...)
	lines = append(lines, checkLines(results, colorize)...)
	return lines
}

func failedChecks(checks []ipc.CheckResult) int {
	failed := 0
	for _, c := range checks {
		if !c.Passed {
			failed++
		}
	}
	return failed
}
