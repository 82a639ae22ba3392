package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lectern/internal/config"
	"lectern/internal/ipc"
	"lectern/internal/logging"
	"lectern/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var useAPI bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		Long: "Display recent daemon log events over the control socket.\n" +
			"With --api the events come from the agent HTTP endpoint instead. When the\n" +
			"daemon is not running the log file is read directly.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if lines < 0 {
				lines = 0
			}
			cfg := ctx.configValue()
			if useAPI {
				if cfg == nil {
					return errors.New("logs --api requires a loadable configuration")
				}
				return streamLogsFromAPI(cmd, cfg, lines, follow)
			}

			socket := ctx.socketPath()
			client, err := ipc.Dial(socket)
			if err != nil {
				if cfg != nil && isSocketUnavailable(err) {
					return tailLogFile(cmd, cfg.LogFilePath(), lines, follow)
				}
				return wrapDialError(err, socket)
			}
			defer client.Close()
			return streamLogsFromIPC(cmd, client, lines, follow)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of recent entries to show (0 for all retained)")
	cmd.Flags().BoolVar(&useAPI, "api", false, "Read events from the agent HTTP API")
	return cmd
}

func streamLogsFromIPC(cmd *cobra.Command, client *ipc.Client, lines int, follow bool) error {
	runCtx := commandCtx(cmd)
	out := cmd.OutOrStdout()
	req := ipc.LogTailRequest{Limit: lines, WaitMillis: 1000}
	printed := false

	for {
		resp, err := client.LogTail(req)
		if err != nil {
			return fmt.Errorf("tail logs: %w", err)
		}
		if resp == nil {
			return errors.New("log tail response missing")
		}
		for _, evt := range resp.Events {
			fmt.Fprintln(out, formatLogEvent(evt))
			printed = true
		}
		if !follow {
			if !printed {
				fmt.Fprintln(out, "No log entries available")
			}
			return nil
		}
		req.Since = resp.Next
		req.Limit = 200
		req.Follow = true
		if runCtx.Err() != nil {
			return nil
		}
	}
}

func streamLogsFromAPI(cmd *cobra.Command, cfg *config.Config, lines int, follow bool) error {
	client, err := logs.NewStreamClient(cfg.Agent.Bind, cfg.Agent.Token)
	if err != nil {
		return err
	}
	runCtx := commandCtx(cmd)
	out := cmd.OutOrStdout()
	query := logs.StreamQuery{Limit: lines}
	printed := false

	for {
		page, err := client.Fetch(runCtx, query)
		if err != nil {
			if runCtx.Err() != nil {
				return nil
			}
			if logs.IsAPIUnavailable(err) {
				return fmt.Errorf("log API at %s is not reachable; is the daemon running?", cfg.Agent.Bind)
			}
			return err
		}
		for _, evt := range page.Events {
			fmt.Fprintln(out, formatLogEvent(evt))
			printed = true
		}
		if !follow {
			if !printed {
				fmt.Fprintln(out, "No log entries available")
			}
			return nil
		}
		query = logs.StreamQuery{Since: page.Next, Limit: 200, Follow: true}
	}
}

func tailLogFile(cmd *cobra.Command, path string, lines int, follow bool) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(cmd.ErrOrStderr(), "Daemon not running; reading %s\n", path)

	limit := lines
	if limit == 0 {
		limit = 1000
	}
	recent, offset, err := logs.TailFile(path, limit)
	if err != nil {
		return err
	}
	printLines(out, recent)
	if !follow {
		if len(recent) == 0 {
			fmt.Fprintln(out, "No log entries available")
		}
		return nil
	}

	runCtx := commandCtx(cmd)
	for runCtx.Err() == nil {
		var more []string
		more, offset, err = logs.ReadFrom(runCtx, path, offset, 5*time.Second)
		if err != nil {
			if runCtx.Err() != nil {
				return nil
			}
			return err
		}
		printLines(out, more)
	}
	return nil
}

func printLines(out io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
}

func commandCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func formatLogEvent(evt logging.LogEvent) string {
	ts := evt.Timestamp.Format("2006-01-02 15:04:05")
	level := strings.ToUpper(strings.TrimSpace(evt.Level))
	if level == "" {
		level = "INFO"
	}
	parts := []string{ts, level}
	if component := strings.TrimSpace(evt.Component); component != "" {
		parts = append(parts, fmt.Sprintf("[%s]", component))
	}
	if lecture := strings.TrimSpace(evt.Lecture); lecture != "" {
		parts = append(parts, lecture)
	}
	line := strings.Join(parts, " ")
	if message := strings.TrimSpace(evt.Message); message != "" {
		line += " – " + message
	}
	if len(evt.Fields) == 0 {
		return line
	}
	keys := make([]string, 0, len(evt.Fields))
	for key := range evt.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	builder := strings.Builder{}
	builder.WriteString(line)
	for _, key := range keys {
		value := strings.TrimSpace(evt.Fields[key])
		if value == "" {
			continue
		}
		builder.WriteString("\n    - ")
		builder.WriteString(key)
		builder.WriteString(": ")
		builder.WriteString(value)
	}
	return builder.String()
}
