package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/ipc"
)

func newRecordingCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start <page>",
		Short: "Record every lecture of the course open on a page",
		Long: "Start a recording for the course player page identified by <page>.\n" +
			"The page id is the one the browser extension reports; see `lectern health`.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page := strings.TrimSpace(args[0])
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Start(page)
				if err != nil {
					return err
				}
				if !resp.Started {
					return codedError("start recording", resp.Code, resp.Message)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recording started for %s\n", page)
				return nil
			})
		},
	}

	var stopReason string
	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the active recording and keep what was captured",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Stop(stopReason); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Recording stopped")
				return nil
			})
		},
	}
	stopCmd.Flags().StringVar(&stopReason, "reason", "", "Reason recorded in the session outcome")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all stored transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Clear()
				if err != nil {
					return err
				}
				if !resp.Cleared {
					return fmt.Errorf("clear transcripts: %s", resp.Message)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Transcripts cleared")
				return nil
			})
		},
	}

	advanceCmd := &cobra.Command{
		Use:   "force-advance",
		Short: "Count the current lecture as failed and move to the next one",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ForceAdvance()
				if err != nil {
					return err
				}
				if !resp.Advanced {
					return codedError("force advance", resp.Code, resp.Message)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Skipped to the next lecture")
				return nil
			})
		},
	}

	return []*cobra.Command{startCmd, stopCmd, clearCmd, advanceCmd}
}

// codedError turns a rejected control response into a CLI error with a hint
// for the codes a user can act on.
func codedError(action, code, message string) error {
	if strings.TrimSpace(message) == "" {
		message = "request rejected"
	}
	switch code {
	case ipc.CodeAlreadyRecording:
		return fmt.Errorf("%s: %s (run `lectern stop` first)", action, message)
	case ipc.CodeNotRecording:
		return fmt.Errorf("%s: %s (start one with `lectern start <page>`)", action, message)
	case ipc.CodeDiscoveryFailed:
		return fmt.Errorf("%s: %s (open the course player and check `lectern health`)", action, message)
	case "":
		return errors.New(action + ": " + message)
	default:
		return fmt.Errorf("%s: %s", action, message)
	}
}
