// Command lecternd runs the lectern daemon in the foreground.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"lectern/internal/config"
	"lectern/internal/daemonrun"
)

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var (
		configPath string
		opts       daemonrun.Options
	)
	cmd := &cobra.Command{
		Use:           "lecternd",
		Short:         "Run the lectern daemon in the foreground",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return daemonrun.Run(cmd.Context(), cfg, opts)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to config file (default: ~/.config/lectern/config.toml)")
	flags.StringVar(&opts.SocketPath, "socket", "", "override the IPC socket path")
	flags.StringVar(&opts.LogLevel, "log-level", "", "override the configured log level")
	flags.BoolVar(&opts.Development, "dev", false, "enable development logging")
	return cmd
}

func main() {
	cmd := newRootCommand(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "lecternd: %v\n", err)
		os.Exit(1)
	}
}
