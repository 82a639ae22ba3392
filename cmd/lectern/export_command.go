package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/config"
	"lectern/internal/fileutil"
	"lectern/internal/ipc"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var format string
	var title string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the recorded transcripts as a document",
		Long: "Render every stored transcript, grouped by section, as markdown or plain text.\n" +
			"Without --output the document is written to stdout.",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, title = exportDefaults(ctx.configValue(), format, title)
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Export(format, title)
				if err != nil {
					return err
				}
				target := strings.TrimSpace(output)
				if target == "" || target == "-" {
					_, err := fmt.Fprint(cmd.OutOrStdout(), resp.Document)
					return err
				}
				written, err := writeDocument(target, resp.Title, format, resp.Document)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Wrote %q to %s\n", resp.Title, written)
				fmt.Fprint(out, exportSummary(resp))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Document format: markdown or text (default from config)")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Document title (default: course title)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the document to a file or directory instead of stdout")
	return cmd
}

func exportDefaults(cfg *config.Config, format, title string) (string, string) {
	format = strings.TrimSpace(format)
	title = strings.TrimSpace(title)
	if cfg != nil {
		if format == "" {
			format = cfg.Output.Format
		}
		if title == "" {
			title = cfg.Output.Title
		}
	}
	return format, title
}

// writeDocument writes document to path. A path naming a directory, or ending
// in a separator, receives a file named after the title.
func writeDocument(path, title, format, document string) (string, error) {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return "", fmt.Errorf("resolve output path: %w", err)
	}
	if strings.HasSuffix(path, string(os.PathSeparator)) {
		expanded = filepath.Join(expanded, fileutil.DocumentName(title, format))
	} else if info, err := os.Stat(expanded); err == nil && info.IsDir() {
		expanded = filepath.Join(expanded, fileutil.DocumentName(title, format))
	}
	dir := filepath.Dir(expanded)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory %q: %w", dir, err)
	}
	if err := fileutil.WriteFileAtomic(expanded, []byte(document), 0o644); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	return expanded, nil
}

func exportSummary(resp *ipc.ExportResponse) string {
	rows := [][]string{
		{"Sections", strconv.Itoa(resp.Sections)},
		{"Lectures", strconv.Itoa(resp.Lectures)},
		{"Failed", strconv.Itoa(len(resp.Failed))},
	}
	summary := renderTable([]string{"Item", "Count"}, rows, 1) + "\n"
	if len(resp.Failed) == 0 {
		return summary
	}
	failed := make([][]string, 0, len(resp.Failed))
	for _, key := range resp.Failed {
		failed = append(failed, []string{key})
	}
	return summary + renderTable([]string{"Failed lecture"}, failed) + "\n"
}
