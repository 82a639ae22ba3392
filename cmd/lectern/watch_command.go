package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"lectern/internal/ipc"
	"lectern/internal/recorder"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow recording progress in a live view",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				model := newWatchModel(client, interval)
				program := tea.NewProgram(model,
					tea.WithContext(cmd.Context()),
					tea.WithInput(cmd.InOrStdin()),
					tea.WithOutput(cmd.OutOrStdout()),
				)
				final, err := program.Run()
				if err != nil {
					return err
				}
				if m, ok := final.(watchModel); ok && m.err != nil {
					return m.err
				}
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Status refresh interval")
	return cmd
}

type statusSource interface {
	Status() (*ipc.StatusResponse, error)
}

type statusMsg struct {
	status *ipc.StatusResponse
	err    error
}

type refreshMsg struct{}

var (
	watchTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	watchLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(11)
	watchWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	watchErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	watchOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	watchHelpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// watchModel polls daemon status and exits once an observed recording ends.
type watchModel struct {
	source   statusSource
	interval time.Duration
	spinner  spinner.Model
	progress progress.Model
	status   *ipc.StatusResponse
	sawRun   bool
	done     bool
	err      error
}

func newWatchModel(source statusSource, interval time.Duration) watchModel {
	if interval <= 0 {
		interval = time.Second
	}
	return watchModel{
		source:   source,
		interval: interval,
		spinner:  spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(watchOKStyle)),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch)
}

func (m watchModel) fetch() tea.Msg {
	status, err := m.source.Status()
	return statusMsg{status: status, err: err}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.done = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		width := msg.Width - 4
		if width > 60 {
			width = 60
		}
		if width > 10 {
			m.progress.Width = width
		}
	case statusMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("fetch status: %w", msg.err)
			m.done = true
			return m, tea.Quit
		}
		m.status = msg.status
		if msg.status != nil && msg.status.Recording.Active {
			m.sawRun = true
		} else if m.sawRun {
			m.done = true
			return m, tea.Quit
		}
		return m, tea.Tick(m.interval, func(time.Time) tea.Msg { return refreshMsg{} })
	case refreshMsg:
		return m, m.fetch
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder
	b.WriteString(watchTitleStyle.Render("Lectern"))
	if m.status == nil {
		b.WriteString(" " + m.spinner.View() + " connecting...\n")
		return b.String()
	}
	rec := m.status.Recording
	if rec.Active {
		b.WriteString(" " + m.spinner.View() + " " + string(rec.State))
	} else {
		b.WriteString(" " + watchStateStyle(rec.State).Render(watchState(rec)))
	}
	b.WriteString("\n\n")

	if rec.CourseTitle != "" {
		b.WriteString(watchRow("Course", rec.CourseTitle))
	}
	if rec.Total > 0 {
		percent := float64(rec.Handled) / float64(rec.Total)
		b.WriteString(watchRow("Progress", fmt.Sprintf("%s %d/%d", m.progress.ViewAs(percent), rec.Handled, rec.Total)))
	}
	if rec.Active && rec.Lecture != "" {
		b.WriteString(watchRow("Lecture", rec.Section+" / "+rec.Lecture))
	}
	if rec.MaxErrors > 0 && rec.Active {
		errs := fmt.Sprintf("%d/%d", rec.ConsecutiveErrors, rec.MaxErrors)
		if rec.ConsecutiveErrors > 0 {
			errs = watchWarnStyle.Render(errs)
		}
		b.WriteString(watchRow("Errors", errs))
	}
	if rec.LastError != "" {
		b.WriteString(watchRow("Last error", watchWarnStyle.Render(rec.LastError)))
	}
	agent := "not connected"
	if m.status.Agent.Connected {
		agent = "connected"
	}
	b.WriteString(watchRow("Extension", agent))

	if !m.done {
		b.WriteString("\n" + watchHelpStyle.Render("q to quit") + "\n")
	}
	return b.String()
}

func watchRow(label, value string) string {
	return watchLabelStyle.Render(label) + " " + value + "\n"
}

func watchState(rec ipc.RecordingStatus) string {
	if rec.Outcome != "" {
		return rec.Outcome
	}
	return string(rec.State)
}

func watchStateStyle(state recorder.State) lipgloss.Style {
	switch state {
	case recorder.StateComplete:
		return watchOKStyle
	case recorder.StateError:
		return watchErrStyle
	case recorder.StateStopped:
		return watchWarnStyle
	default:
		return watchHelpStyle
	}
}
