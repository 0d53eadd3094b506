package cli

import (
	"context"
	"fmt"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/paipi-go/internal/index"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// refreshTickMsg carries a progress callback from the refresh goroutine.
type refreshTickMsg struct {
	stage string
	done  int64
	total int64
}

// refreshDoneMsg signals refresh completion.
type refreshDoneMsg struct {
	count int
	err   error
}

// refreshModel is the bubbletea model for an index refresh.
type refreshModel struct {
	progress progress.Model
	theme    Theme

	stage     string
	done      int64
	total     int64
	count     int
	finished  bool
	cancelled bool
	err       error
	cancel    context.CancelFunc
}

func newRefreshModel(cancel context.CancelFunc) refreshModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)
	return refreshModel{
		progress: prog,
		theme:    defaultTheme,
		cancel:   cancel,
	}
}

// Init returns the initial command.
func (m refreshModel) Init() tea.Cmd {
	return m.progress.Init()
}

// Update handles messages and returns the updated model.
func (m refreshModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.cancelled = true
			m.cancel()
			return m, nil
		}

	case refreshTickMsg:
		m.stage = msg.stage
		m.done = msg.done
		m.total = msg.total
		return m, nil

	case refreshDoneMsg:
		m.finished = true
		m.count = msg.count
		m.err = msg.err
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m refreshModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m refreshModel) renderContent() string {
	if m.finished {
		return m.finalView()
	}

	if m.stage == "" {
		return "Contacting PyPI...\n"
	}

	var pct float64
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.stage))
	bar := m.progress.ViewAs(pct)

	var counts string
	switch m.stage {
	case index.StageDownload:
		counts = fmt.Sprintf("%.1f/%.1f MB", float64(m.done)/1e6, float64(m.total)/1e6)
	default:
		counts = fmt.Sprintf("%d/%d names", m.done, m.total)
	}

	hint := m.theme.hintStyle().Render("Press Ctrl+C to cancel")
	return fmt.Sprintf("%s %s %s\n%s\n", status, bar, counts, hint)
}

func (m refreshModel) finalView() string {
	if m.err != nil {
		if m.cancelled {
			return m.theme.hintStyle().Render("\nRefresh cancelled, previous index kept.\n")
		}
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Refresh failed: %s\n", m.err))
	}
	return m.theme.completedStyle().Render(fmt.Sprintf("✓ %d packages indexed\n", m.count))
}

// runRefreshProgress drives an index refresh with an interactive progress
// bar. Ctrl+C cancels the refresh; the stored index is left as it was.
func runRefreshProgress(ctx context.Context, oracle *index.Oracle) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newRefreshModel(cancel))

	go func() {
		count, err := oracle.Refresh(ctx, func(stage string, done, total int64) {
			p.Send(refreshTickMsg{stage: stage, done: done, total: total})
		})
		p.Send(refreshDoneMsg{count: count, err: err})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return 0, fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(refreshModel); ok {
		return m.count, m.err
	}
	return 0, nil
}
