// Package tui renders an optional status footer over a running cluster. It
// is a pure observer: nothing here feeds back into orchestrator decisions,
// and a headless caller (spec.md §9) may omit it entirely. Grounded on the
// teacher's internal/tui footer (bubbletea-free, lipgloss-styled status
// line), generalized from task/panel counts to cluster/agent state and
// per-agent process metrics.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/daresTheDevil/zeroshot/internal/metrics"
	"github.com/daresTheDevil/zeroshot/pkg/models"
)

// AgentRow is one agent's display-ready state for the footer.
type AgentRow struct {
	ID     string
	State  models.AgentState
	Sample metrics.Sample
}

// Footer renders a single status line: cluster state, per-agent state
// dots, and aggregate token/cost. PlainStatus strips ANSI codes for
// non-TTY output.
type Footer struct {
	clusterID string
	state     models.ClusterState
	agents    []AgentRow
	tokens    int64
	costUSD   float64
	width     int

	runningStyle lipgloss.Style
	errorStyle   lipgloss.Style
	idleStyle    lipgloss.Style
	hintStyle    lipgloss.Style
}

// NewFooter creates a Footer. lipgloss detects the terminal's color
// profile on its own, so colors degrade to plain text automatically when
// stdout isn't a terminal.
func NewFooter() *Footer {
	return &Footer{
		runningStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("28")).Bold(true),
		errorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		idleStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		hintStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("236")),
	}
}

// SetWidth sets the footer's render width, for truncation on narrow
// terminals.
func (f *Footer) SetWidth(width int) { f.width = width }

// Update refreshes the footer's snapshot from a ClusterSummary and the
// current per-agent state/metrics.
func (f *Footer) Update(summary models.ClusterSummary, agents []AgentRow) {
	f.clusterID = summary.ID
	f.state = summary.State
	f.tokens = summary.TokensUsed
	f.costUSD = summary.CostUSD
	f.agents = agents
}

// View renders the current footer line.
func (f *Footer) View() string {
	var b strings.Builder

	stateLabel := string(f.state)
	switch f.state {
	case models.ClusterRunning:
		b.WriteString(f.runningStyle.Render(stateLabel))
	case models.ClusterError:
		b.WriteString(f.errorStyle.Render(stateLabel))
	default:
		b.WriteString(f.idleStyle.Render(stateLabel))
	}

	if len(f.agents) > 0 {
		b.WriteString(f.hintStyle.Render(" │ "))
		dots := make([]string, 0, len(f.agents))
		for _, a := range f.agents {
			dots = append(dots, f.agentDot(a))
		}
		b.WriteString(strings.Join(dots, " "))
	}

	b.WriteString(f.hintStyle.Render(fmt.Sprintf(" │ %d tok $%.4f", f.tokens, f.costUSD)))

	line := b.String()
	if f.width > 0 && len(stripANSI(line)) > f.width {
		return truncateVisible(line, f.width)
	}
	return line
}

func (f *Footer) agentDot(a AgentRow) string {
	label := fmt.Sprintf("%s:%s", a.ID, a.State)
	if a.Sample.PID != 0 {
		label += fmt.Sprintf("(%.0f%% cpu, %dMB)", a.Sample.CPUPercent, a.Sample.RSSBytes/(1<<20))
	}
	switch a.State {
	case models.AgentExecuting, models.AgentBuildingContext, models.AgentEvaluating:
		return f.runningStyle.Render(label)
	case models.AgentError:
		return f.errorStyle.Render(label)
	default:
		return f.idleStyle.Render(label)
	}
}

// stripANSI is a crude visible-length helper; the footer never nests escape
// sequences deep enough to need a real parser.
func stripANSI(s string) string {
	if !strings.ContainsRune(s, '\x1b') {
		return s
	}
	var out strings.Builder
	inEscape := false
	for _, r := range s {
		if r == '\x1b' {
			inEscape = true
			continue
		}
		if inEscape {
			if r == 'm' {
				inEscape = false
			}
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}

func truncateVisible(s string, width int) string {
	visible := stripANSI(s)
	if len(visible) <= width {
		return s
	}
	if width <= 3 {
		return visible[:width]
	}
	return visible[:width-3] + "..."
}

// PlainStatus renders a colorless one-liner, for logging or non-TTY output.
func PlainStatus(summary models.ClusterSummary, agents []AgentRow) string {
	f := NewFooter()
	f.Update(summary, agents)
	return stripANSI(f.View())
}
