package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/daresTheDevil/zeroshot/internal/metrics"
	"github.com/daresTheDevil/zeroshot/pkg/models"
)

func TestFooterViewIncludesClusterStateAndAgents(t *testing.T) {
	f := NewFooter()
	f.Update(models.ClusterSummary{
		ID:         "c1",
		State:      models.ClusterRunning,
		TokensUsed: 1200,
		CostUSD:    0.045,
	}, []AgentRow{
		{ID: "worker", State: models.AgentExecuting, Sample: metrics.Sample{PID: 42, CPUPercent: 12.5, RSSBytes: 64 << 20}},
	})

	view := stripANSI(f.View())
	if !strings.Contains(view, "running") {
		t.Errorf("View() = %q, want cluster state substring", view)
	}
	if !strings.Contains(view, "worker:executing") {
		t.Errorf("View() = %q, want agent state substring", view)
	}
	if !strings.Contains(view, "1200 tok") {
		t.Errorf("View() = %q, want token count", view)
	}
}

func TestFooterTruncatesToWidth(t *testing.T) {
	f := NewFooter()
	f.SetWidth(10)
	f.Update(models.ClusterSummary{ID: "c1", State: models.ClusterRunning}, []AgentRow{
		{ID: "a-very-long-agent-name", State: models.AgentIdle},
	})

	view := f.View()
	if len(stripANSI(view)) > 10 {
		t.Errorf("View() length %d, want <= 10", len(stripANSI(view)))
	}
}

func TestPlainStatusHasNoEscapeSequences(t *testing.T) {
	out := PlainStatus(models.ClusterSummary{ID: "c1", State: models.ClusterStopped}, nil)
	if strings.ContainsRune(out, '\x1b') {
		t.Errorf("PlainStatus() = %q, want no ANSI escapes", out)
	}
}

func TestFooterAgentDotReflectsErrorState(t *testing.T) {
	f := NewFooter()
	dot := stripANSI(f.agentDot(AgentRow{ID: "worker", State: models.AgentError, Sample: metrics.Sample{Timestamp: time.Now()}}))
	if !strings.Contains(dot, "worker:error") {
		t.Errorf("agentDot() = %q, want worker:error substring", dot)
	}
}
