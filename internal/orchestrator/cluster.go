package orchestrator

import (
	"sync"
	"time"

	"github.com/daresTheDevil/zeroshot/internal/bus"
	"github.com/daresTheDevil/zeroshot/internal/config"
	"github.com/daresTheDevil/zeroshot/internal/provider"
	"github.com/daresTheDevil/zeroshot/internal/runtime"
	"github.com/daresTheDevil/zeroshot/pkg/models"
)

// cluster is the Supervisor's private record for one running cluster: the
// bus, the isolation record, and one runtime.Agent per configured agent
// (spec.md §3's Cluster combines "a Message Bus, an Isolation record, and a
// set of Agent Runtimes").
type cluster struct {
	id        string
	bus       *bus.Bus
	isolation models.IsolationRecord
	agents    map[string]*runtime.Agent
	config    config.ClusterConfig

	mu          sync.Mutex
	state       models.ClusterState
	createdAt   time.Time
	stopOnce    sync.Once
	stopped     chan struct{}
	mirrorUnsub bus.Unsubscribe
}

func newCluster(id string, b *bus.Bus, iso models.IsolationRecord, cfg config.ClusterConfig) *cluster {
	return &cluster{
		id:        id,
		bus:       b,
		isolation: iso,
		agents:    make(map[string]*runtime.Agent),
		config:    cfg,
		state:     models.ClusterInitializing,
		createdAt: time.Now(),
		stopped:   make(chan struct{}),
	}
}

func (c *cluster) setState(s models.ClusterState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// summary builds the caller-facing ClusterSummary, aggregating token/cost
// totals across every agent snapshot.
func (c *cluster) summary() models.ClusterSummary {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	ids := make([]string, 0, len(c.agents))
	var tokens int64
	var cost float64
	for id, a := range c.agents {
		ids = append(ids, id)
		snap := a.Snapshot()
		tokens += snap.TokensUsed
		cost += snap.CostUSD
	}

	return models.ClusterSummary{
		ID:         c.id,
		State:      state,
		CreatedAt:  c.createdAt,
		Isolation:  c.isolation,
		AgentIDs:   ids,
		LastSeq:    c.bus.LastSeq(c.id),
		TokensUsed: tokens,
		CostUSD:    cost,
	}
}

// startAgents constructs and starts one runtime.Agent per configured agent
// definition, wiring each to the shared bus and the cluster's isolation
// working directory.
func (c *cluster) startAgents(providers *provider.Registry, resolver runtime.ModelResolver, providerName string, workDir string, retryMax int, timeouts *runtime.TimeoutManager) {
	for _, agentCfg := range c.config.Agents {
		retry := runtime.NewRetryPolicy(retryMax)
		a := runtime.NewAgent(agentCfg, c.id, c.bus, workDir, providers, providerName, resolver, retry, timeouts)
		c.agents[agentCfg.ID] = a
		a.Start()
	}
}

// stopAgents stops every agent runtime, blocking until each has finished
// its current invocation and reached AgentStopped.
func (c *cluster) stopAgents() {
	var wg sync.WaitGroup
	for _, a := range c.agents {
		wg.Add(1)
		go func(a *runtime.Agent) {
			defer wg.Done()
			a.Stop()
		}(a)
	}
	wg.Wait()
}
