package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/daresTheDevil/zeroshot/internal/bus"
	"github.com/daresTheDevil/zeroshot/internal/config"
	execpkg "github.com/daresTheDevil/zeroshot/internal/exec"
	"github.com/daresTheDevil/zeroshot/internal/isolation"
	"github.com/daresTheDevil/zeroshot/internal/provider"
	"github.com/daresTheDevil/zeroshot/internal/runtime"
	"github.com/daresTheDevil/zeroshot/internal/state"
	"github.com/daresTheDevil/zeroshot/internal/zserrors"
	"github.com/daresTheDevil/zeroshot/pkg/models"
)

// StartOptions selects isolation and tuning knobs for one cluster (spec.md
// §4.4 "start(config, seed, options)").
type StartOptions struct {
	Worktree       bool
	Docker         bool
	RepoRoot       string
	ContainerImage string
	MaxRetries     int
}

// SeedEvent is the first bus event a cluster publishes to itself, kicking
// off trigger evaluation on every agent.
type SeedEvent struct {
	Topic   string
	Payload map[string]any
}

// Supervisor is the Orchestrator Supervisor (spec.md §4.4): the cluster
// registry plus start/stop/kill/killAll/getCluster and the CLUSTER_STOP
// shutdown detector. Grounded on the teacher's Orchestrator (registry map +
// mutex + waitgroup pattern), generalized from a single in-process run to a
// multi-cluster registry.
type Supervisor struct {
	bus       *bus.Bus
	isolation *isolation.Manager
	settings  *config.Settings
	mirror    *bus.Mirror
	mirrorDB  *state.DB

	mu       sync.Mutex
	clusters map[string]*cluster
	emitter  *EventEmitter
	detector *shutdownDetector
}

// NewSupervisor wires a Supervisor from ambient settings, constructing its
// own bus, isolation manager, and ledger mirror (spec.md §9: "provider
// registry owned by the Supervisor, instantiated at start" generalizes to
// isolation/bus/mirror too). The mirror is best-effort observability only
// (spec.md §1 non-goal on cross-restart persistence): a failure to open it
// disables mirroring but never fails Supervisor construction.
func NewSupervisor(settings *config.Settings) (*Supervisor, error) {
	im, err := isolation.NewManager()
	if err != nil {
		return nil, fmt.Errorf("constructing isolation manager: %w", err)
	}
	b := bus.New()
	s := &Supervisor{
		bus:       b,
		isolation: im,
		settings:  settings,
		clusters:  make(map[string]*cluster),
		emitter:   NewEventEmitter(64),
	}
	if db, err := state.OpenGlobal(); err == nil {
		if err := db.Migrate(); err == nil {
			s.mirrorDB = db
			s.mirror = bus.NewMirror(db)
		} else {
			db.Close()
		}
	}
	s.detector = newShutdownDetector(b, s.handleClusterStop)
	return s, nil
}

// Close releases the Supervisor's own resources (currently just the ledger
// mirror database). It does not touch any running cluster.
func (s *Supervisor) Close() error {
	if s.mirrorDB != nil {
		return s.mirrorDB.Close()
	}
	return nil
}

func (s *Supervisor) recordCluster(summary models.ClusterSummary) {
	if s.mirror == nil {
		return
	}
	_ = s.mirror.RecordCluster(summary)
}

// Events exposes the Supervisor's lifecycle event stream (for a TUI footer
// or headless log sink; spec.md §9 notes the footer "may be omitted
// entirely").
func (s *Supervisor) Events() <-chan Event { return s.emitter.Events() }

// Start allocates a clusterId, provisions isolation, constructs one
// runtime.Agent per configured agent, publishes the seed event, and
// transitions the cluster to running.
func (s *Supervisor) Start(ctx context.Context, cfg config.ClusterConfig, seed SeedEvent, opts StartOptions) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", zserrors.ErrConfigInvalid, err)
	}

	providerCfg, _ := cfg.ProviderByName(cfg.Provider)
	specs := make([]provider.Spec, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		spec := provider.Spec{Name: p.Name, Binary: p.Binary, UseAPI: p.UseAPI}
		if p.UseAPI {
			spec.APIConfig = provider.APIClientConfig{
				APIKey:        s.settingsAPIKey(),
				UseAWSBedrock: s.settingsUseBedrock(),
				AWSRegion:     s.settingsAWSRegion(),
				AWSProfile:    s.settingsAWSProfile(),
			}
		}
		specs = append(specs, spec)
	}
	registry := provider.New(ctx, specs)
	if !providerCfg.UseAPI && !registry.Available(cfg.Provider) {
		return "", fmt.Errorf("%w: %s", zserrors.ErrProviderUnavailable, cfg.Provider)
	}

	id := uuid.NewString()

	isoOpts := isolation.Options{Worktree: opts.Worktree, Docker: opts.Docker, RepoRoot: opts.RepoRoot, WorkDir: opts.RepoRoot, Image: opts.ContainerImage}
	var isoRecord models.IsolationRecord
	if opts.Worktree || opts.Docker {
		rec, err := s.isolation.Provision(ctx, id, isoOpts)
		if err != nil {
			return "", fmt.Errorf("%w: %v", zserrors.ErrIsolationFailed, err)
		}
		isoRecord = rec
	} else {
		isoRecord = models.IsolationRecord{Kind: models.IsolationNone}
	}

	workDir := opts.RepoRoot
	if isoRecord.Kind == models.IsolationWorktree {
		workDir = isoRecord.WorktreePath
	} else if isoRecord.Kind == models.IsolationContainer {
		workDir = isoRecord.WorkDir
	}

	c := newCluster(id, s.bus, isoRecord, cfg)

	retryMax := opts.MaxRetries
	if retryMax <= 0 {
		retryMax = 3
	}
	timeouts := runtime.NewTimeoutManager()
	c.startAgents(registry, providerCfg, cfg.Provider, workDir, retryMax, timeouts)

	s.mu.Lock()
	s.clusters[id] = c
	s.mu.Unlock()
	s.detector.Watch(id)
	if s.mirror != nil {
		c.mirrorUnsub = s.mirror.Attach(s.bus, id)
	}

	seedTopic := seed.Topic
	if seedTopic == "" {
		seedTopic = cfg.SeedTopic
	}
	if seedTopic == "" {
		seedTopic = models.TopicIssueOpened
	}
	payload := seed.Payload
	if payload == nil {
		payload = cfg.SeedPayload
	}

	s.emitter.Emit(Event{Type: EventClusterStarting, ClusterID: id, Timestamp: time.Now()})
	s.recordCluster(c.summary())
	c.setState(models.ClusterRunning)
	s.bus.Publish(bus.PublishInput{ClusterID: id, Topic: seedTopic, Publisher: models.PublisherOrchestrator, Payload: payload})
	s.emitter.Emit(Event{Type: EventClusterRunning, ClusterID: id, Timestamp: time.Now()})
	s.recordCluster(c.summary())

	return id, nil
}

// Stop requests graceful shutdown of clusterId: agents finish their current
// invocation (bounded by the configured grace period) then isolation is torn
// down.
func (s *Supervisor) Stop(ctx context.Context, clusterID string) error {
	c, ok := s.getClusterInternal(clusterID)
	if !ok {
		return fmt.Errorf("%w: %s", zserrors.ErrClusterNotFound, clusterID)
	}
	return s.stopCluster(ctx, c, s.gracePeriod())
}

func (s *Supervisor) stopCluster(ctx context.Context, c *cluster, grace time.Duration) error {
	c.stopOnce.Do(func() {
		c.setState(models.ClusterStopping)
		s.emitter.Emit(Event{Type: EventClusterStopping, ClusterID: c.id, Timestamp: time.Now()})

		done := make(chan struct{})
		go func() {
			c.stopAgents()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(grace):
		}

		if err := s.isolation.Cleanup(ctx, c.id); err != nil {
			c.setState(models.ClusterError)
			s.emitter.Emit(Event{Type: EventClusterError, ClusterID: c.id, Message: err.Error(), Timestamp: time.Now()})
		} else {
			c.setState(models.ClusterStopped)
			s.emitter.Emit(Event{Type: EventClusterStopped, ClusterID: c.id, Timestamp: time.Now()})
		}
		s.recordCluster(c.summary())
		if c.mirrorUnsub != nil {
			c.mirrorUnsub()
		}
		s.bus.Drop(c.id)
		s.detector.Forget(c.id)
		close(c.stopped)
	})
	return nil
}

// Kill immediately signals every agent's child process group, tears down
// isolation without waiting, and marks the cluster stopped. Idempotent.
func (s *Supervisor) Kill(ctx context.Context, clusterID string) error {
	c, ok := s.getClusterInternal(clusterID)
	if !ok {
		return fmt.Errorf("%w: %s", zserrors.ErrClusterNotFound, clusterID)
	}
	c.stopOnce.Do(func() {
		c.setState(models.ClusterStopping)
		for _, a := range c.agents {
			a.MarkKilled()
			if pid := a.Snapshot().PID; pid > 0 {
				_ = execpkg.KillProcessGroup(pid, syscall.SIGKILL)
			}
			a.Stop()
		}
		if err := s.isolation.Cleanup(ctx, c.id); err != nil {
			c.setState(models.ClusterError)
			s.emitter.Emit(Event{Type: EventClusterError, ClusterID: c.id, Message: err.Error(), Timestamp: time.Now()})
		} else {
			c.setState(models.ClusterStopped)
			s.emitter.Emit(Event{Type: EventClusterStopped, ClusterID: c.id, Timestamp: time.Now()})
		}
		s.recordCluster(c.summary())
		if c.mirrorUnsub != nil {
			c.mirrorUnsub()
		}
		s.bus.Drop(c.id)
		s.detector.Forget(c.id)
		close(c.stopped)
	})
	return nil
}

// KillAll kills every registered cluster.
func (s *Supervisor) KillAll(ctx context.Context) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.clusters))
	for id := range s.clusters {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		_ = s.Kill(ctx, id)
	}
}

// GetCluster returns a read-only summary of clusterId, or false if unknown.
func (s *Supervisor) GetCluster(clusterID string) (models.ClusterSummary, bool) {
	c, ok := s.getClusterInternal(clusterID)
	if !ok {
		return models.ClusterSummary{}, false
	}
	return c.summary(), true
}

func (s *Supervisor) getClusterInternal(clusterID string) (*cluster, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clusters[clusterID]
	return c, ok
}

// handleClusterStop is invoked by the shutdown detector on the first
// CLUSTER_STOP event for a cluster (spec.md §4.4).
func (s *Supervisor) handleClusterStop(clusterID string) {
	c, ok := s.getClusterInternal(clusterID)
	if !ok {
		return
	}
	go func() {
		_ = s.stopCluster(context.Background(), c, s.gracePeriod())
	}()
}

func (s *Supervisor) gracePeriod() time.Duration {
	if s.settings != nil && s.settings.Stop.GracePeriod > 0 {
		return s.settings.Stop.GracePeriod
	}
	return 5 * time.Second
}

func (s *Supervisor) settingsAPIKey() string {
	if s.settings == nil {
		return ""
	}
	return s.settings.Anthropic.APIKey
}

func (s *Supervisor) settingsUseBedrock() bool {
	return s.settings != nil && s.settings.Anthropic.UseAWSBedrock
}

func (s *Supervisor) settingsAWSRegion() string {
	if s.settings == nil {
		return ""
	}
	return s.settings.Anthropic.AWSRegion
}

func (s *Supervisor) settingsAWSProfile() string {
	if s.settings == nil {
		return ""
	}
	return s.settings.Anthropic.AWSProfile
}
