package runtime

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/daresTheDevil/zeroshot/internal/bus"
	"github.com/daresTheDevil/zeroshot/internal/provider"
	"github.com/daresTheDevil/zeroshot/internal/zserrors"
	"github.com/daresTheDevil/zeroshot/pkg/models"
)

// validTransitions is the state adjacency table from spec.md §4.3's
// transition table, grounded on the teacher's agent.go validTransitions
// map[AgentStatus]map[AgentStatus]bool / CanTransition pattern.
var validTransitions = map[models.AgentState]map[models.AgentState]bool{
	models.AgentIdle: {
		models.AgentEvaluating: true,
		models.AgentStopped:    true,
	},
	models.AgentEvaluating: {
		models.AgentBuildingContext: true,
		models.AgentIdle:            true,
		models.AgentStopped:         true,
	},
	models.AgentBuildingContext: {
		models.AgentExecuting: true,
		models.AgentStopped:   true,
	},
	models.AgentExecuting: {
		models.AgentIdle:    true,
		models.AgentError:   true,
		models.AgentStopped: true,
	},
	models.AgentError: {
		models.AgentIdle:    true,
		models.AgentStopped: true,
	},
	models.AgentStopped: {},
}

// CanTransition reports whether from -> to is a legal state transition.
func CanTransition(from, to models.AgentState) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// LifecycleEvent is emitted on every state transition, for the status
// footer and tests to observe.
type LifecycleEvent struct {
	AgentID   string
	From      models.AgentState
	To        models.AgentState
	Timestamp time.Time
	Err       string
}

// LifecycleHandler receives LifecycleEvents; invoked outside the agent's
// lock, matching the teacher's emit() convention of copying the handler
// slice under a read lock before calling out.
type LifecycleHandler func(LifecycleEvent)

// ModelResolver resolves an agent's abstract Level/Effort to a concrete
// provider model id, per spec.md §6's per-provider mapping table. Backed by
// the cluster's loaded provider configuration.
type ModelResolver interface {
	ResolveModel(level models.Level, effort models.ReasoningEffort) (resolvedModel string, effectiveEffort models.ReasoningEffort)
}

// Agent drives one configured agent's state machine (spec.md §4.3). It
// consumes bus events serially off its own queue, so no two provider
// invocations for the same agent ever overlap, matching spec.md §5's
// requirement that "an agent's own state transitions are serialized."
type Agent struct {
	cfg       models.AgentConfig
	clusterID string
	bus       *bus.Bus
	workDir   string
	providers *provider.Registry
	provName  string
	models    ModelResolver
	retry     *RetryPolicy
	timeouts  *TimeoutManager

	mu         sync.Mutex
	state      models.AgentState
	cursor     int64
	iteration  int
	pid        int
	lastErr    string
	tokensUsed int64
	costUSD    float64

	handlersMu sync.RWMutex
	handlers   []LifecycleHandler

	incoming chan models.Message
	unsub    bus.Unsubscribe
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once

	// killed is set by MarkKilled before the caller signals the process
	// group, so an in-flight execute() can tell a forced external kill
	// apart from a timeout or an ordinary provider failure (spec.md §4.3:
	// "executing | external cancel | stopped").
	killed atomic.Bool

	activeMu  sync.Mutex
	activeCLI *provider.CLI
}

// NewAgent constructs an Agent wired to b, not yet subscribed or running.
// Call Start to begin consuming events.
func NewAgent(cfg models.AgentConfig, clusterID string, b *bus.Bus, workDir string, providers *provider.Registry, providerName string, resolver ModelResolver, retry *RetryPolicy, timeouts *TimeoutManager) *Agent {
	return &Agent{
		cfg:       cfg,
		clusterID: clusterID,
		bus:       b,
		workDir:   workDir,
		providers: providers,
		provName:  providerName,
		models:    resolver,
		retry:     retry,
		timeouts:  timeouts,
		state:     models.AgentIdle,
		incoming:  make(chan models.Message, 64),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// OnEvent registers a lifecycle handler.
func (a *Agent) OnEvent(h LifecycleHandler) {
	a.handlersMu.Lock()
	defer a.handlersMu.Unlock()
	a.handlers = append(a.handlers, h)
}

func (a *Agent) emit(from, to models.AgentState, errMsg string) {
	a.handlersMu.RLock()
	handlers := make([]LifecycleHandler, len(a.handlers))
	copy(handlers, a.handlers)
	a.handlersMu.RUnlock()

	evt := LifecycleEvent{AgentID: a.cfg.ID, From: from, To: to, Timestamp: time.Now(), Err: errMsg}
	for _, h := range handlers {
		h(evt)
	}
}

// setState performs a validated transition, recording lastErr and publishing
// an AGENT_ERROR event when moving into AgentError, and notifies lifecycle
// handlers.
func (a *Agent) setState(to models.AgentState, errMsg string) error {
	a.mu.Lock()
	from := a.state
	if !CanTransition(from, to) {
		a.mu.Unlock()
		return fmt.Errorf("%w: agent %s cannot move %s -> %s", zserrors.ErrValidation, a.cfg.ID, from, to)
	}
	a.state = to
	if to == models.AgentError {
		a.lastErr = errMsg
	}
	a.mu.Unlock()

	a.emit(from, to, errMsg)
	if to == models.AgentError {
		a.bus.Publish(bus.PublishInput{
			ClusterID: a.clusterID,
			Topic:     models.TopicAgentError,
			Publisher: a.cfg.ID,
			Payload:   map[string]any{"error": errMsg},
		})
	}
	return nil
}

// Snapshot returns a read-only view of the agent's current runtime state.
func (a *Agent) Snapshot() models.AgentSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return models.AgentSnapshot{
		ID:         a.cfg.ID,
		State:      a.state,
		Cursor:     a.cursor,
		Iteration:  a.iteration,
		PID:        a.pid,
		LastError:  a.lastErr,
		TokensUsed: a.tokensUsed,
		CostUSD:    a.costUSD,
	}
}

// Start subscribes the agent to every topic on the bus and begins its
// processing loop. Filtering to only the topics this agent's triggers
// actually name would be a valid optimization, but the trigger evaluation
// contract needs to see cursor gaps precisely, so subscribing to
// everything and filtering in evaluate keeps the cursor math in one place.
func (a *Agent) Start() {
	a.unsub = a.bus.Subscribe(a.clusterID, bus.Filter{}, func(m models.Message) {
		select {
		case a.incoming <- m:
		case <-a.stopCh:
		}
	})
	go a.run()
}

// Stop requests the agent's processing loop to exit and blocks until it has.
// The loop checks for the request between batches, so an invocation already
// in flight runs to completion first; Stop does not signal its subprocess.
// Safe to call more than once.
func (a *Agent) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopCh)
	})
	<-a.doneCh
}

// MarkKilled flags this agent as externally killed. Call before signaling
// its child process group and before Stop, so an execute() in flight at the
// time reports AgentStopped once the signaled subprocess exits, instead of
// misreading the resulting exec error as a provider failure (spec.md §4.3
// "executing | external cancel | stopped", §5: no onError for this kind).
func (a *Agent) MarkKilled() {
	a.killed.Store(true)
}

func (a *Agent) run() {
	defer close(a.doneCh)
	defer func() {
		if a.unsub != nil {
			a.unsub()
		}
	}()
	defer a.timeouts.Stop(a.cfg.ID)

	for {
		select {
		case <-a.stopCh:
			a.killActive()
			a.setState(models.AgentStopped, "")
			return
		case msg, ok := <-a.incoming:
			if !ok {
				return
			}
			batch := []models.Message{msg}
		drain:
			for {
				select {
				case m2 := <-a.incoming:
					batch = append(batch, m2)
				default:
					break drain
				}
			}
			a.processBatch(batch)
		}
	}
}

func (a *Agent) killActive() {
	a.activeMu.Lock()
	defer a.activeMu.Unlock()
	if a.activeCLI != nil {
		a.activeCLI.Kill()
	}
}

// processBatch runs one evaluating pass over events, advancing the cursor
// to the highest sequence seen regardless of whether a trigger fired
// (spec.md §4.3).
func (a *Agent) processBatch(events []models.Message) {
	a.mu.Lock()
	cursorBefore := a.cursor
	a.mu.Unlock()

	fresh := make([]models.Message, 0, len(events))
	for _, e := range events {
		if e.Seq > cursorBefore {
			fresh = append(fresh, e)
		}
	}
	if len(fresh) == 0 {
		return
	}

	if err := a.setState(models.AgentEvaluating, ""); err != nil {
		return
	}

	trig, evt, matched := evaluate(a.cfg.Triggers, fresh)
	newCursor := highestSeq(cursorBefore, fresh)

	if !matched {
		a.mu.Lock()
		a.cursor = newCursor
		a.mu.Unlock()
		a.setState(models.AgentIdle, "")
		return
	}

	switch trig.Action.Kind {
	case models.ActionExecuteTask:
		a.setState(models.AgentBuildingContext, "")
		prompt := BuildPrompt(a.cfg, evt)
		a.mu.Lock()
		a.cursor = newCursor
		a.iteration++
		a.mu.Unlock()
		a.setState(models.AgentExecuting, "")
		a.execute(prompt)
	default:
		runAction(a.bus, a.clusterID, a.cfg.ID, &trig.Action)
		a.mu.Lock()
		a.cursor = newCursor
		a.mu.Unlock()
		a.setState(models.AgentIdle, "")
	}
}

// execute runs the provider invocation for prompt, arms the timeout, waits
// for the result, and drives the resulting hook + transition.
//
// Two distinct signals can cancel ctx and must be told apart on return
// (spec.md §4.3's transition table has separate rows for them): the
// TimeoutManager firing (an execution error: onError runs, AgentTimeout is
// the cause) versus an external Kill (no result event, no onError, straight
// to stopped). timedOut is a dedicated flag set by the timeout callback
// before it signals the subprocess and cancels ctx; a.killed is set by
// MarkKilled before Kill signals the subprocess, ahead of the exec error
// this produces. Checking both explicitly, in that order, means an ordinary
// ctx.Err() != nil is never used on its own to infer which happened.
func (a *Agent) execute(prompt string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var timedOut atomic.Bool
	if a.cfg.TimeoutMS > 0 {
		a.timeouts.Start(a.cfg.ID, time.Duration(a.cfg.TimeoutMS)*time.Millisecond, func() {
			timedOut.Store(true)
			a.killActive()
			cancel()
		})
		defer a.timeouts.Stop(a.cfg.ID)
	}

	resolvedModel, effort := a.models.ResolveModel(a.cfg.Level, a.cfg.Effort)
	useDirectAPI := a.cfg.UseDirectAPI || (a.cfg.Role == models.RoleOrchestrator && a.cfg.JSONSchema != nil)

	var (
		tokensIn, tokensOut int64
		execErr             error
	)

	if useDirectAPI {
		tokensIn, tokensOut, execErr = a.runDirectAPI(ctx, prompt)
	} else {
		tokensIn, tokensOut, execErr = a.runCLI(ctx, prompt, resolvedModel, effort)
	}

	a.mu.Lock()
	a.tokensUsed += tokensIn + tokensOut
	a.costUSD += float64(tokensIn)/1_000_000*3.0 + float64(tokensOut)/1_000_000*15.0
	a.mu.Unlock()

	switch {
	case timedOut.Load():
		a.setState(models.AgentError, fmt.Errorf("%w: exceeded %dms", zserrors.ErrAgentTimeout, a.cfg.TimeoutMS).Error())
		runAction(a.bus, a.clusterID, a.cfg.ID, a.cfg.Hooks.OnError)
		if a.retry.Allow(a.cfg.ID) {
			a.setState(models.AgentIdle, "")
		}
	case a.killed.Load():
		a.setState(models.AgentStopped, zserrors.ErrCancelled.Error())
	case execErr != nil:
		a.setState(models.AgentError, execErr.Error())
		runAction(a.bus, a.clusterID, a.cfg.ID, a.cfg.Hooks.OnError)
		if a.retry.Allow(a.cfg.ID) {
			a.setState(models.AgentIdle, "")
		}
	default:
		a.retry.Reset(a.cfg.ID)
		runAction(a.bus, a.clusterID, a.cfg.ID, a.cfg.Hooks.OnComplete)
		a.setState(models.AgentIdle, "")
	}
}

// runCLI spawns the configured provider's subprocess adapter and consumes
// its neutral event stream until it exits.
func (a *Agent) runCLI(ctx context.Context, prompt, resolvedModel string, effort models.ReasoningEffort) (int64, int64, error) {
	cli, err := a.providers.CLI(a.provName)
	if err != nil {
		return 0, 0, err
	}

	inv := provider.Invocation{
		Context:       prompt,
		Model:         models.ModelSpec{Level: a.cfg.Level, Effort: effort},
		ResolvedModel: resolvedModel,
		OutputFormat:  provider.OutputStreamJSON,
		JSONSchema:    a.cfg.JSONSchema,
		WorkDir:       a.workDir,
		AutoApprove:   true,
	}

	if err := cli.Start(ctx, inv); err != nil {
		return 0, 0, err
	}

	a.activeMu.Lock()
	a.activeCLI = cli
	a.activeMu.Unlock()
	a.mu.Lock()
	a.pid = cli.PID()
	a.mu.Unlock()

	var tokensIn, tokensOut int64
	var resultErr error
	for event := range cli.Output() {
		if event.Kind == provider.EventResult && event.Res != nil {
			tokensIn = event.Res.InputTokens
			tokensOut = event.Res.OutputTokens
			if !event.Res.Success {
				resultErr = fmt.Errorf("%w: %s", zserrors.ErrTransientProviderFailure, event.Res.Error)
			}
		}
	}

	waitErr := cli.Wait()

	a.activeMu.Lock()
	a.activeCLI = nil
	a.activeMu.Unlock()
	a.mu.Lock()
	a.pid = 0
	a.mu.Unlock()

	if ctx.Err() != nil {
		return tokensIn, tokensOut, nil
	}
	if waitErr != nil {
		return tokensIn, tokensOut, fmt.Errorf("%w: %v", zserrors.ErrTransientProviderFailure, waitErr)
	}
	return tokensIn, tokensOut, resultErr
}

// runDirectAPI bypasses subprocess spawn per spec.md §4.3's direct-API fast
// path, invoking the provider's API client and running the resilient
// JSON-extraction ladder when a schema was requested.
func (a *Agent) runDirectAPI(ctx context.Context, prompt string) (int64, int64, error) {
	client, err := a.providers.API(a.provName)
	if err != nil {
		return 0, 0, err
	}
	result, err := client.DirectInvoke(ctx, prompt, a.cfg.JSONSchema)
	if err != nil {
		return result.InputTokens, result.OutputTokens, err
	}
	return result.InputTokens, result.OutputTokens, nil
}
