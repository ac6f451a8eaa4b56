package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/loopforge/conveyor/internal/logging"
	"github.com/loopforge/conveyor/pkg/config"
	"github.com/loopforge/conveyor/pkg/domain"
	"github.com/loopforge/conveyor/pkg/ports"
)

// Collaborators bundles the external tools the engine drives. Every field
// is required except Credentials, which may be nil when no publish stage is
// declared.
type Collaborators struct {
	Toolchain   ports.Toolchain
	Installer   ports.DependencyInstaller
	Checker     ports.StaticChecker
	Builder     ports.Builder
	Decider     ports.ReleaseDecider
	Packager    ports.Packager
	Uploader    ports.Uploader
	Credentials ports.CredentialResolver
}

// Engine executes a validated pipeline declaration for one trigger.
//
// Scheduling model: every stage runs in its own goroutine and blocks only
// on the completion of the stages it requires. Matrixed stages fan out one
// goroutine per execution context with fail-fast disabled: a context
// failure never cancels siblings, it only fails the stage after all
// contexts finish.
type Engine struct {
	pipeline *config.Pipeline
	collab   Collaborators
	hooks    domain.RunHooks
	logger   *slog.Logger
	now      func() time.Time
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithHooks registers observability callbacks.
func WithHooks(hooks domain.RunHooks) EngineOption {
	return func(e *Engine) { e.hooks = hooks }
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine validates the pipeline and wires the collaborators. A
// declaration fault (e.g. an operating system with no upload target) is
// rejected here, before anything executes.
func NewEngine(p *config.Pipeline, c Collaborators, opts ...EngineOption) (*Engine, error) {
	if p == nil {
		return nil, fmt.Errorf("nil pipeline")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		pipeline: p,
		collab:   c,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// stageOutcome couples a stage result with a latch dependents block on.
type stageOutcome struct {
	done   chan struct{}
	result domain.StageResult
}

// Run executes the pipeline for the trigger and returns the run summary.
// The returned error is non-nil only for infrastructure faults; a failed
// stage is reported through RunSummary.Success, mirroring how a host
// platform separates "pipeline ran and failed" from "pipeline could not
// run".
func (e *Engine) Run(ctx context.Context, trigger domain.Trigger) (*domain.RunSummary, error) {
	if !trigger.OnTrunk(e.pipeline.Trunk) {
		return nil, fmt.Errorf("trigger on branch %q ignored: only %q starts a run", trigger.Branch, e.pipeline.Trunk)
	}

	started := e.now()
	runID := fmt.Sprintf("%s-%s", started.UTC().Format("20060102T150405Z"), shortCommit(trigger.Commit))
	log := e.logger.With("run", runID, "commit", trigger.Commit)
	log.Info("run started", "trunk", trigger.Branch)

	outcomes := make(map[string]*stageOutcome, len(e.pipeline.Stages))
	for _, s := range e.pipeline.Stages {
		outcomes[s.Name] = &stageOutcome{done: make(chan struct{})}
	}

	var wg sync.WaitGroup
	for _, s := range e.pipeline.Stages {
		s := s
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := outcomes[s.Name]
			out.result = e.runStage(ctx, runID, s, trigger, outcomes)
			close(out.done)
		}()
	}
	wg.Wait()

	summary := &domain.RunSummary{
		ID:        runID,
		Trigger:   trigger,
		StartedAt: started,
	}
	success := true
	for _, s := range e.pipeline.Stages {
		res := outcomes[s.Name].result
		summary.Stages = append(summary.Stages, res)
		if res.Failed() {
			success = false
		}
		// A stage that never ran because its dependency failed does not
		// add a failure of its own; the dependency already recorded one.
	}
	summary.Success = success
	summary.FinishedAt = e.now()

	log.Info("run finished", "success", success, "duration", summary.FinishedAt.Sub(started))
	return summary, nil
}

// runStage blocks on the stage's dependencies, then dispatches by kind.
func (e *Engine) runStage(ctx context.Context, runID string, s config.StageConfig, trigger domain.Trigger, outcomes map[string]*stageOutcome) domain.StageResult {
	requires := append([]string(nil), s.Requires...)
	if s.Kind == domain.KindPublish && e.pipeline.RequireVerification {
		requires = append(requires, e.verificationStages()...)
	}

	inputs := domain.Outputs{}
	for _, dep := range dedupe(requires) {
		out := outcomes[dep]
		select {
		case <-out.done:
		case <-ctx.Done():
			return domain.StageResult{Name: s.Name, Kind: s.Kind, Status: domain.StageSkipped, Err: ctx.Err().Error()}
		}
		if out.result.Failed() || out.result.Status == domain.StageSkipped {
			return domain.StageResult{
				Name:   s.Name,
				Kind:   s.Kind,
				Status: domain.StageSkipped,
				Err:    fmt.Sprintf("dependency %q did not succeed", dep),
			}
		}
		// Outputs flow by value to the dependent stage; no reference is
		// shared once the dependent's contexts spawn.
		for k, v := range out.result.Outputs.Clone() {
			inputs[k] = v
		}
	}

	e.emitStageStart(ctx, runID, s)
	begin := e.now()

	var res domain.StageResult
	switch s.Kind {
	case domain.KindVerification:
		res = e.runVerification(ctx, runID, s)
	case domain.KindRelease:
		res = e.runRelease(ctx, runID, s, trigger)
	case domain.KindPublish:
		res = e.runPublish(ctx, runID, s, inputs)
	default:
		// Unreachable after Validate; kept for defense against hand-built
		// configs.
		res = domain.StageResult{Name: s.Name, Kind: s.Kind, Status: domain.StageFailed, Err: fmt.Sprintf("unknown stage kind %q", s.Kind)}
	}

	e.emitStageFinish(ctx, runID, s, res, e.now().Sub(begin))
	return res
}

// axesFor resolves the stage's declared axis bindings in declaration order.
func (e *Engine) axesFor(s config.StageConfig) []domain.MatrixAxis {
	axes := make([]domain.MatrixAxis, 0, len(s.Matrix))
	for _, name := range s.Matrix {
		if a := e.pipeline.Axis(name); a != nil {
			axes = append(axes, *a)
		}
	}
	return axes
}

func (e *Engine) verificationStages() []string {
	var names []string
	for _, s := range e.pipeline.Stages {
		if s.Kind == domain.KindVerification {
			names = append(names, s.Name)
		}
	}
	return names
}

func (e *Engine) emitStageStart(ctx context.Context, runID string, s config.StageConfig) {
	e.logger.Debug("stage started", "run", runID, "stage", s.Name)
	if e.hooks.OnStageStart != nil {
		e.hooks.OnStageStart(ctx, &domain.StageEvent{
			EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventStageStart, RunID: runID},
			Stage:     s.Name,
			Kind:      s.Kind,
		})
	}
}

func (e *Engine) emitStageFinish(ctx context.Context, runID string, s config.StageConfig, res domain.StageResult, d time.Duration) {
	e.logger.Info("stage finished", "run", runID, "stage", s.Name, "status", res.Status, "duration", d)
	if e.hooks.OnStageFinish != nil {
		e.hooks.OnStageFinish(ctx, &domain.StageEvent{
			EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventStageFinish, RunID: runID},
			Stage:     s.Name,
			Kind:      s.Kind,
			Failed:    res.Failed(),
			Duration:  d,
		})
	}
}

func (e *Engine) emitContextFinish(ctx context.Context, runID, stage string, cr domain.ContextResult) {
	e.logger.Debug("context finished", "run", runID, "stage", stage, "context", cr.Context.Label(), "status", cr.Status, "err", cr.Err)
	if e.hooks.OnContextFinish != nil {
		e.hooks.OnContextFinish(ctx, &domain.ContextEvent{
			EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventContextFinish, RunID: runID},
			Stage:     stage,
			Context:   cr.Context,
			Status:    cr.Status,
			Err:       cr.Err,
		})
	}
}

func shortCommit(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func dedupe(list []string) []string {
	seen := make(map[string]bool, len(list))
	var out []string
	for _, s := range list {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
