// Package conveyor is the high-level entry point for the library. It wires
// the pipeline declaration to the default adapters (process collaborators,
// git release decider, env credentials) and runs the internal engine.
package conveyor

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/loopforge/conveyor/internal/logging"
	"github.com/loopforge/conveyor/internal/runtime"
	"github.com/loopforge/conveyor/pkg/adapters/memory"
	"github.com/loopforge/conveyor/pkg/adapters/process"
	"github.com/loopforge/conveyor/pkg/adapters/semrel"
	"github.com/loopforge/conveyor/pkg/config"
	"github.com/loopforge/conveyor/pkg/domain"
	"github.com/loopforge/conveyor/pkg/observability"
	"github.com/loopforge/conveyor/pkg/ports"
)

// Engine executes a pipeline declaration and records its run summaries.
type Engine struct {
	pipeline *config.Pipeline
	runtime  *runtime.Engine
	store    ports.RunStore
	metrics  *observability.Metrics
	logger   *slog.Logger
}

type settings struct {
	logger      *slog.Logger
	hooks       domain.RunHooks
	store       ports.RunStore
	metrics     *observability.Metrics
	workDir     string
	decider     ports.ReleaseDecider
	credentials ports.CredentialResolver
	collab      *runtime.Collaborators
}

// Option configures the engine.
type Option func(*settings)

// WithLogger sets a structured logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithHooks registers observability callbacks, chained after any metrics
// hooks.
func WithHooks(hooks domain.RunHooks) Option {
	return func(s *settings) { s.hooks = hooks }
}

// WithStore sets the run store. The default keeps summaries in memory.
func WithStore(store ports.RunStore) Option {
	return func(s *settings) { s.store = store }
}

// WithMetrics publishes run outcomes to the given metric set.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithWorkDir sets the parent directory for per-context scratch
// environments. The default is the system temp directory.
func WithWorkDir(dir string) Option {
	return func(s *settings) { s.workDir = dir }
}

// WithDecider overrides the release decider, bypassing the default git
// history reader.
func WithDecider(d ports.ReleaseDecider) Option {
	return func(s *settings) { s.decider = d }
}

// WithCredentialResolver overrides credential resolution. The default
// reads the process environment.
func WithCredentialResolver(r ports.CredentialResolver) Option {
	return func(s *settings) { s.credentials = r }
}

// WithCollaborators replaces the full collaborator set. Intended for
// embedding and tests; all other adapter options are ignored.
func WithCollaborators(c runtime.Collaborators) Option {
	return func(s *settings) { s.collab = &c }
}

// New wires an engine for the pipeline. repoPath is the working copy whose
// git history feeds the release decision; it may be empty when a custom
// decider or collaborator set is injected.
func New(pipeline *config.Pipeline, repoPath string, opts ...Option) (*Engine, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("nil pipeline")
	}

	s := &settings{workDir: os.TempDir()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.store == nil {
		s.store = memory.NewStore()
	}

	collab, err := s.collaborators(pipeline, repoPath)
	if err != nil {
		return nil, err
	}

	hooks := s.hooks
	if s.metrics != nil {
		hooks = observability.Merge(s.metrics.Hooks(), hooks)
	}

	rt, err := runtime.NewEngine(pipeline, collab,
		runtime.WithLogger(s.logger),
		runtime.WithHooks(hooks),
	)
	if err != nil {
		return nil, err
	}

	return &Engine{
		pipeline: pipeline,
		runtime:  rt,
		store:    s.store,
		metrics:  s.metrics,
		logger:   s.logger,
	}, nil
}

func (s *settings) collaborators(pipeline *config.Pipeline, repoPath string) (runtime.Collaborators, error) {
	if s.collab != nil {
		return *s.collab, nil
	}

	decider := s.decider
	if decider == nil {
		if repoPath == "" {
			return runtime.Collaborators{}, fmt.Errorf("repoPath is required when no custom decider is provided")
		}
		var deciderOpts []semrel.Option
		if release := releaseStage(pipeline); release != nil {
			var ro config.ReleaseOptions
			if err := config.DecodeWith(*release, &ro); err != nil {
				return runtime.Collaborators{}, err
			}
			if ro.TagPrefix != "" {
				deciderOpts = append(deciderOpts, semrel.WithTagPrefix(ro.TagPrefix))
			}
			if ro.InitialVersion != "" {
				deciderOpts = append(deciderOpts, semrel.WithInitialVersion(ro.InitialVersion))
			}
		}
		deciderOpts = append(deciderOpts, semrel.WithLogger(s.logger))
		decider = semrel.NewDecider(repoPath, deciderOpts...)
	}

	credentials := s.credentials
	if credentials == nil {
		credentials = process.EnvCredentialResolver{}
	}

	runner := process.NewRunner(pipeline.Commands, process.WithLogger(s.logger))
	return runtime.Collaborators{
		Toolchain:   process.NewToolchain(s.workDir, process.WithToolchainLogger(s.logger)),
		Installer:   runner,
		Checker:     runner,
		Builder:     runner,
		Decider:     decider,
		Packager:    runner,
		Uploader:    process.NewUploader(process.WithUploaderLogger(s.logger)),
		Credentials: credentials,
	}, nil
}

func releaseStage(p *config.Pipeline) *config.StageConfig {
	for i := range p.Stages {
		if p.Stages[i].Kind == domain.KindRelease {
			return &p.Stages[i]
		}
	}
	return nil
}

// Run executes the pipeline for one trigger, persists the summary and
// publishes metrics. The returned summary is non-nil whenever the run
// started; inspect Success for the outcome.
func (e *Engine) Run(ctx context.Context, trigger domain.Trigger) (*domain.RunSummary, error) {
	summary, err := e.runtime.Run(ctx, trigger)
	if err != nil {
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.ObserveRun(summary)
	}
	if saveErr := e.store.Save(ctx, summary); saveErr != nil {
		e.logger.Error("persisting run summary", "run", summary.ID, "error", saveErr)
	}
	return summary, nil
}

// Pipeline returns the declaration the engine was built from.
func (e *Engine) Pipeline() *config.Pipeline {
	return e.pipeline
}

// Store returns the run store, for serving run history.
func (e *Engine) Store() ports.RunStore {
	return e.store
}
