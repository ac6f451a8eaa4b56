package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/loopforge/conveyor/pkg/config"
	"github.com/loopforge/conveyor/pkg/domain"
)

// runVerification proves the codebase is installable and passes static
// checks, once per execution context. Contexts run in parallel with
// fail-fast disabled; the stage fails if any context failed, after all of
// them have run to completion.
func (e *Engine) runVerification(ctx context.Context, runID string, s config.StageConfig) domain.StageResult {
	var opts config.VerifyOptions
	if err := config.DecodeWith(s, &opts); err != nil {
		return domain.StageResult{Name: s.Name, Kind: s.Kind, Status: domain.StageFailed, Err: err.Error()}
	}
	if opts.Path == "" {
		opts.Path = "."
	}

	contexts := domain.Expand(e.axesFor(s))
	results := make([]domain.ContextResult, len(contexts))

	var wg sync.WaitGroup
	for i, ec := range contexts {
		i, ec := i, ec
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = e.verifyContext(ctx, ec, opts)
			e.emitContextFinish(ctx, runID, s.Name, results[i])
		}()
	}
	wg.Wait()

	res := domain.StageResult{Name: s.Name, Kind: s.Kind, Status: domain.StagePassed, Contexts: results}
	for _, cr := range results {
		if cr.Status == domain.StageFailed {
			res.Status = domain.StageFailed
		}
	}
	return res
}

// verifyContext runs the three ordered sub-steps for one context. Every
// step acquires its own tool environment and tears it down regardless of
// outcome.
func (e *Engine) verifyContext(ctx context.Context, ec domain.ExecutionContext, opts config.VerifyOptions) domain.ContextResult {
	started := e.now()
	cr := domain.ContextResult{Context: ec, Status: domain.StagePassed, StartedAt: started}

	err := e.installStep(ctx, ec, opts.Manifest)
	if err == nil {
		cr.Findings, err = e.checkStep(ctx, ec, opts.Path)
	}
	if err == nil {
		err = e.smokeStep(ctx, ec)
	}

	if err != nil {
		cr.Status = domain.StageFailed
		cr.Err = err.Error()
	}
	cr.Duration = e.now().Sub(started)
	return cr
}

func (e *Engine) installStep(ctx context.Context, ec domain.ExecutionContext, manifest string) error {
	env, err := e.collab.Toolchain.Acquire(ctx, ec)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDependencyResolution, err)
	}
	defer env.Close()

	if err := e.collab.Installer.Install(ctx, env, manifest); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDependencyResolution, err)
	}
	return nil
}

// checkStep records every finding but fails only on blocking ones.
// Advisory findings never fail a context, regardless of count.
func (e *Engine) checkStep(ctx context.Context, ec domain.ExecutionContext, path string) ([]domain.Finding, error) {
	env, err := e.collab.Toolchain.Acquire(ctx, ec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStaticCheck, err)
	}
	defer env.Close()

	findings, err := e.collab.Checker.Check(ctx, env, path, e.pipeline.Check)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStaticCheck, err)
	}

	blocking := 0
	for _, f := range findings {
		if f.Severity == domain.SeverityBlocking {
			blocking++
		}
	}
	if blocking > 0 {
		return findings, fmt.Errorf("%w: %d finding(s)", domain.ErrStaticCheck, blocking)
	}
	return findings, nil
}

func (e *Engine) smokeStep(ctx context.Context, ec domain.ExecutionContext) error {
	env, err := e.collab.Toolchain.Acquire(ctx, ec)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBuild, err)
	}
	defer env.Close()

	if err := e.collab.Builder.Smoke(ctx, env, ec); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBuild, err)
	}
	return nil
}
