package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/loopforge/conveyor/pkg/config"
	"github.com/loopforge/conveyor/pkg/domain"
	"github.com/loopforge/conveyor/pkg/ports"
)

// runPublish fans out the conditional publish stage. The guard is evaluated
// once per context from the inputs snapshot taken at spawn, so every
// context observes the same decision. There is no per-platform partial
// release decision, only per-platform packaging or upload failures.
func (e *Engine) runPublish(ctx context.Context, runID string, s config.StageConfig, inputs domain.Outputs) domain.StageResult {
	var opts config.PublishOptions
	if err := config.DecodeWith(s, &opts); err != nil {
		return domain.StageResult{Name: s.Name, Kind: s.Kind, Status: domain.StageFailed, Err: err.Error()}
	}
	osAxis := opts.OSAxis
	if osAxis == "" {
		osAxis = "os"
	}

	guardOK := true
	if s.Guard != nil {
		guardOK = inputs.Bool(s.Guard.Output)
	}
	version := inputs[domain.KeyVersion]

	contexts := domain.Expand(e.axesFor(s))
	results := make([]domain.ContextResult, len(contexts))

	var wg sync.WaitGroup
	for i, ec := range contexts {
		i, ec := i, ec
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Inputs are cloned per context: distributed by value, never by
			// reference.
			results[i] = e.publishContext(ctx, ec, osAxis, guardOK, version)
			e.emitContextFinish(ctx, runID, s.Name, results[i])
		}()
	}
	wg.Wait()

	res := domain.StageResult{Name: s.Name, Kind: s.Kind, Status: domain.StagePassed, Contexts: results}
	for _, cr := range results {
		if cr.Status == string(domain.StateFailed) {
			// Partial publishes surface as a failed stage while preserving
			// each sibling's terminal state.
			res.Status = domain.StageFailed
		}
	}
	return res
}

// publishContext drives one context through the publish state machine:
//
//	PENDING -> SKIPPED                                     (guard false)
//	PENDING -> ENVIRONMENT_READY -> PACKAGED -> UPLOADED   (guard true)
//	any non-terminal -> FAILED                             (step error)
func (e *Engine) publishContext(ctx context.Context, ec domain.ExecutionContext, osAxis string, guardOK bool, version string) domain.ContextResult {
	started := e.now()
	state := domain.StatePending

	fail := func(err error) domain.ContextResult {
		state, _ = domain.Transition(state, domain.StateFailed)
		return domain.ContextResult{
			Context:   ec,
			Status:    string(state),
			Err:       err.Error(),
			StartedAt: started,
			Duration:  e.now().Sub(started),
		}
	}
	advance := func(to domain.ContextState) error {
		next, err := domain.Transition(state, to)
		if err != nil {
			return err
		}
		state = next
		return nil
	}

	if !guardOK {
		_ = advance(domain.StateSkipped)
		return domain.ContextResult{Context: ec, Status: string(state), StartedAt: started, Duration: e.now().Sub(started)}
	}

	env, err := e.collab.Toolchain.Acquire(ctx, ec)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", domain.ErrPackaging, err))
	}
	defer env.Close()
	if err := advance(domain.StateEnvironmentReady); err != nil {
		return fail(err)
	}

	artifact, err := e.collab.Packager.Package(ctx, env, ec, version)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", domain.ErrPackaging, err))
	}
	if err := advance(domain.StatePackaged); err != nil {
		return fail(err)
	}

	// Upload path selection is a pure lookup over the OS axis value, made
	// total at validation time.
	target := e.pipeline.Upload[ec.Value(osAxis)]
	spec := ports.UploadSpec{
		Command:       target.Command,
		Args:          target.Args,
		Glob:          target.Glob,
		CredentialRef: target.Credential,
		Visibility:    target.Visibility,
	}

	// The credential is resolved per context, lives for the duration of the
	// upload step only and is never logged.
	cred, err := e.collab.Credentials.Resolve(ctx, target.Credential)
	if err != nil {
		return fail(fmt.Errorf("%w: credential %q: %v", domain.ErrUpload, target.Credential, err))
	}

	if err := e.collab.Uploader.Upload(ctx, env, artifact, cred, spec); err != nil {
		return fail(fmt.Errorf("%w: %v", domain.ErrUpload, err))
	}
	if err := advance(domain.StateUploaded); err != nil {
		return fail(err)
	}

	return domain.ContextResult{Context: ec, Status: string(state), StartedAt: started, Duration: e.now().Sub(started)}
}
