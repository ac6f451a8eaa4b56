package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/loopforge/conveyor/pkg/config"
	"github.com/loopforge/conveyor/pkg/domain"
)

// runRelease executes the release decision gate. It runs exactly once per
// trigger (the declaration forbids matrixing it) and its outputs are the
// only stage outputs with downstream consumers.
//
// Failure policy: any uncertainty fails the stage. A failed gate means no
// release is assumed, never the opposite.
func (e *Engine) runRelease(ctx context.Context, runID string, s config.StageConfig, trigger domain.Trigger) domain.StageResult {
	decision, err := e.collab.Decider.Decide(ctx, trigger)
	if err != nil {
		if !errors.Is(err, domain.ErrGateUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrGateUnavailable, err)
		}
		return domain.StageResult{Name: s.Name, Kind: s.Kind, Status: domain.StageFailed, Err: err.Error()}
	}

	if e.hooks.OnDecision != nil {
		e.hooks.OnDecision(ctx, &domain.DecisionEvent{
			EventBase:      domain.EventBase{Timestamp: e.now(), Type: domain.EventDecision, RunID: runID},
			ReleaseCreated: decision.ReleaseCreated,
			Version:        decision.Version,
		})
	}
	e.logger.Info("release decision", "run", runID, "release_created", decision.ReleaseCreated, "version", decision.Version)

	return domain.StageResult{
		Name:    s.Name,
		Kind:    s.Kind,
		Status:  domain.StagePassed,
		Outputs: decision.Outputs(),
	}
}
