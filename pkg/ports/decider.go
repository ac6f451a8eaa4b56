package ports

import (
	"context"

	"github.com/loopforge/conveyor/pkg/domain"
)

// Decision is the release gate's verdict. Version is set only when
// ReleaseCreated is true.
type Decision struct {
	ReleaseCreated bool
	Version        string
}

// Outputs renders the decision as stage outputs for downstream guards.
// A declined release carries no version key, so no consumer can observe a
// stale identifier.
func (d Decision) Outputs() domain.Outputs {
	out := domain.Outputs{domain.KeyReleaseCreated: "false"}
	if d.ReleaseCreated {
		out[domain.KeyReleaseCreated] = "true"
		out[domain.KeyVersion] = d.Version
	}
	return out
}

// ReleaseDecider inspects the commit history reachable from the trigger and
// decides whether a new release is warranted and what version to assign.
// Any uncertainty (unreachable history, unparsable repository state) must
// surface as an error wrapping domain.ErrGateUnavailable, never as a
// defaulted "release created".
type ReleaseDecider interface {
	Decide(ctx context.Context, trigger domain.Trigger) (Decision, error)
}
