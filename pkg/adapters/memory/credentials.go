package memory

import (
	"context"
	"fmt"

	"github.com/loopforge/conveyor/pkg/ports"
)

// CredentialResolver resolves credential references from a fixed map.
// Intended for tests and air-gapped dry runs.
type CredentialResolver map[string]string

var _ ports.CredentialResolver = CredentialResolver{}

// Resolve returns the mapped credential or an error for unknown references.
func (r CredentialResolver) Resolve(ctx context.Context, ref string) (ports.Credential, error) {
	value, ok := r[ref]
	if !ok {
		return ports.Credential{}, fmt.Errorf("credential %q is not set", ref)
	}
	return ports.NewCredential(value), nil
}
