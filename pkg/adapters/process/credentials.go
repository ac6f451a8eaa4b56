package process

import (
	"context"
	"fmt"
	"os"

	"github.com/loopforge/conveyor/pkg/ports"
)

// EnvCredentialResolver resolves credential references from the process
// environment, the way a hosting platform injects channel secrets into a
// job. The reference is the variable name; the value never leaves the
// Credential wrapper.
type EnvCredentialResolver struct{}

var _ ports.CredentialResolver = EnvCredentialResolver{}

// Resolve looks the reference up in the environment. Missing or empty
// variables are an error: an upload must never run with a blank token.
func (EnvCredentialResolver) Resolve(ctx context.Context, ref string) (ports.Credential, error) {
	value, ok := os.LookupEnv(ref)
	if !ok || value == "" {
		return ports.Credential{}, fmt.Errorf("credential %q is not set", ref)
	}
	return ports.NewCredential(value), nil
}
