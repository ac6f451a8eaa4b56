package ports

import "context"

// Credential is an opaque secret resolved at execution time, scoped to one
// distribution channel per execution context. Its value never appears in
// logs or run summaries.
type Credential struct {
	value string
}

// NewCredential wraps a raw secret value.
func NewCredential(value string) Credential {
	return Credential{value: value}
}

// Reveal returns the raw value for handing to the upload process.
func (c Credential) Reveal() string {
	return c.value
}

// String implements fmt.Stringer and always redacts.
func (c Credential) String() string {
	return "[redacted]"
}

// IsZero reports whether the credential is empty.
func (c Credential) IsZero() bool {
	return c.value == ""
}

// CredentialResolver resolves a named credential reference. Resolution
// happens per context, immediately before the upload step, and the result
// is never passed between stages.
type CredentialResolver interface {
	Resolve(ctx context.Context, ref string) (Credential, error)
}
