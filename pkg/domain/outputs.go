package domain

// Output keys with downstream consumers.
const (
	// KeyReleaseCreated is the boolean the release stage publishes and the
	// publish stage's guard reads.
	KeyReleaseCreated = "release_created"
	// KeyVersion is the version identifier accompanying a created release.
	KeyVersion = "version"
)

// Outputs is the small name→scalar mapping a stage produces once per run.
// It is written exactly once (by the producing stage, before any dependent
// context spawns) and distributed by value afterwards, so concurrent readers
// need no lock.
type Outputs map[string]string

// Bool reads a boolean-valued output. Absent keys read as false: a guard
// over a missing key must deny, never allow.
func (o Outputs) Bool(key string) bool {
	return o[key] == "true"
}

// Clone returns an independent copy, used when handing outputs to dependent
// contexts so no reference is shared across goroutines.
func (o Outputs) Clone() Outputs {
	if o == nil {
		return nil
	}
	cp := make(Outputs, len(o))
	for k, v := range o {
		cp[k] = v
	}
	return cp
}
