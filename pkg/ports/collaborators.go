package ports

import (
	"context"

	"github.com/loopforge/conveyor/pkg/domain"
)

// ToolEnv is a scoped tool environment for one step of one execution
// context. Close must be called regardless of step outcome.
type ToolEnv interface {
	// Environ returns extra environment entries ("KEY=value") describing
	// the runtime under test.
	Environ() []string
	// Dir is the working directory the step runs in.
	Dir() string
	Close() error
}

// Toolchain acquires tool environments for execution contexts.
type Toolchain interface {
	Acquire(ctx context.Context, ec domain.ExecutionContext) (ToolEnv, error)
}

// DependencyInstaller satisfies the declared dependency manifest for one
// context. A failure maps to domain.ErrDependencyResolution.
type DependencyInstaller interface {
	Install(ctx context.Context, env ToolEnv, manifest string) error
}

// StaticChecker runs the static-check collaborator and returns findings
// tagged by severity under the given policy. Running the checker is not an
// error; blocking findings are the caller's to act on.
type StaticChecker interface {
	Check(ctx context.Context, env ToolEnv, path string, policy domain.CheckPolicy) ([]domain.Finding, error)
}

// Builder performs the build-and-install smoke test for one context.
// A failure maps to domain.ErrBuild.
type Builder interface {
	Smoke(ctx context.Context, env ToolEnv, ec domain.ExecutionContext) error
}

// Packager builds the platform-specific binary package for one context and
// returns the artifact path. A failure maps to domain.ErrPackaging.
type Packager interface {
	Package(ctx context.Context, env ToolEnv, ec domain.ExecutionContext, version string) (string, error)
}

// UploadSpec is the per-operating-system upload path selected from the
// pipeline's upload table: which command to run, which files to push, under
// which credential, with which visibility label.
type UploadSpec struct {
	Command       string
	Args          []string
	Glob          string
	CredentialRef string
	Visibility    string
}

// Uploader pushes a packaged artifact to the distribution channel.
// A failure maps to domain.ErrUpload.
type Uploader interface {
	Upload(ctx context.Context, env ToolEnv, artifact string, cred Credential, spec UploadSpec) error
}
