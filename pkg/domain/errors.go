package domain

import "errors"

// Failure taxonomy. Errors stay local to their execution context and never
// cancel sibling contexts; they aggregate to an overall stage failure.

// ErrDependencyResolution is returned when the declared dependency manifest
// cannot be satisfied for a context.
var ErrDependencyResolution = errors.New("dependency resolution failed")

// ErrStaticCheck is returned when a blocking static-check finding is present.
// Advisory findings are recorded but never raise this error.
var ErrStaticCheck = errors.New("blocking static-check finding")

// ErrBuild is returned when the build-and-install smoke test fails.
var ErrBuild = errors.New("build smoke test failed")

// ErrGateUnavailable is returned when the release decision cannot be made:
// unreachable history, unparsable repository state. The gate never defaults
// to "release created" on ambiguous input.
var ErrGateUnavailable = errors.New("release decision unavailable")

// ErrPackaging is returned when platform packaging fails for a context.
var ErrPackaging = errors.New("packaging failed")

// ErrUpload is returned when the artifact upload fails for a context.
var ErrUpload = errors.New("artifact upload failed")

// ErrConfig is returned for pipeline declarations rejected at validation
// time, before any stage executes (e.g. an operating system with no upload
// path).
var ErrConfig = errors.New("invalid pipeline configuration")

// ErrRunNotFound is returned when a run ID cannot be found in the store.
var ErrRunNotFound = errors.New("run not found")
