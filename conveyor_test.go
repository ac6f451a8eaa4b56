package conveyor_test

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopforge/conveyor"
	"github.com/loopforge/conveyor/internal/runtime"
	"github.com/loopforge/conveyor/pkg/config"
	"github.com/loopforge/conveyor/pkg/domain"
	"github.com/loopforge/conveyor/pkg/observability"
	"github.com/loopforge/conveyor/pkg/ports"
)

const facadePipeline = `
name: release-train
trunk: master
matrix:
  - name: os
    values: [ubuntu-latest, macos-13]
  - name: runtime
    values: ["3.11", "3.12"]
stages:
  - name: verify
    kind: verification
    matrix: [os, runtime]
  - name: release
    kind: release
  - name: publish
    kind: publish
    requires: [release]
    guard:
      stage: release
      output: release_created
    matrix: [os, runtime]
commands:
  install: {command: pip, args: [install, -e, "."]}
  check: {command: flake8}
  smoke: {command: pip, args: [install, "--force-reinstall", "."]}
  package: {command: conda, args: [build, recipe]}
check:
  blocking_codes: [E9, F63, F7, F82]
upload:
  ubuntu-latest:
    command: anaconda
    args: [upload]
    credential: CHANNEL_TOKEN
    glob: "**/*.tar.bz2"
    visibility: public
  macos-13:
    command: anaconda
    args: [upload]
    credential: CHANNEL_TOKEN
    glob: "**/*.tar.bz2"
    visibility: public
`

type stubEnv struct{}

func (stubEnv) Environ() []string { return nil }
func (stubEnv) Dir() string       { return "." }
func (stubEnv) Close() error      { return nil }

// stubCollab answers every collaborator port with a fixed decision and
// counts uploads.
type stubCollab struct {
	mu       sync.Mutex
	decision ports.Decision
	uploads  int
}

func (s *stubCollab) Acquire(ctx context.Context, ec domain.ExecutionContext) (ports.ToolEnv, error) {
	return stubEnv{}, nil
}

func (s *stubCollab) Install(ctx context.Context, env ports.ToolEnv, manifest string) error {
	return nil
}

func (s *stubCollab) Check(ctx context.Context, env ports.ToolEnv, path string, policy domain.CheckPolicy) ([]domain.Finding, error) {
	return nil, nil
}

func (s *stubCollab) Smoke(ctx context.Context, env ports.ToolEnv, ec domain.ExecutionContext) error {
	return nil
}

func (s *stubCollab) Decide(ctx context.Context, trigger domain.Trigger) (ports.Decision, error) {
	return s.decision, nil
}

func (s *stubCollab) Package(ctx context.Context, env ports.ToolEnv, ec domain.ExecutionContext, version string) (string, error) {
	return "pkg-" + version + ".tar.bz2", nil
}

func (s *stubCollab) Upload(ctx context.Context, env ports.ToolEnv, artifact string, cred ports.Credential, spec ports.UploadSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads++
	return nil
}

func (s *stubCollab) Resolve(ctx context.Context, ref string) (ports.Credential, error) {
	return ports.NewCredential("token"), nil
}

func (s *stubCollab) collaborators() runtime.Collaborators {
	return runtime.Collaborators{
		Toolchain:   s,
		Installer:   s,
		Checker:     s,
		Builder:     s,
		Decider:     s,
		Packager:    s,
		Uploader:    s,
		Credentials: s,
	}
}

func TestEngineRunPersistsSummary(t *testing.T) {
	pipeline, err := config.Parse([]byte(facadePipeline))
	require.NoError(t, err)

	collab := &stubCollab{decision: ports.Decision{ReleaseCreated: true, Version: "1.4.0"}}
	eng, err := conveyor.New(pipeline, "", conveyor.WithCollaborators(collab.collaborators()))
	require.NoError(t, err)

	summary, err := eng.Run(context.Background(), domain.Trigger{Branch: "master", Commit: "deadbeef"})
	require.NoError(t, err)
	assert.True(t, summary.Success)
	assert.Equal(t, 4, collab.uploads)

	loaded, err := eng.Store().Load(context.Background(), summary.ID)
	require.NoError(t, err)
	assert.Equal(t, summary.ID, loaded.ID)
	assert.Equal(t, "1.4.0", loaded.Stage("release").Outputs[domain.KeyVersion])
}

func TestEngineRunNoReleaseSkipsPublish(t *testing.T) {
	pipeline, err := config.Parse([]byte(facadePipeline))
	require.NoError(t, err)

	collab := &stubCollab{decision: ports.Decision{ReleaseCreated: false}}
	eng, err := conveyor.New(pipeline, "", conveyor.WithCollaborators(collab.collaborators()))
	require.NoError(t, err)

	summary, err := eng.Run(context.Background(), domain.Trigger{Branch: "master", Commit: "deadbeef"})
	require.NoError(t, err)
	assert.True(t, summary.Success)
	assert.Zero(t, collab.uploads)

	publish := summary.Stage("publish")
	require.NotNil(t, publish)
	for _, cr := range publish.Contexts {
		assert.Equal(t, string(domain.StateSkipped), cr.Status)
	}
}

func TestEngineRunObservesMetrics(t *testing.T) {
	pipeline, err := config.Parse([]byte(facadePipeline))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	collab := &stubCollab{decision: ports.Decision{ReleaseCreated: true, Version: "2.0.0"}}
	eng, err := conveyor.New(pipeline, "",
		conveyor.WithCollaborators(collab.collaborators()),
		conveyor.WithMetrics(metrics),
	)
	require.NoError(t, err)

	_, err = eng.Run(context.Background(), domain.Trigger{Branch: "master", Commit: "deadbeef"})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LastRunSuccess()))
}

func TestNewRequiresRepoOrDecider(t *testing.T) {
	pipeline, err := config.Parse([]byte(facadePipeline))
	require.NoError(t, err)

	_, err = conveyor.New(pipeline, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repoPath")
}

func TestNewRejectsNilPipeline(t *testing.T) {
	_, err := conveyor.New(nil, ".")
	require.Error(t, err)
}
