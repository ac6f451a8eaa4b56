package process

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopforge/conveyor/pkg/config"
	"github.com/loopforge/conveyor/pkg/domain"
	"github.com/loopforge/conveyor/pkg/ports"
)

var checkPolicy = domain.CheckPolicy{
	BlockingCodes: []string{"E9", "F63", "F7", "F82"},
	AdvisoryCodes: []string{"C901", "E501"},
}

func acquire(t *testing.T) *toolEnv {
	t.Helper()
	tc := NewToolchain(t.TempDir())
	env, err := tc.Acquire(context.Background(), domain.ExecutionContext{
		Values: map[string]string{"os": "linux", "runtime": "3.11"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close() })
	return env.(*toolEnv)
}

func TestToolchainScratchLifecycle(t *testing.T) {
	tc := NewToolchain(t.TempDir())
	env, err := tc.Acquire(context.Background(), domain.ExecutionContext{
		Values: map[string]string{"os": "linux"},
	})
	require.NoError(t, err)

	scratch := env.(*toolEnv).scratch
	_, statErr := os.Stat(scratch)
	require.NoError(t, statErr)

	assert.Contains(t, env.Environ(), "CONVEYOR_OS=linux")

	require.NoError(t, env.Close())
	_, statErr = os.Stat(scratch)
	assert.True(t, os.IsNotExist(statErr), "scratch dir must be torn down")
}

func TestRunnerInstallRunsRegisteredCommand(t *testing.T) {
	env := acquire(t)
	r := NewRunner(map[string]config.Command{
		"install": {Command: "true"},
	})

	assert.NoError(t, r.Install(context.Background(), env, "setup.py"))
}

func TestRunnerInstallFailureSurfacesExitCode(t *testing.T) {
	env := acquire(t)
	r := NewRunner(map[string]config.Command{
		"install": {Command: "false"},
	})

	err := r.Install(context.Background(), env, "setup.py")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited with code 1")
}

func TestRunnerCheckParsesAndClassifiesFindings(t *testing.T) {
	env := acquire(t)
	// A checker that reports findings and exits 1, like flake8.
	r := NewRunner(map[string]config.Command{
		"check": {Command: "sh", Args: []string{"-c",
			`printf 'm.py:3:1: F821 undefined name\nm.py:9:80: E501 line too long\n'; exit 1`,
			"--"}},
	})

	findings, err := r.Check(context.Background(), env, ".", checkPolicy)
	require.NoError(t, err, "exit 1 means findings, not an invocation failure")
	require.Len(t, findings, 2)

	assert.Equal(t, "F821", findings[0].Code)
	assert.Equal(t, domain.SeverityBlocking, findings[0].Severity)
	assert.Equal(t, 3, findings[0].Line)
	assert.Equal(t, domain.SeverityAdvisory, findings[1].Severity)
}

func TestRunnerCheckBrokenToolIsAnError(t *testing.T) {
	env := acquire(t)
	r := NewRunner(map[string]config.Command{
		"check": {Command: "sh", Args: []string{"-c", "exit 2", "--"}},
	})

	_, err := r.Check(context.Background(), env, ".", checkPolicy)
	assert.Error(t, err, "exit codes above 1 are tool failures, not findings")
}

func TestRunnerPackageReturnsLastStdoutLine(t *testing.T) {
	env := acquire(t)
	r := NewRunner(map[string]config.Command{
		"package": {Command: "sh", Args: []string{"-c",
			`test "$CONVEYOR_VERSION" = 1.2.0 || exit 3; echo building; echo dist/pkg-1.2.0.tar.bz2`,
			"--"}},
	})

	artifact, err := r.Package(context.Background(), env, domain.ExecutionContext{}, "1.2.0")
	require.NoError(t, err)
	assert.Equal(t, "dist/pkg-1.2.0.tar.bz2", artifact)
}

func TestRunnerPackageWithoutArtifactPathFails(t *testing.T) {
	env := acquire(t)
	r := NewRunner(map[string]config.Command{
		"package": {Command: "true"},
	})

	_, err := r.Package(context.Background(), env, domain.ExecutionContext{}, "1.2.0")
	assert.Error(t, err)
}

func TestParseFindingsIgnoresNoise(t *testing.T) {
	out := "collecting files...\nm.py:1:1: E999 SyntaxError\n\ntotal: 1\n"
	findings := parseFindings(out, checkPolicy)
	require.Len(t, findings, 1)
	assert.Equal(t, "E999", findings[0].Code)
	assert.Equal(t, domain.SeverityBlocking, findings[0].Severity)
}

func TestEnvCredentialResolver(t *testing.T) {
	t.Setenv("CHANNEL_TOKEN_LINUX", "s3cret")

	cred, err := EnvCredentialResolver{}.Resolve(context.Background(), "CHANNEL_TOKEN_LINUX")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cred.Reveal())
	assert.Equal(t, "[redacted]", cred.String(), "credentials must never print their value")

	_, err = EnvCredentialResolver{}.Resolve(context.Background(), "CHANNEL_TOKEN_MISSING")
	assert.Error(t, err)
}

func TestUploaderExposesCredentialToChildProcess(t *testing.T) {
	env := acquire(t)
	u := NewUploader()

	spec := ports.UploadSpec{
		Command: "sh",
		Args: []string{"-c",
			`test "$CONVEYOR_CHANNEL_TOKEN" = tok-123 && test "$CONVEYOR_VISIBILITY" = main && test "$1" = dist/a.tar.bz2`,
			"--"},
		Glob:       "dist/*",
		Visibility: "main",
	}
	err := u.Upload(context.Background(), env, "dist/a.tar.bz2", ports.NewCredential("tok-123"), spec)
	assert.NoError(t, err)
}

func TestUploaderFailureIsTerminal(t *testing.T) {
	env := acquire(t)
	u := NewUploader()

	spec := ports.UploadSpec{Command: "false"}
	err := u.Upload(context.Background(), env, "dist/a.tar.bz2", ports.NewCredential("tok"), spec)
	assert.Error(t, err)
}
