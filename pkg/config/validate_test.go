package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopforge/conveyor/pkg/domain"
)

func validSample(t *testing.T) *Pipeline {
	t.Helper()
	p, err := Parse([]byte(samplePipeline))
	require.NoError(t, err)
	require.NoError(t, p.Validate())
	return p
}

func TestValidateUploadTotality(t *testing.T) {
	p := validSample(t)

	// Removing one OS entry must be rejected before execution.
	delete(p.Upload, "windows")
	err := p.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfig)
	assert.Contains(t, err.Error(), `no upload target for operating system "windows"`)
}

func TestValidateUploadUndeclaredOS(t *testing.T) {
	p := validSample(t)

	p.Upload["freebsd"] = p.Upload["linux"]
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undeclared operating system")
}

func TestValidateGuardInvariant(t *testing.T) {
	p := validSample(t)

	// A guard must read exactly a stage the guarded stage depends on.
	p.StageByName("publish").Requires = nil
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in requires")
}

func TestValidateReleaseNeverMatrixed(t *testing.T) {
	p := validSample(t)

	p.StageByName("release").Matrix = []string{"os"}
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "release stage must not be matrixed")
}

func TestValidateUnknownDependency(t *testing.T) {
	p := validSample(t)

	p.StageByName("publish").Requires = []string{"release", "ghost"}
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `undeclared stage "ghost"`)
}

func TestValidateMissingCommand(t *testing.T) {
	p := validSample(t)

	delete(p.Commands, "package")
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing "package" command`)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	p := validSample(t)

	p.Trunk = ""
	delete(p.Upload, "linux")
	delete(p.Upload, "macos")
	err := p.Validate()
	require.Error(t, err)

	aggr, ok := err.(*AggregateError)
	require.True(t, ok, "expected AggregateError, got %T", err)
	assert.GreaterOrEqual(t, len(aggr.Errors), 3)
	assert.Contains(t, err.Error(), "trunk branch must be declared")
	assert.Contains(t, err.Error(), `"linux"`)
	assert.Contains(t, err.Error(), `"macos"`)
}
