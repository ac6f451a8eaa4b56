package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandCrossProduct(t *testing.T) {
	axes := []MatrixAxis{
		{Name: "os", Values: []string{"linux", "windows", "macos"}},
		{Name: "runtime", Values: []string{"3.10", "3.11"}},
	}

	contexts := Expand(axes)
	require.Len(t, contexts, 6, "3 OSes x 2 runtimes")

	// First axis varies slowest, declaration order preserved.
	assert.Equal(t, "linux", contexts[0].Value("os"))
	assert.Equal(t, "3.10", contexts[0].Value("runtime"))
	assert.Equal(t, "linux", contexts[1].Value("os"))
	assert.Equal(t, "3.11", contexts[1].Value("runtime"))
	assert.Equal(t, "macos", contexts[5].Value("os"))
	assert.Equal(t, "3.11", contexts[5].Value("runtime"))

	// Every combination is distinct.
	seen := map[string]bool{}
	for _, c := range contexts {
		seen[c.Label()] = true
	}
	assert.Len(t, seen, 6)
}

func TestExpandEmptyAxis(t *testing.T) {
	// An axis with zero declared values yields zero contexts, not a panic
	// and not a partial product.
	axes := []MatrixAxis{
		{Name: "os", Values: []string{"linux", "windows"}},
		{Name: "runtime", Values: nil},
	}

	contexts := Expand(axes)
	assert.Empty(t, contexts)
}

func TestExpandSingleAxis(t *testing.T) {
	contexts := Expand([]MatrixAxis{{Name: "os", Values: []string{"linux"}}})
	require.Len(t, contexts, 1)
	assert.Equal(t, "os=linux", contexts[0].Label())
}

func TestExpandNoAxes(t *testing.T) {
	// The empty product is one (empty) context.
	contexts := Expand(nil)
	require.Len(t, contexts, 1)
	assert.Empty(t, contexts[0].Values)
	assert.Equal(t, "", contexts[0].Label())
}
