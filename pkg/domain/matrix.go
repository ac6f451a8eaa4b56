package domain

import (
	"sort"
	"strings"
)

// MatrixAxis is a named, ordered set of discrete values.
// Declared once per pipeline; read-only during a run.
type MatrixAxis struct {
	Name   string   `json:"name" yaml:"name"`
	Values []string `json:"values" yaml:"values"`
}

// ExecutionContext is one concrete assignment of a value to every axis of a
// matrixed stage. Contexts are independent: failure of one never affects
// sibling contexts.
type ExecutionContext struct {
	// Values maps axis name to the chosen value.
	Values map[string]string `json:"values"`
}

// Value returns the assignment for the named axis ("" if unbound).
func (c ExecutionContext) Value(axis string) string {
	return c.Values[axis]
}

// Label renders a stable human-readable identifier such as
// "os=linux,runtime=3.11". Axis names are sorted for determinism.
func (c ExecutionContext) Label() string {
	keys := make([]string, 0, len(c.Values))
	for k := range c.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+c.Values[k])
	}
	return strings.Join(parts, ",")
}

// Expand produces the full cross-product of the declared axes, one
// ExecutionContext per combination, in declaration order (first axis varies
// slowest). The count equals the product of the axis sizes; an axis with
// zero values therefore yields zero contexts. Zero axes yield a single
// empty context (the empty product), which is what a non-matrixed caller
// never asks for but the math requires.
func Expand(axes []MatrixAxis) []ExecutionContext {
	total := 1
	for _, a := range axes {
		total *= len(a.Values)
	}
	if total == 0 {
		return nil
	}

	contexts := make([]ExecutionContext, 0, total)
	indices := make([]int, len(axes))
	for {
		values := make(map[string]string, len(axes))
		for i, a := range axes {
			values[a.Name] = a.Values[indices[i]]
		}
		contexts = append(contexts, ExecutionContext{Values: values})

		// Odometer increment, last axis fastest.
		i := len(axes) - 1
		for ; i >= 0; i-- {
			indices[i]++
			if indices[i] < len(axes[i].Values) {
				break
			}
			indices[i] = 0
		}
		if i < 0 {
			break
		}
	}
	return contexts
}
