package config

import (
	"fmt"

	"github.com/loopforge/conveyor/pkg/domain"
)

// ValidationError represents a single declaration failure.
type ValidationError struct {
	Key    string // Offending field or stage
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%q: %s", e.Key, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return domain.ErrConfig
}

// AggregateError collects every declaration failure found in one pass.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d configuration errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

func (e *AggregateError) Unwrap() error {
	return domain.ErrConfig
}

// Validate checks the whole declaration before any stage executes. It
// reports every problem it finds, not just the first. In particular the
// upload table must be total over the declared OS axis: an unmapped
// operating system is a configuration error here, never a silent skip at
// run time.
func (p *Pipeline) Validate() error {
	var errs []error
	fail := func(key, reason string, args ...any) {
		errs = append(errs, &ValidationError{Key: key, Reason: fmt.Sprintf(reason, args...)})
	}

	if p.Trunk == "" {
		fail("trunk", "trunk branch must be declared")
	}
	if len(p.Stages) == 0 {
		fail("stages", "at least one stage must be declared")
	}

	axes := map[string]bool{}
	for _, a := range p.Matrix {
		if a.Name == "" {
			fail("matrix", "axis with empty name")
			continue
		}
		if axes[a.Name] {
			fail("matrix", "duplicate axis %q", a.Name)
		}
		axes[a.Name] = true
	}

	names := map[string]domain.StageKind{}
	for _, s := range p.Stages {
		if s.Name == "" {
			fail("stages", "stage with empty name")
			continue
		}
		if _, dup := names[s.Name]; dup {
			fail(s.Name, "duplicate stage name")
		}
		names[s.Name] = s.Kind
	}

	for _, s := range p.Stages {
		switch s.Kind {
		case domain.KindVerification, domain.KindRelease, domain.KindPublish:
		default:
			fail(s.Name, "unknown stage kind %q", s.Kind)
		}

		// Version decisions must not be computed redundantly across
		// platforms.
		if s.Kind == domain.KindRelease && len(s.Matrix) > 0 {
			fail(s.Name, "release stage must not be matrixed")
		}

		for _, dep := range s.Requires {
			if dep == s.Name {
				fail(s.Name, "stage depends on itself")
			} else if _, ok := names[dep]; !ok {
				fail(s.Name, "requires undeclared stage %q", dep)
			}
		}

		for _, axis := range s.Matrix {
			if !axes[axis] {
				fail(s.Name, "binds undeclared matrix axis %q", axis)
			}
		}

		if s.Guard != nil {
			// A guarded stage must depend on exactly the stage producing
			// the value the guard reads.
			if !contains(s.Requires, s.Guard.Stage) {
				fail(s.Name, "guard reads stage %q which is not in requires", s.Guard.Stage)
			}
			if s.Guard.Output == "" {
				fail(s.Name, "guard output key must not be empty")
			}
		}

		if s.Kind == domain.KindPublish {
			errs = append(errs, p.validateUploadTable(s)...)
		}
	}

	for _, role := range p.requiredCommands() {
		if _, ok := p.Commands[role]; !ok {
			fail("commands", "missing %q command registration", role)
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// validateUploadTable checks that upload path selection is total: every
// declared OS axis value maps to exactly one upload target, and no target
// references an undeclared value.
func (p *Pipeline) validateUploadTable(s StageConfig) []error {
	var errs []error

	var opts PublishOptions
	if err := DecodeWith(s, &opts); err != nil {
		return []error{&ValidationError{Key: s.Name, Reason: err.Error()}}
	}
	osAxis := opts.OSAxis
	if osAxis == "" {
		osAxis = "os"
	}

	axis := p.Axis(osAxis)
	if axis == nil {
		errs = append(errs, &ValidationError{Key: s.Name, Reason: fmt.Sprintf("publish stage needs declared OS axis %q", osAxis)})
		return errs
	}
	if !contains(s.Matrix, osAxis) {
		errs = append(errs, &ValidationError{Key: s.Name, Reason: fmt.Sprintf("publish stage must bind the OS axis %q", osAxis)})
	}

	declared := map[string]bool{}
	for _, v := range axis.Values {
		declared[v] = true
		target, ok := p.Upload[v]
		if !ok {
			errs = append(errs, &ValidationError{Key: "upload", Reason: fmt.Sprintf("no upload target for operating system %q", v)})
			continue
		}
		if target.Command == "" {
			errs = append(errs, &ValidationError{Key: "upload." + v, Reason: "upload command must not be empty"})
		}
		if target.Credential == "" {
			errs = append(errs, &ValidationError{Key: "upload." + v, Reason: "credential reference must not be empty"})
		}
	}
	for v := range p.Upload {
		if !declared[v] {
			errs = append(errs, &ValidationError{Key: "upload." + v, Reason: "upload target for undeclared operating system"})
		}
	}
	return errs
}

func (p *Pipeline) requiredCommands() []string {
	var roles []string
	for _, s := range p.Stages {
		switch s.Kind {
		case domain.KindVerification:
			roles = append(roles, "install", "check", "smoke")
		case domain.KindPublish:
			roles = append(roles, "package")
		}
	}
	return dedupe(roles)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func dedupe(list []string) []string {
	seen := map[string]bool{}
	out := list[:0]
	for _, s := range list {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
