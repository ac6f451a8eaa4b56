package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/loopforge/conveyor/pkg/domain"
)

// Command describes one allow-listed collaborator invocation. Conveyor
// never executes anything outside this registry.
type Command struct {
	Command string            `yaml:"command" json:"command"`
	Args    []string          `yaml:"args" json:"args"`
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
}

// UploadTarget is one row of the upload table: the command, credential
// reference, artifact glob and visibility label for a single operating
// system value. The table must be total over the declared OS axis.
type UploadTarget struct {
	Command    string   `yaml:"command" json:"command"`
	Args       []string `yaml:"args" json:"args"`
	Credential string   `yaml:"credential" json:"credential"`
	Glob       string   `yaml:"glob" json:"glob"`
	Visibility string   `yaml:"visibility" json:"visibility"`
}

// StageConfig declares one stage: its kind, dependencies, guard and matrix
// binding. Kind-specific settings live in With and are decoded on demand.
type StageConfig struct {
	Name     string           `yaml:"name" json:"name"`
	Kind     domain.StageKind `yaml:"kind" json:"kind"`
	Requires []string         `yaml:"requires,omitempty" json:"requires,omitempty"`
	Guard    *domain.Guard    `yaml:"guard,omitempty" json:"guard,omitempty"`
	Matrix   []string         `yaml:"matrix,omitempty" json:"matrix,omitempty"`
	With     map[string]any   `yaml:"with,omitempty" json:"with,omitempty"`
}

// Stage converts the declaration into its domain form.
func (s StageConfig) Stage() domain.Stage {
	return domain.Stage{
		Name:     s.Name,
		Kind:     s.Kind,
		Requires: s.Requires,
		Guard:    s.Guard,
		Matrix:   s.Matrix,
	}
}

// VerifyOptions configures a verification stage.
type VerifyOptions struct {
	// Manifest is the dependency manifest handed to the installer.
	Manifest string `mapstructure:"manifest"`
	// Path is the module path handed to the static checker.
	Path string `mapstructure:"path"`
}

// ReleaseOptions configures a release stage.
type ReleaseOptions struct {
	// TagPrefix strips/applies the release tag prefix (default "v").
	TagPrefix string `mapstructure:"tag_prefix"`
	// InitialVersion is used when no previous release tag exists.
	InitialVersion string `mapstructure:"initial_version"`
}

// PublishOptions configures a publish stage.
type PublishOptions struct {
	// OSAxis names the axis whose value selects the upload target
	// (default "os").
	OSAxis string `mapstructure:"os_axis"`
}

// Pipeline is the whole declared workflow: trunk filter, matrix axes,
// stages, the collaborator command registry and the upload table.
type Pipeline struct {
	Name   string              `yaml:"name" json:"name"`
	Trunk  string              `yaml:"trunk" json:"trunk"`
	Matrix []domain.MatrixAxis `yaml:"matrix" json:"matrix"`
	Stages []StageConfig       `yaml:"stages" json:"stages"`

	// Commands registers the verification and packaging collaborators by
	// role: install, check, smoke, package.
	Commands map[string]Command `yaml:"commands" json:"commands"`

	// Check is the rule-severity split for the static checker.
	Check domain.CheckPolicy `yaml:"check" json:"check"`

	// Upload maps each OS axis value to its upload target.
	Upload map[string]UploadTarget `yaml:"upload" json:"upload"`

	// RequireVerification couples publish to verification success. The
	// source workflow gates publish on the release decision only; this
	// stays off unless explicitly enabled.
	RequireVerification bool `yaml:"require_verification" json:"require_verification"`
}

// Axis returns the declared axis by name, or nil.
func (p *Pipeline) Axis(name string) *domain.MatrixAxis {
	for i := range p.Matrix {
		if p.Matrix[i].Name == name {
			return &p.Matrix[i]
		}
	}
	return nil
}

// StageByName returns the stage declaration by name, or nil.
func (p *Pipeline) StageByName(name string) *StageConfig {
	for i := range p.Stages {
		if p.Stages[i].Name == name {
			return &p.Stages[i]
		}
	}
	return nil
}

// Load reads and parses a pipeline file. It does not validate; call
// Validate before execution.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline config: %w", err)
	}
	return Parse(data)
}

// Parse parses pipeline YAML. Decoding is strict: a key the declaration
// does not know (a typo like "blocking" for "blocking_codes") is a parse
// error, never a silently dropped setting.
func Parse(data []byte) (*Pipeline, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Pipeline
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline config: %w", err)
	}
	return &p, nil
}

// DecodeWith decodes a stage's With block into a typed options struct.
func DecodeWith(s StageConfig, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(s.With); err != nil {
		return fmt.Errorf("stage %q: invalid options: %w", s.Name, err)
	}
	return nil
}
