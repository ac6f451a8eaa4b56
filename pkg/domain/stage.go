package domain

// StageKind selects the behavior the engine attaches to a stage.
type StageKind string

const (
	// KindVerification installs, checks and smoke-builds every context.
	KindVerification StageKind = "verification"
	// KindRelease decides whether the commits warrant a release. Never matrixed.
	KindRelease StageKind = "release"
	// KindPublish packages and uploads an artifact per context, behind a guard.
	KindPublish StageKind = "publish"
)

// Guard is a boolean condition over an upstream stage's output, gating
// whether a stage executes at all. The guarded stage must depend on exactly
// the stage that produces the value the guard reads.
type Guard struct {
	Stage  string `json:"stage" yaml:"stage"`
	Output string `json:"output" yaml:"output"`
}

// Stage is a named unit of pipeline work: a dependency set referencing other
// stages by name, an optional guard predicate over a dependency's output and
// zero-or-one matrix axis bindings.
type Stage struct {
	Name     string    `json:"name" yaml:"name"`
	Kind     StageKind `json:"kind" yaml:"kind"`
	Requires []string  `json:"requires,omitempty" yaml:"requires,omitempty"`
	Guard    *Guard    `json:"guard,omitempty" yaml:"guard,omitempty"`
	// Matrix names the axes this stage fans out over. Empty means the stage
	// runs exactly once per trigger.
	Matrix []string `json:"matrix,omitempty" yaml:"matrix,omitempty"`
}

// Matrixed reports whether the stage binds any matrix axis.
func (s Stage) Matrixed() bool {
	return len(s.Matrix) > 0
}
