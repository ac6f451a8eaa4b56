package domain

import "time"

// Stage-level status values in a run summary.
const (
	StagePassed  = "passed"
	StageFailed  = "failed"
	StageSkipped = "skipped" // dependency failed or guard denied before spawn
)

// ContextResult is the terminal outcome of one execution context.
type ContextResult struct {
	Context ExecutionContext `json:"context"`
	// Status is a terminal ContextState for publish contexts and
	// "passed"/"failed" for verification contexts.
	Status    string        `json:"status"`
	Err       string        `json:"err,omitempty"`
	Findings  []Finding     `json:"findings,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// StageResult is the aggregated outcome of one stage run. A matrixed stage
// is reported failed if any context failed, but every context's individual
// result is preserved: a partially-published release is visible as such,
// never masked.
type StageResult struct {
	Name     string          `json:"name"`
	Kind     StageKind       `json:"kind"`
	Status   string          `json:"status"`
	Err      string          `json:"err,omitempty"`
	Contexts []ContextResult `json:"contexts,omitempty"`
	Outputs  Outputs         `json:"outputs,omitempty"`
}

// Failed reports whether the stage as a whole failed.
func (r StageResult) Failed() bool {
	return r.Status == StageFailed
}

// RunSummary is the user-visible record of a whole pipeline run.
type RunSummary struct {
	ID         string        `json:"id"`
	Trigger    Trigger       `json:"trigger"`
	Stages     []StageResult `json:"stages"`
	Success    bool          `json:"success"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Stage returns the result for the named stage, or nil.
func (s *RunSummary) Stage(name string) *StageResult {
	for i := range s.Stages {
		if s.Stages[i].Name == name {
			return &s.Stages[i]
		}
	}
	return nil
}
