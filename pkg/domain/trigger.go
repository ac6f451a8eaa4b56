package domain

// Trigger identifies the push event that initiated a run.
// It is created by the hosting platform and consumed once per run.
type Trigger struct {
	Branch string `json:"branch" yaml:"branch"`
	Commit string `json:"commit" yaml:"commit"`
}

// OnTrunk reports whether the trigger targets the given trunk branch.
// Only trunk pushes start a run; everything else is ignored by the host.
func (t Trigger) OnTrunk(trunk string) bool {
	return t.Branch == trunk
}
