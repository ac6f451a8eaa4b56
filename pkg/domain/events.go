package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStageStart    EventType = "stage_start"
	EventStageFinish   EventType = "stage_finish"
	EventContextFinish EventType = "context_finish"
	EventDecision      EventType = "decision"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// StageEvent marks the start or end of a stage run.
type StageEvent struct {
	EventBase
	Stage    string        `json:"stage"`
	Kind     StageKind     `json:"kind"`
	Failed   bool          `json:"failed,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// ContextEvent marks a single execution context reaching a terminal state.
type ContextEvent struct {
	EventBase
	Stage   string           `json:"stage"`
	Context ExecutionContext `json:"context"`
	Status  string           `json:"status"`
	Err     string           `json:"err,omitempty"`
}

// DecisionEvent carries the release gate's verdict.
type DecisionEvent struct {
	EventBase
	ReleaseCreated bool   `json:"release_created"`
	Version        string `json:"version,omitempty"`
}

// RunHooks defines callbacks for engine observability. Nil members are
// simply not called.
type RunHooks struct {
	OnStageStart    func(context.Context, *StageEvent)
	OnStageFinish   func(context.Context, *StageEvent)
	OnContextFinish func(context.Context, *ContextEvent)
	OnDecision      func(context.Context, *DecisionEvent)
}
