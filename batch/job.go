package batch

import (
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle of a batch run. Succeeded and Failed are transient;
// the orchestrator returns to Idle once the terminal message is emitted.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Job records one batch run.
type Job struct {
	ID         uuid.UUID `json:"id"`
	Recipients int       `json:"recipients"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitzero"`
	State      State     `json:"-"`
	Err        error     `json:"-"`
}

func newJob(recipients int) *Job {
	return &Job{
		ID:         uuid.New(),
		Recipients: recipients,
		StartedAt:  time.Now(),
		State:      StateRunning,
	}
}
