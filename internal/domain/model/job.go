package model

import "time"

// Job asks the refresh workers to regenerate and publish a roster's assignment.
type Job struct {
	JobID      string    // unique id, used in logs
	RosterID   string    // roster to regenerate
	Size       int       // requested slot count, clamped by the engine
	Strategy   string    // strategy name
	EnqueuedAt time.Time // enqueue timestamp
}
