package repository

import "errors"

// Sentinel kinds for roster storage errors.
var (
	ErrNotFound      = errors.New("roster not found")
	ErrInvalidRoster = errors.New("invalid roster")
)
