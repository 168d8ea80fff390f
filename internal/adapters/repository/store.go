// Package repository stores uploaded candidate rosters.
package repository

import (
	"context"
	"time"
)

// Record is one loosely-typed candidate as uploaded.
type Record = map[string]any

// Roster is a stored candidate pool.
type Roster struct {
	ID        string    `json:"id"`
	Records   []Record  `json:"records"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store provides read/write access to rosters.
type Store interface {
	// Put creates or replaces the roster. Returns ErrInvalidRoster for a
	// blank id.
	Put(ctx context.Context, id string, records []Record) (Roster, error)

	// Get returns the roster or ErrNotFound.
	Get(ctx context.Context, id string) (Roster, error)

	// Delete removes the roster or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// List returns every roster id in ascending order.
	List(ctx context.Context) ([]string, error)

	// Count returns the number of stored rosters.
	Count(ctx context.Context) int

	Close() error
}
