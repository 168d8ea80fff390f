package service

import (
	"errors"

	"github.com/okian/roster/internal/adapters/repository"
)

// Sentinel kinds returned by the service. ErrNotFound is the repository's
// sentinel so errors.Is works across layers.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = repository.ErrNotFound
	ErrNotPublished = errors.New("no snapshot published")
)
