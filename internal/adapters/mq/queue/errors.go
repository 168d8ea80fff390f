package queue

import "errors"

// ErrQueueFull is reported by callers that treat a rejected Enqueue as an error.
var ErrQueueFull = errors.New("refresh queue full")
