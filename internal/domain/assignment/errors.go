package assignment

import "errors"

// ErrMatchIncomplete reports that no perfect zero-cost matching was found.
var ErrMatchIncomplete = errors.New("assignment: zero-cost matching incomplete")
