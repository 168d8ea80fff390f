package publish

import "errors"

// ErrMissingRoster is returned for publications without a roster id.
var ErrMissingRoster = errors.New("publication has no roster id")
