package lint

import "errors"

// ErrUnknownRule is returned when configuration names a rule that is not registered.
var ErrUnknownRule = errors.New("lint: unknown rule")
