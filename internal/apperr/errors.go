// Package apperr defines sentinel errors shared across service layers.
package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrTooManyTargets = errors.New("too many dangling targets for clustering")
)
