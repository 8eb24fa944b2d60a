package kalman

import (
	"errors"

	"github.com/dcweber/gokalman/internal/shapeerr"
)

// ErrNotInitialized is returned when a Filter is constructed from a
// statespace.Model that has not had one of its Initialize* methods
// called.
var ErrNotInitialized = errors.New("kalman: model is not initialized")

// ErrInvalidMethod is returned when Options.Method names anything
// other than Conventional (every other bit is a reserved hook with no
// implementation), and also when Options.Tolerance is negative.
var ErrInvalidMethod = errors.New("kalman: invalid or unsupported filter method")

// ErrEndOfSequence is returned by Step when Step is called past the
// end of the observation series. It is a benign termination signal,
// not a failure; Run stops at the end of the series and never returns
// it.
var ErrEndOfSequence = errors.New("kalman: end of sequence")

// InvalidShapeError reports a construction-time shape mismatch. It is
// an alias for shapeerr.Error so statespace and lyapunov — which
// cannot import kalman without a cycle — can construct the same type
// their callers match on. The errors are returned as pointers, so
// match with a pointer target:
//
//	var se *kalman.InvalidShapeError
//	errors.As(err, &se)
type InvalidShapeError = shapeerr.Error
