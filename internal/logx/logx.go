// Package logx is the engine's ambient structured-logging seam. The
// hot recursion (kalman.kernel) never touches it; only the iteration
// driver's coarse-grained lifecycle events (construction, convergence,
// seek, LinAlgError) go through a logx.Logger, and the default is a
// no-op so embedding the engine in a tight likelihood-maximization
// loop never pays for logging it didn't ask for.
package logx

import (
	"io"

	"github.com/rs/zerolog"
)

// Logger is the narrow surface the engine needs from a structured
// logger, kept separate from zerolog.Logger so callers can swap in
// their own. Its methods return *zerolog.Event, so any implementation
// depends on zerolog.
type Logger interface {
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// New returns a Logger writing JSON lines to w at the given level.
func New(w io.Writer, level zerolog.Level) Logger {
	l := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return &l
}
