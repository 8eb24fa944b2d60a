// Package shapeerr is the one structured shape-mismatch error shared
// by every package that validates a matrix or vector dimension at
// construction time. It lives below statespace, lyapunov and kalman so
// all three can return and recognize the same type without an import
// cycle (kalman already imports statespace).
package shapeerr

import "fmt"

// Error reports that a matrix or vector didn't have the dimensions a
// caller required. Name identifies the offending value (e.g.
// "statespace: design[3]"); Expected and Got are [rows, cols] pairs.
type Error struct {
	Name     string
	Expected [2]int
	Got      [2]int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: expected %dx%d, got %dx%d",
		e.Name, e.Expected[0], e.Expected[1], e.Got[0], e.Got[1])
}
