package gpu

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrOutOfDate is returned by acquire and present when the surface no
	// longer matches the swapchain. Recovered by recreating the swapchain.
	ErrOutOfDate = errors.New("swapchain out of date")
	// ErrSuboptimal is returned by present when the swapchain still works but
	// no longer matches the surface exactly.
	ErrSuboptimal = errors.New("swapchain suboptimal")
	// ErrTimeout is returned when a fence or acquire wait timed out.
	ErrTimeout = errors.New("gpu wait timed out")
)

// ResultError is a failed device call together with the backend result code.
type ResultError struct {
	Op   string
	Code int32
	Name string
}

func (e *ResultError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s failed: %s (%d)", e.Op, e.Name, e.Code)
	}
	return fmt.Sprintf("%s failed with result %d", e.Op, e.Code)
}

// IsTransient reports whether err is one of the presentation errors that a
// swapchain recreation recovers from.
func IsTransient(err error) bool {
	return errors.Is(err, ErrOutOfDate) || errors.Is(err, ErrSuboptimal)
}
