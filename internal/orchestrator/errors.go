package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"shipsense/internal/fleet"
)

// TimeoutError reports a tool call that exceeded its per-call time limit.
type TimeoutError struct {
	Tool  string
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("tool %s timed out after %s", e.Tool, e.Limit)
}

// IsTimeout reports whether err is a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// retryable reports whether a failed call may be attempted again.
// Only transient upstream and timeout failures qualify; not-found and
// range errors would fail identically on every attempt.
func retryable(err error) bool {
	return fleet.IsUpstream(err) || IsTimeout(err)
}

// userMessage renders a failure as a sentence the user can act on.
func userMessage(err error) string {
	var nf *fleet.NotFoundError
	if errors.As(err, &nf) {
		return fmt.Sprintf("I couldn't find that %s (%s).", nf.Kind, nf.Name)
	}
	var re *fleet.RangeError
	if errors.As(err, &re) {
		return fmt.Sprintf("That time range doesn't work: %s.", re.Reason)
	}
	if IsTimeout(err) {
		return "The data source took too long to respond. Please try again."
	}
	if fleet.IsUpstream(err) {
		return "The data source is unavailable right now. Please try again."
	}
	return fmt.Sprintf("Something went wrong: %v.", err)
}
