package fleet

import (
	"errors"
	"fmt"
)

// NotFoundError reports an unknown vessel or metric.
type NotFoundError struct {
	Kind string // "vessel" or "metric"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Name)
}

// RangeError reports an empty or inverted time range.
type RangeError struct {
	Range  TimeRange
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid time range %s: %s", e.Range, e.Reason)
}

// UpstreamError reports a transport or availability failure from the
// underlying data source. The orchestrator may retry these.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream failure during %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsRangeError reports whether err is a RangeError.
func IsRangeError(err error) bool {
	var re *RangeError
	return errors.As(err, &re)
}

// IsUpstream reports whether err is an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
