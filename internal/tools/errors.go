package tools

import "errors"

var (
	// ErrToolNotFound is returned when executing an unregistered tool.
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolAlreadyRegistered is returned on duplicate registration.
	ErrToolAlreadyRegistered = errors.New("tool already registered")

	// ErrMissingRequiredArg is returned when a required argument is absent.
	ErrMissingRequiredArg = errors.New("missing required argument")

	// ErrToolNameEmpty is returned when registering a tool without a name.
	ErrToolNameEmpty = errors.New("tool name is empty")

	// ErrToolExecuteNil is returned when registering a tool without an
	// execute function.
	ErrToolExecuteNil = errors.New("tool execute function is nil")

	// ErrBadArgument is returned when an argument has the wrong type or
	// an unusable value.
	ErrBadArgument = errors.New("bad argument")
)
