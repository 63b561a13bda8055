package services

import (
	"errors"
	"fmt"
)

// Load failure kinds
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrNotFound          = errors.New("shared library not found")
	ErrLoad              = errors.New("library failed to load")
	ErrInstantiation     = errors.New("entry point could not be instantiated")
	ErrInterfaceMismatch = errors.New("system capability not provided")
)

// LoadError describes why a system plugin could not be loaded. Kind is one
// of the Err* sentinels above; Err carries the underlying cause, if any.
type LoadError struct {
	Kind     error
	Filename string
	Name     string
	Path     string
	Err      error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("failed to load system plugin %q from %q: %v", e.Name, e.Filename, e.Kind)
	if e.Path != "" {
		msg += fmt.Sprintf(" (path %s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the failure kind so callers can use errors.Is(err, ErrNotFound).
func (e *LoadError) Is(target error) bool {
	return target == e.Kind
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
