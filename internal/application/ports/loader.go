package ports

import (
	"context"
)

// DynamicLoader loads plugin libraries into the process and instantiates
// the entry points they export.
type DynamicLoader interface {
	// LoadLibrary loads the library at path and returns the names of the
	// entry points it provides. Names already bound by an earlier library
	// are left out. Loading an already loaded path returns the same names.
	LoadLibrary(ctx context.Context, path string) ([]string, error)

	// Instantiate creates a new object for the named entry point of any
	// loaded library.
	Instantiate(ctx context.Context, name string) (any, error)

	// PrettyStr describes everything currently loaded. The format is for
	// humans only.
	PrettyStr() string
}

// Closer is implemented by loaders that hold external resources such as
// plugin child processes.
type Closer interface {
	Close() error
}
