// Package native loads system plugins built as Go shared libraries.
package native

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"plugin"
	"slices"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/hashicorp/go-hclog"
	"github.com/opencontainers/go-digest"

	"sysplug.dev/cli/pkg/system"
)

var (
	ErrMissingSymbol          = errors.New("required symbol not exported")
	ErrInvalidSymbol          = errors.New("symbol has unexpected type")
	ErrIncompatibleAPIVersion = errors.New("incompatible system API version")
	ErrUnknownEntryPoint      = errors.New("unknown entry point")
)

// SymbolTable is the subset of *plugin.Plugin used by the loader.
type SymbolTable interface {
	Lookup(symbol string) (plugin.Symbol, error)
}

// Opener opens the shared library at path.
type Opener func(path string) (SymbolTable, error)

// Open opens a Go plugin with the standard library.
func Open(path string) (SymbolTable, error) {
	return plugin.Open(path)
}

// Options configure a Loader.
type Options struct {
	// Opener defaults to Open.
	Opener Opener
	// HostAPIVersion defaults to system.APIVersion. Libraries must share
	// its major version.
	HostAPIVersion string
	Logger         hclog.Logger
}

type library struct {
	path    string
	digest  digest.Digest
	version *semver.Version
	entries []string
}

type binding struct {
	factory system.Factory
	path    string
}

// Loader implements ports.DynamicLoader over Go's plugin package. Libraries
// are identified by path and never unloaded.
type Loader struct {
	open       Opener
	constraint *semver.Constraints
	logger     hclog.Logger

	mu        sync.Mutex
	libraries map[string]*library
	order     []string
	bindings  map[string]binding
	counts    map[string]int
}

// NewLoader creates a loader accepting libraries built against the host's
// major API version.
func NewLoader(opts Options) (*Loader, error) {
	if opts.Opener == nil {
		opts.Opener = Open
	}
	if opts.HostAPIVersion == "" {
		opts.HostAPIVersion = system.APIVersion
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}

	host, err := semver.NewVersion(opts.HostAPIVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid host API version %q: %w", opts.HostAPIVersion, err)
	}
	constraint, err := semver.NewConstraint(fmt.Sprintf("^%d", host.Major()))
	if err != nil {
		return nil, fmt.Errorf("failed to build API constraint: %w", err)
	}

	return &Loader{
		open:       opts.Opener,
		constraint: constraint,
		logger:     opts.Logger,
		libraries:  make(map[string]*library),
		bindings:   make(map[string]binding),
		counts:     make(map[string]int),
	}, nil
}

// LoadLibrary opens the library at path and registers its entry points.
// The result omits entries shadowed by a library loaded earlier. Loading a
// path twice does not reopen it.
func (l *Loader) LoadLibrary(ctx context.Context, path string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lib, ok := l.libraries[path]; ok {
		return l.provided(lib), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dgst, err := fileDigest(path)
	if err != nil {
		return nil, err
	}

	syms, err := l.open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	version, err := l.apiVersion(syms)
	if err != nil {
		return nil, err
	}

	table, err := lookupTable(syms)
	if err != nil {
		return nil, err
	}

	lib := &library{path: path, digest: dgst, version: version}
	for _, name := range slices.Sorted(maps.Keys(table)) {
		factory := table[name]
		if name == "" || factory == nil {
			l.logger.Warn("ignoring invalid entry point", "path", path, "name", name)
			continue
		}
		lib.entries = append(lib.entries, name)

		if prev, ok := l.bindings[name]; ok {
			l.logger.Warn("entry point already provided by another library, keeping first",
				"name", name, "kept", prev.path, "ignored", path)
			continue
		}
		l.bindings[name] = binding{factory: factory, path: path}
	}

	l.libraries[path] = lib
	l.order = append(l.order, path)
	l.logger.Debug("loaded library", "path", path, "digest", dgst, "api_version", version, "entries", len(lib.entries))

	return l.provided(lib), nil
}

// Instantiate calls the factory bound to name.
func (l *Loader) Instantiate(ctx context.Context, name string) (v any, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	b, ok := l.bindings[name]
	l.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntryPoint, name)
	}

	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("entry point %s panicked: %v", name, r)
		}
	}()

	v = b.factory()
	if v != nil {
		l.mu.Lock()
		l.counts[name]++
		l.mu.Unlock()
	}
	return v, nil
}

// provided returns the entry points of lib that are not shadowed by an
// earlier library.
func (l *Loader) provided(lib *library) []string {
	names := make([]string, 0, len(lib.entries))
	for _, name := range lib.entries {
		if l.bindings[name].path == lib.path {
			names = append(names, name)
		}
	}
	return names
}

// PrettyStr lists every loaded library with its digest, API version and
// entry points.
func (l *Loader) PrettyStr() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "Loaded libraries: %d\n", len(l.order))
	for _, path := range l.order {
		lib := l.libraries[path]
		fmt.Fprintf(&b, "  %s\n", lib.path)
		fmt.Fprintf(&b, "    digest:  %s\n", lib.digest)
		fmt.Fprintf(&b, "    api:     %s\n", lib.version)
		fmt.Fprintf(&b, "    entries: %d\n", len(lib.entries))
		for _, name := range lib.entries {
			if l.bindings[name].path != path {
				fmt.Fprintf(&b, "      %s (shadowed by %s)\n", name, l.bindings[name].path)
				continue
			}
			fmt.Fprintf(&b, "      %s (instances: %d)\n", name, l.counts[name])
		}
	}
	return b.String()
}

func (l *Loader) apiVersion(syms SymbolTable) (*semver.Version, error) {
	sym, err := syms.Lookup(system.APIVersionSymbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingSymbol, system.APIVersionSymbol)
	}

	var raw string
	switch s := sym.(type) {
	case *string:
		raw = *s
	case string:
		raw = s
	default:
		return nil, fmt.Errorf("%w: %s is %T", ErrInvalidSymbol, system.APIVersionSymbol, sym)
	}

	version, err := semver.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrIncompatibleAPIVersion, raw, err)
	}
	if !l.constraint.Check(version) {
		return nil, fmt.Errorf("%w: library built against %s, host accepts %s", ErrIncompatibleAPIVersion, version, l.constraint)
	}
	return version, nil
}

func lookupTable(syms SymbolTable) (system.Table, error) {
	sym, err := syms.Lookup(system.TableSymbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingSymbol, system.TableSymbol)
	}

	switch s := sym.(type) {
	case *system.Table:
		return *s, nil
	case system.Table:
		return s, nil
	case func() system.Table:
		return s(), nil
	case *func() system.Table:
		return (*s)(), nil
	default:
		return nil, fmt.Errorf("%w: %s is %T", ErrInvalidSymbol, system.TableSymbol, sym)
	}
}

func fileDigest(path string) (digest.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer f.Close()

	dgst, err := digest.Canonical.FromReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to digest %s: %w", path, err)
	}
	return dgst, nil
}
