package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"

	"sysplug.dev/cli/internal/application/ports"
	"sysplug.dev/cli/internal/core/capability"
	"sysplug.dev/cli/internal/core/descriptor"
	"sysplug.dev/cli/internal/core/registry"
	"sysplug.dev/cli/internal/core/searchpath"
	"sysplug.dev/cli/pkg/system"
)

// BuiltinSystemName is the entry-point name of the built-in core feature.
// It has no shared library, so failing to resolve it is not reported.
const BuiltinSystemName = "sysplug::core"

var (
	errNoEntryPoints = errors.New("library exports no entry points")
	errNilInstance   = errors.New("entry point returned no object")
	errNotInLibrary  = errors.New("entry point not provided by library")
)

// SystemLoader resolves system plugin descriptors to libraries, instantiates
// their entry points and keeps every validated instance alive.
type SystemLoader struct {
	resolver  *searchpath.Resolver
	loader    ports.DynamicLoader
	instances *registry.InstanceRegistry
	logger    hclog.Logger
	nextID    atomic.Uint64
}

// NewSystemLoader creates a loader with an empty instance registry.
func NewSystemLoader(resolver *searchpath.Resolver, loader ports.DynamicLoader, logger hclog.Logger) *SystemLoader {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &SystemLoader{
		resolver:  resolver,
		loader:    loader,
		instances: registry.NewInstanceRegistry(),
		logger:    logger,
	}
}

// AddSearchPath registers an additional system plugin directory.
func (s *SystemLoader) AddSearchPath(path string) {
	if s.resolver.AddSearchPath(path) {
		s.logger.Debug("added system plugin path", "path", path)
	}
}

// SearchPaths returns the combined search path used for resolution.
func (s *SystemLoader) SearchPaths() []searchpath.Entry {
	return s.resolver.SearchPaths()
}

// FindLibrary resolves filename on the search path without loading it.
func (s *SystemLoader) FindLibrary(filename string) (string, bool) {
	return s.resolver.FindLibrary(filename)
}

// Load instantiates the system described by d. Failures are logged and
// reported as false.
func (s *SystemLoader) Load(ctx context.Context, d descriptor.Descriptor) (*capability.Handle, bool) {
	h, err := s.TryLoad(ctx, d)
	return h, err == nil
}

// LoadFile builds a descriptor from its parts and loads it.
func (s *SystemLoader) LoadFile(ctx context.Context, filename, name string, cfg system.Config) (*capability.Handle, bool) {
	return s.Load(ctx, descriptor.New(filename, name, cfg))
}

// LoadElement loads the system described by a parsed configuration element.
// A nil element is ignored.
func (s *SystemLoader) LoadElement(ctx context.Context, el *descriptor.Element) (*capability.Handle, bool) {
	d, ok := descriptor.FromElement(el)
	if !ok {
		return nil, false
	}
	return s.Load(ctx, d)
}

// TryLoad behaves like Load and also returns the failure as a *LoadError.
func (s *SystemLoader) TryLoad(ctx context.Context, d descriptor.Descriptor) (*capability.Handle, error) {
	h, err := s.instantiate(ctx, d)
	if err != nil {
		s.report(err)
		return nil, err
	}

	s.logger.Debug("loaded system plugin",
		"id", h.ID(), "name", d.Name(), "path", h.Path(), "capabilities", h.Capabilities().String())
	return h, nil
}

func (s *SystemLoader) instantiate(ctx context.Context, d descriptor.Descriptor) (*capability.Handle, error) {
	fail := func(kind error, path string, cause error) error {
		return &LoadError{Kind: kind, Filename: d.Filename(), Name: d.Name(), Path: path, Err: cause}
	}

	if err := d.Validate(); err != nil {
		return nil, fail(ErrConfiguration, "", err)
	}

	path, ok := s.resolver.FindLibrary(d.Filename())
	if !ok {
		return nil, fail(ErrNotFound, "", nil)
	}

	names, err := s.loader.LoadLibrary(ctx, path)
	if err != nil {
		return nil, fail(ErrLoad, path, err)
	}
	if !hasEntryPoint(names) {
		return nil, fail(ErrLoad, path, errNoEntryPoints)
	}
	if !slices.Contains(names, d.Name()) {
		return nil, fail(ErrInstantiation, path, fmt.Errorf("%w: %s", errNotInLibrary, d.Name()))
	}

	value, err := s.loader.Instantiate(ctx, d.Name())
	if err != nil {
		return nil, fail(ErrInstantiation, path, err)
	}
	if value == nil {
		return nil, fail(ErrInstantiation, path, errNilInstance)
	}

	h := capability.NewHandle(s.nextID.Add(1), d, path, value)
	if !h.Has(capability.System) {
		return nil, fail(ErrInterfaceMismatch, path, fmt.Errorf("%T implements %s", value, h.Capabilities()))
	}

	if _, err := s.instances.Add(h); err != nil {
		return nil, fail(ErrInterfaceMismatch, path, err)
	}
	return h, nil
}

func (s *SystemLoader) report(err error) {
	var le *LoadError
	if errors.As(err, &le) && le.Kind == ErrNotFound && le.Name == BuiltinSystemName {
		return
	}
	if errors.Is(err, context.Canceled) {
		s.logger.Debug("system plugin load cancelled", "error", err)
		return
	}

	if le == nil {
		s.logger.Error("failed to load system plugin", "error", err)
		return
	}

	args := []any{"filename", le.Filename, "name", le.Name, "reason", le.Kind.Error()}
	if le.Path != "" {
		args = append(args, "path", le.Path)
	}
	if le.Err != nil {
		args = append(args, "error", le.Err)
	}
	s.logger.Error("failed to load system plugin", args...)
}

// Instances returns every system instantiated by this loader, oldest first.
func (s *SystemLoader) Instances() []*capability.Handle {
	return s.instances.Snapshot()
}

// DescribeLoadedPlugins returns a human-readable summary of the loaded
// libraries and the instances created from them.
func (s *SystemLoader) DescribeLoadedPlugins() string {
	var b strings.Builder
	b.WriteString(s.loader.PrettyStr())
	if !strings.HasSuffix(b.String(), "\n") && b.Len() > 0 {
		b.WriteString("\n")
	}

	instances := s.instances.Snapshot()
	fmt.Fprintf(&b, "Instances: %d\n", len(instances))
	for _, h := range instances {
		fmt.Fprintf(&b, "  %s\n", h)
	}
	return b.String()
}

// Close releases loader resources such as plugin processes. Instances stay
// registered.
func (s *SystemLoader) Close() error {
	if c, ok := s.loader.(ports.Closer); ok {
		return c.Close()
	}
	return nil
}

func hasEntryPoint(names []string) bool {
	for _, name := range names {
		if name != "" {
			return true
		}
	}
	return false
}
