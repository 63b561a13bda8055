// Package rpcloader loads system plugins that run as separate processes.
package rpcloader

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	"sysplug.dev/cli/pkg/remote"
)

var ErrUnknownEntryPoint = errors.New("unknown entry point")

// Connector starts the plugin at path and returns its catalog together with
// a function that stops it.
type Connector func(ctx context.Context, path string) (remote.Catalog, func(), error)

// ProcessConnector launches plugin binaries with go-plugin over net/rpc.
func ProcessConnector(logger hclog.Logger) Connector {
	return func(ctx context.Context, path string) (remote.Catalog, func(), error) {
		client := plugin.NewClient(&plugin.ClientConfig{
			HandshakeConfig:  remote.Handshake,
			Plugins:          remote.PluginSet(nil),
			Cmd:              exec.Command(path),
			AllowedProtocols: []plugin.Protocol{plugin.ProtocolNetRPC},
			Logger:           logger.Named(filepath.Base(path)),
		})

		rpcClient, err := client.Client()
		if err != nil {
			client.Kill()
			return nil, nil, fmt.Errorf("failed to connect to plugin: %w", err)
		}

		raw, err := rpcClient.Dispense(remote.PluginName)
		if err != nil {
			client.Kill()
			return nil, nil, fmt.Errorf("failed to dispense plugin: %w", err)
		}

		catalog, ok := raw.(remote.Catalog)
		if !ok {
			client.Kill()
			return nil, nil, fmt.Errorf("plugin does not implement the system catalog")
		}
		return catalog, client.Kill, nil
	}
}

// Options configure a Loader.
type Options struct {
	// Connector defaults to ProcessConnector.
	Connector Connector
	Logger    hclog.Logger
}

type library struct {
	path    string
	catalog remote.Catalog
	stop    func()
	entries []string
}

type binding struct {
	catalog remote.Catalog
	path    string
}

// Loader implements ports.DynamicLoader over plugin processes. Every
// instance it returns is a *remote.Proxy.
type Loader struct {
	connect Connector
	logger  hclog.Logger

	mu        sync.Mutex
	libraries map[string]*library
	order     []string
	bindings  map[string]binding
	counts    map[string]int
}

func NewLoader(opts Options) *Loader {
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.Connector == nil {
		opts.Connector = ProcessConnector(opts.Logger)
	}

	return &Loader{
		connect:   opts.Connector,
		logger:    opts.Logger,
		libraries: make(map[string]*library),
		bindings:  make(map[string]binding),
		counts:    make(map[string]int),
	}
}

// LoadLibrary starts the plugin at path once and returns its entry points.
func (l *Loader) LoadLibrary(ctx context.Context, path string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lib, ok := l.libraries[path]; ok {
		return l.provided(lib), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	catalog, stop, err := l.connect(ctx, path)
	if err != nil {
		return nil, err
	}

	names, err := catalog.EntryPoints()
	if err != nil {
		stop()
		return nil, fmt.Errorf("failed to list entry points: %w", err)
	}

	lib := &library{path: path, catalog: catalog, stop: stop}
	for _, name := range names {
		if name == "" {
			continue
		}
		lib.entries = append(lib.entries, name)

		if prev, ok := l.bindings[name]; ok {
			l.logger.Warn("entry point already provided by another plugin, keeping first",
				"name", name, "kept", prev.path, "ignored", path)
			continue
		}
		l.bindings[name] = binding{catalog: catalog, path: path}
	}

	l.libraries[path] = lib
	l.order = append(l.order, path)
	l.logger.Debug("started plugin", "path", path, "entries", len(lib.entries))

	return l.provided(lib), nil
}

// Instantiate creates the object remotely and returns a proxy for it.
func (l *Loader) Instantiate(ctx context.Context, name string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	b, ok := l.bindings[name]
	l.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntryPoint, name)
	}

	info, err := b.catalog.Instantiate(name)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.counts[name]++
	l.mu.Unlock()

	return remote.NewProxy(b.catalog, info), nil
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

func (l *Loader) PrettyStr() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "Plugin processes: %d\n", len(l.order))
	for _, path := range l.order {
		lib := l.libraries[path]
		fmt.Fprintf(&b, "  %s\n", lib.path)
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

// Close stops every plugin process. Proxies created earlier stop working.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, path := range l.order {
		l.libraries[path].stop()
		l.logger.Debug("stopped plugin", "path", path)
	}

	l.libraries = make(map[string]*library)
	l.order = nil
	l.bindings = make(map[string]binding)
	l.counts = make(map[string]int)
	return nil
}
