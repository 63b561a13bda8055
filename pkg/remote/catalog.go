package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	"sysplug.dev/cli/pkg/system"
)

var (
	ErrUnknownEntryPoint = errors.New("unknown entry point")
	ErrUnknownInstance   = errors.New("unknown instance")
	ErrUnsupportedHook   = errors.New("hook not supported by instance")
)

// TableCatalog serves the entries of a system.Table and keeps the objects
// it creates alive for the lifetime of the process.
type TableCatalog struct {
	table system.Table

	mu        sync.Mutex
	next      uint64
	instances map[uint64]any
}

// NewCatalog creates a catalog over table.
func NewCatalog(table system.Table) *TableCatalog {
	return &TableCatalog{
		table:     table,
		instances: make(map[uint64]any),
	}
}

func (c *TableCatalog) EntryPoints() ([]string, error) {
	return slices.Sorted(maps.Keys(c.table)), nil
}

func (c *TableCatalog) Instantiate(name string) (InstanceInfo, error) {
	factory, ok := c.table[name]
	if !ok || factory == nil {
		return InstanceInfo{}, fmt.Errorf("%w: %s", ErrUnknownEntryPoint, name)
	}

	v := factory()
	if v == nil {
		return InstanceInfo{}, fmt.Errorf("entry point %s returned no object", name)
	}

	c.mu.Lock()
	c.next++
	id := c.next
	c.instances[id] = v
	c.mu.Unlock()

	info := InstanceInfo{ID: id, Name: name, Capabilities: system.CapabilitiesOf(v)}
	if sys, ok := v.(system.System); ok {
		info.Name = sys.SystemName()
	}
	return info, nil
}

func (c *TableCatalog) Invoke(id uint64, hook string, payload []byte) error {
	c.mu.Lock()
	v, ok := c.instances[id]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownInstance, id)
	}

	ctx := context.Background()
	switch hook {
	case system.CapabilityConfigure:
		target, ok := v.(system.Configurer)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnsupportedHook, hook)
		}
		var cfg system.Config
		if err := json.Unmarshal(payload, &cfg); err != nil {
			return fmt.Errorf("failed to decode configuration: %w", err)
		}
		return target.Configure(ctx, cfg)

	case system.CapabilityPreUpdate, system.CapabilityUpdate, system.CapabilityPostUpdate:
		var info system.UpdateInfo
		if err := json.Unmarshal(payload, &info); err != nil {
			return fmt.Errorf("failed to decode update info: %w", err)
		}
		return invokeUpdate(ctx, v, hook, info)

	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedHook, hook)
	}
}

func invokeUpdate(ctx context.Context, v any, hook string, info system.UpdateInfo) error {
	switch hook {
	case system.CapabilityPreUpdate:
		if target, ok := v.(system.PreUpdater); ok {
			return target.PreUpdate(ctx, info)
		}
	case system.CapabilityUpdate:
		if target, ok := v.(system.Updater); ok {
			return target.Update(ctx, info)
		}
	case system.CapabilityPostUpdate:
		if target, ok := v.(system.PostUpdater); ok {
			return target.PostUpdate(ctx, info)
		}
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedHook, hook)
}

// Serve runs the plugin process until the host disconnects. It must be
// called from the plugin binary's main function.
func Serve(table system.Table) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins:         PluginSet(NewCatalog(table)),
		Logger: hclog.New(&hclog.LoggerOptions{
			Name:       "sysplug-plugin",
			Level:      hclog.Info,
			Output:     os.Stderr,
			JSONFormat: true,
		}),
	})
}
