// Package system defines the contract between the sysplug host and the
// system plugins it loads.
//
// A native plugin is a Go shared library built with -buildmode=plugin that
// exports two variables:
//
//	var Systems = system.Table{
//		"physics::Physics": func() any { return &Physics{} },
//	}
//
//	var SystemAPIVersion = system.APIVersion
//
// Every object produced by a Factory must implement System. The optional hook
// interfaces (Configurer, PreUpdater, Updater, PostUpdater) are detected once
// when the object is instantiated.
package system

import (
	"context"
	"slices"
	"time"
)

// APIVersion is the version of this contract. Hosts accept libraries built
// against the same major version.
const APIVersion = "1.0.0"

// Exported symbol names looked up in native libraries.
const (
	TableSymbol      = "Systems"
	APIVersionSymbol = "SystemAPIVersion"
)

// Factory creates a fresh instance of one entry point.
type Factory func() any

// Table maps entry-point names to their factories.
type Table map[string]Factory

// Config is the opaque configuration payload handed to Configure.
type Config map[string]any

// UpdateInfo describes one step of the host's update loop.
type UpdateInfo struct {
	SimTime    time.Duration
	Step       time.Duration
	Iterations uint64
	Paused     bool
}

// System is the capability every loadable system must provide.
type System interface {
	SystemName() string
}

// Configurer receives the plugin's configuration payload.
type Configurer interface {
	Configure(ctx context.Context, cfg Config) error
}

// PreUpdater runs before the update step.
type PreUpdater interface {
	PreUpdate(ctx context.Context, info UpdateInfo) error
}

// Updater runs during the update step.
type Updater interface {
	Update(ctx context.Context, info UpdateInfo) error
}

// PostUpdater runs after the update step.
type PostUpdater interface {
	PostUpdate(ctx context.Context, info UpdateInfo) error
}

// Advertiser is implemented by objects that proxy another object and can
// only claim a subset of the interfaces they implement. Capability names are
// the tags listed in Capabilities.
type Advertiser interface {
	AdvertisedCapabilities() []string
}

// Capability tags, in the order they are reported.
const (
	CapabilitySystem     = "system"
	CapabilityConfigure  = "configure"
	CapabilityPreUpdate  = "pre-update"
	CapabilityUpdate     = "update"
	CapabilityPostUpdate = "post-update"
)

// Capabilities lists every capability tag.
var Capabilities = []string{
	CapabilitySystem,
	CapabilityConfigure,
	CapabilityPreUpdate,
	CapabilityUpdate,
	CapabilityPostUpdate,
}

// CapabilitiesOf returns the tags of the capability interfaces v implements,
// in reporting order. Objects that implement Advertiser are limited to what
// they advertise.
func CapabilitiesOf(v any) []string {
	if v == nil {
		return nil
	}

	var out []string
	if _, ok := v.(System); ok {
		out = append(out, CapabilitySystem)
	}
	if _, ok := v.(Configurer); ok {
		out = append(out, CapabilityConfigure)
	}
	if _, ok := v.(PreUpdater); ok {
		out = append(out, CapabilityPreUpdate)
	}
	if _, ok := v.(Updater); ok {
		out = append(out, CapabilityUpdate)
	}
	if _, ok := v.(PostUpdater); ok {
		out = append(out, CapabilityPostUpdate)
	}

	adv, ok := v.(Advertiser)
	if !ok {
		return out
	}
	advertised := adv.AdvertisedCapabilities()
	return slices.DeleteFunc(out, func(tag string) bool {
		return !slices.Contains(advertised, tag)
	})
}
