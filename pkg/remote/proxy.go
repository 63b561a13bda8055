package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"sysplug.dev/cli/pkg/system"
)

// Proxy stands in for an object living in a plugin process. It implements
// every hook interface but advertises only the capabilities of the remote
// object.
type Proxy struct {
	catalog Catalog
	info    InstanceInfo
}

// NewProxy wraps the remote instance described by info.
func NewProxy(catalog Catalog, info InstanceInfo) *Proxy {
	return &Proxy{catalog: catalog, info: info}
}

// RemoteID returns the instance ID assigned by the plugin process.
func (p *Proxy) RemoteID() uint64 {
	return p.info.ID
}

func (p *Proxy) SystemName() string {
	return p.info.Name
}

func (p *Proxy) AdvertisedCapabilities() []string {
	return slices.Clone(p.info.Capabilities)
}

func (p *Proxy) Configure(ctx context.Context, cfg system.Config) error {
	return p.invoke(ctx, system.CapabilityConfigure, cfg)
}

func (p *Proxy) PreUpdate(ctx context.Context, info system.UpdateInfo) error {
	return p.invoke(ctx, system.CapabilityPreUpdate, info)
}

func (p *Proxy) Update(ctx context.Context, info system.UpdateInfo) error {
	return p.invoke(ctx, system.CapabilityUpdate, info)
}

func (p *Proxy) PostUpdate(ctx context.Context, info system.UpdateInfo) error {
	return p.invoke(ctx, system.CapabilityPostUpdate, info)
}

func (p *Proxy) invoke(ctx context.Context, hook string, arg any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(arg)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", hook, err)
	}
	if err := p.catalog.Invoke(p.info.ID, hook, payload); err != nil {
		return fmt.Errorf("remote %s of %s failed: %w", hook, p.info.Name, err)
	}
	return nil
}
