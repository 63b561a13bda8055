// Package remote implements system plugins that run in their own process
// and talk to the host over hashicorp/go-plugin's net/rpc transport.
//
// A plugin binary serves its entry-point table:
//
//	func main() {
//		remote.Serve(system.Table{
//			"telemetry::Recorder": func() any { return &Recorder{} },
//		})
//	}
//
// The host dispenses a Catalog and wraps every remote instance in a Proxy.
package remote

import (
	"net/rpc"

	"github.com/hashicorp/go-plugin"
)

// PluginName is the key of the catalog in the plugin set.
const PluginName = "catalog"

// Handshake is shared by the host and every system plugin binary.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "SYSPLUG_PLUGIN",
	MagicCookieValue: "system",
}

// PluginSet returns the plugin set for go-plugin. The host passes a nil
// catalog.
func PluginSet(impl Catalog) plugin.PluginSet {
	return plugin.PluginSet{
		PluginName: &CatalogPlugin{Impl: impl},
	}
}

// InstanceInfo describes an object created inside the plugin process.
type InstanceInfo struct {
	ID           uint64
	Name         string
	Capabilities []string
}

// InvokeArgs carries one hook call. Payload is the JSON encoding of the
// hook's argument.
type InvokeArgs struct {
	ID      uint64
	Hook    string
	Payload []byte
}

// Catalog is the interface a plugin process exposes to the host.
type Catalog interface {
	EntryPoints() ([]string, error)
	Instantiate(name string) (InstanceInfo, error)
	Invoke(id uint64, hook string, payload []byte) error
}

// CatalogPlugin is the go-plugin binding for Catalog.
type CatalogPlugin struct {
	Impl Catalog
}

func (p *CatalogPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &CatalogRPCServer{Impl: p.Impl}, nil
}

func (CatalogPlugin) Client(b *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &CatalogRPC{client: c}, nil
}

// CatalogRPC is the host-side client of a remote Catalog.
type CatalogRPC struct {
	client *rpc.Client
}

func (c *CatalogRPC) EntryPoints() ([]string, error) {
	var resp []string
	err := c.client.Call("Plugin.EntryPoints", new(interface{}), &resp)
	return resp, err
}

func (c *CatalogRPC) Instantiate(name string) (InstanceInfo, error) {
	var resp InstanceInfo
	err := c.client.Call("Plugin.Instantiate", name, &resp)
	return resp, err
}

func (c *CatalogRPC) Invoke(id uint64, hook string, payload []byte) error {
	var ok bool
	return c.client.Call("Plugin.Invoke", InvokeArgs{ID: id, Hook: hook, Payload: payload}, &ok)
}

// CatalogRPCServer serves a Catalog inside the plugin process.
type CatalogRPCServer struct {
	Impl Catalog
}

func (s *CatalogRPCServer) EntryPoints(args interface{}, resp *[]string) error {
	names, err := s.Impl.EntryPoints()
	if err != nil {
		return err
	}
	*resp = names
	return nil
}

func (s *CatalogRPCServer) Instantiate(name string, resp *InstanceInfo) error {
	info, err := s.Impl.Instantiate(name)
	if err != nil {
		return err
	}
	*resp = info
	return nil
}

func (s *CatalogRPCServer) Invoke(args InvokeArgs, resp *bool) error {
	if err := s.Impl.Invoke(args.ID, args.Hook, args.Payload); err != nil {
		return err
	}
	*resp = true
	return nil
}
