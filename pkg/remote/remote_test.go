package remote

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sysplug.dev/cli/pkg/system"
)

type recorder struct {
	mu         sync.Mutex
	configured system.Config
	updates    []uint64
}

func (r *recorder) SystemName() string { return "recorder" }

func (r *recorder) Configure(_ context.Context, cfg system.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configured = cfg
	return nil
}

func (r *recorder) Update(_ context.Context, info system.UpdateInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, info.Iterations)
	return nil
}

type updaterOnly struct{}

func (updaterOnly) Update(context.Context, system.UpdateInfo) error { return nil }

// dispense serves table over an in-memory RPC connection and returns the
// host-side catalog.
func dispense(t *testing.T, impl Catalog) Catalog {
	t.Helper()

	client, _ := plugin.TestPluginRPCConn(t, PluginSet(impl), nil)
	t.Cleanup(func() { _ = client.Close() })

	raw, err := client.Dispense(PluginName)
	require.NoError(t, err)

	catalog, ok := raw.(Catalog)
	require.True(t, ok)
	return catalog
}

func TestCatalog_OverRPC(t *testing.T) {
	rec := &recorder{}
	catalog := dispense(t, NewCatalog(system.Table{
		"telemetry::Recorder": func() any { return rec },
		"telemetry::Updater":  func() any { return updaterOnly{} },
	}))

	names, err := catalog.EntryPoints()
	require.NoError(t, err)
	assert.Equal(t, []string{"telemetry::Recorder", "telemetry::Updater"}, names)

	info, err := catalog.Instantiate("telemetry::Recorder")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.ID)
	assert.Equal(t, "recorder", info.Name)
	assert.Equal(t, []string{"system", "configure", "update"}, info.Capabilities)

	_, err = catalog.Instantiate("telemetry::Missing")
	assert.ErrorContains(t, err, "unknown entry point")
}

func TestProxy_OverRPC(t *testing.T) {
	rec := &recorder{}
	catalog := dispense(t, NewCatalog(system.Table{
		"telemetry::Recorder": func() any { return rec },
	}))

	info, err := catalog.Instantiate("telemetry::Recorder")
	require.NoError(t, err)
	proxy := NewProxy(catalog, info)

	require.NoError(t, proxy.Configure(context.Background(), system.Config{"rate": 10}))
	require.NoError(t, proxy.Update(context.Background(), system.UpdateInfo{Iterations: 7, Step: time.Millisecond}))

	rec.mu.Lock()
	assert.Equal(t, float64(10), rec.configured["rate"])
	assert.Equal(t, []uint64{7}, rec.updates)
	rec.mu.Unlock()

	err = proxy.PreUpdate(context.Background(), system.UpdateInfo{})
	assert.ErrorContains(t, err, "hook not supported")
}

func TestProxy_CapabilitiesFollowRemoteObject(t *testing.T) {
	tests := []struct {
		name string
		info InstanceInfo
		want []string
	}{
		{
			name: "FullSystem_ShouldExposeAdvertised",
			info: InstanceInfo{ID: 1, Name: "a", Capabilities: []string{"system", "update"}},
			want: []string{system.CapabilitySystem, system.CapabilityUpdate},
		},
		{
			name: "NotASystem_ShouldExposeNoSystem",
			info: InstanceInfo{ID: 2, Name: "b", Capabilities: []string{"update"}},
			want: []string{system.CapabilityUpdate},
		},
		{
			name: "NothingAdvertised_ShouldExposeNothing",
			info: InstanceInfo{ID: 3, Name: "c"},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proxy := NewProxy(NewCatalog(nil), tt.info)
			assert.Equal(t, tt.want, system.CapabilitiesOf(proxy))
		})
	}
}

func TestProxy_CancelledContext(t *testing.T) {
	proxy := NewProxy(NewCatalog(nil), InstanceInfo{ID: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, proxy.Update(ctx, system.UpdateInfo{}), context.Canceled)
}

func TestTableCatalog_Invoke(t *testing.T) {
	c := NewCatalog(system.Table{
		"Recorder": func() any { return &recorder{} },
		"Nil":      func() any { return nil },
	})

	info, err := c.Instantiate("Recorder")
	require.NoError(t, err)

	assert.ErrorIs(t, c.Invoke(info.ID+1, system.CapabilityUpdate, []byte(`{}`)), ErrUnknownInstance)
	assert.ErrorIs(t, c.Invoke(info.ID, "teardown", nil), ErrUnsupportedHook)
	assert.ErrorIs(t, c.Invoke(info.ID, system.CapabilityPostUpdate, []byte(`{}`)), ErrUnsupportedHook)
	assert.Error(t, c.Invoke(info.ID, system.CapabilityConfigure, []byte(`not json`)))
	assert.NoError(t, c.Invoke(info.ID, system.CapabilityConfigure, []byte(`{"a":1}`)))

	_, err = c.Instantiate("Nil")
	assert.Error(t, err)
	_, err = c.Instantiate("Missing")
	assert.ErrorIs(t, err, ErrUnknownEntryPoint)
}
