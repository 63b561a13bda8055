package system

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fullSystem struct{}

func (fullSystem) SystemName() string { return "full" }
func (fullSystem) Configure(context.Context, Config) error { return nil }
func (fullSystem) PreUpdate(context.Context, UpdateInfo) error { return nil }
func (fullSystem) Update(context.Context, UpdateInfo) error { return nil }
func (fullSystem) PostUpdate(context.Context, UpdateInfo) error { return nil }

type advertising struct {
	fullSystem
	tags []string
}

func (a advertising) AdvertisedCapabilities() []string { return a.tags }

type updateOnly struct{}

func (updateOnly) Update(context.Context, UpdateInfo) error { return nil }

func TestCapabilitiesOf(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want []string
	}{
		{name: "Nil", v: nil, want: nil},
		{name: "PlainValue", v: 42, want: nil},
		{name: "FullSystem", v: fullSystem{}, want: Capabilities},
		{name: "UpdateOnly", v: updateOnly{}, want: []string{CapabilityUpdate}},
		{
			name: "Advertiser_ShouldKeepReportingOrder",
			v:    advertising{tags: []string{CapabilityPostUpdate, CapabilitySystem, "unknown"}},
			want: []string{CapabilitySystem, CapabilityPostUpdate},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CapabilitiesOf(tt.v))
		})
	}
}
