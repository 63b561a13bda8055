package capability

import (
	"strings"

	"sysplug.dev/cli/pkg/system"
)

// Set is a bit set of capabilities an instantiated object exposes.
type Set uint8

const (
	System Set = 1 << iota
	Configure
	PreUpdate
	Update
	PostUpdate
)

var tags = []struct {
	bit Set
	tag string
}{
	{System, system.CapabilitySystem},
	{Configure, system.CapabilityConfigure},
	{PreUpdate, system.CapabilityPreUpdate},
	{Update, system.CapabilityUpdate},
	{PostUpdate, system.CapabilityPostUpdate},
}

// Has reports whether every capability in other is present in s.
func (s Set) Has(other Set) bool {
	return s&other == other
}

// Tags returns the capability tags in reporting order.
func (s Set) Tags() []string {
	var out []string
	for _, t := range tags {
		if s.Has(t.bit) {
			out = append(out, t.tag)
		}
	}
	return out
}

// String implements the Stringer interface
func (s Set) String() string {
	if s == 0 {
		return "none"
	}
	return strings.Join(s.Tags(), ",")
}

// FromTags builds a set from capability tags. Unknown tags are ignored.
func FromTags(in []string) Set {
	var s Set
	for _, name := range in {
		for _, t := range tags {
			if t.tag == name {
				s |= t.bit
			}
		}
	}
	return s
}

// Detect queries which capability interfaces v implements. Objects that
// implement system.Advertiser are limited to what they advertise.
func Detect(v any) Set {
	return FromTags(system.CapabilitiesOf(v))
}
