package capability

import (
	"fmt"

	"sysplug.dev/cli/internal/core/descriptor"
	"sysplug.dev/cli/pkg/system"
)

// Handle owns an instantiated plugin object together with the capabilities
// detected when it was created. Handles are shared by pointer and never
// mutated after construction.
type Handle struct {
	id         uint64
	descriptor descriptor.Descriptor
	path       string
	value      any
	caps       Set
}

// NewHandle wraps value and detects its capabilities once.
func NewHandle(id uint64, d descriptor.Descriptor, path string, value any) *Handle {
	return &Handle{
		id:         id,
		descriptor: d,
		path:       path,
		value:      value,
		caps:       Detect(value),
	}
}

func (h *Handle) ID() uint64 {
	return h.id
}

func (h *Handle) Descriptor() descriptor.Descriptor {
	return h.descriptor
}

// Path returns the library the object was instantiated from.
func (h *Handle) Path() string {
	return h.path
}

func (h *Handle) Capabilities() Set {
	return h.caps
}

// Has reports whether the cached capability set contains c.
func (h *Handle) Has(c Set) bool {
	return h.caps.Has(c)
}

// Value returns the underlying object.
func (h *Handle) Value() any {
	return h.value
}

func (h *Handle) System() (system.System, bool) {
	return as[system.System](h, System)
}

func (h *Handle) Configurer() (system.Configurer, bool) {
	return as[system.Configurer](h, Configure)
}

func (h *Handle) PreUpdater() (system.PreUpdater, bool) {
	return as[system.PreUpdater](h, PreUpdate)
}

func (h *Handle) Updater() (system.Updater, bool) {
	return as[system.Updater](h, Update)
}

func (h *Handle) PostUpdater() (system.PostUpdater, bool) {
	return as[system.PostUpdater](h, PostUpdate)
}

// String implements the Stringer interface
func (h *Handle) String() string {
	return fmt.Sprintf("#%d %s (%s)", h.id, h.descriptor, h.caps)
}

func as[T any](h *Handle, c Set) (T, bool) {
	var zero T
	if h == nil || !h.caps.Has(c) {
		return zero, false
	}
	v, ok := h.value.(T)
	return v, ok
}
