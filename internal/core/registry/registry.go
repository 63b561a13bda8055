package registry

import (
	"errors"
	"slices"
	"sync"

	"sysplug.dev/cli/internal/core/capability"
)

var (
	ErrNilHandle = errors.New("registry: nil handle")
	ErrNotSystem = errors.New("registry: handle does not provide the system capability")
)

// InstanceRegistry keeps successfully instantiated systems alive for the
// lifetime of its owner. Membership is by handle identity, so two loads of
// the same descriptor are two entries. It is safe for concurrent use.
type InstanceRegistry struct {
	mu      sync.RWMutex
	handles map[*capability.Handle]struct{}
	order   []*capability.Handle
}

func NewInstanceRegistry() *InstanceRegistry {
	return &InstanceRegistry{
		handles: make(map[*capability.Handle]struct{}),
	}
}

// Add inserts h. It reports false without error when h is already present.
func (r *InstanceRegistry) Add(h *capability.Handle) (bool, error) {
	if h == nil {
		return false, ErrNilHandle
	}
	if !h.Has(capability.System) {
		return false, ErrNotSystem
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handles[h]; ok {
		return false, nil
	}
	r.handles[h] = struct{}{}
	r.order = append(r.order, h)
	return true, nil
}

func (r *InstanceRegistry) Contains(h *capability.Handle) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handles[h]
	return ok
}

func (r *InstanceRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Snapshot returns the registered handles in insertion order.
func (r *InstanceRegistry) Snapshot() []*capability.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}
