package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"sysplug.dev/cli/internal/core/capability"
	"sysplug.dev/cli/internal/core/descriptor"
)

type testSystem struct{ name string }

func (s *testSystem) SystemName() string { return s.name }

func newSystemHandle(id uint64) *capability.Handle {
	return capability.NewHandle(id, descriptor.New("physics", "Physics", nil), "/lib/libphysics.so", &testSystem{name: "physics"})
}

func TestInstanceRegistry_Add(t *testing.T) {
	r := NewInstanceRegistry()
	h := newSystemHandle(1)

	added, err := r.Add(h)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = r.Add(h)
	require.NoError(t, err)
	assert.False(t, added, "Re-adding a present handle should be a no-op")
	assert.Equal(t, 1, r.Len())
	assert.True(t, r.Contains(h))
}

func TestInstanceRegistry_Add_RejectsInvalidHandles(t *testing.T) {
	r := NewInstanceRegistry()

	_, err := r.Add(nil)
	assert.ErrorIs(t, err, ErrNilHandle)

	notSystem := capability.NewHandle(2, descriptor.New("x", "X", nil), "/lib/libx.so", struct{}{})
	_, err = r.Add(notSystem)
	assert.ErrorIs(t, err, ErrNotSystem)

	assert.Equal(t, 0, r.Len())
	assert.False(t, r.Contains(notSystem))
}

func TestInstanceRegistry_DistinctHandlesForSameDescriptor(t *testing.T) {
	r := NewInstanceRegistry()
	first, second := newSystemHandle(1), newSystemHandle(2)

	_, err := r.Add(first)
	require.NoError(t, err)
	_, err = r.Add(second)
	require.NoError(t, err)

	assert.Equal(t, []*capability.Handle{first, second}, r.Snapshot())
}

func TestInstanceRegistry_ConcurrentAdds(t *testing.T) {
	r := NewInstanceRegistry()
	const workers = 32

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			_, err := r.Add(newSystemHandle(id))
			assert.NoError(t, err)
			_ = r.Snapshot()
		}(uint64(i))
	}
	wg.Wait()

	assert.Equal(t, workers, r.Len())
}

// TestInstanceRegistry_PropertyBased_SetSemantics tests that length equals the number of distinct handles added
func TestInstanceRegistry_PropertyBased_SetSemantics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pool := make([]*capability.Handle, rapid.IntRange(1, 8).Draw(t, "pool"))
		for i := range pool {
			pool[i] = newSystemHandle(uint64(i))
		}
		picks := rapid.SliceOf(rapid.IntRange(0, len(pool)-1)).Draw(t, "picks")

		r := NewInstanceRegistry()
		distinct := make(map[int]bool)
		for _, i := range picks {
			_, err := r.Add(pool[i])
			require.NoError(t, err)
			distinct[i] = true
		}

		assert.Equal(t, len(distinct), r.Len())
	})
}
