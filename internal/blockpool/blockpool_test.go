package blockpool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type node struct {
	val int
}

func TestPool_InvalidCapacity(t *testing.T) {
	_, err := New[node](0, false)
	require.Error(t, err)

	_, err = New[node](-1, false)
	require.Error(t, err)
}

func TestPool_AllocateFromArenaThenHeapFallback(t *testing.T) {
	p, err := New[node](2, false)
	require.NoError(t, err)

	a := p.Allocate()
	b := p.Allocate()
	require.NotNil(t, a)
	require.NotNil(t, b)
	require.Equal(t, 0, p.AvailableBlocks())

	// Pool exhausted: falls back to heap, never errors.
	c := p.Allocate()
	require.NotNil(t, c)
}

func TestPool_FreeReusesArenaSlot(t *testing.T) {
	p, err := New[node](1, false)
	require.NoError(t, err)

	a := p.Allocate()
	a.val = 42

	p.Free(a)
	require.Equal(t, 1, p.ReusableBlocks())

	b := p.Allocate()
	require.Same(t, a, b)
	require.Equal(t, 0, b.val, "freed slot must be zeroed before reuse")
}

func TestPool_FreeOfHeapFallbackIsNotPushedToFreeStack(t *testing.T) {
	p, err := New[node](1, false)
	require.NoError(t, err)

	p.Allocate() // exhaust arena

	heapNode := p.Allocate() // heap fallback
	p.Free(heapNode)

	require.Equal(t, 0, p.ReusableBlocks())
}

func TestPool_ConcurrentAllocateFree(t *testing.T) {
	p, err := New[node](64, true)
	require.NoError(t, err)

	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < 100; j++ {
				n := p.Allocate()
				n.val = j
				p.Free(n)
			}
		}()
	}

	wg.Wait()
}

func TestPool_CleanupIsIdempotent(t *testing.T) {
	p, err := New[node](4, false)
	require.NoError(t, err)

	p.Allocate()
	p.Cleanup()
	p.Cleanup()

	require.Equal(t, 0, p.AvailableBlocks())
}
