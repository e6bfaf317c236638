package cache_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/preflight/internal/cache"
)

func TestMemoGetOrComputeCallsOnce(t *testing.T) {
	m := cache.NewMemo[string, int]()

	calls := 0
	compute := func() (int, error) {
		calls++

		return 42, nil
	}

	v1, err := m.GetOrCompute("k", compute)
	require.NoError(t, err)
	require.Equal(t, 42, v1)

	v2, err := m.GetOrCompute("k", compute)
	require.NoError(t, err)
	require.Equal(t, 42, v2)
	require.Equal(t, 1, calls)
}

func TestMemoConcurrentAccess(t *testing.T) {
	m := cache.NewMemo[int, int]()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			_, _ = m.GetOrCompute(i%5, func() (int, error) { return i, nil })
		}(i)
	}
	wg.Wait()

	require.LessOrEqual(t, m.Len(), 5)
}
