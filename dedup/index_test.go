package dedup

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainsOrAdd_FirstCallerWins(t *testing.T) {
	idx := New()

	first := idx.ContainsOrAdd("0xaa")
	second := idx.ContainsOrAdd("0xaa")

	assert.False(t, first, "first insertion must report not-already-present")
	assert.True(t, second, "second insertion of the same hash must report already-present")
	assert.Equal(t, 1, idx.Size())
}

func TestContainsOrAdd_ConcurrentSameHash_OnlyOneWinner(t *testing.T) {
	idx := New()

	const n = 64
	var wg sync.WaitGroup
	results := make([]bool, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = idx.ContainsOrAdd("0xbb")
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, already := range results {
		if !already {
			winners++
		}
	}
	require.Equal(t, 1, winners, "exactly one caller must win the race for a given hash")
	assert.Equal(t, 1, idx.Size())
}

func TestSeed_RebuildsFromTxStoreHashes(t *testing.T) {
	idx := New()
	idx.Seed([]string{"0x1", "0x2", "", "0x1"})

	assert.True(t, idx.ContainsOrAdd("0x1"))
	assert.True(t, idx.ContainsOrAdd("0x2"))
	assert.False(t, idx.ContainsOrAdd("0x3"))
	assert.Equal(t, 3, idx.Size())
}
