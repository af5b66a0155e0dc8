package pairlock_test

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkmatch/engine/internal/pairlock"
)

func TestPairKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, "3:7", pairlock.PairKey(7, 3))
	assert.Equal(t, pairlock.PairKey(1, 2), pairlock.PairKey(2, 1))
}

func TestOrdered(t *testing.T) {
	low, high := pairlock.Ordered(9, 4)
	assert.Equal(t, uint64(4), low)
	assert.Equal(t, uint64(9), high)
}

// Both swipe directions must derive the same match id with no
// coordination, and distinct pairs must never collide.
func TestMatchIDDeterministic(t *testing.T) {
	id := pairlock.MatchID(1, 2)
	assert.Equal(t, id, pairlock.MatchID(2, 1))
	assert.NotEqual(t, id, pairlock.MatchID(1, 3))

	_, err := uuid.Parse(id)
	require.NoError(t, err)
}

func TestStripedSerializesSameKey(t *testing.T) {
	locks := pairlock.NewStriped(8)

	const goroutines = 100
	var counter int
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			unlock := locks.Lock(pairlock.PairKey(1, 2))
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines, counter)
}

func TestNewStripedFloorsAtOne(t *testing.T) {
	locks := pairlock.NewStriped(0)
	unlock := locks.Lock("any")
	unlock()
}
