// Package pairlock serializes match-affecting operations per user
// pair. A fixed pool of mutex stripes replaces any grow-and-clear lock
// map: the pool is sized once and never resized or cleared at runtime,
// so a lock can never be destroyed while another goroutine holds or
// waits on it. Distinct pairs may share a stripe; that only adds
// spurious serialization, never incorrect concurrency.
package pairlock

import (
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
)

// Namespace for deterministic match ids. Both swipe directions of a
// pair derive the same UUID with no coordination.
var matchNamespace = uuid.MustParse("7d8f4b1e-92c3-4a6d-b5e0-3f9a2c815d47")

// PairKey returns the order-independent key for two user ids,
// lexicographically smaller id first. A→B and B→A contend on the same
// key, which is what prevents duplicate concurrent match creation.
func PairKey(a, b uint64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// Ordered returns the two ids in canonical (low, high) order.
func Ordered(a, b uint64) (uint64, uint64) {
	if a > b {
		return b, a
	}
	return a, b
}

// MatchID derives the canonical match id for a pair.
func MatchID(a, b uint64) string {
	return uuid.NewSHA1(matchNamespace, []byte(PairKey(a, b))).String()
}

// Striped is a fixed-size pool of mutexes addressed by string key.
type Striped struct {
	stripes []sync.Mutex
}

// NewStriped builds a pool of n stripes. n should be large enough that
// collision contention is rare; 1024 covers typical worker counts.
func NewStriped(n int) *Striped {
	if n < 1 {
		n = 1
	}
	return &Striped{stripes: make([]sync.Mutex, n)}
}

// Lock acquires the stripe for key and returns its unlock func.
func (s *Striped) Lock(key string) func() {
	m := &s.stripes[s.index(key)]
	m.Lock()
	return m.Unlock
}

func (s *Striped) index(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(s.stripes)))
}
