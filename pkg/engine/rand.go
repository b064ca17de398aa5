package engine

import (
	"math/rand"
	"sync"
)

// lockedSource guards a rand.Source64 with a mutex so one seeded
// *rand.Rand can be shared by the activity and attack goroutines, the
// same way math/rand protects its global source.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source64
}

func (s *lockedSource) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Int63()
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

func (s *lockedSource) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Seed(seed)
}

// newLockedRand returns a seeded *rand.Rand safe for concurrent use.
func newLockedRand(seed int64) *rand.Rand {
	src := rand.NewSource(seed).(rand.Source64)
	return rand.New(&lockedSource{src: src})
}
