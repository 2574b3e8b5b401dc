package randutil

import (
	rand "math/rand/v2"
	"sync"
	"time"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// The helper centralises how we derive the two 64-bit seeds required by rand/v2
// so that all call sites get reproducible sequences.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// Seed returns *seed when set, otherwise a time-derived seed. The chosen seed
// is returned so callers can log it and reproduce a run.
func Seed(seed *int64) int64 {
	if seed != nil {
		return *seed
	}
	return time.Now().UnixNano()
}

// Source hands out independent child generators from one seeded parent. Each
// session gets its own child so shoes never share RNG state. Safe for
// concurrent use.
type Source struct {
	mu     sync.Mutex
	parent *rand.Rand
}

// NewSource creates a Source rooted at seed
func NewSource(seed int64) *Source {
	return &Source{parent: New(seed)}
}

// Child derives a new deterministic generator. The sequence of children is
// reproducible for a given root seed.
func (s *Source) Child() *rand.Rand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return New(int64(s.parent.Uint64()))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
