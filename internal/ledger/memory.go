package ledger

import (
	"context"
	"sync"
)

// DefaultMemoryDepth is how many rounds Memory keeps per session
const DefaultMemoryDepth = 50

// Memory keeps the last few rounds of each session in memory.
type Memory struct {
	mu       sync.RWMutex
	depth    int
	sessions map[string][]Round
}

// NewMemory creates a Memory keeping depth rounds per session
func NewMemory(depth int) *Memory {
	if depth <= 0 {
		depth = DefaultMemoryDepth
	}
	return &Memory{depth: depth, sessions: make(map[string][]Round)}
}

func (m *Memory) Record(_ context.Context, round Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rounds := append(m.sessions[round.SessionID], round)
	if len(rounds) > m.depth {
		rounds = append([]Round(nil), rounds[len(rounds)-m.depth:]...)
	}
	m.sessions[round.SessionID] = rounds
	return nil
}

func (m *Memory) History(_ context.Context, sessionID string, limit int) ([]Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rounds := m.sessions[sessionID]
	if limit <= 0 || limit > len(rounds) {
		limit = len(rounds)
	}
	out := make([]Round, 0, limit)
	for i := len(rounds) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, rounds[i])
	}
	return out, nil
}

// Forget drops the history of an evicted session
func (m *Memory) Forget(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
}

func (m *Memory) Close() error { return nil }
