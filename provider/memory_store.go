package provider

import (
	"context"
	"sync"
	"time"

	"github.com/QQHKX/rollcall-module/game"
)

// MemoryStore implements StoreProvider in process memory. Used when no
// Redis address is configured and by tests.
type MemoryStore struct {
	mu       sync.Mutex
	state    *State
	history  []game.RollResult
	capacity int
}

// NewMemoryStore creates an in-memory store with the given history bound.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = game.DefaultHistoryCapacity
	}
	return &MemoryStore{capacity: capacity}
}

func (s *MemoryStore) LoadState(ctx context.Context) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil, nil
	}
	copied := *s.state
	copied.Students = append([]game.Student(nil), s.state.Students...)
	copied.Pool = append([]string(nil), s.state.Pool...)
	return &copied, nil
}

func (s *MemoryStore) SaveState(ctx context.Context, state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *state
	copied.Students = append([]game.Student(nil), state.Students...)
	copied.Pool = append([]string(nil), state.Pool...)
	copied.SavedAt = time.Now().UnixMilli()
	s.state = &copied
	return nil
}

func (s *MemoryStore) AppendHistory(ctx context.Context, result game.RollResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, result)
	if over := len(s.history) - s.capacity; over > 0 {
		s.history = s.history[over:]
	}
	return nil
}

func (s *MemoryStore) History(ctx context.Context, limit int) ([]game.RollResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.history
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	out := make([]game.RollResult, len(records))
	copy(out, records)
	return out, nil
}

func (s *MemoryStore) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	return nil
}
