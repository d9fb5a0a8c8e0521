package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	coreredis "github.com/QQHKX/rollcall-module/db/redis"
	"github.com/QQHKX/rollcall-module/game"
	"github.com/rs/zerolog"
)

// State is the persisted application state: the roster, the no-repeat pool
// and the user settings. History is persisted separately as a capped list.
type State struct {
	Students []game.Student `json:"students"`
	Pool     []string       `json:"pool"`
	Settings game.Settings  `json:"settings"`
	SavedAt  int64          `json:"savedAt"`
}

// StoreProvider persists roster state and draw history.
type StoreProvider interface {
	// LoadState returns the persisted state, or nil when none exists.
	LoadState(ctx context.Context) (*State, error)
	SaveState(ctx context.Context, state *State) error
	AppendHistory(ctx context.Context, result game.RollResult) error
	// History returns up to limit most recent records in insertion order;
	// limit <= 0 means all.
	History(ctx context.Context, limit int) ([]game.RollResult, error)
	ClearHistory(ctx context.Context) error
}

// Key layout. The version tag guards against schema drift: a decode failure
// on an old blob is treated as no state rather than corrupting the session.
const (
	stateKey   = "rollcall:v2:state"
	historyKey = "rollcall:v2:history"
)

// RedisStore implements StoreProvider on Redis. State is a single JSON
// blob; history is a list trimmed to capacity on every append.
type RedisStore struct {
	redis    *coreredis.Client
	capacity int
	logger   zerolog.Logger
}

// NewRedisStore creates a Redis-backed store. capacity bounds the
// persisted history list.
func NewRedisStore(redisClient *coreredis.Client, capacity int, logger zerolog.Logger) *RedisStore {
	if capacity <= 0 {
		capacity = game.DefaultHistoryCapacity
	}
	return &RedisStore{
		redis:    redisClient,
		capacity: capacity,
		logger:   logger.With().Str("component", "redis-store").Logger(),
	}
}

// LoadState retrieves persisted state from Redis
func (s *RedisStore) LoadState(ctx context.Context) (*State, error) {
	var state State
	err := s.redis.GetJSON(ctx, stateKey, &state)
	if errors.Is(err, coreredis.ErrKeyNotFound) {
		s.logger.Debug().Str("key", stateKey).Msg("no persisted state")
		return nil, nil
	}
	if err != nil {
		var jsonErr *json.SyntaxError
		if errors.As(err, &jsonErr) {
			s.logger.Warn().Err(err).Msg("persisted state unreadable, starting fresh")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	return &state, nil
}

// SaveState persists state to Redis
func (s *RedisStore) SaveState(ctx context.Context, state *State) error {
	state.SavedAt = time.Now().UnixMilli()
	if err := s.redis.SetJSON(ctx, stateKey, state, 0); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// AppendHistory appends one record and trims the list to capacity
func (s *RedisStore) AppendHistory(ctx context.Context, result game.RollResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := s.redis.RPush(ctx, historyKey, data); err != nil {
		return err
	}
	return s.redis.LTrim(ctx, historyKey, int64(-s.capacity), -1)
}

// History returns persisted records in insertion order
func (s *RedisStore) History(ctx context.Context, limit int) ([]game.RollResult, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	raw, err := s.redis.LRange(ctx, historyKey, start, -1)
	if err != nil {
		return nil, err
	}
	results := make([]game.RollResult, 0, len(raw))
	for _, item := range raw {
		var r game.RollResult
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			s.logger.Warn().Err(err).Msg("skipping unreadable history record")
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

// ClearHistory drops the persisted history list
func (s *RedisStore) ClearHistory(ctx context.Context) error {
	return s.redis.Delete(ctx, historyKey)
}
