// Package conversation keeps each browsing session's chat log and drives a
// chat round-trip through the model.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cvdeck/cv-deck/backend/internal/model/chat"
	"github.com/cvdeck/cv-deck/backend/internal/storage/kv"
)

const (
	keyPrefix   = "conversation:"
	lockStripes = 64
	maxIDLen    = 128
)

// Store persists one turn sequence per session. Reads never fail: a missing,
// empty, or unreadable slot yields the seeded greeting.
type Store struct {
	kv     kv.Store
	ttl    time.Duration
	logger *zap.Logger
	locks  [lockStripes]sync.Mutex
}

// NewStore keeps each session's slot alive for ttl after its last save.
func NewStore(store kv.Store, ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{kv: store, ttl: ttl, logger: logger.Named("conversation")}
}

// ValidSessionID reports whether id is usable as a storage key: 1 to 128
// characters of letters, digits, '-' or '_'.
func ValidSessionID(id string) bool {
	if id == "" || len(id) > maxIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// Load returns the persisted turns, or the greeting alone.
func (s *Store) Load(ctx context.Context, sessionID string) []chat.Turn {
	raw, err := s.kv.Get(ctx, keyPrefix+sessionID)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Warn("load conversation failed", zap.String("session", sessionID), zap.Error(err))
		}
		return []chat.Turn{chat.Greeting()}
	}

	var turns []chat.Turn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		s.logger.Warn("discarding unreadable conversation", zap.String("session", sessionID), zap.Error(err))
		return []chat.Turn{chat.Greeting()}
	}
	if len(turns) == 0 {
		return []chat.Turn{chat.Greeting()}
	}
	return turns
}

// Save replaces the slot. Failures are logged, never returned.
func (s *Store) Save(ctx context.Context, sessionID string, turns []chat.Turn) {
	data, err := json.Marshal(turns)
	if err != nil {
		s.logger.Warn("encode conversation failed", zap.String("session", sessionID), zap.Error(err))
		return
	}
	if err := s.kv.Set(ctx, keyPrefix+sessionID, string(data), s.ttl); err != nil {
		s.logger.Warn("save conversation failed", zap.String("session", sessionID), zap.Error(err))
	}
}

// Append adds turn and returns the new in-memory sequence, whether or not
// it could be persisted.
func (s *Store) Append(ctx context.Context, sessionID string, turn chat.Turn) []chat.Turn {
	mu := s.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	turns := append(s.Load(ctx, sessionID), turn)
	s.Save(ctx, sessionID, turns)
	return turns
}

// UpdateLast replaces the last of the caller's turns with mutate's copy of
// it and saves the result. turns is the caller's in-memory sequence; the
// slot is not re-read, so a failed earlier save cannot lose turns.
func (s *Store) UpdateLast(ctx context.Context, sessionID string, turns []chat.Turn, mutate func(chat.Turn) chat.Turn) []chat.Turn {
	if len(turns) == 0 {
		return turns
	}
	last := len(turns) - 1
	turns[last] = mutate(turns[last])
	s.Save(ctx, sessionID, turns)
	return turns
}

// Push appends turn to the caller's in-memory sequence and saves it.
func (s *Store) Push(ctx context.Context, sessionID string, turns []chat.Turn, turn chat.Turn) []chat.Turn {
	turns = append(turns, turn)
	s.Save(ctx, sessionID, turns)
	return turns
}

func (s *Store) lock(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return &s.locks[h.Sum32()%lockStripes]
}
