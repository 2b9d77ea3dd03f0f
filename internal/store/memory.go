// internal/store/memory.go
//
// Score records for finished games, plus the in-memory Store implementation.
// Used when no SCORES_DB is configured, and in tests.
//
// Characteristics:
//   - Keeps every Result keyed by GameID; saving the same game twice replaces it.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrInvalidResult is returned by Save for a result without a game id.
var ErrInvalidResult = errors.New("result has no game id")

// Result is the outcome of one finished game.
type Result struct {
	GameID     string    `json:"gameId"`
	Score      int       `json:"score"`
	Lines      int       `json:"lines"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Store records finished games. Implementations may be backed by memory
// (this file) or SQLite (sqlite.go).
type Store interface {
	// Save records r. Saving a GameID again replaces the earlier result.
	Save(ctx context.Context, r Result) error

	// Top returns up to limit results, best score first. Ties go to the
	// earlier finish. A non-positive limit uses DefaultLimit.
	Top(ctx context.Context, limit int) ([]Result, error)
}

// DefaultLimit bounds Top when the caller passes no limit.
const DefaultLimit = 20

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu      sync.RWMutex      // guards results
	results map[string]Result // keyed by Result.GameID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{results: make(map[string]Result)}
}

func (m *memory) Save(ctx context.Context, r Result) error {
	if r.GameID == "" {
		return ErrInvalidResult
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[r.GameID] = r
	return nil
}

func (m *memory) Top(ctx context.Context, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	m.mu.RLock()
	out := make([]Result, 0, len(m.results))
	for _, r := range m.results {
		out = append(out, r)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return better(out[i], out[j]) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// better orders results by score desc, then finish time asc, then id.
func better(a, b Result) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.FinishedAt.Equal(b.FinishedAt) {
		return a.FinishedAt.Before(b.FinishedAt)
	}
	return a.GameID < b.GameID
}
