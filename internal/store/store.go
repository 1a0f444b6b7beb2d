package store

import (
	"context"
	"time"

	"github.com/spiffler33/lean-insights/internal/model"
)

// Store exposes persistence operations required by the trackers and
// services. Implementations live under internal/store/<driver>/
// (postgres, sqlite). All rows are keyed by user id; no cross-user reads
// or writes exist anywhere in this interface.
type Store interface {
	Entries() Entries
	EntityPatterns() EntityPatterns
	TemporalPatterns() TemporalPatterns
	Streaks() Streaks

	// Ping reports connectivity for health checks.
	Ping(ctx context.Context) error
}

// Entries is the journal entry log. It is the source of truth; pattern rows
// are a derived cache that can be rebuilt by replaying entries.
type Entries interface {
	Create(ctx context.Context, e *model.Entry) (*model.Entry, error)
	GetByID(ctx context.Context, userID, entryID string) (*model.Entry, error)
	List(ctx context.Context, req model.ListEntriesRequest) ([]*model.Entry, error)
	UpdateContent(ctx context.Context, userID, entryID, content string, tags []string) (*model.Entry, error)
	UpdateEnrichment(ctx context.Context, userID, entryID string, enr model.Enrichment) error
	// Delete soft-deletes; readers never return deleted entries.
	Delete(ctx context.Context, userID, entryID string) error
	// CountSince counts live entries created at or after the cutoff.
	CountSince(ctx context.Context, userID string, cutoff time.Time) (int, error)
}

// EntityPatterns stores one row per (user, entity surface string).
// Put is a full-row upsert executed as a single statement so concurrent
// readers never observe a torn row; write-write ordering is the caller's
// responsibility (updates for one user are serialized upstream).
type EntityPatterns interface {
	Get(ctx context.Context, userID, entity string) (*model.EntityPattern, error)
	Put(ctx context.Context, p *model.EntityPattern) error
	// List returns the user's patterns ordered by mention count descending.
	// limit <= 0 means no limit.
	List(ctx context.Context, userID string, limit int) ([]*model.EntityPattern, error)
}

// TemporalPatterns stores one row per (user, time_block, weekday).
type TemporalPatterns interface {
	Get(ctx context.Context, userID, timeBlock, weekday string) (*model.TemporalPattern, error)
	Put(ctx context.Context, p *model.TemporalPattern) error
	List(ctx context.Context, userID string) ([]*model.TemporalPattern, error)
}

// Streaks stores one row per (user, streak_type, streak_name).
type Streaks interface {
	Get(ctx context.Context, userID, streakType, streakName string) (*model.Streak, error)
	Put(ctx context.Context, s *model.Streak) error
	List(ctx context.Context, userID string) ([]*model.Streak, error)
}
