package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/spiffler33/lean-insights/internal/model"
	"github.com/spiffler33/lean-insights/internal/pattern"
	"github.com/spiffler33/lean-insights/internal/store"
	"github.com/spiffler33/lean-insights/internal/temporal"
)

// TemporalTracker folds enriched entries into per-time-bucket profiles.
type TemporalTracker struct {
	patterns store.TemporalPatterns
	log      zerolog.Logger
}

func NewTemporalTracker(patterns store.TemporalPatterns, log zerolog.Logger) *TemporalTracker {
	return &TemporalTracker{patterns: patterns, log: log}
}

// Apply updates the three bucket rows an entry belongs to: the specific
// (block, weekday) pair, the block across all days, and the all-blocks row
// for the weekday class. Themes and emotions merge as sets; repeats within a
// bucket do not inflate distinctiveness, which intentionally differs from the
// entity tracker's counted correlations.
func (t *TemporalTracker) Apply(ctx context.Context, entry *model.Entry) error {
	b := temporal.BucketFor(entry.CreationTime)
	keys := [][2]string{
		{b.TimeBlock, b.Weekday},
		{b.TimeBlock, temporal.WeekdayAll},
		{temporal.BlockAll, b.WeekdayClass},
	}

	var firstErr error
	for _, k := range keys {
		if err := t.applyOne(ctx, entry, k[0], k[1]); err != nil {
			t.log.Warn().Err(err).
				Str("userId", entry.UserID).
				Str("timeBlock", k[0]).
				Str("weekday", k[1]).
				Msg("temporal pattern update failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (t *TemporalTracker) applyOne(ctx context.Context, entry *model.Entry, timeBlock, weekday string) error {
	p, err := t.patterns.Get(ctx, entry.UserID, timeBlock, weekday)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrNotFound):
		p = &model.TemporalPattern{
			UserID:    entry.UserID,
			TimeBlock: timeBlock,
			Weekday:   weekday,
		}
	default:
		return fmt.Errorf("load temporal pattern: %w", err)
	}

	p.SampleCount++
	p.CommonThemes = union(p.CommonThemes, entry.Enrichment.Themes)
	if e := entry.Enrichment.Emotion; e != "" {
		p.CommonEmotions = union(p.CommonEmotions, []string{e})
	}
	p.ConfidenceScore = pattern.TemporalConfidence(p.SampleCount)

	if err := t.patterns.Put(ctx, p); err != nil {
		return fmt.Errorf("persist temporal pattern: %w", err)
	}
	return nil
}

// union merges add into set, preserving set semantics with sorted output so
// persisted rows are stable across replays.
func union(set, add []string) []string {
	if len(add) == 0 {
		return set
	}
	seen := make(map[string]struct{}, len(set)+len(add))
	for _, s := range set {
		seen[s] = struct{}{}
	}
	for _, s := range add {
		if s != "" {
			seen[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
