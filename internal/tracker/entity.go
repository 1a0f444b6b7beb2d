// Package tracker maintains the derived pattern state: per-entity correlation
// profiles, per-time-bucket profiles and streak counters. Trackers are invoked
// as background jobs after an entry is saved; entry persistence never waits on
// them and a failed update only costs freshness, never data (patterns can be
// rebuilt by replaying entries).
package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/spiffler33/lean-insights/internal/model"
	"github.com/spiffler33/lean-insights/internal/pattern"
	"github.com/spiffler33/lean-insights/internal/store"
	"github.com/spiffler33/lean-insights/internal/temporal"
)

// EntityTracker folds enriched entries into per-entity profiles.
type EntityTracker struct {
	patterns store.EntityPatterns
	log      zerolog.Logger
}

func NewEntityTracker(patterns store.EntityPatterns, log zerolog.Logger) *EntityTracker {
	return &EntityTracker{patterns: patterns, log: log}
}

// Apply updates one EntityPattern row per distinct name on the entry.
// Duplicate mentions of a name within the entry each count: a name appearing
// twice adds 2 to the mention count and to every correlation bucket.
func (t *EntityTracker) Apply(ctx context.Context, entry *model.Entry) error {
	names := entry.PeopleNames()
	if len(names) == 0 {
		return nil
	}

	occurrences := make(map[string]int, len(names))
	order := make([]string, 0, len(names))
	for _, name := range names {
		if occurrences[name] == 0 {
			order = append(order, name)
		}
		occurrences[name]++
	}

	bucket := temporal.BucketFor(entry.CreationTime)

	var firstErr error
	for _, name := range order {
		if err := t.applyOne(ctx, entry, name, occurrences[name], bucket); err != nil {
			// one entity failing must not starve the others
			t.log.Warn().Err(err).
				Str("userId", entry.UserID).
				Str("entity", name).
				Msg("entity pattern update failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (t *EntityTracker) applyOne(ctx context.Context, entry *model.Entry, name string, occ int, bucket temporal.Bucket) error {
	p, err := t.patterns.Get(ctx, entry.UserID, name)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrNotFound):
		p = &model.EntityPattern{
			UserID:    entry.UserID,
			Entity:    name,
			FirstSeen: entry.CreationTime,
		}
	default:
		return fmt.Errorf("load entity pattern: %w", err)
	}

	if p.ThemeCorrelations == nil {
		p.ThemeCorrelations = map[string]int{}
	}
	if p.EmotionCorrelations == nil {
		p.EmotionCorrelations = map[string]int{}
	}
	if p.UrgencyCorrelations == nil {
		p.UrgencyCorrelations = map[string]int{}
	}
	if p.HourCounts == nil {
		p.HourCounts = map[int]int{}
	}
	if p.WeekdayCounts == nil {
		p.WeekdayCounts = map[string]int{}
	}

	p.MentionCount += occ
	for _, theme := range entry.Enrichment.Themes {
		p.ThemeCorrelations[theme] += occ
	}
	if e := entry.Enrichment.Emotion; e != "" {
		p.EmotionCorrelations[e] += occ
	}
	// "none" carries no signal
	if u := entry.Enrichment.Urgency; u != "" && u != model.UrgencyNone {
		p.UrgencyCorrelations[u] += occ
	}
	p.HourCounts[bucket.Hour] += occ
	p.WeekdayCounts[bucket.Weekday] += occ

	if entry.CreationTime.After(p.LastSeen) {
		p.LastSeen = entry.CreationTime
	}
	p.ConfidenceScore = pattern.EntityConfidence(p.MentionCount)

	if err := t.patterns.Put(ctx, p); err != nil {
		return fmt.Errorf("persist entity pattern: %w", err)
	}
	return nil
}
