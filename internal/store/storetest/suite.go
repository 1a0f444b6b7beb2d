// Package storetest provides a reusable compliance suite that every
// store.Store implementation must pass. Driver packages call Run from their
// own tests with a factory that yields a fresh, empty store.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiffler33/lean-insights/internal/model"
	"github.com/spiffler33/lean-insights/internal/store"
)

// Factory returns a fresh store for one subtest. Cleanup should be registered
// on t by the factory itself.
type Factory func(t *testing.T) store.Store

// Run executes the full compliance suite against the given factory.
func Run(t *testing.T, factory Factory) {
	t.Run("Entries", func(t *testing.T) { testEntries(t, factory) })
	t.Run("EntityPatterns", func(t *testing.T) { testEntityPatterns(t, factory) })
	t.Run("TemporalPatterns", func(t *testing.T) { testTemporalPatterns(t, factory) })
	t.Run("Streaks", func(t *testing.T) { testStreaks(t, factory) })
	t.Run("Ping", func(t *testing.T) {
		s := factory(t)
		require.NoError(t, s.Ping(context.Background()))
	})
}

func newUserID() string { return "user-" + uuid.New().String() }

func testEntries(t *testing.T, factory Factory) {
	ctx := context.Background()
	s := factory(t)
	userID := newUserID()

	created, err := s.Entries().Create(ctx, &model.Entry{
		UserID:  userID,
		Content: "Coffee with Sarah this morning #friends",
		Tags:    []string{"friends"},
		Enrichment: model.Enrichment{
			Emotion: "happy",
			Themes:  []string{"social"},
			People:  []model.Person{{Name: "Sarah", Sentiment: "positive"}},
			Urgency: model.UrgencyNone,
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.EntryID)
	require.False(t, created.CreationTime.IsZero())

	got, err := s.Entries().GetByID(ctx, userID, created.EntryID)
	require.NoError(t, err)
	assert.Equal(t, created.Content, got.Content)
	assert.Equal(t, []string{"friends"}, got.Tags)
	assert.Equal(t, "happy", got.Enrichment.Emotion)
	require.Len(t, got.Enrichment.People, 1)
	assert.Equal(t, "Sarah", got.Enrichment.People[0].Name)

	_, err = s.Entries().GetByID(ctx, userID, uuid.New().String())
	assert.ErrorIs(t, err, model.ErrNotFound)

	// second entry, earlier timestamp; list must come back newest first
	earlier := created.CreationTime.Add(-2 * time.Hour)
	old, err := s.Entries().Create(ctx, &model.Entry{
		UserID:       userID,
		Content:      "Gym session before work",
		CreationTime: earlier,
	})
	require.NoError(t, err)

	list, err := s.Entries().List(ctx, model.ListEntriesRequest{UserID: userID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, created.EntryID, list[0].EntryID)
	assert.Equal(t, old.EntryID, list[1].EntryID)

	// search matches content
	list, err = s.Entries().List(ctx, model.ListEntriesRequest{UserID: userID, Search: "Gym"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, old.EntryID, list[0].EntryID)

	// tag filter
	list, err = s.Entries().List(ctx, model.ListEntriesRequest{UserID: userID, Tag: "friends"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.EntryID, list[0].EntryID)

	// limit
	list, err = s.Entries().List(ctx, model.ListEntriesRequest{UserID: userID, Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)

	// no cross-user leakage
	list, err = s.Entries().List(ctx, model.ListEntriesRequest{UserID: newUserID()})
	require.NoError(t, err)
	assert.Empty(t, list)

	// update content and tags
	updated, err := s.Entries().UpdateContent(ctx, userID, created.EntryID, "Coffee with Sarah #social", []string{"social"})
	require.NoError(t, err)
	assert.Equal(t, "Coffee with Sarah #social", updated.Content)
	assert.Equal(t, []string{"social"}, updated.Tags)

	// update enrichment in place
	err = s.Entries().UpdateEnrichment(ctx, userID, old.EntryID, model.Enrichment{
		Emotion: "energized",
		Themes:  []string{"health"},
		Urgency: model.UrgencyLow,
	})
	require.NoError(t, err)
	got, err = s.Entries().GetByID(ctx, userID, old.EntryID)
	require.NoError(t, err)
	assert.Equal(t, "energized", got.Enrichment.Emotion)
	assert.Equal(t, []string{"health"}, got.Enrichment.Themes)

	// CountSince honors the cutoff
	n, err := s.Entries().CountSince(ctx, userID, created.CreationTime.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = s.Entries().CountSince(ctx, userID, earlier.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// soft delete hides the entry from every reader
	require.NoError(t, s.Entries().Delete(ctx, userID, created.EntryID))
	_, err = s.Entries().GetByID(ctx, userID, created.EntryID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	list, err = s.Entries().List(ctx, model.ListEntriesRequest{UserID: userID})
	require.NoError(t, err)
	require.Len(t, list, 1)

	// deleting twice is NotFound
	assert.ErrorIs(t, s.Entries().Delete(ctx, userID, created.EntryID), model.ErrNotFound)
}

func testEntityPatterns(t *testing.T, factory Factory) {
	ctx := context.Background()
	s := factory(t)
	userID := newUserID()

	_, err := s.EntityPatterns().Get(ctx, userID, "Sarah")
	assert.ErrorIs(t, err, model.ErrNotFound)

	now := time.Now().UTC().Truncate(time.Second)
	p := &model.EntityPattern{
		UserID:              userID,
		Entity:              "Sarah",
		MentionCount:        3,
		ThemeCorrelations:   map[string]int{"social": 2},
		EmotionCorrelations: map[string]int{"happy": 3},
		UrgencyCorrelations: map[string]int{"none": 3},
		HourCounts:          map[int]int{9: 2, 14: 1},
		WeekdayCounts:       map[string]int{"monday": 3},
		ConfidenceScore:     0.4,
		FirstSeen:           now.Add(-48 * time.Hour),
		LastSeen:            now,
	}
	require.NoError(t, s.EntityPatterns().Put(ctx, p))

	got, err := s.EntityPatterns().Get(ctx, userID, "Sarah")
	require.NoError(t, err)
	assert.Equal(t, 3, got.MentionCount)
	assert.Equal(t, map[string]int{"happy": 3}, got.EmotionCorrelations)
	assert.Equal(t, map[int]int{9: 2, 14: 1}, got.HourCounts)
	assert.InDelta(t, 0.4, got.ConfidenceScore, 1e-9)

	// entity identity is exact and case sensitive
	_, err = s.EntityPatterns().Get(ctx, userID, "sarah")
	assert.ErrorIs(t, err, model.ErrNotFound)

	// upsert replaces the whole row
	p.MentionCount = 5
	p.ConfidenceScore = 0.6
	p.EmotionCorrelations["happy"] = 5
	require.NoError(t, s.EntityPatterns().Put(ctx, p))
	got, err = s.EntityPatterns().Get(ctx, userID, "Sarah")
	require.NoError(t, err)
	assert.Equal(t, 5, got.MentionCount)
	assert.InDelta(t, 0.6, got.ConfidenceScore, 1e-9)

	require.NoError(t, s.EntityPatterns().Put(ctx, &model.EntityPattern{
		UserID: userID, Entity: "gym", MentionCount: 12,
		FirstSeen: now.Add(-90 * 24 * time.Hour), LastSeen: now,
	}))

	// list orders by mention count descending
	list, err := s.EntityPatterns().List(ctx, userID, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "gym", list[0].Entity)
	assert.Equal(t, "Sarah", list[1].Entity)

	list, err = s.EntityPatterns().List(ctx, userID, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "gym", list[0].Entity)
}

func testTemporalPatterns(t *testing.T, factory Factory) {
	ctx := context.Background()
	s := factory(t)
	userID := newUserID()

	_, err := s.TemporalPatterns().Get(ctx, userID, "morning", "monday")
	assert.ErrorIs(t, err, model.ErrNotFound)

	p := &model.TemporalPattern{
		UserID:          userID,
		TimeBlock:       "morning",
		Weekday:         "monday",
		CommonThemes:    []string{"work", "health"},
		CommonEmotions:  []string{"focused"},
		SampleCount:     6,
		ConfidenceScore: 0.4,
	}
	require.NoError(t, s.TemporalPatterns().Put(ctx, p))

	got, err := s.TemporalPatterns().Get(ctx, userID, "morning", "monday")
	require.NoError(t, err)
	assert.Equal(t, []string{"work", "health"}, got.CommonThemes)
	assert.Equal(t, 6, got.SampleCount)

	// upsert bumps in place
	p.SampleCount = 11
	p.ConfidenceScore = 0.6
	require.NoError(t, s.TemporalPatterns().Put(ctx, p))
	got, err = s.TemporalPatterns().Get(ctx, userID, "morning", "monday")
	require.NoError(t, err)
	assert.Equal(t, 11, got.SampleCount)

	require.NoError(t, s.TemporalPatterns().Put(ctx, &model.TemporalPattern{
		UserID: userID, TimeBlock: "all", Weekday: "weekday", SampleCount: 30,
	}))

	list, err := s.TemporalPatterns().List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 30, list[0].SampleCount)
}

func testStreaks(t *testing.T, factory Factory) {
	ctx := context.Background()
	s := factory(t)
	userID := newUserID()

	_, err := s.Streaks().Get(ctx, userID, model.StreakExercise, "")
	assert.ErrorIs(t, err, model.ErrNotFound)

	day := time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC)
	started := day.Add(-3 * 24 * time.Hour)
	st := &model.Streak{
		UserID:        userID,
		StreakType:    model.StreakExercise,
		CurrentCount:  4,
		BestCount:     7,
		LastEntryDate: &day,
		StartedAt:     &started,
		IsActive:      true,
	}
	require.NoError(t, s.Streaks().Put(ctx, st))

	got, err := s.Streaks().Get(ctx, userID, model.StreakExercise, "")
	require.NoError(t, err)
	assert.Equal(t, 4, got.CurrentCount)
	assert.Equal(t, 7, got.BestCount)
	assert.True(t, got.IsActive)
	require.NotNil(t, got.LastEntryDate)
	assert.True(t, got.LastEntryDate.Equal(day))
	assert.Nil(t, got.BrokenAt)

	// break the streak
	broken := day.Add(48 * time.Hour)
	st.CurrentCount = 0
	st.IsActive = false
	st.BrokenAt = &broken
	require.NoError(t, s.Streaks().Put(ctx, st))
	got, err = s.Streaks().Get(ctx, userID, model.StreakExercise, "")
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentCount)
	assert.False(t, got.IsActive)
	require.NotNil(t, got.BrokenAt)

	require.NoError(t, s.Streaks().Put(ctx, &model.Streak{
		UserID: userID, StreakType: model.StreakMood, StreakName: "happy", CurrentCount: 2,
	}))

	list, err := s.Streaks().List(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
