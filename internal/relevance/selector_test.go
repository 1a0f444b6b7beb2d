package relevance

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiffler33/lean-insights/internal/model"
	"github.com/spiffler33/lean-insights/internal/store"
	"github.com/spiffler33/lean-insights/internal/store/sqlite"
	"github.com/spiffler33/lean-insights/internal/temporal"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "relevance.db"))
	require.NoError(t, err)
	return s
}

func TestSelector_EntityInclusion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sel := NewSelector(s.EntityPatterns(), s.TemporalPatterns(), zerolog.Nop())
	now := time.Date(2025, 10, 13, 9, 0, 0, 0, time.UTC)

	// mature pattern mentioned today
	require.NoError(t, s.EntityPatterns().Put(ctx, &model.EntityPattern{
		UserID: "u1", Entity: "Sarah", MentionCount: 10,
		ThemeCorrelations:   map[string]int{"work": 10},
		EmotionCorrelations: map[string]int{"focused": 10},
		ConfidenceScore:     0.8,
		FirstSeen:           now.AddDate(0, -2, 0),
		LastSeen:            now,
	}))
	// too few mentions
	require.NoError(t, s.EntityPatterns().Put(ctx, &model.EntityPattern{
		UserID: "u1", Entity: "Tom", MentionCount: 3,
		ConfidenceScore: 0.4,
		FirstSeen:       now.AddDate(0, 0, -7), LastSeen: now,
	}))
	// stale: stored 0.8 but last seen 100 days ago, effective 0.32
	require.NoError(t, s.EntityPatterns().Put(ctx, &model.EntityPattern{
		UserID: "u1", Entity: "Marcus", MentionCount: 12,
		ConfidenceScore: 0.8,
		FirstSeen:       now.AddDate(-1, 0, 0),
		LastSeen:        now.AddDate(0, 0, -100),
	}))

	got, err := sel.Context(ctx, "u1", "", []string{"Sarah", "Tom", "Marcus", "Nobody"}, now)
	require.NoError(t, err)
	assert.Equal(t, "Sarah: 10 mentions [work 100%] [focused 100%]", got)
}

func TestSelector_TemporalFallbackTiers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sel := NewSelector(s.EntityPatterns(), s.TemporalPatterns(), zerolog.Nop())
	// Monday morning
	now := time.Date(2025, 10, 13, 9, 0, 0, 0, time.UTC)

	// only the block-wide row is mature; the specific row exists but is thin
	require.NoError(t, s.TemporalPatterns().Put(ctx, &model.TemporalPattern{
		UserID: "u1", TimeBlock: temporal.BlockMorning, Weekday: "monday",
		SampleCount: 4, ConfidenceScore: 0,
	}))
	require.NoError(t, s.TemporalPatterns().Put(ctx, &model.TemporalPattern{
		UserID: "u1", TimeBlock: temporal.BlockMorning, Weekday: temporal.WeekdayAll,
		CommonThemes: []string{"work"}, CommonEmotions: []string{"focused"},
		SampleCount: 15, ConfidenceScore: 0.6,
	}))

	got, err := sel.Context(ctx, "u1", "no names here", nil, now)
	require.NoError(t, err)
	assert.Contains(t, got, "about work")
	assert.Contains(t, got, "(15 entries)")

	// third tier kicks in when the first two are absent
	other := time.Date(2025, 10, 18, 14, 0, 0, 0, time.UTC) // Saturday afternoon
	require.NoError(t, s.TemporalPatterns().Put(ctx, &model.TemporalPattern{
		UserID: "u1", TimeBlock: temporal.BlockAll, Weekday: temporal.ClassWeekend,
		CommonThemes: []string{"family"}, SampleCount: 12, ConfidenceScore: 0.6,
	}))
	got, err = sel.Context(ctx, "u1", "weekend note", nil, other)
	require.NoError(t, err)
	assert.Contains(t, got, "about family")
}

func TestSelector_EmptyWhenNothingQualifies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sel := NewSelector(s.EntityPatterns(), s.TemporalPatterns(), zerolog.Nop())

	got, err := sel.Context(ctx, "u1", "Met Alice at the park", nil, time.Now())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCandidateNames(t *testing.T) {
	names := CandidateNames("Today I met Sarah and Tom's brother at the Gym")
	assert.Equal(t, []string{"Sarah", "Tom", "Gym"}, names)

	assert.Empty(t, CandidateNames("all lowercase text"))
	assert.Empty(t, CandidateNames(""))
}

func TestCombined_Caps(t *testing.T) {
	assert.Equal(t, "pattern", Combined("pattern", ""))
	assert.Equal(t, "facts", Combined("", "facts"))

	// pattern block shrinks to fit the overall cap; facts survive whole
	longPattern := strings.Repeat("p ", 600)
	got := Combined(longPattern, "fact one two")
	words := strings.Fields(got)
	assert.LessOrEqual(t, len(words), 500)
	assert.Contains(t, got, "fact one two")
}

func TestFormatEntity_TopTwoThemes(t *testing.T) {
	p := &model.EntityPattern{
		Entity: "Sarah", MentionCount: 10,
		ThemeCorrelations:   map[string]int{"work": 7, "social": 5, "travel": 1},
		EmotionCorrelations: map[string]int{"happy": 6, "tired": 2},
	}
	assert.Equal(t, "Sarah: 10 mentions [work 70%, social 50%] [happy 60%]", FormatEntity(p))
}
