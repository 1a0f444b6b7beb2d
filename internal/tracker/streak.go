package tracker

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/spiffler33/lean-insights/internal/model"
	"github.com/spiffler33/lean-insights/internal/store"
)

// exerciseThemes marks a day as an exercise day when any entry that day
// carries one of these themes.
var exerciseThemes = map[string]struct{}{
	"exercise": {}, "gym": {}, "workout": {}, "fitness": {},
	"running": {}, "sports": {}, "yoga": {},
}

// StreakTracker derives consecutive-day counters from the entry history.
// Counts are always recomputed by full replay of the activity dates rather
// than mutated in place, so a missed or duplicated update self-corrects on
// the next recompute.
type StreakTracker struct {
	entries store.Entries
	streaks store.Streaks
	log     zerolog.Logger
}

func NewStreakTracker(entries store.Entries, streaks store.Streaks, log zerolog.Logger) *StreakTracker {
	return &StreakTracker{entries: entries, streaks: streaks, log: log}
}

// RecomputeAll replays the user's entries and rewrites every streak row:
// exercise days, high-urgency productivity days, and one mood streak per
// emotion that dominates at least one day.
func (t *StreakTracker) RecomputeAll(ctx context.Context, userID string, now time.Time) error {
	all, err := t.entries.List(ctx, model.ListEntriesRequest{UserID: userID})
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}

	exerciseDays := map[string]struct{}{}
	productivityDays := map[string]struct{}{}
	dayEmotions := map[string][]string{}

	for _, e := range all {
		day := dateKey(e.CreationTime)
		for _, theme := range e.Enrichment.Themes {
			if _, ok := exerciseThemes[strings.ToLower(theme)]; ok {
				exerciseDays[day] = struct{}{}
				break
			}
		}
		if e.Enrichment.Urgency == model.UrgencyHigh {
			productivityDays[day] = struct{}{}
		}
		if e.Enrichment.Emotion != "" {
			dayEmotions[day] = append(dayEmotions[day], e.Enrichment.Emotion)
		}
	}

	// mood activity: a day counts toward emotion X iff X is that day's
	// dominant (modal) emotion; a day dominated by a different emotion
	// breaks X's streak even if X appeared that day.
	moodDays := map[string]map[string]struct{}{}
	for day, emotions := range dayEmotions {
		dom := dominantEmotion(emotions)
		if dom == "" {
			continue
		}
		if moodDays[dom] == nil {
			moodDays[dom] = map[string]struct{}{}
		}
		moodDays[dom][day] = struct{}{}
	}

	var firstErr error
	put := func(streakType, streakName string, days map[string]struct{}) {
		if err := t.recomputeOne(ctx, userID, streakType, streakName, days, now); err != nil {
			t.log.Warn().Err(err).
				Str("userId", userID).
				Str("streakType", streakType).
				Str("streakName", streakName).
				Msg("streak recompute failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	put(model.StreakExercise, "", exerciseDays)
	put(model.StreakProductivity, "", productivityDays)
	for emotion, days := range moodDays {
		put(model.StreakMood, emotion, days)
	}

	// mood rows whose emotion no longer dominates any day must fold to
	// zero too, or a deleted entry leaves the old counts behind
	existing, err := t.streaks.List(ctx, userID)
	if err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("list streaks: %w", err)
		}
		return firstErr
	}
	for _, s := range existing {
		if s.StreakType != model.StreakMood {
			continue
		}
		if _, live := moodDays[s.StreakName]; live {
			continue
		}
		put(model.StreakMood, s.StreakName, nil)
	}
	return firstErr
}

func (t *StreakTracker) recomputeOne(ctx context.Context, userID, streakType, streakName string, days map[string]struct{}, now time.Time) error {
	current, best, last, started := Fold(days, now)

	row := &model.Streak{
		UserID:       userID,
		StreakType:   streakType,
		StreakName:   streakName,
		CurrentCount: current,
		BestCount:    best,
	}

	// best_count is a high-water mark across the row's whole life, so a
	// replay over a shorter window never lowers it.
	if prev, err := t.streaks.Get(ctx, userID, streakType, streakName); err == nil {
		if prev.BestCount > row.BestCount {
			row.BestCount = prev.BestCount
		}
	}

	if last != nil {
		row.LastEntryDate = last
		row.StartedAt = started
		row.IsActive = withinGrace(*last, now)
		if !row.IsActive {
			broken := last.AddDate(0, 0, 2) // first day the grace window had lapsed
			row.BrokenAt = &broken
		}
	}

	if err := t.streaks.Put(ctx, row); err != nil {
		return fmt.Errorf("persist streak: %w", err)
	}
	return nil
}

// Fold replays a set of activity dates and returns the length of the most
// recent consecutive run, the longest run observed, the most recent activity
// date, and the start date of the most recent run. An empty set yields all
// zeroes.
func Fold(days map[string]struct{}, now time.Time) (current, best int, last, started *time.Time) {
	if len(days) == 0 {
		return 0, 0, nil, nil
	}

	dates := make([]time.Time, 0, len(days))
	for d := range days {
		ts, err := time.Parse("2006-01-02", d)
		if err != nil {
			continue // malformed key, skip rather than fail the fold
		}
		dates = append(dates, ts)
	}
	if len(dates) == 0 {
		return 0, 0, nil, nil
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })

	mostRecent := dates[0]
	startOfCurrent := dates[0]
	current = 1
	cursor := dates[0]

	// most recent run first
	i := 1
	for ; i < len(dates); i++ {
		if cursor.Sub(dates[i]) != 24*time.Hour {
			break
		}
		current++
		startOfCurrent = dates[i]
		cursor = dates[i]
	}
	best = current

	// older runs only contribute to the high-water mark
	run := 0
	for ; i < len(dates); i++ {
		if run > 0 && cursor.Sub(dates[i]) == 24*time.Hour {
			run++
		} else {
			if run > best {
				best = run
			}
			run = 1
		}
		cursor = dates[i]
	}
	if run > best {
		best = run
	}

	return current, best, &mostRecent, &startOfCurrent
}

func withinGrace(last, now time.Time) bool {
	lastDay := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	diff := int(today.Sub(lastDay).Hours() / 24)
	return diff >= 0 && diff <= 1
}

func dateKey(t time.Time) string { return t.Format("2006-01-02") }

// dominantEmotion returns the modal emotion, or "" on a tie so ambiguous days
// count toward no mood streak.
func dominantEmotion(emotions []string) string {
	counts := map[string]int{}
	for _, e := range emotions {
		counts[e]++
	}
	top, topN, tie := "", 0, false
	for e, n := range counts {
		switch {
		case n > topN:
			top, topN, tie = e, n, false
		case n == topN:
			tie = true
		}
	}
	if tie {
		return ""
	}
	return top
}
