package insights

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spiffler33/lean-insights/internal/model"
	"github.com/spiffler33/lean-insights/internal/tracker"
)

const topTagLimit = 5

// Stats computes the journal statistics block from the full entry history.
func (g *Generator) Stats(ctx context.Context, userID string, now time.Time) (*model.Stats, error) {
	entries, err := g.entries.List(ctx, model.ListEntriesRequest{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	out := &model.Stats{}
	if len(entries) == 0 {
		out.Activity7Days = activityStrip(nil, now)
		return out, nil
	}

	today := dateOf(now)
	weekCutoff := now.AddDate(0, 0, -7)
	prevWeekCutoff := now.AddDate(0, 0, -14)

	perDay := map[string]int{}
	tagCounts := map[string]int{}
	activeDays := map[string]struct{}{}
	var thisWeek, prevWeek int
	oldest := entries[len(entries)-1].CreationTime

	for _, e := range entries {
		out.TotalEntries++
		out.TotalWords += len(strings.Fields(e.Content))

		day := e.CreationTime.Format("2006-01-02")
		perDay[day]++
		activeDays[day] = struct{}{}

		if dateOf(e.CreationTime).Equal(today) {
			out.TodayCount++
		}
		if e.CreationTime.After(weekCutoff) {
			thisWeek++
		} else if e.CreationTime.After(prevWeekCutoff) {
			prevWeek++
		}
		for _, tag := range e.Tags {
			tagCounts[tag]++
		}
		if e.CreationTime.Before(oldest) {
			oldest = e.CreationTime
		}
	}
	out.WeekCount = thisWeek

	days := int(today.Sub(dateOf(oldest)).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	out.AvgPerDay = float64(out.TotalEntries) / float64(days)

	// best day is the calendar date with the most entries
	for day, n := range perDay {
		if n > out.BestDayCount || (n == out.BestDayCount && day > out.BestDay) {
			out.BestDay, out.BestDayCount = day, n
		}
	}

	current, best, _, _ := tracker.Fold(activeDays, now)
	out.CurrentStreak = current
	out.LongestStreak = best
	// the journaling streak is only "current" while the grace window holds
	if _, wroteToday := activeDays[now.Format("2006-01-02")]; !wroteToday {
		if _, wroteYesterday := activeDays[now.AddDate(0, 0, -1).Format("2006-01-02")]; !wroteYesterday {
			out.CurrentStreak = 0
		}
	}

	switch {
	case prevWeek > 0:
		out.WeekTrendPct = int(float64(thisWeek-prevWeek) / float64(prevWeek) * 100)
	case thisWeek > 0:
		out.WeekTrendPct = 100
	}

	out.Activity7Days = activityStrip(perDay, now)

	type tc struct {
		tag string
		n   int
	}
	tags := make([]tc, 0, len(tagCounts))
	for tag, n := range tagCounts {
		tags = append(tags, tc{tag, n})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].n != tags[j].n {
			return tags[i].n > tags[j].n
		}
		return tags[i].tag < tags[j].tag
	})
	if len(tags) > topTagLimit {
		tags = tags[:topTagLimit]
	}
	for _, t := range tags {
		out.TopTags = append(out.TopTags, model.TagCount{Tag: t.tag, Count: t.n})
	}
	return out, nil
}

// activityStrip renders the trailing 7 days oldest-first, zero-filled.
func activityStrip(perDay map[string]int, now time.Time) []model.DayActivity {
	out := make([]model.DayActivity, 0, 7)
	for i := 6; i >= 0; i-- {
		d := now.AddDate(0, 0, -i)
		key := d.Format("2006-01-02")
		out = append(out, model.DayActivity{
			Date:  key,
			Day:   d.Weekday().String()[:3],
			Count: perDay[key],
		})
	}
	return out
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
