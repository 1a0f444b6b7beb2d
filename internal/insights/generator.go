// Package insights batch-analyzes a trailing window of enriched entries and
// produces a short ranked list of plain facts about the user's journaling.
// Generation is read-only and idempotent; it never mutates pattern state.
package insights

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/spiffler33/lean-insights/internal/model"
	"github.com/spiffler33/lean-insights/internal/store"
	"github.com/spiffler33/lean-insights/internal/temporal"
)

const (
	// DefaultWindowDays is the trailing analysis window.
	DefaultWindowDays = 30
	// minWindowEntries gates generation entirely; below it the data is too
	// thin for any claim.
	minWindowEntries = 20
	// minShare is the dominance threshold for modal emotions.
	minShare = 0.7
	// minDaySamples gates per-weekday emotional insights.
	minDaySamples = 10
	// minEntityMentions gates relationship insights.
	minEntityMentions = 10
	// frequencyRatio is the minimum weekday/weekend imbalance worth stating.
	frequencyRatio = 2.0
	// maxInsights caps the returned list.
	maxInsights = 5
)

// Generator derives insights from the entry log.
type Generator struct {
	entries store.Entries
	log     zerolog.Logger
}

func NewGenerator(entries store.Entries, log zerolog.Logger) *Generator {
	return &Generator{entries: entries, log: log}
}

// Generate returns at most five ranked insights over the trailing window.
// An empty result means "no insight yet", not failure.
func (g *Generator) Generate(ctx context.Context, userID string, now time.Time, windowDays int) ([]model.Insight, error) {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	cutoff := now.AddDate(0, 0, -windowDays)

	// cheap gate before loading the window
	n, err := g.entries.CountSince(ctx, userID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("count window entries: %w", err)
	}
	if n < minWindowEntries {
		return nil, nil
	}

	entries, err := g.entries.List(ctx, model.ListEntriesRequest{UserID: userID, After: &cutoff})
	if err != nil {
		return nil, fmt.Errorf("list window entries: %w", err)
	}

	var candidates []model.Insight
	if ins, ok := frequencyInsight(entries); ok {
		candidates = append(candidates, ins)
	}
	candidates = append(candidates, emotionalDayInsights(entries)...)
	candidates = append(candidates, relationshipInsights(entries)...)

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Share*float64(candidates[i].Samples) >
			candidates[j].Share*float64(candidates[j].Samples)
	})
	if len(candidates) > maxInsights {
		candidates = candidates[:maxInsights]
	}
	return candidates, nil
}

// frequencyInsight compares weekday and weekend entry counts and reports an
// imbalance of at least 2x in either direction. The comparison is on raw
// counts, not per-day rates. A window with entries on only one side is the
// strongest imbalance and is stated outright.
func frequencyInsight(entries []*model.Entry) (model.Insight, bool) {
	var weekday, weekend int
	for _, e := range entries {
		switch e.CreationTime.Weekday() {
		case time.Saturday, time.Sunday:
			weekend++
		default:
			weekday++
		}
	}
	total := weekday + weekend
	if total == 0 {
		return model.Insight{}, false
	}
	if weekend == 0 {
		return model.Insight{Kind: "frequency", Text: "You write only on weekdays", Share: 1, Samples: total}, true
	}
	if weekday == 0 {
		return model.Insight{Kind: "frequency", Text: "You write only on weekends", Share: 1, Samples: total}, true
	}

	var ratio float64
	var text string
	if float64(weekday) >= frequencyRatio*float64(weekend) {
		ratio = float64(weekday) / float64(weekend)
		text = fmt.Sprintf("You write %.1fx more on weekdays than weekends", ratio)
	} else if float64(weekend) >= frequencyRatio*float64(weekday) {
		ratio = float64(weekend) / float64(weekday)
		text = fmt.Sprintf("You write %.1fx more on weekends than weekdays", ratio)
	} else {
		return model.Insight{}, false
	}

	share := float64(maxInt(weekday, weekend)) / float64(total)
	return model.Insight{Kind: "frequency", Text: text, Share: share, Samples: total}, true
}

// emotionalDayInsights finds weekdays whose modal emotion dominates at least
// 70% of that day's entries, with at least 10 samples for the day.
func emotionalDayInsights(entries []*model.Entry) []model.Insight {
	byDay := map[string][]string{}
	for _, e := range entries {
		if e.Enrichment.Emotion == "" {
			continue
		}
		day := temporal.WeekdayName(e.CreationTime)
		byDay[day] = append(byDay[day], e.Enrichment.Emotion)
	}

	var out []model.Insight
	for day, emotions := range byDay {
		if len(emotions) < minDaySamples {
			continue
		}
		emotion, count := modal(emotions)
		share := float64(count) / float64(len(emotions))
		if share < minShare {
			continue
		}
		out = append(out, model.Insight{
			Kind:    "emotional_day",
			Text:    fmt.Sprintf("%ss are usually %s", titleDay(day), emotion),
			Share:   share,
			Samples: len(emotions),
		})
	}
	sortStable(out)
	return out
}

// relationshipInsights finds entities with at least 10 in-window mentions
// whose entries carry a dominant emotion.
func relationshipInsights(entries []*model.Entry) []model.Insight {
	byEntity := map[string][]string{}
	mentions := map[string]int{}
	for _, e := range entries {
		for _, name := range e.PeopleNames() {
			mentions[name]++
			if e.Enrichment.Emotion != "" {
				byEntity[name] = append(byEntity[name], e.Enrichment.Emotion)
			}
		}
	}

	var out []model.Insight
	for name, count := range mentions {
		if count < minEntityMentions {
			continue
		}
		emotions := byEntity[name]
		if len(emotions) == 0 {
			continue
		}
		emotion, top := modal(emotions)
		share := float64(top) / float64(len(emotions))
		if share < minShare {
			continue
		}
		out = append(out, model.Insight{
			Kind:    "relationship",
			Text:    fmt.Sprintf("Time with %s is usually %s", name, emotion),
			Share:   share,
			Samples: count,
		})
	}
	sortStable(out)
	return out
}

func sortStable(ins []model.Insight) {
	sort.SliceStable(ins, func(i, j int) bool {
		return ins[i].Share*float64(ins[i].Samples) > ins[j].Share*float64(ins[j].Samples)
	})
}

func modal(values []string) (string, int) {
	counts := map[string]int{}
	for _, v := range values {
		counts[v]++
	}
	top, topN := "", 0
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys) // deterministic winner on ties
	for _, k := range keys {
		if counts[k] > topN {
			top, topN = k, counts[k]
		}
	}
	return top, topN
}

func titleDay(day string) string {
	if day == "" {
		return day
	}
	return string(day[0]-'a'+'A') + day[1:]
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
