// Package relevance builds the bounded textual context block describing which
// learned patterns apply to a new entry. The block personalizes the next
// enrichment call and insight summaries; an empty block means "no context
// yet" and is never an error.
package relevance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/spiffler33/lean-insights/internal/model"
	"github.com/spiffler33/lean-insights/internal/pattern"
	"github.com/spiffler33/lean-insights/internal/store"
	"github.com/spiffler33/lean-insights/internal/temporal"
)

const (
	// patternWordCap bounds the pattern section alone.
	patternWordCap = 200
	// combinedWordCap bounds pattern section plus caller-supplied user facts.
	combinedWordCap = 500
)

// Selector reads pattern state and renders the relevance context.
type Selector struct {
	entities  store.EntityPatterns
	temporals store.TemporalPatterns
	log       zerolog.Logger
}

func NewSelector(entities store.EntityPatterns, temporals store.TemporalPatterns, log zerolog.Logger) *Selector {
	return &Selector{entities: entities, temporals: temporals, log: log}
}

// Context renders the pattern context for one entry. names is the
// pre-extracted entity list when the caller has one; when empty the selector
// falls back to scanning entryText for capitalized tokens. Returns "" when
// nothing qualifies.
func (s *Selector) Context(ctx context.Context, userID, entryText string, names []string, now time.Time) (string, error) {
	if len(names) == 0 {
		names = CandidateNames(entryText)
	}

	var parts []string
	seen := map[string]struct{}{}
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		p, err := s.entities.Get(ctx, userID, name)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("load entity pattern: %w", err)
		}
		if p.MentionCount < pattern.MinEntityMentions {
			continue
		}
		if pattern.EffectiveConfidence(p.ConfidenceScore, p.LastSeen, now) <= pattern.MinEffectiveConfidence {
			continue
		}
		parts = append(parts, FormatEntity(p))
	}

	if clause, err := s.temporalClause(ctx, userID, now); err != nil {
		return "", err
	} else if clause != "" {
		parts = append(parts, clause)
	}

	if len(parts) == 0 {
		return "", nil
	}
	return truncateWords(strings.Join(parts, "\n"), patternWordCap), nil
}

// temporalClause resolves the current bucket with 3-tier fallback: the
// specific (block, weekday) row, then the block across all days, then all
// blocks for the weekday class. First qualifying row wins.
func (s *Selector) temporalClause(ctx context.Context, userID string, now time.Time) (string, error) {
	b := temporal.BucketFor(now)
	tiers := [][2]string{
		{b.TimeBlock, b.Weekday},
		{b.TimeBlock, temporal.WeekdayAll},
		{temporal.BlockAll, b.WeekdayClass},
	}

	for _, tier := range tiers {
		p, err := s.temporals.Get(ctx, userID, tier[0], tier[1])
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("load temporal pattern: %w", err)
		}
		if p.SampleCount < pattern.MinTemporalSamples {
			continue
		}
		// temporal rows carry no last-seen, so no decay applies here
		if p.ConfidenceScore <= pattern.MinEffectiveConfidence {
			continue
		}
		return FormatTemporal(p), nil
	}
	return "", nil
}

// Combined appends the caller's user-facts block to the pattern block under
// the overall word cap. The temporal clause sits at the end of the pattern
// block, so pattern-side truncation drops it before any entity line.
func Combined(patternBlock, facts string) string {
	if facts == "" {
		return patternBlock
	}
	if patternBlock == "" {
		return truncateWords(facts, combinedWordCap)
	}
	budget := combinedWordCap - len(strings.Fields(facts))
	if budget <= 0 {
		return truncateWords(facts, combinedWordCap)
	}
	pb := truncateWords(patternBlock, budget)
	return pb + "\n" + facts
}

// FormatEntity renders one qualifying entity pattern, for example
// "Sarah: 10 mentions [work 100%] [focused 100%]".
func FormatEntity(p *model.EntityPattern) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d mentions", p.Entity, p.MentionCount)

	if themes := topCorrelations(p.ThemeCorrelations, 2); len(themes) > 0 {
		var ts []string
		for _, t := range themes {
			ts = append(ts, fmt.Sprintf("%s %d%%", t.key, sharePct(t.count, p.MentionCount)))
		}
		fmt.Fprintf(&sb, " [%s]", strings.Join(ts, ", "))
	}
	if emotions := topCorrelations(p.EmotionCorrelations, 1); len(emotions) > 0 {
		fmt.Fprintf(&sb, " [%s %d%%]", emotions[0].key, sharePct(emotions[0].count, p.MentionCount))
	}
	return sb.String()
}

// FormatTemporal renders the matched bucket as a short descriptive clause.
func FormatTemporal(p *model.TemporalPattern) string {
	var sb strings.Builder
	sb.WriteString("At this time you usually write")
	if len(p.CommonThemes) > 0 {
		themes := p.CommonThemes
		if len(themes) > 3 {
			themes = themes[:3]
		}
		fmt.Fprintf(&sb, " about %s", strings.Join(themes, ", "))
	}
	if len(p.CommonEmotions) > 0 {
		fmt.Fprintf(&sb, " (often %s)", strings.Join(p.CommonEmotions, ", "))
	}
	fmt.Fprintf(&sb, " (%d entries)", p.SampleCount)
	return sb.String()
}

// CandidateNames is the trivial fallback scan: capitalized tokens, minus a
// handful of sentence-leading words that are capitalized by convention.
func CandidateNames(text string) []string {
	stop := map[string]struct{}{
		"I": {}, "The": {}, "A": {}, "An": {}, "My": {}, "Today": {},
		"Yesterday": {}, "Tomorrow": {}, "This": {}, "That": {}, "It": {},
		"We": {}, "He": {}, "She": {}, "They": {},
	}
	var out []string
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r == '\'')
	}) {
		tok = strings.TrimSuffix(tok, "'s")
		if len(tok) < 2 {
			continue
		}
		if tok[0] < 'A' || tok[0] > 'Z' {
			continue
		}
		if _, skip := stop[tok]; skip {
			continue
		}
		out = append(out, tok)
	}
	return out
}

type kv struct {
	key   string
	count int
}

func topCorrelations(m map[string]int, n int) []kv {
	if len(m) == 0 {
		return nil
	}
	out := make([]kv, 0, len(m))
	for k, c := range m {
		out = append(out, kv{k, c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func sharePct(count, total int) int {
	if total <= 0 {
		return 0
	}
	return int(float64(count)/float64(total)*100 + 0.5)
}

func truncateWords(s string, limit int) string {
	words := strings.Fields(s)
	if len(words) <= limit {
		return s
	}
	return strings.Join(words[:limit], " ")
}
