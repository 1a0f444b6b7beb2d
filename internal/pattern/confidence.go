// Package pattern holds the confidence and decay math shared by the
// trackers and the relevance selector. Scores here are maturity heuristics
// derived from sample size, not statistical confidence intervals.
package pattern

import "time"

// Relevance thresholds applied at read time.
const (
	// MinEffectiveConfidence is the exclusive lower bound on
	// stored confidence x decay for a pattern to be surfaced.
	MinEffectiveConfidence = 0.5

	// MinEntityMentions is the mention floor for entity patterns in
	// relevance selection.
	MinEntityMentions = 5

	// MinTemporalSamples is the sample floor for temporal patterns in
	// relevance selection.
	MinTemporalSamples = 10
)

// EntityConfidence maps a mention count to a stored confidence score.
// It starts at 0.3 for a single mention, climbs roughly 0.05 per mention,
// reaches 0.8 at 10, and caps at 0.9 from 50 on. The cap below 1.0 models
// irreducible uncertainty.
func EntityConfidence(mentions int) float64 {
	switch {
	case mentions <= 0:
		return 0
	case mentions >= 50:
		return 0.9
	case mentions >= 10:
		return 0.8
	case mentions >= 5:
		return 0.6
	default:
		return 0.3 + 0.05*float64(mentions-1)
	}
}

// TemporalConfidence maps a bucket sample count to a stored confidence score.
func TemporalConfidence(samples int) float64 {
	switch {
	case samples >= 50:
		return 0.9
	case samples >= 20:
		return 0.8
	case samples >= 10:
		return 0.6
	case samples >= 5:
		return 0.4
	default:
		return 0
	}
}

// DecayMultiplier discounts stored confidence by recency of last activity.
// Decay is applied at read time only; stored scores are never aged in place,
// so a dormant pattern recovers fully the moment it is mentioned again.
func DecayMultiplier(lastSeen, now time.Time) float64 {
	if lastSeen.IsZero() || !lastSeen.Before(now) {
		return 1.0
	}
	days := now.Sub(lastSeen).Hours() / 24
	switch {
	case days <= 7:
		return 1.0
	case days <= 30:
		return 0.8
	case days <= 90:
		return 0.6
	default:
		return 0.4
	}
}

// EffectiveConfidence is the decay-weighted score used for relevance
// filtering.
func EffectiveConfidence(stored float64, lastSeen, now time.Time) float64 {
	return stored * DecayMultiplier(lastSeen, now)
}
