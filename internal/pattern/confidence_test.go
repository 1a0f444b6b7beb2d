package pattern

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEntityConfidence_Anchors(t *testing.T) {
	assert.Equal(t, 0.0, EntityConfidence(0))
	assert.InDelta(t, 0.3, EntityConfidence(1), 1e-9)
	assert.InDelta(t, 0.4, EntityConfidence(3), 1e-9)
	assert.InDelta(t, 0.6, EntityConfidence(5), 1e-9)
	assert.InDelta(t, 0.8, EntityConfidence(10), 1e-9)
	assert.InDelta(t, 0.8, EntityConfidence(49), 1e-9)
	assert.InDelta(t, 0.9, EntityConfidence(50), 1e-9)
	assert.InDelta(t, 0.9, EntityConfidence(1000), 1e-9)
}

func TestEntityConfidence_MonotonicAndBounded(t *testing.T) {
	prev := 0.0
	for n := 1; n <= 200; n++ {
		c := EntityConfidence(n)
		assert.GreaterOrEqual(t, c, prev, "confidence decreased at %d mentions", n)
		assert.GreaterOrEqual(t, c, 0.3)
		assert.LessOrEqual(t, c, 0.9)
		prev = c
	}
}

func TestTemporalConfidence_Steps(t *testing.T) {
	cases := []struct {
		samples int
		want    float64
	}{
		{0, 0}, {4, 0}, {5, 0.4}, {9, 0.4}, {10, 0.6}, {19, 0.6},
		{20, 0.8}, {49, 0.8}, {50, 0.9}, {500, 0.9},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, TemporalConfidence(c.samples), "samples=%d", c.samples)
	}
}

func TestDecayMultiplier_Tiers(t *testing.T) {
	now := time.Date(2025, 10, 20, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		daysAgo float64
		want    float64
	}{
		{0, 1.0}, {7, 1.0}, {8, 0.8}, {30, 0.8}, {31, 0.6}, {90, 0.6}, {91, 0.4}, {365, 0.4},
	}
	for _, c := range cases {
		last := now.Add(-time.Duration(c.daysAgo * 24 * float64(time.Hour)))
		assert.Equal(t, c.want, DecayMultiplier(last, now), "%v days ago", c.daysAgo)
	}
}

func TestDecayMultiplier_MonotonicNonIncreasing(t *testing.T) {
	now := time.Now()
	prev := 1.0
	for d := 0; d <= 200; d++ {
		m := DecayMultiplier(now.AddDate(0, 0, -d), now)
		assert.LessOrEqual(t, m, prev, "decay increased at %d days", d)
		assert.Greater(t, m, 0.0)
		assert.LessOrEqual(t, m, 1.0)
		prev = m
	}
}

func TestEffectiveConfidence_DormantPatternExcluded(t *testing.T) {
	// Stored 0.8 but last seen 100 days ago: 0.8 x 0.4 = 0.32, below the
	// relevance floor even though the stored score alone would qualify.
	now := time.Now()
	eff := EffectiveConfidence(0.8, now.AddDate(0, 0, -100), now)
	assert.InDelta(t, 0.32, eff, 1e-9)
	assert.LessOrEqual(t, eff, MinEffectiveConfidence)
}
