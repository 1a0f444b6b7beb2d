package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockForHour_AllHours(t *testing.T) {
	valid := map[string]bool{
		BlockMorning: true, BlockAfternoon: true, BlockEvening: true, BlockNight: true,
	}
	for h := 0; h < 24; h++ {
		require.True(t, valid[BlockForHour(h)], "hour %d mapped to unknown block", h)
	}
}

func TestBlockForHour_Boundaries(t *testing.T) {
	cases := []struct {
		hour int
		want string
	}{
		{0, BlockNight}, // midnight is night, not morning
		{4, BlockNight},
		{5, BlockMorning},
		{11, BlockMorning},
		{12, BlockAfternoon},
		{16, BlockAfternoon},
		{17, BlockEvening},
		{21, BlockEvening},
		{22, BlockNight},
		{23, BlockNight},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, BlockForHour(c.hour), "hour %d", c.hour)
	}
}

func TestBucketFor(t *testing.T) {
	// Monday 2025-10-13 09:30 local.
	mondayMorning := time.Date(2025, 10, 13, 9, 30, 0, 0, time.UTC)
	b := BucketFor(mondayMorning)
	assert.Equal(t, BlockMorning, b.TimeBlock)
	assert.Equal(t, "monday", b.Weekday)
	assert.Equal(t, ClassWeekday, b.WeekdayClass)
	assert.Equal(t, 9, b.Hour)

	// Saturday 2025-10-18 14:00.
	saturdayAfternoon := time.Date(2025, 10, 18, 14, 0, 0, 0, time.UTC)
	b = BucketFor(saturdayAfternoon)
	assert.Equal(t, BlockAfternoon, b.TimeBlock)
	assert.Equal(t, "saturday", b.Weekday)
	assert.Equal(t, ClassWeekend, b.WeekdayClass)

	// Midnight resolves to night regardless of day.
	midnight := time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, BlockNight, BucketFor(midnight).TimeBlock)
}
