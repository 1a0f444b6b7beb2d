// Package temporal maps timestamps to the categorical time features used by
// the pattern trackers. All functions are pure; timestamps are assumed to be
// in the user's local reference frame already.
package temporal

import (
	"strings"
	"time"
)

// Time blocks.
const (
	BlockMorning   = "morning"   // [5,12)
	BlockAfternoon = "afternoon" // [12,17)
	BlockEvening   = "evening"   // [17,22)
	BlockNight     = "night"     // [22,24) and [0,5)
	BlockAll       = "all"
)

// Weekday classes.
const (
	ClassWeekday = "weekday"
	ClassWeekend = "weekend"
	WeekdayAll   = "all"
)

// Bucket is the categorical view of one timestamp.
type Bucket struct {
	TimeBlock    string
	Weekday      string // lowercase day name
	WeekdayClass string // weekday | weekend
	Hour         int    // 0..23
}

// BlockForHour returns the time block for an hour of day. Hour 0 is night.
func BlockForHour(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return BlockMorning
	case hour >= 12 && hour < 17:
		return BlockAfternoon
	case hour >= 17 && hour < 22:
		return BlockEvening
	default:
		return BlockNight
	}
}

// WeekdayName returns the lowercase day name for t.
func WeekdayName(t time.Time) string {
	return strings.ToLower(t.Weekday().String())
}

// ClassFor returns weekday for Mon-Fri, weekend for Sat/Sun.
func ClassFor(t time.Time) string {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return ClassWeekend
	default:
		return ClassWeekday
	}
}

// BucketFor computes all time features for t.
func BucketFor(t time.Time) Bucket {
	return Bucket{
		TimeBlock:    BlockForHour(t.Hour()),
		Weekday:      WeekdayName(t),
		WeekdayClass: ClassFor(t),
		Hour:         t.Hour(),
	}
}
