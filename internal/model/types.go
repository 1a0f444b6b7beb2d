package model

import (
	"strconv"
	"time"
)

// Urgency levels as emitted by the enrichment extractor.
const (
	UrgencyNone   = "none"
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// Person is a named person detected in an entry, with the sentiment the
// extractor attached to the mention.
type Person struct {
	Name      string `json:"name"`
	Sentiment string `json:"sentiment,omitempty"`
}

// Enrichment is the AI-derived metadata attached to an entry by the external
// extractor. Any field may be empty when extraction failed; absence is a
// zero-signal, never an error.
type Enrichment struct {
	Emotion string   `json:"emotion,omitempty"`
	Themes  []string `json:"themes,omitempty"`
	People  []Person `json:"people,omitempty"`
	Urgency string   `json:"urgency,omitempty"`
}

// Entry is a journal entry with its enrichment.
type Entry struct {
	EntryID      string     `json:"entryId"`
	UserID       string     `json:"userId"`
	Content      string     `json:"content"`
	Tags         []string   `json:"tags,omitempty"`
	Enrichment   Enrichment `json:"enrichment"`
	CreationTime time.Time  `json:"creationTime"`
	Deleted      bool       `json:"-"`
}

// PeopleNames returns the entity names on the entry in extractor order,
// duplicates preserved (in-entry duplicates count per occurrence).
func (e *Entry) PeopleNames() []string {
	if len(e.Enrichment.People) == 0 {
		return nil
	}
	names := make([]string, 0, len(e.Enrichment.People))
	for _, p := range e.Enrichment.People {
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}
	return names
}

// EntityPattern is the running profile for one (user, entity) pair.
// Entity identity is the exact surface string; upstream extraction is
// expected to emit already-normalized names.
type EntityPattern struct {
	UserID              string         `json:"userId"`
	Entity              string         `json:"entity"`
	MentionCount        int            `json:"mentionCount"`
	ThemeCorrelations   map[string]int `json:"themeCorrelations"`
	EmotionCorrelations map[string]int `json:"emotionCorrelations"`
	UrgencyCorrelations map[string]int `json:"urgencyCorrelations"`
	HourCounts          map[int]int    `json:"hourCounts"`
	WeekdayCounts       map[string]int `json:"weekdayCounts"`
	ConfidenceScore     float64        `json:"confidenceScore"`
	FirstSeen           time.Time      `json:"firstSeen"`
	LastSeen            time.Time      `json:"lastSeen"`
}

// TimePatterns merges the typed hour/weekday histograms into the flat
// string-keyed map the patterns view renders: hour keys are decimal digit
// strings ("0".."23"), weekday keys lowercase day names.
func (p *EntityPattern) TimePatterns() map[string]int {
	out := make(map[string]int, len(p.HourCounts)+len(p.WeekdayCounts))
	for h, n := range p.HourCounts {
		out[strconv.Itoa(h)] = n
	}
	for d, n := range p.WeekdayCounts {
		out[d] = n
	}
	return out
}

// TemporalPattern is the running profile for one (user, time_block, weekday)
// bucket. Themes and emotions are presence sets, not counters.
type TemporalPattern struct {
	UserID          string   `json:"userId"`
	TimeBlock       string   `json:"timeBlock"`
	Weekday         string   `json:"weekday"`
	CommonThemes    []string `json:"commonThemes"`
	CommonEmotions  []string `json:"commonEmotions"`
	SampleCount     int      `json:"sampleCount"`
	ConfidenceScore float64  `json:"confidenceScore"`
}

// Streak types.
const (
	StreakExercise     = "exercise"
	StreakMood         = "mood"
	StreakProductivity = "productivity"
	StreakCustom       = "custom"
)

// Streak holds consecutive-day counts for one (user, type, name) identity.
// Counts are derived by full replay of activity dates, never mutated in place.
type Streak struct {
	UserID        string     `json:"userId"`
	StreakType    string     `json:"streakType"`
	StreakName    string     `json:"streakName,omitempty"`
	CurrentCount  int        `json:"currentCount"`
	BestCount     int        `json:"bestCount"`
	LastEntryDate *time.Time `json:"lastEntryDate,omitempty"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	BrokenAt      *time.Time `json:"brokenAt,omitempty"`
	IsActive      bool       `json:"isActive"`
}

// Insight is one ranked, human-readable fact derived from a trailing window
// of entries.
type Insight struct {
	Kind    string  `json:"kind"` // frequency | emotional_day | relationship
	Text    string  `json:"text"`
	Share   float64 `json:"share"`
	Samples int     `json:"samples"`
}

// DayActivity is one day's entry count in the 7-day activity strip.
type DayActivity struct {
	Date  string `json:"date"`
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// TagCount is one hashtag with its occurrence count.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Stats is the journal statistics block backing the stats screen.
type Stats struct {
	TotalEntries  int           `json:"totalEntries"`
	TotalWords    int           `json:"totalWords"`
	TodayCount    int           `json:"todayCount"`
	WeekCount     int           `json:"weekCount"`
	AvgPerDay     float64       `json:"avgPerDay"`
	BestDay       string        `json:"bestDay,omitempty"`
	BestDayCount  int           `json:"bestDayCount"`
	CurrentStreak int           `json:"currentStreak"`
	LongestStreak int           `json:"longestStreak"`
	WeekTrendPct  int           `json:"weekTrendPct"`
	Activity7Days []DayActivity `json:"activity7Days"`
	TopTags       []TagCount    `json:"topTags,omitempty"`
}

// ListEntriesRequest captures filters used when listing entries.
type ListEntriesRequest struct {
	UserID string
	Limit  int
	Before *time.Time
	After  *time.Time
	Search string
	Tag    string
}
