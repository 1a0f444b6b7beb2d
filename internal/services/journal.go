// Package services wires the trackers, selector, generator and extractor into
// the operation surface the API exposes. Entry persistence is the synchronous
// path; enrichment and all pattern updates run afterwards as background jobs
// serialized per user, so a save never waits on the model or on pattern
// writes.
package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/spiffler33/lean-insights/internal/enrichment"
	"github.com/spiffler33/lean-insights/internal/insights"
	"github.com/spiffler33/lean-insights/internal/model"
	"github.com/spiffler33/lean-insights/internal/relevance"
	"github.com/spiffler33/lean-insights/internal/shardqueue"
	"github.com/spiffler33/lean-insights/internal/store"
	"github.com/spiffler33/lean-insights/internal/tracker"
)

var hashtagRe = regexp.MustCompile(`#(\w+)`)

// JournalService is the application-facing surface: entry CRUD plus the
// pattern, insight and context reads.
type JournalService struct {
	store     store.Store
	extractor enrichment.Extractor
	selector  *relevance.Selector
	entities  *tracker.EntityTracker
	temporals *tracker.TemporalTracker
	streaks   *tracker.StreakTracker
	insights  *insights.Generator
	exec      *shardqueue.ShardExecutor
	log       zerolog.Logger
}

func NewJournalService(s store.Store, ex enrichment.Extractor, exec *shardqueue.ShardExecutor, log zerolog.Logger) *JournalService {
	return &JournalService{
		store:     s,
		extractor: ex,
		selector:  relevance.NewSelector(s.EntityPatterns(), s.TemporalPatterns(), log),
		entities:  tracker.NewEntityTracker(s.EntityPatterns(), log),
		temporals: tracker.NewTemporalTracker(s.TemporalPatterns(), log),
		streaks:   tracker.NewStreakTracker(s.Entries(), s.Streaks(), log),
		insights:  insights.NewGenerator(s.Entries(), log),
		exec:      exec,
		log:       log,
	}
}

// CreateEntry saves the entry and returns it immediately. Enrichment and
// pattern updates run in the background; the saved entry carries no
// enrichment yet and is re-read once the job lands.
func (j *JournalService) CreateEntry(ctx context.Context, userID, content string) (*model.Entry, error) {
	if userID == "" {
		return nil, fmt.Errorf("userId is required: %w", model.ErrValidation)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("content is required: %w", model.ErrValidation)
	}

	entry, err := j.store.Entries().Create(ctx, &model.Entry{
		UserID:  userID,
		Content: content,
		Tags:    ExtractTags(content),
	})
	if err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}

	j.enqueueProcessing(entry)
	return entry, nil
}

// enqueueProcessing schedules the enrich-then-track job for one entry. The
// queue is keyed by user id, so all pattern writes for a user happen in
// submission order. A full queue is logged and dropped: patterns are a
// derived cache and the next recompute self-corrects.
func (j *JournalService) enqueueProcessing(entry *model.Entry) {
	e := *entry
	err := j.exec.Submit(context.Background(), e.UserID, shardqueue.JobFunc(func(ctx context.Context) error {
		return j.processEntry(ctx, &e)
	}))
	if err != nil {
		j.log.Warn().Err(err).
			Str("userId", entry.UserID).
			Str("entryId", entry.EntryID).
			Msg("pattern job not enqueued")
	}
}

// processEntry runs inside the shard worker: build relevance context, extract
// enrichment, persist it, then fold the entry into every tracker.
func (j *JournalService) processEntry(ctx context.Context, entry *model.Entry) error {
	patternCtx, err := j.selector.Context(ctx, entry.UserID, entry.Content, nil, time.Now().UTC())
	if err != nil {
		// context is an optimization; extraction proceeds without it
		j.log.Debug().Err(err).Str("entryId", entry.EntryID).Msg("relevance context unavailable")
		patternCtx = ""
	}

	enr, err := j.extractor.Extract(ctx, entry.Content, patternCtx)
	if err != nil {
		j.log.Debug().Err(err).Str("entryId", entry.EntryID).Msg("extraction failed, zero signal")
		enr = model.Enrichment{}
	}
	entry.Enrichment = enr

	if err := j.store.Entries().UpdateEnrichment(ctx, entry.UserID, entry.EntryID, enr); err != nil {
		return fmt.Errorf("persist enrichment: %w", err)
	}

	// tracker failures are logged inside each tracker; returning the error
	// lets the queue retry transient store outages
	if err := j.entities.Apply(ctx, entry); err != nil {
		return err
	}
	if err := j.temporals.Apply(ctx, entry); err != nil {
		return err
	}
	return j.streaks.RecomputeAll(ctx, entry.UserID, time.Now().UTC())
}

func (j *JournalService) GetEntry(ctx context.Context, userID, entryID string) (*model.Entry, error) {
	return j.store.Entries().GetByID(ctx, userID, entryID)
}

func (j *JournalService) ListEntries(ctx context.Context, req model.ListEntriesRequest) ([]*model.Entry, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("userId is required: %w", model.ErrValidation)
	}
	return j.store.Entries().List(ctx, req)
}

// UpdateEntry rewrites content and tags, then re-enriches and re-tracks in
// the background.
func (j *JournalService) UpdateEntry(ctx context.Context, userID, entryID, content string) (*model.Entry, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("content is required: %w", model.ErrValidation)
	}
	entry, err := j.store.Entries().UpdateContent(ctx, userID, entryID, content, ExtractTags(content))
	if err != nil {
		return nil, err
	}
	j.enqueueProcessing(entry)
	return entry, nil
}

// DeleteEntry soft-deletes and schedules a streak recompute, since the
// deleted entry's activity days may no longer count.
func (j *JournalService) DeleteEntry(ctx context.Context, userID, entryID string) error {
	if err := j.store.Entries().Delete(ctx, userID, entryID); err != nil {
		return err
	}
	err := j.exec.Submit(context.Background(), userID, shardqueue.JobFunc(func(ctx context.Context) error {
		return j.streaks.RecomputeAll(ctx, userID, time.Now().UTC())
	}))
	if err != nil {
		j.log.Warn().Err(err).Str("userId", userID).Msg("streak recompute not enqueued")
	}
	return nil
}

// Context renders the relevance block for arbitrary text at the current time.
func (j *JournalService) Context(ctx context.Context, userID, text string) (string, error) {
	return j.selector.Context(ctx, userID, text, nil, time.Now().UTC())
}

// Insights generates the ranked insight list for the trailing window.
func (j *JournalService) Insights(ctx context.Context, userID string, windowDays int) ([]model.Insight, error) {
	return j.insights.Generate(ctx, userID, time.Now().UTC(), windowDays)
}

func (j *JournalService) Stats(ctx context.Context, userID string) (*model.Stats, error) {
	return j.insights.Stats(ctx, userID, time.Now().UTC())
}

// PatternsView is the raw pattern state for the "view my patterns" screen.
type PatternsView struct {
	Entities []*model.EntityPattern    `json:"entities"`
	Temporal []*model.TemporalPattern  `json:"temporal"`
	Streaks  []*model.Streak           `json:"streaks"`
}

func (j *JournalService) Patterns(ctx context.Context, userID string, limit int) (*PatternsView, error) {
	entities, err := j.store.EntityPatterns().List(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list entity patterns: %w", err)
	}
	temporal, err := j.store.TemporalPatterns().List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list temporal patterns: %w", err)
	}
	streaks, err := j.store.Streaks().List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list streaks: %w", err)
	}
	return &PatternsView{Entities: entities, Temporal: temporal, Streaks: streaks}, nil
}

// ExportMarkdown renders the journal newest-first as a markdown document.
// Optional after/before bounds and a tag filter narrow the export.
func (j *JournalService) ExportMarkdown(ctx context.Context, userID string, after, before *time.Time, tag string) (string, error) {
	entries, err := j.store.Entries().List(ctx, model.ListEntriesRequest{
		UserID: userID,
		After:  after,
		Before: before,
		Tag:    tag,
	})
	if err != nil {
		return "", fmt.Errorf("list entries: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# Journal Export\n\n")
	fmt.Fprintf(&sb, "Exported %s, %d entries\n", time.Now().UTC().Format("2006-01-02"), len(entries))

	var lastDay string
	for _, e := range entries {
		day := e.CreationTime.Format("2006-01-02")
		if day != lastDay {
			fmt.Fprintf(&sb, "\n## %s\n\n", day)
			lastDay = day
		}
		fmt.Fprintf(&sb, "**%s**\n\n%s\n", e.CreationTime.Format("15:04"), e.Content)
		if e.Enrichment.Emotion != "" {
			fmt.Fprintf(&sb, "\n*%s*\n", e.Enrichment.Emotion)
		}
		sb.WriteString("\n---\n")
	}
	return sb.String(), nil
}

// Barrier waits until every queued job for the user has run. Test hook and
// shutdown aid.
func (j *JournalService) Barrier(ctx context.Context, userID string) error {
	return j.exec.Barrier(ctx, userID)
}

// ExtractTags pulls lowercase hashtags out of entry text, first occurrence
// order, deduplicated.
func ExtractTags(content string) []string {
	matches := hashtagRe.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := map[string]struct{}{}
	var out []string
	for _, m := range matches {
		tag := strings.ToLower(m[1])
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
