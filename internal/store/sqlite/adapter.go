package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spiffler33/lean-insights/internal/model"
	"github.com/spiffler33/lean-insights/internal/store"
)

// New opens (or creates) a SQLite-backed store at path and ensures the schema.
func New(path string) (store.Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return NewWithDB(db)
}

// NewWithDB wires a store onto an existing connection (used by tests and the
// factory).
func NewWithDB(db *sql.DB) (store.Store, error) {
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{db: db}, nil
}

type sqliteStore struct{ db *sql.DB }

func (s *sqliteStore) Entries() store.Entries                   { return &entries{db: s.db} }
func (s *sqliteStore) EntityPatterns() store.EntityPatterns     { return &entityPatterns{db: s.db} }
func (s *sqliteStore) TemporalPatterns() store.TemporalPatterns { return &temporalPatterns{db: s.db} }
func (s *sqliteStore) Streaks() store.Streaks                   { return &streaks{db: s.db} }

func (s *sqliteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// --- Entries ---

type entries struct{ db *sql.DB }

func (e *entries) Create(ctx context.Context, m *model.Entry) (*model.Entry, error) {
	id := m.EntryID
	if id == "" {
		id = uuid.New().String()
	}
	created := m.CreationTime
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := e.db.ExecContext(ctx, `
        INSERT INTO entries (user_id, entry_id, content, tags, emotion, themes, people, urgency, creation_time, deleted)
        VALUES (?,?,?,?,?,?,?,?,?,0)
    `, m.UserID, id, m.Content, marshalJSON(m.Tags), nullIfEmpty(m.Enrichment.Emotion),
		marshalJSON(m.Enrichment.Themes), marshalJSON(m.Enrichment.People),
		nullIfEmpty(m.Enrichment.Urgency), created)
	if err != nil {
		return nil, err
	}
	out := *m
	out.EntryID = id
	out.CreationTime = created
	return &out, nil
}

const entryColumns = `user_id, entry_id, content, tags, emotion, themes, people, urgency, creation_time`

func (e *entries) GetByID(ctx context.Context, userID, entryID string) (*model.Entry, error) {
	row := e.db.QueryRowContext(ctx, `
        SELECT `+entryColumns+` FROM entries WHERE user_id=? AND entry_id=? AND deleted=0
    `, userID, entryID)
	return scanEntry(row)
}

func (e *entries) List(ctx context.Context, req model.ListEntriesRequest) ([]*model.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE user_id=? AND deleted=0`
	args := []interface{}{req.UserID}
	if req.Before != nil {
		query += ` AND creation_time < ?`
		args = append(args, *req.Before)
	}
	if req.After != nil {
		query += ` AND creation_time >= ?`
		args = append(args, *req.After)
	}
	if req.Search != "" {
		query += ` AND (content LIKE ? OR tags LIKE ?)`
		term := "%" + req.Search + "%"
		args = append(args, term, term)
	}
	if req.Tag != "" {
		query += ` AND tags LIKE ?`
		args = append(args, `%"`+req.Tag+`"%`)
	}
	query += ` ORDER BY creation_time DESC`
	if req.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", req.Limit)
	}

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Entry
	for rows.Next() {
		m, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (e *entries) UpdateContent(ctx context.Context, userID, entryID, content string, tags []string) (*model.Entry, error) {
	res, err := e.db.ExecContext(ctx, `
        UPDATE entries SET content=?, tags=? WHERE user_id=? AND entry_id=? AND deleted=0
    `, content, marshalJSON(tags), userID, entryID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	return e.GetByID(ctx, userID, entryID)
}

func (e *entries) UpdateEnrichment(ctx context.Context, userID, entryID string, enr model.Enrichment) error {
	res, err := e.db.ExecContext(ctx, `
        UPDATE entries SET emotion=?, themes=?, people=?, urgency=? WHERE user_id=? AND entry_id=?
    `, nullIfEmpty(enr.Emotion), marshalJSON(enr.Themes), marshalJSON(enr.People),
		nullIfEmpty(enr.Urgency), userID, entryID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (e *entries) Delete(ctx context.Context, userID, entryID string) error {
	res, err := e.db.ExecContext(ctx, `
        UPDATE entries SET deleted=1 WHERE user_id=? AND entry_id=? AND deleted=0
    `, userID, entryID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (e *entries) CountSince(ctx context.Context, userID string, cutoff time.Time) (int, error) {
	var n int
	err := e.db.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM entries WHERE user_id=? AND deleted=0 AND creation_time >= ?
    `, userID, cutoff).Scan(&n)
	return n, err
}

// --- Entity patterns ---

type entityPatterns struct{ db *sql.DB }

func (p *entityPatterns) Get(ctx context.Context, userID, entity string) (*model.EntityPattern, error) {
	row := p.db.QueryRowContext(ctx, `
        SELECT user_id, entity, mention_count, theme_correlations, emotion_correlations,
               urgency_correlations, hour_counts, weekday_counts, confidence_score, first_seen, last_seen
        FROM entity_patterns WHERE user_id=? AND entity=?
    `, userID, entity)
	return scanEntityPattern(row)
}

func (p *entityPatterns) Put(ctx context.Context, m *model.EntityPattern) error {
	_, err := p.db.ExecContext(ctx, `
        INSERT INTO entity_patterns
            (user_id, entity, mention_count, theme_correlations, emotion_correlations,
             urgency_correlations, hour_counts, weekday_counts, confidence_score, first_seen, last_seen)
        VALUES (?,?,?,?,?,?,?,?,?,?,?)
        ON CONFLICT(user_id, entity) DO UPDATE SET
            mention_count=excluded.mention_count,
            theme_correlations=excluded.theme_correlations,
            emotion_correlations=excluded.emotion_correlations,
            urgency_correlations=excluded.urgency_correlations,
            hour_counts=excluded.hour_counts,
            weekday_counts=excluded.weekday_counts,
            confidence_score=excluded.confidence_score,
            last_seen=excluded.last_seen
    `, m.UserID, m.Entity, m.MentionCount, marshalJSON(m.ThemeCorrelations),
		marshalJSON(m.EmotionCorrelations), marshalJSON(m.UrgencyCorrelations),
		marshalJSON(m.HourCounts), marshalJSON(m.WeekdayCounts),
		m.ConfidenceScore, m.FirstSeen, m.LastSeen)
	return err
}

func (p *entityPatterns) List(ctx context.Context, userID string, limit int) ([]*model.EntityPattern, error) {
	query := `
        SELECT user_id, entity, mention_count, theme_correlations, emotion_correlations,
               urgency_correlations, hour_counts, weekday_counts, confidence_score, first_seen, last_seen
        FROM entity_patterns WHERE user_id=? ORDER BY mention_count DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := p.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.EntityPattern
	for rows.Next() {
		m, err := scanEntityPattern(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- Temporal patterns ---

type temporalPatterns struct{ db *sql.DB }

func (p *temporalPatterns) Get(ctx context.Context, userID, timeBlock, weekday string) (*model.TemporalPattern, error) {
	row := p.db.QueryRowContext(ctx, `
        SELECT user_id, time_block, weekday, common_themes, common_emotions, sample_count, confidence_score
        FROM temporal_patterns WHERE user_id=? AND time_block=? AND weekday=?
    `, userID, timeBlock, weekday)
	return scanTemporalPattern(row)
}

func (p *temporalPatterns) Put(ctx context.Context, m *model.TemporalPattern) error {
	_, err := p.db.ExecContext(ctx, `
        INSERT INTO temporal_patterns
            (user_id, time_block, weekday, common_themes, common_emotions, sample_count, confidence_score)
        VALUES (?,?,?,?,?,?,?)
        ON CONFLICT(user_id, time_block, weekday) DO UPDATE SET
            common_themes=excluded.common_themes,
            common_emotions=excluded.common_emotions,
            sample_count=excluded.sample_count,
            confidence_score=excluded.confidence_score
    `, m.UserID, m.TimeBlock, m.Weekday, marshalJSON(m.CommonThemes),
		marshalJSON(m.CommonEmotions), m.SampleCount, m.ConfidenceScore)
	return err
}

func (p *temporalPatterns) List(ctx context.Context, userID string) ([]*model.TemporalPattern, error) {
	rows, err := p.db.QueryContext(ctx, `
        SELECT user_id, time_block, weekday, common_themes, common_emotions, sample_count, confidence_score
        FROM temporal_patterns WHERE user_id=? ORDER BY sample_count DESC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.TemporalPattern
	for rows.Next() {
		m, err := scanTemporalPattern(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- Streaks ---

type streaks struct{ db *sql.DB }

func (s *streaks) Get(ctx context.Context, userID, streakType, streakName string) (*model.Streak, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT user_id, streak_type, streak_name, current_count, best_count,
               last_entry_date, started_at, broken_at, is_active
        FROM streaks WHERE user_id=? AND streak_type=? AND streak_name=?
    `, userID, streakType, streakName)
	return scanStreak(row)
}

func (s *streaks) Put(ctx context.Context, m *model.Streak) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO streaks
            (user_id, streak_type, streak_name, current_count, best_count,
             last_entry_date, started_at, broken_at, is_active)
        VALUES (?,?,?,?,?,?,?,?,?)
        ON CONFLICT(user_id, streak_type, streak_name) DO UPDATE SET
            current_count=excluded.current_count,
            best_count=excluded.best_count,
            last_entry_date=excluded.last_entry_date,
            started_at=excluded.started_at,
            broken_at=excluded.broken_at,
            is_active=excluded.is_active
    `, m.UserID, m.StreakType, m.StreakName, m.CurrentCount, m.BestCount,
		m.LastEntryDate, m.StartedAt, m.BrokenAt, m.IsActive)
	return err
}

func (s *streaks) List(ctx context.Context, userID string) ([]*model.Streak, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT user_id, streak_type, streak_name, current_count, best_count,
               last_entry_date, started_at, broken_at, is_active
        FROM streaks WHERE user_id=? ORDER BY streak_type, streak_name
    `, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Streak
	for rows.Next() {
		m, err := scanStreak(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- scan helpers ---

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanEntry(row rowScanner) (*model.Entry, error) {
	var m model.Entry
	var tags, themes, people, emotion, urgency sql.NullString
	err := row.Scan(&m.UserID, &m.EntryID, &m.Content, &tags, &emotion, &themes, &people, &urgency, &m.CreationTime)
	if err != nil {
		return nil, translateErr(err)
	}
	unmarshalJSON(tags, &m.Tags)
	unmarshalJSON(themes, &m.Enrichment.Themes)
	unmarshalJSON(people, &m.Enrichment.People)
	m.Enrichment.Emotion = emotion.String
	m.Enrichment.Urgency = urgency.String
	return &m, nil
}

func scanEntityPattern(row rowScanner) (*model.EntityPattern, error) {
	var m model.EntityPattern
	var themes, emotions, urgencies, hours, weekdays sql.NullString
	err := row.Scan(&m.UserID, &m.Entity, &m.MentionCount, &themes, &emotions,
		&urgencies, &hours, &weekdays, &m.ConfidenceScore, &m.FirstSeen, &m.LastSeen)
	if err != nil {
		return nil, translateErr(err)
	}
	unmarshalJSON(themes, &m.ThemeCorrelations)
	unmarshalJSON(emotions, &m.EmotionCorrelations)
	unmarshalJSON(urgencies, &m.UrgencyCorrelations)
	unmarshalJSON(hours, &m.HourCounts)
	unmarshalJSON(weekdays, &m.WeekdayCounts)
	return &m, nil
}

func scanTemporalPattern(row rowScanner) (*model.TemporalPattern, error) {
	var m model.TemporalPattern
	var themes, emotions sql.NullString
	err := row.Scan(&m.UserID, &m.TimeBlock, &m.Weekday, &themes, &emotions, &m.SampleCount, &m.ConfidenceScore)
	if err != nil {
		return nil, translateErr(err)
	}
	unmarshalJSON(themes, &m.CommonThemes)
	unmarshalJSON(emotions, &m.CommonEmotions)
	return &m, nil
}

func scanStreak(row rowScanner) (*model.Streak, error) {
	var m model.Streak
	var last, started, broken sql.NullTime
	err := row.Scan(&m.UserID, &m.StreakType, &m.StreakName, &m.CurrentCount,
		&m.BestCount, &last, &started, &broken, &m.IsActive)
	if err != nil {
		return nil, translateErr(err)
	}
	if last.Valid {
		m.LastEntryDate = &last.Time
	}
	if started.Valid {
		m.StartedAt = &started.Time
	}
	if broken.Valid {
		m.BrokenAt = &broken.Time
	}
	return &m, nil
}

func translateErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func marshalJSON(v interface{}) interface{} {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return nil
	}
	return string(b)
}

func unmarshalJSON(s sql.NullString, dst interface{}) {
	if !s.Valid || s.String == "" {
		return
	}
	// Malformed stored JSON is skipped, not fatal; readers treat the field
	// as absent.
	_ = json.Unmarshal([]byte(s.String), dst)
}
