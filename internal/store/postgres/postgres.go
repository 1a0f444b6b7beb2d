package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/spiffler33/lean-insights/internal/model"
	"github.com/spiffler33/lean-insights/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies
// connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB constructs a Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

// Bootstrap creates the pattern-engine tables if they do not exist. It is
// called once at startup; existing data is never touched.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS entries (
            user_id TEXT NOT NULL,
            entry_id TEXT NOT NULL,
            content TEXT NOT NULL,
            tags JSONB,
            emotion TEXT,
            themes JSONB,
            people JSONB,
            urgency TEXT,
            creation_time TIMESTAMPTZ NOT NULL,
            deleted BOOLEAN NOT NULL DEFAULT FALSE,
            PRIMARY KEY(user_id, entry_id)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_entries_user_time ON entries(user_id, creation_time DESC)`,
		`CREATE TABLE IF NOT EXISTS entity_patterns (
            user_id TEXT NOT NULL,
            entity TEXT NOT NULL,
            mention_count INTEGER NOT NULL DEFAULT 0,
            theme_correlations JSONB,
            emotion_correlations JSONB,
            urgency_correlations JSONB,
            hour_counts JSONB,
            weekday_counts JSONB,
            confidence_score DOUBLE PRECISION NOT NULL DEFAULT 0,
            first_seen TIMESTAMPTZ NOT NULL,
            last_seen TIMESTAMPTZ NOT NULL,
            PRIMARY KEY(user_id, entity)
        )`,
		`CREATE TABLE IF NOT EXISTS temporal_patterns (
            user_id TEXT NOT NULL,
            time_block TEXT NOT NULL,
            weekday TEXT NOT NULL,
            common_themes JSONB,
            common_emotions JSONB,
            sample_count INTEGER NOT NULL DEFAULT 0,
            confidence_score DOUBLE PRECISION NOT NULL DEFAULT 0,
            PRIMARY KEY(user_id, time_block, weekday)
        )`,
		`CREATE TABLE IF NOT EXISTS streaks (
            user_id TEXT NOT NULL,
            streak_type TEXT NOT NULL,
            streak_name TEXT NOT NULL DEFAULT '',
            current_count INTEGER NOT NULL DEFAULT 0,
            best_count INTEGER NOT NULL DEFAULT 0,
            last_entry_date TIMESTAMPTZ,
            started_at TIMESTAMPTZ,
            broken_at TIMESTAMPTZ,
            is_active BOOLEAN NOT NULL DEFAULT FALSE,
            PRIMARY KEY(user_id, streak_type, streak_name)
        )`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

type pgStore struct{ db *sql.DB }

func (s *pgStore) Entries() store.Entries                   { return &entries{db: s.db} }
func (s *pgStore) EntityPatterns() store.EntityPatterns     { return &entityPatterns{db: s.db} }
func (s *pgStore) TemporalPatterns() store.TemporalPatterns { return &temporalPatterns{db: s.db} }
func (s *pgStore) Streaks() store.Streaks                   { return &streaks{db: s.db} }

func (s *pgStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

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
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,FALSE)
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
        SELECT `+entryColumns+` FROM entries WHERE user_id=$1 AND entry_id=$2 AND NOT deleted
    `, userID, entryID)
	return scanEntry(row)
}

func (e *entries) List(ctx context.Context, req model.ListEntriesRequest) ([]*model.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE user_id=$1 AND NOT deleted`
	args := []interface{}{req.UserID}
	if req.Before != nil {
		args = append(args, *req.Before)
		query += fmt.Sprintf(" AND creation_time < $%d", len(args))
	}
	if req.After != nil {
		args = append(args, *req.After)
		query += fmt.Sprintf(" AND creation_time >= $%d", len(args))
	}
	if req.Search != "" {
		args = append(args, "%"+req.Search+"%")
		n := len(args)
		query += fmt.Sprintf(" AND (content ILIKE $%d OR tags::text ILIKE $%d)", n, n)
	}
	if req.Tag != "" {
		args = append(args, `%"`+req.Tag+`"%`)
		query += fmt.Sprintf(" AND tags::text LIKE $%d", len(args))
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
        UPDATE entries SET content=$1, tags=$2 WHERE user_id=$3 AND entry_id=$4 AND NOT deleted
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
        UPDATE entries SET emotion=$1, themes=$2, people=$3, urgency=$4 WHERE user_id=$5 AND entry_id=$6
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
        UPDATE entries SET deleted=TRUE WHERE user_id=$1 AND entry_id=$2 AND NOT deleted
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
        SELECT COUNT(*) FROM entries WHERE user_id=$1 AND NOT deleted AND creation_time >= $2
    `, userID, cutoff).Scan(&n)
	return n, err
}

// --- Entity patterns ---

type entityPatterns struct{ db *sql.DB }

const entityPatternColumns = `user_id, entity, mention_count, theme_correlations, emotion_correlations,
           urgency_correlations, hour_counts, weekday_counts, confidence_score, first_seen, last_seen`

func (p *entityPatterns) Get(ctx context.Context, userID, entity string) (*model.EntityPattern, error) {
	row := p.db.QueryRowContext(ctx, `
        SELECT `+entityPatternColumns+` FROM entity_patterns WHERE user_id=$1 AND entity=$2
    `, userID, entity)
	return scanEntityPattern(row)
}

func (p *entityPatterns) Put(ctx context.Context, m *model.EntityPattern) error {
	_, err := p.db.ExecContext(ctx, `
        INSERT INTO entity_patterns
            (user_id, entity, mention_count, theme_correlations, emotion_correlations,
             urgency_correlations, hour_counts, weekday_counts, confidence_score, first_seen, last_seen)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        ON CONFLICT (user_id, entity) DO UPDATE SET
            mention_count=EXCLUDED.mention_count,
            theme_correlations=EXCLUDED.theme_correlations,
            emotion_correlations=EXCLUDED.emotion_correlations,
            urgency_correlations=EXCLUDED.urgency_correlations,
            hour_counts=EXCLUDED.hour_counts,
            weekday_counts=EXCLUDED.weekday_counts,
            confidence_score=EXCLUDED.confidence_score,
            last_seen=EXCLUDED.last_seen
    `, m.UserID, m.Entity, m.MentionCount, marshalJSON(m.ThemeCorrelations),
		marshalJSON(m.EmotionCorrelations), marshalJSON(m.UrgencyCorrelations),
		marshalJSON(m.HourCounts), marshalJSON(m.WeekdayCounts),
		m.ConfidenceScore, m.FirstSeen, m.LastSeen)
	return err
}

func (p *entityPatterns) List(ctx context.Context, userID string, limit int) ([]*model.EntityPattern, error) {
	query := `SELECT ` + entityPatternColumns + ` FROM entity_patterns WHERE user_id=$1 ORDER BY mention_count DESC`
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
        FROM temporal_patterns WHERE user_id=$1 AND time_block=$2 AND weekday=$3
    `, userID, timeBlock, weekday)
	return scanTemporalPattern(row)
}

func (p *temporalPatterns) Put(ctx context.Context, m *model.TemporalPattern) error {
	_, err := p.db.ExecContext(ctx, `
        INSERT INTO temporal_patterns
            (user_id, time_block, weekday, common_themes, common_emotions, sample_count, confidence_score)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (user_id, time_block, weekday) DO UPDATE SET
            common_themes=EXCLUDED.common_themes,
            common_emotions=EXCLUDED.common_emotions,
            sample_count=EXCLUDED.sample_count,
            confidence_score=EXCLUDED.confidence_score
    `, m.UserID, m.TimeBlock, m.Weekday, marshalJSON(m.CommonThemes),
		marshalJSON(m.CommonEmotions), m.SampleCount, m.ConfidenceScore)
	return err
}

func (p *temporalPatterns) List(ctx context.Context, userID string) ([]*model.TemporalPattern, error) {
	rows, err := p.db.QueryContext(ctx, `
        SELECT user_id, time_block, weekday, common_themes, common_emotions, sample_count, confidence_score
        FROM temporal_patterns WHERE user_id=$1 ORDER BY sample_count DESC
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
        FROM streaks WHERE user_id=$1 AND streak_type=$2 AND streak_name=$3
    `, userID, streakType, streakName)
	return scanStreak(row)
}

func (s *streaks) Put(ctx context.Context, m *model.Streak) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO streaks
            (user_id, streak_type, streak_name, current_count, best_count,
             last_entry_date, started_at, broken_at, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (user_id, streak_type, streak_name) DO UPDATE SET
            current_count=EXCLUDED.current_count,
            best_count=EXCLUDED.best_count,
            last_entry_date=EXCLUDED.last_entry_date,
            started_at=EXCLUDED.started_at,
            broken_at=EXCLUDED.broken_at,
            is_active=EXCLUDED.is_active
    `, m.UserID, m.StreakType, m.StreakName, m.CurrentCount, m.BestCount,
		m.LastEntryDate, m.StartedAt, m.BrokenAt, m.IsActive)
	return err
}

func (s *streaks) List(ctx context.Context, userID string) ([]*model.Streak, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT user_id, streak_type, streak_name, current_count, best_count,
               last_entry_date, started_at, broken_at, is_active
        FROM streaks WHERE user_id=$1 ORDER BY streak_type, streak_name
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
	_ = json.Unmarshal([]byte(s.String), dst)
}
