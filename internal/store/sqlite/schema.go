package sqlite

import "database/sql"

// EnsureSchema creates the four pattern-engine tables if they do not exist.
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS entries (
            user_id TEXT NOT NULL,
            entry_id TEXT NOT NULL,
            content TEXT NOT NULL,
            tags TEXT,
            emotion TEXT,
            themes TEXT,
            people TEXT,
            urgency TEXT,
            creation_time TIMESTAMP NOT NULL,
            deleted INTEGER NOT NULL DEFAULT 0,
            PRIMARY KEY(user_id, entry_id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_entries_user_time ON entries(user_id, creation_time DESC);`,
		`CREATE TABLE IF NOT EXISTS entity_patterns (
            user_id TEXT NOT NULL,
            entity TEXT NOT NULL,
            mention_count INTEGER NOT NULL DEFAULT 0,
            theme_correlations TEXT,
            emotion_correlations TEXT,
            urgency_correlations TEXT,
            hour_counts TEXT,
            weekday_counts TEXT,
            confidence_score REAL NOT NULL DEFAULT 0,
            first_seen TIMESTAMP NOT NULL,
            last_seen TIMESTAMP NOT NULL,
            PRIMARY KEY(user_id, entity)
        );`,
		`CREATE TABLE IF NOT EXISTS temporal_patterns (
            user_id TEXT NOT NULL,
            time_block TEXT NOT NULL,
            weekday TEXT NOT NULL,
            common_themes TEXT,
            common_emotions TEXT,
            sample_count INTEGER NOT NULL DEFAULT 0,
            confidence_score REAL NOT NULL DEFAULT 0,
            PRIMARY KEY(user_id, time_block, weekday)
        );`,
		`CREATE TABLE IF NOT EXISTS streaks (
            user_id TEXT NOT NULL,
            streak_type TEXT NOT NULL,
            streak_name TEXT NOT NULL DEFAULT '',
            current_count INTEGER NOT NULL DEFAULT 0,
            best_count INTEGER NOT NULL DEFAULT 0,
            last_entry_date TIMESTAMP,
            started_at TIMESTAMP,
            broken_at TIMESTAMP,
            is_active INTEGER NOT NULL DEFAULT 0,
            PRIMARY KEY(user_id, streak_type, streak_name)
        );`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
