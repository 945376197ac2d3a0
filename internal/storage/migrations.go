package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.2.0"
)

// Migration represents a database schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains all relational cache migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
	{
		Version: "1.1.0",
		Up:      migrationV11Up,
		Down:    migrationV11Down,
	},
	{
		Version: "1.2.0",
		Up:      migrationV12Up,
		Down:    migrationV12Down,
	},
}

const schemaVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const migrationV1Up = `
-- Games table
CREATE TABLE IF NOT EXISTS games (
    game_id TEXT PRIMARY KEY,
    season_id TEXT,
    date TEXT,
    home_team TEXT,
    away_team TEXT,
    home_score INTEGER DEFAULT 0,
    away_score INTEGER DEFAULT 0,
    status TEXT,
    video_path TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_games_season ON games(season_id);
CREATE INDEX IF NOT EXISTS idx_games_video ON games(season_id, video_path);

-- Plays table
CREATE TABLE IF NOT EXISTS plays (
    play_id TEXT PRIMARY KEY,
    game_id TEXT NOT NULL,
    period INTEGER,
    clock_seconds INTEGER DEFAULT 0,
    clock_display TEXT,
    description TEXT,
    team_id TEXT,
    x_loc INTEGER,
    y_loc INTEGER,
    tags TEXT DEFAULT '',
    FOREIGN KEY (game_id) REFERENCES games(game_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_plays_game ON plays(game_id);
`

const migrationV1Down = `
DROP TABLE IF EXISTS plays;
DROP TABLE IF EXISTS games;
`

const migrationV11Up = `
-- Ingest run history
CREATE TABLE IF NOT EXISTS ingest_runs (
    run_id TEXT PRIMARY KEY,
    league TEXT NOT NULL,
    season_id TEXT NOT NULL,
    inserted_games INTEGER DEFAULT 0,
    inserted_plays INTEGER DEFAULT 0,
    indexed_plays INTEGER DEFAULT 0,
    skipped_games INTEGER DEFAULT 0,
    warnings INTEGER DEFAULT 0,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ingest_runs_finished ON ingest_runs(finished_at);
`

const migrationV11Down = `
DROP TABLE IF EXISTS ingest_runs;
`

// Video assets outlive a play re-ingest: play ids are stable across crawls.
const migrationV12Up = `
CREATE TABLE IF NOT EXISTS play_videos (
    video_id TEXT PRIMARY KEY,
    play_id TEXT NOT NULL,
    game_id TEXT NOT NULL,
    url TEXT,
    start_time TEXT,
    end_time TEXT,
    angle TEXT,
    quality TEXT,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_play_videos_play ON play_videos(play_id);
CREATE INDEX IF NOT EXISTS idx_play_videos_game ON play_videos(game_id);
`

const migrationV12Down = `
DROP TABLE IF EXISTS play_videos;
`

// ApplyMigrations runs all pending relational cache migrations
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	return ApplyMigrationSet(ctx, db, AllMigrations)
}

// CurrentVersion returns the highest applied migration version, or 0.0.0
func CurrentVersion(ctx context.Context, db *sql.DB) (*semver.Version, error) {
	return currentVersion(ctx, db)
}

func currentVersion(ctx context.Context, q querier) (*semver.Version, error) {
	// Check if schema_version table exists
	var tableName string
	err := q.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)
	if err == sql.ErrNoRows {
		return semver.MustParse("0.0.0"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check schema_version table: %w", err)
	}

	rows, err := q.QueryContext(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	defer func() { _ = rows.Close() }()

	// applied_at has second resolution, so compare versions instead of ordering by time
	current := semver.MustParse("0.0.0")
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		parsed, err := semver.NewVersion(v)
		if err != nil {
			return nil, fmt.Errorf("invalid schema version %s: %w", v, err)
		}
		if parsed.GreaterThan(current) {
			current = parsed
		}
	}
	return current, rows.Err()
}

// ApplyMigrationSet runs the pending migrations of an ordered set.
func ApplyMigrationSet(ctx context.Context, db *sql.DB, migrations []Migration) error {
	if _, err := db.ExecContext(ctx, schemaVersionTable); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	currentVersion, err := CurrentVersion(ctx, db)
	if err != nil {
		return err
	}

	// Run migrations in order
	for _, migration := range migrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}

		if !currentVersion.LessThan(migrationVersion) {
			continue // Already applied
		}

		_, err = db.ExecContext(ctx, migration.Up)
		if err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}

		_, err = db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", migration.Version)
		if err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}

		currentVersion = migrationVersion
	}

	return nil
}

// RollbackMigration rolls back the most recent migration of a set
func RollbackMigration(ctx context.Context, db *sql.DB, migrations []Migration) error {
	current, err := CurrentVersion(ctx, db)
	if err != nil {
		return err
	}
	currentVersion := current.Original()

	var migration *Migration
	for i := range migrations {
		if v, err := semver.NewVersion(migrations[i].Version); err == nil && v.Equal(current) {
			migration = &migrations[i]
			break
		}
	}

	if migration == nil {
		return fmt.Errorf("migration %s not found", currentVersion)
	}

	_, err = db.ExecContext(ctx, migration.Down)
	if err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", currentVersion, err)
	}

	_, err = db.ExecContext(ctx, "DELETE FROM schema_version WHERE version = ?", migration.Version)
	if err != nil {
		return fmt.Errorf("failed to remove migration record %s: %w", currentVersion, err)
	}

	return nil
}
