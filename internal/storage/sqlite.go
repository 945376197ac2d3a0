package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dshills/skout-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrNestedTx is returned when BeginTx is called on a transaction
	ErrNestedTx = errors.New("nested transactions are not supported")
	// ErrInvalidRecord is returned when a record fails validation
	ErrInvalidRecord = errors.New("invalid record")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// OpenDB opens a SQLite database with WAL, a single connection and foreign
// keys enabled.
func OpenDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// inTx runs fn inside a new transaction, committing on success.
func (s *SQLiteStorage) inTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Game operations

const upsertGameSQL = `
	INSERT INTO games (game_id, season_id, date, home_team, away_team, home_score, away_score, status, video_path)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(game_id) DO UPDATE SET
		season_id = excluded.season_id,
		date = excluded.date,
		home_team = excluded.home_team,
		away_team = excluded.away_team,
		home_score = excluded.home_score,
		away_score = excluded.away_score,
		status = excluded.status,
		video_path = COALESCE(excluded.video_path, games.video_path),
		updated_at = CURRENT_TIMESTAMP
`

// upsertGamesWithQuerier merges games keyed by game_id. Every column is
// last-write-wins except video_path, which a null never clears.
func (s *SQLiteStorage) upsertGamesWithQuerier(ctx context.Context, q querier, games []types.Game) (int, error) {
	count := 0
	for i := range games {
		g := &games[i]
		if err := g.Validate(); err != nil {
			log.WithError(err).WithField("game_id", g.GameID).Warn("skipping game")
			continue
		}
		_, err := q.ExecContext(ctx, upsertGameSQL,
			g.GameID, g.SeasonID, g.Date, g.HomeTeam, g.AwayTeam,
			g.HomeScore, g.AwayScore, g.Status, nullString(g.VideoPath))
		if err != nil {
			return count, fmt.Errorf("failed to upsert game %s: %w", g.GameID, err)
		}
		count++
	}
	return count, nil
}

// UpsertGames writes all games in one transaction and returns how many were
// written. Games failing validation are skipped.
func (s *SQLiteStorage) UpsertGames(ctx context.Context, games []types.Game) (int, error) {
	var count int
	err := s.inTx(ctx, func(q querier) error {
		var err error
		count, err = s.upsertGamesWithQuerier(ctx, q, games)
		return err
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

const gameColumns = `game_id, season_id, date, home_team, away_team, home_score, away_score, status, video_path`

func scanGame(row interface{ Scan(...any) error }) (*types.Game, error) {
	var g types.Game
	var seasonID, date, home, away, status, video sql.NullString
	var homeScore, awayScore sql.NullInt64
	if err := row.Scan(&g.GameID, &seasonID, &date, &home, &away, &homeScore, &awayScore, &status, &video); err != nil {
		return nil, err
	}
	g.SeasonID = seasonID.String
	g.Date = date.String
	g.HomeTeam = home.String
	g.AwayTeam = away.String
	g.HomeScore = int(homeScore.Int64)
	g.AwayScore = int(awayScore.Int64)
	g.Status = status.String
	if video.Valid {
		v := video.String
		g.VideoPath = &v
	}
	return &g, nil
}

func (s *SQLiteStorage) getGameWithQuerier(ctx context.Context, q querier, gameID string) (*types.Game, error) {
	row := q.QueryRowContext(ctx, "SELECT "+gameColumns+" FROM games WHERE game_id = ?", gameID)
	g, err := scanGame(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (s *SQLiteStorage) GetGame(ctx context.Context, gameID string) (*types.Game, error) {
	return s.getGameWithQuerier(ctx, s.querier(), gameID)
}

// getGamesWithQuerier loads games by id; missing ids are absent from the map
func (s *SQLiteStorage) getGamesWithQuerier(ctx context.Context, q querier, gameIDs []string) (map[string]*types.Game, error) {
	out := make(map[string]*types.Game, len(gameIDs))
	ids := uniqueNonEmpty(gameIDs)
	if len(ids) == 0 {
		return out, nil
	}

	query := "SELECT " + gameColumns + " FROM games WHERE game_id IN (" + placeholders(len(ids)) + ")"
	rows, err := q.QueryContext(ctx, query, toArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out[g.GameID] = g
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) GetGames(ctx context.Context, gameIDs []string) (map[string]*types.Game, error) {
	return s.getGamesWithQuerier(ctx, s.querier(), gameIDs)
}

func (s *SQLiteStorage) listGameIDsBySeasonWithQuerier(ctx context.Context, q querier, seasonID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT game_id FROM games WHERE season_id = ? ORDER BY date, game_id", seasonID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStorage) ListGameIDsBySeason(ctx context.Context, seasonID string) ([]string, error) {
	return s.listGameIDsBySeasonWithQuerier(ctx, s.querier(), seasonID)
}

// listLinkedGamesWithQuerier returns games in a season that have a video
func (s *SQLiteStorage) listLinkedGamesWithQuerier(ctx context.Context, q querier, seasonID string) ([]*types.Game, error) {
	query := "SELECT " + gameColumns + " FROM games WHERE video_path IS NOT NULL AND video_path != ''"
	args := []interface{}{}
	if seasonID != "" {
		query += " AND season_id = ?"
		args = append(args, seasonID)
	}
	query += " ORDER BY date, game_id"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	games := make([]*types.Game, 0)
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// ListLinkedGames returns games with a video, limited to a season when
// seasonID is non-empty
func (s *SQLiteStorage) ListLinkedGames(ctx context.Context, seasonID string) ([]*types.Game, error) {
	return s.listLinkedGamesWithQuerier(ctx, s.querier(), seasonID)
}

func (s *SQLiteStorage) setVideoPathWithQuerier(ctx context.Context, q querier, gameID, videoPath string) error {
	res, err := q.ExecContext(ctx,
		"UPDATE games SET video_path = ?, updated_at = CURRENT_TIMESTAMP WHERE game_id = ?",
		nullIfEmpty(videoPath), gameID)
	if err != nil {
		return fmt.Errorf("failed to set video path: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetVideoPath links a game to a recording. An empty path unlinks it.
func (s *SQLiteStorage) SetVideoPath(ctx context.Context, gameID, videoPath string) error {
	return s.setVideoPathWithQuerier(ctx, s.querier(), gameID, videoPath)
}

func countWithQuerier(ctx context.Context, q querier, query string, args ...interface{}) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLiteStorage) CountGames(ctx context.Context) (int, error) {
	return countWithQuerier(ctx, s.querier(), "SELECT COUNT(*) FROM games")
}

// Play operations

const insertPlaySQL = `
	INSERT OR REPLACE INTO plays
	(play_id, game_id, period, clock_seconds, clock_display, description, team_id, x_loc, y_loc, tags)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// replacePlaysWithQuerier deletes a game's plays and inserts the new set.
// Plays of other games are never touched.
func (s *SQLiteStorage) replacePlaysWithQuerier(ctx context.Context, q querier, gameID string, plays []types.Play) (int, error) {
	if gameID == "" {
		return 0, types.ErrMissingGameID
	}
	if _, err := s.getGameWithQuerier(ctx, q, gameID); err != nil {
		return 0, fmt.Errorf("game %s: %w", gameID, err)
	}

	if _, err := q.ExecContext(ctx, "DELETE FROM plays WHERE game_id = ?", gameID); err != nil {
		return 0, fmt.Errorf("failed to clear plays for game %s: %w", gameID, err)
	}

	count := 0
	for i := range plays {
		p := plays[i]
		p.GameID = gameID
		if err := p.Validate(); err != nil {
			return count, fmt.Errorf("%w: play %d of game %s: %w", ErrInvalidRecord, i, gameID, err)
		}
		_, err := q.ExecContext(ctx, insertPlaySQL,
			p.PlayID, p.GameID, p.Period, p.ClockSeconds, p.ClockDisplay,
			p.Description, nullIfEmpty(p.TeamID), nullInt(p.XLoc), nullInt(p.YLoc), p.Tags)
		if err != nil {
			return count, fmt.Errorf("failed to insert play %s: %w", p.PlayID, err)
		}
		count++
	}
	return count, nil
}

// ReplacePlays swaps a game's play set in one transaction
func (s *SQLiteStorage) ReplacePlays(ctx context.Context, gameID string, plays []types.Play) (int, error) {
	var count int
	err := s.inTx(ctx, func(q querier) error {
		var err error
		count, err = s.replacePlaysWithQuerier(ctx, q, gameID, plays)
		return err
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

const playColumns = `play_id, game_id, period, clock_seconds, clock_display, description, team_id, x_loc, y_loc, tags`

func scanPlay(row interface{ Scan(...any) error }) (*types.Play, error) {
	var p types.Play
	var period, clock, x, y sql.NullInt64
	var display, desc, team, tags sql.NullString
	if err := row.Scan(&p.PlayID, &p.GameID, &period, &clock, &display, &desc, &team, &x, &y, &tags); err != nil {
		return nil, err
	}
	p.Period = int(period.Int64)
	p.ClockSeconds = int(clock.Int64)
	p.ClockDisplay = display.String
	p.Description = desc.String
	p.TeamID = team.String
	p.Tags = tags.String
	if x.Valid {
		v := int(x.Int64)
		p.XLoc = &v
	}
	if y.Valid {
		v := int(y.Int64)
		p.YLoc = &v
	}
	return &p, nil
}

func (s *SQLiteStorage) getPlayWithQuerier(ctx context.Context, q querier, playID string) (*types.Play, error) {
	row := q.QueryRowContext(ctx, "SELECT "+playColumns+" FROM plays WHERE play_id = ?", playID)
	p, err := scanPlay(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *SQLiteStorage) GetPlay(ctx context.Context, playID string) (*types.Play, error) {
	return s.getPlayWithQuerier(ctx, s.querier(), playID)
}

func (s *SQLiteStorage) getPlaysWithQuerier(ctx context.Context, q querier, playIDs []string) (map[string]*types.Play, error) {
	out := make(map[string]*types.Play, len(playIDs))
	ids := uniqueNonEmpty(playIDs)
	if len(ids) == 0 {
		return out, nil
	}

	query := "SELECT " + playColumns + " FROM plays WHERE play_id IN (" + placeholders(len(ids)) + ")"
	rows, err := q.QueryContext(ctx, query, toArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plays: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		p, err := scanPlay(rows)
		if err != nil {
			return nil, err
		}
		out[p.PlayID] = p
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) GetPlays(ctx context.Context, playIDs []string) (map[string]*types.Play, error) {
	return s.getPlaysWithQuerier(ctx, s.querier(), playIDs)
}

// listPlaysByGameWithQuerier returns plays in game order: period ascending,
// then clock descending (clock counts down)
func (s *SQLiteStorage) listPlaysByGameWithQuerier(ctx context.Context, q querier, gameID string) ([]*types.Play, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+playColumns+" FROM plays WHERE game_id = ? ORDER BY period, clock_seconds DESC, play_id",
		gameID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	plays := make([]*types.Play, 0)
	for rows.Next() {
		p, err := scanPlay(rows)
		if err != nil {
			return nil, err
		}
		plays = append(plays, p)
	}
	return plays, rows.Err()
}

func (s *SQLiteStorage) ListPlaysByGame(ctx context.Context, gameID string) ([]*types.Play, error) {
	return s.listPlaysByGameWithQuerier(ctx, s.querier(), gameID)
}

func (s *SQLiteStorage) CountPlays(ctx context.Context) (int, error) {
	return countWithQuerier(ctx, s.querier(), "SELECT COUNT(*) FROM plays")
}

// uniqueTagsWithQuerier collects the distinct tags across all plays, sorted
func (s *SQLiteStorage) uniqueTagsWithQuerier(ctx context.Context, q querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT DISTINCT tags FROM plays WHERE tags IS NOT NULL AND tags != ''")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	seen := make(map[string]struct{})
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		for _, tag := range types.SplitTags(raw) {
			seen[tag] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags, nil
}

func (s *SQLiteStorage) UniqueTags(ctx context.Context) ([]string, error) {
	return s.uniqueTagsWithQuerier(ctx, s.querier())
}

// Play video operations

func (s *SQLiteStorage) upsertPlayVideosWithQuerier(ctx context.Context, q querier, videos []types.PlayVideo) (int, error) {
	count := 0
	for i := range videos {
		v := videos[i]
		if err := v.Validate(); err != nil {
			return count, fmt.Errorf("%w: video %d: %w", ErrInvalidRecord, i, err)
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO play_videos (video_id, play_id, game_id, url, start_time, end_time, angle, quality)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(video_id) DO UPDATE SET
				play_id = excluded.play_id,
				game_id = excluded.game_id,
				url = excluded.url,
				start_time = excluded.start_time,
				end_time = excluded.end_time,
				angle = excluded.angle,
				quality = excluded.quality,
				updated_at = CURRENT_TIMESTAMP
		`, v.VideoID, v.PlayID, v.GameID, nullIfEmpty(v.URL), nullIfEmpty(v.StartTime),
			nullIfEmpty(v.EndTime), nullIfEmpty(v.Angle), nullIfEmpty(v.Quality))
		if err != nil {
			return count, fmt.Errorf("failed to upsert video %s: %w", v.VideoID, err)
		}
		count++
	}
	return count, nil
}

// UpsertPlayVideos stores video assets in one transaction, replacing any
// asset with the same video id.
func (s *SQLiteStorage) UpsertPlayVideos(ctx context.Context, videos []types.PlayVideo) (int, error) {
	var count int
	err := s.inTx(ctx, func(q querier) error {
		var err error
		count, err = s.upsertPlayVideosWithQuerier(ctx, q, videos)
		return err
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *SQLiteStorage) listPlayVideosWithQuerier(ctx context.Context, q querier, gameID string) ([]*types.PlayVideo, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT video_id, play_id, game_id, url, start_time, end_time, angle, quality
		FROM play_videos WHERE game_id = ?
		ORDER BY play_id, video_id
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	videos := make([]*types.PlayVideo, 0)
	for rows.Next() {
		var v types.PlayVideo
		var url, start, end, angle, quality sql.NullString
		if err := rows.Scan(&v.VideoID, &v.PlayID, &v.GameID, &url, &start, &end, &angle, &quality); err != nil {
			return nil, err
		}
		v.URL = url.String
		v.StartTime = start.String
		v.EndTime = end.String
		v.Angle = angle.String
		v.Quality = quality.String
		videos = append(videos, &v)
	}
	return videos, rows.Err()
}

// ListPlayVideos returns the stored video assets of a game's plays.
func (s *SQLiteStorage) ListPlayVideos(ctx context.Context, gameID string) ([]*types.PlayVideo, error) {
	return s.listPlayVideosWithQuerier(ctx, s.querier(), gameID)
}

// Run operations

func (s *SQLiteStorage) recordRunWithQuerier(ctx context.Context, q querier, run *Run) error {
	if run.RunID == "" {
		return fmt.Errorf("%w: run id is required", ErrInvalidRecord)
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = run.FinishedAt
	}
	_, err := q.ExecContext(ctx, `
		INSERT OR REPLACE INTO ingest_runs
		(run_id, league, season_id, inserted_games, inserted_plays, indexed_plays, skipped_games, warnings, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.RunID, run.League, run.SeasonID, run.InsertedGames, run.InsertedPlays, run.IndexedPlays,
		run.SkippedGames, run.Warnings, run.StartedAt.UTC(), run.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) RecordRun(ctx context.Context, run *Run) error {
	return s.recordRunWithQuerier(ctx, s.querier(), run)
}

func (s *SQLiteStorage) listRunsWithQuerier(ctx context.Context, q querier, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := q.QueryContext(ctx, `
		SELECT run_id, league, season_id, inserted_games, inserted_plays, indexed_plays,
		       skipped_games, warnings, started_at, finished_at
		FROM ingest_runs
		ORDER BY finished_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	runs := make([]*Run, 0)
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.League, &r.SeasonID, &r.InsertedGames, &r.InsertedPlays,
			&r.IndexedPlays, &r.SkippedGames, &r.Warnings, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// ListRuns returns the most recent ingest runs, newest first
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	return s.listRunsWithQuerier(ctx, s.querier(), limit)
}

// Status operations

func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier) (*Status, error) {
	status := &Status{BuildMode: BuildMode}

	var err error
	if status.Games, err = countWithQuerier(ctx, q, "SELECT COUNT(*) FROM games"); err != nil {
		return nil, err
	}
	if status.LinkedGames, err = countWithQuerier(ctx, q,
		"SELECT COUNT(*) FROM games WHERE video_path IS NOT NULL AND video_path != ''"); err != nil {
		return nil, err
	}
	if status.Plays, err = countWithQuerier(ctx, q, "SELECT COUNT(*) FROM plays"); err != nil {
		return nil, err
	}
	if status.PlayVideos, err = countWithQuerier(ctx, q, "SELECT COUNT(*) FROM play_videos"); err != nil {
		return nil, err
	}
	if status.Seasons, err = countWithQuerier(ctx, q, "SELECT COUNT(DISTINCT season_id) FROM games"); err != nil {
		return nil, err
	}

	// Calculate database size
	var pageCount, pageSize int64
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.SizeBytes = pageCount * pageSize
	}

	if v, err := currentVersion(ctx, q); err == nil {
		status.SchemaVersion = v.String()
	}

	runs, err := s.listRunsWithQuerier(ctx, q, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) > 0 {
		status.LastRun = runs[0]
	}

	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	return s.getStatusWithQuerier(ctx, s.querier())
}

// Transaction implementations delegate to the querier-based helpers

func (t *sqliteTx) UpsertGames(ctx context.Context, games []types.Game) (int, error) {
	return t.storage.upsertGamesWithQuerier(ctx, t.querier(), games)
}

func (t *sqliteTx) GetGame(ctx context.Context, gameID string) (*types.Game, error) {
	return t.storage.getGameWithQuerier(ctx, t.querier(), gameID)
}

func (t *sqliteTx) GetGames(ctx context.Context, gameIDs []string) (map[string]*types.Game, error) {
	return t.storage.getGamesWithQuerier(ctx, t.querier(), gameIDs)
}

func (t *sqliteTx) ListGameIDsBySeason(ctx context.Context, seasonID string) ([]string, error) {
	return t.storage.listGameIDsBySeasonWithQuerier(ctx, t.querier(), seasonID)
}

func (t *sqliteTx) ListLinkedGames(ctx context.Context, seasonID string) ([]*types.Game, error) {
	return t.storage.listLinkedGamesWithQuerier(ctx, t.querier(), seasonID)
}

func (t *sqliteTx) SetVideoPath(ctx context.Context, gameID, videoPath string) error {
	return t.storage.setVideoPathWithQuerier(ctx, t.querier(), gameID, videoPath)
}

func (t *sqliteTx) CountGames(ctx context.Context) (int, error) {
	return countWithQuerier(ctx, t.querier(), "SELECT COUNT(*) FROM games")
}

func (t *sqliteTx) ReplacePlays(ctx context.Context, gameID string, plays []types.Play) (int, error) {
	return t.storage.replacePlaysWithQuerier(ctx, t.querier(), gameID, plays)
}

func (t *sqliteTx) GetPlay(ctx context.Context, playID string) (*types.Play, error) {
	return t.storage.getPlayWithQuerier(ctx, t.querier(), playID)
}

func (t *sqliteTx) GetPlays(ctx context.Context, playIDs []string) (map[string]*types.Play, error) {
	return t.storage.getPlaysWithQuerier(ctx, t.querier(), playIDs)
}

func (t *sqliteTx) ListPlaysByGame(ctx context.Context, gameID string) ([]*types.Play, error) {
	return t.storage.listPlaysByGameWithQuerier(ctx, t.querier(), gameID)
}

func (t *sqliteTx) CountPlays(ctx context.Context) (int, error) {
	return countWithQuerier(ctx, t.querier(), "SELECT COUNT(*) FROM plays")
}

func (t *sqliteTx) UniqueTags(ctx context.Context) ([]string, error) {
	return t.storage.uniqueTagsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) UpsertPlayVideos(ctx context.Context, videos []types.PlayVideo) (int, error) {
	return t.storage.upsertPlayVideosWithQuerier(ctx, t.querier(), videos)
}

func (t *sqliteTx) ListPlayVideos(ctx context.Context, gameID string) ([]*types.PlayVideo, error) {
	return t.storage.listPlayVideosWithQuerier(ctx, t.querier(), gameID)
}

func (t *sqliteTx) RecordRun(ctx context.Context, run *Run) error {
	return t.storage.recordRunWithQuerier(ctx, t.querier(), run)
}

func (t *sqliteTx) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	return t.storage.listRunsWithQuerier(ctx, t.querier(), limit)
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*Status, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) Close() error {
	// Transactions don't close, they commit or rollback
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, ErrNestedTx
}

// helpers

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(ids []string) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func uniqueNonEmpty(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
