package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/skout-mcp/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	return storage
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func testGame(id, season string) types.Game {
	return types.Game{
		GameID:    id,
		SeasonID:  season,
		Date:      "2024-01-15T19:00:00Z",
		HomeTeam:  "Duke",
		AwayTeam:  "UNC",
		HomeScore: 80,
		AwayScore: 75,
		Status:    types.StatusFinal,
	}
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	assert.NotNil(t, storage.db)

	v, err := CurrentVersion(context.Background(), storage.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	require.NoError(t, ApplyMigrations(ctx, storage.db))

	n, err := countWithQuerier(ctx, storage.db, "SELECT COUNT(*) FROM schema_version")
	require.NoError(t, err)
	assert.Equal(t, len(AllMigrations), n)
}

func TestRollbackMigration(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	require.NoError(t, RollbackMigration(ctx, storage.db, AllMigrations))

	v, err := CurrentVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", v.String())

	var name string
	err = storage.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='play_videos'").Scan(&name)
	assert.Error(t, err)
	err = storage.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='ingest_runs'").Scan(&name)
	assert.NoError(t, err)

	// Re-applying brings the table back
	require.NoError(t, ApplyMigrations(ctx, storage.db))
	v, err = CurrentVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())
}

func TestGetGame_NotFound(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	_, err := storage.GetGame(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertGames_SkipsInvalid(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	scheduled := testGame("g2", "s1")
	scheduled.Status = "Scheduled"
	noID := testGame("", "s1")

	n, err := storage.UpsertGames(ctx, []types.Game{testGame("g1", "s1"), scheduled, noID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := storage.CountGames(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetGames_Batch(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	_, err := storage.UpsertGames(ctx, []types.Game{testGame("g1", "s1"), testGame("g2", "s1")})
	require.NoError(t, err)

	games, err := storage.GetGames(ctx, []string{"g1", "g2", "g1", "missing", ""})
	require.NoError(t, err)
	assert.Len(t, games, 2)
	assert.Equal(t, "Duke vs UNC", games["g1"].Matchup())

	empty, err := storage.GetGames(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestListGameIDsBySeason(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	_, err := storage.UpsertGames(ctx, []types.Game{
		testGame("g1", "s1"), testGame("g2", "s1"), testGame("g3", "s2"),
	})
	require.NoError(t, err)

	ids, err := storage.ListGameIDsBySeason(ctx, "s1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"g1", "g2"}, ids)
}

func TestLinkedGames(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	_, err := storage.UpsertGames(ctx, []types.Game{
		testGame("g1", "s1"), testGame("g2", "s1"), testGame("g3", "s2"),
	})
	require.NoError(t, err)

	require.NoError(t, storage.SetVideoPath(ctx, "g1", "/videos/g1.mp4"))
	require.NoError(t, storage.SetVideoPath(ctx, "g3", "/videos/g3.mp4"))
	assert.ErrorIs(t, storage.SetVideoPath(ctx, "missing", "/x.mp4"), ErrNotFound)

	linked, err := storage.ListLinkedGames(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, "g1", linked[0].GameID)
	require.NotNil(t, linked[0].VideoPath)
	assert.Equal(t, "/videos/g1.mp4", *linked[0].VideoPath)

	all, err := storage.ListLinkedGames(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Empty path unlinks
	require.NoError(t, storage.SetVideoPath(ctx, "g1", ""))
	linked, err = storage.ListLinkedGames(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, linked)
}

func TestReplacePlays(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	_, err := storage.UpsertGames(ctx, []types.Game{testGame("g1", "s1")})
	require.NoError(t, err)

	plays := []types.Play{
		{PlayID: "p1", Period: 1, ClockSeconds: 1100, ClockDisplay: "1100", Description: "Jumper", TeamID: "t1", XLoc: intPtr(10), YLoc: intPtr(20), Tags: "Jumper, Transition"},
		{PlayID: "p2", Period: 2, ClockSeconds: 500, ClockDisplay: "500", Description: "Layup"},
	}
	n, err := storage.ReplacePlays(ctx, "g1", plays)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := storage.GetPlay(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "g1", got.GameID)
	assert.Equal(t, "t1", got.TeamID)
	require.NotNil(t, got.XLoc)
	assert.Equal(t, 10, *got.XLoc)
	assert.Equal(t, []string{"Jumper", "Transition"}, got.TagList())

	p2, err := storage.GetPlay(ctx, "p2")
	require.NoError(t, err)
	assert.Nil(t, p2.XLoc)
	assert.Empty(t, p2.TeamID)

	list, err := storage.ListPlaysByGame(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "p1", list[0].PlayID)

	_, err = storage.GetPlay(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplacePlays_UnknownGame(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	_, err := storage.ReplacePlays(context.Background(), "missing", []types.Play{{PlayID: "p1"}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplacePlays_InvalidRollsBack(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	_, err := storage.UpsertGames(ctx, []types.Game{testGame("g1", "s1")})
	require.NoError(t, err)
	_, err = storage.ReplacePlays(ctx, "g1", []types.Play{{PlayID: "p1", Description: "keep"}})
	require.NoError(t, err)

	_, err = storage.ReplacePlays(ctx, "g1", []types.Play{{PlayID: "p2"}, {PlayID: ""}})
	assert.ErrorIs(t, err, ErrInvalidRecord)
	assert.ErrorIs(t, err, types.ErrMissingPlayID)

	// Original play set survives the failed replace
	p, err := storage.GetPlay(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "keep", p.Description)
	_, err = storage.GetPlay(ctx, "p2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetPlays_Batch(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	_, err := storage.UpsertGames(ctx, []types.Game{testGame("g1", "s1")})
	require.NoError(t, err)
	_, err = storage.ReplacePlays(ctx, "g1", []types.Play{{PlayID: "p1"}, {PlayID: "p2"}})
	require.NoError(t, err)

	plays, err := storage.GetPlays(ctx, []string{"p1", "p2", "p3"})
	require.NoError(t, err)
	assert.Len(t, plays, 2)
	assert.Contains(t, plays, "p1")
}

func TestUniqueTags(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	_, err := storage.UpsertGames(ctx, []types.Game{testGame("g1", "s1")})
	require.NoError(t, err)
	_, err = storage.ReplacePlays(ctx, "g1", []types.Play{
		{PlayID: "p1", Tags: "Transition, Pick and Roll"},
		{PlayID: "p2", Tags: "Post Up"},
		{PlayID: "p3", Tags: "Transition"},
		{PlayID: "p4"},
	})
	require.NoError(t, err)

	tags, err := storage.UniqueTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pick and Roll", "Post Up", "Transition"}, tags)
}

func TestRuns(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	first := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, storage.RecordRun(ctx, &Run{
		RunID: "r1", League: "ncaamb", SeasonID: "s1", InsertedGames: 3,
		StartedAt: first, FinishedAt: first.Add(time.Minute),
	}))
	require.NoError(t, storage.RecordRun(ctx, &Run{
		RunID: "r2", League: "ncaamb", SeasonID: "s1", InsertedPlays: 40,
		StartedAt: first.Add(time.Hour), FinishedAt: first.Add(time.Hour + time.Minute),
	}))
	assert.ErrorIs(t, storage.RecordRun(ctx, &Run{}), ErrInvalidRecord)

	runs, err := storage.ListRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].RunID)
	assert.Equal(t, 40, runs[0].InsertedPlays)
}

func TestGetStatus(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	_, err := storage.UpsertGames(ctx, []types.Game{testGame("g1", "s1"), testGame("g2", "s2")})
	require.NoError(t, err)
	require.NoError(t, storage.SetVideoPath(ctx, "g1", "/v.mp4"))
	_, err = storage.ReplacePlays(ctx, "g1", []types.Play{{PlayID: "p1"}})
	require.NoError(t, err)

	status, err := storage.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Games)
	assert.Equal(t, 1, status.LinkedGames)
	assert.Equal(t, 1, status.Plays)
	assert.Equal(t, 2, status.Seasons)
	assert.Greater(t, status.SizeBytes, int64(0))
	assert.Equal(t, CurrentSchemaVersion, status.SchemaVersion)
	assert.Equal(t, BuildMode, status.BuildMode)
	assert.Nil(t, status.LastRun)
}

func TestTransaction(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)
	_, err = tx.UpsertGames(ctx, []types.Game{testGame("g1", "s1")})
	require.NoError(t, err)
	_, err = tx.ReplacePlays(ctx, "g1", []types.Play{{PlayID: "p1"}})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	count, err := storage.CountGames(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	tx, err = storage.BeginTx(ctx)
	require.NoError(t, err)
	_, err = tx.BeginTx(ctx)
	assert.ErrorIs(t, err, ErrNestedTx)
	_, err = tx.UpsertGames(ctx, []types.Game{testGame("g1", "s1")})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	count, err = storage.CountGames(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPlayVideos_UpsertAndList(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	n, err := storage.UpsertPlayVideos(ctx, []types.PlayVideo{
		{VideoID: "v2", PlayID: "p2", GameID: "g1", URL: "https://cdn/v2.mp4"},
		{VideoID: "v1", PlayID: "p1", GameID: "g1", URL: "https://cdn/v1.mp4", StartTime: "12.5", Angle: "wide"},
		{VideoID: "v3", PlayID: "p9", GameID: "g2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Same video id replaces the stored asset.
	_, err = storage.UpsertPlayVideos(ctx, []types.PlayVideo{
		{VideoID: "v1", PlayID: "p1", GameID: "g1", URL: "https://cdn/v1-hd.mp4", Quality: "hd"},
	})
	require.NoError(t, err)

	videos, err := storage.ListPlayVideos(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "v1", videos[0].VideoID)
	assert.Equal(t, "https://cdn/v1-hd.mp4", videos[0].URL)
	assert.Equal(t, "hd", videos[0].Quality)
	assert.Empty(t, videos[0].StartTime)
	assert.Equal(t, "p2", videos[1].PlayID)

	status, err := storage.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, status.PlayVideos)
}

func TestPlayVideos_InvalidRolledBack(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	_, err := storage.UpsertPlayVideos(ctx, []types.PlayVideo{
		{VideoID: "v1", PlayID: "p1", GameID: "g1"},
		{PlayID: "p2", GameID: "g1"},
	})
	assert.ErrorIs(t, err, ErrInvalidRecord)
	assert.ErrorIs(t, err, types.ErrMissingVideoID)

	videos, err := storage.ListPlayVideos(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, videos)
}
