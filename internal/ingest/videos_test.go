package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/skout-mcp/internal/envelope"
	"github.com/dshills/skout-mcp/internal/storage"
	"github.com/dshills/skout-mcp/internal/synergy"
	"github.com/dshills/skout-mcp/pkg/types"
)

func seedGame(t *testing.T, store *storage.SQLiteStorage) {
	t.Helper()
	ctx := context.Background()
	_, err := store.UpsertGames(ctx, []types.Game{{
		GameID: "g1", SeasonID: "s1", Date: "2024-02-01", HomeTeam: "Duke", AwayTeam: "UNC", Status: types.StatusFinal,
	}})
	require.NoError(t, err)
	_, err = store.ReplacePlays(ctx, "g1", []types.Play{
		{PlayID: "p1", Period: 1, ClockSeconds: 700, Description: "Jumper"},
		{PlayID: "p2", Period: 2, ClockSeconds: 100, Description: "Layup"},
		{PlayID: "p3", Period: 2, ClockSeconds: 50, Description: "Dunk"},
	})
	require.NoError(t, err)
}

func TestLinkGame_StoresAssets(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	seedGame(t, store)

	src := newFakeSource()
	src.videos["p1"] = okResponse(map[string]any{"data": []any{
		map[string]any{"data": map[string]any{"id": 901, "url": "https://cdn/901.mp4", "startTime": 12.5, "endTime": 18, "angle": "wide", "quality": "hd"}},
		map[string]any{"url": "https://cdn/no-id.mp4"},
	}})
	src.videos["p3"] = okResponse([]any{map[string]any{"id": "v3", "url": "https://cdn/v3.mp4"}})

	res, err := NewVideoLinker(src, store).LinkGame(ctx, "ncaamb", "g1", 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2", "p3"}, src.videoCalls)
	assert.Equal(t, 3, res.PlaysChecked)
	assert.Equal(t, 2, res.PlaysWithVideo)
	assert.Equal(t, 2, res.VideosLinked)
	assert.False(t, res.Unlicensed)
	assert.Empty(t, res.Warnings)

	videos, err := store.ListPlayVideos(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, types.PlayVideo{
		VideoID: "901", PlayID: "p1", GameID: "g1", URL: "https://cdn/901.mp4",
		StartTime: "12.5", EndTime: "18", Angle: "wide", Quality: "hd",
	}, *videos[0])
	assert.Equal(t, "p3", videos[1].PlayID)
}

func TestLinkGame_UnlicensedStopsWalk(t *testing.T) {
	store := setupStore(t)
	seedGame(t, store)

	src := newFakeSource()
	src.videos["p2"] = failedResponse(403, synergy.Forbidden)

	res, err := NewVideoLinker(src, store).LinkGame(context.Background(), "ncaamb", "g1", 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2"}, src.videoCalls)
	assert.True(t, res.Unlicensed)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "403")
}

func TestLinkGame_LimitAndWarnings(t *testing.T) {
	store := setupStore(t)
	seedGame(t, store)

	src := newFakeSource()
	src.videos["p1"] = failedResponse(503, synergy.ServerError)

	res, err := NewVideoLinker(src, store).LinkGame(context.Background(), "ncaamb", "g1", 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2"}, src.videoCalls)
	assert.Equal(t, 2, res.PlaysChecked)
	assert.Zero(t, res.VideosLinked)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "p1")
}

func TestLinkGame_UnknownGame(t *testing.T) {
	_, err := NewVideoLinker(newFakeSource(), setupStore(t)).LinkGame(context.Background(), "ncaamb", "nope", 0)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLinkGame_Canceled(t *testing.T) {
	store := setupStore(t)
	seedGame(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := newFakeSource()
	_, err := NewVideoLinker(src, store).LinkGame(ctx, "ncaamb", "g1", 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, src.videoCalls)
}

func TestVideosFromRecords(t *testing.T) {
	play := &types.Play{PlayID: "p1", GameID: "g1"}
	videos := VideosFromRecords(envelope.Normalize([]any{
		map[string]any{"id": "a"},
		map[string]any{"id": nil, "url": "x"},
	}), play)
	require.Len(t, videos, 1)
	assert.Equal(t, "a", videos[0].VideoID)
	assert.Equal(t, "g1", videos[0].GameID)
}

func TestPipeline_LinkPlayVideos(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	src := seasonSource()
	src.videos["p2"] = okResponse([]any{map[string]any{"id": "v2"}})

	var events []Event
	res, err := NewPipeline(src, store, nil).Run(ctx, Plan{
		League: "ncaamb", SeasonID: "s1", IngestEvents: true, IncludeUnlinked: true, LinkPlayVideos: true,
	}, collect(&events))
	require.NoError(t, err)

	assert.Equal(t, 1, res.LinkedVideos)
	assert.ElementsMatch(t, []string{"p1", "p2"}, src.videoCalls)
	last := events[len(events)-1]
	assert.Equal(t, StageVideosDone, last.Stage)
	assert.Equal(t, 1, last.Info["linked_videos"])
}

func TestPipeline_LinkPlayVideosUnlicensedWarnsOnce(t *testing.T) {
	store := setupStore(t)
	src := seasonSource()
	src.events["g2"] = okResponse([]any{eventRec("q1", 1, 500, "Hook")})
	src.videos["p1"] = failedResponse(403, synergy.Forbidden)
	src.videos["q1"] = failedResponse(403, synergy.Forbidden)

	res, err := NewPipeline(src, store, nil).Run(context.Background(), Plan{
		League: "ncaamb", SeasonID: "s1", IngestEvents: true, IncludeUnlinked: true, LinkPlayVideos: true,
	}, nil)
	require.NoError(t, err)

	assert.Len(t, src.videoCalls, 1)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "not licensed")
}
