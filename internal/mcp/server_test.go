package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/skout-mcp/internal/app"
	"github.com/dshills/skout-mcp/internal/clips"
	"github.com/dshills/skout-mcp/internal/config"
	"github.com/dshills/skout-mcp/internal/embedder"
	"github.com/dshills/skout-mcp/internal/ingest"
	"github.com/dshills/skout-mcp/internal/searcher"
	"github.com/dshills/skout-mcp/internal/storage"
	"github.com/dshills/skout-mcp/internal/synergy"
	"github.com/dshills/skout-mcp/internal/vectorindex"
)

// recordingSlicer captures clips instead of running ffmpeg
type recordingSlicer struct {
	clips []clips.Clip
}

func (r *recordingSlicer) Slice(ctx context.Context, clip clips.Clip) (string, error) {
	r.clips = append(r.clips, clip)
	return filepath.Join("/clips", clip.Name), nil
}

// synergyAPI serves one season with two concluded games; only g1 has events
// and only its play p1 has a video asset.
func synergyAPI(t *testing.T) http.Handler {
	t.Helper()
	write := func(w http.ResponseWriter, v any) {
		require.NoError(t, json.NewEncoder(w).Encode(v))
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ncaamb/seasons":
			write(w, map[string]any{"data": []any{map[string]any{"id": "s1", "name": "2023-24", "year": 2024}}})
		case "/ncaamb/teams":
			write(w, map[string]any{"data": []any{map[string]any{"id": "t1", "name": "Duke"}}})
		case "/ncaamb/games":
			write(w, map[string]any{"data": []any{
				map[string]any{"data": map[string]any{"id": "g1", "status": "GameOver", "date": "2024-01-10", "homeTeam": map[string]any{"name": "Duke"}, "awayTeam": map[string]any{"name": "UNC"}}},
				map[string]any{"data": map[string]any{"id": "g2", "status": "Final", "date": "2024-01-12", "homeTeam": map[string]any{"name": "Kansas"}, "awayTeam": map[string]any{"name": "Baylor"}}},
			}})
		case "/ncaamb/games/g1/events":
			write(w, []any{
				map[string]any{"id": "p1", "period": 1, "clock": 700, "description": "Layup", "transition": true},
				map[string]any{"id": "p2", "period": 2, "clock": 300, "description": "Jumper", "pickAndRoll": true},
			})
		case "/ncaamb/games/g2/events":
			write(w, []any{})
		case "/ncaamb/plays/p1/video":
			write(w, map[string]any{"data": []any{
				map[string]any{"data": map[string]any{"id": "v1", "url": "https://cdn/v1.mp4", "startTime": 4.5, "angle": "wide"}},
			}})
		default:
			http.NotFound(w, r)
		}
	})
}

// setupServer wires in-memory stores; a nil handler means no credential.
func setupServer(t *testing.T, handler http.Handler) (*Server, *app.App, *recordingSlicer) {
	t.Helper()

	cfg := config.Default()
	cfg.ClipsDir = t.TempDir()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	index, err := vectorindex.Open(":memory:")
	require.NoError(t, err)
	emb, err := embedder.NewLocalProvider(embedder.NewCache(100))
	require.NoError(t, err)

	a := &app.App{
		Config:   cfg,
		Store:    store,
		Index:    index,
		Embedder: emb,
		Searcher: searcher.NewSearcher(store, index, emb, searcher.Config{}),
		Progress: ingest.LogProgress,
	}
	t.Cleanup(func() { _ = a.Close() })

	if handler != nil {
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)

		client, err := synergy.New(synergy.Config{
			APIKey:     "test-key",
			BaseURL:    srv.URL,
			MaxRetries: 1,
			Sleeper:    func(context.Context, time.Duration) error { return nil },
		})
		require.NoError(t, err)
		a.Client = client
		a.Pipeline = ingest.NewPipeline(client, store, ingest.NewPlayIndexer(emb, index, nil))
		a.Videos = ingest.NewVideoLinker(client, store)
	}

	s, err := NewServer(a)
	require.NoError(t, err)
	slicer := &recordingSlicer{}
	s.WithSlicer(slicer)
	return s, a, slicer
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	if args != nil {
		req.Params.Arguments = args
	}
	return req
}

func resultJSON(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)

	var text string
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		text = c.Text
	case *mcp.TextContent:
		text = c.Text
	default:
		t.Fatalf("unexpected content type %T", c)
	}

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	return out
}

func requireCode(t *testing.T, err error, code int) {
	t.Helper()
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, code, mcpErr.Code)
}

func TestSyncSearchAndTags(t *testing.T) {
	s, _, _ := setupServer(t, synergyAPI(t))
	ctx := context.Background()

	res, err := s.handleSyncSeason(ctx, callRequest("sync_season", map[string]interface{}{
		"season_id":        "s1",
		"include_unlinked": true,
	}))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, float64(2), out["inserted_games"])
	assert.Equal(t, float64(2), out["inserted_plays"])
	assert.Equal(t, float64(2), out["indexed_plays"])

	res, err = s.handleSearchPlays(ctx, callRequest("search_plays", map[string]interface{}{
		"query": "layup in transition",
		"tags":  []interface{}{"Transition"},
		"teams": []interface{}{"duke"},
	}))
	require.NoError(t, err)
	out = resultJSON(t, res)
	require.Equal(t, float64(1), out["count"])
	first := out["results"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "p1", first["id"])
	assert.Equal(t, "Layup (Trans)", first["desc"])
	assert.Equal(t, float64(500), first["offset"])

	res, err = s.handleListTags(ctx, callRequest("list_tags", nil))
	require.NoError(t, err)
	out = resultJSON(t, res)
	assert.ElementsMatch(t, []interface{}{"Pick and Roll", "Transition"}, out["tags"])
}

func TestSyncSeason_Guards(t *testing.T) {
	ctx := context.Background()

	t.Run("no credential", func(t *testing.T) {
		s, _, _ := setupServer(t, nil)
		_, err := s.handleSyncSeason(ctx, callRequest("sync_season", map[string]interface{}{"season_id": "s1"}))
		requireCode(t, err, ErrorCodeNoCredential)
	})

	t.Run("missing season", func(t *testing.T) {
		s, _, _ := setupServer(t, synergyAPI(t))
		_, err := s.handleSyncSeason(ctx, callRequest("sync_season", map[string]interface{}{}))
		requireCode(t, err, ErrorCodeInvalidParams)
	})

	t.Run("already running", func(t *testing.T) {
		s, _, _ := setupServer(t, synergyAPI(t))
		require.True(t, s.syncSem.TryAcquire(1))
		defer s.syncSem.Release(1)

		_, err := s.handleSyncSeason(ctx, callRequest("sync_season", map[string]interface{}{"season_id": "s1"}))
		requireCode(t, err, ErrorCodeSyncInProgress)
	})
}

func TestSearchPlays_Validation(t *testing.T) {
	s, _, _ := setupServer(t, nil)
	ctx := context.Background()

	_, err := s.handleSearchPlays(ctx, callRequest("search_plays", map[string]interface{}{"query": "x", "limit": float64(99)}))
	requireCode(t, err, ErrorCodeInvalidParams)

	_, err = s.handleSearchPlays(ctx, callRequest("search_plays", map[string]interface{}{"query": "x", "year_from": float64(2025), "year_to": float64(2020)}))
	requireCode(t, err, ErrorCodeInvalidParams)

	res, err := s.handleSearchPlays(ctx, callRequest("search_plays", map[string]interface{}{}))
	require.NoError(t, err)
	assert.Equal(t, float64(0), resultJSON(t, res)["count"])
}

func TestLinkVideoAndSliceClip(t *testing.T) {
	s, a, slicer := setupServer(t, synergyAPI(t))
	ctx := context.Background()

	_, err := s.handleSyncSeason(ctx, callRequest("sync_season", map[string]interface{}{
		"season_id": "s1", "ingest_events": false,
	}))
	require.NoError(t, err)

	_, err = s.handleSliceClip(ctx, callRequest("slice_clip", map[string]interface{}{"play_id": "p1"}))
	requireCode(t, err, ErrorCodeNotFound)

	video := filepath.Join(t.TempDir(), "g1.mp4")
	require.NoError(t, os.WriteFile(video, []byte("video"), 0o644))

	t.Run("link errors", func(t *testing.T) {
		_, err := s.handleLinkVideo(ctx, callRequest("link_video", map[string]interface{}{"game_id": "nope", "video_path": video}))
		requireCode(t, err, ErrorCodeNotFound)

		_, err = s.handleLinkVideo(ctx, callRequest("link_video", map[string]interface{}{"game_id": "g1", "video_path": "relative.mp4"}))
		requireCode(t, err, ErrorCodeInvalidParams)

		_, err = s.handleLinkVideo(ctx, callRequest("link_video", map[string]interface{}{"game_id": "g1"}))
		requireCode(t, err, ErrorCodeInvalidParams)
	})

	res, err := s.handleLinkVideo(ctx, callRequest("link_video", map[string]interface{}{"game_id": "g1", "video_path": video}))
	require.NoError(t, err)
	assert.Equal(t, true, resultJSON(t, res)["linked"])

	// Linked games now get their events.
	_, err = s.handleSyncSeason(ctx, callRequest("sync_season", map[string]interface{}{"season_id": "s1"}))
	require.NoError(t, err)
	n, err := a.Store.CountPlays(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err = s.handleSliceClip(ctx, callRequest("slice_clip", map[string]interface{}{"play_id": "p2", "before": float64(3)}))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, float64(2100), out["offset"])

	require.Len(t, slicer.clips, 1)
	assert.Equal(t, clips.Clip{Source: video, Start: 2097, End: 2110, Name: "p2.mp4"}, slicer.clips[0])

	t.Run("unlinked game", func(t *testing.T) {
		_, err := s.handleLinkVideo(ctx, callRequest("link_video", map[string]interface{}{"game_id": "g1", "video_path": ""}))
		require.NoError(t, err)
		_, err = s.handleSliceClip(ctx, callRequest("slice_clip", map[string]interface{}{"play_id": "p1"}))
		requireCode(t, err, ErrorCodeNoVideo)
	})
}

func TestGetStatus(t *testing.T) {
	s, _, _ := setupServer(t, synergyAPI(t))
	ctx := context.Background()

	_, err := s.handleSyncSeason(ctx, callRequest("sync_season", map[string]interface{}{
		"season_id": "s1", "include_unlinked": true,
	}))
	require.NoError(t, err)

	res, err := s.handleGetStatus(ctx, callRequest("get_status", nil))
	require.NoError(t, err)
	out := resultJSON(t, res)

	stats := out["statistics"].(map[string]interface{})
	assert.Equal(t, float64(2), stats["games"])
	assert.Equal(t, float64(2), stats["plays"])
	assert.Equal(t, float64(2), stats["vectors"])
	assert.NotEmpty(t, stats["cache_size"])

	health := out["health"].(map[string]interface{})
	assert.Equal(t, "local", health["embedding_provider"])
	assert.Equal(t, true, health["credential"])

	lastRun := out["last_run"].(map[string]interface{})
	assert.Equal(t, "s1", lastRun["season_id"])
}

func TestDiscoverCapabilities(t *testing.T) {
	ctx := context.Background()

	t.Run("with credential", func(t *testing.T) {
		s, _, _ := setupServer(t, synergyAPI(t))
		res, err := s.handleDiscoverCapabilities(ctx, callRequest("discover_capabilities", nil))
		require.NoError(t, err)
		out := resultJSON(t, res)
		assert.Equal(t, true, out["seasons_accessible"])
		assert.Equal(t, true, out["teams_accessible"].(map[string]interface{})["s1"])
	})

	t.Run("without credential", func(t *testing.T) {
		s, _, _ := setupServer(t, nil)
		res, err := s.handleDiscoverCapabilities(ctx, callRequest("discover_capabilities", nil))
		require.NoError(t, err)
		out := resultJSON(t, res)
		assert.Equal(t, false, out["seasons_accessible"])
		assert.NotEmpty(t, out["warnings"])
	})

	t.Run("bad max_seasons", func(t *testing.T) {
		s, _, _ := setupServer(t, nil)
		_, err := s.handleDiscoverCapabilities(ctx, callRequest("discover_capabilities", map[string]interface{}{"max_seasons": float64(0)}))
		requireCode(t, err, ErrorCodeInvalidParams)
	})
}

func TestFetchPlayVideos(t *testing.T) {
	s, a, _ := setupServer(t, synergyAPI(t))
	ctx := context.Background()

	_, err := s.handleSyncSeason(ctx, callRequest("sync_season", map[string]interface{}{
		"season_id": "s1", "include_unlinked": true,
	}))
	require.NoError(t, err)

	res, err := s.handleFetchPlayVideos(ctx, callRequest("fetch_play_videos", map[string]interface{}{"game_id": "g1"}))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, float64(2), out["plays_checked"])
	assert.Equal(t, float64(1), out["videos_linked"])
	assert.Equal(t, false, out["unlicensed"])

	videos := out["videos"].([]interface{})
	require.Len(t, videos, 1)
	v := videos[0].(map[string]interface{})
	assert.Equal(t, "v1", v["video_id"])
	assert.Equal(t, "p1", v["play_id"])
	assert.Equal(t, "4.5", v["start_time"])

	status, err := a.Store.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.PlayVideos)

	res, err = s.handleFetchPlayVideos(ctx, callRequest("fetch_play_videos", map[string]interface{}{"game_id": "g1", "limit": float64(1)}))
	require.NoError(t, err)
	assert.Equal(t, float64(1), resultJSON(t, res)["plays_checked"])
}

func TestFetchPlayVideos_Unlicensed(t *testing.T) {
	api := synergyAPI(t)
	s, _, _ := setupServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/ncaamb/plays/") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		api.ServeHTTP(w, r)
	}))
	ctx := context.Background()

	_, err := s.handleSyncSeason(ctx, callRequest("sync_season", map[string]interface{}{
		"season_id": "s1", "include_unlinked": true,
	}))
	require.NoError(t, err)

	res, err := s.handleFetchPlayVideos(ctx, callRequest("fetch_play_videos", map[string]interface{}{"game_id": "g1"}))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, true, out["unlicensed"])
	assert.Equal(t, float64(1), out["plays_checked"])
	assert.Empty(t, out["videos"])
}

func TestFetchPlayVideos_Guards(t *testing.T) {
	ctx := context.Background()

	t.Run("no credential", func(t *testing.T) {
		s, _, _ := setupServer(t, nil)
		_, err := s.handleFetchPlayVideos(ctx, callRequest("fetch_play_videos", map[string]interface{}{"game_id": "g1"}))
		requireCode(t, err, ErrorCodeNoCredential)
	})

	t.Run("missing game id", func(t *testing.T) {
		s, _, _ := setupServer(t, synergyAPI(t))
		_, err := s.handleFetchPlayVideos(ctx, callRequest("fetch_play_videos", map[string]interface{}{}))
		requireCode(t, err, ErrorCodeInvalidParams)
	})

	t.Run("negative limit", func(t *testing.T) {
		s, _, _ := setupServer(t, synergyAPI(t))
		_, err := s.handleFetchPlayVideos(ctx, callRequest("fetch_play_videos", map[string]interface{}{"game_id": "g1", "limit": float64(-1)}))
		requireCode(t, err, ErrorCodeInvalidParams)
	})

	t.Run("unknown game", func(t *testing.T) {
		s, _, _ := setupServer(t, synergyAPI(t))
		_, err := s.handleFetchPlayVideos(ctx, callRequest("fetch_play_videos", map[string]interface{}{"game_id": "nope"}))
		requireCode(t, err, ErrorCodeNotFound)
	})
}

func TestSyncSeason_LinkPlayVideos(t *testing.T) {
	s, _, _ := setupServer(t, synergyAPI(t))

	res, err := s.handleSyncSeason(context.Background(), callRequest("sync_season", map[string]interface{}{
		"season_id": "s1", "include_unlinked": true, "link_play_videos": true,
	}))
	require.NoError(t, err)
	assert.Equal(t, float64(1), resultJSON(t, res)["linked_videos"])
}
