package ingest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/skout-mcp/internal/embedder"
	"github.com/dshills/skout-mcp/internal/storage"
	"github.com/dshills/skout-mcp/internal/synergy"
	"github.com/dshills/skout-mcp/internal/vectorindex"
)

func setupStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func setupIndexer(t *testing.T) (*PlayIndexer, *vectorindex.SQLiteIndex) {
	t.Helper()
	index, err := vectorindex.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	emb, err := embedder.NewLocalProvider(embedder.NewCache(100))
	require.NoError(t, err)
	return NewPlayIndexer(emb, index, &IndexerConfig{Workers: 2, BatchSize: 2}), index
}

func seasonSource() *fakeSource {
	src := newFakeSource()
	src.games[""] = []any{
		gameRec("g1", "GameOver", "Duke", "UNC"),
		gameRec("g2", "Final", "Kansas", "Baylor"),
		gameRec("g3", "Scheduled", "Duke", "Kansas"),
	}
	src.events["g1"] = okResponse(map[string]any{"data": []any{
		eventRec("p1", 1, 700, "Jumper"),
		map[string]any{"id": "p2", "period": 2, "clock": 100, "description": "Layup", "transition": true},
		map[string]any{"description": "no id"},
	}})
	return src
}

func collect(events *[]Event) ProgressFunc {
	return func(ev Event) { *events = append(*events, ev) }
}

func stages(events []Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Stage
	}
	return out
}

func TestPipeline_ScheduleOnly(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	src := seasonSource()

	var events []Event
	p := NewPipeline(src, store, nil)
	res, err := p.Run(ctx, Plan{League: "ncaamb", SeasonID: "s1"}, collect(&events))
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 2, res.InsertedGames)
	assert.Equal(t, []string{StageScheduleStart, StageScheduleDone}, stages(events))
	assert.Equal(t, 2, events[1].Info["inserted_games"])
	assert.Equal(t, res.RunID, events[0].RunID)
	assert.Empty(t, src.eventCalls)
}

func TestPipeline_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	p := NewPipeline(seasonSource(), store, nil)
	plan := Plan{League: "ncaamb", SeasonID: "s1"}

	_, err := p.Run(ctx, plan, nil)
	require.NoError(t, err)
	require.NoError(t, store.SetVideoPath(ctx, "g1", "/videos/g1.mp4"))

	_, err = p.Run(ctx, plan, nil)
	require.NoError(t, err)

	count, err := store.CountGames(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	g, err := store.GetGame(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, g.VideoPath)
	assert.Equal(t, "/videos/g1.mp4", *g.VideoPath)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestPipeline_EventsForLinkedGames(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	src := seasonSource()
	p := NewPipeline(src, store, nil)

	_, err := p.Run(ctx, Plan{League: "ncaamb", SeasonID: "s1"}, nil)
	require.NoError(t, err)
	require.NoError(t, store.SetVideoPath(ctx, "g1", "/videos/g1.mp4"))

	var events []Event
	res, err := p.Run(ctx, Plan{League: "ncaamb", SeasonID: "s1", IngestEvents: true}, collect(&events))
	require.NoError(t, err)

	assert.Equal(t, []string{"g1"}, src.eventCalls)
	assert.Equal(t, 2, res.InsertedPlays)
	assert.Equal(t, []string{
		StageScheduleStart, StageScheduleDone,
		StageEventsStart, StageEventsProgress, StageEventsProgress, StageEventsDone,
	}, stages(events))
	assert.Equal(t, map[string]int{"current": 1, "total": 1}, events[4].Info)

	plays, err := store.ListPlaysByGame(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, plays, 2)

	layup, err := store.GetPlay(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, "Layup (Trans)", layup.Description)
	assert.Equal(t, TagTransition, layup.Tags)
}

func TestPipeline_FailedGameSkipped(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	src := seasonSource()
	src.events["g2"] = failedResponse(403, synergy.Forbidden)

	res, err := NewPipeline(src, store, nil).Run(ctx, Plan{
		League: "ncaamb", SeasonID: "s1", IngestEvents: true, IncludeUnlinked: true,
	}, nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"g1", "g2"}, src.eventCalls)
	assert.Equal(t, 1, res.SkippedGames)
	assert.Equal(t, 2, res.InsertedPlays)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "g2")
}

func TestPipeline_ProgressEveryTenGames(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	src := newFakeSource()
	for i := 0; i < 25; i++ {
		src.games[""] = append(src.games[""], gameRec(fmt.Sprintf("g%02d", i), "Final", "A", "B"))
	}

	var events []Event
	_, err := NewPipeline(src, store, nil).Run(ctx, Plan{
		League: "ncaamb", SeasonID: "s1", IngestEvents: true, IncludeUnlinked: true,
	}, collect(&events))
	require.NoError(t, err)

	var ticks []int
	for _, ev := range events {
		if ev.Stage == StageEventsProgress {
			ticks = append(ticks, ev.Info["current"])
			assert.Equal(t, 25, ev.Info["total"])
		}
	}
	assert.Equal(t, []int{0, 10, 20, 25}, ticks)
}

func TestPipeline_PerTeamCrawlDeduplicates(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	src := newFakeSource()
	src.games["duke"] = []any{gameRec("g1", "Final", "Duke", "UNC"), gameRec("g2", "Final", "Duke", "UVA")}
	src.games["unc"] = []any{gameRec("g1", "Final", "Duke", "UNC")}

	res, err := NewPipeline(src, store, nil).Run(ctx, Plan{
		League: "ncaamb", SeasonID: "s1", TeamIDs: []string{"duke", "unc"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.InsertedGames)
	assert.Len(t, src.gameCalls, 2)
}

func TestPipeline_IndexPlays(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	indexer, index := setupIndexer(t)
	src := seasonSource()

	var events []Event
	res, err := NewPipeline(src, store, indexer).Run(ctx, Plan{
		League: "ncaamb", SeasonID: "s1", IngestEvents: true, IndexPlays: true, IncludeUnlinked: true,
	}, collect(&events))
	require.NoError(t, err)

	assert.Equal(t, 2, res.IndexedPlays)
	assert.Equal(t, StageIndexDone, events[len(events)-1].Stage)

	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Re-ingesting with fewer plays drops the stale vector.
	src.events["g1"] = okResponse([]any{eventRec("p1", 1, 700, "Jumper")})
	_, err = NewPipeline(src, store, indexer).Run(ctx, Plan{
		League: "ncaamb", SeasonID: "s1", IngestEvents: true, IndexPlays: true, IncludeUnlinked: true,
	}, nil)
	require.NoError(t, err)

	count, err = index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPipeline_IndexWithoutIndexerWarns(t *testing.T) {
	res, err := NewPipeline(seasonSource(), setupStore(t), nil).Run(context.Background(),
		Plan{League: "ncaamb", SeasonID: "s1", IndexPlays: true}, nil)
	require.NoError(t, err)
	assert.Len(t, res.Warnings, 1)
}

func TestPipeline_Guards(t *testing.T) {
	p := NewPipeline(seasonSource(), setupStore(t), nil)

	_, err := p.Run(context.Background(), Plan{League: "ncaamb"}, nil)
	assert.ErrorIs(t, err, ErrInvalidPlan)

	require.True(t, p.lock.TryAcquire())
	assert.True(t, p.Running())
	_, err = p.Run(context.Background(), Plan{League: "ncaamb", SeasonID: "s1"}, nil)
	assert.ErrorIs(t, err, ErrRunInProgress)
	p.lock.Release()
	assert.False(t, p.Running())
}

func TestPipeline_CanceledProgressReportsReachedGame(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := setupStore(t)
	src := newFakeSource()
	for i := 0; i < 25; i++ {
		src.games[""] = append(src.games[""], gameRec(fmt.Sprintf("g%02d", i), "Final", "A", "B"))
	}
	src.onEvents = func(gameID string) {
		if gameID == "g03" {
			cancel()
		}
	}

	var events []Event
	res, err := NewPipeline(src, store, nil).Run(ctx, Plan{
		League: "ncaamb", SeasonID: "s1", IngestEvents: true, IncludeUnlinked: true,
	}, collect(&events))
	require.ErrorIs(t, err, context.Canceled)

	var ticks []int
	for _, ev := range events {
		if ev.Stage == StageEventsProgress {
			ticks = append(ticks, ev.Info["current"])
		}
	}
	assert.Equal(t, []int{0, 4}, ticks)
	assert.Equal(t, 21, res.SkippedGames)
}
