package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dshills/skout-mcp/internal/envelope"
	"github.com/dshills/skout-mcp/internal/storage"
	"github.com/dshills/skout-mcp/pkg/types"
)

// progressEvery is the number of games between events:progress ticks.
const progressEvery = 10

var (
	// ErrRunInProgress is returned when Run is called while another run
	// holds the pipeline.
	ErrRunInProgress = errors.New("ingest run already in progress")
	// ErrInvalidPlan is returned for a plan without league or season.
	ErrInvalidPlan = errors.New("invalid ingest plan")
)

// Plan describes one ingestion run.
type Plan struct {
	League          string
	SeasonID        string
	TeamIDs         []string // Empty crawls the whole season listing
	IngestEvents    bool
	IndexPlays      bool
	IncludeUnlinked bool // Fetch events for every cached game, not just those with video
	LinkPlayVideos  bool // Look up licensed video assets of freshly ingested plays
}

// Validate checks that the plan names a league and a season.
func (p Plan) Validate() error {
	if p.League == "" {
		return fmt.Errorf("%w: league is required", ErrInvalidPlan)
	}
	if p.SeasonID == "" {
		return fmt.Errorf("%w: season id is required", ErrInvalidPlan)
	}
	return nil
}

// Result summarises a run.
type Result struct {
	RunID         string    `json:"run_id"`
	InsertedGames int       `json:"inserted_games"`
	InsertedPlays int       `json:"inserted_plays"`
	IndexedPlays  int       `json:"indexed_plays"`
	SkippedGames  int       `json:"skipped_games"`
	LinkedVideos  int       `json:"linked_videos"`
	Warnings      []string  `json:"warnings,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

func (r *Result) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Pipeline runs schedule, events and index phases against one cache.
type Pipeline struct {
	source  Source
	store   storage.Storage
	crawler *Crawler
	indexer *PlayIndexer
	videos  *VideoLinker // nil when the source cannot list play videos
	lock    RunLock
}

// NewPipeline creates a pipeline. A nil indexer disables the index phase.
// The video phase is available when source also implements VideoSource.
func NewPipeline(source Source, store storage.Storage, indexer *PlayIndexer) *Pipeline {
	p := &Pipeline{
		source:  source,
		store:   store,
		crawler: NewCrawler(source),
		indexer: indexer,
	}
	if vs, ok := source.(VideoSource); ok {
		p.videos = NewVideoLinker(vs, store)
	}
	return p
}

// WithCrawler replaces the default crawler.
func (p *Pipeline) WithCrawler(c *Crawler) *Pipeline {
	p.crawler = c
	return p
}

// Running reports whether a run is in progress.
func (p *Pipeline) Running() bool {
	return p.lock.Running()
}

// Run executes plan. Fetch failures are recorded as warnings and skipped
// games; storage failures abort the run with an error. On cancellation the
// partial result is returned together with the context error.
func (p *Pipeline) Run(ctx context.Context, plan Plan, progress ProgressFunc) (*Result, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if !p.lock.TryAcquire() {
		return nil, ErrRunInProgress
	}
	defer p.lock.Release()

	if progress == nil {
		progress = func(Event) {}
	}

	res := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	emit := func(stage string, info map[string]int) {
		progress(Event{
			Stage:    stage,
			RunID:    res.RunID,
			League:   plan.League,
			SeasonID: plan.SeasonID,
			Info:     info,
			Time:     time.Now().UTC(),
		})
	}

	// 1) Schedule
	emit(StageScheduleStart, nil)
	games := p.crawlSchedule(ctx, plan, res)
	inserted, err := p.store.UpsertGames(ctx, games)
	if err != nil {
		return res, fmt.Errorf("failed to store games: %w", err)
	}
	res.InsertedGames = inserted
	emit(StageScheduleDone, map[string]int{"inserted_games": inserted})

	// 2) Events
	replaced := make(map[string][]types.Play)
	if plan.IngestEvents {
		emit(StageEventsStart, nil)
		if err := p.ingestEvents(ctx, plan, res, replaced, emit); err != nil {
			return res, err
		}
		emit(StageEventsDone, map[string]int{
			"inserted_plays": res.InsertedPlays,
			"skipped_games":  res.SkippedGames,
		})
	}

	// 3) Index
	if plan.IndexPlays {
		switch {
		case p.indexer == nil:
			res.warn("play indexing requested but no vector index is configured")
		case len(replaced) > 0:
			stats, err := p.indexer.IndexGames(ctx, replaced)
			if stats != nil {
				res.IndexedPlays = stats.PlaysIndexed
				if stats.PlaysFailed > 0 {
					res.warn(fmt.Sprintf("%d plays could not be embedded", stats.PlaysFailed))
				}
				if len(stats.GamesFailed) > 0 {
					res.warn(fmt.Sprintf("kept previous vectors for %d games with failed batches", len(stats.GamesFailed)))
				}
			}
			if err != nil && ctx.Err() == nil {
				return res, fmt.Errorf("failed to index plays: %w", err)
			}
		}
		emit(StageIndexDone, map[string]int{"indexed_plays": res.IndexedPlays})
	}

	// 4) Play videos
	if plan.LinkPlayVideos {
		if err := p.linkVideos(ctx, plan, res, replaced); err != nil {
			return res, err
		}
		emit(StageVideosDone, map[string]int{"linked_videos": res.LinkedVideos})
	}

	res.FinishedAt = time.Now().UTC()
	p.recordRun(ctx, plan, res)

	if err := ctx.Err(); err != nil {
		res.warn("run canceled before completion")
		return res, err
	}
	return res, nil
}

// crawlSchedule collects concluded games for the plan, one crawl per team
// or a single season-wide crawl. Games seen under two teams are kept once.
func (p *Pipeline) crawlSchedule(ctx context.Context, plan Plan, res *Result) []types.Game {
	teams := plan.TeamIDs
	if len(teams) == 0 {
		teams = []string{""}
	}

	seen := make(map[string]struct{})
	var games []types.Game
	for _, teamID := range teams {
		batch, stats := p.crawler.Games(ctx, plan.League, plan.SeasonID, teamID)
		if stats.Failed {
			label := "season"
			if teamID != "" {
				label = "team " + teamID
			}
			res.warn(fmt.Sprintf("game listing for %s stopped after %d pages", label, stats.Pages))
		}
		for _, g := range batch {
			if _, dup := seen[g.GameID]; dup {
				continue
			}
			seen[g.GameID] = struct{}{}
			games = append(games, g)
		}
	}
	return games
}

// ingestEvents replaces the plays of each target game. Successfully
// replaced plays are collected into replaced for the index phase.
func (p *Pipeline) ingestEvents(ctx context.Context, plan Plan, res *Result,
	replaced map[string][]types.Play, emit func(string, map[string]int)) error {

	gameIDs, err := p.eventTargets(ctx, plan)
	if err != nil {
		return err
	}
	total := len(gameIDs)
	reached := total

	for idx, gameID := range gameIDs {
		if idx%progressEvery == 0 {
			emit(StageEventsProgress, map[string]int{"current": idx, "total": total})
		}
		if ctx.Err() != nil {
			res.SkippedGames += total - idx
			reached = idx
			break
		}

		logger := log.WithField("game_id", gameID)
		resp := p.source.GameEvents(ctx, plan.League, gameID)
		if !resp.OK() {
			res.SkippedGames++
			res.warn(fmt.Sprintf("events for game %s unavailable (%s)", gameID, resp.Outcome))
			logger.WithError(resp.Err).WithField("status", resp.Status).Warn("skipping game events")
			continue
		}

		records := envelope.Normalize(resp.Payload)
		if len(records) == 0 {
			logger.Debug("no events returned, keeping cached plays")
			continue
		}

		plays := make([]types.Play, 0, len(records))
		for _, rec := range records {
			play, err := PlayFromRecord(rec, gameID)
			if err != nil {
				logger.WithError(err).Warn("skipping event record")
				continue
			}
			plays = append(plays, play)
		}

		n, err := p.store.ReplacePlays(ctx, gameID, plays)
		if err != nil {
			if ctx.Err() != nil {
				res.SkippedGames += total - idx
				reached = idx
				break
			}
			return fmt.Errorf("failed to store plays for game %s: %w", gameID, err)
		}
		res.InsertedPlays += n
		replaced[gameID] = plays
	}

	emit(StageEventsProgress, map[string]int{"current": reached, "total": total})
	return nil
}

// linkVideos looks up video assets for the games whose plays were replaced
// in this run. An unlicensed key ends the phase after one warning.
func (p *Pipeline) linkVideos(ctx context.Context, plan Plan, res *Result, replaced map[string][]types.Play) error {
	if p.videos == nil {
		res.warn("play video linking requested but the source cannot list play videos")
		return nil
	}

	gameIDs := make([]string, 0, len(replaced))
	for id := range replaced {
		gameIDs = append(gameIDs, id)
	}
	sort.Strings(gameIDs)

	for _, gameID := range gameIDs {
		if ctx.Err() != nil {
			return nil
		}
		vr, err := p.videos.LinkGame(ctx, plan.League, gameID, 0)
		if vr != nil {
			res.LinkedVideos += vr.VideosLinked
			for _, w := range vr.Warnings {
				res.warn(fmt.Sprintf("game %s: %s", gameID, w))
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to link videos for game %s: %w", gameID, err)
		}
		if vr.Unlicensed {
			break
		}
	}
	return nil
}

// eventTargets lists the games whose events should be fetched.
func (p *Pipeline) eventTargets(ctx context.Context, plan Plan) ([]string, error) {
	if plan.IncludeUnlinked {
		ids, err := p.store.ListGameIDsBySeason(ctx, plan.SeasonID)
		if err != nil {
			return nil, fmt.Errorf("failed to list season games: %w", err)
		}
		return ids, nil
	}

	linked, err := p.store.ListLinkedGames(ctx, plan.SeasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list linked games: %w", err)
	}
	ids := make([]string, len(linked))
	for i, g := range linked {
		ids[i] = g.GameID
	}
	return ids, nil
}

func (p *Pipeline) recordRun(ctx context.Context, plan Plan, res *Result) {
	run := &storage.Run{
		RunID:         res.RunID,
		League:        plan.League,
		SeasonID:      plan.SeasonID,
		InsertedGames: res.InsertedGames,
		InsertedPlays: res.InsertedPlays,
		IndexedPlays:  res.IndexedPlays,
		SkippedGames:  res.SkippedGames,
		Warnings:      len(res.Warnings),
		StartedAt:     res.StartedAt,
		FinishedAt:    res.FinishedAt,
	}
	// A canceled run is still recorded.
	if err := p.store.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		log.WithError(err).WithField("run_id", res.RunID).Warn("failed to record run")
	}
}
