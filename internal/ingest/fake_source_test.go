package ingest

import (
	"context"
	"sync"

	"github.com/dshills/skout-mcp/internal/synergy"
)

// fakeSource serves canned listings and records every call.
type fakeSource struct {
	mu         sync.Mutex
	games      map[string][]any // team id ("" for season-wide) -> games
	events     map[string]*synergy.Response
	failGames  map[int]bool // skip offset -> fail
	gameCalls  []synergy.GamesQuery
	eventCalls []string
	videos     map[string]*synergy.Response // play id -> response; absent answers 404
	videoCalls []string
	onEvents   func(gameID string) // Runs before the events response is returned
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		games:     make(map[string][]any),
		events:    make(map[string]*synergy.Response),
		videos:    make(map[string]*synergy.Response),
		failGames: make(map[int]bool),
	}
}

func okResponse(payload any) *synergy.Response {
	return &synergy.Response{Payload: payload, Status: 200, Outcome: synergy.Success, Attempts: 1}
}

func failedResponse(status int, outcome synergy.Outcome) *synergy.Response {
	return &synergy.Response{Status: status, Outcome: outcome, Attempts: 1}
}

func (f *fakeSource) Games(ctx context.Context, league string, q synergy.GamesQuery) *synergy.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gameCalls = append(f.gameCalls, q)

	if f.failGames[q.Skip] {
		return failedResponse(503, synergy.ServerError)
	}
	all := f.games[q.TeamID]
	start := min(q.Skip, len(all))
	end := min(start+q.Take, len(all))
	return okResponse(map[string]any{"data": all[start:end]})
}

func (f *fakeSource) GameEvents(ctx context.Context, league, gameID string) *synergy.Response {
	if f.onEvents != nil {
		f.onEvents(gameID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventCalls = append(f.eventCalls, gameID)

	if resp, ok := f.events[gameID]; ok {
		return resp
	}
	return okResponse([]any{})
}

func gameRec(id, status, home, away string) map[string]any {
	return map[string]any{
		"data": map[string]any{
			"id":       id,
			"status":   status,
			"date":     "2024-02-01",
			"homeTeam": map[string]any{"name": home},
			"awayTeam": map[string]any{"name": away},
		},
	}
}

func eventRec(id string, period, clock int, desc string) map[string]any {
	return map[string]any{
		"id":          id,
		"period":      period,
		"clock":       clock,
		"description": desc,
	}
}

func (f *fakeSource) PlayVideos(ctx context.Context, league, playID string) *synergy.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videoCalls = append(f.videoCalls, playID)

	if resp, ok := f.videos[playID]; ok {
		return resp
	}
	return failedResponse(404, synergy.NotFound)
}
