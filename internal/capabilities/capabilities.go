// Package capabilities probes which resources a credential can reach.
//
// Discovery is conservative: one seasons call plus at most two cheap probes
// per retained season. It never fails; every problem becomes a warning on
// the returned report.
package capabilities

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/dshills/skout-mcp/internal/envelope"
	"github.com/dshills/skout-mcp/internal/synergy"
	"github.com/dshills/skout-mcp/pkg/types"
)

const (
	DefaultMaxSeasons = 6
	teamsProbeTake    = 500
	gamesProbeTake    = 1
)

// Prober is the subset of the API client used for discovery.
type Prober interface {
	Seasons(ctx context.Context, league string) *synergy.Response
	Teams(ctx context.Context, league, seasonID string, take, skip int) *synergy.Response
	Games(ctx context.Context, league string, q synergy.GamesQuery) *synergy.Response
}

// Options bounds discovery.
type Options struct {
	MaxSeasons int
	ProbeTeams bool
	ProbeGames bool
}

// DefaultOptions probes teams and games for the six most recent seasons.
func DefaultOptions() Options {
	return Options{MaxSeasons: DefaultMaxSeasons, ProbeTeams: true, ProbeGames: true}
}

// Discover builds a capability report for league.
func Discover(ctx context.Context, p Prober, league string, opts Options) *types.CapabilityReport {
	if opts.MaxSeasons <= 0 {
		opts.MaxSeasons = DefaultMaxSeasons
	}
	report := types.NewCapabilityReport(league)
	logger := log.WithField("league", league)

	resp := p.Seasons(ctx, league)
	report.SeasonsAccessible = resp.OK()
	if !resp.OK() {
		report.Warn(seasonsWarning(resp.Status))
		logger.WithError(resp.Err).WithField("status", resp.Status).Warn("seasons not accessible")
		return report
	}

	seasons := make([]types.Season, 0)
	for _, rec := range envelope.Normalize(resp.Payload) {
		if s, ok := SeasonFromRecord(rec); ok {
			seasons = append(seasons, s)
		}
	}
	SortSeasons(seasons)
	if len(seasons) > opts.MaxSeasons {
		seasons = seasons[:opts.MaxSeasons]
	}
	report.Seasons = seasons

	for _, s := range seasons {
		if opts.ProbeTeams {
			probeTeams(ctx, p, report, s)
		}
		if opts.ProbeGames {
			probeGames(ctx, p, report, s)
		}
	}

	logger.WithFields(log.Fields{
		"seasons":  len(report.Seasons),
		"warnings": len(report.Warnings),
	}).Info("capability discovery complete")
	return report
}

// DiscoverWithCredential constructs a client from cfg and runs Discover.
// A missing credential degrades into a warning report.
func DiscoverWithCredential(ctx context.Context, cfg synergy.Config, league string, opts Options) *types.CapabilityReport {
	client, err := synergy.New(cfg)
	if err != nil {
		report := types.NewCapabilityReport(league)
		report.Warn(fmt.Sprintf("Cannot query the API: %v.", err))
		return report
	}
	return Discover(ctx, client, league, opts)
}

func probeTeams(ctx context.Context, p Prober, report *types.CapabilityReport, s types.Season) {
	resp := p.Teams(ctx, report.League, s.ID, teamsProbeTake, 0)
	report.TeamsAccessible[s.ID] = resp.OK()
	if !resp.OK() {
		report.TeamsBySeason[s.ID] = []types.Team{}
		if resp.Status == http.StatusForbidden {
			report.Warn(fmt.Sprintf("Teams endpoint forbidden for season %s.", s.Label()))
		}
		return
	}

	teams := make([]types.Team, 0)
	for _, rec := range envelope.Normalize(resp.Payload) {
		if t, ok := TeamFromRecord(rec); ok {
			teams = append(teams, t)
		}
	}
	sort.SliceStable(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })
	report.TeamsBySeason[s.ID] = teams
}

func probeGames(ctx context.Context, p Prober, report *types.CapabilityReport, s types.Season) {
	resp := p.Games(ctx, report.League, synergy.GamesQuery{SeasonID: s.ID, Take: gamesProbeTake})
	report.GamesAccessible[s.ID] = resp.OK()
	if !resp.OK() && resp.Status == http.StatusForbidden {
		report.Warn(fmt.Sprintf("Games endpoint forbidden for season %s.", s.Label()))
	}
}

func seasonsWarning(status int) string {
	switch status {
	case http.StatusForbidden:
		return "Seasons endpoint returned 403 (key likely has restricted discovery access)."
	case http.StatusUnauthorized:
		return "Seasons endpoint returned 401 (invalid API key or missing entitlements)."
	default:
		return "Could not fetch seasons list (network/format issue or restricted access)."
	}
}

// SortSeasons orders seasons by (year, name) descending; a missing year
// sorts as 0.
func SortSeasons(seasons []types.Season) {
	year := func(s types.Season) int {
		if s.Year == nil {
			return 0
		}
		return *s.Year
	}
	sort.SliceStable(seasons, func(i, j int) bool {
		yi, yj := year(seasons[i]), year(seasons[j])
		if yi != yj {
			return yi > yj
		}
		return seasons[i].Name > seasons[j].Name
	})
}

// SeasonFromRecord converts a record; records without an id are rejected.
func SeasonFromRecord(rec envelope.Record) (types.Season, bool) {
	id := rec.String("id")
	if id == "" {
		return types.Season{}, false
	}
	s := types.Season{ID: id, Name: rec.String("name")}
	if y, ok := rec.Int("year"); ok {
		s.Year = &y
	} else if raw := strings.TrimSpace(rec.String("year")); raw != "" {
		if y, err := strconv.Atoi(raw); err == nil {
			s.Year = &y
		}
	}
	return s, true
}

// TeamFromRecord converts a record; records without an id are rejected.
// The conference may be a plain value or an object with a name.
func TeamFromRecord(rec envelope.Record) (types.Team, bool) {
	id := rec.String("id")
	if id == "" {
		return types.Team{}, false
	}
	conf := rec.String("conference")
	if nested := rec.Record("conference"); nested != nil {
		conf = nested.String("name")
	}
	return types.Team{
		ID:         id,
		Name:       rec.String("name"),
		Conference: types.NormalizeConference(conf),
	}, true
}
