package ingest

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/dshills/skout-mcp/internal/envelope"
	"github.com/dshills/skout-mcp/internal/synergy"
	"github.com/dshills/skout-mcp/pkg/types"
)

// Pagination defaults for game listings.
const (
	DefaultPageSize = 100
	DefaultMaxPages = 50
)

// Source is the subset of the Synergy client the pipeline reads from.
type Source interface {
	Games(ctx context.Context, league string, q synergy.GamesQuery) *synergy.Response
	GameEvents(ctx context.Context, league, gameID string) *synergy.Response
}

// CrawlStats counts what a crawl kept and dropped.
type CrawlStats struct {
	Pages       int
	Seen        int
	NonTerminal int
	Malformed   int
	Failed      bool // A page fetch failed before the listing was exhausted
}

// Crawler pages through game listings with a skip/take cursor.
type Crawler struct {
	source   Source
	pageSize int
	maxPages int
}

// NewCrawler creates a crawler with the default page size and page cap.
func NewCrawler(source Source) *Crawler {
	return &Crawler{
		source:   source,
		pageSize: DefaultPageSize,
		maxPages: DefaultMaxPages,
	}
}

// WithPaging overrides page size and page cap. Non-positive values keep
// the defaults.
func (c *Crawler) WithPaging(pageSize, maxPages int) *Crawler {
	if pageSize > 0 {
		c.pageSize = pageSize
	}
	if maxPages > 0 {
		c.maxPages = maxPages
	}
	return c
}

// Games collects the concluded games of a season, optionally for one team.
// The crawl stops on an empty page, a short page, a failed fetch or the
// page cap, and keeps whatever was collected up to that point.
func (c *Crawler) Games(ctx context.Context, league, seasonID, teamID string) ([]types.Game, CrawlStats) {
	var (
		games []types.Game
		stats CrawlStats
	)
	logger := log.WithFields(log.Fields{
		"league":    league,
		"season_id": seasonID,
		"team_id":   teamID,
	})

	skip := 0
	for page := 0; page < c.maxPages; page++ {
		if ctx.Err() != nil {
			stats.Failed = true
			break
		}

		resp := c.source.Games(ctx, league, synergy.GamesQuery{
			SeasonID: seasonID,
			TeamID:   teamID,
			Take:     c.pageSize,
			Skip:     skip,
		})
		if !resp.OK() {
			logger.WithError(resp.Err).WithField("status", resp.Status).Warn("game listing failed")
			stats.Failed = true
			break
		}

		records := envelope.Normalize(resp.Payload)
		if len(records) == 0 {
			break
		}
		stats.Pages++
		stats.Seen += len(records)

		for _, rec := range records {
			g, err := GameFromRecord(rec, seasonID)
			switch {
			case err == nil:
				games = append(games, g)
			case errors.Is(err, types.ErrNonTerminalGame):
				stats.NonTerminal++
			default:
				stats.Malformed++
				logger.WithError(err).Warn("skipping game record")
			}
		}

		if len(records) < c.pageSize {
			break
		}
		skip += c.pageSize
	}

	logger.WithFields(log.Fields{
		"pages": stats.Pages,
		"seen":  stats.Seen,
		"kept":  len(games),
	}).Debug("game crawl finished")
	return games, stats
}
