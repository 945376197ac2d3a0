package ingest

import (
	"errors"

	"github.com/dshills/skout-mcp/internal/envelope"
	"github.com/dshills/skout-mcp/pkg/types"
)

// Tags derived from event flags.
const (
	TagPickAndRoll = "Pick and Roll"
	TagTransition  = "Transition"
)

// ErrMalformedRecord marks a record that lacks required fields.
var ErrMalformedRecord = errors.New("malformed record")

// GameFromRecord maps a games listing item onto a Game in seasonID. Games
// without an id return ErrMalformedRecord; games that have not concluded
// return types.ErrNonTerminalGame.
func GameFromRecord(rec envelope.Record, seasonID string) (types.Game, error) {
	g := types.Game{
		GameID:    rec.String("id"),
		SeasonID:  seasonID,
		Date:      rec.String("date"),
		HomeTeam:  rec.Record("homeTeam").StringOr("name", types.UnknownTeam),
		AwayTeam:  rec.Record("awayTeam").StringOr("name", types.UnknownTeam),
		HomeScore: rec.IntOr("homeScore", 0),
		AwayScore: rec.IntOr("awayScore", 0),
		Status:    rec.String("status"),
	}
	if g.Date == "" {
		g.Date = rec.String("scheduled")
	}
	if g.GameID == "" {
		return g, ErrMalformedRecord
	}
	if err := g.Validate(); err != nil {
		return g, err
	}
	return g, nil
}

// PlayFromRecord maps an event onto a Play of gameID. Flagged pick and roll
// and transition plays get a description suffix and a matching tag.
func PlayFromRecord(rec envelope.Record, gameID string) (types.Play, error) {
	p := types.Play{
		PlayID:      rec.String("id"),
		GameID:      gameID,
		Period:      rec.IntOr("period", 0),
		Description: rec.StringOr("description", types.UnknownPlay),
		TeamID:      rec.Record("offense").String("id"),
		XLoc:        rec.IntPtr("shotX"),
		YLoc:        rec.IntPtr("shotY"),
	}
	if p.PlayID == "" {
		return p, ErrMalformedRecord
	}

	// Only an integer clock counts; anything else is kept for display only.
	if clock, ok := rec.Int("clock"); ok && clock > 0 {
		p.ClockSeconds = clock
	}
	if rec.Has("clock") {
		p.ClockDisplay = rec.String("clock")
	} else {
		p.ClockDisplay = "0"
	}

	tags := rec.Strings("tags")
	if isTrue(rec, "pickAndRoll") {
		p.Description += " (PnR)"
		tags = append(tags, TagPickAndRoll)
	}
	if isTrue(rec, "transition") {
		p.Description += " (Trans)"
		tags = append(tags, TagTransition)
	}
	p.Tags = types.JoinTags(tags)

	return p, p.Validate()
}

// isTrue accepts only a JSON true; truthy numbers and strings do not count
// as flags.
func isTrue(rec envelope.Record, key string) bool {
	b, ok := rec[key].(bool)
	return ok && b
}
