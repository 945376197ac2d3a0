package synergy

import (
	"context"
	"net/url"
	"strconv"
)

// DefaultTeamsTake bounds team listings to keep responses small.
const DefaultTeamsTake = 500

// GamesQuery filters a games listing.
type GamesQuery struct {
	SeasonID string
	TeamID   string // Optional
	Take     int
	Skip     int
}

func (q GamesQuery) values() url.Values {
	v := url.Values{}
	v.Set("seasonId", q.SeasonID)
	if q.Take > 0 {
		v.Set("take", strconv.Itoa(q.Take))
	}
	if q.Skip > 0 {
		v.Set("skip", strconv.Itoa(q.Skip))
	}
	if q.TeamID != "" {
		v.Set("teamId", q.TeamID)
	}
	return v
}

// Seasons lists seasons: GET /{league}/seasons.
func (c *Client) Seasons(ctx context.Context, league string) *Response {
	return c.Get(ctx, "/"+url.PathEscape(league)+"/seasons", nil)
}

// Teams lists teams in a season: GET /{league}/teams.
func (c *Client) Teams(ctx context.Context, league, seasonID string, take, skip int) *Response {
	if take <= 0 {
		take = DefaultTeamsTake
	}
	v := url.Values{}
	v.Set("seasonId", seasonID)
	v.Set("take", strconv.Itoa(take))
	if skip > 0 {
		v.Set("skip", strconv.Itoa(skip))
	}
	return c.Get(ctx, "/"+url.PathEscape(league)+"/teams", v)
}

// Games lists games: GET /{league}/games.
func (c *Client) Games(ctx context.Context, league string, q GamesQuery) *Response {
	return c.Get(ctx, "/"+url.PathEscape(league)+"/games", q.values())
}

// GameEvents lists play-by-play events: GET /{league}/games/{gameId}/events.
func (c *Client) GameEvents(ctx context.Context, league, gameID string) *Response {
	return c.Get(ctx, "/"+url.PathEscape(league)+"/games/"+url.PathEscape(gameID)+"/events", nil)
}

// PlayVideos lists video assets for a play: GET /{league}/plays/{playId}/video.
// The endpoint is licensed separately and commonly answers 403 or 404.
func (c *Client) PlayVideos(ctx context.Context, league, playID string) *Response {
	return c.Get(ctx, "/"+url.PathEscape(league)+"/plays/"+url.PathEscape(playID)+"/video", nil)
}
