package ingest

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/dshills/skout-mcp/internal/envelope"
	"github.com/dshills/skout-mcp/internal/storage"
	"github.com/dshills/skout-mcp/internal/synergy"
	"github.com/dshills/skout-mcp/pkg/types"
)

// ErrVideosUnlicensed is reported when the key may not read play video
// assets.
var ErrVideosUnlicensed = errors.New("play video endpoint not licensed")

// VideoSource fetches the video assets of one play. Pacing between calls is
// left to the source; the Synergy client applies its request interval.
type VideoSource interface {
	PlayVideos(ctx context.Context, league, playID string) *synergy.Response
}

// VideoResult summarises a video lookup over one game's plays.
type VideoResult struct {
	GameID         string   `json:"game_id"`
	PlaysChecked   int      `json:"plays_checked"`
	PlaysWithVideo int      `json:"plays_with_video"`
	VideosLinked   int      `json:"videos_linked"`
	Unlicensed     bool     `json:"unlicensed"`
	Warnings       []string `json:"warnings,omitempty"`
}

// VideoLinker stores the licensed video assets of cached plays.
type VideoLinker struct {
	source VideoSource
	store  storage.Storage
}

// NewVideoLinker creates a VideoLinker.
func NewVideoLinker(source VideoSource, store storage.Storage) *VideoLinker {
	return &VideoLinker{source: source, store: store}
}

// LinkGame looks up the video assets of a cached game's plays, in game
// order, stopping after limit plays when limit > 0. A 404 means the play has
// no video. A 401 or 403 means the key is not licensed for video, so the walk
// stops with Unlicensed set. Other failures are warnings.
func (l *VideoLinker) LinkGame(ctx context.Context, league, gameID string, limit int) (*VideoResult, error) {
	if _, err := l.store.GetGame(ctx, gameID); err != nil {
		return nil, fmt.Errorf("game %s: %w", gameID, err)
	}
	plays, err := l.store.ListPlaysByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plays for game %s: %w", gameID, err)
	}
	if limit > 0 && len(plays) > limit {
		plays = plays[:limit]
	}

	res := &VideoResult{GameID: gameID}
	logger := log.WithField("game_id", gameID)

	for _, play := range plays {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		resp := l.source.PlayVideos(ctx, league, play.PlayID)
		res.PlaysChecked++

		switch resp.Outcome {
		case synergy.Success:
		case synergy.NotFound:
			continue
		case synergy.Forbidden, synergy.Unauthorized:
			res.Unlicensed = true
			res.Warnings = append(res.Warnings, fmt.Sprintf("%v (%d)", ErrVideosUnlicensed, resp.Status))
			logger.WithField("status", resp.Status).Warn("play video endpoint not licensed")
			return res, nil
		case synergy.Canceled:
			return res, resp.Err
		default:
			res.Warnings = append(res.Warnings, fmt.Sprintf("videos for play %s unavailable (%s)", play.PlayID, resp.Outcome))
			logger.WithError(resp.Err).WithField("play_id", play.PlayID).Warn("skipping play videos")
			continue
		}

		videos := VideosFromRecords(envelope.Normalize(resp.Payload), play)
		if len(videos) == 0 {
			continue
		}
		n, err := l.store.UpsertPlayVideos(ctx, videos)
		if err != nil {
			return res, fmt.Errorf("failed to store videos for play %s: %w", play.PlayID, err)
		}
		res.PlaysWithVideo++
		res.VideosLinked += n
	}

	logger.WithFields(log.Fields{
		"plays_checked": res.PlaysChecked,
		"videos_linked": res.VideosLinked,
	}).Debug("play videos linked")
	return res, nil
}

// VideosFromRecords maps video records onto a play. Records without an id
// are dropped.
func VideosFromRecords(records []envelope.Record, play *types.Play) []types.PlayVideo {
	out := make([]types.PlayVideo, 0, len(records))
	for _, rec := range records {
		id := rec.String("id")
		if id == "" {
			continue
		}
		out = append(out, types.PlayVideo{
			VideoID:   id,
			PlayID:    play.PlayID,
			GameID:    play.GameID,
			URL:       rec.String("url"),
			StartTime: rec.String("startTime"),
			EndTime:   rec.String("endTime"),
			Angle:     rec.String("angle"),
			Quality:   rec.String("quality"),
		})
	}
	return out
}
