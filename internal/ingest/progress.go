package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Pipeline stages, emitted in this order.
const (
	StageScheduleStart  = "schedule:start"
	StageScheduleDone   = "schedule:done"
	StageEventsStart    = "events:start"
	StageEventsProgress = "events:progress"
	StageEventsDone     = "events:done"
	StageIndexDone      = "index:done"
	StageVideosDone     = "videos:done"
)

// Event is one progress notification.
type Event struct {
	Stage    string         `json:"stage"`
	RunID    string         `json:"run_id"`
	League   string         `json:"league"`
	SeasonID string         `json:"season_id"`
	Info     map[string]int `json:"info,omitempty"`
	Time     time.Time      `json:"time"`
}

// ProgressFunc receives pipeline events. It must not block for long.
type ProgressFunc func(Event)

// LogProgress logs every event at info level.
func LogProgress(ev Event) {
	entry := log.WithFields(log.Fields{
		"run_id":    ev.RunID,
		"league":    ev.League,
		"season_id": ev.SeasonID,
	})
	for k, v := range ev.Info {
		entry = entry.WithField(k, v)
	}
	entry.Info(ev.Stage)
}

// MultiProgress fans an event out to every non-nil sink.
func MultiProgress(sinks ...ProgressFunc) ProgressFunc {
	return func(ev Event) {
		for _, sink := range sinks {
			if sink != nil {
				sink(ev)
			}
		}
	}
}

// StreamKey names the Redis stream carrying a league's progress.
func StreamKey(league string) string {
	return fmt.Sprintf("skout.progress.%s", league)
}

// RedisProgress publishes events to a Redis stream per league so other
// processes can follow a long sync.
type RedisProgress struct {
	client  *redis.Client
	maxLen  int64
	timeout time.Duration
}

// NewRedisProgress connects to the Redis server at url
// (redis://host:port/db).
func NewRedisProgress(url string) (*RedisProgress, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisProgressWithClient(redis.NewClient(opts)), nil
}

// NewRedisProgressWithClient wraps an existing client.
func NewRedisProgressWithClient(client *redis.Client) *RedisProgress {
	return &RedisProgress{
		client:  client,
		maxLen:  1000,
		timeout: 2 * time.Second,
	}
}

// Publish appends ev to its league stream.
func (r *RedisProgress) Publish(ctx context.Context, ev Event) error {
	values, err := streamValues(ev)
	if err != nil {
		return err
	}
	return r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey(ev.League),
		MaxLen: r.maxLen,
		Approx: true,
		Values: values,
	}).Err()
}

// Sink adapts Publish to a ProgressFunc. Publish failures are logged and
// never interrupt the run.
func (r *RedisProgress) Sink() ProgressFunc {
	return func(ev Event) {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.Publish(ctx, ev); err != nil {
			log.WithError(err).WithField("stage", ev.Stage).Warn("progress publish failed")
		}
	}
}

// Close closes the underlying client.
func (r *RedisProgress) Close() error {
	return r.client.Close()
}

func streamValues(ev Event) (map[string]interface{}, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshaling progress event: %w", err)
	}
	return map[string]interface{}{
		"stage":     ev.Stage,
		"run_id":    ev.RunID,
		"season_id": ev.SeasonID,
		"data":      string(data),
	}, nil
}
