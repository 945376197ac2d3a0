package storage

import (
	"context"
	"time"

	"github.com/dshills/skout-mcp/pkg/types"
)

// Storage defines the interface for the relational play-by-play cache
type Storage interface {
	// Game operations
	UpsertGames(ctx context.Context, games []types.Game) (int, error)
	GetGame(ctx context.Context, gameID string) (*types.Game, error)
	GetGames(ctx context.Context, gameIDs []string) (map[string]*types.Game, error)
	ListGameIDsBySeason(ctx context.Context, seasonID string) ([]string, error)
	ListLinkedGames(ctx context.Context, seasonID string) ([]*types.Game, error)
	SetVideoPath(ctx context.Context, gameID, videoPath string) error
	CountGames(ctx context.Context) (int, error)

	// Play operations
	ReplacePlays(ctx context.Context, gameID string, plays []types.Play) (int, error)
	GetPlay(ctx context.Context, playID string) (*types.Play, error)
	GetPlays(ctx context.Context, playIDs []string) (map[string]*types.Play, error)
	ListPlaysByGame(ctx context.Context, gameID string) ([]*types.Play, error)
	CountPlays(ctx context.Context) (int, error)
	UniqueTags(ctx context.Context) ([]string, error)

	// Play video operations
	UpsertPlayVideos(ctx context.Context, videos []types.PlayVideo) (int, error)
	ListPlayVideos(ctx context.Context, gameID string) ([]*types.PlayVideo, error)

	// Ingest run history
	RecordRun(ctx context.Context, run *Run) error
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Run records one ingestion pipeline execution
type Run struct {
	RunID         string
	League        string
	SeasonID      string
	InsertedGames int
	InsertedPlays int
	IndexedPlays  int
	SkippedGames  int
	Warnings      int
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Status contains statistics about the cache
type Status struct {
	Games         int
	LinkedGames   int
	Plays         int
	PlayVideos    int
	Seasons       int
	SizeBytes     int64
	SchemaVersion string
	BuildMode     string
	LastRun       *Run // nil when nothing has been ingested
}
