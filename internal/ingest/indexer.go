package ingest

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/skout-mcp/internal/embedder"
	"github.com/dshills/skout-mcp/internal/vectorindex"
	"github.com/dshills/skout-mcp/pkg/types"
)

// IndexerConfig contains configuration for the play indexer
type IndexerConfig struct {
	Workers   int // Concurrent embedding batches (default: runtime.NumCPU())
	BatchSize int // Plays per embedding request (default: embedder.DefaultBatchSize)
}

// IndexStats contains statistics about an indexing pass
type IndexStats struct {
	PlaysIndexed  int
	PlaysFailed   int
	GamesPruned   int      // Games checked for stale vectors
	GamesFailed   []string // Games left untouched because a batch failed
	VectorsPruned int
	Duration      time.Duration
	ErrorMessages []string
}

// PlayIndexer embeds plays and writes them to the vector index.
type PlayIndexer struct {
	embedder embedder.Embedder
	index    vectorindex.Index

	workers   int
	batchSize int
}

// NewPlayIndexer creates a PlayIndexer. A nil config uses defaults.
func NewPlayIndexer(emb embedder.Embedder, index vectorindex.Index, config *IndexerConfig) *PlayIndexer {
	pi := &PlayIndexer{
		embedder:  emb,
		index:     index,
		workers:   runtime.NumCPU(),
		batchSize: embedder.DefaultBatchSize,
	}
	if config != nil {
		if config.Workers > 0 {
			pi.workers = config.Workers
		}
		if config.BatchSize > 0 {
			pi.batchSize = min(config.BatchSize, embedder.MaxBatchSize)
		}
	}
	return pi
}

// IndexGames re-indexes the plays of each game in playsByGame. New vectors
// are upserted first. Vectors of plays that left a game are pruned only once
// every batch of that game succeeded; a game with a failed batch keeps its
// previous vectors. A failed batch is recorded and skipped, and only
// cancellation aborts the pass.
func (pi *PlayIndexer) IndexGames(ctx context.Context, playsByGame map[string][]types.Play) (*IndexStats, error) {
	start := time.Now()
	stats := &IndexStats{ErrorMessages: make([]string, 0)}

	gameIDs := make([]string, 0, len(playsByGame))
	for id := range playsByGame {
		gameIDs = append(gameIDs, id)
	}
	sort.Strings(gameIDs)

	var (
		indexed int32
		failed  int32
		mu      sync.Mutex // Protects stats.ErrorMessages and failedGames
	)
	failedGames := make(map[string]bool)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pi.workers)

	// Batches never span games so a failure is attributed to one game.
	for _, gameID := range gameIDs {
		plays := playsByGame[gameID]
		for i := 0; i < len(plays); i += pi.batchSize {
			batch := plays[i:min(i+pi.batchSize, len(plays))]

			g.Go(func() error {
				n, err := pi.indexBatch(gctx, batch)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					atomic.AddInt32(&failed, int32(len(batch)))
					mu.Lock()
					failedGames[gameID] = true
					stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("game %s plays %s..%s: %v", gameID, batch[0].PlayID, batch[len(batch)-1].PlayID, err))
					mu.Unlock()
					log.WithError(err).WithFields(log.Fields{
						"game_id":    gameID,
						"batch_size": len(batch),
					}).Warn("embedding batch failed")
					return nil
				}
				atomic.AddInt32(&indexed, int32(n))
				return nil
			})
		}
	}

	err := g.Wait()
	stats.PlaysIndexed = int(indexed)
	stats.PlaysFailed = int(failed)
	if err != nil {
		stats.Duration = time.Since(start)
		return stats, err
	}

	for _, gameID := range gameIDs {
		if failedGames[gameID] {
			stats.GamesFailed = append(stats.GamesFailed, gameID)
			continue
		}
		keep := make([]string, len(playsByGame[gameID]))
		for i, p := range playsByGame[gameID] {
			keep[i] = p.PlayID
		}
		n, err := pi.index.DeleteStale(ctx, gameID, keep)
		if err != nil {
			stats.Duration = time.Since(start)
			return stats, fmt.Errorf("failed to prune vectors for game %s: %w", gameID, err)
		}
		stats.GamesPruned++
		stats.VectorsPruned += n
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

// indexBatch embeds one batch and upserts it
func (pi *PlayIndexer) indexBatch(ctx context.Context, batch []types.Play) (int, error) {
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].EmbeddingText()
	}

	resp, err := pi.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
	if err != nil {
		return 0, err
	}
	if len(resp.Embeddings) != len(batch) {
		return 0, fmt.Errorf("%w: expected %d embeddings, got %d", embedder.ErrProviderFailed, len(batch), len(resp.Embeddings))
	}

	entries := make([]vectorindex.Entry, len(batch))
	for i, p := range batch {
		entries[i] = vectorindex.Entry{
			PlayID: p.PlayID,
			Vector: resp.Embeddings[i].Vector,
			Metadata: vectorindex.Metadata{
				GameID:              p.GameID,
				Tags:                p.Tags,
				Clock:               p.ClockDisplay,
				Period:              p.Period,
				OriginalDescription: p.Description,
			},
		}
	}

	return pi.index.Upsert(ctx, entries)
}
