package vectorindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/dshills/skout-mcp/internal/storage"
)

// DefaultCollection holds play embeddings.
const DefaultCollection = "skout_plays"

var (
	ErrEmptyVector       = errors.New("vector cannot be empty")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrMissingPlayID     = errors.New("play id is required")
)

// Metadata is stored alongside each vector.
type Metadata struct {
	GameID              string `json:"game_id"`
	Tags                string `json:"tags"`
	Clock               string `json:"clock"`
	Period              int    `json:"period"`
	OriginalDescription string `json:"original_desc"`
}

// Entry is one vector to index, keyed by play id.
type Entry struct {
	PlayID   string
	Vector   []float32
	Metadata Metadata
}

// Match is a query hit. Distance is 1 - cosine similarity.
type Match struct {
	PlayID   string
	Distance float64
	Metadata Metadata
}

// Index is a nearest-neighbour store for play vectors.
type Index interface {
	Upsert(ctx context.Context, entries []Entry) (int, error)
	Query(ctx context.Context, vector []float32, k int) ([]Match, error)
	DeleteByGame(ctx context.Context, gameID string) (int, error)
	DeleteStale(ctx context.Context, gameID string, keep []string) (int, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

var migrations = []storage.Migration{
	{
		Version: "1.0.0",
		Up: `
CREATE TABLE IF NOT EXISTS vectors (
    collection TEXT NOT NULL,
    play_id TEXT NOT NULL,
    game_id TEXT NOT NULL,
    vector BLOB NOT NULL,
    dimension INTEGER NOT NULL,
    tags TEXT DEFAULT '',
    clock TEXT DEFAULT '',
    period INTEGER DEFAULT 0,
    original_desc TEXT DEFAULT '',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (collection, play_id)
);

CREATE INDEX IF NOT EXISTS idx_vectors_game ON vectors(collection, game_id);
`,
		Down: `DROP TABLE IF EXISTS vectors;`,
	},
}

// SQLiteIndex implements Index on a dedicated SQLite database.
type SQLiteIndex struct {
	db         *sql.DB
	collection string
}

// Open opens (creating if needed) a vector index at path.
func Open(path string) (*SQLiteIndex, error) {
	return OpenCollection(path, DefaultCollection)
}

// OpenCollection opens an index scoped to a named collection.
func OpenCollection(path, collection string) (*SQLiteIndex, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	db, err := storage.OpenDB(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}
	if err := storage.ApplyMigrationSet(context.Background(), db, migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply vector index migrations: %w", err)
	}
	return &SQLiteIndex{db: db, collection: collection}, nil
}

// Close closes the database connection
func (x *SQLiteIndex) Close() error {
	return x.db.Close()
}

// Upsert inserts or replaces entries in one transaction and returns how
// many were written.
func (x *SQLiteIndex) Upsert(ctx context.Context, entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (collection, play_id, game_id, vector, dimension, tags, clock, period, original_desc)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, play_id) DO UPDATE SET
			game_id = excluded.game_id,
			vector = excluded.vector,
			dimension = excluded.dimension,
			tags = excluded.tags,
			clock = excluded.clock,
			period = excluded.period,
			original_desc = excluded.original_desc
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		if e.PlayID == "" {
			return 0, ErrMissingPlayID
		}
		if len(e.Vector) == 0 {
			return 0, fmt.Errorf("%w: play %s", ErrEmptyVector, e.PlayID)
		}
		m := e.Metadata
		if _, err := stmt.ExecContext(ctx, x.collection, e.PlayID, m.GameID, serializeVector(e.Vector),
			len(e.Vector), m.Tags, m.Clock, m.Period, m.OriginalDescription); err != nil {
			return 0, fmt.Errorf("failed to upsert vector %s: %w", e.PlayID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit vectors: %w", err)
	}
	return len(entries), nil
}

// Query returns up to k matches ordered by ascending distance. Stored
// vectors with a different dimension are ignored.
func (x *SQLiteIndex) Query(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if len(vector) == 0 {
		return nil, ErrEmptyVector
	}
	if k <= 0 {
		return []Match{}, nil
	}
	// Use optimized SQL-based search when sqlite-vec is available
	if storage.VectorExtensionAvailable {
		return x.queryOptimized(ctx, vector, k)
	}
	return x.queryFallback(ctx, vector, k)
}

// queryOptimized computes distances in SQL with the sqlite-vec extension
func (x *SQLiteIndex) queryOptimized(ctx context.Context, vector []float32, k int) ([]Match, error) {
	rows, err := x.db.QueryContext(ctx, `
		SELECT play_id, vec_distance_cosine(vector, ?) AS distance,
		       game_id, tags, clock, period, original_desc
		FROM vectors
		WHERE collection = ? AND dimension = ?
		ORDER BY distance ASC, play_id ASC
		LIMIT ?
	`, serializeVector(vector), x.collection, len(vector), k)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	matches := make([]Match, 0, k)
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.PlayID, &m.Distance, &m.Metadata.GameID, &m.Metadata.Tags,
			&m.Metadata.Clock, &m.Metadata.Period, &m.Metadata.OriginalDescription); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// queryFallback scores every candidate in Go for purego builds
func (x *SQLiteIndex) queryFallback(ctx context.Context, vector []float32, k int) ([]Match, error) {
	rows, err := x.db.QueryContext(ctx, `
		SELECT play_id, vector, game_id, tags, clock, period, original_desc
		FROM vectors
		WHERE collection = ? AND dimension = ?
	`, x.collection, len(vector))
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]Match, 0, 256)
	for rows.Next() {
		var m Match
		var blob []byte
		if err := rows.Scan(&m.PlayID, &blob, &m.Metadata.GameID, &m.Metadata.Tags,
			&m.Metadata.Clock, &m.Metadata.Period, &m.Metadata.OriginalDescription); err != nil {
			return nil, err
		}
		stored := deserializeVector(blob)
		if len(stored) != len(vector) {
			log.WithField("play_id", m.PlayID).Debug("skipping vector with mismatched dimension")
			continue
		}
		m.Distance = cosineDistance(vector, stored)
		candidates = append(candidates, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortMatches(candidates)
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// DeleteByGame removes every vector belonging to a game.
func (x *SQLiteIndex) DeleteByGame(ctx context.Context, gameID string) (int, error) {
	res, err := x.db.ExecContext(ctx, "DELETE FROM vectors WHERE collection = ? AND game_id = ?", x.collection, gameID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete vectors for game %s: %w", gameID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// DeleteStale removes the vectors of a game whose play id is not in keep.
// An empty keep clears the game.
func (x *SQLiteIndex) DeleteStale(ctx context.Context, gameID string, keep []string) (int, error) {
	if len(keep) == 0 {
		return x.DeleteByGame(ctx, gameID)
	}

	rows, err := x.db.QueryContext(ctx, "SELECT play_id FROM vectors WHERE collection = ? AND game_id = ?", x.collection, gameID)
	if err != nil {
		return 0, fmt.Errorf("failed to list vectors for game %s: %w", gameID, err)
	}
	kept := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		kept[id] = struct{}{}
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return 0, err
		}
		if _, ok := kept[id]; !ok {
			stale = append(stale, id)
		}
	}
	// Released before deleting: the index holds a single connection.
	err = rows.Err()
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, id := range stale {
		res, err := x.db.ExecContext(ctx, "DELETE FROM vectors WHERE collection = ? AND play_id = ?", x.collection, id)
		if err != nil {
			return deleted, fmt.Errorf("failed to delete vector %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		deleted += int(n)
	}
	return deleted, nil
}

// Count returns the number of vectors in the collection.
func (x *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var n int
	err := x.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vectors WHERE collection = ?", x.collection).Scan(&n)
	return n, err
}

// Collection returns the collection name.
func (x *SQLiteIndex) Collection() string {
	return x.collection
}
