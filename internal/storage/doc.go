// Package storage provides SQLite-based persistence for cached schedule and
// play-by-play data.
//
// # Database Schema
//
// Tables:
//   - games: one row per concluded game, keyed by game_id
//   - plays: play-by-play events, keyed by play_id, cascading from games
//   - ingest_runs: history of pipeline runs
//   - schema_version: applied migrations (semver)
//
// # Merge Semantics
//
// UpsertGames is last-write-wins on every column except video_path. A null
// incoming video_path keeps whatever is stored, so re-crawling a schedule
// never unlinks a recording:
//
//	store.SetVideoPath(ctx, "g1", "/videos/g1.mp4")
//	store.UpsertGames(ctx, []types.Game{{GameID: "g1", Status: "Final"}})
//	g, _ := store.GetGame(ctx, "g1") // g.VideoPath still "/videos/g1.mp4"
//
// ReplacePlays deletes and reinserts the plays of exactly one game inside a
// transaction. Plays of other games are untouched.
//
// # Transactions
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	tx.UpsertGames(ctx, games)
//	tx.ReplacePlays(ctx, gameID, plays)
//
//	if err := tx.Commit(); err != nil {
//	    return err
//	}
//
// # Build Modes
//
// The default build uses modernc.org/sqlite (pure Go). Building with
// -tags sqlite_vec switches to github.com/mattn/go-sqlite3 with the
// sqlite-vec extension, which vectorindex uses to compute distances in SQL.
//
// OpenDB and ApplyMigrationSet are exported so other SQLite-backed stores
// in this module share the same connection settings and versioning.
package storage
