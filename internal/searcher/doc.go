// Package searcher implements hybrid play search: semantic nearest
// neighbours from the vector index joined with relational game data.
//
// # Pipeline
//
//  1. The search text is the query, or the requested tags joined by spaces
//     when the query is blank. No text means no results and no embedding
//     call.
//  2. The text is embedded and the top K plays (K <= 50) are fetched from
//     the vector index in ascending cosine distance.
//  3. Each match is joined to its game. Matches whose game is not cached
//     are dropped.
//  4. Team, year and tag filters are applied in that order.
//  5. Each surviving play gets a playback offset into the full-game
//     recording (see VideoOffset).
//
// Filtering never reorders: results keep vector distance order and are
// ranked from 1 after filtering.
//
// # Caching
//
// Responses are cached in an LRU keyed by a hash of the normalised request,
// with a TTL. A sync run should call InvalidateCache so new plays become
// visible. Concurrent identical searches share one execution.
//
//	s := searcher.NewSearcher(store, index, emb, searcher.Config{})
//	resp, err := s.Search(ctx, searcher.Request{
//	    Query: "transition layup",
//	    Teams: []string{"Duke"},
//	    Tags:  []string{"Transition"},
//	})
package searcher
