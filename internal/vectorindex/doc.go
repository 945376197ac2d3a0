// Package vectorindex stores play embeddings and answers nearest-neighbour
// queries by cosine distance.
//
// The index lives in its own SQLite database, separate from the relational
// cache. There is no cross-store transaction: a play may exist in one store
// and not the other, and readers tolerate that.
//
// Vectors are stored as little-endian float32 blobs. With -tags sqlite_vec
// the distance is computed in SQL via vec_distance_cosine; otherwise every
// candidate is scored in Go. Both paths order matches by ascending distance
// (1 - cosine similarity), so lower is closer.
package vectorindex
