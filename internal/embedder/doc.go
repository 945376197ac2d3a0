// Package embedder turns play text into vectors for the semantic index.
//
// Three providers share the Embedder interface: Jina AI and OpenAI call an
// OpenAI-compatible /v1/embeddings endpoint, and the local provider builds
// a hashed bag-of-words vector with no network access.
//
// # Provider Selection
//
//  1. If SKOUT_EMBEDDING_PROVIDER is set, use it
//  2. Else if JINA_API_KEY is set, use Jina AI
//  3. Else if OPENAI_API_KEY is set, use OpenAI
//  4. Else fall back to the local provider
//
// # Caching
//
// Embeddings are cached in an LRU keyed by model and whitespace-normalized
// text. Re-indexing a season only sends new descriptions to the API, and
// provider errors other than 429 and 5xx are not retried.
//
//	emb, err := embedder.New(embedder.Config{Provider: "local", CacheSize: 1000})
//	resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{
//	    Texts: []string{"Pick and Roll Ball Handler | PnR"},
//	})
package embedder
