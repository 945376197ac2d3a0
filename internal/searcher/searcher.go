package searcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/dshills/skout-mcp/internal/embedder"
	"github.com/dshills/skout-mcp/internal/storage"
	"github.com/dshills/skout-mcp/internal/vectorindex"
	"github.com/dshills/skout-mcp/pkg/types"
)

// Result set bounds.
const (
	DefaultK = 50
	MaxK     = 50

	DefaultCacheSize = 1000
	DefaultCacheTTL  = 10 * time.Minute
)

// ErrInvalidRequest is returned for requests that cannot be answered.
var ErrInvalidRequest = errors.New("invalid search request")

// Request contains parameters for a play search
type Request struct {
	Query    string
	Tags     []string // Every tag must be present on a play
	Teams    []string // Home or away team must be one of these
	YearFrom int      // Inclusive; 0 is open
	YearTo   int      // Inclusive; 0 is open
	Limit    int      // Candidates pulled from the index (default and max 50)
	UseCache bool
}

// Response contains search results and metadata
type Response struct {
	Results    []types.SearchResult `json:"results"`
	SearchText string               `json:"search_text"`
	Candidates int                  `json:"candidates"` // Index matches before joins and filters
	Duration   time.Duration        `json:"duration"`
	CacheHit   bool                 `json:"cache_hit"`
}

// Config tunes a Searcher. Zero values use defaults.
type Config struct {
	PeriodLength int
	CacheSize    int
	CacheTTL     time.Duration
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *Response
	expiresAt time.Time
}

// Searcher answers play searches against the vector index and the cache.
type Searcher struct {
	store        storage.Storage
	index        vectorindex.Index
	embedder     embedder.Embedder
	periodLength int
	ttl          time.Duration

	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewSearcher creates a new Searcher instance
func NewSearcher(store storage.Storage, index vectorindex.Index, emb embedder.Embedder, cfg Config) *Searcher {
	if cfg.PeriodLength <= 0 {
		cfg.PeriodLength = DefaultPeriodLength
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	cache, err := lru.New[[32]byte, *cacheEntry](cfg.CacheSize)
	if err != nil {
		// This should never happen with valid size parameter
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Searcher{
		store:        store,
		index:        index,
		embedder:     emb,
		periodLength: cfg.PeriodLength,
		ttl:          cfg.CacheTTL,
		cache:        cache,
	}
}

// SearchText returns the text that will be embedded for req: the trimmed
// query, else the tags joined by spaces.
func SearchText(req Request) string {
	if q := strings.TrimSpace(req.Query); q != "" {
		return q
	}
	tags := make([]string, 0, len(req.Tags))
	for _, t := range req.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return strings.Join(tags, " ")
}

// Search runs a hybrid search
func (s *Searcher) Search(ctx context.Context, req Request) (*Response, error) {
	startTime := time.Now()

	if err := s.validateRequest(&req); err != nil {
		return nil, err
	}

	text := SearchText(req)
	if text == "" {
		return &Response{Results: []types.SearchResult{}, Duration: time.Since(startTime)}, nil
	}

	hash := computeQueryHash(text, req)
	if req.UseCache {
		if cached := s.checkCache(hash); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	v, err, _ := s.group.Do(hex.EncodeToString(hash[:]), func() (interface{}, error) {
		return s.search(ctx, text, req)
	})
	if err != nil {
		return nil, err
	}

	response := copyResponse(v.(*Response))
	response.Duration = time.Since(startTime)

	if req.UseCache {
		s.storeInCache(hash, response)
	}
	return response, nil
}

func (s *Searcher) search(ctx context.Context, text string, req Request) (*Response, error) {
	if s.embedder == nil || s.index == nil {
		return nil, fmt.Errorf("searcher not initialized")
	}

	emb, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	matches, err := s.index.Query(ctx, emb.Vector, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	response := &Response{
		Results:    make([]types.SearchResult, 0, len(matches)),
		SearchText: text,
		Candidates: len(matches),
	}
	if len(matches) == 0 {
		return response, nil
	}

	gameIDs := make([]string, 0, len(matches))
	playIDs := make([]string, 0, len(matches))
	for _, m := range matches {
		gameIDs = append(gameIDs, m.Metadata.GameID)
		playIDs = append(playIDs, m.PlayID)
	}

	games, err := s.store.GetGames(ctx, gameIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load games: %w", err)
	}
	plays, err := s.store.GetPlays(ctx, playIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load plays: %w", err)
	}

	teams := newTeamSet(req.Teams)
	dropped := 0
	for _, m := range matches {
		game, ok := games[m.Metadata.GameID]
		if !ok {
			dropped++
			continue
		}
		if !teams.matches(game) {
			continue
		}
		if !inYearRange(game.Year(), req.YearFrom, req.YearTo) {
			continue
		}

		result := s.buildResult(m, game, plays[m.PlayID])
		if !MatchesAllTags(result.Tags, req.Tags) {
			continue
		}
		result.Rank = len(response.Results) + 1
		response.Results = append(response.Results, result)
	}

	if dropped > 0 {
		log.WithField("dropped", dropped).Debug("matches without cached game")
	}
	return response, nil
}

// buildResult joins a match with its game and, when cached, its play row.
// The play row is authoritative for period and clock; vector metadata fills
// in for plays indexed but no longer cached.
func (s *Searcher) buildResult(m vectorindex.Match, game *types.Game, play *types.Play) types.SearchResult {
	result := types.SearchResult{
		PlayID:      m.PlayID,
		GameID:      game.GameID,
		Matchup:     game.Matchup(),
		HomeTeam:    game.HomeTeam,
		AwayTeam:    game.AwayTeam,
		Date:        game.Date,
		Description: m.Metadata.OriginalDescription,
		Tags:        m.Metadata.Tags,
		Clock:       m.Metadata.Clock,
		Period:      m.Metadata.Period,
		Distance:    m.Distance,
	}
	if game.VideoPath != nil {
		result.VideoPath = *game.VideoPath
	}

	clock, _ := strconv.Atoi(m.Metadata.Clock)
	if play != nil {
		result.Period = play.Period
		clock = play.ClockSeconds
		if result.Description == "" {
			result.Description = play.Description
		}
		if result.Tags == "" {
			result.Tags = play.Tags
		}
		if result.Clock == "" {
			result.Clock = play.ClockDisplay
		}
	}
	result.Offset = VideoOffset(result.Period, clock, s.periodLength)
	return result
}

func (s *Searcher) validateRequest(req *Request) error {
	if req.Limit < 0 {
		return fmt.Errorf("%w: limit must be >= 0", ErrInvalidRequest)
	}
	if req.Limit == 0 || req.Limit > MaxK {
		req.Limit = DefaultK
	}
	if req.YearFrom < 0 || req.YearTo < 0 {
		return fmt.Errorf("%w: years must be >= 0", ErrInvalidRequest)
	}
	if req.YearFrom > 0 && req.YearTo > 0 && req.YearFrom > req.YearTo {
		return fmt.Errorf("%w: year range %d-%d is empty", ErrInvalidRequest, req.YearFrom, req.YearTo)
	}
	return nil
}

// checkCache returns a copy of a live cached response, or nil
func (s *Searcher) checkCache(hash [32]byte) *Response {
	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	s.cacheMu.RUnlock()
	if !found {
		return nil
	}

	if time.Now().After(entry.expiresAt) {
		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil
	}
	return copyResponse(entry.response)
}

// storeInCache saves search results to cache
func (s *Searcher) storeInCache(hash [32]byte, response *Response) {
	entry := &cacheEntry{
		response:  copyResponse(response),
		expiresAt: time.Now().Add(s.ttl),
	}

	s.cacheMu.Lock()
	s.cache.Add(hash, entry)
	s.cacheMu.Unlock()
}

// InvalidateCache drops every cached response. Call after a sync run.
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// CacheLen returns the number of cached responses.
func (s *Searcher) CacheLen() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Len()
}

// copyResponse creates a copy of a Response. SearchResult holds only
// values, so copying the slice is enough.
func copyResponse(src *Response) *Response {
	if src == nil {
		return nil
	}
	dst := *src
	dst.Results = make([]types.SearchResult, len(src.Results))
	copy(dst.Results, src.Results)
	return &dst
}

// computeQueryHash hashes the search text and normalised filters
func computeQueryHash(text string, req Request) [32]byte {
	tags := append([]string(nil), req.Tags...)
	sort.Strings(tags)

	teams := make([]string, 0, len(req.Teams))
	for t := range newTeamSet(req.Teams) {
		teams = append(teams, t)
	}
	sort.Strings(teams)

	var data strings.Builder
	data.WriteString(text)
	data.WriteString("|tags:")
	data.WriteString(strings.Join(tags, ","))
	data.WriteString(fmt.Sprintf("|teams:%q", teams))
	data.WriteString(fmt.Sprintf("|years:%d-%d|k:%d", req.YearFrom, req.YearTo, req.Limit))

	return sha256.Sum256([]byte(data.String()))
}
