package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"
	log "github.com/sirupsen/logrus"

	"github.com/dshills/skout-mcp/internal/capabilities"
	"github.com/dshills/skout-mcp/internal/clips"
	"github.com/dshills/skout-mcp/internal/ingest"
	"github.com/dshills/skout-mcp/internal/searcher"
	"github.com/dshills/skout-mcp/internal/storage"
)

// MCP error codes
const (
	ErrorCodeInvalidParams  = -32602 // Invalid method parameters
	ErrorCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound       = -32001 // Game or play is not cached
	ErrorCodeSyncInProgress = -32002 // Another sync is already running
	ErrorCodeNoCredential   = -32003 // No API key configured
	ErrorCodeNoVideo        = -32004 // Game has no linked recording
)

// Clip window defaults, in seconds around the play offset.
const (
	defaultClipBefore = 5.0
	defaultClipAfter  = 10.0
)

// handleDiscoverCapabilities handles the discover_capabilities tool invocation
func (s *Server) handleDiscoverCapabilities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	league := getStringDefault(args, "league", s.app.Config.League)
	opts := capabilities.Options{
		MaxSeasons: getIntDefault(args, "max_seasons", capabilities.DefaultMaxSeasons),
		ProbeTeams: getBoolDefault(args, "probe_teams", true),
		ProbeGames: getBoolDefault(args, "probe_games", true),
	}
	if opts.MaxSeasons < 1 || opts.MaxSeasons > 20 {
		return nil, newMCPError(ErrorCodeInvalidParams, "max_seasons must be between 1 and 20", map[string]interface{}{
			"param": "max_seasons",
			"value": opts.MaxSeasons,
		})
	}

	if s.prober == nil {
		report := capabilities.DiscoverWithCredential(ctx, s.app.Config.SynergyConfig(), league, opts)
		return mcp.NewToolResultText(formatJSON(report)), nil
	}
	report := capabilities.Discover(ctx, s.prober, league, opts)
	return mcp.NewToolResultText(formatJSON(report)), nil
}

// handleSyncSeason handles the sync_season tool invocation
func (s *Server) handleSyncSeason(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	seasonID := getStringDefault(args, "season_id", "")
	if seasonID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "season_id parameter is required", map[string]interface{}{
			"param":  "season_id",
			"reason": "missing or empty",
		})
	}

	pipeline, err := s.app.RequirePipeline()
	if err != nil {
		return nil, newMCPError(ErrorCodeNoCredential, err.Error(), nil)
	}

	if !s.syncSem.TryAcquire(1) {
		return nil, newMCPError(ErrorCodeSyncInProgress, "a sync is already running", nil)
	}
	defer s.syncSem.Release(1)

	plan := ingest.Plan{
		League:          getStringDefault(args, "league", s.app.Config.League),
		SeasonID:        seasonID,
		TeamIDs:         getStringSlice(args, "team_ids"),
		IngestEvents:    getBoolDefault(args, "ingest_events", true),
		IndexPlays:      getBoolDefault(args, "index_plays", true),
		IncludeUnlinked: getBoolDefault(args, "include_unlinked", false),
		LinkPlayVideos:  getBoolDefault(args, "link_play_videos", false),
	}

	res, err := pipeline.Run(ctx, plan, s.app.Progress)
	// Even a failed run may have written rows.
	s.app.Searcher.InvalidateCache()
	if errors.Is(err, ingest.ErrRunInProgress) {
		return nil, newMCPError(ErrorCodeSyncInProgress, "a sync is already running", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "sync failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"run_id":         res.RunID,
		"inserted_games": res.InsertedGames,
		"inserted_plays": res.InsertedPlays,
		"indexed_plays":  res.IndexedPlays,
		"skipped_games":  res.SkippedGames,
		"linked_videos":  res.LinkedVideos,
		"duration_ms":    res.FinishedAt.Sub(res.StartedAt).Milliseconds(),
	}
	if len(res.Warnings) > 0 {
		// Include first few warnings
		if len(res.Warnings) > 5 {
			response["warnings"] = res.Warnings[:5]
			response["warning_count"] = len(res.Warnings)
		} else {
			response["warnings"] = res.Warnings
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchPlays handles the search_plays tool invocation
func (s *Server) handleSearchPlays(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	limit := getIntDefault(args, "limit", searcher.DefaultK)
	if limit < 1 || limit > searcher.MaxK {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", searcher.MaxK), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	req := searcher.Request{
		Query:    getStringDefault(args, "query", ""),
		Tags:     getStringSlice(args, "tags"),
		Teams:    getStringSlice(args, "teams"),
		YearFrom: getIntDefault(args, "year_from", 0),
		YearTo:   getIntDefault(args, "year_to", 0),
		Limit:    limit,
		UseCache: true,
	}

	resp, err := s.app.Searcher.Search(ctx, req)
	if errors.Is(err, searcher.ErrInvalidRequest) {
		return nil, newMCPError(ErrorCodeInvalidParams, err.Error(), nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"results":     resp.Results,
		"count":       len(resp.Results),
		"candidates":  resp.Candidates,
		"search_text": resp.SearchText,
		"cache_hit":   resp.CacheHit,
		"duration_ms": resp.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListTags handles the list_tags tool invocation
func (s *Server) handleListTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.app.Store.UniqueTags(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list tags", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"tags":  tags,
		"count": len(tags),
	})), nil
}

// handleLinkVideo handles the link_video tool invocation
func (s *Server) handleLinkVideo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	gameID := getStringDefault(args, "game_id", "")
	if gameID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "game_id parameter is required", map[string]interface{}{
			"param":  "game_id",
			"reason": "missing or empty",
		})
	}
	videoPath, ok := args["video_path"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "video_path parameter is required", map[string]interface{}{
			"param":  "video_path",
			"reason": "missing",
		})
	}
	if videoPath != "" {
		if err := validateVideoPath(videoPath); err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid video_path", map[string]interface{}{
				"param":  "video_path",
				"reason": err.Error(),
			})
		}
	}

	err = s.app.Store.SetVideoPath(ctx, gameID, videoPath)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNotFound, "game not cached", map[string]interface{}{
			"game_id": gameID,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to link video", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.app.Searcher.InvalidateCache()

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"game_id":    gameID,
		"video_path": videoPath,
		"linked":     videoPath != "",
	})), nil
}

// handleFetchPlayVideos handles the fetch_play_videos tool invocation
func (s *Server) handleFetchPlayVideos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	gameID := getStringDefault(args, "game_id", "")
	if gameID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "game_id parameter is required", map[string]interface{}{
			"param":  "game_id",
			"reason": "missing or empty",
		})
	}
	limit := getIntDefault(args, "limit", 0)
	if limit < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be >= 0", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	linker, err := s.app.RequireVideos()
	if err != nil {
		return nil, newMCPError(ErrorCodeNoCredential, err.Error(), nil)
	}

	res, err := linker.LinkGame(ctx, getStringDefault(args, "league", s.app.Config.League), gameID, limit)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNotFound, "game not cached", map[string]interface{}{
			"game_id": gameID,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to fetch play videos", map[string]interface{}{
			"error": err.Error(),
		})
	}

	videos, err := s.app.Store.ListPlayVideos(ctx, gameID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list play videos", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"game_id":          gameID,
		"plays_checked":    res.PlaysChecked,
		"plays_with_video": res.PlaysWithVideo,
		"videos_linked":    res.VideosLinked,
		"unlicensed":       res.Unlicensed,
		"warnings":         res.Warnings,
		"videos":           videos,
	})), nil
}

// handleSliceClip handles the slice_clip tool invocation
func (s *Server) handleSliceClip(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	playID := getStringDefault(args, "play_id", "")
	if playID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "play_id parameter is required", map[string]interface{}{
			"param":  "play_id",
			"reason": "missing or empty",
		})
	}
	before := getFloatDefault(args, "before", defaultClipBefore)
	after := getFloatDefault(args, "after", defaultClipAfter)
	if before < 0 || after < 0 || before+after <= 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "before and after must be non-negative and not both zero", nil)
	}

	play, err := s.app.Store.GetPlay(ctx, playID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNotFound, "play not cached", map[string]interface{}{"play_id": playID})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load play", map[string]interface{}{"error": err.Error()})
	}
	game, err := s.app.Store.GetGame(ctx, play.GameID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load game", map[string]interface{}{"error": err.Error()})
	}
	if game.VideoPath == nil || *game.VideoPath == "" {
		return nil, newMCPError(ErrorCodeNoVideo, "game has no linked video", map[string]interface{}{"game_id": game.GameID})
	}

	offset := searcher.VideoOffset(play.Period, play.ClockSeconds, s.app.Config.PeriodLength)
	start, end := clips.WindowAround(float64(offset), before, after)
	clip := clips.Clip{
		Source: *game.VideoPath,
		Start:  start,
		End:    end,
		Name:   getStringDefault(args, "name", playID+".mp4"),
	}

	out, err := s.slicer.Slice(ctx, clip)
	if errors.Is(err, clips.ErrInvalidName) || errors.Is(err, clips.ErrInvalidDuration) {
		return nil, newMCPError(ErrorCodeInvalidParams, err.Error(), nil)
	}
	if err != nil {
		log.WithError(err).WithField("play_id", playID).Warn("clip slicing failed")
		return nil, newMCPError(ErrorCodeInternalError, "failed to slice clip", map[string]interface{}{"error": err.Error()})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"play_id": playID,
		"clip":    out,
		"offset":  offset,
		"start":   start,
		"end":     end,
	})), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.app.Store.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}
	vectors, err := s.app.Index.Count(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to count vectors", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"league": s.app.Config.League,
		"statistics": map[string]interface{}{
			"games":        status.Games,
			"linked_games": status.LinkedGames,
			"plays":        status.Plays,
			"play_videos":  status.PlayVideos,
			"seasons":      status.Seasons,
			"vectors":      vectors,
			"cache_size":   humanize.Bytes(uint64(status.SizeBytes)),
		},
		"health": map[string]interface{}{
			"schema_version":     status.SchemaVersion,
			"build_mode":         status.BuildMode,
			"embedding_provider": s.app.Embedder.Provider(),
			"credential":         s.app.Pipeline != nil,
			"sync_running":       s.app.Pipeline != nil && s.app.Pipeline.Running(),
		},
	}
	if run := status.LastRun; run != nil {
		response["last_run"] = map[string]interface{}{
			"run_id":         run.RunID,
			"season_id":      run.SeasonID,
			"inserted_games": run.InsertedGames,
			"inserted_plays": run.InsertedPlays,
			"finished_at":    run.FinishedAt.Format(time.RFC3339),
			"finished":       humanize.Time(run.FinishedAt),
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// arguments returns the tool arguments; tools without required parameters
// accept a missing argument object.
func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

// validateVideoPath checks that path is an absolute, readable regular file
func validateVideoPath(path string) error {
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if info.IsDir() {
		return ErrNotAFile
	}
	return nil
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a number parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	if val, ok := args[key].(int); ok {
		return float64(val)
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter, skipping non-strings
func getStringSlice(args map[string]interface{}, key string) []string {
	switch v := args[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Validation helpers

var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotAFile        = errors.New("path is a directory")
)
