package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// discoverCapabilitiesTool returns the tool definition for discover_capabilities
func discoverCapabilitiesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "discover_capabilities",
		Description: "Probe which seasons, teams and game listings the configured API key can access",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"league": map[string]interface{}{
					"type":        "string",
					"description": "League code (defaults to the configured league)",
				},
				"max_seasons": map[string]interface{}{
					"type":        "integer",
					"description": "Most recent seasons to probe",
					"default":     6,
					"minimum":     1,
					"maximum":     20,
				},
				"probe_teams": map[string]interface{}{
					"type":        "boolean",
					"description": "List teams for each season",
					"default":     true,
				},
				"probe_games": map[string]interface{}{
					"type":        "boolean",
					"description": "Issue a minimal games listing for each season",
					"default":     true,
				},
			},
		},
	}
}

// syncSeasonTool returns the tool definition for sync_season
func syncSeasonTool() mcp.Tool {
	return mcp.Tool{
		Name:        "sync_season",
		Description: "Ingest a season's concluded games and, for games linked to video, their play-by-play",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"season_id": map[string]interface{}{
					"type":        "string",
					"description": "Season identifier from discover_capabilities",
				},
				"league": map[string]interface{}{
					"type":        "string",
					"description": "League code (defaults to the configured league)",
				},
				"team_ids": map[string]interface{}{
					"type":        "array",
					"description": "Restrict the schedule crawl to these teams",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"ingest_events": map[string]interface{}{
					"type":        "boolean",
					"description": "Fetch play-by-play for linked games",
					"default":     true,
				},
				"index_plays": map[string]interface{}{
					"type":        "boolean",
					"description": "Embed ingested plays for semantic search",
					"default":     true,
				},
				"include_unlinked": map[string]interface{}{
					"type":        "boolean",
					"description": "Fetch play-by-play for every cached game of the season, not only those with video",
					"default":     false,
				},
				"link_play_videos": map[string]interface{}{
					"type":        "boolean",
					"description": "Look up licensed video assets for the plays ingested by this run",
					"default":     false,
				},
			},
			Required: []string{"season_id"},
		},
	}
}

// searchPlaysTool returns the tool definition for search_plays
func searchPlaysTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_plays",
		Description: "Semantic play search with team, year and tag filters; results carry a video offset",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language description of the play",
				},
				"tags": map[string]interface{}{
					"type":        "array",
					"description": "Every tag must be present on a result (see list_tags)",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"teams": map[string]interface{}{
					"type":        "array",
					"description": "Home or away team names",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"year_from": map[string]interface{}{
					"type":        "integer",
					"description": "Earliest game year, inclusive",
				},
				"year_to": map[string]interface{}{
					"type":        "integer",
					"description": "Latest game year, inclusive",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Candidates pulled from the vector index (1-50)",
					"default":     50,
					"minimum":     1,
					"maximum":     50,
				},
			},
		},
	}
}

// listTagsTool returns the tool definition for list_tags
func listTagsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_tags",
		Description: "List every distinct play tag in the cache",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// linkVideoTool returns the tool definition for link_video
func linkVideoTool() mcp.Tool {
	return mcp.Tool{
		Name:        "link_video",
		Description: "Attach a full-game recording to a cached game; an empty path unlinks it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": map[string]interface{}{
					"type":        "string",
					"description": "Cached game identifier",
				},
				"video_path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the recording",
				},
			},
			Required: []string{"game_id", "video_path"},
		},
	}
}

// fetchPlayVideosTool returns the tool definition for fetch_play_videos
func fetchPlayVideosTool() mcp.Tool {
	return mcp.Tool{
		Name:        "fetch_play_videos",
		Description: "Look up licensed video assets for a cached game's plays and store them",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": map[string]interface{}{
					"type":        "string",
					"description": "Cached game identifier",
				},
				"league": map[string]interface{}{
					"type":        "string",
					"description": "League code (defaults to the configured league)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Check at most this many plays, in game order (0 checks all)",
					"default":     0,
					"minimum":     0,
				},
			},
			Required: []string{"game_id"},
		},
	}
}

// sliceClipTool returns the tool definition for slice_clip
func sliceClipTool() mcp.Tool {
	return mcp.Tool{
		Name:        "slice_clip",
		Description: "Cut a short clip around a play from its game's linked recording",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"play_id": map[string]interface{}{
					"type":        "string",
					"description": "Cached play identifier",
				},
				"before": map[string]interface{}{
					"type":        "number",
					"description": "Seconds before the play offset",
					"default":     5,
				},
				"after": map[string]interface{}{
					"type":        "number",
					"description": "Seconds after the play offset",
					"default":     10,
				},
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Output file name (defaults to <play_id>.mp4)",
				},
			},
			Required: []string{"play_id"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Cache and index statistics with the most recent sync run",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
