// Package mcp implements the Model Context Protocol (MCP) server for skout.
//
// The server exposes eight tools to MCP clients:
//   - discover_capabilities: Probe which seasons, teams and games the key can read
//   - sync_season: Crawl a season's schedule and play-by-play into the cache
//   - search_plays: Hybrid semantic and relational search over cached plays
//   - list_tags: List the distinct play tags in the cache
//   - link_video: Attach a local recording to a cached game
//   - fetch_play_videos: Store the licensed video assets of a game's plays
//   - slice_clip: Cut the clip around one play out of its game's recording
//   - get_status: Cache statistics, the last run and component health
//
// # Protocol Overview
//
// MCP is JSON-RPC 2.0 over stdio. stdout carries protocol messages only;
// logs go to stderr.
//
//	skout serve
//
// # Tool: search_plays
//
//	Request:
//	{
//	  "name": "search_plays",
//	  "arguments": {
//	    "query": "corner three",
//	    "tags": ["Transition"],
//	    "teams": ["Duke"],
//	    "year_from": 2023,
//	    "limit": 10
//	  }
//	}
//
//	Response:
//	{
//	  "results": [
//	    {
//	      "id": "p1",
//	      "matchup": "Duke vs UNC",
//	      "desc": "3PT Jump Shot (Trans)",
//	      "tags": "Transition",
//	      "period": 1,
//	      "clock": "700",
//	      "offset": 500,
//	      "video": "/videos/duke-unc.mp4",
//	      "score": 0.18
//	    }
//	  ],
//	  "count": 1
//	}
//
// Results are ordered by vector distance. offset is the position of the play
// in the linked recording, in seconds.
//
// # Tool: slice_clip
//
// Cuts [offset-before, offset+after] from the game's recording with ffmpeg
// and returns the written path. before and after default to 5 and 10.
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "skout": {
//	      "command": "/usr/local/bin/skout",
//	      "args": ["serve"],
//	      "env": {
//	        "SYNERGY_API_KEY": "your-api-key"
//	      }
//	    }
//	  }
//	}
//
// Without SYNERGY_API_KEY the cache tools still work; sync_season and
// fetch_play_videos fail with -32003 and discover_capabilities returns a
// report carrying a warning.
//
// # Error Handling
//
// Errors are returned as JSON-RPC errors with structured data:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "invalid video_path",
//	    "data": {"param": "video_path", "reason": "path must be absolute"}
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params
//   - -32603: Internal error
//   - -32001: Game or play not cached
//   - -32002: Sync already running
//   - -32003: No API key configured
//   - -32004: Game has no linked video
package mcp
