// Package types provides shared record definitions for the skout ingestion
// and search pipeline.
//
// These records are the strict shapes that flow past the envelope
// normalization boundary: nothing downstream of internal/envelope sees raw
// API payloads, only the types declared here.
//
// # Core Types
//
// Season and Team come out of capability discovery and are used only as keys
// into the schedule:
//
//	season := types.Season{ID: "6085b5d0", Name: "2023-2024", Year: &year}
//
// Game is the cached schedule row. Only games in a terminal status survive a
// crawl, and VideoPath is sticky across re-ingestion:
//
//	if types.IsTerminalStatus(status) {
//	    games = append(games, game)
//	}
//
// Play is a single play-by-play event belonging to exactly one game:
//
//	play := types.Play{
//	    PlayID:       "evt-1",
//	    GameID:       "g-1",
//	    Period:       2,
//	    ClockSeconds: 300,
//	    Description:  "Made 3pt jumper (PnR)",
//	    Tags:         "Pick and Roll, Made Shot",
//	}
//
// # Per-request Records
//
// CapabilityReport and SearchResult are built fresh for every probe or query
// and never mutated after construction.
package types
