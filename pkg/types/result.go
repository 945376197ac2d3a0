package types

// SearchResult joins a vector match with its game's relational attributes
// and a computed playback offset. It exists only for the duration of a query.
type SearchResult struct {
	// Identification
	PlayID string `json:"id"`
	GameID string `json:"game_id"`
	Rank   int    `json:"rank"` // Position in result set (1-based)

	// Game
	Matchup   string `json:"matchup"`
	HomeTeam  string `json:"home_team"`
	AwayTeam  string `json:"away_team"`
	Date      string `json:"date"`
	VideoPath string `json:"video,omitempty"`

	// Play
	Description string `json:"desc"`
	Tags        string `json:"tags"`
	Clock       string `json:"clock"`
	Period      int    `json:"period"`

	// Scoring
	Offset   int     `json:"offset"` // Seconds into the full-game recording
	Distance float64 `json:"score"`  // Vector distance, lower is closer
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.PlayID == "" {
		return ErrMissingPlayID
	}

	if sr.Rank < 1 {
		return ErrInvalidRank
	}

	if sr.Offset < 0 {
		return ErrNegativeOffset
	}

	return nil
}
