package types

import (
	"strconv"
	"strings"
)

// Terminal game statuses. Only games in one of these states are cached.
const (
	StatusGameOver = "GameOver"
	StatusFinal    = "Final"
	StatusClosed   = "Closed"
)

// UnknownConference replaces absent or placeholder conference labels.
const UnknownConference = "Unknown conference"

// UnknownTeam is stored when a game payload carries no team name.
const UnknownTeam = "Unknown"

var terminalStatuses = map[string]struct{}{
	StatusGameOver: {},
	StatusFinal:    {},
	StatusClosed:   {},
}

// IsTerminalStatus reports whether a game status marks a concluded game.
func IsTerminalStatus(status string) bool {
	_, ok := terminalStatuses[status]
	return ok
}

// Season is a bounded competition period. Year is nil when the API omits it.
type Season struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Year *int   `json:"year,omitempty"`
}

// Label returns the year when known, else the display name.
func (s Season) Label() string {
	if s.Year != nil && *s.Year != 0 {
		return strconv.Itoa(*s.Year)
	}
	return s.Name
}

// Team is a participant in a season.
type Team struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Conference string `json:"conference"`
}

// NormalizeConference maps empty or placeholder conference values to
// UnknownConference.
func NormalizeConference(raw string) string {
	trimmed := strings.TrimSpace(raw)
	switch strings.ToLower(trimmed) {
	case "", "tbd", "unknown", "none", "null":
		return UnknownConference
	}
	return trimmed
}

// Game is a cached schedule entry keyed by GameID.
type Game struct {
	GameID    string  `json:"game_id"`
	SeasonID  string  `json:"season_id"`
	Date      string  `json:"date"`
	HomeTeam  string  `json:"home_team"`
	AwayTeam  string  `json:"away_team"`
	HomeScore int     `json:"home_score"`
	AwayScore int     `json:"away_score"`
	Status    string  `json:"status"`
	VideoPath *string `json:"video_path,omitempty"` // Sticky: nil never clears a stored value
}

// Matchup returns "home vs away".
func (g *Game) Matchup() string {
	return g.HomeTeam + " vs " + g.AwayTeam
}

// Year parses the first four characters of Date. Returns 0 when the date is
// missing or not numeric.
func (g *Game) Year() int {
	return YearFromDate(g.Date)
}

// YearFromDate parses a leading four-digit year from a date string.
func YearFromDate(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

// Validate checks the invariants required to persist a game.
func (g *Game) Validate() error {
	if g.GameID == "" {
		return ErrMissingGameID
	}
	if !IsTerminalStatus(g.Status) {
		return ErrNonTerminalGame
	}
	return nil
}
