package types

import "strings"

// UnknownPlay is the description stored when an event has none.
const UnknownPlay = "Unknown Play"

// TagSeparator joins tags in the plays.tags column and in vector metadata.
const TagSeparator = ", "

// Play is one play-by-play event. A play always belongs to exactly one game.
type Play struct {
	PlayID       string `json:"play_id"`
	GameID       string `json:"game_id"`
	Period       int    `json:"period"`
	ClockSeconds int    `json:"clock_seconds"` // Remaining clock, never negative
	ClockDisplay string `json:"clock_display"` // Raw textual clock as received
	Description  string `json:"description"`
	TeamID       string `json:"team_id,omitempty"`
	XLoc         *int   `json:"x_loc,omitempty"`
	YLoc         *int   `json:"y_loc,omitempty"`
	Tags         string `json:"tags"`
}

// TagList splits the stored tag string on commas, trimming whitespace and
// dropping empty entries.
func (p *Play) TagList() []string {
	return SplitTags(p.Tags)
}

// SplitTags splits a comma-joined tag string.
func SplitTags(tags string) []string {
	if tags == "" {
		return nil
	}
	parts := strings.Split(tags, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// JoinTags joins tags for storage, dropping blanks and duplicates while
// keeping first-seen order.
func JoinTags(tags []string) string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return strings.Join(out, TagSeparator)
}

// EmbeddingText is the text indexed for semantic search.
func (p *Play) EmbeddingText() string {
	if p.Tags == "" {
		return p.Description
	}
	return p.Description + " | " + p.Tags
}

// Validate checks the invariants required to persist a play.
func (p *Play) Validate() error {
	if p.PlayID == "" {
		return ErrMissingPlayID
	}
	if p.GameID == "" {
		return ErrMissingGameID
	}
	if p.ClockSeconds < 0 {
		return ErrNegativeClock
	}
	return nil
}
