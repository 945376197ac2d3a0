package searcher

import (
	"strings"

	"github.com/dshills/skout-mcp/pkg/types"
)

// NormalizeName lowercases a team name and strips everything that is not
// an ASCII letter or digit, so "St. John's" matches "st johns".
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MatchesAllTags reports whether the comma-joined stored tags contain every
// wanted tag. An empty wanted list always matches.
func MatchesAllTags(stored string, wanted []string) bool {
	if len(wanted) == 0 {
		return true
	}
	have := make(map[string]struct{})
	for _, t := range types.SplitTags(stored) {
		have[t] = struct{}{}
	}
	for _, w := range wanted {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if _, ok := have[w]; !ok {
			return false
		}
	}
	return true
}

// teamSet holds normalised team names. An empty set matches every game. A
// name that normalises to nothing stays in the set as "" and matches no team,
// so a filter of only punctuation excludes everything.
type teamSet map[string]struct{}

func newTeamSet(teams []string) teamSet {
	set := make(teamSet, len(teams))
	for _, t := range teams {
		set[NormalizeName(t)] = struct{}{}
	}
	return set
}

func (s teamSet) matches(g *types.Game) bool {
	if len(s) == 0 {
		return true
	}
	return s.has(g.HomeTeam) || s.has(g.AwayTeam)
}

func (s teamSet) has(team string) bool {
	n := NormalizeName(team)
	if n == "" {
		return false
	}
	_, ok := s[n]
	return ok
}

// inYearRange applies inclusive bounds; a zero bound is open.
func inYearRange(year, from, to int) bool {
	if from > 0 && year < from {
		return false
	}
	if to > 0 && year > to {
		return false
	}
	return true
}
