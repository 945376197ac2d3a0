package types

// CapabilityReport is a per-credential snapshot of which resources the
// remote API exposes. Built fresh per probe and never persisted.
type CapabilityReport struct {
	League            string            `json:"league"`
	Seasons           []Season          `json:"seasons"` // Most recent first, bounded
	TeamsBySeason     map[string][]Team `json:"teams_by_season"`
	SeasonsAccessible bool              `json:"seasons_accessible"`
	TeamsAccessible   map[string]bool   `json:"teams_accessible"`
	GamesAccessible   map[string]bool   `json:"games_accessible"`
	Warnings          []string          `json:"warnings"`
}

// NewCapabilityReport returns an empty report with all maps allocated.
func NewCapabilityReport(league string) *CapabilityReport {
	return &CapabilityReport{
		League:          league,
		Seasons:         []Season{},
		TeamsBySeason:   make(map[string][]Team),
		TeamsAccessible: make(map[string]bool),
		GamesAccessible: make(map[string]bool),
		Warnings:        []string{},
	}
}

// Warn appends a human-readable warning.
func (r *CapabilityReport) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
