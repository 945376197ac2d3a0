package types

// PlayVideo is a licensed video asset for one play. StartTime and EndTime
// are kept as the API renders them.
type PlayVideo struct {
	VideoID   string `json:"video_id"`
	PlayID    string `json:"play_id"`
	GameID    string `json:"game_id"`
	URL       string `json:"url,omitempty"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	Angle     string `json:"angle,omitempty"`
	Quality   string `json:"quality,omitempty"`
}

// Validate checks the identifiers required to persist a video asset.
func (v *PlayVideo) Validate() error {
	if v.VideoID == "" {
		return ErrMissingVideoID
	}
	if v.PlayID == "" {
		return ErrMissingPlayID
	}
	if v.GameID == "" {
		return ErrMissingGameID
	}
	return nil
}
