package models

// Tone selects the register of a drafted invitation.
type Tone string

const (
	ToneFriendly Tone = "friendly"
	ToneFormal   Tone = "formal"
)

// PreferredTime is the optional timing hint parsed from a meeting request.
type PreferredTime struct {
	Date       string `json:"date,omitempty"`       // YYYY-MM-DD
	Time       string `json:"time,omitempty"`       // HH:MM
	TimeWindow string `json:"timeWindow,omitempty"` // morning, afternoon, evening or any
}

// IsZero reports whether the hint carries no information.
func (p *PreferredTime) IsZero() bool {
	return p == nil || (p.Date == "" && p.Time == "" && (p.TimeWindow == "" || p.TimeWindow == "any"))
}

// MeetingDetails is a structured meeting request.
type MeetingDetails struct {
	Title         string         `json:"title"`
	Duration      int            `json:"duration"` // minutes
	PreferredTime *PreferredTime `json:"preferredTime,omitempty"`
	Description   string         `json:"description,omitempty"`
}

// TimeWindow returns the requested daypart, "any" when none was given.
func (d *MeetingDetails) TimeWindow() string {
	if d.PreferredTime == nil || d.PreferredTime.TimeWindow == "" {
		return "any"
	}
	return d.PreferredTime.TimeWindow
}
