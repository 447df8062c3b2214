package entity

import "time"

// PersonalityProfile is the latest psychometric analysis of a user.
type PersonalityProfile struct {
	UserID     string         `json:"user_id"`
	Traits     map[string]any `json:"traits"`
	Summary    string         `json:"summary"`
	TopCareers []any          `json:"top_careers"`
	Raw        map[string]any `json:"raw,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
