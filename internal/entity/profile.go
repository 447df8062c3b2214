package entity

import "time"

// Profile is a user's row in profiles.
type Profile struct {
	UserID               string         `json:"user_id"`
	LoginStreak          int            `json:"login_streak"`
	LastLogin            *time.Time     `json:"last_login,omitempty"`
	ActivityLog          map[string]int `json:"activity_log"`
	CareerRoadmap        map[string]any `json:"career_roadmap,omitempty"`
	CareerReadinessScore *int           `json:"career_readiness_score,omitempty"`
	CategoryScores       map[string]any `json:"category_scores,omitempty"`
	CareerSuggestion     string         `json:"career_suggestion,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}
