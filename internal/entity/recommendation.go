package entity

import "time"

// Recommendation is one cached generation in user_recommendations. QueryType
// holds the cache signature.
type Recommendation struct {
	ID         int64          `json:"id"`
	UserID     string         `json:"user_id"`
	QueryType  string         `json:"query_type"`
	ResultData map[string]any `json:"result_data"`
	CreatedAt  time.Time      `json:"created_at"`
}
