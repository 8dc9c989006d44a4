package models

import "time"

// Priority is the urgency of a recommendation.
// Lower-case on the wire, unlike MfaPolicy.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ValidPriorities defines allowed recommendation priorities
var ValidPriorities = map[Priority]bool{
	PriorityLow:    true,
	PriorityMedium: true,
	PriorityHigh:   true,
}

// Recommendation is the structured result of a recommendation request
type Recommendation struct {
	Recommendation  string   `json:"recommendation"`
	Rationale       string   `json:"rationale"`
	Priority        Priority `json:"priority"`
	AffectedUserIDs []string `json:"affectedUserIds,omitempty"`
}

// RecommendationState is what the recommendation panel currently shows
type RecommendationState struct {
	Loading        bool            `json:"loading"`
	Recommendation *Recommendation `json:"recommendation,omitempty"`
	AffectedUsers  []User          `json:"affectedUsers,omitempty"`
	Error          string          `json:"error,omitempty"`
	Generation     uint64          `json:"generation"`
	UpdatedAt      *time.Time      `json:"updatedAt,omitempty"`
}
