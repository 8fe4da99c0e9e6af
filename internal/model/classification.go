package model

import "time"

// HighConfidenceThreshold is the tier-1 confidence at or above which no
// external verification is attempted.
const HighConfidenceThreshold = 0.7

// ClassificationResult is the tier-1 keyword classifier verdict for a place.
// Produced fresh per place; not persisted.
type ClassificationResult struct {
	IsMatch         bool      `json:"is_match"`
	VenueType       VenueType `json:"venue_type"`
	Confidence      float64   `json:"confidence"`
	MatchedKeywords []string  `json:"matched_keywords,omitempty"`
}

// HighConfidence reports whether the verdict is strong enough to skip
// external verification.
func (c ClassificationResult) HighConfidence() bool {
	return c.IsMatch && c.Confidence >= HighConfidenceThreshold
}

// VerificationResult is a cached external-verification outcome.
type VerificationResult struct {
	Tier       int       `json:"tier"`
	VenueType  VenueType `json:"venue_type"`
	Verified   bool      `json:"verified"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	CachedAt   time.Time `json:"cached_at"`
}
