package model

import "time"

// VenueType identifies the kind of venue a place resolved to.
type VenueType string

const (
	VenueTypeBrewery VenueType = "brewery"
	VenueTypeWinery  VenueType = "winery"
	VenueTypeNone    VenueType = ""
)

// Venue source tags.
const (
	VenueSourceOSM       = "osm"
	VenueSourceDirectory = "brewery_directory"
	VenueSourceManual    = "manual"
	VenueSourceImport    = "import"
)

// Venue is a persisted brewery/winery record, deduplicated across imports
// and users.
type Venue struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Street           string            `json:"street,omitempty"`
	City             string            `json:"city,omitempty"`
	State            string            `json:"state,omitempty"`
	PostalCode       string            `json:"postal_code,omitempty"`
	Country          string            `json:"country,omitempty"`
	Latitude         float64           `json:"latitude"`
	Longitude        float64           `json:"longitude"`
	Type             VenueType         `json:"type"`
	Source           string            `json:"source"`
	ExternalPlaceID  string            `json:"external_place_id,omitempty"`
	VerificationTier int               `json:"verification_tier"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// MatchType describes how the matcher resolved a place to a venue.
type MatchType string

const (
	MatchExternalID MatchType = "external_id"
	MatchProximity  MatchType = "proximity"
	MatchCreated    MatchType = "created"
)

// VenueMatch is the matcher's resolution of a classified place.
type VenueMatch struct {
	Venue      *Venue    `json:"venue"`
	MatchType  MatchType `json:"match_type"`
	Confidence float64   `json:"confidence"`
}
