// Package model defines the domain types shared across the import pipeline.
package model

import "time"

// PlaceVisit is a normalized (location, time-span) unit extracted from a
// Timeline export, prior to venue resolution. Ephemeral: produced by the
// normalizer and consumed by the orchestrator, never persisted.
type PlaceVisit struct {
	ExternalPlaceID string    `json:"external_place_id,omitempty"`
	Name            string    `json:"name,omitempty"`
	Address         string    `json:"address,omitempty"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	ArrivalTime     time.Time `json:"arrival_time"`
	DepartureTime   time.Time `json:"departure_time"`
	Confidence      float64   `json:"confidence,omitempty"`
}

// HasValidCoordinates reports whether the coordinates fall inside the valid
// latitude/longitude ranges.
func (p PlaceVisit) HasValidCoordinates() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}
