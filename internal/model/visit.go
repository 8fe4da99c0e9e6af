package model

import "time"

// VisitSourceImport marks visits created by the Timeline importer.
const VisitSourceImport = "import"

// Visit is a user's recorded stay at a venue. Imported visits carry
// privacy-rounded timestamps and are never active.
type Visit struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	VenueID       string    `json:"venue_id"`
	ArrivalTime   time.Time `json:"arrival_time"`
	DepartureTime time.Time `json:"departure_time"`
	Active        bool      `json:"active"`
	Source        string    `json:"source"`
	ImportedAt    time.Time `json:"imported_at"`
}
