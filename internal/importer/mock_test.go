package importer

import (
	"context"
	"time"

	"github.com/brewtrail/brewtrail/internal/model"
)

// mockTier2 implements Tier2Verifier for testing.
type mockTier2 struct {
	result *model.VerificationResult
	calls  int
}

func (m *mockTier2) Verify(_ context.Context, _ string, _, _ float64) *model.VerificationResult {
	m.calls++
	return m.result
}

// mockTier3 implements Tier3Verifier for testing.
type mockTier3 struct {
	nameResult *model.VerificationResult
	addrResult *model.VerificationResult
	nameCalls  int
	addrCalls  int
}

func (m *mockTier3) Verify(_ context.Context, _, _ string) *model.VerificationResult {
	m.nameCalls++
	return m.nameResult
}

func (m *mockTier3) VerifyAddress(_ context.Context, _ string) *model.VerificationResult {
	m.addrCalls++
	return m.addrResult
}

// mockPointVerifier implements PointVerifier for testing.
type mockPointVerifier struct {
	result *model.VerificationResult
	calls  int
}

func (m *mockPointVerifier) VerifyPoint(_ context.Context, _, _ float64) *model.VerificationResult {
	m.calls++
	return m.result
}

// mockResolver implements VenueResolver for testing.
type mockResolver struct {
	existing map[string]*model.Venue // by place name
	err      error
	created  int
	matched  int
	tiers    []int
}

func (m *mockResolver) Resolve(_ context.Context, place model.PlaceVisit, venueType model.VenueType, tier int) (*model.VenueMatch, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.tiers = append(m.tiers, tier)

	if v, ok := m.existing[place.Name]; ok {
		m.matched++
		return &model.VenueMatch{Venue: v, MatchType: model.MatchProximity, Confidence: 0.9}, nil
	}

	m.created++
	return &model.VenueMatch{
		Venue:      &model.Venue{ID: "venue-" + place.Name, Name: place.Name, Type: venueType},
		MatchType:  model.MatchCreated,
		Confidence: 1.0,
	}, nil
}

// mockVisits implements VisitCreator for testing.
type mockVisits struct {
	duplicates map[string]bool // by venue id
	createErr  error
	created    []*model.Visit
}

func (m *mockVisits) DetectDuplicate(_ context.Context, _, venueID string, _ time.Time) bool {
	return m.duplicates[venueID]
}

func (m *mockVisits) CreateImported(_ context.Context, userID, venueID string, arrival, departure time.Time) (*model.Visit, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	v := &model.Visit{UserID: userID, VenueID: venueID, ArrivalTime: arrival, DepartureTime: departure}
	m.created = append(m.created, v)
	return v, nil
}

// mockHistory implements HistoryStore for testing.
type mockHistory struct {
	records []*model.ImportHistoryRecord
	err     error
}

func (m *mockHistory) Create(_ context.Context, rec *model.ImportHistoryRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}
