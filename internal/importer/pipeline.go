// Package importer drives the Timeline import pipeline end to end:
// classification, escalating verification, venue matching, visit creation,
// and summary/history bookkeeping. Each place is processed independently;
// no single bad record aborts a run.
package importer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/brewtrail/brewtrail/internal/model"
)

// storeOutageThreshold is the number of consecutive store failures after
// which the remaining run is aborted as a critical pipeline failure.
const storeOutageThreshold = 5

// Classifier is the tier-1 keyword classifier.
type Classifier interface {
	Classify(name, address string) model.ClassificationResult
}

// Tier2Verifier is the brewery-directory proximity verifier.
type Tier2Verifier interface {
	Verify(ctx context.Context, name string, lat, lng float64) *model.VerificationResult
}

// Tier3Verifier is the web-search corroboration verifier.
type Tier3Verifier interface {
	Verify(ctx context.Context, name, address string) *model.VerificationResult
	VerifyAddress(ctx context.Context, address string) *model.VerificationResult
}

// PointVerifier is the map-data fallback used when both external tiers
// come back empty.
type PointVerifier interface {
	VerifyPoint(ctx context.Context, lat, lng float64) *model.VerificationResult
}

// VenueResolver matches a classified place to a venue, creating one when
// needed.
type VenueResolver interface {
	Resolve(ctx context.Context, place model.PlaceVisit, venueType model.VenueType, tier int) (*model.VenueMatch, error)
}

// VisitCreator detects duplicate visits and creates privacy-rounded
// records.
type VisitCreator interface {
	DetectDuplicate(ctx context.Context, userID, venueID string, arrival time.Time) bool
	CreateImported(ctx context.Context, userID, venueID string, arrival, departure time.Time) (*model.Visit, error)
}

// HistoryStore persists import-history records.
type HistoryStore interface {
	Create(ctx context.Context, rec *model.ImportHistoryRecord) error
}

// Pipeline is the import orchestrator.
type Pipeline struct {
	classifier Classifier
	tier2      Tier2Verifier
	tier3      Tier3Verifier
	pointVer   PointVerifier
	venues     VenueResolver
	visits     VisitCreator
	history    HistoryStore
}

// NewPipeline wires the orchestrator. tier2, tier3, pointVer, and history
// may be nil (the corresponding step is skipped), which keeps tests and
// degraded deployments simple.
func NewPipeline(
	classifier Classifier,
	tier2 Tier2Verifier,
	tier3 Tier3Verifier,
	pointVer PointVerifier,
	venues VenueResolver,
	visits VisitCreator,
	history HistoryStore,
) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		tier2:      tier2,
		tier3:      tier3,
		pointVer:   pointVer,
		venues:     venues,
		visits:     visits,
		history:    history,
	}
}

// placeOutcome is the per-place state machine result.
type placeOutcome struct {
	tier         int // 1, 2, 3, or 0 for unverified
	visitCreated bool
	newVenue     bool
	matchedVenue bool
	storeFailure bool
	importErr    *model.ImportError
}

// Run processes normalized places sequentially and assembles the import
// summary. It always returns a summary, never an error: partial success is
// the expected common case for real-world exports.
func (p *Pipeline) Run(ctx context.Context, userID string, places []model.PlaceVisit, fileName, jobID string) *model.ImportSummary {
	start := time.Now()
	log := zap.L().With(zap.String("user_id", userID), zap.Int("places", len(places)))
	log.Info("import started")

	summary := &model.ImportSummary{
		Success:     true,
		TotalPlaces: len(places),
		Errors:      []model.ImportError{},
	}

	consecutiveStoreFailures := 0
	for i, place := range places {
		outcome := p.processPlace(ctx, userID, place)

		switch outcome.tier {
		case 1:
			summary.TierStats.Tier1++
		case 2:
			summary.TierStats.Tier2++
		case 3:
			summary.TierStats.Tier3++
		default:
			summary.TierStats.Unverified++
		}

		if outcome.visitCreated {
			summary.VisitsCreated++
		} else {
			summary.VisitsSkipped++
		}
		if outcome.newVenue {
			summary.NewVenues++
		}
		if outcome.matchedVenue {
			summary.MatchedVenues++
		}
		if outcome.importErr != nil {
			summary.Errors = append(summary.Errors, *outcome.importErr)
		}

		if outcome.storeFailure {
			consecutiveStoreFailures++
			if consecutiveStoreFailures >= storeOutageThreshold {
				// Critical pipeline failure: abort the remainder. Already
				// created visits/venues stay — best effort, not
				// transactional.
				remaining := len(places) - i - 1
				summary.VisitsSkipped += remaining
				summary.TierStats.Unverified += remaining
				summary.Success = false
				summary.Errors = append(summary.Errors, model.ImportError{
					Timestamp: time.Now().UTC(),
					Message:   "import aborted: persistent store unavailable",
					Code:      model.ErrCodeVisitCreationFailed,
				})
				log.Error("import aborted after consecutive store failures",
					zap.Int("failures", consecutiveStoreFailures))
				break
			}
		} else {
			consecutiveStoreFailures = 0
		}
	}

	summary.ProcessingTimeMS = time.Since(start).Milliseconds()

	p.writeHistory(ctx, userID, fileName, jobID, summary)

	log.Info("import finished",
		zap.Int("visits_created", summary.VisitsCreated),
		zap.Int("visits_skipped", summary.VisitsSkipped),
		zap.Int("new_venues", summary.NewVenues),
		zap.Int("errors", len(summary.Errors)),
		zap.Int64("elapsed_ms", summary.ProcessingTimeMS),
	)
	return summary
}

// FailureSummary builds the top-level failure response for inputs that
// never reach per-place processing.
func FailureSummary(message string, code model.ErrorCode) *model.ImportSummary {
	return &model.ImportSummary{
		Success: false,
		Errors: []model.ImportError{{
			Timestamp: time.Now().UTC(),
			Message:   message,
			Code:      code,
		}},
	}
}

func (p *Pipeline) processPlace(ctx context.Context, userID string, place model.PlaceVisit) placeOutcome {
	if !place.HasValidCoordinates() {
		return placeOutcome{importErr: placeError(place, model.ErrCodeInvalidCoordinates,
			"coordinates outside valid range")}
	}

	venueType, tier, ok := p.resolveType(ctx, place)
	if !ok {
		return placeOutcome{importErr: placeError(place, model.ErrCodeVerificationFailed,
			"could not verify place as a brewery or winery")}
	}

	match, err := p.venues.Resolve(ctx, place, venueType, tier)
	if err != nil {
		zap.L().Warn("venue resolution failed",
			zap.String("place", place.Name), zap.Error(err))
		return placeOutcome{
			tier:         tier,
			storeFailure: true,
			importErr: placeError(place, model.ErrCodeVenueCreationFailed,
				"venue could not be created or matched"),
		}
	}

	outcome := placeOutcome{tier: tier}
	if match.MatchType == model.MatchCreated {
		outcome.newVenue = true
	} else {
		outcome.matchedVenue = true
	}

	if p.visits.DetectDuplicate(ctx, userID, match.Venue.ID, place.ArrivalTime) {
		outcome.importErr = placeError(place, model.ErrCodeDuplicateVisit,
			"visit already recorded in this time window")
		return outcome
	}

	if _, err := p.visits.CreateImported(ctx, userID, match.Venue.ID, place.ArrivalTime, place.DepartureTime); err != nil {
		zap.L().Warn("visit creation failed",
			zap.String("place", place.Name), zap.Error(err))
		outcome.storeFailure = true
		outcome.importErr = placeError(place, model.ErrCodeVisitCreationFailed,
			"visit could not be created")
		return outcome
	}

	outcome.visitCreated = true
	return outcome
}

// resolveType runs the classification cascade. A high-confidence tier-1
// verdict short-circuits. Otherwise tiers 2 and 3 are consulted in order,
// then the map-data fallback. When no external tier corroborates, a
// positive tier-1 verdict is still accepted at its lower confidence — the
// external tiers raise precision, they do not veto keyword evidence.
func (p *Pipeline) resolveType(ctx context.Context, place model.PlaceVisit) (model.VenueType, int, bool) {
	cls := p.classifier.Classify(place.Name, place.Address)
	if cls.HighConfidence() {
		return cls.VenueType, 1, true
	}

	if p.tier2 != nil {
		if res := p.tier2.Verify(ctx, place.Name, place.Latitude, place.Longitude); res != nil && res.Verified {
			return res.VenueType, 2, true
		}
	}

	if p.tier3 != nil {
		switch {
		case place.Name != "":
			if res := p.tier3.Verify(ctx, place.Name, place.Address); res != nil && res.Verified {
				return res.VenueType, 3, true
			}
		case place.Address != "":
			if res := p.tier3.VerifyAddress(ctx, place.Address); res != nil && res.Verified {
				return res.VenueType, 3, true
			}
		}
	}

	if p.pointVer != nil {
		if res := p.pointVer.VerifyPoint(ctx, place.Latitude, place.Longitude); res != nil && res.Verified {
			return res.VenueType, 3, true
		}
	}

	if cls.IsMatch {
		return cls.VenueType, 1, true
	}
	return model.VenueTypeNone, 0, false
}

func (p *Pipeline) writeHistory(ctx context.Context, userID, fileName, jobID string, summary *model.ImportSummary) {
	if p.history == nil {
		return
	}

	rec := &model.ImportHistoryRecord{
		UserID:           userID,
		Source:           "google_timeline",
		FileName:         fileName,
		JobID:            jobID,
		TotalPlaces:      summary.TotalPlaces,
		VisitsCreated:    summary.VisitsCreated,
		VisitsSkipped:    summary.VisitsSkipped,
		NewVenues:        summary.NewVenues,
		MatchedVenues:    summary.MatchedVenues,
		ProcessingTimeMS: summary.ProcessingTimeMS,
		Errors:           summary.Errors,
		TierStats:        summary.TierStats,
	}

	// History is bookkeeping: a write failure must not fail the import.
	if err := p.history.Create(ctx, rec); err != nil {
		zap.L().Error("import history write failed",
			zap.String("user_id", userID), zap.Error(err))
	}
}

func placeError(place model.PlaceVisit, code model.ErrorCode, message string) *model.ImportError {
	return &model.ImportError{
		PlaceName: place.Name,
		Address:   place.Address,
		Timestamp: time.Now().UTC(),
		Message:   message,
		Code:      code,
	}
}
