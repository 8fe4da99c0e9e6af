package verify

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/brewtrail/brewtrail/internal/model"
	"github.com/brewtrail/brewtrail/internal/resilience"
	"github.com/brewtrail/brewtrail/internal/vcache"
	"github.com/brewtrail/brewtrail/pkg/websearch"
)

const (
	// tier3MaxConfidence caps tier-3 confidence below tier 2's maximum,
	// reflecting the lower reliability of search corroboration.
	tier3MaxConfidence = 0.9

	tier3BlockThreshold = 3
)

// breweryTerms and wineryTerms are the keyword families counted in search
// result text.
var (
	breweryTerms = []string{"brewery", "brewing", "brewpub", "taproom", "craft beer", "microbrewery"}
	wineryTerms  = []string{"winery", "vineyard", "wine tasting", "tasting room", "vintner", "wine cellar"}
)

// Tier3Verifier corroborates places via a web-search surface.
type Tier3Verifier struct {
	search  websearch.Client
	cache   *vcache.Cache
	tracker *resilience.FailureTracker
}

// NewTier3Verifier creates the tier-3 verifier. Three consecutive HTTP
// failures flag the search surface as blocked; the tier then returns
// unverified and the pipeline continues.
func NewTier3Verifier(search websearch.Client, cache *vcache.Cache) *Tier3Verifier {
	return &Tier3Verifier{
		search:  search,
		cache:   cache,
		tracker: resilience.NewFailureTracker("web_search", tier3BlockThreshold),
	}
}

// Tracker exposes the blocking counters for status reporting.
func (v *Tier3Verifier) Tracker() *resilience.FailureTracker {
	return v.tracker
}

// Verify searches for the place by name (plus address when available) and
// counts brewery/winery keyword occurrences in the result text. Verified
// results are cached for 60 days; unverified results are not cached so
// later retries can succeed.
func (v *Tier3Verifier) Verify(ctx context.Context, name, address string) *model.VerificationResult {
	key := vcache.NameKey(name)
	if cached := v.cache.GetVerification(ctx, vcache.KindTier3Name, key); cached != nil {
		return cached
	}

	query := name
	if address != "" {
		query += " " + address
	}
	query += " brewery winery"

	text, err := v.search.Search(ctx, query)
	if err != nil {
		v.tracker.RecordFailure()
		zap.L().Warn("tier3 search failed", zap.String("name", name), zap.Error(err))
		return nil
	}
	v.tracker.RecordSuccess()

	result := scoreText(text)
	if result == nil {
		return nil
	}

	v.cache.SetVerification(ctx, vcache.KindTier3Name, key, result, vcache.Tier3NameTTL)
	return result
}

// VerifyAddress is the address-only mode used when no usable name exists.
// The query deliberately omits venue keywords to avoid biasing results
// toward nearby unrelated venues. Both outcomes are cached for 7 days.
func (v *Tier3Verifier) VerifyAddress(ctx context.Context, address string) *model.VerificationResult {
	key := vcache.AddressKey(address)
	if cached := v.cache.GetVerification(ctx, vcache.KindTier3Addr, key); cached != nil {
		if !cached.Verified {
			return nil
		}
		return cached
	}

	text, err := v.search.Search(ctx, address)
	if err != nil {
		v.tracker.RecordFailure()
		zap.L().Warn("tier3 address search failed", zap.Error(err))
		return nil
	}
	v.tracker.RecordSuccess()

	result := scoreText(text)
	if result == nil {
		// Negative address lookups are cached too: the same address will
		// not become a brewery within the week.
		negative := &model.VerificationResult{Tier: 3, Source: "web_search"}
		v.cache.SetVerification(ctx, vcache.KindTier3Addr, key, negative, vcache.Tier3AddrTTL)
		return nil
	}

	v.cache.SetVerification(ctx, vcache.KindTier3Addr, key, result, vcache.Tier3AddrTTL)
	return result
}

// scoreText counts keyword-family hits in the result text. Venue type is
// the family with more hits; confidence is min(hits/5, 0.9).
func scoreText(text string) *model.VerificationResult {
	lower := strings.ToLower(text)

	breweryHits := countOccurrences(lower, breweryTerms)
	wineryHits := countOccurrences(lower, wineryTerms)

	hits := breweryHits
	venueType := model.VenueTypeBrewery
	if wineryHits > breweryHits {
		hits = wineryHits
		venueType = model.VenueTypeWinery
	}
	if hits == 0 {
		return nil
	}

	confidence := float64(hits) / 5
	if confidence > tier3MaxConfidence {
		confidence = tier3MaxConfidence
	}

	return &model.VerificationResult{
		Tier:       3,
		VenueType:  venueType,
		Verified:   true,
		Confidence: confidence,
		Source:     "web_search",
	}
}

func countOccurrences(text string, terms []string) int {
	total := 0
	for _, term := range terms {
		total += strings.Count(text, term)
	}
	return total
}
