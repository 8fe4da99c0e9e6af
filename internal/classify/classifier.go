// Package classify implements tier-1 venue classification: instant
// keyword/heuristic matching against brewery, winery, and exclusion keyword
// sets, producing a confidence-scored verdict with no I/O.
package classify

import (
	_ "embed"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/brewtrail/brewtrail/internal/model"
)

//go:embed keywords.yaml
var keywordsYAML []byte

// KeywordSets holds the three keyword families used for classification.
type KeywordSets struct {
	Brewery   []string `yaml:"brewery"`
	Winery    []string `yaml:"winery"`
	Exclusion []string `yaml:"exclusion"`
}

// Classifier performs tier-1 keyword classification.
type Classifier struct {
	brewery   []*regexp.Regexp
	winery    []*regexp.Regexp
	exclusion []*regexp.Regexp

	breweryWords   []string
	wineryWords    []string
	exclusionWords []string
}

// New creates a Classifier from the embedded keyword configuration.
func New() (*Classifier, error) {
	var sets KeywordSets
	if err := yaml.Unmarshal(keywordsYAML, &sets); err != nil {
		return nil, eris.Wrap(err, "classify: parse keyword config")
	}
	return NewWithSets(sets)
}

// NewWithSets creates a Classifier from explicit keyword sets.
func NewWithSets(sets KeywordSets) (*Classifier, error) {
	c := &Classifier{
		breweryWords:   sets.Brewery,
		wineryWords:    sets.Winery,
		exclusionWords: sets.Exclusion,
	}

	var err error
	if c.brewery, err = compileAll(sets.Brewery); err != nil {
		return nil, err
	}
	if c.winery, err = compileAll(sets.Winery); err != nil {
		return nil, err
	}
	if c.exclusion, err = compileAll(sets.Exclusion); err != nil {
		return nil, err
	}
	return c, nil
}

func compileAll(words []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(strings.TrimSpace(w)) + `\b`)
		if err != nil {
			return nil, eris.Wrapf(err, "classify: compile keyword %q", w)
		}
		res = append(res, re)
	}
	return res, nil
}

// Classify evaluates a place's name and address. Exclusion keywords force a
// negative verdict regardless of other matches; otherwise the venue type is
// the keyword family with more hits, ties favoring brewery.
func (c *Classifier) Classify(name, address string) model.ClassificationResult {
	text := strings.TrimSpace(name + " " + address)
	if text == "" {
		return model.ClassificationResult{}
	}

	if hits := matchAll(c.exclusion, c.exclusionWords, text); len(hits) > 0 {
		return model.ClassificationResult{
			IsMatch:         false,
			VenueType:       model.VenueTypeNone,
			Confidence:      0,
			MatchedKeywords: hits,
		}
	}

	breweryHits := matchAll(c.brewery, c.breweryWords, text)
	wineryHits := matchAll(c.winery, c.wineryWords, text)

	if len(breweryHits) == 0 && len(wineryHits) == 0 {
		return model.ClassificationResult{}
	}

	venueType := model.VenueTypeBrewery
	hits := breweryHits
	if len(wineryHits) > len(breweryHits) {
		venueType = model.VenueTypeWinery
		hits = wineryHits
	}

	return model.ClassificationResult{
		IsMatch:         true,
		VenueType:       venueType,
		Confidence:      confidenceFor(len(hits)),
		MatchedKeywords: hits,
	}
}

// confidenceFor maps a match count to confidence: 1 match is weak evidence,
// 3+ is strong, with a small bonus per extra match.
func confidenceFor(matches int) float64 {
	switch {
	case matches <= 0:
		return 0
	case matches == 1:
		return 0.4
	case matches == 2:
		return 0.65
	default:
		conf := 0.8 + 0.05*float64(matches-3)
		if conf > 1.0 {
			conf = 1.0
		}
		return conf
	}
}

func matchAll(patterns []*regexp.Regexp, words []string, text string) []string {
	var hits []string
	for i, re := range patterns {
		if re.MatchString(text) {
			hits = append(hits, words[i])
		}
	}
	return hits
}
