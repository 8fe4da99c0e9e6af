package vcache

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Cache kinds namespace the key space per verification source.
type Kind string

const (
	KindTier2      Kind = "tier2"
	KindTier3Name  Kind = "tier3_name"
	KindTier3Addr  Kind = "tier3_addr"
	KindAreaSearch Kind = "area_search"
)

// stripMarks removes diacritical marks after NFD decomposition so
// "Bière Café" and "Biere Cafe" normalize to the same key.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeText lowercases, strips punctuation and diacritics, and collapses
// whitespace. Used for every text component of a cache key.
func NormalizeText(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
		// Punctuation dropped.
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// RoundCoord rounds a coordinate to 4 decimal places (~11 m precision) so
// nearby lookups share cache entries.
func RoundCoord(v float64) float64 {
	return float64(int64(v*10000+sign(v)*0.5)) / 10000
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// NameLocationKey builds the tier-2 key: normalized name + rounded coords.
func NameLocationKey(name string, lat, lng float64) string {
	return fmt.Sprintf("%s|%.4f,%.4f", NormalizeText(name), RoundCoord(lat), RoundCoord(lng))
}

// NameKey builds the tier-3 name-mode key.
func NameKey(name string) string {
	return NormalizeText(name)
}

// AddressKey builds the tier-3 address-only key.
func AddressKey(address string) string {
	return NormalizeText(address)
}

// AreaKey builds the discovery area-search marker key.
func AreaKey(lat, lng, radiusKM float64) string {
	return fmt.Sprintf("%.4f,%.4f|r%.1f", RoundCoord(lat), RoundCoord(lng), radiusKM)
}
