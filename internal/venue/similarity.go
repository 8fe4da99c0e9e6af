package venue

import "strings"

// SimilarityFunc scores how alike two venue names are, in [0,1]. Pluggable
// so matching precision can be tuned without touching the matcher.
type SimilarityFunc func(a, b string) float64

// TokenSetSimilarity computes Jaccard similarity on lowercased word sets,
// so word order and repetition don't matter: "Brewing Co Riverside" and
// "Riverside Brewing Co." score 1.0.
func TokenSetSimilarity(a, b string) float64 {
	wordsA := wordSet(strings.ToLower(a))
	wordsB := wordSet(strings.ToLower(b))

	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	intersection := 0
	for w := range wordsA {
		if wordsB[w] {
			intersection++
		}
	}

	union := len(wordsA)
	for w := range wordsB {
		if !wordsA[w] {
			union++
		}
	}

	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(s)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".,;:!?()[]{}\"'&")
		if w != "" {
			set[w] = true
		}
	}
	return set
}
