package venue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenSetSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{"identical", "Riverside Brewing Co", "Riverside Brewing Co", 1.0},
		{"punctuation and case ignored", "riverside brewing co.", "Riverside Brewing Co", 1.0},
		{"word order ignored", "Brewing Co Riverside", "Riverside Brewing Co", 1.0},
		{"partial overlap", "Riverside Brewing", "Riverside Winery", 1.0 / 3.0},
		{"no overlap", "Riverside Brewing", "Hilltop Vineyards", 0},
		{"empty side", "", "Riverside Brewing", 0},
		{"both empty", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TokenSetSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}
