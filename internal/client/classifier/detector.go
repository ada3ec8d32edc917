package classifier

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/dmitrijs2005/foodie/internal/client/models"
)

// Detector extracts an allergen signal from a label. image may be nil when
// the caller only probes.
type Detector interface {
	Detect(ctx context.Context, image []byte) (Signal, error)
}

// SimulatedDetector stands in for real label analysis. It waits Latency and
// then reports the same fixed tokens for every label.
type SimulatedDetector struct {
	Tokens  []models.Token
	Latency time.Duration
}

// NewSimulatedDetector reports every tiered allergen of c.
func NewSimulatedDetector(c *TriageClassifier, latency time.Duration) *SimulatedDetector {
	return &SimulatedDetector{Tokens: c.TieredTokens(), Latency: latency}
}

func (d *SimulatedDetector) Detect(ctx context.Context, image []byte) (Signal, error) {
	if d.Latency > 0 {
		t := time.NewTimer(d.Latency)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return Signal{}, ctx.Err()
		}
	}
	return Signal{Tokens: append([]models.Token(nil), d.Tokens...), Source: "simulated"}, nil
}

// IngredientTextDetector reads a printed ingredient list, typically obtained
// from OCR, and reports the known allergens it mentions. The image is ignored.
type IngredientTextDetector struct {
	Text string
}

func (d *IngredientTextDetector) Detect(ctx context.Context, _ []byte) (Signal, error) {
	if err := ctx.Err(); err != nil {
		return Signal{}, err
	}
	return Signal{Tokens: ExtractTokens(d.Text), Source: "ingredients"}, nil
}

// ExtractTokens finds known allergens in an ingredient list. Every word and
// every pair of adjacent words is tried, so "tree nuts" and "soy lecithin"
// both match.
func ExtractTokens(text string) []models.Token {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '-'
	})

	var found []models.Token
	for i, w := range words {
		if t := Normalize(w); IsKnown(t) {
			found = append(found, t)
		}
		if i+1 < len(words) {
			if t := Normalize(w + " " + words[i+1]); IsKnown(t) {
				found = append(found, t)
			}
		}
	}
	return models.SortedTokens(found)
}
