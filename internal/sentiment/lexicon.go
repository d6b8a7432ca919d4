// Package sentiment scores utterances on a [-1, 1] polarity scale.
package sentiment

import (
	"math"
	"strings"
	"sync"

	"github.com/jonreiter/govader"
)

// Scorer produces an immediate polarity score for a piece of text.
type Scorer interface {
	Score(text string) *float64
}

var analyzer = sync.OnceValue(govader.NewSentimentIntensityAnalyzer)

// Lexicon is the VADER rule-based scorer. The zero value is ready to use.
type Lexicon struct{}

// Score implements Scorer.
func (Lexicon) Score(text string) *float64 {
	return Score(text)
}

// Score returns the VADER compound score of text rounded to 4 decimals,
// or nil when text is blank.
func Score(text string) *float64 {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	compound := Round4(analyzer().PolarityScores(text).Compound)
	return &compound
}

// Round4 rounds half away from zero to 4 decimal places.
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
