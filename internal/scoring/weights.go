package scoring

import (
	"fmt"
	"math"
)

// Breakdown holds the seven feature sub-scores, each in [0,1].
type Breakdown struct {
	Credential float64 `json:"credential"`
	Skills     float64 `json:"skills"`
	Distance   float64 `json:"distance"`
	Rating     float64 `json:"rating"`
	Experience float64 `json:"experience"`
	Price      float64 `json:"price"`
	Trust      float64 `json:"trust"`
}

// Weights are the positive feature weights of the total score.
type Weights Breakdown

// DefaultWeights sum to 1.0.
var DefaultWeights = Weights{
	Credential: 0.30,
	Skills:     0.25,
	Distance:   0.15,
	Rating:     0.12,
	Experience: 0.08,
	Price:      0.08,
	Trust:      0.02,
}

const weightTolerance = 1e-9

// Sum returns the sum of all weights.
func (w Weights) Sum() float64 {
	return w.Credential + w.Skills + w.Distance + w.Rating + w.Experience + w.Price + w.Trust
}

// Validate checks that every weight is positive and the weights sum to 1.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"credential": w.Credential,
		"skills":     w.Skills,
		"distance":   w.Distance,
		"rating":     w.Rating,
		"experience": w.Experience,
		"price":      w.Price,
		"trust":      w.Trust,
	} {
		if !(v > 0) {
			return fmt.Errorf("weight %s must be positive, got %v", name, v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("weights must sum to 1, got %v", sum)
	}
	return nil
}

// Total is the weighted sum of the breakdown.
func (w Weights) Total(b Breakdown) float64 {
	return w.Credential*b.Credential +
		w.Skills*b.Skills +
		w.Distance*b.Distance +
		w.Rating*b.Rating +
		w.Experience*b.Experience +
		w.Price*b.Price +
		w.Trust*b.Trust
}
