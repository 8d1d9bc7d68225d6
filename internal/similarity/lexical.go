package similarity

import (
	"math"

	"github.com/spigell/care-matcher/internal/textnorm"
)

// Jaccard returns the Jaccard index of the normalized word sets of a and b,
// or 0 when either set is empty.
func Jaccard(a, b string) float64 {
	wa, wb := textnorm.Words(a), textnorm.Words(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}

	inter := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			inter++
		}
	}
	union := len(wa) + len(wb) - inter
	return float64(inter) / float64(union)
}

// Cosine returns the cosine similarity of two vectors clamped to [0,1].
// Mismatched or zero vectors yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Max(0, math.Min(1, sim))
}
