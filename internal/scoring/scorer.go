// Package scoring computes the seven soft features of an eligible candidate
// and combines them into a weighted total.
package scoring

import (
	"context"

	"github.com/spigell/care-matcher/internal/care"
	"github.com/spigell/care-matcher/internal/credential"
	"github.com/spigell/care-matcher/internal/similarity"
)

// DefaultDistanceScaleKm is the distance at which the distance score drops to 1/e.
const DefaultDistanceScaleKm = 8.0

// Config tunes the scorer.
type Config struct {
	Weights         Weights
	DistanceScaleKm float64
	SkillThreshold  float64
}

// DefaultConfig returns the standard weights, an 8 km scale and a 0.80 threshold.
func DefaultConfig() Config {
	return Config{
		Weights:         DefaultWeights,
		DistanceScaleKm: DefaultDistanceScaleKm,
		SkillThreshold:  similarity.DefaultThreshold,
	}
}

// Scorer evaluates candidates that already passed the hard filters.
type Scorer struct {
	creds *credential.Evaluator
	sim   similarity.Scorer
	cfg   Config
}

// New returns a Scorer. Zero config fields fall back to their defaults.
func New(creds *credential.Evaluator, sim similarity.Scorer, cfg Config) (*Scorer, error) {
	def := DefaultConfig()
	if cfg.Weights == (Weights{}) {
		cfg.Weights = def.Weights
	}
	if cfg.DistanceScaleKm <= 0 {
		cfg.DistanceScaleKm = def.DistanceScaleKm
	}
	if cfg.SkillThreshold <= 0 {
		cfg.SkillThreshold = def.SkillThreshold
	}
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	if creds == nil {
		creds = credential.New()
	}
	return &Scorer{creds: creds, sim: sim, cfg: cfg}, nil
}

// Score returns the feature breakdown and the weighted total for a candidate
// at the given distance from the request.
func (s *Scorer) Score(ctx context.Context, req *care.Request, c *care.Candidate, distanceKm float64) (Breakdown, float64) {
	b := Breakdown{
		Credential: Credential(s.creds, c.Credentials, req.CareLevel),
		Skills:     Skills(ctx, s.sim, s.cfg.SkillThreshold, req.Skills.Priority, c.Skills),
		Distance:   Distance(distanceKm, s.cfg.DistanceScaleKm),
		Rating:     Rating(c.Ratings),
		Experience: Experience(c.YearsExperience),
		Price:      Price(c.HourlyRate, req.BudgetPerHour),
		Trust:      Trust(c.Bookings, c.IdentityVerified),
	}
	return b, s.cfg.Weights.Total(b)
}

// Config returns the effective configuration.
func (s *Scorer) Config() Config {
	return s.cfg
}
