package scoring

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/spigell/care-matcher/internal/care"
	"github.com/spigell/care-matcher/internal/credential"
	"github.com/spigell/care-matcher/internal/similarity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func fixedEvaluator() *credential.Evaluator {
	return credential.NewAt(func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) })
}

func TestDefaultWeights(t *testing.T) {
	require.NoError(t, DefaultWeights.Validate())
	assert.InDelta(t, 1.0, DefaultWeights.Sum(), 1e-12)

	bad := DefaultWeights
	bad.Trust = 0
	require.Error(t, bad.Validate())

	skewed := DefaultWeights
	skewed.Price = 0.5
	require.Error(t, skewed.Validate())
}

func TestDistance(t *testing.T) {
	assert.InDelta(t, math.Exp(-1), Distance(8, 8), 1e-12)
	assert.InDelta(t, 0.3679, Distance(8, 8), 1e-4)
	assert.Equal(t, 1.0, Distance(0, 8))
	assert.Greater(t, Distance(1, 8), Distance(8, 8))
	assert.Greater(t, Distance(8, 8), Distance(20, 8))
	assert.Equal(t, Distance(4, DefaultDistanceScaleKm), Distance(4, 0), "non-positive scale uses default")
}

func TestPrice(t *testing.T) {
	budget := 100000.0
	assert.Equal(t, 1.0, Price(0.4*budget, &budget))
	assert.InDelta(t, 1.0, Price(0.5*budget, &budget), 1e-12)
	assert.InDelta(t, 0.95, Price(0.75*budget, &budget), 1e-12)
	assert.InDelta(t, 0.9, Price(budget, &budget), 1e-12)
	assert.InDelta(t, 0.5, Price(1.5*budget, &budget), 1e-12)
	assert.Equal(t, 0.0, Price(2*budget, &budget))
	assert.Equal(t, 0.0, Price(5*budget, &budget))
	assert.Equal(t, 1.0, Price(999999, nil))
	assert.Equal(t, 1.0, Price(10, ptr(0)))
}

func TestRating(t *testing.T) {
	assert.Equal(t, 0.5, Rating(care.Ratings{}))
	assert.Equal(t, 0.5, Rating(care.Ratings{Overall: 5, TotalReviews: 0}))
	assert.InDelta(t, 0.94, Rating(care.Ratings{Overall: 5, TotalReviews: 100}), 1e-9)

	// (30*5 + 8*4 + 2*3 + 87.5) / 65 / 5
	withBreakdown := care.Ratings{Overall: 1, TotalReviews: 40, Breakdown: map[int]int{5: 30, 4: 8, 3: 2}}
	assert.InDelta(t, (150.0+32+6+87.5)/65/5, Rating(withBreakdown), 1e-9)
}

func TestExperience(t *testing.T) {
	assert.Equal(t, 0.1, Experience(0))
	assert.Equal(t, 0.1, Experience(0.5))
	assert.InDelta(t, 0.45, Experience(4.5), 1e-12)
	assert.Equal(t, 1.0, Experience(25))
}

func TestTrust(t *testing.T) {
	perfect := Trust(care.Bookings{CompletionRate: 1, SeekerCancelRate: 0, Total: 150}, true)
	assert.InDelta(t, 1.0, perfect, 1e-12)

	// 0.4*0.9 + 0.3*(1-0.667) + 0.2*0.6 + 0.1*0.5
	mid := Trust(care.Bookings{CompletionRate: 0.9, SeekerCancelRate: 0.1, Total: 25}, false)
	assert.InDelta(t, 0.36+0.3*(1-0.667)+0.12+0.05, mid, 1e-9)

	empty := Trust(care.Bookings{}, false)
	assert.InDelta(t, 0.3+0.04+0.05, empty, 1e-12)

	assert.Equal(t, 0.2, bookingBucket(9))
	assert.Equal(t, 0.4, bookingBucket(10))
	assert.Equal(t, 0.8, bookingBucket(50))
	assert.Equal(t, 1.0, bookingBucket(100))
}

func TestCredential(t *testing.T) {
	e := fixedEvaluator()
	creds := []care.Credential{
		{Type: care.CredentialDegree, Status: care.StatusVerified, Levels: []int{1, 2, 3}},
		{Type: care.CredentialCertificate, Status: care.StatusVerified, Levels: []int{2}},
		{Type: care.CredentialCertificate, Status: care.StatusVerified, Levels: []int{1}},
		{Type: care.CredentialCertificate, Status: care.StatusVerified, ExpiryDate: "2020-01-01", Levels: []int{4}},
	}
	// degree 3 + one qualifying certificate at level 2
	assert.InDelta(t, 0.35, Credential(e, creds, 2), 1e-12)

	many := []care.Credential{{Type: care.CredentialDegree, Status: care.StatusVerified, Levels: []int{4}}}
	for i := 0; i < 20; i++ {
		many = append(many, care.Credential{Type: care.CredentialCertificate, Status: care.StatusVerified, Levels: []int{4}})
	}
	assert.Equal(t, 1.0, Credential(e, many, 1))
	assert.Equal(t, 0.0, Credential(e, nil, 1))
}

func TestSkills(t *testing.T) {
	ctx := context.Background()
	sim := similarity.New()
	skills := []care.Skill{
		{Name: "nau an"},
		{Name: "do huyet ap", CredentialID: "cert-1"},
		{Name: "tam"},
	}

	assert.Equal(t, 1.0, Skills(ctx, sim, 0.8, nil, skills), "no priority skills")
	assert.Equal(t, 0.0, Skills(ctx, sim, 0.8, []string{"tiem insulin"}, skills))

	// 2 of 4 matched, 1 of 2 linked: 0.5 + 0.2*0.5
	got := Skills(ctx, sim, 0.8, []string{"nau an", "do huyet ap", "tiem insulin", "massage"}, skills)
	assert.InDelta(t, 0.6, got, 1e-12)

	// full coverage with a linked credential is capped at 1
	assert.Equal(t, 1.0, Skills(ctx, sim, 0.8, []string{"do huyet ap"}, skills))
	assert.Equal(t, 0.0, Skills(ctx, sim, 0.8, []string{"tam"}, nil))
}

func TestScorerTotalsWithinBounds(t *testing.T) {
	s, err := New(fixedEvaluator(), similarity.New(), Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultDistanceScaleKm, s.Config().DistanceScaleKm)
	assert.Equal(t, similarity.DefaultThreshold, s.Config().SkillThreshold)

	req := &care.Request{CareLevel: 2, BudgetPerHour: ptr(100), Skills: care.SkillRequirements{Priority: []string{"tam"}}}
	cands := []*care.Candidate{
		{},
		{
			HourlyRate:       40,
			YearsExperience:  30,
			Skills:           []care.Skill{{Name: "tam", CredentialID: "x"}},
			Credentials:      []care.Credential{{Type: care.CredentialDegree, Status: care.StatusVerified, Levels: []int{4}}},
			Ratings:          care.Ratings{Overall: 5, TotalReviews: 1000},
			Bookings:         care.Bookings{CompletionRate: 1, Total: 500},
			IdentityVerified: true,
		},
	}

	for _, c := range cands {
		for _, d := range []float64{0, 3.2, 50} {
			b, total := s.Score(context.Background(), req, c, d)
			for _, v := range []float64{b.Credential, b.Skills, b.Distance, b.Rating, b.Experience, b.Price, b.Trust, total} {
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 1.0)
			}
			assert.InDelta(t, DefaultWeights.Total(b), total, 1e-12)
		}
	}
}

func TestNewRejectsBadWeights(t *testing.T) {
	w := DefaultWeights
	w.Skills = 0.9
	_, err := New(nil, similarity.New(), Config{Weights: w})
	require.Error(t, err)
}
