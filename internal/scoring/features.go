package scoring

import (
	"context"
	"math"

	"github.com/spigell/care-matcher/internal/care"
	"github.com/spigell/care-matcher/internal/credential"
	"github.com/spigell/care-matcher/internal/similarity"
	"github.com/spigell/care-matcher/internal/utils"
)

const (
	credentialNorm        = 10.0
	certificateBonus      = 0.5
	maxQualifyingCerts    = 12
	credentialLinkedBonus = 0.2

	ratingPriorWeight = 25.0
	ratingPriorMean   = 3.5
	ratingNoReviews   = 0.5

	experienceNorm  = 10.0
	experienceFloor = 0.1

	cancelPenalty = 6.67
)

// Credential scores the highest valid degree plus half a point per qualifying
// certificate (at most 12), over 10.
func Credential(e *credential.Evaluator, creds []care.Credential, requiredLevel int) float64 {
	certs := e.QualifyingCertificates(creds, requiredLevel)
	if certs > maxQualifyingCerts {
		certs = maxQualifyingCerts
	}
	raw := float64(e.MaxDegreeLevel(creds)) + certificateBonus*float64(certs)
	return utils.Clamp(raw/credentialNorm, 0, 1)
}

// Skills scores the share of priority skills the candidate covers, plus a bonus
// for matches backed by a credential. No priority skills scores 1.
func Skills(ctx context.Context, sim similarity.Scorer, threshold float64, priority []string, skills []care.Skill) float64 {
	if len(priority) == 0 {
		return 1
	}

	names := make([]string, len(skills))
	for i, s := range skills {
		names[i] = s.Name
	}

	matched, linked := 0, 0
	for _, want := range priority {
		idx, score := similarity.BestMatch(ctx, sim, want, names)
		if idx < 0 || score < threshold {
			continue
		}
		matched++
		if skills[idx].CredentialID != "" {
			linked++
		}
	}

	base := float64(matched) / float64(len(priority))
	bonus := 0.0
	if matched > 0 {
		bonus = credentialLinkedBonus * float64(linked) / float64(matched)
	}
	return utils.Clamp(base+bonus, 0, 1)
}

// Distance decays exponentially with the characteristic scale in km.
func Distance(km, scaleKm float64) float64 {
	if scaleKm <= 0 {
		scaleKm = DefaultDistanceScaleKm
	}
	if km < 0 {
		km = 0
	}
	return math.Exp(-km / scaleKm)
}

// Rating is the Bayesian average of the reviews over 5, or 0.5 with no reviews.
// The star breakdown is preferred over overall * total when present.
func Rating(r care.Ratings) float64 {
	if r.TotalReviews <= 0 {
		return ratingNoReviews
	}

	total := 0.0
	if len(r.Breakdown) > 0 {
		for star, count := range r.Breakdown {
			total += float64(star * count)
		}
	} else {
		total = r.Overall * float64(r.TotalReviews)
	}

	avg := (total + ratingPriorWeight*ratingPriorMean) / (float64(r.TotalReviews) + ratingPriorWeight)
	return utils.Clamp(avg/5, 0, 1)
}

// Experience is years/10 bounded to [0.1, 1].
func Experience(years float64) float64 {
	return utils.Clamp(years/experienceNorm, experienceFloor, 1)
}

// Price is 1 below half the budget, falls linearly to 0.9 at the budget and
// then to 0 at twice the budget. No budget scores 1.
func Price(rate float64, budget *float64) float64 {
	if budget == nil || *budget <= 0 {
		return 1
	}
	b := *budget

	switch {
	case rate < 0.5*b:
		return 1
	case rate <= b:
		return 1 - (rate/b-0.5)*0.2
	default:
		return math.Max(0, 1-(rate-b)/b)
	}
}

// Trust blends completion rate, seeker cancellations, booking volume and identity verification.
func Trust(b care.Bookings, identityVerified bool) float64 {
	completion := utils.Clamp(b.CompletionRate, 0, 1)
	cancel := math.Max(0, 1-b.SeekerCancelRate*cancelPenalty)

	verified := 0.5
	if identityVerified {
		verified = 1
	}

	return utils.Clamp(0.4*completion+0.3*math.Min(1, cancel)+0.2*bookingBucket(b.Total)+0.1*verified, 0, 1)
}

func bookingBucket(total int) float64 {
	switch {
	case total >= 100:
		return 1
	case total >= 50:
		return 0.8
	case total >= 20:
		return 0.6
	case total >= 10:
		return 0.4
	default:
		return 0.2
	}
}
