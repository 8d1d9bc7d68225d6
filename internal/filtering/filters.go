package filtering

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/spigell/care-matcher/internal/credential"
	"github.com/spigell/care-matcher/internal/schedule"
	"github.com/spigell/care-matcher/internal/similarity"
)

const (
	NameCareLevel      = "care_level"
	NameDegree         = "degree"
	NameDistance       = "distance"
	NameAvailability   = "availability"
	NameGender         = "gender"
	NameCaregiverAge   = "caregiver_age"
	NameHealthStatus   = "health_status"
	NameElderlyAge     = "elderly_age"
	NameExperience     = "experience"
	NameRatingRange    = "rating_range"
	NameRequiredSkills = "required_skills"
)

// degreeRequiredFrom is the first care level that demands a valid degree.
const degreeRequiredFrom = 3

// Deps aggregates dependencies shared across the filters.
type Deps struct {
	Credentials    *credential.Evaluator
	Similarity     similarity.Scorer
	SkillThreshold float64
}

// Standard returns fresh instances of the eleven filters in evaluation order.
func Standard(deps Deps) []Filter {
	return []Filter{
		NewCareLevel(deps.Credentials),
		NewDegree(deps.Credentials),
		NewDistance(),
		NewAvailability(),
		NewGender(),
		NewCaregiverAge(),
		NewHealthStatus(),
		NewElderlyAge(),
		NewExperience(),
		NewRatingRange(),
		NewRequiredSkills(deps.Similarity, deps.SkillThreshold),
	}
}

// WithinRadius reports whether a candidate at distanceKm serves the request.
func WithinRadius(distanceKm, radiusKm float64) bool {
	return distanceKm <= radiusKm
}

type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

// predicate is a filter backed by a plain check function.
type predicate struct {
	toggle
	name    string
	check   func(ctx context.Context, env *Env) bool
	details map[string]string
}

func (f *predicate) Name() string { return f.name }

func (f *predicate) Validate() error { return nil }

func (f *predicate) Check(ctx context.Context, env *Env) bool { return f.check(ctx, env) }

func (f *predicate) Status() Status {
	details := make(map[string]string, len(f.details))
	for k, v := range f.details {
		details[k] = v
	}
	return Status{Name: f.name, Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

type credentialFilter struct {
	predicate
	creds *credential.Evaluator
}

func (f *credentialFilter) Validate() error {
	if f.creds == nil {
		return errors.New("credential evaluator is required")
	}
	return nil
}

// NewCareLevel rejects candidates whose effective maximum level is below the requested one.
func NewCareLevel(creds *credential.Evaluator) Filter {
	f := &credentialFilter{creds: creds}
	f.predicate = predicate{
		name: NameCareLevel,
		check: func(_ context.Context, env *Env) bool {
			return f.creds.EffectiveMaxLevel(env.Candidate.Credentials) >= env.Request.CareLevel
		},
	}
	return f
}

// NewDegree requires a valid degree from care level 3 upwards.
func NewDegree(creds *credential.Evaluator) Filter {
	f := &credentialFilter{creds: creds}
	f.predicate = predicate{
		name: NameDegree,
		check: func(_ context.Context, env *Env) bool {
			if env.Request.CareLevel < degreeRequiredFrom {
				return true
			}
			return f.creds.HasValidDegree(env.Candidate.Credentials)
		},
		details: map[string]string{"required_from_level": strconv.Itoa(degreeRequiredFrom)},
	}
	return f
}

// NewDistance rejects candidates farther away than their own service radius.
func NewDistance() Filter {
	return &predicate{
		name: NameDistance,
		check: func(_ context.Context, env *Env) bool {
			return WithinRadius(env.DistanceKm, env.Candidate.ServiceRadiusKm)
		},
	}
}

// NewAvailability requires every requested slot to fit in the candidate's schedule.
func NewAvailability() Filter {
	return &predicate{
		name: NameAvailability,
		check: func(_ context.Context, env *Env) bool {
			return schedule.Covers(env.Request.TimeSlots, env.Candidate.Availability)
		},
	}
}

// NewGender applies the seeker's gender preference when one is set.
func NewGender() Filter {
	return &predicate{
		name: NameGender,
		check: func(_ context.Context, env *Env) bool {
			want := strings.TrimSpace(env.Request.GenderPreference)
			return want == "" || strings.EqualFold(want, strings.TrimSpace(env.Candidate.Gender))
		},
	}
}

// NewCaregiverAge applies the requested caregiver age range when both the range and the age are known.
func NewCaregiverAge() Filter {
	return &predicate{
		name: NameCaregiverAge,
		check: func(_ context.Context, env *Env) bool {
			r := env.Request.CaregiverAge
			if r == nil || env.Candidate.Age <= 0 {
				return true
			}
			return r.Contains(float64(env.Candidate.Age))
		},
	}
}

// NewHealthStatus applies the candidate's accepted health statuses.
func NewHealthStatus() Filter {
	return &predicate{
		name: NameHealthStatus,
		check: func(_ context.Context, env *Env) bool {
			accepted := env.Candidate.Preferences.HealthStatuses
			status := strings.TrimSpace(env.Request.HealthStatus)
			if len(accepted) == 0 || status == "" {
				return true
			}
			for _, s := range accepted {
				if strings.EqualFold(strings.TrimSpace(s), status) {
					return true
				}
			}
			return false
		},
	}
}

// NewElderlyAge applies the candidate's accepted elderly age range.
func NewElderlyAge() Filter {
	return &predicate{
		name: NameElderlyAge,
		check: func(_ context.Context, env *Env) bool {
			r := env.Candidate.Preferences.ElderlyAge
			if r == nil || env.Request.ElderlyAge <= 0 {
				return true
			}
			return r.Contains(float64(env.Request.ElderlyAge))
		},
	}
}

// NewExperience enforces the requested minimum years of experience.
func NewExperience() Filter {
	return &predicate{
		name: NameExperience,
		check: func(_ context.Context, env *Env) bool {
			required := env.Request.RequiredYearsExperience
			return required == nil || env.Candidate.YearsExperience >= *required
		},
	}
}

// NewRatingRange enforces the requested overall rating range.
func NewRatingRange() Filter {
	return &predicate{
		name: NameRatingRange,
		check: func(_ context.Context, env *Env) bool {
			r := env.Request.RatingRange
			return r == nil || r.Contains(env.Candidate.Ratings.Overall)
		},
	}
}

type requiredSkillsFilter struct {
	toggle
	sim       similarity.Scorer
	threshold float64
}

// NewRequiredSkills requires every must-have skill to be matched by some
// candidate skill at or above threshold. A non-positive threshold uses the default.
func NewRequiredSkills(sim similarity.Scorer, threshold float64) Filter {
	if threshold <= 0 {
		threshold = similarity.DefaultThreshold
	}
	return &requiredSkillsFilter{sim: sim, threshold: threshold}
}

func (f *requiredSkillsFilter) Name() string { return NameRequiredSkills }

func (f *requiredSkillsFilter) Validate() error {
	if f.sim == nil {
		return errors.New("similarity scorer is required")
	}
	return nil
}

func (f *requiredSkillsFilter) Check(ctx context.Context, env *Env) bool {
	required := env.Request.Skills.Required
	if len(required) == 0 {
		return true
	}

	names := env.Candidate.SkillNames()
	for _, skill := range required {
		if !similarity.AnyMatch(ctx, f.sim, skill, names, f.threshold) {
			return false
		}
	}
	return true
}

func (f *requiredSkillsFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"threshold": strconv.FormatFloat(f.threshold, 'f', 2, 64)},
	}
}
