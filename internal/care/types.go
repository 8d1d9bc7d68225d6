// Package care holds the canonical request and candidate records the engine
// works on, and the single step that maps raw input shapes onto them.
package care

import (
	"github.com/spigell/care-matcher/internal/geo"
	"github.com/spigell/care-matcher/internal/schedule"
)

const (
	CredentialDegree      = "degree"
	CredentialCertificate = "certificate"

	StatusVerified = "verified"
)

// Range is an inclusive [Min, Max] bound.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the range, bounds included.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// SkillRequirements splits requested skills into must-have and nice-to-have.
type SkillRequirements struct {
	Required []string `json:"required_skills"`
	Priority []string `json:"priority_skills"`
}

// Request is a care seeker's request.
type Request struct {
	ID         string `json:"id"`
	SeekerName string `json:"seeker_name,omitempty"`
	CareLevel  int    `json:"care_level"`

	Location  geo.Point       `json:"location"`
	TimeSlots []schedule.Slot `json:"time_slots"`

	// BudgetPerHour is nil when the seeker set no budget.
	BudgetPerHour    *float64 `json:"budget_per_hour,omitempty"`
	GenderPreference string   `json:"gender_preference,omitempty"`
	CaregiverAge     *Range   `json:"caregiver_age_range,omitempty"`
	// RequiredYearsExperience is nil when no minimum was requested.
	RequiredYearsExperience *float64 `json:"required_years_experience,omitempty"`
	RatingRange             *Range   `json:"overall_rating_range,omitempty"`

	// ElderlyAge is 0 when unspecified.
	ElderlyAge   int    `json:"elderly_age,omitempty"`
	HealthStatus string `json:"health_status,omitempty"`

	Skills SkillRequirements `json:"skills"`
}

// Credential is a degree or certificate held by a candidate.
type Credential struct {
	ID     string `json:"id,omitempty" mapstructure:"id"`
	Type   string `json:"type" mapstructure:"type"`
	Name   string `json:"name,omitempty" mapstructure:"name"`
	Status string `json:"status" mapstructure:"status"`
	// ExpiryDate is the raw ISO-8601 timestamp, empty when the credential never expires.
	ExpiryDate string `json:"expiry_date,omitempty" mapstructure:"expiry_date"`
	Levels     []int  `json:"applicable_levels" mapstructure:"applicable_levels"`
}

// Skill is a declared skill, optionally backed by a credential.
type Skill struct {
	Name         string `json:"name" mapstructure:"name"`
	CredentialID string `json:"credential_id,omitempty" mapstructure:"credential_id"`
}

// Ratings aggregates the reviews a candidate received.
type Ratings struct {
	Overall      float64 `json:"overall_rating"`
	TotalReviews int     `json:"total_reviews"`
	// Breakdown maps a star value (1..5) to its review count.
	Breakdown map[int]int `json:"rating_breakdown,omitempty"`
}

// Bookings aggregates a candidate's booking history.
type Bookings struct {
	CompletionRate   float64 `json:"completion_rate"`
	SeekerCancelRate float64 `json:"seeker_cancel_rate"`
	Total            int     `json:"total_bookings"`
}

// Preferences are constraints a candidate puts on the jobs they accept.
type Preferences struct {
	HealthStatuses []string `json:"preferred_health_status,omitempty"`
	ElderlyAge     *Range   `json:"elderly_age_preference,omitempty"`
}

// Candidate is a caregiver profile.
type Candidate struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Age    int    `json:"age,omitempty"`
	Gender string `json:"gender,omitempty"`

	Location        geo.Point `json:"location"`
	ServiceRadiusKm float64   `json:"service_radius_km"`

	Availability schedule.Schedule `json:"availability"`
	Credentials  []Credential      `json:"credentials"`
	Skills       []Skill           `json:"skills"`

	HourlyRate      float64 `json:"hourly_rate"`
	YearsExperience float64 `json:"years_experience"`

	Ratings          Ratings     `json:"ratings"`
	Bookings         Bookings    `json:"bookings"`
	IdentityVerified bool        `json:"identity_verified"`
	Preferences      Preferences `json:"preferences"`
}

// SkillNames returns the candidate's skill names in declaration order.
func (c *Candidate) SkillNames() []string {
	names := make([]string, 0, len(c.Skills))
	for _, s := range c.Skills {
		names = append(names, s.Name)
	}
	return names
}
