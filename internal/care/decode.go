package care

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spigell/care-matcher/internal/geo"
	"github.com/spigell/care-matcher/internal/schedule"
)

// ErrMissingLocation is returned when a request carries no coordinates.
var ErrMissingLocation = errors.New("request location lat/lon is required")

type rawLocation struct {
	Lat             *float64 `mapstructure:"lat"`
	Lon             *float64 `mapstructure:"lon"`
	ServiceRadiusKm *float64 `mapstructure:"service_radius_km"`
}

type rawPersonal struct {
	FullName string `mapstructure:"full_name"`
	Name     string `mapstructure:"name"`
	Age      *int   `mapstructure:"age"`
	Gender   string `mapstructure:"gender"`
}

type rawProfessional struct {
	YearsExperience *float64 `mapstructure:"years_experience"`
	PricePerHour    *float64 `mapstructure:"price_per_hour"`
	HourlyRate      *float64 `mapstructure:"hourly_rate"`
}

type rawRatings struct {
	Overall      *float64       `mapstructure:"overall_rating"`
	TotalReviews *int           `mapstructure:"total_reviews"`
	Breakdown    map[string]int `mapstructure:"rating_breakdown"`
}

type rawBookings struct {
	CompletionRate   float64 `mapstructure:"completion_rate"`
	SeekerCancelRate float64 `mapstructure:"seeker_cancel_rate"`
	Total            int     `mapstructure:"total_bookings"`
}

type rawVerification struct {
	IdentityVerified bool `mapstructure:"identity_verified"`
}

type rawPreferences struct {
	HealthStatuses []string  `mapstructure:"preferred_health_status"`
	ElderlyAge     []float64 `mapstructure:"elderly_age_preference"`
}

type rawCandidate struct {
	ID       string `mapstructure:"id"`
	Name     string `mapstructure:"name"`
	FullName string `mapstructure:"full_name"`
	Age      *int   `mapstructure:"age"`
	Gender   string `mapstructure:"gender"`

	Lat             *float64 `mapstructure:"lat"`
	Lon             *float64 `mapstructure:"lon"`
	ServiceRadiusKm *float64 `mapstructure:"service_radius_km"`

	HourlyRate      *float64 `mapstructure:"hourly_rate"`
	PricePerHour    *float64 `mapstructure:"price_per_hour"`
	YearsExperience *float64 `mapstructure:"years_experience"`
	ExperienceYears *float64 `mapstructure:"experience_years"`
	Rating          *float64 `mapstructure:"rating"`
	TotalReviews    *int     `mapstructure:"total_reviews"`

	PersonalInfo     *rawPersonal     `mapstructure:"personal_info"`
	ProfessionalInfo *rawProfessional `mapstructure:"professional_info"`
	Location         *rawLocation     `mapstructure:"location"`
	RatingsReviews   *rawRatings      `mapstructure:"ratings_reviews"`
	BookingHistory   *rawBookings     `mapstructure:"booking_history"`
	Verification     *rawVerification `mapstructure:"verification"`
	Preferences      *rawPreferences  `mapstructure:"preferences"`

	Availability any          `mapstructure:"availability"`
	Credentials  []Credential `mapstructure:"credentials"`
	Skills       []any        `mapstructure:"skills"`
}

type rawRequest struct {
	ID         string `mapstructure:"id"`
	RequestID  string `mapstructure:"request_id"`
	SeekerName string `mapstructure:"seeker_name"`
	CareLevel  int    `mapstructure:"care_level"`

	Location  *rawLocation    `mapstructure:"location"`
	TimeSlots []schedule.Slot `mapstructure:"time_slots"`

	BudgetPerHour           *float64  `mapstructure:"budget_per_hour"`
	GenderPreference        string    `mapstructure:"gender_preference"`
	CaregiverAgeRange       []float64 `mapstructure:"caregiver_age_range"`
	RequiredYearsExperience *float64  `mapstructure:"required_years_experience"`
	OverallRatingRange      []float64 `mapstructure:"overall_rating_range"`
	ElderlyAge              *int      `mapstructure:"elderly_age"`
	HealthStatus            string    `mapstructure:"health_status"`

	Skills struct {
		Required []string `mapstructure:"required_skills"`
		Priority []string `mapstructure:"priority_skills"`
	} `mapstructure:"skills"`
}

func decode(input any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	return decoder.Decode(input)
}

// DecodeRequest maps a raw care request record onto a Request.
func DecodeRequest(raw map[string]any) (*Request, error) {
	var r rawRequest
	if err := decode(raw, &r); err != nil {
		return nil, fmt.Errorf("decode care request: %w", err)
	}

	if r.Location == nil || r.Location.Lat == nil || r.Location.Lon == nil {
		return nil, ErrMissingLocation
	}

	req := &Request{
		ID:                      firstString(r.RequestID, r.ID),
		SeekerName:              strings.TrimSpace(r.SeekerName),
		CareLevel:               r.CareLevel,
		Location:                geo.Point{Lat: *r.Location.Lat, Lon: *r.Location.Lon},
		TimeSlots:               r.TimeSlots,
		BudgetPerHour:           r.BudgetPerHour,
		GenderPreference:        strings.TrimSpace(r.GenderPreference),
		CaregiverAge:            toRange(r.CaregiverAgeRange),
		RequiredYearsExperience: r.RequiredYearsExperience,
		RatingRange:             toRange(r.OverallRatingRange),
		HealthStatus:            strings.TrimSpace(r.HealthStatus),
		Skills: SkillRequirements{
			Required: r.Skills.Required,
			Priority: r.Skills.Priority,
		},
	}
	if r.ElderlyAge != nil {
		req.ElderlyAge = *r.ElderlyAge
	}

	return req, nil
}

// DecodeCandidate maps a raw caregiver record, nested or flat, onto a Candidate.
// Nested values win over flat ones; missing numbers become 0.
func DecodeCandidate(raw map[string]any) (*Candidate, error) {
	var r rawCandidate
	if err := decode(raw, &r); err != nil {
		return nil, fmt.Errorf("decode candidate: %w", err)
	}

	c := &Candidate{
		ID:          strings.TrimSpace(r.ID),
		Credentials: r.Credentials,
	}

	personal := r.PersonalInfo
	if personal == nil {
		personal = &rawPersonal{}
	}
	c.Name = firstString(personal.FullName, personal.Name, r.FullName, r.Name)
	c.Age = derefInt(firstInt(personal.Age, r.Age))
	c.Gender = firstString(personal.Gender, r.Gender)

	loc := r.Location
	if loc == nil {
		loc = &rawLocation{}
	}
	c.Location = geo.Point{
		Lat: derefFloat(firstFloat(loc.Lat, r.Lat)),
		Lon: derefFloat(firstFloat(loc.Lon, r.Lon)),
	}
	c.ServiceRadiusKm = derefFloat(firstFloat(loc.ServiceRadiusKm, r.ServiceRadiusKm))

	prof := r.ProfessionalInfo
	if prof == nil {
		prof = &rawProfessional{}
	}
	c.YearsExperience = derefFloat(firstFloat(prof.YearsExperience, r.YearsExperience, r.ExperienceYears))
	c.HourlyRate = derefFloat(firstFloat(prof.PricePerHour, prof.HourlyRate, r.HourlyRate, r.PricePerHour))

	ratings := r.RatingsReviews
	if ratings == nil {
		ratings = &rawRatings{}
	}
	c.Ratings = Ratings{
		Overall:      derefFloat(firstFloat(ratings.Overall, r.Rating)),
		TotalReviews: derefInt(firstInt(ratings.TotalReviews, r.TotalReviews)),
		Breakdown:    parseBreakdown(ratings.Breakdown),
	}

	if r.BookingHistory != nil {
		c.Bookings = Bookings(*r.BookingHistory)
	}
	if r.Verification != nil {
		c.IdentityVerified = r.Verification.IdentityVerified
	}
	if r.Preferences != nil {
		c.Preferences = Preferences{
			HealthStatuses: r.Preferences.HealthStatuses,
			ElderlyAge:     toRange(r.Preferences.ElderlyAge),
		}
	}

	skills, err := decodeSkills(r.Skills)
	if err != nil {
		return nil, fmt.Errorf("decode candidate %q skills: %w", c.ID, err)
	}
	c.Skills = skills

	availability, err := decodeAvailability(r.Availability)
	if err != nil {
		return nil, fmt.Errorf("decode candidate %q availability: %w", c.ID, err)
	}
	c.Availability = availability

	return c, nil
}

// DecodeCandidates decodes every record, failing on the first malformed one.
func DecodeCandidates(raws []map[string]any) ([]*Candidate, error) {
	out := make([]*Candidate, 0, len(raws))
	for i, raw := range raws {
		c, err := DecodeCandidate(raw)
		if err != nil {
			return nil, fmt.Errorf("candidate #%d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func decodeSkills(items []any) ([]Skill, error) {
	if items == nil {
		return nil, nil
	}
	skills := make([]Skill, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			skills = append(skills, Skill{Name: v})
		case map[string]any:
			var s Skill
			if err := decode(v, &s); err != nil {
				return nil, err
			}
			skills = append(skills, s)
		default:
			return nil, fmt.Errorf("unsupported skill entry %T", item)
		}
	}
	return skills, nil
}

type daySlots struct {
	Day   string              `mapstructure:"day"`
	Slots []schedule.Interval `mapstructure:"slots"`
}

// decodeAvailability accepts {schedule: X} or X itself, where X is either a
// day -> intervals map or a [{day, slots}] list.
func decodeAvailability(v any) (schedule.Schedule, error) {
	if v == nil {
		return schedule.Schedule{}, nil
	}

	if m, ok := v.(map[string]any); ok {
		if inner, ok := m["schedule"]; ok {
			return decodeAvailability(inner)
		}
		var s schedule.Schedule
		if err := decode(m, &s); err != nil {
			return nil, err
		}
		return schedule.Normalize(s), nil
	}

	if list, ok := v.([]any); ok {
		var days []daySlots
		if err := decode(list, &days); err != nil {
			return nil, err
		}
		s := make(schedule.Schedule, len(days))
		for _, d := range days {
			s[d.Day] = append(s[d.Day], d.Slots...)
		}
		return schedule.Normalize(s), nil
	}

	return nil, fmt.Errorf("unsupported availability %T", v)
}

// parseBreakdown turns {"5_star": 10, ...} into {5: 10, ...}.
func parseBreakdown(raw map[string]int) map[int]int {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[int]int, len(raw))
	for key, count := range raw {
		star, ok := strings.CutSuffix(key, "_star")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(star)
		if err != nil || n < 1 || n > 5 {
			continue
		}
		out[n] = count
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// toRange returns nil unless exactly two bounds are given.
func toRange(bounds []float64) *Range {
	if len(bounds) != 2 {
		return nil
	}
	return &Range{Min: bounds[0], Max: bounds[1]}
}

func firstString(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func firstFloat(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstInt(values ...*int) *int {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
