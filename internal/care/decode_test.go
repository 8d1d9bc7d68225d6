package care

import (
	"encoding/json"
	"testing"

	"github.com/spigell/care-matcher/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustJSON(t *testing.T, doc string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(doc), &out))
	return out
}

const nestedCandidate = `{
  "id": "cg_001",
  "personal_info": {"full_name": "Nguyễn Thị Lan", "age": 34, "gender": "female"},
  "professional_info": {"years_experience": 6, "price_per_hour": 120000},
  "location": {"lat": 10.7769, "lon": 106.7009, "service_radius_km": 7.5},
  "availability": {"schedule": [
    {"day": "Monday", "slots": [{"start": "08:00", "end": "12:00"}]},
    {"day": "tuesday", "slots": [{"start": "13:00", "end": "17:00"}]}
  ]},
  "credentials": [
    {"id": "cred_1", "type": "degree", "status": "verified", "applicable_levels": [1, 2, 3]},
    {"id": "cred_2", "type": "certificate", "status": "verified", "expiry_date": "2030-01-01", "applicable_levels": [2]}
  ],
  "skills": [{"name": "Tiêm insulin", "credential_id": "cred_2"}, "nấu ăn"],
  "ratings_reviews": {"overall_rating": 4.7, "total_reviews": 40,
    "rating_breakdown": {"5_star": 30, "4_star": 8, "3_star": 2, "bogus": 9}},
  "booking_history": {"completion_rate": 0.95, "seeker_cancel_rate": 0.02, "total_bookings": 57},
  "verification": {"identity_verified": true},
  "preferences": {"preferred_health_status": ["stable", "moderate"], "elderly_age_preference": [60, 90]},
  "age": 99,
  "hourly_rate": 1
}`

func TestDecodeCandidateNested(t *testing.T) {
	c, err := DecodeCandidate(mustJSON(t, nestedCandidate))
	require.NoError(t, err)

	assert.Equal(t, "cg_001", c.ID)
	assert.Equal(t, "Nguyễn Thị Lan", c.Name)
	assert.Equal(t, 34, c.Age, "nested age wins over flat")
	assert.Equal(t, "female", c.Gender)
	assert.Equal(t, 6.0, c.YearsExperience)
	assert.Equal(t, 120000.0, c.HourlyRate, "nested price wins over flat")
	assert.Equal(t, 10.7769, c.Location.Lat)
	assert.Equal(t, 7.5, c.ServiceRadiusKm)

	assert.Equal(t, schedule.Schedule{
		"monday":  {{Start: "08:00", End: "12:00"}},
		"tuesday": {{Start: "13:00", End: "17:00"}},
	}, c.Availability)

	require.Len(t, c.Credentials, 2)
	assert.Equal(t, CredentialDegree, c.Credentials[0].Type)
	assert.Equal(t, []int{1, 2, 3}, c.Credentials[0].Levels)
	assert.Equal(t, "2030-01-01", c.Credentials[1].ExpiryDate)

	assert.Equal(t, []Skill{{Name: "Tiêm insulin", CredentialID: "cred_2"}, {Name: "nấu ăn"}}, c.Skills)

	assert.Equal(t, 4.7, c.Ratings.Overall)
	assert.Equal(t, 40, c.Ratings.TotalReviews)
	assert.Equal(t, map[int]int{5: 30, 4: 8, 3: 2}, c.Ratings.Breakdown)

	assert.Equal(t, Bookings{CompletionRate: 0.95, SeekerCancelRate: 0.02, Total: 57}, c.Bookings)
	assert.True(t, c.IdentityVerified)
	assert.Equal(t, []string{"stable", "moderate"}, c.Preferences.HealthStatuses)
	assert.Equal(t, &Range{Min: 60, Max: 90}, c.Preferences.ElderlyAge)
}

func TestDecodeCandidateFlat(t *testing.T) {
	c, err := DecodeCandidate(mustJSON(t, `{
	  "id": 42,
	  "name": "Trần Văn Minh",
	  "age": 41,
	  "gender": "male",
	  "lat": 21.0285, "lon": 105.8542, "service_radius_km": 5,
	  "hourly_rate": 90000,
	  "experience_years": 3,
	  "rating": 4.2,
	  "total_reviews": 12,
	  "availability": {"Friday": [{"start": "07:00", "end": "19:00"}]},
	  "skills": ["tắm", "dọn dẹp"]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "42", c.ID)
	assert.Equal(t, "Trần Văn Minh", c.Name)
	assert.Equal(t, 41, c.Age)
	assert.Equal(t, 21.0285, c.Location.Lat)
	assert.Equal(t, 5.0, c.ServiceRadiusKm)
	assert.Equal(t, 90000.0, c.HourlyRate)
	assert.Equal(t, 3.0, c.YearsExperience)
	assert.Equal(t, 4.2, c.Ratings.Overall)
	assert.Equal(t, 12, c.Ratings.TotalReviews)
	assert.Nil(t, c.Ratings.Breakdown)
	assert.Equal(t, []string{"tắm", "dọn dẹp"}, c.SkillNames())
	assert.Equal(t, schedule.Schedule{"friday": {{Start: "07:00", End: "19:00"}}}, c.Availability)

	assert.Zero(t, c.Bookings)
	assert.False(t, c.IdentityVerified)
	assert.Nil(t, c.Preferences.ElderlyAge)
}

func TestDecodeCandidateDefaults(t *testing.T) {
	c, err := DecodeCandidate(map[string]any{"id": "bare"})
	require.NoError(t, err)

	assert.Zero(t, c.Age)
	assert.Zero(t, c.ServiceRadiusKm)
	assert.Empty(t, c.Availability)
	assert.Nil(t, c.Skills)
	assert.Nil(t, c.Credentials)
}

func TestDecodeCandidateRejectsBadShapes(t *testing.T) {
	_, err := DecodeCandidate(map[string]any{"id": "x", "skills": []any{3}})
	require.Error(t, err)

	_, err = DecodeCandidate(map[string]any{"id": "x", "availability": "weekdays"})
	require.Error(t, err)
}

func TestDecodeRequest(t *testing.T) {
	r, err := DecodeRequest(mustJSON(t, `{
	  "request_id": "req_001",
	  "seeker_name": "Lê Thị Hoa",
	  "care_level": 3,
	  "health_status": "moderate",
	  "elderly_age": 78,
	  "caregiver_age_range": [25, 50],
	  "gender_preference": "female",
	  "required_years_experience": 2,
	  "overall_rating_range": [4.0],
	  "skills": {"required_skills": ["tiêm insulin"], "priority_skills": ["nấu ăn", "đo huyết áp"]},
	  "time_slots": [{"day": "monday", "start": "08:00", "end": "11:00"}],
	  "location": {"lat": 10.78, "lon": 106.70, "address": "Quận 1"},
	  "budget_per_hour": 150000
	}`))
	require.NoError(t, err)

	assert.Equal(t, "req_001", r.ID)
	assert.Equal(t, 3, r.CareLevel)
	assert.Equal(t, 78, r.ElderlyAge)
	assert.Equal(t, &Range{Min: 25, Max: 50}, r.CaregiverAge)
	assert.Nil(t, r.RatingRange, "malformed range means no constraint")
	require.NotNil(t, r.RequiredYearsExperience)
	assert.Equal(t, 2.0, *r.RequiredYearsExperience)
	require.NotNil(t, r.BudgetPerHour)
	assert.Equal(t, 150000.0, *r.BudgetPerHour)
	assert.Equal(t, []string{"tiêm insulin"}, r.Skills.Required)
	assert.Equal(t, []schedule.Slot{{Day: "monday", Start: "08:00", End: "11:00"}}, r.TimeSlots)
}

func TestDecodeRequestOptionalFields(t *testing.T) {
	r, err := DecodeRequest(mustJSON(t, `{"id": "r", "care_level": 1, "location": {"lat": 1, "lon": 2}, "budget_per_hour": null}`))
	require.NoError(t, err)

	assert.Equal(t, "r", r.ID)
	assert.Nil(t, r.BudgetPerHour)
	assert.Nil(t, r.RequiredYearsExperience)
	assert.Nil(t, r.CaregiverAge)
	assert.Zero(t, r.ElderlyAge)
	assert.Empty(t, r.GenderPreference)
}

func TestDecodeRequestRequiresLocation(t *testing.T) {
	_, err := DecodeRequest(map[string]any{"care_level": 1})
	require.ErrorIs(t, err, ErrMissingLocation)
}

func TestCanonicalCopiesDoNotMutateInput(t *testing.T) {
	req := &Request{Skills: SkillRequirements{Required: []string{"Tiêm Insulin"}, Priority: []string{"Nấu Ăn"}}}
	cand := &Candidate{Skills: []Skill{{Name: "Đo Huyết Áp", CredentialID: "c1"}}}

	cr := CanonicalRequest(req)
	cc := CanonicalCandidate(cand)

	assert.Equal(t, []string{"tiem insulin"}, cr.Skills.Required)
	assert.Equal(t, []string{"nau an"}, cr.Skills.Priority)
	assert.Equal(t, []Skill{{Name: "do huyet ap", CredentialID: "c1"}}, cc.Skills)

	assert.Equal(t, "Tiêm Insulin", req.Skills.Required[0])
	assert.Equal(t, "Đo Huyết Áp", cand.Skills[0].Name)

	assert.Nil(t, CanonicalRequest(nil))
	assert.Nil(t, CanonicalCandidate(nil))
}

func TestCanonicalCandidateNormalizesAvailabilityDays(t *testing.T) {
	cand := &Candidate{Availability: schedule.Schedule{
		"Monday":  {{Start: "08:00", End: "10:00"}},
		" monday": {{Start: "14:00", End: "16:00"}},
	}}

	cc := CanonicalCandidate(cand)

	require.Len(t, cc.Availability, 1)
	assert.Len(t, cc.Availability["monday"], 2)
	assert.Contains(t, cand.Availability, "Monday")
}

func TestRangeContains(t *testing.T) {
	r := Range{Min: 25, Max: 50}
	assert.True(t, r.Contains(25))
	assert.True(t, r.Contains(50))
	assert.False(t, r.Contains(24.9))
	assert.False(t, r.Contains(51))
}
