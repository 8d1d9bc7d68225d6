package care

import (
	"github.com/spigell/care-matcher/internal/schedule"
	"github.com/spigell/care-matcher/internal/textnorm"
)

// CanonicalRequest returns a shallow copy of r with normalized skill names.
// The input is not modified.
func CanonicalRequest(r *Request) *Request {
	if r == nil {
		return nil
	}
	out := *r
	out.Skills = SkillRequirements{
		Required: textnorm.NormalizeAll(r.Skills.Required),
		Priority: textnorm.NormalizeAll(r.Skills.Priority),
	}
	return &out
}

// CanonicalCandidate returns a shallow copy of c with normalized skill names
// and lowercase availability days. The input is not modified.
func CanonicalCandidate(c *Candidate) *Candidate {
	if c == nil {
		return nil
	}
	out := *c
	if c.Availability != nil {
		out.Availability = schedule.Normalize(c.Availability)
	}
	if c.Skills != nil {
		out.Skills = make([]Skill, len(c.Skills))
		for i, s := range c.Skills {
			out.Skills[i] = Skill{Name: textnorm.Normalize(s.Name), CredentialID: s.CredentialID}
		}
	}
	return &out
}
