// Package credential derives care-level eligibility and credential quality
// from a candidate's verifiable, possibly expiring credentials.
package credential

import (
	"strings"
	"time"

	"github.com/spigell/care-matcher/internal/care"
)

// qualityNorm caps the quality sum at roughly five fully qualifying credentials.
const qualityNorm = 5.0

var expiryLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Evaluator checks credentials against a clock.
type Evaluator struct {
	now func() time.Time
}

// New returns an Evaluator using the wall clock.
func New() *Evaluator {
	return &Evaluator{now: time.Now}
}

// NewAt returns an Evaluator whose clock is fixed to the value returned by now.
func NewAt(now func() time.Time) *Evaluator {
	if now == nil {
		now = time.Now
	}
	return &Evaluator{now: now}
}

// Valid reports whether a credential counts: it must be verified, and a
// certificate with an expiry date must not be expired. Unparsable expiry
// dates count as expired.
func (e *Evaluator) Valid(c care.Credential) bool {
	if c.Status != care.StatusVerified {
		return false
	}
	if c.Type != care.CredentialCertificate || strings.TrimSpace(c.ExpiryDate) == "" {
		return true
	}

	expiry, ok := parseExpiry(c.ExpiryDate)
	if !ok {
		return false
	}
	return !expiry.Before(e.now())
}

// ValidSet returns the credentials that pass Valid, preserving order.
func (e *Evaluator) ValidSet(creds []care.Credential) []care.Credential {
	out := make([]care.Credential, 0, len(creds))
	for _, c := range creds {
		if e.Valid(c) {
			out = append(out, c)
		}
	}
	return out
}

// EffectiveMaxLevel is the highest qualifying level across valid credentials, or 0.
func (e *Evaluator) EffectiveMaxLevel(creds []care.Credential) int {
	best := 0
	for _, c := range e.ValidSet(creds) {
		if lvl := maxLevel(c.Levels); lvl > best {
			best = lvl
		}
	}
	return best
}

// Quality sums, per valid credential, the share of its levels at or above
// required, then divides by qualityNorm and caps at 1.
func (e *Evaluator) Quality(creds []care.Credential, required int) float64 {
	sum := 0.0
	for _, c := range e.ValidSet(creds) {
		if len(c.Levels) == 0 {
			continue
		}
		sum += float64(countAtLeast(c.Levels, required)) / float64(len(c.Levels))
	}
	q := sum / qualityNorm
	if q > 1 {
		return 1
	}
	return q
}

// HasValidDegree reports whether at least one valid degree is held.
func (e *Evaluator) HasValidDegree(creds []care.Credential) bool {
	for _, c := range creds {
		if c.Type == care.CredentialDegree && e.Valid(c) {
			return true
		}
	}
	return false
}

// MaxDegreeLevel is the highest qualifying level of any valid degree, or 0.
func (e *Evaluator) MaxDegreeLevel(creds []care.Credential) int {
	best := 0
	for _, c := range e.ValidSet(creds) {
		if c.Type != care.CredentialDegree {
			continue
		}
		if lvl := maxLevel(c.Levels); lvl > best {
			best = lvl
		}
	}
	return best
}

// QualifyingCertificates counts valid certificates with a level at or above required.
func (e *Evaluator) QualifyingCertificates(creds []care.Credential, required int) int {
	n := 0
	for _, c := range e.ValidSet(creds) {
		if c.Type == care.CredentialCertificate && countAtLeast(c.Levels, required) > 0 {
			n++
		}
	}
	return n
}

// parseExpiry accepts ISO-8601 dates and timestamps. Values without a zone are UTC.
func parseExpiry(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func maxLevel(levels []int) int {
	best := 0
	for _, l := range levels {
		if l > best {
			best = l
		}
	}
	return best
}

func countAtLeast(levels []int, required int) int {
	n := 0
	for _, l := range levels {
		if l >= required {
			n++
		}
	}
	return n
}
