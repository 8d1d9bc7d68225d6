// Package filtering implements the hard eligibility checks a candidate must
// pass before it is scored. A failed check excludes the candidate; it is never
// reported as an error.
package filtering

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spigell/care-matcher/internal/care"
	"github.com/spigell/care-matcher/internal/logger"
	"go.uber.org/zap"
)

// Filter represents a single eligibility check.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate() error
	Check(ctx context.Context, env *Env) bool
}

// Env is the pair under evaluation plus values shared between checks.
type Env struct {
	Request    *care.Request
	Candidate  *care.Candidate
	DistanceKm float64
}

// Step counts how many candidates a filter looked at and how many it rejected.
type Step struct {
	Checked  int
	Rejected int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// Verdict is the outcome of running the pipeline on one candidate.
type Verdict struct {
	Eligible   bool
	RejectedBy string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// Pipeline runs filters in order and stops at the first rejection.
// It is not safe for concurrent use.
type Pipeline struct {
	steps    []Filter
	counters []Step
	logger   *zap.Logger
	onReject func(name string)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = logger.WithFields(l) }
}

// OnReject registers a hook called with the name of every rejecting filter.
func OnReject(fn func(name string)) Option {
	return func(p *Pipeline) { p.onReject = fn }
}

// NewPipeline validates every enabled filter and returns a pipeline over them.
func NewPipeline(steps []Filter, opts ...Option) (*Pipeline, error) {
	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	p := &Pipeline{
		steps:    steps,
		counters: make([]Step, len(steps)),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Evaluate runs the enabled filters against env in order.
func (p *Pipeline) Evaluate(ctx context.Context, env *Env) Verdict {
	for i, step := range p.steps {
		if !step.IsEnabled() {
			continue
		}

		p.counters[i].Checked++
		if step.Check(ctx, env) {
			continue
		}

		p.counters[i].Rejected++
		p.logger.Debug("candidate rejected",
			zap.String(logger.FieldCandidateID, env.Candidate.ID),
			zap.String("filter", step.Name()),
		)
		if p.onReject != nil {
			p.onReject(step.Name())
		}
		return Verdict{RejectedBy: step.Name()}
	}

	return Verdict{Eligible: true}
}

// Steps returns the per-filter counters keyed by filter name.
func (p *Pipeline) Steps() map[string]Step {
	out := make(map[string]Step, len(p.steps))
	for i, step := range p.steps {
		out[step.Name()] = p.counters[i]
	}
	return out
}

// LogSteps writes one debug entry per filter with its counters.
func (p *Pipeline) LogSteps() {
	for i, step := range p.steps {
		if !step.IsEnabled() {
			p.logger.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}
		p.logger.Debug("filter step",
			zap.String("name", step.Name()),
			zap.Int("checked", p.counters[i].Checked),
			zap.Int("rejected", p.counters[i].Rejected),
		)
	}
}

// Describe returns status entries for the pipeline filters.
func (p *Pipeline) Describe() []Status {
	statuses := Describe(p.steps)
	for i := range statuses {
		if statuses[i].Details == nil {
			statuses[i].Details = map[string]string{}
		}
		statuses[i].Details["checked"] = strconv.Itoa(p.counters[i].Checked)
		statuses[i].Details["rejected"] = strconv.Itoa(p.counters[i].Rejected)
	}
	return statuses
}
