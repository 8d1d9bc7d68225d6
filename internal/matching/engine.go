// Package matching ranks candidates for a care request.
//
// A match runs as a small state machine. The primary phase evaluates the
// candidates whose service radius covers the request. Only when it yields
// nothing does the fallback phase run: the remaining candidates are visited in
// batches, closest first, with the distance filter disabled, until enough
// results are accumulated or the candidates are exhausted.
package matching

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/spigell/care-matcher/internal/care"
	"github.com/spigell/care-matcher/internal/credential"
	"github.com/spigell/care-matcher/internal/filtering"
	"github.com/spigell/care-matcher/internal/geo"
	"github.com/spigell/care-matcher/internal/logger"
	"github.com/spigell/care-matcher/internal/scoring"
	"github.com/spigell/care-matcher/internal/similarity"
	"github.com/spigell/care-matcher/internal/utils"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of out-of-radius candidates examined per fallback batch.
const DefaultBatchSize = 10

// Phase is a state of the match state machine.
type Phase string

const (
	PhasePrimary  Phase = "primary"
	PhaseFallback Phase = "fallback"
	PhaseDone     Phase = "done"
)

// OutcomeEmpty labels a match where no candidate passed either phase.
const OutcomeEmpty = "empty"

const fallbackReason = "candidates outside their service radius are considered in the fallback phase"

// Recorder receives engine events. The metrics package provides the Prometheus implementation.
type Recorder interface {
	CandidatesEvaluated(phase string, n int)
	Rejected(phase, filter string)
	MatchCompleted(outcome string, results int, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) CandidatesEvaluated(string, int)           {}
func (nopRecorder) Rejected(string, string)                   {}
func (nopRecorder) MatchCompleted(string, int, time.Duration) {}

// Result is one ranked candidate.
type Result struct {
	Candidate   *care.Candidate   `json:"-"`
	CandidateID string            `json:"candidate_id"`
	Total       float64           `json:"total_score"`
	DistanceKm  float64           `json:"distance_km"`
	Breakdown   scoring.Breakdown `json:"breakdown"`
	Origin      Phase             `json:"origin"`
}

// Config tunes the orchestrator.
type Config struct {
	BatchSize int `mapstructure:"fallback-batch-size"`
}

// Engine matches requests against candidate pools. It holds no per-request
// state and is safe for concurrent use when its similarity scorer is.
type Engine struct {
	creds    *credential.Evaluator
	sim      similarity.Scorer
	scorer   *scoring.Scorer
	cfg      Config
	logger   *zap.Logger
	recorder Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger.WithFields(l) }
}

// WithRecorder sets the event recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// New returns an Engine. The filter skill threshold is taken from the scorer
// so filtering and scoring agree on what counts as a skill match.
func New(creds *credential.Evaluator, sim similarity.Scorer, scorer *scoring.Scorer, cfg Config, opts ...Option) (*Engine, error) {
	if creds == nil {
		return nil, errors.New("credential evaluator is required")
	}
	if sim == nil {
		return nil, errors.New("similarity scorer is required")
	}
	if scorer == nil {
		return nil, errors.New("scorer is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	e := &Engine{
		creds:    creds,
		sim:      sim,
		scorer:   scorer,
		cfg:      cfg,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}

	// Validate the filter set once up front.
	if _, err := e.pipeline(PhasePrimary); err != nil {
		return nil, err
	}
	return e, nil
}

// located is a canonical candidate with its distance to the request.
type located struct {
	candidate  *care.Candidate
	distanceKm float64
}

// scored is a candidate that passed the filters, with its unrounded total.
type scored struct {
	located
	breakdown scoring.Breakdown
	total     float64
	origin    Phase
}

// run carries the state of one Match call.
type run struct {
	req      *care.Request
	topN     int
	inRadius []located
	outside  []located
	logger   *zap.Logger
}

// Match returns at most topN candidates ranked by total score, highest first.
// Equal totals are ordered by candidate id. A non-positive topN, or a pool in
// which nobody passes either phase, yields an empty result.
func (e *Engine) Match(ctx context.Context, req *care.Request, candidates []*care.Candidate, topN int) []Result {
	started := time.Now()
	if req == nil || topN <= 0 {
		e.recorder.MatchCompleted(OutcomeEmpty, 0, time.Since(started))
		return []Result{}
	}

	r := e.prepare(req, candidates, topN)
	r.logger.Debug("candidates partitioned",
		zap.Int("in_radius", len(r.inRadius)),
		zap.Int("outside_radius", len(r.outside)),
	)

	var (
		found   []scored
		outcome = OutcomeEmpty
		phase   = PhasePrimary
	)
	for phase != PhaseDone {
		switch phase {
		case PhasePrimary:
			found = e.evaluate(ctx, r, PhasePrimary, r.inRadius)
			if len(found) > 0 {
				outcome = string(PhasePrimary)
				phase = PhaseDone
				continue
			}
			r.logger.Info("no eligible candidates within service radius, entering fallback",
				zap.Int("outside_radius", len(r.outside)),
			)
			phase = PhaseFallback
		case PhaseFallback:
			found = e.fallback(ctx, r)
			if len(found) > 0 {
				outcome = string(PhaseFallback)
			}
			phase = PhaseDone
		}
	}

	rank(found)
	if len(found) > topN {
		found = found[:topN]
	}

	results := make([]Result, 0, len(found))
	for _, s := range found {
		results = append(results, s.result())
	}

	r.logger.Info("match completed",
		zap.String("outcome", outcome),
		zap.Int("results", len(results)),
	)
	e.recorder.MatchCompleted(outcome, len(results), time.Since(started))
	return results
}

func (e *Engine) prepare(req *care.Request, candidates []*care.Candidate, topN int) *run {
	r := &run{
		req:    care.CanonicalRequest(req),
		topN:   topN,
		logger: logger.WithRequest(e.logger, req.ID),
	}

	// A candidate id is considered once; the first record wins.
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			r.logger.Debug("skipping duplicate candidate", zap.String(logger.FieldCandidateID, c.ID))
			continue
		}
		seen[c.ID] = struct{}{}
		l := located{
			candidate:  care.CanonicalCandidate(c),
			distanceKm: geo.DistanceKm(r.req.Location, c.Location),
		}
		if filtering.WithinRadius(l.distanceKm, c.ServiceRadiusKm) {
			r.inRadius = append(r.inRadius, l)
		} else {
			r.outside = append(r.outside, l)
		}
	}

	sort.SliceStable(r.outside, func(i, j int) bool {
		if r.outside[i].distanceKm != r.outside[j].distanceKm {
			return r.outside[i].distanceKm < r.outside[j].distanceKm
		}
		return r.outside[i].candidate.ID < r.outside[j].candidate.ID
	})
	return r
}

// fallback walks the out-of-radius candidates in batches until topN results
// are accumulated or the list is exhausted.
func (e *Engine) fallback(ctx context.Context, r *run) []scored {
	var found []scored
	for start := 0; start < len(r.outside); start += e.cfg.BatchSize {
		end := min(start+e.cfg.BatchSize, len(r.outside))
		batch := e.evaluate(ctx, r, PhaseFallback, r.outside[start:end])
		found = append(found, batch...)

		r.logger.Debug("fallback batch evaluated",
			zap.Int("batch_start", start),
			zap.Int("batch_size", end-start),
			zap.Int("passed", len(batch)),
			zap.Int("accumulated", len(found)),
		)
		if len(found) >= r.topN {
			break
		}
	}
	return found
}

// evaluate filters and scores a slice of candidates in one phase.
func (e *Engine) evaluate(ctx context.Context, r *run, phase Phase, pool []located) []scored {
	if len(pool) == 0 {
		return nil
	}

	p, err := e.pipeline(phase, filtering.WithLogger(r.logger), filtering.OnReject(func(name string) {
		e.recorder.Rejected(string(phase), name)
	}))
	if err != nil {
		// Unreachable: New validated the same filter set.
		r.logger.Error("building filter pipeline", zap.Error(err))
		return nil
	}

	var out []scored
	for _, l := range pool {
		verdict := p.Evaluate(ctx, &filtering.Env{Request: r.req, Candidate: l.candidate, DistanceKm: l.distanceKm})
		if !verdict.Eligible {
			continue
		}
		breakdown, total := e.scorer.Score(ctx, r.req, l.candidate, l.distanceKm)
		out = append(out, scored{located: l, breakdown: breakdown, total: total, origin: phase})
	}

	e.recorder.CandidatesEvaluated(string(phase), len(pool))
	p.LogSteps()
	return out
}

// pipeline returns a fresh filter pipeline for the phase. Pipelines keep
// per-run counters, so one is built per evaluation.
func (e *Engine) pipeline(phase Phase, opts ...filtering.Option) (*filtering.Pipeline, error) {
	steps := filtering.Standard(filtering.Deps{
		Credentials:    e.creds,
		Similarity:     e.sim,
		SkillThreshold: e.scorer.Config().SkillThreshold,
	})
	if phase == PhaseFallback {
		filtering.DisableByName(steps, filtering.NameDistance, fallbackReason)
	}
	return filtering.NewPipeline(steps, opts...)
}

// rank orders by total descending, then candidate id ascending.
func rank(found []scored) {
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].total != found[j].total {
			return found[i].total > found[j].total
		}
		return found[i].candidate.ID < found[j].candidate.ID
	})
}

func (s scored) result() Result {
	b := s.breakdown
	return Result{
		Candidate:   s.candidate,
		CandidateID: s.candidate.ID,
		Total:       utils.Round(s.total, 3),
		DistanceKm:  utils.Round(s.distanceKm, 2),
		Breakdown: scoring.Breakdown{
			Credential: utils.Round(b.Credential, 3),
			Skills:     utils.Round(b.Skills, 3),
			Distance:   utils.Round(b.Distance, 3),
			Rating:     utils.Round(b.Rating, 3),
			Experience: utils.Round(b.Experience, 3),
			Price:      utils.Round(b.Price, 3),
			Trust:      utils.Round(b.Trust, 3),
		},
		Origin: s.origin,
	}
}
