// Package similarity scores how interchangeable two skill names are.
//
// The Oracle normalizes both names, short-circuits identical ones to 1.0 and
// otherwise compares their embeddings by cosine similarity. When no embedder is
// configured, or an embedding call fails, it falls back to the Jaccard index of
// the word sets. Every computed pair is memoized for the lifetime of the Oracle;
// the cache has no eviction and grows with the number of distinct pairs seen.
package similarity

import (
	"context"
	"sync"

	"github.com/spigell/care-matcher/internal/ai"
	"github.com/spigell/care-matcher/internal/logger"
	"github.com/spigell/care-matcher/internal/textnorm"
	"go.uber.org/zap"
)

// DefaultThreshold is the similarity at which two skill names are treated as equivalent.
const DefaultThreshold = 0.80

const maxLoggedSkill = 80

// Scorer is the contract consumed by the filter pipeline and the skills scorer.
type Scorer interface {
	Similarity(ctx context.Context, a, b string) float64
}

type pairKey struct {
	lo, hi string
}

func newPairKey(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// Stats is a snapshot of the oracle cache counters.
type Stats struct {
	Hits          uint64  `json:"hits"`
	Misses        uint64  `json:"misses"`
	HitRate       float64 `json:"hit_rate"`
	CachedPairs   int     `json:"total_cached_similarities"`
	CachedTexts   int     `json:"cached_embeddings"`
	EmbedFailures uint64  `json:"embedding_failures"`
}

// Oracle is a memoizing, symmetric skill-similarity function. It is safe for concurrent use.
type Oracle struct {
	embedder ai.Embedder
	store    Store
	logger   *zap.Logger

	mu       sync.Mutex
	pairs    map[pairKey]float64
	vectors  map[string][]float32
	hits     uint64
	misses   uint64
	failures uint64
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithEmbedder enables the embedding path. A nil embedder keeps the lexical path.
func WithEmbedder(e ai.Embedder) Option {
	return func(o *Oracle) { o.embedder = e }
}

// WithStore adds a shared second-level store consulted on in-memory misses.
func WithStore(s Store) Option {
	return func(o *Oracle) { o.store = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Oracle) {
		if l != nil {
			o.logger = l
		}
	}
}

// New returns an empty Oracle.
func New(opts ...Option) *Oracle {
	o := &Oracle{
		logger:  zap.NewNop(),
		pairs:   make(map[pairKey]float64),
		vectors: make(map[string][]float32),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Similarity returns a score in [0,1]; Similarity(a,b) == Similarity(b,a).
func (o *Oracle) Similarity(ctx context.Context, a, b string) float64 {
	key := newPairKey(a, b)

	o.mu.Lock()
	if v, ok := o.pairs[key]; ok {
		o.hits++
		o.mu.Unlock()
		return v
	}
	o.misses++
	o.mu.Unlock()

	score := o.compute(ctx, key)

	o.mu.Lock()
	defer o.mu.Unlock()
	if existing, ok := o.pairs[key]; ok {
		return existing
	}
	o.pairs[key] = score
	return score
}

func (o *Oracle) compute(ctx context.Context, key pairKey) float64 {
	na, nb := textnorm.Normalize(key.lo), textnorm.Normalize(key.hi)
	if na == nb {
		return 1
	}
	if na == "" || nb == "" {
		return 0
	}
	if o.embedder == nil {
		return Jaccard(na, nb)
	}

	storeKey := o.embedder.Model() + "|" + na + "|" + nb
	if nb < na {
		storeKey = o.embedder.Model() + "|" + nb + "|" + na
	}
	if o.store != nil {
		if v, ok, err := o.store.Get(ctx, storeKey); err != nil {
			o.logger.Warn("similarity store read failed", zap.Error(err))
		} else if ok {
			return v
		}
	}

	va, err := o.vector(ctx, na)
	if err != nil {
		return o.lexicalFallback(na, nb, err)
	}
	vb, err := o.vector(ctx, nb)
	if err != nil {
		return o.lexicalFallback(na, nb, err)
	}

	score := Cosine(va, vb)
	if o.store != nil {
		if err := o.store.Set(ctx, storeKey, score); err != nil {
			o.logger.Warn("similarity store write failed", zap.Error(err))
		}
	}
	return score
}

func (o *Oracle) lexicalFallback(a, b string, err error) float64 {
	o.mu.Lock()
	o.failures++
	o.mu.Unlock()

	o.logger.Debug("embedding failed, using lexical similarity",
		zap.String("a", logger.TruncateForLog(a, maxLoggedSkill)),
		zap.String("b", logger.TruncateForLog(b, maxLoggedSkill)),
		zap.Error(err),
	)
	return Jaccard(a, b)
}

func (o *Oracle) vector(ctx context.Context, text string) ([]float32, error) {
	o.mu.Lock()
	if v, ok := o.vectors[text]; ok {
		o.mu.Unlock()
		return v, nil
	}
	o.mu.Unlock()

	v, err := o.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(v) == 0 {
		return nil, ai.ErrEmptyEmbedding
	}

	o.mu.Lock()
	o.vectors[text] = v
	o.mu.Unlock()
	return v, nil
}

// Stats returns the current cache counters.
func (o *Oracle) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Stats{
		Hits:          o.hits,
		Misses:        o.misses,
		CachedPairs:   len(o.pairs),
		CachedTexts:   len(o.vectors),
		EmbedFailures: o.failures,
	}
	if total := o.hits + o.misses; total > 0 {
		s.HitRate = float64(o.hits) / float64(total)
	}
	return s
}

// Reset drops every cached pair and embedding and zeroes the counters.
func (o *Oracle) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.pairs = make(map[pairKey]float64)
	o.vectors = make(map[string][]float32)
	o.hits, o.misses, o.failures = 0, 0, 0
}

// BestMatch returns the index and score of the candidate most similar to target.
// Ties keep the earliest candidate. It returns -1 and 0 for an empty list.
func BestMatch(ctx context.Context, s Scorer, target string, candidates []string) (int, float64) {
	best, bestScore := -1, 0.0
	for i, c := range candidates {
		score := s.Similarity(ctx, target, c)
		if best == -1 || score > bestScore {
			best, bestScore = i, score
		}
	}
	return best, bestScore
}

// AnyMatch reports whether some candidate reaches threshold against target.
func AnyMatch(ctx context.Context, s Scorer, target string, candidates []string, threshold float64) bool {
	for _, c := range candidates {
		if s.Similarity(ctx, target, c) >= threshold {
			return true
		}
	}
	return false
}
