// Package rating estimates Elo ratings from persisted match logs. Sequential
// Elo depends on the order matches are replayed in, so the estimate is the
// mean over several passes, each over an independently shuffled order.
package rating

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"golang.org/x/exp/rand"

	"zerosum/config"
	"zerosum/engine"
	"zerosum/matchlog"
)

var ErrRatingInput = errors.New("invalid rating input")

type Rating struct {
	Model   string  `json:"model"`
	Mean    float64 `json:"rating"`
	Std     float64 `json:"std"`
	Matches int     `json:"matches"`
}

type Ratings map[string]Rating

// Ranked returns the ratings from strongest to weakest.
func (r Ratings) Ranked() []Rating {
	out := make([]Rating, 0, len(r))
	for _, rt := range r {
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Mean != out[j].Mean {
			return out[i].Mean > out[j].Mean
		}
		return out[i].Model < out[j].Model
	})
	return out
}

type Option func(e *estimator)

func WithBootstrapRounds(rounds int) Option {
	return func(e *estimator) {
		e.rounds = rounds
	}
}

func WithK(k float64) Option {
	return func(e *estimator) {
		if k > 0 {
			e.k = k
		}
	}
}

func WithBaseline(baseline float64) Option {
	return func(e *estimator) {
		e.baseline = baseline
	}
}

func WithSeed(seed uint64) Option {
	return func(e *estimator) {
		e.seed = seed
	}
}

// WithLimitDrawWeight scales the step size of draws caused by the round
// limit. 1 rates them like any other draw, 0 ignores them.
func WithLimitDrawWeight(weight float64) Option {
	return func(e *estimator) {
		e.limitDrawWeight = math.Max(0, math.Min(1, weight))
	}
}

func WithoutLimitDraws() Option {
	return WithLimitDrawWeight(0)
}

// WithoutWarmup skips matches flagged as warm-up.
func WithoutWarmup() Option {
	return func(e *estimator) {
		e.skipWarmup = true
	}
}

// WithModels names models that must be rated; estimation fails if any of
// them has no rated match.
func WithModels(models ...string) Option {
	return func(e *estimator) {
		e.required = append(e.required, models...)
	}
}

type estimator struct {
	rounds          int
	k               float64
	baseline        float64
	seed            uint64
	limitDrawWeight float64
	skipWarmup      bool
	required        []string
}

func newEstimator(options []Option) *estimator {
	e := &estimator{ // Default values
		rounds:          config.BootstrapRounds,
		k:               config.EloK,
		baseline:        config.EloBaseline,
		limitDrawWeight: 1,
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// FromDir rates every match log below dir.
func FromDir(dir string, options ...Option) (Ratings, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRatingInput, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRatingInput, dir)
	}
	matches, err := matchlog.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRatingInput, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no match logs in %s", ErrRatingInput, dir)
	}

	summaries := make([]matchlog.Summary, len(matches))
	for i, m := range matches {
		summaries[i] = m.Summary
	}
	return Estimate(summaries, options...)
}

// Index is a store of match summaries, such as the SQLite run index.
type Index interface {
	Matches(ctx context.Context) ([]matchlog.Summary, error)
}

// FromIndex rates every match recorded in idx.
func FromIndex(ctx context.Context, idx Index, options ...Option) (Ratings, error) {
	summaries, err := idx.Matches(ctx)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, fmt.Errorf("%w: index holds no matches", ErrRatingInput)
	}
	return Estimate(summaries, options...)
}

// pairing is one pairwise Elo update: a scored sa against b.
type pairing struct {
	a, b   string
	sa     float64
	weight float64
}

// Estimate rates models from match summaries.
func Estimate(summaries []matchlog.Summary, options ...Option) (Ratings, error) {
	e := newEstimator(options)
	if e.rounds < 1 {
		return nil, fmt.Errorf("%w: bootstrap rounds must be at least 1, got %d", ErrRatingInput, e.rounds)
	}

	var matches [][]pairing
	played := map[string]int{}
	for _, s := range summaries {
		if err := validate(s); err != nil {
			return nil, err
		}
		pairs, ok := e.pairings(s)
		if !ok {
			continue
		}
		matches = append(matches, pairs)
		for _, model := range s.Participants {
			played[model]++
		}
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no rated matches", ErrRatingInput)
	}
	for _, model := range e.required {
		if played[model] == 0 {
			return nil, fmt.Errorf("%w: model %s has no rated matches", ErrRatingInput, model)
		}
	}

	rng := rand.New(rand.NewSource(e.seed))
	sums := map[string]float64{}
	squares := map[string]float64{}
	order := make([]int, len(matches))
	for i := range order {
		order[i] = i
	}
	for pass := 0; pass < e.rounds; pass++ {
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
		ratings := e.replay(matches, order, played)
		for model, r := range ratings {
			sums[model] += r
			squares[model] += r * r
		}
	}

	out := make(Ratings, len(played))
	n := float64(e.rounds)
	for model := range played {
		mean := sums[model] / n
		variance := math.Max(0, squares[model]/n-mean*mean)
		out[model] = Rating{Model: model, Mean: mean, Std: math.Sqrt(variance), Matches: played[model]}
	}
	return out, nil
}

// validate rejects summaries whose result names no participant or whose
// status is unknown.
func validate(s matchlog.Summary) error {
	if len(s.Participants) < 2 {
		return fmt.Errorf("%w: match %s has %d participants", ErrRatingInput, s.MatchID, len(s.Participants))
	}
	for role, model := range s.Participants {
		if model == "" {
			return fmt.Errorf("%w: match %s: role %s has no model", ErrRatingInput, s.MatchID, role)
		}
	}
	switch s.Status {
	case engine.Won:
		if _, ok := s.Participants[s.Winner]; !ok {
			return fmt.Errorf("%w: match %s: winner %q is not a participant role", ErrRatingInput, s.MatchID, s.Winner)
		}
	case engine.Forfeited:
		if _, ok := s.Participants[s.Forfeiter]; !ok {
			return fmt.Errorf("%w: match %s: forfeiter %q is not a participant role", ErrRatingInput, s.MatchID, s.Forfeiter)
		}
	case engine.Drawn, engine.Aborted:
	default:
		return fmt.Errorf("%w: match %s: unknown status %q", ErrRatingInput, s.MatchID, s.Status)
	}
	return nil
}

// pairings decomposes s into pairwise results. Aborted and excluded matches
// report false.
func (e *estimator) pairings(s matchlog.Summary) ([]pairing, bool) {
	if s.Status == engine.Aborted || (s.Warmup && e.skipWarmup) {
		return nil, false
	}
	weight := 1.0
	if s.LimitDraw {
		if e.limitDrawWeight == 0 {
			return nil, false
		}
		weight = e.limitDrawWeight
	}

	roles := s.Roles()
	scores := make([]float64, len(roles))
	for i, role := range roles {
		score, ok := s.Score(role)
		if !ok {
			return nil, false
		}
		scores[i] = score
	}

	var pairs []pairing
	for i := 0; i < len(roles); i++ {
		for j := i + 1; j < len(roles); j++ {
			a, b := s.Participants[roles[i]], s.Participants[roles[j]]
			if a == b {
				continue
			}
			pairs = append(pairs, pairing{a: a, b: b, sa: 0.5 + (scores[i]-scores[j])/2, weight: weight})
		}
	}
	return pairs, len(pairs) > 0
}

// replay runs one pass from baseline. Updates within a match use the ratings
// from before that match.
func (e *estimator) replay(matches [][]pairing, order []int, models map[string]int) map[string]float64 {
	ratings := make(map[string]float64, len(models))
	for model := range models {
		ratings[model] = e.baseline
	}
	delta := map[string]float64{}
	for _, idx := range order {
		clear(delta)
		for _, p := range matches[idx] {
			change := p.weight * e.k * (p.sa - Expected(ratings[p.a], ratings[p.b]))
			delta[p.a] += change
			delta[p.b] -= change
		}
		for model, d := range delta {
			ratings[model] += d
		}
	}
	return ratings
}

// Expected is the expected score of a player rated ra against one rated rb.
func Expected(ra, rb float64) float64 {
	return 1 / (1 + math.Pow(10, (rb-ra)/400))
}
