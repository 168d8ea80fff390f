// Package assignment ranks a candidate pool and places the strongest
// members into numbered slots, either by rank or by minimum-cost matching
// against a linear target curve.
package assignment

import (
	"github.com/okian/roster/internal/domain/model"
	"github.com/okian/roster/internal/domain/pool"
	"github.com/okian/roster/internal/domain/weight"
)

// Outcome is the result of one engine run.
type Outcome struct {
	Assignments []model.SlotAssignment
	// Requested is the strategy after name resolution.
	Requested Strategy
	// Fallback is true when optimal matching failed and the strength
	// result was returned instead.
	Fallback bool
	// Size is the clamped slot count; len(Assignments) may be smaller
	// when the pool is short.
	Size int
}

// Engine is stateless apart from its weight model and safe for
// concurrent use.
type Engine struct {
	pool *pool.Pool
}

// Option configures an Engine.
type Option func(*Engine)

// WithPool sets the normalizer used for raw records.
func WithPool(p *pool.Pool) Option {
	return func(e *Engine) {
		if p != nil {
			e.pool = p
		}
	}
}

// WithWeightModel is shorthand for WithPool(pool.New(pool.WithWeightModel(m))).
func WithWeightModel(m weight.Model) Option {
	return func(e *Engine) {
		e.pool = pool.New(pool.WithWeightModel(m))
	}
}

// New creates an engine with the default weight model unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{pool: pool.New()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Pool returns the engine's normalizer.
func (e *Engine) Pool() *pool.Pool { return e.pool }

// Generate normalizes raw records and assigns slots. size is clamped to
// [MinSize, MaxSize]; strategy names are case-insensitive and unknown
// names behave as "strength".
func (e *Engine) Generate(records []pool.Record, size int, strategy string) []model.SlotAssignment {
	return e.Run(e.pool.Normalize(records), size, strategy).Assignments
}

// Run assigns slots for candidates that are already normalized. Weights
// are recomputed so stale or hand-built values cannot leak in.
func (e *Engine) Run(candidates []model.Candidate, size int, strategy string) Outcome {
	s, _ := ParseStrategy(strategy)
	n := ClampSize(size)
	ranked := rankOrder(e.pool.Reweigh(candidates))

	out := Outcome{Requested: s, Size: n}
	switch s {
	case Optimal:
		out.Assignments, out.Fallback = assignOptimal(ranked, n)
	default:
		out.Assignments = rankAssignments(top(ranked, n))
	}
	return out
}

// AssignByStrength places the n strongest candidates in rank order. It
// does not clamp n, which lets callers and tests use sizes outside the
// request bounds.
func AssignByStrength(candidates []model.Candidate, n int) []model.SlotAssignment {
	return rankAssignments(top(rankOrder(candidates), n))
}

// AssignOptimal matches the n strongest candidates to a linear target
// curve. ok is false when matching failed and the strength ordering was
// returned. Like AssignByStrength it does not clamp n.
func AssignOptimal(candidates []model.Candidate, n int) (assignments []model.SlotAssignment, ok bool) {
	a, fallback := assignOptimal(rankOrder(candidates), n)
	return a, !fallback
}

func assignOptimal(ranked []model.Candidate, n int) ([]model.SlotAssignment, bool) {
	selected := top(ranked, n)
	size := len(selected)
	if size <= 1 {
		return rankAssignments(selected), false
	}

	weights := make([]int, size)
	for i, c := range selected {
		weights[i] = c.Weight
	}
	targets := TargetCurve(weights[0], weights[size-1], size)
	cost := BuildCostMatrix(weights, targets)
	cost.Reduce()

	rowToCol, err := Match(cost)
	if err != nil {
		return rankAssignments(selected), true
	}

	out := make([]model.SlotAssignment, size)
	for row, col := range rowToCol {
		out[col] = model.AssignmentFor(col+1, selected[row])
	}
	return out, false
}

var defaultEngine = New()

// Generate runs the default engine.
func Generate(records []pool.Record, size int, strategy string) []model.SlotAssignment {
	return defaultEngine.Generate(records, size, strategy)
}
