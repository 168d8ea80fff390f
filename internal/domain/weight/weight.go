// Package weight maps a candidate to its scalar strength.
//
// The coefficients are shared with an external scoring service that computes
// strength with the same formula, so the default set must not change without
// changing it there too:
//
//	weight = trunc(tier*TierStep + sum(sub levels)*SubCoeff + secondary*SecondaryCoeff)
//
// The sum is evaluated in float64 from left to right and truncated toward zero.
package weight

import (
	"math"

	"github.com/okian/roster/internal/domain/model"
)

// Contract coefficient set, version 1.
const (
	TierStep       = 1000
	SubCoeff       = 0.4
	SecondaryCoeff = 0.01
)

// Model holds one coefficient set.
type Model struct {
	TierStep       int
	SubCoeff       float64
	SecondaryCoeff float64
}

// Default returns the contract coefficient set.
func Default() Model {
	return Model{
		TierStep:       TierStep,
		SubCoeff:       SubCoeff,
		SecondaryCoeff: SecondaryCoeff,
	}
}

// Weight computes the strength of c under m.
func (m Model) Weight(c model.Candidate) int {
	return m.Compute(c.Tier, c.SubAttributeSum(), c.Secondary)
}

// Compute applies the formula to raw inputs.
func (m Model) Compute(tier, subSum, secondary int) int {
	v := float64(tier*m.TierStep) + float64(subSum)*m.SubCoeff + float64(secondary)*m.SecondaryCoeff
	return int(math.Trunc(v))
}

// Weight computes the strength of c with the contract coefficients.
func Weight(c model.Candidate) int {
	return Default().Weight(c)
}
