package assignment

import (
	"cmp"
	"slices"

	"github.com/okian/roster/internal/domain/model"
)

// Slot count bounds applied to every request.
const (
	MinSize = 5
	MaxSize = 50
)

// ClampSize bounds a requested slot count to [MinSize, MaxSize].
func ClampSize(n int) int {
	return max(MinSize, min(n, MaxSize))
}

// rankOrder returns a copy of candidates sorted by descending weight.
// Equal weights keep their input order.
func rankOrder(candidates []model.Candidate) []model.Candidate {
	sorted := slices.Clone(candidates)
	slices.SortStableFunc(sorted, func(a, b model.Candidate) int {
		return cmp.Compare(b.Weight, a.Weight)
	})
	return sorted
}

// top returns the first n ranked candidates, or all of them if fewer exist.
func top(ranked []model.Candidate, n int) []model.Candidate {
	if n < 0 {
		n = 0
	}
	return ranked[:min(n, len(ranked))]
}

// rankAssignments numbers selected candidates 1..len(selected) in order.
func rankAssignments(selected []model.Candidate) []model.SlotAssignment {
	out := make([]model.SlotAssignment, len(selected))
	for i, c := range selected {
		out[i] = model.AssignmentFor(i+1, c)
	}
	return out
}
