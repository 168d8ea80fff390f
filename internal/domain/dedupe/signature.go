package dedupe

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/roster/internal/domain/model"
	"github.com/zeebo/xxh3"
)

// signatureWeights is how many leading slot weights feed the signature.
const signatureWeights = 10

// Signature fingerprints an assignment snapshot from its tier distribution
// and the weights of the first slots. Two snapshots with the same lineup
// strength produce the same signature even if names changed.
func Signature(assignments []model.SlotAssignment) string {
	counts := map[int]int{}
	for _, a := range assignments {
		counts[a.Tier]++
	}
	tiers := make([]int, 0, len(counts))
	for tier := range counts {
		tiers = append(tiers, tier)
	}
	slices.SortFunc(tiers, func(a, b int) int { return cmp.Compare(b, a) })

	var b strings.Builder
	for _, tier := range tiers {
		b.WriteString(strconv.Itoa(tier))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(counts[tier]))
		b.WriteByte(',')
	}
	b.WriteByte('|')

	ordered := slices.Clone(assignments)
	slices.SortFunc(ordered, func(x, y model.SlotAssignment) int { return cmp.Compare(x.Slot, y.Slot) })
	for _, a := range ordered[:min(signatureWeights, len(ordered))] {
		b.WriteString(strconv.Itoa(a.Weight))
		b.WriteByte(',')
	}

	return strconv.FormatUint(xxh3.HashString(b.String()), 16)
}
