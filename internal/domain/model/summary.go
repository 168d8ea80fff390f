package model

import "sort"

// TierCount is one bucket of a tier distribution.
type TierCount struct {
	Tier  int `json:"tier"`
	Count int `json:"count"`
}

// Summary describes the shape of a roster's candidate pool.
type Summary struct {
	RosterID         string      `json:"roster_id"`
	CandidateCount   int         `json:"candidate_count"`
	TierDistribution []TierCount `json:"tier_distribution"`
	StrongestWeight  int         `json:"strongest_weight"`
	WeakestWeight    int         `json:"weakest_weight"`
}

// Summarize computes the tier distribution (highest tier first) and weight
// extremes of candidates.
func Summarize(rosterID string, candidates []Candidate) Summary {
	s := Summary{
		RosterID:         rosterID,
		CandidateCount:   len(candidates),
		TierDistribution: []TierCount{},
	}
	counts := make(map[int]int)
	for i, c := range candidates {
		counts[c.Tier]++
		if i == 0 || c.Weight > s.StrongestWeight {
			s.StrongestWeight = c.Weight
		}
		if i == 0 || c.Weight < s.WeakestWeight {
			s.WeakestWeight = c.Weight
		}
	}
	for tier, n := range counts {
		s.TierDistribution = append(s.TierDistribution, TierCount{Tier: tier, Count: n})
	}
	sort.Slice(s.TierDistribution, func(i, j int) bool {
		return s.TierDistribution[i].Tier > s.TierDistribution[j].Tier
	})
	return s
}
