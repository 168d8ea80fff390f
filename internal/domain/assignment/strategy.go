package assignment

import "strings"

// Strategy names a slot assignment algorithm.
type Strategy string

// Known strategies. Mirror is a pass-through alias of Strength.
const (
	Strength Strategy = "strength"
	Mirror   Strategy = "mirror"
	Optimal  Strategy = "optimal"
)

// Strategies lists the accepted names in documentation order.
func Strategies() []Strategy {
	return []Strategy{Strength, Mirror, Optimal}
}

// ParseStrategy resolves name case-insensitively. Unknown or empty names
// resolve to Strength; ok reports whether the name was recognized.
func ParseStrategy(name string) (s Strategy, ok bool) {
	switch Strategy(strings.ToLower(strings.TrimSpace(name))) {
	case Strength:
		return Strength, true
	case Mirror:
		return Mirror, true
	case Optimal:
		return Optimal, true
	default:
		return Strength, false
	}
}

func (s Strategy) String() string { return string(s) }
