// Package pool normalizes loosely-typed candidate records into model.Candidate
// values. It is the only place that knows about field aliases; everything
// downstream sees the typed shape.
package pool

import (
	"strings"

	"github.com/spf13/cast"

	"github.com/okian/roster/internal/domain/model"
	"github.com/okian/roster/internal/domain/weight"
)

// Record is one raw candidate as decoded from JSON or YAML.
type Record = map[string]any

// Field precedence lists. The first key present with a non-nil value wins.
var (
	IDKeys           = []string{"id", "tag"}
	NameKeys         = []string{"name"}
	TierKeys         = []string{"tier", "th", "town_hall", "townHallLevel", "townhallLevel"}
	SecondaryKeys    = []string{"secondary_metric", "secondaryMetric", "trophies"}
	SubAttributeKeys = []string{"sub_attributes", "subAttributes", "heroes"}
	SubNameKeys      = []string{"name"}
	SubLevelKeys     = []string{"level"}
)

const defaultName = "?"

// Pool turns records into candidates weighted by a single model.
type Pool struct {
	model weight.Model
}

// Option configures a Pool.
type Option func(*Pool)

// WithWeightModel overrides the contract coefficient set.
func WithWeightModel(m weight.Model) Option {
	return func(p *Pool) {
		if m.TierStep > 0 {
			p.model = m
		}
	}
}

// New creates a Pool using the contract weight model unless overridden.
func New(opts ...Option) *Pool {
	p := &Pool{model: weight.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Model returns the weight model in use.
func (p *Pool) Model() weight.Model {
	return p.model
}

// Normalize converts records in input order. Records without an id are
// skipped; missing or malformed numbers become zero. Duplicate ids are kept.
func (p *Pool) Normalize(records []Record) []model.Candidate {
	out := make([]model.Candidate, 0, len(records))
	for _, r := range records {
		c, ok := p.candidate(r)
		if !ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Reweigh recomputes the weight of already typed candidates.
func (p *Pool) Reweigh(candidates []model.Candidate) []model.Candidate {
	out := make([]model.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if strings.TrimSpace(c.ID) == "" {
			continue
		}
		c.Tier = max(c.Tier, 0)
		c.Secondary = max(c.Secondary, 0)
		subs := make([]model.SubAttribute, len(c.SubAttributes))
		for i, s := range c.SubAttributes {
			subs[i] = model.SubAttribute{Name: s.Name, Level: max(s.Level, 0)}
		}
		c.SubAttributes = subs
		c.Weight = p.model.Weight(c)
		out = append(out, c)
	}
	return out
}

// Normalize converts records with the contract weight model.
func Normalize(records []Record) []model.Candidate {
	return New().Normalize(records)
}

func (p *Pool) candidate(r Record) (model.Candidate, bool) {
	if r == nil {
		return model.Candidate{}, false
	}
	id := strings.TrimSpace(lookupString(r, IDKeys))
	if id == "" {
		return model.Candidate{}, false
	}
	name := lookupString(r, NameKeys)
	if name == "" {
		name = defaultName
	}
	c := model.Candidate{
		ID:            id,
		Name:          name,
		Tier:          lookupInt(r, TierKeys),
		Secondary:     lookupInt(r, SecondaryKeys),
		SubAttributes: subAttributes(first(r, SubAttributeKeys)),
	}
	c.Weight = p.model.Weight(c)
	return c, true
}

func first(r Record, keys []string) any {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func lookupString(r Record, keys []string) string {
	v := first(r, keys)
	if v == nil {
		return ""
	}
	return cast.ToString(v)
}

// lookupInt reads a non-negative integer; anything unusable is zero.
func lookupInt(r Record, keys []string) int {
	v := first(r, keys)
	if v == nil {
		return 0
	}
	if str, ok := v.(string); ok {
		digits, ok := decimal(str)
		if !ok {
			return 0
		}
		v = digits
	}
	n, err := cast.ToIntE(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// decimal reduces a base-10 number to its integer digits without leading
// zeros, so "010" reads as ten and prefixed forms like "0x10" are rejected.
// A fractional part is truncated.
func decimal(s string) (string, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return "", false
	}
	if strings.Trim(whole, "0123456789") != "" || strings.Trim(frac, "0123456789") != "" {
		return "", false
	}
	if whole = strings.TrimLeft(whole, "0"); whole == "" {
		whole = "0"
	}
	return whole, true
}

func subAttributes(v any) []model.SubAttribute {
	switch items := v.(type) {
	case nil:
		return []model.SubAttribute{}
	case []model.SubAttribute:
		out := make([]model.SubAttribute, len(items))
		for i, s := range items {
			out[i] = model.SubAttribute{Name: s.Name, Level: max(s.Level, 0)}
		}
		return out
	case []Record:
		out := make([]model.SubAttribute, 0, len(items))
		for _, m := range items {
			out = append(out, subAttribute(m))
		}
		return out
	case []any:
		out := make([]model.SubAttribute, 0, len(items))
		for _, item := range items {
			m, err := cast.ToStringMapE(item)
			if err != nil {
				continue
			}
			out = append(out, subAttribute(m))
		}
		return out
	default:
		return []model.SubAttribute{}
	}
}

func subAttribute(m Record) model.SubAttribute {
	return model.SubAttribute{
		Name:  lookupString(m, SubNameKeys),
		Level: lookupInt(m, SubLevelKeys),
	}
}
