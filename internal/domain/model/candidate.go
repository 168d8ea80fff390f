// Package model contains domain models passed between layers.
package model

// SubAttribute is a named secondary trait contributing to a candidate's weight.
type SubAttribute struct {
	Name  string `json:"name" yaml:"name"`
	Level int    `json:"level" yaml:"level"`
}

// Candidate is one participant under consideration for a slot.
// Weight is derived once during normalization; treat values as read-only.
type Candidate struct {
	ID            string         `json:"id" yaml:"id"`
	Name          string         `json:"name" yaml:"name"`
	Tier          int            `json:"tier" yaml:"tier"`
	Secondary     int            `json:"secondary_metric" yaml:"secondary_metric"`
	SubAttributes []SubAttribute `json:"sub_attributes,omitempty" yaml:"sub_attributes,omitempty"`
	Weight        int            `json:"weight" yaml:"weight"`
}

// SubAttributeSum returns the sum of all sub-attribute levels.
func (c Candidate) SubAttributeSum() int {
	sum := 0
	for _, s := range c.SubAttributes {
		sum += s.Level
	}
	return sum
}

// SlotAssignment places one candidate in a 1-based slot.
type SlotAssignment struct {
	Slot   int    `json:"slot" yaml:"slot"`
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Tier   int    `json:"tier" yaml:"tier"`
	Weight int    `json:"weight" yaml:"weight"`
}

// AssignmentFor builds the slot record for c.
func AssignmentFor(slot int, c Candidate) SlotAssignment {
	return SlotAssignment{
		Slot:   slot,
		ID:     c.ID,
		Name:   c.Name,
		Tier:   c.Tier,
		Weight: c.Weight,
	}
}
