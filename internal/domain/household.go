package domain

// AgeBand buckets household members for the reference intake table
type AgeBand string

const (
	AgeBandChild      AgeBand = "child"      // 1-8 years
	AgeBandAdolescent AgeBand = "adolescent" // 9-18 years
	AgeBandAdult      AgeBand = "adult"      // 19-59 years
	AgeBandElderly    AgeBand = "elderly"    // 60+ years
)

// Sex of a household member, as used by the reference intake table
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// PhysiologicalState adjusts a member's nutrient requirements
type PhysiologicalState string

const (
	StateNone      PhysiologicalState = "none"
	StatePregnant  PhysiologicalState = "pregnant"
	StateLactating PhysiologicalState = "lactating"
)

// Member is one person in a household
type Member struct {
	AgeBand AgeBand            `json:"ageBand"`
	Sex     Sex                `json:"sex"`
	State   PhysiologicalState `json:"state,omitempty"`
}

// HouseholdProfile is the structured input contract for plan generation.
// Free-text preference interpretation happens upstream; by the time a
// profile reaches the engine it is fully normalized.
type HouseholdProfile struct {
	Members      []Member `json:"members"`
	Restrictions []string `json:"restrictions,omitempty"` // excluded categories or tags
	WeeklyBudget float64  `json:"weeklyBudget"`
	Region       string   `json:"region,omitempty"` // cultural-tag preference
}

// NutrientBand is a per-day min/max requirement for one nutrient.
// A Max of zero means no ceiling is defined.
type NutrientBand struct {
	Min float64 `json:"min"`
	Max float64 `json:"max,omitempty"`
}

// Requirements maps nutrient id to its daily household-level band
type Requirements map[string]NutrientBand

// Constraints is the Constraint Builder output consumed by the optimizer
type Constraints struct {
	Daily        Requirements    `json:"daily"`
	Exclusions   map[string]bool `json:"exclusions"` // categories and tags, lowercased
	WeeklyBudget float64         `json:"weeklyBudget"`
	Region       string          `json:"region"`
	Members      int             `json:"members"`
}

// Excluded reports whether an item's category or any of its tags is excluded
func (c *Constraints) Excluded(item *FoodItem) bool {
	if c.Exclusions[string(item.Category)] {
		return true
	}
	for _, tag := range item.Tags {
		if c.Exclusions[tag] {
			return true
		}
	}
	return false
}
