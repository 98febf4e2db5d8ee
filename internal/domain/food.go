package domain

import "fmt"

// Category classifies a food item into a broad food group
type Category string

const (
	CategoryGrain     Category = "grain"
	CategoryProtein   Category = "protein"
	CategoryVegetable Category = "vegetable"
	CategoryFruit     Category = "fruit"
	CategoryDairy     Category = "dairy"
	CategoryFat       Category = "fat"
	CategoryOther     Category = "other"
)

// Canonical nutrient identifiers used across the catalogue and the
// reference intake table. The catalogue may carry additional nutrient
// dimensions; the engine tracks whichever ids appear in the requirements.
const (
	NutrientEnergyKcal    = "energy_kcal"
	NutrientProteinG      = "protein_g"
	NutrientCarbohydrateG = "carbohydrate_g"
	NutrientFatG          = "fat_g"
	NutrientFiberG        = "fiber_g"
	NutrientCalciumMg     = "calcium_mg"
	NutrientIronMg        = "iron_mg"
	NutrientZincMg        = "zinc_mg"
	NutrientVitaminAUg    = "vitamin_a_ug"
	NutrientVitaminCMg    = "vitamin_c_mg"
	NutrientFolateUg      = "folate_ug"
	NutrientSodiumMg      = "sodium_mg"
)

// NutrientVector maps a nutrient id to an amount per catalogue reference unit
type NutrientVector map[string]float64

// Clone returns a deep copy of the vector
func (v NutrientVector) Clone() NutrientVector {
	out := make(NutrientVector, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Add accumulates another vector scaled by quantity
func (v NutrientVector) Add(other NutrientVector, quantity float64) {
	for k, val := range other {
		v[k] += val * quantity
	}
}

// FoodItem is a single entry in the food catalogue. Nutrients and UnitCost
// are expressed per one reference unit (one standard portion).
type FoodItem struct {
	ID                string         `json:"id" yaml:"id"`
	Name              string         `json:"name" yaml:"name"`
	Category          Category       `json:"category" yaml:"category"`
	Nutrients         NutrientVector `json:"nutrients" yaml:"nutrients"`
	UnitCost          float64        `json:"unitCost" yaml:"unit_cost"`
	Tags              []string       `json:"tags,omitempty" yaml:"tags"`
	Months            []int          `json:"months,omitempty" yaml:"months"`
	SubstitutionGroup string         `json:"substitutionGroup,omitempty" yaml:"substitution_group"`
}

// Validate checks the catalogue invariants: positive unit cost and
// non-negative nutrient values
func (f *FoodItem) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("food item missing id")
	}
	if f.UnitCost <= 0 {
		return fmt.Errorf("food item %q: unit cost must be positive, got %v", f.ID, f.UnitCost)
	}
	for nutrient, amount := range f.Nutrients {
		if amount < 0 {
			return fmt.Errorf("food item %q: nutrient %s is negative", f.ID, nutrient)
		}
	}
	for _, m := range f.Months {
		if m < 1 || m > 12 {
			return fmt.Errorf("food item %q: month %d out of range", f.ID, m)
		}
	}
	return nil
}

// AvailableIn reports whether the item is seasonally available in the given
// month (1-12). An empty month list means available year-round.
func (f *FoodItem) AvailableIn(month int) bool {
	if len(f.Months) == 0 {
		return true
	}
	for _, m := range f.Months {
		if m == month {
			return true
		}
	}
	return false
}

// HasTag reports whether the item carries the given cultural tag
func (f *FoodItem) HasTag(tag string) bool {
	for _, t := range f.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// FoodCatalogue is the read-only catalogue contract. Implementations must
// expose a stable iteration order so that planning stays deterministic.
type FoodCatalogue interface {
	// All returns every item ordered by id
	All() []FoodItem
	// ByID looks up a single item
	ByID(id string) (FoodItem, bool)
	// ByCategory returns items of one category ordered by id
	ByCategory(c Category) []FoodItem
	// BySubstitutionGroup returns culturally-equivalent items ordered by id
	BySubstitutionGroup(group string) []FoodItem
	// Len returns the catalogue size
	Len() int
}
