package domain

// MealType identifies one meal within a day
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// MealSlot is one (day, meal-type) unit requiring an assignment
type MealSlot struct {
	Day  int      `json:"day"` // 0-based day index within the horizon
	Meal MealType `json:"meal"`
}

// PlanItem is one food item assigned to a slot, with its portion quantity
// in catalogue reference units and the resulting cost
type PlanItem struct {
	FoodID   string   `json:"foodId"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Quantity float64  `json:"quantity"`
	Cost     float64  `json:"cost"`
}

// PlanEntry is the assignment for a single meal slot. Filled is false when
// planning was cancelled before this slot was reached.
type PlanEntry struct {
	Slot   MealSlot   `json:"slot"`
	Items  []PlanItem `json:"items,omitempty"`
	Cost   float64    `json:"cost"`
	Filled bool       `json:"filled"`
}

// FlagKind classifies a soft violation reported on a successful plan
type FlagKind string

const (
	// FlagBudgetConstrained marks a slot where no candidate fit the budget
	// and the cheapest one was taken instead
	FlagBudgetConstrained FlagKind = "budget_constrained"
	// FlagNutrientViolation marks a nutrient left outside its band after the
	// repair pass
	FlagNutrientViolation FlagKind = "nutrient_violation"
	// FlagBudgetOverrun marks a total cost above the weekly budget
	FlagBudgetOverrun FlagKind = "budget_overrun"
	// FlagPartial marks a plan cut short by caller cancellation
	FlagPartial FlagKind = "partial"
)

// Flag reports a soft violation. Hard errors are raised only when no plan
// can be produced at all; everything else is flagged, never hidden.
type Flag struct {
	Kind     FlagKind  `json:"kind"`
	Slot     *MealSlot `json:"slot,omitempty"`
	Nutrient string    `json:"nutrient,omitempty"`
	Detail   string    `json:"detail,omitempty"`
}

// MealPlan is the optimizer output for one run. It is immutable once
// returned; re-optimization produces a new plan.
type MealPlan struct {
	HorizonDays   int                  `json:"horizonDays"`
	Schedule      []MealType           `json:"schedule"`
	Month         int                  `json:"month"`
	Entries       []PlanEntry          `json:"entries"`
	DayCosts      []float64            `json:"dayCosts"`
	MealTypeCosts map[MealType]float64 `json:"mealTypeCosts"`
	TotalCost     float64              `json:"totalCost"`
	DailyTotals   []NutrientVector     `json:"dailyTotals"`
	WeeklyTotals  NutrientVector       `json:"weeklyTotals"`
	Flags         []Flag               `json:"flags,omitempty"`
}

// SlotCount returns the number of slots the plan is declared to cover
func (p *MealPlan) SlotCount() int {
	return p.HorizonDays * len(p.Schedule)
}

// HasFlag reports whether the plan carries a flag of the given kind
func (p *MealPlan) HasFlag(kind FlagKind) bool {
	for _, f := range p.Flags {
		if f.Kind == kind {
			return true
		}
	}
	return false
}

// ShoppingItem aggregates one food item's quantity and cost across the plan
type ShoppingItem struct {
	FoodID   string   `json:"foodId"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Quantity float64  `json:"quantity"` // catalogue reference units
	Cost     float64  `json:"cost"`
}

// ShoppingList is the read-only aggregation of a plan's items
type ShoppingList struct {
	Items         []ShoppingItem       `json:"items"`
	TotalCost     float64              `json:"totalCost"`
	CategoryCosts map[Category]float64 `json:"categoryCosts"`
}

// NutrientStatus classifies achieved intake against the required band
type NutrientStatus string

const (
	NutrientOK       NutrientStatus = "ok"
	NutrientBelowMin NutrientStatus = "below_min"
	NutrientAboveMax NutrientStatus = "above_max"
)

// NutrientReportRow is one nutrient's achieved-vs-required line
type NutrientReportRow struct {
	Nutrient     string         `json:"nutrient"`
	Achieved     float64        `json:"achieved"` // weekly total
	RequiredMin  float64        `json:"requiredMin"`
	RequiredMax  float64        `json:"requiredMax,omitempty"`
	PercentOfMin float64        `json:"percentOfMin"`
	Status       NutrientStatus `json:"status"`
}

// NutrientReport is the adequacy report derived from a plan
type NutrientReport struct {
	Rows          []NutrientReportRow `json:"rows"`
	DailyAverages NutrientVector      `json:"dailyAverages"`
}

// PriceSnapshot is the market-data collaborator contract: unit costs by
// food id as of a stated month, immutable for the duration of one run
type PriceSnapshot struct {
	Month  int                `json:"month"`
	Prices map[string]float64 `json:"prices"`
}
