package usecase

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/nutriplan/backend/internal/domain"
)

// Planner defaults
const (
	defaultHorizonDays      = 7
	defaultBudgetTolerance  = 0.10
	defaultMaxSubstitutions = 3
)

// defaultMealSchedule is the meals-per-day schedule used when none is
// configured
var defaultMealSchedule = []domain.MealType{
	domain.MealBreakfast,
	domain.MealLunch,
	domain.MealDinner,
}

// mealTemplates gives each meal type its component structure. An empty
// category means any item qualifies. Unknown meal types fall back to a
// single unconstrained component.
var mealTemplates = map[domain.MealType][]domain.Category{
	domain.MealBreakfast: {domain.CategoryGrain, domain.CategoryProtein},
	domain.MealLunch:     {domain.CategoryGrain, domain.CategoryProtein, domain.CategoryVegetable},
	domain.MealDinner:    {domain.CategoryGrain, domain.CategoryProtein, domain.CategoryVegetable},
	domain.MealSnack:     {""},
}

func templateFor(meal domain.MealType) []domain.Category {
	if t, ok := mealTemplates[meal]; ok {
		return t
	}
	return []domain.Category{""}
}

// PlannerConfig holds the full configuration surface of the optimizer
type PlannerConfig struct {
	HorizonDays            int
	MealSchedule           []domain.MealType
	RepetitionWindow       int
	ShortlistSize          int
	Weights                ObjectiveWeights
	BudgetTolerance        float64
	MaxSubstitutions       int
	BidirectionalBorrowing bool
	EnableDebugLogging     bool
}

// PlanOptions are per-request overrides supplied alongside the profile
type PlanOptions struct {
	Month   int               // snapshot month 1-12; out-of-range defaults to January
	Weights *ObjectiveWeights // nil means use the configured weights
}

// PlannerService assembles a full meal plan over all slots of the horizon.
// The algorithm is greedy with a budget ledger and a post-assignment repair
// pass; given identical inputs it always returns an identical plan.
type PlannerService struct {
	catalogue   domain.FoodCatalogue
	constraints *ConstraintService
	candidates  *CandidateService
	config      PlannerConfig
}

// NewPlannerService creates a planner over a read-only catalogue, filling
// defaults for any zero-valued configuration
func NewPlannerService(cat domain.FoodCatalogue, config PlannerConfig) *PlannerService {
	if config.HorizonDays <= 0 {
		config.HorizonDays = defaultHorizonDays
	}
	if len(config.MealSchedule) == 0 {
		config.MealSchedule = defaultMealSchedule
	}
	if config.BudgetTolerance <= 0 {
		config.BudgetTolerance = defaultBudgetTolerance
	}
	if config.MaxSubstitutions <= 0 {
		config.MaxSubstitutions = defaultMaxSubstitutions
	}
	zero := ObjectiveWeights{}
	if config.Weights == zero {
		config.Weights = DefaultWeights()
	}

	return &PlannerService{
		catalogue:   cat,
		constraints: NewConstraintService(ConstraintConfig{EnableDebugLogging: config.EnableDebugLogging}),
		candidates: NewCandidateService(CandidateConfig{
			ShortlistSize:      config.ShortlistSize,
			RepetitionWindow:   config.RepetitionWindow,
			EnableDebugLogging: config.EnableDebugLogging,
		}),
		config: config,
	}
}

// planState is the mutable working set of one optimization run. It is local
// to the run, so independent requests never share state.
type planState struct {
	cons     *domain.Constraints
	weights  ObjectiveWeights
	month    int
	quantity float64

	entries     []domain.PlanEntry
	recent      [][]string
	totals      domain.NutrientVector
	occurrences map[string]int
	totalSpent  float64
	flags       []domain.Flag

	// cheapestByMeal holds the minimum achievable cost per template
	// component; cheapestRemaining is the floor cost of all components not
	// yet assigned, which bounds how much the ledger may borrow ahead
	cheapestByMeal    map[domain.MealType][]float64
	cheapestRemaining float64
}

// GeneratePlan runs the full pipeline for one household: constraints,
// per-slot greedy selection under the budget ledger, repair pass, totals.
// The constraint set derived for the run is returned alongside the plan so
// downstream consumers report against the exact inputs of the optimization.
// Cancellation is cooperative at slot and substitution granularity; a
// cancelled run returns the plan assembled so far flagged as partial.
func (s *PlannerService) GeneratePlan(
	ctx context.Context,
	profile *domain.HouseholdProfile,
	opts PlanOptions,
) (*domain.MealPlan, *domain.Constraints, error) {
	weights := s.config.Weights
	if opts.Weights != nil {
		weights = *opts.Weights
	}
	if err := weights.Validate(); err != nil {
		return nil, nil, err
	}

	cons, err := s.constraints.Build(profile)
	if err != nil {
		return nil, nil, err
	}

	eligible := filterExcluded(s.catalogue.All(), cons)
	if len(eligible) == 0 {
		return nil, nil, fmt.Errorf("%w: all %d items excluded by restrictions",
			domain.ErrEmptyCatalogue, s.catalogue.Len())
	}

	month := opts.Month
	if month < 1 || month > 12 {
		month = 1
	}

	state := &planState{
		cons:        cons,
		weights:     weights,
		month:       month,
		quantity:    float64(cons.Members),
		totals:      make(domain.NutrientVector),
		occurrences: make(map[string]int),
	}

	if err := s.checkFeasibility(state, eligible); err != nil {
		return nil, nil, err
	}

	cancelled := s.fillSlots(ctx, state)
	if !cancelled {
		cancelled = s.repair(ctx, state)
	}
	if cancelled {
		state.flags = append(state.flags, domain.Flag{
			Kind:   domain.FlagPartial,
			Detail: "planning cancelled by caller",
		})
	} else {
		s.flagNutrientViolations(state)
	}

	return s.finalize(state), cons, nil
}

// checkFeasibility rejects a run only when even the cheapest conceivable
// full-week plan overshoots the budget beyond the tolerance. It also seeds
// the ledger's per-component cost floors.
func (s *PlannerService) checkFeasibility(state *planState, eligible []domain.FoodItem) error {
	state.cheapestByMeal = make(map[domain.MealType][]float64)
	cheapest := 0.0
	for _, meal := range s.config.MealSchedule {
		template := templateFor(meal)
		floors := make([]float64, len(template))
		for i, component := range template {
			floors[i] = s.cheapestComponentCost(eligible, component) * state.quantity
			cheapest += floors[i]
		}
		state.cheapestByMeal[meal] = floors
	}
	cheapest *= float64(s.config.HorizonDays)
	state.cheapestRemaining = cheapest

	ceiling := state.cons.WeeklyBudget * (1 + s.config.BudgetTolerance)
	if cheapest > ceiling {
		return fmt.Errorf("%w: cheapest plan costs %.2f, budget ceiling %.2f",
			domain.ErrInfeasibleBudget, cheapest, ceiling)
	}
	return nil
}

func (s *PlannerService) cheapestComponentCost(eligible []domain.FoodItem, component domain.Category) float64 {
	min, found := 0.0, false
	for i := range eligible {
		if component != "" && eligible[i].Category != component {
			continue
		}
		if !found || eligible[i].UnitCost < min {
			min, found = eligible[i].UnitCost, true
		}
	}
	if found {
		return min
	}
	// Component has no item in its category; selection widens to the whole
	// pool, so the cheapest overall item stands in
	for i := range eligible {
		if !found || eligible[i].UnitCost < min {
			min, found = eligible[i].UnitCost, true
		}
	}
	return min
}

// fillSlots runs the greedy pass over all slots in fixed order. Returns
// true when the run was cancelled mid-way.
func (s *PlannerService) fillSlots(ctx context.Context, state *planState) bool {
	days := s.config.HorizonDays
	perDay := state.cons.WeeklyBudget / float64(days)
	carry := 0.0

	for day := 0; day < days; day++ {
		daySpent := 0.0
		dayAllowance := perDay + carry

		for _, meal := range s.config.MealSchedule {
			if ctx.Err() != nil {
				s.padUnfilled(state, day, meal)
				return true
			}

			slot := domain.MealSlot{Day: day, Meal: meal}
			entry := domain.PlanEntry{Slot: slot, Filled: true}
			budgetConstrained := false
			template := templateFor(meal)
			slotIDs := make([]string, 0, len(template))

			for ci, component := range template {
				state.cheapestRemaining -= state.cheapestByMeal[meal][ci]
				candidate, constrained := s.selectCandidate(state, slot, component, daySpent, dayAllowance)
				if candidate == nil {
					continue
				}
				budgetConstrained = budgetConstrained || constrained

				cost := candidate.Item.UnitCost * state.quantity
				item := domain.PlanItem{
					FoodID:   candidate.Item.ID,
					Name:     candidate.Item.Name,
					Category: candidate.Item.Category,
					Quantity: state.quantity,
					Cost:     cost,
				}
				entry.Items = append(entry.Items, item)
				entry.Cost += cost
				daySpent += cost
				state.totalSpent += cost
				state.totals.Add(candidate.Item.Nutrients, state.quantity)
				slotIDs = append(slotIDs, candidate.Item.ID)
				state.occurrences[candidate.Item.ID]++
			}

			if budgetConstrained {
				slotCopy := slot
				state.flags = append(state.flags, domain.Flag{
					Kind:   domain.FlagBudgetConstrained,
					Slot:   &slotCopy,
					Detail: "no candidate fit the day's budget allocation",
				})
			}

			state.entries = append(state.entries, entry)
			state.recent = append(state.recent, slotIDs)
		}

		carry = dayAllowance - daySpent
	}

	return false
}

// selectCandidate picks the best-ranked candidate that fits the running
// budget ledger. When nothing fits the day allowance it borrows against the
// weekly budget (if bidirectional borrowing is on), and as a last resort
// takes the cheapest candidate and reports the slot as budget-constrained.
func (s *PlannerService) selectCandidate(
	state *planState,
	slot domain.MealSlot,
	component domain.Category,
	daySpent, dayAllowance float64,
) (*Candidate, bool) {
	shortlist := s.candidates.Shortlist(s.catalogue, state.cons, SlotRequest{
		Slot:      slot,
		Component: component,
		Month:     state.month,
		Quantity:  state.quantity,
		Deficits:  s.remainingDeficits(state),
		Recent:    state.recent,
		Weights:   state.weights,
	})
	if len(shortlist) == 0 {
		return nil, false
	}

	for i := range shortlist {
		cost := shortlist[i].Item.UnitCost * state.quantity
		if daySpent+cost <= dayAllowance {
			return &shortlist[i], false
		}
	}

	// Borrowing from later days is bounded by what those days still need at
	// minimum, so borrowing ahead can never make the rest of the week
	// unpayable
	if s.config.BidirectionalBorrowing {
		for i := range shortlist {
			cost := shortlist[i].Item.UnitCost * state.quantity
			if state.totalSpent+cost+state.cheapestRemaining <= state.cons.WeeklyBudget {
				return &shortlist[i], false
			}
		}
	}

	cheapest := 0
	for i := range shortlist {
		if shortlist[i].Item.UnitCost < shortlist[cheapest].Item.UnitCost {
			cheapest = i
		}
	}
	if s.config.EnableDebugLogging {
		log.Printf("[PLAN] day=%d meal=%s budget-constrained, taking %q",
			slot.Day, slot.Meal, shortlist[cheapest].Item.ID)
	}
	return &shortlist[cheapest], true
}

// remainingDeficits computes each min-bearing nutrient's remaining weekly
// gap given the running totals
func (s *PlannerService) remainingDeficits(state *planState) domain.NutrientVector {
	deficits := make(domain.NutrientVector)
	horizon := float64(s.config.HorizonDays)
	for nutrient, band := range state.cons.Daily {
		if band.Min <= 0 {
			continue
		}
		gap := band.Min*horizon - state.totals[nutrient]
		if gap < 0 {
			gap = 0
		}
		deficits[nutrient] = gap
	}
	return deficits
}

// padUnfilled appends empty, unfilled entries for every slot from the given
// position to the end of the horizon, keeping the slot count intact on a
// cancelled run
func (s *PlannerService) padUnfilled(state *planState, fromDay int, fromMeal domain.MealType) {
	started := false
	for day := fromDay; day < s.config.HorizonDays; day++ {
		for _, meal := range s.config.MealSchedule {
			if day == fromDay && !started {
				if meal != fromMeal {
					continue
				}
				started = true
			}
			state.entries = append(state.entries, domain.PlanEntry{
				Slot: domain.MealSlot{Day: day, Meal: meal},
			})
		}
	}
}

// repair attempts single-item substitutions for nutrients still below their
// weekly minimum, in sorted nutrient order for determinism. Returns true
// when cancelled mid-pass.
func (s *PlannerService) repair(ctx context.Context, state *planState) bool {
	horizon := float64(s.config.HorizonDays)

	nutrients := make([]string, 0, len(state.cons.Daily))
	for nutrient := range state.cons.Daily {
		nutrients = append(nutrients, nutrient)
	}
	sort.Strings(nutrients)

	for _, nutrient := range nutrients {
		band := state.cons.Daily[nutrient]
		if band.Min <= 0 {
			continue
		}
		weeklyMin := band.Min * horizon

		for attempt := 0; attempt < s.config.MaxSubstitutions; attempt++ {
			if state.totals[nutrient] >= weeklyMin {
				break
			}
			if ctx.Err() != nil {
				return true
			}
			if !s.substitute(state, nutrient) {
				break
			}
		}
	}
	return false
}

// substitute swaps one plan item for the strongest available contributor
// of the target nutrient. Victims are tried lowest-diversity-value first
// (the most-repeated food id, then the weakest contributor, then the
// earliest slot); a swap is accepted only when it stays under the budget
// ceiling and introduces no new ceiling violation on any other nutrient.
func (s *PlannerService) substitute(state *planState, nutrient string) bool {
	for _, victim := range s.rankVictims(state, nutrient) {
		entry := &state.entries[victim.entry]
		current := entry.Items[victim.item]
		victimItem, ok := s.catalogue.ByID(current.FoodID)
		if !ok {
			continue
		}

		replacement, ok := s.pickReplacement(state, &victimItem, nutrient)
		if !ok {
			continue
		}

		newCost := state.totalSpent - current.Cost + replacement.UnitCost*state.quantity
		if newCost > state.cons.WeeklyBudget*(1+s.config.BudgetTolerance) {
			continue
		}
		if s.introducesCeilingViolation(state, &victimItem, &replacement) {
			continue
		}

		if s.config.EnableDebugLogging {
			log.Printf("[REPAIR] nutrient=%s swapping %q for %q in day=%d meal=%s",
				nutrient, current.FoodID, replacement.ID, entry.Slot.Day, entry.Slot.Meal)
		}

		cost := replacement.UnitCost * state.quantity
		entry.Cost += cost - current.Cost
		entry.Items[victim.item] = domain.PlanItem{
			FoodID:   replacement.ID,
			Name:     replacement.Name,
			Category: replacement.Category,
			Quantity: state.quantity,
			Cost:     cost,
		}
		state.totalSpent = newCost
		state.totals.Add(victimItem.Nutrients, -state.quantity)
		state.totals.Add(replacement.Nutrients, state.quantity)
		state.occurrences[current.FoodID]--
		state.occurrences[replacement.ID]++
		return true
	}
	return false
}

// victimRef addresses one item within one plan entry
type victimRef struct {
	entry  int
	item   int
	count  int
	amount float64
}

// rankVictims orders all filled plan items by ascending diversity value:
// most-repeated food first, then weakest target-nutrient contributor, then
// plan position
func (s *PlannerService) rankVictims(state *planState, nutrient string) []victimRef {
	victims := make([]victimRef, 0, len(state.entries))
	for e := range state.entries {
		if !state.entries[e].Filled {
			continue
		}
		for i := range state.entries[e].Items {
			id := state.entries[e].Items[i].FoodID
			item, ok := s.catalogue.ByID(id)
			if !ok {
				continue
			}
			victims = append(victims, victimRef{
				entry:  e,
				item:   i,
				count:  state.occurrences[id],
				amount: item.Nutrients[nutrient],
			})
		}
	}

	sort.SliceStable(victims, func(i, j int) bool {
		if victims[i].count != victims[j].count {
			return victims[i].count > victims[j].count
		}
		if victims[i].amount != victims[j].amount {
			return victims[i].amount < victims[j].amount
		}
		if victims[i].entry != victims[j].entry {
			return victims[i].entry < victims[j].entry
		}
		return victims[i].item < victims[j].item
	})
	return victims
}

// pickReplacement looks for the strongest contributor of the target
// nutrient, preferring the victim's substitution group, then its category,
// then anything eligible. Ties break by lower cost, then id.
func (s *PlannerService) pickReplacement(
	state *planState,
	victim *domain.FoodItem,
	nutrient string,
) (domain.FoodItem, bool) {
	pools := make([][]domain.FoodItem, 0, 3)
	if victim.SubstitutionGroup != "" {
		pools = append(pools, s.catalogue.BySubstitutionGroup(victim.SubstitutionGroup))
	}
	pools = append(pools, s.catalogue.ByCategory(victim.Category), s.catalogue.All())

	for _, pool := range pools {
		best := domain.FoodItem{}
		found := false
		for i := range pool {
			item := pool[i]
			if item.ID == victim.ID || state.cons.Excluded(&item) {
				continue
			}
			if item.Nutrients[nutrient] <= victim.Nutrients[nutrient] {
				continue
			}
			if !found ||
				item.Nutrients[nutrient] > best.Nutrients[nutrient] ||
				(item.Nutrients[nutrient] == best.Nutrients[nutrient] && item.UnitCost < best.UnitCost) {
				best, found = item, true
			}
		}
		if found {
			return best, true
		}
	}
	return domain.FoodItem{}, false
}

// introducesCeilingViolation checks whether swapping victim for replacement
// would push any nutrient over its weekly maximum that was not already over
func (s *PlannerService) introducesCeilingViolation(
	state *planState,
	victim, replacement *domain.FoodItem,
) bool {
	horizon := float64(s.config.HorizonDays)
	for nutrient, band := range state.cons.Daily {
		if band.Max <= 0 {
			continue
		}
		weeklyMax := band.Max * horizon
		before := state.totals[nutrient]
		after := before - victim.Nutrients[nutrient]*state.quantity +
			replacement.Nutrients[nutrient]*state.quantity
		if after > weeklyMax && before <= weeklyMax {
			return true
		}
	}
	return false
}

// flagNutrientViolations reports every nutrient still outside its weekly
// band after repair, in sorted order
func (s *PlannerService) flagNutrientViolations(state *planState) {
	horizon := float64(s.config.HorizonDays)

	nutrients := make([]string, 0, len(state.cons.Daily))
	for nutrient := range state.cons.Daily {
		nutrients = append(nutrients, nutrient)
	}
	sort.Strings(nutrients)

	for _, nutrient := range nutrients {
		band := state.cons.Daily[nutrient]
		total := state.totals[nutrient]
		if band.Min > 0 && total < band.Min*horizon {
			state.flags = append(state.flags, domain.Flag{
				Kind:     domain.FlagNutrientViolation,
				Nutrient: nutrient,
				Detail:   fmt.Sprintf("achieved %.1f of weekly minimum %.1f", total, band.Min*horizon),
			})
		}
		if band.Max > 0 && total > band.Max*horizon {
			state.flags = append(state.flags, domain.Flag{
				Kind:     domain.FlagNutrientViolation,
				Nutrient: nutrient,
				Detail:   fmt.Sprintf("achieved %.1f over weekly maximum %.1f", total, band.Max*horizon),
			})
		}
	}
}

// finalize computes per-day and per-meal-type aggregates and freezes the
// plan
func (s *PlannerService) finalize(state *planState) *domain.MealPlan {
	plan := &domain.MealPlan{
		HorizonDays:   s.config.HorizonDays,
		Schedule:      append([]domain.MealType(nil), s.config.MealSchedule...),
		Month:         state.month,
		Entries:       state.entries,
		DayCosts:      make([]float64, s.config.HorizonDays),
		MealTypeCosts: make(map[domain.MealType]float64),
		DailyTotals:   make([]domain.NutrientVector, s.config.HorizonDays),
		WeeklyTotals:  state.totals,
		Flags:         state.flags,
	}

	for day := 0; day < s.config.HorizonDays; day++ {
		plan.DailyTotals[day] = make(domain.NutrientVector)
	}

	for i := range plan.Entries {
		entry := &plan.Entries[i]
		plan.DayCosts[entry.Slot.Day] += entry.Cost
		plan.MealTypeCosts[entry.Slot.Meal] += entry.Cost
		plan.TotalCost += entry.Cost
		for _, item := range entry.Items {
			if food, ok := s.catalogue.ByID(item.FoodID); ok {
				plan.DailyTotals[entry.Slot.Day].Add(food.Nutrients, item.Quantity)
			}
		}
	}

	if plan.TotalCost > state.cons.WeeklyBudget {
		plan.Flags = append(plan.Flags, domain.Flag{
			Kind: domain.FlagBudgetOverrun,
			Detail: fmt.Sprintf("total cost %.2f exceeds weekly budget %.2f",
				plan.TotalCost, state.cons.WeeklyBudget),
		})
	}

	if s.config.EnableDebugLogging {
		log.Printf("[PLAN] slots=%d cost=%.2f flags=%d", len(plan.Entries), plan.TotalCost, len(plan.Flags))
	}

	return plan
}
