package usecase

import (
	"log"
	"math"
	"sort"

	"github.com/nutriplan/backend/internal/domain"
)

// Scoring bonuses and penalties (score scale is 0-100)
const (
	culturalMatchBonus    = 15.0  // item carries the household's region tag
	outOfSeasonPenalty    = 25.0  // item not available in the snapshot month
	repetitionPenaltyMax  = 100.0 // item used in the immediately preceding slot
	neutralNutritionScore = 50.0  // no unmet requirement left to contribute to
)

// Defaults for the candidate shortlist
const (
	defaultShortlistSize    = 10
	defaultRepetitionWindow = 3
)

// weightSumEpsilon is the tolerance when checking that objective weights
// sum to 1.0
const weightSumEpsilon = 1e-9

// ObjectiveWeights is the weighted-scalarization policy combining the three
// optimization objectives. The weights must sum to 1.0.
type ObjectiveWeights struct {
	Cost      float64 `json:"cost"`
	Nutrition float64 `json:"nutrition"`
	Diversity float64 `json:"diversity"`
}

// DefaultWeights returns the default objective weights
func DefaultWeights() ObjectiveWeights {
	return ObjectiveWeights{Cost: 0.4, Nutrition: 0.4, Diversity: 0.2}
}

// Validate checks that the weights are non-negative and sum to 1.0
func (w ObjectiveWeights) Validate() error {
	if w.Cost < 0 || w.Nutrition < 0 || w.Diversity < 0 {
		return domain.ErrInvalidWeights
	}
	if math.Abs(w.Cost+w.Nutrition+w.Diversity-1.0) > weightSumEpsilon {
		return domain.ErrInvalidWeights
	}
	return nil
}

// CandidateConfig holds configuration for the candidate service
type CandidateConfig struct {
	ShortlistSize      int
	RepetitionWindow   int
	EnableDebugLogging bool
}

// CandidateService produces ranked shortlists of eligible food items for a
// meal slot. It is a pure function of its inputs plus the read-only
// catalogue; it keeps no per-request state.
type CandidateService struct {
	shortlistSize      int
	repetitionWindow   int
	enableDebugLogging bool
}

// NewCandidateService creates a new candidate service with the given
// configuration, falling back to defaults for zero values
func NewCandidateService(config CandidateConfig) *CandidateService {
	size := config.ShortlistSize
	if size <= 0 {
		size = defaultShortlistSize
	}
	window := config.RepetitionWindow
	if window <= 0 {
		window = defaultRepetitionWindow
	}
	return &CandidateService{
		shortlistSize:      size,
		repetitionWindow:   window,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Candidate is one shortlisted item with its score breakdown
type Candidate struct {
	Item           domain.FoodItem
	Score          float64
	CostScore      float64
	NutritionScore float64
	DiversityScore float64
	OutOfSeason    bool
}

// SlotRequest carries everything the shortlist needs to know about the slot
// being filled and the partial plan so far
type SlotRequest struct {
	Slot      domain.MealSlot
	Component domain.Category       // empty means any category
	Month     int                   // snapshot month, 1-12
	Quantity  float64               // portion multiplier per selected item
	Deficits  domain.NutrientVector // remaining weekly gap per min-bearing nutrient
	Recent    [][]string            // item ids per preceding slot, most recent last
	Weights   ObjectiveWeights
}

// Shortlist filters the catalogue against the constraints and returns the
// top-K candidates for the slot. Ties break by lowest unit cost, then by
// item id, so identical inputs always rank identically.
//
// Out-of-season items are hard-dropped only while an in-season alternative
// exists; otherwise they stay in with a low-availability penalty so a slot
// never becomes infeasible purely because of the calendar.
func (s *CandidateService) Shortlist(
	cat domain.FoodCatalogue,
	cons *domain.Constraints,
	req SlotRequest,
) []Candidate {
	pool := s.eligible(cat, cons, req.Component)
	if len(pool) == 0 {
		return nil
	}

	inSeason := 0
	for i := range pool {
		if pool[i].AvailableIn(req.Month) {
			inSeason++
		}
	}

	candidates := make([]Candidate, 0, len(pool))
	minCost, maxCost := costRange(pool)

	for i := range pool {
		item := pool[i]
		outOfSeason := !item.AvailableIn(req.Month)
		if outOfSeason && inSeason > 0 {
			continue
		}

		c := Candidate{
			Item:           item,
			CostScore:      costScore(item.UnitCost, minCost, maxCost),
			NutritionScore: nutritionScore(item.Nutrients, req.Deficits, req.Quantity),
			DiversityScore: diversityScore(item.ID, req.Recent, s.repetitionWindow),
			OutOfSeason:    outOfSeason,
		}

		c.Score = req.Weights.Cost*c.CostScore +
			req.Weights.Nutrition*c.NutritionScore +
			req.Weights.Diversity*c.DiversityScore
		if cons.Region != "" && item.HasTag(cons.Region) {
			c.Score += culturalMatchBonus
		}
		if outOfSeason {
			c.Score -= outOfSeasonPenalty
		}

		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].Item.UnitCost != candidates[j].Item.UnitCost {
			return candidates[i].Item.UnitCost < candidates[j].Item.UnitCost
		}
		return candidates[i].Item.ID < candidates[j].Item.ID
	})

	if len(candidates) > s.shortlistSize {
		candidates = candidates[:s.shortlistSize]
	}

	if s.enableDebugLogging && len(candidates) > 0 {
		log.Printf("[CANDIDATES] day=%d meal=%s component=%s pool=%d top=%q score=%.1f",
			req.Slot.Day, req.Slot.Meal, req.Component, len(pool),
			candidates[0].Item.ID, candidates[0].Score)
	}

	return candidates
}

// eligible applies the exclusion filter. When a template component has no
// eligible items in its category, the pool widens to the whole catalogue
// rather than leaving the slot unfillable.
func (s *CandidateService) eligible(
	cat domain.FoodCatalogue,
	cons *domain.Constraints,
	component domain.Category,
) []domain.FoodItem {
	var pool []domain.FoodItem
	if component != "" {
		pool = filterExcluded(cat.ByCategory(component), cons)
		if len(pool) > 0 {
			return pool
		}
	}
	return filterExcluded(cat.All(), cons)
}

func filterExcluded(items []domain.FoodItem, cons *domain.Constraints) []domain.FoodItem {
	out := make([]domain.FoodItem, 0, len(items))
	for i := range items {
		if !cons.Excluded(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out
}

func costRange(pool []domain.FoodItem) (min, max float64) {
	min, max = pool[0].UnitCost, pool[0].UnitCost
	for i := range pool {
		if pool[i].UnitCost < min {
			min = pool[i].UnitCost
		}
		if pool[i].UnitCost > max {
			max = pool[i].UnitCost
		}
	}
	return min, max
}

// costScore maps unit cost into 0-100 relative to the slot's pool, cheaper
// items scoring higher
func costScore(cost, min, max float64) float64 {
	if max <= min {
		return 100
	}
	return (max - cost) / (max - min) * 100
}

// nutritionScore measures how far one portion moves the still-unmet weekly
// requirements. Contribution past a nutrient's remaining gap counts for
// nothing, which gives the diminishing-returns shape.
func nutritionScore(nutrients, deficits domain.NutrientVector, quantity float64) float64 {
	if len(deficits) == 0 {
		return neutralNutritionScore
	}
	tracked, sum := 0, 0.0
	for nutrient, gap := range deficits {
		if gap <= 0 {
			continue
		}
		tracked++
		contribution := nutrients[nutrient] * quantity
		if contribution > gap {
			contribution = gap
		}
		sum += contribution / gap
	}
	if tracked == 0 {
		return neutralNutritionScore
	}
	return sum / float64(tracked) * 100
}

// diversityScore penalizes items used within the repetition window, scaled
// by slot distance: an item from the immediately preceding slot scores 0,
// one at the edge of the window scores just below 100. The window counts
// slots, not items, so multi-component meals do not shrink it.
func diversityScore(id string, recent [][]string, window int) float64 {
	for distance := 1; distance <= window && distance <= len(recent); distance++ {
		for _, used := range recent[len(recent)-distance] {
			if used == id {
				return 100 - repetitionPenaltyMax*float64(window-distance+1)/float64(window)
			}
		}
	}
	return 100
}
