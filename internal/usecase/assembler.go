package usecase

import (
	"fmt"
	"sort"

	"github.com/nutriplan/backend/internal/domain"
)

// AssemblerService aggregates a finished plan into a shopping list and a
// nutrient-adequacy report. Pure aggregation; no selection logic.
type AssemblerService struct{}

// NewAssemblerService creates a new assembler service
func NewAssemblerService() *AssemblerService {
	return &AssemblerService{}
}

// ShoppingList sums plan item quantities by food id across all slots, with
// a cost breakdown by category. Items come back sorted by category, then id.
func (s *AssemblerService) ShoppingList(plan *domain.MealPlan) (*domain.ShoppingList, error) {
	if err := validatePlan(plan); err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.ShoppingItem)
	for i := range plan.Entries {
		for _, item := range plan.Entries[i].Items {
			agg, ok := byID[item.FoodID]
			if !ok {
				agg = &domain.ShoppingItem{
					FoodID:   item.FoodID,
					Name:     item.Name,
					Category: item.Category,
				}
				byID[item.FoodID] = agg
			}
			agg.Quantity += item.Quantity
			agg.Cost += item.Cost
		}
	}

	list := &domain.ShoppingList{
		Items:         make([]domain.ShoppingItem, 0, len(byID)),
		CategoryCosts: make(map[domain.Category]float64),
	}
	for _, agg := range byID {
		list.Items = append(list.Items, *agg)
		list.CategoryCosts[agg.Category] += agg.Cost
		list.TotalCost += agg.Cost
	}

	sort.Slice(list.Items, func(i, j int) bool {
		if list.Items[i].Category != list.Items[j].Category {
			return list.Items[i].Category < list.Items[j].Category
		}
		return list.Items[i].FoodID < list.Items[j].FoodID
	})

	return list, nil
}

// NutrientReport compares the plan's achieved weekly totals against the
// household requirements, row per nutrient in sorted order
func (s *AssemblerService) NutrientReport(
	plan *domain.MealPlan,
	cons *domain.Constraints,
) (*domain.NutrientReport, error) {
	if err := validatePlan(plan); err != nil {
		return nil, err
	}

	horizon := float64(plan.HorizonDays)

	nutrients := make([]string, 0, len(cons.Daily))
	for nutrient := range cons.Daily {
		nutrients = append(nutrients, nutrient)
	}
	sort.Strings(nutrients)

	report := &domain.NutrientReport{
		Rows:          make([]domain.NutrientReportRow, 0, len(nutrients)),
		DailyAverages: make(domain.NutrientVector),
	}

	for _, nutrient := range nutrients {
		band := cons.Daily[nutrient]
		achieved := plan.WeeklyTotals[nutrient]
		row := domain.NutrientReportRow{
			Nutrient:    nutrient,
			Achieved:    achieved,
			RequiredMin: band.Min * horizon,
			RequiredMax: band.Max * horizon,
			Status:      domain.NutrientOK,
		}
		if row.RequiredMin > 0 {
			row.PercentOfMin = achieved / row.RequiredMin * 100
			if achieved < row.RequiredMin {
				row.Status = domain.NutrientBelowMin
			}
		}
		if row.RequiredMax > 0 && achieved > row.RequiredMax {
			row.Status = domain.NutrientAboveMax
		}
		report.Rows = append(report.Rows, row)
	}

	for nutrient, total := range plan.WeeklyTotals {
		report.DailyAverages[nutrient] = total / horizon
	}

	return report, nil
}

func validatePlan(plan *domain.MealPlan) error {
	if plan == nil {
		return fmt.Errorf("%w: plan is nil", domain.ErrMalformedPlan)
	}
	if len(plan.Entries) != plan.SlotCount() {
		return fmt.Errorf("%w: %d entries for %d slots",
			domain.ErrMalformedPlan, len(plan.Entries), plan.SlotCount())
	}
	return nil
}
