package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/nutriplan/backend/config"
	httpDelivery "github.com/nutriplan/backend/internal/delivery/http"
	"github.com/nutriplan/backend/internal/domain"
	"github.com/nutriplan/backend/internal/infrastructure/catalogue"
	"github.com/nutriplan/backend/internal/infrastructure/planstore"
	"github.com/nutriplan/backend/internal/infrastructure/prices"
	"github.com/nutriplan/backend/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting NutriPlan Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)

	cat, err := catalogue.LoadFile(cfg.Catalogue.Path)
	if err != nil {
		log.Fatalf("Failed to load food catalogue: %v", err)
	}
	log.Printf("Catalogue: %d items from %s", cat.Len(), cfg.Catalogue.Path)

	// Price feed is optional; catalogue costs stand when it is absent or down
	if cfg.Prices.URL != "" {
		applyPriceSnapshot(cfg, cat)
	}

	planner := usecase.NewPlannerService(cat, usecase.PlannerConfig{
		HorizonDays:      cfg.Planner.HorizonDays,
		MealSchedule:     mealSchedule(cfg.Planner.MealSchedule),
		RepetitionWindow: cfg.Planner.RepetitionWindow,
		ShortlistSize:    cfg.Planner.ShortlistSize,
		Weights: usecase.ObjectiveWeights{
			Cost:      cfg.Planner.CostWeight,
			Nutrition: cfg.Planner.NutritionWeight,
			Diversity: cfg.Planner.DiversityWeight,
		},
		BudgetTolerance:        cfg.Planner.BudgetTolerance,
		MaxSubstitutions:       cfg.Planner.MaxSubstitutions,
		BidirectionalBorrowing: cfg.Planner.Borrowing == "bidirectional",
		EnableDebugLogging:     cfg.Planner.Debug,
	})

	log.Printf("Planner: horizon=%dd meals=%v weights=%.1f/%.1f/%.1f borrowing=%s",
		cfg.Planner.HorizonDays, cfg.Planner.MealSchedule,
		cfg.Planner.CostWeight, cfg.Planner.NutritionWeight, cfg.Planner.DiversityWeight,
		cfg.Planner.Borrowing)

	assembler := usecase.NewAssemblerService()
	store := planstore.NewMemoryStore(cfg.Store.TTL)

	handler := httpDelivery.NewHandler(planner, assembler, store, cat)
	router := httpDelivery.SetupRouter(cfg, handler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// applyPriceSnapshot pulls the current month's market prices and overwrites
// catalogue unit costs before the engine starts serving
func applyPriceSnapshot(cfg *config.Config, cat *catalogue.MemoryCatalogue) {
	client := prices.NewClient(cfg.Prices.APIKey, cfg.Prices.URL)
	if cfg.Server.Environment == "development" {
		client.SetDebug(true)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	snapshot, err := client.FetchSnapshot(ctx, int(time.Now().Month()))
	if err != nil {
		log.Printf("WARNING: price feed unavailable, using catalogue costs: %v", err)
		return
	}

	updated := cat.ApplyPrices(snapshot)
	log.Printf("Prices: applied snapshot month=%d, %d items updated", snapshot.Month, updated)
}

func mealSchedule(names []string) []domain.MealType {
	schedule := make([]domain.MealType, 0, len(names))
	for _, name := range names {
		schedule = append(schedule, domain.MealType(name))
	}
	return schedule
}

func init() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
