package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nutriplan/backend/internal/domain"
	"github.com/nutriplan/backend/internal/infrastructure/planstore"
	"github.com/nutriplan/backend/internal/usecase"
)

// PlanRequest is the body of a plan-generation request. The household
// profile arrives fully structured; free-text preference parsing happens
// upstream of this service.
type PlanRequest struct {
	Household domain.HouseholdProfile   `json:"household" binding:"required"`
	Month     int                       `json:"month,omitempty"` // 1-12; defaults to the current month
	Weights   *usecase.ObjectiveWeights `json:"weights,omitempty"`
}

// PlanResponse bundles the generated plan with its derived artifacts
type PlanResponse struct {
	ID           string                 `json:"id"`
	GeneratedAt  time.Time              `json:"generatedAt"`
	Plan         *domain.MealPlan       `json:"plan"`
	ShoppingList *domain.ShoppingList   `json:"shoppingList"`
	Report       *domain.NutrientReport `json:"nutrientReport"`
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	planner   *usecase.PlannerService
	assembler *usecase.AssemblerService
	store     *planstore.MemoryStore
	catalogue domain.FoodCatalogue
}

// NewHandler creates a new HTTP handler
func NewHandler(
	planner *usecase.PlannerService,
	assembler *usecase.AssemblerService,
	store *planstore.MemoryStore,
	catalogue domain.FoodCatalogue,
) *Handler {
	return &Handler{
		planner:   planner,
		assembler: assembler,
		store:     store,
		catalogue: catalogue,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "nutriplan-backend",
		"version":   "1.0.0",
		"catalogue": h.catalogue.Len(),
	})
}

// GeneratePlan handles plan-generation requests
func (h *Handler) GeneratePlan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	month := req.Month
	if month < 1 || month > 12 {
		month = int(time.Now().Month())
	}

	plan, cons, err := h.planner.GeneratePlan(c.Request.Context(), &req.Household, usecase.PlanOptions{
		Month:   month,
		Weights: req.Weights,
	})
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	list, err := h.assembler.ShoppingList(plan)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	report, err := h.assembler.NutrientReport(plan, cons)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	response := &PlanResponse{
		ID:           uuid.New().String(),
		GeneratedAt:  time.Now().UTC(),
		Plan:         plan,
		ShoppingList: list,
		Report:       report,
	}
	h.store.Put(response.ID, response)

	c.JSON(http.StatusOK, response)
}

// GetPlan returns a previously generated plan by id
func (h *Handler) GetPlan(c *gin.Context) {
	id := c.Param("id")

	value, err := h.store.Get(id)
	if err != nil {
		if errors.Is(err, domain.ErrPlanNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, value)
}

// statusForError maps engine errors onto HTTP status codes. Input problems
// are 400, plans that cannot exist for the given inputs are 422.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidProfile), errors.Is(err, domain.ErrInvalidWeights):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInfeasibleBudget), errors.Is(err, domain.ErrEmptyCatalogue):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
