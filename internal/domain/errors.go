package domain

import "errors"

var (
	// ErrInvalidProfile is returned when a household profile has no members
	// or a non-positive weekly budget
	ErrInvalidProfile = errors.New("invalid household profile")

	// ErrInvalidWeights is returned when objective weights do not sum to 1.0
	ErrInvalidWeights = errors.New("objective weights must sum to 1.0")

	// ErrInfeasibleBudget is returned when even the cheapest full-week plan
	// exceeds the budget beyond the configured tolerance
	ErrInfeasibleBudget = errors.New("budget infeasible for any full-week plan")

	// ErrEmptyCatalogue is returned when no food items survive filtering
	ErrEmptyCatalogue = errors.New("no eligible items in food catalogue")

	// ErrMalformedPlan is returned when a plan's slot count does not match
	// its declared horizon and meal schedule
	ErrMalformedPlan = errors.New("malformed meal plan")

	// ErrPlanNotFound is returned when a stored plan cannot be found
	ErrPlanNotFound = errors.New("plan not found")

	// ErrPriceFeedFailure is returned when the market price feed request fails
	ErrPriceFeedFailure = errors.New("price feed request failed")
)
