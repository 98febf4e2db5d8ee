package usecase

import (
	"fmt"
	"log"
	"strings"

	"github.com/nutriplan/backend/internal/domain"
)

// referenceKey indexes the daily reference intake table
type referenceKey struct {
	Band domain.AgeBand
	Sex  domain.Sex
}

// referenceIntakes holds per-person daily nutrient bands by age band and
// sex. Values follow WHO/FAO-style recommended intakes; sodium is the only
// nutrient with a ceiling in the base table.
var referenceIntakes = map[referenceKey]domain.Requirements{
	{domain.AgeBandChild, domain.SexMale}: {
		domain.NutrientEnergyKcal:    {Min: 1400},
		domain.NutrientProteinG:      {Min: 19},
		domain.NutrientCarbohydrateG: {Min: 130},
		domain.NutrientFatG:          {Min: 35},
		domain.NutrientFiberG:        {Min: 19},
		domain.NutrientCalciumMg:     {Min: 700},
		domain.NutrientIronMg:        {Min: 9},
		domain.NutrientZincMg:        {Min: 4},
		domain.NutrientVitaminAUg:    {Min: 350},
		domain.NutrientVitaminCMg:    {Min: 25},
		domain.NutrientFolateUg:      {Min: 180},
		domain.NutrientSodiumMg:      {Max: 1500},
	},
	{domain.AgeBandChild, domain.SexFemale}: {
		domain.NutrientEnergyKcal:    {Min: 1300},
		domain.NutrientProteinG:      {Min: 19},
		domain.NutrientCarbohydrateG: {Min: 130},
		domain.NutrientFatG:          {Min: 33},
		domain.NutrientFiberG:        {Min: 19},
		domain.NutrientCalciumMg:     {Min: 700},
		domain.NutrientIronMg:        {Min: 9},
		domain.NutrientZincMg:        {Min: 4},
		domain.NutrientVitaminAUg:    {Min: 350},
		domain.NutrientVitaminCMg:    {Min: 25},
		domain.NutrientFolateUg:      {Min: 180},
		domain.NutrientSodiumMg:      {Max: 1500},
	},
	{domain.AgeBandAdolescent, domain.SexMale}: {
		domain.NutrientEnergyKcal:    {Min: 2400},
		domain.NutrientProteinG:      {Min: 45},
		domain.NutrientCarbohydrateG: {Min: 130},
		domain.NutrientFatG:          {Min: 60},
		domain.NutrientFiberG:        {Min: 30},
		domain.NutrientCalciumMg:     {Min: 1300},
		domain.NutrientIronMg:        {Min: 11},
		domain.NutrientZincMg:        {Min: 9},
		domain.NutrientVitaminAUg:    {Min: 600},
		domain.NutrientVitaminCMg:    {Min: 65},
		domain.NutrientFolateUg:      {Min: 330},
		domain.NutrientSodiumMg:      {Max: 2300},
	},
	{domain.AgeBandAdolescent, domain.SexFemale}: {
		domain.NutrientEnergyKcal:    {Min: 2000},
		domain.NutrientProteinG:      {Min: 44},
		domain.NutrientCarbohydrateG: {Min: 130},
		domain.NutrientFatG:          {Min: 55},
		domain.NutrientFiberG:        {Min: 26},
		domain.NutrientCalciumMg:     {Min: 1300},
		domain.NutrientIronMg:        {Min: 15},
		domain.NutrientZincMg:        {Min: 8},
		domain.NutrientVitaminAUg:    {Min: 600},
		domain.NutrientVitaminCMg:    {Min: 65},
		domain.NutrientFolateUg:      {Min: 330},
		domain.NutrientSodiumMg:      {Max: 2300},
	},
	{domain.AgeBandAdult, domain.SexMale}: {
		domain.NutrientEnergyKcal:    {Min: 2500},
		domain.NutrientProteinG:      {Min: 56},
		domain.NutrientCarbohydrateG: {Min: 130},
		domain.NutrientFatG:          {Min: 65},
		domain.NutrientFiberG:        {Min: 34},
		domain.NutrientCalciumMg:     {Min: 1000},
		domain.NutrientIronMg:        {Min: 8},
		domain.NutrientZincMg:        {Min: 11},
		domain.NutrientVitaminAUg:    {Min: 625},
		domain.NutrientVitaminCMg:    {Min: 90},
		domain.NutrientFolateUg:      {Min: 400},
		domain.NutrientSodiumMg:      {Max: 2300},
	},
	{domain.AgeBandAdult, domain.SexFemale}: {
		domain.NutrientEnergyKcal:    {Min: 2000},
		domain.NutrientProteinG:      {Min: 46},
		domain.NutrientCarbohydrateG: {Min: 130},
		domain.NutrientFatG:          {Min: 55},
		domain.NutrientFiberG:        {Min: 28},
		domain.NutrientCalciumMg:     {Min: 1000},
		domain.NutrientIronMg:        {Min: 18},
		domain.NutrientZincMg:        {Min: 8},
		domain.NutrientVitaminAUg:    {Min: 500},
		domain.NutrientVitaminCMg:    {Min: 75},
		domain.NutrientFolateUg:      {Min: 400},
		domain.NutrientSodiumMg:      {Max: 2300},
	},
	{domain.AgeBandElderly, domain.SexMale}: {
		domain.NutrientEnergyKcal:    {Min: 2200},
		domain.NutrientProteinG:      {Min: 56},
		domain.NutrientCarbohydrateG: {Min: 130},
		domain.NutrientFatG:          {Min: 55},
		domain.NutrientFiberG:        {Min: 30},
		domain.NutrientCalciumMg:     {Min: 1200},
		domain.NutrientIronMg:        {Min: 8},
		domain.NutrientZincMg:        {Min: 11},
		domain.NutrientVitaminAUg:    {Min: 625},
		domain.NutrientVitaminCMg:    {Min: 90},
		domain.NutrientFolateUg:      {Min: 400},
		domain.NutrientSodiumMg:      {Max: 2300},
	},
	{domain.AgeBandElderly, domain.SexFemale}: {
		domain.NutrientEnergyKcal:    {Min: 1800},
		domain.NutrientProteinG:      {Min: 46},
		domain.NutrientCarbohydrateG: {Min: 130},
		domain.NutrientFatG:          {Min: 50},
		domain.NutrientFiberG:        {Min: 26},
		domain.NutrientCalciumMg:     {Min: 1200},
		domain.NutrientIronMg:        {Min: 8},
		domain.NutrientZincMg:        {Min: 8},
		domain.NutrientVitaminAUg:    {Min: 500},
		domain.NutrientVitaminCMg:    {Min: 75},
		domain.NutrientFolateUg:      {Min: 400},
		domain.NutrientSodiumMg:      {Max: 2300},
	},
}

// stateAdjustments are additive daily-minimum adjustments for pregnancy and
// lactation, applied on top of the base table
var stateAdjustments = map[domain.PhysiologicalState]domain.NutrientVector{
	domain.StatePregnant: {
		domain.NutrientEnergyKcal: 300,
		domain.NutrientProteinG:   25,
		domain.NutrientIronMg:     9,
		domain.NutrientCalciumMg:  200,
		domain.NutrientFolateUg:   200,
		domain.NutrientZincMg:     3,
	},
	domain.StateLactating: {
		domain.NutrientEnergyKcal: 500,
		domain.NutrientProteinG:   25,
		domain.NutrientCalciumMg:  200,
		domain.NutrientVitaminAUg: 350,
		domain.NutrientVitaminCMg: 30,
		domain.NutrientZincMg:     4,
	},
}

// ConstraintConfig holds configuration for the constraint service
type ConstraintConfig struct {
	EnableDebugLogging bool
}

// ConstraintService turns a household profile into the concrete constraint
// set the optimizer works against
type ConstraintService struct {
	enableDebugLogging bool
}

// NewConstraintService creates a new constraint service
func NewConstraintService(config ConstraintConfig) *ConstraintService {
	return &ConstraintService{enableDebugLogging: config.EnableDebugLogging}
}

// Build derives household-level daily nutrient bands, the exclusion set,
// and the budget ceiling from a profile. Member requirements are summed;
// a nutrient ceiling is kept only when every member defines one.
func (s *ConstraintService) Build(profile *domain.HouseholdProfile) (*domain.Constraints, error) {
	if profile == nil || len(profile.Members) == 0 {
		return nil, fmt.Errorf("%w: member list is empty", domain.ErrInvalidProfile)
	}
	if profile.WeeklyBudget <= 0 {
		return nil, fmt.Errorf("%w: weekly budget must be positive, got %v",
			domain.ErrInvalidProfile, profile.WeeklyBudget)
	}

	daily := make(domain.Requirements)
	maxDefinedFor := make(map[string]int)

	for i, member := range profile.Members {
		base, ok := referenceIntakes[referenceKey{member.AgeBand, member.Sex}]
		if !ok {
			return nil, fmt.Errorf("%w: member %d has unknown age band %q / sex %q",
				domain.ErrInvalidProfile, i, member.AgeBand, member.Sex)
		}

		for nutrient, band := range base {
			current := daily[nutrient]
			current.Min += band.Min
			if band.Max > 0 {
				current.Max += band.Max
				maxDefinedFor[nutrient]++
			}
			daily[nutrient] = current
		}

		if adj, ok := stateAdjustments[member.State]; ok {
			for nutrient, delta := range adj {
				current := daily[nutrient]
				current.Min += delta
				daily[nutrient] = current
			}
		}
	}

	// Drop ceilings not defined for every member, they would understate the
	// household allowance
	for nutrient, band := range daily {
		if maxDefinedFor[nutrient] < len(profile.Members) {
			band.Max = 0
			daily[nutrient] = band
		}
		if band.Max > 0 && band.Min > band.Max {
			return nil, fmt.Errorf("reference table inconsistency for %s: min %v > max %v",
				nutrient, band.Min, band.Max)
		}
	}

	exclusions := make(map[string]bool, len(profile.Restrictions))
	for _, r := range profile.Restrictions {
		exclusions[strings.ToLower(strings.TrimSpace(r))] = true
	}

	if s.enableDebugLogging {
		log.Printf("[CONSTRAINTS] members=%d budget=%.2f nutrients=%d exclusions=%d",
			len(profile.Members), profile.WeeklyBudget, len(daily), len(exclusions))
	}

	return &domain.Constraints{
		Daily:        daily,
		Exclusions:   exclusions,
		WeeklyBudget: profile.WeeklyBudget,
		Region:       strings.ToLower(strings.TrimSpace(profile.Region)),
		Members:      len(profile.Members),
	}, nil
}
