package analytics

import (
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/geo"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/samber/lo"
)

// LevelScore maps a vulnerability level onto 0-100. Unknown levels count as medium.
func LevelScore(v models.VulnerabilityLevel) float64 {
	switch v {
	case models.VulnerabilityLow:
		return 25
	case models.VulnerabilityMedium:
		return 50
	case models.VulnerabilityHigh:
		return 75
	case models.VulnerabilityVeryHigh:
		return 100
	}
	return 50
}

// RiskLevel buckets a 0-1 risk score.
func RiskLevel(score float64) models.VulnerabilityLevel {
	switch {
	case score >= 0.75:
		return models.VulnerabilityVeryHigh
	case score >= 0.6:
		return models.VulnerabilityHigh
	case score >= 0.4:
		return models.VulnerabilityMedium
	}
	return models.VulnerabilityLow
}

// climateExposure averages the flood, drought and extreme weather levels on 0-100.
func climateExposure(a *models.VulnerabilityAssessment) float64 {
	return lo.Mean([]float64{LevelScore(a.FloodRisk), LevelScore(a.DroughtRisk), LevelScore(a.ExtremeWeatherRisk)})
}

// present returns the values of the set pointers.
func present(vals ...*float64) []float64 {
	return lo.FilterMap(vals, func(v *float64, _ int) (float64, bool) {
		if v == nil {
			return 0, false
		}
		return *v, true
	})
}

// Score fills the derived scores of an assessment that the assessor left empty.
//
// Food security (0-100) is the mean of the 0-10 food access, nutrition
// diversity and affordability scores, times ten. Climate resilience (0-100)
// blends infrastructure quality (road, water, communication; 0-10 each) at 60%
// with the inverse of climate exposure at 40%, or is the inverse exposure
// alone when no infrastructure was rated. The overall level buckets the mean
// of climate exposure, food insecurity, poverty and lack of resilience.
func Score(a *models.VulnerabilityAssessment) {
	exposure := climateExposure(a)

	if a.FoodSecurityScore == nil {
		if food := present(a.FoodAccessScore, a.NutritionDiversityScore, a.FoodAffordabilityScore); len(food) > 0 {
			a.FoodSecurityScore = lo.ToPtr(geo.Round(clamp(lo.Mean(food)*10, 0, 100), 1))
		}
	}

	if a.ClimateResilienceScore == nil {
		resilience := 100 - exposure
		if infra := present(a.RoadAccessQuality, a.WaterInfrastructure, a.CommunicationCoverage); len(infra) > 0 {
			resilience = 0.6*clamp(lo.Mean(infra)*10, 0, 100) + 0.4*resilience
		}
		a.ClimateResilienceScore = lo.ToPtr(geo.Round(resilience, 1))
	}

	if a.OverallVulnerability == nil {
		factors := []float64{exposure / 100, (100 - *a.ClimateResilienceScore) / 100}
		if a.FoodSecurityScore != nil {
			factors = append(factors, (100-*a.FoodSecurityScore)/100)
		}
		if a.PovertyRate != nil {
			factors = append(factors, clamp(*a.PovertyRate, 0, 100)/100)
		}
		a.OverallVulnerability = lo.ToPtr(RiskLevel(lo.Mean(factors)))
	}
}

func clamp(v, low, high float64) float64 {
	return min(high, max(low, v))
}
