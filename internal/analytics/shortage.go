package analytics

import (
	"context"
	"fmt"
	"slices"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/geo"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/store"
	"github.com/samber/lo"
)

type FoodShortageRisk struct {
	Location                 string                    `json:"location"`
	RiskLevel                models.VulnerabilityLevel `json:"risk_level"`
	EstimatedShortagePercent float64                   `json:"estimated_shortage_percent"`
	TimeframeDays            int                       `json:"timeframe_days"`
	RecommendedActions       []string                  `json:"recommended_actions"`
}

// ShortageRisks estimates the food shortage risk of every assessed community
// whose location matches, highest risk first.
func (s *Service) ShortageRisks(ctx context.Context, location string) ([]FoodShortageRisk, error) {
	assessments, err := s.store.ListAssessments(ctx, store.AssessmentFilter{Location: location})
	if err != nil {
		return nil, err
	}

	risks := lo.Map(assessments, func(a *models.VulnerabilityAssessment, _ int) FoodShortageRisk {
		return shortageRisk(a)
	})
	slices.SortStableFunc(risks, func(a, b FoodShortageRisk) int {
		return b.RiskLevel.Rank() - a.RiskLevel.Rank()
	})
	return risks, nil
}

func shortageRisk(a *models.VulnerabilityAssessment) FoodShortageRisk {
	factors := []float64{}
	if a.FoodSecurityScore != nil && *a.FoodSecurityScore != 0 {
		factors = append(factors, (100-*a.FoodSecurityScore)/100)
	}
	factors = append(factors, climateExposure(a)/100)
	if a.PovertyRate != nil && *a.PovertyRate != 0 {
		factors = append(factors, *a.PovertyRate/100)
	}

	overall := lo.Mean(factors)
	level := RiskLevel(overall)

	timeframe := 90
	switch level {
	case models.VulnerabilityVeryHigh:
		timeframe = 30
	case models.VulnerabilityHigh:
		timeframe = 60
	}

	return FoodShortageRisk{
		Location:                 fmt.Sprintf("%s, %s", a.CommunityName, a.Location),
		RiskLevel:                level,
		EstimatedShortagePercent: geo.Round(min(80, overall*100), 1),
		TimeframeDays:            timeframe,
		RecommendedActions:       Recommendations(a, overall),
	}
}

// Recommendations lists food security actions for a community at the given 0-1 risk.
func Recommendations(a *models.VulnerabilityAssessment, risk float64) []string {
	actions := []string{}
	if risk > 0.7 {
		actions = append(actions,
			"Establish emergency food distribution centers",
			"Create community food banks",
			"Implement early warning systems for food shortages")
	}
	if a.DroughtRisk.Rank() >= models.VulnerabilityHigh.Rank() {
		actions = append(actions,
			"Develop drought-resistant crop varieties",
			"Implement water conservation measures")
	}
	if a.PovertyRate != nil && *a.PovertyRate > 50 {
		actions = append(actions,
			"Provide food vouchers or cash transfer programs",
			"Support local food production initiatives")
	}
	if a.RoadAccessQuality != nil && *a.RoadAccessQuality != 0 && *a.RoadAccessQuality < 5 {
		actions = append(actions, "Improve transportation infrastructure for food delivery")
	}
	return actions
}
