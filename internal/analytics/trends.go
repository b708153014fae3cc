package analytics

import (
	"context"
	"slices"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/store"
	"github.com/samber/lo"
)

const monthLayout = "2006-01"

type DistributionMonth struct {
	Events            int     `json:"events"`
	Beneficiaries     int64   `json:"beneficiaries"`
	FoodDistributedKg float64 `json:"food_distributed_kg"`
}

type TrendSummary struct {
	TotalDisasters     int    `json:"total_disasters"`
	TotalDistributions int    `json:"total_distributions"`
	MostCommonDisaster string `json:"most_common_disaster"`
	TrendDirection     string `json:"trend_direction"`
}

type ClimateTrends struct {
	AnalysisPeriodMonths int                                    `json:"analysis_period_months"`
	DisasterTrends       map[string]map[models.DisasterType]int `json:"disaster_trends"`
	DistributionTrends   map[string]*DistributionMonth          `json:"food_distribution_trends"`
	Summary              TrendSummary                           `json:"summary"`
}

// Trends groups alerts and distributions of the last monthsBack 30-day months
// by calendar month.
func (s *Service) Trends(ctx context.Context, monthsBack int) (*ClimateTrends, error) {
	since := s.clock.Now().UTC().AddDate(0, 0, -monthsBack*30)

	alerts, err := s.store.ListAlerts(ctx, store.AlertFilter{Since: &since})
	if err != nil {
		return nil, err
	}
	distributions, err := s.store.ListDistributions(ctx, store.DistributionFilter{Since: &since})
	if err != nil {
		return nil, err
	}
	return buildTrends(monthsBack, alerts, distributions), nil
}

func buildTrends(monthsBack int, alerts []*models.DisasterAlert, distributions []*models.FoodDistribution) *ClimateTrends {
	t := &ClimateTrends{
		AnalysisPeriodMonths: monthsBack,
		DisasterTrends:       map[string]map[models.DisasterType]int{},
		DistributionTrends:   map[string]*DistributionMonth{},
	}

	for _, a := range alerts {
		month := a.CreatedAt.UTC().Format(monthLayout)
		if t.DisasterTrends[month] == nil {
			t.DisasterTrends[month] = map[models.DisasterType]int{}
		}
		t.DisasterTrends[month][a.DisasterType]++
	}

	for _, d := range distributions {
		month := d.ScheduledDate.UTC().Format(monthLayout)
		m := t.DistributionTrends[month]
		if m == nil {
			m = &DistributionMonth{}
			t.DistributionTrends[month] = m
		}
		m.Events++
		if d.ActualBeneficiaries != nil {
			m.Beneficiaries += *d.ActualBeneficiaries
		}
		if d.TotalWeightKg != nil {
			m.FoodDistributedKg += *d.TotalWeightKg
		}
	}

	t.Summary = TrendSummary{
		TotalDisasters:     len(alerts),
		TotalDistributions: len(distributions),
		MostCommonDisaster: mostCommonDisaster(alerts),
		TrendDirection:     trendDirection(t.DisasterTrends),
	}
	return t
}

// mostCommonDisaster breaks ties by declaration order of the disaster types.
func mostCommonDisaster(alerts []*models.DisasterAlert) string {
	if len(alerts) == 0 {
		return "None"
	}
	counts := lo.CountValuesBy(alerts, func(a *models.DisasterAlert) models.DisasterType { return a.DisasterType })

	best, bestN := models.DisasterType(""), 0
	for _, kind := range models.DisasterTypes {
		if counts[kind] > bestN {
			best, bestN = kind, counts[kind]
		}
	}
	if best == "" {
		// only unknown types were recorded
		return string(alerts[0].DisasterType)
	}
	return string(best)
}

// trendDirection compares the mean monthly alert count of the last three
// months on record against the first three.
func trendDirection(monthly map[string]map[models.DisasterType]int) string {
	if len(monthly) < 2 {
		return "Insufficient data"
	}

	months := lo.Keys(monthly)
	slices.Sort(months)
	totals := lo.Map(months, func(m string, _ int) float64 {
		return float64(lo.Sum(lo.Values(monthly[m])))
	})

	n := min(3, len(totals))
	recent := lo.Mean(totals[len(totals)-n:])
	earlier := lo.Mean(totals[:n])

	switch {
	case recent > earlier*1.2:
		return "Increasing"
	case recent < earlier*0.8:
		return "Decreasing"
	}
	return "Stable"
}
