package analytics

import (
	"math/rand/v2"
	"slices"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/geo"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
)

type ClimateRisk struct {
	DisasterType  models.DisasterType `json:"disaster_type"`
	Probability   float64             `json:"probability"`
	Severity      models.Severity     `json:"severity"`
	TimeframeDays int                 `json:"timeframe_days"`
	Confidence    float64             `json:"confidence"`
}

// baseline probabilities for the simulated forecast, in evaluation order.
var forecastBaseline = []struct {
	kind models.DisasterType
	p    float64
}{
	{models.DisasterFlood, 0.15},
	{models.DisasterDrought, 0.25},
	{models.DisasterExtremeHeat, 0.30},
	{models.DisasterHurricane, 0.10},
	{models.DisasterWildfire, 0.08},
}

// Forecast simulates the climate risks for the next daysAhead days. The
// generator is seeded from the service clock, so a fixed clock yields a fixed
// forecast. Results are sorted by probability, highest first.
func (s *Service) Forecast(daysAhead int) []ClimateRisk {
	seed := uint64(s.clock.Now().UnixNano())
	return forecast(rand.New(rand.NewPCG(seed, seed>>32)), daysAhead)
}

func forecast(rng *rand.Rand, daysAhead int) []ClimateRisk {
	if daysAhead < 1 {
		daysAhead = 1
	}

	risks := []ClimateRisk{}
	for _, b := range forecastBaseline {
		p := min(1, max(0, b.p+(rng.Float64()-0.5)*0.2))
		if p <= 0.1 {
			continue
		}
		confidence := 0.6 + rng.Float64()*0.3
		risks = append(risks, ClimateRisk{
			DisasterType:  b.kind,
			Probability:   geo.Round(p, 2),
			Severity:      forecastSeverity(p),
			TimeframeDays: rng.IntN(daysAhead) + 1,
			Confidence:    geo.Round(confidence, 2),
		})
	}

	slices.SortStableFunc(risks, func(a, b ClimateRisk) int {
		switch {
		case a.Probability > b.Probability:
			return -1
		case a.Probability < b.Probability:
			return 1
		}
		return 0
	})
	return risks
}

func forecastSeverity(p float64) models.Severity {
	switch {
	case p > 0.8:
		return models.SeverityCritical
	case p > 0.6:
		return models.SeverityHigh
	case p > 0.3:
		return models.SeverityMedium
	}
	return models.SeverityLow
}
