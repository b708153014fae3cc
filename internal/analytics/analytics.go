// Package analytics derives dashboards, risk estimates and allocation plans
// from the persisted alerts, inventory and vulnerability assessments.
package analytics

import (
	"context"
	"fmt"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/store"
	"github.com/jonboulle/clockwork"
)

// LowReserveThreshold is the quantity under which an emergency reserve counts as low.
const LowReserveThreshold = 100

type Service struct {
	store *store.Store
	clock clockwork.Clock
}

func NewService(st *store.Store, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{store: st, clock: clock}
}

type DashboardMetrics struct {
	ActiveAlerts          int     `json:"active_alerts"`
	TotalFoodInventoryKg  float64 `json:"total_food_inventory_kg"`
	CommunitiesAssessed   int     `json:"communities_assessed"`
	UpcomingDistributions int     `json:"upcoming_distributions"`
	HighRiskCommunities   int     `json:"high_risk_communities"`
	EmergencyReservesLow  int     `json:"emergency_reserves_low"`
}

func (s *Service) Dashboard(ctx context.Context) (*DashboardMetrics, error) {
	stats, err := s.store.AlertStats(ctx)
	if err != nil {
		return nil, err
	}

	m := &DashboardMetrics{ActiveAlerts: stats.Active}
	if m.TotalFoodInventoryKg, err = s.store.AvailableKilograms(ctx); err != nil {
		return nil, fmt.Errorf("failed to sum inventory: %w", err)
	}
	if m.CommunitiesAssessed, err = s.store.CountAssessments(ctx); err != nil {
		return nil, err
	}
	if m.UpcomingDistributions, err = s.store.CountUpcomingDistributions(ctx); err != nil {
		return nil, err
	}
	if m.HighRiskCommunities, err = s.store.CountAssessments(ctx, models.VulnerabilityHigh, models.VulnerabilityVeryHigh); err != nil {
		return nil, err
	}
	if m.EmergencyReservesLow, err = s.store.CountLowReserves(ctx, LowReserveThreshold); err != nil {
		return nil, err
	}
	return m, nil
}
