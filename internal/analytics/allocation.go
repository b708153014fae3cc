package analytics

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/geo"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/store"
	"github.com/samber/lo"
)

const (
	defaultPopulation  = 1000
	kgPerPersonPerDay  = 2
	supplyDays         = 7
	sourceRadiusFactor = 1.5
	maxSources         = 3
)

var ErrLocationRequired = errors.New("location coordinates are required")

type ResourceAllocation struct {
	Location           string          `json:"location"`
	Priority           models.Severity `json:"priority"`
	RequiredFoodKg     float64         `json:"required_food_kg"`
	AvailableFoodKg    float64         `json:"available_food_kg"`
	GapKg              float64         `json:"gap_kg"`
	RecommendedSources []string        `json:"recommended_sources"`
}

type AllocationRequest struct {
	AlertID  *int64
	Lat      *float64
	Lng      *float64
	RadiusKm float64
}

// Allocate plans a week of food for each vulnerable community around the
// target area. A known AlertID overrides the coordinates and radius.
func (s *Service) Allocate(ctx context.Context, req AllocationRequest) ([]ResourceAllocation, error) {
	if req.AlertID != nil {
		alert, err := s.store.GetAlert(ctx, *req.AlertID)
		switch {
		case err == nil:
			req.Lat, req.Lng, req.RadiusKm = &alert.Latitude, &alert.Longitude, alert.RadiusKm
		case !errors.Is(err, store.ErrNotFound):
			return nil, err
		}
	}
	if req.Lat == nil || req.Lng == nil {
		return nil, ErrLocationRequired
	}

	center := geo.Point{Lat: *req.Lat, Lng: *req.Lng}
	box := geo.BoxAround(center, req.RadiusKm)
	communities, err := s.store.ListAssessments(ctx, store.AssessmentFilter{
		Levels: []models.VulnerabilityLevel{models.VulnerabilityMedium, models.VulnerabilityHigh, models.VulnerabilityVeryHigh},
		Box:    &box,
	})
	if err != nil {
		return nil, err
	}

	foodBox := geo.BoxAround(center, req.RadiusKm*2)
	food, err := s.store.ListInventory(ctx, store.InventoryFilter{AvailableOnly: true, WithCoords: true, Box: &foodBox})
	if err != nil {
		return nil, err
	}

	allocations := []ResourceAllocation{}
	for _, c := range communities {
		p := geo.Point{Lat: c.Latitude, Lng: c.Longitude}
		if !geo.Within(center, p, req.RadiusKm) {
			continue
		}
		allocations = append(allocations, allocate(c, food, req.RadiusKm*sourceRadiusFactor))
	}

	slices.SortStableFunc(allocations, func(a, b ResourceAllocation) int {
		return b.Priority.Rank() - a.Priority.Rank()
	})
	return allocations, nil
}

type source struct {
	item     *models.FoodInventory
	distance float64
}

func allocate(c *models.VulnerabilityAssessment, food []*models.FoodInventory, sourceRadius float64) ResourceAllocation {
	population := int64(defaultPopulation)
	if c.Population != nil && *c.Population > 0 {
		population = *c.Population
	}

	var level models.VulnerabilityLevel
	if c.OverallVulnerability != nil {
		level = *c.OverallVulnerability
	}
	required := float64(population*kgPerPersonPerDay) * levelMultiplier(level) * supplyDays

	at := geo.Point{Lat: c.Latitude, Lng: c.Longitude}
	nearby := lo.FilterMap(food, func(f *models.FoodInventory, _ int) (source, bool) {
		d := geo.Distance(at, geo.Point{Lat: *f.Latitude, Lng: *f.Longitude})
		return source{item: f, distance: d}, d <= sourceRadius
	})
	available := lo.SumBy(nearby, func(s source) float64 {
		if s.item.InKilograms() {
			return s.item.Quantity
		}
		return 0
	})
	gap := max(0, required-available)

	var priority models.Severity
	switch {
	case level == models.VulnerabilityVeryHigh:
		priority = models.SeverityCritical
	case level == models.VulnerabilityHigh || gap > required*0.5:
		priority = models.SeverityHigh
	case gap > required*0.25:
		priority = models.SeverityMedium
	default:
		priority = models.SeverityLow
	}

	sources := []string{}
	if gap > 0 {
		slices.SortStableFunc(nearby, func(a, b source) int { return cmp.Compare(a.distance, b.distance) })
		for _, s := range nearby[:min(maxSources, len(nearby))] {
			org := "Unknown"
			if s.item.OwnerOrganization != nil && *s.item.OwnerOrganization != "" {
				org = *s.item.OwnerOrganization
			}
			sources = append(sources, fmt.Sprintf("%s - %s (%.1fkm)", org, s.item.Location, s.distance))
		}
	}

	return ResourceAllocation{
		Location:           fmt.Sprintf("%s, %s", c.CommunityName, c.Location),
		Priority:           priority,
		RequiredFoodKg:     geo.Round(required, 1),
		AvailableFoodKg:    geo.Round(available, 1),
		GapKg:              geo.Round(gap, 1),
		RecommendedSources: sources,
	}
}

func levelMultiplier(v models.VulnerabilityLevel) float64 {
	switch v {
	case models.VulnerabilityMedium:
		return 1.2
	case models.VulnerabilityHigh:
		return 1.5
	case models.VulnerabilityVeryHigh:
		return 2.0
	}
	return 1.0
}
