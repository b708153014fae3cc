package coordination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/geo"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/store"
	"github.com/samber/lo"
)

const (
	defaultPopulation  = 1000
	foodKgPerPerson    = 2.0
	waterLPerPerson    = 15.0
	personnelPerOrg    = 5
	minEmergencyStocks = 3
)

type MatrixRequest struct {
	AlertID  *int64
	Lat      *float64
	Lng      *float64
	RadiusKm float64
}

type AreaAnalysis struct {
	CenterLat         float64 `json:"center_lat"`
	CenterLng         float64 `json:"center_lng"`
	RadiusKm          float64 `json:"radius_km"`
	AnalysisTimestamp string  `json:"analysis_timestamp"`
}

type CommunityNeeds struct {
	FoodKgPerDay            float64  `json:"food_kg_per_day"`
	WaterLitersPerDay       float64  `json:"water_liters_per_day"`
	EstimatedPopulation     int64    `json:"estimated_population"`
	VulnerabilityMultiplier float64  `json:"vulnerability_multiplier"`
	PriorityItems           []string `json:"priority_items"`
}

type Community struct {
	Name               string         `json:"name"`
	Location           string         `json:"location"`
	Population         *int64         `json:"population"`
	VulnerabilityLevel string         `json:"vulnerability_level"`
	Lat                float64        `json:"lat"`
	Lng                float64        `json:"lng"`
	EstimatedNeeds     CommunityNeeds `json:"estimated_needs"`
}

type Resource struct {
	Item               string   `json:"item"`
	Quantity           float64  `json:"quantity"`
	Unit               string   `json:"unit"`
	Location           string   `json:"location"`
	Contact            *string  `json:"contact"`
	Phone              *string  `json:"phone"`
	Lat                *float64 `json:"lat"`
	Lng                *float64 `json:"lng"`
	IsEmergencyReserve bool     `json:"is_emergency_reserve"`
}

type ResponseOrganization struct {
	Organization  string      `json:"organization"`
	Role          models.Role `json:"role"`
	ContactPerson string      `json:"contact_person"`
	Phone         *string     `json:"phone"`
	Email         string      `json:"email"`
	Location      *string     `json:"location"`
	Lat           *float64    `json:"lat"`
	Lng           *float64    `json:"lng"`
}

type ActiveResponse struct {
	ID                int64           `json:"id"`
	Type              string          `json:"type"`
	Status            string          `json:"status"`
	Priority          models.Severity `json:"priority"`
	LeadOrg           *string         `json:"lead_org"`
	PersonnelRequired *int64          `json:"personnel_required"`
	VehiclesRequired  *int64          `json:"vehicles_required"`
}

type Matrix struct {
	AreaAnalysis          AreaAnalysis           `json:"area_analysis"`
	VulnerableCommunities []Community            `json:"vulnerable_communities"`
	AvailableResources    []Resource             `json:"available_resources"`
	ResponseOrganizations []ResponseOrganization `json:"response_organizations"`
	ActiveResponses       []ActiveResponse       `json:"active_responses"`
	CoordinationGaps      []string               `json:"coordination_gaps"`
}

// Matrix lines up the communities, stock, organisations and active responses
// around an area. Communities are taken within the radius, stock within 1.5x
// and organisations within 2x. A known AlertID overrides the coordinates.
func (s *Service) Matrix(ctx context.Context, req MatrixRequest) (*Matrix, error) {
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
	assessments, err := s.store.ListAssessments(ctx, store.AssessmentFilter{Box: &box})
	if err != nil {
		return nil, err
	}
	assessments = lo.Filter(assessments, func(a *models.VulnerabilityAssessment, _ int) bool {
		return geo.Within(center, geo.Point{Lat: a.Latitude, Lng: a.Longitude}, req.RadiusKm)
	})

	stockBox := geo.BoxAround(center, req.RadiusKm*1.5)
	stock, err := s.store.ListInventory(ctx, store.InventoryFilter{AvailableOnly: true, Box: &stockBox})
	if err != nil {
		return nil, err
	}
	stock = lo.Filter(stock, func(f *models.FoodInventory, _ int) bool {
		return geo.Within(center, geo.Point{Lat: *f.Latitude, Lng: *f.Longitude}, req.RadiusKm*1.5)
	})

	orgBox := geo.BoxAround(center, req.RadiusKm*2)
	users, err := s.store.ListUsers(ctx, store.UserFilter{Roles: responderRoles, WithCoords: true, Box: &orgBox})
	if err != nil {
		return nil, err
	}
	users = lo.Filter(users, func(u *models.User, _ int) bool {
		return geo.Within(center, geo.Point{Lat: *u.Latitude, Lng: *u.Longitude}, req.RadiusKm*2)
	})

	responses, err := s.store.ListResponses(ctx, store.ResponseFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	m := &Matrix{
		AreaAnalysis: AreaAnalysis{
			CenterLat:         center.Lat,
			CenterLng:         center.Lng,
			RadiusKm:          req.RadiusKm,
			AnalysisTimestamp: s.clock.Now().UTC().Format(time.RFC3339),
		},
		VulnerableCommunities: lo.Map(assessments, func(a *models.VulnerabilityAssessment, _ int) Community {
			level := "unknown"
			if a.OverallVulnerability != nil {
				level = string(*a.OverallVulnerability)
			}
			return Community{
				Name:               a.CommunityName,
				Location:           a.Location,
				Population:         a.Population,
				VulnerabilityLevel: level,
				Lat:                a.Latitude,
				Lng:                a.Longitude,
				EstimatedNeeds:     Needs(a),
			}
		}),
		AvailableResources: lo.Map(stock, func(f *models.FoodInventory, _ int) Resource {
			return Resource{
				Item:               f.ItemName,
				Quantity:           f.Quantity,
				Unit:               f.Unit,
				Location:           f.Location,
				Contact:            f.ContactPerson,
				Phone:              f.ContactPhone,
				Lat:                f.Latitude,
				Lng:                f.Longitude,
				IsEmergencyReserve: f.IsEmergencyReserve,
			}
		}),
		ResponseOrganizations: lo.FilterMap(users, func(u *models.User, _ int) (ResponseOrganization, bool) {
			if u.Organization == nil || *u.Organization == "" {
				return ResponseOrganization{}, false
			}
			return ResponseOrganization{
				Organization:  *u.Organization,
				Role:          u.Role,
				ContactPerson: u.FullName,
				Phone:         u.Phone,
				Email:         u.Email,
				Location:      u.Location,
				Lat:           u.Latitude,
				Lng:           u.Longitude,
			}, true
		}),
		ActiveResponses: lo.Map(responses, func(r *models.EmergencyResponse, _ int) ActiveResponse {
			return ActiveResponse{
				ID:                r.ID,
				Type:              r.ResponseType,
				Status:            r.Status,
				Priority:          r.Priority,
				LeadOrg:           r.LeadOrganization,
				PersonnelRequired: r.PersonnelRequired,
				VehiclesRequired:  r.VehiclesRequired,
			}
		}),
		CoordinationGaps: gaps(assessments, stock, users, responses),
	}
	return m, nil
}

// Needs estimates the daily food and water needs of a community. Unassessed
// communities are treated as medium.
func Needs(a *models.VulnerabilityAssessment) CommunityNeeds {
	population := int64(defaultPopulation)
	if a.Population != nil && *a.Population > 0 {
		population = *a.Population
	}

	level := models.VulnerabilityMedium
	if a.OverallVulnerability != nil {
		level = *a.OverallVulnerability
	}
	multiplier := needsMultiplier(level)

	items := []string{"Rice", "Beans", "Cooking oil", "Clean water"}
	if level.Rank() >= models.VulnerabilityHigh.Rank() {
		items = append(items, "Baby formula", "Medical supplies", "Blankets")
	}

	return CommunityNeeds{
		FoodKgPerDay:            geo.Round(float64(population)*foodKgPerPerson*multiplier, 1),
		WaterLitersPerDay:       geo.Round(float64(population)*waterLPerPerson*multiplier, 1),
		EstimatedPopulation:     population,
		VulnerabilityMultiplier: multiplier,
		PriorityItems:           items,
	}
}

func needsMultiplier(v models.VulnerabilityLevel) float64 {
	switch v {
	case models.VulnerabilityLow:
		return 1.0
	case models.VulnerabilityHigh:
		return 1.5
	case models.VulnerabilityVeryHigh:
		return 2.0
	}
	return 1.2
}

func gaps(communities []*models.VulnerabilityAssessment, stock []*models.FoodInventory, orgs []*models.User,
	responses []*models.EmergencyResponse) []string {
	out := []string{}

	if len(communities) > len(responses) {
		out = append(out, fmt.Sprintf("%d communities without assigned response", len(communities)-len(responses)))
	}

	reserves := lo.CountBy(stock, func(f *models.FoodInventory) bool { return f.IsEmergencyReserve })
	if reserves < minEmergencyStocks {
		out = append(out, "Insufficient emergency food reserves")
	}

	roles := lo.Map(orgs, func(u *models.User, _ int) models.Role { return u.Role })
	if !lo.Contains(roles, models.RoleEmergencyResponder) {
		out = append(out, "No emergency responders in area")
	}
	if !lo.Contains(roles, models.RoleNGO) {
		out = append(out, "No NGOs available for coordination")
	}

	personnel := lo.SumBy(responses, func(r *models.EmergencyResponse) int64 {
		if r.PersonnelRequired == nil {
			return 0
		}
		return *r.PersonnelRequired
	})
	if personnel > int64(len(orgs)*personnelPerOrg) {
		out = append(out, "Insufficient personnel for planned responses")
	}
	return out
}
