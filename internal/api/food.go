package api

import (
	"cmp"
	"net/http"
	"slices"
	"time"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/geo"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/store"
	"github.com/samber/lo"
)

const (
	dataFoodInventory     = "food_inventory"
	dataFoodDistributions = "food_distributions"

	inventoryRadiusKm    = 50
	nearbyResourceRadius = 25
	defaultDurationHours = 4.0

	inventoryNotFound    = "Food inventory item not found"
	distributionNotFound = "Food distribution event not found"
)

type inventoryRequest struct {
	ItemName            string     `json:"item_name" validate:"required"`
	Category            *string    `json:"category"`
	Quantity            float64    `json:"quantity" validate:"gte=0"`
	Unit                string     `json:"unit" validate:"required"`
	ExpiryDate          *time.Time `json:"expiry_date"`
	Location            string     `json:"location" validate:"required"`
	Latitude            *float64   `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude           *float64   `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	OwnerOrganization   *string    `json:"owner_organization"`
	ContactPerson       *string    `json:"contact_person"`
	ContactPhone        *string    `json:"contact_phone"`
	ContactEmail        *string    `json:"contact_email" validate:"omitempty,email"`
	IsEmergencyReserve  bool       `json:"is_emergency_reserve"`
	NutritionalValue    *string    `json:"nutritional_value"`
	StorageRequirements *string    `json:"storage_requirements"`
}

type inventoryUpdate struct {
	Quantity      *float64   `json:"quantity" validate:"omitempty,gte=0"`
	ExpiryDate    *time.Time `json:"expiry_date"`
	IsAvailable   *bool      `json:"is_available"`
	ContactPerson *string    `json:"contact_person"`
	ContactPhone  *string    `json:"contact_phone"`
}

type distributionRequest struct {
	EventName            string     `json:"event_name" validate:"required"`
	Location             string     `json:"location" validate:"required"`
	Latitude             *float64   `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude            *float64   `json:"longitude" validate:"required,gte=-180,lte=180"`
	ScheduledDate        *time.Time `json:"scheduled_date" validate:"required"`
	DurationHours        *float64   `json:"duration_hours" validate:"omitempty,gt=0"`
	TargetBeneficiaries  *int64     `json:"target_beneficiaries" validate:"omitempty,gte=0"`
	FoodItemsDistributed *string    `json:"food_items_distributed"`
	OrganizingNGO        *string    `json:"organizing_ngo"`
	PartnerOrganizations *string    `json:"partner_organizations"`
	VolunteersCount      *int64     `json:"volunteers_count" validate:"omitempty,gte=0"`
}

type distributionUpdate struct {
	ScheduledDate        *time.Time `json:"scheduled_date"`
	ActualBeneficiaries  *int64     `json:"actual_beneficiaries" validate:"omitempty,gte=0"`
	FoodItemsDistributed *string    `json:"food_items_distributed"`
	TotalWeightKg        *float64   `json:"total_weight_kg" validate:"omitempty,gte=0"`
	EstimatedMeals       *int64     `json:"estimated_meals" validate:"omitempty,gte=0"`
	Status               *string    `json:"status" validate:"omitempty,oneof=planned ongoing completed cancelled"`
	CompletionNotes      *string    `json:"completion_notes"`
	FeedbackScore        *float64   `json:"feedback_score" validate:"omitempty,gte=0,lte=5"`
}

type nearbyResource struct {
	Resource   *models.FoodInventory `json:"resource"`
	DistanceKm float64               `json:"distance_km"`
}

func (s *Server) handleCreateInventory(w http.ResponseWriter, r *http.Request) {
	var req inventoryRequest
	if !s.decode(w, r, &req) {
		return
	}
	item := &models.FoodInventory{
		ItemName:            req.ItemName,
		Category:            req.Category,
		Quantity:            req.Quantity,
		Unit:                req.Unit,
		ExpiryDate:          req.ExpiryDate,
		Location:            req.Location,
		Latitude:            req.Latitude,
		Longitude:           req.Longitude,
		OwnerOrganization:   req.OwnerOrganization,
		ContactPerson:       req.ContactPerson,
		ContactPhone:        req.ContactPhone,
		ContactEmail:        req.ContactEmail,
		IsEmergencyReserve:  req.IsEmergencyReserve,
		IsAvailable:         true,
		NutritionalValue:    req.NutritionalValue,
		StorageRequirements: req.StorageRequirements,
	}
	if err := s.store.CreateInventory(r.Context(), item); err != nil {
		serverError(w, r, err)
		return
	}
	s.publishChange(dataFoodInventory, item.ID, models.ChangeCreate, "Food inventory added: "+item.ItemName)
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleListInventory(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := store.InventoryFilter{
		Category:      q.String("category"),
		Location:      q.String("location"),
		AvailableOnly: q.Bool("available_only", true),
		EmergencyOnly: q.Bool("emergency_only", false),
		Page:          q.Page(),
	}
	expiring := q.OptInt64("expiring_soon_days")
	lat, lng := q.OptFloat("lat"), q.OptFloat("lng")
	radius := q.Float("radius_km", inventoryRadiusKm)
	if !q.ok(w) {
		return
	}

	if expiring != nil {
		before := s.clock.Now().UTC().Add(time.Duration(*expiring) * 24 * time.Hour)
		f.ExpiringBefore = &before
	}
	geoFilter := lat != nil && lng != nil
	var center geo.Point
	if geoFilter {
		center = geo.Point{Lat: *lat, Lng: *lng}
		box := geo.BoxAround(center, radius)
		f.Box = &box
	}

	items, err := s.store.ListInventory(r.Context(), f)
	if err != nil {
		serverError(w, r, err)
		return
	}
	if geoFilter {
		items = lo.Filter(items, func(i *models.FoodInventory, _ int) bool {
			return i.Latitude != nil && i.Longitude != nil &&
				geo.Within(center, geo.Point{Lat: *i.Latitude, Lng: *i.Longitude}, radius)
		})
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

func (s *Server) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}
	item, err := s.store.GetInventory(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, inventoryNotFound)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleUpdateInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}
	var u inventoryUpdate
	if !s.decode(w, r, &u) {
		return
	}
	item, err := s.store.GetInventory(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, inventoryNotFound)
		return
	}

	if u.Quantity != nil {
		item.Quantity = *u.Quantity
	}
	if u.ExpiryDate != nil {
		item.ExpiryDate = u.ExpiryDate
	}
	if u.IsAvailable != nil {
		item.IsAvailable = *u.IsAvailable
	}
	if u.ContactPerson != nil {
		item.ContactPerson = u.ContactPerson
	}
	if u.ContactPhone != nil {
		item.ContactPhone = u.ContactPhone
	}
	if err := s.store.UpdateInventory(r.Context(), item); err != nil {
		writeStoreError(w, r, err, inventoryNotFound)
		return
	}
	s.publishChange(dataFoodInventory, item.ID, models.ChangeUpdate, "Food inventory updated: "+item.ItemName)
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}
	if err := s.store.DeleteInventory(r.Context(), id); err != nil {
		writeStoreError(w, r, err, inventoryNotFound)
		return
	}
	s.publishChange(dataFoodInventory, id, models.ChangeDelete, "Food inventory item deleted")
	writeJSON(w, http.StatusOK, message{Message: "Food inventory item deleted successfully"})
}

func (s *Server) handleCreateDistribution(w http.ResponseWriter, r *http.Request) {
	var req distributionRequest
	if !s.decode(w, r, &req) {
		return
	}
	d := &models.FoodDistribution{
		EventName:            req.EventName,
		Location:             req.Location,
		Latitude:             *req.Latitude,
		Longitude:            *req.Longitude,
		ScheduledDate:        req.ScheduledDate.UTC(),
		DurationHours:        defaultDurationHours,
		TargetBeneficiaries:  req.TargetBeneficiaries,
		FoodItemsDistributed: req.FoodItemsDistributed,
		OrganizingNGO:        req.OrganizingNGO,
		PartnerOrganizations: req.PartnerOrganizations,
		VolunteersCount:      req.VolunteersCount,
	}
	if req.DurationHours != nil {
		d.DurationHours = *req.DurationHours
	}
	if err := s.store.CreateDistribution(r.Context(), d); err != nil {
		serverError(w, r, err)
		return
	}
	s.publishChange(dataFoodDistributions, d.ID, models.ChangeCreate, "Distribution scheduled: "+d.EventName)
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleListDistributions(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := store.DistributionFilter{
		Status:       q.String("status_filter"),
		UpcomingOnly: q.Bool("upcoming_only", false),
		Organization: q.String("organization"),
		Page:         q.Page(),
	}
	if !q.ok(w) {
		return
	}
	events, err := s.store.ListDistributions(r.Context(), f)
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(events))
}

func (s *Server) handleGetDistribution(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	d, err := s.store.GetDistribution(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, distributionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleUpdateDistribution(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	var u distributionUpdate
	if !s.decode(w, r, &u) {
		return
	}
	d, err := s.store.GetDistribution(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, distributionNotFound)
		return
	}

	if u.ScheduledDate != nil {
		d.ScheduledDate = u.ScheduledDate.UTC()
	}
	if u.ActualBeneficiaries != nil {
		d.ActualBeneficiaries = u.ActualBeneficiaries
	}
	if u.FoodItemsDistributed != nil {
		d.FoodItemsDistributed = u.FoodItemsDistributed
	}
	if u.TotalWeightKg != nil {
		d.TotalWeightKg = u.TotalWeightKg
	}
	if u.EstimatedMeals != nil {
		d.EstimatedMeals = u.EstimatedMeals
	}
	if u.Status != nil {
		d.Status = *u.Status
	}
	if u.CompletionNotes != nil {
		d.CompletionNotes = u.CompletionNotes
	}
	if u.FeedbackScore != nil {
		d.FeedbackScore = u.FeedbackScore
	}
	if err := s.store.UpdateDistribution(r.Context(), d); err != nil {
		writeStoreError(w, r, err, distributionNotFound)
		return
	}
	s.publishChange(dataFoodDistributions, d.ID, models.ChangeUpdate, "Distribution updated: "+d.EventName)
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleInventorySummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.store.InventorySummary(r.Context())
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleDistributionSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.store.DistributionSummary(r.Context())
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleNearbyResources(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	lat, lng := q.OptFloat("lat"), q.OptFloat("lng")
	q.Require("lat", lat)
	q.Require("lng", lng)
	radius := q.Float("radius_km", nearbyResourceRadius)
	emergencyOnly := q.Bool("emergency_only", false)
	if !q.ok(w) {
		return
	}

	center := geo.Point{Lat: *lat, Lng: *lng}
	box := geo.BoxAround(center, radius)
	items, err := s.store.ListInventory(r.Context(), store.InventoryFilter{
		AvailableOnly: true,
		EmergencyOnly: emergencyOnly,
		WithCoords:    true,
		Box:           &box,
	})
	if err != nil {
		serverError(w, r, err)
		return
	}

	out := lo.FilterMap(items, func(i *models.FoodInventory, _ int) (nearbyResource, bool) {
		d := geo.Distance(center, geo.Point{Lat: *i.Latitude, Lng: *i.Longitude})
		return nearbyResource{Resource: i, DistanceKm: geo.Round(d, 2)}, d <= radius
	})
	slices.SortStableFunc(out, func(a, b nearbyResource) int { return cmp.Compare(a.DistanceKm, b.DistanceKm) })
	writeJSON(w, http.StatusOK, nonNil(out))
}
