package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/coordination"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/store"
)

const (
	dataResponses         = "emergency_responses"
	defaultMatrixRadiusKm = 50
)

type responseRequest struct {
	DisasterAlertID            *int64          `json:"disaster_alert_id"`
	ResponseType               string          `json:"response_type" validate:"required"`
	Priority                   models.Severity `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	PersonnelRequired          *int64          `json:"personnel_required" validate:"omitempty,gte=0"`
	VehiclesRequired           *int64          `json:"vehicles_required" validate:"omitempty,gte=0"`
	SuppliesNeeded             json.RawMessage `json:"supplies_needed"`
	EstimatedDurationHours     *float64        `json:"estimated_duration_hours" validate:"omitempty,gte=0"`
	LeadOrganization           *string         `json:"lead_organization"`
	ParticipatingOrganizations []string        `json:"participating_organizations"`
	ContactPerson              *string         `json:"contact_person"`
	ContactPhone               *string         `json:"contact_phone"`
	StagingArea                *string         `json:"staging_area"`
	AffectedAreas              []string        `json:"affected_areas"`
}

func (s *Server) handleCreateResponse(w http.ResponseWriter, r *http.Request) {
	var req responseRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp := &models.EmergencyResponse{
		DisasterAlertID:            req.DisasterAlertID,
		ResponseType:               req.ResponseType,
		Priority:                   req.Priority,
		PersonnelRequired:          req.PersonnelRequired,
		VehiclesRequired:           req.VehiclesRequired,
		SuppliesNeeded:             req.SuppliesNeeded,
		EstimatedDurationHours:     req.EstimatedDurationHours,
		LeadOrganization:           req.LeadOrganization,
		ParticipatingOrganizations: req.ParticipatingOrganizations,
		ContactPerson:              req.ContactPerson,
		ContactPhone:               req.ContactPhone,
		StagingArea:                req.StagingArea,
		AffectedAreas:              req.AffectedAreas,
	}
	if resp.Priority == "" {
		resp.Priority = models.SeverityMedium
	}

	err := s.coordination.CreateResponse(r.Context(), resp)
	if errors.Is(err, coordination.ErrAlertNotFound) {
		writeError(w, http.StatusNotFound, "Disaster alert not found")
		return
	}
	if err != nil {
		serverError(w, r, err)
		return
	}
	s.publishChange(dataResponses, resp.ID, models.ChangeCreate, "Emergency response created: "+resp.ResponseType)
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListResponses(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := store.ResponseFilter{
		Status:       q.String("status_filter"),
		ResponseType: q.String("response_type"),
		Priority:     models.Severity(q.String("priority")),
		ActiveOnly:   q.Bool("active_only", true),
		Page:         q.Page(),
	}
	if !q.ok(w) {
		return
	}
	list, err := s.store.ListResponses(r.Context(), f)
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (s *Server) handleUpdateResponse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "responseID")
	if !ok {
		return
	}
	var u coordination.ResponseUpdate
	if !s.decode(w, r, &u) {
		return
	}

	resp, err := s.coordination.UpdateResponse(r.Context(), id, u)
	if errors.Is(err, coordination.ErrResponseNotFound) {
		writeError(w, http.StatusNotFound, "Emergency response not found")
		return
	}
	if err != nil {
		serverError(w, r, err)
		return
	}
	s.publishChange(dataResponses, resp.ID, models.ChangeUpdate, "Emergency response updated: "+resp.Status)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := s.coordination.Organizations(r.Context(), newQuery(r).String("response_type"))
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(orgs))
}

func (s *Server) handleMatrix(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	req := coordination.MatrixRequest{
		AlertID:  q.OptInt64("disaster_alert_id"),
		Lat:      q.OptFloat("lat"),
		Lng:      q.OptFloat("lng"),
		RadiusKm: q.Float("radius_km", defaultMatrixRadiusKm),
	}
	if !q.ok(w) {
		return
	}

	m, err := s.coordination.Matrix(r.Context(), req)
	if errors.Is(err, coordination.ErrLocationRequired) {
		writeError(w, http.StatusBadRequest, "Location coordinates are required")
		return
	}
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleCoordinate(w http.ResponseWriter, r *http.Request) {
	var req coordination.CoordinationRequest
	if !s.decode(w, r, &req) {
		return
	}

	plan, err := s.coordination.Coordinate(r.Context(), currentUser(r), req)
	if errors.Is(err, coordination.ErrMissingField) {
		msg := err.Error()
		writeError(w, http.StatusBadRequest, strings.ToUpper(msg[:1])+msg[1:])
		return
	}
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// handleCommunicationTree accepts disaster_alert_id for compatibility; the
// tree is the same for every alert.
func (s *Server) handleCommunicationTree(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	responseID := q.OptInt64("emergency_response_id")
	q.OptInt64("disaster_alert_id")
	if !q.ok(w) {
		return
	}

	tree, err := s.coordination.CommunicationTree(r.Context(), responseID)
	if errors.Is(err, coordination.ErrResponseNotFound) {
		writeError(w, http.StatusNotFound, "Emergency response not found")
		return
	}
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}
