package api

import (
	"cmp"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/geo"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const (
	dataDisasterAlerts   = "disaster_alerts"
	defaultAlertRadiusKm = 10
	nearbyAlertRadiusKm  = 50
)

type alertRequest struct {
	Title                string              `json:"title" validate:"required,max=255"`
	Description          *string             `json:"description"`
	DisasterType         models.DisasterType `json:"disaster_type" validate:"required,oneof=flood drought hurricane wildfire earthquake extreme_heat extreme_cold food_shortage"`
	Severity             models.Severity     `json:"severity" validate:"required,oneof=low medium high critical"`
	Location             string              `json:"location" validate:"required"`
	Latitude             *float64            `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude            *float64            `json:"longitude" validate:"required,gte=-180,lte=180"`
	RadiusKm             *float64            `json:"radius_km" validate:"omitempty,gt=0"`
	StartTime            *time.Time          `json:"start_time"`
	EndTime              *time.Time          `json:"end_time"`
	Source               *string             `json:"source"`
	ConfidenceScore      *float64            `json:"confidence_score" validate:"omitempty,gte=0,lte=1"`
	EmergencyContact     *string             `json:"emergency_contact"`
	ResponseInstructions *string             `json:"response_instructions"`
}

type alertUpdate struct {
	Title       *string          `json:"title" validate:"omitempty,max=255"`
	Description *string          `json:"description"`
	Severity    *models.Severity `json:"severity" validate:"omitempty,oneof=low medium high critical"`
	EndTime     *time.Time       `json:"end_time"`
	IsActive    *bool            `json:"is_active"`
}

type nearbyAlert struct {
	Alert      *models.DisasterAlert `json:"alert"`
	DistanceKm float64               `json:"distance_km"`
}

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var req alertRequest
	if !s.decode(w, r, &req) {
		return
	}
	user := currentUser(r)

	alert := &models.DisasterAlert{
		Title:           req.Title,
		Description:     req.Description,
		DisasterType:    req.DisasterType,
		Severity:        req.Severity,
		Location:        req.Location,
		Latitude:        *req.Latitude,
		Longitude:       *req.Longitude,
		RadiusKm:        defaultAlertRadiusKm,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		IsActive:        true,
		Source:          req.Source,
		ConfidenceScore: req.ConfidenceScore,
		CreatedBy:       user.ID,
	}
	if req.RadiusKm != nil {
		alert.RadiusKm = *req.RadiusKm
	}
	if err := s.store.CreateAlert(r.Context(), alert); err != nil {
		serverError(w, r, err)
		return
	}

	notification := alertNotification(alert, user)
	if err := s.store.CreateNotification(r.Context(), notification); err != nil {
		log.Error().Err(err).Int64("alert_id", alert.ID).Msg("failed to persist alert notification")
	}

	if s.rt.Dispatcher != nil {
		s.rt.Dispatcher.SendDisasterAlert(alertPayload(alert, user), notificationBlock(notification))
		if alert.Severity.Urgent() {
			s.rt.Dispatcher.SendEmergencyAlert(map[string]any{
				"id":                    alert.ID,
				"title":                 alert.Title,
				"message":               lo.FromPtr(alert.Description),
				"alert_type":            alert.DisasterType,
				"severity":              alert.Severity,
				"location":              alert.Location,
				"latitude":              alert.Latitude,
				"longitude":             alert.Longitude,
				"emergency_contact":     req.EmergencyContact,
				"response_instructions": req.ResponseInstructions,
				"created_at":            alert.CreatedAt.Format(time.RFC3339),
			})
		}
	}
	if notification.ID > 0 {
		if err := s.store.MarkNotificationBroadcast(r.Context(), notification); err != nil {
			log.Error().Err(err).Int64("notification_id", notification.ID).Msg("failed to mark notification broadcast")
		}
	}

	s.publishChange(dataDisasterAlerts, alert.ID, models.ChangeCreate, "Disaster alert created: "+alert.Title)
	log.Info().Int64("alert_id", alert.ID).Str("severity", string(alert.Severity)).Msg("disaster alert created")
	writeJSON(w, http.StatusCreated, alert)
}

// alertNotification is the broadcast notification row recorded for a new alert.
// notificationBlock is the notification attached to a disaster_alert. An
// unpersisted notification has no id to offer, so none is attached.
func notificationBlock(n *models.Notification) any {
	if n.ID == 0 {
		return nil
	}
	return map[string]any{
		"id":       n.ID,
		"title":    n.Title,
		"message":  n.Message,
		"type":     n.Type,
		"priority": n.Priority,
		"category": n.Category,
	}
}

func alertNotification(a *models.DisasterAlert, creator *models.User) *models.Notification {
	by := creator.Username
	if creator.Organization != nil && *creator.Organization != "" {
		by = *creator.Organization
	}
	title := fmt.Sprintf("🚨 New %s Alert by %s", titleCase(string(a.DisasterType)), by)

	msg := a.Title
	if a.Description != nil && *a.Description != "" {
		msg += ": " + *a.Description
	}
	msg += fmt.Sprintf(" (Location: %s)", a.Location)

	priority := models.SeverityMedium
	if a.Severity.Urgent() {
		priority = models.SeverityHigh
	}
	return &models.Notification{
		Title:     title,
		Message:   msg,
		Type:      models.NotificationEmergency,
		Priority:  priority,
		Category:  lo.ToPtr("disaster_alert"),
		ActionURL: lo.ToPtr("/disasters/alerts/" + strconv.FormatInt(a.ID, 10)),
	}
}

func alertPayload(a *models.DisasterAlert, creator *models.User) map[string]any {
	return map[string]any{
		"id":                      a.ID,
		"title":                   a.Title,
		"description":             a.Description,
		"disaster_type":           a.DisasterType,
		"severity":                a.Severity,
		"location":                a.Location,
		"latitude":                a.Latitude,
		"longitude":               a.Longitude,
		"created_by":              creator.Username,
		"created_by_role":         creator.Role,
		"created_by_organization": creator.Organization,
		"created_at":              a.CreatedAt.Format(time.RFC3339),
	}
}

// titleCase capitalises each underscore-separated word: extreme_heat becomes Extreme_Heat.
func titleCase(s string) string {
	parts := strings.Split(s, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "_")
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := store.AlertFilter{
		DisasterType: models.DisasterType(q.String("disaster_type")),
		Severity:     models.Severity(q.String("severity")),
		ActiveOnly:   q.Bool("active_only", true),
		Page:         q.Page(),
	}
	lat, lng, radius := q.OptFloat("lat"), q.OptFloat("lng"), q.OptFloat("radius_km")
	if !q.ok(w) {
		return
	}

	geoFilter := lat != nil && lng != nil && radius != nil
	var center geo.Point
	if geoFilter {
		center = geo.Point{Lat: *lat, Lng: *lng}
		box := geo.BoxAround(center, *radius)
		f.Box = &box
	}

	alerts, err := s.store.ListAlerts(r.Context(), f)
	if err != nil {
		serverError(w, r, err)
		return
	}
	if geoFilter {
		alerts = lo.Filter(alerts, func(a *models.DisasterAlert, _ int) bool {
			return geo.Within(center, geo.Point{Lat: a.Latitude, Lng: a.Longitude}, *radius)
		})
	}
	writeJSON(w, http.StatusOK, nonNil(alerts))
}

func (s *Server) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "alertID")
	if !ok {
		return
	}
	alert, err := s.store.GetAlert(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "Disaster alert not found")
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

// editableAlert loads the alert and checks the caller may change it.
func (s *Server) editableAlert(w http.ResponseWriter, r *http.Request, action string) (*models.DisasterAlert, bool) {
	id, ok := pathID(w, r, "alertID")
	if !ok {
		return nil, false
	}
	alert, err := s.store.GetAlert(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "Disaster alert not found")
		return nil, false
	}
	user := currentUser(r)
	if alert.CreatedBy != user.ID && user.Role != models.RoleAdmin {
		writeError(w, http.StatusForbidden, "Not enough permissions to "+action+" this alert")
		return nil, false
	}
	return alert, true
}

func (s *Server) handleUpdateAlert(w http.ResponseWriter, r *http.Request) {
	alert, ok := s.editableAlert(w, r, "update")
	if !ok {
		return
	}
	var u alertUpdate
	if !s.decode(w, r, &u) {
		return
	}

	if u.Title != nil {
		alert.Title = *u.Title
	}
	if u.Description != nil {
		alert.Description = u.Description
	}
	if u.Severity != nil {
		alert.Severity = *u.Severity
	}
	if u.EndTime != nil {
		alert.EndTime = u.EndTime
	}
	if u.IsActive != nil {
		alert.IsActive = *u.IsActive
	}
	if err := s.store.UpdateAlert(r.Context(), alert); err != nil {
		writeStoreError(w, r, err, "Disaster alert not found")
		return
	}

	s.publishChange(dataDisasterAlerts, alert.ID, models.ChangeUpdate, "Disaster alert updated: "+alert.Title)
	writeJSON(w, http.StatusOK, alert)
}

func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	alert, ok := s.editableAlert(w, r, "delete")
	if !ok {
		return
	}
	if err := s.store.DeleteAlert(r.Context(), alert.ID); err != nil {
		writeStoreError(w, r, err, "Disaster alert not found")
		return
	}

	s.publishChange(dataDisasterAlerts, alert.ID, models.ChangeDelete, "Disaster alert deleted: "+alert.Title)
	writeJSON(w, http.StatusOK, message{Message: "Disaster alert deleted successfully"})
}

func (s *Server) handleNearbyAlerts(w http.ResponseWriter, r *http.Request) {
	lat, err1 := strconv.ParseFloat(chi.URLParam(r, "lat"), 64)
	lng, err2 := strconv.ParseFloat(chi.URLParam(r, "lng"), 64)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusUnprocessableEntity, []fieldError{{Loc: "path", Msg: "latitude and longitude must be numbers"}})
		return
	}
	q := newQuery(r)
	radius := q.Float("radius_km", nearbyAlertRadiusKm)
	activeOnly := q.Bool("active_only", true)
	if !q.ok(w) {
		return
	}

	center := geo.Point{Lat: lat, Lng: lng}
	box := geo.BoxAround(center, radius)
	alerts, err := s.store.ListAlerts(r.Context(), store.AlertFilter{ActiveOnly: activeOnly, Box: &box})
	if err != nil {
		serverError(w, r, err)
		return
	}

	out := lo.FilterMap(alerts, func(a *models.DisasterAlert, _ int) (nearbyAlert, bool) {
		d := geo.Distance(center, geo.Point{Lat: a.Latitude, Lng: a.Longitude})
		return nearbyAlert{Alert: a, DistanceKm: geo.Round(d, 2)}, d <= radius
	})
	slices.SortStableFunc(out, func(a, b nearbyAlert) int { return cmp.Compare(a.DistanceKm, b.DistanceKm) })
	writeJSON(w, http.StatusOK, nonNil(out))
}

func (s *Server) handleAlertStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.AlertStats(r.Context())
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
