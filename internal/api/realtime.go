package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const (
	dataEmergencyAlerts       = "emergency_alerts"
	defaultNotificationLimit  = 50
	defaultEmergencyListLimit = 20
)

type notificationRequest struct {
	Title        string                  `json:"title" validate:"required"`
	Message      string                  `json:"message" validate:"required"`
	Type         models.NotificationType `json:"type" validate:"omitempty,oneof=info warning success error emergency"`
	Priority     models.Severity         `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Category     *string                 `json:"category"`
	ActionURL    *string                 `json:"action_url"`
	ActionData   *string                 `json:"action_data"`
	TargetUserID *int64                  `json:"target_user_id" validate:"omitempty,gt=0"`
	TargetRoles  []models.Role           `json:"target_roles" validate:"omitempty,dive,oneof=admin ngo donor community_leader emergency_responder researcher farmer"`
	ExpiresAt    *time.Time              `json:"expires_at"`
}

type emergencyAlertRequest struct {
	Title                      string          `json:"title" validate:"required"`
	Message                    string          `json:"message" validate:"required"`
	AlertType                  string          `json:"alert_type" validate:"required"`
	Severity                   models.Severity `json:"severity" validate:"omitempty,oneof=low medium high critical"`
	Location                   *string         `json:"location"`
	Latitude                   *float64        `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude                  *float64        `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	AffectedRadiusKm           *float64        `json:"affected_radius_km" validate:"omitempty,gt=0"`
	EmergencyContact           *string         `json:"emergency_contact"`
	ResponseInstructions       *string         `json:"response_instructions"`
	EvacuationRoutes           *string         `json:"evacuation_routes"`
	AffectedPopulationEstimate *int64          `json:"affected_population_estimate" validate:"omitempty,gte=0"`
}

type systemEventRequest struct {
	EventType        string  `json:"event_type" validate:"required"`
	Description      *string `json:"description"`
	Details          *string `json:"details"`
	UserID           *int64  `json:"user_id"`
	IPAddress        *string `json:"ip_address"`
	UserAgent        *string `json:"user_agent"`
	AffectedDataType *string `json:"affected_data_type"`
	AffectedRecordID *int64  `json:"affected_record_id"`
	ChangeType       *string `json:"change_type"`
}

// handleWebSocket never rejects a connection for a bad token; it opens an
// anonymous one instead.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "connectionID")
	if id == "" {
		id = uuid.NewString()
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearerToken(r)
	}
	var p ws.Principal
	if token != "" {
		claims, err := s.auth.ValidateToken(token)
		if err != nil {
			log.Debug().Err(err).Str("connection_id", id).Msg("websocket token rejected, connecting anonymously")
		} else {
			p = ws.Principal{UserID: claims.UserID(), Role: claims.Role}
		}
	}

	s.rt.Endpoint.Serve(w, r, id, p)
}

func (s *Server) handleWSStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"active_connections":  s.rt.Registry.Count(),
		"authenticated_users": s.rt.Registry.AuthenticatedCount(),
		"status":              "operational",
	})
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	page := q.Page()
	if q.String("limit") == "" {
		page.Limit = defaultNotificationLimit
	}
	unreadOnly := q.Bool("unread_only", false)
	if !q.ok(w) {
		return
	}

	list, err := s.store.ListNotificationsForUser(r.Context(), currentUser(r).ID, unreadOnly, page)
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (s *Server) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if !s.decode(w, r, &req) {
		return
	}
	n := &models.Notification{
		Title:        req.Title,
		Message:      req.Message,
		Type:         lo.CoalesceOrEmpty(req.Type, models.NotificationInfo),
		Priority:     lo.CoalesceOrEmpty(req.Priority, models.SeverityMedium),
		Category:     req.Category,
		ActionURL:    req.ActionURL,
		ActionData:   req.ActionData,
		TargetUserID: req.TargetUserID,
		TargetRoles:  req.TargetRoles,
		ExpiresAt:    req.ExpiresAt,
	}
	if err := s.store.CreateNotification(r.Context(), n); err != nil {
		serverError(w, r, err)
		return
	}

	payload := map[string]any{
		"id":         n.ID,
		"title":      n.Title,
		"message":    n.Message,
		"type":       n.Type,
		"priority":   n.Priority,
		"category":   n.Category,
		"action_url": n.ActionURL,
		"created_at": n.CreatedAt.Format(time.RFC3339),
	}
	switch {
	case n.TargetUserID != nil:
		s.rt.Dispatcher.SendNotification(payload, *n.TargetUserID)
	case len(n.TargetRoles) > 0:
		s.rt.Dispatcher.BroadcastToRoles(payload, n.TargetRoles)
	default:
		s.rt.Dispatcher.SendNotification(payload, 0)
	}

	if err := s.store.MarkNotificationBroadcast(r.Context(), n); err != nil {
		log.Error().Err(err).Int64("notification_id", n.ID).Msg("failed to mark notification broadcast")
	}
	writeJSON(w, http.StatusCreated, n)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "notificationID")
	if !ok {
		return
	}
	if err := s.store.MarkNotificationRead(r.Context(), id, currentUser(r).ID); err != nil {
		writeStoreError(w, r, err, "Notification not found")
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "Notification marked as read"})
}

func (s *Server) handleCreateEmergencyAlert(w http.ResponseWriter, r *http.Request) {
	var req emergencyAlertRequest
	if !s.decode(w, r, &req) {
		return
	}
	a := &models.EmergencyAlert{
		Title:                      req.Title,
		Message:                    req.Message,
		AlertType:                  req.AlertType,
		Severity:                   lo.CoalesceOrEmpty(req.Severity, models.SeverityMedium),
		Location:                   req.Location,
		Latitude:                   req.Latitude,
		Longitude:                  req.Longitude,
		AffectedRadiusKm:           req.AffectedRadiusKm,
		EmergencyContact:           req.EmergencyContact,
		ResponseInstructions:       req.ResponseInstructions,
		EvacuationRoutes:           req.EvacuationRoutes,
		AffectedPopulationEstimate: req.AffectedPopulationEstimate,
		IssuedByUserID:             currentUser(r).ID,
	}
	if err := s.store.CreateEmergencyAlert(r.Context(), a); err != nil {
		serverError(w, r, err)
		return
	}

	s.rt.Dispatcher.SendEmergencyAlert(map[string]any{
		"id":                    a.ID,
		"title":                 a.Title,
		"message":               a.Message,
		"alert_type":            a.AlertType,
		"severity":              a.Severity,
		"location":              a.Location,
		"latitude":              a.Latitude,
		"longitude":             a.Longitude,
		"emergency_contact":     a.EmergencyContact,
		"response_instructions": a.ResponseInstructions,
		"created_at":            a.CreatedAt.Format(time.RFC3339),
	})
	if err := s.store.MarkEmergencyAlertBroadcast(r.Context(), a); err != nil {
		log.Error().Err(err).Int64("emergency_alert_id", a.ID).Msg("failed to mark emergency alert broadcast")
	}

	s.publishChange(dataEmergencyAlerts, a.ID, models.ChangeCreate, "Emergency alert issued: "+a.Title)
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleListEmergencyAlerts(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	activeOnly := q.Bool("active_only", true)
	page := q.Page()
	if q.String("limit") == "" {
		page.Limit = defaultEmergencyListLimit
	}
	if !q.ok(w) {
		return
	}

	list, err := s.store.ListEmergencyAlerts(r.Context(), activeOnly, page)
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (s *Server) handleResolveEmergencyAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "alertID")
	if !ok {
		return
	}
	a, err := s.store.GetEmergencyAlert(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "Emergency alert not found")
		return
	}
	if err := s.store.ResolveEmergencyAlert(r.Context(), a); err != nil {
		writeStoreError(w, r, err, "Emergency alert not found")
		return
	}

	s.rt.Dispatcher.SendNotification(map[string]any{
		"title":    "Alert Resolved: " + a.Title,
		"message":  fmt.Sprintf("The emergency alert for %s has been resolved.", lo.FromPtrOr(a.Location, "the affected area")),
		"type":     models.NotificationSuccess,
		"category": "emergency_alert",
		"alert_id": a.ID,
	}, 0)

	s.publishChange(dataEmergencyAlerts, a.ID, models.ChangeUpdate, "Emergency alert resolved: "+a.Title)
	writeJSON(w, http.StatusOK, message{Message: "Emergency alert resolved"})
}

func (s *Server) handleSystemEvent(w http.ResponseWriter, r *http.Request) {
	var req systemEventRequest
	if !s.decode(w, r, &req) {
		return
	}
	e := &models.SystemEvent{
		EventType:        req.EventType,
		Description:      req.Description,
		Details:          req.Details,
		UserID:           req.UserID,
		IPAddress:        req.IPAddress,
		UserAgent:        req.UserAgent,
		AffectedDataType: req.AffectedDataType,
		AffectedRecordID: req.AffectedRecordID,
		ChangeType:       req.ChangeType,
	}
	if u := currentUser(r); u != nil {
		e.UserID = &u.ID
	}
	if e.IPAddress == nil && r.RemoteAddr != "" {
		e.IPAddress = lo.ToPtr(r.RemoteAddr)
	}
	if e.UserAgent == nil && r.UserAgent() != "" {
		e.UserAgent = lo.ToPtr(r.UserAgent())
	}

	if err := s.store.CreateSystemEvent(r.Context(), e); err != nil {
		serverError(w, r, err)
		return
	}

	if lo.FromPtr(e.AffectedDataType) != "" && lo.FromPtr(e.ChangeType) != "" {
		s.publish(models.ChangeEvent{
			EventType:   e.EventType,
			DataType:    *e.AffectedDataType,
			RecordID:    lo.FromPtr(e.AffectedRecordID),
			ChangeType:  *e.ChangeType,
			Description: lo.FromPtr(e.Description),
		})
	}
	writeJSON(w, http.StatusCreated, e)
}
