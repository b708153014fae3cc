package api

import (
	"net/http"
	"time"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const backupRecentEvents = 10

type backupEvent struct {
	ID          int64   `json:"id"`
	EventType   string  `json:"event_type"`
	Description *string `json:"description"`
	CreatedAt   string  `json:"created_at"`
}

type realtimeCounts struct {
	ActiveConnections  int `json:"active_connections"`
	AuthenticatedUsers int `json:"authenticated_users"`
}

type backupSnapshot struct {
	GeneratedAt   string               `json:"generated_at"`
	UsersCount    int                  `json:"users_count"`
	ActiveAlerts  int                  `json:"active_alerts"`
	FoodItems     int                  `json:"food_items"`
	RecentEvents  []backupEvent        `json:"recent_events"`
	Realtime      realtimeCounts       `json:"realtime"`
	LatestChanges []models.ChangeEvent `json:"latest_changes"`
	Host          *models.HostStats    `json:"host"`
}

// handleBackup returns a lightweight JSON snapshot of the system. It does not
// dump the database.
func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := s.store.CountUsers(ctx)
	if err != nil {
		serverError(w, r, err)
		return
	}
	stats, err := s.store.AlertStats(ctx)
	if err != nil {
		serverError(w, r, err)
		return
	}
	items, err := s.store.CountInventory(ctx)
	if err != nil {
		serverError(w, r, err)
		return
	}
	events, err := s.store.RecentSystemEvents(ctx, backupRecentEvents)
	if err != nil {
		serverError(w, r, err)
		return
	}

	snap := backupSnapshot{
		GeneratedAt:  s.clock.Now().UTC().Format(time.RFC3339),
		UsersCount:   users,
		ActiveAlerts: stats.Active,
		FoodItems:    items,
		RecentEvents: lo.Map(events, func(e *models.SystemEvent, _ int) backupEvent {
			return backupEvent{
				ID:          e.ID,
				EventType:   e.EventType,
				Description: e.Description,
				CreatedAt:   e.CreatedAt.Format(time.RFC3339),
			}
		}),
		LatestChanges: []models.ChangeEvent{},
	}
	if s.rt.Registry != nil {
		snap.Realtime = realtimeCounts{
			ActiveConnections:  s.rt.Registry.Count(),
			AuthenticatedUsers: s.rt.Registry.AuthenticatedCount(),
		}
	}
	if s.rt.Relay != nil {
		snap.LatestChanges = s.rt.Relay.LatestChanges()
	}
	if s.monitor != nil {
		if host, ok := s.monitor.Latest(); ok {
			snap.Host = &host
		}
	}

	log.Info().Int64("user_id", currentUser(r).ID).Msg("admin backup snapshot generated")
	writeJSON(w, http.StatusOK, snap)
}
