package api

import (
	"errors"
	"net/http"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/analytics"
)

const (
	defaultForecastDays     = 7
	defaultAllocationRadius = 25
	defaultTrendMonths      = 12
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	m, err := s.analytics.Dashboard(r.Context())
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handleForecast accepts lat and lng for compatibility; the simulation is not
// location specific.
func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	q.OptFloat("lat")
	q.OptFloat("lng")
	days := q.Int("days_ahead", defaultForecastDays)
	q.Min("days_ahead", days, 1)
	if !q.ok(w) {
		return
	}
	writeJSON(w, http.StatusOK, s.analytics.Forecast(days))
}

func (s *Server) handleShortageRisk(w http.ResponseWriter, r *http.Request) {
	risks, err := s.analytics.ShortageRisks(r.Context(), newQuery(r).String("location"))
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(risks))
}

func (s *Server) handleResourceAllocation(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	req := analytics.AllocationRequest{
		AlertID:  q.OptInt64("disaster_alert_id"),
		Lat:      q.OptFloat("lat"),
		Lng:      q.OptFloat("lng"),
		RadiusKm: q.Float("radius_km", defaultAllocationRadius),
	}
	if !q.ok(w) {
		return
	}

	plan, err := s.analytics.Allocate(r.Context(), req)
	if errors.Is(err, analytics.ErrLocationRequired) {
		writeError(w, http.StatusBadRequest, "Location coordinates are required")
		return
	}
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(plan))
}

func (s *Server) handleClimateTrends(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	months := q.Int("months_back", defaultTrendMonths)
	q.Min("months_back", months, 1)
	if !q.ok(w) {
		return
	}
	trends, err := s.analytics.Trends(r.Context(), months)
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trends)
}
