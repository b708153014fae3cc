package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
)

const emergencyAlertColumns = `id, title, message, alert_type, severity, location, latitude, longitude,
	affected_radius_km, emergency_contact, response_instructions, evacuation_routes, is_active, is_broadcasted,
	broadcast_at, resolved_at, issued_by_user_id, affected_population_estimate, confirmation_status,
	created_at, updated_at`

func scanEmergencyAlert(row scanner) (*models.EmergencyAlert, error) {
	a := &models.EmergencyAlert{}
	err := row.Scan(&a.ID, &a.Title, &a.Message, &a.AlertType, &a.Severity, &a.Location, &a.Latitude,
		&a.Longitude, &a.AffectedRadiusKm, &a.EmergencyContact, &a.ResponseInstructions, &a.EvacuationRoutes,
		&a.IsActive, &a.IsBroadcasted, scanNullTime(&a.BroadcastAt), scanNullTime(&a.ResolvedAt),
		&a.IssuedByUserID, &a.AffectedPopulationEstimate, &a.ConfirmationStatus,
		scanTime(&a.CreatedAt), scanTime(&a.UpdatedAt))
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Store) CreateEmergencyAlert(ctx context.Context, a *models.EmergencyAlert) error {
	now := s.clock.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	a.IsActive = true
	if a.Severity == "" {
		a.Severity = models.SeverityMedium
	}
	if a.ConfirmationStatus == "" {
		a.ConfirmationStatus = "unconfirmed"
	}

	query := `INSERT INTO emergency_alerts (title, message, alert_type, severity, location, latitude, longitude,
		affected_radius_km, emergency_contact, response_instructions, evacuation_routes, is_active,
		is_broadcasted, issued_by_user_id, affected_population_estimate, confirmation_status, created_at,
		updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query, a.Title, a.Message, a.AlertType, a.Severity, a.Location, a.Latitude,
		a.Longitude, a.AffectedRadiusKm, a.EmergencyContact, a.ResponseInstructions, a.EvacuationRoutes,
		a.IsActive, a.IsBroadcasted, a.IssuedByUserID, a.AffectedPopulationEstimate, a.ConfirmationStatus,
		formatTime(now), formatTime(now))
	if err != nil {
		return fmt.Errorf("failed to insert emergency alert: %w", err)
	}
	a.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetEmergencyAlert(ctx context.Context, id int64) (*models.EmergencyAlert, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+emergencyAlertColumns+" FROM emergency_alerts WHERE id = ?", id)
	a, err := scanEmergencyAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (s *Store) ListEmergencyAlerts(ctx context.Context, activeOnly bool, page Page) ([]*models.EmergencyAlert, error) {
	var c conds
	if activeOnly {
		c.add("is_active = 1")
	}
	query := "SELECT " + emergencyAlertColumns + " FROM emergency_alerts" + c.where() +
		" ORDER BY created_at DESC, id DESC" + page.clause(&c)
	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list emergency alerts: %w", err)
	}
	defer rows.Close()

	var out []*models.EmergencyAlert
	for rows.Next() {
		a, err := scanEmergencyAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) MarkEmergencyAlertBroadcast(ctx context.Context, a *models.EmergencyAlert) error {
	now := s.clock.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE emergency_alerts SET is_broadcasted = 1, broadcast_at = ?,
		updated_at = ? WHERE id = ?`, formatTime(now), formatTime(now), a.ID)
	if err != nil {
		return fmt.Errorf("failed to mark emergency alert broadcast: %w", err)
	}
	a.IsBroadcasted, a.BroadcastAt, a.UpdatedAt = true, &now, now
	return expectAffected(res)
}

// ResolveEmergencyAlert deactivates the alert and stamps resolved_at.
func (s *Store) ResolveEmergencyAlert(ctx context.Context, a *models.EmergencyAlert) error {
	now := s.clock.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE emergency_alerts SET is_active = 0, resolved_at = ?,
		updated_at = ? WHERE id = ?`, formatTime(now), formatTime(now), a.ID)
	if err != nil {
		return fmt.Errorf("failed to resolve emergency alert: %w", err)
	}
	a.IsActive, a.ResolvedAt, a.UpdatedAt = false, &now, now
	return expectAffected(res)
}
