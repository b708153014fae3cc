package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/geo"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
)

const alertColumns = `id, title, description, disaster_type, severity, location, latitude, longitude,
	radius_km, start_time, end_time, is_active, source, confidence_score, created_by, created_at, updated_at`

func scanAlert(row scanner) (*models.DisasterAlert, error) {
	a := &models.DisasterAlert{}
	var createdBy sql.NullInt64
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.DisasterType, &a.Severity, &a.Location,
		&a.Latitude, &a.Longitude, &a.RadiusKm, scanNullTime(&a.StartTime), scanNullTime(&a.EndTime),
		&a.IsActive, &a.Source, &a.ConfidenceScore, &createdBy, scanTime(&a.CreatedAt), scanTime(&a.UpdatedAt))
	if err != nil {
		return nil, err
	}
	a.CreatedBy = createdBy.Int64
	return a, nil
}

func (s *Store) CreateAlert(ctx context.Context, a *models.DisasterAlert) error {
	now := s.clock.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now

	query := `INSERT INTO disaster_alerts (title, description, disaster_type, severity, location, latitude,
		longitude, radius_km, start_time, end_time, is_active, source, confidence_score, created_by,
		created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query, a.Title, a.Description, a.DisasterType, a.Severity, a.Location,
		a.Latitude, a.Longitude, a.RadiusKm, formatTimePtr(a.StartTime), formatTimePtr(a.EndTime), a.IsActive,
		a.Source, a.ConfidenceScore, a.CreatedBy, formatTime(now), formatTime(now))
	if err != nil {
		return fmt.Errorf("failed to insert disaster alert: %w", err)
	}
	a.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetAlert(ctx context.Context, id int64) (*models.DisasterAlert, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+alertColumns+" FROM disaster_alerts WHERE id = ?", id)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// UpdateAlert writes the mutable fields of a.
func (s *Store) UpdateAlert(ctx context.Context, a *models.DisasterAlert) error {
	a.UpdatedAt = s.clock.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE disaster_alerts SET title = ?, description = ?, severity = ?,
		end_time = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		a.Title, a.Description, a.Severity, formatTimePtr(a.EndTime), a.IsActive, formatTime(a.UpdatedAt), a.ID)
	if err != nil {
		return fmt.Errorf("failed to update disaster alert: %w", err)
	}
	return expectAffected(res)
}

func (s *Store) DeleteAlert(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM disaster_alerts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete disaster alert: %w", err)
	}
	return expectAffected(res)
}

type AlertFilter struct {
	DisasterType models.DisasterType
	Severity     models.Severity
	ActiveOnly   bool
	Since        *time.Time
	Box          *geo.Box
	Page         Page
}

func (s *Store) ListAlerts(ctx context.Context, f AlertFilter) ([]*models.DisasterAlert, error) {
	var c conds
	if f.ActiveOnly {
		c.add("is_active = 1")
	}
	if f.DisasterType != "" {
		c.add("disaster_type = ?", f.DisasterType)
	}
	if f.Severity != "" {
		c.add("severity = ?", f.Severity)
	}
	if f.Since != nil {
		c.add("created_at >= ?", formatTime(*f.Since))
	}
	applyBox(&c, f.Box)

	query := "SELECT " + alertColumns + " FROM disaster_alerts" + c.where() +
		" ORDER BY created_at DESC, id DESC" + f.Page.clause(&c)
	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list disaster alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.DisasterAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

type AlertStats struct {
	Total        int                         `json:"total_alerts"`
	Active       int                         `json:"active_alerts"`
	RecentWeek   int                         `json:"recent_alerts_7_days"`
	ActiveByType map[models.DisasterType]int `json:"alerts_by_type"`
}

func (s *Store) AlertStats(ctx context.Context) (*AlertStats, error) {
	st := &AlertStats{ActiveByType: make(map[models.DisasterType]int, len(models.DisasterTypes))}
	for _, t := range models.DisasterTypes {
		st.ActiveByType[t] = 0
	}

	var err error
	if st.Total, err = s.count(ctx, "SELECT COUNT(*) FROM disaster_alerts"); err != nil {
		return nil, err
	}
	if st.Active, err = s.count(ctx, "SELECT COUNT(*) FROM disaster_alerts WHERE is_active = 1"); err != nil {
		return nil, err
	}
	weekAgo := s.clock.Now().UTC().AddDate(0, 0, -7)
	if st.RecentWeek, err = s.count(ctx, "SELECT COUNT(*) FROM disaster_alerts WHERE created_at >= ?", formatTime(weekAgo)); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT disaster_type, COUNT(*) FROM disaster_alerts
		WHERE is_active = 1 GROUP BY disaster_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to group alerts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t models.DisasterType
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		st.ActiveByType[t] = n
	}
	return st, rows.Err()
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
