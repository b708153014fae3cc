package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
)

const distributionColumns = `id, event_name, location, latitude, longitude, scheduled_date, duration_hours,
	target_beneficiaries, actual_beneficiaries, food_items_distributed, total_weight_kg, estimated_meals,
	organizing_ngo, partner_organizations, volunteers_count, status, completion_notes, feedback_score,
	created_at, updated_at`

func scanDistribution(row scanner) (*models.FoodDistribution, error) {
	d := &models.FoodDistribution{}
	err := row.Scan(&d.ID, &d.EventName, &d.Location, &d.Latitude, &d.Longitude, scanTime(&d.ScheduledDate),
		&d.DurationHours, &d.TargetBeneficiaries, &d.ActualBeneficiaries, &d.FoodItemsDistributed,
		&d.TotalWeightKg, &d.EstimatedMeals, &d.OrganizingNGO, &d.PartnerOrganizations, &d.VolunteersCount,
		&d.Status, &d.CompletionNotes, &d.FeedbackScore, scanTime(&d.CreatedAt), scanTime(&d.UpdatedAt))
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) CreateDistribution(ctx context.Context, d *models.FoodDistribution) error {
	now := s.clock.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now
	if d.Status == "" {
		d.Status = "planned"
	}

	query := `INSERT INTO food_distributions (event_name, location, latitude, longitude, scheduled_date,
		duration_hours, target_beneficiaries, food_items_distributed, organizing_ngo, partner_organizations,
		volunteers_count, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query, d.EventName, d.Location, d.Latitude, d.Longitude,
		formatTime(d.ScheduledDate), d.DurationHours, d.TargetBeneficiaries, d.FoodItemsDistributed,
		d.OrganizingNGO, d.PartnerOrganizations, d.VolunteersCount, d.Status, formatTime(now), formatTime(now))
	if err != nil {
		return fmt.Errorf("failed to insert food distribution: %w", err)
	}
	d.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetDistribution(ctx context.Context, id int64) (*models.FoodDistribution, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+distributionColumns+" FROM food_distributions WHERE id = ?", id)
	d, err := scanDistribution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

func (s *Store) UpdateDistribution(ctx context.Context, d *models.FoodDistribution) error {
	d.UpdatedAt = s.clock.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE food_distributions SET scheduled_date = ?, actual_beneficiaries = ?,
		food_items_distributed = ?, total_weight_kg = ?, estimated_meals = ?, status = ?, completion_notes = ?,
		feedback_score = ?, updated_at = ? WHERE id = ?`,
		formatTime(d.ScheduledDate), d.ActualBeneficiaries, d.FoodItemsDistributed, d.TotalWeightKg,
		d.EstimatedMeals, d.Status, d.CompletionNotes, d.FeedbackScore, formatTime(d.UpdatedAt), d.ID)
	if err != nil {
		return fmt.Errorf("failed to update food distribution: %w", err)
	}
	return expectAffected(res)
}

type DistributionFilter struct {
	Status       string
	UpcomingOnly bool
	Organization string
	Since        *time.Time
	Page         Page
}

func (s *Store) ListDistributions(ctx context.Context, f DistributionFilter) ([]*models.FoodDistribution, error) {
	var c conds
	if f.Status != "" {
		c.add("status = ?", f.Status)
	}
	if f.UpcomingOnly {
		c.add("scheduled_date >= ?", formatTime(s.clock.Now()))
	}
	if f.Organization != "" {
		c.add("organizing_ngo LIKE ?", like(f.Organization))
	}
	if f.Since != nil {
		c.add("scheduled_date >= ?", formatTime(*f.Since))
	}

	query := "SELECT " + distributionColumns + " FROM food_distributions" + c.where() +
		" ORDER BY scheduled_date DESC, id DESC" + f.Page.clause(&c)
	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list food distributions: %w", err)
	}
	defer rows.Close()

	var out []*models.FoodDistribution
	for rows.Next() {
		d, err := scanDistribution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CountUpcomingDistributions counts planned or ongoing events scheduled from now on.
func (s *Store) CountUpcomingDistributions(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM food_distributions
		WHERE scheduled_date >= ? AND status IN ('planned', 'ongoing')`, formatTime(s.clock.Now()))
}

type DistributionSummary struct {
	TotalEvents        int   `json:"total_events"`
	CompletedEvents    int   `json:"completed_events"`
	UpcomingEvents     int   `json:"upcoming_events"`
	TotalBeneficiaries int64 `json:"total_beneficiaries_served"`
	EventsThisMonth    int   `json:"events_this_month"`
}

func (s *Store) DistributionSummary(ctx context.Context) (*DistributionSummary, error) {
	sum := &DistributionSummary{}
	var err error
	if sum.TotalEvents, err = s.count(ctx, "SELECT COUNT(*) FROM food_distributions"); err != nil {
		return nil, err
	}
	if sum.CompletedEvents, err = s.count(ctx, "SELECT COUNT(*) FROM food_distributions WHERE status = 'completed'"); err != nil {
		return nil, err
	}
	if sum.UpcomingEvents, err = s.CountUpcomingDistributions(ctx); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(actual_beneficiaries), 0) FROM food_distributions").
		Scan(&sum.TotalBeneficiaries); err != nil {
		return nil, fmt.Errorf("failed to sum beneficiaries: %w", err)
	}
	now := s.clock.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if sum.EventsThisMonth, err = s.count(ctx, "SELECT COUNT(*) FROM food_distributions WHERE scheduled_date >= ?", formatTime(monthStart)); err != nil {
		return nil, err
	}
	return sum, nil
}
