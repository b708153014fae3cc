package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
)

const responseColumns = `id, disaster_alert_id, response_type, status, priority, personnel_required,
	vehicles_required, supplies_needed, estimated_duration_hours, lead_organization,
	participating_organizations, contact_person, contact_phone, staging_area, affected_areas,
	created_at, updated_at`

var activeResponseStatuses = []string{"planned", "active"}

func scanResponse(row scanner) (*models.EmergencyResponse, error) {
	r := &models.EmergencyResponse{}
	var supplies, orgs, areas string
	err := row.Scan(&r.ID, &r.DisasterAlertID, &r.ResponseType, &r.Status, &r.Priority, &r.PersonnelRequired,
		&r.VehiclesRequired, &supplies, &r.EstimatedDurationHours, &r.LeadOrganization, &orgs,
		&r.ContactPerson, &r.ContactPhone, &r.StagingArea, &areas, scanTime(&r.CreatedAt), scanTime(&r.UpdatedAt))
	if err != nil {
		return nil, err
	}
	r.SuppliesNeeded = json.RawMessage(supplies)
	if err := decodeList(orgs, &r.ParticipatingOrganizations); err != nil {
		return nil, err
	}
	if err := decodeList(areas, &r.AffectedAreas); err != nil {
		return nil, err
	}
	return r, nil
}

func decodeList(raw string, dst *[]string) error {
	*dst = []string{}
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("failed to decode list column: %w", err)
	}
	return nil
}

func encodeList(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func encodeRaw(v json.RawMessage) string {
	if len(v) == 0 || string(v) == "null" {
		return "[]"
	}
	return string(v)
}

func (s *Store) CreateResponse(ctx context.Context, r *models.EmergencyResponse) error {
	now := s.clock.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	if r.Status == "" {
		r.Status = "planned"
	}
	if r.Priority == "" {
		r.Priority = models.SeverityMedium
	}
	r.SuppliesNeeded = json.RawMessage(encodeRaw(r.SuppliesNeeded))

	query := `INSERT INTO emergency_responses (disaster_alert_id, response_type, status, priority,
		personnel_required, vehicles_required, supplies_needed, estimated_duration_hours, lead_organization,
		participating_organizations, contact_person, contact_phone, staging_area, affected_areas,
		created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query, r.DisasterAlertID, r.ResponseType, r.Status, r.Priority,
		r.PersonnelRequired, r.VehiclesRequired, string(r.SuppliesNeeded), r.EstimatedDurationHours,
		r.LeadOrganization, encodeList(r.ParticipatingOrganizations), r.ContactPerson, r.ContactPhone,
		r.StagingArea, encodeList(r.AffectedAreas), formatTime(now), formatTime(now))
	if err != nil {
		return fmt.Errorf("failed to insert emergency response: %w", err)
	}
	r.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetResponse(ctx context.Context, id int64) (*models.EmergencyResponse, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+responseColumns+" FROM emergency_responses WHERE id = ?", id)
	r, err := scanResponse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func (s *Store) UpdateResponse(ctx context.Context, r *models.EmergencyResponse) error {
	r.UpdatedAt = s.clock.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE emergency_responses SET status = ?, personnel_required = ?,
		vehicles_required = ?, estimated_duration_hours = ?, contact_person = ?, contact_phone = ?,
		staging_area = ?, supplies_needed = ?, participating_organizations = ?, affected_areas = ?,
		updated_at = ? WHERE id = ?`,
		r.Status, r.PersonnelRequired, r.VehiclesRequired, r.EstimatedDurationHours, r.ContactPerson,
		r.ContactPhone, r.StagingArea, encodeRaw(r.SuppliesNeeded), encodeList(r.ParticipatingOrganizations),
		encodeList(r.AffectedAreas), formatTime(r.UpdatedAt), r.ID)
	if err != nil {
		return fmt.Errorf("failed to update emergency response: %w", err)
	}
	return expectAffected(res)
}

type ResponseFilter struct {
	Status       string
	ResponseType string
	Priority     models.Severity
	ActiveOnly   bool
	Page         Page
}

func (s *Store) ListResponses(ctx context.Context, f ResponseFilter) ([]*models.EmergencyResponse, error) {
	var c conds
	if f.Status != "" {
		c.add("status = ?", f.Status)
	}
	if f.ResponseType != "" {
		c.add("response_type = ?", f.ResponseType)
	}
	if f.Priority != "" {
		c.add("priority = ?", f.Priority)
	}
	if f.ActiveOnly {
		c.add("status IN ("+placeholders(len(activeResponseStatuses))+")", toArgs(activeResponseStatuses)...)
	}

	query := "SELECT " + responseColumns + " FROM emergency_responses" + c.where() +
		" ORDER BY created_at DESC, id DESC" + f.Page.clause(&c)
	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list emergency responses: %w", err)
	}
	defer rows.Close()

	var out []*models.EmergencyResponse
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListLeadOrganizations returns the distinct lead organizations, optionally for one response type.
func (s *Store) ListLeadOrganizations(ctx context.Context, responseType string) ([]string, error) {
	var c conds
	c.add("lead_organization IS NOT NULL AND lead_organization != ''")
	if responseType != "" {
		c.add("response_type = ?", responseType)
	}
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT lead_organization FROM emergency_responses"+c.where(), c.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list lead organizations: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}
