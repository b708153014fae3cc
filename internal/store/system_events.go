package store

import (
	"context"
	"fmt"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
)

const systemEventColumns = `id, event_type, description, details, user_id, ip_address, user_agent,
	affected_data_type, affected_record_id, change_type, created_at`

func (s *Store) CreateSystemEvent(ctx context.Context, e *models.SystemEvent) error {
	e.CreatedAt = s.clock.Now().UTC()
	res, err := s.db.ExecContext(ctx, `INSERT INTO system_events (event_type, description, details, user_id,
		ip_address, user_agent, affected_data_type, affected_record_id, change_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.EventType, e.Description, e.Details, e.UserID, e.IPAddress, e.UserAgent, e.AffectedDataType,
		e.AffectedRecordID, e.ChangeType, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert system event: %w", err)
	}
	e.ID, err = res.LastInsertId()
	return err
}

// RecentSystemEvents returns the newest limit events.
func (s *Store) RecentSystemEvents(ctx context.Context, limit int) ([]*models.SystemEvent, error) {
	var c conds
	query := "SELECT " + systemEventColumns + " FROM system_events ORDER BY created_at DESC, id DESC" +
		Page{Limit: limit}.clause(&c)
	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list system events: %w", err)
	}
	defer rows.Close()

	var out []*models.SystemEvent
	for rows.Next() {
		e := &models.SystemEvent{}
		if err := rows.Scan(&e.ID, &e.EventType, &e.Description, &e.Details, &e.UserID, &e.IPAddress,
			&e.UserAgent, &e.AffectedDataType, &e.AffectedRecordID, &e.ChangeType, scanTime(&e.CreatedAt)); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
