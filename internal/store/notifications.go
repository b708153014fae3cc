package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
)

const notificationColumns = `id, title, message, type, priority, target_user_id, target_roles, category,
	action_url, action_data, is_read, is_broadcasted, broadcast_at, created_at, expires_at`

func scanNotification(row scanner) (*models.Notification, error) {
	n := &models.Notification{}
	var roles sql.NullString
	err := row.Scan(&n.ID, &n.Title, &n.Message, &n.Type, &n.Priority, &n.TargetUserID, &roles, &n.Category,
		&n.ActionURL, &n.ActionData, &n.IsRead, &n.IsBroadcasted, scanNullTime(&n.BroadcastAt),
		scanTime(&n.CreatedAt), scanNullTime(&n.ExpiresAt))
	if err != nil {
		return nil, err
	}
	if roles.Valid && roles.String != "" {
		if err := json.Unmarshal([]byte(roles.String), &n.TargetRoles); err != nil {
			return nil, fmt.Errorf("failed to decode target roles: %w", err)
		}
	}
	return n, nil
}

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	n.CreatedAt = s.clock.Now().UTC()
	if n.Type == "" {
		n.Type = models.NotificationInfo
	}
	if n.Priority == "" {
		n.Priority = models.SeverityMedium
	}
	var roles any
	if len(n.TargetRoles) > 0 {
		b, err := json.Marshal(n.TargetRoles)
		if err != nil {
			return err
		}
		roles = string(b)
	}

	query := `INSERT INTO notifications (title, message, type, priority, target_user_id, target_roles, category,
		action_url, action_data, is_read, is_broadcasted, broadcast_at, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query, n.Title, n.Message, n.Type, n.Priority, n.TargetUserID, roles,
		n.Category, n.ActionURL, n.ActionData, n.IsRead, n.IsBroadcasted, formatTimePtr(n.BroadcastAt),
		formatTime(n.CreatedAt), formatTimePtr(n.ExpiresAt))
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	n.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetNotification(ctx context.Context, id int64) (*models.Notification, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+notificationColumns+" FROM notifications WHERE id = ?", id)
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return n, err
}

// ListNotificationsForUser returns the user's own notifications plus broadcast ones, newest first.
func (s *Store) ListNotificationsForUser(ctx context.Context, userID int64, unreadOnly bool, page Page) ([]*models.Notification, error) {
	var c conds
	c.add("(target_user_id = ? OR target_user_id IS NULL)", userID)
	if unreadOnly {
		c.add("is_read = 0")
	}
	query := "SELECT " + notificationColumns + " FROM notifications" + c.where() +
		" ORDER BY created_at DESC, id DESC" + page.clause(&c)
	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flags a notification as read if it belongs to userID or is a broadcast.
func (s *Store) MarkNotificationRead(ctx context.Context, id, userID int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1
		WHERE id = ? AND (target_user_id = ? OR target_user_id IS NULL)`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return expectAffected(res)
}

func (s *Store) MarkNotificationBroadcast(ctx context.Context, n *models.Notification) error {
	now := s.clock.Now().UTC()
	res, err := s.db.ExecContext(ctx, "UPDATE notifications SET is_broadcasted = 1, broadcast_at = ? WHERE id = ?",
		formatTime(now), n.ID)
	if err != nil {
		return fmt.Errorf("failed to mark notification broadcast: %w", err)
	}
	n.IsBroadcasted, n.BroadcastAt = true, &now
	return expectAffected(res)
}
