package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/geo"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
)

const userColumns = `id, email, username, full_name, hashed_password, role, phone, organization,
	location, latitude, longitude, is_active, is_verified, created_at, updated_at`

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.FullName, &u.HashedPassword, &u.Role,
		&u.Phone, &u.Organization, &u.Location, &u.Latitude, &u.Longitude,
		&u.IsActive, &u.IsVerified, scanTime(&u.CreatedAt), scanTime(&u.UpdatedAt))
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	now := s.clock.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	query := `INSERT INTO users (email, username, full_name, hashed_password, role, phone, organization,
		location, latitude, longitude, is_active, is_verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query, u.Email, u.Username, u.FullName, u.HashedPassword, u.Role,
		u.Phone, u.Organization, u.Location, u.Latitude, u.Longitude, u.IsActive, u.IsVerified,
		formatTime(now), formatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	return err
}

// GetUserByUsername returns ErrNotFound when no such user exists.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, "username = ?", username)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email = ?", email)
}

func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

func (s *Store) getUser(ctx context.Context, cond string, arg any) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+cond, arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

// UserExists reports whether the email or username is already taken.
func (s *Store) UserExists(ctx context.Context, email, username string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE email = ? OR username = ?", email, username).Scan(&n)
	return n > 0, err
}

// UserFilter selects users for listing and coordination lookups.
type UserFilter struct {
	Roles      []models.Role
	ActiveOnly bool
	WithPhone  bool
	WithCoords bool
	Box        *geo.Box
	Page       Page
}

func (s *Store) ListUsers(ctx context.Context, f UserFilter) ([]*models.User, error) {
	var c conds
	if len(f.Roles) > 0 {
		c.add("role IN ("+placeholders(len(f.Roles))+")", toArgs(f.Roles)...)
	}
	if f.ActiveOnly {
		c.add("is_active = 1")
	}
	if f.WithPhone {
		c.add("phone IS NOT NULL")
	}
	if f.WithCoords {
		c.add("latitude IS NOT NULL AND longitude IS NOT NULL")
	}
	applyBox(&c, f.Box)

	query := "SELECT " + userColumns + " FROM users" + c.where() + " ORDER BY id" + f.Page.clause(&c)
	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListOrganizations returns distinct organizations of NGO and responder accounts.
func (s *Store) ListOrganizations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT organization FROM users
		WHERE organization IS NOT NULL AND organization != '' AND role IN (?, ?)`,
		models.RoleNGO, models.RoleEmergencyResponder)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM users")
}
