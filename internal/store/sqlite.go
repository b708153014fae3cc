package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/auth"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/geo"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // Register sqlite driver
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

type Store struct {
	db    *sql.DB
	clock clockwork.Clock
}

type Option func(*Store)

// WithClock sets the time source used for created/updated timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

func New(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if err := initSchema(db); err != nil {
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	s := &Store{db: db, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func initSchema(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			username TEXT NOT NULL UNIQUE,
			full_name TEXT NOT NULL,
			hashed_password TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'community_leader',
			phone TEXT,
			organization TEXT,
			location TEXT,
			latitude REAL,
			longitude REAL,
			is_active INTEGER NOT NULL DEFAULT 1,
			is_verified INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS disaster_alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			description TEXT,
			disaster_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			location TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			radius_km REAL NOT NULL DEFAULT 10,
			start_time TEXT,
			end_time TEXT,
			is_active INTEGER NOT NULL DEFAULT 1,
			source TEXT,
			confidence_score REAL,
			created_by INTEGER REFERENCES users(id),
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS food_inventory (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			item_name TEXT NOT NULL,
			category TEXT,
			quantity REAL NOT NULL,
			unit TEXT NOT NULL,
			expiry_date TEXT,
			location TEXT NOT NULL,
			latitude REAL,
			longitude REAL,
			owner_organization TEXT,
			contact_person TEXT,
			contact_phone TEXT,
			contact_email TEXT,
			is_emergency_reserve INTEGER NOT NULL DEFAULT 0,
			is_available INTEGER NOT NULL DEFAULT 1,
			nutritional_value TEXT,
			storage_requirements TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS vulnerability_assessments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			community_name TEXT NOT NULL,
			location TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			population INTEGER,
			flood_risk TEXT NOT NULL DEFAULT 'low',
			drought_risk TEXT NOT NULL DEFAULT 'low',
			extreme_weather_risk TEXT NOT NULL DEFAULT 'low',
			food_access_score REAL,
			nutrition_diversity_score REAL,
			food_affordability_score REAL,
			poverty_rate REAL,
			unemployment_rate REAL,
			education_level REAL,
			healthcare_access REAL,
			road_access_quality REAL,
			water_infrastructure REAL,
			communication_coverage REAL,
			overall_vulnerability TEXT,
			climate_resilience_score REAL,
			food_security_score REAL,
			assessment_date TEXT NOT NULL,
			assessor_id INTEGER REFERENCES users(id),
			methodology TEXT,
			notes TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS food_distributions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_name TEXT NOT NULL,
			location TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			scheduled_date TEXT NOT NULL,
			duration_hours REAL NOT NULL DEFAULT 4,
			target_beneficiaries INTEGER,
			actual_beneficiaries INTEGER,
			food_items_distributed TEXT,
			total_weight_kg REAL,
			estimated_meals INTEGER,
			organizing_ngo TEXT,
			partner_organizations TEXT,
			volunteers_count INTEGER,
			status TEXT NOT NULL DEFAULT 'planned',
			completion_notes TEXT,
			feedback_score REAL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS emergency_responses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			disaster_alert_id INTEGER REFERENCES disaster_alerts(id),
			response_type TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'planned',
			priority TEXT NOT NULL DEFAULT 'medium',
			personnel_required INTEGER,
			vehicles_required INTEGER,
			supplies_needed TEXT NOT NULL DEFAULT '[]',
			estimated_duration_hours REAL,
			lead_organization TEXT,
			participating_organizations TEXT NOT NULL DEFAULT '[]',
			contact_person TEXT,
			contact_phone TEXT,
			staging_area TEXT,
			affected_areas TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT 'info',
			priority TEXT NOT NULL DEFAULT 'medium',
			target_user_id INTEGER REFERENCES users(id),
			target_roles TEXT,
			category TEXT,
			action_url TEXT,
			action_data TEXT,
			is_read INTEGER NOT NULL DEFAULT 0,
			is_broadcasted INTEGER NOT NULL DEFAULT 0,
			broadcast_at TEXT,
			created_at TEXT NOT NULL,
			expires_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS emergency_alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			alert_type TEXT NOT NULL,
			severity TEXT NOT NULL DEFAULT 'medium',
			location TEXT,
			latitude REAL,
			longitude REAL,
			affected_radius_km REAL,
			emergency_contact TEXT,
			response_instructions TEXT,
			evacuation_routes TEXT,
			is_active INTEGER NOT NULL DEFAULT 1,
			is_broadcasted INTEGER NOT NULL DEFAULT 0,
			broadcast_at TEXT,
			resolved_at TEXT,
			issued_by_user_id INTEGER NOT NULL REFERENCES users(id),
			affected_population_estimate INTEGER,
			confirmation_status TEXT NOT NULL DEFAULT 'unconfirmed',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS system_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type TEXT NOT NULL,
			description TEXT,
			details TEXT,
			user_id INTEGER REFERENCES users(id),
			ip_address TEXT,
			user_agent TEXT,
			affected_data_type TEXT,
			affected_record_id INTEGER,
			change_type TEXT,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_location ON disaster_alerts(latitude, longitude);`,
		`CREATE INDEX IF NOT EXISTS idx_inventory_location ON food_inventory(latitude, longitude);`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_target ON notifications(target_user_id);`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// SeedAdmin creates the initial admin account when the users table is empty.
func (s *Store) SeedAdmin(ctx context.Context, email, username, password string) error {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	u := &models.User{Email: email, Username: username, FullName: "Administrator", HashedPassword: hash, Role: models.RoleAdmin, IsActive: true, IsVerified: true}
	if err := s.CreateUser(ctx, u); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	log.Info().Str("username", username).Msg("seeded admin user")
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// conds accumulates WHERE clauses and their arguments.
type conds struct {
	clauses []string
	args    []any
}

func (c *conds) add(clause string, args ...any) {
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, args...)
}

func (c *conds) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// Page bounds a list query. A zero Limit means no limit.
type Page struct {
	Skip  int
	Limit int
}

func (p Page) clause(c *conds) string {
	limit := p.Limit
	if limit <= 0 {
		limit = -1
	}
	c.args = append(c.args, limit, p.Skip)
	return " LIMIT ? OFFSET ?"
}

// applyBox restricts rows to a latitude/longitude rectangle.
func applyBox(c *conds, b *geo.Box) {
	if b == nil {
		return
	}
	c.add("latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?", b.MinLat, b.MaxLat, b.MinLng, b.MaxLng)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toArgs[T any](vals []T) []any {
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = v
	}
	return args
}

func (s *Store) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	return n, nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func like(s string) string {
	return "%" + s + "%"
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type scanner interface {
	Scan(dest ...any) error
}
