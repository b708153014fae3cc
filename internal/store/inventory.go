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

const inventoryColumns = `id, item_name, category, quantity, unit, expiry_date, location, latitude, longitude,
	owner_organization, contact_person, contact_phone, contact_email, is_emergency_reserve, is_available,
	nutritional_value, storage_requirements, created_at, updated_at`

func scanInventory(row scanner) (*models.FoodInventory, error) {
	f := &models.FoodInventory{}
	err := row.Scan(&f.ID, &f.ItemName, &f.Category, &f.Quantity, &f.Unit, scanNullTime(&f.ExpiryDate),
		&f.Location, &f.Latitude, &f.Longitude, &f.OwnerOrganization, &f.ContactPerson, &f.ContactPhone,
		&f.ContactEmail, &f.IsEmergencyReserve, &f.IsAvailable, &f.NutritionalValue, &f.StorageRequirements,
		scanTime(&f.CreatedAt), scanTime(&f.UpdatedAt))
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Store) CreateInventory(ctx context.Context, f *models.FoodInventory) error {
	now := s.clock.Now().UTC()
	f.CreatedAt, f.UpdatedAt = now, now

	query := `INSERT INTO food_inventory (item_name, category, quantity, unit, expiry_date, location, latitude,
		longitude, owner_organization, contact_person, contact_phone, contact_email, is_emergency_reserve,
		is_available, nutritional_value, storage_requirements, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query, f.ItemName, f.Category, f.Quantity, f.Unit, formatTimePtr(f.ExpiryDate),
		f.Location, f.Latitude, f.Longitude, f.OwnerOrganization, f.ContactPerson, f.ContactPhone, f.ContactEmail,
		f.IsEmergencyReserve, f.IsAvailable, f.NutritionalValue, f.StorageRequirements, formatTime(now), formatTime(now))
	if err != nil {
		return fmt.Errorf("failed to insert food inventory: %w", err)
	}
	f.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetInventory(ctx context.Context, id int64) (*models.FoodInventory, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+inventoryColumns+" FROM food_inventory WHERE id = ?", id)
	f, err := scanInventory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return f, err
}

func (s *Store) UpdateInventory(ctx context.Context, f *models.FoodInventory) error {
	f.UpdatedAt = s.clock.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE food_inventory SET quantity = ?, expiry_date = ?, is_available = ?,
		contact_person = ?, contact_phone = ?, updated_at = ? WHERE id = ?`,
		f.Quantity, formatTimePtr(f.ExpiryDate), f.IsAvailable, f.ContactPerson, f.ContactPhone,
		formatTime(f.UpdatedAt), f.ID)
	if err != nil {
		return fmt.Errorf("failed to update food inventory: %w", err)
	}
	return expectAffected(res)
}

func (s *Store) DeleteInventory(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM food_inventory WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete food inventory: %w", err)
	}
	return expectAffected(res)
}

type InventoryFilter struct {
	Category       string
	Location       string
	AvailableOnly  bool
	EmergencyOnly  bool
	ExpiringBefore *time.Time
	WithCoords     bool
	Box            *geo.Box
	Page           Page
}

func (s *Store) ListInventory(ctx context.Context, f InventoryFilter) ([]*models.FoodInventory, error) {
	var c conds
	if f.AvailableOnly {
		c.add("is_available = 1")
	}
	if f.EmergencyOnly {
		c.add("is_emergency_reserve = 1")
	}
	if f.Category != "" {
		c.add("category LIKE ?", like(f.Category))
	}
	if f.Location != "" {
		c.add("location LIKE ?", like(f.Location))
	}
	if f.ExpiringBefore != nil {
		c.add("expiry_date IS NOT NULL AND expiry_date <= ?", formatTime(*f.ExpiringBefore))
	}
	if f.WithCoords || f.Box != nil {
		c.add("latitude IS NOT NULL AND longitude IS NOT NULL")
	}
	applyBox(&c, f.Box)

	query := "SELECT " + inventoryColumns + " FROM food_inventory" + c.where() +
		" ORDER BY created_at DESC, id DESC" + f.Page.clause(&c)
	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list food inventory: %w", err)
	}
	defer rows.Close()

	var items []*models.FoodInventory
	for rows.Next() {
		f, err := scanInventory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

type CategoryTotal struct {
	Category      string  `json:"category"`
	TotalQuantity float64 `json:"total_quantity"`
	ItemCount     int     `json:"item_count"`
}

type InventorySummary struct {
	TotalItems        int             `json:"total_items"`
	AvailableItems    int             `json:"available_items"`
	EmergencyReserves int             `json:"emergency_reserves"`
	ExpiringSoon      int             `json:"expiring_soon_30_days"`
	Categories        []CategoryTotal `json:"category_breakdown"`
}

func (s *Store) InventorySummary(ctx context.Context) (*InventorySummary, error) {
	sum := &InventorySummary{Categories: []CategoryTotal{}}
	var err error
	if sum.TotalItems, err = s.count(ctx, "SELECT COUNT(*) FROM food_inventory"); err != nil {
		return nil, err
	}
	if sum.AvailableItems, err = s.count(ctx, "SELECT COUNT(*) FROM food_inventory WHERE is_available = 1"); err != nil {
		return nil, err
	}
	if sum.EmergencyReserves, err = s.count(ctx, "SELECT COUNT(*) FROM food_inventory WHERE is_emergency_reserve = 1"); err != nil {
		return nil, err
	}
	threshold := formatTime(s.clock.Now().UTC().AddDate(0, 0, 30))
	if sum.ExpiringSoon, err = s.count(ctx, `SELECT COUNT(*) FROM food_inventory
		WHERE expiry_date IS NOT NULL AND expiry_date <= ? AND is_available = 1`, threshold); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT COALESCE(category, 'uncategorized'), COALESCE(SUM(quantity), 0), COUNT(*)
		FROM food_inventory WHERE is_available = 1 GROUP BY category ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to group inventory: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ct CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.TotalQuantity, &ct.ItemCount); err != nil {
			return nil, err
		}
		sum.Categories = append(sum.Categories, ct)
	}
	return sum, rows.Err()
}

// AvailableKilograms sums available stock measured in kilograms.
func (s *Store) AvailableKilograms(ctx context.Context) (float64, error) {
	var kg float64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM food_inventory
		WHERE is_available = 1 AND unit IN ('kg', 'kilograms')`).Scan(&kg)
	return kg, err
}

// CountLowReserves counts available emergency reserves below threshold units.
func (s *Store) CountLowReserves(ctx context.Context, threshold float64) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM food_inventory
		WHERE is_emergency_reserve = 1 AND is_available = 1 AND quantity < ?`, threshold)
}

func (s *Store) CountInventory(ctx context.Context) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM food_inventory")
}
