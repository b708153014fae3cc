package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/geo"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(epoch)
	s, err := New(filepath.Join(t.TempDir(), "test.db"), WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, clock
}

func ptr[T any](v T) *T { return &v }

func TestUsers(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	u := &models.User{Email: "a@example.org", Username: "alice", FullName: "Alice", HashedPassword: "x",
		Role: models.RoleNGO, Organization: ptr("Relief"), IsActive: true}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.NotZero(t, u.ID)

	dup := &models.User{Email: "a@example.org", Username: "other", FullName: "O", HashedPassword: "x", Role: models.RoleDonor}
	assert.ErrorIs(t, s.CreateUser(ctx, dup), ErrConflict)

	got, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Relief", *got.Organization)
	assert.Equal(t, epoch, got.CreatedAt)

	missing, err := s.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, missing)

	_, err = s.GetUserByEmail(ctx, "nobody@example.org")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetUser(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := s.UserExists(ctx, "new@example.org", "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	orgs, err := s.ListOrganizations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Relief"}, orgs)
}

func TestSeedAdminOnlyOnce(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SeedAdmin(ctx, "admin@example.org", "admin", "secret"))
	require.NoError(t, s.SeedAdmin(ctx, "other@example.org", "root", "secret"))

	n, err := s.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAlertsFilterAndStats(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	old := &models.DisasterAlert{Title: "Old flood", DisasterType: models.DisasterFlood, Severity: models.SeverityLow,
		Location: "A", Latitude: 1, Longitude: 1, RadiusKm: 10, IsActive: true}
	require.NoError(t, s.CreateAlert(ctx, old))

	clock.Advance(10 * 24 * time.Hour)
	recent := &models.DisasterAlert{Title: "Drought", DisasterType: models.DisasterDrought, Severity: models.SeverityHigh,
		Location: "B", Latitude: 40, Longitude: 40, RadiusKm: 10, IsActive: true}
	require.NoError(t, s.CreateAlert(ctx, recent))

	alerts, err := s.ListAlerts(ctx, AlertFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, recent.ID, alerts[0].ID, "newest first")

	box := geo.BoxAround(geo.Point{Lat: 1, Lng: 1}, 50)
	alerts, err = s.ListAlerts(ctx, AlertFilter{Box: &box})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, old.ID, alerts[0].ID)

	old.IsActive = false
	require.NoError(t, s.UpdateAlert(ctx, old))

	st, err := s.AlertStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.Active)
	assert.Equal(t, 1, st.RecentWeek)
	assert.Equal(t, 1, st.ActiveByType[models.DisasterDrought])
	assert.Equal(t, 0, st.ActiveByType[models.DisasterFlood])

	assert.ErrorIs(t, s.DeleteAlert(ctx, 999), ErrNotFound)
	_, err = s.GetAlert(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInventoryQueries(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	items := []*models.FoodInventory{
		{ItemName: "Rice", Category: ptr("grains"), Quantity: 500, Unit: "kg", Location: "Depot", IsAvailable: true,
			Latitude: ptr(1.0), Longitude: ptr(1.0)},
		{ItemName: "Beans", Quantity: 50, Unit: "kilograms", Location: "Depot", IsAvailable: true, IsEmergencyReserve: true,
			ExpiryDate: ptr(epoch.AddDate(0, 0, 5))},
		{ItemName: "Water", Quantity: 1000, Unit: "liters", Location: "Depot", IsAvailable: true},
		{ItemName: "Flour", Quantity: 80, Unit: "kg", Location: "Depot", IsAvailable: false},
	}
	for _, it := range items {
		require.NoError(t, s.CreateInventory(ctx, it))
	}

	kg, err := s.AvailableKilograms(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 550.0, kg, 1e-9)

	low, err := s.CountLowReserves(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, low)

	until := epoch.AddDate(0, 0, 7)
	expiring, err := s.ListInventory(ctx, InventoryFilter{AvailableOnly: true, ExpiringBefore: &until})
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, "Beans", expiring[0].ItemName)

	located, err := s.ListInventory(ctx, InventoryFilter{WithCoords: true})
	require.NoError(t, err)
	require.Len(t, located, 1)
	assert.Equal(t, "Rice", located[0].ItemName)

	sum, err := s.InventorySummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, sum.TotalItems)
	assert.Equal(t, 3, sum.AvailableItems)
	assert.Equal(t, 1, sum.ExpiringSoon)
}

func TestResponsesRoundTripJSONColumns(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	r := &models.EmergencyResponse{ResponseType: "evacuation", LeadOrganization: ptr("Red Cross"),
		SuppliesNeeded: json.RawMessage(`[{"item":"tents","qty":20}]`), AffectedAreas: []string{"North"}}
	require.NoError(t, s.CreateResponse(ctx, r))
	assert.Equal(t, "planned", r.Status)
	assert.Equal(t, models.SeverityMedium, r.Priority)

	got, err := s.GetResponse(ctx, r.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"item":"tents","qty":20}]`, string(got.SuppliesNeeded))
	assert.Equal(t, []string{"North"}, got.AffectedAreas)
	assert.Equal(t, []string{}, got.ParticipatingOrganizations)

	got.Status = "completed"
	require.NoError(t, s.UpdateResponse(ctx, got))

	active, err := s.ListResponses(ctx, ResponseFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Empty(t, active)

	orgs, err := s.ListLeadOrganizations(ctx, "evacuation")
	require.NoError(t, err)
	assert.Equal(t, []string{"Red Cross"}, orgs)
}

func TestNotificationsVisibility(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	own := &models.Notification{Title: "Own", Message: "m", TargetUserID: ptr(int64(1))}
	other := &models.Notification{Title: "Other", Message: "m", TargetUserID: ptr(int64(2))}
	broadcast := &models.Notification{Title: "All", Message: "m", TargetRoles: []models.Role{models.RoleNGO}}
	for _, n := range []*models.Notification{own, other, broadcast} {
		require.NoError(t, s.CreateNotification(ctx, n))
	}

	list, err := s.ListNotificationsForUser(ctx, 1, false, Page{Limit: 50})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	assert.ErrorIs(t, s.MarkNotificationRead(ctx, other.ID, 1), ErrNotFound)
	require.NoError(t, s.MarkNotificationRead(ctx, broadcast.ID, 1))

	unread, err := s.ListNotificationsForUser(ctx, 1, true, Page{Limit: 50})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, own.ID, unread[0].ID)

	require.NoError(t, s.MarkNotificationBroadcast(ctx, own))
	got, err := s.GetNotification(ctx, broadcast.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Role{models.RoleNGO}, got.TargetRoles)
}

func TestEmergencyAlertResolve(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	a := &models.EmergencyAlert{Title: "Levee breach", Message: "Evacuate", AlertType: "evacuation",
		Severity: models.SeverityCritical, IssuedByUserID: 1}
	require.NoError(t, s.CreateEmergencyAlert(ctx, a))
	assert.Equal(t, "unconfirmed", a.ConfirmationStatus)

	clock.Advance(time.Hour)
	require.NoError(t, s.ResolveEmergencyAlert(ctx, a))

	active, err := s.ListEmergencyAlerts(ctx, true, Page{Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, active)

	got, err := s.GetEmergencyAlert(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ResolvedAt)
	assert.Equal(t, epoch.Add(time.Hour), *got.ResolvedAt)
}

func TestRecentSystemEvents(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.CreateSystemEvent(ctx, &models.SystemEvent{EventType: "data_change", AffectedRecordID: ptr(int64(i))}))
		clock.Advance(time.Minute)
	}
	events, err := s.RecentSystemEvents(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(2), *events[0].AffectedRecordID)
}
