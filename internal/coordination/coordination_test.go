package coordination

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/store"
	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 5, 2, 14, 30, 5, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(now)
	st, err := store.New(filepath.Join(t.TempDir(), "coordination.db"), store.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewService(st, clock), st
}

func addUser(t *testing.T, st *store.Store, u *models.User) *models.User {
	t.Helper()
	u.HashedPassword = "x"
	u.IsActive = true
	if u.Email == "" {
		u.Email = u.Username + "@example.org"
	}
	require.NoError(t, st.CreateUser(context.Background(), u))
	return u
}

func TestCreateResponseChecksAlert(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	err := svc.CreateResponse(ctx, &models.EmergencyResponse{ResponseType: "evacuation", DisasterAlertID: lo.ToPtr(int64(99))})
	assert.ErrorIs(t, err, ErrAlertNotFound)

	alert := &models.DisasterAlert{Title: "Flood", DisasterType: models.DisasterFlood, Severity: models.SeverityHigh,
		Location: "Delta", IsActive: true}
	require.NoError(t, st.CreateAlert(ctx, alert))

	r := &models.EmergencyResponse{ResponseType: "evacuation", DisasterAlertID: &alert.ID}
	require.NoError(t, svc.CreateResponse(ctx, r))
	assert.NotZero(t, r.ID)
	assert.Equal(t, "planned", r.Status)
}

func TestUpdateResponse(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpdateResponse(ctx, 1, ResponseUpdate{Status: lo.ToPtr("active")})
	assert.ErrorIs(t, err, ErrResponseNotFound)

	r := &models.EmergencyResponse{ResponseType: "food_distribution", StagingArea: lo.ToPtr("School"),
		AffectedAreas: []string{"North"}}
	require.NoError(t, svc.CreateResponse(ctx, r))

	got, err := svc.UpdateResponse(ctx, r.ID, ResponseUpdate{
		Status:            lo.ToPtr("active"),
		PersonnelRequired: lo.ToPtr(int64(12)),
		SuppliesNeeded:    json.RawMessage(`[{"item":"rice","kg":500}]`),
		AffectedAreas:     &[]string{"North", "East"},
	})
	require.NoError(t, err)
	assert.Equal(t, "active", got.Status)
	assert.Equal(t, int64(12), *got.PersonnelRequired)
	assert.Equal(t, "School", *got.StagingArea)
	assert.Equal(t, []string{"North", "East"}, got.AffectedAreas)
	assert.JSONEq(t, `[{"item":"rice","kg":500}]`, string(got.SuppliesNeeded))
}

func TestOrganizations(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	addUser(t, st, &models.User{Username: "ngo", Role: models.RoleNGO, Organization: lo.ToPtr("Food Aid")})
	addUser(t, st, &models.User{Username: "donor", Role: models.RoleDonor, Organization: lo.ToPtr("Big Corp")})
	require.NoError(t, svc.CreateResponse(ctx, &models.EmergencyResponse{ResponseType: "evacuation",
		LeadOrganization: lo.ToPtr("Civil Defence")}))
	require.NoError(t, svc.CreateResponse(ctx, &models.EmergencyResponse{ResponseType: "medical",
		LeadOrganization: lo.ToPtr("Food Aid")}))

	orgs, err := svc.Organizations(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Civil Defence", "Food Aid"}, orgs)

	orgs, err = svc.Organizations(ctx, "evacuation")
	require.NoError(t, err)
	assert.Equal(t, []string{"Civil Defence", "Food Aid"}, orgs)
}

func TestMatrix(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	_, err := svc.Matrix(ctx, MatrixRequest{RadiusKm: 50})
	assert.ErrorIs(t, err, ErrLocationRequired)

	require.NoError(t, st.CreateAssessment(ctx, &models.VulnerabilityAssessment{CommunityName: "Riverside", Location: "Delta",
		Latitude: 0.1, Longitude: 0.1, Population: lo.ToPtr(int64(400)), OverallVulnerability: lo.ToPtr(models.VulnerabilityHigh)}))
	require.NoError(t, st.CreateAssessment(ctx, &models.VulnerabilityAssessment{CommunityName: "Hilltop", Location: "Delta",
		Latitude: 0.2}))
	require.NoError(t, st.CreateAssessment(ctx, &models.VulnerabilityAssessment{CommunityName: "Elsewhere", Location: "Far",
		Latitude: 3, Longitude: 3}))
	require.NoError(t, st.CreateInventory(ctx, &models.FoodInventory{ItemName: "Rice", Quantity: 900, Unit: "kg",
		Location: "Depot", Latitude: lo.ToPtr(0.3), Longitude: lo.ToPtr(0.0), IsAvailable: true, IsEmergencyReserve: true}))
	require.NoError(t, st.CreateInventory(ctx, &models.FoodInventory{ItemName: "Flour", Quantity: 10, Unit: "kg",
		Location: "Far depot", Latitude: lo.ToPtr(5.0), Longitude: lo.ToPtr(5.0), IsAvailable: true}))
	addUser(t, st, &models.User{Username: "resp", FullName: "Rae", Role: models.RoleEmergencyResponder,
		Organization: lo.ToPtr("Rescue"), Latitude: lo.ToPtr(0.5), Longitude: lo.ToPtr(0.5)})
	require.NoError(t, svc.CreateResponse(ctx, &models.EmergencyResponse{ResponseType: "evacuation",
		PersonnelRequired: lo.ToPtr(int64(20))}))

	m, err := svc.Matrix(ctx, MatrixRequest{Lat: lo.ToPtr(0.0), Lng: lo.ToPtr(0.0), RadiusKm: 50})
	require.NoError(t, err)

	assert.Equal(t, "2025-05-02T14:30:05Z", m.AreaAnalysis.AnalysisTimestamp)
	require.Len(t, m.VulnerableCommunities, 2)
	byName := lo.KeyBy(m.VulnerableCommunities, func(c Community) string { return c.Name })
	assert.Equal(t, "high", byName["Riverside"].VulnerabilityLevel)
	assert.Equal(t, 1200.0, byName["Riverside"].EstimatedNeeds.FoodKgPerDay)
	assert.Len(t, byName["Riverside"].EstimatedNeeds.PriorityItems, 7)
	assert.Equal(t, "unknown", byName["Hilltop"].VulnerabilityLevel)
	assert.Equal(t, 1.2, byName["Hilltop"].EstimatedNeeds.VulnerabilityMultiplier)

	require.Len(t, m.AvailableResources, 1)
	assert.Equal(t, "Rice", m.AvailableResources[0].Item)
	require.Len(t, m.ResponseOrganizations, 1)
	assert.Equal(t, "Rescue", m.ResponseOrganizations[0].Organization)
	require.Len(t, m.ActiveResponses, 1)

	assert.Equal(t, []string{
		"1 communities without assigned response",
		"Insufficient emergency food reserves",
		"No NGOs available for coordination",
		"Insufficient personnel for planned responses",
	}, m.CoordinationGaps)
}

func TestNeeds(t *testing.T) {
	n := Needs(&models.VulnerabilityAssessment{OverallVulnerability: lo.ToPtr(models.VulnerabilityLow)})
	assert.Equal(t, CommunityNeeds{
		FoodKgPerDay:            2000,
		WaterLitersPerDay:       15000,
		EstimatedPopulation:     1000,
		VulnerabilityMultiplier: 1.0,
		PriorityItems:           []string{"Rice", "Beans", "Cooking oil", "Clean water"},
	}, n)
}

func TestCoordinate(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	requester := addUser(t, st, &models.User{Username: "lead", FullName: "Lee Lead", Role: models.RoleAdmin})
	addUser(t, st, &models.User{Username: "ngo", FullName: "Nia", Role: models.RoleNGO, Organization: lo.ToPtr("Food Aid")})
	addUser(t, st, &models.User{Username: "resp", FullName: "Rae", Role: models.RoleEmergencyResponder})
	require.NoError(t, st.CreateInventory(ctx, &models.FoodInventory{ItemName: "Brown Rice", Quantity: 300, Unit: "kg",
		Location: "Depot", IsAvailable: true}))
	require.NoError(t, st.CreateInventory(ctx, &models.FoodInventory{ItemName: "Blankets", Quantity: 40, Unit: "pcs",
		Location: "Depot", IsAvailable: true}))

	_, err := svc.Coordinate(ctx, requester, CoordinationRequest{DisasterType: "flood", AffectedLocation: "Delta",
		Priority: "high"})
	assert.ErrorIs(t, err, ErrMissingField)
	assert.ErrorContains(t, err, "required_resources")

	plan, err := svc.Coordinate(ctx, requester, CoordinationRequest{DisasterType: "flood", AffectedLocation: "Delta",
		Priority: "high", RequiredResources: []string{"rice"}})
	require.NoError(t, err)

	assert.Equal(t, "COORD-20250502-143005", plan.CoordinationID)
	assert.Equal(t, "Lee Lead", plan.RequestedBy)
	assert.Equal(t, "unknown", plan.DisasterInfo.EstimatedAffectedPopulation)
	require.Len(t, plan.CoordinationActions, 2)
	assert.Equal(t, "Food Aid", plan.CoordinationActions[0].Organization)
	assert.Equal(t, "Food distribution and temporary shelter", plan.CoordinationActions[0].RecommendedRole)
	assert.Equal(t, "Rae", plan.CoordinationActions[1].Organization)
	assert.Equal(t, "Evacuation and rescue operations", plan.CoordinationActions[1].RecommendedRole)
	require.Len(t, plan.AvailableResources, 1)
	assert.Equal(t, "Brown Rice", plan.AvailableResources[0].Item)
	assert.Len(t, plan.NextSteps, 5)
}

func TestSuggestRole(t *testing.T) {
	assert.Equal(t, "Logistics and transportation support", SuggestRole(models.RoleEmergencyResponder, "food_shortage"))
	assert.Equal(t, "General emergency support and coordination", SuggestRole(models.RoleNGO, "earthquake"))
	assert.Equal(t, "General emergency support and coordination", SuggestRole(models.RoleDonor, "flood"))
}

func TestCommunicationTree(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	_, err := svc.CommunicationTree(ctx, lo.ToPtr(int64(7)))
	assert.ErrorIs(t, err, ErrResponseNotFound)

	addUser(t, st, &models.User{Username: "admin", Role: models.RoleAdmin, Phone: lo.ToPtr("100")})
	addUser(t, st, &models.User{Username: "resp", Role: models.RoleEmergencyResponder, Phone: lo.ToPtr("200")})
	addUser(t, st, &models.User{Username: "ngo", Role: models.RoleNGO, Phone: lo.ToPtr("300")})
	addUser(t, st, &models.User{Username: "silent", Role: models.RoleNGO})
	addUser(t, st, &models.User{Username: "farmer", Role: models.RoleFarmer, Phone: lo.ToPtr("400")})

	tree, err := svc.CommunicationTree(ctx, nil)
	require.NoError(t, err)
	require.Len(t, tree.PrimaryContacts, 1)
	assert.Equal(t, "100", *tree.PrimaryContacts[0].Phone)
	require.Len(t, tree.SecondaryContacts, 1)
	require.Len(t, tree.SupportContacts, 1)
	assert.Equal(t, "Phone call", tree.Protocols.PrimaryMethod)
}
