package models

import (
	"encoding/json"
	"time"
)

// Role is the access role attached to every user account.
type Role string

const (
	RoleAdmin              Role = "admin"
	RoleNGO                Role = "ngo"
	RoleDonor              Role = "donor"
	RoleCommunityLeader    Role = "community_leader"
	RoleEmergencyResponder Role = "emergency_responder"
	RoleResearcher         Role = "researcher"
	RoleFarmer             Role = "farmer"
)

type DisasterType string

const (
	DisasterFlood        DisasterType = "flood"
	DisasterDrought      DisasterType = "drought"
	DisasterHurricane    DisasterType = "hurricane"
	DisasterWildfire     DisasterType = "wildfire"
	DisasterEarthquake   DisasterType = "earthquake"
	DisasterExtremeHeat  DisasterType = "extreme_heat"
	DisasterExtremeCold  DisasterType = "extreme_cold"
	DisasterFoodShortage DisasterType = "food_shortage"
)

// DisasterTypes lists every disaster type in declaration order.
var DisasterTypes = []DisasterType{
	DisasterFlood, DisasterDrought, DisasterHurricane, DisasterWildfire,
	DisasterEarthquake, DisasterExtremeHeat, DisasterExtremeCold, DisasterFoodShortage,
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities from low (1) to critical (4).
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Urgent reports whether alerts at this severity also go out as emergency alerts.
func (s Severity) Urgent() bool {
	return s == SeverityHigh || s == SeverityCritical
}

type VulnerabilityLevel string

const (
	VulnerabilityLow      VulnerabilityLevel = "low"
	VulnerabilityMedium   VulnerabilityLevel = "medium"
	VulnerabilityHigh     VulnerabilityLevel = "high"
	VulnerabilityVeryHigh VulnerabilityLevel = "very_high"
)

func (v VulnerabilityLevel) Rank() int {
	switch v {
	case VulnerabilityVeryHigh:
		return 4
	case VulnerabilityHigh:
		return 3
	case VulnerabilityMedium:
		return 2
	case VulnerabilityLow:
		return 1
	}
	return 0
}

type NotificationType string

const (
	NotificationInfo      NotificationType = "info"
	NotificationWarning   NotificationType = "warning"
	NotificationSuccess   NotificationType = "success"
	NotificationError     NotificationType = "error"
	NotificationEmergency NotificationType = "emergency"
)

// User represents an account on the platform.
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	FullName       string    `json:"full_name"`
	HashedPassword string    `json:"-"`
	Role           Role      `json:"role"`
	Phone          *string   `json:"phone"`
	Organization   *string   `json:"organization"`
	Location       *string   `json:"location"`
	Latitude       *float64  `json:"latitude"`
	Longitude      *float64  `json:"longitude"`
	IsActive       bool      `json:"is_active"`
	IsVerified     bool      `json:"is_verified"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DisasterAlert is a reported or predicted hazard affecting an area.
type DisasterAlert struct {
	ID              int64        `json:"id"`
	Title           string       `json:"title"`
	Description     *string      `json:"description"`
	DisasterType    DisasterType `json:"disaster_type"`
	Severity        Severity     `json:"severity"`
	Location        string       `json:"location"`
	Latitude        float64      `json:"latitude"`
	Longitude       float64      `json:"longitude"`
	RadiusKm        float64      `json:"radius_km"`
	StartTime       *time.Time   `json:"start_time"`
	EndTime         *time.Time   `json:"end_time"`
	IsActive        bool         `json:"is_active"`
	Source          *string      `json:"source"`
	ConfidenceScore *float64     `json:"confidence_score"`
	CreatedBy       int64        `json:"created_by"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// FoodInventory is a stock of food held at a location.
type FoodInventory struct {
	ID                  int64      `json:"id"`
	ItemName            string     `json:"item_name"`
	Category            *string    `json:"category"`
	Quantity            float64    `json:"quantity"`
	Unit                string     `json:"unit"`
	ExpiryDate          *time.Time `json:"expiry_date"`
	Location            string     `json:"location"`
	Latitude            *float64   `json:"latitude"`
	Longitude           *float64   `json:"longitude"`
	OwnerOrganization   *string    `json:"owner_organization"`
	ContactPerson       *string    `json:"contact_person"`
	ContactPhone        *string    `json:"contact_phone"`
	ContactEmail        *string    `json:"contact_email"`
	IsEmergencyReserve  bool       `json:"is_emergency_reserve"`
	IsAvailable         bool       `json:"is_available"`
	NutritionalValue    *string    `json:"nutritional_value"`
	StorageRequirements *string    `json:"storage_requirements"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// InKilograms reports whether the quantity is measured in kilograms.
func (f FoodInventory) InKilograms() bool {
	return f.Unit == "kg" || f.Unit == "kilograms"
}

// VulnerabilityAssessment scores a community's exposure to climate and food risks.
type VulnerabilityAssessment struct {
	ID                      int64               `json:"id"`
	CommunityName           string              `json:"community_name"`
	Location                string              `json:"location"`
	Latitude                float64             `json:"latitude"`
	Longitude               float64             `json:"longitude"`
	Population              *int64              `json:"population"`
	FloodRisk               VulnerabilityLevel  `json:"flood_risk"`
	DroughtRisk             VulnerabilityLevel  `json:"drought_risk"`
	ExtremeWeatherRisk      VulnerabilityLevel  `json:"extreme_weather_risk"`
	FoodAccessScore         *float64            `json:"food_access_score"`
	NutritionDiversityScore *float64            `json:"nutrition_diversity_score"`
	FoodAffordabilityScore  *float64            `json:"food_affordability_score"`
	PovertyRate             *float64            `json:"poverty_rate"`
	UnemploymentRate        *float64            `json:"unemployment_rate"`
	EducationLevel          *float64            `json:"education_level"`
	HealthcareAccess        *float64            `json:"healthcare_access"`
	RoadAccessQuality       *float64            `json:"road_access_quality"`
	WaterInfrastructure     *float64            `json:"water_infrastructure"`
	CommunicationCoverage   *float64            `json:"communication_coverage"`
	OverallVulnerability    *VulnerabilityLevel `json:"overall_vulnerability"`
	ClimateResilienceScore  *float64            `json:"climate_resilience_score"`
	FoodSecurityScore       *float64            `json:"food_security_score"`
	AssessmentDate          time.Time           `json:"assessment_date"`
	AssessorID              int64               `json:"assessor_id"`
	Methodology             *string             `json:"methodology"`
	Notes                   *string             `json:"notes"`
}

// FoodDistribution is a scheduled food hand-out event.
type FoodDistribution struct {
	ID                   int64     `json:"id"`
	EventName            string    `json:"event_name"`
	Location             string    `json:"location"`
	Latitude             float64   `json:"latitude"`
	Longitude            float64   `json:"longitude"`
	ScheduledDate        time.Time `json:"scheduled_date"`
	DurationHours        float64   `json:"duration_hours"`
	TargetBeneficiaries  *int64    `json:"target_beneficiaries"`
	ActualBeneficiaries  *int64    `json:"actual_beneficiaries"`
	FoodItemsDistributed *string   `json:"food_items_distributed"`
	TotalWeightKg        *float64  `json:"total_weight_kg"`
	EstimatedMeals       *int64    `json:"estimated_meals"`
	OrganizingNGO        *string   `json:"organizing_ngo"`
	PartnerOrganizations *string   `json:"partner_organizations"`
	VolunteersCount      *int64    `json:"volunteers_count"`
	Status               string    `json:"status"`
	CompletionNotes      *string   `json:"completion_notes"`
	FeedbackScore        *float64  `json:"feedback_score"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// EmergencyResponse coordinates personnel and supplies for a disaster.
type EmergencyResponse struct {
	ID                         int64           `json:"id"`
	DisasterAlertID            *int64          `json:"disaster_alert_id"`
	ResponseType               string          `json:"response_type"`
	Status                     string          `json:"status"`
	Priority                   Severity        `json:"priority"`
	PersonnelRequired          *int64          `json:"personnel_required"`
	VehiclesRequired           *int64          `json:"vehicles_required"`
	SuppliesNeeded             json.RawMessage `json:"supplies_needed"`
	EstimatedDurationHours     *float64        `json:"estimated_duration_hours"`
	LeadOrganization           *string         `json:"lead_organization"`
	ParticipatingOrganizations []string        `json:"participating_organizations"`
	ContactPerson              *string         `json:"contact_person"`
	ContactPhone               *string         `json:"contact_phone"`
	StagingArea                *string         `json:"staging_area"`
	AffectedAreas              []string        `json:"affected_areas"`
	CreatedAt                  time.Time       `json:"created_at"`
	UpdatedAt                  time.Time       `json:"updated_at"`
}

// Notification is a persisted message for one user or for everyone.
type Notification struct {
	ID            int64            `json:"id"`
	Title         string           `json:"title"`
	Message       string           `json:"message"`
	Type          NotificationType `json:"type"`
	Priority      Severity         `json:"priority"`
	TargetUserID  *int64           `json:"target_user_id"`
	TargetRoles   []Role           `json:"target_roles"`
	Category      *string          `json:"category"`
	ActionURL     *string          `json:"action_url"`
	ActionData    *string          `json:"action_data"`
	IsRead        bool             `json:"is_read"`
	IsBroadcasted bool             `json:"is_broadcasted"`
	BroadcastAt   *time.Time       `json:"broadcast_at"`
	CreatedAt     time.Time        `json:"created_at"`
	ExpiresAt     *time.Time       `json:"expires_at"`
}

// EmergencyAlert is an urgent broadcast issued by a responder.
type EmergencyAlert struct {
	ID                         int64      `json:"id"`
	Title                      string     `json:"title"`
	Message                    string     `json:"message"`
	AlertType                  string     `json:"alert_type"`
	Severity                   Severity   `json:"severity"`
	Location                   *string    `json:"location"`
	Latitude                   *float64   `json:"latitude"`
	Longitude                  *float64   `json:"longitude"`
	AffectedRadiusKm           *float64   `json:"affected_radius_km"`
	EmergencyContact           *string    `json:"emergency_contact"`
	ResponseInstructions       *string    `json:"response_instructions"`
	EvacuationRoutes           *string    `json:"evacuation_routes"`
	IsActive                   bool       `json:"is_active"`
	IsBroadcasted              bool       `json:"is_broadcasted"`
	BroadcastAt                *time.Time `json:"broadcast_at"`
	ResolvedAt                 *time.Time `json:"resolved_at"`
	IssuedByUserID             int64      `json:"issued_by_user_id"`
	AffectedPopulationEstimate *int64     `json:"affected_population_estimate"`
	ConfirmationStatus         string     `json:"confirmation_status"`
	CreatedAt                  time.Time  `json:"created_at"`
	UpdatedAt                  time.Time  `json:"updated_at"`
}

// SystemEvent is an audit record; events naming a data type and change type
// also drive client cache invalidation.
type SystemEvent struct {
	ID               int64     `json:"id"`
	EventType        string    `json:"event_type"`
	Description      *string   `json:"description"`
	Details          *string   `json:"details"`
	UserID           *int64    `json:"user_id"`
	IPAddress        *string   `json:"ip_address"`
	UserAgent        *string   `json:"user_agent"`
	AffectedDataType *string   `json:"affected_data_type"`
	AffectedRecordID *int64    `json:"affected_record_id"`
	ChangeType       *string   `json:"change_type"`
	CreatedAt        time.Time `json:"created_at"`
}
