package coordination

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/store"
	"github.com/samber/lo"
)

const (
	maxPlanOrganizations = 5
	maxPlanStockScan     = 10
)

type CoordinationRequest struct {
	DisasterType       string   `json:"disaster_type"`
	AffectedLocation   string   `json:"affected_location"`
	Priority           string   `json:"priority"`
	RequiredResources  []string `json:"required_resources"`
	AffectedPopulation *int64   `json:"affected_population"`
}

func (r CoordinationRequest) validate() error {
	switch {
	case r.DisasterType == "":
		return fmt.Errorf("%w: disaster_type", ErrMissingField)
	case r.AffectedLocation == "":
		return fmt.Errorf("%w: affected_location", ErrMissingField)
	case r.Priority == "":
		return fmt.Errorf("%w: priority", ErrMissingField)
	case r.RequiredResources == nil:
		return fmt.Errorf("%w: required_resources", ErrMissingField)
	}
	return nil
}

type DisasterInfo struct {
	Type                        string `json:"type"`
	Location                    string `json:"location"`
	Priority                    string `json:"priority"`
	EstimatedAffectedPopulation any    `json:"estimated_affected_population"`
}

type Action struct {
	Organization    string  `json:"organization"`
	ContactPerson   string  `json:"contact_person"`
	Phone           *string `json:"phone"`
	Email           string  `json:"email"`
	RecommendedRole string  `json:"recommended_role"`
	Status          string  `json:"status"`
}

type ResourceMatch struct {
	Item     string  `json:"item"`
	Quantity float64 `json:"quantity"`
	Location string  `json:"location"`
	Contact  *string `json:"contact"`
	Phone    *string `json:"phone"`
}

type Plan struct {
	CoordinationID       string          `json:"coordination_id"`
	RequestedBy          string          `json:"requested_by"`
	RequestTimestamp     string          `json:"request_timestamp"`
	DisasterInfo         DisasterInfo    `json:"disaster_info"`
	ResourceRequirements []string        `json:"resource_requirements"`
	CoordinationActions  []Action        `json:"coordination_actions"`
	AvailableResources   []ResourceMatch `json:"available_resources"`
	NextSteps            []string        `json:"next_steps"`
}

var nextSteps = []string{
	"Contact identified organizations to confirm availability",
	"Establish communication channels with all responders",
	"Set up staging area for resource coordination",
	"Begin resource mobilization based on priority",
	"Establish regular situation updates schedule",
}

// Coordinate drafts a response plan: the first active organisations to
// contact, with a suggested role each, and the available stock whose name
// matches a required resource.
func (s *Service) Coordinate(ctx context.Context, requester *models.User, req CoordinationRequest) (*Plan, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()

	orgs, err := s.store.ListUsers(ctx, store.UserFilter{Roles: responderRoles, ActiveOnly: true,
		Page: store.Page{Limit: maxPlanOrganizations}})
	if err != nil {
		return nil, err
	}
	stock, err := s.store.ListInventory(ctx, store.InventoryFilter{AvailableOnly: true,
		Page: store.Page{Limit: maxPlanStockScan}})
	if err != nil {
		return nil, err
	}

	var population any = "unknown"
	if req.AffectedPopulation != nil {
		population = *req.AffectedPopulation
	}

	plan := &Plan{
		CoordinationID:   "COORD-" + now.Format("20060102-150405"),
		RequestedBy:      requester.FullName,
		RequestTimestamp: now.Format(time.RFC3339),
		DisasterInfo: DisasterInfo{
			Type:                        req.DisasterType,
			Location:                    req.AffectedLocation,
			Priority:                    req.Priority,
			EstimatedAffectedPopulation: population,
		},
		ResourceRequirements: req.RequiredResources,
		CoordinationActions: lo.Map(orgs, func(u *models.User, _ int) Action {
			name := u.FullName
			if u.Organization != nil && *u.Organization != "" {
				name = *u.Organization
			}
			return Action{
				Organization:    name,
				ContactPerson:   u.FullName,
				Phone:           u.Phone,
				Email:           u.Email,
				RecommendedRole: SuggestRole(u.Role, req.DisasterType),
				Status:          "pending_contact",
			}
		}),
		AvailableResources: lo.FilterMap(stock, func(f *models.FoodInventory, _ int) (ResourceMatch, bool) {
			name := strings.ToLower(f.ItemName)
			matched := lo.ContainsBy(req.RequiredResources, func(r string) bool {
				return strings.Contains(name, strings.ToLower(r))
			})
			return ResourceMatch{
				Item:     f.ItemName,
				Quantity: f.Quantity,
				Location: f.Location,
				Contact:  f.ContactPerson,
				Phone:    f.ContactPhone,
			}, matched
		}),
		NextSteps: nextSteps,
	}
	return plan, nil
}

var roleSuggestions = map[models.Role]map[string]string{
	models.RoleNGO: {
		"flood":         "Food distribution and temporary shelter",
		"drought":       "Water distribution and agricultural support",
		"hurricane":     "Emergency supplies and evacuation support",
		"food_shortage": "Food bank coordination and distribution",
	},
	models.RoleEmergencyResponder: {
		"flood":         "Evacuation and rescue operations",
		"drought":       "Water delivery and health monitoring",
		"hurricane":     "Emergency response and damage assessment",
		"food_shortage": "Logistics and transportation support",
	},
}

// SuggestRole proposes what an organisation of the given role should take on for a disaster type.
func SuggestRole(role models.Role, disasterType string) string {
	if s, ok := roleSuggestions[role][disasterType]; ok {
		return s
	}
	return "General emergency support and coordination"
}

type Contact struct {
	Name         string      `json:"name"`
	Role         models.Role `json:"role"`
	Organization *string     `json:"organization"`
	Phone        *string     `json:"phone"`
	Email        string      `json:"email"`
	Location     *string     `json:"location"`
}

type Protocols struct {
	PrimaryMethod   string `json:"primary_method"`
	BackupMethod    string `json:"backup_method"`
	UpdateFrequency string `json:"update_frequency"`
	EscalationTime  string `json:"escalation_time"`
}

type CommunicationTree struct {
	PrimaryContacts   []Contact `json:"primary_contacts"`
	SecondaryContacts []Contact `json:"secondary_contacts"`
	SupportContacts   []Contact `json:"support_contacts"`
	Protocols         Protocols `json:"communication_protocols"`
}

// CommunicationTree lists reachable admins, responders and NGOs by escalation
// tier. A responseID that does not exist yields ErrResponseNotFound.
func (s *Service) CommunicationTree(ctx context.Context, responseID *int64) (*CommunicationTree, error) {
	if responseID != nil {
		if _, err := s.store.GetResponse(ctx, *responseID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrResponseNotFound
			}
			return nil, err
		}
	}

	users, err := s.store.ListUsers(ctx, store.UserFilter{
		Roles:      []models.Role{models.RoleEmergencyResponder, models.RoleNGO, models.RoleAdmin},
		ActiveOnly: true,
		WithPhone:  true,
	})
	if err != nil {
		return nil, err
	}

	tree := &CommunicationTree{
		PrimaryContacts:   []Contact{},
		SecondaryContacts: []Contact{},
		SupportContacts:   []Contact{},
		Protocols: Protocols{
			PrimaryMethod:   "Phone call",
			BackupMethod:    "SMS/WhatsApp",
			UpdateFrequency: "Every 2 hours during active response",
			EscalationTime:  "30 minutes for non-response",
		},
	}
	for _, u := range users {
		c := Contact{Name: u.FullName, Role: u.Role, Organization: u.Organization, Phone: u.Phone,
			Email: u.Email, Location: u.Location}
		switch u.Role {
		case models.RoleAdmin:
			tree.PrimaryContacts = append(tree.PrimaryContacts, c)
		case models.RoleEmergencyResponder:
			tree.SecondaryContacts = append(tree.SecondaryContacts, c)
		default:
			tree.SupportContacts = append(tree.SupportContacts, c)
		}
	}
	return tree, nil
}
