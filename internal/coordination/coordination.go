// Package coordination plans multi-organisation emergency responses: who is
// around, what stock is nearby and where the coverage gaps are.
package coordination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/store"
	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"
)

var (
	ErrAlertNotFound    = errors.New("disaster alert not found")
	ErrResponseNotFound = errors.New("emergency response not found")
	ErrLocationRequired = errors.New("location coordinates are required")
	ErrMissingField     = errors.New("missing required field")
)

// responderRoles are the roles that field organisations register under.
var responderRoles = []models.Role{models.RoleNGO, models.RoleEmergencyResponder}

type Service struct {
	store *store.Store
	clock clockwork.Clock
}

func NewService(st *store.Store, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{store: st, clock: clock}
}

// CreateResponse persists r after checking that its disaster alert exists.
func (s *Service) CreateResponse(ctx context.Context, r *models.EmergencyResponse) error {
	if r.DisasterAlertID != nil {
		if _, err := s.store.GetAlert(ctx, *r.DisasterAlertID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrAlertNotFound
			}
			return err
		}
	}
	return s.store.CreateResponse(ctx, r)
}

// ResponseUpdate carries the fields a coordinator may change. Nil fields are left as they are.
type ResponseUpdate struct {
	Status                     *string         `json:"status" validate:"omitempty,oneof=planned active completed cancelled"`
	PersonnelRequired          *int64          `json:"personnel_required" validate:"omitempty,gte=0"`
	VehiclesRequired           *int64          `json:"vehicles_required" validate:"omitempty,gte=0"`
	EstimatedDurationHours     *float64        `json:"estimated_duration_hours" validate:"omitempty,gte=0"`
	ContactPerson              *string         `json:"contact_person"`
	ContactPhone               *string         `json:"contact_phone"`
	StagingArea                *string         `json:"staging_area"`
	SuppliesNeeded             json.RawMessage `json:"supplies_needed"`
	ParticipatingOrganizations *[]string       `json:"participating_organizations"`
	AffectedAreas              *[]string       `json:"affected_areas"`
}

func (s *Service) UpdateResponse(ctx context.Context, id int64, u ResponseUpdate) (*models.EmergencyResponse, error) {
	r, err := s.store.GetResponse(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrResponseNotFound
	}
	if err != nil {
		return nil, err
	}

	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.PersonnelRequired != nil {
		r.PersonnelRequired = u.PersonnelRequired
	}
	if u.VehiclesRequired != nil {
		r.VehiclesRequired = u.VehiclesRequired
	}
	if u.EstimatedDurationHours != nil {
		r.EstimatedDurationHours = u.EstimatedDurationHours
	}
	if u.ContactPerson != nil {
		r.ContactPerson = u.ContactPerson
	}
	if u.ContactPhone != nil {
		r.ContactPhone = u.ContactPhone
	}
	if u.StagingArea != nil {
		r.StagingArea = u.StagingArea
	}
	if len(u.SuppliesNeeded) > 0 {
		r.SuppliesNeeded = u.SuppliesNeeded
	}
	if u.ParticipatingOrganizations != nil {
		r.ParticipatingOrganizations = *u.ParticipatingOrganizations
	}
	if u.AffectedAreas != nil {
		r.AffectedAreas = *u.AffectedAreas
	}

	if err := s.store.UpdateResponse(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to update response %d: %w", id, err)
	}
	return r, nil
}

// Organizations merges response lead organisations with the organisations of
// registered NGOs and responders, sorted and without duplicates.
func (s *Service) Organizations(ctx context.Context, responseType string) ([]string, error) {
	leads, err := s.store.ListLeadOrganizations(ctx, responseType)
	if err != nil {
		return nil, err
	}
	registered, err := s.store.ListOrganizations(ctx)
	if err != nil {
		return nil, err
	}

	orgs := lo.Uniq(append(leads, registered...))
	slices.Sort(orgs)
	return orgs, nil
}
