package catalog

import (
	"context"
	"strings"

	"github.com/nekogravitycat/grooming-booking-backend/internal/auth"
	"github.com/nekogravitycat/grooming-booking-backend/internal/business"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/grooming-booking-backend/internal/scheduling"
)

// BusinessGuard authorizes changes to a business's catalog.
type BusinessGuard interface {
	CanManage(ctx context.Context, actor auth.Actor, id string) (*business.Business, error)
}

type CreateServiceRequest struct {
	Name               string
	Description        *string
	SpeciesSupported   []scheduling.Species
	LocationsSupported []scheduling.LocationType
}

// UpdateServiceRequest carries a partial update; nil fields are left unchanged.
type UpdateServiceRequest struct {
	Name               *string
	Description        *string
	SpeciesSupported   []scheduling.Species
	LocationsSupported []scheduling.LocationType
	IsActive           *bool
}

type CreateRuleRequest struct {
	Species             scheduling.Species
	Size                *scheduling.Size
	Breed               *string
	BaseDurationMinutes int
	IsDefaultForSpecies bool
}

// UpdateRuleRequest carries a partial update. ClearSize and ClearBreed unset those matchers.
type UpdateRuleRequest struct {
	Species             *scheduling.Species
	Size                *scheduling.Size
	ClearSize           bool
	Breed               *string
	ClearBreed          bool
	BaseDurationMinutes *int
	IsDefaultForSpecies *bool
}

type Service interface {
	CreateService(ctx context.Context, actor auth.Actor, businessID string, req CreateServiceRequest) (*GroomingService, error)
	GetService(ctx context.Context, id string) (*GroomingService, error)
	// ListServices lists a business's services. Inactive ones are only visible to its managers.
	ListServices(ctx context.Context, actor auth.Actor, businessID string, includeInactive bool, params request.ListParams) ([]*GroomingService, int, error)
	UpdateService(ctx context.Context, actor auth.Actor, id string, req UpdateServiceRequest) (*GroomingService, error)
	// DeactivateService hides a service from clients; booked appointments keep referring to it.
	DeactivateService(ctx context.Context, actor auth.Actor, id string) (*GroomingService, error)

	CreateRule(ctx context.Context, actor auth.Actor, serviceID string, req CreateRuleRequest) (*DurationRule, error)
	ListRules(ctx context.Context, actor auth.Actor, serviceID string) ([]*DurationRule, error)
	UpdateRule(ctx context.Context, actor auth.Actor, ruleID string, req UpdateRuleRequest) (*DurationRule, error)
	DeleteRule(ctx context.Context, actor auth.Actor, ruleID string) error

	GetServices(ctx context.Context, ids []string) ([]*GroomingService, error)
	// RulesFor returns the duration rules keyed by service id.
	RulesFor(ctx context.Context, serviceIDs []string) (map[string][]scheduling.DurationRule, error)
}

type service struct {
	repo       Repository
	businesses BusinessGuard
}

func NewService(repo Repository, businesses BusinessGuard) Service {
	return &service{repo: repo, businesses: businesses}
}

func (s *service) CreateService(ctx context.Context, actor auth.Actor, businessID string, req CreateServiceRequest) (*GroomingService, error) {
	b, err := s.businesses.CanManage(ctx, actor, businessID)
	if err != nil {
		return nil, err
	}

	svc := &GroomingService{
		BusinessID:         b.ID,
		Name:               strings.TrimSpace(req.Name),
		Description:        req.Description,
		SpeciesSupported:   req.SpeciesSupported,
		LocationsSupported: req.LocationsSupported,
		IsActive:           true,
	}
	if err := validateService(b, svc); err != nil {
		return nil, err
	}

	if err := s.repo.CreateService(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *service) GetService(ctx context.Context, id string) (*GroomingService, error) {
	return s.repo.GetService(ctx, id)
}

func (s *service) ListServices(ctx context.Context, actor auth.Actor, businessID string, includeInactive bool, params request.ListParams) ([]*GroomingService, int, error) {
	if includeInactive {
		if _, err := s.businesses.CanManage(ctx, actor, businessID); err != nil {
			return nil, 0, err
		}
	}
	params.Normalize()
	return s.repo.ListServices(ctx, ServiceFilter{
		BusinessID: businessID,
		ActiveOnly: !includeInactive,
		Limit:      params.PageSize,
		Offset:     params.Offset(),
	})
}

func (s *service) UpdateService(ctx context.Context, actor auth.Actor, id string, req UpdateServiceRequest) (*GroomingService, error) {
	svc, b, err := s.manageService(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		svc.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		svc.Description = req.Description
	}
	if req.SpeciesSupported != nil {
		svc.SpeciesSupported = req.SpeciesSupported
	}
	if req.LocationsSupported != nil {
		svc.LocationsSupported = req.LocationsSupported
	}
	if req.IsActive != nil {
		svc.IsActive = *req.IsActive
	}

	if err := validateService(b, svc); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateService(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *service) CreateRule(ctx context.Context, actor auth.Actor, serviceID string, req CreateRuleRequest) (*DurationRule, error) {
	svc, _, err := s.manageService(ctx, actor, serviceID)
	if err != nil {
		return nil, err
	}

	rule := &DurationRule{
		ServiceID: svc.ID,
		DurationRule: scheduling.DurationRule{
			Species:             req.Species,
			Size:                req.Size,
			Breed:               normalizeBreed(req.Breed),
			BaseDurationMinutes: req.BaseDurationMinutes,
			IsDefaultForSpecies: req.IsDefaultForSpecies,
		},
	}
	if err := s.validateRule(ctx, svc, rule); err != nil {
		return nil, err
	}

	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *service) ListRules(ctx context.Context, actor auth.Actor, serviceID string) ([]*DurationRule, error) {
	svc, _, err := s.manageService(ctx, actor, serviceID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListRules(ctx, []string{svc.ID})
}

func (s *service) UpdateRule(ctx context.Context, actor auth.Actor, ruleID string, req UpdateRuleRequest) (*DurationRule, error) {
	rule, err := s.repo.GetRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	svc, _, err := s.manageService(ctx, actor, rule.ServiceID)
	if err != nil {
		return nil, err
	}

	if req.Species != nil {
		rule.Species = *req.Species
	}
	switch {
	case req.ClearSize:
		rule.Size = nil
	case req.Size != nil:
		rule.Size = req.Size
	}
	switch {
	case req.ClearBreed:
		rule.Breed = nil
	case req.Breed != nil:
		rule.Breed = normalizeBreed(req.Breed)
	}
	if req.BaseDurationMinutes != nil {
		rule.BaseDurationMinutes = *req.BaseDurationMinutes
	}
	if req.IsDefaultForSpecies != nil {
		rule.IsDefaultForSpecies = *req.IsDefaultForSpecies
	}

	if err := s.validateRule(ctx, svc, rule); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *service) DeleteRule(ctx context.Context, actor auth.Actor, ruleID string) error {
	rule, err := s.repo.GetRule(ctx, ruleID)
	if err != nil {
		return err
	}
	if _, _, err := s.manageService(ctx, actor, rule.ServiceID); err != nil {
		return err
	}
	return s.repo.DeleteRule(ctx, rule.ID)
}

func (s *service) GetServices(ctx context.Context, ids []string) ([]*GroomingService, error) {
	return s.repo.GetServices(ctx, ids)
}

func (s *service) RulesFor(ctx context.Context, serviceIDs []string) (map[string][]scheduling.DurationRule, error) {
	rules, err := s.repo.ListRules(ctx, serviceIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]scheduling.DurationRule, len(serviceIDs))
	for _, r := range rules {
		out[r.ServiceID] = append(out[r.ServiceID], r.DurationRule)
	}
	return out, nil
}

func (s *service) DeactivateService(ctx context.Context, actor auth.Actor, id string) (*GroomingService, error) {
	svc, _, err := s.manageService(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !svc.IsActive {
		return svc, nil
	}
	svc.IsActive = false
	if err := s.repo.UpdateService(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *service) manageService(ctx context.Context, actor auth.Actor, id string) (*GroomingService, *business.Business, error) {
	svc, err := s.repo.GetService(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.businesses.CanManage(ctx, actor, svc.BusinessID)
	if err != nil {
		return nil, nil, err
	}
	return svc, b, nil
}

func validateService(b *business.Business, svc *GroomingService) error {
	if svc.Name == "" {
		return ErrNameRequired
	}
	if len(svc.SpeciesSupported) == 0 {
		return apperror.Detail(ErrInvalidSpecies, "at least one species is required")
	}
	for _, sp := range svc.SpeciesSupported {
		if !sp.IsValid() {
			return apperror.Detail(ErrInvalidSpecies, "invalid species %q", sp)
		}
	}
	if len(svc.LocationsSupported) == 0 {
		return apperror.Detail(ErrInvalidLocation, "at least one location type is required")
	}
	for _, loc := range svc.LocationsSupported {
		if !loc.IsValid() {
			return apperror.Detail(ErrInvalidLocation, "invalid location type %q", loc)
		}
		if !b.Offers(loc) {
			return apperror.Detail(ErrLocationNotOffered, "business does not offer %s appointments", loc)
		}
	}
	return nil
}

func (s *service) validateRule(ctx context.Context, svc *GroomingService, rule *DurationRule) error {
	if !rule.Species.IsValid() {
		return apperror.Detail(ErrInvalidSpecies, "invalid species %q", rule.Species)
	}
	if !svc.SupportsSpecies(rule.Species) {
		return ErrSpeciesMismatch
	}
	if rule.Size != nil && !rule.Size.IsValid() {
		return apperror.Detail(ErrInvalidSize, "invalid size %q", *rule.Size)
	}
	if rule.BaseDurationMinutes <= 0 {
		return ErrInvalidDuration
	}
	if rule.Size == nil && rule.Breed == nil && !rule.IsDefaultForSpecies {
		return ErrRuleTooBroad
	}

	if rule.IsDefaultForSpecies {
		existing, err := s.repo.ListRules(ctx, []string{svc.ID})
		if err != nil {
			return err
		}
		for _, other := range existing {
			if other.ID != rule.ID && other.Species == rule.Species && other.IsDefaultForSpecies {
				return ErrDuplicateDefault
			}
		}
	}
	return nil
}

func normalizeBreed(breed *string) *string {
	if breed == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*breed)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
