package pet

import (
	"context"
	"strings"

	"github.com/nekogravitycat/grooming-booking-backend/internal/auth"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/grooming-booking-backend/internal/scheduling"
)

type CreateRequest struct {
	Name    string
	Species scheduling.Species
	Size    scheduling.Size
	Breed   *string
	Notes   *string
}

// UpdateRequest carries a partial update; nil fields are left unchanged.
type UpdateRequest struct {
	Name    *string
	Species *scheduling.Species
	Size    *scheduling.Size
	Breed   *string
	Notes   *string
}

type Service interface {
	Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*Pet, error)
	GetByID(ctx context.Context, actor auth.Actor, id string) (*Pet, error)
	ListByOwner(ctx context.Context, actor auth.Actor, params request.ListParams) ([]*Pet, int, error)
	Update(ctx context.Context, actor auth.Actor, id string, req UpdateRequest) (*Pet, error)
	Delete(ctx context.Context, actor auth.Actor, id string) error
	// GetMany loads pets without an ownership check; callers verify ownership themselves.
	GetMany(ctx context.Context, ids []string) ([]*Pet, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*Pet, error) {
	if actor.Role != auth.RoleClient {
		return nil, ErrPermissionDenied
	}

	p := &Pet{
		OwnerUserID: actor.UserID,
		Name:        strings.TrimSpace(req.Name),
		Species:     req.Species,
		Size:        req.Size,
		Breed:       trimmed(req.Breed),
		Notes:       req.Notes,
	}
	if err := validate(p); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) GetByID(ctx context.Context, actor auth.Actor, id string) (*Pet, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerUserID != actor.UserID && actor.Role != auth.RoleAdmin {
		// Report foreign pets as missing.
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *service) ListByOwner(ctx context.Context, actor auth.Actor, params request.ListParams) ([]*Pet, int, error) {
	params.Normalize()
	return s.repo.ListByOwner(ctx, actor.UserID, params.PageSize, params.Offset())
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id string, req UpdateRequest) (*Pet, error) {
	p, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Species != nil {
		p.Species = *req.Species
	}
	if req.Size != nil {
		p.Size = *req.Size
	}
	if req.Breed != nil {
		p.Breed = trimmed(req.Breed)
	}
	if req.Notes != nil {
		p.Notes = req.Notes
	}

	if err := validate(p); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	p, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, p.ID)
}

func (s *service) GetMany(ctx context.Context, ids []string) ([]*Pet, error) {
	return s.repo.GetMany(ctx, ids)
}

func validate(p *Pet) error {
	if p.Name == "" {
		return ErrNameRequired
	}
	if !p.Species.IsValid() {
		return ErrInvalidSpecies
	}
	if !p.Size.IsValid() {
		return ErrInvalidSize
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
