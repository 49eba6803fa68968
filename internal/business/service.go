package business

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/nekogravitycat/grooming-booking-backend/internal/auth"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/grooming-booking-backend/internal/scheduling"
	"github.com/nekogravitycat/grooming-booking-backend/internal/user"
)

// CreateRequest carries the data of a new business.
type CreateRequest struct {
	Name                             string
	Slug                             string
	Description                      *string
	Phone                            *string
	Email                            *string
	Address                          *string
	Timezone                         string
	OffersInSalon                    bool
	OffersAtHome                     bool
	MaxDogsPerHomeVisit              *int
	HomeVisitSetupMinutes            int
	HomeVisitTeardownMinutes         int
	DefaultTransportMinutes          int
	MinHoursBeforeCancelOrReschedule int
	WorkingHours                     []WorkingHour
}

// UpdateRequest carries a partial update; nil fields are left unchanged.
type UpdateRequest struct {
	Name                             *string
	Slug                             *string
	Description                      *string
	Phone                            *string
	Email                            *string
	Address                          *string
	Timezone                         *string
	OffersInSalon                    *bool
	OffersAtHome                     *bool
	MaxDogsPerHomeVisit              *int
	HomeVisitSetupMinutes            *int
	HomeVisitTeardownMinutes         *int
	DefaultTransportMinutes          *int
	MinHoursBeforeCancelOrReschedule *int
}

// UpdateStaffRequest carries a partial staff update; nil fields are left unchanged.
type UpdateStaffRequest struct {
	DisplayName *string
	IsActive    *bool
}

// UserLookup finds accounts by email when attaching staff.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

type Service interface {
	Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*Business, error)
	GetByID(ctx context.Context, id string) (*Business, error)
	GetBySlug(ctx context.Context, slug string) (*Business, error)
	GetByOwner(ctx context.Context, ownerID string) (*Business, error)
	List(ctx context.Context, query string, params request.ListParams) ([]*Business, int, error)
	Update(ctx context.Context, actor auth.Actor, id string, req UpdateRequest) (*Business, error)
	SetWorkingHours(ctx context.Context, actor auth.Actor, id string, hours []WorkingHour) (*Business, error)
	SetMedia(ctx context.Context, actor auth.Actor, id string, field MediaField, fileID string) error

	AddStaff(ctx context.Context, actor auth.Actor, id, email string) (*StaffMember, error)
	ListStaff(ctx context.Context, actor auth.Actor, id string) ([]*StaffMember, error)
	UpdateStaff(ctx context.Context, actor auth.Actor, id, userID string, req UpdateStaffRequest) (*StaffMember, error)
	RemoveStaff(ctx context.Context, actor auth.Actor, id, userID string) error
	// ListGroomers returns the bookable groomers of a business, owner first.
	ListGroomers(ctx context.Context, id string) ([]Groomer, error)

	// CanManage returns the business when actor is its owner or an admin.
	CanManage(ctx context.Context, actor auth.Actor, id string) (*Business, error)
	// IsMember reports whether userID is the owner or an active staff member.
	IsMember(ctx context.Context, businessID, userID string) (bool, error)
	// ResolveGroomer picks the groomer identity an appointment is booked against.
	ResolveGroomer(ctx context.Context, b *Business, requested string) (string, error)
}

type service struct {
	repo  Repository
	users UserLookup
}

func NewService(repo Repository, users UserLookup) Service {
	return &service{repo: repo, users: users}
}

func (s *service) Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*Business, error) {
	if actor.Role != auth.RoleGroomerOwner {
		return nil, ErrPermissionDenied
	}

	if _, err := s.repo.GetByOwner(ctx, actor.UserID); err == nil {
		return nil, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	b := &Business{
		OwnerUserID:                      actor.UserID,
		Name:                             strings.TrimSpace(req.Name),
		Slug:                             slugify(cmp.Or(req.Slug, req.Name)),
		Description:                      req.Description,
		Phone:                            req.Phone,
		Email:                            req.Email,
		Address:                          req.Address,
		Timezone:                         cmp.Or(strings.TrimSpace(req.Timezone), "UTC"),
		OffersInSalon:                    req.OffersInSalon,
		OffersAtHome:                     req.OffersAtHome,
		MaxDogsPerHomeVisit:              req.MaxDogsPerHomeVisit,
		HomeVisitSetupMinutes:            req.HomeVisitSetupMinutes,
		HomeVisitTeardownMinutes:         req.HomeVisitTeardownMinutes,
		DefaultTransportMinutes:          req.DefaultTransportMinutes,
		MinHoursBeforeCancelOrReschedule: req.MinHoursBeforeCancelOrReschedule,
		WorkingHours:                     req.WorkingHours,
	}

	if err := validateBusiness(b); err != nil {
		return nil, err
	}
	if err := validateWorkingHours(b.WorkingHours); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Business, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*Business, error) {
	return s.repo.GetBySlug(ctx, slug)
}

func (s *service) GetByOwner(ctx context.Context, ownerID string) (*Business, error) {
	return s.repo.GetByOwner(ctx, ownerID)
}

func (s *service) List(ctx context.Context, query string, params request.ListParams) ([]*Business, int, error) {
	params.Normalize()
	return s.repo.List(ctx, Filter{
		Query:  strings.TrimSpace(query),
		Limit:  params.PageSize,
		Offset: params.Offset(),
	})
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id string, req UpdateRequest) (*Business, error) {
	b, err := s.CanManage(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		b.Name = strings.TrimSpace(*req.Name)
	}
	if req.Slug != nil {
		b.Slug = slugify(*req.Slug)
	}
	if req.Description != nil {
		b.Description = req.Description
	}
	if req.Phone != nil {
		b.Phone = req.Phone
	}
	if req.Email != nil {
		b.Email = req.Email
	}
	if req.Address != nil {
		b.Address = req.Address
	}
	if req.Timezone != nil {
		b.Timezone = strings.TrimSpace(*req.Timezone)
	}
	if req.OffersInSalon != nil {
		b.OffersInSalon = *req.OffersInSalon
	}
	if req.OffersAtHome != nil {
		b.OffersAtHome = *req.OffersAtHome
	}
	if req.MaxDogsPerHomeVisit != nil {
		b.MaxDogsPerHomeVisit = req.MaxDogsPerHomeVisit
	}
	if req.HomeVisitSetupMinutes != nil {
		b.HomeVisitSetupMinutes = *req.HomeVisitSetupMinutes
	}
	if req.HomeVisitTeardownMinutes != nil {
		b.HomeVisitTeardownMinutes = *req.HomeVisitTeardownMinutes
	}
	if req.DefaultTransportMinutes != nil {
		b.DefaultTransportMinutes = *req.DefaultTransportMinutes
	}
	if req.MinHoursBeforeCancelOrReschedule != nil {
		b.MinHoursBeforeCancelOrReschedule = *req.MinHoursBeforeCancelOrReschedule
	}

	if err := validateBusiness(b); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) SetWorkingHours(ctx context.Context, actor auth.Actor, id string, hours []WorkingHour) (*Business, error) {
	b, err := s.CanManage(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := validateWorkingHours(hours); err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceWorkingHours(ctx, b.ID, hours); err != nil {
		return nil, err
	}
	b.WorkingHours = hours
	return b, nil
}

func (s *service) SetMedia(ctx context.Context, actor auth.Actor, id string, field MediaField, fileID string) error {
	b, err := s.CanManage(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.repo.SetMedia(ctx, b.ID, field, fileID)
}

func (s *service) AddStaff(ctx context.Context, actor auth.Actor, id, email string) (*StaffMember, error) {
	b, err := s.CanManage(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u.Role != auth.RoleGroomerStaff {
		return nil, ErrNotStaffAccount
	}

	if err := s.repo.AddStaff(ctx, b.ID, u.ID); err != nil {
		return nil, err
	}
	return s.repo.GetStaff(ctx, b.ID, u.ID)
}

func (s *service) ListStaff(ctx context.Context, actor auth.Actor, id string) ([]*StaffMember, error) {
	b, err := s.CanManage(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.repo.ListStaff(ctx, b.ID)
}

func (s *service) UpdateStaff(ctx context.Context, actor auth.Actor, id, userID string, req UpdateStaffRequest) (*StaffMember, error) {
	b, err := s.CanManage(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetStaff(ctx, b.ID, userID); err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			return nil, ErrNameRequired
		}
		if err := s.repo.SetStaffDisplayName(ctx, userID, name); err != nil {
			return nil, err
		}
	}
	if req.IsActive != nil {
		if err := s.repo.SetStaffActive(ctx, b.ID, userID, *req.IsActive); err != nil {
			return nil, err
		}
	}
	return s.repo.GetStaff(ctx, b.ID, userID)
}

func (s *service) ListGroomers(ctx context.Context, id string) ([]Groomer, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	staff, err := s.repo.ListStaff(ctx, b.ID)
	if err != nil {
		return nil, err
	}

	groomers := []Groomer{{UserID: b.OwnerUserID, DisplayName: b.Name, IsOwner: true}}
	for _, m := range staff {
		if !m.IsActive || m.UserID == b.OwnerUserID {
			continue
		}
		g := Groomer{UserID: m.UserID}
		if m.DisplayName != nil {
			g.DisplayName = *m.DisplayName
		}
		groomers = append(groomers, g)
	}
	return groomers, nil
}

func (s *service) RemoveStaff(ctx context.Context, actor auth.Actor, id, userID string) error {
	b, err := s.CanManage(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.repo.SetStaffActive(ctx, b.ID, userID, false)
}

func (s *service) CanManage(ctx context.Context, actor auth.Actor, id string) (*Business, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == auth.RoleAdmin || (actor.Role == auth.RoleGroomerOwner && b.OwnerUserID == actor.UserID) {
		return b, nil
	}
	return nil, ErrPermissionDenied
}

func (s *service) IsMember(ctx context.Context, businessID, userID string) (bool, error) {
	b, err := s.repo.GetByID(ctx, businessID)
	if err != nil {
		return false, err
	}
	if b.OwnerUserID == userID {
		return true, nil
	}
	m, err := s.repo.GetStaff(ctx, businessID, userID)
	if err != nil {
		if errors.Is(err, ErrStaffNotFound) {
			return false, nil
		}
		return false, err
	}
	return m.IsActive, nil
}

func (s *service) ResolveGroomer(ctx context.Context, b *Business, requested string) (string, error) {
	if requested == "" {
		hasStaff, err := s.repo.HasActiveStaff(ctx, b.ID)
		if err != nil {
			return "", err
		}
		if hasStaff {
			return "", ErrGroomerRequired
		}
		return b.OwnerUserID, nil
	}

	if requested == b.OwnerUserID {
		return requested, nil
	}
	m, err := s.repo.GetStaff(ctx, b.ID, requested)
	if err != nil {
		if errors.Is(err, ErrStaffNotFound) {
			return "", ErrInvalidGroomer
		}
		return "", err
	}
	if !m.IsActive {
		return "", ErrInvalidGroomer
	}
	return requested, nil
}

func validateBusiness(b *Business) error {
	if b.Name == "" || b.Slug == "" {
		return ErrNameRequired
	}
	if _, err := time.LoadLocation(b.Timezone); err != nil || b.Timezone == "" {
		return apperror.Detail(ErrInvalidTimezone, "invalid timezone %q", b.Timezone)
	}
	if !b.OffersInSalon && !b.OffersAtHome {
		return ErrNoLocationOffered
	}
	if b.OffersAtHome && (b.MaxDogsPerHomeVisit == nil || *b.MaxDogsPerHomeVisit <= 0) {
		return ErrMaxDogsRequired
	}
	if b.HomeVisitSetupMinutes < 0 || b.HomeVisitTeardownMinutes < 0 ||
		b.DefaultTransportMinutes < 0 || b.MinHoursBeforeCancelOrReschedule < 0 {
		return ErrNegativeMinutes
	}
	return nil
}

// validateWorkingHours checks each block and rejects blocks that overlap on the same weekday.
func validateWorkingHours(hours []WorkingHour) error {
	for _, h := range hours {
		if h.Weekday < 0 || h.Weekday > 6 {
			return apperror.Detail(ErrInvalidWorkingHours, "weekday %d must be between 0 and 6", h.Weekday)
		}
	}

	blocks, err := toSchedule(hours)
	if err != nil {
		return apperror.Detail(ErrInvalidWorkingHours, "%v", err)
	}
	for _, b := range blocks {
		if b.End <= b.Start {
			return apperror.Detail(ErrInvalidWorkingHours, "block %s-%s on weekday %d must end after it starts", b.Start, b.End, b.Weekday)
		}
	}

	slices.SortFunc(blocks, func(a, b scheduling.WorkingHours) int {
		return cmp.Or(cmp.Compare(a.Weekday, b.Weekday), cmp.Compare(a.Start, b.Start))
	})
	for i := 1; i < len(blocks); i++ {
		prev, cur := blocks[i-1], blocks[i]
		if prev.Weekday == cur.Weekday && cur.Start < prev.End {
			return apperror.Detail(ErrInvalidWorkingHours, "blocks %s-%s and %s-%s overlap on weekday %d",
				prev.Start, prev.End, cur.Start, cur.End, cur.Weekday)
		}
	}
	return nil
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
