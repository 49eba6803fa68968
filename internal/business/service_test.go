package business

import (
	"context"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nekogravitycat/grooming-booking-backend/internal/auth"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/grooming-booking-backend/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu         sync.Mutex
	businesses map[string]*Business
	staff      map[string]map[string]*StaffMember
	emails     map[string]string
}

func newMemRepo() *memRepo {
	return &memRepo{
		businesses: map[string]*Business{},
		staff:      map[string]map[string]*StaffMember{},
		emails:     map[string]string{},
	}
}

func (r *memRepo) Create(_ context.Context, b *Business) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.businesses {
		if other.Slug == b.Slug {
			return ErrSlugTaken
		}
	}
	b.ID = uuid.NewString()
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	cp := *b
	r.businesses[b.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*Business, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.businesses[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memRepo) GetBySlug(_ context.Context, slug string) (*Business, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.businesses {
		if b.Slug == slug {
			cp := *b
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) List(_ context.Context, filter Filter) ([]*Business, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*Business
	for _, b := range r.businesses {
		if filter.Query != "" && !strings.Contains(strings.ToLower(b.Name), strings.ToLower(filter.Query)) {
			continue
		}
		cp := *b
		all = append(all, &cp)
	}
	slices.SortFunc(all, func(a, b *Business) int { return strings.Compare(a.Name, b.Name) })

	total := len(all)
	start := min(filter.Offset, total)
	end := min(start+filter.Limit, total)
	return all[start:end], total, nil
}

func (r *memRepo) GetByOwner(_ context.Context, ownerID string) (*Business, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.businesses {
		if b.OwnerUserID == ownerID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) Update(_ context.Context, b *Business) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.businesses[b.ID] = &cp
	return nil
}

func (r *memRepo) ReplaceWorkingHours(_ context.Context, businessID string, hours []WorkingHour) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.businesses[businessID].WorkingHours = hours
	return nil
}

func (r *memRepo) SetMedia(_ context.Context, businessID string, field MediaField, fileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.businesses[businessID]
	switch field {
	case MediaLogo:
		b.LogoFileID = &fileID
	case MediaCover:
		b.CoverImageFileID = &fileID
	}
	return nil
}

func (r *memRepo) AddStaff(_ context.Context, businessID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.staff[businessID] == nil {
		r.staff[businessID] = map[string]*StaffMember{}
	}
	r.staff[businessID][userID] = &StaffMember{BusinessID: businessID, UserID: userID, Email: r.emails[userID], IsActive: true}
	return nil
}

func (r *memRepo) GetStaff(_ context.Context, businessID, userID string) (*StaffMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.staff[businessID][userID]
	if !ok {
		return nil, ErrStaffNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memRepo) ListStaff(_ context.Context, businessID string) ([]*StaffMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*StaffMember
	for _, m := range r.staff[businessID] {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memRepo) SetStaffActive(_ context.Context, businessID, userID string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.staff[businessID][userID]
	if !ok {
		return ErrStaffNotFound
	}
	m.IsActive = active
	return nil
}

func (r *memRepo) SetStaffDisplayName(_ context.Context, userID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, members := range r.staff {
		if m, ok := members[userID]; ok {
			m.DisplayName = &name
		}
	}
	return nil
}

func (r *memRepo) HasActiveStaff(_ context.Context, businessID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.staff[businessID] {
		if m.IsActive {
			return true, nil
		}
	}
	return false, nil
}

type fakeUsers map[string]*user.User

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	u, ok := f[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

var owner = auth.Actor{UserID: "11111111-1111-1111-1111-111111111111", Role: auth.RoleGroomerOwner}

func intPtr(v int) *int { return &v }

func validRequest() CreateRequest {
	return CreateRequest{
		Name:                  "Fluffy Paws Spa",
		Timezone:              "Asia/Taipei",
		OffersInSalon:         true,
		OffersAtHome:          true,
		MaxDogsPerHomeVisit:   intPtr(2),
		HomeVisitSetupMinutes: 10,
		WorkingHours: []WorkingHour{
			{Weekday: 1, StartTime: "09:00", EndTime: "12:00"},
			{Weekday: 1, StartTime: "13:00", EndTime: "18:00"},
		},
	}
}

func newTestService() (Service, *memRepo, fakeUsers) {
	repo := newMemRepo()
	users := fakeUsers{}
	return NewService(repo, users), repo, users
}

func TestCreate(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	b, err := svc.Create(ctx, owner, validRequest())
	require.NoError(t, err)
	assert.Equal(t, "fluffy-paws-spa", b.Slug)
	assert.Equal(t, owner.UserID, b.OwnerUserID)

	_, err = svc.Create(ctx, owner, validRequest())
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = svc.Create(ctx, auth.Actor{UserID: "c", Role: auth.RoleClient}, validRequest())
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateRequest)
		want   error
	}{
		{"blank name", func(r *CreateRequest) { r.Name = "  " }, ErrNameRequired},
		{"bad timezone", func(r *CreateRequest) { r.Timezone = "Mars/Olympus" }, ErrInvalidTimezone},
		{"no location", func(r *CreateRequest) { r.OffersInSalon, r.OffersAtHome = false, false }, ErrNoLocationOffered},
		{"home without cap", func(r *CreateRequest) { r.MaxDogsPerHomeVisit = nil }, ErrMaxDogsRequired},
		{"zero cap", func(r *CreateRequest) { r.MaxDogsPerHomeVisit = intPtr(0) }, ErrMaxDogsRequired},
		{"negative setup", func(r *CreateRequest) { r.HomeVisitSetupMinutes = -5 }, ErrNegativeMinutes},
		{"bad weekday", func(r *CreateRequest) { r.WorkingHours[0].Weekday = 7 }, ErrInvalidWorkingHours},
		{"bad clock", func(r *CreateRequest) { r.WorkingHours[0].StartTime = "9am" }, ErrInvalidWorkingHours},
		{"inverted block", func(r *CreateRequest) { r.WorkingHours[0].EndTime = "08:00" }, ErrInvalidWorkingHours},
		{"overlapping blocks", func(r *CreateRequest) { r.WorkingHours[1].StartTime = "11:30" }, ErrInvalidWorkingHours},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, _ := newTestService()
			req := validRequest()
			tc.mutate(&req)
			_, err := svc.Create(context.Background(), owner, req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreate_SalonOnlyNeedsNoCap(t *testing.T) {
	svc, _, _ := newTestService()
	req := validRequest()
	req.OffersAtHome = false
	req.MaxDogsPerHomeVisit = nil

	_, err := svc.Create(context.Background(), owner, req)
	assert.NoError(t, err)
}

func TestUpdate_Permissions(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	b, err := svc.Create(ctx, owner, validRequest())
	require.NoError(t, err)

	name := "Renamed"
	other := auth.Actor{UserID: "22222222-2222-2222-2222-222222222222", Role: auth.RoleGroomerOwner}
	_, err = svc.Update(ctx, other, b.ID, UpdateRequest{Name: &name})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	admin := auth.Actor{UserID: "admin", Role: auth.RoleAdmin}
	updated, err := svc.Update(ctx, admin, b.ID, UpdateRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	offHome := false
	updated, err = svc.Update(ctx, owner, b.ID, UpdateRequest{OffersAtHome: &offHome})
	require.NoError(t, err)
	assert.False(t, updated.OffersAtHome)
}

func TestSetWorkingHours(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	b, err := svc.Create(ctx, owner, validRequest())
	require.NoError(t, err)

	hours := []WorkingHour{{Weekday: 6, StartTime: "10:00", EndTime: "16:00"}}
	_, err = svc.SetWorkingHours(ctx, owner, b.ID, hours)
	require.NoError(t, err)
	assert.Equal(t, hours, repo.businesses[b.ID].WorkingHours)

	sched, err := repo.businesses[b.ID].Schedule()
	require.NoError(t, err)
	require.Len(t, sched, 1)
	assert.Equal(t, time.Saturday, sched[0].Weekday)
	assert.Equal(t, "10:00", sched[0].Start.String())
}

func TestStaffAndGroomerResolution(t *testing.T) {
	svc, repo, users := newTestService()
	ctx := context.Background()
	b, err := svc.Create(ctx, owner, validRequest())
	require.NoError(t, err)

	// Without staff the owner is the only groomer.
	g, err := svc.ResolveGroomer(ctx, b, "")
	require.NoError(t, err)
	assert.Equal(t, owner.UserID, g)

	staffID := "33333333-3333-3333-3333-333333333333"
	users["anna@example.com"] = &user.User{ID: staffID, Email: "anna@example.com", Role: auth.RoleGroomerStaff}
	users["bob@example.com"] = &user.User{ID: "client", Email: "bob@example.com", Role: auth.RoleClient}
	repo.emails[staffID] = "anna@example.com"

	_, err = svc.AddStaff(ctx, owner, b.ID, "bob@example.com")
	assert.ErrorIs(t, err, ErrNotStaffAccount)
	_, err = svc.AddStaff(ctx, owner, b.ID, "nobody@example.com")
	assert.ErrorIs(t, err, user.ErrNotFound)

	m, err := svc.AddStaff(ctx, owner, b.ID, "anna@example.com")
	require.NoError(t, err)
	assert.True(t, m.IsActive)

	_, err = svc.ResolveGroomer(ctx, b, "")
	assert.ErrorIs(t, err, ErrGroomerRequired)

	g, err = svc.ResolveGroomer(ctx, b, staffID)
	require.NoError(t, err)
	assert.Equal(t, staffID, g)

	g, err = svc.ResolveGroomer(ctx, b, owner.UserID)
	require.NoError(t, err)
	assert.Equal(t, owner.UserID, g)

	_, err = svc.ResolveGroomer(ctx, b, "44444444-4444-4444-4444-444444444444")
	assert.ErrorIs(t, err, ErrInvalidGroomer)

	isMember, err := svc.IsMember(ctx, b.ID, staffID)
	require.NoError(t, err)
	assert.True(t, isMember)

	require.NoError(t, svc.RemoveStaff(ctx, owner, b.ID, staffID))

	_, err = svc.ResolveGroomer(ctx, b, staffID)
	assert.ErrorIs(t, err, ErrInvalidGroomer)
	isMember, err = svc.IsMember(ctx, b.ID, staffID)
	require.NoError(t, err)
	assert.False(t, isMember)

	g, err = svc.ResolveGroomer(ctx, b, "")
	require.NoError(t, err)
	assert.Equal(t, owner.UserID, g)
}

func TestSetMedia(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	b, err := svc.Create(ctx, owner, validRequest())
	require.NoError(t, err)

	require.NoError(t, svc.SetMedia(ctx, owner, b.ID, MediaLogo, "file-1"))
	assert.Equal(t, "file-1", *repo.businesses[b.ID].LogoFileID)
	assert.Nil(t, repo.businesses[b.ID].CoverImageFileID)

	client := auth.Actor{UserID: "c", Role: auth.RoleClient}
	assert.ErrorIs(t, svc.SetMedia(ctx, client, b.ID, MediaCover, "file-2"), ErrPermissionDenied)
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Fluffy Paws Spa":    "fluffy-paws-spa",
		"  Dog & Cat -- Co ": "dog-cat-co",
		"Spa 24/7":           "spa-24-7",
		"!!!":                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, slugify(in), in)
	}
}

func TestListAndGetBySlug(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	names := []string{"Cozy Cuts", "Bubble Bath Dogs", "Cozy Corner"}
	for i, name := range names {
		req := validRequest()
		req.Name = name
		actor := auth.Actor{UserID: uuid.NewString(), Role: auth.RoleGroomerOwner}
		if i == 0 {
			actor = owner
		}
		_, err := svc.Create(ctx, actor, req)
		require.NoError(t, err)
	}

	list, total, err := svc.List(ctx, "", request.ListParams{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, list, 2)
	assert.Equal(t, "Bubble Bath Dogs", list[0].Name)

	list, total, err = svc.List(ctx, "  cozy ", request.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, list, 2)

	b, err := svc.GetBySlug(ctx, "bubble-bath-dogs")
	require.NoError(t, err)
	assert.Equal(t, "Bubble Bath Dogs", b.Name)

	_, err = svc.GetBySlug(ctx, "nowhere")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListGroomers(t *testing.T) {
	svc, repo, users := newTestService()
	ctx := context.Background()
	b, err := svc.Create(ctx, owner, validRequest())
	require.NoError(t, err)

	groomers, err := svc.ListGroomers(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []Groomer{{UserID: owner.UserID, DisplayName: b.Name, IsOwner: true}}, groomers)

	for _, id := range []string{"33333333-3333-3333-3333-333333333333", "55555555-5555-5555-5555-555555555555"} {
		email := id[:4] + "@example.com"
		users[email] = &user.User{ID: id, Email: email, Role: auth.RoleGroomerStaff}
		repo.emails[id] = email
		_, err := svc.AddStaff(ctx, owner, b.ID, email)
		require.NoError(t, err)
	}
	name := "Anna"
	_, err = svc.UpdateStaff(ctx, owner, b.ID, "33333333-3333-3333-3333-333333333333", UpdateStaffRequest{DisplayName: &name})
	require.NoError(t, err)
	require.NoError(t, svc.RemoveStaff(ctx, owner, b.ID, "55555555-5555-5555-5555-555555555555"))

	// A client can list them without any permission check.
	groomers, err = svc.ListGroomers(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, groomers, 2)
	assert.True(t, groomers[0].IsOwner)
	assert.Equal(t, Groomer{UserID: "33333333-3333-3333-3333-333333333333", DisplayName: "Anna"}, groomers[1])

	_, err = svc.ListGroomers(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStaff(t *testing.T) {
	svc, repo, users := newTestService()
	ctx := context.Background()
	b, err := svc.Create(ctx, owner, validRequest())
	require.NoError(t, err)

	staffID := "33333333-3333-3333-3333-333333333333"
	users["anna@example.com"] = &user.User{ID: staffID, Email: "anna@example.com", Role: auth.RoleGroomerStaff}
	repo.emails[staffID] = "anna@example.com"
	_, err = svc.AddStaff(ctx, owner, b.ID, "anna@example.com")
	require.NoError(t, err)

	off := false
	m, err := svc.UpdateStaff(ctx, owner, b.ID, staffID, UpdateStaffRequest{IsActive: &off})
	require.NoError(t, err)
	assert.False(t, m.IsActive)
	_, err = svc.ResolveGroomer(ctx, b, staffID)
	assert.ErrorIs(t, err, ErrInvalidGroomer)

	on := true
	m, err = svc.UpdateStaff(ctx, owner, b.ID, staffID, UpdateStaffRequest{IsActive: &on})
	require.NoError(t, err)
	assert.True(t, m.IsActive)

	blank := " "
	_, err = svc.UpdateStaff(ctx, owner, b.ID, staffID, UpdateStaffRequest{DisplayName: &blank})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = svc.UpdateStaff(ctx, owner, b.ID, uuid.NewString(), UpdateStaffRequest{IsActive: &on})
	assert.ErrorIs(t, err, ErrStaffNotFound)

	other := auth.Actor{UserID: uuid.NewString(), Role: auth.RoleGroomerOwner}
	_, err = svc.UpdateStaff(ctx, other, b.ID, staffID, UpdateStaffRequest{IsActive: &off})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}
