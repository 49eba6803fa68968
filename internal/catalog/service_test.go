package catalog

import (
	"context"
	"slices"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/nekogravitycat/grooming-booking-backend/internal/auth"
	"github.com/nekogravitycat/grooming-booking-backend/internal/business"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/grooming-booking-backend/internal/scheduling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu       sync.Mutex
	services map[string]*GroomingService
	rules    map[string]*DurationRule
	order    []string
}

func newMemRepo() *memRepo {
	return &memRepo{services: map[string]*GroomingService{}, rules: map[string]*DurationRule{}}
}

func (r *memRepo) CreateService(_ context.Context, s *GroomingService) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = uuid.NewString()
	cp := *s
	r.services[s.ID] = &cp
	return nil
}

func (r *memRepo) GetService(_ context.Context, id string) (*GroomingService, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memRepo) GetServices(_ context.Context, ids []string) ([]*GroomingService, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*GroomingService
	for _, id := range ids {
		if s, ok := r.services[id]; ok {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memRepo) ListServices(_ context.Context, f ServiceFilter) ([]*GroomingService, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*GroomingService
	for _, s := range r.services {
		if s.BusinessID == f.BusinessID && (!f.ActiveOnly || s.IsActive) {
			cp := *s
			all = append(all, &cp)
		}
	}
	slices.SortFunc(all, func(a, b *GroomingService) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	total := len(all)
	start := min(f.Offset, total)
	end := min(start+f.Limit, total)
	return all[start:end], total, nil
}

func (r *memRepo) UpdateService(_ context.Context, s *GroomingService) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.services[s.ID] = &cp
	return nil
}

func (r *memRepo) CreateRule(_ context.Context, rule *DurationRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule.ID = uuid.NewString()
	cp := *rule
	r.rules[rule.ID] = &cp
	r.order = append(r.order, rule.ID)
	return nil
}

func (r *memRepo) GetRule(_ context.Context, id string) (*DurationRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return nil, ErrRuleNotFound
	}
	cp := *rule
	return &cp, nil
}

func (r *memRepo) ListRules(_ context.Context, serviceIDs []string) ([]*DurationRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*DurationRule
	for _, id := range r.order {
		rule, ok := r.rules[id]
		if ok && slices.Contains(serviceIDs, rule.ServiceID) {
			cp := *rule
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memRepo) UpdateRule(_ context.Context, rule *DurationRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rule
	r.rules[rule.ID] = &cp
	return nil
}

func (r *memRepo) DeleteRule(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[id]; !ok {
		return ErrRuleNotFound
	}
	delete(r.rules, id)
	return nil
}

type fakeGuard struct {
	b *business.Business
}

func (g fakeGuard) CanManage(_ context.Context, actor auth.Actor, id string) (*business.Business, error) {
	if id != g.b.ID {
		return nil, business.ErrNotFound
	}
	if actor.UserID != g.b.OwnerUserID {
		return nil, business.ErrPermissionDenied
	}
	cp := *g.b
	return &cp, nil
}

const businessID = "b0000000-0000-0000-0000-000000000001"

var (
	owner  = auth.Actor{UserID: "owner", Role: auth.RoleGroomerOwner}
	client = auth.Actor{UserID: "client", Role: auth.RoleClient}
)

func newTestService() (Service, *memRepo) {
	repo := newMemRepo()
	guard := fakeGuard{b: &business.Business{ID: businessID, OwnerUserID: owner.UserID, OffersInSalon: true}}
	return NewService(repo, guard), repo
}

func sizePtr(s scheduling.Size) *scheduling.Size { return &s }
func strPtr(s string) *string { return &s }

func createBath(t *testing.T, svc Service) *GroomingService {
	t.Helper()
	s, err := svc.CreateService(context.Background(), owner, businessID, CreateServiceRequest{
		Name:               " Bath & Brush ",
		SpeciesSupported:   []scheduling.Species{scheduling.SpeciesDog},
		LocationsSupported: []scheduling.LocationType{scheduling.LocationInSalon},
	})
	require.NoError(t, err)
	return s
}

func TestCreateService(t *testing.T) {
	svc, _ := newTestService()
	s := createBath(t, svc)
	assert.Equal(t, "Bath & Brush", s.Name)
	assert.True(t, s.IsActive)

	ctx := context.Background()
	_, err := svc.CreateService(ctx, client, businessID, CreateServiceRequest{Name: "x"})
	assert.ErrorIs(t, err, business.ErrPermissionDenied)

	_, err = svc.CreateService(ctx, owner, businessID, CreateServiceRequest{
		Name:               "House call",
		SpeciesSupported:   []scheduling.Species{scheduling.SpeciesDog},
		LocationsSupported: []scheduling.LocationType{scheduling.LocationAtHome},
	})
	assert.ErrorIs(t, err, ErrLocationNotOffered)

	_, err = svc.CreateService(ctx, owner, businessID, CreateServiceRequest{
		Name:               "Bird spa",
		SpeciesSupported:   []scheduling.Species{"BIRD"},
		LocationsSupported: []scheduling.LocationType{scheduling.LocationInSalon},
	})
	assert.ErrorIs(t, err, ErrInvalidSpecies)
}

func TestListServices_HidesInactiveFromPublic(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	s := createBath(t, svc)
	inactive := false
	_, err := svc.UpdateService(ctx, owner, s.ID, UpdateServiceRequest{IsActive: &inactive})
	require.NoError(t, err)

	items, total, err := svc.ListServices(ctx, auth.Actor{}, businessID, false, request.ListParams{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)

	_, _, err = svc.ListServices(ctx, client, businessID, true, request.ListParams{})
	assert.ErrorIs(t, err, business.ErrPermissionDenied)

	items, total, err = svc.ListServices(ctx, owner, businessID, true, request.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, items, 1)
}

func TestDeactivateService(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	s := createBath(t, svc)

	_, err := svc.DeactivateService(ctx, client, s.ID)
	assert.ErrorIs(t, err, business.ErrPermissionDenied)

	out, err := svc.DeactivateService(ctx, owner, s.ID)
	require.NoError(t, err)
	assert.False(t, out.IsActive)

	// The row stays so old appointments still resolve it.
	stored, err := repo.GetService(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	out, err = svc.DeactivateService(ctx, owner, s.ID)
	require.NoError(t, err)
	assert.False(t, out.IsActive)

	_, total, err := svc.ListServices(ctx, auth.Actor{}, businessID, false, request.ListParams{})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = svc.DeactivateService(ctx, owner, "missing")
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestCreateRule_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  CreateRuleRequest
		want error
	}{
		{"species not offered", CreateRuleRequest{Species: scheduling.SpeciesCat, IsDefaultForSpecies: true, BaseDurationMinutes: 30}, ErrSpeciesMismatch},
		{"bad size", CreateRuleRequest{Species: scheduling.SpeciesDog, Size: sizePtr("HUGE"), BaseDurationMinutes: 30}, ErrInvalidSize},
		{"zero minutes", CreateRuleRequest{Species: scheduling.SpeciesDog, IsDefaultForSpecies: true}, ErrInvalidDuration},
		{"too broad", CreateRuleRequest{Species: scheduling.SpeciesDog, BaseDurationMinutes: 30}, ErrRuleTooBroad},
		{"blank breed is too broad", CreateRuleRequest{Species: scheduling.SpeciesDog, Breed: strPtr("  "), BaseDurationMinutes: 30}, ErrRuleTooBroad},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestService()
			s := createBath(t, svc)
			_, err := svc.CreateRule(context.Background(), owner, s.ID, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRulesFor_FeedsResolveDuration(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	s := createBath(t, svc)

	reqs := []CreateRuleRequest{
		{Species: scheduling.SpeciesDog, IsDefaultForSpecies: true, BaseDurationMinutes: 60},
		{Species: scheduling.SpeciesDog, Size: sizePtr(scheduling.SizeLarge), BaseDurationMinutes: 90},
		{Species: scheduling.SpeciesDog, Breed: strPtr(" Poodle "), BaseDurationMinutes: 120},
	}
	for _, r := range reqs {
		_, err := svc.CreateRule(ctx, owner, s.ID, r)
		require.NoError(t, err)
	}

	_, err := svc.CreateRule(ctx, owner, s.ID, CreateRuleRequest{
		Species: scheduling.SpeciesDog, IsDefaultForSpecies: true, BaseDurationMinutes: 45,
	})
	assert.ErrorIs(t, err, ErrDuplicateDefault)

	byService, err := svc.RulesFor(ctx, []string{s.ID})
	require.NoError(t, err)
	rules := byService[s.ID]
	require.Len(t, rules, 3)

	got, err := scheduling.ResolveDuration(rules, scheduling.PetProfile{Species: scheduling.SpeciesDog, Size: scheduling.SizeLarge, Breed: "poodle"})
	require.NoError(t, err)
	assert.Equal(t, 120, got)

	got, err = scheduling.ResolveDuration(rules, scheduling.PetProfile{Species: scheduling.SpeciesDog, Size: scheduling.SizeLarge})
	require.NoError(t, err)
	assert.Equal(t, 90, got)

	got, err = scheduling.ResolveDuration(rules, scheduling.PetProfile{Species: scheduling.SpeciesDog, Size: scheduling.SizeMini})
	require.NoError(t, err)
	assert.Equal(t, 60, got)
}

func TestUpdateAndDeleteRule(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	s := createBath(t, svc)

	rule, err := svc.CreateRule(ctx, owner, s.ID, CreateRuleRequest{
		Species: scheduling.SpeciesDog, Size: sizePtr(scheduling.SizeSmall), BaseDurationMinutes: 40,
	})
	require.NoError(t, err)

	// Dropping the only matcher is rejected.
	_, err = svc.UpdateRule(ctx, owner, rule.ID, UpdateRuleRequest{ClearSize: true})
	assert.ErrorIs(t, err, ErrRuleTooBroad)

	isDefault := true
	minutes := 50
	updated, err := svc.UpdateRule(ctx, owner, rule.ID, UpdateRuleRequest{
		ClearSize: true, IsDefaultForSpecies: &isDefault, BaseDurationMinutes: &minutes,
	})
	require.NoError(t, err)
	assert.Nil(t, updated.Size)
	assert.Equal(t, 50, repo.rules[rule.ID].BaseDurationMinutes)

	// Updating the default rule itself does not count as a duplicate.
	minutes = 55
	_, err = svc.UpdateRule(ctx, owner, rule.ID, UpdateRuleRequest{BaseDurationMinutes: &minutes})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteRule(ctx, client, rule.ID), business.ErrPermissionDenied)
	require.NoError(t, svc.DeleteRule(ctx, owner, rule.ID))
	assert.ErrorIs(t, svc.DeleteRule(ctx, owner, rule.ID), ErrRuleNotFound)
}
