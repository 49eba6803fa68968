package appointment

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/nekogravitycat/grooming-booking-backend/internal/business"
	"github.com/nekogravitycat/grooming-booking-backend/internal/catalog"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pet"
	"github.com/nekogravitycat/grooming-booking-backend/internal/scheduling"
)

// memRepo keeps appointments in memory. InResourceTx holds a mutex per
// resource for the whole callback and applies writes only when it succeeds.
type memRepo struct {
	mu           sync.Mutex
	locks        map[Resource]*sync.Mutex
	appointments map[string]*Appointment
	seq          int
}

func newMemRepo() *memRepo {
	return &memRepo{
		locks:        make(map[Resource]*sync.Mutex),
		appointments: make(map[string]*Appointment),
	}
}

func cloneAppointment(a *Appointment) *Appointment {
	c := *a
	c.Items = slices.Clone(a.Items)
	return &c
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.appointments)
}

func (r *memRepo) GetByID(_ context.Context, id string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAppointment(a), nil
}

func (r *memRepo) List(_ context.Context, f Filter) ([]*Appointment, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*Appointment
	for _, a := range r.appointments {
		if (f.BusinessID != "" && a.BusinessID != f.BusinessID) ||
			(f.ClientID != "" && a.ClientID != f.ClientID) ||
			(f.GroomerID != "" && a.GroomerID != f.GroomerID) ||
			(f.Status != "" && a.Status != f.Status) ||
			(f.From != nil && a.StartTime.Before(*f.From)) ||
			(f.To != nil && !a.StartTime.Before(*f.To)) {
			continue
		}
		matched = append(matched, cloneAppointment(a))
	}
	slices.SortFunc(matched, func(a, b *Appointment) int { return b.StartTime.Compare(a.StartTime) })

	total := len(matched)
	start := min(f.Offset, total)
	end := min(start+f.Limit, total)
	return matched[start:end], total, nil
}

func (r *memRepo) ListIntersecting(_ context.Context, res Resource, from, to time.Time) ([]scheduling.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bookingsLocked(res, from, to), nil
}

func (r *memRepo) bookingsLocked(res Resource, from, to time.Time) []scheduling.Booking {
	var out []scheduling.Booking
	for _, a := range r.appointments {
		if a.Resource() != res || a.Status == scheduling.StatusCancelled {
			continue
		}
		if scheduling.Overlaps(a.StartTime, a.EndTime, from, to) {
			out = append(out, a.Booking())
		}
	}
	slices.SortFunc(out, func(a, b scheduling.Booking) int { return cmp.Compare(a.Start.UnixNano(), b.Start.UnixNano()) })
	return out
}

func (r *memRepo) resourceLock(res Resource) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[res]
	if !ok {
		l = &sync.Mutex{}
		r.locks[res] = l
	}
	return l
}

func (r *memRepo) InResourceTx(ctx context.Context, res Resource, fn func(ctx context.Context, ledger Ledger) error) error {
	lock := r.resourceLock(res)
	lock.Lock()
	defer lock.Unlock()

	ledger := &memLedger{repo: r, res: res}
	if err := fn(ctx, ledger); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, apply := range ledger.pending {
		apply()
	}
	return nil
}

type memLedger struct {
	repo    *memRepo
	res     Resource
	pending []func()
}

func (l *memLedger) HasOverlap(_ context.Context, start, end time.Time, excludeID string) (bool, error) {
	l.repo.mu.Lock()
	defer l.repo.mu.Unlock()
	booked := l.repo.bookingsLocked(l.res, start, end)
	return scheduling.HasOverlap(start, end, booked, excludeID), nil
}

func (l *memLedger) Insert(_ context.Context, a *Appointment) error {
	l.pending = append(l.pending, func() {
		l.repo.seq++
		a.ID = fmt.Sprintf("appt-%d", l.repo.seq)
		for i := range a.Items {
			a.Items[i].ID = fmt.Sprintf("%s-item-%d", a.ID, i+1)
		}
		a.CreatedAt = time.Now()
		a.UpdatedAt = a.CreatedAt
		l.repo.appointments[a.ID] = cloneAppointment(a)
	})
	return nil
}

func (l *memLedger) GetForUpdate(ctx context.Context, id string) (*Appointment, error) {
	a, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Resource() != l.res {
		return nil, fmt.Errorf("appointment %s is not on resource %s", id, l.res.Key())
	}
	return a, nil
}

func (l *memLedger) UpdateDetails(_ context.Context, a *Appointment) error {
	updated := cloneAppointment(a)
	l.pending = append(l.pending, func() {
		stored := l.repo.appointments[updated.ID]
		stored.StartTime, stored.EndTime = updated.StartTime, updated.EndTime
		stored.HomeAddress, stored.HomeZone = updated.HomeAddress, updated.HomeZone
	})
	return nil
}

func (l *memLedger) UpdateStatus(_ context.Context, id string, status scheduling.Status, reason *string) error {
	l.pending = append(l.pending, func() {
		a := l.repo.appointments[id]
		a.Status = status
		if reason != nil {
			a.CancelReason = reason
		}
	})
	return nil
}

type fakeBusinesses struct {
	byID  map[string]*business.Business
	staff map[string][]string
}

func (f *fakeBusinesses) GetByID(_ context.Context, id string) (*business.Business, error) {
	b, ok := f.byID[id]
	if !ok {
		return nil, business.ErrNotFound
	}
	return b, nil
}

func (f *fakeBusinesses) ResolveGroomer(_ context.Context, b *business.Business, requested string) (string, error) {
	staff := f.staff[b.ID]
	switch {
	case requested == "" && len(staff) > 0:
		return "", business.ErrGroomerRequired
	case requested == "", requested == b.OwnerUserID:
		return b.OwnerUserID, nil
	case slices.Contains(staff, requested):
		return requested, nil
	}
	return "", business.ErrInvalidGroomer
}

func (f *fakeBusinesses) IsMember(_ context.Context, businessID, userID string) (bool, error) {
	b, ok := f.byID[businessID]
	if !ok {
		return false, business.ErrNotFound
	}
	return b.OwnerUserID == userID || slices.Contains(f.staff[businessID], userID), nil
}

type fakeCatalog struct {
	services map[string]*catalog.GroomingService
	rules    map[string][]scheduling.DurationRule
}

func (f *fakeCatalog) GetServices(_ context.Context, ids []string) ([]*catalog.GroomingService, error) {
	var out []*catalog.GroomingService
	for _, id := range ids {
		if s, ok := f.services[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeCatalog) RulesFor(_ context.Context, ids []string) (map[string][]scheduling.DurationRule, error) {
	out := make(map[string][]scheduling.DurationRule, len(ids))
	for _, id := range ids {
		out[id] = f.rules[id]
	}
	return out, nil
}

type fakePets map[string]*pet.Pet

func (f fakePets) GetMany(_ context.Context, ids []string) ([]*pet.Pet, error) {
	var out []*pet.Pet
	for _, id := range ids {
		if p, ok := f[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type sentMessage struct {
	clientID string
	text     string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (n *recordingNotifier) Notify(_ context.Context, clientID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{clientID: clientID, text: message})
}

func (n *recordingNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.sent)
}

type recordingRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingRecorder) ObserveAppointment(operation, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, operation+":"+outcome)
}
