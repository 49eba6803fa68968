package appointment

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nekogravitycat/grooming-booking-backend/internal/auth"
	"github.com/nekogravitycat/grooming-booking-backend/internal/business"
	"github.com/nekogravitycat/grooming-booking-backend/internal/catalog"
	"github.com/nekogravitycat/grooming-booking-backend/internal/notify"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pet"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/grooming-booking-backend/internal/scheduling"
)

var tracer = otel.Tracer("github.com/nekogravitycat/grooming-booking-backend/internal/appointment")

// ItemSelection is one pet and service the client wants groomed.
type ItemSelection struct {
	PetID     string
	ServiceID string
	Extras    map[string]any
}

type BookRequest struct {
	Actor        auth.Actor
	BusinessID   string
	GroomerID    string
	LocationType scheduling.LocationType
	StartTime    time.Time
	HomeAddress  *string
	HomeZone     *string
	Items        []ItemSelection
}

// RescheduleRequest is a partial edit of an appointment; nil fields are left unchanged.
type RescheduleRequest struct {
	StartTime   *time.Time
	HomeAddress *string
	HomeZone    *string
}

type AvailabilityRequest struct {
	Date         time.Time
	GroomerID    string
	LocationType scheduling.LocationType
	Items        []ItemSelection
}

// Availability lists the free start times of one day for a selection.
type Availability struct {
	Date            time.Time
	LocationType    scheduling.LocationType
	GroomerID       string
	DurationMinutes int
	Slots           []time.Time
}

// ListRequest narrows List. Business-side callers without a BusinessID see
// their own calendar.
type ListRequest struct {
	BusinessID string
	Status     scheduling.Status
	From       *time.Time
	To         *time.Time
}

type Service interface {
	Book(ctx context.Context, req BookRequest) (*Appointment, error)
	Availability(ctx context.Context, actor auth.Actor, businessID string, req AvailabilityRequest) (*Availability, error)
	// GenerateSlots yields the free start times of date for an appointment of minutes length.
	GenerateSlots(ctx context.Context, b *business.Business, groomerID string, date time.Time, minutes int) (iter.Seq[time.Time], error)
	// Reschedule moves an appointment, keeping its duration, or edits its home details.
	Reschedule(ctx context.Context, id string, req RescheduleRequest, actor auth.Actor, now time.Time) (*Appointment, error)
	Cancel(ctx context.Context, id string, actor auth.Actor, now time.Time, reason *string) (*Appointment, error)
	UpdateStatus(ctx context.Context, actor auth.Actor, id string, status scheduling.Status) (*Appointment, error)
	GetByID(ctx context.Context, actor auth.Actor, id string) (*Appointment, error)
	List(ctx context.Context, actor auth.Actor, req ListRequest, params request.ListParams) ([]*Appointment, int, error)
}

type service struct {
	repo       Repository
	businesses BusinessReader
	catalog    CatalogReader
	pets       PetReader
	notifier   notify.Notifier
	recorder   Recorder
	logger     *slog.Logger
	now        func() time.Time
}

type Option func(*service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithRecorder reports operation outcomes, typically to Prometheus.
func WithRecorder(r Recorder) Option {
	return func(s *service) { s.recorder = r }
}

func NewService(repo Repository, businesses BusinessReader, catalog CatalogReader, pets PetReader, notifier notify.Notifier, logger *slog.Logger, opts ...Option) Service {
	s := &service{
		repo:       repo,
		businesses: businesses,
		catalog:    catalog,
		pets:       pets,
		notifier:   notifier,
		recorder:   nopRecorder{},
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// plan is a validated selection with its frozen durations.
type plan struct {
	items        []Item
	totalMinutes int
}

func (s *service) Book(ctx context.Context, req BookRequest) (a *Appointment, err error) {
	ctx, span := tracer.Start(ctx, "appointment.Book", trace.WithAttributes(
		attribute.String("business.id", req.BusinessID),
		attribute.String("location_type", string(req.LocationType)),
	))
	defer s.finish(span, "book", s.now(), &err)

	if req.Actor.Role != auth.RoleClient {
		return nil, apperror.Detail(ErrPermissionDenied, "only clients can book appointments")
	}
	if !req.LocationType.IsValid() {
		return nil, apperror.Detail(ErrInvalidSelection, "invalid location type %q", req.LocationType)
	}
	if req.StartTime.Before(s.now()) {
		return nil, ErrStartTimePast
	}
	if req.LocationType == scheduling.LocationAtHome && (req.HomeAddress == nil || strings.TrimSpace(*req.HomeAddress) == "") {
		return nil, ErrHomeAddressRequired
	}

	b, err := s.businesses.GetByID(ctx, req.BusinessID)
	if err != nil {
		return nil, err
	}
	p, err := s.plan(ctx, req.Actor, b, req.LocationType, req.Items)
	if err != nil {
		return nil, err
	}
	groomerID, err := s.resolveGroomer(ctx, b, req.GroomerID)
	if err != nil {
		return nil, err
	}

	a = &Appointment{
		BusinessID:   b.ID,
		ClientID:     req.Actor.UserID,
		GroomerID:    groomerID,
		LocationType: req.LocationType,
		StartTime:    req.StartTime,
		EndTime:      req.StartTime.Add(time.Duration(p.totalMinutes) * time.Minute),
		Status:       scheduling.StatusPending,
		Items:        p.items,
	}
	if req.LocationType == scheduling.LocationAtHome {
		a.HomeAddress = req.HomeAddress
		a.HomeZone = req.HomeZone
	}

	err = s.repo.InResourceTx(ctx, a.Resource(), func(ctx context.Context, ledger Ledger) error {
		taken, err := ledger.HasOverlap(ctx, a.StartTime, a.EndTime, "")
		if err != nil {
			return err
		}
		if taken {
			return ErrSlotUnavailable
		}
		return ledger.Insert(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "appointment booked",
		"appointment_id", a.ID,
		"business_id", a.BusinessID,
		"groomer_id", a.GroomerID,
		"start", a.StartTime,
		"end", a.EndTime,
	)
	s.notify(ctx, b, a, "is booked")
	return a, nil
}

func (s *service) Availability(ctx context.Context, actor auth.Actor, businessID string, req AvailabilityRequest) (out *Availability, err error) {
	ctx, span := tracer.Start(ctx, "appointment.Availability", trace.WithAttributes(
		attribute.String("business.id", businessID),
	))
	defer s.finish(span, "availability", s.now(), &err)

	if !req.LocationType.IsValid() {
		return nil, apperror.Detail(ErrInvalidSelection, "invalid location type %q", req.LocationType)
	}
	b, err := s.businesses.GetByID(ctx, businessID)
	if err != nil {
		return nil, err
	}
	p, err := s.plan(ctx, actor, b, req.LocationType, req.Items)
	if err != nil {
		return nil, err
	}
	groomerID, err := s.resolveGroomer(ctx, b, req.GroomerID)
	if err != nil {
		return nil, err
	}

	slots, err := s.GenerateSlots(ctx, b, groomerID, req.Date, p.totalMinutes)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out = &Availability{
		Date:            req.Date,
		LocationType:    req.LocationType,
		GroomerID:       groomerID,
		DurationMinutes: p.totalMinutes,
		Slots:           []time.Time{},
	}
	for slot := range slots {
		if slot.Before(now) {
			continue
		}
		out.Slots = append(out.Slots, slot)
	}
	return out, nil
}

func (s *service) GenerateSlots(ctx context.Context, b *business.Business, groomerID string, date time.Time, minutes int) (iter.Seq[time.Time], error) {
	loc, err := b.Location()
	if err != nil {
		return nil, err
	}
	hours, err := b.Schedule()
	if err != nil {
		return nil, fmt.Errorf("business %s working hours: %w", b.ID, err)
	}

	from, to := scheduling.DayBounds(date, loc)
	booked, err := s.repo.ListIntersecting(ctx, Resource{BusinessID: b.ID, GroomerID: groomerID}, from, to)
	if err != nil {
		return nil, err
	}
	return scheduling.Slots(hours, date, loc, time.Duration(minutes)*time.Minute, booked), nil
}

func (s *service) Reschedule(ctx context.Context, id string, req RescheduleRequest, actor auth.Actor, now time.Time) (a *Appointment, err error) {
	ctx, span := tracer.Start(ctx, "appointment.Reschedule", trace.WithAttributes(
		attribute.String("appointment.id", id),
	))
	defer s.finish(span, "reschedule", s.now(), &err)

	if req.StartTime == nil && req.HomeAddress == nil && req.HomeZone == nil {
		return nil, ErrNothingToChange
	}

	current, b, err := s.loadForChange(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.IsReschedulable() {
		return nil, apperror.Detail(ErrInvalidTransition, "cannot reschedule a %s appointment", current.Status)
	}
	if err := checkNotice(actor, current, b, now); err != nil {
		return nil, err
	}
	if req.StartTime != nil && req.StartTime.Before(now) {
		return nil, ErrStartTimePast
	}
	if req.HomeAddress != nil || req.HomeZone != nil {
		if current.LocationType != scheduling.LocationAtHome {
			return nil, apperror.Detail(ErrInvalidSelection, "home address and zone apply only to at-home appointments")
		}
		if req.HomeAddress != nil && strings.TrimSpace(*req.HomeAddress) == "" {
			return nil, ErrHomeAddressRequired
		}
	}

	err = s.repo.InResourceTx(ctx, current.Resource(), func(ctx context.Context, ledger Ledger) error {
		locked, err := ledger.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !locked.Status.IsReschedulable() {
			return apperror.Detail(ErrInvalidTransition, "cannot reschedule a %s appointment", locked.Status)
		}

		if req.StartTime != nil {
			newStart := *req.StartTime
			newEnd := newStart.Add(locked.EndTime.Sub(locked.StartTime))
			taken, err := ledger.HasOverlap(ctx, newStart, newEnd, locked.ID)
			if err != nil {
				return err
			}
			if taken {
				return ErrSlotUnavailable
			}
			locked.StartTime, locked.EndTime = newStart, newEnd
		}
		if req.HomeAddress != nil {
			locked.HomeAddress = req.HomeAddress
		}
		if req.HomeZone != nil {
			locked.HomeZone = req.HomeZone
		}
		if err := ledger.UpdateDetails(ctx, locked); err != nil {
			return err
		}
		a = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "appointment rescheduled",
		"appointment_id", a.ID,
		"actor_role", string(actor.Role),
		"start", a.StartTime,
		"end", a.EndTime,
		"moved", req.StartTime != nil,
	)
	if req.StartTime != nil {
		s.notify(ctx, b, a, "was moved")
	} else {
		s.notify(ctx, b, a, "was updated")
	}
	return a, nil
}

func (s *service) Cancel(ctx context.Context, id string, actor auth.Actor, now time.Time, reason *string) (a *Appointment, err error) {
	ctx, span := tracer.Start(ctx, "appointment.Cancel", trace.WithAttributes(
		attribute.String("appointment.id", id),
	))
	defer s.finish(span, "cancel", s.now(), &err)

	current, b, err := s.loadForChange(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !scheduling.CanTransition(current.Status, scheduling.StatusCancelled) {
		return nil, apperror.Detail(ErrInvalidTransition, "cannot cancel a %s appointment", current.Status)
	}
	if err := checkNotice(actor, current, b, now); err != nil {
		return nil, err
	}

	a, err = s.transition(ctx, current, scheduling.StatusCancelled, reason)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "appointment cancelled", "appointment_id", a.ID, "actor_role", string(actor.Role))
	s.notify(ctx, b, a, "was cancelled")
	return a, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor auth.Actor, id string, status scheduling.Status) (a *Appointment, err error) {
	ctx, span := tracer.Start(ctx, "appointment.UpdateStatus", trace.WithAttributes(
		attribute.String("appointment.id", id),
		attribute.String("status", string(status)),
	))
	defer s.finish(span, "update_status", s.now(), &err)

	if !status.IsValid() {
		return nil, apperror.Detail(ErrInvalidTransition, "unknown status %q", status)
	}
	if actor.Role != auth.RoleAdmin && !actor.Role.IsBusinessSide() {
		return nil, ErrPermissionDenied
	}

	current, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !scheduling.CanTransition(current.Status, status) {
		return nil, apperror.Detail(ErrInvalidTransition, "cannot move from %s to %s", current.Status, status)
	}
	b, err := s.businesses.GetByID(ctx, current.BusinessID)
	if err != nil {
		return nil, err
	}

	a, err = s.transition(ctx, current, status, nil)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "appointment status changed", "appointment_id", a.ID, "status", string(a.Status))
	s.notify(ctx, b, a, "is now "+string(a.Status))
	return a, nil
}

func (s *service) GetByID(ctx context.Context, actor auth.Actor, id string) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.canView(ctx, actor, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, req ListRequest, params request.ListParams) ([]*Appointment, int, error) {
	params.Normalize()
	filter := Filter{
		BusinessID: req.BusinessID,
		Status:     req.Status,
		From:       req.From,
		To:         req.To,
		Limit:      params.PageSize,
		Offset:     params.Offset(),
	}

	switch actor.Role {
	case auth.RoleAdmin:
	case auth.RoleClient:
		filter.ClientID = actor.UserID
	case auth.RoleGroomerOwner, auth.RoleGroomerStaff:
		if req.BusinessID == "" {
			filter.GroomerID = actor.UserID
			break
		}
		member, err := s.businesses.IsMember(ctx, req.BusinessID, actor.UserID)
		if err != nil {
			return nil, 0, err
		}
		if !member {
			return nil, 0, ErrPermissionDenied
		}
	default:
		return nil, 0, ErrPermissionDenied
	}
	return s.repo.List(ctx, filter)
}

// loadForChange loads an appointment the actor may see together with its business.
func (s *service) loadForChange(ctx context.Context, actor auth.Actor, id string) (*Appointment, *business.Business, error) {
	a, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.businesses.GetByID(ctx, a.BusinessID)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// checkNotice applies the cancel/reschedule notice policy of the actor's role.
// It runs after the status checks so a finished appointment reports the transition error.
func checkNotice(actor auth.Actor, a *Appointment, b *business.Business, now time.Time) error {
	err := scheduling.Authorize(actor.Role, a.StartTime, now, b.MinHoursBeforeCancelOrReschedule)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, scheduling.ErrTooLate):
		return apperror.Detail(ErrTooLate, "%s", err.Error())
	case errors.Is(err, scheduling.ErrRoleNotPermitted):
		return ErrPermissionDenied
	}
	return err
}

func (s *service) transition(ctx context.Context, current *Appointment, status scheduling.Status, reason *string) (*Appointment, error) {
	var out *Appointment
	err := s.repo.InResourceTx(ctx, current.Resource(), func(ctx context.Context, ledger Ledger) error {
		locked, err := ledger.GetForUpdate(ctx, current.ID)
		if err != nil {
			return err
		}
		if !scheduling.CanTransition(locked.Status, status) {
			return apperror.Detail(ErrInvalidTransition, "cannot move from %s to %s", locked.Status, status)
		}
		if err := ledger.UpdateStatus(ctx, locked.ID, status, reason); err != nil {
			return err
		}
		locked.Status = status
		if reason != nil {
			locked.CancelReason = reason
		}
		out = locked
		return nil
	})
	return out, err
}

func (s *service) canView(ctx context.Context, actor auth.Actor, a *Appointment) error {
	switch actor.Role {
	case auth.RoleAdmin:
		return nil
	case auth.RoleClient:
		if a.ClientID == actor.UserID {
			return nil
		}
	case auth.RoleGroomerOwner, auth.RoleGroomerStaff:
		member, err := s.businesses.IsMember(ctx, a.BusinessID, actor.UserID)
		if err != nil {
			return err
		}
		if member {
			return nil
		}
	}
	return ErrNotFound
}

func (s *service) resolveGroomer(ctx context.Context, b *business.Business, requested string) (string, error) {
	groomerID, err := s.businesses.ResolveGroomer(ctx, b, requested)
	if err != nil {
		if errors.Is(err, business.ErrGroomerRequired) || errors.Is(err, business.ErrInvalidGroomer) {
			return "", apperror.Detail(ErrInvalidSelection, "%s", err.Error())
		}
		return "", err
	}
	return groomerID, nil
}

// plan validates a selection against the business, the client's pets and the
// catalog, and resolves each item's duration.
func (s *service) plan(ctx context.Context, actor auth.Actor, b *business.Business, loc scheduling.LocationType, selections []ItemSelection) (*plan, error) {
	if !b.Offers(loc) {
		return nil, apperror.Detail(ErrInvalidSelection, "business does not offer %s appointments", loc)
	}
	if len(selections) == 0 {
		return nil, ErrNoItems
	}

	type pair struct{ pet, service string }
	seen := make(map[pair]bool, len(selections))
	var petIDs, serviceIDs []string
	for _, sel := range selections {
		key := pair{sel.PetID, sel.ServiceID}
		if seen[key] {
			return nil, apperror.Detail(ErrInvalidSelection, "pet %s is selected twice for service %s", sel.PetID, sel.ServiceID)
		}
		seen[key] = true
		petIDs = append(petIDs, sel.PetID)
		serviceIDs = append(serviceIDs, sel.ServiceID)
	}

	pets, err := s.pets.GetMany(ctx, petIDs)
	if err != nil {
		return nil, err
	}
	petsByID := make(map[string]*pet.Pet, len(pets))
	for _, p := range pets {
		petsByID[p.ID] = p
	}

	services, err := s.catalog.GetServices(ctx, serviceIDs)
	if err != nil {
		return nil, err
	}
	servicesByID := make(map[string]*catalog.GroomingService, len(services))
	for _, svc := range services {
		servicesByID[svc.ID] = svc
	}

	rules, err := s.catalog.RulesFor(ctx, serviceIDs)
	if err != nil {
		return nil, err
	}

	out := &plan{items: make([]Item, 0, len(selections))}
	minutes := make([]int, 0, len(selections))
	species := make([]scheduling.Species, 0, len(selections))
	for _, sel := range selections {
		p, ok := petsByID[sel.PetID]
		if !ok || p.OwnerUserID != actor.UserID {
			return nil, apperror.Detail(ErrInvalidSelection, "pet %s not found", sel.PetID)
		}
		svc, ok := servicesByID[sel.ServiceID]
		if !ok || svc.BusinessID != b.ID {
			return nil, apperror.Detail(ErrInvalidSelection, "service %s is not offered by this business", sel.ServiceID)
		}
		if !svc.IsActive {
			return nil, apperror.Detail(ErrInvalidSelection, "service %s is not active", svc.ID)
		}
		if !svc.SupportsSpecies(p.Species) {
			return nil, apperror.Detail(ErrInvalidSelection, "service %s does not support %s", svc.ID, p.Species)
		}
		if !svc.SupportsLocation(loc) {
			return nil, apperror.Detail(ErrInvalidSelection, "service %s is not available %s", svc.ID, loc)
		}

		d, err := scheduling.ResolveDuration(rules[svc.ID], p.Profile())
		if err != nil {
			if errors.Is(err, scheduling.ErrNoMatchingRule) {
				s.logger.WarnContext(ctx, "no duration rule for pet",
					"business_id", b.ID,
					"service_id", svc.ID,
					"pet_id", p.ID,
					"err", err,
				)
				return nil, &apperror.AppError{
					Code:    ErrServiceUnavailableForPet.Code,
					Message: fmt.Sprintf("service %s: %v", svc.ID, err),
					Err:     fmt.Errorf("%w: %w", ErrServiceUnavailableForPet, err),
				}
			}
			return nil, err
		}

		minutes = append(minutes, d)
		species = append(species, p.Species)
		out.items = append(out.items, Item{
			PetID:                     p.ID,
			ServiceID:                 svc.ID,
			CalculatedDurationMinutes: d,
			Extras:                    sel.Extras,
		})
	}

	if err := scheduling.ValidateCapacity(species, loc, b.MaxDogsPerHomeVisit); err != nil {
		return nil, apperror.Detail(ErrCapacityExceeded, "%s", err.Error())
	}
	out.totalMinutes = scheduling.TotalMinutes(minutes, loc, b.Overhead())
	return out, nil
}

// notify tells the client about a committed change. Delivery happens off the request path.
func (s *service) notify(ctx context.Context, b *business.Business, a *Appointment, what string) {
	start := a.StartTime
	if loc, err := b.Location(); err == nil {
		start = start.In(loc)
	}
	msg := fmt.Sprintf("Your %s appointment at %s on %s %s.", locationLabel(a.LocationType), b.Name, start.Format("Mon 02 Jan 2006 15:04 MST"), what)
	s.notifier.Notify(ctx, a.ClientID, msg)
}

func locationLabel(loc scheduling.LocationType) string {
	if loc == scheduling.LocationAtHome {
		return "at-home"
	}
	return "in-salon"
}

func (s *service) finish(span trace.Span, operation string, started time.Time, errp *error) {
	err := *errp
	s.recorder.ObserveAppointment(operation, outcome(err), s.now().Sub(started))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func outcome(err error) string {
	var appErr *apperror.AppError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrSlotUnavailable):
		return "conflict"
	case errors.As(err, &appErr) && appErr.Code < 500:
		return "rejected"
	}
	return "error"
}
