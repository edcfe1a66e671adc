package booking

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tongarclub/jongque-sub001/internal/domain/catalog"
	"github.com/tongarclub/jongque-sub001/internal/domain/notification"
)

const maxCreateAttempts = 3

// Actor identifies who is performing an operation. Exactly one of
// CustomerID / GuestToken is set for party actors; Operator actors act on
// behalf of their business.
type Actor struct {
	CustomerID uuid.UUID
	GuestToken string
	Operator   bool
	BusinessID uuid.UUID
}

// party is the tagged union behind booking creation: a registered customer
// or a guest contact, never both, never neither.
type party struct {
	customerID uuid.NullUUID
	guest      *GuestContact
}

// Service orchestrates booking creation and lifecycle transitions.
type Service struct {
	repo      Repository
	catalog   catalog.Repository
	checker   *AvailabilityChecker
	idgen     *IdentifierGenerator
	publisher notification.Publisher
	loc       *time.Location
	now       func() time.Time
}

// NewService creates booking service
func NewService(repo Repository, catalogRepo catalog.Repository, loc *time.Location) *Service {
	return &Service{
		repo:    repo,
		catalog: catalogRepo,
		checker: NewAvailabilityChecker(repo),
		idgen:   NewIdentifierGenerator(repo),
		loc:     loc,
		now:     time.Now,
	}
}

// SetPublisher sets the notification publisher (optional)
func (s *Service) SetPublisher(p notification.Publisher) {
	s.publisher = p
}

// SetClock overrides the clock, used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CreateForCustomer creates a booking owned by a registered customer.
func (s *Service) CreateForCustomer(ctx context.Context, customerID uuid.UUID, req *CreateBookingRequest) (*Details, error) {
	if customerID == uuid.Nil {
		return nil, ValidationErrors{"customer_id": "missing authenticated customer"}
	}
	return s.create(ctx, party{customerID: uuid.NullUUID{UUID: customerID, Valid: true}}, createInput{
		BusinessID: req.BusinessID,
		ServiceID:  req.ServiceID,
		StaffID:    req.StaffID,
		Type:       req.Type,
		Date:       req.Date,
		Time:       req.Time,
	})
}

// CreateForGuest creates a tokenized booking without an account.
func (s *Service) CreateForGuest(ctx context.Context, req *CreateGuestBookingRequest) (*Details, error) {
	guest := req.Guest
	return s.create(ctx, party{guest: &guest}, createInput{
		BusinessID: req.BusinessID,
		ServiceID:  req.ServiceID,
		StaffID:    req.StaffID,
		Type:       req.Type,
		Date:       req.Date,
		Time:       req.Time,
	})
}

// createInput is the common creation payload after variant dispatch.
type createInput struct {
	BusinessID string
	ServiceID  string
	StaffID    string
	Type       string
	Date       string
	Time       string
}

func (s *Service) create(ctx context.Context, p party, in createInput) (*Details, error) {
	businessID, err := uuid.Parse(in.BusinessID)
	if err != nil {
		return nil, ValidationErrors{"business_id": "must be a valid UUID"}
	}
	serviceID, err := uuid.Parse(in.ServiceID)
	if err != nil {
		return nil, ValidationErrors{"service_id": "must be a valid UUID"}
	}

	var staffID uuid.NullUUID
	if in.StaffID != "" {
		id, err := uuid.Parse(in.StaffID)
		if err != nil {
			return nil, ValidationErrors{"staff_id": "must be a valid UUID"}
		}
		staffID = uuid.NullUUID{UUID: id, Valid: true}
	}

	bookingType := Type(in.Type)
	switch bookingType {
	case TypeTimeSlot:
		if in.Time == "" {
			return nil, ValidationErrors{"time": "required for time_slot bookings"}
		}
	case TypeQueueNumber:
		if in.Time != "" {
			return nil, ValidationErrors{"time": "must be empty for queue_number bookings"}
		}
	default:
		return nil, ValidationErrors{"type": "must be time_slot or queue_number"}
	}

	date, err := time.ParseInLocation("2006-01-02", in.Date, s.loc)
	if err != nil {
		return nil, ValidationErrors{"date": "must be YYYY-MM-DD"}
	}
	if date.Before(s.today()) {
		return nil, ErrPastDate
	}

	business, svc, staffName, err := s.loadCatalog(ctx, businessID, serviceID, staffID)
	if err != nil {
		return nil, err
	}

	if bookingType == TypeTimeSlot {
		start, err := ParseHHMM(in.Time)
		if err != nil {
			return nil, ValidationErrors{"time": "must be HH:MM"}
		}
		free, err := s.checker.IsAvailable(ctx, OverlapQuery{
			BusinessID:      businessID,
			StaffID:         staffID,
			Date:            date,
			StartMinutes:    start,
			DurationMinutes: svc.DurationMinutes,
		})
		if err != nil {
			return nil, err
		}
		if !free {
			return nil, ErrSlotUnavailable
		}
	}

	// One active booking per party per business per day.
	partyQuery := PartyQuery{BusinessID: businessID, Date: date}
	switch {
	case p.customerID.Valid:
		partyQuery.CustomerID = p.customerID
	case p.guest != nil:
		partyQuery.GuestEmail = sql.NullString{String: p.guest.Email, Valid: true}
		partyQuery.GuestPhone = sql.NullString{String: p.guest.Phone, Valid: true}
	default:
		return nil, ValidationErrors{"party": "either a customer or guest contact is required"}
	}
	duplicate, err := s.repo.HasActivePartyBooking(ctx, partyQuery)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return nil, ErrDuplicateBooking
	}

	booking := &Booking{
		ID:                uuid.New(),
		Type:              bookingType,
		Status:            StatusConfirmed,
		BusinessID:        businessID,
		ServiceID:         serviceID,
		StaffID:           staffID,
		BookingDate:       date,
		EstimatedDuration: svc.DurationMinutes,
	}
	if bookingType == TypeTimeSlot {
		booking.BookingTime = sql.NullString{String: in.Time, Valid: true}
	}

	switch {
	case p.customerID.Valid:
		booking.CustomerID = p.customerID
	case p.guest != nil:
		booking.IsGuestBooking = true
		booking.CustomerName = sql.NullString{String: p.guest.Name, Valid: true}
		booking.CustomerEmail = sql.NullString{String: p.guest.Email, Valid: true}
		booking.CustomerPhone = sql.NullString{String: p.guest.Phone, Valid: true}
	}

	// Insert with bounded retries: a lost race on any unique constraint gets
	// fresh identifiers and a fresh queue number read.
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		number, err := s.idgen.GenerateBookingNumber(ctx)
		if err != nil {
			return nil, err
		}
		booking.BookingNumber = number

		if booking.IsGuestBooking {
			token, err := GenerateGuestLookupToken()
			if err != nil {
				return nil, err
			}
			booking.GuestLookupToken = sql.NullString{String: token, Valid: true}
		}

		now := s.now()
		booking.CreatedAt = now
		booking.UpdatedAt = now

		err = s.repo.Create(ctx, booking)
		if err == nil {
			details := &Details{
				Booking:      *booking,
				BusinessName: business.Name,
				ServiceName:  svc.Name,
				StaffName:    staffName,
			}
			s.notify(ctx, notification.EventBookingCreated, details)
			return details, nil
		}
		if errors.Is(err, errRetryConflict) {
			continue
		}
		return nil, err
	}

	return nil, ErrExhaustedRetries
}

func (s *Service) loadCatalog(ctx context.Context, businessID, serviceID uuid.UUID, staffID uuid.NullUUID) (*catalog.Business, *catalog.Service, string, error) {
	business, err := s.catalog.GetBusiness(ctx, businessID)
	if err != nil {
		return nil, nil, "", err
	}
	if business == nil {
		return nil, nil, "", ErrBusinessNotFound
	}
	if !business.IsActive {
		return nil, nil, "", ErrBusinessInactive
	}

	svc, err := s.catalog.GetService(ctx, serviceID)
	if err != nil {
		return nil, nil, "", err
	}
	if svc == nil || svc.BusinessID != businessID {
		return nil, nil, "", ErrServiceNotFound
	}
	if !svc.IsActive {
		return nil, nil, "", ErrServiceInactive
	}

	var staffName string
	if staffID.Valid {
		staff, err := s.catalog.GetStaff(ctx, staffID.UUID)
		if err != nil {
			return nil, nil, "", err
		}
		if staff == nil || staff.BusinessID != businessID {
			return nil, nil, "", ErrStaffNotFound
		}
		if !staff.IsActive {
			return nil, nil, "", ErrStaffInactive
		}
		staffName = staff.DisplayName
	}

	return business, svc, staffName, nil
}

// GetBooking returns a booking visible to the actor.
func (s *Service) GetBooking(ctx context.Context, id uuid.UUID, actor Actor) (*Details, error) {
	details, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if details == nil {
		return nil, ErrBookingNotFound
	}
	if err := authorize(&details.Booking, actor); err != nil {
		return nil, err
	}
	return details, nil
}

// ListBookings lists bookings scoped to the actor: customers see their own,
// operators see their business's.
func (s *Service) ListBookings(ctx context.Context, actor Actor, filter *ListFilter, pagination *Pagination) ([]*Details, int, error) {
	if filter == nil {
		filter = &ListFilter{}
	}

	var customerID uuid.NullUUID
	if actor.Operator {
		businessID := actor.BusinessID
		filter.BusinessID = &businessID
	} else {
		if actor.CustomerID == uuid.Nil {
			return nil, 0, ErrNotBookingOwner
		}
		customerID = uuid.NullUUID{UUID: actor.CustomerID, Valid: true}
	}

	return s.repo.List(ctx, filter, customerID, pagination)
}

// RescheduleBooking moves a confirmed booking to a new date/time/staff after
// re-validating availability (excluding the booking itself).
func (s *Service) RescheduleBooking(ctx context.Context, id uuid.UUID, req *RescheduleBookingRequest, actor Actor) (*Details, error) {
	details, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if details == nil {
		return nil, ErrBookingNotFound
	}
	booking := &details.Booking

	if err := authorize(booking, actor); err != nil {
		return nil, err
	}
	if booking.Status != StatusConfirmed {
		return nil, ErrInvalidTransition
	}
	if booking.Type != TypeTimeSlot {
		return nil, ValidationErrors{"type": "queue bookings cannot be rescheduled"}
	}

	if req.Date != "" {
		date, err := time.ParseInLocation("2006-01-02", req.Date, s.loc)
		if err != nil {
			return nil, ValidationErrors{"date": "must be YYYY-MM-DD"}
		}
		booking.BookingDate = date
	}
	if req.Time != "" {
		if _, err := ParseHHMM(req.Time); err != nil {
			return nil, ValidationErrors{"time": "must be HH:MM"}
		}
		booking.BookingTime = sql.NullString{String: req.Time, Valid: true}
	}
	switch req.StaffID {
	case "":
		// keep current assignment
	case "none":
		booking.StaffID = uuid.NullUUID{}
		details.StaffName = ""
	default:
		staffUUID, err := uuid.Parse(req.StaffID)
		if err != nil {
			return nil, ValidationErrors{"staff_id": "must be a valid UUID or \"none\""}
		}
		staff, err := s.catalog.GetStaff(ctx, staffUUID)
		if err != nil {
			return nil, err
		}
		if staff == nil || staff.BusinessID != booking.BusinessID {
			return nil, ErrStaffNotFound
		}
		if !staff.IsActive {
			return nil, ErrStaffInactive
		}
		booking.StaffID = uuid.NullUUID{UUID: staffUUID, Valid: true}
		details.StaffName = staff.DisplayName
	}

	if booking.BookingDate.Before(s.today()) {
		return nil, ErrPastDate
	}

	start, err := booking.StartMinutes()
	if err != nil {
		return nil, err
	}
	free, err := s.checker.IsAvailable(ctx, OverlapQuery{
		BusinessID:      booking.BusinessID,
		StaffID:         booking.StaffID,
		Date:            booking.BookingDate,
		StartMinutes:    start,
		DurationMinutes: booking.EstimatedDuration,
		ExcludeID:       uuid.NullUUID{UUID: booking.ID, Valid: true},
	})
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, ErrSlotUnavailable
	}

	if err := s.repo.Update(ctx, booking); err != nil {
		return nil, err
	}

	s.notify(ctx, notification.EventBookingRescheduled, details)
	return details, nil
}

// CancelBooking cancels a booking with a mandatory reason. Cancelling an
// already-cancelled booking reports ErrAlreadyCancelled so callers can tell
// a race from a user error.
func (s *Service) CancelBooking(ctx context.Context, id uuid.UUID, reason string, actor Actor) (*Details, error) {
	details, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if details == nil {
		return nil, ErrBookingNotFound
	}
	if err := authorize(&details.Booking, actor); err != nil {
		return nil, err
	}

	return s.cancel(ctx, details, reason)
}

// cancel applies the cancellation transition to an already-authorized booking.
func (s *Service) cancel(ctx context.Context, details *Details, reason string) (*Details, error) {
	booking := &details.Booking

	if reason == "" {
		return nil, ErrReasonRequired
	}
	if booking.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if !CanTransition(booking.Status, StatusCancelled) {
		return nil, ErrInvalidTransition
	}
	if booking.IsPast(s.now(), s.loc) {
		return nil, ErrPastBooking
	}

	booking.Status = StatusCancelled
	booking.CancellationReason = sql.NullString{String: reason, Valid: true}

	if err := s.repo.Update(ctx, booking); err != nil {
		return nil, err
	}

	s.notify(ctx, notification.EventBookingCancelled, details)
	return details, nil
}

// CheckIn marks a confirmed booking as arrived. Only valid on the booking day.
func (s *Service) CheckIn(ctx context.Context, id uuid.UUID, actor Actor) (*Details, error) {
	return s.operatorTransition(ctx, id, actor, StatusCheckedIn, func(b *Booking) error {
		if !b.IsToday(s.now(), s.loc) {
			return ErrInvalidTransition
		}
		return nil
	})
}

// StartService begins service for a checked-in booking.
func (s *Service) StartService(ctx context.Context, id uuid.UUID, actor Actor) (*Details, error) {
	return s.operatorTransition(ctx, id, actor, StatusInProgress, func(b *Booking) error {
		b.ActualStartTime = sql.NullTime{Time: s.now(), Valid: true}
		return nil
	})
}

// CompleteService finishes an in-progress booking.
func (s *Service) CompleteService(ctx context.Context, id uuid.UUID, actor Actor) (*Details, error) {
	return s.operatorTransition(ctx, id, actor, StatusCompleted, func(b *Booking) error {
		b.ActualEndTime = sql.NullTime{Time: s.now(), Valid: true}
		return nil
	})
}

// MarkNoShow flags a confirmed booking whose date/time has elapsed.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID, actor Actor) (*Details, error) {
	return s.operatorTransition(ctx, id, actor, StatusNoShow, func(b *Booking) error {
		if !b.IsPast(s.now(), s.loc) {
			return ErrInvalidTransition
		}
		return nil
	})
}

func (s *Service) operatorTransition(ctx context.Context, id uuid.UUID, actor Actor, to Status, guard func(*Booking) error) (*Details, error) {
	details, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if details == nil {
		return nil, ErrBookingNotFound
	}
	booking := &details.Booking

	if !actor.Operator || actor.BusinessID != booking.BusinessID {
		return nil, ErrNotBookingOwner
	}
	if !CanTransition(booking.Status, to) {
		return nil, ErrInvalidTransition
	}
	if err := guard(booking); err != nil {
		return nil, err
	}

	booking.Status = to
	if err := s.repo.Update(ctx, booking); err != nil {
		return nil, err
	}

	return details, nil
}

func authorize(b *Booking, actor Actor) error {
	switch {
	case actor.Operator && actor.BusinessID == b.BusinessID:
		return nil
	case actor.CustomerID != uuid.Nil && b.CustomerID.Valid && b.CustomerID.UUID == actor.CustomerID:
		return nil
	case actor.GuestToken != "" && b.GuestLookupToken.Valid && b.GuestLookupToken.String == actor.GuestToken:
		return nil
	}
	return ErrNotBookingOwner
}

// notify publishes a booking fact after the mutation has committed.
// Best-effort: a failing broker never reverses a booking.
func (s *Service) notify(ctx context.Context, event string, d *Details) {
	if s.publisher == nil {
		return
	}

	b := &d.Booking
	e := notification.BookingEvent{
		Event:          event,
		BookingID:      b.ID.String(),
		BookingNumber:  b.BookingNumber,
		BookingType:    string(b.Type),
		Status:         string(b.Status),
		BusinessID:     b.BusinessID.String(),
		BusinessName:   d.BusinessName,
		ServiceName:    d.ServiceName,
		StaffName:      d.StaffName,
		Date:           b.BookingDate.Format("2006-01-02"),
		IsGuestBooking: b.IsGuestBooking,
		OccurredAt:     s.now(),
	}
	if b.BookingTime.Valid {
		e.Time = b.BookingTime.String
	}
	if b.QueueNumber.Valid {
		e.QueueNumber = int(b.QueueNumber.Int64)
	}
	if b.CustomerName.Valid {
		e.PartyName = b.CustomerName.String
	}
	if b.CustomerEmail.Valid {
		e.PartyEmail = b.CustomerEmail.String
	}
	if b.CustomerPhone.Valid {
		e.PartyPhone = b.CustomerPhone.String
	}
	if b.CancellationReason.Valid {
		e.CancellationReason = b.CancellationReason.String
	}

	if err := s.publisher.Publish(ctx, e); err != nil {
		log.Warn().Err(err).
			Str("event", event).
			Str("booking_number", b.BookingNumber).
			Msg("booking notification dropped")
	}
}

// Response assembles the external representation using the service clock.
func (s *Service) Response(d *Details) *BookingResponse {
	return NewBookingResponse(d, s.now(), s.loc)
}

func (s *Service) today() time.Time {
	n := s.now().In(s.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, s.loc)
}
