package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tongarclub/jongque-sub001/internal/domain/catalog"
	"github.com/tongarclub/jongque-sub001/internal/domain/notification"
)

// fakeRepo is an in-memory Repository mirroring the Postgres semantics the
// service depends on: the symmetric overlap rule, per-day queue issuance,
// unique booking numbers and compare-and-swap updates.
type fakeRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*Details

	// failCreates fails that many leading Create calls with errRetryConflict
	// to simulate lost unique-constraint races.
	failCreates int
	createCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{bookings: map[uuid.UUID]*Details{}}
}

func (f *fakeRepo) Create(ctx context.Context, b *Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.createCalls++
	if f.failCreates > 0 {
		f.failCreates--
		return errRetryConflict
	}

	switch b.Type {
	case TypeTimeSlot:
		start, err := b.StartMinutes()
		if err != nil {
			return err
		}
		if f.overlapsLocked(OverlapQuery{
			BusinessID:      b.BusinessID,
			StaffID:         b.StaffID,
			Date:            b.BookingDate,
			StartMinutes:    start,
			DurationMinutes: b.EstimatedDuration,
		}) {
			return ErrSlotUnavailable
		}
	case TypeQueueNumber:
		var max int64
		for _, d := range f.bookings {
			if d.BusinessID == b.BusinessID && d.BookingDate.Equal(b.BookingDate) &&
				d.QueueNumber.Valid && d.QueueNumber.Int64 > max {
				max = d.QueueNumber.Int64
			}
		}
		b.QueueNumber.Int64 = max + 1
		b.QueueNumber.Valid = true
	}

	copy := *b
	stored := &Details{
		Booking:      copy,
		BusinessName: "Stored Business",
		ServiceName:  "Stored Service",
	}
	if b.StaffID.Valid {
		stored.StaffName = "Stored Staff"
	}
	f.bookings[b.ID] = stored
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*Details, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.bookings[id]
	if !ok {
		return nil, nil
	}
	copy := *d
	return &copy, nil
}

func (f *fakeRepo) GetByGuestToken(ctx context.Context, token string) (*Details, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, d := range f.bookings {
		if d.IsGuestBooking && d.GuestLookupToken.Valid && d.GuestLookupToken.String == token {
			copy := *d
			return &copy, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) List(ctx context.Context, filter *ListFilter, customerID uuid.NullUUID, pagination *Pagination) ([]*Details, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*Details
	for _, d := range f.bookings {
		if customerID.Valid && (!d.CustomerID.Valid || d.CustomerID.UUID != customerID.UUID) {
			continue
		}
		if filter.BusinessID != nil && d.BusinessID != *filter.BusinessID {
			continue
		}
		if filter.Date != nil && !d.BookingDate.Equal(*filter.Date) {
			continue
		}
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		copy := *d
		out = append(out, &copy)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Update(ctx context.Context, b *Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.bookings[b.ID]
	if !ok || !stored.UpdatedAt.Equal(b.UpdatedAt) {
		return ErrConcurrentUpdate
	}

	copy := *b
	copy.UpdatedAt = stored.UpdatedAt.Add(time.Millisecond)
	f.bookings[b.ID] = &Details{
		Booking:      copy,
		BusinessName: stored.BusinessName,
		ServiceName:  stored.ServiceName,
		StaffName:    stored.StaffName,
	}
	b.UpdatedAt = copy.UpdatedAt
	return nil
}

func (f *fakeRepo) BookingNumberExists(ctx context.Context, number string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, d := range f.bookings {
		if d.BookingNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) HasOverlap(ctx context.Context, q OverlapQuery) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.overlapsLocked(q), nil
}

func (f *fakeRepo) overlapsLocked(q OverlapQuery) bool {
	candEnd := q.StartMinutes + q.DurationMinutes
	for _, d := range f.bookings {
		if d.BusinessID != q.BusinessID || !d.BookingDate.Equal(q.Date) {
			continue
		}
		if q.StaffID.Valid && (!d.StaffID.Valid || d.StaffID.UUID != q.StaffID.UUID) {
			continue
		}
		if q.ExcludeID.Valid && d.ID == q.ExcludeID.UUID {
			continue
		}
		if d.Type != TypeTimeSlot || d.Status == StatusCancelled {
			continue
		}
		start, err := d.StartMinutes()
		if err != nil {
			continue
		}
		if start < candEnd && q.StartMinutes < start+d.EstimatedDuration {
			return true
		}
	}
	return false
}

func (f *fakeRepo) HasActivePartyBooking(ctx context.Context, q PartyQuery) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, d := range f.bookings {
		if d.BusinessID != q.BusinessID || !d.BookingDate.Equal(q.Date) || d.Status == StatusCancelled {
			continue
		}
		if q.CustomerID.Valid && d.CustomerID.Valid && d.CustomerID.UUID == q.CustomerID.UUID {
			return true, nil
		}
		if d.IsGuestBooking {
			if q.GuestEmail.Valid && d.CustomerEmail.Valid && d.CustomerEmail.String == q.GuestEmail.String {
				return true, nil
			}
			if q.GuestPhone.Valid && d.CustomerPhone.Valid && d.CustomerPhone.String == q.GuestPhone.String {
				return true, nil
			}
		}
	}
	return false, nil
}

type fakeCatalog struct {
	businesses map[uuid.UUID]*catalog.Business
	services   map[uuid.UUID]*catalog.Service
	staff      map[uuid.UUID]*catalog.Staff
}

func (f *fakeCatalog) GetBusiness(ctx context.Context, id uuid.UUID) (*catalog.Business, error) {
	return f.businesses[id], nil
}

func (f *fakeCatalog) GetService(ctx context.Context, id uuid.UUID) (*catalog.Service, error) {
	return f.services[id], nil
}

func (f *fakeCatalog) GetStaff(ctx context.Context, id uuid.UUID) (*catalog.Staff, error) {
	return f.staff[id], nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []notification.BookingEvent
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, e notification.BookingEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) recorded() []notification.BookingEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]notification.BookingEvent, len(f.events))
	copy(out, f.events)
	return out
}

// fixture wires a service against the in-memory fakes with a frozen clock.
type fixture struct {
	repo *fakeRepo
	cat  *fakeCatalog
	pub  *fakePublisher
	svc  *Service

	loc *time.Location
	now time.Time

	businessID uuid.UUID
	serviceID  uuid.UUID
	staffID    uuid.UUID
	customerID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	loc, err := time.LoadLocation("Asia/Bangkok")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	fx := &fixture{
		repo:       newFakeRepo(),
		pub:        &fakePublisher{},
		loc:        loc,
		now:        time.Date(2026, 3, 14, 10, 0, 0, 0, loc),
		businessID: uuid.New(),
		serviceID:  uuid.New(),
		staffID:    uuid.New(),
		customerID: uuid.New(),
	}

	fx.cat = &fakeCatalog{
		businesses: map[uuid.UUID]*catalog.Business{
			fx.businessID: {ID: fx.businessID, Name: "Siam Barbers", Timezone: "Asia/Bangkok", IsActive: true},
		},
		services: map[uuid.UUID]*catalog.Service{
			fx.serviceID: {ID: fx.serviceID, BusinessID: fx.businessID, Name: "Haircut", DurationMinutes: 60, IsActive: true},
		},
		staff: map[uuid.UUID]*catalog.Staff{
			fx.staffID: {ID: fx.staffID, BusinessID: fx.businessID, DisplayName: "Nok", IsActive: true},
		},
	}

	fx.svc = NewService(fx.repo, fx.cat, loc)
	fx.svc.SetPublisher(fx.pub)
	fx.svc.SetClock(func() time.Time { return fx.now })
	return fx
}

func (fx *fixture) createReq(typ, date, at string) *CreateBookingRequest {
	return &CreateBookingRequest{
		BusinessID: fx.businessID.String(),
		ServiceID:  fx.serviceID.String(),
		Type:       typ,
		Date:       date,
		Time:       at,
	}
}

func (fx *fixture) guestReq(typ, date, at string, guest GuestContact) *CreateGuestBookingRequest {
	return &CreateGuestBookingRequest{
		BusinessID: fx.businessID.String(),
		ServiceID:  fx.serviceID.String(),
		Type:       typ,
		Date:       date,
		Time:       at,
		Guest:      guest,
	}
}

func (fx *fixture) operator() Actor {
	return Actor{Operator: true, BusinessID: fx.businessID}
}

func (fx *fixture) customer() Actor {
	return Actor{CustomerID: fx.customerID}
}
