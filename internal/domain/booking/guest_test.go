package booking

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestGuestResolveByToken(t *testing.T) {
	fx := newFixture(t)
	gw := NewGuestGateway(fx.svc)
	ctx := context.Background()

	d := mustCreateGuest(t, fx, fx.guestReq("time_slot", dayTomorrow, "14:00", GuestContact{
		Name: "Malee", Email: "malee@example.com", Phone: "0812345678",
	}))
	token := d.GuestLookupToken.String
	if token == "" {
		t.Fatal("expected guest booking to carry a lookup token")
	}

	found, err := gw.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if found.ID != d.ID {
		t.Fatalf("resolved wrong booking: %s != %s", found.ID, d.ID)
	}
}

func TestGuestResolveRejectsNonTokens(t *testing.T) {
	fx := newFixture(t)
	gw := NewGuestGateway(fx.svc)
	ctx := context.Background()

	d := mustCreateGuest(t, fx, fx.guestReq("time_slot", dayTomorrow, "14:00", GuestContact{
		Name: "Malee", Email: "malee@example.com", Phone: "0812345678",
	}))
	token := d.GuestLookupToken.String

	// Only the exact token resolves. In particular neither the booking id
	// nor the booking number can substitute for it.
	for _, bad := range []string{
		"",
		token[:len(token)-1],
		token + "x",
		d.ID.String(),
		d.BookingNumber,
	} {
		if _, err := gw.Resolve(ctx, bad); !errors.Is(err, ErrBookingNotFound) {
			t.Errorf("token %q: expected ErrBookingNotFound, got %v", bad, err)
		}
	}
}

func TestGuestTokenDoesNotResolveCustomerBookings(t *testing.T) {
	fx := newFixture(t)
	gw := NewGuestGateway(fx.svc)

	mustCreate(t, fx, fx.createReq("time_slot", dayTomorrow, "09:00"))
	guest := mustCreateGuest(t, fx, fx.guestReq("time_slot", dayTomorrow, "11:00", GuestContact{
		Name: "Malee", Email: "malee@example.com", Phone: "0812345678",
	}))

	found, err := gw.Resolve(context.Background(), guest.GuestLookupToken.String)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !found.IsGuestBooking {
		t.Fatal("token resolved a non-guest booking")
	}
}

func TestGuestCancel(t *testing.T) {
	fx := newFixture(t)
	gw := NewGuestGateway(fx.svc)
	ctx := context.Background()

	d := mustCreateGuest(t, fx, fx.guestReq("time_slot", dayTomorrow, "14:00", GuestContact{
		Name: "Malee", Email: "malee@example.com", Phone: "0812345678",
	}))
	token := d.GuestLookupToken.String

	cancelled, err := gw.Cancel(ctx, token, "cannot make it")
	if err != nil {
		t.Fatalf("guest cancel: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	// Second cancel over the same token reports the race explicitly.
	if _, err := gw.Cancel(ctx, token, "again"); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("expected ErrAlreadyCancelled, got %v", err)
	}

	// The token still resolves for viewing after cancellation.
	after, err := gw.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("resolve after cancel: %v", err)
	}
	if after.Status != StatusCancelled {
		t.Fatalf("expected cancelled on re-read, got %s", after.Status)
	}
}

func TestGuestCancelRequiresReason(t *testing.T) {
	fx := newFixture(t)
	gw := NewGuestGateway(fx.svc)

	d := mustCreateGuest(t, fx, fx.guestReq("time_slot", dayTomorrow, "14:00", GuestContact{
		Name: "Malee", Email: "malee@example.com", Phone: "0812345678",
	}))

	_, err := gw.Cancel(context.Background(), d.GuestLookupToken.String, "")
	if !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}
}

func TestGuestPerformCapabilitySet(t *testing.T) {
	fx := newFixture(t)
	gw := NewGuestGateway(fx.svc)
	ctx := context.Background()

	d := mustCreateGuest(t, fx, fx.guestReq("time_slot", dayTomorrow, "14:00", GuestContact{
		Name: "Malee", Email: "malee@example.com", Phone: "0812345678",
	}))
	token := d.GuestLookupToken.String

	if _, err := gw.Perform(ctx, token, GuestActionView, ""); err != nil {
		t.Fatalf("view: %v", err)
	}

	for _, action := range []string{"reschedule", "check-in", "complete", "delete", ""} {
		if _, err := gw.Perform(ctx, token, action, "reason"); !errors.Is(err, ErrActionNotAllowed) {
			t.Errorf("action %q: expected ErrActionNotAllowed, got %v", action, err)
		}
	}

	if _, err := gw.Perform(ctx, token, GuestActionCancel, "cannot make it"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
}

func TestGuestTokensAreDistinct(t *testing.T) {
	fx := newFixture(t)

	a := mustCreateGuest(t, fx, fx.guestReq("queue_number", dayToday, "", GuestContact{
		Name: "Guest A", Email: "a@example.com", Phone: "0811111111",
	}))
	b := mustCreateGuest(t, fx, fx.guestReq("queue_number", dayToday, "", GuestContact{
		Name: "Guest B", Email: "b@example.com", Phone: "0822222222",
	}))

	if a.GuestLookupToken.String == b.GuestLookupToken.String {
		t.Fatal("two guest bookings received the same lookup token")
	}
	if a.ID == b.ID || a.ID == uuid.Nil {
		t.Fatal("expected distinct non-nil booking ids")
	}
}
