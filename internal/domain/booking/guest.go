package booking

import "context"

// Guest gateway actions. Tokens are bearer credentials with a deliberately
// narrow capability set: a guest can view and cancel, nothing else.
const (
	GuestActionView   = "view"
	GuestActionCancel = "cancel"
)

// GuestGateway resolves bookings by opaque lookup token instead of an
// authenticated identity. It never accepts a booking id or number as a
// substitute, and an unknown token is indistinguishable from a wrong one.
type GuestGateway struct {
	svc *Service
}

// NewGuestGateway creates a guest lookup gateway
func NewGuestGateway(svc *Service) *GuestGateway {
	return &GuestGateway{svc: svc}
}

// Resolve looks a booking up strictly by its guest lookup token.
func (g *GuestGateway) Resolve(ctx context.Context, token string) (*Details, error) {
	if token == "" {
		return nil, ErrBookingNotFound
	}

	details, err := g.svc.repo.GetByGuestToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if details == nil {
		return nil, ErrBookingNotFound
	}
	return details, nil
}

// Cancel cancels the booking behind the token, applying the same lifecycle
// guards as the authenticated path.
func (g *GuestGateway) Cancel(ctx context.Context, token, reason string) (*Details, error) {
	details, err := g.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	return g.svc.cancel(ctx, details, reason)
}

// Perform dispatches a named action, rejecting anything outside the guest
// capability set.
func (g *GuestGateway) Perform(ctx context.Context, token, action, reason string) (*Details, error) {
	switch action {
	case GuestActionView:
		return g.Resolve(ctx, token)
	case GuestActionCancel:
		return g.Cancel(ctx, token, reason)
	default:
		return nil, ErrActionNotAllowed
	}
}
