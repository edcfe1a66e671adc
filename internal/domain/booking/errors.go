package booking

import "errors"

var (
	ErrBookingNotFound  = errors.New("booking not found")
	ErrBusinessNotFound = errors.New("business not found")
	ErrServiceNotFound  = errors.New("service not found")
	ErrStaffNotFound    = errors.New("staff member not found")

	ErrBusinessInactive = errors.New("business is not accepting bookings")
	ErrServiceInactive  = errors.New("service is not active")
	ErrStaffInactive    = errors.New("staff member is not active")

	ErrSlotUnavailable   = errors.New("requested time slot is not available")
	ErrDuplicateBooking  = errors.New("an active booking for this business on this date already exists")
	ErrPastDate          = errors.New("booking date must not be in the past")
	ErrPastBooking       = errors.New("booking is in the past")
	ErrInvalidTransition = errors.New("invalid booking status transition")
	ErrAlreadyCancelled  = errors.New("booking is already cancelled")
	ErrNotBookingOwner   = errors.New("you can only manage your own bookings")
	ErrActionNotAllowed  = errors.New("action not allowed for guest bookings")
	ErrReasonRequired    = errors.New("cancellation reason is required")

	ErrExhaustedRetries = errors.New("could not allocate a unique booking identifier, try again")
	ErrConcurrentUpdate = errors.New("booking was modified concurrently, reload and retry")
)

// ValidationErrors carries field-level validation failures past the
// struct-tag validator, e.g. cross-field rules the tags cannot express.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	for field, msg := range v {
		return field + ": " + msg
	}
	return "validation failed"
}
