// Package notification publishes booking facts to the message broker.
// Delivery is fire-and-forget: the booking mutation has already committed by
// the time an event is published, and publish failures are logged, never
// propagated back into the request.
package notification

import "time"

// Event names carried on the booking.events queue.
const (
	EventBookingCreated     = "booking.created"
	EventBookingRescheduled = "booking.rescheduled"
	EventBookingCancelled   = "booking.cancelled"
)

// BookingEvent is the payload published for every lifecycle fact. It carries
// enough for downstream consumers (email, SMS, LINE, analytics) to act
// without querying the primary database.
type BookingEvent struct {
	Event         string `json:"event"`
	BookingID     string `json:"booking_id"`
	BookingNumber string `json:"booking_number"`
	BookingType   string `json:"booking_type"`
	Status        string `json:"status"`

	BusinessID   string `json:"business_id"`
	BusinessName string `json:"business_name"`
	ServiceName  string `json:"service_name"`
	StaffName    string `json:"staff_name,omitempty"`

	Date        string `json:"date"`
	Time        string `json:"time,omitempty"`
	QueueNumber int    `json:"queue_number,omitempty"`

	PartyName          string `json:"party_name,omitempty"`
	PartyEmail         string `json:"party_email,omitempty"`
	PartyPhone         string `json:"party_phone,omitempty"`
	IsGuestBooking     bool   `json:"is_guest_booking"`
	CancellationReason string `json:"cancellation_reason,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}
