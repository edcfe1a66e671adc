package booking

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type represents how a booking reserves capacity (matches booking_type enum)
type Type string

const (
	TypeTimeSlot    Type = "time_slot"
	TypeQueueNumber Type = "queue_number"
)

// Status represents booking lifecycle state (matches booking_status enum)
type Status string

const (
	StatusConfirmed  Status = "confirmed"
	StatusCheckedIn  Status = "checked_in"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// transitions is the single source of truth for legal status changes.
// Guards that depend on the clock (booking today, booking elapsed) are
// checked by the service on top of this table.
var transitions = map[Status][]Status{
	StatusConfirmed:  {StatusCheckedIn, StatusCancelled, StatusNoShow},
	StatusCheckedIn:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
	StatusCompleted:  {},
	StatusCancelled:  {},
	StatusNoShow:     {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status accepts no further transitions.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Booking represents a reservation (matches bookings table).
// The party is either a registered customer (customer_id set) or a guest
// (contact fields + guest_lookup_token set, is_guest_booking true).
type Booking struct {
	ID            uuid.UUID `db:"id"`
	BookingNumber string    `db:"booking_number"`
	Type          Type      `db:"booking_type"`
	Status        Status    `db:"status"`

	BusinessID uuid.UUID     `db:"business_id"`
	ServiceID  uuid.UUID     `db:"service_id"`
	StaffID    uuid.NullUUID `db:"staff_id"`

	// Registered party
	CustomerID uuid.NullUUID `db:"customer_id"`

	// Guest party
	IsGuestBooking   bool           `db:"is_guest_booking"`
	CustomerName     sql.NullString `db:"customer_name"`
	CustomerEmail    sql.NullString `db:"customer_email"`
	CustomerPhone    sql.NullString `db:"customer_phone"`
	GuestLookupToken sql.NullString `db:"guest_lookup_token"`

	// Temporal
	BookingDate       time.Time      `db:"booking_date"` // date only, midnight in business tz
	BookingTime       sql.NullString `db:"booking_time"` // HH:MM, set iff type = time_slot
	QueueNumber       sql.NullInt64  `db:"queue_number"` // set iff type = queue_number
	EstimatedDuration int            `db:"estimated_duration"`

	// Audit
	CancellationReason sql.NullString `db:"cancellation_reason"`
	ActualStartTime    sql.NullTime   `db:"actual_start_time"`
	ActualEndTime      sql.NullTime   `db:"actual_end_time"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

// IsActive reports whether the booking still occupies capacity.
// Completed and no-show bookings are terminal but already in the past, so
// forward conflict checks only exclude cancelled ones.
func (b *Booking) IsActive() bool {
	return b.Status != StatusCancelled
}

// StartMinutes returns booking_time as minutes from midnight.
func (b *Booking) StartMinutes() (int, error) {
	if !b.BookingTime.Valid {
		return 0, fmt.Errorf("booking %s has no booking_time", b.ID)
	}
	return ParseHHMM(b.BookingTime.String)
}

// StartsAt returns the wall-clock start of the booking in the given location.
// Queue bookings have no fixed time and start at midnight of the booking date.
func (b *Booking) StartsAt(loc *time.Location) time.Time {
	day := time.Date(b.BookingDate.Year(), b.BookingDate.Month(), b.BookingDate.Day(), 0, 0, 0, 0, loc)
	if b.BookingTime.Valid {
		if mins, err := ParseHHMM(b.BookingTime.String); err == nil {
			return day.Add(time.Duration(mins) * time.Minute)
		}
	}
	return day
}

// IsToday reports whether the booking falls on the current calendar day.
func (b *Booking) IsToday(now time.Time, loc *time.Location) bool {
	n := now.In(loc)
	return b.BookingDate.Year() == n.Year() && b.BookingDate.YearDay() == n.YearDay()
}

// IsPast reports whether the booking's date (and time, for time slots) has
// elapsed relative to now.
func (b *Booking) IsPast(now time.Time, loc *time.Location) bool {
	n := now.In(loc)
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
	day := time.Date(b.BookingDate.Year(), b.BookingDate.Month(), b.BookingDate.Day(), 0, 0, 0, 0, loc)
	if day.Before(today) {
		return true
	}
	if day.After(today) {
		return false
	}
	if b.BookingTime.Valid {
		return b.StartsAt(loc).Before(n)
	}
	return false
}

// ParseHHMM parses an HH:MM wall-clock string into minutes from midnight.
func ParseHHMM(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatHHMM renders minutes from midnight as HH:MM.
func FormatHHMM(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
