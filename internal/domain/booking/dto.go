package booking

import (
	"time"

	"github.com/google/uuid"
)

// CreateBookingRequest is the authenticated-customer creation payload.
type CreateBookingRequest struct {
	BusinessID string `json:"business_id" validate:"required,uuid"`
	ServiceID  string `json:"service_id" validate:"required,uuid"`
	StaffID    string `json:"staff_id,omitempty" validate:"omitempty,uuid"`
	Type       string `json:"type" validate:"required,booking_type"`
	Date       string `json:"date" validate:"required,date_ymd"`
	Time       string `json:"time,omitempty" validate:"omitempty,time_hhmm"`
}

// GuestContact identifies an account-less party. All three fields are
// required so the booking can be looked up and confirmed out-of-band.
type GuestContact struct {
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,min=9,max=15"`
}

// CreateGuestBookingRequest is the guest creation payload.
type CreateGuestBookingRequest struct {
	BusinessID string       `json:"business_id" validate:"required,uuid"`
	ServiceID  string       `json:"service_id" validate:"required,uuid"`
	StaffID    string       `json:"staff_id,omitempty" validate:"omitempty,uuid"`
	Type       string       `json:"type" validate:"required,booking_type"`
	Date       string       `json:"date" validate:"required,date_ymd"`
	Time       string       `json:"time,omitempty" validate:"omitempty,time_hhmm"`
	Guest      GuestContact `json:"guest" validate:"required"`
}

// RescheduleBookingRequest moves a confirmed booking. Omitted fields keep
// their current value; staff_id may be cleared with "none".
type RescheduleBookingRequest struct {
	Date    string `json:"date,omitempty" validate:"omitempty,date_ymd"`
	Time    string `json:"time,omitempty" validate:"omitempty,time_hhmm"`
	StaffID string `json:"staff_id,omitempty"`
}

// CancelBookingRequest carries the mandatory cancellation reason.
type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"required,min=2,max=500"`
}

// ListFilter narrows booking listings.
type ListFilter struct {
	BusinessID *uuid.UUID
	Date       *time.Time
	Status     *Status
}

// Pagination for listing
type Pagination struct {
	Page  int
	Limit int
}

// Details is a booking joined with its catalog summaries for read paths.
type Details struct {
	Booking
	BusinessName string `db:"business_name"`
	ServiceName  string `db:"service_name"`
	StaffName    string `db:"staff_name"`
}

// BookingResponse is the external representation of a booking. The trailing
// flags are derived at read time and never stored.
type BookingResponse struct {
	ID            uuid.UUID `json:"id"`
	BookingNumber string    `json:"booking_number"`
	Type          Type      `json:"type"`
	Status        Status    `json:"status"`

	BusinessID   uuid.UUID  `json:"business_id"`
	BusinessName string     `json:"business_name,omitempty"`
	ServiceID    uuid.UUID  `json:"service_id"`
	ServiceName  string     `json:"service_name,omitempty"`
	StaffID      *uuid.UUID `json:"staff_id,omitempty"`
	StaffName    string     `json:"staff_name,omitempty"`

	Date              string `json:"date"`
	Time              string `json:"time,omitempty"`
	QueueNumber       *int   `json:"queue_number,omitempty"`
	EstimatedDuration int    `json:"estimated_duration"`

	CustomerID     *uuid.UUID `json:"customer_id,omitempty"`
	CustomerName   string     `json:"customer_name,omitempty"`
	CustomerEmail  string     `json:"customer_email,omitempty"`
	CustomerPhone  string     `json:"customer_phone,omitempty"`
	IsGuestBooking bool       `json:"is_guest_booking"`

	CancellationReason string     `json:"cancellation_reason,omitempty"`
	ActualStartTime    *time.Time `json:"actual_start_time,omitempty"`
	ActualEndTime      *time.Time `json:"actual_end_time,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	IsToday          bool   `json:"is_today"`
	IsPast           bool   `json:"is_past"`
	CanCancel        bool   `json:"can_cancel"`
	TimeUntilBooking string `json:"time_until_booking,omitempty"`
}

// GuestBookingResponse additionally carries the lookup token. It is only
// returned from creation; afterwards the token is the lookup key itself.
type GuestBookingResponse struct {
	BookingResponse
	LookupToken string `json:"lookup_token"`
}

// NewBookingResponse derives the read representation of a booking.
func NewBookingResponse(d *Details, now time.Time, loc *time.Location) *BookingResponse {
	b := &d.Booking

	resp := &BookingResponse{
		ID:                b.ID,
		BookingNumber:     b.BookingNumber,
		Type:              b.Type,
		Status:            b.Status,
		BusinessID:        b.BusinessID,
		BusinessName:      d.BusinessName,
		ServiceID:         b.ServiceID,
		ServiceName:       d.ServiceName,
		StaffName:         d.StaffName,
		Date:              b.BookingDate.Format("2006-01-02"),
		EstimatedDuration: b.EstimatedDuration,
		IsGuestBooking:    b.IsGuestBooking,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}

	if b.StaffID.Valid {
		id := b.StaffID.UUID
		resp.StaffID = &id
	}
	if b.BookingTime.Valid {
		resp.Time = b.BookingTime.String
	}
	if b.QueueNumber.Valid {
		n := int(b.QueueNumber.Int64)
		resp.QueueNumber = &n
	}
	if b.CustomerID.Valid {
		id := b.CustomerID.UUID
		resp.CustomerID = &id
	}
	if b.CustomerName.Valid {
		resp.CustomerName = b.CustomerName.String
	}
	if b.CustomerEmail.Valid {
		resp.CustomerEmail = b.CustomerEmail.String
	}
	if b.CustomerPhone.Valid {
		resp.CustomerPhone = b.CustomerPhone.String
	}
	if b.CancellationReason.Valid {
		resp.CancellationReason = b.CancellationReason.String
	}
	if b.ActualStartTime.Valid {
		t := b.ActualStartTime.Time
		resp.ActualStartTime = &t
	}
	if b.ActualEndTime.Valid {
		t := b.ActualEndTime.Time
		resp.ActualEndTime = &t
	}

	resp.IsToday = b.IsToday(now, loc)
	resp.IsPast = b.IsPast(now, loc)
	resp.CanCancel = !resp.IsPast &&
		(b.Status == StatusConfirmed || b.Status == StatusCheckedIn)

	if !resp.IsPast && b.Type == TypeTimeSlot {
		if until := b.StartsAt(loc).Sub(now.In(loc)); until > 0 {
			resp.TimeUntilBooking = until.Round(time.Minute).String()
		}
	}

	return resp
}
