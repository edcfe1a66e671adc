package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/tongarclub/jongque-sub001/internal/middleware"
)

const queryTimeout = 3 * time.Second

// errRetryConflict signals a unique-constraint race the service may retry
// with fresh reads. Never surfaced to callers directly.
var errRetryConflict = errors.New("insert conflicted with a concurrent booking")

// OverlapQuery describes a candidate interval for the conflict check.
type OverlapQuery struct {
	BusinessID      uuid.UUID
	StaffID         uuid.NullUUID // zero = business-wide check
	Date            time.Time
	StartMinutes    int
	DurationMinutes int
	ExcludeID       uuid.NullUUID // set on reschedule to ignore the moved booking
}

// PartyQuery identifies a booking party for the duplicate-per-day check.
// Exactly one of CustomerID or the guest pair is set.
type PartyQuery struct {
	BusinessID uuid.UUID
	Date       time.Time
	CustomerID uuid.NullUUID
	GuestEmail sql.NullString
	GuestPhone sql.NullString
}

// Repository defines booking data access interface
type Repository interface {
	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Details, error)
	GetByGuestToken(ctx context.Context, token string) (*Details, error)
	List(ctx context.Context, filter *ListFilter, customerID uuid.NullUUID, pagination *Pagination) ([]*Details, int, error)
	Update(ctx context.Context, booking *Booking) error
	BookingNumberExists(ctx context.Context, number string) (bool, error)
	HasOverlap(ctx context.Context, q OverlapQuery) (bool, error)
	HasActivePartyBooking(ctx context.Context, q PartyQuery) (bool, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new booking repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const bookingSelectColumns = `
	b.id, b.booking_number, b.booking_type, b.status,
	b.business_id, b.service_id, b.staff_id,
	b.customer_id, b.is_guest_booking,
	b.customer_name, b.customer_email, b.customer_phone, b.guest_lookup_token,
	b.booking_date, b.booking_time, b.queue_number, b.estimated_duration,
	b.cancellation_reason, b.actual_start_time, b.actual_end_time,
	b.created_at, b.updated_at,
	bs.name AS business_name,
	sv.name AS service_name,
	COALESCE(st.display_name, '') AS staff_name
`

const bookingJoins = `
	JOIN businesses bs ON bs.id = b.business_id
	JOIN services sv ON sv.id = b.service_id
	LEFT JOIN staff st ON st.id = b.staff_id
`

// Start times are compared as intervals from midnight, not time values:
// time arithmetic wraps at 24h, so a hold spilling past midnight
// (23:30 + 60min) would otherwise stop conflicting with later starts.
const overlapCondition = `
	b.booking_type = 'time_slot'
	AND b.status != 'cancelled'
	AND b.booking_time::interval < ($4::interval + make_interval(mins => $5))
	AND $4::interval < (b.booking_time::interval + make_interval(mins => b.estimated_duration))
`

// Create inserts a booking inside a transaction serialized per
// (business, date) by an advisory lock. The slot conflict check and queue
// number issuance both run under the lock so two concurrent requests can
// never both observe a free slot or the same max queue number. The unique
// index on (business_id, booking_date, queue_number) backstops the lock;
// a violation is returned as a retryable conflict.
func (r *repository) Create(ctx context.Context, booking *Booking) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	dateKey := booking.BookingDate.Format("2006-01-02")
	if _, err := tx.ExecContext(ctx2,
		`SELECT pg_advisory_xact_lock(hashtext($1))`,
		booking.BusinessID.String()+":"+dateKey,
	); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}

	switch booking.Type {
	case TypeTimeSlot:
		start, err := booking.StartMinutes()
		if err != nil {
			return err
		}
		conflict, err := hasOverlap(ctx2, tx, OverlapQuery{
			BusinessID:      booking.BusinessID,
			StaffID:         booking.StaffID,
			Date:            booking.BookingDate,
			StartMinutes:    start,
			DurationMinutes: booking.EstimatedDuration,
		})
		if err != nil {
			return err
		}
		if conflict {
			return ErrSlotUnavailable
		}

	case TypeQueueNumber:
		var next int64
		err := tx.GetContext(ctx2, &next, `
			SELECT COALESCE(MAX(queue_number), 0) + 1
			FROM bookings
			WHERE business_id = $1 AND booking_date = $2
		`, booking.BusinessID, booking.BookingDate)
		if err != nil {
			return fmt.Errorf("next queue number: %w", err)
		}
		booking.QueueNumber = sql.NullInt64{Int64: next, Valid: true}
	}

	query := `
		INSERT INTO bookings (
			id, booking_number, booking_type, status,
			business_id, service_id, staff_id,
			customer_id, is_guest_booking,
			customer_name, customer_email, customer_phone, guest_lookup_token,
			booking_date, booking_time, queue_number, estimated_duration,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9,
			$10, $11, $12, $13,
			$14, $15, $16, $17,
			$18, $19
		)
	`

	_, err = tx.ExecContext(ctx2, query,
		booking.ID, booking.BookingNumber, booking.Type, booking.Status,
		booking.BusinessID, booking.ServiceID, booking.StaffID,
		booking.CustomerID, booking.IsGuestBooking,
		booking.CustomerName, booking.CustomerEmail, booking.CustomerPhone, booking.GuestLookupToken,
		booking.BookingDate, booking.BookingTime, booking.QueueNumber, booking.EstimatedDuration,
		booking.CreatedAt, booking.UpdatedAt,
	)
	if err != nil {
		evt := log.Error().
			Str("request_id", middleware.GetRequestID(ctx)).
			Str("query", "bookings.create").
			Str("booking_id", booking.ID.String()).
			Str("business_id", booking.BusinessID.String()).
			Str("booking_type", string(booking.Type)).
			Err(err)

		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			evt = evt.
				Str("pg_code", string(pqErr.Code)).
				Str("pg_constraint", pqErr.Constraint)
		}

		evt.Msg("booking insert failed")
		return mapInsertDBError(err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func mapInsertDBError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	constraint := strings.ToLower(pqErr.Constraint)
	switch pqErr.Code {
	case "23505":
		// Lost a race on queue number, booking number or guest token;
		// all are regenerated on retry.
		return fmt.Errorf("%w: %s", errRetryConflict, constraint)
	case "23503":
		return fmt.Errorf("%w: %v", ErrBusinessNotFound, err)
	default:
		return err
	}
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Details, error) {
	query := `
		SELECT ` + bookingSelectColumns + `
		FROM bookings b ` + bookingJoins + `
		WHERE b.id = $1
	`

	var details Details
	err := r.db.GetContext(ctx, &details, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &details, nil
}

// GetByGuestToken resolves strictly by the opaque token, never by id or
// booking number, so valid ids cannot be used to enumerate guest bookings.
func (r *repository) GetByGuestToken(ctx context.Context, token string) (*Details, error) {
	query := `
		SELECT ` + bookingSelectColumns + `
		FROM bookings b ` + bookingJoins + `
		WHERE b.guest_lookup_token = $1 AND b.is_guest_booking = true
	`

	var details Details
	err := r.db.GetContext(ctx, &details, query, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &details, nil
}

func (r *repository) List(ctx context.Context, filter *ListFilter, customerID uuid.NullUUID, pagination *Pagination) ([]*Details, int, error) {
	conditions := []string{"true"}
	args := []interface{}{}
	argIndex := 1

	if customerID.Valid {
		conditions = append(conditions, fmt.Sprintf("b.customer_id = $%d", argIndex))
		args = append(args, customerID.UUID)
		argIndex++
	}

	if filter.BusinessID != nil {
		conditions = append(conditions, fmt.Sprintf("b.business_id = $%d", argIndex))
		args = append(args, *filter.BusinessID)
		argIndex++
	}

	if filter.Date != nil {
		conditions = append(conditions, fmt.Sprintf("b.booking_date = $%d", argIndex))
		args = append(args, *filter.Date)
		argIndex++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("b.status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := "SELECT COUNT(*) FROM bookings b " + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	offset := (pagination.Page - 1) * pagination.Limit
	query := fmt.Sprintf(`
		SELECT %s FROM bookings b %s
		%s
		ORDER BY b.booking_date DESC, b.booking_time NULLS LAST, b.queue_number
		LIMIT $%d OFFSET $%d
	`, bookingSelectColumns, bookingJoins, where, argIndex, argIndex+1)
	args = append(args, pagination.Limit, offset)

	var bookings []*Details
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, err
	}

	return bookings, total, nil
}

// Update persists every mutable field using updated_at compare-and-swap.
// A stale snapshot (concurrent reschedule vs cancel) affects zero rows and
// is reported as ErrConcurrentUpdate, never applied.
func (r *repository) Update(ctx context.Context, booking *Booking) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		UPDATE bookings SET
			booking_date = $3, booking_time = $4, staff_id = $5,
			status = $6, cancellation_reason = $7,
			actual_start_time = $8, actual_end_time = $9,
			updated_at = NOW()
		WHERE id = $1 AND updated_at = $2
		RETURNING updated_at
	`

	err := r.db.QueryRowxContext(ctx2, query,
		booking.ID, booking.UpdatedAt,
		booking.BookingDate, booking.BookingTime, booking.StaffID,
		booking.Status, booking.CancellationReason,
		booking.ActualStartTime, booking.ActualEndTime,
	).Scan(&booking.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrConcurrentUpdate
		}
		return err
	}

	return nil
}

func (r *repository) BookingNumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM bookings WHERE booking_number = $1)`, number)
	return exists, err
}

func (r *repository) HasOverlap(ctx context.Context, q OverlapQuery) (bool, error) {
	return hasOverlap(ctx, r.db, q)
}

func hasOverlap(ctx context.Context, q sqlx.QueryerContext, query OverlapQuery) (bool, error) {
	sqlQuery := `
		SELECT EXISTS(
			SELECT 1 FROM bookings b
			WHERE b.business_id = $1
			  AND b.booking_date = $2
			  AND ($3::uuid IS NULL OR b.staff_id = $3)
			  AND ($6::uuid IS NULL OR b.id != $6)
			  AND ` + overlapCondition + `
		)
	`

	var staffID interface{}
	if query.StaffID.Valid {
		staffID = query.StaffID.UUID
	}
	var excludeID interface{}
	if query.ExcludeID.Valid {
		excludeID = query.ExcludeID.UUID
	}

	var exists bool
	err := sqlx.GetContext(ctx, q, &exists, sqlQuery,
		query.BusinessID,
		query.Date,
		staffID,
		FormatHHMM(query.StartMinutes),
		query.DurationMinutes,
		excludeID,
	)
	if err != nil {
		return false, fmt.Errorf("overlap check: %w", err)
	}
	return exists, nil
}

func (r *repository) HasActivePartyBooking(ctx context.Context, q PartyQuery) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE business_id = $1
			  AND booking_date = $2
			  AND status != 'cancelled'
			  AND (
				($3::uuid IS NOT NULL AND customer_id = $3)
				OR (is_guest_booking AND ($4::text IS NOT NULL AND customer_email = $4))
				OR (is_guest_booking AND ($5::text IS NOT NULL AND customer_phone = $5))
			  )
		)
	`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query,
		q.BusinessID, q.Date, q.CustomerID, q.GuestEmail, q.GuestPhone)
	if err != nil {
		return false, fmt.Errorf("duplicate booking check: %w", err)
	}
	return exists, nil
}
