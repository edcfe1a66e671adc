package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Business represents a bookable tenant (salon, clinic, restaurant).
// The booking engine only reads these records; ownership lives in the
// business management service.
type Business struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	Timezone  string    `db:"timezone"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Service represents a bookable service offered by a business. Duration and
// price are snapshotted into bookings at creation time, so later edits here
// never alter existing bookings.
type Service struct {
	ID              uuid.UUID `db:"id"`
	BusinessID      uuid.UUID `db:"business_id"`
	Name            string    `db:"name"`
	DurationMinutes int       `db:"duration_minutes"`
	Price           float64   `db:"price"`
	IsActive        bool      `db:"is_active"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// Staff represents a staff member who can be assigned to bookings.
type Staff struct {
	ID          uuid.UUID `db:"id"`
	BusinessID  uuid.UUID `db:"business_id"`
	DisplayName string    `db:"display_name"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}
