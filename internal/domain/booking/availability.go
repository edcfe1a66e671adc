package booking

import "context"

// ConflictFinder reports whether any active time-slot booking overlaps a
// candidate interval.
type ConflictFinder interface {
	HasOverlap(ctx context.Context, q OverlapQuery) (bool, error)
}

// AvailabilityChecker decides whether a time slot is free. Queue-number
// bookings are never interval-checked; ticket issuance is always accepted.
//
// A conflict uses the symmetric overlap rule over [start, start+duration):
// existing.start < candidate.end AND candidate.start < existing.end.
// When no staff member is requested the check is business-wide, so an
// unassigned booking reserves the business's general capacity.
type AvailabilityChecker struct {
	finder ConflictFinder
}

// NewAvailabilityChecker creates an availability checker
func NewAvailabilityChecker(finder ConflictFinder) *AvailabilityChecker {
	return &AvailabilityChecker{finder: finder}
}

// IsAvailable reports whether the candidate interval is free of conflicts.
// ExcludeID lets reschedule ignore the booking being moved.
func (c *AvailabilityChecker) IsAvailable(ctx context.Context, q OverlapQuery) (bool, error) {
	conflict, err := c.finder.HasOverlap(ctx, q)
	if err != nil {
		return false, err
	}
	return !conflict, nil
}
