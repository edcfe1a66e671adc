package booking

import (
	"context"
	"crypto/rand"
	"encoding/base64"
)

// Booking numbers use an unambiguous alphabet (no 0/O, 1/I/L) so they can be
// read over the phone.
const bookingNumberAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const (
	bookingNumberLength   = 8
	maxGenerationAttempts = 5
	guestTokenBytes       = 32
)

// NumberChecker reports whether a booking number is already taken.
type NumberChecker interface {
	BookingNumberExists(ctx context.Context, number string) (bool, error)
}

// IdentifierGenerator mints booking numbers and guest lookup tokens. Queue
// numbers are issued by the repository inside the creation transaction, where
// they can be serialized against concurrent inserts.
type IdentifierGenerator struct {
	checker NumberChecker
}

// NewIdentifierGenerator creates an identifier generator
func NewIdentifierGenerator(checker NumberChecker) *IdentifierGenerator {
	return &IdentifierGenerator{checker: checker}
}

// GenerateBookingNumber mints a short human-facing code, retrying on
// collision a bounded number of times.
func (g *IdentifierGenerator) GenerateBookingNumber(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxGenerationAttempts; attempt++ {
		number, err := randomBookingNumber()
		if err != nil {
			return "", err
		}

		exists, err := g.checker.BookingNumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
	}
	return "", ErrExhaustedRetries
}

// GenerateGuestLookupToken mints a bearer credential for guest bookings.
// 256 bits from crypto/rand; treated as a secret, never displayed as an id.
func GenerateGuestLookupToken() (string, error) {
	b := make([]byte, guestTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func randomBookingNumber() (string, error) {
	b := make([]byte, bookingNumberLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = bookingNumberAlphabet[int(b[i])%len(bookingNumberAlphabet)]
	}
	return "BK" + string(b), nil
}
