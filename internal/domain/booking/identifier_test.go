package booking

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubNumberChecker struct {
	exists bool
	calls  int
}

func (s *stubNumberChecker) BookingNumberExists(ctx context.Context, number string) (bool, error) {
	s.calls++
	return s.exists, nil
}

func TestGenerateBookingNumberFormat(t *testing.T) {
	gen := NewIdentifierGenerator(&stubNumberChecker{})

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		number, err := gen.GenerateBookingNumber(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(number, "BK") {
			t.Fatalf("expected BK prefix, got %q", number)
		}
		if len(number) != 2+bookingNumberLength {
			t.Fatalf("expected length %d, got %q", 2+bookingNumberLength, number)
		}
		for _, r := range number[2:] {
			if !strings.ContainsRune(bookingNumberAlphabet, r) {
				t.Fatalf("character %q outside alphabet in %q", r, number)
			}
		}
		seen[number] = true
	}

	// 31^8 possibilities; 100 draws colliding would indicate a broken source.
	if len(seen) != 100 {
		t.Fatalf("expected 100 distinct numbers, got %d", len(seen))
	}
}

func TestGenerateBookingNumberExhaustsRetries(t *testing.T) {
	checker := &stubNumberChecker{exists: true}
	gen := NewIdentifierGenerator(checker)

	_, err := gen.GenerateBookingNumber(context.Background())
	if !errors.Is(err, ErrExhaustedRetries) {
		t.Fatalf("expected ErrExhaustedRetries, got %v", err)
	}
	if checker.calls != maxGenerationAttempts {
		t.Fatalf("expected %d attempts, got %d", maxGenerationAttempts, checker.calls)
	}
}

func TestGenerateGuestLookupToken(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		token, err := GenerateGuestLookupToken()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// 32 bytes base64url without padding.
		if len(token) != 43 {
			t.Fatalf("expected 43-char token, got %d (%q)", len(token), token)
		}
		if strings.ContainsAny(token, "+/=") {
			t.Fatalf("token contains non-URL-safe characters: %q", token)
		}
		seen[token] = true
	}
	if len(seen) != 50 {
		t.Fatalf("expected 50 distinct tokens, got %d", len(seen))
	}
}
