package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	m := NewManager("test-secret", 0)

	before := time.Now()
	token, err := m.Encode(Claims{"email": "a@x.com", "name": "A"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	claims, err := m.Decode(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if claims.Email() != "a@x.com" {
		t.Fatalf("email = %q, want a@x.com", claims.Email())
	}
	if claims.String("name") != "A" {
		t.Fatalf("name = %q, want A", claims.String("name"))
	}
	if len(claims) != 3 {
		t.Fatalf("expected input claims plus exp, got %v", claims)
	}

	exp := claims.ExpiresAt()
	if !exp.After(before) {
		t.Fatalf("exp %v should be after %v", exp, before)
	}
	if got := exp.Sub(before); got < DefaultTTL-time.Minute || got > DefaultTTL+time.Minute {
		t.Fatalf("exp is %v from now, want about %v", got, DefaultTTL)
	}
}

func TestEncode_DoesNotMutateInput(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	in := Claims{"email": "a@x.com"}

	if _, err := m.Encode(in); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, ok := in["exp"]; ok {
		t.Fatalf("Encode must not add exp to the caller's claims")
	}
}

func TestEncode_Deterministic(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	m.now = fixedClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	a, err := m.Encode(Claims{"email": "a@x.com", "name": "A"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := m.Encode(Claims{"name": "A", "email": "a@x.com"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if a != b {
		t.Fatalf("expected identical tokens, got\n%s\n%s", a, b)
	}
}

func TestDecode_Expired(t *testing.T) {
	m := NewManager("test-secret", 0)

	token, err := m.EncodeWithTTL(Claims{"email": "a@x.com"}, -1*time.Minute)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	_, err = m.Decode(token)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("got %v, want ErrExpired", err)
	}
}

func TestDecode_WrongSecret(t *testing.T) {
	issuer := NewManager("secret-one", 0)
	verifier := NewManager("secret-two", 0)

	token, err := issuer.IssueSession("a@x.com")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	_, err = verifier.Decode(token)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("got %v, want ErrInvalidSignature", err)
	}
}

func TestDecode_Malformed(t *testing.T) {
	m := NewManager("test-secret", 0)

	for _, raw := range []string{"", "abc", "a.b.c", strings.Repeat("x", 40)} {
		if _, err := m.Decode(raw); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Decode(%q) = %v, want ErrMalformed", raw, err)
		}
	}
}

func TestSessionEmail(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	token, err := m.IssueSession("a@x.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	email, err := m.SessionEmail(token)
	if err != nil {
		t.Fatalf("session email: %v", err)
	}
	if email != "a@x.com" {
		t.Fatalf("email = %q", email)
	}

	noEmail, err := m.Encode(Claims{"name": "A"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := m.SessionEmail(noEmail); !errors.Is(err, ErrMalformed) {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
}
