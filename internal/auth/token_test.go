package auth

import (
	"testing"
	"time"

	"github.com/suporte-central/pendentes/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 5)
	token, exp, err := tm.GenerateToken("u-1", domain.SubjectTypeUser, "ana@example.com")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Errorf("expiry %v is not in the future", exp)
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.SubjectID != "u-1" || claims.Subject != domain.SubjectTypeUser || claims.Email != "ana@example.com" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestParseTokenRejects(t *testing.T) {
	tm := NewTokenManager("test-secret", 5)
	other := NewTokenManager("another-secret", 5)
	foreign, _, err := other.GenerateToken("u-1", domain.SubjectTypeUser, "")
	if err != nil {
		t.Fatal(err)
	}

	expired := NewTokenManager("test-secret", 1)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _, err := expired.GenerateToken("u-1", domain.SubjectTypeUser, "")
	if err != nil {
		t.Fatal(err)
	}

	for name, token := range map[string]string{
		"wrong secret": foreign,
		"expired":      stale,
		"garbage":      "not.a.jwt",
	} {
		if _, err := tm.ParseToken(token); err == nil {
			t.Errorf("%s: token accepted", name)
		}
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := ComparePassword(hash, "s3cret-pass"); err != nil {
		t.Errorf("matching password rejected: %v", err)
	}
	if err := ComparePassword(hash, "other"); err == nil {
		t.Error("wrong password accepted")
	}
	long := make([]byte, 73)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := HashPassword(string(long), 4); err != ErrPasswordTooLong {
		t.Errorf("long password err = %v", err)
	}
}
