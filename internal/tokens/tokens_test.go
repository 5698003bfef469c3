package tokens

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/saasforge/saasforge/backend/iam-service/internal/authz"
)

const testSecret = "test-secret-32-bytes-should-be-long-enough"

var testUser = authz.ActiveUser{UserID: "user-123", OrgID: "org-1", Role: authz.RoleOwner}

func TestSignVerify_Claims(t *testing.T) {
	s := NewSigner(testSecret, 2*time.Minute)
	tok, err := s.Sign(testUser)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	claims, err := s.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.Subject != testUser.UserID {
		t.Fatalf("unexpected sub claim: got=%v want=%v", claims.Subject, testUser.UserID)
	}
	if claims.OrgID != "org-1" || claims.Role != "OWNER" {
		t.Fatalf("unexpected org/role claims: %+v", claims)
	}
	if claims.IssuedAtUnix() == 0 {
		t.Fatalf("iat claim missing")
	}
	if got := claims.ActiveUser(); got != testUser {
		t.Fatalf("ActiveUser() = %+v, want %+v", got, testUser)
	}
}

func TestVerify_ExpiredDistinguishable(t *testing.T) {
	// negative TTL mints an already-expired token without sleeping
	s := NewSigner(testSecret, -time.Minute)
	tok, err := s.Sign(testUser)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	_, err = s.Verify(tok)
	if err == nil {
		t.Fatalf("expected expired token to fail verification")
	}
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired in chain, got %v", err)
	}
}

func TestVerify_WrongSecretFails(t *testing.T) {
	s := NewSigner(testSecret, 2*time.Minute)
	tok, err := s.Sign(testUser)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	other := NewSigner("different-secret-xxxxxxxxxxxxxxxx", 2*time.Minute)
	if _, err := other.Verify(tok); err == nil {
		t.Fatalf("expected verification to fail with wrong secret")
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	s := NewSigner(testSecret, 5*time.Minute)
	tok, err := s.Sign(testUser)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token parts")
	}
	payloadBytes, _ := base64.RawURLEncoding.DecodeString(parts[1])
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(strings.Replace(string(payloadBytes), "user-123", "attacker", 1)))
	if _, err := s.Verify(strings.Join(parts, ".")); err == nil {
		t.Fatalf("expected signature verification to fail for tampered token")
	}
}

func TestVerify_AlgNoneRejected(t *testing.T) {
	headerEnc := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	payloadEnc := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"u-none","exp":9999999999}`))
	s := NewSigner(testSecret, time.Minute)
	if _, err := s.Verify(headerEnc + "." + payloadEnc + "."); err == nil {
		t.Fatalf("expected alg=none token to be rejected")
	}
}

func TestDecode_ExpiredTokenStillReadable(t *testing.T) {
	s := NewSigner(testSecret, -time.Minute)
	tok, err := s.Sign(testUser)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	claims, err := s.Decode(tok)
	if err != nil {
		t.Fatalf("Decode should not validate expiry: %v", err)
	}
	if claims.ExpiresAt == nil || claims.Subject != testUser.UserID {
		t.Fatalf("decoded claims incomplete: %+v", claims)
	}
}

func TestDecode_Malformed(t *testing.T) {
	s := NewSigner(testSecret, time.Minute)
	if _, err := s.Decode("not.a.jwt"); err == nil {
		t.Fatalf("expected decode to fail for malformed token")
	}
}
