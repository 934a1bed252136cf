package auth

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	Init(&Config{Secret: "unit-test-secret"})

	token, err := NewToken(7, "user-42", "Alice", time.Minute)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}

	r := httptest.NewRequest("GET", "/v1/files", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	claims, err := VerifyToken(r)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.TenantID != 7 {
		t.Errorf("tenant = %d, want 7", claims.TenantID)
	}
	if claims.UserID != "user-42" {
		t.Errorf("user = %s, want user-42", claims.UserID)
	}
	if claims.Name != "Alice" {
		t.Errorf("name = %s, want Alice", claims.Name)
	}
}

func TestVerifyTokenMissingHeader(t *testing.T) {
	Init(&Config{Secret: "unit-test-secret"})

	r := httptest.NewRequest("GET", "/v1/files", nil)
	if _, err := VerifyToken(r); err == nil {
		t.Error("request without Authorization header was accepted")
	}
}

func TestVerifyTokenWrongSecret(t *testing.T) {
	Init(&Config{Secret: "secret-a"})
	token, err := NewToken(7, "user-42", "Alice", time.Minute)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}

	Init(&Config{Secret: "secret-b"})
	if _, err := ParseToken(token); err == nil {
		t.Error("token signed with a different secret was accepted")
	}
}

func TestParseTokenExpired(t *testing.T) {
	Init(&Config{Secret: "unit-test-secret"})

	token, err := NewToken(7, "user-42", "Alice", -time.Minute)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}

	if _, err := ParseToken(token); err == nil {
		t.Error("expired token was accepted")
	}
}
