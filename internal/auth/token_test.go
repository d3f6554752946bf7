package auth

import (
	"context"
	"testing"
	"time"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), nil)

	token, err := issuer.Issue(42, 7, "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	ac, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ac.UserID != 42 {
		t.Errorf("UserID = %d, want 42", ac.UserID)
	}
	if ac.HouseholdID != 7 {
		t.Errorf("HouseholdID = %d, want 7", ac.HouseholdID)
	}
	if ac.Role != "admin" {
		t.Errorf("Role = %q, want %q", ac.Role, "admin")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret-a"), nil)
	other := NewTokenIssuer([]byte("secret-b"), nil)

	token, err := issuer.Issue(1, 1, "member")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := other.Verify(token); err == nil {
		t.Error("token signed with different secret should not verify")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer := NewTokenIssuer([]byte("test-secret"), func() time.Time { return issued })

	token, err := issuer.Issue(1, 1, "member")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	later := NewTokenIssuer([]byte("test-secret"), func() time.Time { return issued.Add(31 * 24 * time.Hour) })
	if _, err := later.Verify(token); err == nil {
		t.Error("expired token should not verify")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), nil)
	if _, err := issuer.Verify("not-a-token"); err == nil {
		t.Error("garbage should not verify")
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{UserID: 1, HouseholdID: 2, Role: "admin"})

	if got := UserID(ctx); got != 1 {
		t.Errorf("UserID = %d, want 1", got)
	}
	if got := HouseholdID(ctx); got != 2 {
		t.Errorf("HouseholdID = %d, want 2", got)
	}
	if !IsAdmin(ctx) {
		t.Error("IsAdmin = false, want true")
	}

	if _, ok := FromContext(context.Background()); ok {
		t.Error("empty context should not carry auth")
	}
}
