package push

import (
	"encoding/base64"
	"testing"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}

	// Public key should be base64url-encoded, 65 bytes uncompressed P-256 point
	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(pubBytes) != 65 {
		t.Errorf("public key length = %d, want 65", len(pubBytes))
	}

	privBytes, err := base64.RawURLEncoding.DecodeString(priv)
	if err != nil {
		t.Fatalf("decode private key: %v", err)
	}
	if len(privBytes) != 32 {
		t.Errorf("private key length = %d, want 32", len(privBytes))
	}

	pub2, _, _ := GenerateVAPIDKeys()
	if pub == pub2 {
		t.Error("expected different keys on second generation")
	}
}

func TestConfiguredService(t *testing.T) {
	if NewService("pub", "priv", "mailto:x@y.z").Configured() != true {
		t.Error("expected Configured() = true")
	}
	if NewService("", "", "").Configured() {
		t.Error("expected Configured() = false")
	}
}

func TestReminderBody(t *testing.T) {
	tests := []struct {
		due, overdue int
		want         string
	}{
		{1, 0, "1 chore is due today"},
		{3, 0, "3 chores are due today"},
		{0, 2, "2 chores are overdue"},
		{2, 1, "2 chores due today, 1 overdue"},
	}
	for _, tt := range tests {
		if got := reminderBody(tt.due, tt.overdue); got != tt.want {
			t.Errorf("reminderBody(%d, %d) = %q, want %q", tt.due, tt.overdue, got, tt.want)
		}
	}
}
