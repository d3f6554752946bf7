package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestSendInvite(t *testing.T) {
	var received resendEmail
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "test-id"}`))
	}))
	defer server.Close()

	client := NewClient("test-key", "noreply@example.com", "https://chorecraft.test", WithAPIURL(server.URL))

	err := client.SendInvite(context.Background(), "alice@example.com", "abc123", "Smith Family")
	if err != nil {
		t.Fatalf("send invite: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer test-key")
	}
	if len(received.To) != 1 || received.To[0] != "alice@example.com" {
		t.Errorf("To = %v, want [alice@example.com]", received.To)
	}
	if received.From != "noreply@example.com" {
		t.Errorf("From = %q, want %q", received.From, "noreply@example.com")
	}
	if received.Subject != "You've been invited to Smith Family on ChoreCraft" {
		t.Errorf("Subject = %q, want invite subject", received.Subject)
	}
}

func TestSendInviteNotConfigured(t *testing.T) {
	client := NewClient("", "noreply@example.com", "https://chorecraft.test")

	err := client.SendInvite(context.Background(), "alice@example.com", "abc123", "Smith Family")
	if err == nil {
		t.Fatal("expected error for unconfigured client")
	}
}

func TestSendInviteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "test-id"}`))
	}))
	defer server.Close()

	client := NewClient("test-key", "noreply@example.com", "https://chorecraft.test", WithAPIURL(server.URL))

	err := client.SendInvite(context.Background(), "alice@example.com", "abc123", "Smith Family")
	if err != nil {
		t.Fatalf("send invite: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestSendInviteDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient("test-key", "noreply@example.com", "https://chorecraft.test", WithAPIURL(server.URL))

	err := client.SendInvite(context.Background(), "alice@example.com", "abc123", "Smith Family")
	if err == nil {
		t.Fatal("expected error for API failure")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestConfigured(t *testing.T) {
	c1 := NewClient("key", "from@test.com", "https://test.com")
	if !c1.Configured() {
		t.Error("expected Configured() = true")
	}

	c2 := NewClient("", "from@test.com", "https://test.com")
	if c2.Configured() {
		t.Error("expected Configured() = false")
	}
}
