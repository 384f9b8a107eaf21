package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/http/mw"
	"github.com/jmaintain/makepromptsbetter-sub000/internal/version"
)

func TestHealthCheck(t *testing.T) {
	output, err := HealthCheck(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output == nil {
		t.Fatal("expected output, got nil")
	}
	if output.Body.Status != "healthy" {
		t.Errorf("Status = %q, want %q", output.Body.Status, "healthy")
	}
	if output.Body.Version != version.Get().Version {
		t.Errorf("Version = %q, want %q", output.Body.Version, version.Get().Version)
	}
}

func TestLivez(t *testing.T) {
	output, err := Livez(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Body.Status != "ok" {
		t.Errorf("Status = %q, want %q", output.Body.Status, "ok")
	}
}

// mockDBPinger implements DBPinger for testing
type mockDBPinger struct {
	err error
}

func (m *mockDBPinger) Ping() error {
	return m.err
}

func TestReadyzSuccess(t *testing.T) {
	handler := NewReadyzHandler(&mockDBPinger{})

	output, err := handler.Readyz(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Body.Status != "ok" {
		t.Errorf("Status = %q, want %q", output.Body.Status, "ok")
	}
}

func TestReadyzDBError(t *testing.T) {
	handler := NewReadyzHandler(&mockDBPinger{err: errors.New("connection failed")})

	if _, err := handler.Readyz(context.Background(), nil); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestGetUserIDWithClaims(t *testing.T) {
	claims := &mw.UserClaims{UserID: "user-123"}
	ctx := context.WithValue(context.Background(), mw.UserClaimsKey, claims)

	if got := getUserID(ctx); got != "user-123" {
		t.Errorf("getUserID() = %q, want %q", got, "user-123")
	}
	if got := getFingerprint(ctx); got != "user-123" {
		t.Errorf("getFingerprint() = %q, want %q", got, "user-123")
	}
}

func TestGetUserIDNoClaims(t *testing.T) {
	if got := getUserID(context.Background()); got != "" {
		t.Errorf("getUserID() = %q, want empty", got)
	}
}
