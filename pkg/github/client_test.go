package github

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestClient_SetCurrentOrg(t *testing.T) {
	c := &Client{}

	c.SetCurrentOrg("test-org")

	if c.currentOrg != "test-org" {
		t.Errorf("expected currentOrg to be 'test-org', got %q", c.currentOrg)
	}
}

func TestClient_IsUserAccount(t *testing.T) {
	c := &Client{
		installationTypes: map[string]string{
			"user1": "User",
			"org1":  "Organization",
		},
	}

	tests := []struct {
		account string
		want    bool
	}{
		{"user1", true},
		{"org1", false},
		{"unknown", false},
	}

	for _, tt := range tests {
		t.Run(tt.account, func(t *testing.T) {
			got := c.IsUserAccount(tt.account)
			if got != tt.want {
				t.Errorf("IsUserAccount(%q) = %v, want %v", tt.account, got, tt.want)
			}
		})
	}
}

func TestClient_Token_PersonalToken(t *testing.T) {
	ctx := context.Background()
	c := &Client{
		isAppAuth: false,
		token:     "test-token",
	}

	token, err := c.Token(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if token != "test-token" {
		t.Errorf("expected 'test-token', got %q", token)
	}
}

func TestClient_Token_AppAuthNoOrg(t *testing.T) {
	ctx := context.Background()
	c := &Client{
		isAppAuth:  true,
		token:      "jwt-token",
		currentOrg: "",
	}

	token, err := c.Token(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if token != "jwt-token" {
		t.Errorf("expected 'jwt-token', got %q", token)
	}
}

func TestDrainAndCloseBody(t *testing.T) {
	// Should not panic
	drainAndCloseBody(http.NoBody)
}

func TestRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"not found is terminal", errors.New("http 404: not found"), false},
		{"rate limited", errors.New("http 429: rate limited"), true},
		{"server error", errors.New("http 502: server error"), true},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"timeout", errors.New("context deadline exceeded (Client.Timeout exceeded) timeout"), true},
		{"eof", errors.New("unexpected EOF"), true},
		{"other client error", errors.New("http 422: validation failed"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryableError(tt.err); got != tt.want {
				t.Errorf("retryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
