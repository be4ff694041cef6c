package httpapi

import (
	"testing"
	"time"

	"billora/backend/internal/domain"
)

func TestAuthManagerIssueAndParseRoundtrip(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour)

	resp, err := manager.Issue(domain.Actor{Username: "owner", Role: domain.RoleOwner})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatalf("expected access token")
	}
	if resp.Role != domain.RoleOwner {
		t.Fatalf("role = %q, want %q", resp.Role, domain.RoleOwner)
	}
	if _, err := time.Parse(time.RFC3339, resp.ExpiresAt); err != nil {
		t.Fatalf("expires_at is not RFC3339: %v", err)
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if actor.Username != "owner" || actor.Role != domain.RoleOwner {
		t.Fatalf("actor = %+v, want owner/%s", actor, domain.RoleOwner)
	}
}

func TestAuthManagerPreservesCashierRole(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour)

	resp, err := manager.Issue(domain.Actor{Username: "priya", Role: domain.RoleCashier})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if actor.Role != domain.RoleCashier {
		t.Fatalf("role = %q, want %q", actor.Role, domain.RoleCashier)
	}
}

func TestAuthManagerRejectsWrongSecret(t *testing.T) {
	issuer := NewAuthManager("secret-one", time.Hour)
	verifier := NewAuthManager("secret-two", time.Hour)

	resp, err := issuer.Issue(domain.Actor{Username: "owner", Role: domain.RoleOwner})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := verifier.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with a different secret to be rejected")
	}
}

func TestAuthManagerRejectsExpiredToken(t *testing.T) {
	manager := NewAuthManager("test-secret", -time.Minute)

	resp, err := manager.Issue(domain.Actor{Username: "owner", Role: domain.RoleOwner})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := manager.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestAuthManagerRejectsGarbageToken(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour)

	if _, err := manager.ParseToken("not.a.jwt"); err == nil {
		t.Fatalf("expected malformed token to be rejected")
	}
	if _, err := manager.ParseToken(""); err == nil {
		t.Fatalf("expected empty token to be rejected")
	}
}
