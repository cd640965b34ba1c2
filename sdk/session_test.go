package sdk

import (
	"context"
	"testing"

	"github.com/yaroslav/nassession/internal/store"
)

func TestSessionTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	backing := store.NewMemoryStore()
	session := NewSession(backing)

	if session.HasToken() {
		t.Fatal("new session should not have a token")
	}

	if err := session.SetToken(ctx, "abc"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}
	if session.Token() != "abc" {
		t.Fatalf("Token() = %q, want abc", session.Token())
	}
	if v, ok, _ := backing.Get(ctx, store.KeyToken); !ok || v != "abc" {
		t.Fatal("token was not persisted")
	}

	// A fresh session over the same store picks the token back up.
	restored := NewSession(backing)
	if err := restored.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if restored.Token() != "abc" {
		t.Fatalf("restored Token() = %q, want abc", restored.Token())
	}

	if err := session.ClearToken(ctx); err != nil {
		t.Fatalf("ClearToken() error = %v", err)
	}
	if session.HasToken() {
		t.Fatal("token should be cleared")
	}
	if _, ok, _ := backing.Get(ctx, store.KeyToken); ok {
		t.Fatal("token should be removed from the store")
	}
}

func TestSessionRedirectURL(t *testing.T) {
	session := NewSession(nil)
	if session.RedirectURL() != "" {
		t.Fatal("expected empty redirect")
	}
	session.SetRedirectURL("/storage")
	if session.RedirectURL() != "/storage" {
		t.Fatalf("RedirectURL() = %q", session.RedirectURL())
	}
}
