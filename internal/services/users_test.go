package services

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRegisterIsIdempotentAndReactivates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.user(t, 10, "Moscow", 1, 2)
	if err := env.users.Deactivate(ctx, 10); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	u, err := env.users.Register(ctx, Profile{ID: 10, Username: "renamed"})
	if err != nil {
		t.Fatalf("register again: %v", err)
	}
	if !u.IsActive {
		t.Error("returning user should be active again")
	}
	if u.Username != "renamed" {
		t.Errorf("expected refreshed username, got %q", u.Username)
	}
	if u.City != "Moscow" || len(u.Categories) != 2 {
		t.Errorf("re-register must keep city and subscriptions, got %q %v", u.City, u.CategoryIDs())
	}
}

func TestSetCity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.user(t, 1, "")

	if err := env.users.SetCity(ctx, 1, "  Kazan "); err != nil {
		t.Fatalf("set city: %v", err)
	}
	u, _ := env.users.Get(ctx, 1)
	if u.City != "Kazan" {
		t.Errorf("expected trimmed city, got %q", u.City)
	}

	var verr *ValidationError
	if err := env.users.SetCity(ctx, 1, "   "); !errors.As(err, &verr) {
		t.Errorf("empty city should be rejected, got %v", err)
	}
	if err := env.users.SetCity(ctx, 1, strings.Repeat("x", MaxCityLength+1)); !errors.As(err, &verr) {
		t.Errorf("long city should be rejected, got %v", err)
	}
	if err := env.users.SetCity(ctx, 404, "Kazan"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestToggleCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.user(t, 1, "Kazan")

	on, err := env.users.ToggleCategory(ctx, 1, 5)
	if err != nil || !on {
		t.Fatalf("first toggle: on=%v err=%v", on, err)
	}
	u, _ := env.users.Get(ctx, 1)
	if ids := u.CategoryIDs(); len(ids) != 1 || ids[0] != 5 {
		t.Fatalf("expected subscription to 5, got %v", ids)
	}

	on, err = env.users.ToggleCategory(ctx, 1, 5)
	if err != nil || on {
		t.Fatalf("second toggle: on=%v err=%v", on, err)
	}
	u, _ = env.users.Get(ctx, 1)
	if len(u.Categories) != 0 {
		t.Errorf("expected no subscriptions, got %v", u.CategoryIDs())
	}

	var verr *ValidationError
	if _, err := env.users.ToggleCategory(ctx, 1, 14); !errors.As(err, &verr) {
		t.Errorf("unknown category should be rejected, got %v", err)
	}
	if _, err := env.users.ToggleCategory(ctx, 404, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetCategoriesReplaces(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.user(t, 1, "Kazan", 1, 2, 3)

	if err := env.users.SetCategories(ctx, 1, []uint{3, 4}); err != nil {
		t.Fatalf("set categories: %v", err)
	}
	u, _ := env.users.Get(ctx, 1)
	ids := u.CategoryIDs()
	if len(ids) != 2 || ids[0] != 3 || ids[1] != 4 {
		t.Errorf("expected [3 4], got %v", ids)
	}
}
