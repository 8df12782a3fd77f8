package main

import (
	"context"
	"testing"

	"volterra/admin-service/internal/config"
	"volterra/admin-service/internal/models"
	"volterra/admin-service/internal/store/memory"

	"golang.org/x/crypto/bcrypt"
)

func TestSeedAdminUpsertsOnce(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore(memory.Options{})
	cfg := config.Config{SeedAdminEmail: "root@volterra.test", SeedAdminPassword: "changeme"}

	if err := seedAdmin(ctx, st, cfg); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cfg.SeedAdminPassword = "rotated"
	if err := seedAdmin(ctx, st, cfg); err != nil {
		t.Fatalf("reseed: %v", err)
	}

	user, ok, err := st.GetUserByEmail(ctx, "root@volterra.test")
	if err != nil || !ok {
		t.Fatalf("expected seeded user, got ok=%v err=%v", ok, err)
	}
	if user.Role != models.RoleAdmin {
		t.Fatalf("expected admin role, got %s", user.Role)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("rotated")); err != nil {
		t.Fatalf("expected rotated password hash: %v", err)
	}
	if user.ID != 1 {
		t.Fatalf("expected the first user record to be updated, got id %d", user.ID)
	}
}

func TestSeedAdminSkippedWithoutCredentials(t *testing.T) {
	st := memory.NewStore(memory.Options{})
	if err := seedAdmin(context.Background(), st, config.Config{}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, ok, _ := st.GetUserByEmail(context.Background(), ""); ok {
		t.Fatalf("expected no user")
	}
}
