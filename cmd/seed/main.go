package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/samuelozorio/nextpage-mvp-sub000/internal/auth"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/db"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/store"
)

func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	email := envOrDefault("SEED_ADMIN_EMAIL", "admin@local.nextpage")
	password := envOrDefault("SEED_ADMIN_PASSWORD", "Admin12345!")
	fullName := envOrDefault("SEED_ADMIN_NAME", "Local Admin")
	orgSlug := envOrDefault("SEED_ORG_SLUG", "local-dev")
	orgName := envOrDefault("SEED_ORG_NAME", "Local Dev Bookstore")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, databaseURL)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback(ctx)

	q := store.New(tx)
	org, err := q.UpsertOrganization(ctx, store.UpsertOrganizationParams{Slug: orgSlug, Name: orgName})
	if err != nil {
		log.Fatalf("upsert organization: %v", err)
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	admin, err := q.UpsertAdmin(ctx, store.UpsertAdminParams{
		OrganizationID: org.ID,
		Email:          email,
		FullName:       fullName,
		PasswordHash:   passwordHash,
	})
	if err != nil {
		log.Fatalf("upsert admin: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("commit tx: %v", err)
	}

	fmt.Printf("Seed completed. Organization=%s (%s), admin=%s (%s), password=%s\n", orgSlug, org.ID, email, admin.ID, password)
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
