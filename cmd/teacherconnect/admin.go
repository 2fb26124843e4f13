package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/12darko/TeacherConnect-sub000/internal/config"
	"github.com/12darko/TeacherConnect-sub000/internal/db"
	"github.com/12darko/TeacherConnect-sub000/internal/operations"
	"github.com/12darko/TeacherConnect-sub000/internal/store"
)

var defaultSubjects = []struct{ name, icon string }{
	{"Mathematics", "calculator"},
	{"Physics", "atom"},
	{"Chemistry", "flask"},
	{"Biology", "leaf"},
	{"English", "book"},
	{"History", "landmark"},
	{"Computer Science", "code"},
	{"Music", "music"},
}

func newInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create missing tables and indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			pool, err := openPool(ctx, config.Load())
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := db.EnsureSchema(ctx, pool); err != nil {
				return err
			}
			log.Printf("schema applied")
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	var adminEmail, adminPassword string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert reference subjects and an admin account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if adminPassword == "" {
				adminPassword = os.Getenv("SEED_ADMIN_PASSWORD")
			}
			ctx := cmd.Context()
			cfg := config.Load()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := db.EnsureSchema(ctx, pool); err != nil {
				return err
			}
			return seed(ctx, db.NewStore(pool), cfg, adminEmail, adminPassword)
		},
	}
	cmd.Flags().StringVar(&adminEmail, "admin-email", "admin@teacherconnect.local", "email of the admin account to create")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "admin password (defaults to SEED_ADMIN_PASSWORD)")
	return cmd
}

// seed is idempotent: existing subjects (by name) and an existing admin
// email are left alone.
func seed(ctx context.Context, st store.Store, cfg config.Config, adminEmail, adminPassword string) error {
	catalog := operations.NewCatalog(st, nil)
	existing, err := catalog.ListSubjects(ctx)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, s := range existing {
		have[s.Name] = true
	}
	created := 0
	for _, s := range defaultSubjects {
		if have[s.name] {
			continue
		}
		if _, err := catalog.CreateSubject(ctx, s.name, s.icon); err != nil {
			return err
		}
		created++
	}
	log.Printf("seeded %d subjects", created)

	if adminPassword == "" {
		log.Printf("no admin password given; skipping admin account")
		return nil
	}
	identity := operations.NewIdentity(st, operations.TokenConfig{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, TTL: cfg.AccessTokenTTL}, nil)
	_, err = identity.CreateAdmin(ctx, adminEmail, adminPassword, "Admin", "")
	if operations.CodeOf(err) == operations.ErrEmailTaken {
		log.Printf("admin %s already exists", adminEmail)
		return nil
	}
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Printf("created admin %s", adminEmail)
	return nil
}
