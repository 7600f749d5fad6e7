// Package seeder populates the in-memory store with demo data for local runs.
package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"nomen/internal/user/models"
)

// UserStore defines the store methods seeding needs.
type UserStore interface {
	Save(ctx context.Context, user *models.User) (*models.User, error)
}

// Seeder writes demo users into a store.
type Seeder struct {
	users  UserStore
	logger *slog.Logger
}

// New creates a Seeder.
func New(users UserStore, logger *slog.Logger) *Seeder {
	return &Seeder{users: users, logger: logger}
}

// SeedAll inserts the demo users: a few in the newest shape and a few legacy
// records with only a full name, so the migration sweep has something to do.
func (s *Seeder) SeedAll(ctx context.Context) error {
	s.logger.Info("seeding demo data...")

	now := time.Now()

	current := []struct {
		username  string
		firstName string
		lastName  string
	}{
		{"alice", "Alice", "Anderson"},
		{"bob", "Bob", "Brown"},
		{"charlie", "Charlie", "Chen"},
	}
	for _, u := range current {
		if _, err := s.users.Save(ctx, models.NewUser(u.username, u.firstName, u.lastName, now)); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.username, err)
		}
	}

	legacy := []struct {
		username string
		fullName string
	}{
		{"diana", "Diana Davis"},
		{"evans", "Eve van Evans"},
	}
	for _, u := range legacy {
		user := &models.User{
			ID:        uuid.New(),
			Username:  u.username,
			FullName:  u.fullName,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := s.users.Save(ctx, user); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.username, err)
		}
	}

	s.logger.Info("demo data seeded successfully",
		"users", len(current)+len(legacy),
	)
	return nil
}
