package store

import (
	"context"

	"github.com/google/uuid"

	"nomen/internal/user/models"
)

// UserStore persists user records together with their name sub-records.
// Save writes both in one call; implementations return the persisted value.
// Lookups return sentinel.ErrNotFound (optionally wrapped) when absent.
type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Save(ctx context.Context, user *models.User) (*models.User, error)
	// DeleteByUsername removes the user and its name sub-record and returns
	// the previous value, so callers can audit and encode the snapshot.
	DeleteByUsername(ctx context.Context, username string) (*models.User, error)
	// FindMigrationEligible returns every record missing the newest
	// generation's structure: split names or the name sub-record.
	FindMigrationEligible(ctx context.Context) ([]*models.User, error)
	FindNameByID(ctx context.Context, id uuid.UUID) (*models.Name, error)
}
