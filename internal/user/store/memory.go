package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"nomen/internal/sentinel"
	"nomen/internal/user/models"
)

// ErrNotFound is returned when a user or name record is not found.
var ErrNotFound = sentinel.ErrNotFound

// InMemory stores user records in memory. Name sub-records live in their own
// map keyed by id, mirroring the two physical locations of the name data:
// reads reassemble the user from both, so a divergence between them is
// observable exactly as it would be with two tables.
type InMemory struct {
	mu      sync.RWMutex
	users   map[string]*models.User // keyed by username, Name field holds only the reference copy
	idIdx   map[uuid.UUID]string
	names   map[uuid.UUID]*models.Name
	nameIdx map[string]uuid.UUID // username -> owned name id
}

// NewInMemory creates an in-memory user store.
func NewInMemory() *InMemory {
	return &InMemory{
		users:   make(map[string]*models.User),
		idIdx:   make(map[uuid.UUID]string),
		names:   make(map[uuid.UUID]*models.Name),
		nameIdx: make(map[string]uuid.UUID),
	}
}

// FindByID retrieves a user by its surrogate id.
func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	username, ok := s.idIdx[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.assemble(username), nil
}

// FindByUsername retrieves a user by its natural key.
func (s *InMemory) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.users[username]; !ok {
		return nil, ErrNotFound
	}
	return s.assemble(username), nil
}

// Save upserts the user and its name sub-record in one call. The username is
// immutable: saving a known id under a different username is rejected.
func (s *InMemory) Save(_ context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.idIdx[user.ID]; ok && existing != user.Username {
		return nil, fmt.Errorf("username is immutable: %w", sentinel.ErrAlreadyUsed)
	}
	if current, ok := s.users[user.Username]; ok && current.ID != user.ID {
		return nil, fmt.Errorf("username must be unique: %w", sentinel.ErrAlreadyUsed)
	}

	stored := user.Clone()
	if stored.Name != nil {
		s.names[stored.Name.ID] = stored.Name
		s.nameIdx[stored.Username] = stored.Name.ID
		stored.Name = nil
	} else if nameID, ok := s.nameIdx[stored.Username]; ok {
		// Save writes both locations, so a value without a sub-record must
		// also drop the stored one; otherwise reads resurrect it.
		delete(s.names, nameID)
		delete(s.nameIdx, stored.Username)
	}
	s.users[stored.Username] = stored
	s.idIdx[stored.ID] = stored.Username
	return s.assemble(user.Username), nil
}

// DeleteByUsername removes the user and its name sub-record, returning the
// previous value. Absent users yield ErrNotFound with no side effect.
func (s *InMemory) DeleteByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; !ok {
		return nil, ErrNotFound
	}
	previous := s.assemble(username)
	delete(s.idIdx, previous.ID)
	delete(s.users, username)
	if nameID, ok := s.nameIdx[username]; ok {
		delete(s.names, nameID)
		delete(s.nameIdx, username)
	}
	return previous, nil
}

// FindMigrationEligible returns every record missing split names or the name
// sub-record, in no particular order.
func (s *InMemory) FindMigrationEligible(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var eligible []*models.User
	for username := range s.users {
		if u := s.assemble(username); u.NeedsMigration() {
			eligible = append(eligible, u)
		}
	}
	return eligible, nil
}

// FindNameByID retrieves a name sub-record by id.
func (s *InMemory) FindNameByID(_ context.Context, id uuid.UUID) (*models.Name, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.names[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *name
	return &clone, nil
}

// SaveName overwrites a name sub-record directly, bypassing the user-side
// duplicate write. This is the seam integrity tests use to simulate drift
// caused by out-of-band mutation; no service code path calls it.
func (s *InMemory) SaveName(_ context.Context, name *models.Name) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.names[name.ID]; !ok {
		return ErrNotFound
	}
	clone := *name
	s.names[name.ID] = &clone
	return nil
}

// assemble rebuilds the caller-facing user value from both physical
// locations. Callers must hold at least the read lock.
func (s *InMemory) assemble(username string) *models.User {
	stored, ok := s.users[username]
	if !ok {
		return nil
	}
	u := stored.Clone()
	if nameID, ok := s.nameIdx[username]; ok {
		if name, ok := s.names[nameID]; ok {
			clone := *name
			u.Name = &clone
		}
	}
	return u
}
