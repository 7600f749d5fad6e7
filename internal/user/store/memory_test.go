package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nomen/internal/sentinel"
	"nomen/internal/user/models"
)

func TestSaveAndFind(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	u := models.NewUser("jdoe", "Jane", "Doe", time.Now())
	saved, err := s.Save(ctx, u)
	require.NoError(t, err)
	require.NotNil(t, saved.Name)

	found, err := s.FindByUsername(ctx, "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "Jane", found.FirstName)
	require.NotNil(t, found.Name)
	assert.Equal(t, "Jane", found.Name.FirstName)

	byID, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "jdoe", byID.Username)
}

func TestFindAbsentReturnsNotFound(t *testing.T) {
	s := NewInMemory()

	_, err := s.FindByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestSaveRejectsDuplicateUsername(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	require.NoError(t, save(t, s, models.NewUser("jdoe", "Jane", "Doe", time.Now())))

	other := models.NewUser("jdoe", "John", "Doe", time.Now())
	_, err := s.Save(ctx, other)
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
}

func TestSaveRejectsUsernameChange(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	u := models.NewUser("jdoe", "Jane", "Doe", time.Now())
	_, err := s.Save(ctx, u)
	require.NoError(t, err)

	renamed := u.Clone()
	renamed.Username = "janed"
	_, err = s.Save(ctx, renamed)
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
}

func TestDeleteReturnsPrevious(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	u := models.NewUser("jdoe", "Jane", "Doe", time.Now())
	_, err := s.Save(ctx, u)
	require.NoError(t, err)

	previous, err := s.DeleteByUsername(ctx, "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "Jane", previous.FirstName)
	require.NotNil(t, previous.Name)

	_, err = s.FindByUsername(ctx, "jdoe")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = s.FindNameByID(ctx, previous.Name.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound, "sub-record cascades with its owner")
}

func TestDeleteAbsentReturnsNotFound(t *testing.T) {
	s := NewInMemory()

	_, err := s.DeleteByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestFindMigrationEligible(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	legacy := &models.User{ID: newID(t), Username: "legacy", FullName: "Jane Doe"}
	split := &models.User{ID: newID(t), Username: "split", FullName: "John Doe", FirstName: "John", LastName: "Doe"}
	current := models.NewUser("current", "Anna", "Smith", time.Now())

	for _, u := range []*models.User{legacy, split, current} {
		_, err := s.Save(ctx, u)
		require.NoError(t, err)
	}

	eligible, err := s.FindMigrationEligible(ctx)
	require.NoError(t, err)

	usernames := make([]string, 0, len(eligible))
	for _, u := range eligible {
		usernames = append(usernames, u.Username)
	}
	assert.ElementsMatch(t, []string{"legacy", "split"}, usernames)
}

// SaveName bypasses the user-side duplicate write, so a read that reassembles
// the record from both locations observes the drift.
func TestSaveNameMakesDriftObservable(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	u := models.NewUser("jdoe", "Jane", "Doe", time.Now())
	_, err := s.Save(ctx, u)
	require.NoError(t, err)

	corrupted := *u.Name
	corrupted.FirstName = "Janet"
	require.NoError(t, s.SaveName(ctx, &corrupted))

	found, err := s.FindByUsername(ctx, "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "Jane", found.FirstName, "user row untouched")
	assert.Equal(t, "Janet", found.Name.FirstName, "sub-record diverged")
}

func newID(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}

func save(t *testing.T, s *InMemory, u *models.User) error {
	t.Helper()
	_, err := s.Save(context.Background(), u)
	return err
}

func TestSaveWithoutSubRecordDropsStoredOne(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	u := models.NewUser("jdoe", "Jane", "Doe", time.Now())
	saved, err := s.Save(ctx, u)
	require.NoError(t, err)
	require.NotNil(t, saved.Name)
	nameID := saved.Name.ID

	// Overwrite with a value that carries no sub-record.
	bare := saved.Clone()
	bare.Name = nil
	resaved, err := s.Save(ctx, bare)
	require.NoError(t, err)
	assert.Nil(t, resaved.Name, "read must not resurrect the old sub-record")

	_, err = s.FindNameByID(ctx, nameID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
