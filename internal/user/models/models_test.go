package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "Jane Doe", NormalizeName("  Jane   Doe  "))
	assert.Equal(t, "Jane", NormalizeName("\tJane\n"))
	assert.Equal(t, "", NormalizeName("   "))
}

func TestSplitFullName(t *testing.T) {
	tests := []struct {
		name      string
		fullName  string
		wantFirst string
		wantLast  string
	}{
		{"two words", "Jane Doe", "Jane", "Doe"},
		{"splits on last whitespace run", "Anna Maria Smith", "Anna Maria", "Smith"},
		{"no whitespace keeps last name unset", "Jane", "Jane", ""},
		{"normalizes before splitting", "  Jane   Doe ", "Jane", "Doe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := SplitFullName(tt.fullName)
			assert.Equal(t, tt.wantFirst, first)
			assert.Equal(t, tt.wantLast, last)
		})
	}
}

// The split rule is lossy on purpose: joining "Anna Maria"+"Smith" and
// splitting again round-trips, but only because the split point happens to be
// the last space. A first name whose own last word looks like a last name
// cannot be protected against.
func TestJoinSplitRoundTrip(t *testing.T) {
	full := JoinName("Anna Maria", "Smith")
	require.Equal(t, "Anna Maria Smith", full)

	first, last := SplitFullName(full)
	assert.Equal(t, "Anna Maria", first)
	assert.Equal(t, "Smith", last)
}

func TestJoinNameUnsetLastName(t *testing.T) {
	assert.Equal(t, "Jane", JoinName("Jane", ""))
}

func TestNewUserWritesBothRepresentations(t *testing.T) {
	now := time.Now()
	u := NewUser("jdoe", " Jane ", " Doe ", now)

	assert.Equal(t, "Jane", u.FirstName)
	assert.Equal(t, "Doe", u.LastName)
	assert.Equal(t, "Jane Doe", u.FullName)
	require.NotNil(t, u.Name)
	assert.Equal(t, "Jane", u.Name.FirstName)
	assert.Equal(t, "Doe", u.Name.LastName)
	assert.Equal(t, now, u.CreatedAt)
	assert.Equal(t, now, u.UpdatedAt)
}

func TestNewUserFromFullName(t *testing.T) {
	u := NewUserFromFullName("jdoe", "Anna Maria Smith", time.Now())

	assert.Equal(t, "Anna Maria", u.FirstName)
	assert.Equal(t, "Smith", u.LastName)
	assert.Equal(t, "Anna Maria Smith", u.FullName)
	require.NotNil(t, u.Name)
	assert.Equal(t, "Anna Maria", u.Name.FirstName)
}

func TestWithNamePartialUpdate(t *testing.T) {
	created := time.Now().Add(-time.Hour)
	u := NewUser("jdoe", "Jane", "Doe", created)

	newFirst := "Janet"
	now := time.Now()
	updated := u.WithName(&newFirst, nil, now)

	assert.Equal(t, "Janet", updated.FirstName)
	assert.Equal(t, "Doe", updated.LastName, "absent field left untouched")
	assert.Equal(t, "Janet Doe", updated.FullName, "derived field recomputed")
	assert.Equal(t, "Janet", updated.Name.FirstName, "sub-record duplicated in the same step")
	assert.Equal(t, now, updated.UpdatedAt)
	assert.Equal(t, created, updated.CreatedAt)

	// original value untouched
	assert.Equal(t, "Jane", u.FirstName)
	assert.Equal(t, "Jane Doe", u.FullName)
}

func TestWithFullNameRederivesSplit(t *testing.T) {
	u := NewUser("jdoe", "Jane", "Doe", time.Now())

	updated := u.WithFullName("Anna Maria Smith", time.Now())

	assert.Equal(t, "Anna Maria", updated.FirstName)
	assert.Equal(t, "Smith", updated.LastName)
	assert.Equal(t, "Anna Maria Smith", updated.FullName)
	assert.Equal(t, "Anna Maria", updated.Name.FirstName)
}

func TestMigratedDerivesOlderToNewer(t *testing.T) {
	now := time.Now()
	legacy := &User{Username: "jdoe", FullName: "Jane Doe"}
	require.True(t, legacy.NeedsMigration())

	migrated := legacy.Migrated(now)
	assert.Equal(t, "Jane", migrated.FirstName)
	assert.Equal(t, "Doe", migrated.LastName)
	require.NotNil(t, migrated.Name)
	assert.Equal(t, "Jane", migrated.Name.FirstName)
	assert.False(t, migrated.NeedsMigration())

	// idempotent: a second pass changes nothing
	again := migrated.Migrated(now.Add(time.Minute))
	assert.Equal(t, migrated, again)
}

func TestMigratedAttachesSubRecordOnly(t *testing.T) {
	split := &User{Username: "jdoe", FullName: "Jane Doe", FirstName: "Jane", LastName: "Doe"}
	require.True(t, split.NeedsMigration())

	migrated := split.Migrated(time.Now())
	require.NotNil(t, migrated.Name)
	assert.Equal(t, "Jane", migrated.Name.FirstName)
	assert.Equal(t, "Doe", migrated.Name.LastName)
}

func TestCloneIsDeep(t *testing.T) {
	u := NewUser("jdoe", "Jane", "Doe", time.Now())
	clone := u.Clone()

	clone.FirstName = "Janet"
	clone.Name.FirstName = "Janet"

	assert.Equal(t, "Jane", u.FirstName)
	assert.Equal(t, "Jane", u.Name.FirstName)
}

func TestMigratedDerivesStableSubRecordIdentity(t *testing.T) {
	now := time.Now()
	legacy := &User{ID: uuid.New(), Username: "legacy", FullName: "Jane Doe", CreatedAt: now, UpdatedAt: now}

	// Independent derivations of the same record must agree on the
	// sub-record's identity, or racing migrations would each attach a
	// different one and orphan the loser's row.
	a := legacy.Migrated(now)
	b := legacy.Migrated(now.Add(time.Minute))

	require.NotNil(t, a.Name)
	require.NotNil(t, b.Name)
	assert.Equal(t, a.Name.ID, b.Name.ID)
	assert.NotEqual(t, uuid.Nil, a.Name.ID)
}
