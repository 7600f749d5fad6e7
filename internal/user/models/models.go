package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is the primary identity record. It carries the name data in both
// historical shapes: the free-text FullName of the first generation and the
// split FirstName/LastName of the second, plus a normalized Name sub-record
// owned 1:1 in the newest generation. The denormalized fields and the
// sub-record hold the same logical fact; keeping them equal is the dual-write
// discipline the integrity guard audits.
type User struct {
	ID        uuid.UUID
	Username  string
	FullName  string
	FirstName string
	LastName  string
	Name      *Name
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Name is the normalized name sub-record of the newest generation.
type Name struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Representation is the ephemeral wire view of a User. It is a sparse bag:
// nil fields are absent and are never serialized as null.
type Representation struct {
	Username  *string `json:"username,omitempty"`
	FullName  *string `json:"fullName,omitempty"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
}

// NormalizeName trims leading/trailing whitespace and collapses interior
// whitespace runs to a single space. Applied to every free-text name input
// before storage or split.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SplitFullName splits a normalized full name on the last whitespace run.
// Text before the final space becomes the first name, text after it the last
// name. Without any whitespace the whole string is the first name and the
// last name stays unset. The split is lossy: a first name that itself
// contains whitespace cannot be told apart from a longer first/last pair once
// joined again.
func SplitFullName(fullName string) (firstName, lastName string) {
	fullName = NormalizeName(fullName)
	idx := strings.LastIndex(fullName, " ")
	if idx < 0 {
		return fullName, ""
	}
	return fullName[:idx], fullName[idx+1:]
}

// JoinName combines split names into a full name. An unset last name yields
// just the first name rather than a trailing space.
func JoinName(firstName, lastName string) string {
	if lastName == "" {
		return firstName
	}
	return firstName + " " + lastName
}

// NewUser constructs a user from split names, the newest generation's input
// shape. The full name is derived for backward compatibility and the
// normalized sub-record is written in the same step.
func NewUser(username, firstName, lastName string, now time.Time) *User {
	firstName = NormalizeName(firstName)
	lastName = NormalizeName(lastName)
	u := &User{
		ID:        uuid.New(),
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
		FullName:  JoinName(firstName, lastName),
		CreatedAt: now,
		UpdatedAt: now,
	}
	u.Name = newName(u.ID, firstName, lastName, now)
	return u
}

// NewUserFromFullName constructs a user from a first-generation full-name
// payload. Split names and the sub-record are derived so the stored shape is
// always the newest generation's.
func NewUserFromFullName(username, fullName string, now time.Time) *User {
	firstName, lastName := SplitFullName(fullName)
	return NewUser(username, firstName, lastName, now)
}

// newName builds the sub-record with its id derived from the owning user's
// id. Deterministic identity is what keeps concurrent derivations of the same
// record convergent: two racers mint the same sub-record and the second write
// is an idempotent upsert, not an orphan row.
func newName(owner uuid.UUID, firstName, lastName string, now time.Time) *Name {
	return &Name{
		ID:        uuid.NewSHA1(owner, []byte("name")),
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WithName returns a new user value with the given name fields applied. A nil
// field means "don't touch". Derived fields (full name, sub-record copy) are
// recomputed from the result rather than mutated in place, so they cannot
// drift from the fields they were derived from.
func (u *User) WithName(firstName, lastName *string, now time.Time) *User {
	next := u.Clone()
	if firstName != nil {
		next.FirstName = NormalizeName(*firstName)
	}
	if lastName != nil {
		next.LastName = NormalizeName(*lastName)
	}
	next.FullName = JoinName(next.FirstName, next.LastName)
	next.refreshName(now)
	next.UpdatedAt = now
	return next
}

// WithFullName returns a new user value with the full name replaced and the
// split names re-derived from it.
func (u *User) WithFullName(fullName string, now time.Time) *User {
	next := u.Clone()
	next.FirstName, next.LastName = SplitFullName(fullName)
	next.FullName = JoinName(next.FirstName, next.LastName)
	next.refreshName(now)
	next.UpdatedAt = now
	return next
}

// refreshName duplicates the denormalized fields into the sub-record,
// creating it when missing. This is the write half of the dual-write
// discipline; the integrity guard is the read half.
func (u *User) refreshName(now time.Time) {
	if u.Name == nil {
		u.Name = newName(u.ID, u.FirstName, u.LastName, now)
		return
	}
	u.Name.FirstName = u.FirstName
	u.Name.LastName = u.LastName
	u.Name.UpdatedAt = now
}

// Migrated returns a new user value upgraded to the newest generation's
// structure: missing split names are derived from the full name, and a
// missing sub-record is created from the split names. Applying it to an
// already-migrated user returns an equal value, which is what makes the
// migration engine idempotent.
func (u *User) Migrated(now time.Time) *User {
	next := u.Clone()
	changed := false
	if next.FirstName == "" && next.FullName != "" {
		next.FirstName, next.LastName = SplitFullName(next.FullName)
		changed = true
	}
	if next.Name == nil {
		next.Name = newName(next.ID, next.FirstName, next.LastName, now)
		changed = true
	} else if changed {
		next.Name.FirstName = next.FirstName
		next.Name.LastName = next.LastName
		next.Name.UpdatedAt = now
	}
	if changed {
		next.UpdatedAt = now
	}
	return next
}

// NeedsMigration reports whether the record is missing the newest
// generation's required structure.
func (u *User) NeedsMigration() bool {
	return u.Name == nil || (u.FirstName == "" && u.FullName != "")
}

// Clone returns a deep copy, detached from any store-held value.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	next := *u
	if u.Name != nil {
		name := *u.Name
		next.Name = &name
	}
	return &next
}
