// Package integrity audits the dual-write invariant between a user record's
// denormalized name fields and its normalized sub-record.
//
// The guard is a read-side auditor, not a write-path gatekeeper: operations
// that already committed their side effect still complete it, and a detected
// divergence replaces the response, never rolls the write back.
package integrity

import "nomen/internal/user/models"

// Status classifies a record's dual-representation state.
type Status int

const (
	// Consistent means the sub-record exists and matches the denormalized fields.
	Consistent Status = iota
	// NotApplicable means there is no sub-record to compare against
	// (legacy or not-yet-migrated record).
	NotApplicable
	// Inconsistent means the two copies of the name data have diverged.
	Inconsistent
)

func (s Status) String() string {
	switch s {
	case Consistent:
		return "consistent"
	case NotApplicable:
		return "not_applicable"
	case Inconsistent:
		return "inconsistent"
	default:
		return "unknown"
	}
}

// Check compares the record's denormalized name fields against its
// sub-record by exact string equality. Inputs are normalized on every write
// path, so no further normalization happens here.
func Check(u *models.User) Status {
	if u.Name == nil {
		return NotApplicable
	}
	if u.FirstName != u.Name.FirstName || u.LastName != u.Name.LastName {
		return Inconsistent
	}
	return Consistent
}
