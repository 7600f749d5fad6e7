// Package validation holds request size limits shared across the HTTP surface.
package validation

import (
	"fmt"

	dErrors "nomen/pkg/domain-errors"
)

const (
	// MaxBodySize is the maximum allowed request body size (64 KB).
	// Sufficient for JSON APIs while preventing memory exhaustion.
	MaxBodySize = 64 * 1024

	// MaxNameLength is the maximum length of a name field, whether a full
	// name or one of its parts.
	MaxNameLength = 255
)

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}
