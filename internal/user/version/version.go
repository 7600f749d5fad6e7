// Package version decides which schema generation a request uses.
//
// An explicit version query parameter always wins. Without one, the payload
// shape is sniffed: a full name carrying interior whitespace marks the first
// generation, split first/last names mark the latest. The whitespace
// heuristic is a known source of false negatives for single-word names; it is
// kept as-is deliberately (see DESIGN.md) rather than loosened.
package version

import (
	"regexp"

	"nomen/internal/user/models"
	dErrors "nomen/pkg/domain-errors"
)

// Generation identifies one of the supported schema/wire shapes.
type Generation int

const (
	// V1 is the superseded free-text full-name shape.
	V1 Generation = 1
	// V2 is the split-name shape, shared by the latest storage generation.
	V2 Generation = 2

	// Latest is the generation used when the caller expresses no preference.
	Latest = V2
)

// Operation classifies the request for negotiation purposes. Reads and
// deletes carry no payload, so only the explicit parameter matters for them.
type Operation int

const (
	OpRead Operation = iota
	OpCreate
	OpUpdate
	OpDelete
)

func (g Generation) String() string {
	switch g {
	case V1:
		return "1"
	case V2:
		return "2"
	default:
		return "unknown"
	}
}

// interiorWhitespace reports whether a trimmed full name still contains
// whitespace, i.e. looks like "First Last".
var interiorWhitespace = regexp.MustCompile(`\S\s+\S`)

// matcher is the per-generation payload shape check. Create is strict (all
// required fields present), update is lenient (partial payloads accepted).
type matcher struct {
	create func(rep *models.Representation) bool
	update func(rep *models.Representation) bool
}

// generations is the closed dispatch set. Order matters: a present fullName
// claims the payload for generation 1, whether or not it qualifies, so a
// malformed full name fails instead of silently falling through to the
// latest generation.
var generations = []struct {
	tag   Generation
	claim func(rep *models.Representation) bool
	match matcher
}{
	{
		tag:   V1,
		claim: func(rep *models.Representation) bool { return rep.FullName != nil },
		match: matcher{
			create: fullNameQualifies,
			update: fullNameQualifies,
		},
	},
	{
		tag:   V2,
		claim: func(rep *models.Representation) bool { return rep.FirstName != nil || rep.LastName != nil },
		match: matcher{
			create: func(rep *models.Representation) bool { return rep.FirstName != nil && rep.LastName != nil },
			update: func(rep *models.Representation) bool { return rep.FirstName != nil || rep.LastName != nil },
		},
	},
}

func fullNameQualifies(rep *models.Representation) bool {
	if rep.FullName == nil {
		return false
	}
	normalized := models.NormalizeName(*rep.FullName)
	return normalized != "" && interiorWhitespace.MatchString(normalized)
}

// Negotiate resolves the generation for a request.
//
// pathUsername is the username from the resource path; a differing username
// echoed in the payload invalidates the request regardless of shape. payload
// is nil for read and delete.
func Negotiate(explicit string, op Operation, payload *models.Representation, pathUsername string) (Generation, error) {
	if payload != nil && payload.Username != nil && *payload.Username != pathUsername {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "username in body does not match resource path")
	}

	switch explicit {
	case "":
		// fall through to shape inference
	case "1":
		return validateExplicit(V1, op, payload)
	case "2":
		return validateExplicit(V2, op, payload)
	default:
		return 0, dErrors.New(dErrors.CodeInvalidInput, "unsupported version: "+explicit)
	}

	if op == OpRead || op == OpDelete {
		return Latest, nil
	}

	for _, g := range generations {
		if !g.claim(payload) {
			continue
		}
		matches := g.match.update
		if op == OpCreate {
			matches = g.match.create
		}
		if !matches(payload) {
			return 0, dErrors.New(dErrors.CodeInvalidInput, "payload does not form a valid generation "+g.tag.String()+" representation")
		}
		return g.tag, nil
	}

	return 0, dErrors.New(dErrors.CodeInvalidInput, "payload matches no known representation version")
}

// validateExplicit checks a payload-carrying operation against the explicitly
// requested generation. Reads and deletes have no payload to check.
func validateExplicit(g Generation, op Operation, payload *models.Representation) (Generation, error) {
	if op == OpRead || op == OpDelete {
		return g, nil
	}
	for _, entry := range generations {
		if entry.tag != g {
			continue
		}
		matches := entry.match.update
		if op == OpCreate {
			matches = entry.match.create
		}
		if !matches(payload) {
			return 0, dErrors.New(dErrors.CodeInvalidInput, "payload does not form a valid generation "+g.String()+" representation")
		}
	}
	return g, nil
}
