// Package codec maps between wire representations and the normalized name
// attributes of a user record, per generation.
package codec

import (
	"nomen/internal/user/models"
	"nomen/internal/user/version"
)

// Encode renders a user in the wire shape of the given generation. A record
// still missing its split names (legacy, unmigrated) degrades to the
// full-name shape regardless of the requested generation, since that is all
// the stored record can supply.
func Encode(g version.Generation, u *models.User) models.Representation {
	if g == version.V1 || (u.FirstName == "" && u.FullName != "") {
		return models.Representation{
			Username: ptr(u.Username),
			FullName: ptr(u.FullName),
		}
	}
	rep := models.Representation{
		Username:  ptr(u.Username),
		FirstName: ptr(u.FirstName),
	}
	if u.LastName != "" {
		rep.LastName = ptr(u.LastName)
	}
	return rep
}

// EncodeBoth renders all four fields. Used internally, e.g. for migration
// results, never for a negotiated response.
func EncodeBoth(u *models.User) models.Representation {
	rep := models.Representation{
		Username:  ptr(u.Username),
		FullName:  ptr(u.FullName),
		FirstName: ptr(u.FirstName),
	}
	if u.LastName != "" {
		rep.LastName = ptr(u.LastName)
	}
	return rep
}

// Decode extracts the normalized name attributes a payload carries for the
// given generation. Nil results mean the field was absent (partial update).
// For generation 1 the full name is split on its last whitespace run, so both
// fields always come back set once a full name is present.
func Decode(g version.Generation, rep *models.Representation) (firstName, lastName *string) {
	if g == version.V1 {
		if rep.FullName == nil {
			return nil, nil
		}
		first, last := models.SplitFullName(*rep.FullName)
		return &first, &last
	}
	if rep.FirstName != nil {
		firstName = ptr(models.NormalizeName(*rep.FirstName))
	}
	if rep.LastName != nil {
		lastName = ptr(models.NormalizeName(*rep.LastName))
	}
	return firstName, lastName
}

func ptr(s string) *string {
	return &s
}
