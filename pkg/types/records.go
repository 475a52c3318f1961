// Package types holds the records shared between the catalog, the ingestion
// pipeline and the API layer.
package types

import (
	"math"
	"strings"
)

// LatestRevision selects the newest revision in "as of" lookups.
const LatestRevision int64 = math.MaxInt64

// EveryoneUserID is the pseudo user standing for "everyone that is logged in".
// Rights granted to it apply to every authenticated user.
const EveryoneUserID int64 = 5

// ListSummary is the bare list record.
type ListSummary struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	RevisionID int64  `json:"revision_id"`
}

// User is a tool user. Wiki users are created on first login.
type User struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	IsWikiUser bool   `json:"is_wiki_user"`
	AuthToken  string `json:"-"`
}

// File is an uploaded file record. Path is the object path in storage.
type File struct {
	ID               int64  `json:"id"`
	Path             string `json:"path"`
	UserID           int64  `json:"user_id"`
	OriginalFilename string `json:"original_filename"`
}

// Right is an access right a user holds on a list.
type Right string

const (
	RightAdmin            Right = "admin"
	RightWrite            Right = "write"
	RightUpdateFromSource Right = "update_from_source"
	RightCreateSnapshot   Right = "create_snapshot"
	RightCreateDataSource Right = "create_new_data_source"
	RightSetHeaderSchema  Right = "set_new_header_schema_for_list"
	RightEditRow          Right = "edit_row"
)

// ParseRights splits a comma or pipe separated list of rights.
// Blank entries are dropped.
func ParseRights(s string) []Right {
	var rights []Right
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '|' }) {
		part = strings.TrimSpace(part)
		if part != "" {
			rights = append(rights, Right(part))
		}
	}
	return rights
}

// RightSet is the set of rights a user holds on one list.
type RightSet map[Right]struct{}

// NewRightSet builds a set from the given rights.
func NewRightSet(rights ...Right) RightSet {
	rs := make(RightSet, len(rights))
	for _, r := range rights {
		rs[r] = struct{}{}
	}
	return rs
}

// Has reports whether the set contains r.
func (rs RightSet) Has(r Right) bool {
	_, ok := rs[r]
	return ok
}

// Allows reports whether the set grants r, either directly or through
// the admin or write rights.
func (rs RightSet) Allows(r Right) bool {
	return rs.Has(RightAdmin) || rs.Has(RightWrite) || rs.Has(r)
}
