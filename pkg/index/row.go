// Package index defines the data model for the unified content search
// index: the denormalized row shape shared by every content type, the
// content-type registry with per-type capability descriptors, and the
// member context (groups, follows, read markers) a search runs under.
//
// One row exists per searchable unit. Items and their comments/reviews
// are separate rows; a comment row points back at its parent item's
// index row through ItemIndexID so tag and container metadata can be
// inherited without duplicating it.
package index

import (
	"database/sql"
)

// Table is the denormalized search index table. Every searchable unit
// across all content types lands here.
const Table = "content_index"

// TagTable maps a parent item's index row id to its tags, one row per
// tag. It is only consulted when tag filters are active.
const TagTable = "content_tags"

// FollowTable holds subscription records. The engine reads it, never
// writes it.
const FollowTable = "member_follows"

// PermissionWildcard marks a row visible to everyone.
const PermissionWildcard = "*"

// Hidden status codes carried by every index row.
const (
	StatusVisible           = 0
	StatusPendingApproval   = 1
	StatusDeletedWithParent = 2
	StatusSoftDeleted       = -1
)

// Row is a single denormalized search index record.
type Row struct {
	ID             int64
	Class          Class
	ItemID         int64
	ItemIndexID    int64
	ContainerID    int64
	ContainerClass string
	AuthorID       int64
	ItemAuthorID   int64
	DateCreated    int64
	DateUpdated    int64
	DateCommented  int64
	Hidden         int
	Permissions    string
	Title          sql.NullString
	Content        string
	IsLastComment  bool
	ClubID         sql.NullInt64
	ItemSolved     bool
}

// IsItem reports whether the row represents a parent item rather than a
// comment or review. Comment rows never carry a title.
func (r *Row) IsItem() bool {
	return r.Title.Valid
}

// VisibleTo reports whether the row's permission set allows any of the
// given group ids. The permission column is either the wildcard or a
// non-empty comma set of group ids.
func (r *Row) VisibleTo(groups []int64) bool {
	if r.Permissions == PermissionWildcard {
		return true
	}
	for _, g := range groups {
		if containsGroup(r.Permissions, g) {
			return true
		}
	}
	return false
}

func containsGroup(set string, group int64) bool {
	var n int64
	start := true
	neg := false
	for i := 0; i <= len(set); i++ {
		if i == len(set) || set[i] == ',' {
			if !start && !neg && n == group {
				return true
			}
			n, start, neg = 0, true, false
			continue
		}
		c := set[i]
		if c == '-' && start {
			neg = true
			continue
		}
		if c < '0' || c > '9' {
			// Malformed element, skip to next comma.
			for i < len(set) && set[i] != ',' {
				i++
			}
			n, start, neg = 0, true, false
			continue
		}
		n = n*10 + int64(c-'0')
		start = false
	}
	return false
}

// Columns lists the index table columns in the order Search selects and
// scans them.
var Columns = []string{
	"id", "class", "item_id", "item_index_id",
	"container_id", "container_class",
	"author_id", "item_author_id",
	"date_created", "date_updated", "date_commented",
	"hidden", "permissions", "title", "content",
	"is_last_comment", "club_id", "item_solved",
}

// Results is an ordered page of index rows plus the total match count
// across all pages.
type Results struct {
	Rows    []Row
	Total   int
	Page    int
	PerPage int
}

// TotalPages returns the number of pages needed for Total at PerPage
// rows per page.
func (r *Results) TotalPages() int {
	if r.PerPage <= 0 || r.Total <= 0 {
		return 0
	}
	return (r.Total + r.PerPage - 1) / r.PerPage
}
