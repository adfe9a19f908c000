// Package query implements the unified content search query engine: a
// request-scoped builder that accumulates independently-applied filters
// into one boolean WHERE expression, composes the final SELECT and
// COUNT against the denormalized search index, and paginates the
// results.
//
// A Query serves exactly one search invocation. Filters only append
// state; nothing touches the database until Search or Count runs,
// except the follow and unread filters which pre-fetch the member data
// they are derived from.
package query

import (
	"context"
	"database/sql"

	"github.com/communitykit/unisearch/pkg/index"
	"github.com/communitykit/unisearch/pkg/storage"
)

// Order selects the result ordering.
type Order int

const (
	OrderNewestUpdated Order = iota
	OrderOldestUpdated
	OrderNewestCreated
	OrderOldestCreated
	OrderNewestCommented
	OrderRelevancy
)

// Method selects how a free-text term and tag list combine.
type Method int

const (
	// MethodTerm matches the term only.
	MethodTerm Method = iota
	// MethodTags matches the tag list only.
	MethodTags
	// MethodTermOrTags matches rows satisfying either.
	MethodTermOrTags
	// MethodTermAndTags matches rows satisfying both.
	MethodTermAndTags
)

// Store is the parameterized-query execution primitive the engine runs
// against. Failures propagate unchanged; the engine performs no
// retries and no logging of its own on error paths.
type Store interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Capabilities(ctx context.Context) storage.Capabilities
}

// ContentFilter restricts one group of content classes. The engine
// only reads these fields; filters are value objects owned by the
// caller.
type ContentFilter struct {
	// Classes targeted by this filter.
	Classes []index.Class

	// ContainerIDs and ExcludeContainerIDs allow or deny specific
	// containers.
	ContainerIDs        []int64
	ExcludeContainerIDs []int64

	// PermittedContainerIDs is the caller's node-visibility set; when
	// non-nil, containers outside it are excluded.
	PermittedContainerIDs []int64

	// ItemIDs and ExcludeItemIDs allow or deny specific items.
	ItemIDs        []int64
	ExcludeItemIDs []int64

	// Minimum activity thresholds, each requiring a join to the owning
	// content table.
	MinComments int
	MinReviews  int
	MinViews    int

	// OnlyFirstComment keeps item rows only (the row carrying the
	// title); OnlyLastComment keeps the most recent comment of each
	// item.
	OnlyFirstComment bool
	OnlyLastComment  bool
}
