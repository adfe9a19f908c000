package query

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/communitykit/unisearch/pkg/config"
	"github.com/communitykit/unisearch/pkg/expr"
	"github.com/communitykit/unisearch/pkg/index"
	"github.com/communitykit/unisearch/pkg/log"
	"github.com/communitykit/unisearch/pkg/match"
	"github.com/communitykit/unisearch/pkg/unread"
)

// Engine holds the long-lived collaborators queries are built against.
type Engine struct {
	store    Store
	registry *index.Registry
	cfg      *config.Config
	matcher  *match.Builder
	follows  index.FollowStore
	markers  index.MarkerStore
	activity unread.ActivityReader
	logger   *log.Logger
}

func NewEngine(store Store, registry *index.Registry, cfg *config.Config, follows index.FollowStore, markers index.MarkerStore, activity unread.ActivityReader) *Engine {
	return &Engine{
		store:    store,
		registry: registry,
		cfg:      cfg,
		matcher:  match.NewBuilder(cfg.MatchRules()),
		follows:  follows,
		markers:  markers,
		activity: activity,
		logger:   log.ForComponent("query"),
	}
}

// NewQuery creates a request-scoped query acting as the given member.
// A query serves one Search or Count invocation and is not safe for
// reuse or sharing.
func (e *Engine) NewQuery(member *index.Member) *Query {
	return &Query{
		id:        uuid.New().String(),
		engine:    e,
		member:    member,
		hidden:    []int64{index.StatusVisible},
		hiddenSet: true,
		order:     OrderNewestUpdated,
		page:      1,
		perPage:   e.cfg.ResultsPerPage,
		now:       time.Now,
	}
}

// Query accumulates filters for one search invocation. Every FilterBy
// and Set method returns the same instance for chaining and only
// appends state; the first error sticks and surfaces from Search or
// Count.
type Query struct {
	id     string
	engine *Engine
	member *index.Member

	wheres      []expr.Expr
	lastUpdated []expr.Expr
	joins       []string

	// scope is the narrowed set of candidate classes once an including
	// content filter ran; nil means every registered class. Later
	// filters (followed, unread, posted-in) derive their class list
	// from it instead of re-deriving the full list.
	scope []index.Class

	hidden    []int64
	hiddenSet bool

	itemsIPostedIn bool
	unreadFilter   bool

	order   Order
	page    int
	perPage int

	joinSeq int
	now     func() time.Time
	err     error
}

func (q *Query) fail(err error) *Query {
	if q.err == nil {
		q.err = err
	}
	return q
}

// FilterByContent restricts (include=true) or forbids (include=false)
// content matching any of the given filters. Filters OR together;
// the whole group ANDs into the accumulated WHERE, or NOTs in when
// excluding: forbidding a group means NOT(A OR B), which is not the
// same as OR'ing the negated filters.
//
// An including call also narrows the query's candidate class set,
// which later follow/unread filters build on.
func (q *Query) FilterByContent(filters []ContentFilter, include bool) *Query {
	if q.err != nil || len(filters) == 0 {
		return q
	}

	var groups []expr.Expr
	for _, f := range filters {
		clause, err := q.contentFilterClause(f)
		if err != nil {
			return q.fail(err)
		}
		groups = append(groups, clause)
	}

	group := expr.Or(groups...)
	if include {
		q.wheres = append(q.wheres, group)
		for _, f := range filters {
			q.scope = append(q.scope, f.Classes...)
		}
	} else {
		q.wheres = append(q.wheres, expr.Not(group))
	}
	return q
}

func (q *Query) contentFilterClause(f ContentFilter) (expr.Expr, error) {
	if len(f.Classes) == 0 {
		return nil, fmt.Errorf("content filter with no classes")
	}

	var conds []expr.Expr
	conds = append(conds, expr.InStrings("class", classStrings(f.Classes)))

	if len(f.ContainerIDs) > 0 {
		conds = append(conds, expr.In("container_id", f.ContainerIDs))
	}
	if len(f.ExcludeContainerIDs) > 0 {
		conds = append(conds, expr.NotIn("container_id", f.ExcludeContainerIDs))
	}
	if f.PermittedContainerIDs != nil {
		conds = append(conds, expr.In("container_id", f.PermittedContainerIDs))
	}
	if len(f.ItemIDs) > 0 {
		conds = append(conds, expr.In("item_id", f.ItemIDs))
	}
	if len(f.ExcludeItemIDs) > 0 {
		conds = append(conds, expr.NotIn("item_id", f.ExcludeItemIDs))
	}

	if f.MinComments > 0 || f.MinReviews > 0 || f.MinViews > 0 {
		thresholds, err := q.thresholdConds(f)
		if err != nil {
			return nil, err
		}
		conds = append(conds, thresholds...)
	}

	if f.OnlyFirstComment {
		conds = append(conds, expr.NotNull("title"))
	}
	if f.OnlyLastComment {
		conds = append(conds, expr.Eq("is_last_comment", 1))
	}

	return expr.And(conds...), nil
}

// thresholdConds left-joins the owning content table once and compares
// the configured count columns against the filter's minimums. The join
// must be outer: filter clauses OR together, and rows of other classes
// in the group have no owning-table match. Their NULL counts fail the
// comparison, keeping the threshold local to its own branch.
func (q *Query) thresholdConds(f ContentFilter) ([]expr.Expr, error) {
	ct := q.owningType(f.Classes)
	if ct == nil || ct.Table == "" || ct.IDColumn == "" {
		return nil, fmt.Errorf("threshold filter needs a content type with an owning table (classes %v)", f.Classes)
	}

	alias := fmt.Sprintf("t%d", q.joinSeq)
	q.joinSeq++
	q.joins = append(q.joins, fmt.Sprintf("LEFT JOIN %s %s ON %s.%s=%s.item_id",
		ct.Table, alias, alias, ct.IDColumn, index.Table))

	var conds []expr.Expr
	if f.MinComments > 0 {
		if ct.CommentCountColumn == "" {
			return nil, fmt.Errorf("content type %s has no comment count column", ct.Class)
		}
		conds = append(conds, expr.Gte(alias+"."+ct.CommentCountColumn, f.MinComments))
	}
	if f.MinReviews > 0 {
		if ct.ReviewCountColumn == "" {
			return nil, fmt.Errorf("content type %s has no review count column", ct.Class)
		}
		conds = append(conds, expr.Gte(alias+"."+ct.ReviewCountColumn, f.MinReviews))
	}
	if f.MinViews > 0 {
		if ct.ViewCountColumn == "" {
			return nil, fmt.Errorf("content type %s has no view count column", ct.Class)
		}
		conds = append(conds, expr.Gte(alias+"."+ct.ViewCountColumn, f.MinViews))
	}
	return conds, nil
}

// owningType resolves the item type owning the first resolvable class
// in the list. Comment and review classes defer to their parent item
// type.
func (q *Query) owningType(classes []index.Class) *index.ContentType {
	for _, class := range classes {
		ct, ok := q.engine.registry.Lookup(class)
		if !ok {
			continue
		}
		if ct.IsComment() {
			if parent, ok := q.engine.registry.Lookup(ct.ItemClass); ok {
				return parent
			}
			continue
		}
		return ct
	}
	return nil
}

// FilterByAuthor restricts to rows authored by any of the given
// members.
func (q *Query) FilterByAuthor(authorIDs ...int64) *Query {
	if q.err != nil {
		return q
	}
	q.wheres = append(q.wheres, expr.In("author_id", authorIDs))
	return q
}

// FilterByItemAuthor restricts to rows whose parent item is authored
// by any of the given members.
func (q *Query) FilterByItemAuthor(authorIDs ...int64) *Query {
	if q.err != nil {
		return q
	}
	q.wheres = append(q.wheres, expr.In("item_author_id", authorIDs))
	return q
}

// FilterByClub restricts to content in the given clubs. With no ids it
// excludes all club content instead.
func (q *Query) FilterByClub(clubIDs ...int64) *Query {
	if q.err != nil {
		return q
	}
	if len(clubIDs) == 0 {
		q.wheres = append(q.wheres, expr.IsNull("club_id"))
	} else {
		q.wheres = append(q.wheres, expr.In("club_id", clubIDs))
	}
	return q
}

// FilterByContainerClasses restricts (exclude=false) or forbids
// (exclude=true) rows by their container class. Content classes in
// exempt bypass the restriction; two content types may legitimately
// share one container class.
func (q *Query) FilterByContainerClasses(containerClasses []string, exclude bool, exempt ...index.Class) *Query {
	if q.err != nil || len(containerClasses) == 0 {
		return q
	}

	membership := expr.InStrings("container_class", containerClasses)
	var cond expr.Expr
	if exclude {
		cond = expr.Not(membership)
	} else {
		cond = membership
	}
	if len(exempt) > 0 {
		cond = expr.Or(cond, expr.InStrings("class", classStrings(exempt)))
	}
	q.wheres = append(q.wheres, cond)
	return q
}

// FilterByContentID restricts to specific item ids.
func (q *Query) FilterByContentID(itemIDs ...int64) *Query {
	if q.err != nil {
		return q
	}
	q.wheres = append(q.wheres, expr.In("item_id", itemIDs))
	return q
}

// FilterByContainerID restricts to specific container ids.
func (q *Query) FilterByContainerID(containerIDs ...int64) *Query {
	if q.err != nil {
		return q
	}
	q.wheres = append(q.wheres, expr.In("container_id", containerIDs))
	return q
}

// FilterByCreateDate restricts by creation date. Nil bounds are open.
func (q *Query) FilterByCreateDate(start, end *time.Time) *Query {
	if q.err != nil {
		return q
	}
	if start != nil {
		q.wheres = append(q.wheres, expr.Gte("date_created", start.Unix()))
	}
	if end != nil {
		q.wheres = append(q.wheres, expr.Lte("date_created", end.Unix()))
	}
	return q
}

// FilterByLastUpdatedDate restricts by last update. These clauses are
// held apart from the rest because they apply regardless of the
// term/tag search mode.
func (q *Query) FilterByLastUpdatedDate(start, end *time.Time) *Query {
	if q.err != nil {
		return q
	}
	if start != nil {
		q.lastUpdated = append(q.lastUpdated, expr.Gte("date_updated", start.Unix()))
	}
	if end != nil {
		q.lastUpdated = append(q.lastUpdated, expr.Lte("date_updated", end.Unix()))
	}
	return q
}

// FilterByItemsIPostedIn restricts to items the acting member posted
// in. The clause is built at search time because it depends on the
// final class scope rather than composing by simple AND here.
func (q *Query) FilterByItemsIPostedIn() *Query {
	if q.err != nil {
		return q
	}
	q.itemsIPostedIn = true
	return q
}

// SetHiddenFilter restricts by hidden status. With no statuses the
// filter is cleared entirely. New queries default to visible rows
// only.
func (q *Query) SetHiddenFilter(statuses ...int) *Query {
	if q.err != nil {
		return q
	}
	if len(statuses) == 0 {
		q.hidden = nil
		q.hiddenSet = false
		return q
	}
	q.hidden = q.hidden[:0]
	for _, s := range statuses {
		q.hidden = append(q.hidden, int64(s))
	}
	q.hiddenSet = true
	return q
}

// SetPage selects the 1-based result page.
func (q *Query) SetPage(page int) *Query {
	if page > 0 {
		q.page = page
	}
	return q
}

// SetLimit overrides the page size.
func (q *Query) SetLimit(perPage int) *Query {
	if perPage > 0 {
		q.perPage = perPage
	}
	return q
}

// SetOrder selects the result ordering. Relevancy ordering needs a
// free-text term and an enabled relevancy configuration; otherwise it
// silently falls back to newest updated.
func (q *Query) SetOrder(order Order) *Query {
	q.order = order
	return q
}

// scopeTypes returns the descriptors of the classes currently in
// scope: the narrowed set when an including content filter ran, the
// whole registry otherwise.
func (q *Query) scopeTypes() []*index.ContentType {
	return q.engine.registry.Types(q.scope)
}

func classStrings(classes []index.Class) []string {
	out := make([]string, len(classes))
	for i, c := range classes {
		out[i] = string(c)
	}
	return out
}
