package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/communitykit/unisearch/pkg/expr"
	"github.com/communitykit/unisearch/pkg/index"
)

// matchColumns are the full-text indexed columns terms run against.
var matchColumns = []string{"title", "content"}

// updatedDateIndex is the index the executor forces on unread queries
// when the engine capability calls for it.
const updatedDateIndex = "ix_date_updated"

// composed is the assembled state of one search invocation, shared by
// the SELECT and the COUNT so both see the same WHERE.
type composed struct {
	where      string
	args       []any
	joins      []string
	relevance  string
	orderBy    string
	forceIndex bool
}

// Search composes and executes the final SELECT plus a COUNT over the
// same WHERE, returning one page of rows and the total match count.
func (q *Query) Search(ctx context.Context, term string, tags []string, method Method, operator string) (*index.Results, error) {
	cmp, err := q.compose(term, tags, method, operator)
	if err != nil {
		return nil, err
	}

	from := index.Table
	if cmp.forceIndex && q.engine.store.Capabilities(ctx).ForceIndexOnUnread {
		from += " FORCE INDEX (" + updatedDateIndex + ")"
	}

	cols := strings.Join(index.Columns, ", ")
	if cmp.relevance != "" {
		cols += ", " + cmp.relevance + " AS relevance"
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + cols + " FROM " + from)
	for _, j := range cmp.joins {
		sb.WriteString(" " + j)
	}
	if cmp.where != "" {
		sb.WriteString(" WHERE " + cmp.where)
	}
	sb.WriteString(" ORDER BY " + cmp.orderBy)
	sb.WriteString(" LIMIT ? OFFSET ?")

	args := append(append([]any{}, cmp.args...), q.perPage, (q.page-1)*q.perPage)
	q.engine.logger.Debugf("query %s: %s %v", q.id, sb.String(), args)

	rows, err := q.engine.store.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("executing search: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			q.engine.logger.Debugf("query %s: closing rows: %v", q.id, err)
		}
	}()

	results := &index.Results{Page: q.page, PerPage: q.perPage}
	for rows.Next() {
		var r index.Row
		dests := []any{
			&r.ID, &r.Class, &r.ItemID, &r.ItemIndexID,
			&r.ContainerID, &r.ContainerClass,
			&r.AuthorID, &r.ItemAuthorID,
			&r.DateCreated, &r.DateUpdated, &r.DateCommented,
			&r.Hidden, &r.Permissions, &r.Title, &r.Content,
			&r.IsLastComment, &r.ClubID, &r.ItemSolved,
		}
		if cmp.relevance != "" {
			var score float64
			dests = append(dests, &score)
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results.Rows = append(results.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	total, err := q.runCount(ctx, cmp)
	if err != nil {
		return nil, err
	}
	results.Total = total
	return results, nil
}

// Count exposes the total match count on its own, using the same
// composition as Search.
func (q *Query) Count(ctx context.Context, term string, tags []string, method Method, operator string) (int, error) {
	cmp, err := q.compose(term, tags, method, operator)
	if err != nil {
		return 0, err
	}
	return q.runCount(ctx, cmp)
}

func (q *Query) runCount(ctx context.Context, cmp *composed) (int, error) {
	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) FROM " + index.Table)
	for _, j := range cmp.joins {
		sb.WriteString(" " + j)
	}
	if cmp.where != "" {
		sb.WriteString(" WHERE " + cmp.where)
	}

	q.engine.logger.Debugf("query %s: %s %v", q.id, sb.String(), cmp.args)

	var total int
	if err := q.engine.store.QueryRowContext(ctx, sb.String(), cmp.args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("executing count: %w", err)
	}
	return total, nil
}

// compose assembles the accumulated filters with the live search-time
// arguments into the final WHERE, ordering and join state.
func (q *Query) compose(term string, tags []string, method Method, operator string) (*composed, error) {
	if q.err != nil {
		return nil, q.err
	}
	if operator == "" {
		operator = "+"
	}
	term = strings.TrimSpace(term)

	parts := append([]expr.Expr{}, q.wheres...)

	termTag, err := q.termTagCond(term, tags, method, operator)
	if err != nil {
		return nil, err
	}
	if termTag != nil {
		parts = append(parts, termTag)
	}

	if q.itemsIPostedIn {
		if cond := q.itemsPostedInCond(); cond != nil {
			parts = append(parts, cond)
		}
	}

	if q.hiddenSet {
		parts = append(parts, expr.In("hidden", q.hidden))
	}

	parts = append(parts, q.permissionCond())

	// Last-updated restrictions apply regardless of search mode. When
	// the caller set none, the configured lookback window applies.
	if len(q.lastUpdated) > 0 {
		parts = append(parts, q.lastUpdated...)
	} else if days := q.engine.cfg.EffectiveLookbackDays(); days > 0 {
		parts = append(parts, expr.Gte("date_updated", q.now().Unix()-int64(days)*86400))
	}

	where, args := expr.Compile(expr.And(parts...))

	order := q.order
	relevance := ""
	if order == OrderRelevancy {
		// Relevancy needs a free-text term and an enabled relevancy
		// configuration; otherwise fall back to newest updated.
		if term == "" || !q.engine.cfg.RelevancyEnabled() {
			order = OrderNewestUpdated
		} else {
			relevance, err = q.relevanceExpression(term, operator)
			if err != nil {
				return nil, err
			}
			if relevance == "" {
				order = OrderNewestUpdated
			}
		}
	}

	return &composed{
		where:      where,
		args:       args,
		joins:      q.joins,
		relevance:  relevance,
		orderBy:    orderClause(order),
		forceIndex: q.unreadFilter,
	}, nil
}

func (q *Query) termTagCond(term string, tags []string, method Method, operator string) (expr.Expr, error) {
	var termExpr, tagExpr expr.Expr

	if term != "" && method != MethodTags {
		clause, err := q.engine.matcher.Clause(matchColumns, term, operator, true)
		if err != nil {
			return nil, err
		}
		if !clause.Empty() {
			termExpr = expr.SQL(clause.SQL, clause.Args...)
		}
	}

	if len(tags) > 0 && method != MethodTerm {
		args := make([]any, len(tags))
		for i, t := range tags {
			args[i] = strings.ToLower(strings.TrimSpace(t))
		}
		tagExpr = expr.SQL(
			"item_index_id IN (SELECT index_id FROM "+index.TagTable+" WHERE tag IN ("+placeholders(len(tags))+"))",
			args...,
		)
	}

	switch {
	case termExpr == nil && tagExpr == nil:
		return nil, nil
	case termExpr == nil:
		return tagExpr, nil
	case tagExpr == nil:
		return termExpr, nil
	}
	if method == MethodTermOrTags {
		return expr.Or(termExpr, tagExpr), nil
	}
	return expr.And(termExpr, tagExpr), nil
}

// itemsPostedInCond restricts to items the acting member authored a
// row of: the item itself or any of its comments or reviews. Built at
// search time against the final class scope.
func (q *Query) itemsPostedInCond() expr.Expr {
	if q.member == nil || q.member.ID <= 0 {
		return expr.Nothing()
	}

	seen := make(map[index.Class]bool)
	var conds []expr.Expr
	for _, ct := range q.scopeTypes() {
		itemCT := ct
		if ct.IsComment() {
			parent, ok := q.engine.registry.Lookup(ct.ItemClass)
			if !ok {
				continue
			}
			itemCT = parent
		}
		if seen[itemCT.Class] {
			continue
		}
		seen[itemCT.Class] = true

		family := []string{string(itemCT.Class)}
		if itemCT.CommentClass != "" {
			family = append(family, string(itemCT.CommentClass))
		}
		if itemCT.ReviewClass != "" {
			family = append(family, string(itemCT.ReviewClass))
		}

		sub := "item_id IN (SELECT ci.item_id FROM " + index.Table +
			" ci WHERE ci.class IN (" + placeholders(len(family)) + ") AND ci.author_id=?)"
		args := make([]any, 0, len(family)+1)
		for _, c := range family {
			args = append(args, c)
		}
		args = append(args, q.member.ID)

		conds = append(conds, expr.And(
			expr.InStrings("class", family),
			expr.SQL(sub, args...),
		))
	}
	if len(conds) == 0 {
		return expr.Nothing()
	}
	return expr.Or(conds...)
}

// permissionCond is appended to every query regardless of other
// filters: the row is world-readable or its permission set intersects
// the caller's groups.
func (q *Query) permissionCond() expr.Expr {
	conds := []expr.Expr{expr.Eq("permissions", index.PermissionWildcard)}
	if q.member != nil {
		for _, g := range q.member.Groups {
			conds = append(conds, expr.SQL("FIND_IN_SET(?, permissions)", g))
		}
	}
	return expr.Or(conds...)
}

func orderClause(order Order) string {
	switch order {
	case OrderOldestUpdated:
		return "date_updated ASC"
	case OrderNewestCreated:
		return "date_created DESC"
	case OrderOldestCreated:
		return "date_created ASC"
	case OrderNewestCommented:
		return "date_commented DESC"
	case OrderRelevancy:
		return "relevance DESC"
	default:
		return "date_updated DESC"
	}
}

func placeholders(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("?")
	}
	return sb.String()
}
