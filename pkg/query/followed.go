package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/communitykit/unisearch/pkg/expr"
	"github.com/communitykit/unisearch/pkg/index"
)

// FilterByFollowed restricts to content the acting member follows:
// followed containers, followed items, and/or content authored by
// followed members. The candidate classes come from the narrowed scope
// when FilterByContent already ran, the full registered class list
// otherwise.
//
// A member who follows nothing must get nothing: when no axis yields a
// single followed entity the whole query is forced to an always-false
// predicate rather than silently becoming unfiltered.
func (q *Query) FilterByFollowed(ctx context.Context, includeContainers, includeItems, includeMembers bool) *Query {
	if q.err != nil {
		return q
	}
	if q.member == nil || q.member.ID <= 0 {
		// Guests follow nothing.
		q.wheres = append(q.wheres, expr.Nothing())
		return q
	}

	types := q.scopeTypes()
	var conds []expr.Expr

	if includeContainers || includeItems {
		followed, err := q.fetchFollows(ctx, types)
		if err != nil {
			return q.fail(err)
		}

		for _, ct := range types {
			if !ct.Capabilities.Followable {
				continue
			}
			if includeItems {
				if ids := followed[followKey{ct.Application, ct.FollowArea}]; len(ids) > 0 {
					conds = append(conds, expr.And(
						expr.Eq("class", string(ct.Class)),
						expr.In("item_id", ids),
					))
				}
			}
			if includeContainers && ct.ContainerFollowArea != "" {
				if ids := followed[followKey{ct.Application, ct.ContainerFollowArea}]; len(ids) > 0 {
					conds = append(conds, expr.And(
						expr.Eq("class", string(ct.Class)),
						expr.In("container_id", ids),
					))
				}
			}
		}
	}

	if includeMembers {
		cond, err := q.followedMembersCond(ctx)
		if err != nil {
			return q.fail(err)
		}
		if cond != nil {
			conds = append(conds, cond)
		}
	}

	if len(conds) == 0 {
		q.wheres = append(q.wheres, expr.Nothing())
		return q
	}
	q.wheres = append(q.wheres, expr.Or(conds...))
	return q
}

type followKey struct {
	app  string
	area string
}

// fetchFollows loads the member's follow rows for every application
// and area the candidate types live in, one query per application.
func (q *Query) fetchFollows(ctx context.Context, types []*index.ContentType) (map[followKey][]int64, error) {
	areasByApp := make(map[string]map[string]struct{})
	for _, ct := range types {
		if !ct.Capabilities.Followable || ct.Application == "" {
			continue
		}
		areas := areasByApp[ct.Application]
		if areas == nil {
			areas = make(map[string]struct{})
			areasByApp[ct.Application] = areas
		}
		if ct.FollowArea != "" {
			areas[ct.FollowArea] = struct{}{}
		}
		if ct.ContainerFollowArea != "" {
			areas[ct.ContainerFollowArea] = struct{}{}
		}
	}

	apps := make([]string, 0, len(areasByApp))
	for app := range areasByApp {
		apps = append(apps, app)
	}
	sort.Strings(apps)

	followed := make(map[followKey][]int64)
	for _, app := range apps {
		areas := make([]string, 0, len(areasByApp[app]))
		for area := range areasByApp[app] {
			areas = append(areas, area)
		}
		sort.Strings(areas)

		follows, err := q.engine.follows.FollowsFor(ctx, q.member.ID, app, areas)
		if err != nil {
			return nil, fmt.Errorf("fetching follows for %s: %w", app, err)
		}
		for _, f := range follows {
			key := followKey{f.App, f.Area}
			followed[key] = append(followed[key], f.RelatedID)
		}
	}
	return followed, nil
}

// followedMembersCond pre-fetches up to one more followed-member id
// than the inline limit. A result of exactly limit+1 means the true
// set is larger, so the clause falls back to a correlated sub-select
// instead of an unbounded IN list; anything smaller is inlined
// literally. Returns nil when the member follows nobody.
func (q *Query) followedMembersCond(ctx context.Context) (expr.Expr, error) {
	limit := q.engine.cfg.InlineListLimit
	ids, err := q.engine.follows.FollowedMembers(ctx, q.member.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("fetching followed members: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > limit {
		return expr.SQL(
			"author_id IN (SELECT related_id FROM "+index.FollowTable+" WHERE member_id=? AND app='core' AND area='member')",
			q.member.ID,
		), nil
	}
	return expr.In("author_id", ids), nil
}
