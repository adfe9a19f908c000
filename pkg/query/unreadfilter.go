package query

import (
	"context"
	"fmt"

	"github.com/communitykit/unisearch/pkg/expr"
	"github.com/communitykit/unisearch/pkg/index"
	"github.com/communitykit/unisearch/pkg/unread"
)

// FilterByUnread restricts to content the acting member has not read.
// The boundary is computed per content class — comment and review
// classes share their parent item's container and date semantics — and
// OR'd across every class in scope that tracks read markers.
//
// Unread filtering also flags the executor to prefer the updated-date
// index where the storage engine benefits from the hint.
func (q *Query) FilterByUnread(ctx context.Context) *Query {
	if q.err != nil {
		return q
	}
	if q.member == nil || q.member.ID <= 0 {
		// Guests have no read state; everything is unread.
		return q
	}

	calc := unread.NewCalculator(q.engine.activity, q.engine.cfg.ItemMarkerLimit)
	markersByApp := make(map[string]*index.ReadMarkers)

	var conds []expr.Expr
	for _, ct := range q.scopeTypes() {
		if !ct.Capabilities.ReadMarkers {
			continue
		}

		itemCT := ct
		if ct.IsComment() {
			parent, ok := q.engine.registry.Lookup(ct.ItemClass)
			if !ok {
				return q.fail(fmt.Errorf("comment class %s has unregistered item class %s", ct.Class, ct.ItemClass))
			}
			itemCT = parent
		}

		markers, ok := markersByApp[itemCT.Application]
		if !ok {
			var err error
			markers, err = q.engine.markers.MarkersFor(ctx, q.member.ID, itemCT.Application)
			if err != nil {
				return q.fail(fmt.Errorf("fetching read markers for %s: %w", itemCT.Application, err))
			}
			markersByApp[itemCT.Application] = markers
		}

		boundary, err := calc.Boundary(ctx, itemCT, markers)
		if err != nil {
			return q.fail(fmt.Errorf("computing unread boundary for %s: %w", ct.Class, err))
		}
		conds = append(conds, expr.And(expr.Eq("class", string(ct.Class)), boundary))
	}

	if len(conds) == 0 {
		return q
	}
	q.wheres = append(q.wheres, expr.Or(conds...))
	q.unreadFilter = true
	return q
}
