// Package unread computes the WHERE boundary selecting content a member
// has not read yet. A member's read state is a blanket per-container
// reset time, a bounded set of per-item markers, and a site-wide
// fallback timestamp; the boundary combines all three so an item counts
// unread only when its last activity postdates every marker that covers
// it.
package unread

import (
	"context"
	"sort"

	"github.com/communitykit/unisearch/pkg/expr"
	"github.com/communitykit/unisearch/pkg/index"
)

// DefaultMarkerLimit bounds how many per-item markers are folded into a
// single boundary. Markers beyond the most recent N are ignored; the
// container-level rule still covers those items.
const DefaultMarkerLimit = 1000

// ActivityReader resolves the actual current last-activity timestamp
// for a set of items of one content type, preferring combined
// last-comment/last-review dates where the type has them.
type ActivityReader interface {
	LastActivity(ctx context.Context, ct *index.ContentType, itemIDs []int64) (map[int64]int64, error)
}

// Calculator builds unread boundaries against one activity source.
type Calculator struct {
	activity    ActivityReader
	markerLimit int
}

func NewCalculator(activity ActivityReader, markerLimit int) *Calculator {
	if markerLimit <= 0 {
		markerLimit = DefaultMarkerLimit
	}
	return &Calculator{activity: activity, markerLimit: markerLimit}
}

// Boundary returns the predicate selecting unread rows of one content
// class for the given read markers.
//
// Containers with a recorded reset time each get their own
// (container, updated-after) condition; everything else falls under the
// site-wide timestamp. Items with a per-item marker at or past their
// actual last activity are excluded even when the blanket container
// rule would mark them unread. Validating markers against live activity
// also resolves the moved-item case: a stale marker recorded under an
// item's old container cannot make it unread again.
func (c *Calculator) Boundary(ctx context.Context, ct *index.ContentType, markers *index.ReadMarkers) (expr.Expr, error) {
	if markers == nil {
		markers = &index.ReadMarkers{}
	}
	fallback := markers.SiteReadAt

	containerIDs := make([]int64, 0, len(markers.ContainerResets))
	for id := range markers.ContainerResets {
		containerIDs = append(containerIDs, id)
	}
	sort.Slice(containerIDs, func(i, j int) bool { return containerIDs[i] < containerIDs[j] })

	var conds []expr.Expr
	for _, id := range containerIDs {
		reset := markers.ContainerResets[id]
		if reset <= 0 {
			reset = fallback
		}
		conds = append(conds, expr.And(
			expr.Eq("container_id", id),
			expr.Gt("date_updated", reset),
		))
	}

	stillRead, err := c.readItemIDs(ctx, ct, markers)
	if err != nil {
		return nil, err
	}

	var where expr.Expr
	if len(conds) == 0 {
		where = expr.Gt("date_updated", fallback)
	} else {
		conds = append(conds, expr.And(
			expr.Gt("date_updated", fallback),
			expr.NotIn("container_id", containerIDs),
		))
		where = expr.Or(conds...)
	}

	if len(stillRead) > 0 {
		where = expr.And(where, expr.NotIn("item_id", stillRead))
	}
	return where, nil
}

// readItemIDs returns the ids of items whose per-item marker still
// covers their current last activity, most recent markers first, capped
// at the calculator's limit. A duplicate marker for the same item keeps
// the higher timestamp.
func (c *Calculator) readItemIDs(ctx context.Context, ct *index.ContentType, markers *index.ReadMarkers) ([]int64, error) {
	var all []index.ItemMarker
	for _, containerMarkers := range markers.Items {
		all = append(all, containerMarkers...)
	}
	if len(all) == 0 {
		return nil, nil
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].ReadAt != all[j].ReadAt {
			return all[i].ReadAt > all[j].ReadAt
		}
		return all[i].ItemID < all[j].ItemID
	})

	best := make(map[int64]int64)
	ids := make([]int64, 0, len(all))
	for _, m := range all {
		if len(best) >= c.markerLimit {
			break
		}
		if prev, seen := best[m.ItemID]; seen {
			if m.ReadAt > prev {
				best[m.ItemID] = m.ReadAt
			}
			continue
		}
		best[m.ItemID] = m.ReadAt
		ids = append(ids, m.ItemID)
	}

	activity, err := c.activity.LastActivity(ctx, ct, ids)
	if err != nil {
		return nil, err
	}

	var stillRead []int64
	for _, id := range ids {
		updatedAt, ok := activity[id]
		if !ok {
			// Item no longer in the index, nothing to exclude.
			continue
		}
		if updatedAt <= best[id] {
			stillRead = append(stillRead, id)
		}
	}
	sort.Slice(stillRead, func(i, j int) bool { return stillRead[i] < stillRead[j] })
	return stillRead, nil
}
