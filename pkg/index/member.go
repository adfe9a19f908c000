package index

import (
	"context"
)

// Member is the acting member a search runs as. Groups feed the
// permission predicate appended to every query.
type Member struct {
	ID     int64
	Groups []int64
}

// Follow is one subscription record: a member following a container, an
// item or another member. The engine only ever reads these.
type Follow struct {
	App             string
	Area            string
	RelatedID       int64
	MemberID        int64
	NotifyFrequency string
}

// FollowStore reads a member's follow records.
type FollowStore interface {
	// FollowsFor returns the member's follows scoped to an application
	// and a set of areas.
	FollowsFor(ctx context.Context, memberID int64, app string, areas []string) ([]Follow, error)

	// FollowedMembers returns ids of members the member follows, at
	// most limit of them. Callers ask for one more than they intend to
	// inline so an exactly-full page signals the true set is larger.
	FollowedMembers(ctx context.Context, memberID int64, limit int) ([]int64, error)
}

// ItemMarker records the last time a member read one specific item.
type ItemMarker struct {
	ItemID int64
	ReadAt int64
}

// ReadMarkers is one member's read state for one application: container
// reset times, a bounded set of per-item markers keyed by container,
// and the site-wide fallback timestamp.
type ReadMarkers struct {
	ContainerResets map[int64]int64
	Items           map[int64][]ItemMarker
	SiteReadAt      int64
}

// MarkerStore reads a member's read markers.
type MarkerStore interface {
	MarkersFor(ctx context.Context, memberID int64, app string) (*ReadMarkers, error)
}
