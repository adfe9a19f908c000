package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/communitykit/unisearch/pkg/index"
	"github.com/communitykit/unisearch/pkg/unread"
)

// Table names for the member-owned data the engine reads but never
// mutates.
const (
	followTable      = index.FollowTable
	markerTable      = "member_markers"
	markerItemsTable = "member_marker_items"
	memberTable      = "members"
)

// Follows reads a member's follow records. Implements index.FollowStore.
type Follows struct {
	db *DB
}

func NewFollows(db *DB) *Follows {
	return &Follows{db: db}
}

func (f *Follows) FollowsFor(ctx context.Context, memberID int64, app string, areas []string) ([]index.Follow, error) {
	if len(areas) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT app, area, related_id, member_id, notify_freq
		FROM %s
		WHERE member_id=? AND app=? AND area IN (%s)`,
		followTable, placeholders(len(areas)))

	args := []any{memberID, app}
	for _, area := range areas {
		args = append(args, area)
	}

	rows, err := f.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying follows: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			fmt.Printf("Warning: failed to close rows: %v\n", err)
		}
	}()

	var follows []index.Follow
	for rows.Next() {
		var fl index.Follow
		if err := rows.Scan(&fl.App, &fl.Area, &fl.RelatedID, &fl.MemberID, &fl.NotifyFrequency); err != nil {
			return nil, fmt.Errorf("scanning follow: %w", err)
		}
		follows = append(follows, fl)
	}
	return follows, rows.Err()
}

func (f *Follows) FollowedMembers(ctx context.Context, memberID int64, limit int) ([]int64, error) {
	query := fmt.Sprintf(`
		SELECT related_id
		FROM %s
		WHERE member_id=? AND app='core' AND area='member'
		ORDER BY related_id
		LIMIT ?`, followTable)

	rows, err := f.db.QueryContext(ctx, query, memberID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying followed members: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			fmt.Printf("Warning: failed to close rows: %v\n", err)
		}
	}()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning followed member: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Markers reads a member's read-marker state. Implements
// index.MarkerStore.
type Markers struct {
	db        *DB
	itemLimit int
}

func NewMarkers(db *DB, itemLimit int) *Markers {
	if itemLimit <= 0 {
		itemLimit = unread.DefaultMarkerLimit
	}
	return &Markers{db: db, itemLimit: itemLimit}
}

func (m *Markers) MarkersFor(ctx context.Context, memberID int64, app string) (*index.ReadMarkers, error) {
	markers := &index.ReadMarkers{
		ContainerResets: make(map[int64]int64),
		Items:           make(map[int64][]index.ItemMarker),
	}

	query := fmt.Sprintf(`
		SELECT container_id, reset_at
		FROM %s
		WHERE member_id=? AND app=?`, markerTable)
	rows, err := m.db.QueryContext(ctx, query, memberID, app)
	if err != nil {
		return nil, fmt.Errorf("querying container markers: %w", err)
	}
	for rows.Next() {
		var containerID, resetAt int64
		if err := rows.Scan(&containerID, &resetAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scanning container marker: %w", err)
		}
		markers.ContainerResets[containerID] = resetAt
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	query = fmt.Sprintf(`
		SELECT container_id, item_id, read_at
		FROM %s
		WHERE member_id=? AND app=?
		ORDER BY read_at DESC
		LIMIT ?`, markerItemsTable)
	rows, err = m.db.QueryContext(ctx, query, memberID, app, m.itemLimit)
	if err != nil {
		return nil, fmt.Errorf("querying item markers: %w", err)
	}
	for rows.Next() {
		var containerID int64
		var marker index.ItemMarker
		if err := rows.Scan(&containerID, &marker.ItemID, &marker.ReadAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scanning item marker: %w", err)
		}
		markers.Items[containerID] = append(markers.Items[containerID], marker)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	var siteRead sql.NullInt64
	err = m.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT marked_site_read FROM %s WHERE id=?", memberTable),
		memberID).Scan(&siteRead)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("querying site read marker: %w", err)
	}
	if siteRead.Valid {
		markers.SiteReadAt = siteRead.Int64
	}

	return markers, nil
}

// Activity resolves live last-activity timestamps for marker
// validation. Implements unread.ActivityReader.
type Activity struct {
	db *DB
}

func NewActivity(db *DB) *Activity {
	return &Activity{db: db}
}

// LastActivity reads the best-available activity date for each item.
// Types that track last-comment/last-review dates on their owning table
// get the combined maximum of those; everything else falls back to the
// index row's updated date.
func (a *Activity) LastActivity(ctx context.Context, ct *index.ContentType, itemIDs []int64) (map[int64]int64, error) {
	if len(itemIDs) == 0 {
		return map[int64]int64{}, nil
	}

	dateExpr := "i.date_updated"
	join := ""
	if ct.Table != "" && ct.IDColumn != "" {
		var parts []string
		if ct.LastCommentColumn != "" {
			parts = append(parts, "COALESCE(t."+ct.LastCommentColumn+",0)")
		}
		if ct.LastReviewColumn != "" {
			parts = append(parts, "COALESCE(t."+ct.LastReviewColumn+",0)")
		}
		if len(parts) > 0 {
			parts = append(parts, "i.date_updated")
			dateExpr = "GREATEST(" + strings.Join(parts, ",") + ")"
			join = fmt.Sprintf(" JOIN %s t ON t.%s=i.item_id", ct.Table, ct.IDColumn)
		}
	}

	itemClass := ct.Class
	if ct.IsComment() {
		itemClass = ct.ItemClass
	}

	query := fmt.Sprintf(`
		SELECT i.item_id, %s
		FROM %s i%s
		WHERE i.class=? AND i.title IS NOT NULL AND i.item_id IN (%s)`,
		dateExpr, index.Table, join, placeholders(len(itemIDs)))

	args := []any{string(itemClass)}
	for _, id := range itemIDs {
		args = append(args, id)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying item activity: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			fmt.Printf("Warning: failed to close rows: %v\n", err)
		}
	}()

	activity := make(map[int64]int64, len(itemIDs))
	for rows.Next() {
		var itemID, updatedAt int64
		if err := rows.Scan(&itemID, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning item activity: %w", err)
		}
		activity[itemID] = updatedAt
	}
	return activity, rows.Err()
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	return rows.Close()
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
