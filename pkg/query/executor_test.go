package query

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/communitykit/unisearch/pkg/config"
	"github.com/communitykit/unisearch/pkg/index"
	"github.com/communitykit/unisearch/pkg/storage"
)

// fakeConn is a minimal database/sql driver serving canned index rows,
// recording every statement it sees so tests can inspect the final SQL.
type fakeConn struct {
	mu      sync.Mutex
	queries []string
	rows    [][]driver.Value
}

func (c *fakeConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (c *fakeConn) Close() error                        { return nil }
func (c *fakeConn) Begin() (driver.Tx, error)           { return nil, errors.New("not supported") }

func (c *fakeConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	c.queries = append(c.queries, query)
	c.mu.Unlock()

	if strings.HasPrefix(query, "SELECT COUNT(*)") {
		return &fakeRows{cols: []string{"COUNT(*)"}, rows: [][]driver.Value{{int64(len(c.rows))}}}, nil
	}

	cols := append([]string{}, index.Columns...)
	if strings.Contains(query, " AS relevance") {
		cols = append(cols, "relevance")
	}
	return &fakeRows{cols: cols, rows: c.rows}, nil
}

func (c *fakeConn) recorded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.queries...)
}

type fakeRows struct {
	cols []string
	rows [][]driver.Value
	i    int
}

func (r *fakeRows) Columns() []string { return r.cols }
func (r *fakeRows) Close() error      { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.i >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.i])
	r.i++
	return nil
}

type fakeConnector struct{ conn *fakeConn }

func (c *fakeConnector) Connect(context.Context) (driver.Conn, error) { return c.conn, nil }
func (c *fakeConnector) Driver() driver.Driver                        { return nil }

// fakeDB adapts a fake connection to the engine's Store interface with
// fixed capabilities.
type fakeDB struct {
	db   *sql.DB
	caps storage.Capabilities
}

func newFakeDB(conn *fakeConn, caps storage.Capabilities) *fakeDB {
	return &fakeDB{db: sql.OpenDB(&fakeConnector{conn: conn}), caps: caps}
}

func (f *fakeDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return f.db.QueryContext(ctx, query, args...)
}

func (f *fakeDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return f.db.QueryRowContext(ctx, query, args...)
}

func (f *fakeDB) Capabilities(context.Context) storage.Capabilities { return f.caps }

func sampleRow() []driver.Value {
	return []driver.Value{
		int64(1), "forums.Topic", int64(10), int64(1),
		int64(2), "forums.Forum",
		int64(7), int64(7),
		int64(1600000000), int64(1600003600), int64(0),
		int64(0), "*", "Hello world", "body text",
		false, nil, false,
	}
}

func executorEngine(t *testing.T, conn *fakeConn, caps storage.Capabilities) *Engine {
	t.Helper()
	registry, err := index.DefaultRegistry()
	if err != nil {
		t.Fatal(err)
	}
	return NewEngine(newFakeDB(conn, caps), registry, config.DefaultConfig(),
		&fakeFollows{}, &fakeMarkers{}, &fakeActivityReader{})
}

func TestSearchScansRowsAndCounts(t *testing.T) {
	conn := &fakeConn{rows: [][]driver.Value{sampleRow()}}
	e := executorEngine(t, conn, storage.Capabilities{})
	q := fixedNow(e.NewQuery(nil))

	results, err := q.Search(context.Background(), "test", nil, MethodTermOrTags, "+")
	if err != nil {
		t.Fatal(err)
	}

	if len(results.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(results.Rows))
	}
	r := results.Rows[0]
	if r.Class != "forums.Topic" || r.ItemID != 10 || r.AuthorID != 7 {
		t.Errorf("row scanned wrong: %+v", r)
	}
	if !r.Title.Valid || r.Title.String != "Hello world" {
		t.Errorf("title = %+v, want Hello world", r.Title)
	}
	if r.ClubID.Valid {
		t.Errorf("club id should be null, got %+v", r.ClubID)
	}
	if results.Total != 1 {
		t.Errorf("total = %d, want 1", results.Total)
	}
}

func TestSearchAndCountShareWhere(t *testing.T) {
	conn := &fakeConn{rows: [][]driver.Value{sampleRow()}}
	e := executorEngine(t, conn, storage.Capabilities{})
	q := fixedNow(e.NewQuery(&index.Member{ID: 7, Groups: []int64{4}}))
	q.FilterByAuthor(7)

	if _, err := q.Search(context.Background(), "test", []string{"bug"}, MethodTermOrTags, "+"); err != nil {
		t.Fatal(err)
	}

	queries := conn.recorded()
	if len(queries) != 2 {
		t.Fatalf("got %d statements, want SELECT plus COUNT", len(queries))
	}

	selectWhere := between(queries[0], " WHERE ", " ORDER BY ")
	countWhere := after(queries[1], " WHERE ")
	if selectWhere == "" || selectWhere != countWhere {
		t.Errorf("SELECT and COUNT must share one WHERE:\n  select: %q\n  count:  %q", selectWhere, countWhere)
	}
}

func TestSearchPagination(t *testing.T) {
	conn := &fakeConn{}
	e := executorEngine(t, conn, storage.Capabilities{})
	q := fixedNow(e.NewQuery(nil)).SetPage(3).SetLimit(10)

	results, err := q.Search(context.Background(), "", nil, MethodTermOrTags, "+")
	if err != nil {
		t.Fatal(err)
	}
	if results.Page != 3 || results.PerPage != 10 {
		t.Errorf("page = %d perPage = %d, want 3/10", results.Page, results.PerPage)
	}

	queries := conn.recorded()
	if !strings.HasSuffix(queries[0], " LIMIT ? OFFSET ?") {
		t.Errorf("select %q missing pagination", queries[0])
	}
}

func TestSearchForceIndexOnUnread(t *testing.T) {
	tests := []struct {
		name string
		caps storage.Capabilities
		want bool
	}{
		{"old mysql forces the index", storage.Capabilities{ForceIndexOnUnread: true}, true},
		{"modern planner left alone", storage.Capabilities{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &fakeConn{}
			e := executorEngine(t, conn, tt.caps)
			q := fixedNow(e.NewQuery(&index.Member{ID: 7}))
			q.FilterByUnread(context.Background())

			if _, err := q.Search(context.Background(), "", nil, MethodTermOrTags, "+"); err != nil {
				t.Fatal(err)
			}

			queries := conn.recorded()
			got := strings.Contains(queries[0], "FORCE INDEX (ix_date_updated)")
			if got != tt.want {
				t.Errorf("force index = %v, want %v in %q", got, tt.want, queries[0])
			}
			// The COUNT never forces the index.
			if strings.Contains(queries[1], "FORCE INDEX") {
				t.Errorf("count %q must not force an index", queries[1])
			}
		})
	}
}

func TestSearchRelevancySelectsScoreColumn(t *testing.T) {
	row := append(sampleRow(), float64(1.5))
	conn := &fakeConn{rows: [][]driver.Value{row}}
	e := executorEngine(t, conn, storage.Capabilities{})
	q := fixedNow(e.NewQuery(nil)).SetOrder(OrderRelevancy)

	results, err := q.Search(context.Background(), "test", nil, MethodTermOrTags, "+")
	if err != nil {
		t.Fatal(err)
	}
	if len(results.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(results.Rows))
	}

	queries := conn.recorded()
	if !strings.Contains(queries[0], " AS relevance") {
		t.Errorf("select %q missing computed score column", queries[0])
	}
	if !strings.Contains(queries[0], "ORDER BY relevance DESC") {
		t.Errorf("select %q missing relevancy ordering", queries[0])
	}
	if strings.Contains(queries[1], "relevance") {
		t.Errorf("count %q must not compute the score", queries[1])
	}
}

func TestCountAlone(t *testing.T) {
	conn := &fakeConn{rows: [][]driver.Value{sampleRow(), sampleRow()}}
	e := executorEngine(t, conn, storage.Capabilities{})
	q := fixedNow(e.NewQuery(nil))

	total, err := q.Count(context.Background(), "test", nil, MethodTermOrTags, "+")
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}

	queries := conn.recorded()
	if len(queries) != 1 || !strings.HasPrefix(queries[0], "SELECT COUNT(*)") {
		t.Errorf("queries = %v, want a single COUNT", queries)
	}
}

func between(s, start, end string) string {
	i := strings.Index(s, start)
	if i < 0 {
		return ""
	}
	s = s[i+len(start):]
	j := strings.Index(s, end)
	if j < 0 {
		return ""
	}
	return s[:j]
}

func after(s, marker string) string {
	i := strings.Index(s, marker)
	if i < 0 {
		return ""
	}
	return s[i+len(marker):]
}
