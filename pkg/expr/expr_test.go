package expr

import (
	"reflect"
	"testing"
)

func TestCompileLeaves(t *testing.T) {
	tests := []struct {
		name     string
		expr     Expr
		wantSQL  string
		wantArgs []any
	}{
		{"eq", Eq("author_id", int64(7)), "author_id=?", []any{int64(7)}},
		{"gt", Gt("date_updated", int64(100)), "date_updated>?", []any{int64(100)}},
		{"is null", IsNull("club_id"), "club_id IS NULL", nil},
		{"not null", NotNull("title"), "title IS NOT NULL", nil},
		{"in single collapses to eq", In("item_id", []int64{5}), "item_id=?", []any{int64(5)}},
		{"in many", In("item_id", []int64{1, 2, 3}), "item_id IN (?,?,?)", []any{int64(1), int64(2), int64(3)}},
		{"in empty matches nothing", In("item_id", nil), "1=2", nil},
		{"not in", NotIn("container_id", []int64{4, 5}), "container_id NOT IN (?,?)", []any{int64(4), int64(5)}},
		{"in strings", InStrings("class", []string{"a", "b"}), "class IN (?,?)", []any{"a", "b"}},
		{"in strings single collapses to eq", InStrings("class", []string{"a"}), "class=?", []any{"a"}},
		{"nothing", Nothing(), "1=2", nil},
		{"everything", Everything(), "1=1", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := Compile(tt.expr)
			if sql != tt.wantSQL {
				t.Errorf("sql = %q, want %q", sql, tt.wantSQL)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestCompileNesting(t *testing.T) {
	e := And(
		Eq("class", "forums.Topic"),
		Or(Eq("container_id", int64(1)), Eq("container_id", int64(2))),
	)
	sql, args := Compile(e)

	want := "(class=? AND (container_id=? OR container_id=?))"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if len(args) != 3 {
		t.Errorf("expected 3 args, got %d", len(args))
	}
}

func TestNotNegatesWholeGroup(t *testing.T) {
	// NOT(A OR B) is not the same as (NOT A OR NOT B); the tree must
	// keep the negation around the group.
	e := Not(Or(Eq("class", "a"), Eq("class", "b")))
	sql, _ := Compile(e)

	want := "NOT ((class=? OR class=?))"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
}

func TestEmptyChildrenSkipped(t *testing.T) {
	e := And(
		Eq("hidden", 0),
		NotIn("item_id", nil), // empty exclusion excludes nothing
		SQL(""),
	)
	sql, args := Compile(e)
	if sql != "hidden=?" {
		t.Errorf("sql = %q, want %q", sql, "hidden=?")
	}
	if len(args) != 1 {
		t.Errorf("expected 1 arg, got %d", len(args))
	}
}

func TestCompileNil(t *testing.T) {
	sql, args := Compile(nil)
	if sql != "" || args != nil {
		t.Errorf("Compile(nil) = %q, %v; want empty", sql, args)
	}
}

func TestSingleChildUnwrapped(t *testing.T) {
	sql, _ := Compile(And(Eq("class", "a")))
	if sql != "class=?" {
		t.Errorf("single-child AND should not add parentheses, got %q", sql)
	}
}
