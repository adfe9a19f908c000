package match

import (
	"errors"
	"reflect"
	"testing"
)

var cols = []string{"title", "content"}

func TestClauseSingleWord(t *testing.T) {
	b := NewBuilder(DefaultRules())
	c, err := b.Clause(cols, "test", "+", true)
	if err != nil {
		t.Fatal(err)
	}

	want := "MATCH (title,content) AGAINST (? IN BOOLEAN MODE)"
	if c.SQL != want {
		t.Errorf("sql = %q, want %q", c.SQL, want)
	}
	if !reflect.DeepEqual(c.Args, []any{"+test"}) {
		t.Errorf("args = %v, want [+test]", c.Args)
	}
}

func TestClauseSanitization(t *testing.T) {
	tests := []struct {
		name    string
		term    string
		wantArg string
	}{
		{"doubled operators collapse", "++test--", "+test"},
		{"doubled angle operators collapse", "<<test", "<test"},
		{"doubled greater-than collapses", ">>test", ">test"},
		{"trailing operators stripped", "test--", "+test"},
		{"question marks stripped", "wh?at", "+what"},
		{"grouping chars stripped", "a@b(c)", "+abc"},
		{"explicit operator kept", "-spam ham", "-spam +ham"},
		{"leading wildcard stripped", "*test", "+test"},
		{"apostrophe reordered after operator", "+'quoted", "'+quoted"},
	}

	b := NewBuilder(DefaultRules())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := b.Clause(cols, tt.term, "+", true)
			if err != nil {
				t.Fatal(err)
			}
			if len(c.Args) != 1 {
				t.Fatalf("args = %v, want a single boolean expression", c.Args)
			}
			if c.Args[0] != tt.wantArg {
				t.Errorf("boolean expression = %q, want %q", c.Args[0], tt.wantArg)
			}
		})
	}
}

func TestClauseUnsafeWordFallsBackToLike(t *testing.T) {
	b := NewBuilder(DefaultRules())
	c, err := b.Clause(cols, "baz foo#bar", "+", true)
	if err != nil {
		t.Fatal(err)
	}

	want := "(MATCH (title,content) AGAINST (? IN BOOLEAN MODE) AND (title LIKE ? OR content LIKE ?))"
	if c.SQL != want {
		t.Errorf("sql = %q, want %q", c.SQL, want)
	}
	wantArgs := []any{"+baz", "%foo#bar%", "%foo#bar%"}
	if !reflect.DeepEqual(c.Args, wantArgs) {
		t.Errorf("args = %v, want %v", c.Args, wantArgs)
	}
}

func TestClausePhrase(t *testing.T) {
	b := NewBuilder(DefaultRules())
	c, err := b.Clause(cols, `"hello world"`, "+", true)
	if err != nil {
		t.Fatal(err)
	}

	// The phrase becomes AND'd word tokens for the index plus a literal
	// substring filter for exact adjacency.
	want := "(MATCH (title,content) AGAINST (? IN BOOLEAN MODE) AND (title LIKE ? OR content LIKE ?))"
	if c.SQL != want {
		t.Errorf("sql = %q, want %q", c.SQL, want)
	}
	wantArgs := []any{"+hello +world", "%hello world%", "%hello world%"}
	if !reflect.DeepEqual(c.Args, wantArgs) {
		t.Errorf("args = %v, want %v", c.Args, wantArgs)
	}
}

func TestClausePhraseDropsUnindexableWords(t *testing.T) {
	b := NewBuilder(DefaultRules())
	c, err := b.Clause(cols, `"the db errors"`, "+", true)
	if err != nil {
		t.Fatal(err)
	}

	// "the" is a stopword and "db" is below the minimum word length;
	// only "errors" reaches the index. The LIKE filter keeps the full
	// phrase so adjacency still holds.
	wantArgs := []any{"+errors", "%the db errors%", "%the db errors%"}
	if !reflect.DeepEqual(c.Args, wantArgs) {
		t.Errorf("args = %v, want %v", c.Args, wantArgs)
	}
}

func TestClausePhraseWithNoIndexableWords(t *testing.T) {
	b := NewBuilder(DefaultRules())
	c, err := b.Clause(cols, `"the of"`, "+", true)
	if err != nil {
		t.Fatal(err)
	}

	want := "(title LIKE ? OR content LIKE ?)"
	if c.SQL != want {
		t.Errorf("sql = %q, want %q", c.SQL, want)
	}
}

func TestClauseEscapesLikeMetacharacters(t *testing.T) {
	b := NewBuilder(DefaultRules())

	t.Run("phrase backing filter", func(t *testing.T) {
		c, err := b.Clause(cols, `"100% sure"`, "+", true)
		if err != nil {
			t.Fatal(err)
		}
		// A literal percent sign in the term must not widen the
		// adjacency check into a wildcard.
		wantArgs := []any{"+100% +sure", `%100\% sure%`, `%100\% sure%`}
		if !reflect.DeepEqual(c.Args, wantArgs) {
			t.Errorf("args = %v, want %v", c.Args, wantArgs)
		}
	})

	t.Run("unsafe word fallback", func(t *testing.T) {
		c, err := b.Clause(cols, "50%off", "+", true)
		if err != nil {
			t.Fatal(err)
		}
		wantArgs := []any{`%50\%off%`, `%50\%off%`}
		if !reflect.DeepEqual(c.Args, wantArgs) {
			t.Errorf("args = %v, want %v", c.Args, wantArgs)
		}
	})
}

func TestClauseInline(t *testing.T) {
	b := NewBuilder(DefaultRules())
	c, err := b.Clause([]string{"title"}, "o'brien", "+", false)
	if err != nil {
		t.Fatal(err)
	}

	want := "MATCH (title) AGAINST ('+o''brien' IN BOOLEAN MODE)"
	if c.SQL != want {
		t.Errorf("sql = %q, want %q", c.SQL, want)
	}
	if len(c.Args) != 0 {
		t.Errorf("inline clause should carry no args, got %v", c.Args)
	}
}

func TestClauseEmptyTerm(t *testing.T) {
	b := NewBuilder(DefaultRules())
	c, err := b.Clause(cols, "   ", "+", true)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Empty() {
		t.Errorf("expected empty clause, got %q", c.SQL)
	}
}

func TestClauseNoColumns(t *testing.T) {
	b := NewBuilder(DefaultRules())
	if _, err := b.Clause(nil, "test", "+", true); !errors.Is(err, ErrNoColumns) {
		t.Errorf("err = %v, want ErrNoColumns", err)
	}
}

func TestScoreExpression(t *testing.T) {
	b := NewBuilder(DefaultRules())

	got, err := b.ScoreExpression([]string{"title"}, "test", "+")
	if err != nil {
		t.Fatal(err)
	}
	want := "MATCH (title) AGAINST ('+test' IN BOOLEAN MODE)"
	if got != want {
		t.Errorf("expression = %q, want %q", got, want)
	}

	got, err = b.ScoreExpression([]string{"title"}, "()", "+")
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("term with no indexable tokens should yield no expression, got %q", got)
	}
}
