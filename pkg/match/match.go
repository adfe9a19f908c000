// Package match builds boolean-mode full-text predicates for the search
// index. It sanitizes user terms so boolean operators keep their
// intended scope, discards stopwords and sub-minimum tokens from quoted
// phrases, and backs phrase searches with a literal LIKE filter so the
// full-text index narrows candidates before exact adjacency is checked.
package match

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrNoColumns is returned when a clause is requested over an empty
// column list. That is a programmer error, not a bad search term.
var ErrNoColumns = errors.New("match: no columns to match against")

// operatorChars are the boolean-mode prefix operators a word may carry.
const operatorChars = "+-~<>"

// Rules carries the full-text engine configuration the builder must
// respect. Token length limits and stop words vary per deployment, so
// they are injected rather than hard-coded.
type Rules struct {
	MinWordLength int
	MaxWordLength int
	Stopwords     map[string]struct{}
}

// DefaultRules mirrors a stock InnoDB full-text configuration.
func DefaultRules() Rules {
	stop := make(map[string]struct{})
	for _, w := range []string{
		"a", "about", "an", "are", "as", "at", "be", "by", "com", "de",
		"en", "for", "from", "how", "i", "in", "is", "it", "la", "of",
		"on", "or", "that", "the", "this", "to", "was", "what", "when",
		"where", "who", "will", "with", "und", "www",
	} {
		stop[w] = struct{}{}
	}
	return Rules{
		MinWordLength: 3,
		MaxWordLength: 84,
		Stopwords:     stop,
	}
}

// Builder constructs match clauses under a fixed set of rules.
type Builder struct {
	rules Rules
}

func NewBuilder(rules Rules) *Builder {
	if rules.MinWordLength <= 0 {
		rules.MinWordLength = 3
	}
	if rules.MaxWordLength <= 0 {
		rules.MaxWordLength = 84
	}
	return &Builder{rules: rules}
}

// Clause is a WHERE fragment plus its bound values. When built
// non-prepared the SQL carries the values inline and Args is empty.
type Clause struct {
	SQL  string
	Args []any
}

// Empty reports whether the term produced no usable predicate at all.
func (c Clause) Empty() bool { return c.SQL == "" }

// Clause builds a boolean-mode predicate over columns for the given raw
// term. operator is prefixed to words that carry no explicit operator
// of their own ("+" for AND-like matching, "" for any-word matching).
//
// prepared controls placeholder binding. Non-prepared output inlines
// the sanitized values and exists only for contexts that cannot bind,
// such as a computed score column in a SELECT list. Every inlined value
// passes through the same sanitizer; raw user input never reaches the
// SQL text.
func (b *Builder) Clause(columns []string, term, operator string, prepared bool) (Clause, error) {
	if len(columns) == 0 {
		return Clause{}, ErrNoColumns
	}

	term = strings.TrimSpace(term)
	if term == "" {
		return Clause{}, nil
	}

	if isPhrase(term) {
		return b.phraseClause(columns, term, operator, prepared), nil
	}

	boolExpr, likeWords := b.parseWords(term, operator)

	var parts []string
	var args []any

	if boolExpr != "" {
		if prepared {
			parts = append(parts, matchPredicate(columns, "?"))
			args = append(args, boolExpr)
		} else {
			parts = append(parts, matchPredicate(columns, quote(boolExpr)))
		}
	}
	for _, w := range likeWords {
		p, a := likePredicate(columns, "%"+escapeLike(w)+"%", prepared)
		parts = append(parts, p)
		args = append(args, a...)
	}

	if len(parts) == 0 {
		return Clause{}, nil
	}
	return Clause{SQL: joinAnd(parts), Args: args}, nil
}

// ScoreExpression returns the inline boolean-mode MATCH expression for
// use as a computed score column. Placeholders cannot be bound inside a
// SELECT column list, so this is always built non-prepared. Returns ""
// when the term yields no indexable tokens.
func (b *Builder) ScoreExpression(columns []string, term, operator string) (string, error) {
	if len(columns) == 0 {
		return "", ErrNoColumns
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return "", nil
	}

	var boolExpr string
	if isPhrase(term) {
		boolExpr = b.phraseTokens(term, operator)
	} else {
		boolExpr, _ = b.parseWords(term, operator)
	}
	if boolExpr == "" {
		return "", nil
	}
	return matchPredicate(columns, quote(boolExpr)), nil
}

// phraseClause handles a quoted phrase. A pure boolean phrase search
// can degenerate into a full-table scan when any constituent word is
// below the minimum indexed length, so the phrase is rewritten into
// AND'd word tokens for the full-text index and backed by a literal
// substring filter that enforces exact adjacency.
func (b *Builder) phraseClause(columns []string, term, operator string, prepared bool) Clause {
	inner := strings.Trim(term, `"`)

	var parts []string
	var args []any

	if boolExpr := b.phraseTokens(term, operator); boolExpr != "" {
		if prepared {
			parts = append(parts, matchPredicate(columns, "?"))
			args = append(args, boolExpr)
		} else {
			parts = append(parts, matchPredicate(columns, quote(boolExpr)))
		}
	}

	if inner != "" {
		p, a := likePredicate(columns, "%"+escapeLike(inner)+"%", prepared)
		parts = append(parts, p)
		args = append(args, a...)
	}

	if len(parts) == 0 {
		return Clause{}
	}
	return Clause{SQL: joinAnd(parts), Args: args}
}

// phraseTokens rewrites a quoted phrase into operator-prefixed word
// tokens, dropping stopwords and words outside the indexable length
// range.
func (b *Builder) phraseTokens(term, operator string) string {
	inner := strings.Trim(term, `"`)

	var tokens []string
	for _, word := range strings.Fields(inner) {
		word = stripOperatorChars(word)
		if word == "" {
			continue
		}
		if _, stop := b.rules.Stopwords[strings.ToLower(word)]; stop {
			continue
		}
		if n := utf8.RuneCountInString(word); n < b.rules.MinWordLength || n > b.rules.MaxWordLength {
			continue
		}
		tokens = append(tokens, operator+word)
	}
	return strings.Join(tokens, " ")
}

// parseWords sanitizes a non-phrase term word by word. Words the
// boolean parser cannot handle safely come back as likeWords for
// conversion into literal sub-clauses.
func (b *Builder) parseWords(term, operator string) (boolExpr string, likeWords []string) {
	var tokens []string

	for _, word := range strings.Fields(term) {
		word = strings.ReplaceAll(word, "?", "")
		word = collapseOperators(word)

		op := ""
		if word != "" && strings.ContainsRune(operatorChars, rune(word[0])) {
			op = string(word[0])
			word = word[1:]
		} else {
			word = strings.TrimLeft(word, "*")
			op = operator
		}

		word = strings.TrimRight(word, "+-")
		if word == "" {
			continue
		}

		// The boolean parser mis-tokenizes an operator directly
		// followed by an apostrophe; re-order so the quote comes first.
		if op != "" && word[0] == '\'' {
			word = word[1:]
			if word == "" {
				continue
			}
			tokens = append(tokens, "'"+op+word)
			continue
		}

		// Bare operators allowed mid-word would change the query's
		// grouping, so strip them outright.
		word = strings.Map(func(r rune) rune {
			switch r {
			case '@', '(', ')':
				return -1
			}
			return r
		}, word)
		if word == "" {
			continue
		}

		if !booleanSafe(word) {
			likeWords = append(likeWords, stripOperatorChars(word))
			continue
		}

		tokens = append(tokens, op+word)
	}

	return strings.Join(tokens, " "), likeWords
}

func isPhrase(term string) bool {
	return len(term) >= 2 && term[0] == '"' && term[len(term)-1] == '"'
}

// collapseOperators reduces runs of doubled boolean operators to one.
func collapseOperators(word string) string {
	for _, op := range []string{"++", "--", "~~", "<<", ">>"} {
		for strings.Contains(word, op) {
			word = strings.ReplaceAll(word, op, op[:1])
		}
	}
	return word
}

// booleanSafe reports whether a word (sans leading operator) can be
// handed to the boolean-mode parser without changing the query's scope.
func booleanSafe(word string) bool {
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			continue
		}
		switch r {
		case '_', '\'', '.', '-', '*':
			continue
		}
		return false
	}
	return true
}

// stripOperatorChars removes every boolean-mode operator character.
func stripOperatorChars(word string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(operatorChars+"*()@", r) {
			return -1
		}
		return r
	}, word)
}

func matchPredicate(columns []string, against string) string {
	return "MATCH (" + strings.Join(columns, ",") + ") AGAINST (" + against + " IN BOOLEAN MODE)"
}

// escapeLike escapes LIKE pattern metacharacters so user text only ever
// matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

func likePredicate(columns []string, pattern string, prepared bool) (string, []any) {
	var parts []string
	var args []any
	for _, col := range columns {
		if prepared {
			parts = append(parts, col+" LIKE ?")
			args = append(args, pattern)
		} else {
			parts = append(parts, col+" LIKE "+quote(pattern))
		}
	}
	if len(parts) == 1 {
		return parts[0], args
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

func joinAnd(parts []string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " AND ") + ")"
}

// quote produces a single-quoted MySQL string literal.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `''`)
	return "'" + s + "'"
}
