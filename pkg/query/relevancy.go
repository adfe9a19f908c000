package query

import (
	"fmt"
	"strconv"
)

// relevanceExpression builds the computed score column used when
// ranking by relevancy:
//
//	(titleScore * titleBoost + bodyAndTitleScore)
//	  / ((now - LEAST(date_updated, now)) / 3600 + 2) ^ 1.5
//
// Lexical match strength trades off smoothly against age: the +2 floor
// keeps brand-new content from dividing by near-zero and the 1.5
// exponent sets the decay curve. Both constants are load-bearing for
// ranking compatibility.
//
// A SELECT column list cannot bind placeholders, so the match
// expressions are built non-prepared from sanitizer output. Returns ""
// when the term yields no indexable tokens; the caller falls back to
// newest-updated ordering.
func (q *Query) relevanceExpression(term, operator string) (string, error) {
	titleScore, err := q.engine.matcher.ScoreExpression([]string{"title"}, term, operator)
	if err != nil {
		return "", err
	}
	bothScore, err := q.engine.matcher.ScoreExpression([]string{"title", "content"}, term, operator)
	if err != nil {
		return "", err
	}
	if titleScore == "" || bothScore == "" {
		return "", nil
	}

	boost := strconv.FormatFloat(q.engine.cfg.TitleBoost, 'f', -1, 64)
	now := q.now().Unix()

	return fmt.Sprintf(
		"(%s * %s + %s) / POWER(((%d - LEAST(date_updated, %d)) / 3600) + 2, 1.5)",
		titleScore, boost, bothScore, now, now,
	), nil
}
