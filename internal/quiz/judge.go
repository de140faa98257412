// Package quiz holds the scoring core of a room: judging submitted answers,
// controlling which question is open, and keeping the point ledger.
package quiz

import (
	"strings"

	"github.com/DoyleJ11/pubquiz-backend/internal/store"
)

// Judge reports whether submitted is the right answer to q. Multiple-choice
// submissions carry the option letter, free-text submissions the full answer
// string; both compare case-insensitively with no trimming and no partial
// credit.
func Judge(q *store.Question, submitted string) bool {
	return strings.EqualFold(submitted, q.CorrectAnswer)
}
