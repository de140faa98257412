package quiz

import (
	"context"

	"github.com/DoyleJ11/pubquiz-backend/internal/store"
)

// Director controls which question is open for answers in each room. The
// store's SetQuestionActive transaction guarantees at most one active
// question per room; Director is the only way question activity changes.
type Director struct {
	store store.Store
}

func NewDirector(s store.Store) *Director {
	return &Director{store: s}
}

// Activate opens the question for answers, closing any other question in the
// same room in the same transaction.
func (d *Director) Activate(ctx context.Context, questionID int64) (*store.Question, error) {
	return d.store.SetQuestionActive(ctx, questionID, true)
}

// Deactivate closes the question.
func (d *Director) Deactivate(ctx context.Context, questionID int64) (*store.Question, error) {
	return d.store.SetQuestionActive(ctx, questionID, false)
}

// Current returns the room's open question, or nil when none is open.
func (d *Director) Current(ctx context.Context, roomID string) (*store.Question, error) {
	return d.store.ActiveQuestion(ctx, roomID)
}
