package quiz

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/pubquiz-backend/internal/apperr"
	"github.com/DoyleJ11/pubquiz-backend/internal/store"
)

func seedQuestions(t *testing.T, st *store.MemStore, roomID string, n int) []int64 {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.CreateRoom(ctx, &store.Room{ID: roomID, Name: roomID}))
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		q := &store.Question{
			RoomID:        roomID,
			Text:          "q",
			QuestionType:  store.QuestionText,
			CorrectAnswer: "x",
			Points:        1,
		}
		require.NoError(t, st.CreateQuestion(ctx, q))
		ids = append(ids, q.ID)
	}
	return ids
}

func activeCount(t *testing.T, st *store.MemStore, roomID string) int {
	t.Helper()
	qs, err := st.ListQuestions(context.Background(), roomID)
	require.NoError(t, err)
	count := 0
	for _, q := range qs {
		if q.IsActive {
			count++
		}
	}
	return count
}

func TestDirector_ActivateDeactivatesSiblings(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	d := NewDirector(st)
	ids := seedQuestions(t, st, "r1", 3)

	_, err := d.Activate(ctx, ids[0])
	require.NoError(t, err)
	_, err = d.Activate(ctx, ids[1])
	require.NoError(t, err)

	assert.Equal(t, 1, activeCount(t, st, "r1"))
	current, err := d.Current(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, ids[1], current.ID)
}

func TestDirector_DeactivateClearsCurrent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	d := NewDirector(st)
	ids := seedQuestions(t, st, "r1", 1)

	_, err := d.Activate(ctx, ids[0])
	require.NoError(t, err)
	_, err = d.Deactivate(ctx, ids[0])
	require.NoError(t, err)

	current, err := d.Current(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestDirector_NotFound(t *testing.T) {
	ctx := context.Background()
	d := NewDirector(store.NewMemStore())

	_, err := d.Activate(ctx, 42)
	assert.True(t, apperr.IsNotFound(err))
	_, err = d.Deactivate(ctx, 42)
	assert.True(t, apperr.IsNotFound(err))
}

func TestDirector_ConcurrentActivationsLeaveOneActive(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	d := NewDirector(st)
	ids := seedQuestions(t, st, "r1", 8)

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := d.Activate(ctx, id)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, activeCount(t, st, "r1"))
}

func TestDirector_RoomsAreIndependent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	d := NewDirector(st)
	r1 := seedQuestions(t, st, "r1", 2)
	r2 := seedQuestions(t, st, "r2", 2)

	_, err := d.Activate(ctx, r1[0])
	require.NoError(t, err)
	_, err = d.Activate(ctx, r2[1])
	require.NoError(t, err)

	c1, err := d.Current(ctx, "r1")
	require.NoError(t, err)
	c2, err := d.Current(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, r1[0], c1.ID)
	assert.Equal(t, r2[1], c2.ID)
}
