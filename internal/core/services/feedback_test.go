package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/kbase/internal/core/domain"
)

func TestSubmitFeedback_Overwrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.createCollection(t, "animals", 4, 1)

	result, err := f.query.Query(ctx, c.ID, "Which dog?", 3)
	require.NoError(t, err)

	require.NoError(t, f.feedback.SubmitFeedback(ctx, result.LogID, 1, "helpful"))
	entry, err := f.feedback.GetLog(ctx, result.LogID)
	require.NoError(t, err)
	require.NotNil(t, entry.FeedbackRating)
	assert.Equal(t, 1, *entry.FeedbackRating)
	assert.Equal(t, "helpful", entry.FeedbackComment)

	require.NoError(t, f.feedback.SubmitFeedback(ctx, result.LogID, 0, ""))
	entry, err = f.feedback.GetLog(ctx, result.LogID)
	require.NoError(t, err)
	require.NotNil(t, entry.FeedbackRating)
	assert.Equal(t, 0, *entry.FeedbackRating)
	assert.Empty(t, entry.FeedbackComment)
}

func TestSubmitFeedback_RejectsInvalidRating(t *testing.T) {
	store := memory.NewQueryLogStore()
	svc := NewFeedbackService(store)
	ctx := context.Background()

	entry := &domain.QueryLog{CollectionID: "c1", Query: "q"}
	require.NoError(t, store.Save(ctx, entry))

	for _, rating := range []int{-2, 2, 5} {
		t.Run(fmt.Sprintf("rating %d", rating), func(t *testing.T) {
			err := svc.SubmitFeedback(ctx, entry.ID, rating, "")
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		})
	}

	got, err := svc.GetLog(ctx, entry.ID)
	require.NoError(t, err)
	assert.Nil(t, got.FeedbackRating)
}

func TestSubmitFeedback_UnknownLog(t *testing.T) {
	svc := NewFeedbackService(memory.NewQueryLogStore())

	err := svc.SubmitFeedback(context.Background(), "missing", -1, "wrong")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = svc.SubmitFeedback(context.Background(), " ", 1, "")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestListLogs_NewestFirstWithLimit(t *testing.T) {
	store := memory.NewQueryLogStore()
	svc := NewFeedbackService(store)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, store.Save(ctx, &domain.QueryLog{CollectionID: "c1", Query: fmt.Sprintf("q%d", i)}))
	}
	require.NoError(t, store.Save(ctx, &domain.QueryLog{CollectionID: "c2", Query: "elsewhere"}))

	logs, err := svc.ListLogs(ctx, "c1", 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "q3", logs[0].Query)
	assert.Equal(t, "q2", logs[1].Query)

	logs, err = svc.ListLogs(ctx, "c1", 0)
	require.NoError(t, err)
	assert.Len(t, logs, 4)
}
