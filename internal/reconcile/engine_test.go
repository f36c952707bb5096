package reconcile_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/shelfimport/internal/models"
	"github.com/lehigh-university-libraries/shelfimport/internal/reconcile"
	"github.com/lehigh-university-libraries/shelfimport/internal/storage"
)

func TestEngine_PreviewThenConfirm(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore(models.LibraryBook{ID: "b1", Title: "Charlotte's Web", Author: "E.B. White", ReadingLevel: "4.0"})
	engine := reconcile.NewEngine(store, nil, nil)

	records := []models.ImportRecord{
		{Title: "charlotte's web", Author: "E.B. White", ReadingLevel: "5.0"},
		{Title: "Hop on Pop", Author: "Dr. Seuss"},
	}

	cls, err := engine.Preview(ctx, records)
	require.NoError(t, err)
	require.Len(t, cls, 2)
	assert.Equal(t, reconcile.KindConflict, cls[0].Kind)
	assert.Equal(t, reconcile.KindNew, cls[1].Kind)

	before, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, before, 1, "preview must not write")

	result, err := engine.Confirm(ctx, cls, reconcile.Decisions{"b1": reconcile.Accept})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Created)
	require.Len(t, result.CreatedIDs, 1)

	book, err := store.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.Level("5.0"), book.ReadingLevel)

	created, err := store.Get(ctx, result.CreatedIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "Hop on Pop", created.Title)
}

func TestEngine_SecondImportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	engine := reconcile.NewEngine(store, nil, nil)

	records := []models.ImportRecord{
		{Title: "Frindle", Author: "Andrew Clements", ReadingLevel: "5.4"},
		{Title: "Holes", Author: "Louis Sachar"},
	}

	cls, err := engine.Preview(ctx, records)
	require.NoError(t, err)
	first, err := engine.Confirm(ctx, cls, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)

	cls, err = engine.Preview(ctx, records)
	require.NoError(t, err)
	for _, c := range cls {
		assert.Equal(t, reconcile.KindMatched, c.Kind)
	}

	second, err := engine.Confirm(ctx, cls, nil)
	require.NoError(t, err)
	assert.Zero(t, second.Created)
	assert.Zero(t, second.Updated)
	assert.Equal(t, 2, second.Linked)

	books, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, books, 2)
}

func TestEngine_RepeatedConflictsOnOneBook(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		store := storage.NewMemoryStore(models.LibraryBook{ID: "b1", Title: "Charlotte's Web", Author: "E.B. White", ReadingLevel: "4.0"})
		engine := reconcile.NewEngine(store, nil, nil)

		cls, err := engine.Preview(ctx, []models.ImportRecord{
			{Title: "Charlotte's Web", Author: "E.B. White", ReadingLevel: "5.0"},
			{Title: "Charlotte's Web", Author: "E.B. White", ReadingLevel: "6.0"},
		})
		require.NoError(t, err)

		result, err := engine.Confirm(ctx, cls, reconcile.Decisions{"b1": reconcile.Accept})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Updated)
		assert.Equal(t, 1, result.Linked)

		book, err := store.Get(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, models.Level("6.0"), book.ReadingLevel)
	}
}

func TestEngine_DisagreeingDuplicateNeedsDecision(t *testing.T) {
	ctx := context.Background()
	records := []models.ImportRecord{
		{Title: "Hop on Pop", Author: "Dr. Seuss", ReadingLevel: "1.0"},
		{Title: "Hop on Pop", Author: "Dr. Seuss", ReadingLevel: "2.0"},
	}

	for decision, expected := range map[reconcile.Decision]models.Level{
		reconcile.Accept: "2.0",
		reconcile.Reject: "1.0",
	} {
		t.Run(string(decision), func(t *testing.T) {
			store := storage.NewMemoryStore()
			engine := reconcile.NewEngine(store, nil, nil)

			cls, err := engine.Preview(ctx, records)
			require.NoError(t, err)
			require.Equal(t, reconcile.KindConflict, cls[1].Kind)
			assert.True(t, cls[1].NeedsDecision())

			result, err := engine.Confirm(ctx, cls, reconcile.Decisions{cls[1].DecisionKey(): decision})
			require.NoError(t, err)
			assert.Equal(t, 1, result.Created)

			book, err := store.Get(ctx, result.CreatedIDs[0])
			require.NoError(t, err)
			assert.Equal(t, expected, book.ReadingLevel)

			books, err := store.ListAll(ctx)
			require.NoError(t, err)
			assert.Len(t, books, 1)
		})
	}
}

func TestEngine_RejectsMissingLists(t *testing.T) {
	engine := reconcile.NewEngine(storage.NewMemoryStore(), nil, nil)

	_, err := engine.Preview(context.Background(), nil)
	assert.ErrorIs(t, err, reconcile.ErrMalformedBatch)

	_, err = engine.Confirm(context.Background(), nil, nil)
	assert.ErrorIs(t, err, reconcile.ErrMalformedBatch)
}

func TestEngine_EmptyBatch(t *testing.T) {
	engine := reconcile.NewEngine(storage.NewMemoryStore(), nil, nil)

	cls, err := engine.Preview(context.Background(), []models.ImportRecord{})
	require.NoError(t, err)
	assert.Empty(t, cls)

	result, err := engine.Confirm(context.Background(), cls, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Outcomes)
	assert.Empty(t, result.CreatedIDs)
}
