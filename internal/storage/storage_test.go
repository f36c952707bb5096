package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/shelfimport/internal/models"
)

// stores runs fn against every Store implementation.
func stores(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "data", "library.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		fn(t, s)
	})
}

func TestStore_CreateAndList(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		books, err := s.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, books)

		a, err := s.Create(ctx, models.NewBook{Title: "Holes", Author: "Louis Sachar", ReadingLevel: "4.6"})
		require.NoError(t, err)
		assert.NotEmpty(t, a.ID)

		b, err := s.Create(ctx, models.NewBook{Title: "Frindle"})
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)

		books, err = s.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, books, 2)
		assert.True(t, books[0].ID < books[1].ID, "books are ordered by id")

		got, err := s.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a, got)

		got, err = s.Get(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "", got.Author)
		assert.True(t, got.ReadingLevel.IsZero())
	})
}

func TestStore_CreateRequiresTitle(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		_, err := s.Create(context.Background(), models.NewBook{Title: "  ", Author: "Anon"})
		assert.ErrorIs(t, err, ErrEmptyTitle)
	})
}

func TestStore_UpdateMetadata(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		book, err := s.Create(ctx, models.NewBook{Title: "Charlotte's Web", Author: "E.B. White", ReadingLevel: "4.0", ISBN: "9780064400558"})
		require.NoError(t, err)

		level := models.Level("5.0")
		updated, err := s.UpdateMetadata(ctx, book.ID, models.MetadataUpdate{ReadingLevel: &level})
		require.NoError(t, err)
		assert.Equal(t, level, updated.ReadingLevel)
		assert.Equal(t, "9780064400558", updated.ISBN)

		got, err := s.Get(ctx, book.ID)
		require.NoError(t, err)
		assert.Equal(t, updated, got)
		assert.Equal(t, "Charlotte's Web", got.Title, "title is never overwritten")
	})
}

func TestStore_MissingBook(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.Get(ctx, "nope")
		assert.ErrorIs(t, err, models.ErrBookNotFound)

		_, err = s.UpdateMetadata(ctx, "nope", models.MetadataUpdate{})
		assert.ErrorIs(t, err, models.ErrBookNotFound)

		err = s.Delete(ctx, "nope")
		assert.ErrorIs(t, err, models.ErrBookNotFound)
	})
}

func TestStore_Delete(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		book, err := s.Create(ctx, models.NewBook{Title: "Holes"})
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, book.ID))

		books, err := s.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, books)
	})
}

func TestStore_CancelledContext(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := s.ListAll(ctx)
		assert.Error(t, err)
		_, err = s.Create(ctx, models.NewBook{Title: "Holes"})
		assert.Error(t, err)
	})
}

func TestMemoryStore_Seed(t *testing.T) {
	s := NewMemoryStore(
		models.LibraryBook{ID: "b2", Title: "Frindle"},
		models.LibraryBook{ID: "b1", Title: "Holes"},
	)

	books, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "b1", books[0].ID)
}

func TestSQLiteStore_MigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "library.db")

	s, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	book, err := s.Create(ctx, models.NewBook{Title: "Holes"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	version, err := reopened.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	got, err := reopened.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Holes", got.Title)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	require.NoError(t, s.Close())

	s, err = Open(ctx, filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())
}
