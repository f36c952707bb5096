// Package storage provides the library book stores used by the import engine.
package storage

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lehigh-university-libraries/shelfimport/internal/models"
)

// ErrEmptyTitle is returned when creating a book without a title.
var ErrEmptyTitle = errors.New("book title cannot be empty")

// Store is a library book store.
type Store interface {
	ListAll(ctx context.Context) ([]models.LibraryBook, error)
	Get(ctx context.Context, id string) (models.LibraryBook, error)
	Create(ctx context.Context, book models.NewBook) (models.LibraryBook, error)
	UpdateMetadata(ctx context.Context, id string, fields models.MetadataUpdate) (models.LibraryBook, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Open returns a SQLite store at dbPath, or an in-memory store when dbPath is empty.
func Open(ctx context.Context, dbPath string) (Store, error) {
	if dbPath == "" {
		slog.Warn("No database configured, library is kept in memory only")
		return NewMemoryStore(), nil
	}
	s, err := NewSQLiteStore(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	return s, nil
}
