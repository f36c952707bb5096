package reconcile

import (
	"context"

	"github.com/lehigh-university-libraries/shelfimport/internal/models"
)

// BookStore is the library persistence the engine reads from and writes to.
// UpdateMetadata returns an error wrapping models.ErrBookNotFound when the
// ID no longer exists.
type BookStore interface {
	ListAll(ctx context.Context) ([]models.LibraryBook, error)
	Create(ctx context.Context, book models.NewBook) (models.LibraryBook, error)
	UpdateMetadata(ctx context.Context, id string, fields models.MetadataUpdate) (models.LibraryBook, error)
}
