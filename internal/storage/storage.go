package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/shelfimport/internal/models"
)

// MemoryStore keeps the library in process memory
type MemoryStore struct {
	books map[string]models.LibraryBook
	mu    sync.RWMutex
}

func NewMemoryStore(seed ...models.LibraryBook) *MemoryStore {
	s := &MemoryStore{
		books: make(map[string]models.LibraryBook, len(seed)),
	}
	for _, b := range seed {
		s.books[b.ID] = b
	}
	return s
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]models.LibraryBook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.LibraryBook, 0, len(s.books))
	for _, b := range s.books {
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (models.LibraryBook, error) {
	if err := ctx.Err(); err != nil {
		return models.LibraryBook{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	book, exists := s.books[id]
	if !exists {
		return models.LibraryBook{}, fmt.Errorf("book %s: %w", id, models.ErrBookNotFound)
	}
	return book, nil
}

func (s *MemoryStore) Create(ctx context.Context, book models.NewBook) (models.LibraryBook, error) {
	if err := ctx.Err(); err != nil {
		return models.LibraryBook{}, err
	}
	if strings.TrimSpace(book.Title) == "" {
		return models.LibraryBook{}, ErrEmptyTitle
	}

	created := models.LibraryBook{
		ID:           uuid.NewString(),
		Title:        book.Title,
		Author:       book.Author,
		ReadingLevel: book.ReadingLevel,
		ISBN:         book.ISBN,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[created.ID] = created
	return created, nil
}

func (s *MemoryStore) UpdateMetadata(ctx context.Context, id string, fields models.MetadataUpdate) (models.LibraryBook, error) {
	if err := ctx.Err(); err != nil {
		return models.LibraryBook{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	book, exists := s.books[id]
	if !exists {
		return models.LibraryBook{}, fmt.Errorf("book %s: %w", id, models.ErrBookNotFound)
	}
	book = fields.Apply(book)
	s.books[id] = book
	return book, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.books[id]; !exists {
		return fmt.Errorf("book %s: %w", id, models.ErrBookNotFound)
	}
	delete(s.books, id)
	return nil
}

// Close is a no-op; it lets MemoryStore satisfy Store.
func (s *MemoryStore) Close() error {
	return nil
}
