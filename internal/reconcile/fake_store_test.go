package reconcile

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lehigh-university-libraries/shelfimport/internal/models"
)

type updateCall struct {
	id     string
	fields models.MetadataUpdate
}

// fakeStore records every call so tests can assert on the writes issued.
type fakeStore struct {
	mu      sync.Mutex
	books   map[string]models.LibraryBook
	nextID  int
	creates []models.NewBook
	updates []updateCall

	listErr   error
	createErr func(models.NewBook) error
	updateErr func(id string) error
	block     bool
}

func newFakeStore(books ...models.LibraryBook) *fakeStore {
	s := &fakeStore{books: make(map[string]models.LibraryBook)}
	for _, b := range books {
		s.books[b.ID] = b
	}
	return s
}

func (s *fakeStore) ListAll(ctx context.Context) ([]models.LibraryBook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.LibraryBook, 0, len(s.books))
	for _, b := range s.books {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) Create(ctx context.Context, book models.NewBook) (models.LibraryBook, error) {
	if s.block {
		<-ctx.Done()
		return models.LibraryBook{}, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates = append(s.creates, book)
	if s.createErr != nil {
		if err := s.createErr(book); err != nil {
			return models.LibraryBook{}, err
		}
	}
	s.nextID++
	created := models.LibraryBook{
		ID:           fmt.Sprintf("new-%03d", s.nextID),
		Title:        book.Title,
		Author:       book.Author,
		ReadingLevel: book.ReadingLevel,
		ISBN:         book.ISBN,
	}
	s.books[created.ID] = created
	return created, nil
}

func (s *fakeStore) UpdateMetadata(ctx context.Context, id string, fields models.MetadataUpdate) (models.LibraryBook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, updateCall{id: id, fields: fields})
	if s.updateErr != nil {
		if err := s.updateErr(id); err != nil {
			return models.LibraryBook{}, err
		}
	}
	book, ok := s.books[id]
	if !ok {
		return models.LibraryBook{}, fmt.Errorf("book %s: %w", id, models.ErrBookNotFound)
	}
	book = fields.Apply(book)
	s.books[id] = book
	return book, nil
}

func (s *fakeStore) writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.creates) + len(s.updates)
}

func charlottesWeb() models.LibraryBook {
	return models.LibraryBook{ID: "b1", Title: "Charlotte's Web", Author: "E.B. White", ReadingLevel: "4.0"}
}
