package models

import (
	"errors"
	"strings"
)

// ErrBookNotFound is returned by book stores when an ID no longer exists.
var ErrBookNotFound = errors.New("book not found")

// ImportRecord represents one row of an external import batch after column mapping
type ImportRecord struct {
	Title        string `json:"title" yaml:"title" parquet:"title"`
	Author       string `json:"author,omitempty" yaml:"author,omitempty" parquet:"author,optional"`
	ReadingLevel Level  `json:"reading_level,omitempty" yaml:"reading_level,omitempty" parquet:"reading_level,optional"`
	ISBN         string `json:"isbn,omitempty" yaml:"isbn,omitempty" parquet:"isbn,optional"`
}

// LibraryBook represents a book already in the library
type LibraryBook struct {
	ID           string `json:"id" yaml:"id"`
	Title        string `json:"title" yaml:"title"`
	Author       string `json:"author,omitempty" yaml:"author,omitempty"`
	ReadingLevel Level  `json:"reading_level,omitempty" yaml:"reading_level,omitempty"`
	ISBN         string `json:"isbn,omitempty" yaml:"isbn,omitempty"`
}

// NewBook holds the fields used to create a library book
type NewBook struct {
	Title        string
	Author       string
	ReadingLevel Level
	ISBN         string
}

// MetadataUpdate lists the fields to overwrite on an existing book. Nil fields are left alone.
type MetadataUpdate struct {
	ReadingLevel *Level  `json:"reading_level,omitempty"`
	ISBN         *string `json:"isbn,omitempty"`
}

// IsEmpty reports whether the update would change nothing.
func (u MetadataUpdate) IsEmpty() bool {
	return u.ReadingLevel == nil && u.ISBN == nil
}

// Apply returns a copy of book with the update applied.
func (u MetadataUpdate) Apply(book LibraryBook) LibraryBook {
	if u.ReadingLevel != nil {
		book.ReadingLevel = *u.ReadingLevel
	}
	if u.ISBN != nil {
		book.ISBN = *u.ISBN
	}
	return book
}

// Merge layers a later update over u; fields set in later win.
func (u MetadataUpdate) Merge(later MetadataUpdate) MetadataUpdate {
	if later.ReadingLevel != nil {
		u.ReadingLevel = later.ReadingLevel
	}
	if later.ISBN != nil {
		u.ISBN = later.ISBN
	}
	return u
}

// NewBookFromRecord trims the import record fields into a NewBook
func NewBookFromRecord(r ImportRecord) NewBook {
	return NewBook{
		Title:        strings.TrimSpace(r.Title),
		Author:       strings.TrimSpace(r.Author),
		ReadingLevel: Level(strings.TrimSpace(string(r.ReadingLevel))),
		ISBN:         strings.TrimSpace(r.ISBN),
	}
}
