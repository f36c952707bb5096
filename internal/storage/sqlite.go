package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/shelfimport/internal/models"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore persists the library in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// brings its schema up to date.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Writes from the applier arrive concurrently; SQLite serializes them anyway
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{db: db, dbPath: dbPath}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]models.LibraryBook, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, COALESCE(author, ''), COALESCE(reading_level, ''), COALESCE(isbn, '')
		FROM books
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	books := []models.LibraryBook{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating books: %w", err)
	}

	return books, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (models.LibraryBook, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, COALESCE(author, ''), COALESCE(reading_level, ''), COALESCE(isbn, '')
		FROM books
		WHERE id = ?`, id)

	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.LibraryBook{}, fmt.Errorf("book %s: %w", id, models.ErrBookNotFound)
	}
	return book, err
}

func (s *SQLiteStore) Create(ctx context.Context, book models.NewBook) (models.LibraryBook, error) {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (id, title, author, reading_level, isbn)
		VALUES (?, ?, ?, ?, ?)`,
		created.ID, created.Title, nullable(created.Author), nullable(string(created.ReadingLevel)), nullable(created.ISBN))
	if err != nil {
		return models.LibraryBook{}, fmt.Errorf("failed to insert book: %w", err)
	}

	return created, nil
}

func (s *SQLiteStore) UpdateMetadata(ctx context.Context, id string, fields models.MetadataUpdate) (models.LibraryBook, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.LibraryBook{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT id, title, COALESCE(author, ''), COALESCE(reading_level, ''), COALESCE(isbn, '')
		FROM books
		WHERE id = ?`, id)
	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.LibraryBook{}, fmt.Errorf("book %s: %w", id, models.ErrBookNotFound)
	}
	if err != nil {
		return models.LibraryBook{}, err
	}

	book = fields.Apply(book)
	_, err = tx.ExecContext(ctx, `
		UPDATE books
		SET reading_level = ?, isbn = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		nullable(string(book.ReadingLevel)), nullable(book.ISBN), id)
	if err != nil {
		return models.LibraryBook{}, fmt.Errorf("failed to update book: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.LibraryBook{}, fmt.Errorf("failed to commit update: %w", err)
	}
	return book, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("book %s: %w", id, models.ErrBookNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (models.LibraryBook, error) {
	var book models.LibraryBook
	var level string
	if err := row.Scan(&book.ID, &book.Title, &book.Author, &level, &book.ISBN); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return book, err
		}
		return book, fmt.Errorf("failed to scan book: %w", err)
	}
	book.ReadingLevel = models.Level(level)
	return book, nil
}

// nullable stores empty strings as NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
