package importfile

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/lehigh-university-libraries/shelfimport/internal/models"
)

var sampleRecords = []models.ImportRecord{
	{Title: "Charlotte's Web", Author: "E.B. White", ReadingLevel: "4.0", ISBN: "9780064400558"},
	{Title: "Hop on Pop", Author: "Dr. Seuss"},
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path     string
		expected Format
	}{
		{"books.csv", FormatCSV},
		{"BOOKS.CSV", FormatCSV},
		{"books.tsv", FormatTSV},
		{"books.jsonl", FormatJSONL},
		{"books.ndjson", FormatJSONL},
		{"books.json", FormatJSON},
		{"books.yml", FormatYAML},
		{"books.parquet", FormatParquet},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}

	if _, err := FormatFromPath("books.xlsx"); err == nil {
		t.Error("Expected error for unsupported extension")
	}
}

func TestParseCSV(t *testing.T) {
	data := "\ufeffBook Title,Author Name,Grade Level,ISBN-13,Shelf\n" +
		"Charlotte's Web,E.B. White,4.0,9780064400558,A3\n" +
		",,,,\n" +
		"Hop on Pop,Dr. Seuss,,,B1\n"

	records, err := Parse(strings.NewReader(data), FormatCSV)
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}
	if !reflect.DeepEqual(records, sampleRecords) {
		t.Errorf("Expected %+v, got %+v", sampleRecords, records)
	}
}

func TestParseTSV(t *testing.T) {
	data := "title\tauthor\treading_level\n" +
		"Charlotte's Web\tE.B. White\t4.0\n" +
		"Hop on Pop\tDr. Seuss\n"

	records, err := Parse(strings.NewReader(data), FormatTSV)
	if err != nil {
		t.Fatalf("Failed to parse TSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].ReadingLevel != "4.0" {
		t.Errorf("Expected level 4.0, got %q", records[0].ReadingLevel)
	}
	if records[1].ReadingLevel != "" {
		t.Errorf("Expected short row to leave level empty, got %q", records[1].ReadingLevel)
	}
}

func TestParseCSVWithoutTitle(t *testing.T) {
	_, err := Parse(strings.NewReader("author,level\nE.B. White,4\n"), FormatCSV)
	if !errors.Is(err, ErrNoTitleColumn) {
		t.Errorf("Expected ErrNoTitleColumn, got %v", err)
	}
}

func TestParseEmptyCSV(t *testing.T) {
	records, err := Parse(strings.NewReader(""), FormatCSV)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("Expected an empty non-nil batch, got %#v", records)
	}
}

func TestParseJSONL(t *testing.T) {
	data := `{"title":"Charlotte's Web","author":"E.B. White","reading_level":"4.0","isbn":"9780064400558"}

{"title":"Hop on Pop","author":"Dr. Seuss"}
`
	records, err := Parse(strings.NewReader(data), FormatJSONL)
	if err != nil {
		t.Fatalf("Failed to parse JSONL: %v", err)
	}
	if !reflect.DeepEqual(records, sampleRecords) {
		t.Errorf("Expected %+v, got %+v", sampleRecords, records)
	}

	_, err = Parse(strings.NewReader("{\"title\":\"ok\"}\n{broken\n"), FormatJSONL)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("Expected error mentioning line 2, got %v", err)
	}
}

func TestParseJSON(t *testing.T) {
	data := `[
  {"title":"Charlotte's Web","author":"E.B. White","reading_level":4.0,"isbn":"9780064400558"},
  {"title":"Hop on Pop","author":"Dr. Seuss","reading_level":null}
]`
	records, err := Parse(strings.NewReader(data), FormatJSON)
	if err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	// Numbers keep their literal text
	if records[0].ReadingLevel != "4.0" {
		t.Errorf("Expected level 4.0, got %q", records[0].ReadingLevel)
	}
	if !records[1].ReadingLevel.IsZero() {
		t.Errorf("Expected null level to be empty, got %q", records[1].ReadingLevel)
	}

	// JSON files holding JSONL are accepted too
	records, err = Parse(strings.NewReader(`{"title":"Holes"}`+"\n"), FormatJSON)
	if err != nil || len(records) != 1 {
		t.Errorf("Expected one JSONL record, got %v, %v", records, err)
	}
}

func TestParseYAML(t *testing.T) {
	sequence := `
- title: Charlotte's Web
  author: E.B. White
  reading_level: 4.0
  isbn: "9780064400558"
- title: Hop on Pop
  author: Dr. Seuss
`
	records, err := Parse(strings.NewReader(sequence), FormatYAML)
	if err != nil {
		t.Fatalf("Failed to parse YAML: %v", err)
	}
	if !reflect.DeepEqual(records, sampleRecords) {
		t.Errorf("Expected %+v, got %+v", sampleRecords, records)
	}

	wrapped := "records:\n  - title: Holes\n    author: Louis Sachar\n"
	records, err = Parse(strings.NewReader(wrapped), FormatYAML)
	if err != nil {
		t.Fatalf("Failed to parse wrapped YAML: %v", err)
	}
	if len(records) != 1 || records[0].Title != "Holes" {
		t.Errorf("Unexpected records: %+v", records)
	}

	if _, err := Parse(strings.NewReader("just a string"), FormatYAML); err == nil {
		t.Error("Expected error for scalar YAML document")
	}
}

func TestLoadParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.parquet")
	if err := parquet.WriteFile(path, sampleRecords); err != nil {
		t.Fatalf("Failed to write parquet fixture: %v", err)
	}

	records, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Failed to load parquet: %v", err)
	}
	if !reflect.DeepEqual(records, sampleRecords) {
		t.Errorf("Expected %+v, got %+v", sampleRecords, records)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}
	records, err = ParseBytes(data, FormatParquet)
	if err != nil {
		t.Fatalf("Failed to parse parquet bytes: %v", err)
	}
	if len(records) != len(sampleRecords) {
		t.Errorf("Expected %d records, got %d", len(sampleRecords), len(records))
	}
}

func TestLoadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.csv")
	if err := os.WriteFile(path, []byte("title,author\nHoles,Louis Sachar\n"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	records, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Failed to load CSV: %v", err)
	}
	if len(records) != 1 || records[0].Author != "Louis Sachar" {
		t.Errorf("Unexpected records: %+v", records)
	}

	if _, err := NewLoader(filepath.Join(t.TempDir(), "missing.csv")).Load(); err == nil {
		t.Error("Expected error for missing file")
	}
}
