// Package importfile reads import batches from spreadsheet exports and data files.
package importfile

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/shelfimport/internal/models"
)

// Format is a supported import file format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatTSV     Format = "tsv"
	FormatJSONL   Format = "jsonl"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatParquet Format = "parquet"
)

// ErrNoTitleColumn is returned when a delimited file has no recognizable title header.
var ErrNoTitleColumn = errors.New("no title column found")

// FormatFromPath detects the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".tsv", ".tab":
		return FormatTSV, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".parquet":
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unsupported file format: %s (supported: .csv, .tsv, .jsonl, .json, .yaml, .parquet)", filepath.Ext(path))
	}
}

// Loader handles loading of import batches from disk
type Loader struct {
	path string
}

// NewLoader creates a new import file loader
func NewLoader(path string) *Loader {
	return &Loader{
		path: path,
	}
}

// Load reads every record from the file
func (l *Loader) Load() ([]models.ImportRecord, error) {
	format, err := FormatFromPath(l.path)
	if err != nil {
		return nil, err
	}

	slog.Debug("Opening import file", "path", l.path, "format", format)

	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if format == FormatParquet {
		return parseParquet(file, info.Size())
	}
	return Parse(file, format)
}

// Parse reads records in a streaming format. Parquet needs random access;
// use ParseBytes or Loader for it.
func Parse(r io.Reader, format Format) ([]models.ImportRecord, error) {
	switch format {
	case FormatCSV:
		return parseDelimited(r, ',')
	case FormatTSV:
		return parseDelimited(r, '\t')
	case FormatJSONL:
		return parseJSONL(r)
	case FormatJSON:
		return parseJSON(r)
	case FormatYAML:
		return parseYAML(r)
	case FormatParquet:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet data: %w", err)
		}
		return ParseBytes(data, format)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// ParseBytes reads records from an in-memory file.
func ParseBytes(data []byte, format Format) ([]models.ImportRecord, error) {
	if format == FormatParquet {
		return parseParquet(bytes.NewReader(data), int64(len(data)))
	}
	return Parse(bytes.NewReader(data), format)
}

// headerAliases maps normalized spreadsheet headers to record fields.
var headerAliases = map[string]string{
	"title":         "title",
	"book title":    "title",
	"book":          "title",
	"name":          "title",
	"author":        "author",
	"authors":       "author",
	"author name":   "author",
	"writer":        "author",
	"reading level": "reading_level",
	"level":         "reading_level",
	"grade level":   "reading_level",
	"guided level":  "reading_level",
	"isbn":          "isbn",
	"isbn13":        "isbn",
	"isbn 13":       "isbn",
	"isbn10":        "isbn",
	"isbn 10":       "isbn",
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	h = strings.NewReplacer("_", " ", "-", " ").Replace(h)
	return strings.Join(strings.Fields(h), " ")
}

// parseDelimited loads records from a CSV or TSV export with a header row
func parseDelimited(r io.Reader, comma rune) ([]models.ImportRecord, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return []models.ImportRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int)
	for i, h := range header {
		field, ok := headerAliases[normalizeHeader(h)]
		if !ok {
			slog.Debug("Ignoring unmapped column", "header", h)
			continue
		}
		if _, dup := columns[field]; !dup {
			columns[field] = i
		}
	}
	if _, ok := columns["title"]; !ok {
		return nil, fmt.Errorf("%w in header %v", ErrNoTitleColumn, header)
	}

	cell := func(row []string, field string) string {
		i, ok := columns[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := []models.ImportRecord{}
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to parse row at line %d: %w", line, err)
		}
		if isBlank(row) {
			continue
		}

		records = append(records, models.ImportRecord{
			Title:        cell(row, "title"),
			Author:       cell(row, "author"),
			ReadingLevel: models.Level(cell(row, "reading_level")),
			ISBN:         cell(row, "isbn"),
		})
	}

	slog.Debug("Finished reading delimited file", "total_records", len(records))
	return records, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseJSONL loads records from a JSONL stream
func parseJSONL(r io.Reader) ([]models.ImportRecord, error) {
	scanner := bufio.NewScanner(r)

	// Increase buffer size for long lines
	const maxCapacity = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)

	records := []models.ImportRecord{}
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var record models.ImportRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading import file: %w", err)
	}

	return records, nil
}

// parseJSON accepts either a JSON array of records or JSONL
func parseJSON(r io.Reader) ([]models.ImportRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return parseJSONL(bytes.NewReader(data))
	}

	records := []models.ImportRecord{}
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("failed to parse JSON array: %w", err)
	}
	return records, nil
}

// parseYAML accepts a YAML sequence of records, or a mapping with a records key
func parseYAML(r io.Reader) ([]models.ImportRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(node.Content) == 0 {
		return []models.ImportRecord{}, nil
	}

	records := []models.ImportRecord{}
	doc := node.Content[0]
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&records); err != nil {
			return nil, fmt.Errorf("failed to decode YAML records: %w", err)
		}
	case yaml.MappingNode:
		var wrapper struct {
			Records []models.ImportRecord `yaml:"records"`
		}
		if err := doc.Decode(&wrapper); err != nil {
			return nil, fmt.Errorf("failed to decode YAML records: %w", err)
		}
		if wrapper.Records != nil {
			records = wrapper.Records
		}
	default:
		return nil, fmt.Errorf("YAML import must be a list of records or a mapping with a records key")
	}

	return records, nil
}

// parseParquet loads records from a Parquet file
func parseParquet(r io.ReaderAt, size int64) ([]models.ImportRecord, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened successfully", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[models.ImportRecord](pf)
	defer reader.Close()

	records := []models.ImportRecord{}
	rows := make([]models.ImportRecord, 128) // Read in batches

	for {
		n, err := reader.Read(rows)
		if n > 0 {
			records = append(records, rows[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	slog.Debug("Finished reading Parquet file", "total_records", len(records))
	return records, nil
}
