// Package report renders previews, import results and book lists as text
// tables, JSON, CSV or YAML.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/shelfimport/internal/models"
	"github.com/lehigh-university-libraries/shelfimport/internal/reconcile"
)

// Format is an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatCSV, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (supported: text, json, csv, yaml)", s)
	}
}

// Preview is the serialized form of a preview call.
type Preview struct {
	Classifications []reconcile.Classification `json:"classifications" yaml:"classifications"`
	Summary         reconcile.Summary          `json:"summary" yaml:"summary"`
}

// NewPreview wraps classifications with their summary.
func NewPreview(classifications []reconcile.Classification) Preview {
	return Preview{
		Classifications: classifications,
		Summary:         reconcile.Summarize(classifications),
	}
}

// WritePreview renders a preview.
func WritePreview(w io.Writer, format Format, preview Preview) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, preview)
	case FormatYAML:
		return writeYAML(w, preview)
	case FormatCSV:
		return writeCSV(w, previewHeader, previewRows(preview.Classifications))
	case FormatText:
		fmt.Fprintln(w, renderTable(previewHeader, previewRows(preview.Classifications), []int{0, 6}))
		fmt.Fprintln(w, summaryLine(preview.Summary))
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// WriteResult renders an import result.
func WriteResult(w io.Writer, format Format, result *reconcile.ImportResult) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatYAML:
		return writeYAML(w, result)
	case FormatCSV:
		return writeCSV(w, resultHeader, resultRows(result.Outcomes))
	case FormatText:
		fmt.Fprintln(w, renderTable(resultHeader, resultRows(result.Outcomes), []int{0}))
		fmt.Fprintf(w, "linked: %d  created: %d  updated: %d  skipped: %d  failed: %d\n",
			result.Linked, result.Created, result.Updated, result.Skipped, result.Failed)
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// WriteBooks renders a list of library books.
func WriteBooks(w io.Writer, format Format, books []models.LibraryBook) error {
	header := []string{"ID", "Title", "Author", "Level", "ISBN"}
	rows := make([][]string, 0, len(books))
	for _, b := range books {
		rows = append(rows, []string{b.ID, b.Title, b.Author, b.ReadingLevel.String(), b.ISBN})
	}

	switch format {
	case FormatJSON:
		return writeJSON(w, books)
	case FormatYAML:
		return writeYAML(w, books)
	case FormatCSV:
		return writeCSV(w, header, rows)
	case FormatText:
		fmt.Fprintln(w, renderTable(header, rows, nil))
		fmt.Fprintf(w, "%d books\n", len(books))
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

var previewHeader = []string{"#", "Kind", "Title", "Author", "Level", "Existing", "Score", "Notes"}

func previewRows(classifications []reconcile.Classification) [][]string {
	rows := make([][]string, 0, len(classifications))
	for _, c := range classifications {
		existing := ""
		switch {
		case c.Existing != nil:
			existing = fmt.Sprintf("%s (%s)", c.Existing.Title, c.Existing.ID)
		case c.NeedsDecision():
			// in-batch conflicts are decided under their row key
			existing = c.DecisionKey()
		}
		score := ""
		if c.Kind == reconcile.KindPossibleMatch {
			score = strconv.FormatFloat(c.Score, 'f', 2, 64)
		}
		rows = append(rows, []string{
			strconv.Itoa(c.Index),
			string(c.Kind),
			c.Record.Title,
			c.Record.Author,
			c.Record.ReadingLevel.String(),
			existing,
			score,
			notes(c),
		})
	}
	return rows
}

func notes(c reconcile.Classification) string {
	var parts []string
	if c.DuplicateOf != nil {
		parts = append(parts, fmt.Sprintf("duplicate of #%d", *c.DuplicateOf))
	}
	for _, d := range c.Differences {
		parts = append(parts, fmt.Sprintf("%s: %q vs %q", d.Field, d.Imported, d.Existing))
	}
	if c.Error != "" {
		parts = append(parts, c.Error)
	}
	return strings.Join(parts, "; ")
}

var resultHeader = []string{"#", "Action", "Book ID", "Demoted", "Error"}

func resultRows(outcomes []reconcile.Outcome) [][]string {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		demoted := ""
		if o.Demoted {
			demoted = "yes"
		}
		rows = append(rows, []string{strconv.Itoa(o.Index), string(o.Action), o.BookID, demoted, o.Error})
	}
	return rows
}

func summaryLine(summary reconcile.Summary) string {
	parts := make([]string, 0, len(reconcile.Kinds))
	for _, k := range reconcile.Kinds {
		parts = append(parts, fmt.Sprintf("%s: %d", k, summary[k]))
	}
	return strings.Join(parts, "  ")
}

// renderTable draws a rounded table; rightAligned lists zero-based columns
// to align right.
func renderTable(headers []string, rows [][]string, rightAligned []int) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(rightAligned))
	for _, col := range rightAligned {
		configs = append(configs, table.ColumnConfig{
			Number:      col + 1,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return encoder.Close()
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	return writer.Error()
}
