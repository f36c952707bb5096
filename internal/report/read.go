package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/shelfimport/internal/reconcile"
)

// ReadPreview loads a preview previously written as JSON or YAML.
func ReadPreview(path string) (*Preview, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preview file: %w", err)
	}

	var preview Preview
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &preview)
	default:
		err = json.Unmarshal(data, &preview)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse preview file %s: %w", path, err)
	}
	if preview.Classifications == nil {
		return nil, fmt.Errorf("preview file %s has no classifications list", path)
	}

	return &preview, nil
}

// ReadDecisions loads reviewer decisions keyed by existing book ID or
// "row:N" for in-batch conflicts. JSON and YAML files hold a mapping; CSV
// files need book_id and decision columns.
func ReadDecisions(path string) (reconcile.Decisions, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open decisions file: %w", err)
	}
	defer file.Close()

	var raw map[string]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		raw, err = readDecisionsCSV(file)
	case ".yaml", ".yml":
		err = yaml.NewDecoder(file).Decode(&raw)
		if err == io.EOF {
			err = nil
		}
	default:
		err = json.NewDecoder(file).Decode(&raw)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse decisions file %s: %w", path, err)
	}

	decisions := make(reconcile.Decisions, len(raw))
	for bookID, value := range raw {
		decision, err := reconcile.ParseDecision(value)
		if err != nil {
			return nil, fmt.Errorf("book %s: %w", bookID, err)
		}
		decisions[bookID] = decision
	}
	return decisions, nil
}

func readDecisionsCSV(r io.Reader) (map[string]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	idCol, decisionCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "book_id", "book id", "id", "existing_id":
			idCol = i
		case "decision":
			decisionCol = i
		}
	}
	if idCol < 0 || decisionCol < 0 {
		return nil, fmt.Errorf("decisions CSV needs book_id and decision columns, got %v", header)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	raw := make(map[string]string, len(rows))
	for _, row := range rows {
		if idCol >= len(row) || decisionCol >= len(row) {
			continue
		}
		id := strings.TrimSpace(row[idCol])
		if id == "" {
			continue
		}
		raw[id] = row[decisionCol]
	}
	return raw, nil
}
