package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Level is a reading level label. Spreadsheets hand these over as either
// text ("4.0", "K") or numbers (4), so both decode into the same type.
type Level string

// UnmarshalJSON accepts a JSON string, number or null.
func (l *Level) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Level(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("reading level must be a string or number: %w", err)
	}
	*l = Level(n.String())
	return nil
}

// UnmarshalYAML accepts any scalar node.
func (l *Level) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("reading level must be a scalar, got line %d", node.Line)
	}
	if node.Tag == "!!null" {
		*l = ""
		return nil
	}
	*l = Level(node.Value)
	return nil
}

// IsZero reports whether no level was provided.
func (l Level) IsZero() bool {
	return strings.TrimSpace(string(l)) == ""
}

// Equal compares two levels. Numeric labels compare by value so "4" and
// "4.0" agree; anything else compares case-insensitively after trimming.
func (l Level) Equal(other Level) bool {
	a := strings.TrimSpace(string(l))
	b := strings.TrimSpace(string(other))
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return fa == fb
	}
	return strings.EqualFold(a, b)
}

func (l Level) String() string {
	return string(l)
}
