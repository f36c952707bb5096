package reconcile

import (
	"fmt"

	"github.com/lehigh-university-libraries/shelfimport/internal/models"
)

// Kind tags a Classification.
type Kind string

const (
	KindMatched          Kind = "matched"
	KindConflict         Kind = "conflict"
	KindPossibleMatch    Kind = "possible_match"
	KindNew              Kind = "new"
	KindAlreadyInLibrary Kind = "already_in_library"
	KindInvalid          Kind = "invalid"
)

// Kinds lists every classification kind in report order.
var Kinds = []Kind{KindMatched, KindConflict, KindPossibleMatch, KindNew, KindAlreadyInLibrary, KindInvalid}

// FieldDifference describes one metadata field that disagrees between an
// import record and the existing book.
type FieldDifference struct {
	Field    string `json:"field" yaml:"field"`
	Imported string `json:"imported" yaml:"imported"`
	Existing string `json:"existing" yaml:"existing"`
}

// Classification is the engine's determination of how one import record
// relates to the library. Kind decides which payload fields are set:
//
//	matched:               Existing
//	conflict:              Differences, plus Existing or DuplicateOf (the
//	                       earlier row it disagrees with)
//	possible_match:        Existing, Score
//	new:                   nothing
//	already_in_library:    DuplicateOf (the earlier row whose outcome it shares)
//	invalid:               Error
type Classification struct {
	Index       int                 `json:"index" yaml:"index"`
	Kind        Kind                `json:"kind" yaml:"kind"`
	Record      models.ImportRecord `json:"record" yaml:"record"`
	Existing    *models.LibraryBook `json:"existing,omitempty" yaml:"existing,omitempty"`
	Score       float64             `json:"score,omitempty" yaml:"score,omitempty"`
	DuplicateOf *int                `json:"duplicate_of,omitempty" yaml:"duplicate_of,omitempty"`
	Differences []FieldDifference   `json:"differences,omitempty" yaml:"differences,omitempty"`
	Error       string              `json:"error,omitempty" yaml:"error,omitempty"`
}

// NeedsDecision reports whether a human must accept or reject this classification.
func (c Classification) NeedsDecision() bool {
	return c.Kind == KindPossibleMatch || c.Kind == KindConflict
}

// DecisionKey is the Decisions key for this classification: the existing
// book ID, or "row:N" for a conflict with earlier row N of the same batch.
func (c Classification) DecisionKey() string {
	switch {
	case c.Existing != nil:
		return c.Existing.ID
	case c.DuplicateOf != nil:
		return fmt.Sprintf("row:%d", *c.DuplicateOf)
	}
	return ""
}

// Validate checks that the payload matches the kind. position is the
// index the classification occupies in its batch.
func (c Classification) Validate(position int) error {
	if c.Index != position {
		return malformed("classification at position %d has index %d", position, c.Index)
	}

	switch c.Kind {
	case KindConflict:
		if c.DuplicateOf == nil {
			if c.Existing == nil || c.Existing.ID == "" {
				return malformed("conflict classification at position %d has no existing book", position)
			}
			break
		}
		if c.Existing != nil {
			return malformed("conflict classification at position %d has both an existing book and duplicate_of", position)
		}
		if *c.DuplicateOf < 0 || *c.DuplicateOf >= position {
			return malformed("duplicate_of %d at position %d must point at an earlier record", *c.DuplicateOf, position)
		}
	case KindMatched, KindPossibleMatch:
		if c.Existing == nil || c.Existing.ID == "" {
			return malformed("%s classification at position %d has no existing book", c.Kind, position)
		}
		if c.Kind == KindPossibleMatch && (c.Score < 0 || c.Score > 1) {
			return malformed("score %.3f at position %d is outside [0,1]", c.Score, position)
		}
	case KindNew:
		if c.Existing != nil {
			return malformed("new classification at position %d references an existing book", position)
		}
	case KindAlreadyInLibrary:
		if c.DuplicateOf == nil {
			return malformed("already_in_library classification at position %d has no duplicate_of", position)
		}
		if *c.DuplicateOf < 0 || *c.DuplicateOf >= position {
			return malformed("duplicate_of %d at position %d must point at an earlier record", *c.DuplicateOf, position)
		}
	case KindInvalid:
		if c.Error == "" {
			return malformed("invalid classification at position %d has no error", position)
		}
	default:
		return malformed("unknown classification kind %q at position %d", c.Kind, position)
	}

	return nil
}

// ValidateBatch validates every classification in order.
func ValidateBatch(classifications []Classification) error {
	for i, c := range classifications {
		if err := c.Validate(i); err != nil {
			return err
		}
		follows := c.Kind == KindAlreadyInLibrary || c.Kind == KindConflict
		if follows && c.DuplicateOf != nil && classifications[*c.DuplicateOf].Kind == KindInvalid {
			return malformed("record %d duplicates invalid record %d", i, *c.DuplicateOf)
		}
	}
	return nil
}

// Summary counts classifications per kind.
type Summary map[Kind]int

// Summarize tallies a classification batch.
func Summarize(classifications []Classification) Summary {
	summary := make(Summary, len(Kinds))
	for _, k := range Kinds {
		summary[k] = 0
	}
	for _, c := range classifications {
		summary[c.Kind]++
	}
	return summary
}
