package reconcile

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/lehigh-university-libraries/shelfimport/internal/models"
)

// Classifier assigns every import record in a batch to exactly one Kind.
type Classifier struct {
	threshold float64
	score     Scorer
}

// NewClassifier creates a classifier. A threshold outside (0,1] falls back
// to DefaultThreshold and a nil scorer to TokenOverlap.
func NewClassifier(threshold float64, score Scorer) *Classifier {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	if score == nil {
		score = TokenOverlap
	}
	return &Classifier{
		threshold: threshold,
		score:     score,
	}
}

// Threshold returns the minimum score for a possible match.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

type keyedBook struct {
	key  Key
	book models.LibraryBook
}

// Classify returns one classification per record, in input order. Records
// are only compared against earlier records of the same batch, never later ones.
func (c *Classifier) Classify(records []models.ImportRecord, existing []models.LibraryBook) []Classification {
	library := make([]keyedBook, 0, len(existing))
	for _, book := range existing {
		library = append(library, keyedBook{key: Normalize(book.Title, book.Author), book: book})
	}
	// Sorting by ID makes every tie-break below resolve to the smaller identifier
	sort.Slice(library, func(i, j int) bool {
		return library[i].book.ID < library[j].book.ID
	})

	exact := make(map[Key]models.LibraryBook, len(library))
	for _, kb := range library {
		if _, seen := exact[kb.key]; !seen {
			exact[kb.key] = kb.book
		}
	}

	// First in-batch row for each key that is headed for creation or review
	pending := make(map[Key]int)

	results := make([]Classification, len(records))
	for i, record := range records {
		results[i] = c.classifyOne(i, record, library, exact, pending, records)
	}

	summary := Summarize(results)
	slog.Debug("Classified import batch",
		"records", len(records),
		"library_size", len(existing),
		"matched", summary[KindMatched],
		"conflicts", summary[KindConflict],
		"possible_matches", summary[KindPossibleMatch],
		"new", summary[KindNew],
		"already_in_library", summary[KindAlreadyInLibrary],
		"invalid", summary[KindInvalid])

	return results
}

func (c *Classifier) classifyOne(
	index int,
	record models.ImportRecord,
	library []keyedBook,
	exact map[Key]models.LibraryBook,
	pending map[Key]int,
	records []models.ImportRecord,
) Classification {
	result := Classification{Index: index, Record: record}

	key := Normalize(record.Title, record.Author)
	if key.Title() == "" {
		verr := &ValidationError{Index: index, Reason: "title is empty after normalization"}
		result.Kind = KindInvalid
		result.Error = verr.Error()
		slog.Debug("Rejected import record", "index", index, "err", verr)
		return result
	}

	if book, ok := exact[key]; ok {
		existing := book
		result.Existing = &existing
		result.Differences = compareMetadata(record, book)
		if len(result.Differences) > 0 {
			result.Kind = KindConflict
		} else {
			result.Kind = KindMatched
		}
		return result
	}

	if earlier, ok := pending[key]; ok {
		dup := earlier
		result.DuplicateOf = &dup
		result.Differences = compareRecords(record, records[earlier])
		if len(result.Differences) > 0 {
			result.Kind = KindConflict
		} else {
			result.Kind = KindAlreadyInLibrary
		}
		return result
	}

	best, score := c.bestCandidate(key, library)
	if best != nil && score >= c.threshold {
		result.Kind = KindPossibleMatch
		result.Existing = best
		result.Score = score
	} else {
		result.Kind = KindNew
	}
	pending[key] = index

	return result
}

// bestCandidate returns the highest scoring book. library is sorted by ID,
// so keeping the first of equal scores prefers the smaller identifier.
func (c *Classifier) bestCandidate(key Key, library []keyedBook) (*models.LibraryBook, float64) {
	var best *models.LibraryBook
	bestScore := 0.0

	for i := range library {
		score := c.score(key, library[i].key)
		if score > bestScore {
			book := library[i].book
			best = &book
			bestScore = score
		}
	}

	return best, bestScore
}

// compareMetadata lists the comparable fields where the import disagrees
// with the library. A reading level the import provides must match the
// existing one (an empty existing level counts as different); ISBNs are
// only compared when both sides have one.
func compareMetadata(record models.ImportRecord, book models.LibraryBook) []FieldDifference {
	var diffs []FieldDifference

	if !record.ReadingLevel.IsZero() && !record.ReadingLevel.Equal(book.ReadingLevel) {
		diffs = append(diffs, FieldDifference{
			Field:    "reading_level",
			Imported: strings.TrimSpace(record.ReadingLevel.String()),
			Existing: strings.TrimSpace(book.ReadingLevel.String()),
		})
	}

	if strings.TrimSpace(record.ISBN) != "" && strings.TrimSpace(book.ISBN) != "" && !isbnEqual(record.ISBN, book.ISBN) {
		diffs = append(diffs, FieldDifference{
			Field:    "isbn",
			Imported: strings.TrimSpace(record.ISBN),
			Existing: strings.TrimSpace(book.ISBN),
		})
	}

	return diffs
}

// compareRecords is compareMetadata for an in-batch duplicate; the earlier
// row plays the part of the existing book.
func compareRecords(record, earlier models.ImportRecord) []FieldDifference {
	return compareMetadata(record, recordAsBook(earlier))
}

func recordAsBook(r models.ImportRecord) models.LibraryBook {
	return models.LibraryBook{
		Title:        r.Title,
		Author:       r.Author,
		ReadingLevel: r.ReadingLevel,
		ISBN:         r.ISBN,
	}
}
