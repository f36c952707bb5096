// Package reconcile decides how a batch of imported book records relates to
// the existing library and applies a reviewer's decisions as one batch of
// store mutations.
//
// Preview and Confirm are independent, stateless calls: the caller keeps the
// preview's classifications and sends them back with its decisions.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/shelfimport/internal/models"
)

// Engine ties the classifier and applier to a book store.
type Engine struct {
	store      BookStore
	classifier *Classifier
	applier    *Applier
}

// NewEngine creates an engine over store.
func NewEngine(store BookStore, classifier *Classifier, applier *Applier) *Engine {
	if classifier == nil {
		classifier = NewClassifier(DefaultThreshold, TokenOverlap)
	}
	if applier == nil {
		applier = NewApplier(DefaultStoreTimeout, DefaultWriteConcurrency)
	}
	return &Engine{
		store:      store,
		classifier: classifier,
		applier:    applier,
	}
}

// Preview classifies records against the current library. It never writes.
func (e *Engine) Preview(ctx context.Context, records []models.ImportRecord) ([]Classification, error) {
	if records == nil {
		return nil, malformed("records must be a list")
	}

	books, err := e.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list library books: %w", err)
	}

	slog.Info("Previewing import batch", "records", len(records), "library_size", len(books))
	return e.classifier.Classify(records, books), nil
}

// Confirm applies decisions to a previously previewed batch.
func (e *Engine) Confirm(ctx context.Context, classifications []Classification, decisions Decisions) (*ImportResult, error) {
	if classifications == nil {
		return nil, malformed("classifications must be a list")
	}
	if decisions == nil {
		decisions = Decisions{}
	}
	return e.applier.Apply(ctx, classifications, decisions, e.store)
}
