package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/shelfimport/internal/models"
)

// Action is the terminal outcome for one import record.
type Action string

const (
	ActionLink   Action = "link"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionSkip   Action = "skip"
)

// Outcome records what happened to one import record during confirm.
type Outcome struct {
	Index   int    `json:"index" yaml:"index"`
	Action  Action `json:"action" yaml:"action"`
	BookID  string `json:"book_id,omitempty" yaml:"book_id,omitempty"`
	Demoted bool   `json:"demoted,omitempty" yaml:"demoted,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`

	err error
}

// Succeeded reports whether the record reached its outcome.
func (o Outcome) Succeeded() bool {
	return o.Error == ""
}

// ImportResult tallies a confirm call.
type ImportResult struct {
	Linked     int       `json:"linked" yaml:"linked"`
	Created    int       `json:"created" yaml:"created"`
	Updated    int       `json:"updated" yaml:"updated"`
	Skipped    int       `json:"skipped" yaml:"skipped"`
	Failed     int       `json:"failed" yaml:"failed"`
	CreatedIDs []string  `json:"created_ids" yaml:"created_ids"`
	Outcomes   []Outcome `json:"outcomes" yaml:"outcomes"`
}

// Defaults for NewApplier.
const (
	DefaultStoreTimeout     = 10 * time.Second
	DefaultWriteConcurrency = 8
)

// Applier turns classifications and decisions into store mutations.
type Applier struct {
	timeout     time.Duration
	concurrency int
}

// NewApplier creates an applier. timeout bounds every individual store
// call; concurrency bounds how many writes run at once.
func NewApplier(timeout time.Duration, concurrency int) *Applier {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	if concurrency <= 0 {
		concurrency = DefaultWriteConcurrency
	}
	return &Applier{
		timeout:     timeout,
		concurrency: concurrency,
	}
}

// step is the planned store operation for one record.
type step struct {
	action  Action
	bookID  string
	update  models.MetadataUpdate
	create  models.NewBook
	demoted bool
	follow  int
	// rowUpdate is written to whatever book the followed row resolves to
	rowUpdate *models.MetadataUpdate
	skipErr   string
}

const noFollow = -1

// job is one write handed to run.
type job struct {
	index int
	step  step
}

// Apply validates the batch, re-checks it against a fresh library snapshot
// and performs the writes. Failed writes do not stop the batch: the result
// always has one outcome per classification, and the returned error joins
// every per-record failure.
func (a *Applier) Apply(ctx context.Context, classifications []Classification, decisions Decisions, store BookStore) (*ImportResult, error) {
	if err := ValidateBatch(classifications); err != nil {
		return nil, err
	}
	if err := decisions.Validate(); err != nil {
		return nil, err
	}

	listCtx, cancel := context.WithTimeout(ctx, a.timeout)
	snapshot, err := store.ListAll(listCtx)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh library snapshot: %w", err)
	}

	current := make(map[string]models.LibraryBook, len(snapshot))
	for _, book := range snapshot {
		current[book.ID] = book
	}

	steps := make([]step, len(classifications))
	for i, c := range classifications {
		steps[i] = plan(c, classifications, decisions, current)
	}
	coalesce(steps)

	outcomes := make([]Outcome, len(classifications))
	a.execute(ctx, steps, outcomes, store)
	resolveFollowers(steps, outcomes)
	a.applyRowUpdates(ctx, steps, outcomes, store)

	result := tally(outcomes)

	slog.Info("Applied import batch",
		"records", len(classifications),
		"linked", result.Linked,
		"created", result.Created,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"failed", result.Failed)

	var errs []error
	for _, o := range outcomes {
		if o.err != nil {
			errs = append(errs, o.err)
		}
	}

	return result, errors.Join(errs...)
}

func plan(c Classification, batch []Classification, decisions Decisions, current map[string]models.LibraryBook) step {
	s := step{follow: noFollow}

	// link targets the existing book, falling back to creation when it has
	// been deleted since preview
	link := func(bookID string) step {
		if _, ok := current[bookID]; ok {
			s.action = ActionLink
			s.bookID = bookID
			return s
		}
		s.action = ActionCreate
		s.create = models.NewBookFromRecord(c.Record)
		s.demoted = true
		return s
	}

	switch c.Kind {
	case KindMatched:
		return link(c.Existing.ID)

	case KindConflict:
		if c.DuplicateOf != nil {
			s.action = ActionLink
			s.follow = *c.DuplicateOf
			if decisions.For(c.DecisionKey()) == Accept {
				earlier := batch[*c.DuplicateOf].Record
				if update := metadataUpdate(c.Record, recordAsBook(earlier)); !update.IsEmpty() {
					s.rowUpdate = &update
				}
			}
			return s
		}
		if decisions.For(c.DecisionKey()) != Accept {
			return link(c.Existing.ID)
		}
		book, ok := current[c.Existing.ID]
		if !ok {
			return link(c.Existing.ID)
		}
		update := metadataUpdate(c.Record, book)
		if update.IsEmpty() {
			// The library already carries the imported values
			return link(c.Existing.ID)
		}
		s.action = ActionUpdate
		s.bookID = c.Existing.ID
		s.update = update
		return s

	case KindPossibleMatch:
		if decisions.For(c.DecisionKey()) == Accept {
			return link(c.Existing.ID)
		}
		s.action = ActionCreate
		s.create = models.NewBookFromRecord(c.Record)
		return s

	case KindNew:
		s.action = ActionCreate
		s.create = models.NewBookFromRecord(c.Record)
		return s

	case KindAlreadyInLibrary:
		s.action = ActionLink
		s.follow = *c.DuplicateOf
		return s

	default:
		s.action = ActionSkip
		s.skipErr = c.Error
		return s
	}
}

// metadataUpdate collects the imported values that differ from the book,
// plus an imported ISBN when the book has none.
func metadataUpdate(record models.ImportRecord, book models.LibraryBook) models.MetadataUpdate {
	var update models.MetadataUpdate
	for _, diff := range compareMetadata(record, book) {
		switch diff.Field {
		case "reading_level":
			level := models.Level(diff.Imported)
			update.ReadingLevel = &level
		case "isbn":
			isbn := diff.Imported
			update.ISBN = &isbn
		}
	}
	if isbn := strings.TrimSpace(record.ISBN); isbn != "" && strings.TrimSpace(book.ISBN) == "" {
		update.ISBN = &isbn
	}
	return update
}

// coalesce folds steps that write the same book into the first of them so
// every book sees at most one write. The merged values are those of the
// last row in input order; the other rows follow the first.
func coalesce(steps []step) {
	first := make(map[string]int)
	for i, s := range steps {
		if s.follow != noFollow {
			continue
		}

		var target string
		switch {
		case s.action == ActionUpdate:
			target = "book:" + s.bookID
		case s.action == ActionCreate && s.demoted:
			target = "vanished:" + string(Normalize(s.create.Title, s.create.Author))
		default:
			continue
		}

		j, seen := first[target]
		if !seen {
			first[target] = i
			continue
		}
		if s.action == ActionUpdate {
			steps[j].update = steps[j].update.Merge(s.update)
		} else {
			steps[j].create = mergeCreate(steps[j].create, s.create)
		}
		steps[i] = step{action: ActionLink, follow: j, demoted: s.demoted}
	}
}

// mergeCreate keeps the title and author of base and takes any metadata later provides.
func mergeCreate(base, later models.NewBook) models.NewBook {
	if !later.ReadingLevel.IsZero() {
		base.ReadingLevel = later.ReadingLevel
	}
	if later.ISBN != "" {
		base.ISBN = later.ISBN
	}
	return base
}

// execute runs every independent write.
func (a *Applier) execute(ctx context.Context, steps []step, outcomes []Outcome, store BookStore) {
	var jobs []job
	for i, s := range steps {
		outcomes[i] = Outcome{Index: i, Action: s.action, BookID: s.bookID, Demoted: s.demoted}

		switch {
		case s.follow != noFollow:
			continue
		case s.action == ActionSkip:
			outcomes[i].Error = s.skipErr
			continue
		case s.action == ActionLink:
			continue
		}
		jobs = append(jobs, job{index: i, step: s})
	}

	a.run(ctx, jobs, outcomes, store)
}

// applyRowUpdates writes accepted in-batch conflicts once the rows they
// follow have resolved to a book. Updates for the same book merge in input
// order and go out as one write carried by the first accepted row.
func (a *Applier) applyRowUpdates(ctx context.Context, steps []step, outcomes []Outcome, store BookStore) {
	var jobs []job
	byBook := make(map[string]int)

	for i, s := range steps {
		if s.rowUpdate == nil || !outcomes[i].Succeeded() {
			continue
		}
		bookID := outcomes[i].BookID
		if j, ok := byBook[bookID]; ok {
			jobs[j].step.update = jobs[j].step.update.Merge(*s.rowUpdate)
			continue
		}
		byBook[bookID] = len(jobs)
		jobs = append(jobs, job{
			index: i,
			step:  step{action: ActionUpdate, bookID: bookID, update: *s.rowUpdate, follow: noFollow},
		})
	}

	a.run(ctx, jobs, outcomes, store)
}

// run performs jobs concurrently. Each goroutine owns exactly one outcome
// slot so no counters are shared.
func (a *Applier) run(ctx context.Context, jobs []job, outcomes []Outcome, store BookStore) {
	if len(jobs) == 0 {
		return
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for _, j := range jobs {
		g.Go(func() error {
			outcomes[j.index] = a.write(gCtx, j.index, j.step, store)
			return nil // per-record failures never cancel the rest of the batch
		})
	}

	_ = g.Wait()
}

func (a *Applier) write(ctx context.Context, index int, s step, store BookStore) Outcome {
	outcome := Outcome{Index: index, Action: s.action, BookID: s.bookID, Demoted: s.demoted}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	switch s.action {
	case ActionCreate:
		book, err := store.Create(callCtx, s.create)
		if err != nil {
			outcome.err = &StoreError{Index: index, Op: "create book", Err: err}
			break
		}
		outcome.BookID = book.ID
		slog.Debug("Created book", "index", index, "book_id", book.ID, "demoted", s.demoted)

	case ActionUpdate:
		_, err := store.UpdateMetadata(callCtx, s.bookID, s.update)
		switch {
		case errors.Is(err, models.ErrBookNotFound):
			outcome.err = &NotFoundError{Index: index, BookID: s.bookID, Err: err}
		case err != nil:
			outcome.err = &StoreError{Index: index, Op: "update book metadata", Err: err}
		default:
			slog.Debug("Updated book metadata", "index", index, "book_id", s.bookID)
		}
	}

	if outcome.err != nil {
		outcome.Error = outcome.err.Error()
		slog.Error("Import write failed", "index", index, "action", s.action, "err", outcome.err)
	}

	return outcome
}

// resolveFollowers gives every following row the book its target row ended
// up with. Rows are resolved in order so chains settle correctly.
func resolveFollowers(steps []step, outcomes []Outcome) {
	for i, s := range steps {
		if s.follow == noFollow {
			continue
		}
		target := outcomes[s.follow]
		outcomes[i] = Outcome{Index: i, Action: ActionLink, BookID: target.BookID, Demoted: s.demoted}
		if !target.Succeeded() {
			outcomes[i].err = &StoreError{
				Index: i,
				Op:    fmt.Sprintf("link to record %d", s.follow),
				Err:   errors.New(target.Error),
			}
			outcomes[i].Error = outcomes[i].err.Error()
			outcomes[i].BookID = ""
		}
	}
}

func tally(outcomes []Outcome) *ImportResult {
	result := &ImportResult{
		CreatedIDs: []string{},
		Outcomes:   outcomes,
	}

	for _, o := range outcomes {
		switch {
		case o.Action == ActionSkip:
			result.Skipped++
		case !o.Succeeded():
			result.Failed++
		case o.Action == ActionLink:
			result.Linked++
		case o.Action == ActionCreate:
			result.Created++
			result.CreatedIDs = append(result.CreatedIDs, o.BookID)
		case o.Action == ActionUpdate:
			result.Updated++
		}
	}

	return result
}
