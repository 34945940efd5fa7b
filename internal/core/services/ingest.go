package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/kbingest/internal/core/domain"
	"github.com/custodia-labs/kbingest/internal/core/ports/driven"
	"github.com/custodia-labs/kbingest/internal/core/ports/driving"
	"github.com/custodia-labs/kbingest/internal/logger"
)

// Ensure IngestionController implements the interface.
var _ driving.IngestionService = (*IngestionController)(nil)

// IngestionController runs sources through extract, normalise, chunk,
// enrich and persist. A live run replaces every record of a source:
// existing records are deleted first, then each batch is embedded and
// written in its own transaction. A failing batch is skipped and reported;
// the remaining batches still run.
//
// The delete and the inserts are not one transaction. A run interrupted
// part way leaves the source partially re-ingested until the next run.
type IngestionController struct {
	extractor  driven.TextExtractor
	normaliser driven.Normaliser
	pipeline   driven.PostProcessorPipeline
	store      driven.KnowledgeStore
	embedder   driven.EmbeddingService
	settings   domain.Settings

	documentDir string
	progress    func(driving.BatchProgress)
	now         func() time.Time
	newID       func() string
}

// ControllerOption configures an IngestionController.
type ControllerOption func(*IngestionController)

// WithProgress registers a callback invoked after every embedding batch.
func WithProgress(fn func(driving.BatchProgress)) ControllerOption {
	return func(c *IngestionController) {
		c.progress = fn
	}
}

// WithDocumentDir sets the directory relative source files are resolved against.
func WithDocumentDir(dir string) ControllerOption {
	return func(c *IngestionController) {
		c.documentDir = dir
	}
}

// WithClock overrides the record timestamp source.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *IngestionController) {
		if now != nil {
			c.now = now
		}
	}
}

// NewIngestionController creates a controller.
// The store and embedder may be nil when only previews are needed.
func NewIngestionController(
	extractor driven.TextExtractor,
	normaliser driven.Normaliser,
	pipeline driven.PostProcessorPipeline,
	store driven.KnowledgeStore,
	embedder driven.EmbeddingService,
	settings domain.Settings,
	opts ...ControllerOption,
) *IngestionController {
	c := &IngestionController{
		extractor:  extractor,
		normaliser: normaliser,
		pipeline:   pipeline,
		store:      store,
		embedder:   embedder,
		settings:   settings,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Prepare extracts, normalises and chunks a source.
// The report is always returned, filled as far as processing got.
// Failures are returned as *domain.SourceError.
func (c *IngestionController) Prepare(
	ctx context.Context,
	src domain.SourceConfig,
) (*domain.Document, []domain.Chunk, *domain.SourceReport, error) {
	path := src.Resolve(c.documentDir)
	report := &domain.SourceReport{Source: src.Label, Path: path}

	if src.Label == "" || src.File == "" {
		return nil, nil, report, &domain.SourceError{Source: src.Label, Stage: "check",
			Err: fmt.Errorf("%w: source needs a label and a file", domain.ErrInvalidInput)}
	}

	raw, err := c.extractor.Extract(ctx, path)
	if err != nil {
		return nil, nil, report, &domain.SourceError{Source: src.Label, Stage: "extract", Err: err}
	}
	raw.Source = src.Label
	report.Pages = len(raw.Pages)
	report.RawChars = utf8.RuneCountInString(raw.RawText())
	logger.Debug("%s: extracted %d pages, %d chars", src.Label, report.Pages, report.RawChars)

	doc, err := c.normaliser.Normalise(ctx, raw)
	if err != nil {
		return nil, nil, report, &domain.SourceError{Source: src.Label, Stage: "normalise", Err: err}
	}
	report.CleanChars = utf8.RuneCountInString(doc.Content)

	chunks, err := c.pipeline.Process(ctx, doc)
	if err != nil {
		return nil, nil, report, &domain.SourceError{Source: src.Label, Stage: "chunk", Err: err}
	}
	report.Chunks = len(chunks)
	if len(chunks) > 0 {
		total := 0
		for _, ch := range chunks {
			total += utf8.RuneCountInString(ch.Content)
		}
		report.AvgChunkChars = total / len(chunks)
	}
	logger.Debug("%s: %d clean chars, %d chunks (avg %d chars)",
		src.Label, report.CleanChars, report.Chunks, report.AvgChunkChars)

	return doc, chunks, report, nil
}

// Preview prepares a source and samples its first chunks.
// The store and the embedding service are never used.
func (c *IngestionController) Preview(ctx context.Context, src domain.SourceConfig) (*domain.SourceReport, error) {
	start := time.Now()
	_, chunks, report, err := c.Prepare(ctx, src)
	report.Duration = time.Since(start)
	if err != nil {
		return report, err
	}

	n := min(c.settings.PreviewChunks, len(chunks))
	report.Preview = make([]domain.ChunkPreview, 0, max(n, 0))
	for _, ch := range chunks[:max(n, 0)] {
		report.Preview = append(report.Preview, domain.ChunkPreview{
			Position: ch.Position,
			Chars:    utf8.RuneCountInString(ch.Content),
			Heading:  ch.HeadingText(),
			Text:     truncate(ch.Content, c.settings.PreviewChars),
		})
	}
	return report, nil
}

// Ingest replaces the stored records of a source with freshly enriched chunks.
// Batch failures are recorded in the report, not returned. An error is
// returned only when the source cannot be prepared, the delete fails or the
// context is cancelled.
func (c *IngestionController) Ingest(ctx context.Context, src domain.SourceConfig) (*domain.SourceReport, error) {
	if err := c.requireLive(); err != nil {
		return &domain.SourceReport{Source: src.Label}, err
	}

	start := time.Now()
	_, chunks, report, err := c.Prepare(ctx, src)
	if err != nil {
		report.Duration = time.Since(start)
		return report, err
	}
	defer func() { report.Duration = time.Since(start) }()

	deleted, err := c.store.DeleteBySource(ctx, src.Label)
	if err != nil {
		return report, fmt.Errorf("delete %s: %w", src.Label, err)
	}
	report.Deleted = deleted
	if deleted > 0 {
		logger.Info("%s: deleted %d existing records", src.Label, deleted)
	}

	limiter := c.newLimiter()
	batches := Batches(chunks, c.settings.EmbedBatchSize)

	for i, b := range batches {
		if i > 0 {
			if err := pause(ctx, c.settings.BatchPause); err != nil {
				return report, err
			}
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return report, err
			}
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		stored, err := c.storeBatch(ctx, src.Label, b)
		if err != nil {
			// Cancellation is not a batch failure.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			failure := domain.BatchFailure{
				Batch:   b.Number,
				Batches: len(batches),
				From:    b.From,
				To:      b.To,
				Err:     err,
			}
			report.Skipped += failure.Size()
			report.SkippedBatches = append(report.SkippedBatches, failure)
			logger.Warn("%s: skipped %s", src.Label, failure)
		} else {
			report.Stored += stored
		}

		c.notify(driving.BatchProgress{
			Source:  src.Label,
			Batch:   b.Number,
			Batches: len(batches),
			Stored:  report.Stored,
			Total:   len(chunks),
			Err:     err,
		})
	}

	logger.Info("%s: %d stored, %d skipped", src.Label, report.Stored, report.Skipped)
	return report, nil
}

// storeBatch embeds one batch and writes its records in one transaction.
// It returns the number of records written.
func (c *IngestionController) storeBatch(ctx context.Context, source string, b Batch) (int, error) {
	items, err := c.embedder.EmbedBatch(ctx, b.Texts())
	if err != nil {
		if errors.Is(err, domain.ErrEnrichmentFailure) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %w", domain.ErrEnrichmentFailure, err)
	}

	vectors, err := PairEmbeddings(b.Chunks, items)
	if err != nil {
		return 0, err
	}

	records := make([]domain.KnowledgeRecord, len(b.Chunks))
	for i, ch := range b.Chunks {
		records[i] = domain.KnowledgeRecord{
			ID:            c.newID(),
			Source:        source,
			Heading:       ch.Heading,
			Content:       ch.Content,
			Embedding:     vectors[i],
			TokenEstimate: ch.TokenEstimate,
			CreatedAt:     c.now(),
		}
	}

	if err := c.store.InsertBatch(ctx, records); err != nil {
		if errors.Is(err, domain.ErrPersistenceFailure) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
	}
	return len(records), nil
}

// Run processes sources in order. A source that cannot be read or chunked
// is reported and skipped; the run stops only on cancellation or a store
// failure. Live runs end with a tally queried from the store.
func (c *IngestionController) Run(
	ctx context.Context,
	sources []domain.SourceConfig,
	preview bool,
) (*domain.RunReport, error) {
	if !preview {
		if err := c.requireLive(); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	run := &domain.RunReport{Preview: preview}
	defer func() { run.Elapsed = time.Since(start) }()

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return run, err
		}

		logger.Section(src.Label)
		var (
			report *domain.SourceReport
			err    error
		)
		if preview {
			report, err = c.Preview(ctx, src)
		} else {
			report, err = c.Ingest(ctx, src)
		}

		if err != nil {
			if !isSkippable(ctx, err) {
				if report != nil {
					run.Sources = append(run.Sources, *report)
				}
				return run, err
			}
			report.Missing = errors.Is(err, domain.ErrMissingResource) ||
				errors.Is(err, domain.ErrUnsupportedType)
			report.Failed = !report.Missing
			report.Reason = err.Error()
			logger.Warn("%s: skipped: %v", src.Label, err)
		}
		run.Sources = append(run.Sources, *report)
	}

	if preview {
		return run, nil
	}

	tally, total, err := c.Tally(ctx)
	if err != nil {
		return run, err
	}
	run.Tally = tally
	run.Total = total
	return run, nil
}

// Tally returns stored record counts grouped by source, and the total.
func (c *IngestionController) Tally(ctx context.Context) ([]domain.SourceCount, int, error) {
	if c.store == nil {
		return nil, 0, fmt.Errorf("%w: no knowledge store configured", domain.ErrConfiguration)
	}

	counts, err := c.store.CountBySource(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count by source: %w", err)
	}
	total, err := c.store.Count(ctx, "")
	if err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}
	return counts, total, nil
}

func (c *IngestionController) requireLive() error {
	switch {
	case c.store == nil:
		return fmt.Errorf("%w: no knowledge store configured", domain.ErrConfiguration)
	case c.embedder == nil:
		return fmt.Errorf("%w: %w", domain.ErrConfiguration, domain.ErrEmbeddingUnavailable)
	}
	return nil
}

// newLimiter caps embedding requests at the configured rate per minute.
// It returns nil when no cap is set. The first request is never delayed.
func (c *IngestionController) newLimiter() *rate.Limiter {
	rpm := c.settings.EmbedRequestsPerMinute
	if rpm <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
}

// pause waits d, or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *IngestionController) notify(p driving.BatchProgress) {
	if c.progress != nil {
		c.progress(p)
	}
}

// isSkippable reports whether a source error should skip the source
// rather than abort the run. Cancellation never skips.
func isSkippable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var srcErr *domain.SourceError
	return errors.As(err, &srcErr)
}

// truncate returns at most n characters of s.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
