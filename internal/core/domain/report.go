package domain

import (
	"fmt"
	"time"
)

// ChunkPreview is a truncated sample of a chunk shown in dry-run mode.
type ChunkPreview struct {
	// Position is the chunk's ordinal within the source.
	Position int

	// Chars is the full length of the chunk in characters.
	Chars int

	// Heading is the guessed heading, or empty.
	Heading string

	// Text is the chunk content, truncated.
	Text string
}

// BatchFailure records a batch whose chunks were skipped.
// From and To delimit the chunk range [From, To) so a re-run can be scoped.
type BatchFailure struct {
	// Batch is the 1-based batch number.
	Batch int

	// Batches is the total number of batches for the source.
	Batches int

	// From is the position of the first chunk in the batch.
	From int

	// To is one past the position of the last chunk in the batch.
	To int

	// Err is the failure that caused the skip.
	Err error
}

// Size returns the number of chunks in the failed batch.
func (f BatchFailure) Size() int {
	return f.To - f.From
}

// String describes the failure for reports.
func (f BatchFailure) String() string {
	return fmt.Sprintf("batch %d/%d (chunks %d-%d): %v", f.Batch, f.Batches, f.From, f.To-1, f.Err)
}

// SourceReport is the outcome of processing one source.
type SourceReport struct {
	// Source is the source label.
	Source string

	// Path is the resolved document path.
	Path string

	// Pages is the number of extracted pages.
	Pages int

	// RawChars is the length of the extracted text.
	RawChars int

	// CleanChars is the length of the normalised text.
	CleanChars int

	// Chunks is the number of chunks produced.
	Chunks int

	// AvgChunkChars is the mean chunk length.
	AvgChunkChars int

	// Deleted is the number of records removed before re-inserting.
	Deleted int

	// Stored is the number of records written.
	Stored int

	// Skipped is the number of chunks in failed batches.
	Skipped int

	// SkippedBatches lists each failed batch.
	SkippedBatches []BatchFailure

	// Preview holds the dry-run sample.
	Preview []ChunkPreview

	// Missing is true when the document is absent or of an unsupported type.
	Missing bool

	// Failed is true when the document exists but could not be extracted,
	// normalised or chunked.
	Failed bool

	// Reason explains why the source was skipped.
	Reason string

	// Duration is how long the source took.
	Duration time.Duration
}

// SourceCount is the number of stored records for a source.
type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// RunReport is the outcome of an ingestion run across sources.
type RunReport struct {
	// Preview is true for dry runs.
	Preview bool

	// Sources holds one report per processed source, in order.
	Sources []SourceReport

	// Tally is the final per-source record count, queried fresh from the store.
	// Empty for dry runs.
	Tally []SourceCount

	// Total is the final record count across all sources.
	Total int

	// Elapsed is the wall time of the run.
	Elapsed time.Duration
}

// Stored returns the number of records written across all sources.
func (r *RunReport) Stored() int {
	n := 0
	for i := range r.Sources {
		n += r.Sources[i].Stored
	}
	return n
}

// Skipped returns the number of skipped chunks across all sources.
func (r *RunReport) Skipped() int {
	n := 0
	for i := range r.Sources {
		n += r.Sources[i].Skipped
	}
	return n
}

// Unprocessed reports whether the source was skipped before any chunks
// were produced.
func (r SourceReport) Unprocessed() bool {
	return r.Missing || r.Failed
}
