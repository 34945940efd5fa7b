package domain

import (
	"path/filepath"
	"time"
)

// SourceConfig names one document to ingest and the label its chunks are stored under.
type SourceConfig struct {
	// Label identifies the source in the store (e.g. an issuing organisation).
	Label string `toml:"label"`

	// File is the document path. Relative paths are resolved against the
	// configured document directory.
	File string `toml:"file"`
}

// Resolve returns the document path, joined onto dir when File is relative.
func (s SourceConfig) Resolve(dir string) string {
	if s.File == "" || filepath.IsAbs(s.File) || dir == "" {
		return s.File
	}
	return filepath.Join(dir, s.File)
}

// SourceDocument is the output of text extraction for one source.
// It is read once per ingestion run and never persisted.
type SourceDocument struct {
	// Source is the label the document is ingested under.
	Source string

	// Path is where the document was read from.
	Path string

	// Pages holds the extracted plain text, ordered by page number.
	Pages []string
}

// RawText joins the pages with a paragraph break, the way page boundaries
// are presented to the normaliser.
func (d *SourceDocument) RawText() string {
	if d == nil || len(d.Pages) == 0 {
		return ""
	}
	n := 2 * (len(d.Pages) - 1)
	for _, p := range d.Pages {
		n += len(p)
	}
	buf := make([]byte, 0, n)
	for i, p := range d.Pages {
		if i > 0 {
			buf = append(buf, '\n', '\n')
		}
		buf = append(buf, p...)
	}
	return string(buf)
}

// Document is the normalised text of a single source.
// It is the input to the post-processor pipeline.
type Document struct {
	// Source is the label of the originating document.
	Source string

	// Content is the cleaned text, free of layout artifacts.
	Content string
}

// Chunk is the unit of retrieval: a bounded, overlapping segment of a
// source's normalised text.
type Chunk struct {
	// Source is the label of the originating document.
	Source string

	// Position is the ordinal position within the source, starting at 0.
	Position int

	// Heading is a best-guess section label. Nil when no line qualifies.
	Heading *string

	// Content is the chunk text.
	Content string

	// TokenEstimate is a cheap size proxy used for cost accounting.
	TokenEstimate int
}

// HeadingText returns the heading or an empty string.
func (c Chunk) HeadingText() string {
	if c.Heading == nil {
		return ""
	}
	return *c.Heading
}

// Embedding is one vector as reported by the embedding service, together
// with the position of its input in the request.
type Embedding struct {
	// Index is the request position the vector belongs to.
	Index int

	// Vector is the embedding itself.
	Vector []float32
}

// KnowledgeRecord is a persisted, enriched chunk.
// Records are never updated in place; re-ingestion deletes and re-inserts.
type KnowledgeRecord struct {
	// ID is a globally unique identifier (UUID v4).
	ID string

	// Source is the label of the originating document.
	Source string

	// Heading is the optional section label.
	Heading *string

	// Content is the chunk text.
	Content string

	// Embedding is the chunk's vector.
	Embedding []float32

	// TokenEstimate is copied from the chunk.
	TokenEstimate int

	// CreatedAt is when the record was written.
	CreatedAt time.Time
}
