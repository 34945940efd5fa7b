// Package domain defines the core business entities for kbingest.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SourceDocument: Per-page text extracted from a source document
//   - Document: The normalised text of one source
//   - Chunk: A bounded, overlapping unit of retrieval
//   - KnowledgeRecord: A persisted chunk with its embedding
//   - Settings: Explicit pipeline configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
