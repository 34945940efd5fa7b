// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - TextExtractor: Reads per-page text from a document (pdftotext, docconv)
//   - PostProcessorPipeline: Turns normalised text into chunks
//
// # Live-mode Interfaces
//
// These may be nil for dry runs, which never write or enrich:
//
//   - EmbeddingService: Generates vector embeddings (OpenAI, Ollama, Gemini)
//   - KnowledgeStore: Record persistence (SQLite, Postgres/pgvector)
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, extractor, or normaliser package
package driven
