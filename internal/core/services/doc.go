// Package services implements the driving port interfaces.
// Services contain the core ingestion logic and orchestrate
// calls to driven ports (adapters): extraction, normalisation,
// chunking, embedding and storage.
//
// Services depend on ports only, never on concrete adapters.
package services
