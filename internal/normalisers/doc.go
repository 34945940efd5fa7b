// Package normalisers provides implementations of the Normaliser interface.
// A normaliser turns the per-page text produced by an extractor into a
// single cleaned document ready for chunking.
//
//   - pdftext: Removes layout artifacts from text extracted from paginated documents
package normalisers
