// Package pdf extracts per-page text from PDF documents using pdftotext.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/kbingest/internal/core/domain"
	"github.com/custodia-labs/kbingest/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// toolName is the poppler utility used for extraction.
const toolName = "pdftotext"

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found: install poppler to ingest PDF documents")

// CommandRunner runs an external command and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, ErrPDFToolNotFound
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// Extractor turns PDF files into pages of plain text.
type Extractor struct {
	runner CommandRunner
}

// New creates an extractor that shells out to pdftotext.
func New() *Extractor {
	return &Extractor{runner: execRunner{}}
}

// NewWithRunner creates an extractor with a custom command runner.
func NewWithRunner(runner CommandRunner) *Extractor {
	return &Extractor{runner: runner}
}

// Supports returns true for files with a .pdf extension.
func (e *Extractor) Supports(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// Extract runs pdftotext on the file and splits its output into pages.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.SourceDocument, error) {
	if !e.Supports(path) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, filepath.Ext(path))
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrMissingResource, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	out, err := e.runner.Run(ctx, toolName, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		if errors.Is(err, ErrPDFToolNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}

	return &domain.SourceDocument{Path: path, Pages: splitPages(string(out))}, nil
}

// splitPages splits pdftotext output on form feeds. pdftotext terminates
// every page with one, so a blank trailing page is dropped.
func splitPages(out string) []string {
	pages := strings.Split(out, "\f")
	if n := len(pages); n > 0 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	return pages
}

// CheckAvailable returns ErrPDFToolNotFound if pdftotext is not in PATH.
func CheckAvailable() error {
	if _, err := exec.LookPath(toolName); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns platform-specific instructions for installing pdftotext.
func InstallInstructions() string {
	return `pdftotext is required to ingest PDF documents.

Install poppler:
  macOS:         brew install poppler
  Debian/Ubuntu: sudo apt install poppler-utils
  Fedora:        sudo dnf install poppler-utils
  Windows:       choco install poppler`
}
