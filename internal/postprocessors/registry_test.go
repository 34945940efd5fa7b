package postprocessors

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/kbingest/internal/core/domain"
	"github.com/custodia-labs/kbingest/internal/core/ports/driven"
)

// labelProcessor tags every chunk heading with its label.
type labelProcessor struct {
	label string
}

func (l *labelProcessor) Name() string { return l.label }

func (l *labelProcessor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if chunks == nil {
		chunks = []domain.Chunk{{Source: doc.Source, Content: doc.Content}}
	}
	out := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		h := l.label
		if c.Heading != nil {
			h = *c.Heading + ">" + l.label
		}
		c.Heading = &h
		out[i] = c
	}
	return out, nil
}

func labelBuilder(cfg map[string]any) (driven.PostProcessor, error) {
	label, _ := cfg["label"].(string)
	if label == "" {
		return nil, errors.New("label required")
	}
	return &labelProcessor{label: label}, nil
}

func TestRegistry_Build(t *testing.T) {
	r := NewRegistry()
	r.Register("label", labelBuilder)

	proc, err := r.Build("label", map[string]any{"label": "NASM"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if proc.Name() != "NASM" {
		t.Errorf("expected processor named NASM, got %q", proc.Name())
	}
}

func TestRegistry_Build_BuilderError(t *testing.T) {
	r := NewRegistry()
	r.Register("label", labelBuilder)

	_, err := r.Build("label", nil)
	if err == nil {
		t.Fatal("expected builder error")
	}
	if got := err.Error(); got != "processor label: label required" {
		t.Errorf("unexpected error text %q", got)
	}
}

func TestRegistry_Build_UnknownListsOptions(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	_, err := r.Build("summariser", nil)
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	want := `configuration error: unknown processor "summariser" (options: chunker, heading, tokens)`
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestRegistry_Register_Replaces(t *testing.T) {
	r := NewRegistry()
	r.Register("label", labelBuilder)
	r.Register("label", func(_ map[string]any) (driven.PostProcessor, error) {
		return &labelProcessor{label: "replaced"}, nil
	})

	proc, err := r.Build("label", nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if proc.Name() != "replaced" {
		t.Errorf("expected replacement builder, got %q", proc.Name())
	}
}

func TestRegistry_HasAndNames(t *testing.T) {
	r := NewRegistry()
	if r.Has("chunker") {
		t.Error("empty registry should not have chunker")
	}
	if n := len(r.Names()); n != 0 {
		t.Errorf("expected no names, got %d", n)
	}

	RegisterDefaults(r)
	if !r.Has("chunker") || !r.Has("heading") || !r.Has("tokens") {
		t.Errorf("defaults missing: %v", r.Names())
	}

	names := r.Names()
	want := []string{"chunker", "heading", "tokens"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("name %d: got %q, want %q", i, names[i], want[i])
		}
	}
}

func TestRegistry_BuildChain(t *testing.T) {
	r := NewRegistry()
	r.Register("label", labelBuilder)

	_, err := r.BuildChain(nil, nil)
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("empty chain: expected ErrConfiguration, got %v", err)
	}

	_, err = r.BuildChain([]string{"label", "missing"}, map[string]map[string]any{
		"label": {"label": "a"},
	})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("unknown member: expected ErrConfiguration, got %v", err)
	}
}

func TestRegistry_BuildChain_RunsInOrder(t *testing.T) {
	r := NewRegistry()
	r.Register("first", func(_ map[string]any) (driven.PostProcessor, error) {
		return &labelProcessor{label: "first"}, nil
	})
	r.Register("second", func(_ map[string]any) (driven.PostProcessor, error) {
		return &labelProcessor{label: "second"}, nil
	})

	p, err := r.BuildChain([]string{"first", "second"}, nil)
	if err != nil {
		t.Fatalf("BuildChain failed: %v", err)
	}

	chunks, err := p.Process(context.Background(), &domain.Document{Source: "ACE", Content: "Body text."})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if got := chunks[0].HeadingText(); got != "first>second" {
		t.Errorf("expected processors applied in order, heading %q", got)
	}
	if chunks[0].Source != "ACE" {
		t.Errorf("expected source ACE, got %q", chunks[0].Source)
	}
}
