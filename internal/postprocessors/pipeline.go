// Package postprocessors provides the chunking pipeline that turns a
// normalised document into annotated chunks.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/kbingest/internal/core/domain"
	"github.com/custodia-labs/kbingest/internal/core/ports/driven"
	"github.com/custodia-labs/kbingest/internal/logger"
)

// Pipeline runs PostProcessors in order over one document.
// The first processor creates the chunks from document content; later ones
// annotate or filter them.
type Pipeline struct {
	processors []driven.PostProcessor
}

// NewPipeline creates a pipeline running processors in the order given.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Process runs the document through every processor.
// The returned chunks carry the document source and contiguous positions
// starting at zero, whatever the processors did to them.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", domain.ErrInvalidInput)
	}

	var chunks []domain.Chunk
	for _, proc := range p.processors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		chunks, err = proc.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", proc.Name(), err)
		}
		logger.Debug("%s: %s produced %d chunks", doc.Source, proc.Name(), len(chunks))
	}

	for i := range chunks {
		chunks[i].Position = i
		if chunks[i].Source == "" {
			chunks[i].Source = doc.Source
		}
	}
	return chunks, nil
}

// Add appends a processor.
func (p *Pipeline) Add(proc driven.PostProcessor) {
	p.processors = append(p.processors, proc)
}

// Len returns the number of processors.
func (p *Pipeline) Len() int {
	return len(p.processors)
}

// Names returns the processor names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}
