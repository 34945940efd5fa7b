package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/kbingest/internal/core/domain"
	"github.com/custodia-labs/kbingest/internal/core/ports/driving"
)

// printer writes ingestion reports for humans.
type printer struct {
	w io.Writer
	s styles
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, s: newStyles(w)}
}

func (p *printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

// header announces the run.
func (p *printer) header(preview bool, filter string) {
	p.printf("%s\n", p.s.render(p.s.title, "kbingest ingestion"))
	if preview {
		p.printf("Mode: %s\n", p.s.render(p.s.warning, "DRY RUN (no writes)"))
	} else {
		p.printf("Mode: %s\n", p.s.render(p.s.success, "LIVE"))
	}
	if filter != "" {
		p.printf("Filter: %s only\n", filter)
	}
}

// progress reports one finished embedding batch.
func (p *printer) progress(ev driving.BatchProgress) {
	if ev.Err != nil {
		p.printf("  %s batch %d/%d: %s\n", ev.Source, ev.Batch, ev.Batches,
			p.s.render(p.s.failure, "skipped ("+ev.Err.Error()+")"))
		return
	}
	p.printf("  %s batch %d/%d: %d/%d stored\n", ev.Source, ev.Batch, ev.Batches, ev.Stored, ev.Total)
}

// source prints the outcome of one source.
func (p *printer) source(r *domain.SourceReport, preview bool) {
	p.printf("\n%s\n", p.s.render(p.s.section, "── "+r.Source+" ──"))
	if r.Path != "" {
		p.printf("  File: %s\n", p.s.render(p.s.muted, r.Path))
	}
	if r.Unprocessed() {
		p.printf("  %s %s\n", p.s.render(p.s.failure, "Skipped:"), r.Reason)
		return
	}

	p.printf("  Pages: %s | raw %s chars | cleaned %s chars\n",
		thousands(r.Pages), thousands(r.RawChars), thousands(r.CleanChars))
	p.printf("  Chunks: %s (avg %s chars)\n", thousands(r.Chunks), thousands(r.AvgChunkChars))

	if preview {
		for _, c := range r.Preview {
			p.preview(c)
		}
		return
	}

	if r.Deleted > 0 {
		p.printf("  Deleted %s existing records\n", thousands(r.Deleted))
	}
	status := p.s.success
	if r.Skipped > 0 {
		status = p.s.warning
	}
	p.printf("  %s (%s)\n",
		p.s.render(status, fmt.Sprintf("%s complete: %s stored, %s skipped",
			r.Source, thousands(r.Stored), thousands(r.Skipped))),
		r.Duration.Round(100*time.Millisecond))
	for _, f := range r.SkippedBatches {
		p.printf("    %s\n", p.s.render(p.s.failure, "skipped "+f.String()))
	}
}

func (p *printer) preview(c domain.ChunkPreview) {
	heading := "none"
	if c.Heading != "" {
		heading = c.Heading
	}
	p.printf("\n  Chunk %d · %s chars · heading: %s\n", c.Position+1, thousands(c.Chars), heading)
	for _, line := range strings.Split(c.Text, "\n") {
		p.printf("    %s\n", p.s.render(p.s.muted, line))
	}
}

// tally prints stored counts per source.
func (p *printer) tally(counts []domain.SourceCount, total int) {
	p.printf("\n%s\n", p.s.render(p.s.title, "Final DB state:"))
	for _, c := range counts {
		p.printf("  %s: %s chunks\n", c.Source, thousands(c.Count))
	}
	p.printf("  Total: %s chunks\n", thousands(total))
}

// run prints every source, the tally of live runs and the elapsed time.
func (p *printer) run(report *domain.RunReport) {
	for i := range report.Sources {
		p.source(&report.Sources[i], report.Preview)
	}
	if !report.Preview {
		p.tally(report.Tally, report.Total)
	}
	p.printf("\nDone in %.1fs\n", report.Elapsed.Seconds())
}

// thousands formats n with comma separators.
func thousands(n int) string {
	if n < 0 {
		return "-" + thousands(-n)
	}
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(s[:lead])
	for i := lead; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
