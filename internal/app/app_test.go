package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbingest/internal/core/domain"
	"github.com/custodia-labs/kbingest/internal/extractors/pdf"
)

// writeFixture creates a config file, a document directory with one text
// source and an absent .env path.
func writeFixture(t *testing.T, extra string) Options {
	t.Helper()
	dir := t.TempDir()
	docs := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(docs, 0700))

	guide := "Program Design Basics\n\n" +
		"Progressive overload means adding load, volume or density over time so the body keeps adapting to training.\n\n" +
		"Recovery between sessions matters as much as the sessions themselves, especially for novice lifters.\n"
	require.NoError(t, os.WriteFile(filepath.Join(docs, "guide.txt"), []byte(guide), 0600))

	config := `document_dir = "` + filepath.ToSlash(docs) + `"

[chunking]
target_chars = 120
overlap_chars = 20
min_chars = 20

[storage]
data_dir = "` + filepath.ToSlash(filepath.Join(dir, "data")) + `"

[[sources]]
label = "GUIDE"
file = "guide.txt"
` + extra

	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(config), 0600))

	return Options{
		ConfigPath: path,
		EnvFile:    filepath.Join(dir, "absent.env"),
	}
}

func TestOpen_Preview(t *testing.T) {
	opts := writeFixture(t, "")
	opts.Mode = ModePreview

	rt, err := Open(context.Background(), opts)
	require.NoError(t, err)
	defer rt.Close()

	assert.Empty(t, rt.StoreLocation)
	require.Len(t, rt.Sources, 1)

	report, err := rt.Ingestion.Run(context.Background(), rt.Sources, true)
	require.NoError(t, err)
	require.Len(t, report.Sources, 1)
	src := report.Sources[0]
	assert.False(t, src.Missing)
	assert.Positive(t, src.Chunks)
	require.NotEmpty(t, src.Preview)
	assert.Equal(t, "Program Design Basics", src.Preview[0].Heading)
}

func TestOpen_Stats(t *testing.T) {
	opts := writeFixture(t, "")
	opts.Mode = ModeStats

	rt, err := Open(context.Background(), opts)
	require.NoError(t, err)
	defer rt.Close()

	assert.Equal(t, "knowledge.db", filepath.Base(rt.StoreLocation))

	tally, total, err := rt.Ingestion.Tally(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tally)
	assert.Zero(t, total)
}

func TestOpen_LiveRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	opts := writeFixture(t, "")
	opts.Mode = ModeLive

	_, err := Open(context.Background(), opts)
	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestOpen_LiveWithOllama(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.WriteHeader(http.StatusOK)
		case "/api/embed":
			var req struct {
				Input []string `json:"input"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			vectors := make([][]float32, len(req.Input))
			for i := range vectors {
				vectors[i] = []float32{float32(i), 1}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": vectors})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	opts := writeFixture(t, "\n[embedding]\nprovider = \"ollama\"\nmodel = \"nomic-embed-text\"\nbase_url = \""+
		server.URL+"\"\npause_ms = 0\n")
	opts.Mode = ModeLive

	rt, err := Open(context.Background(), opts)
	require.NoError(t, err)
	defer rt.Close()
	assert.Equal(t, "nomic-embed-text", rt.Model)

	report, err := rt.Ingestion.Run(context.Background(), rt.Sources, false)
	require.NoError(t, err)
	require.Len(t, report.Sources, 1)
	src := report.Sources[0]
	assert.Zero(t, src.Skipped)
	assert.Equal(t, src.Chunks, src.Stored)
	assert.Equal(t, src.Stored, report.Total)
	assert.Equal(t, []domain.SourceCount{{Source: "GUIDE", Count: src.Stored}}, report.Tally)
}

func TestOpen_InvalidConfig(t *testing.T) {
	opts := writeFixture(t, "\n[storage2]\n")
	_, err := Open(context.Background(), opts)
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestRuntime_CloseIsIdempotent(t *testing.T) {
	opts := writeFixture(t, "")
	opts.Mode = ModeStats

	rt, err := Open(context.Background(), opts)
	require.NoError(t, err)
	require.NoError(t, rt.Close())
	require.NoError(t, rt.Close())
}

func TestOpen_SelectsSource(t *testing.T) {
	opts := writeFixture(t, "\n[[sources]]\nlabel = \"NOTES\"\nfile = \"notes.txt\"\n")
	opts.Source = "NOTES"

	rt, err := Open(context.Background(), opts)
	require.NoError(t, err)
	defer rt.Close()
	assert.Equal(t, []domain.SourceConfig{{Label: "NOTES", File: "notes.txt"}}, rt.Sources)
}

func TestOpen_UnknownSourceFailsBeforeIO(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	opts := writeFixture(t, "\n[embedding]\nprovider = \"ollama\"\nbase_url = \""+server.URL+"\"\n")
	opts.Mode = ModeLive
	opts.Source = "XYZ"

	_, err := Open(context.Background(), opts)
	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "GUIDE")
	assert.Zero(t, hits.Load(), "embedding service must not be contacted")

	_, statErr := os.Stat(filepath.Join(filepath.Dir(opts.ConfigPath), "data", "knowledge.db"))
	assert.True(t, os.IsNotExist(statErr), "store must not be opened")
}

func TestOpen_MissingPDFTool(t *testing.T) {
	old := checkPDFTool
	checkPDFTool = func() error { return pdf.ErrPDFToolNotFound }
	t.Cleanup(func() { checkPDFTool = old })

	opts := writeFixture(t, "\n[[sources]]\nlabel = \"BOOK\"\nfile = \"book.PDF\"\n")
	opts.Extract = true

	_, err := Open(context.Background(), opts)
	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.ErrorIs(t, err, pdf.ErrPDFToolNotFound)
	assert.Contains(t, err.Error(), "poppler")

	// Only selected sources count.
	opts.Source = "GUIDE"
	rt, err := Open(context.Background(), opts)
	require.NoError(t, err)
	require.NoError(t, rt.Close())

	// Listing sources reads no documents.
	opts.Source, opts.Extract = "", false
	rt, err = Open(context.Background(), opts)
	require.NoError(t, err)
	require.NoError(t, rt.Close())
}
