// Package app wires configuration, adapters and services into a runnable
// ingestion runtime for the command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/kbingest/internal/adapters/driven/ai"
	"github.com/custodia-labs/kbingest/internal/adapters/driven/config/file"
	"github.com/custodia-labs/kbingest/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/kbingest/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/kbingest/internal/core/domain"
	"github.com/custodia-labs/kbingest/internal/core/ports/driven"
	"github.com/custodia-labs/kbingest/internal/core/ports/driving"
	"github.com/custodia-labs/kbingest/internal/core/services"
	"github.com/custodia-labs/kbingest/internal/extractors"
	"github.com/custodia-labs/kbingest/internal/extractors/pdf"
	"github.com/custodia-labs/kbingest/internal/logger"
	"github.com/custodia-labs/kbingest/internal/normalisers/pdftext"
	"github.com/custodia-labs/kbingest/internal/postprocessors"
)

// Mode selects which collaborators Open connects.
type Mode int

const (
	// ModePreview opens neither the store nor the embedding service.
	ModePreview Mode = iota

	// ModeStats opens the store only.
	ModeStats

	// ModeLive opens the store and a validated embedding service.
	ModeLive
)

// Options are the inputs to Open, usually taken from global flags.
type Options struct {
	// ConfigPath is the TOML file; empty uses ~/.kbingest/config.toml.
	ConfigPath string

	// EnvFile is loaded into the environment before credentials are read.
	EnvFile string

	// EnvFileRequired makes a missing EnvFile an error.
	EnvFileRequired bool

	Mode Mode

	// Source restricts the run to one labelled source; empty selects all.
	Source string

	// Extract marks runs that will read documents, so extraction tools are
	// checked before anything is opened.
	Extract bool

	// Progress receives one event per embedding batch.
	Progress func(driving.BatchProgress)
}

// checkPDFTool reports whether PDF extraction can run. Tests replace it.
var checkPDFTool = pdf.CheckAvailable

// Runtime is a wired application.
type Runtime struct {
	Ingestion driving.IngestionService

	// Sources are the configured sources, narrowed by Options.Source.
	Sources     []domain.SourceConfig
	DocumentDir string
	Settings    domain.Settings

	// StoreLocation describes the open store, empty in preview mode.
	StoreLocation string

	// Model is the embedding model in live mode.
	Model string

	closers []func() error
}

// Close releases the store and the embedding service.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Open loads configuration and credentials and builds the ingestion service.
// Configuration problems, an unknown source label included, are reported as
// domain.ErrConfiguration before any store or network I/O.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	if err := file.LoadEnvFile(opts.EnvFile, opts.EnvFileRequired); err != nil {
		return nil, err
	}

	cfg, err := file.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	settings, err := cfg.Settings()
	if err != nil {
		return nil, err
	}
	sources, err := file.SelectSources(cfg.SourceList(), opts.Source)
	if err != nil {
		return nil, err
	}
	if opts.Extract {
		if err := checkTools(sources); err != nil {
			return nil, err
		}
	}
	creds := file.CredentialsFromEnv(nil)

	rt := &Runtime{
		Sources:     sources,
		DocumentDir: cfg.DocumentDir,
	}

	var embedSettings *domain.EmbeddingSettings
	if opts.Mode == ModeLive {
		embedSettings, err = cfg.EmbeddingSettings(creds)
		if err != nil {
			return nil, err
		}
		if err := file.RequireAPIKey(embedSettings); err != nil {
			return nil, err
		}
	}

	var store driven.KnowledgeStore
	if opts.Mode >= ModeStats {
		store, rt.StoreLocation, err = openStore(ctx, cfg, creds)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, store.Close)
	}

	var embedder driven.EmbeddingService
	if opts.Mode == ModeLive {
		// Validated up front: a live run deletes records before it embeds.
		embedder, err = ai.CreateAndValidateEmbeddingService(ctx, embedSettings)
		if err != nil {
			rt.Close()
			return nil, err
		}
		if embedder == nil {
			rt.Close()
			return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, domain.ErrEmbeddingUnavailable)
		}
		rt.closers = append(rt.closers, embedder.Close)
		rt.Model = embedder.ModelName()
		settings.EmbedModel = rt.Model
		logger.Debug("embedding with %s/%s (%d dims)", embedSettings.Provider, rt.Model, embedder.Dimensions())
	}
	rt.Settings = settings

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	pipeline, err := postprocessors.BuildPipeline(registry, settings)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.Ingestion = services.NewIngestionController(
		extractors.NewDefaultRouter(),
		pdftext.New(),
		pipeline,
		store,
		embedder,
		settings,
		services.WithDocumentDir(cfg.DocumentDir),
		services.WithProgress(opts.Progress),
	)
	return rt, nil
}

// checkTools fails when a selected PDF source cannot be extracted.
func checkTools(sources []domain.SourceConfig) error {
	for _, src := range sources {
		if !strings.EqualFold(filepath.Ext(src.File), ".pdf") {
			continue
		}
		if err := checkPDFTool(); err != nil {
			return fmt.Errorf("%w: %w\n%s", domain.ErrConfiguration, err, pdf.InstallInstructions())
		}
		return nil
	}
	return nil
}

func openStore(
	ctx context.Context,
	cfg *file.Config,
	creds file.Credentials,
) (driven.KnowledgeStore, string, error) {
	driver, err := cfg.StorageDriver()
	if err != nil {
		return nil, "", err
	}

	switch driver {
	case domain.StoragePostgres:
		store, err := postgres.NewStore(ctx, cfg.DSN(creds))
		if err != nil {
			return nil, "", fmt.Errorf("opening postgres store: %w", err)
		}
		return store, "postgres", nil
	default:
		store, err := sqlite.NewStore(cfg.Storage.DataDir)
		if err != nil {
			return nil, "", fmt.Errorf("opening sqlite store: %w", err)
		}
		logger.Debug("knowledge store at %s", store.Path())
		return store, store.Path(), nil
	}
}
