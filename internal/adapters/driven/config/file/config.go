package file

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/kbingest/internal/core/domain"
)

// DefaultConfigFile is the config file name inside the kbingest directory.
const DefaultConfigFile = "config.toml"

// DefaultSources are the certification textbooks ingested when no
// [[sources]] are configured.
var DefaultSources = []domain.SourceConfig{
	{Label: "NASM", File: "NASM Essentials of Personal Fitness Training, 6th Edition.pdf"},
	{Label: "ACE", File: "ACE Personal Trainer Manual Study Companion, 5th Edition.pdf"},
	{Label: "NCSF", File: "Advanced Concepts of Personal Training, 2nd Edition.pdf"},
	{Label: "NFPT", File: "NFPT Manual.pdf"},
}

// Config is the on-disk configuration.
type Config struct {
	// DocumentDir is where relative source files are resolved.
	DocumentDir string `toml:"document_dir"`

	Chunking  ChunkingConfig        `toml:"chunking"`
	Embedding EmbeddingConfig       `toml:"embedding"`
	Storage   StorageConfig         `toml:"storage"`
	Preview   PreviewConfig         `toml:"preview"`
	Sources   []domain.SourceConfig `toml:"sources"`
}

// ChunkingConfig is the [chunking] section.
type ChunkingConfig struct {
	TargetChars   int  `toml:"target_chars"`
	OverlapChars  *int `toml:"overlap_chars"` // 0 disables overlap
	MinChars      int  `toml:"min_chars"`
	CharsPerToken int  `toml:"chars_per_token"`
}

// EmbeddingConfig is the [embedding] section.
type EmbeddingConfig struct {
	Provider          string `toml:"provider"`
	Model             string `toml:"model"`
	BaseURL           string `toml:"base_url"`
	BatchSize         int    `toml:"batch_size"`
	PauseMS           *int   `toml:"pause_ms"`            // 0 disables the pause
	RequestsPerMinute int    `toml:"requests_per_minute"` // 0 means no cap
	Dimensions        int    `toml:"dimensions"`
}

// StorageConfig is the [storage] section.
type StorageConfig struct {
	Driver  string `toml:"driver"`
	DataDir string `toml:"data_dir"`
	DSN     string `toml:"dsn"`
}

// PreviewConfig is the [preview] section.
type PreviewConfig struct {
	Chunks int `toml:"chunks"`
	Chars  int `toml:"chars"`
}

// DefaultDir returns ~/.kbingest.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".kbingest"), nil
}

// DefaultPath returns ~/.kbingest/config.toml.
func DefaultPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// Load reads the configuration at path. If path is empty the default
// location is used, and a missing default file yields the defaults.
// A path given explicitly must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("%w: reading config: %w", domain.ErrConfiguration, err)
	}

	return Parse(data)
}

// Parse decodes TOML config data. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%w: unknown config keys:\n%s", domain.ErrConfiguration, strict.String())
		}
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, fmt.Errorf("%w: config line %d column %d: %w", domain.ErrConfiguration, row, col, err)
		}
		return nil, fmt.Errorf("%w: parsing config: %w", domain.ErrConfiguration, err)
	}

	for i, src := range cfg.Sources {
		if strings.TrimSpace(src.Label) == "" || strings.TrimSpace(src.File) == "" {
			return nil, fmt.Errorf("%w: source %d needs both label and file", domain.ErrConfiguration, i+1)
		}
	}
	return &cfg, nil
}

// Settings returns the pipeline settings, defaults filled in and validated.
func (c *Config) Settings() (domain.Settings, error) {
	s := domain.DefaultSettings()

	setIfPositive(&s.ChunkTargetChars, c.Chunking.TargetChars)
	if c.Chunking.OverlapChars != nil {
		s.ChunkOverlapChars = *c.Chunking.OverlapChars
	}
	setIfPositive(&s.MinChunkChars, c.Chunking.MinChars)
	setIfPositive(&s.CharsPerToken, c.Chunking.CharsPerToken)
	setIfPositive(&s.EmbedBatchSize, c.Embedding.BatchSize)
	if c.Embedding.PauseMS != nil {
		s.BatchPause = time.Duration(*c.Embedding.PauseMS) * time.Millisecond
	}
	s.EmbedRequestsPerMinute = c.Embedding.RequestsPerMinute
	if c.Embedding.Model != "" {
		s.EmbedModel = c.Embedding.Model
	}
	setIfPositive(&s.PreviewChunks, c.Preview.Chunks)
	setIfPositive(&s.PreviewChars, c.Preview.Chars)

	if err := s.Validate(); err != nil {
		return domain.Settings{}, err
	}
	return s, nil
}

// EmbeddingSettings returns the provider settings with the API key taken
// from creds. The model defaults to Settings' model for OpenAI and to the
// adapter default for other providers.
func (c *Config) EmbeddingSettings(creds Credentials) (*domain.EmbeddingSettings, error) {
	provider := domain.AIProvider(strings.ToLower(c.Embedding.Provider))
	if provider == "" {
		provider = domain.AIProviderOpenAI
	}
	if !provider.IsValid() {
		return nil, fmt.Errorf("%w: unknown embedding provider %q", domain.ErrConfiguration, c.Embedding.Provider)
	}

	model := c.Embedding.Model
	if model == "" && provider == domain.AIProviderOpenAI {
		model = domain.DefaultEmbedModel
	}

	return &domain.EmbeddingSettings{
		Provider:   provider,
		Model:      model,
		BaseURL:    c.Embedding.BaseURL,
		APIKey:     creds.APIKey(provider),
		Dimensions: c.Embedding.Dimensions,
	}, nil
}

// StorageDriver returns the configured driver, sqlite when unset.
func (c *Config) StorageDriver() (domain.StorageDriver, error) {
	driver := domain.StorageDriver(strings.ToLower(c.Storage.Driver))
	if driver == "" {
		return domain.StorageSQLite, nil
	}
	if !driver.IsValid() {
		return "", fmt.Errorf("%w: unknown storage driver %q (use sqlite or postgres)",
			domain.ErrConfiguration, c.Storage.Driver)
	}
	return driver, nil
}

// DSN returns the Postgres connection string. The environment wins over the file.
func (c *Config) DSN(creds Credentials) string {
	if creds.DatabaseURL != "" {
		return creds.DatabaseURL
	}
	return c.Storage.DSN
}

// SourceList returns the configured sources, or DefaultSources.
func (c *Config) SourceList() []domain.SourceConfig {
	if len(c.Sources) == 0 {
		return append([]domain.SourceConfig(nil), DefaultSources...)
	}
	return append([]domain.SourceConfig(nil), c.Sources...)
}

// SelectSources narrows sources to the one labelled label. An empty label
// selects all of them.
func SelectSources(sources []domain.SourceConfig, label string) ([]domain.SourceConfig, error) {
	if label == "" {
		return sources, nil
	}
	for _, src := range sources {
		if src.Label == label {
			return []domain.SourceConfig{src}, nil
		}
	}

	labels := make([]string, len(sources))
	for i, src := range sources {
		labels[i] = src.Label
	}
	return nil, fmt.Errorf("%w: unknown source %q (options: %s)",
		domain.ErrConfiguration, label, strings.Join(labels, ", "))
}

func setIfPositive(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
