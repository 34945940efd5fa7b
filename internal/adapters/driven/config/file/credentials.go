package file

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/kbingest/internal/core/domain"
)

// DefaultEnvFile is loaded from the working directory when no --env-file is given.
const DefaultEnvFile = ".env"

// DatabaseURLEnv holds the Postgres DSN.
const DatabaseURLEnv = "KBINGEST_DATABASE_URL"

// Credentials are the secrets read from the environment.
type Credentials struct {
	OpenAIKey   string
	GeminiKey   string
	DatabaseURL string
}

// LoadEnvFile loads path into the process environment. Variables already
// set are not overridden. A missing file is an error only when required.
func LoadEnvFile(path string, required bool) error {
	if path == "" {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("%w: loading %s: %w", domain.ErrConfiguration, path, err)
	}
	return nil
}

// CredentialsFromEnv reads credentials through getenv. A nil getenv uses os.Getenv.
func CredentialsFromEnv(getenv func(string) string) Credentials {
	if getenv == nil {
		getenv = os.Getenv
	}
	return Credentials{
		OpenAIKey:   getenv(domain.AIProviderOpenAI.APIKeyEnv()),
		GeminiKey:   getenv(domain.AIProviderGemini.APIKeyEnv()),
		DatabaseURL: getenv(DatabaseURLEnv),
	}
}

// APIKey returns the key for provider, or empty if it needs none.
func (c Credentials) APIKey(provider domain.AIProvider) string {
	switch provider {
	case domain.AIProviderOpenAI:
		return c.OpenAIKey
	case domain.AIProviderGemini:
		return c.GeminiKey
	default:
		return ""
	}
}

// RequireAPIKey fails with domain.ErrConfiguration when the provider needs
// a key and none is set.
func RequireAPIKey(settings *domain.EmbeddingSettings) error {
	switch {
	case settings.IsConfigured():
		return nil
	case settings == nil || settings.Provider == "":
		return fmt.Errorf("%w: no embedding provider configured", domain.ErrConfiguration)
	default:
		return fmt.Errorf("%w: %s not set (add it to the environment or .env)",
			domain.ErrConfiguration, settings.Provider.APIKeyEnv())
	}
}
