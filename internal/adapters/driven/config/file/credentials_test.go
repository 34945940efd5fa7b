package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbingest/internal/core/domain"
)

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("KBINGEST_TEST_ENV_VALUE=\"from-file\"\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("KBINGEST_TEST_ENV_VALUE") })

	require.NoError(t, LoadEnvFile(path, true))
	assert.Equal(t, "from-file", os.Getenv("KBINGEST_TEST_ENV_VALUE"))
}

func TestLoadEnvFile_DoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("KBINGEST_TEST_ENV_KEEP=from-file\n"), 0600))
	t.Setenv("KBINGEST_TEST_ENV_KEEP", "from-shell")

	require.NoError(t, LoadEnvFile(path, true))
	assert.Equal(t, "from-shell", os.Getenv("KBINGEST_TEST_ENV_KEEP"))
}

func TestLoadEnvFile_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.env")

	require.NoError(t, LoadEnvFile(path, false))
	require.ErrorIs(t, LoadEnvFile(path, true), domain.ErrConfiguration)
}

func TestCredentialsFromEnv(t *testing.T) {
	env := map[string]string{
		"OPENAI_API_KEY":        "sk-openai",
		"GEMINI_API_KEY":        "gm-key",
		"KBINGEST_DATABASE_URL": "postgres://localhost/kb",
	}
	creds := CredentialsFromEnv(func(k string) string { return env[k] })

	assert.Equal(t, "sk-openai", creds.APIKey(domain.AIProviderOpenAI))
	assert.Equal(t, "gm-key", creds.APIKey(domain.AIProviderGemini))
	assert.Empty(t, creds.APIKey(domain.AIProviderOllama))
	assert.Equal(t, "postgres://localhost/kb", creds.DatabaseURL)
}

func TestRequireAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.EmbeddingSettings
		wantErr  bool
	}{
		{"nil settings", nil, true},
		{"openai without key", &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI}, true},
		{"openai with key", &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, APIKey: "sk"}, false},
		{"gemini without key", &domain.EmbeddingSettings{Provider: domain.AIProviderGemini}, true},
		{"ollama needs no key", &domain.EmbeddingSettings{Provider: domain.AIProviderOllama}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireAPIKey(tt.settings)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrConfiguration)
				assert.NotEmpty(t, err.Error())
			} else {
				require.NoError(t, err)
			}
		})
	}
}
