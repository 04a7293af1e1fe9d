package cli

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verity/verity/internal/model"
)

func TestDecodeConfig_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	v := viper.New()
	configureViper(v, model.DefaultConfig())

	cfg, err := decodeConfig(v)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)
}

func TestDecodeConfig_EnvOverrides(t *testing.T) {
	t.Setenv("VERITY_BACKEND_MODEL", "qwen2-vl-72b")
	t.Setenv("VERITY_CONCURRENCY_DOCUMENTS", "3")
	t.Setenv("VERITY_DOCUMENT_TIMEOUT", "45s")
	t.Setenv("VERITY_SOURCE_BASE_URL", "http://db.test/api")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	v := viper.New()
	configureViper(v, model.DefaultConfig())

	cfg, err := decodeConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "qwen2-vl-72b", cfg.Backend.Model)
	assert.Equal(t, 3, cfg.Concurrency.Documents)
	assert.Equal(t, 45*time.Second, cfg.DocumentTimeout)
	assert.Equal(t, "http://db.test/api", cfg.Source.BaseURL)
	assert.Equal(t, "sk-test", cfg.Backend.APIKey)
}

func TestDecodeConfig_OllamaBaseURL(t *testing.T) {
	t.Setenv("VERITY_BACKEND_PROVIDER", "ollama")
	t.Setenv("OLLAMA_BASE_URL", "")

	v := viper.New()
	configureViper(v, model.DefaultConfig())

	cfg, err := decodeConfig(v)
	require.NoError(t, err)
	assert.Equal(t, defaultOllamaURL, cfg.Backend.BaseURL)
	assert.Empty(t, cfg.Backend.APIKey)
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".verity", "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	assert.Equal(t, "openai", v.GetString("backend.provider"))
	assert.Equal(t, 8, v.GetInt("concurrency.documents"))

	err := writeDefaultConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}
