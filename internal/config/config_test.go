package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dom/puckquery/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inEmptyDir runs the test from a directory without a config.yaml.
func inEmptyDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	inEmptyDir(t)
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "data/olympic_womens_dataset.csv", cfg.DataPath)
	assert.Equal(t, "data/womens_hockey_jersey_numbers.csv", cfg.JerseyPath)
	assert.Equal(t, uint64(42), cfg.JerseySeed)
	assert.True(t, cfg.SeedOnStart)
	assert.Equal(t, "gpt-4o-mini", cfg.LLMModel)
	assert.Equal(t, 30*time.Second, cfg.EngineBuildTimeout)
	assert.Equal(t, 60*time.Second, cfg.EngineAnswerTimeout)
	assert.Equal(t, 512, cfg.QueryCacheSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 168, cfg.RefreshTokenHours)
	assert.Equal(t, domain.RoleViewer, cfg.DefaultRole)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	inEmptyDir(t)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "9090")
	t.Setenv("JERSEY_SEED", "7")
	t.Setenv("SEED_ON_START", "false")
	t.Setenv("QUERY_CACHE_SIZE", "16")
	t.Setenv("ENGINE_BUILD_TIMEOUT_SECONDS", "5")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, uint64(7), cfg.JerseySeed)
	assert.False(t, cfg.SeedOnStart)
	assert.Equal(t, 16, cfg.QueryCacheSize)
	assert.Equal(t, 5*time.Second, cfg.EngineBuildTimeout)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := inEmptyDir(t)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("LLM_MODEL", "from-env")

	yaml := "llm_model: from-file\nlog_format: json\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "from-env", cfg.LLMModel)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing jwt secret", env: map[string]string{"JWT_SECRET": ""}},
		{name: "zero cache size", env: map[string]string{"JWT_SECRET": "s", "QUERY_CACHE_SIZE": "0"}},
		{name: "unknown default role", env: map[string]string{"JWT_SECRET": "s", "AUTH_DEFAULT_ROLE": "owner"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inEmptyDir(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := load(viper.New())
			assert.Error(t, err)
		})
	}
}
