package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets variables that would leak in from the host and restores them afterwards
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		prev, ok := os.LookupEnv(key)
		os.Unsetenv(key)
		t.Cleanup(func() {
			if ok {
				os.Setenv(key, prev)
			} else {
				os.Unsetenv(key)
			}
		})
	}
}

var apiKeyVars = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY", "API_KEY", "PHPCLIENTGEN_LLM_API_KEY"}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t, apiKeyVars...)
	t.Chdir(t.TempDir())

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.Project)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, 0.2, cfg.LLM.Temperature)
	assert.Equal(t, 0.9, cfg.LLM.TopP)
	assert.Equal(t, 40, cfg.LLM.TopK)
	assert.Equal(t, 100, cfg.LLM.ThinkingBudget)
	assert.Empty(t, cfg.LLM.APIKey)
	assert.Equal(t, ".phpclientgen/projects.db", cfg.Store.Path)
	assert.Equal(t, "build", cfg.Output.Dir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, int64(5<<20), cfg.Import.MaxBytes)
	assert.True(t, cfg.Import.Validate)
	assert.Empty(t, cfg.File)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	clearEnv(t, apiKeyVars...)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
project: shop
llm:
  provider: openai
  model: gpt-4o
  temperature: 0.5
output:
  dir: out
import:
  validate: false
`), 0o644))

	t.Setenv("PHPCLIENTGEN_OUTPUT_DIR", "from-env")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(Options{File: path})
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "shop", cfg.Project)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 0.5, cfg.LLM.Temperature)
	assert.Equal(t, "from-env", cfg.Output.Dir)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.False(t, cfg.Import.Validate)
}

func TestLoad_DiscoversDotFile(t *testing.T) {
	clearEnv(t, apiKeyVars...)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".phpclientgen.yaml"), []byte("project: found\n"), 0o644))

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, "found", cfg.Project)
	assert.NotEmpty(t, cfg.File)
}

func TestLoad_EnvFiles(t *testing.T) {
	clearEnv(t, apiKeyVars...)
	dir := t.TempDir()
	local := filepath.Join(dir, ".env.local")
	shared := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(local, []byte("GEMINI_API_KEY=local-key\n"), 0o644))
	require.NoError(t, os.WriteFile(shared, []byte("GEMINI_API_KEY=shared-key\nAPI_KEY=generic\n"), 0o644))

	cfg, err := Load(Options{File: writeEmpty(t, dir), EnvFiles: []string{local, shared}})
	require.NoError(t, err)
	assert.Equal(t, "local-key", cfg.LLM.APIKey)
}

func TestLoad_GenericAPIKeyFallback(t *testing.T) {
	clearEnv(t, apiKeyVars...)
	t.Setenv("API_KEY", "generic")

	cfg, err := Load(Options{File: writeEmpty(t, t.TempDir())})
	require.NoError(t, err)
	assert.Equal(t, "generic", cfg.LLM.APIKey)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t, apiKeyVars...)

	tests := []struct {
		name string
		env  map[string]string
	}{
		{"provider", map[string]string{"PHPCLIENTGEN_LLM_PROVIDER": "anthropic"}},
		{"temperature", map[string]string{"PHPCLIENTGEN_LLM_TEMPERATURE": "3"}},
		{"top_p", map[string]string{"PHPCLIENTGEN_LLM_TOP_P": "1.5"}},
		{"max bytes", map[string]string{"PHPCLIENTGEN_IMPORT_MAX_BYTES": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(Options{File: writeEmpty(t, t.TempDir())})
			assert.Error(t, err)
		})
	}

	_, err := Load(Options{File: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func writeEmpty(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))
	return path
}

func TestLoad_DefaultModelFollowsProvider(t *testing.T) {
	clearEnv(t, apiKeyVars...)
	t.Chdir(t.TempDir())
	t.Setenv("PHPCLIENTGEN_LLM_PROVIDER", "openai")

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4", cfg.LLM.Model)
}
