package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"phpclientgen/internal/llm"
)

// EnvPrefix namespaces every environment override, e.g. PHPCLIENTGEN_LLM_MODEL
const EnvPrefix = "PHPCLIENTGEN"

// Config holds the application configuration
type Config struct {
	Project string       `mapstructure:"project"`
	LLM     llm.Config   `mapstructure:"llm"`
	Store   StoreConfig  `mapstructure:"store"`
	Output  OutputConfig `mapstructure:"output"`
	Log     LogConfig    `mapstructure:"log"`
	Import  ImportConfig `mapstructure:"import"`

	// File is the config file that was read, if any
	File string `mapstructure:"-"`
}

// StoreConfig locates the project database
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// OutputConfig holds output configuration
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	Dir    string `mapstructure:"dir"`
}

// ImportConfig bounds and checks specification imports
type ImportConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
	Validate bool  `mapstructure:"validate"`
}

// Options controls where Load looks
type Options struct {
	// File is an explicit config file; when empty .phpclientgen.yaml is looked up in the working directory
	File string
	// EnvFiles are loaded before reading the environment; earlier files win
	EnvFiles []string
}

// DefaultEnvFiles lists the dotenv files read by default, most specific first
var DefaultEnvFiles = []string{".env.local", ".env"}

func setDefaults(v *viper.Viper) {
	d := llm.NewDefaultConfig()

	v.SetDefault("project", "default")

	v.SetDefault("llm.provider", d.Provider)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", d.Temperature)
	v.SetDefault("llm.top_p", d.TopP)
	v.SetDefault("llm.top_k", d.TopK)
	v.SetDefault("llm.thinking_budget", d.ThinkingBudget)
	v.SetDefault("llm.max_tokens", d.MaxTokens)

	v.SetDefault("store.path", ".phpclientgen/projects.db")
	v.SetDefault("output.dir", "build")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
	v.SetDefault("log.dir", "")

	v.SetDefault("import.max_bytes", 5<<20)
	v.SetDefault("import.validate", true)
}

// Load loads the configuration from defaults, config file, dotenv files and environment variables
func Load(opts Options) (*Config, error) {
	for _, f := range opts.EnvFiles {
		_ = godotenv.Load(f)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(".phpclientgen")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerAPIKey(v, cfg.LLM.Provider)
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultModel(cfg.LLM.Provider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultModel(provider string) string {
	if provider == llm.ProviderOpenAI {
		return llm.DefaultOpenAIModel
	}
	return llm.DefaultGeminiModel
}

// providerAPIKey falls back to the provider's conventional variable, then API_KEY
func providerAPIKey(v *viper.Viper, provider string) string {
	keys := []string{"API_KEY"}
	switch provider {
	case llm.ProviderGemini:
		keys = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY"}
	case llm.ProviderOpenAI:
		keys = []string{"OPENAI_API_KEY", "API_KEY"}
	}
	for _, key := range keys {
		_ = v.BindEnv(key, key)
		if val := v.GetString(key); val != "" {
			return val
		}
	}
	return ""
}

// Validate checks values that would otherwise fail late
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case llm.ProviderGemini, llm.ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", c.LLM.Temperature)
	}
	if c.LLM.TopP < 0 || c.LLM.TopP > 1 {
		return fmt.Errorf("llm.top_p must be between 0 and 1, got %v", c.LLM.TopP)
	}
	if c.Import.MaxBytes <= 0 {
		return fmt.Errorf("import.max_bytes must be positive, got %d", c.Import.MaxBytes)
	}
	if c.Store.Path == "" {
		return errors.New("store.path is required")
	}
	return nil
}
