package llm

// Provider names accepted by NewClient
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Model defaults
const (
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultOpenAIModel = "gpt-4"

	// thinkingModel is the only model the thinking budget is sent to
	thinkingModel = "gemini-2.5-flash"
)

// Config represents the configuration for LLM integration
type Config struct {
	// Provider specifies which LLM provider to use ("gemini", "openai")
	Provider string `json:"provider" mapstructure:"provider"`

	// APIKey is the API key for the LLM provider
	APIKey string `json:"-" mapstructure:"api_key"`

	// Model specifies which model to use (e.g., "gemini-2.5-flash", "gpt-4")
	Model string `json:"model" mapstructure:"model"`

	// BaseURL overrides the provider endpoint, mostly for proxies and tests
	BaseURL string `json:"base_url,omitempty" mapstructure:"base_url"`

	// Temperature controls the randomness of the output (0.0 to 1.0)
	Temperature float64 `json:"temperature" mapstructure:"temperature"`

	// TopP is the nucleus sampling threshold
	TopP float64 `json:"top_p" mapstructure:"top_p"`

	// TopK limits sampling to the K most likely tokens (Gemini only)
	TopK int `json:"top_k" mapstructure:"top_k"`

	// ThinkingBudget caps reasoning tokens; only sent for gemini-2.5-flash and when positive
	ThinkingBudget int `json:"thinking_budget" mapstructure:"thinking_budget"`

	// MaxTokens limits the length of the generated response; zero means provider default
	MaxTokens int `json:"max_tokens" mapstructure:"max_tokens"`
}

// NewDefaultConfig returns a default configuration
func NewDefaultConfig() *Config {
	return &Config{
		Provider:       ProviderGemini,
		Model:          DefaultGeminiModel,
		Temperature:    0.2,
		TopP:           0.9,
		TopK:           40,
		ThinkingBudget: 100,
	}
}

// UsesThinking reports whether a thinking budget is sent with requests
func (c *Config) UsesThinking() bool {
	return c.Model == thinkingModel && c.ThinkingBudget > 0
}
