package llm

import (
	"context"
	"errors"

	"github.com/verity/verity/internal/model"
)

// ErrEmptyResponse is returned when the backend answers without any text
var ErrEmptyResponse = errors.New("empty completion")

// Provider is a vision-language backend: a prompt plus page images in,
// one text completion out
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends one prompt with its images and returns the completion text
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the backend is reachable
	IsAvailable(ctx context.Context) bool

	// Endpoint identifies the backend for rate limiting and logs
	Endpoint() string
}

// CompletionRequest is one backend call
type CompletionRequest struct {
	Prompt string

	// Images are base64-encoded JPEG pages, in page order
	Images []string

	// Model overrides the configured model when set
	Model string

	MaxTokens   int
	Temperature float32
}

// CompletionResponse contains the backend output
type CompletionResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds provider configuration
type Config struct {
	// Provider name: "openai" (also vLLM and other compatible servers), "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic; vLLM accepts any value
	APIKey string

	// BaseURL for custom endpoints
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	MaxTokens   int
	Temperature float32

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig targets a local vLLM server running Qwen2-VL
func DefaultConfig() Config {
	return Config{
		Provider:    "openai",
		Model:       "Qwen/Qwen2-VL-7B-Instruct",
		BaseURL:     "http://localhost:8000/v1",
		Timeout:     120,
		MaxTokens:   1024,
		Temperature: 0.1,
	}
}

// ConfigFromModel converts the application config into provider config
func ConfigFromModel(cfg *model.Config) Config {
	return Config{
		Provider:    cfg.Backend.Provider,
		Model:       cfg.Backend.Model,
		APIKey:      cfg.Backend.APIKey,
		BaseURL:     cfg.Backend.BaseURL,
		Timeout:     cfg.Backend.Timeout,
		MaxTokens:   cfg.Backend.MaxTokens,
		Temperature: cfg.Backend.Temperature,
		HTTPProxy:   cfg.Proxy.HTTP,
		HTTPSProxy:  cfg.Proxy.HTTPS,
		NoProxy:     cfg.Proxy.NoProxy,
	}
}

func (c Config) maxTokens(req CompletionRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 1024
}

func (c Config) temperature(req CompletionRequest) float32 {
	if req.Temperature > 0 {
		return req.Temperature
	}
	return c.Temperature
}
