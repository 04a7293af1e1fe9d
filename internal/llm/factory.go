package llm

import (
	"fmt"
	"strings"
)

// NewProvider creates a provider based on configuration
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai", "vllm":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		return nil, fmt.Errorf("no extraction backend configured (supported: openai, anthropic, ollama)")

	default:
		return nil, fmt.Errorf("unknown backend provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}
