package llm

import (
	"fmt"

	"github.com/soypete/autopilot/pkg/config"
)

// NewBackend creates a new LLM backend based on the configuration
func NewBackend(cfg *config.Config) (Backend, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return NewOpenAIClient(OpenAIClientConfig{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			ContextSize: cfg.LLM.ContextSize,
			Timeout:     cfg.LLMTimeout(),
			MaxRetries:  cfg.LLM.MaxRetries,
		}), nil
	case "ollama":
		return NewOllamaClient(OllamaConfig{
			BaseURL:     cfg.LLM.BaseURL,
			ModelName:   cfg.LLM.Model,
			ContextSize: cfg.LLM.ContextSize,
			Timeout:     cfg.LLMTimeout(),
			MaxRetries:  cfg.LLM.MaxRetries,
		}), nil
	case "server":
		return NewServerClient(ServerClientConfig{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			ModelName:   cfg.LLM.Model,
			ContextSize: cfg.LLM.ContextSize,
			Timeout:     cfg.LLMTimeout(),
			MaxRetries:  cfg.LLM.MaxRetries,
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s (supported: openai, ollama, server)", cfg.LLM.Provider)
	}
}
