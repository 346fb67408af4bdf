package llm

import "time"

const defaultOllamaURL = "http://localhost:11434"

// OllamaClient is a ServerClient pointed at Ollama's OpenAI-compatible API,
// with context sizes looked up for the models it commonly serves.
type OllamaClient struct {
	*ServerClient
}

// OllamaConfig configures an OllamaClient. BaseURL defaults to the local
// daemon and ContextSize to the known window of ModelName.
type OllamaConfig struct {
	BaseURL     string
	ModelName   string
	ContextSize int
	Timeout     time.Duration
	MaxRetries  int
}

// NewOllamaClient builds a client for a local or remote Ollama daemon.
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	contextSize := cfg.ContextSize
	if contextSize == 0 {
		contextSize = ollamaContextSize(cfg.ModelName)
	}

	return &OllamaClient{
		ServerClient: NewServerClient(ServerClientConfig{
			BaseURL:     baseURL,
			ModelName:   cfg.ModelName,
			ContextSize: contextSize,
			Timeout:     cfg.Timeout,
			MaxRetries:  cfg.MaxRetries,
		}),
	}
}

// ollamaContextWindows lists general-purpose writing models.
var ollamaContextWindows = map[string]int{
	"llama3.1:8b":  131072,
	"llama3.1:70b": 131072,
	"llama3.2:3b":  131072,
	"llama3.3:70b": 131072,
	"qwen2.5:7b":   32768,
	"qwen2.5:14b":  32768,
	"qwen2.5:32b":  32768,
	"qwen2.5:72b":  131072,
	"mistral:7b":   32768,
	"mistral-nemo": 131072,
	"mixtral:8x7b": 32768,
	"gemma2:9b":    8192,
	"gemma2:27b":   8192,
	"phi3:medium":  131072,
}

// ollamaContextSize returns the window for a known model, 8192 otherwise.
func ollamaContextSize(model string) int {
	if n, ok := ollamaContextWindows[model]; ok {
		return n
	}
	return 8192
}
