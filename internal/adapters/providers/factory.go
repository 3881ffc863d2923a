package providers

import (
	"fmt"
	"strings"

	"github.com/marketmind/marketmind/internal/adapters/llm"
	"github.com/marketmind/marketmind/internal/config"
	"github.com/marketmind/marketmind/internal/core/ports"
)

// BuildChatModel selects the model provider from configuration.
func BuildChatModel(cfg config.LLMConfig) (ports.ChatModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("llm api key is required (LLM_API_KEY)")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "openai":
		return llm.NewOpenAIModel(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case "anthropic":
		return llm.NewAnthropicModel(cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
