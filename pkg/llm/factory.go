package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/biodb-tools/biodb-engine/pkg/config"
)

// NewProvider creates the completion provider named by the assistant config.
// "openai" and "ollama" share the OpenAI-compatible provider; they differ
// only in endpoint.
func NewProvider(cfg config.AssistantConfig, logger *zap.Logger) (Provider, error) {
	switch cfg.Provider {
	case "openai", "ollama":
		return NewOpenAIProvider(cfg.Endpoint, cfg.Model, cfg.APIKey, logger)
	case "anthropic":
		return NewAnthropicProvider(cfg.Model, cfg.APIKey, logger)
	default:
		return nil, fmt.Errorf("unknown assistant provider %q", cfg.Provider)
	}
}
