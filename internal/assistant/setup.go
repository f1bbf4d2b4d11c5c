package assistant

import (
	"time"

	"github.com/diewo77/go-facturas/internal/config"
)

// NewFromConfig returns nil when the vendors are not configured.
func NewFromConfig(cfg config.AssistantConfig) *Service {
	if !cfg.Enabled() {
		return nil
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	openai := NewOpenAI(cfg.OpenAIBaseURL, cfg.OpenAIKey, cfg.EmbeddingModel, cfg.ChatModel, timeout)
	index := NewPinecone(cfg.PineconeHost, cfg.PineconeKey, cfg.Namespace, timeout)
	return NewService(openai, index, openai, cfg.TopK)
}
