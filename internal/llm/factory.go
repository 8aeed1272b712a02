package llm

import (
	"context"

	"github.com/chakravarthigit/law-backend/internal/config"
)

// New builds the completion client selected by cfg.LLMProvider.
func New(ctx context.Context, cfg config.Config) (Client, func(), error) {
	params := DefaultParams()
	if cfg.LLMModel != "" {
		params.Model = cfg.LLMModel
	}

	switch cfg.LLMProvider {
	case "gemini":
		client, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, params)
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	default:
		return NewTogetherClient(cfg.TogetherAPIURL, cfg.TogetherAPIKey, params, cfg.Debug()), func() {}, nil
	}
}
