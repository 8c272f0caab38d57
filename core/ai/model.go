package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/m3rciful/leadbot/core/config"
)

// NewChatModel creates the Volcengine Ark chat model described by cfg.
func NewChatModel(ctx context.Context, cfg config.AIConfig) (model.BaseChatModel, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("ai: ark credentials missing; set ARK_API_KEY or ARK_ACCESS_KEY and ARK_SECRET_KEY")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("ai: model is required")
	}

	temperature := cfg.Temperature
	maxTokens := cfg.MaxTokens

	cm, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		Region:      cfg.Region,
		APIKey:      cfg.APIKey,
		AccessKey:   cfg.AccessKey,
		SecretKey:   cfg.SecretKey,
		Model:       cfg.Model,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("ai: create ark chat model: %w", err)
	}
	return cm, nil
}
