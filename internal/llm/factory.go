package llm

import (
	"context"
	"fmt"
	"strings"

	"smart-resume-analyzer/internal/config"
	"smart-resume-analyzer/internal/logger"
)

// 支持的模型提供方
const (
	ProviderQwen   = "qwen"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderNone   = "none"
)

// NewFromConfig 按配置创建唯一的模型适配器，并套上限流代理
func NewFromConfig(ctx context.Context, cfg config.LLMConfig) (ModelAdapter, error) {
	var base ModelAdapter
	switch provider := strings.ToLower(strings.TrimSpace(cfg.Provider)); provider {
	case ProviderNone, "":
		logger.Warn().Msg("未配置模型，所有回答将使用规则分析")
		return Unavailable{}, nil
	case ProviderQwen:
		chat, err := NewQwenChatModel(cfg.APIKey, cfg.Model, cfg.APIURL, config.GetDuration(cfg.Timeout, defaultTimeout))
		if err != nil {
			return nil, fmt.Errorf("创建通义千问模型失败: %w", err)
		}
		base = NewChatAdapter(chat)
	case ProviderGemini:
		gemini, err := NewGeminiAdapter(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("创建 Gemini 模型失败: %w", err)
		}
		base = gemini
	case ProviderOllama:
		ollama, err := NewOllamaAdapter(cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("创建 Ollama 客户端失败: %w", err)
		}
		base = ollama
	default:
		return nil, fmt.Errorf("不支持的模型提供方: %s", provider)
	}

	logger.Info().Str("provider", cfg.Provider).Str("model", cfg.Model).Int("qpm", cfg.QPM).Msg("模型适配器已创建")
	return NewRateLimitedAdapter(base, cfg.QPM, cfg.MaxRetries, config.GetDuration(cfg.RetryWait, defaultRetryWait)), nil
}
