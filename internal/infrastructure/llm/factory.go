// Package llm 提供 LLM 提供商适配实现
package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"

	"ghostwriter-ai-api/internal/config"
	"ghostwriter-ai-api/internal/workflow/port"
)

// Factory 按提供商名称管理 TextGenerator 实例
type Factory struct {
	config     *config.LLMConfig
	generators map[string]port.TextGenerator
	mu         sync.RWMutex
}

// NewFactory 创建 LLM 工厂
func NewFactory(cfg *config.LLMConfig) *Factory {
	return &Factory{
		config:     cfg,
		generators: make(map[string]port.TextGenerator),
	}
}

// Get 获取指定名称的生成器，未指定时返回默认提供商
func (f *Factory) Get(ctx context.Context, name string) (port.TextGenerator, error) {
	if name == "" {
		name = f.config.DefaultProvider
	}

	f.mu.RLock()
	g, ok := f.generators[name]
	f.mu.RUnlock()
	if ok {
		return g, nil
	}

	// 惰性加载
	f.mu.Lock()
	defer f.mu.Unlock()

	// 再次检查防止竞态
	if g, ok = f.generators[name]; ok {
		return g, nil
	}

	providerCfg, ok := f.config.Providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not found in LLM config", name)
	}

	g, err := f.build(ctx, name, providerCfg)
	if err != nil {
		return nil, err
	}
	f.generators[name] = g
	return g, nil
}

func (f *Factory) build(ctx context.Context, name string, cfg config.ProviderConfig) (port.TextGenerator, error) {
	switch cfg.API {
	case config.ProviderAPIChat:
		var maxTokens *int
		if cfg.MaxTokens > 0 {
			maxTokens = &cfg.MaxTokens
		}
		var temperature *float32
		if cfg.Temperature > 0 {
			t := float32(cfg.Temperature)
			temperature = &t
		}
		// 使用 Eino 的 OpenAI 适配器
		chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   maxTokens,
			Temperature: temperature,
			Timeout:     cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
		}
		return NewChatGenerator(name, cfg.Model, cfg.Reasoning, chatModel), nil
	case config.ProviderAPIResponses, "":
		return NewResponsesGenerator(name, cfg), nil
	default:
		return nil, fmt.Errorf("provider %s has unsupported api %q", name, cfg.API)
	}
}
