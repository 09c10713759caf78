package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ashwinyue/freshcart/internal/config"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// NewChatModel 按 provider 创建 OpenAI 兼容的 ChatModel
func NewChatModel(ctx context.Context, aiCfg *config.AIConfig) (model.BaseChatModel, error) {
	var apiKey, baseURL, modelName string
	var timeout int

	switch aiCfg.Provider {
	case "openai":
		apiKey = aiCfg.OpenAI.APIKey
		baseURL = aiCfg.OpenAI.BaseURL
		modelName = aiCfg.OpenAI.Model
		timeout = aiCfg.OpenAI.Timeout
	case "alibaba", "qwen", "dashscope":
		apiKey = aiCfg.Alibaba.AccessKeySecret
		baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
		modelName = aiCfg.Alibaba.Model
		timeout = aiCfg.Alibaba.Timeout
	case "deepseek":
		apiKey = aiCfg.DeepSeek.APIKey
		baseURL = aiCfg.DeepSeek.BaseURL
		modelName = aiCfg.DeepSeek.Model
		timeout = aiCfg.DeepSeek.Timeout
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", aiCfg.Provider)
	}

	if apiKey == "" {
		return nil, fmt.Errorf("api_key is required for provider: %s", aiCfg.Provider)
	}

	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	chatCfg := &openai.ChatModelConfig{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Model:   modelName,
	}
	if timeout > 0 {
		chatCfg.Timeout = time.Duration(timeout) * time.Second
	}

	return openai.NewChatModel(ctx, chatCfg)
}
