// Package llm 封装 eino ChatModel 调用
// 统一超时、调用用途日志和回调
package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Purpose 调用用途
type Purpose string

const (
	PurposeIntent  Purpose = "intent"
	PurposeConfirm Purpose = "confirm"
	PurposeExtract Purpose = "extract"
	PurposeRanking Purpose = "ranking"
	PurposeAgent   Purpose = "agent"
)

// ErrNoChatModel 未配置 ChatModel
var ErrNoChatModel = errors.New("chat model not configured")

// Completer 文本补全接口
type Completer interface {
	Complete(ctx context.Context, purpose Purpose, messages []*schema.Message) (string, error)
}

// Options 调用参数
type Options struct {
	Timeout     time.Duration
	Temperature float32
	TopP        float32
	MaxTokens   int
	Debug       bool
	Handler     callbacks.Handler
}

// Client 带超时的 ChatModel 客户端
type Client struct {
	chatModel model.BaseChatModel
	timeout   time.Duration
	opts      []model.Option
	handler   callbacks.Handler
	debug     bool
}

// NewClient 创建客户端，chatModel 可以为 nil（所有调用返回 ErrNoChatModel）
func NewClient(chatModel model.BaseChatModel, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	var modelOpts []model.Option
	if opts.Temperature > 0 {
		modelOpts = append(modelOpts, model.WithTemperature(opts.Temperature))
	}
	if opts.TopP > 0 {
		modelOpts = append(modelOpts, model.WithTopP(opts.TopP))
	}
	if opts.MaxTokens > 0 {
		modelOpts = append(modelOpts, model.WithMaxTokens(opts.MaxTokens))
	}

	return &Client{
		chatModel: chatModel,
		timeout:   timeout,
		opts:      modelOpts,
		handler:   opts.Handler,
		debug:     opts.Debug,
	}
}

// Complete 调用 LLM 并返回去除首尾空白的文本
// 超时按调用失败处理
func (c *Client) Complete(ctx context.Context, purpose Purpose, messages []*schema.Message) (string, error) {
	if c.chatModel == nil {
		return "", ErrNoChatModel
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.handler != nil {
		ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
			Name:      "llm." + string(purpose),
			Type:      "ChatModel",
			Component: components.ComponentOfChatModel,
		}, c.handler)
	}

	if c.debug {
		log.Printf("[LLM][%s] prompt: %s", purpose, FormatMessages(messages))
	}

	start := time.Now()
	resp, err := c.chatModel.Generate(ctx, messages, c.opts...)
	if err != nil {
		log.Printf("[LLM][%s] call failed after %v: %v", purpose, time.Since(start), err)
		return "", fmt.Errorf("llm %s call failed: %w", purpose, err)
	}
	if resp == nil {
		return "", fmt.Errorf("llm %s returned no message", purpose)
	}

	return strings.TrimSpace(resp.Content), nil
}

// FormatMessages 单行格式化消息，用于日志
func FormatMessages(messages []*schema.Message) string {
	var sb strings.Builder
	for i, msg := range messages {
		if i > 0 {
			sb.WriteString(" | ")
		}
		content := msg.Content
		if len(content) > 200 {
			content = content[:200] + "..."
		}
		sb.WriteString(fmt.Sprintf("%s: %s", msg.Role, content))
	}
	return sb.String()
}
