// Package tokenizer 统计 token 数并按预算裁剪对话上下文
package tokenizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
)

// EmptyText 空文本的 token 数
const EmptyText = -1

// Counter token 计数接口
type Counter interface {
	CountTokens(ctx context.Context, text string) int
}

// Options 分词器配置
type Options struct {
	Endpoint   string        // 远程分词服务地址，为空时只用启发式
	APIKey     string        // Bearer token
	Timeout    time.Duration // 单次请求超时
	HTTPClient *http.Client
	Cache      Cache
}

// Tokenizer 远程分词 + 启发式兜底
type Tokenizer struct {
	endpoint string
	apiKey   string
	client   *http.Client
	cache    Cache
}

// New 创建分词器
func New(opts Options) *Tokenizer {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Tokenizer{
		endpoint: opts.Endpoint,
		apiKey:   opts.APIKey,
		client:   client,
		cache:    opts.Cache,
	}
}

// tokenizeRequest 远程分词请求
type tokenizeRequest struct {
	Inputs string `json:"inputs"`
}

// tokenizeResponse 远程分词响应
type tokenizeResponse struct {
	TokenCount *int              `json:"token_count"`
	Tokens     []json.RawMessage `json:"tokens"`
}

// CountTokens 统计文本 token 数
// 空文本返回 EmptyText；远程失败时退化为启发式估算
func (t *Tokenizer) CountTokens(ctx context.Context, text string) int {
	if strings.TrimSpace(text) == "" {
		return EmptyText
	}
	if t.endpoint == "" {
		return Heuristic(text)
	}

	if t.cache != nil {
		if n, ok := t.cache.Get(ctx, text); ok {
			return n
		}
	}

	n, err := t.countRemote(ctx, text)
	if err != nil {
		log.Printf("[Tokenizer] remote count failed, using heuristic: %v", err)
		return Heuristic(text)
	}

	if t.cache != nil {
		t.cache.Set(ctx, text, n)
	}
	return n
}

// countRemote 调用远程分词服务
func (t *Tokenizer) countRemote(ctx context.Context, text string) (int, error) {
	body, err := json.Marshal(tokenizeRequest{Inputs: text})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to call tokenizer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("tokenizer returned %d: %s", resp.StatusCode, string(raw))
	}

	var parsed tokenizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("failed to decode tokenizer response: %w", err)
	}

	switch {
	case parsed.TokenCount != nil:
		return *parsed.TokenCount, nil
	case parsed.Tokens != nil:
		return len(parsed.Tokens), nil
	default:
		return 0, fmt.Errorf("tokenizer response has no token_count or tokens")
	}
}

// Heuristic 按单词数估算 token：max(1, round(words / 0.75))
func Heuristic(text string) int {
	words := len(strings.Fields(text))
	n := int(math.Round(float64(words) / 0.75))
	if n < 1 {
		return 1
	}
	return n
}

// ========== 上下文裁剪 ==========

// wireMessage 计数用的消息序列化格式
type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CountMessages 统计消息序列（JSON 数组形式）的 token 数
func CountMessages(ctx context.Context, counter Counter, messages []*schema.Message) int {
	wire := make([]wireMessage, 0, len(messages))
	for _, m := range messages {
		wire = append(wire, wireMessage{Role: string(m.Role), Content: m.Content})
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return EmptyText
	}
	return counter.CountTokens(ctx, string(data))
}

// TrimToFit 从最旧的消息开始丢弃，直到整体不超过 maxTokens
// 最新一条消息始终保留，即使仍然超出预算
func TrimToFit(ctx context.Context, counter Counter, messages []*schema.Message, maxTokens int) []*schema.Message {
	trimmed := messages
	for len(trimmed) > 1 && CountMessages(ctx, counter, trimmed) > maxTokens {
		trimmed = trimmed[1:]
	}
	if len(trimmed) < len(messages) {
		log.Printf("[Tokenizer] trimmed %d oldest messages to fit %d tokens", len(messages)-len(trimmed), maxTokens)
	}
	return trimmed
}

// TrimToFit 使用自身计数裁剪
func (t *Tokenizer) TrimToFit(ctx context.Context, messages []*schema.Message, maxTokens int) []*schema.Message {
	return TrimToFit(ctx, t, messages, maxTokens)
}
