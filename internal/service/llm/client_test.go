// Package llm 提供 LLM 客户端单元测试
package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ashwinyue/freshcart/internal/config"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// mockChatModel 模拟 ChatModel
type mockChatModel struct {
	content   string
	err       error
	block     bool
	callCount int
	lastOpts  *model.Options
}

func (m *mockChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.callCount++
	m.lastOpts = model.GetCommonOptions(nil, opts...)
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return &schema.Message{Role: schema.Assistant, Content: m.content}, nil
}

func (m *mockChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, nil
}

func (m *mockChatModel) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

// ========== Complete 测试 ==========

func TestClient_Complete(t *testing.T) {
	ctx := context.Background()
	msgs := []*schema.Message{schema.UserMessage("hello")}

	tests := []struct {
		name    string
		mock    *mockChatModel
		want    string
		wantErr bool
	}{
		{
			name: "trims content",
			mock: &mockChatModel{content: "  add_to_cart \n"},
			want: "add_to_cart",
		},
		{
			name:    "model error",
			mock:    &mockChatModel{err: errors.New("boom")},
			wantErr: true,
		},
		{
			name: "empty content",
			mock: &mockChatModel{content: "   "},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.mock, Options{Timeout: time.Second})
			got, err := c.Complete(ctx, PurposeIntent, msgs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Complete() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Complete() = %q, want %q", got, tt.want)
			}
			if tt.mock.callCount != 1 {
				t.Errorf("callCount = %d, want 1", tt.mock.callCount)
			}
		})
	}
}

func TestClient_Complete_NoModel(t *testing.T) {
	c := NewClient(nil, Options{})
	_, err := c.Complete(context.Background(), PurposeAgent, nil)
	if !errors.Is(err, ErrNoChatModel) {
		t.Errorf("Complete() error = %v, want ErrNoChatModel", err)
	}
}

func TestClient_Complete_Timeout(t *testing.T) {
	mock := &mockChatModel{block: true}
	c := NewClient(mock, Options{Timeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := c.Complete(context.Background(), PurposeAgent, []*schema.Message{schema.UserMessage("hi")})
	if err == nil {
		t.Fatal("Complete() expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Complete() error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("Complete() did not honour timeout")
	}
}

func TestClient_Options(t *testing.T) {
	mock := &mockChatModel{content: "ok"}
	c := NewClient(mock, Options{Temperature: 0.7, TopP: 0.9, MaxTokens: 400})

	if _, err := c.Complete(context.Background(), PurposeAgent, []*schema.Message{schema.UserMessage("hi")}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	opts := mock.lastOpts
	if opts == nil || opts.Temperature == nil || *opts.Temperature != 0.7 {
		t.Errorf("temperature not applied: %+v", opts)
	}
	if opts.TopP == nil || *opts.TopP != 0.9 {
		t.Errorf("top_p not applied: %+v", opts)
	}
	if opts.MaxTokens == nil || *opts.MaxTokens != 400 {
		t.Errorf("max_tokens not applied: %+v", opts)
	}
}

func TestFormatMessages(t *testing.T) {
	got := FormatMessages([]*schema.Message{schema.SystemMessage("sys"), schema.UserMessage("hi")})
	want := "system: sys | user: hi"
	if got != want {
		t.Errorf("FormatMessages() = %q, want %q", got, want)
	}
}

// ========== NewChatModel 测试 ==========

func TestNewChatModel_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.AIConfig
	}{
		{name: "unsupported provider", cfg: &config.AIConfig{Provider: "unknown"}},
		{name: "missing openai key", cfg: &config.AIConfig{Provider: "openai"}},
		{name: "missing deepseek key", cfg: &config.AIConfig{Provider: "deepseek"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewChatModel(context.Background(), tt.cfg); err == nil {
				t.Error("NewChatModel() expected error")
			}
		})
	}
}

func TestNewChatModel_OpenAI(t *testing.T) {
	cm, err := NewChatModel(context.Background(), &config.AIConfig{
		Provider: "openai",
		OpenAI:   config.OpenAIConfig{APIKey: "sk-test", BaseURL: "http://localhost:1/v1", Model: "gpt-4o-mini", Timeout: 5},
	})
	if err != nil {
		t.Fatalf("NewChatModel() error = %v", err)
	}
	if cm == nil {
		t.Fatal("NewChatModel() returned nil")
	}
}
