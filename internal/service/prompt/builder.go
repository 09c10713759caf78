// Package prompt 组装发送给 LLM 的对话上下文
package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// NoContext 没有上下文片段时的占位
const NoContext = "No additional context provided."

// DefaultPersona 默认人设
const DefaultPersona = "You are a helpful AI agent for the groceries store Fresh Food. Use the provided context and conversation history to answer user questions."

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// Builder 提示词构建器
type Builder struct {
	persona string
}

// NewBuilder 创建构建器，persona 为空时使用默认人设
func NewBuilder(persona string) *Builder {
	if strings.TrimSpace(persona) == "" {
		persona = DefaultPersona
	}
	return &Builder{persona: persona}
}

// BuildPrompt 人设 + 上下文 + 历史 + 当前消息
func (b *Builder) BuildPrompt(chunks []string, history []*schema.Message, userMessage string) []*schema.Message {
	context := NoContext
	if len(chunks) > 0 {
		context = strings.Join(chunks, "\n\n")
	}

	messages := make([]*schema.Message, 0, len(history)+3)
	messages = append(messages, schema.SystemMessage(b.persona), schema.SystemMessage(context))
	messages = append(messages, history...)
	messages = append(messages, schema.UserMessage(userMessage))
	return messages
}

// CartLine 购物车行摘要
type CartLine struct {
	Name     string
	Quantity int
}

// CartSummary 购物车上下文片段
func CartSummary(lines []CartLine) string {
	if len(lines) == 0 {
		return "User's cart is empty."
	}
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, fmt.Sprintf("%d x %s", l.Quantity, l.Name))
	}
	return fmt.Sprintf("User's cart contains: %s.", strings.Join(parts, ", "))
}

// ExtractURLs 提取消息中的 http(s) 链接
func ExtractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

// URLChunk 链接上下文片段，无链接返回空串
func URLChunk(text string) string {
	urls := ExtractURLs(text)
	if len(urls) == 0 {
		return ""
	}
	return fmt.Sprintf("[User mentioned URLs: %s]", strings.Join(urls, ", "))
}
