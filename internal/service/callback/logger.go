// Package callback 提供 Eino Callback 日志支持
package callback

import (
	"context"
	"log"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Logger 日志回调处理器
// 实现 callbacks.Handler 接口，记录 ChatModel 的调用事件和 token 用量
type Logger struct {
	EnableDebug bool // 是否启用调试模式
}

// NewLogger 创建日志回调处理器
func NewLogger(enableDebug bool) *Logger {
	return &Logger{EnableDebug: enableDebug}
}

// OnStart 组件执行开始时调用
func (l *Logger) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	if l.EnableDebug {
		log.Printf("[Eino] OnStart: name=%s component=%s messages=%d",
			info.Name, info.Component, countInputMessages(input))
	}
	return ctx
}

// OnEnd 组件执行成功结束时调用
func (l *Logger) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	out := model.ConvCallbackOutput(output)
	if out == nil || out.TokenUsage == nil {
		if l.EnableDebug {
			log.Printf("[Eino] OnEnd: name=%s component=%s", info.Name, info.Component)
		}
		return ctx
	}
	log.Printf("[Eino] OnEnd: name=%s prompt_tokens=%d completion_tokens=%d total_tokens=%d",
		info.Name, out.TokenUsage.PromptTokens, out.TokenUsage.CompletionTokens, out.TokenUsage.TotalTokens)
	return ctx
}

// OnError 组件执行出错时调用
func (l *Logger) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	log.Printf("[Eino] Error: name=%s type=%s component=%s error=%v",
		info.Name, info.Type, info.Component, err)
	return ctx
}

// OnStartWithStreamInput 流式输入开始时调用
func (l *Logger) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo, input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	return ctx
}

// OnEndWithStreamOutput 流式输出结束时调用
func (l *Logger) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo, output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	output.Close()
	return ctx
}

// countInputMessages 统计输入消息数
func countInputMessages(input callbacks.CallbackInput) int {
	in := model.ConvCallbackInput(input)
	if in == nil {
		return 0
	}
	return len(in.Messages)
}
