package intent

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/ashwinyue/freshcart/internal/service/llm"
	"github.com/cloudwego/eino/schema"
)

// defaultSuggestion 历史中没有助手提问时使用
const defaultSuggestion = "Would you like me to proceed?"

// suggestionPattern 助手提出建议动作的句式
var suggestionPattern = regexp.MustCompile(`(?i)would you like me to|should i`)

// InferPendingAction 从历史最后两条推断待确认动作
// 最后一条是带建议句式的助手消息且前一条是用户消息时，返回该用户消息
func InferPendingAction(history []*schema.Message) (string, bool) {
	n := len(history)
	if n < 2 {
		return "", false
	}
	last, prev := history[n-1], history[n-2]
	if last.Role != schema.Assistant || !suggestionPattern.MatchString(last.Content) {
		return "", false
	}
	if prev.Role != schema.User || strings.TrimSpace(prev.Content) == "" {
		return "", false
	}
	return prev.Content, true
}

// LastAssistantMessage 历史中最近一条助手消息
func LastAssistantMessage(history []*schema.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == schema.Assistant {
			return history[i].Content
		}
	}
	return ""
}

// ClassifyConfirmation 判断用户回复是否确认了待办动作
// 回答以 yes 开头才算确认，LLM 失败按未确认处理
func (c *Classifier) ClassifyConfirmation(ctx context.Context, history []*schema.Message, pendingAction, reply string) bool {
	suggestion := LastAssistantMessage(history)
	if suggestion == "" {
		suggestion = defaultSuggestion
	}

	prompt := fmt.Sprintf(
		"You are an AI assistant helping with groceries. The user previously requested: %q. You suggested: %q. The user replied: %q. Is this a confirmation to proceed with the action? Answer \"yes\" or \"no\".",
		pendingAction, suggestion, reply)

	answer, err := c.llm.Complete(ctx, llm.PurposeConfirm, []*schema.Message{schema.SystemMessage(prompt)})
	if err != nil {
		log.Printf("[Intent] confirmation failed, treating as not confirmed: %v", err)
		return false
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "yes")
}
