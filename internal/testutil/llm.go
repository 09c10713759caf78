package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/ashwinyue/freshcart/internal/service/llm"
	"github.com/cloudwego/eino/schema"
)

// ErrNoScript 未配置回复
var ErrNoScript = errors.New("no scripted reply")

// Reply 预设回复
type Reply struct {
	Content string
	Err     error
}

// Call 记录的一次调用
type Call struct {
	Purpose  llm.Purpose
	Messages []*schema.Message
}

// ScriptedLLM 按调用用途返回预设回复的 llm.Completer
// 同一用途的队列按顺序消费，队列耗尽后使用最后一个回复
type ScriptedLLM struct {
	mu      sync.Mutex
	replies map[llm.Purpose][]Reply
	calls   []Call
}

// NewScriptedLLM 创建脚本化 LLM
func NewScriptedLLM() *ScriptedLLM {
	return &ScriptedLLM{replies: make(map[llm.Purpose][]Reply)}
}

// On 追加一个文本回复
func (s *ScriptedLLM) On(purpose llm.Purpose, content string) *ScriptedLLM {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[purpose] = append(s.replies[purpose], Reply{Content: content})
	return s
}

// Fail 追加一个错误回复
func (s *ScriptedLLM) Fail(purpose llm.Purpose, err error) *ScriptedLLM {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[purpose] = append(s.replies[purpose], Reply{Err: err})
	return s
}

// Complete 实现 llm.Completer
func (s *ScriptedLLM) Complete(ctx context.Context, purpose llm.Purpose, messages []*schema.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Purpose: purpose, Messages: messages})

	queue := s.replies[purpose]
	if len(queue) == 0 {
		return "", ErrNoScript
	}
	r := queue[0]
	if len(queue) > 1 {
		s.replies[purpose] = queue[1:]
	}
	return r.Content, r.Err
}

// Calls 返回指定用途的调用记录，purpose 为空时返回全部
func (s *ScriptedLLM) Calls(purpose llm.Purpose) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if purpose == "" || c.Purpose == purpose {
			out = append(out, c)
		}
	}
	return out
}
