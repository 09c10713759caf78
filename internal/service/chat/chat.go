// Package chat 管理用户会话的生命周期：历史查询、清空和结束
package chat

import (
	"context"
	"fmt"
	"log"

	"github.com/ashwinyue/freshcart/internal/model"
	"github.com/ashwinyue/freshcart/internal/repository"
	"github.com/cloudwego/eino/schema"
)

// SessionEndedMessage 结束会话后的回复
const SessionEndedMessage = "Thank you for being with us. Your session has ended and your conversation was safely deleted."

// HistoryEntry 历史消息
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Service 会话服务
type Service struct {
	conversations repository.ConversationStore
}

// NewService 创建会话服务
func NewService(conversations repository.ConversationStore) *Service {
	return &Service{conversations: conversations}
}

// History 返回用户会话历史，不会创建会话
func (s *Service) History(ctx context.Context, userID string) ([]HistoryEntry, error) {
	conv, err := s.conversations.GetConversationByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if conv == nil {
		return []HistoryEntry{}, nil
	}

	messages, err := s.conversations.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	history := make([]HistoryEntry, 0, len(messages))
	for _, m := range messages {
		history = append(history, HistoryEntry{Role: m.Sender, Content: m.Content})
	}
	return history, nil
}

// Wipe 删除用户会话及其消息，会话不存在时不做任何事
func (s *Service) Wipe(ctx context.Context, userID string) error {
	conv, err := s.conversations.GetConversationByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get conversation: %w", err)
	}
	if conv == nil {
		return nil
	}
	return s.Delete(ctx, conv.ID)
}

// Delete 按 id 删除会话及其消息
func (s *Service) Delete(ctx context.Context, conversationID string) error {
	if err := s.conversations.DeleteConversationCascade(ctx, conversationID); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	log.Printf("[Chat] conversation %s deleted", conversationID)
	return nil
}

// End 结束会话并返回致谢语
func (s *Service) End(ctx context.Context, userID string) (string, error) {
	if err := s.Wipe(ctx, userID); err != nil {
		return "", err
	}
	return SessionEndedMessage, nil
}

// ToSchema 将存储的消息转为 LLM 消息
func ToSchema(messages []*model.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, &schema.Message{Role: roleToSchema(m.Sender), Content: m.Content})
	}
	return out
}

// roleToSchema 将存储的发送方转换为 schema.RoleType
func roleToSchema(sender string) schema.RoleType {
	switch sender {
	case model.SenderSystem:
		return schema.System
	case model.SenderAssistant:
		return schema.Assistant
	default:
		return schema.User
	}
}
