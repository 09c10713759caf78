package repository

import (
	"context"
	"errors"

	"github.com/ashwinyue/freshcart/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRepository 会话数据访问
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建会话仓库
func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// GetOrCreateConversation 获取或创建用户会话
// user_id 唯一索引保证并发创建时只保留一行，输的一方重新读取
func (r *ConversationRepository) GetOrCreateConversation(ctx context.Context, userID string) (*model.Conversation, error) {
	conv, err := r.GetConversationByUser(ctx, userID)
	if err != nil || conv != nil {
		return conv, err
	}

	conv = &model.Conversation{
		ID:     uuid.New().String(),
		UserID: userID,
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(conv).Error
	if err != nil {
		return nil, err
	}

	var stored model.Conversation
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// GetConversationByUser 获取用户会话
func (r *ConversationRepository) GetConversationByUser(ctx context.Context, userID string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ConversationExists 会话是否仍存在
func (r *ConversationRepository) ConversationExists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Conversation{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// ListMessages 获取会话消息，按创建时间升序
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID string) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

// InsertMessage 创建消息
func (r *ConversationRepository) InsertMessage(ctx context.Context, msg *model.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(msg).Error
}

// DeleteConversationCascade 删除会话及其全部消息
func (r *ConversationRepository) DeleteConversationCascade(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.Message{}, "conversation_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Conversation{}, "id = ?", id).Error
	})
}
