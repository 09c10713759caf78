package model

import "time"

// 消息发送方
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
	SenderSystem    = "system"
)

// Conversation 购物助手会话，每个用户最多一个
type Conversation struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"uniqueIndex;size:64;not null" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	Messages  []Message `gorm:"foreignKey:ConversationID" json:"-"`
}

// Message 会话消息，写入后不可变
type Message struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string    `gorm:"index;size:36;not null" json:"conversation_id"`
	Sender         string    `gorm:"size:20;not null" json:"sender"` // user, assistant, system
	Content        string    `gorm:"type:text" json:"content"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 指定表名
func (Conversation) TableName() string {
	return "conversation"
}

func (Message) TableName() string {
	return "message"
}
