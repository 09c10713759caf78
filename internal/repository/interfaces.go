// Package repository 定义数据访问接口
// 接口抽象使依赖注入和单元测试成为可能
package repository

import (
	"context"

	"github.com/ashwinyue/freshcart/internal/model"
)

// ========== CatalogStore 接口 ==========

// CatalogStore 商品目录只读接口
type CatalogStore interface {
	// FindProductsByNameLike 名称大小写不敏感的子串匹配
	FindProductsByNameLike(ctx context.Context, pattern string) ([]*model.Product, error)
	// GetProduct 不存在时返回 (nil, nil)
	GetProduct(ctx context.Context, id uint) (*model.Product, error)
	GetProductsByIDs(ctx context.Context, ids []uint) ([]*model.Product, error)
}

// ========== CartStore 接口 ==========

// CartStore 购物车数据访问接口
type CartStore interface {
	// GetCartByUser 用户没有购物车时返回 (nil, nil)
	GetCartByUser(ctx context.Context, userID string) (*model.Cart, error)
	ListCartItems(ctx context.Context, cartID uint) ([]*model.CartItem, error)
	InsertCartItem(ctx context.Context, cartID, productID uint, quantity int) (*model.CartItem, error)
	DeleteCartItem(ctx context.Context, id uint) error
	DeleteAllCartItems(ctx context.Context, cartID uint) error
}

// ========== ConversationStore 接口 ==========

// ConversationStore 会话数据访问接口
type ConversationStore interface {
	GetOrCreateConversation(ctx context.Context, userID string) (*model.Conversation, error)
	// GetConversationByUser 不存在时返回 (nil, nil)
	GetConversationByUser(ctx context.Context, userID string) (*model.Conversation, error)
	ConversationExists(ctx context.Context, id string) (bool, error)
	ListMessages(ctx context.Context, conversationID string) ([]*model.Message, error)
	InsertMessage(ctx context.Context, msg *model.Message) error
	// DeleteConversationCascade 先删消息再删会话
	DeleteConversationCascade(ctx context.Context, id string) error
}

// 确保实现了接口
var (
	_ CatalogStore      = (*CatalogRepository)(nil)
	_ CatalogStore      = (*ElasticCatalog)(nil)
	_ CartStore         = (*CartRepository)(nil)
	_ ConversationStore = (*ConversationRepository)(nil)
)
