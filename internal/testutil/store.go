package testutil

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ashwinyue/freshcart/internal/model"
	"github.com/google/uuid"
)

// MemoryStore 内存版商品/购物车/会话存储
// 结构上满足 repository 中的 CatalogStore、CartStore、ConversationStore
type MemoryStore struct {
	mu sync.Mutex

	products      map[uint]*model.Product
	carts         map[string]*model.Cart
	items         []*model.CartItem
	conversations map[string]*model.Conversation
	messages      []*model.Message

	nextCartID uint
	nextItemID uint
	clock      time.Time

	// 错误注入
	ListItemsErr   error
	InsertItemErr  error
	InsertMsgErr   error
	ListMessageErr error
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:      make(map[uint]*model.Product),
		carts:         make(map[string]*model.Cart),
		conversations: make(map[string]*model.Conversation),
		nextCartID:    1,
		nextItemID:    1,
		clock:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// ========== 数据准备 ==========

// AddProduct 添加商品
func (s *MemoryStore) AddProduct(id uint, name string) *model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &model.Product{ID: id, Name: name}
	s.products[id] = p
	return p
}

// AddCart 为用户创建购物车
func (s *MemoryStore) AddCart(userID string) *model.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &model.Cart{ID: s.nextCartID, UserID: userID, CreatedAt: s.tick()}
	s.nextCartID++
	s.carts[userID] = c
	return c
}

// AddCartItem 添加购物车行
func (s *MemoryStore) AddCartItem(cartID, productID uint, quantity int) *model.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertItem(cartID, productID, quantity)
}

// CartItems 返回购物车行快照
func (s *MemoryStore) CartItems(cartID uint) []*model.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.CartItem
	for _, it := range s.items {
		if it.CartID == cartID {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out
}

// MessageCount 会话消息数
func (s *MemoryStore) MessageCount(conversationID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			n++
		}
	}
	return n
}

// ========== 商品 ==========

// FindProductsByNameLike 名称包含匹配（大小写不敏感），按 id 排序
func (s *MemoryStore) FindProductsByNameLike(ctx context.Context, pattern string) ([]*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	needle := strings.ToLower(pattern)
	var out []*model.Product
	for _, p := range s.products {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetProduct 获取商品，不存在返回 nil
func (s *MemoryStore) GetProduct(ctx context.Context, id uint) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// GetProductsByIDs 批量获取商品
func (s *MemoryStore) GetProductsByIDs(ctx context.Context, ids []uint) ([]*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ========== 购物车 ==========

// GetCartByUser 获取用户购物车，不存在返回 nil
func (s *MemoryStore) GetCartByUser(ctx context.Context, userID string) (*model.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[userID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

// ListCartItems 列出购物车行
func (s *MemoryStore) ListCartItems(ctx context.Context, cartID uint) ([]*model.CartItem, error) {
	if s.ListItemsErr != nil {
		return nil, s.ListItemsErr
	}
	return s.CartItems(cartID), nil
}

// InsertCartItem 新增购物车行
func (s *MemoryStore) InsertCartItem(ctx context.Context, cartID, productID uint, quantity int) (*model.CartItem, error) {
	if s.InsertItemErr != nil {
		return nil, s.InsertItemErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it := s.insertItem(cartID, productID, quantity)
	cp := *it
	return &cp, nil
}

// DeleteCartItem 删除购物车行
func (s *MemoryStore) DeleteCartItem(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.items {
		if it.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return nil
}

// DeleteAllCartItems 清空购物车
func (s *MemoryStore) DeleteAllCartItems(ctx context.Context, cartID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0]
	for _, it := range s.items {
		if it.CartID != cartID {
			kept = append(kept, it)
		}
	}
	s.items = kept
	return nil
}

// ========== 会话 ==========

// GetOrCreateConversation 获取或创建用户会话
func (s *MemoryStore) GetOrCreateConversation(ctx context.Context, userID string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conversations {
		if c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	c := &model.Conversation{ID: uuid.New().String(), UserID: userID, CreatedAt: s.tick()}
	s.conversations[c.ID] = c
	cp := *c
	return &cp, nil
}

// GetConversationByUser 获取用户会话，不存在返回 nil
func (s *MemoryStore) GetConversationByUser(ctx context.Context, userID string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conversations {
		if c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

// ConversationExists 会话是否存在
func (s *MemoryStore) ConversationExists(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.conversations[id]
	return ok, nil
}

// ListMessages 按创建时间列出消息
func (s *MemoryStore) ListMessages(ctx context.Context, conversationID string) ([]*model.Message, error) {
	if s.ListMessageErr != nil {
		return nil, s.ListMessageErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Message
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

// InsertMessage 写入消息
func (s *MemoryStore) InsertMessage(ctx context.Context, msg *model.Message) error {
	if s.InsertMsgErr != nil {
		return s.InsertMsgErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[msg.ConversationID]; !ok {
		return errors.New("conversation does not exist")
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.CreatedAt = s.tick()
	cp := *msg
	s.messages = append(s.messages, &cp)
	return nil
}

// DeleteConversationCascade 删除会话及其消息
func (s *MemoryStore) DeleteConversationCascade(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.messages[:0]
	for _, m := range s.messages {
		if m.ConversationID != id {
			kept = append(kept, m)
		}
	}
	s.messages = kept
	delete(s.conversations, id)
	return nil
}

func (s *MemoryStore) insertItem(cartID, productID uint, quantity int) *model.CartItem {
	it := &model.CartItem{ID: s.nextItemID, CartID: cartID, ProductID: productID, Quantity: quantity}
	s.nextItemID++
	s.items = append(s.items, it)
	return it
}

// tick 单调递增时钟，保证消息顺序
func (s *MemoryStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}
