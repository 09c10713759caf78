package repository

import (
	"context"
	"errors"

	"github.com/ashwinyue/freshcart/internal/model"
	"gorm.io/gorm"
)

// CartRepository 购物车数据访问
type CartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓库
func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

// GetCartByUser 获取用户购物车
func (r *CartRepository) GetCartByUser(ctx context.Context, userID string) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// ListCartItems 列出购物车行
func (r *CartRepository) ListCartItems(ctx context.Context, cartID uint) ([]*model.CartItem, error) {
	var items []*model.CartItem
	err := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Order("id ASC").Find(&items).Error
	return items, err
}

// InsertCartItem 新增一行
func (r *CartRepository) InsertCartItem(ctx context.Context, cartID, productID uint, quantity int) (*model.CartItem, error) {
	item := &model.CartItem{
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteCartItem 删除一行
func (r *CartRepository) DeleteCartItem(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.CartItem{}, "id = ?", id).Error
}

// DeleteAllCartItems 清空购物车
func (r *CartRepository) DeleteAllCartItems(ctx context.Context, cartID uint) error {
	return r.db.WithContext(ctx).Delete(&model.CartItem{}, "cart_id = ?", cartID).Error
}
