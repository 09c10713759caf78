package model

import "time"

// Product 商品（由商品目录子系统维护）
type Product struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"size:100;not null;index" json:"name"`
	Description string  `gorm:"type:text" json:"description,omitempty"`
	Price       float64 `gorm:"type:decimal(10,2);not null" json:"price"`
	ImageURL    string  `gorm:"type:text" json:"image_url,omitempty"`
	CategoryID  *uint   `json:"category_id,omitempty"`
}

// Cart 购物车，每个用户一个
type Cart struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    string     `gorm:"uniqueIndex;size:64;not null" json:"user_id"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"-"`
}

// CartItem 购物车行
type CartItem struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	CartID    uint `gorm:"index;not null" json:"cart_id"`
	ProductID uint `gorm:"not null" json:"product_id"`
	Quantity  int  `gorm:"not null" json:"quantity"`
}

// TableName 指定表名
func (Product) TableName() string {
	return "product"
}

func (Cart) TableName() string {
	return "cart"
}

func (CartItem) TableName() string {
	return "cart_item"
}
