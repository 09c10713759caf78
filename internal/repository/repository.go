package repository

import "gorm.io/gorm"

// Repositories 仓库集合，用于统一管理所有仓库
type Repositories struct {
	DB           *gorm.DB // 直接访问数据库
	Catalog      CatalogStore
	Products     *CatalogRepository
	Cart         *CartRepository
	Conversation *ConversationRepository
}

// NewRepositories 创建所有仓库
func NewRepositories(db *gorm.DB) *Repositories {
	products := NewCatalogRepository(db)
	return &Repositories{
		DB:           db,
		Catalog:      products,
		Products:     products,
		Cart:         NewCartRepository(db),
		Conversation: NewConversationRepository(db),
	}
}

// UseCatalog 替换商品检索实现（如 Elasticsearch）
func (r *Repositories) UseCatalog(catalog CatalogStore) {
	r.Catalog = catalog
}
