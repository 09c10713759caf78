package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/ashwinyue/freshcart/internal/model"
	"gorm.io/gorm"
)

// likeEscaper 转义 LIKE 通配符
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// CatalogRepository 商品数据访问（Postgres）
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository 创建商品仓库
func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// FindProductsByNameLike 名称子串匹配
func (r *CatalogRepository) FindProductsByNameLike(ctx context.Context, pattern string) ([]*model.Product, error) {
	var products []*model.Product
	like := "%" + likeEscaper.Replace(strings.ToLower(pattern)) + "%"
	err := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ?", like).
		Order("id ASC").
		Find(&products).Error
	return products, err
}

// GetProduct 获取商品
func (r *CatalogRepository) GetProduct(ctx context.Context, id uint) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductsByIDs 批量获取商品
func (r *CatalogRepository) GetProductsByIDs(ctx context.Context, ids []uint) ([]*model.Product, error) {
	if len(ids) == 0 {
		return []*model.Product{}, nil
	}
	var products []*model.Product
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&products).Error
	return products, err
}

// ListProducts 分批列出商品，用于同步搜索索引
func (r *CatalogRepository) ListProducts(ctx context.Context, offset, limit int) ([]*model.Product, error) {
	var products []*model.Product
	err := r.db.WithContext(ctx).Order("id ASC").Offset(offset).Limit(limit).Find(&products).Error
	return products, err
}
