// Package catalog 将 Postgres 商品同步到 Elasticsearch 索引
package catalog

import (
	"context"
	"fmt"
	"log"

	"github.com/ashwinyue/freshcart/internal/model"
)

// defaultBatchSize 每批读取的商品数
const defaultBatchSize = 200

// ProductLister 分页读取商品
type ProductLister interface {
	ListProducts(ctx context.Context, offset, limit int) ([]*model.Product, error)
}

// ProductIndexer 商品索引
type ProductIndexer interface {
	EnsureIndex(ctx context.Context) error
	IndexProducts(ctx context.Context, products []*model.Product) error
}

// Syncer 商品同步器
type Syncer struct {
	source    ProductLister
	sink      ProductIndexer
	batchSize int
}

// NewSyncer 创建同步器，batchSize <= 0 时使用默认值
func NewSyncer(source ProductLister, sink ProductIndexer, batchSize int) *Syncer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Syncer{source: source, sink: sink, batchSize: batchSize}
}

// Sync 全量同步，返回写入的商品数
func (s *Syncer) Sync(ctx context.Context) (int, error) {
	if err := s.sink.EnsureIndex(ctx); err != nil {
		return 0, fmt.Errorf("failed to ensure product index: %w", err)
	}

	total := 0
	for offset := 0; ; offset += s.batchSize {
		products, err := s.source.ListProducts(ctx, offset, s.batchSize)
		if err != nil {
			return total, fmt.Errorf("failed to list products at offset %d: %w", offset, err)
		}
		if len(products) == 0 {
			break
		}
		if err := s.sink.IndexProducts(ctx, products); err != nil {
			return total, fmt.Errorf("failed to index products at offset %d: %w", offset, err)
		}
		total += len(products)
		if len(products) < s.batchSize {
			break
		}
	}

	log.Printf("[Catalog] synced %d products", total)
	return total, nil
}
