package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ashwinyue/freshcart/internal/model"
	"github.com/elastic/go-elasticsearch/v8"
)

// wildcardEscaper 转义 wildcard 查询中的特殊字符
var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

// productIndexMapping 商品索引映射，name 用 keyword 以支持 wildcard
const productIndexMapping = `{
  "mappings": {
    "properties": {
      "id":          {"type": "long"},
      "name":        {"type": "keyword"},
      "description": {"type": "text"},
      "price":       {"type": "double"},
      "image_url":   {"type": "keyword", "index": false},
      "category_id": {"type": "long"}
    }
  }
}`

// ElasticCatalog 基于 Elasticsearch 的商品检索
type ElasticCatalog struct {
	client  *elasticsearch.Client
	index   string
	maxHits int
}

// NewElasticCatalog 创建 ES 商品检索
func NewElasticCatalog(client *elasticsearch.Client, index string) *ElasticCatalog {
	return &ElasticCatalog{
		client:  client,
		index:   index,
		maxHits: 50,
	}
}

// esSearchResponse ES 搜索响应
type esSearchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string        `json:"_id"`
			Source model.Product `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// esGetResponse ES 文档获取响应
type esGetResponse struct {
	Found  bool          `json:"found"`
	Source model.Product `json:"_source"`
}

// FindProductsByNameLike 名称大小写不敏感的 wildcard 查询
func (c *ElasticCatalog) FindProductsByNameLike(ctx context.Context, pattern string) ([]*model.Product, error) {
	query := map[string]interface{}{
		"size": c.maxHits,
		"query": map[string]interface{}{
			"wildcard": map[string]interface{}{
				"name": map[string]interface{}{
					"value":            "*" + wildcardEscaper.Replace(strings.ToLower(pattern)) + "*",
					"case_insensitive": true,
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"id": "asc"},
		},
	}
	return c.search(ctx, query)
}

// GetProduct 获取商品
func (c *ElasticCatalog) GetProduct(ctx context.Context, id uint) (*model.Product, error) {
	res, err := c.client.Get(c.index, strconv.FormatUint(uint64(id), 10), c.client.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch get error: %s", res.String())
	}

	var doc esGetResponse
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode product: %w", err)
	}
	if !doc.Found {
		return nil, nil
	}
	return &doc.Source, nil
}

// GetProductsByIDs 批量获取商品
func (c *ElasticCatalog) GetProductsByIDs(ctx context.Context, ids []uint) ([]*model.Product, error) {
	if len(ids) == 0 {
		return []*model.Product{}, nil
	}
	query := map[string]interface{}{
		"size": len(ids),
		"query": map[string]interface{}{
			"terms": map[string]interface{}{"id": ids},
		},
		"sort": []interface{}{
			map[string]interface{}{"id": "asc"},
		},
	}
	return c.search(ctx, query)
}

// EnsureIndex 索引不存在时创建
func (c *ElasticCatalog) EnsureIndex(ctx context.Context) error {
	res, err := c.client.Indices.Exists([]string{c.index}, c.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = c.client.Indices.Create(c.index,
		c.client.Indices.Create.WithBody(strings.NewReader(productIndexMapping)),
		c.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch create index error: %s", res.String())
	}
	return nil
}

// IndexProducts 写入商品文档
func (c *ElasticCatalog) IndexProducts(ctx context.Context, products []*model.Product) error {
	for _, p := range products {
		body, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal product %d: %w", p.ID, err)
		}
		res, err := c.client.Index(c.index, bytes.NewReader(body),
			c.client.Index.WithDocumentID(strconv.FormatUint(uint64(p.ID), 10)),
			c.client.Index.WithContext(ctx),
		)
		if err != nil {
			return fmt.Errorf("failed to index product %d: %w", p.ID, err)
		}
		isErr, msg := res.IsError(), res.String()
		res.Body.Close()
		if isErr {
			return fmt.Errorf("elasticsearch index error: %s", msg)
		}
	}

	res, err := c.client.Indices.Refresh(
		c.client.Indices.Refresh.WithIndex(c.index),
		c.client.Indices.Refresh.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to refresh index: %w", err)
	}
	res.Body.Close()
	return nil
}

// search 执行搜索并解析商品
func (c *ElasticCatalog) search(ctx context.Context, query map[string]interface{}) ([]*model.Product, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := c.client.Search(
		c.client.Search.WithContext(ctx),
		c.client.Search.WithIndex(c.index),
		c.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch search error: [%d] %s", res.StatusCode, string(raw))
	}

	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	products := make([]*model.Product, 0, len(parsed.Hits.Hits))
	for i := range parsed.Hits.Hits {
		p := parsed.Hits.Hits[i].Source
		products = append(products, &p)
	}
	return products, nil
}
