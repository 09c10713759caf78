// Package repository 提供商品检索单元测试
package repository

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ashwinyue/freshcart/internal/model"
	"github.com/elastic/go-elasticsearch/v8"
)

// fakeES 记录请求并按路径返回响应
type fakeES struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]string
	indexed  bool
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	key := r.Method + " " + r.URL.Path

	f.mu.Lock()
	f.requests = append(f.requests, key)
	if f.bodies == nil {
		f.bodies = make(map[string]string)
	}
	f.bodies[key] = string(body)
	indexed := f.indexed
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodHead && r.URL.Path == "/products":
		if indexed {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut && r.URL.Path == "/products":
		f.mu.Lock()
		f.indexed = true
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	case r.Method == http.MethodPost && r.URL.Path == "/products/_search":
		_, _ = w.Write([]byte(`{"hits":{"hits":[
			{"_id":"1","_source":{"id":1,"name":"Milk","price":1.5}},
			{"_id":"2","_source":{"id":2,"name":"Almond Milk","price":3.2}}
		]}}`))
	case r.Method == http.MethodGet && r.URL.Path == "/products/_doc/1":
		_, _ = w.Write([]byte(`{"found":true,"_source":{"id":1,"name":"Milk","price":1.5}}`))
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/products/_doc/"):
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"found":false}`))
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/products/_doc/"):
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	case r.Method == http.MethodPost && r.URL.Path == "/products/_refresh":
		_, _ = w.Write([]byte(`{}`))
	default:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"unexpected request"}`))
	}
}

func (f *fakeES) body(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[key]
}

func (f *fakeES) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r == key {
			n++
		}
	}
	return n
}

func newTestCatalog(t *testing.T) (*ElasticCatalog, *fakeES) {
	t.Helper()
	fake := &fakeES{}
	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{ts.URL}})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return NewElasticCatalog(client, "products"), fake
}

// ========== ElasticCatalog ==========

func TestElasticCatalog_FindProductsByNameLike(t *testing.T) {
	c, fake := newTestCatalog(t)

	products, err := c.FindProductsByNameLike(context.Background(), "MI*LK")
	if err != nil {
		t.Fatalf("FindProductsByNameLike() error = %v", err)
	}
	if len(products) != 2 || products[0].Name != "Milk" || products[1].ID != 2 {
		t.Fatalf("products = %+v", products)
	}

	var query struct {
		Query struct {
			Wildcard struct {
				Name struct {
					Value           string `json:"value"`
					CaseInsensitive bool   `json:"case_insensitive"`
				} `json:"name"`
			} `json:"wildcard"`
		} `json:"query"`
	}
	if err := json.Unmarshal([]byte(fake.body("POST /products/_search")), &query); err != nil {
		t.Fatalf("decode query: %v", err)
	}
	if got, want := query.Query.Wildcard.Name.Value, `*mi\*lk*`; got != want {
		t.Errorf("wildcard value = %q, want %q", got, want)
	}
	if !query.Query.Wildcard.Name.CaseInsensitive {
		t.Error("expected case_insensitive wildcard")
	}
}

func TestElasticCatalog_GetProduct(t *testing.T) {
	c, _ := newTestCatalog(t)
	ctx := context.Background()

	p, err := c.GetProduct(ctx, 1)
	if err != nil || p == nil || p.Name != "Milk" {
		t.Fatalf("GetProduct(1) = %+v, %v", p, err)
	}

	p, err = c.GetProduct(ctx, 99)
	if err != nil || p != nil {
		t.Errorf("GetProduct(99) = %+v, %v, want nil, nil", p, err)
	}
}

func TestElasticCatalog_GetProductsByIDs_Empty(t *testing.T) {
	c, fake := newTestCatalog(t)

	products, err := c.GetProductsByIDs(context.Background(), nil)
	if err != nil || len(products) != 0 {
		t.Fatalf("GetProductsByIDs(nil) = %+v, %v", products, err)
	}
	if n := fake.count("POST /products/_search"); n != 0 {
		t.Errorf("search called %d times, want 0", n)
	}
}

func TestElasticCatalog_EnsureIndex(t *testing.T) {
	c, fake := newTestCatalog(t)
	ctx := context.Background()

	if err := c.EnsureIndex(ctx); err != nil {
		t.Fatalf("EnsureIndex() error = %v", err)
	}
	if err := c.EnsureIndex(ctx); err != nil {
		t.Fatalf("EnsureIndex() second call error = %v", err)
	}
	if n := fake.count("PUT /products"); n != 1 {
		t.Errorf("create index called %d times, want 1", n)
	}
	if !strings.Contains(fake.body("PUT /products"), `"keyword"`) {
		t.Error("expected mapping in create body")
	}
}

func TestElasticCatalog_IndexProducts(t *testing.T) {
	c, fake := newTestCatalog(t)

	err := c.IndexProducts(context.Background(), []*model.Product{
		{ID: 1, Name: "Milk"},
		{ID: 2, Name: "Bread"},
	})
	if err != nil {
		t.Fatalf("IndexProducts() error = %v", err)
	}
	if fake.count("PUT /products/_doc/1") != 1 || fake.count("PUT /products/_doc/2") != 1 {
		t.Errorf("requests = %v", fake.requests)
	}
	if fake.count("POST /products/_refresh") != 1 {
		t.Error("expected index refresh")
	}
}

// ========== escapers ==========

func TestEscapers(t *testing.T) {
	tests := []struct {
		name string
		in   string
		like string
		wild string
	}{
		{"普通", "milk", "milk", "milk"},
		{"百分号", "100%", `100\%`, "100%"},
		{"下划线", "a_b", `a\_b`, "a_b"},
		{"星号问号", "a*b?", "a*b?", `a\*b\?`},
		{"反斜杠", `a\b`, `a\\b`, `a\\b`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := likeEscaper.Replace(tt.in); got != tt.like {
				t.Errorf("likeEscaper(%q) = %q, want %q", tt.in, got, tt.like)
			}
			if got := wildcardEscaper.Replace(tt.in); got != tt.wild {
				t.Errorf("wildcardEscaper(%q) = %q, want %q", tt.in, got, tt.wild)
			}
		})
	}
}
