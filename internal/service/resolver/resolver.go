// Package resolver 将自然语言商品描述解析为具体商品
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/ashwinyue/freshcart/internal/model"
	"github.com/ashwinyue/freshcart/internal/repository"
	"github.com/ashwinyue/freshcart/internal/service/llm"
	"github.com/cloudwego/eino/schema"
)

var (
	// ErrProductNotFound 商品目录中无匹配
	ErrProductNotFound = errors.New("product not found")
	// ErrProductNotFoundInCart 购物车中无匹配
	ErrProductNotFoundInCart = errors.New("product not found in cart")
)

// minKeywordLen 关键词回退时保留的最短词长（不含）
const minKeywordLen = 2

const rankingSystemPrompt = "You are a product matching assistant for a grocery store. " +
	"Given a customer's product request and a numbered list of products, " +
	"reply with the exact name of the single best matching product and nothing else."

// Candidate 候选商品
type Candidate struct {
	ID   uint
	Name string
}

// Scope 检索范围
type Scope struct {
	cart   bool
	cartID uint
}

// CatalogScope 全商品目录
func CatalogScope() Scope {
	return Scope{}
}

// CartScope 指定购物车内的商品
func CartScope(cartID uint) Scope {
	return Scope{cart: true, cartID: cartID}
}

// IsCart 是否购物车范围
func (s Scope) IsCart() bool {
	return s.cart
}

// String 用于日志
func (s Scope) String() string {
	if s.cart {
		return fmt.Sprintf("cart(%d)", s.cartID)
	}
	return "catalog"
}

// Resolver 商品解析器
type Resolver struct {
	catalog repository.CatalogStore
	carts   repository.CartStore
	llm     llm.Completer
}

// New 创建商品解析器，completer 为 nil 时不做 LLM 重排
func New(catalog repository.CatalogStore, carts repository.CartStore, completer llm.Completer) *Resolver {
	return &Resolver{
		catalog: catalog,
		carts:   carts,
		llm:     completer,
	}
}

// Resolve 解析商品描述
// 1. 名称子串匹配  2. 无结果时按关键词 OR 匹配  3. 排序  4. 多个候选时 LLM 重排
// 例外：排序后首位与描述忽略大小写完全相同时直接返回，不调用 LLM
func (r *Resolver) Resolve(ctx context.Context, phrase string, scope Scope) (Candidate, error) {
	phrase = strings.TrimSpace(phrase)
	notFound := ErrProductNotFound
	if scope.IsCart() {
		notFound = ErrProductNotFoundInCart
	}
	if phrase == "" {
		return Candidate{}, notFound
	}

	search := r.catalogSearch
	if scope.IsCart() {
		pool, err := r.cartProducts(ctx, scope.cartID)
		if err != nil {
			return Candidate{}, err
		}
		search = func(ctx context.Context, pattern string) ([]Candidate, error) {
			return filterByName(pool, pattern), nil
		}
	}

	candidates, err := search(ctx, phrase)
	if err != nil {
		return Candidate{}, err
	}

	if len(candidates) == 0 {
		candidates, err = searchKeywords(ctx, search, phrase)
		if err != nil {
			return Candidate{}, err
		}
	}

	if len(candidates) == 0 {
		log.Printf("[Resolver] no match for %q in %s", phrase, scope)
		return Candidate{}, notFound
	}

	Rank(candidates, phrase)
	best := candidates[0]
	if len(candidates) > 1 && !strings.EqualFold(best.Name, phrase) {
		best = r.rerank(ctx, phrase, candidates)
	}

	log.Printf("[Resolver] %q -> %d:%s (%d candidates, %s)", phrase, best.ID, best.Name, len(candidates), scope)
	return best, nil
}

// searchFunc 子串检索函数
type searchFunc func(ctx context.Context, pattern string) ([]Candidate, error)

// catalogSearch 商品目录子串检索
func (r *Resolver) catalogSearch(ctx context.Context, pattern string) ([]Candidate, error) {
	products, err := r.catalog.FindProductsByNameLike(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return toCandidates(products), nil
}

// cartProducts 购物车内的商品（去重）
func (r *Resolver) cartProducts(ctx context.Context, cartID uint) ([]Candidate, error) {
	items, err := r.carts.ListCartItems(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	seen := make(map[uint]bool, len(items))
	ids := make([]uint, 0, len(items))
	for _, it := range items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}

	products, err := r.catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart products: %w", err)
	}
	return toCandidates(products), nil
}

// searchKeywords 按关键词 OR 匹配，按 id 去重
func searchKeywords(ctx context.Context, search searchFunc, phrase string) ([]Candidate, error) {
	seen := make(map[uint]bool)
	var out []Candidate
	for _, word := range strings.Fields(phrase) {
		if len(word) <= minKeywordLen {
			continue
		}
		found, err := search(ctx, word)
		if err != nil {
			return nil, err
		}
		for _, c := range found {
			if !seen[c.ID] {
				seen[c.ID] = true
				out = append(out, c)
			}
		}
	}
	return out, nil
}

// rerank 让 LLM 在候选中选择，结果不可用时保留排序首位
func (r *Resolver) rerank(ctx context.Context, phrase string, candidates []Candidate) Candidate {
	top := candidates[0]
	if r.llm == nil {
		return top
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Customer request: %s\nProducts:\n", phrase))
	for i, c := range candidates {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, c.Name))
	}

	reply, err := r.llm.Complete(ctx, llm.PurposeRanking, []*schema.Message{
		schema.SystemMessage(rankingSystemPrompt),
		schema.UserMessage(sb.String()),
	})
	if err != nil {
		log.Printf("[Resolver] ranking failed, keeping top candidate: %v", err)
		return top
	}

	if picked, ok := matchReply(reply, candidates); ok {
		return picked
	}
	return top
}

// matchReply 将 LLM 回复对应到候选
// 支持序号回复；否则取第一个名称包含回复文本的候选
func matchReply(reply string, candidates []Candidate) (Candidate, bool) {
	reply = strings.ToLower(strings.Trim(strings.TrimSpace(reply), "\"'`."))
	if reply == "" {
		return Candidate{}, false
	}
	if n, err := strconv.Atoi(reply); err == nil && n >= 1 && n <= len(candidates) {
		return candidates[n-1], true
	}
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.Name), reply) {
			return c, true
		}
	}
	return Candidate{}, false
}

// Rank 排序：精确相等 > 前缀匹配 > 名称字母序 > id
func Rank(candidates []Candidate, phrase string) {
	needle := strings.ToLower(strings.TrimSpace(phrase))
	tier := func(c Candidate) int {
		name := strings.ToLower(c.Name)
		switch {
		case name == needle:
			return 0
		case strings.HasPrefix(name, needle):
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		ti, tj := tier(candidates[i]), tier(candidates[j])
		if ti != tj {
			return ti < tj
		}
		ni, nj := strings.ToLower(candidates[i].Name), strings.ToLower(candidates[j].Name)
		if ni != nj {
			return ni < nj
		}
		return candidates[i].ID < candidates[j].ID
	})
}

// filterByName 大小写不敏感子串过滤
func filterByName(pool []Candidate, pattern string) []Candidate {
	needle := strings.ToLower(pattern)
	var out []Candidate
	for _, c := range pool {
		if strings.Contains(strings.ToLower(c.Name), needle) {
			out = append(out, c)
		}
	}
	return out
}

func toCandidates(products []*model.Product) []Candidate {
	out := make([]Candidate, 0, len(products))
	for _, p := range products {
		out = append(out, Candidate{ID: p.ID, Name: p.Name})
	}
	return out
}
