// Package resolver 提供商品解析单元测试
package resolver

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ashwinyue/freshcart/internal/repository"
	"github.com/ashwinyue/freshcart/internal/service/llm"
	"github.com/ashwinyue/freshcart/internal/testutil"
	"github.com/cloudwego/eino/schema"
)

var (
	_ repository.CatalogStore = (*testutil.MemoryStore)(nil)
	_ repository.CartStore    = (*testutil.MemoryStore)(nil)
)

func newCatalog(names map[uint]string) *testutil.MemoryStore {
	store := testutil.NewMemoryStore()
	for id, name := range names {
		store.AddProduct(id, name)
	}
	return store
}

// ========== Rank 测试 ==========

func TestRank_ExactMatchWinsRegardlessOfOrder(t *testing.T) {
	orders := [][]Candidate{
		{{1, "Whole Milk"}, {2, "Milk"}, {3, "Almond Milk"}},
		{{3, "Almond Milk"}, {1, "Whole Milk"}, {2, "Milk"}},
		{{2, "Milk"}, {3, "Almond Milk"}, {1, "Whole Milk"}},
	}

	for _, cands := range orders {
		Rank(cands, "milk")
		if cands[0].Name != "Milk" {
			t.Errorf("Rank() top = %q, want Milk", cands[0].Name)
		}
		if cands[1].Name != "Almond Milk" || cands[2].Name != "Whole Milk" {
			t.Errorf("Rank() tail = %q, %q, want alphabetical", cands[1].Name, cands[2].Name)
		}
	}
}

func TestRank_Tiers(t *testing.T) {
	cands := []Candidate{
		{ID: 4, Name: "Chocolate Milk"},
		{ID: 5, Name: "milk powder"},
		{ID: 6, Name: "Banana"},
		{ID: 2, Name: "Banana"},
	}
	Rank(cands, "Milk")

	want := []uint{5, 2, 6, 4}
	for i, id := range want {
		if cands[i].ID != id {
			t.Errorf("position %d = %d, want %d", i, cands[i].ID, id)
		}
	}
}

// ========== Resolve 测试 ==========

func TestResolve_Catalog(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		catalog map[uint]string
		phrase  string
		wantID  uint
		wantErr error
	}{
		{
			name:    "single substring match",
			catalog: map[uint]string{7: "Bananas", 8: "Bread"},
			phrase:  "bananas",
			wantID:  7,
		},
		{
			name:    "exact milk among several",
			catalog: map[uint]string{1: "Whole Milk", 2: "Milk", 3: "Almond Milk"},
			phrase:  "Milk",
			wantID:  2,
		},
		{
			name:    "keyword fallback",
			catalog: map[uint]string{10: "Greek Yogurt", 11: "Bread"},
			phrase:  "some yogurt please",
			wantID:  10,
		},
		{
			name:    "short keywords ignored",
			catalog: map[uint]string{12: "Oat Milk"},
			phrase:  "an ox",
			wantErr: ErrProductNotFound,
		},
		{
			name:    "not found",
			catalog: map[uint]string{1: "Milk"},
			phrase:  "pizza",
			wantErr: ErrProductNotFound,
		},
		{
			name:    "empty phrase",
			catalog: map[uint]string{1: "Milk"},
			phrase:  "  ",
			wantErr: ErrProductNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newCatalog(tt.catalog)
			r := New(store, store, nil)

			got, err := r.Resolve(ctx, tt.phrase, CatalogScope())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() unexpected error: %v", err)
			}
			if got.ID != tt.wantID {
				t.Errorf("Resolve() id = %d, want %d", got.ID, tt.wantID)
			}
		})
	}
}

func TestResolve_RoundTrip(t *testing.T) {
	ctx := context.Background()
	names := map[uint]string{1: "Bananas", 2: "Sourdough Bread", 3: "Cheddar Cheese", 4: "Free Range Eggs"}
	store := newCatalog(names)
	r := New(store, store, nil)

	tests := []struct {
		name   string
		phrase string
		wantID uint // 0 表示可能命中多个商品，只校验名称包含
	}{
		{"完整名称", "Sourdough Bread", 2},
		{"大小写不同", "cheddar CHEESE", 3},
		{"词中片段", "ough Bre", 2},
		{"跨词片段", "e Ra", 4},
		{"词内片段", "anan", 1},
		{"末尾片段", "Eggs", 4},
		{"单个字符", "B", 0},
		{"单个字符 e", "e", 0},
		{"两个字符", "ch", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(ctx, tt.phrase, CatalogScope())
			if err != nil {
				t.Fatalf("Resolve(%q) error: %v", tt.phrase, err)
			}
			if !strings.Contains(strings.ToLower(got.Name), strings.ToLower(tt.phrase)) {
				t.Errorf("Resolve(%q) = %q, name does not contain phrase", tt.phrase, got.Name)
			}
			if tt.wantID != 0 && got.ID != tt.wantID {
				t.Errorf("Resolve(%q) = %d, want %d", tt.phrase, got.ID, tt.wantID)
			}
		})
	}
}

func TestResolve_RoundTripEverySubstring(t *testing.T) {
	ctx := context.Background()
	names := map[uint]string{1: "Bananas", 2: "Sourdough Bread", 3: "Free Range Eggs"}
	store := newCatalog(names)
	cart := store.AddCart("u-1")
	for id := range names {
		store.AddCartItem(cart.ID, id, 1)
	}
	r := New(store, store, nil)

	for _, scope := range []Scope{CatalogScope(), CartScope(cart.ID)} {
		for _, name := range names {
			for i := 0; i < len(name); i++ {
				for j := i + 1; j <= len(name); j++ {
					phrase := name[i:j]
					if strings.TrimSpace(phrase) != phrase {
						continue
					}
					got, err := r.Resolve(ctx, phrase, scope)
					if err != nil {
						t.Fatalf("Resolve(%q, %s) error: %v", phrase, scope, err)
					}
					if !strings.Contains(strings.ToLower(got.Name), strings.ToLower(phrase)) {
						t.Fatalf("Resolve(%q, %s) = %q", phrase, scope, got.Name)
					}
				}
			}
		}
	}
}

func TestResolve_ExactMatchSkipsLLM(t *testing.T) {
	store := newCatalog(map[uint]string{1: "Whole Milk", 2: "Milk", 3: "Almond Milk"})
	completer := testutil.NewScriptedLLM().On(llm.PurposeRanking, "Whole Milk")
	r := New(store, store, completer)

	got, err := r.Resolve(context.Background(), "milk", CatalogScope())
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got.ID != 2 {
		t.Errorf("Resolve() = %d, want 2", got.ID)
	}
	if n := len(completer.Calls(llm.PurposeRanking)); n != 0 {
		t.Errorf("ranking calls = %d, want 0", n)
	}
}

func TestResolve_Rerank(t *testing.T) {
	catalog := map[uint]string{1: "Whole Milk", 3: "Almond Milk", 4: "Oat Milk"}

	tests := []struct {
		name   string
		llm    *testutil.ScriptedLLM
		wantID uint
	}{
		{
			name:   "llm picks by name",
			llm:    testutil.NewScriptedLLM().On(llm.PurposeRanking, "Oat Milk"),
			wantID: 4,
		},
		{
			name:   "llm picks by number",
			llm:    testutil.NewScriptedLLM().On(llm.PurposeRanking, "3"),
			wantID: 1,
		},
		{
			name:   "unmatched reply keeps top",
			llm:    testutil.NewScriptedLLM().On(llm.PurposeRanking, "Soy Drink"),
			wantID: 3,
		},
		{
			name:   "empty reply keeps top",
			llm:    testutil.NewScriptedLLM().On(llm.PurposeRanking, ""),
			wantID: 3,
		},
		{
			name:   "llm error keeps top",
			llm:    testutil.NewScriptedLLM().Fail(llm.PurposeRanking, errors.New("timeout")),
			wantID: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newCatalog(catalog)
			r := New(store, store, tt.llm)

			got, err := r.Resolve(context.Background(), "milk", CatalogScope())
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if got.ID != tt.wantID {
				t.Errorf("Resolve() = %d, want %d", got.ID, tt.wantID)
			}
			if n := len(tt.llm.Calls(llm.PurposeRanking)); n != 1 {
				t.Errorf("ranking calls = %d, want 1", n)
			}
		})
	}
}

func TestResolve_CartScope(t *testing.T) {
	ctx := context.Background()
	store := newCatalog(map[uint]string{1: "Milk", 2: "Bread", 3: "Pizza"})
	cart := store.AddCart("u1")
	store.AddCartItem(cart.ID, 1, 1)
	store.AddCartItem(cart.ID, 2, 1)
	store.AddCartItem(cart.ID, 2, 1)
	r := New(store, store, nil)

	got, err := r.Resolve(ctx, "bread", CartScope(cart.ID))
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got.ID != 2 {
		t.Errorf("Resolve() = %d, want 2", got.ID)
	}

	if _, err := r.Resolve(ctx, "pizza", CartScope(cart.ID)); !errors.Is(err, ErrProductNotFoundInCart) {
		t.Errorf("Resolve(pizza) error = %v, want ErrProductNotFoundInCart", err)
	}

	empty := store.AddCart("u2")
	if _, err := r.Resolve(ctx, "milk", CartScope(empty.ID)); !errors.Is(err, ErrProductNotFoundInCart) {
		t.Errorf("Resolve() on empty cart error = %v, want ErrProductNotFoundInCart", err)
	}
}

func TestResolve_CartListError(t *testing.T) {
	store := newCatalog(map[uint]string{1: "Milk"})
	store.ListItemsErr = errors.New("db down")
	r := New(store, store, nil)

	_, err := r.Resolve(context.Background(), "milk", CartScope(1))
	if err == nil || errors.Is(err, ErrProductNotFoundInCart) {
		t.Errorf("Resolve() error = %v, want storage error", err)
	}
}

func TestMatchReply(t *testing.T) {
	cands := []Candidate{{1, "Almond Milk"}, {2, "Whole Milk"}}
	tests := []struct {
		reply  string
		wantID uint
		wantOK bool
	}{
		{reply: "\"Whole Milk\".", wantID: 2, wantOK: true},
		{reply: "milk", wantID: 1, wantOK: true},
		{reply: "2", wantID: 2, wantOK: true},
		{reply: "9", wantOK: false},
		{reply: "", wantOK: false},
	}
	for _, tt := range tests {
		got, ok := matchReply(tt.reply, cands)
		if ok != tt.wantOK || (ok && got.ID != tt.wantID) {
			t.Errorf("matchReply(%q) = %v, %v; want %d, %v", tt.reply, got, ok, tt.wantID, tt.wantOK)
		}
	}
}

func TestResolve_RerankPromptRoles(t *testing.T) {
	store := newCatalog(map[uint]string{1: "Whole Milk", 3: "Almond Milk"})
	completer := testutil.NewScriptedLLM().On(llm.PurposeRanking, "2")
	r := New(store, store, completer)

	got, err := r.Resolve(context.Background(), "milk", CatalogScope())
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got.ID != 1 {
		t.Errorf("Resolve() = %d, want 1 (second ranked)", got.ID)
	}

	calls := completer.Calls(llm.PurposeRanking)
	if len(calls) != 1 || len(calls[0].Messages) != 2 {
		t.Fatalf("calls = %+v", calls)
	}
	sys, user := calls[0].Messages[0], calls[0].Messages[1]
	if sys.Role != schema.System || user.Role != schema.User {
		t.Errorf("roles = %s, %s, want system, user", sys.Role, user.Role)
	}
	if !strings.Contains(user.Content, "1. Almond Milk\n2. Whole Milk") {
		t.Errorf("user prompt = %q", user.Content)
	}
}
