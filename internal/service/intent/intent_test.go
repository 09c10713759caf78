// Package intent 提供意图识别单元测试
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ashwinyue/freshcart/internal/service/llm"
	"github.com/ashwinyue/freshcart/internal/testutil"
	"github.com/cloudwego/eino/schema"
)

// ========== Classify 测试 ==========

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		reply         string
		message       string
		lastAssistant string
		want          Intent
	}{
		{
			name:    "add with slot",
			reply:   "add_to_cart",
			message: "Add bananas to my cart",
			want:    Intent{Kind: KindAddToCart, Product: "bananas"},
		},
		{
			name:    "label with quotes and punctuation",
			reply:   " \"Add_To_Cart\". ",
			message: "please add oat milk to cart",
			want:    Intent{Kind: KindAddToCart, Product: "oat milk"},
		},
		{
			name:    "label in backticks",
			reply:   "`show_cart`",
			message: "what's in my cart",
			want:    Intent{Kind: KindShowCart},
		},
		{
			name:    "remove with slot",
			reply:   "remove_from_cart",
			message: "Remove the eggs from my cart",
			want:    Intent{Kind: KindRemoveFromCart, Product: "the eggs"},
		},
		{
			name:          "remove falls back to last assistant message",
			reply:         "remove_from_cart",
			message:       "do that again",
			lastAssistant: "Removed one Milk from cart.",
			want:          Intent{Kind: KindRemoveFromCart, Product: "Milk"},
		},
		{
			name:          "remove without any slot",
			reply:         "remove_from_cart",
			message:       "take it out",
			lastAssistant: "Here are some snacks.",
			want:          Intent{Kind: KindRemoveFromCart},
		},
		{
			name:    "recommend",
			reply:   "recommend_product",
			message: "Recommend a snack",
			want:    Intent{Kind: KindRecommend, Query: "a snack"},
		},
		{
			name:    "make dish",
			reply:   "make_dish",
			message: "I want to make lasagna.",
			want:    Intent{Kind: KindMakeDish, Dish: "lasagna"},
		},
		{
			name:    "make dish from items phrasing",
			reply:   "make_dish",
			message: "What are the items I need for cooking a curry",
			want:    Intent{Kind: KindMakeDish, Dish: "curry"},
		},
		{
			name:    "end session",
			reply:   "end_session",
			message: "Thank you, bye",
			want:    Intent{Kind: KindEndSession},
		},
		{
			name:    "unrecognised label",
			reply:   "buy_stuff",
			message: "hmm",
			want:    Intent{Kind: KindUnknown},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(testutil.NewScriptedLLM().On(llm.PurposeIntent, tt.reply))
			got := c.Classify(context.Background(), tt.message, tt.lastAssistant)
			if got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassify_LLMFailure(t *testing.T) {
	c := NewClassifier(testutil.NewScriptedLLM().Fail(llm.PurposeIntent, errors.New("timeout")))
	if got := c.Classify(context.Background(), "add milk to cart", ""); got.Kind != KindUnknown {
		t.Errorf("Classify() = %v, want unknown", got)
	}
}

func TestIntent_MarshalJSON(t *testing.T) {
	tests := []struct {
		in   Intent
		want string
	}{
		{Intent{Kind: KindAddToCart, Product: "milk", Dish: "ignored"}, `{"action":"add_to_cart","product":"milk"}`},
		{Intent{Kind: KindShowCart, Product: "ignored"}, `{"action":"show_cart"}`},
		{Intent{Kind: KindRecommend}, `{"action":"recommend_product"}`},
		{Intent{Kind: KindRecommend, Query: "snack"}, `{"action":"recommend_product","query":"snack"}`},
		{Intent{Kind: KindMakeDish, Dish: "lasagna"}, `{"action":"make_dish","dish":"lasagna"}`},
		{Intent{}, `{"action":"unknown"}`},
	}
	for _, tt := range tests {
		data, err := json.Marshal(tt.in)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if string(data) != tt.want {
			t.Errorf("Marshal(%v) = %s, want %s", tt.in, data, tt.want)
		}
	}
}

func TestIntent_Actionable(t *testing.T) {
	if Unknown().Actionable() {
		t.Error("unknown should not be actionable")
	}
	if !(Intent{Kind: KindShowCart}).Actionable() {
		t.Error("show_cart should be actionable")
	}
}

// ========== InferPendingAction 测试 ==========

func TestInferPendingAction(t *testing.T) {
	tests := []struct {
		name    string
		history []*schema.Message
		want    string
		wantOK  bool
	}{
		{
			name: "would you like me to",
			history: []*schema.Message{
				schema.UserMessage("I need something for breakfast"),
				schema.AssistantMessage("We have granola. Would you like me to add it to your cart?", nil),
			},
			want:   "I need something for breakfast",
			wantOK: true,
		},
		{
			name: "should i, case insensitive",
			history: []*schema.Message{
				schema.UserMessage("eggs please"),
				schema.AssistantMessage("SHOULD I add a dozen eggs?", nil),
			},
			want:   "eggs please",
			wantOK: true,
		},
		{
			name: "near miss phrasing",
			history: []*schema.Message{
				schema.UserMessage("eggs please"),
				schema.AssistantMessage("Do you want me to add eggs?", nil),
			},
		},
		{
			name: "last message from user",
			history: []*schema.Message{
				schema.AssistantMessage("Would you like me to add eggs?", nil),
				schema.UserMessage("hmm"),
			},
		},
		{
			name: "preceding message not from user",
			history: []*schema.Message{
				schema.AssistantMessage("Hello", nil),
				schema.AssistantMessage("Would you like me to add eggs?", nil),
			},
		},
		{
			name:    "too short",
			history: []*schema.Message{schema.AssistantMessage("Would you like me to help?", nil)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := InferPendingAction(tt.history)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("InferPendingAction() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// ========== ClassifyConfirmation 测试 ==========

func TestClassifyConfirmation(t *testing.T) {
	history := []*schema.Message{
		schema.UserMessage("something sweet"),
		schema.AssistantMessage("Should I add chocolate to your cart?", nil),
	}

	tests := []struct {
		name string
		llm  *testutil.ScriptedLLM
		want bool
	}{
		{name: "yes", llm: testutil.NewScriptedLLM().On(llm.PurposeConfirm, "Yes."), want: true},
		{name: "yes lowercase with padding", llm: testutil.NewScriptedLLM().On(llm.PurposeConfirm, "  yes, proceed"), want: true},
		{name: "no", llm: testutil.NewScriptedLLM().On(llm.PurposeConfirm, "no"), want: false},
		{name: "rambling", llm: testutil.NewScriptedLLM().On(llm.PurposeConfirm, "I think yes"), want: false},
		{name: "llm failure", llm: testutil.NewScriptedLLM().Fail(llm.PurposeConfirm, errors.New("boom")), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(tt.llm)
			if got := c.ClassifyConfirmation(context.Background(), history, "something sweet", "go ahead"); got != tt.want {
				t.Errorf("ClassifyConfirmation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyConfirmation_PromptEmbedsContext(t *testing.T) {
	scripted := testutil.NewScriptedLLM().On(llm.PurposeConfirm, "yes")
	c := NewClassifier(scripted)
	history := []*schema.Message{
		schema.UserMessage("something sweet"),
		schema.AssistantMessage("Should I add chocolate to your cart?", nil),
	}
	c.ClassifyConfirmation(context.Background(), history, "something sweet", "yup")

	calls := scripted.Calls(llm.PurposeConfirm)
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	prompt := calls[0].Messages[0].Content
	for _, want := range []string{"something sweet", "Should I add chocolate to your cart?", "yup"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q: %s", want, prompt)
		}
	}
}

// ========== ExtractProducts 测试 ==========

func TestExtractProducts(t *testing.T) {
	tests := []struct {
		name    string
		message string
		action  CartAction
		reply   string
		want    []string
		wantAll bool
		noLLM   bool
	}{
		{name: "single", message: "add milk", action: ActionAdd, reply: "Milk", want: []string{"Milk"}},
		{name: "comma list", message: "add milk and eggs", action: ActionAdd, reply: "milk, eggs.", want: []string{"milk", "eggs"}},
		{name: "newline list", message: "add", action: ActionAdd, reply: "- milk\n- bread\n", want: []string{"milk", "bread"}},
		{name: "json array", message: "add", action: ActionAdd, reply: `["milk", "bread"]`, want: []string{"milk", "bread"}},
		{name: "truncated json array", message: "add", action: ActionAdd, reply: `["milk", "bread"`, want: []string{"milk", "bread"}},
		{name: "empty reply", message: "add", action: ActionAdd, reply: "", want: nil},
		{name: "remove all reply", message: "take it all out", action: ActionRemove, reply: "ALL", wantAll: true},
		{name: "all on add is a product", message: "add all", action: ActionAdd, reply: "all", want: []string{"all"}},
		{name: "clear my cart", message: "Clear my cart please", action: ActionRemove, wantAll: true, noLLM: true},
		{name: "remove everything", message: "remove everything", action: ActionRemove, wantAll: true, noLLM: true},
		{name: "delete all items", message: "Delete all the items", action: ActionRemove, wantAll: true, noLLM: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scripted := testutil.NewScriptedLLM().On(llm.PurposeExtract, tt.reply)
			c := NewClassifier(scripted)

			got, err := c.ExtractProducts(context.Background(), tt.message, tt.action)
			if err != nil {
				t.Fatalf("ExtractProducts() error = %v", err)
			}
			if got.All != tt.wantAll {
				t.Errorf("All = %v, want %v", got.All, tt.wantAll)
			}
			if strings.Join(got.Products, "|") != strings.Join(tt.want, "|") {
				t.Errorf("Products = %q, want %q", got.Products, tt.want)
			}
			if tt.noLLM && len(scripted.Calls(llm.PurposeExtract)) != 0 {
				t.Error("remove-all phrasing should not call the LLM")
			}
		})
	}
}

func TestExtractProducts_LLMError(t *testing.T) {
	c := NewClassifier(testutil.NewScriptedLLM().Fail(llm.PurposeExtract, errors.New("boom")))
	if _, err := c.ExtractProducts(context.Background(), "add milk", ActionAdd); err == nil {
		t.Error("ExtractProducts() expected error")
	}
}

// ========== 提示词消息角色 ==========

func TestPromptRoles(t *testing.T) {
	scripted := testutil.NewScriptedLLM().
		On(llm.PurposeIntent, "add_to_cart").
		On(llm.PurposeExtract, "milk").
		On(llm.PurposeConfirm, "yes")
	c := NewClassifier(scripted)
	ctx := context.Background()

	c.Classify(ctx, "add milk to my cart", "")
	if _, err := c.ExtractProducts(ctx, "add milk to my cart", ActionAdd); err != nil {
		t.Fatalf("ExtractProducts() error = %v", err)
	}
	c.ClassifyConfirmation(ctx, []*schema.Message{
		schema.UserMessage("milk"),
		schema.AssistantMessage("Should I add milk?", nil),
	}, "milk", "sure")

	tests := []struct {
		purpose llm.Purpose
		want    []schema.RoleType
		last    string
	}{
		{llm.PurposeIntent, []schema.RoleType{schema.System, schema.User}, "add milk to my cart"},
		{llm.PurposeExtract, []schema.RoleType{schema.System, schema.User}, "add milk to my cart"},
		{llm.PurposeConfirm, []schema.RoleType{schema.System}, ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.purpose), func(t *testing.T) {
			calls := scripted.Calls(tt.purpose)
			if len(calls) != 1 {
				t.Fatalf("calls = %d, want 1", len(calls))
			}
			msgs := calls[0].Messages
			if len(msgs) != len(tt.want) {
				t.Fatalf("messages = %d, want %d", len(msgs), len(tt.want))
			}
			for i, role := range tt.want {
				if msgs[i].Role != role || msgs[i].Content == "" {
					t.Errorf("message %d = %s %q, want role %s", i, msgs[i].Role, msgs[i].Content, role)
				}
			}
			if tt.last != "" && msgs[len(msgs)-1].Content != tt.last {
				t.Errorf("last message = %q, want %q", msgs[len(msgs)-1].Content, tt.last)
			}
		})
	}
}
