// Package intent 识别用户消息意图、确认回复和待办动作
package intent

import "encoding/json"

// Kind 意图类型
type Kind string

const (
	KindAddToCart      Kind = "add_to_cart"
	KindRemoveFromCart Kind = "remove_from_cart"
	KindShowCart       Kind = "show_cart"
	KindRecommend      Kind = "recommend_product"
	KindMakeDish       Kind = "make_dish"
	KindEndSession     Kind = "end_session"
	KindUnknown        Kind = "unknown"
)

// knownKinds LLM 可返回的标签
var knownKinds = map[Kind]bool{
	KindAddToCart:      true,
	KindRemoveFromCart: true,
	KindShowCart:       true,
	KindRecommend:      true,
	KindMakeDish:       true,
	KindEndSession:     true,
	KindUnknown:        true,
}

// Intent 结构化意图
// 只有与 Kind 对应的槽位有意义
type Intent struct {
	Kind    Kind
	Product string // add_to_cart / remove_from_cart
	Query   string // recommend_product，可为空
	Dish    string // make_dish
}

// Unknown 未识别意图
func Unknown() Intent {
	return Intent{Kind: KindUnknown}
}

// Actionable 是否需要执行动作
func (i Intent) Actionable() bool {
	return i.Kind != KindUnknown && i.Kind != ""
}

// MarshalJSON 输出 {"action": kind, ...该类型的槽位}
func (i Intent) MarshalJSON() ([]byte, error) {
	kind := i.Kind
	if kind == "" {
		kind = KindUnknown
	}
	out := map[string]string{"action": string(kind)}
	switch kind {
	case KindAddToCart, KindRemoveFromCart:
		out["product"] = i.Product
	case KindRecommend:
		if i.Query != "" {
			out["query"] = i.Query
		}
	case KindMakeDish:
		out["dish"] = i.Dish
	}
	return json.Marshal(out)
}
