package intent

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/ashwinyue/freshcart/internal/service/llm"
	"github.com/cloudwego/eino/schema"
)

const classifySystemPrompt = `You are an intent classifier for a grocery shopping assistant. The possible intents are:
- add_to_cart: The user wants to add a product or ingredient to their cart. Example: "Add milk to my cart."
- remove_from_cart: The user wants to remove a product or ingredient from their cart. Example: "Remove eggs from my cart."
- show_cart: The user wants to see the contents of their cart. Example: "Show me my cart."
- recommend_product: The user wants a product recommendation. Example: "Recommend a snack."
- make_dish: The user wants to make a dish and needs ingredients. Example: "I want to make lasagna."
- end_session: The user wants to end or pay for their cart, cancel their cart, or finish the shopping session. Examples: "Cancel my cart.", "Pay my cart.", "End my session.", "Checkout and finish."
- unknown: The user's intent does not match any of the above.
Classify the user's intent based on their message. Only reply with the intent name.`

// 槽位提取规则，作用于小写后的用户消息
var (
	addPattern      = regexp.MustCompile(`add (.+?) to (my )?cart`)
	removePattern   = regexp.MustCompile(`remove (.+?) from (my )?cart`)
	removedPattern  = regexp.MustCompile(`(?i)removed (one |the |a |an )?(.+?) from (your |my )?cart`)
	recommendRegexp = regexp.MustCompile(`recommend (.+)`)
	dishPattern     = regexp.MustCompile(`(?:make|cook|prepare|i want to make|i want to cook|i want to prepare) (a |an |the )?([a-z ]+)`)
	needForPattern  = regexp.MustCompile(`items i need for (making|cooking|preparing) (a |an |the )?([a-z ]+)`)
)

// labelReplacer 去掉标签两侧的引号和反引号
var labelReplacer = strings.NewReplacer("\"", "", "'", "", "`", "")

// Classifier 意图分类器
type Classifier struct {
	llm llm.Completer
}

// NewClassifier 创建意图分类器
func NewClassifier(completer llm.Completer) *Classifier {
	return &Classifier{llm: completer}
}

// Classify 识别用户消息意图
// lastAssistant 为上一条助手消息，用于 remove_from_cart 的槽位回退
// LLM 失败或标签无法识别时返回 unknown
func (c *Classifier) Classify(ctx context.Context, message, lastAssistant string) Intent {
	reply, err := c.llm.Complete(ctx, llm.PurposeIntent, []*schema.Message{
		schema.SystemMessage(classifySystemPrompt),
		schema.UserMessage(message),
	})
	if err != nil {
		log.Printf("[Intent] classification failed, treating as unknown: %v", err)
		return Unknown()
	}

	kind := normalizeLabel(reply)
	if !knownKinds[kind] {
		log.Printf("[Intent] unrecognised label %q", reply)
		return Unknown()
	}
	return withSlots(kind, message, lastAssistant)
}

// normalizeLabel 规范化 LLM 返回的标签
func normalizeLabel(reply string) Kind {
	label := strings.ToLower(strings.TrimSpace(reply))
	label = labelReplacer.Replace(label)
	label = strings.TrimRight(label, ".!?,;: \n")
	label = strings.TrimSpace(label)
	label = strings.NewReplacer(" ", "_", "-", "_").Replace(label)
	return Kind(label)
}

// withSlots 按意图类型提取槽位
func withSlots(kind Kind, message, lastAssistant string) Intent {
	lower := strings.ToLower(message)
	in := Intent{Kind: kind}

	switch kind {
	case KindAddToCart:
		in.Product = submatch(addPattern, lower, 1)
	case KindRemoveFromCart:
		in.Product = submatch(removePattern, lower, 1)
		if in.Product == "" && lastAssistant != "" {
			in.Product = submatch(removedPattern, lastAssistant, 2)
		}
	case KindRecommend:
		in.Query = submatch(recommendRegexp, lower, 1)
	case KindMakeDish:
		in.Dish = submatch(dishPattern, lower, 2)
		if in.Dish == "" {
			in.Dish = submatch(needForPattern, lower, 3)
		}
	}
	return in
}

// submatch 返回第 n 个捕获组（去空白），无匹配返回空串
func submatch(re *regexp.Regexp, s string, n int) string {
	m := re.FindStringSubmatch(s)
	if len(m) <= n {
		return ""
	}
	return strings.TrimSpace(m[n])
}

// String 用于日志
func (i Intent) String() string {
	switch i.Kind {
	case KindAddToCart, KindRemoveFromCart:
		return fmt.Sprintf("%s{product=%q}", i.Kind, i.Product)
	case KindRecommend:
		return fmt.Sprintf("%s{query=%q}", i.Kind, i.Query)
	case KindMakeDish:
		return fmt.Sprintf("%s{dish=%q}", i.Kind, i.Dish)
	default:
		return string(i.Kind)
	}
}
