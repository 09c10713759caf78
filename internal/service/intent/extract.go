package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ashwinyue/freshcart/internal/service/llm"
	"github.com/cloudwego/eino/schema"
	"github.com/kaptinlin/jsonrepair"
)

// CartAction 购物车动作方向
type CartAction string

const (
	ActionAdd    CartAction = "add"
	ActionRemove CartAction = "remove"
)

// removeAllPatterns 清空购物车的说法
var removeAllPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)remove all( the)?( items| products)?( from (my )?cart)?`),
	regexp.MustCompile(`(?i)remove everything( from (my )?cart)?`),
	regexp.MustCompile(`(?i)delete all( the)?( items| products)?`),
	regexp.MustCompile(`(?i)clear (my )?cart`),
	regexp.MustCompile(`(?i)empty (my )?cart`),
}

// productSplitter 逗号或换行分隔
var productSplitter = regexp.MustCompile(`[,\r\n]`)

// Extraction 商品提取结果
type Extraction struct {
	Products []string
	All      bool // 移除全部
}

// IsRemoveAll 消息是否要求清空购物车
func IsRemoveAll(message string) bool {
	for _, re := range removeAllPatterns {
		if re.MatchString(message) {
			return true
		}
	}
	return false
}

// ExtractProducts 用 LLM 从消息中提取商品名
func (c *Classifier) ExtractProducts(ctx context.Context, message string, action CartAction) (Extraction, error) {
	if action == ActionRemove && IsRemoveAll(message) {
		return Extraction{All: true}, nil
	}

	direction := "add to"
	if action == ActionRemove {
		direction = "remove from"
	}
	prompt := fmt.Sprintf("You are an AI assistant for a supermarket. Extract the product(s) the user wants to %s their cart. Reply with a comma-separated list of product names. If the user wants to remove all items, reply with \"ALL\".", direction)

	reply, err := c.llm.Complete(ctx, llm.PurposeExtract, []*schema.Message{
		schema.SystemMessage(prompt),
		schema.UserMessage(message),
	})
	if err != nil {
		return Extraction{}, fmt.Errorf("failed to extract products: %w", err)
	}

	reply = strings.TrimSpace(reply)
	if action == ActionRemove && strings.EqualFold(reply, "all") {
		return Extraction{All: true}, nil
	}
	return Extraction{Products: parseProductList(reply)}, nil
}

// parseProductList 解析 LLM 返回的商品列表
// 优先按 JSON 数组（必要时修复），否则按逗号/换行拆分
func parseProductList(reply string) []string {
	if strings.HasPrefix(reply, "[") {
		if products, ok := parseJSONList(reply); ok {
			return products
		}
	}

	var products []string
	for _, part := range productSplitter.Split(reply, -1) {
		if p := cleanProduct(part); p != "" {
			products = append(products, p)
		}
	}
	return products
}

// parseJSONList 解析（可能不完整的）JSON 字符串数组
func parseJSONList(reply string) ([]string, bool) {
	repaired, err := jsonrepair.JSONRepair(reply)
	if err != nil {
		return nil, false
	}
	var raw []string
	if err := json.Unmarshal([]byte(repaired), &raw); err != nil {
		return nil, false
	}
	var products []string
	for _, p := range raw {
		if p = cleanProduct(p); p != "" {
			products = append(products, p)
		}
	}
	return products, true
}

// cleanProduct 去掉空白、列表符号、引号和句末标点
func cleanProduct(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "-*• ")
	s = strings.Trim(s, "\"'`")
	s = strings.TrimRight(s, ".")
	return strings.TrimSpace(s)
}
