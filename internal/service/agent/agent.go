// Package agent 购物助手的单轮编排：意图识别、动作执行、回复生成和持久化
package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ashwinyue/freshcart/internal/model"
	"github.com/ashwinyue/freshcart/internal/repository"
	"github.com/ashwinyue/freshcart/internal/service/chat"
	"github.com/ashwinyue/freshcart/internal/service/intent"
	"github.com/ashwinyue/freshcart/internal/service/llm"
	"github.com/ashwinyue/freshcart/internal/service/prompt"
	"github.com/ashwinyue/freshcart/internal/service/resolver"
	"github.com/ashwinyue/freshcart/internal/service/tokenizer"
	"github.com/cloudwego/eino/schema"
)

// 固定回复
const (
	ApologyMessage = "Sorry, something went wrong with your request. This might be because the product was not found in your cart, or there was a technical issue. Would you like to see your cart contents or try again?"
	DisclosureNote = "\n\n[Note: This action was decided by our AI assistant. The message is generated by the backend for clarity.]"

	statusSessionEnded  = "Session ended."
	statusBulkAdd       = "Bulk add to cart is not yet supported. Please specify only one product."
	statusBulkRemove    = "Bulk remove from cart is not yet supported. Please specify only one product."
	statusNoProduct     = "No product specified."
	statusRemovedAll    = "Removed all items from cart."
	statusShowCart      = "Show cart requested."
	statusNoDish        = "Sorry, dish creation is not supported yet. We are working on this feature."
	statusActionError   = "Action error: "
	defaultMaxPromptLen = 4000
)

// Stores 编排依赖的存储
type Stores struct {
	Conversations repository.ConversationStore
	Carts         repository.CartStore
	Catalog       repository.CatalogStore
}

// Options 编排参数
type Options struct {
	Persona         string
	MaxPromptTokens int
}

// Action 本轮识别结果
type Action struct {
	Intent    intent.Intent
	Confirmed bool
}

// CartLog 动作后的购物车快照
type CartLog struct {
	CartID *uint
	Items  []*model.CartItem
}

// TurnResult 单轮处理结果
type TurnResult struct {
	Response       string
	ConversationID string
	Action         Action
	ActionStatus   *string
	CartLog        *CartLog
}

// Service 购物助手编排服务
type Service struct {
	stores     Stores
	sessions   *chat.Service
	classifier *intent.Classifier
	resolver   *resolver.Resolver
	builder    *prompt.Builder
	counter    tokenizer.Counter
	llm        llm.Completer
	maxTokens  int
}

// NewService 创建编排服务
func NewService(stores Stores, completer llm.Completer, counter tokenizer.Counter, opts Options) *Service {
	maxTokens := opts.MaxPromptTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxPromptLen
	}
	return &Service{
		stores:     stores,
		sessions:   chat.NewService(stores.Conversations),
		classifier: intent.NewClassifier(completer),
		resolver:   resolver.New(stores.Catalog, stores.Carts, completer),
		builder:    prompt.NewBuilder(opts.Persona),
		counter:    counter,
		llm:        completer,
		maxTokens:  maxTokens,
	}
}

// outcome 动作执行的中间结果
type outcome struct {
	status      string
	response    string
	hasResponse bool
	cartLog     *CartLog
}

// reply 设置固定回复
func (o *outcome) reply(text string) {
	o.response = text
	o.hasResponse = true
}

// HandleTurn 处理一条用户消息
func (s *Service) HandleTurn(ctx context.Context, userID, message string) (*TurnResult, error) {
	conv, err := s.stores.Conversations.GetOrCreateConversation(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	stored, err := s.stores.Conversations.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	history := chat.ToSchema(stored)

	action := s.decide(ctx, history, message)
	log.Printf("[Agent] user=%s intent=%s confirmed=%v", userID, action.Intent, action.Confirmed)

	out := &outcome{}
	if action.Confirmed && action.Intent.Actionable() {
		if err := s.execute(ctx, userID, conv, action.Intent, message, out); err != nil {
			log.Printf("[Agent] action %s failed: %v", action.Intent.Kind, err)
			out.status = statusActionError + statusText(err)
		}
	}

	response, err := s.compose(ctx, userID, action.Intent, history, message, out)
	if err != nil {
		return nil, err
	}

	if action.Intent.Kind != intent.KindEndSession {
		if err := s.persist(ctx, conv.ID, message, response); err != nil {
			return nil, err
		}
	}

	result := &TurnResult{
		Response:       response,
		ConversationID: conv.ID,
		Action:         action,
		CartLog:        out.cartLog,
	}
	if out.status != "" {
		status := out.status
		result.ActionStatus = &status
	}
	return result, nil
}

// decide 识别意图并判断是否已确认
// 可执行意图直接确认；未知意图在有待办动作时询问确认分类器
func (s *Service) decide(ctx context.Context, history []*schema.Message, message string) Action {
	in := s.classifier.Classify(ctx, message, intent.LastAssistantMessage(history))
	if in.Actionable() {
		return Action{Intent: in, Confirmed: true}
	}

	if pending, ok := intent.InferPendingAction(history); ok {
		confirmed := s.classifier.ClassifyConfirmation(ctx, history, pending, message)
		return Action{Intent: intent.Unknown(), Confirmed: confirmed}
	}
	return Action{Intent: intent.Unknown()}
}

// compose 生成最终回复
func (s *Service) compose(ctx context.Context, userID string, in intent.Intent, history []*schema.Message, message string, out *outcome) (string, error) {
	if strings.HasPrefix(out.status, statusActionError) {
		return ApologyMessage + DisclosureNote, nil
	}

	var response string
	switch {
	case out.hasResponse:
		response = out.response
	case in.Kind == intent.KindAddToCart || in.Kind == intent.KindRemoveFromCart:
		response = out.status
		if response == "" {
			response = "Action completed."
		}
	default:
		text, err := s.generate(ctx, userID, history, message)
		if err != nil {
			return "", err
		}
		response = text
	}

	if strings.HasPrefix(out.status, "Added ") || strings.HasPrefix(out.status, "Removed ") {
		response = out.status + DisclosureNote
	}
	return response, nil
}

// generate 调用通用 LLM 生成回复
func (s *Service) generate(ctx context.Context, userID string, history []*schema.Message, message string) (string, error) {
	var chunks []string
	if chunk := prompt.URLChunk(message); chunk != "" {
		chunks = append(chunks, chunk)
	}

	summary, err := s.cartSummary(ctx, userID)
	if err != nil {
		return "", err
	}
	chunks = append(chunks, summary)

	messages := s.builder.BuildPrompt(chunks, history, message)
	messages = tokenizer.TrimToFit(ctx, s.counter, messages, s.maxTokens)

	text, err := s.llm.Complete(ctx, llm.PurposeAgent, messages)
	if err != nil {
		log.Printf("[Agent] response generation failed: %v", err)
		return "", ErrAssistantUnavailable
	}
	if text == "" {
		log.Printf("[Agent] response generation returned empty text")
		return "", ErrAssistantUnavailable
	}
	return text, nil
}

// cartSummary 当前购物车的上下文片段
func (s *Service) cartSummary(ctx context.Context, userID string) (string, error) {
	cart, err := s.stores.Carts.GetCartByUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to get cart: %w", err)
	}
	if cart == nil {
		return prompt.CartSummary(nil), nil
	}

	lines, err := s.cartLines(ctx, cart.ID)
	if err != nil {
		return "", err
	}
	summary := make([]prompt.CartLine, 0, len(lines))
	for _, l := range lines {
		if l.name != "" {
			summary = append(summary, prompt.CartLine{Name: l.name, Quantity: l.item.Quantity})
		}
	}
	return prompt.CartSummary(summary), nil
}

// persist 会话仍存在时写入本轮消息
func (s *Service) persist(ctx context.Context, conversationID, message, response string) error {
	exists, err := s.stores.Conversations.ConversationExists(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("failed to check conversation: %w", err)
	}
	if !exists {
		log.Printf("[Agent] conversation %s deleted during turn, skipping persistence", conversationID)
		return nil
	}

	for _, m := range []*model.Message{
		{ConversationID: conversationID, Sender: model.SenderUser, Content: message},
		{ConversationID: conversationID, Sender: model.SenderAssistant, Content: response},
	} {
		if err := s.stores.Conversations.InsertMessage(ctx, m); err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}
	}
	return nil
}
