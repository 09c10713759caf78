package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/ashwinyue/freshcart/internal/model"
	"github.com/ashwinyue/freshcart/internal/service/agent"
	"github.com/ashwinyue/freshcart/internal/service/chat"
	"github.com/ashwinyue/freshcart/internal/service/intent"
	"github.com/gin-gonic/gin"
)

// TurnHandler 处理一轮对话
type TurnHandler interface {
	HandleTurn(ctx context.Context, userID, message string) (*agent.TurnResult, error)
}

// ConversationManager 会话生命周期
type ConversationManager interface {
	History(ctx context.Context, userID string) ([]chat.HistoryEntry, error)
	Wipe(ctx context.Context, userID string) error
	End(ctx context.Context, userID string) (string, error)
}

// AgentHandler 购物助手处理器
type AgentHandler struct {
	agent TurnHandler
	chat  ConversationManager
}

// NewAgentHandler 创建购物助手处理器
func NewAgentHandler(turns TurnHandler, conversations ConversationManager) *AgentHandler {
	return &AgentHandler{agent: turns, chat: conversations}
}

// ========== 请求/响应 ==========

// ChatRequest 对话请求
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// ActionDTO 本轮动作
type ActionDTO struct {
	Intent    intent.Intent `json:"intent"`
	Confirmed bool          `json:"confirmed"`
}

// CartLogDTO 购物车快照
type CartLogDTO struct {
	CartID *uint             `json:"cartId"`
	Items  []*model.CartItem `json:"items"`
}

// ChatResponse 对话响应
type ChatResponse struct {
	Response       string      `json:"response"`
	ConversationID string      `json:"conversationId"`
	Action         ActionDTO   `json:"action"`
	ActionStatus   *string     `json:"actionStatus"`
	CartLog        *CartLogDTO `json:"cartLog"`
}

// HistoryResponse 历史响应
type HistoryResponse struct {
	History []chat.HistoryEntry `json:"history"`
}

// EndResponse 结束会话响应
type EndResponse struct {
	Message string `json:"message"`
}

// SuccessResponse 操作成功响应
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ========== 接口 ==========

// GetConversation 获取当前用户的会话历史
// GET /api/v1/agent/conversation
func (h *AgentHandler) GetConversation(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		abortWithError(c, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	history, err := h.chat.History(c.Request.Context(), userID)
	if err != nil {
		log.Printf("[AgentHandler] get conversation failed: %v", err)
		abortWithError(c, http.StatusInternalServerError, "Error fetching conversation.")
		return
	}

	c.JSON(http.StatusOK, HistoryResponse{History: history})
}

// Chat 处理一条用户消息
// POST /api/v1/agent/chat
func (h *AgentHandler) Chat(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		abortWithError(c, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	var req ChatRequest
	if err := bindStrictJSON(c, &req); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		abortWithError(c, http.StatusBadRequest, "Missing message.")
		return
	}

	res, err := h.agent.HandleTurn(c.Request.Context(), userID, message)
	if err != nil {
		if errors.Is(err, agent.ErrAssistantUnavailable) {
			abortWithError(c, http.StatusServiceUnavailable, agent.ErrAssistantUnavailable.Error())
			return
		}
		log.Printf("[AgentHandler] chat failed: %v", err)
		abortWithError(c, http.StatusInternalServerError, "Agent error.")
		return
	}

	c.JSON(http.StatusOK, toChatResponse(res))
}

// DeleteConversation 清空会话，只能操作自己的会话
// DELETE /api/v1/agent/conversation/:userId
func (h *AgentHandler) DeleteConversation(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" || c.Param("userId") != userID {
		abortWithError(c, http.StatusForbidden, "Forbidden: User mismatch.")
		return
	}

	if err := h.chat.Wipe(c.Request.Context(), userID); err != nil {
		log.Printf("[AgentHandler] delete conversation failed: %v", err)
		abortWithError(c, http.StatusInternalServerError, "Delete error.")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// EndSession 结束会话
// POST /api/v1/agent/end
func (h *AgentHandler) EndSession(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		abortWithError(c, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	msg, err := h.chat.End(c.Request.Context(), userID)
	if err != nil {
		log.Printf("[AgentHandler] end session failed: %v", err)
		abortWithError(c, http.StatusInternalServerError, "End session error.")
		return
	}

	c.JSON(http.StatusOK, EndResponse{Message: msg})
}

// toChatResponse 转换为响应 DTO
func toChatResponse(res *agent.TurnResult) ChatResponse {
	out := ChatResponse{
		Response:       res.Response,
		ConversationID: res.ConversationID,
		Action: ActionDTO{
			Intent:    res.Action.Intent,
			Confirmed: res.Action.Confirmed,
		},
		ActionStatus: res.ActionStatus,
	}
	if res.CartLog != nil {
		items := res.CartLog.Items
		if items == nil {
			items = []*model.CartItem{}
		}
		out.CartLog = &CartLogDTO{CartID: res.CartLog.CartID, Items: items}
	}
	return out
}
