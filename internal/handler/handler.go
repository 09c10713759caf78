package handler

import (
	"github.com/ashwinyue/freshcart/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Agent  *AgentHandler
	System *SystemHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services, pinger Pinger) *Handlers {
	return &Handlers{
		Agent:  NewAgentHandler(svc.Agent, svc.Chat),
		System: NewSystemHandler(pinger),
	}
}
