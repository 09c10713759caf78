package router

import (
	"github.com/ashwinyue/freshcart/internal/config"
	"github.com/ashwinyue/freshcart/internal/handler"
	"github.com/ashwinyue/freshcart/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Deps 路由依赖
type Deps struct {
	Config    *config.Config
	Validator middleware.TokenValidator
	Redis     *redis.Client // 可以为 nil，此时不限流
}

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, deps Deps) *gin.Engine {
	r := gin.New()
	cfg := deps.Config

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))

	// 健康检查
	r.GET("/health", h.System.Health)

	// API v1
	v1 := r.Group("/api/v1")
	{
		// Agent 购物助手
		agent := v1.Group("/agent")
		agent.Use(middleware.RequireAuth(deps.Validator, cfg.Auth.CookieName))
		if cfg.RateLimit.Enabled {
			agent.Use(middleware.RateLimitMiddleware(deps.Redis, cfg.RateLimit.Requests, cfg.RateLimit.WindowDuration()))
		}
		{
			agent.GET("/conversation", h.Agent.GetConversation)
			agent.POST("/chat", h.Agent.Chat)
			agent.DELETE("/conversation/:userId", h.Agent.DeleteConversation)
			agent.POST("/end", h.Agent.EndSession)
		}
	}

	return r
}
