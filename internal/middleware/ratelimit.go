package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "freshcart:ratelimit:"

// RateLimitMiddleware 固定窗口限流
// 按用户 ID 计数，未认证时按客户端 IP。Redis 不可用时放行
func RateLimitMiddleware(client *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || limit <= 0 || window <= 0 {
			c.Next()
			return
		}

		key := rateLimitKeyPrefix + rateLimitSubject(c)
		count, err := incrWindow(c.Request.Context(), client, key, int64(limit), window)
		if err != nil {
			log.Printf("[RateLimit] redis error, allowing request: %v", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprint(limit))
		if remaining := int64(limit) - count; remaining >= 0 {
			c.Header("X-RateLimit-Remaining", fmt.Sprint(remaining))
		} else {
			c.Header("X-RateLimit-Remaining", "0")
		}

		if count > int64(limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests, please try again later.",
			})
			return
		}
		c.Next()
	}
}

// incrWindow 计数加一，窗口内第一次请求设置过期时间
// 只用 INCR/EXPIRE/TTL，Redis 2.6 以上可用
func incrWindow(ctx context.Context, client *redis.Client, key string, limit int64, window time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	switch {
	case count == 1:
		if err := client.Expire(ctx, key, window).Err(); err != nil {
			return 0, err
		}
	case count > limit:
		// 首次 EXPIRE 失败会留下永不过期的计数，超限时补设
		ttl, err := client.TTL(ctx, key).Result()
		if err == nil && ttl < 0 {
			if err := client.Expire(ctx, key, window).Err(); err != nil {
				log.Printf("[RateLimit] failed to restore window on %s: %v", key, err)
			}
		}
	}
	return count, nil
}

func rateLimitSubject(c *gin.Context) string {
	if id, ok := GetUserID(c); ok && id != "" {
		return "user:" + id
	}
	return "ip:" + c.ClientIP()
}
