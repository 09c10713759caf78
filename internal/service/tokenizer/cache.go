package tokenizer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// cacheKeyPrefix Redis key 前缀
const cacheKeyPrefix = "freshcart:tokens:"

// Cache token 计数缓存
type Cache interface {
	Get(ctx context.Context, text string) (int, bool)
	Set(ctx context.Context, text string, count int)
}

// RedisCache 基于 Redis 的计数缓存
// 读写失败只记录日志，不影响计数
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache 创建 Redis 缓存
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Get 读取缓存
func (c *RedisCache) Get(ctx context.Context, text string) (int, bool) {
	if c.client == nil {
		return 0, false
	}
	val, err := c.client.Get(ctx, cacheKey(text)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("[Tokenizer] cache get failed: %v", err)
		}
		return 0, false
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Set 写入缓存
func (c *RedisCache) Set(ctx context.Context, text string, count int) {
	if c.client == nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(text), count, c.ttl).Err(); err != nil {
		log.Printf("[Tokenizer] cache set failed: %v", err)
	}
}

// cacheKey 以文本 sha256 作为 key
func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
