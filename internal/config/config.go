package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Elastic   ElasticConfig
	AI        AIConfig
	Tokenizer TokenizerConfig
	Agent     AgentConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string
	Environment string
	Version     string
	Debug       bool
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	// MigrateCommerce 同时创建商品和购物车表，仅用于本地开发和测试
	MigrateCommerce bool
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// ElasticConfig Elasticsearch配置
// Host 为空时商品检索走 Postgres
type ElasticConfig struct {
	Host        string
	Username    string
	Password    string
	IndexPrefix string
	SyncOnStart bool
}

// AIConfig AI配置
type AIConfig struct {
	Provider    string
	OpenAI      OpenAIConfig
	Alibaba     AlibabaConfig
	DeepSeek    DeepSeekConfig
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// OpenAIConfig OpenAI配置
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout int
}

// AlibabaConfig 阿里云配置
type AlibabaConfig struct {
	AccessKeySecret string
	Model           string
	Timeout         int
}

// DeepSeekConfig DeepSeek配置
type DeepSeekConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout int
}

// TokenizerConfig 远程分词服务配置
type TokenizerConfig struct {
	Endpoint string
	APIKey   string
	Timeout  int
	CacheTTL int
}

// AgentConfig 购物助手配置
type AgentConfig struct {
	Persona         string
	MaxPromptTokens int
	LLMTimeout      int
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret  string
	CookieName string
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   int
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins []string
}

var globalConfig *Config

// Load 加载配置
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 环境变量
	v.SetEnvPrefix("FRESHCART")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("config not loaded")
	}
	return globalConfig
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetAddr 获取服务器地址
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAddr 获取 Redis 地址
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ProductIndex 商品索引名
func (c *ElasticConfig) ProductIndex() string {
	return c.IndexPrefix + "_products"
}

// LLMTimeoutDuration 单次 LLM 调用超时
func (c *AgentConfig) LLMTimeoutDuration() time.Duration {
	if c.LLMTimeout <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.LLMTimeout) * time.Second
}

// WindowDuration 限流窗口
func (c *RateLimitConfig) WindowDuration() time.Duration {
	return time.Duration(c.Window) * time.Second
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "freshcart")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", true)

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 60)

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "freshcart")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.maxLifetime", 300)
	v.SetDefault("database.migrateCommerce", false)

	// Redis
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Elastic
	v.SetDefault("elastic.host", "")
	v.SetDefault("elastic.indexPrefix", "freshcart")
	v.SetDefault("elastic.syncOnStart", false)

	// AI
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.openai.baseUrl", "https://api.openai.com/v1")
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.openai.apiKey", "")
	v.SetDefault("ai.deepseek.apiKey", "")
	v.SetDefault("ai.deepseek.baseUrl", "https://api.deepseek.com/v1")
	v.SetDefault("ai.deepseek.model", "deepseek-chat")
	v.SetDefault("ai.alibaba.accessKeySecret", "")
	v.SetDefault("ai.alibaba.model", "qwen-plus")
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.topP", 0.9)
	v.SetDefault("ai.maxTokens", 400)

	// Tokenizer
	v.SetDefault("tokenizer.endpoint", "")
	v.SetDefault("tokenizer.apiKey", "")
	v.SetDefault("tokenizer.timeout", 10)
	v.SetDefault("tokenizer.cacheTTL", 3600)

	// Agent
	v.SetDefault("agent.persona", "You are a helpful AI agent for the groceries store Fresh Food. Use the provided context and conversation history to answer user questions.")
	v.SetDefault("agent.maxPromptTokens", 4000)
	v.SetDefault("agent.llmTimeout", 20)

	// Auth
	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.cookieName", "jwt")

	// RateLimit: 15 分钟 100 次
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requests", 100)
	v.SetDefault("rateLimit.window", 900)

	// CORS
	v.SetDefault("cors.allowedOrigins", []string{"http://localhost:5000"})
}
