package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ashwinyue/freshcart/internal/config"
	"github.com/ashwinyue/freshcart/internal/repository"
	"github.com/ashwinyue/freshcart/internal/service/agent"
	"github.com/ashwinyue/freshcart/internal/service/callback"
	"github.com/ashwinyue/freshcart/internal/service/catalog"
	"github.com/ashwinyue/freshcart/internal/service/chat"
	"github.com/ashwinyue/freshcart/internal/service/llm"
	"github.com/ashwinyue/freshcart/internal/service/tokenizer"
	"github.com/cloudwego/eino/components/model"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
)

// Services 服务集合
type Services struct {
	Agent *agent.Service
	Chat  *chat.Service

	Config    *config.Config
	ChatModel model.BaseChatModel
	LLM       *llm.Client
	Tokenizer *tokenizer.Tokenizer
}

// NewServices 创建所有服务
// ChatModel 创建失败不阻止启动，此时对话接口返回 503
func NewServices(ctx context.Context, repo *repository.Repositories, cfg *config.Config, redisClient *redis.Client) (*Services, error) {
	if err := setupCatalog(ctx, repo, cfg); err != nil {
		return nil, err
	}

	chatModel, err := llm.NewChatModel(ctx, &cfg.AI)
	if err != nil {
		log.Printf("Warning: failed to create chat model: %v", err)
		chatModel = nil
	}

	client := llm.NewClient(chatModel, llm.Options{
		Timeout:     cfg.Agent.LLMTimeoutDuration(),
		Temperature: cfg.AI.Temperature,
		TopP:        cfg.AI.TopP,
		MaxTokens:   cfg.AI.MaxTokens,
		Debug:       cfg.App.Debug,
		Handler:     callback.NewLogger(cfg.App.Debug),
	})

	tok := newTokenizer(cfg, redisClient)

	stores := agent.Stores{
		Conversations: repo.Conversation,
		Carts:         repo.Cart,
		Catalog:       repo.Catalog,
	}

	return &Services{
		Agent: agent.NewService(stores, client, tok, agent.Options{
			Persona:         cfg.Agent.Persona,
			MaxPromptTokens: cfg.Agent.MaxPromptTokens,
		}),
		Chat: chat.NewService(repo.Conversation),

		Config:    cfg,
		ChatModel: chatModel,
		LLM:       client,
		Tokenizer: tok,
	}, nil
}

// newTokenizer 创建分词器，Redis 可用时缓存计数
func newTokenizer(cfg *config.Config, redisClient *redis.Client) *tokenizer.Tokenizer {
	opts := tokenizer.Options{
		Endpoint: cfg.Tokenizer.Endpoint,
		APIKey:   cfg.Tokenizer.APIKey,
		Timeout:  time.Duration(cfg.Tokenizer.Timeout) * time.Second,
	}
	if redisClient != nil {
		opts.Cache = tokenizer.NewRedisCache(redisClient, time.Duration(cfg.Tokenizer.CacheTTL)*time.Second)
	}
	if opts.Endpoint == "" {
		log.Printf("Tokenizer endpoint not configured, using word heuristic")
	}
	return tokenizer.New(opts)
}

// setupCatalog 配置了 Elasticsearch 时用其替换商品检索
func setupCatalog(ctx context.Context, repo *repository.Repositories, cfg *config.Config) error {
	esCfg := cfg.Elastic
	if esCfg.Host == "" {
		log.Printf("Elasticsearch not configured, product search uses postgres")
		return nil
	}

	esClient, err := newElasticClient(&esCfg)
	if err != nil {
		return err
	}

	esCatalog := repository.NewElasticCatalog(esClient, esCfg.ProductIndex())
	if esCfg.SyncOnStart {
		if _, err := catalog.NewSyncer(repo.Products, esCatalog, 0).Sync(ctx); err != nil {
			return fmt.Errorf("failed to sync catalog: %w", err)
		}
	} else if err := esCatalog.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("failed to ensure product index: %w", err)
	}

	repo.UseCatalog(esCatalog)
	log.Printf("Product search uses elasticsearch index %s", esCfg.ProductIndex())
	return nil
}

// newElasticClient 创建 ES 客户端
func newElasticClient(esCfg *config.ElasticConfig) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esCfg.Host},
		Username:  esCfg.Username,
		Password:  esCfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create es client: %w", err)
	}
	return client, nil
}
