// Package wire 提供依赖注入配置
package wire

import (
	"github.com/google/wire"

	"caption-story-api/internal/application/pipeline"
	"caption-story-api/internal/config"
	"caption-story-api/internal/infrastructure/inference"
	"caption-story-api/internal/infrastructure/persistence/redis"
	"caption-story-api/internal/interfaces/http/handler"
	"caption-story-api/internal/interfaces/http/middleware"
	"caption-story-api/internal/interfaces/http/router"
)

// InferenceSet 推理客户端与流水线
var InferenceSet = wire.NewSet(
	ProvideInferenceClient,
	wire.Bind(new(pipeline.InferenceClient), new(*inference.Client)),
	ProvideCaptionStage,
	ProvideStoryStage,
	wire.Bind(new(pipeline.Captioner), new(*pipeline.CaptionStage)),
	wire.Bind(new(pipeline.Storyteller), new(*pipeline.StoryStage)),
	pipeline.NewService,
)

// RedisSet 可选的 Redis 依赖（仅限流启用时连接）
var RedisSet = wire.NewSet(
	ProvideRedisClientOptional,
	ProvideRateLimiterOptional,
)

// HTTPSet HTTP 层
var HTTPSet = wire.NewSet(
	wire.Bind(new(handler.Processor), new(*pipeline.Service)),
	ProvideCaptionHandler,
	ProvideHealthHandler,
	router.New,
)

// ProvideInferenceClient 提供推理服务客户端
func ProvideInferenceClient(cfg *config.Config) *inference.Client {
	return inference.NewClient(&cfg.Inference)
}

// ProvideCaptionStage 提供图片描述阶段
func ProvideCaptionStage(cfg *config.Config, client pipeline.InferenceClient) *pipeline.CaptionStage {
	return pipeline.NewCaptionStage(client, cfg.Inference.Caption.URL, cfg.Inference.Caption.Timeout)
}

// ProvideStoryStage 提供故事生成阶段
func ProvideStoryStage(cfg *config.Config, client pipeline.InferenceClient) *pipeline.StoryStage {
	return pipeline.NewStoryStage(client, pipeline.StoryStageConfig{
		URL:     cfg.Inference.Story.URL,
		Timeout: cfg.Inference.Story.Timeout,
		Template: pipeline.PromptTemplate{
			Preamble:       cfg.Story.Preamble,
			DefaultContext: cfg.Story.DefaultContext,
		},
		Parameters: pipeline.GenerationParameters(cfg.Story.Parameters),
	})
}

// ProvideRedisClientOptional 限流启用时提供 Redis 客户端，否则返回 nil
func ProvideRedisClientOptional(cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Security.RateLimit.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRateLimiterOptional 提供限流器，Redis 不可用时返回 nil 接口
func ProvideRateLimiterOptional(client *redis.Client) middleware.RateLimiter {
	if client == nil {
		return nil
	}
	return redis.NewRateLimiter(client)
}

// ProvideCaptionHandler 提供图片描述处理器
func ProvideCaptionHandler(cfg *config.Config, processor handler.Processor) *handler.CaptionHandler {
	return handler.NewCaptionHandler(processor, cfg.Upload.MaxBytes, cfg.Upload.FormField)
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(client *redis.Client) *handler.HealthHandler {
	checks := map[string]handler.HealthChecker{}
	if client != nil {
		checks["redis"] = client
	}
	return handler.NewHealthHandler(checks)
}
