package pipeline

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "caption-story-api/pkg/errors"
	"caption-story-api/pkg/logger"
	"caption-story-api/pkg/metrics"
	"caption-story-api/pkg/tracer"
)

// Service 流水线编排：先描述图片，再用描述生成故事
type Service struct {
	captioner   Captioner
	storyteller Storyteller
}

// NewService 创建流水线服务
func NewService(captioner Captioner, storyteller Storyteller) *Service {
	return &Service{
		captioner:   captioner,
		storyteller: storyteller,
	}
}

// Process 执行完整流水线，每个阶段只调用一次，不做重试
// 任一阶段失败时原样返回其错误，已得到的描述会被丢弃
func (s *Service) Process(ctx context.Context, upload ImageUpload, prompt string) (*Response, error) {
	ctx, span := tracer.Start(ctx, "pipeline.Process", trace.WithAttributes(
		attribute.String("upload.media_type", upload.MediaType),
		attribute.Int("upload.size", len(upload.Data)),
		attribute.Bool("prompt.provided", strings.TrimSpace(prompt) != ""),
	))
	defer span.End()

	start := time.Now()
	resp, err := s.process(ctx, upload, prompt)
	metrics.PipelineDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		appErr := apperrors.AsAppError(err)
		metrics.PipelineTotal.WithLabelValues(string(appErr.Code)).Inc()
		span.SetStatus(codes.Error, appErr.Message)
		return nil, appErr
	}

	metrics.PipelineTotal.WithLabelValues("ok").Inc()
	metrics.StoryWordCount.Observe(float64(len(strings.Fields(resp.Story))))
	logger.Info(ctx, "pipeline completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"caption_length", len(resp.Caption),
		"story_length", len(resp.Story),
	)
	return resp, nil
}

func (s *Service) process(ctx context.Context, upload ImageUpload, prompt string) (*Response, error) {
	if !upload.IsImage() {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "Uploaded file must be an image")
	}
	if len(upload.Data) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "Uploaded file is empty")
	}

	caption, err := s.captioner.Caption(ctx, upload)
	if err != nil {
		return nil, err
	}

	story, err := s.storyteller.Tell(ctx, caption, prompt)
	if err != nil {
		return nil, err
	}

	return &Response{
		Caption: caption,
		Story:   story,
	}, nil
}
