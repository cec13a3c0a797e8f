package pipeline

import (
	"context"
	"time"
)

// CaptionStage 把图片字节发送到图片描述服务
type CaptionStage struct {
	client  InferenceClient
	url     string
	timeout time.Duration
}

// NewCaptionStage 创建图片描述阶段
func NewCaptionStage(client InferenceClient, url string, timeout time.Duration) *CaptionStage {
	return &CaptionStage{
		client:  client,
		url:     url,
		timeout: timeout,
	}
}

// Caption 返回第一个候选的 generated_text
func (s *CaptionStage) Caption(ctx context.Context, upload ImageUpload) (string, error) {
	return runStage(ctx, StageCaption, s.timeout, func(ctx context.Context) (string, error) {
		candidates, err := s.client.PostBinary(ctx, s.url, upload.MediaType, upload.Data)
		if err != nil {
			return "", err
		}
		return firstCandidate(candidates)
	})
}
