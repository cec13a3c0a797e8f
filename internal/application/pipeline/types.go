// Package pipeline 实现图片描述到故事生成的两阶段流水线
package pipeline

import (
	"context"
	"strings"

	"caption-story-api/internal/infrastructure/inference"
)

// Stage 流水线阶段名称
type Stage string

const (
	StageCaption Stage = "caption"
	StageStory   Stage = "story"
)

// ImageUpload 上传的图片
type ImageUpload struct {
	Data      []byte
	MediaType string
	Filename  string
}

// IsImage 媒体类型是否以 image/ 开头
func (u ImageUpload) IsImage() bool {
	return strings.HasPrefix(u.MediaType, "image/")
}

// Response 流水线输出
type Response struct {
	Caption string `json:"caption"`
	Story   string `json:"story"`
}

// GenerationParameters 文本生成采样参数，原样作为 parameters 字段发送
type GenerationParameters struct {
	MaxLength          int     `json:"max_length"`
	Temperature        float64 `json:"temperature"`
	TopK               int     `json:"top_k"`
	TopP               float64 `json:"top_p"`
	DoSample           bool    `json:"do_sample"`
	NoRepeatNgramSize  int     `json:"no_repeat_ngram_size"`
	NumReturnSequences int     `json:"num_return_sequences"`
}

// StoryRequest 故事生成请求体
type StoryRequest struct {
	Inputs     string               `json:"inputs"`
	Parameters GenerationParameters `json:"parameters"`
}

// InferenceClient 推理服务传输端口
type InferenceClient interface {
	PostBinary(ctx context.Context, url, contentType string, data []byte) ([]inference.Candidate, error)
	PostJSON(ctx context.Context, url string, payload any) ([]inference.Candidate, error)
}

// Captioner 图片描述阶段
type Captioner interface {
	Caption(ctx context.Context, upload ImageUpload) (string, error)
}

// Storyteller 故事生成阶段
type Storyteller interface {
	Tell(ctx context.Context, caption, prompt string) (string, error)
}
