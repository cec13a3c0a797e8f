package dto

import (
	"caption-story-api/internal/application/pipeline"
)

// CaptionImageQuery 上传接口查询参数
type CaptionImageQuery struct {
	Prompt string `form:"prompt"`
}

// CaptionImageResponse 图片描述与故事
type CaptionImageResponse struct {
	Caption string `json:"caption"`
	Story   string `json:"story"`
}

// ToCaptionImageResponse 转换流水线输出
func ToCaptionImageResponse(r *pipeline.Response) *CaptionImageResponse {
	if r == nil {
		return nil
	}
	return &CaptionImageResponse{
		Caption: r.Caption,
		Story:   r.Story,
	}
}

// StatusResponse 健康检查响应
type StatusResponse struct {
	Status string `json:"status"`
}

// ReadinessCheck 单项就绪检查
type ReadinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

// ReadinessResponse 就绪检查响应
type ReadinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*ReadinessCheck `json:"checks,omitempty"`
}
