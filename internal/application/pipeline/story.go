package pipeline

import (
	"context"
	"time"
)

// StoryStage 根据图片描述和用户提示生成故事
type StoryStage struct {
	client     InferenceClient
	url        string
	timeout    time.Duration
	template   PromptTemplate
	parameters GenerationParameters
}

// StoryStageConfig 故事阶段配置
type StoryStageConfig struct {
	URL        string
	Timeout    time.Duration
	Template   PromptTemplate
	Parameters GenerationParameters
}

// NewStoryStage 创建故事生成阶段
func NewStoryStage(client InferenceClient, cfg StoryStageConfig) *StoryStage {
	params := cfg.Parameters
	if params.NumReturnSequences < 1 {
		params.NumReturnSequences = 1
	}
	return &StoryStage{
		client:     client,
		url:        cfg.URL,
		timeout:    cfg.Timeout,
		template:   cfg.Template,
		parameters: params,
	}
}

// BuildRequest 组合发送给生成服务的请求体
func (s *StoryStage) BuildRequest(caption, prompt string) StoryRequest {
	return StoryRequest{
		Inputs:     s.template.Compose(caption, prompt),
		Parameters: s.parameters,
	}
}

// Tell 生成故事，去掉回显的提示词
func (s *StoryStage) Tell(ctx context.Context, caption, prompt string) (string, error) {
	req := s.BuildRequest(caption, prompt)
	return runStage(ctx, StageStory, s.timeout, func(ctx context.Context) (string, error) {
		candidates, err := s.client.PostJSON(ctx, s.url, req)
		if err != nil {
			return "", err
		}
		text, err := firstCandidate(candidates)
		if err != nil {
			return "", err
		}
		return StripPrompt(text, req.Inputs), nil
	})
}
