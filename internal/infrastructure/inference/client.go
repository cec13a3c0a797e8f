// Package inference 提供托管推理服务 (Hugging Face Inference API 风格) 的 HTTP 客户端
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"caption-story-api/internal/config"
	"caption-story-api/pkg/logger"
)

var tracer = otel.Tracer("inference")

const (
	// maxResponseBytes 响应体读取上限
	maxResponseBytes = 4 << 20
	// maxErrorBodyBytes 错误响应体读取上限
	maxErrorBodyBytes = 4 << 10
)

// ErrMalformedResponse 响应体不是预期的候选数组
var ErrMalformedResponse = errors.New("malformed inference response")

// Candidate 推理服务返回的单个候选
type Candidate struct {
	GeneratedText string `json:"generated_text"`
}

type rawCandidate struct {
	GeneratedText *string `json:"generated_text"`
}

// StatusError 推理服务返回非 2xx 状态码
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	status := fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	if e.Message == "" {
		return "upstream returned " + status
	}
	return fmt.Sprintf("upstream returned %s: %s", status, e.Message)
}

// Client 推理服务客户端，可在请求间共享
type Client struct {
	token      string
	httpClient *http.Client
}

// NewClient 创建推理服务客户端
// 超时由调用方通过 context 控制
func NewClient(cfg *config.InferenceConfig) *Client {
	return NewClientWithHTTP(cfg.APIToken, &http.Client{})
}

// NewClientWithHTTP 使用自定义 http.Client 创建客户端
func NewClientWithHTTP(token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		token:      strings.TrimSpace(token),
		httpClient: httpClient,
	}
}

// PostBinary 以原始字节作为请求体调用端点
func (c *Client) PostBinary(ctx context.Context, url, contentType string, data []byte) ([]Candidate, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return c.post(ctx, url, contentType, data)
}

// PostJSON 以 JSON 请求体调用端点
func (c *Client) PostJSON(ctx context.Context, url string, payload any) ([]Candidate, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal inference request: %w", err)
	}
	return c.post(ctx, url, "application/json", body)
}

func (c *Client) post(ctx context.Context, url, contentType string, body []byte) ([]Candidate, error) {
	ctx, span := tracer.Start(ctx, "inference.Post",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.url", url),
			attribute.Int("http.request_content_length", len(body)),
		))
	defer span.End()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create inference request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer httpResp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", httpResp.StatusCode))
	logger.Debug(ctx, "inference response received", "url", url, "status", httpResp.StatusCode)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		statusErr := &StatusError{
			StatusCode: httpResp.StatusCode,
			Message:    readErrorMessage(httpResp.Body),
		}
		span.SetStatus(codes.Error, statusErr.Error())
		return nil, statusErr
	}

	candidates, err := decodeCandidates(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed response")
		return nil, err
	}
	span.SetAttributes(attribute.Int("inference.candidates", len(candidates)))
	return candidates, nil
}

// decodeCandidates 解析 [{"generated_text": "..."}] 形式的响应
func decodeCandidates(r io.Reader) ([]Candidate, error) {
	var raw []rawCandidate
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	out := make([]Candidate, 0, len(raw))
	for i, rc := range raw {
		if rc.GeneratedText == nil {
			return nil, fmt.Errorf("%w: candidate %d has no generated_text", ErrMalformedResponse, i)
		}
		out = append(out, Candidate{GeneratedText: *rc.GeneratedText})
	}
	return out, nil
}

// readErrorMessage 提取错误响应中的 {"error": "..."}，否则返回截断后的原始文本
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	if err != nil || len(data) == 0 {
		return ""
	}

	var body struct {
		Error any `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != nil {
		switch v := body.Error.(type) {
		case string:
			return v
		case []any:
			parts := make([]string, 0, len(v))
			for _, p := range v {
				parts = append(parts, fmt.Sprint(p))
			}
			return strings.Join(parts, "; ")
		default:
			return fmt.Sprint(v)
		}
	}
	return strings.TrimSpace(string(data))
}
