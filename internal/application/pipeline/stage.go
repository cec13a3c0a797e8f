package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"caption-story-api/internal/infrastructure/inference"
	apperrors "caption-story-api/pkg/errors"
	"caption-story-api/pkg/logger"
	"caption-story-api/pkg/metrics"
	"caption-story-api/pkg/tracer"
)

// stageMessages 各阶段面向用户的错误文案
type stageMessages struct {
	loading  string
	timeout  string
	upstream string
	bad      string
}

var messages = map[Stage]stageMessages{
	StageCaption: {
		loading:  "Model is currently loading. Please try again in a few seconds.",
		timeout:  "Request timed out.",
		upstream: "Error in image captioning",
		bad:      "Unexpected response from image captioning service",
	},
	StageStory: {
		loading:  "Story generation model is currently loading. Please try again in a few seconds.",
		timeout:  "Story generation timed out.",
		upstream: "Error in story generation",
		bad:      "Unexpected response from story generation service",
	},
}

// translateError 把传输层错误映射为带 HTTP 状态的 AppError
func translateError(stage Stage, err error) *apperrors.AppError {
	msg := messages[stage]

	var statusErr *inference.StatusError
	switch {
	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusServiceUnavailable:
		return apperrors.Wrap(err, apperrors.CodeModelLoading, msg.loading)
	case isTimeout(err):
		return apperrors.Wrap(err, apperrors.CodeTimeout, msg.timeout)
	case errors.Is(err, inference.ErrMalformedResponse):
		return apperrors.Wrap(err, apperrors.CodeBadUpstreamResponse, msg.bad)
	default:
		return apperrors.Wrap(err, apperrors.CodeUpstreamError, fmt.Sprintf("%s: %v", msg.upstream, err))
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// firstCandidate 取第一个候选，空数组视为异常响应
func firstCandidate(candidates []inference.Candidate) (string, error) {
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: empty candidate list", inference.ErrMalformedResponse)
	}
	return candidates[0].GeneratedText, nil
}

// runStage 在带超时的子 context 中执行一次远程调用，记录指标和追踪
// 失败日志由 HTTP 层统一输出
func runStage(ctx context.Context, stage Stage, timeout time.Duration, call func(context.Context) (string, error)) (string, error) {
	ctx = logger.WithContext(ctx, logger.StageKey, string(stage))
	ctx, span := tracer.Start(ctx, "pipeline."+string(stage))
	defer span.End()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := call(ctx)
	elapsed := time.Since(start)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		// 读取响应体时超时，底层错误可能不携带 DeadlineExceeded
		err = errors.Join(err, ctx.Err())
	}
	metrics.InferenceCallDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())

	if err != nil {
		appErr := translateError(stage, err)
		metrics.InferenceCallTotal.WithLabelValues(string(stage), string(appErr.Code)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, appErr.Message)
		span.SetAttributes(
			attribute.String("error.code", string(appErr.Code)),
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
		)
		return "", appErr
	}

	metrics.InferenceCallTotal.WithLabelValues(string(stage), "ok").Inc()
	logger.Debug(ctx, "inference stage finished", "duration_ms", elapsed.Milliseconds())
	return out, nil
}
