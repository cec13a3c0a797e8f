// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"caption-story-api/internal/application/pipeline"
	"caption-story-api/internal/interfaces/http/dto"
	apperrors "caption-story-api/pkg/errors"
	"caption-story-api/pkg/logger"
)

// multipartOverhead 请求体上限在文件上限之外预留的空间（边界、表单头等）
const multipartOverhead = 64 << 10

// Processor 图片到故事的流水线
type Processor interface {
	Process(ctx context.Context, upload pipeline.ImageUpload, prompt string) (*pipeline.Response, error)
}

// CaptionHandler 图片描述与故事生成处理器
type CaptionHandler struct {
	processor Processor
	maxBytes  int64
	formField string
}

// NewCaptionHandler 创建图片描述处理器
func NewCaptionHandler(processor Processor, maxBytes int64, formField string) *CaptionHandler {
	if formField == "" {
		formField = "file"
	}
	return &CaptionHandler{
		processor: processor,
		maxBytes:  maxBytes,
		formField: formField,
	}
}

// CaptionImage 上传图片，返回描述与故事
// @Summary 图片描述与故事生成
// @Description 上传图片，先生成图片描述，再结合可选提示生成短篇故事
// @Tags Caption
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "图片文件"
// @Param prompt query string false "可选的故事提示"
// @Success 200 {object} dto.CaptionImageResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 413 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Failure 504 {object} dto.ErrorResponse
// @Router /caption-image [post]
func (h *CaptionHandler) CaptionImage(c *gin.Context) {
	ctx := c.Request.Context()

	var query dto.CaptionImageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		dto.BadRequest(c, "Invalid query parameters")
		return
	}

	upload, err := h.readUpload(c)
	if err != nil {
		logFailure(ctx, "rejected upload", err)
		dto.AppError(c, err)
		return
	}

	resp, err := h.processor.Process(ctx, upload, query.Prompt)
	if err != nil {
		logFailure(ctx, "caption pipeline failed", err)
		dto.AppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCaptionImageResponse(resp))
}

// readUpload 读取 multipart 中的图片字段
func (h *CaptionHandler) readUpload(c *gin.Context) (pipeline.ImageUpload, error) {
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)
	}

	fh, err := c.FormFile(h.formField)
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return pipeline.ImageUpload{}, tooLarge()
		case errors.Is(err, http.ErrMissingFile):
			return pipeline.ImageUpload{}, apperrors.New(apperrors.CodeInvalidInput, "Missing file field: "+h.formField)
		default:
			return pipeline.ImageUpload{}, apperrors.Wrap(err, apperrors.CodeInvalidInput, "Invalid multipart form")
		}
	}
	if h.maxBytes > 0 && fh.Size > h.maxBytes {
		return pipeline.ImageUpload{}, tooLarge()
	}

	data, err := readFileHeader(fh)
	if err != nil {
		return pipeline.ImageUpload{}, apperrors.Wrap(err, apperrors.CodeInvalidInput, "Failed to read uploaded file")
	}

	return pipeline.ImageUpload{
		Data:      data,
		MediaType: fh.Header.Get("Content-Type"),
		Filename:  fh.Filename,
	}, nil
}

// logFailure 每个失败请求只记录一次，4xx 记为 WARN，其余记为 ERROR
func logFailure(ctx context.Context, msg string, err error) {
	appErr := apperrors.AsAppError(err)
	attrs := []any{"code", appErr.Code, "status", appErr.HTTPStatus}
	if appErr.HTTPStatus >= http.StatusBadRequest && appErr.HTTPStatus < http.StatusInternalServerError {
		logger.Warn(ctx, msg, append(attrs, "error", err.Error())...)
		return
	}
	logger.Error(ctx, msg, err, attrs...)
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func tooLarge() *apperrors.AppError {
	return apperrors.New(apperrors.CodePayloadTooLarge, "Uploaded file is too large")
}
