// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "caption-story-api/pkg/errors"
)

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Error 返回错误响应
func Error(c *gin.Context, httpCode int, detail string) {
	c.JSON(httpCode, ErrorResponse{Detail: detail})
}

// AbortWithError 终止请求并返回错误响应
func AbortWithError(c *gin.Context, httpCode int, detail string) {
	c.AbortWithStatusJSON(httpCode, ErrorResponse{Detail: detail})
}

// AppError 按 AppError 的 HTTP 状态返回错误，非 AppError 返回 500
func AppError(c *gin.Context, err error) {
	appErr := apperrors.AsAppError(err)
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	detail := appErr.Message
	if appErr.Code == apperrors.CodeInternalError {
		detail = "Internal server error"
	}
	_ = c.Error(err)
	Error(c, status, detail)
}

// BadRequest 返回 400 错误
func BadRequest(c *gin.Context, detail string) {
	Error(c, http.StatusBadRequest, detail)
}
