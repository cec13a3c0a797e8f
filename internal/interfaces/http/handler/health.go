package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"caption-story-api/internal/interfaces/http/dto"
)

// HealthChecker 可被就绪检查探测的依赖
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	checks map[string]HealthChecker
}

// NewHealthHandler 创建健康检查处理器，nil 依赖会被忽略
func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	active := make(map[string]HealthChecker, len(checks))
	for name, chk := range checks {
		if chk != nil {
			active[name] = chk
		}
	}
	return &HealthHandler{checks: active}
}

// Health 健康检查接口，不依赖任何外部服务
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} dto.StatusResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.StatusResponse{Status: "healthy"})
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} dto.StatusResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, dto.StatusResponse{Status: "healthy"})
}

// Ready 就绪检查接口，只探测本地依赖，不调用推理服务
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} dto.ReadinessResponse
// @Failure 503 {object} dto.ReadinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := dto.ReadinessResponse{
		Status: "ok",
		Checks: make(map[string]*dto.ReadinessCheck, len(h.checks)),
	}
	for name, chk := range h.checks {
		start := time.Now()
		err := chk.HealthCheck(ctx)
		check := &dto.ReadinessCheck{
			Status:    "ok",
			LatencyMs: time.Since(start).Milliseconds(),
		}
		if err != nil {
			check.Status = "error"
			check.Error = err.Error()
			resp.Status = "not_ready"
		}
		resp.Checks[name] = check
	}

	if resp.Status != "ok" {
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
