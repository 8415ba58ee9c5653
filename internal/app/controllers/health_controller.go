package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/ArunGarimella04/Guardian-AI/internal/error/response"
	"github.com/ArunGarimella04/Guardian-AI/internal/infrastructure/database"
)

// HealthCheckController 健康检查控制器
type HealthCheckController struct {
	Pool *database.ConnectionPool
}

// NewHealthCheckController 创建健康检查控制器实例
func NewHealthCheckController(pool *database.ConnectionPool) *HealthCheckController {
	return &HealthCheckController{Pool: pool}
}

// Ping 健康检查端点
func (h *HealthCheckController) Ping(c *gin.Context) {
	result := gin.H{
		"status":  "healthy",
		"message": "pong",
	}

	if h.Pool != nil {
		if stats, err := h.Pool.Stats(); err == nil {
			result["db_pool"] = stats
		}
	}

	response.Success(c, result)
}
