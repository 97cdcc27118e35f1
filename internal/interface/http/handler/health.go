package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/internal/infrastructure/persistence/redis"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/response"
)

const readyTimeout = 2 * time.Second

// HealthHandler 就绪检查
type HealthHandler struct {
	db    *gorm.DB
	redis *goredis.Client
}

// NewHealthHandler 创建就绪检查处理器
func NewHealthHandler(db *gorm.DB, redis *goredis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// Ready 检查MySQL与Redis,供负载均衡探活(不在/api/v1下,不进Swagger)
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	status := map[string]string{"database": "up", "redis": "up"}
	var failed error
	if err := mysql.Ping(ctx, h.db); err != nil {
		status["database"] = "down"
		failed = err
	}
	if err := redis.Ping(ctx, h.redis); err != nil {
		status["redis"] = "down"
		failed = err
	}
	if failed != nil {
		response.Error(c, apperrors.ErrUnavailable.WithCause(failed))
		return
	}
	response.Success(c, status)
}
