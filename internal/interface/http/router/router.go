// Package router 组装HTTP路由
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/pkg/response"
)

// New 创建并配置Gin引擎
//
// 中间件顺序:Recovery → Tracing → Logger → Metrics → CORS,
// Logger在Tracing之后才能拿到trace_id。
func New(
	cfg *config.Config,
	logger *zap.Logger,
	userHandler *handler.UserHandler,
	titleHandler *handler.TitleHandler,
	borrowHandler *handler.BorrowHandler,
	paymentHandler *handler.PaymentHandler,
	healthHandler *handler.HealthHandler,
	auth *middleware.AuthMiddleware,
) *gin.Engine {
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Tracing(), middleware.Logger(logger), middleware.Metrics(), middleware.CORS(cfg.CORS))

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong", "status": "healthy"})
	})
	r.GET("/health", healthHandler.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	// 生产环境建议禁用Swagger或添加访问控制
	if cfg.Server.Mode != "release" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	requireAdmin := middleware.RequireRole(user.RoleAdmin)

	v1 := r.Group("/api/v1")
	{
		users := v1.Group("/users")
		{
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)
			users.POST("/logout", auth.RequireAuth(), userHandler.Logout)
		}

		titles := v1.Group("/titles")
		{
			titles.GET("", titleHandler.ListTitles)
			titles.GET("/:id", titleHandler.GetTitle)
			titles.GET("/:id/copies/available", titleHandler.ListAvailableCopies)

			titles.POST("", auth.RequireAuth(), requireAdmin, titleHandler.PublishTitle)
			titles.DELETE("/:id", auth.RequireAuth(), requireAdmin, titleHandler.ArchiveTitle)
			titles.PATCH("/:id/restore", auth.RequireAuth(), requireAdmin, titleHandler.RestoreTitle)
			titles.POST("/:id/copies", auth.RequireAuth(), requireAdmin, titleHandler.AddCopies)
			titles.POST("/:id/recompute", auth.RequireAuth(), requireAdmin, titleHandler.RecomputeCounters)
		}

		borrows := v1.Group("/borrows")
		borrows.Use(auth.RequireAuth())
		{
			borrows.GET("/me", borrowHandler.ListMyBorrows)
			borrows.POST("/:id/renew", borrowHandler.RenewBorrow)
			borrows.POST("/:id/return/prepare", borrowHandler.PrepareReturn)
			borrows.POST("", requireAdmin, borrowHandler.CreateBorrow)
		}

		admin := v1.Group("/admin")
		admin.Use(auth.RequireAuth(), requireAdmin)
		{
			admin.GET("/borrows", borrowHandler.ListBorrows)
			admin.GET("/borrows/unreconciled", paymentHandler.ListUnreconciled)
			admin.POST("/borrows/:id/return/prepare", paymentHandler.PrepareReturn)
			admin.POST("/borrows/:id/return/confirm-cash", paymentHandler.ConfirmCash)
			admin.POST("/borrows/:id/repair", paymentHandler.Repair)
		}

		// 网关回调没有登录态,靠签名校验
		v1.GET("/payments/vnpay/return", paymentHandler.VNPayReturn)
	}

	return r
}
