package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"democall/backend/config"
	"democall/backend/internal/api/handler"
	"democall/backend/internal/api/middleware"
	"democall/backend/pkg/jwt"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr))
		{
			// 认证模块（需要认证）
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 试听课模块（细粒度鉴权在 Service 层按角色矩阵执行）
			calls := authorized.Group("/calls")
			{
				calls.POST("", h.Call.Create)
				calls.GET("", h.Call.List)
				calls.GET("/:id", h.Call.Get)
				calls.PUT("/:id/reschedule", h.Call.Reschedule)
				calls.POST("/:id/cancel", h.Call.Cancel)
				calls.GET("/:id/joinable", h.Call.Joinable)
				calls.GET("/:id/ics", h.Call.ICS)
			}

			// 通知模块
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.ListMine)
				notifications.PUT("/:id/read", h.Notification.MarkRead)
			}

			// 导出模块（仅管理员）
			export := authorized.Group("/export")
			export.Use(middleware.RoleAuth("admin", "super_admin"))
			{
				export.GET("/calls", h.Export.ExportCalls)
			}
		}
	}

	return r
}
