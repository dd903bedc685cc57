package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lab-reservation-server/internal/middleware"
	"lab-reservation-server/internal/model"
)

// Handlers 汇总所有 HTTP 处理器
type Handlers struct {
	Auth        *AuthHandler
	User        *UserHandler
	Device      *DeviceHandler
	Room        *RoomHandler
	Reservation *ReservationHandler
	Maintenance *MaintenanceHandler
	Stats       *StatsHandler
	Audit       *AuditHandler
}

// RegisterRoutes 注册所有 HTTP 路由
// 参数:
//   - router: gin 引擎或路由组
//   - h: 处理器集合
//   - auth: 认证中间件，挂在除登录和刷新以外的所有接口上
//
// 细粒度的权限规则由 service 层按调用者角色判断
// 不接收调用者的统计接口在这里按角色拦截
func RegisterRoutes(router gin.IRouter, h *Handlers, auth gin.HandlerFunc) {
	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	// 认证相关
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.RefreshToken)
	}
	authed := authGroup.Group("", auth)
	{
		authed.POST("/logout", h.Auth.Logout)
		authed.GET("/profile", h.Auth.GetProfile)
		authed.PUT("/password", h.Auth.ChangePassword)

		authed.GET("/users", h.User.List)
		authed.GET("/users/:id", h.User.Get)
		authed.POST("/users", h.User.Create)
		authed.PUT("/users/:id", h.User.Update)
		authed.DELETE("/users/:id", h.User.Delete)
	}

	devices := api.Group("/devices", auth)
	{
		devices.GET("", h.Device.List)
		devices.GET("/details", h.Device.Details)
		devices.GET("/:id", h.Device.Get)
		devices.POST("", h.Device.Create)
		devices.PUT("/:id", h.Device.Update)
		devices.PUT("/:id/status", h.Device.UpdateStatus)
		devices.DELETE("/:id", h.Device.Delete)
	}

	rooms := api.Group("/rooms", auth)
	{
		rooms.GET("", h.Room.List)
		rooms.GET("/:id", h.Room.Get)
		rooms.POST("", h.Room.Create)
		rooms.PUT("/:id", h.Room.Update)
		rooms.DELETE("/:id", h.Room.Delete)
	}

	reservations := api.Group("/reservations", auth)
	{
		reservations.GET("", h.Reservation.List)
		reservations.GET("/pending", h.Reservation.Pending)
		reservations.GET("/:id", h.Reservation.Get)
		reservations.POST("", h.Reservation.Create)
		reservations.PUT("/:id/status", h.Reservation.UpdateStatus)
		reservations.DELETE("/:id", h.Reservation.Delete)
	}

	maintenances := api.Group("/maintenances", auth)
	{
		maintenances.GET("", h.Maintenance.List)
		maintenances.GET("/details", h.Maintenance.Details)
		maintenances.GET("/pending", h.Maintenance.Pending)
		maintenances.GET("/overdue", h.Maintenance.Overdue)
		maintenances.GET("/:id", h.Maintenance.Get)
		maintenances.POST("", h.Maintenance.Create)
		maintenances.PUT("/:id/status", h.Maintenance.UpdateStatus)
		maintenances.DELETE("/:id", h.Maintenance.Delete)
	}

	stats := api.Group("/stats", auth)
	{
		stats.GET("/device_usage", h.Stats.DeviceUsage)
		stats.GET("/room_usage", h.Stats.RoomUsage)
		stats.GET("/device_status", h.Stats.DeviceStatus)
		stats.GET("/reservation_status", h.Stats.ReservationStatus)
		stats.GET("/dashboard", h.Stats.Dashboard)

		stats.GET("/user_role", adminOnly, h.Stats.UserRole)
		stats.GET("/maintenance", adminOnly, h.Stats.Maintenance)
		stats.GET("/monthly_usage", adminOnly, h.Stats.MonthlyUsage)
	}

	audit := api.Group("/audit", auth)
	{
		audit.GET("/audit_logs", h.Audit.List)
		audit.POST("/audit_logs", h.Audit.Add)
	}
}
