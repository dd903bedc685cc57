package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"lab-reservation-server/internal/service"
	"lab-reservation-server/pkg/response"
)

// StatsHandler 统计请求处理器
// 用户角色、维护、月度趋势三项在路由层限定管理员
type StatsHandler struct {
	statsService *service.StatsService
}

// NewStatsHandler 创建 StatsHandler 实例
func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// serve 执行统计查询并把结果放在 key 下返回
func serve[T any](c *gin.Context, key string, query func(ctx context.Context) (T, error)) {
	result, err := query(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{key: result})
}

// DeviceUsage 设备使用统计
// @Router /api/stats/device_usage [get]
func (h *StatsHandler) DeviceUsage(c *gin.Context) {
	serve(c, "device_usage_stats", h.statsService.DeviceUsage)
}

// RoomUsage 机房使用统计
// @Router /api/stats/room_usage [get]
func (h *StatsHandler) RoomUsage(c *gin.Context) {
	serve(c, "room_usage_stats", h.statsService.RoomUsage)
}

// UserRole 按角色统计（管理员）
// @Router /api/stats/user_role [get]
func (h *StatsHandler) UserRole(c *gin.Context) {
	serve(c, "user_role_stats", h.statsService.UserRoleStats)
}

// Maintenance 维护统计（管理员）
// @Router /api/stats/maintenance [get]
func (h *StatsHandler) Maintenance(c *gin.Context) {
	serve(c, "maintenance_stats", h.statsService.MaintenanceStats)
}

// MonthlyUsage 月度使用趋势（管理员）
// @Router /api/stats/monthly_usage [get]
func (h *StatsHandler) MonthlyUsage(c *gin.Context) {
	serve(c, "monthly_usage_trend", h.statsService.MonthlyUsage)
}

// DeviceStatus 设备状态占比
// @Router /api/stats/device_status [get]
func (h *StatsHandler) DeviceStatus(c *gin.Context) {
	serve(c, "device_status_summary", h.statsService.DeviceStatus)
}

// ReservationStatus 预约状态占比
// @Router /api/stats/reservation_status [get]
func (h *StatsHandler) ReservationStatus(c *gin.Context) {
	serve(c, "reservation_status_summary", h.statsService.ReservationStatus)
}

// Dashboard 仪表盘，管理员额外返回高级统计
// @Router /api/stats/dashboard [get]
func (h *StatsHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.statsService.Dashboard(c.Request.Context(), caller(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"dashboard": dashboard})
}
