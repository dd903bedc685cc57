package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"lab-reservation-server/internal/model"
	"lab-reservation-server/internal/repository"
	"lab-reservation-server/internal/service"
	"lab-reservation-server/pkg/response"
)

// DeviceHandler 设备请求处理器
type DeviceHandler struct {
	deviceService *service.DeviceService
}

// NewDeviceHandler 创建 DeviceHandler 实例
func NewDeviceHandler(deviceService *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{deviceService: deviceService}
}

// deviceFilter 解析 room_id、status、type 查询参数
func deviceFilter(c *gin.Context) (repository.DeviceFilter, bool) {
	var filter repository.DeviceFilter
	roomID, ok := queryID(c, "room_id")
	if !ok {
		return filter, false
	}
	filter.RoomID = roomID
	if raw := c.Query("status"); raw != "" {
		status, err := model.ParseDeviceStatus(raw)
		if err != nil {
			response.BadRequest(c, "无效的设备状态: "+raw)
			return filter, false
		}
		filter.Status = &status
	}
	filter.Type = strings.TrimSpace(c.Query("type"))
	return filter, true
}

// List 设备列表
// @Summary 设备列表
// @Tags 设备
// @Security Bearer
// @Param room_id query int false "机房 ID"
// @Param status query string false "设备状态"
// @Router /api/devices [get]
func (h *DeviceHandler) List(c *gin.Context) {
	filter, ok := deviceFilter(c)
	if !ok {
		return
	}
	devices, err := h.deviceService.List(c.Request.Context(), filter)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"devices": devices})
}

// Details 带机房位置的设备列表
// @Router /api/devices/details [get]
func (h *DeviceHandler) Details(c *gin.Context) {
	filter, ok := deviceFilter(c)
	if !ok {
		return
	}
	devices, err := h.deviceService.ListDetailed(c.Request.Context(), filter)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"device_details": devices})
}

// Get 设备详情
// @Router /api/devices/{id} [get]
func (h *DeviceHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	device, err := h.deviceService.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, device)
}

// Create 新增设备（管理员）
// @Router /api/devices [post]
func (h *DeviceHandler) Create(c *gin.Context) {
	var req service.CreateDeviceRequest
	if !bindJSON(c, &req) {
		return
	}
	device, err := h.deviceService.Create(c.Request.Context(), caller(c), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, "设备添加成功", device)
}

// Update 部分更新设备（管理员）
// @Router /api/devices/{id} [put]
func (h *DeviceHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateDeviceRequest
	if !bindJSON(c, &req) {
		return
	}
	device, err := h.deviceService.Update(c.Request.Context(), caller(c), id, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithMessage(c, "设备更新成功", device)
}

// UpdateStatus 修改设备状态（管理员）
// @Router /api/devices/{id}/status [put]
func (h *DeviceHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req StatusRequest
	if !bindJSON(c, &req) {
		return
	}
	device, err := h.deviceService.UpdateStatus(c.Request.Context(), caller(c), id, req.Status)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithMessage(c, "设备状态更新成功", device)
}

// Delete 删除设备（管理员）
// @Router /api/devices/{id} [delete]
func (h *DeviceHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.deviceService.Delete(c.Request.Context(), caller(c), id); err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithMessage(c, "设备删除成功", nil)
}
