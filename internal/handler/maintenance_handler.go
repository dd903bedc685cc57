package handler

import (
	"github.com/gin-gonic/gin"

	"lab-reservation-server/internal/model"
	"lab-reservation-server/internal/repository"
	"lab-reservation-server/internal/service"
	"lab-reservation-server/pkg/response"
)

// MaintenanceHandler 设备维护请求处理器
type MaintenanceHandler struct {
	maintenanceService *service.MaintenanceService
}

// NewMaintenanceHandler 创建 MaintenanceHandler 实例
func NewMaintenanceHandler(maintenanceService *service.MaintenanceService) *MaintenanceHandler {
	return &MaintenanceHandler{maintenanceService: maintenanceService}
}

func maintenanceFilter(c *gin.Context) (repository.MaintenanceFilter, bool) {
	var filter repository.MaintenanceFilter
	deviceID, ok := queryID(c, "did")
	if !ok {
		return filter, false
	}
	filter.DeviceID = deviceID
	if raw := c.Query("status"); raw != "" {
		status, err := model.ParseMaintenanceStatus(raw)
		if err != nil {
			response.BadRequest(c, "无效的维护状态: "+raw)
			return filter, false
		}
		filter.Status = &status
	}
	return filter, true
}

// List 维护记录列表
// @Param did query int false "设备 ID"
// @Param status query string false "维护状态"
// @Router /api/maintenances [get]
func (h *MaintenanceHandler) List(c *gin.Context) {
	filter, ok := maintenanceFilter(c)
	if !ok {
		return
	}
	records, err := h.maintenanceService.List(c.Request.Context(), filter)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"maintenances": records})
}

// Details 带设备名称和类型的维护记录
// @Router /api/maintenances/details [get]
func (h *MaintenanceHandler) Details(c *gin.Context) {
	filter, ok := maintenanceFilter(c)
	if !ok {
		return
	}
	records, err := h.maintenanceService.ListDetailed(c.Request.Context(), filter)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"maintenance_details": records})
}

// Pending 待处理的维护记录
// @Router /api/maintenances/pending [get]
func (h *MaintenanceHandler) Pending(c *gin.Context) {
	records, err := h.maintenanceService.ListPending(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"pending_maintenances": records})
}

// Overdue 超期未处理的维护记录（管理员）
// @Router /api/maintenances/overdue [get]
func (h *MaintenanceHandler) Overdue(c *gin.Context) {
	records, err := h.maintenanceService.ListOverdue(c.Request.Context(), caller(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"overdue_maintenances": records})
}

// Get 维护记录详情
// @Router /api/maintenances/{id} [get]
func (h *MaintenanceHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	record, err := h.maintenanceService.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, record)
}

// Create 上报设备故障
// @Summary 上报设备故障
// @Description 设备改为维修中，设备上未完成的预约全部取消
// @Tags 维护
// @Security Bearer
// @Accept json
// @Param body body service.CreateMaintenanceRequest true "故障信息"
// @Success 201 {object} response.Response{data=service.MaintenanceReport}
// @Router /api/maintenances [post]
func (h *MaintenanceHandler) Create(c *gin.Context) {
	var req service.CreateMaintenanceRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.maintenanceService.Create(c.Request.Context(), caller(c), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, "故障上报成功", result)
}

// UpdateStatus 更新维护状态（管理员）
// @Router /api/maintenances/{id}/status [put]
func (h *MaintenanceHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateMaintenanceRequest
	if !bindJSON(c, &req) {
		return
	}
	record, err := h.maintenanceService.UpdateStatus(c.Request.Context(), caller(c), id, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithMessage(c, "维护状态更新成功", record)
}

// Delete 删除维护记录（管理员）
// @Router /api/maintenances/{id} [delete]
func (h *MaintenanceHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.maintenanceService.Delete(c.Request.Context(), caller(c), id); err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithMessage(c, "维护记录删除成功", nil)
}
