package handler

import (
	"github.com/gin-gonic/gin"

	"lab-reservation-server/internal/model"
	"lab-reservation-server/internal/service"
	"lab-reservation-server/pkg/response"
)

// ReservationHandler 预约请求处理器
type ReservationHandler struct {
	reservationService *service.ReservationService
}

// NewReservationHandler 创建 ReservationHandler 实例
func NewReservationHandler(reservationService *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservationService: reservationService}
}

// List 预约列表
// 非管理员只返回自己的预约
// @Summary 预约列表
// @Tags 预约
// @Security Bearer
// @Param did query int false "设备 ID"
// @Param status query string false "预约状态"
// @Router /api/reservations [get]
func (h *ReservationHandler) List(c *gin.Context) {
	deviceID, ok := queryID(c, "did")
	if !ok {
		return
	}
	filter := service.ReservationListFilter{DeviceID: deviceID}
	if raw := c.Query("status"); raw != "" {
		status, err := model.ParseReservationStatus(raw)
		if err != nil {
			response.BadRequest(c, "无效的预约状态: "+raw)
			return
		}
		filter.Status = &status
	}

	reservations, err := h.reservationService.List(c.Request.Context(), caller(c), filter)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"reservations": reservations})
}

// Pending 待审核预约（教师、管理员）
// @Router /api/reservations/pending [get]
func (h *ReservationHandler) Pending(c *gin.Context) {
	reservations, err := h.reservationService.ListPending(c.Request.Context(), caller(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"pending_reservations": reservations})
}

// Get 预约详情
// @Router /api/reservations/{id} [get]
func (h *ReservationHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	reservation, err := h.reservationService.Get(c.Request.Context(), caller(c), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, reservation)
}

// Create 创建预约
// @Summary 创建预约
// @Description 设备必须空闲，且时间段与已确认的预约不重叠
// @Tags 预约
// @Security Bearer
// @Accept json
// @Param body body service.CreateReservationRequest true "预约信息"
// @Success 201 {object} response.Response{data=service.ReservationView}
// @Router /api/reservations [post]
func (h *ReservationHandler) Create(c *gin.Context) {
	var req service.CreateReservationRequest
	if !bindJSON(c, &req) {
		return
	}
	reservation, err := h.reservationService.Create(c.Request.Context(), caller(c), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, "预约创建成功，等待审核", reservation)
}

// UpdateStatus 修改预约状态
// @Router /api/reservations/{id}/status [put]
func (h *ReservationHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req StatusRequest
	if !bindJSON(c, &req) {
		return
	}
	reservation, err := h.reservationService.UpdateStatus(c.Request.Context(), caller(c), id, req.Status)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithMessage(c, "预约状态更新成功", reservation)
}

// Delete 删除预约（管理员）
// @Router /api/reservations/{id} [delete]
func (h *ReservationHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.reservationService.Delete(c.Request.Context(), caller(c), id); err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithMessage(c, "预约删除成功", nil)
}
