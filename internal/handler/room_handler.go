package handler

import (
	"github.com/gin-gonic/gin"

	"lab-reservation-server/internal/service"
	"lab-reservation-server/pkg/response"
)

// RoomHandler 机房请求处理器
type RoomHandler struct {
	roomService *service.RoomService
}

// NewRoomHandler 创建 RoomHandler 实例
func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

// List 机房列表
// @Router /api/rooms [get]
func (h *RoomHandler) List(c *gin.Context) {
	rooms, err := h.roomService.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"rooms": rooms})
}

// Get 机房详情，带机房内的设备
// @Router /api/rooms/{id} [get]
func (h *RoomHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	room, err := h.roomService.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, room)
}

// Create 新增机房（管理员）
// @Router /api/rooms [post]
func (h *RoomHandler) Create(c *gin.Context) {
	var req service.RoomRequest
	if !bindJSON(c, &req) {
		return
	}
	room, err := h.roomService.Create(c.Request.Context(), caller(c), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, "机房添加成功", room)
}

// Update 部分更新机房（管理员）
// @Router /api/rooms/{id} [put]
func (h *RoomHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.RoomRequest
	if !bindJSON(c, &req) {
		return
	}
	room, err := h.roomService.Update(c.Request.Context(), caller(c), id, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithMessage(c, "机房更新成功", room)
}

// Delete 删除机房（管理员）
// @Router /api/rooms/{id} [delete]
func (h *RoomHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.roomService.Delete(c.Request.Context(), caller(c), id); err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithMessage(c, "机房删除成功", nil)
}
