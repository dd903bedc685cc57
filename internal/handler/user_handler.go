package handler

import (
	"github.com/gin-gonic/gin"

	"lab-reservation-server/internal/model"
	"lab-reservation-server/internal/service"
	"lab-reservation-server/pkg/response"
)

// UserHandler 用户管理处理器，路由层已限定管理员
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler 创建 UserHandler 实例
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// List 用户列表
// @Summary 用户列表
// @Tags 用户
// @Security Bearer
// @Param role query string false "角色：学生/教师/管理员"
// @Router /api/auth/users [get]
func (h *UserHandler) List(c *gin.Context) {
	var role model.Role
	if raw := c.Query("role"); raw != "" {
		r, err := model.ParseRole(raw)
		if err != nil {
			response.BadRequest(c, "无效的角色: "+raw)
			return
		}
		role = r
	}

	users, err := h.userService.List(c.Request.Context(), caller(c), role)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"users": users})
}

// Get 获取用户
// @Router /api/auth/users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.userService.Get(c.Request.Context(), caller(c), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, user)
}

// Create 新增用户
// @Summary 新增用户
// @Tags 用户
// @Security Bearer
// @Accept json
// @Param body body service.CreateUserRequest true "用户信息"
// @Router /api/auth/users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req service.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.userService.Create(c.Request.Context(), caller(c), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, "用户创建成功", user)
}

// Update 部分更新用户
// @Router /api/auth/users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.userService.Update(c.Request.Context(), caller(c), id, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithMessage(c, "用户更新成功", user)
}

// Delete 删除用户
// @Router /api/auth/users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.userService.Delete(c.Request.Context(), caller(c), id); err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithMessage(c, "用户删除成功", nil)
}
