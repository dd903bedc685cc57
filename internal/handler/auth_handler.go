package handler

import (
	"github.com/gin-gonic/gin"

	"lab-reservation-server/internal/middleware"
	"lab-reservation-server/internal/service"
	"lab-reservation-server/pkg/response"
	"lab-reservation-server/pkg/util"
)

// AuthHandler 认证请求处理器
// 处理登录、登出、刷新 Token 以及当前用户的资料和密码
type AuthHandler struct {
	authService *service.AuthService
	userService *service.UserService
}

// NewAuthHandler 创建 AuthHandler 实例
func NewAuthHandler(authService *service.AuthService, userService *service.UserService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
	}
}

// Login 用户登录
// @Summary 用户登录
// @Description 使用学号/工号和密码登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body service.LoginRequest true "登录信息"
// @Success 200 {object} response.Response{data=service.LoginResponse}
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req, c.ClientIP())
	if err != nil {
		handleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "登录成功", result)
}

// Logout 用户登出
// @Summary 用户登出
// @Description 登出当前用户，吊销当前 Token 及同一次登录的 Refresh Token
// @Tags 认证
// @Security Bearer
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	// Token 信息由认证中间件设置
	token := middleware.GetToken(c)
	if token.Raw == "" {
		response.BadRequest(c, "无法获取 Token 信息")
		return
	}

	session := service.SessionToken{
		TokenHash: util.HashToken(token.Raw),
		SessionID: token.SessionID,
		ExpireAt:  token.ExpireAt,
	}
	if err := h.authService.Logout(c.Request.Context(), caller(c), session); err != nil {
		handleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "登出成功", nil)
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshToken 刷新 Token
// @Summary 刷新 Token
// @Description 使用 Refresh Token 获取新的 Access Token
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body RefreshTokenRequest true "Refresh Token"
// @Success 200 {object} response.Response{data=service.RefreshTokenResponse}
// @Router /api/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, result)
}

// GetProfile 获取当前用户资料
// @Summary 获取当前用户资料
// @Tags 认证
// @Security Bearer
// @Produce json
// @Success 200 {object} response.Response{data=model.User}
// @Router /api/auth/profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	user, err := h.userService.GetProfile(c.Request.Context(), caller(c).UserID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, user)
}

// ChangePassword 修改密码
// @Summary 修改密码
// @Description 修改当前登录用户的密码
// @Tags 认证
// @Security Bearer
// @Accept json
// @Produce json
// @Param body body service.ChangePasswordRequest true "密码信息"
// @Success 200 {object} response.Response
// @Router /api/auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req service.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.ChangePassword(c.Request.Context(), caller(c), &req); err != nil {
		handleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "密码修改成功", nil)
}
