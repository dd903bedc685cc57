// Package handler 提供 HTTP 请求处理器
// 处理器只做参数解析和响应转换，业务规则都在 service 层
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lab-reservation-server/internal/middleware"
	"lab-reservation-server/internal/service"
	"lab-reservation-server/pkg/response"
)

// StatusRequest 修改状态请求
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// handleError 把业务错误转换为统一响应
// 存储错误记入 gin 上下文，由日志中间件输出底层原因
func handleError(c *gin.Context, err error) {
	msg := service.MessageOf(err)
	switch service.KindOf(err) {
	case service.KindValidation:
		if errors.Is(err, service.ErrOldPasswordWrong) {
			response.ErrorWithCode(c, http.StatusBadRequest, response.CodePasswordWrong, msg)
			return
		}
		response.BadRequest(c, msg)
	case service.KindNotFound:
		switch {
		case errors.Is(err, service.ErrDeviceNotFound):
			response.ErrorWithCode(c, http.StatusNotFound, response.CodeDeviceNotFound, msg)
		case errors.Is(err, service.ErrUserNotFound):
			response.ErrorWithCode(c, http.StatusNotFound, response.CodeUserNotFound, msg)
		default:
			response.NotFound(c, msg)
		}
	case service.KindConflict:
		switch {
		case errors.Is(err, service.ErrReservationClash):
			response.Conflict(c, response.CodeReservationClash, msg)
		case errors.Is(err, service.ErrCodeExists):
			response.Conflict(c, response.CodeCodeExists, msg)
		default:
			response.Conflict(c, response.CodeConflict, msg)
		}
	case service.KindPermission:
		response.Forbidden(c, msg)
	case service.KindDeviceUnavailable:
		response.Conflict(c, response.CodeDeviceUnavailable, msg)
	case service.KindUnauthorized:
		if errors.Is(err, service.ErrPasswordWrong) {
			response.ErrorWithCode(c, http.StatusUnauthorized, response.CodePasswordWrong, msg)
			return
		}
		response.Unauthorized(c, msg)
	default:
		_ = c.Error(err)
		response.InternalError(c, msg)
	}
}

// pathID 解析路径参数中的 ID
// 解析失败时已写入 400 响应，调用方直接返回
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "无效的 "+name)
		return 0, false
	}
	return id, true
}

// queryID 解析可选的整数查询参数，缺省返回 nil
func queryID(c *gin.Context, name string) (*int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的查询参数 "+name)
		return nil, false
	}
	return &id, true
}

// bindJSON 解析请求体，失败时写入 400 响应
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return false
	}
	return true
}

func caller(c *gin.Context) service.Caller {
	return middleware.GetCaller(c)
}
