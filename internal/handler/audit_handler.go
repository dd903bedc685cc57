package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"lab-reservation-server/internal/model"
	"lab-reservation-server/internal/repository"
	"lab-reservation-server/internal/service"
	"lab-reservation-server/pkg/response"
)

// AuditHandler 审计日志处理器（管理员）
type AuditHandler struct {
	auditService *service.AuditService
}

// NewAuditHandler 创建 AuditHandler 实例
func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// List 审计日志列表
// detailed=true 时带操作人姓名
// @Param user_id query int false "操作人 ID"
// @Param action query string false "动作：INSERT/UPDATE/DELETE/LOGIN/LOGOUT"
// @Param target_table query string false "目标表"
// @Param limit query int false "返回条数上限"
// @Router /api/audit/audit_logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	userID, ok := queryID(c, "user_id")
	if !ok {
		return
	}
	filter := repository.AuditFilter{
		UserID:      userID,
		TargetTable: c.Query("target_table"),
	}
	if raw := c.Query("action"); raw != "" {
		action, err := model.ParseAuditAction(raw)
		if err != nil {
			response.BadRequest(c, "无效的审计动作: "+raw)
			return
		}
		filter.Action = &action
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			response.BadRequest(c, "无效的查询参数 limit")
			return
		}
		filter.Limit = limit
	}
	detailed, _ := strconv.ParseBool(c.DefaultQuery("detailed", "false"))

	logs, err := h.auditService.List(c.Request.Context(), caller(c), filter, detailed)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"audit_logs": logs})
}

// Add 手工追加审计记录
// @Router /api/audit/audit_logs [post]
func (h *AuditHandler) Add(c *gin.Context) {
	var req service.AddAuditLogRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.auditService.Add(c.Request.Context(), caller(c), &req); err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, "审计日志添加成功", nil)
}
