package service

import (
	"context"
	"strings"
	"time"

	"lab-reservation-server/internal/model"
	"lab-reservation-server/internal/repository"
)

// AuditService 审计日志服务，仅管理员可用
type AuditService struct {
	store *repository.Store
	loc   *time.Location
	now   func() time.Time
}

// NewAuditService 创建 AuditService 实例
func NewAuditService(store *repository.Store, loc *time.Location) *AuditService {
	return &AuditService{store: store, loc: loc, now: time.Now}
}

// AddAuditLogRequest 手工追加审计记录请求
type AddAuditLogRequest struct {
	Action      model.AuditAction `json:"action" binding:"required"`
	TargetTable string            `json:"target_table" binding:"required"`
	Description string            `json:"sql_text"`
}

// List 按条件列出审计记录
// withUser 为 true 时带操作人姓名
func (s *AuditService) List(ctx context.Context, caller Caller, filter repository.AuditFilter, withUser bool) ([]*AuditLogView, error) {
	if !caller.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	rows, err := s.store.Audit.List(ctx, filter, withUser)
	if err != nil {
		return nil, persistence(err)
	}
	return auditLogViews(rows, s.loc), nil
}

// Add 手工追加一条审计记录，操作人为当前管理员
func (s *AuditService) Add(ctx context.Context, caller Caller, req *AddAuditLogRequest) error {
	if !caller.IsAdmin() {
		return ErrPermissionDenied
	}
	if !req.Action.Valid() {
		return validation("无效的审计动作")
	}
	table := strings.TrimSpace(req.TargetTable)
	if table == "" {
		return validation("目标表不能为空")
	}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		return appendAudit(ctx, tx, caller, req.Action, table, s.now(), "%s", req.Description)
	})
	return persistence(err)
}
