package service

import (
	"context"
	"fmt"
	"time"

	"lab-reservation-server/internal/model"
	"lab-reservation-server/internal/repository"
)

// Caller 调用者身份
// 由认证中间件从 Token 中取出，显式传入每个业务操作
type Caller struct {
	UserID int64
	Name   string
	Role   model.Role
	IP     string
}

// IsAdmin 是否为管理员
func (c Caller) IsAdmin() bool {
	return c.Role == model.RoleAdmin
}

// HasRole 是否为给定角色之一
func (c Caller) HasRole(roles ...model.Role) bool {
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}

func (c Caller) actorID() *int64 {
	if c.UserID == 0 {
		return nil
	}
	id := c.UserID
	return &id
}

// appendAudit 在事务内追加一条审计记录
func appendAudit(ctx context.Context, tx *repository.Store, caller Caller, action model.AuditAction, table string, at time.Time, format string, args ...interface{}) error {
	entry := &model.AuditLog{
		UserID:      caller.actorID(),
		Action:      action,
		TargetTable: table,
		Description: fmt.Sprintf(format, args...),
		IPAddress:   caller.IP,
		ActionTime:  at,
	}
	if err := tx.Audit.Append(ctx, entry); err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}
