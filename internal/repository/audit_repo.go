package repository

import (
	"context"

	"gorm.io/gorm"

	"lab-reservation-server/internal/model"
)

// AuditFilter 审计日志过滤条件
type AuditFilter struct {
	UserID      *int64
	Action      *model.AuditAction
	TargetTable string
	Limit       int // 0 表示不限制
}

// AuditRepository 审计日志数据访问层
// 只提供追加和查询，审计记录一经写入不再修改或删除
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository 创建 AuditRepository 实例
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append 追加一条审计记录
func (r *AuditRepository) Append(ctx context.Context, entry *model.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// List 按条件列出审计记录，最新的在前
// withUser 为 true 时预加载操作人
func (r *AuditRepository) List(ctx context.Context, filter AuditFilter, withUser bool) ([]model.AuditLog, error) {
	var logs []model.AuditLog
	query := r.filtered(ctx, filter).Order("action_time DESC").Order("log_id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if withUser {
		query = query.Preload("User")
	}
	err := query.Find(&logs).Error
	return logs, err
}

// Count 统计符合条件的审计记录数
func (r *AuditRepository) Count(ctx context.Context, filter AuditFilter) (int64, error) {
	var count int64
	err := r.filtered(ctx, filter).Model(&model.AuditLog{}).Count(&count).Error
	return count, err
}

func (r *AuditRepository) filtered(ctx context.Context, filter AuditFilter) *gorm.DB {
	query := r.db.WithContext(ctx)
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Action != nil {
		query = query.Where("action = ?", *filter.Action)
	}
	if filter.TargetTable != "" {
		query = query.Where("target_table = ?", filter.TargetTable)
	}
	return query
}
