package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lab-reservation-server/internal/model"
	"lab-reservation-server/internal/repository"
)

// MaintenanceService 设备维护服务
// 故障上报会让设备停用并取消其上仍有效的预约
type MaintenanceService struct {
	notifierHolder
	store        *repository.Store
	loc          *time.Location
	overdueAfter time.Duration // 待处理超过该时长视为超期
	now          func() time.Time
	log          zerolog.Logger
}

// NewMaintenanceService 创建 MaintenanceService 实例
func NewMaintenanceService(store *repository.Store, loc *time.Location, overdueAfter time.Duration, log zerolog.Logger) *MaintenanceService {
	return &MaintenanceService{
		store:        store,
		loc:          loc,
		overdueAfter: overdueAfter,
		now:          time.Now,
		log:          log.With().Str("component", "maintenance").Logger(),
	}
}

// CreateMaintenanceRequest 故障上报请求
type CreateMaintenanceRequest struct {
	DeviceID int64  `json:"did" binding:"required"`
	Issue    string `json:"issue" binding:"required"`
}

// UpdateMaintenanceRequest 维护状态更新请求
// Handler 为 nil 表示不修改处理人
type UpdateMaintenanceRequest struct {
	Status  string  `json:"status" binding:"required"`
	Handler *string `json:"handler"`
}

// MaintenanceReport 故障上报结果
type MaintenanceReport struct {
	Maintenance           *MaintenanceView `json:"maintenance"`
	CancelledReservations int              `json:"cancelled_reservations"`
}

// Create 上报设备故障
// 插入维护记录、设备改为维修中、取消设备上未完成的预约、写审计记录，全部在一个事务内
// 参数:
//   - ctx: 上下文
//   - caller: 上报人
//   - req: 上报请求
//
// 返回:
//   - *MaintenanceReport: 维护记录和被取消的预约数量
//   - error: 参数错误、设备不存在或存储错误
func (s *MaintenanceService) Create(ctx context.Context, caller Caller, req *CreateMaintenanceRequest) (*MaintenanceReport, error) {
	issue := strings.TrimSpace(req.Issue)
	if issue == "" {
		return nil, validation("故障描述不能为空")
	}
	if req.DeviceID <= 0 {
		return nil, validation("设备 ID 无效")
	}

	now := s.now()
	var (
		record    model.Maintenance
		cancelled []model.Reservation
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		device, err := tx.Devices.GetByIDForUpdate(ctx, req.DeviceID)
		if err != nil {
			return err
		}
		if device == nil {
			return ErrDeviceNotFound
		}

		record = model.Maintenance{
			DeviceID:   device.ID,
			Issue:      issue,
			ReportTime: now,
			Status:     model.MaintenancePending,
		}
		if err := tx.Maintenances.Create(ctx, &record); err != nil {
			return err
		}
		if err := tx.Devices.UpdateStatus(ctx, device.ID, model.DeviceMaintenance); err != nil {
			return err
		}
		cancelled, err = tx.Reservations.CancelActiveByDevice(ctx, device.ID)
		if err != nil {
			return err
		}

		return appendAudit(ctx, tx, caller, model.ActionInsert, model.TableMaintenances, now,
			"上报设备 %d 故障（维护 #%d），取消预约 %d 条", device.ID, record.ID, len(cancelled))
	})
	if err != nil {
		return nil, persistence(err)
	}

	s.log.Info().Int64("mid", record.ID).Int64("did", record.DeviceID).Int("cancelled", len(cancelled)).Msg("maintenance reported")
	s.notify(func(n Notifier) {
		n.NotifyMaintenanceReported(&record, cancelled)
		n.NotifyDeviceStatus(record.DeviceID, model.DeviceMaintenance)
	})
	return &MaintenanceReport{
		Maintenance:           maintenanceView(&record, s.loc),
		CancelledReservations: len(cancelled),
	}, nil
}

// UpdateStatus 更新维护状态，仅管理员
// 改为已完成时完成时间取服务器当前时间（重复完成也会刷新）
// 改为待处理时清空完成时间
func (s *MaintenanceService) UpdateStatus(ctx context.Context, caller Caller, id int64, req *UpdateMaintenanceRequest) (*MaintenanceView, error) {
	if !caller.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	status, err := model.ParseMaintenanceStatus(req.Status)
	if err != nil {
		return nil, validation("无效的维护状态: %s", req.Status)
	}

	now := s.now()
	var updated model.Maintenance
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		m, err := tx.Maintenances.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if m == nil {
			return ErrMaintenanceNotFound
		}

		fields := map[string]interface{}{"status": status}
		if req.Handler != nil {
			handler := strings.TrimSpace(*req.Handler)
			fields["handler"] = handler
			m.Handler = &handler
		}
		switch status {
		case model.MaintenanceCompleted:
			fields["complete_time"] = now
			m.CompleteTime = &now
		case model.MaintenancePending:
			fields["complete_time"] = nil
			m.CompleteTime = nil
		}
		if err := tx.Maintenances.UpdateFields(ctx, m.ID, fields); err != nil {
			return err
		}
		previous := m.Status
		m.Status = status
		updated = *m

		return appendAudit(ctx, tx, caller, model.ActionUpdate, model.TableMaintenances, now,
			"维护 #%d 状态 %s -> %s", m.ID, previous, status)
	})
	if err != nil {
		return nil, persistence(err)
	}
	return maintenanceView(&updated, s.loc), nil
}

// List 按条件列出维护记录
func (s *MaintenanceService) List(ctx context.Context, filter repository.MaintenanceFilter) ([]*MaintenanceView, error) {
	rows, err := s.store.Maintenances.List(ctx, filter, false)
	if err != nil {
		return nil, persistence(err)
	}
	return maintenanceViews(rows, s.loc), nil
}

// ListDetailed 带设备名称和类型的维护记录列表
func (s *MaintenanceService) ListDetailed(ctx context.Context, filter repository.MaintenanceFilter) ([]*MaintenanceView, error) {
	rows, err := s.store.Maintenances.List(ctx, filter, true)
	if err != nil {
		return nil, persistence(err)
	}
	return maintenanceViews(rows, s.loc), nil
}

// ListPending 待处理的维护记录，最早上报的在前
func (s *MaintenanceService) ListPending(ctx context.Context) ([]*MaintenanceView, error) {
	rows, err := s.store.Maintenances.ListPending(ctx)
	if err != nil {
		return nil, persistence(err)
	}
	return maintenanceViews(rows, s.loc), nil
}

// ListOverdue 超期未处理的维护记录，仅管理员
// 超期在查询时按当前时间计算，不落库
func (s *MaintenanceService) ListOverdue(ctx context.Context, caller Caller) ([]*MaintenanceView, error) {
	if !caller.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	return s.Overdue(ctx)
}

// Overdue 超期未处理的维护记录，不做角色检查
// 供管理命令行使用
func (s *MaintenanceService) Overdue(ctx context.Context) ([]*MaintenanceView, error) {
	rows, err := s.store.Maintenances.ListOverdue(ctx, model.OverdueBefore(s.now(), s.overdueAfter))
	if err != nil {
		return nil, persistence(err)
	}
	return maintenanceViews(rows, s.loc), nil
}

// Get 获取单个维护记录
func (s *MaintenanceService) Get(ctx context.Context, id int64) (*MaintenanceView, error) {
	m, err := s.store.Maintenances.GetByID(ctx, id)
	if err != nil {
		return nil, persistence(err)
	}
	if m == nil {
		return nil, ErrMaintenanceNotFound
	}
	return maintenanceView(m, s.loc), nil
}

// Delete 删除维护记录（硬删除），仅管理员
func (s *MaintenanceService) Delete(ctx context.Context, caller Caller, id int64) error {
	if !caller.IsAdmin() {
		return ErrPermissionDenied
	}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		m, err := tx.Maintenances.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if m == nil {
			return ErrMaintenanceNotFound
		}
		if err := tx.Maintenances.Delete(ctx, id); err != nil {
			return err
		}
		return appendAudit(ctx, tx, caller, model.ActionDelete, model.TableMaintenances, s.now(),
			"删除维护 #%d（设备 %d）", m.ID, m.DeviceID)
	})
	return persistence(err)
}
