// Package service 提供业务逻辑层的实现
// 服务层封装具体的业务逻辑，协调 Repository 和 Cache
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"lab-reservation-server/internal/model"
	"lab-reservation-server/internal/repository"
	"lab-reservation-server/pkg/util"
)

// ReservationService 预约服务
// 负责预约的创建、审核、取消和查询
type ReservationService struct {
	notifierHolder
	store *repository.Store
	loc   *time.Location   // 边界时间字符串使用的时区
	now   func() time.Time // 时钟，测试中可替换
	log   zerolog.Logger
}

// NewReservationService 创建 ReservationService 实例
func NewReservationService(store *repository.Store, loc *time.Location, log zerolog.Logger) *ReservationService {
	return &ReservationService{
		store: store,
		loc:   loc,
		now:   time.Now,
		log:   log.With().Str("component", "reservation").Logger(),
	}
}

// CreateReservationRequest 创建预约请求
type CreateReservationRequest struct {
	DeviceID  int64  `json:"did" binding:"required"`
	StartTime string `json:"start_time" binding:"required"` // YYYY-MM-DD HH:MM:SS
	EndTime   string `json:"end_time" binding:"required"`
}

// ReservationListFilter 预约列表查询条件
type ReservationListFilter struct {
	DeviceID *int64
	Status   *model.ReservationStatus
}

// Create 创建预约
// 设备加锁、冲突检查、插入预约和审计记录在同一事务中完成
// 参数:
//   - ctx: 上下文
//   - caller: 调用者
//   - req: 预约请求
//
// 返回:
//   - *ReservationView: 新建的预约，状态为待审核
//   - error: 参数错误、设备不存在、设备不可用、时间冲突或存储错误
func (s *ReservationService) Create(ctx context.Context, caller Caller, req *CreateReservationRequest) (*ReservationView, error) {
	// 1. 校验时间窗口，不依赖设备状态
	start, err := util.ParseTime(req.StartTime, s.loc)
	if err != nil {
		return nil, validation("开始时间格式错误，应为 YYYY-MM-DD HH:MM:SS")
	}
	end, err := util.ParseTime(req.EndTime, s.loc)
	if err != nil {
		return nil, validation("结束时间格式错误，应为 YYYY-MM-DD HH:MM:SS")
	}
	if !start.Before(end) {
		return nil, ErrInvalidTimeRange
	}
	now := s.now()
	if start.Before(now) {
		return nil, ErrStartInPast
	}
	if req.DeviceID <= 0 {
		return nil, validation("设备 ID 无效")
	}

	// 2. 在事务中检查并插入
	var created model.Reservation
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		device, err := tx.Devices.GetByIDForUpdate(ctx, req.DeviceID)
		if err != nil {
			return err
		}
		if device == nil {
			return ErrDeviceNotFound
		}
		if !device.Reservable() {
			return ErrDeviceUnavailable
		}

		n, err := tx.Reservations.CountConfirmedOverlap(ctx, device.ID, start, end, 0)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrReservationClash
		}

		created = model.Reservation{
			UserID:    caller.UserID,
			DeviceID:  device.ID,
			StartTime: start,
			EndTime:   end,
			Status:    model.ReservationPending,
		}
		if err := tx.Reservations.Create(ctx, &created); err != nil {
			return err
		}

		return appendAudit(ctx, tx, caller, model.ActionInsert, model.TableReservations, now,
			"创建预约 #%d：设备 %d，%s 至 %s", created.ID, device.ID, util.FormatTime(start), util.FormatTime(end))
	})
	if err != nil {
		return nil, persistence(err)
	}

	s.log.Info().Int64("res_id", created.ID).Int64("did", created.DeviceID).Int64("uid", caller.UserID).Msg("reservation created")
	s.notify(func(n Notifier) { n.NotifyReservationCreated(&created) })
	return reservationView(&created, s.loc), nil
}

// canSetReservationStatus 角色允许设置的目标状态
// 学生只能取消，教师可以确认或取消，管理员不受限制
func canSetReservationStatus(role model.Role, status model.ReservationStatus) bool {
	switch role {
	case model.RoleAdmin:
		return true
	case model.RoleTeacher:
		return status == model.ReservationConfirmed || status == model.ReservationCancelled
	case model.RoleStudent:
		return status == model.ReservationCancelled
	default:
		return false
	}
}

// UpdateStatus 修改预约状态
// 目标状态为已确认时会锁定设备并重新做冲突检查，排除预约自身
// 参数:
//   - ctx: 上下文
//   - caller: 调用者
//   - id: 预约 ID
//   - statusText: 目标状态文本（中文标签或英文别名）
//
// 返回:
//   - *ReservationView: 更新后的预约
//   - error: 状态无效、权限不足、预约不存在、时间冲突或存储错误
func (s *ReservationService) UpdateStatus(ctx context.Context, caller Caller, id int64, statusText string) (*ReservationView, error) {
	status, err := model.ParseReservationStatus(statusText)
	if err != nil {
		return nil, validation("无效的预约状态: %s", statusText)
	}
	if !canSetReservationStatus(caller.Role, status) {
		return nil, ErrPermissionDenied
	}

	var updated model.Reservation
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		r, err := tx.Reservations.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if r == nil {
			return ErrReservationNotFound
		}
		// 学生只能操作自己的预约
		if caller.Role == model.RoleStudent && r.UserID != caller.UserID {
			return ErrPermissionDenied
		}

		if status == model.ReservationConfirmed {
			device, err := tx.Devices.GetByIDForUpdate(ctx, r.DeviceID)
			if err != nil {
				return err
			}
			if device == nil {
				return ErrDeviceNotFound
			}
			n, err := tx.Reservations.CountConfirmedOverlap(ctx, r.DeviceID, r.StartTime, r.EndTime, r.ID)
			if err != nil {
				return err
			}
			if n > 0 {
				return ErrReservationClash
			}
		}

		if err := tx.Reservations.UpdateStatus(ctx, r.ID, status); err != nil {
			return err
		}
		previous := r.Status
		r.Status = status
		updated = *r

		return appendAudit(ctx, tx, caller, model.ActionUpdate, model.TableReservations, s.now(),
			"预约 #%d 状态 %s -> %s", r.ID, previous, status)
	})
	if err != nil {
		return nil, persistence(err)
	}

	s.notify(func(n Notifier) { n.NotifyReservationStatus(&updated) })
	return reservationView(&updated, s.loc), nil
}

// List 查询预约列表
// 非管理员只能看到自己的预约
func (s *ReservationService) List(ctx context.Context, caller Caller, filter ReservationListFilter) ([]*ReservationView, error) {
	f := repository.ReservationFilter{
		DeviceID: filter.DeviceID,
		Status:   filter.Status,
	}
	if !caller.IsAdmin() {
		uid := caller.UserID
		f.UserID = &uid
	}
	rows, err := s.store.Reservations.List(ctx, f)
	if err != nil {
		return nil, persistence(err)
	}
	return reservationViews(rows, s.loc), nil
}

// ListPending 待审核的预约，带预约人和设备名称
// 仅教师和管理员可用
func (s *ReservationService) ListPending(ctx context.Context, caller Caller) ([]*ReservationView, error) {
	if !caller.HasRole(model.RoleTeacher, model.RoleAdmin) {
		return nil, ErrPermissionDenied
	}
	rows, err := s.store.Reservations.ListWithRelations(ctx, model.ReservationPending)
	if err != nil {
		return nil, persistence(err)
	}
	return reservationViews(rows, s.loc), nil
}

// Get 获取单个预约
// 非管理员只能获取自己的预约
func (s *ReservationService) Get(ctx context.Context, caller Caller, id int64) (*ReservationView, error) {
	r, err := s.store.Reservations.GetByID(ctx, id)
	if err != nil {
		return nil, persistence(err)
	}
	if r == nil {
		return nil, ErrReservationNotFound
	}
	if !caller.IsAdmin() && r.UserID != caller.UserID {
		return nil, ErrPermissionDenied
	}
	return reservationView(r, s.loc), nil
}

// Delete 删除预约（硬删除），仅管理员
func (s *ReservationService) Delete(ctx context.Context, caller Caller, id int64) error {
	if !caller.IsAdmin() {
		return ErrPermissionDenied
	}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		r, err := tx.Reservations.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if r == nil {
			return ErrReservationNotFound
		}
		if err := tx.Reservations.Delete(ctx, id); err != nil {
			return err
		}
		return appendAudit(ctx, tx, caller, model.ActionDelete, model.TableReservations, s.now(),
			"删除预约 #%d（用户 %d，设备 %d）", r.ID, r.UserID, r.DeviceID)
	})
	return persistence(err)
}
