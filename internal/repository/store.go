// Package repository 提供数据访问层的实现
// 封装所有与数据库的交互操作
package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store 汇总所有仓库，并提供事务入口
// 在事务回调中拿到的 Store 上的仓库都绑定在同一个事务上
type Store struct {
	db *gorm.DB

	Users        *UserRepository
	Rooms        *RoomRepository
	Devices      *DeviceRepository
	Reservations *ReservationRepository
	Maintenances *MaintenanceRepository
	Audit        *AuditRepository
}

// NewStore 创建 Store 实例
// 参数:
//   - db: GORM 数据库连接（或事务）
//
// 返回:
//   - *Store: 仓库集合
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:           db,
		Users:        NewUserRepository(db),
		Rooms:        NewRoomRepository(db),
		Devices:      NewDeviceRepository(db),
		Reservations: NewReservationRepository(db),
		Maintenances: NewMaintenanceRepository(db),
		Audit:        NewAuditRepository(db),
	}
}

// Transaction 在一个数据库事务中执行 fn
// fn 返回错误时整体回滚，否则提交
// 参数:
//   - ctx: 上下文
//   - fn: 事务内的操作，只能使用传入的 tx
//
// 返回:
//   - error: fn 的错误或提交错误
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// Ping 检查数据库连接
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
