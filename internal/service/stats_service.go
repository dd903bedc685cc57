package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"lab-reservation-server/internal/cache"
	"lab-reservation-server/internal/model"
	"lab-reservation-server/internal/repository"
)

// StatsService 统计服务（只读）
// 聚合在 Go 中完成，MySQL 和 SQLite 下结果一致
// 使用时长按整小时截断计算
type StatsService struct {
	store    *repository.Store
	cache    *cache.RedisCache // 可为空，为空时不缓存仪表盘
	cacheTTL time.Duration
	loc      *time.Location
	log      zerolog.Logger
}

// NewStatsService 创建 StatsService 实例
func NewStatsService(store *repository.Store, cache *cache.RedisCache, cacheTTL time.Duration, loc *time.Location, log zerolog.Logger) *StatsService {
	return &StatsService{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		loc:      loc,
		log:      log.With().Str("component", "stats").Logger(),
	}
}

// DeviceUsage 单台设备的使用统计
type DeviceUsage struct {
	DeviceID          int64  `json:"did"`
	Name              string `json:"dname"`
	Type              string `json:"type"`
	TotalReservations int    `json:"total_reservations"`
	TotalHoursUsed    int64  `json:"total_hours_used"`
}

// RoomUsage 单个机房的使用统计
type RoomUsage struct {
	RoomID            int64  `json:"rid"`
	Location          string `json:"location"`
	TotalReservations int    `json:"total_reservations"`
	TotalDevices      int    `json:"total_devices"`
	UniqueUsers       int    `json:"unique_users"`
}

// RoleUsage 按角色的使用统计
type RoleUsage struct {
	Role              model.Role `json:"role"`
	TotalReservations int        `json:"total_reservations"`
	AvgHours          float64    `json:"avg_hours"`
}

// MaintenanceTypeStats 按设备类型的维护统计
type MaintenanceTypeStats struct {
	Type               string  `json:"type"`
	MaintenanceCount   int     `json:"maintenance_count"`
	AvgRepairTimeHours float64 `json:"avg_repair_time_hours"`
}

// MaintenanceStats 维护汇总
type MaintenanceStats struct {
	TotalCompleted     int                     `json:"total_completed_maintenances"`
	TotalPending       int                     `json:"total_pending_maintenances"`
	AvgCompletionHours float64                 `json:"average_completion_time_hours"`
	DetailsByType      []*MaintenanceTypeStats `json:"details_by_type"`
}

// MonthlyUsage 月度使用量
type MonthlyUsage struct {
	Month            string `json:"month"` // YYYY-MM
	ReservationCount int    `json:"reservation_count"`
	TotalHours       int64  `json:"total_hours"`
}

// StatusShare 状态占比
type StatusShare struct {
	Status     string  `json:"status"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"` // 保留两位小数
}

// Dashboard 仪表盘数据，管理员额外包含三项高级统计
type Dashboard struct {
	DeviceStatus      []*StatusShare    `json:"device_status"`
	ReservationStatus []*StatusShare    `json:"reservation_status"`
	UserRoleStats     []*RoleUsage      `json:"user_role_stats,omitempty"`
	MaintenanceStats  *MaintenanceStats `json:"maintenance_stats,omitempty"`
	MonthlyUsage      []*MonthlyUsage   `json:"monthly_usage_trend,omitempty"`
}

// wholeHours 按整小时截断的时长
func wholeHours(start, end time.Time) int64 {
	return int64(end.Sub(start) / time.Hour)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// DeviceUsage 每台设备已完成预约的次数和总时长
func (s *StatsService) DeviceUsage(ctx context.Context) ([]*DeviceUsage, error) {
	devices, err := s.store.Devices.List(ctx, repository.DeviceFilter{}, false)
	if err != nil {
		return nil, persistence(err)
	}
	completed, err := s.store.Reservations.ListWithRelations(ctx, model.ReservationCompleted)
	if err != nil {
		return nil, persistence(err)
	}

	byDevice := make(map[int64]*DeviceUsage, len(devices))
	out := make([]*DeviceUsage, 0, len(devices))
	for _, d := range devices {
		u := &DeviceUsage{DeviceID: d.ID, Name: d.Name, Type: d.Type}
		byDevice[d.ID] = u
		out = append(out, u)
	}
	for _, r := range completed {
		if u, ok := byDevice[r.DeviceID]; ok {
			u.TotalReservations++
			u.TotalHoursUsed += wholeHours(r.StartTime, r.EndTime)
		}
	}
	return out, nil
}

// RoomUsage 每个机房的设备数、已完成预约数和独立用户数
func (s *StatsService) RoomUsage(ctx context.Context) ([]*RoomUsage, error) {
	rooms, err := s.store.Rooms.List(ctx)
	if err != nil {
		return nil, persistence(err)
	}
	devices, err := s.store.Devices.List(ctx, repository.DeviceFilter{}, false)
	if err != nil {
		return nil, persistence(err)
	}
	completed, err := s.store.Reservations.ListWithRelations(ctx, model.ReservationCompleted)
	if err != nil {
		return nil, persistence(err)
	}

	deviceRoom := make(map[int64]int64, len(devices))
	for _, d := range devices {
		if d.RoomID != nil {
			deviceRoom[d.ID] = *d.RoomID
		}
	}

	byRoom := make(map[int64]*RoomUsage, len(rooms))
	users := make(map[int64]map[int64]struct{}, len(rooms))
	out := make([]*RoomUsage, 0, len(rooms))
	for _, r := range rooms {
		u := &RoomUsage{RoomID: r.ID, Location: r.Location}
		byRoom[r.ID] = u
		users[r.ID] = map[int64]struct{}{}
		out = append(out, u)
	}
	for _, d := range devices {
		if d.RoomID == nil {
			continue
		}
		if u, ok := byRoom[*d.RoomID]; ok {
			u.TotalDevices++
		}
	}
	for _, r := range completed {
		rid, ok := deviceRoom[r.DeviceID]
		if !ok {
			continue
		}
		if u, ok := byRoom[rid]; ok {
			u.TotalReservations++
			users[rid][r.UserID] = struct{}{}
		}
	}
	for rid, u := range byRoom {
		u.UniqueUsers = len(users[rid])
	}
	return out, nil
}

// UserRoleStats 按角色统计已完成预约的次数和平均时长
func (s *StatsService) UserRoleStats(ctx context.Context) ([]*RoleUsage, error) {
	completed, err := s.store.Reservations.ListWithRelations(ctx, model.ReservationCompleted)
	if err != nil {
		return nil, persistence(err)
	}

	type acc struct {
		count int
		hours int64
	}
	byRole := map[model.Role]*acc{}
	for _, r := range completed {
		if r.User == nil {
			continue
		}
		a, ok := byRole[r.User.Role]
		if !ok {
			a = &acc{}
			byRole[r.User.Role] = a
		}
		a.count++
		a.hours += wholeHours(r.StartTime, r.EndTime)
	}

	out := make([]*RoleUsage, 0, len(byRole))
	for role, a := range byRole {
		out = append(out, &RoleUsage{
			Role:              role,
			TotalReservations: a.count,
			AvgHours:          round2(float64(a.hours) / float64(a.count)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out, nil
}

// MaintenanceStats 维护汇总：完成数、待处理数、平均修复时长、按设备类型细分
func (s *StatsService) MaintenanceStats(ctx context.Context) (*MaintenanceStats, error) {
	records, err := s.store.Maintenances.List(ctx, repository.MaintenanceFilter{}, true)
	if err != nil {
		return nil, persistence(err)
	}

	stats := &MaintenanceStats{DetailsByType: []*MaintenanceTypeStats{}}
	type acc struct {
		count int
		hours int64
	}
	var (
		total   acc
		byType  = map[string]*acc{}
		typeSeq []string
	)
	for _, m := range records {
		switch m.Status {
		case model.MaintenancePending:
			stats.TotalPending++
		case model.MaintenanceCompleted:
			stats.TotalCompleted++
			if m.CompleteTime == nil {
				continue
			}
			h := wholeHours(m.ReportTime, *m.CompleteTime)
			total.count++
			total.hours += h
			if m.Device == nil {
				continue
			}
			a, ok := byType[m.Device.Type]
			if !ok {
				a = &acc{}
				byType[m.Device.Type] = a
				typeSeq = append(typeSeq, m.Device.Type)
			}
			a.count++
			a.hours += h
		}
	}
	if total.count > 0 {
		stats.AvgCompletionHours = round2(float64(total.hours) / float64(total.count))
	}
	sort.Strings(typeSeq)
	for _, t := range typeSeq {
		a := byType[t]
		stats.DetailsByType = append(stats.DetailsByType, &MaintenanceTypeStats{
			Type:               t,
			MaintenanceCount:   a.count,
			AvgRepairTimeHours: round2(float64(a.hours) / float64(a.count)),
		})
	}
	return stats, nil
}

// MonthlyUsage 按月统计已完成预约，月份升序
func (s *StatsService) MonthlyUsage(ctx context.Context) ([]*MonthlyUsage, error) {
	completed, err := s.store.Reservations.ListWithRelations(ctx, model.ReservationCompleted)
	if err != nil {
		return nil, persistence(err)
	}

	byMonth := map[string]*MonthlyUsage{}
	for _, r := range completed {
		month := r.StartTime.In(s.loc).Format("2006-01")
		u, ok := byMonth[month]
		if !ok {
			u = &MonthlyUsage{Month: month}
			byMonth[month] = u
		}
		u.ReservationCount++
		u.TotalHours += wholeHours(r.StartTime, r.EndTime)
	}

	out := make([]*MonthlyUsage, 0, len(byMonth))
	for _, u := range byMonth {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

// DeviceStatus 设备状态占比
func (s *StatsService) DeviceStatus(ctx context.Context) ([]*StatusShare, error) {
	rows, err := s.store.Devices.CountByStatus(ctx)
	if err != nil {
		return nil, persistence(err)
	}
	return shares(rows), nil
}

// ReservationStatus 预约状态占比
func (s *StatsService) ReservationStatus(ctx context.Context) ([]*StatusShare, error) {
	rows, err := s.store.Reservations.CountByStatus(ctx)
	if err != nil {
		return nil, persistence(err)
	}
	return shares(rows), nil
}

func shares(rows []repository.StatusCount) []*StatusShare {
	var total int64
	for _, r := range rows {
		total += r.Count
	}
	out := make([]*StatusShare, 0, len(rows))
	for _, r := range rows {
		share := &StatusShare{Status: r.Status, Count: r.Count}
		if total > 0 {
			share.Percentage = round2(float64(r.Count) * 100 / float64(total))
		}
		out = append(out, share)
	}
	return out
}

// Dashboard 仪表盘
// 结果按角色缓存在 Redis，缓存读写失败只记日志，不影响返回
func (s *StatsService) Dashboard(ctx context.Context, caller Caller) (*Dashboard, error) {
	key := "dashboard:" + caller.Role.String()
	if s.cache != nil {
		var cached Dashboard
		hit, err := s.cache.GetStats(ctx, key, &cached)
		if err != nil {
			s.log.Warn().Err(err).Msg("read dashboard cache failed")
		}
		if hit {
			return &cached, nil
		}
	}

	var (
		d   Dashboard
		err error
	)
	if d.DeviceStatus, err = s.DeviceStatus(ctx); err != nil {
		return nil, err
	}
	if d.ReservationStatus, err = s.ReservationStatus(ctx); err != nil {
		return nil, err
	}
	if caller.IsAdmin() {
		if d.UserRoleStats, err = s.UserRoleStats(ctx); err != nil {
			return nil, err
		}
		if d.MaintenanceStats, err = s.MaintenanceStats(ctx); err != nil {
			return nil, err
		}
		if d.MonthlyUsage, err = s.MonthlyUsage(ctx); err != nil {
			return nil, err
		}
	}

	if s.cache != nil {
		if err := s.cache.SetStats(ctx, key, &d, s.cacheTTL); err != nil {
			s.log.Warn().Err(err).Msg("write dashboard cache failed")
		}
	}
	return &d, nil
}
