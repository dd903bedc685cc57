package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"lab-reservation-server/internal/cache"
	"lab-reservation-server/internal/database"
	"lab-reservation-server/internal/model"
	"lab-reservation-server/internal/repository"
	"lab-reservation-server/pkg/jwt"
	"lab-reservation-server/pkg/logger"
	"lab-reservation-server/pkg/util"
)

// testClock 可手动推进的时钟
type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// testEnv 服务测试环境：内存 SQLite、miniredis、固定时钟
type testEnv struct {
	db    *gorm.DB
	store *repository.Store
	cache *cache.RedisCache
	redis *miniredis.Miniredis
	jwt   *jwt.JWTService
	clock *testClock

	reservations *ReservationService
	maintenances *MaintenanceService
	devices      *DeviceService
	rooms        *RoomService
	users        *UserService
	auth         *AuthService
	stats        *StatsService
	audit        *AuditService

	student, student2, teacher, admin Caller
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.OpenSQLite(":memory:", logger.Nop())
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	env := &testEnv{
		db:    db,
		store: repository.NewStore(db),
		cache: cache.NewRedisCacheFromClient(client),
		redis: mr,
		jwt:   jwt.NewJWTService("0123456789abcdef0123456789abcdef", 15*time.Minute, time.Hour),
		// 场景中的预约日期在该时刻之后
		clock: &testClock{t: time.Date(2025, 1, 9, 8, 0, 0, 0, time.UTC)},
	}
	log := logger.Nop()

	env.reservations = NewReservationService(env.store, time.UTC, log)
	env.reservations.now = env.clock.Now
	env.maintenances = NewMaintenanceService(env.store, time.UTC, 24*time.Hour, log)
	env.maintenances.now = env.clock.Now
	env.devices = NewDeviceService(env.store)
	env.devices.now = env.clock.Now
	env.rooms = NewRoomService(env.store)
	env.rooms.now = env.clock.Now
	env.users = NewUserService(env.store, util.SchemeSHA256)
	env.users.now = env.clock.Now
	env.auth = NewAuthService(env.store, env.cache, env.jwt, log)
	env.auth.now = env.clock.Now
	env.stats = NewStatsService(env.store, env.cache, 30*time.Second, time.UTC, log)
	env.audit = NewAuditService(env.store, time.UTC)
	env.audit.now = env.clock.Now

	env.student = env.seedUser(t, "S001", "张三", model.RoleStudent)
	env.student2 = env.seedUser(t, "S002", "李四", model.RoleStudent)
	env.teacher = env.seedUser(t, "T001", "王老师", model.RoleTeacher)
	env.admin = env.seedUser(t, "A001", "管理员", model.RoleAdmin)
	return env
}

func (e *testEnv) seedUser(t *testing.T, code, name string, role model.Role) Caller {
	t.Helper()
	hash, _ := util.HashPassword("123456", util.SchemeSHA256)
	u := &model.User{Code: code, Name: name, Role: role, PasswordHash: hash}
	if err := e.store.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return Caller{UserID: u.ID, Name: u.Name, Role: u.Role, IP: "127.0.0.1"}
}

func (e *testEnv) seedDevice(t *testing.T, name string, status model.DeviceStatus) *model.Device {
	t.Helper()
	d := &model.Device{Name: name, Type: "示波器", Status: status}
	if err := e.store.Devices.Create(context.Background(), d); err != nil {
		t.Fatalf("seed device: %v", err)
	}
	return d
}

func (e *testEnv) seedReservation(t *testing.T, uid, did int64, start, end string, status model.ReservationStatus) *model.Reservation {
	t.Helper()
	s, _ := util.ParseTime(start, time.UTC)
	en, _ := util.ParseTime(end, time.UTC)
	r := &model.Reservation{UserID: uid, DeviceID: did, StartTime: s, EndTime: en, Status: status}
	if err := e.store.Reservations.Create(context.Background(), r); err != nil {
		t.Fatalf("seed reservation: %v", err)
	}
	return r
}

func (e *testEnv) auditCount(t *testing.T) int64 {
	t.Helper()
	n, err := e.store.Audit.Count(context.Background(), repository.AuditFilter{})
	if err != nil {
		t.Fatalf("count audit: %v", err)
	}
	return n
}

func (e *testEnv) lastAudit(t *testing.T) model.AuditLog {
	t.Helper()
	logs, err := e.store.Audit.List(context.Background(), repository.AuditFilter{Limit: 1}, false)
	if err != nil || len(logs) == 0 {
		t.Fatalf("last audit: %v (%d rows)", err, len(logs))
	}
	return logs[0]
}

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("error = nil, want kind %d", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("error kind = %d (%v), want %d", got, err, kind)
	}
}
