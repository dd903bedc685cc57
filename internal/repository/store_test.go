package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"lab-reservation-server/internal/database"
	"lab-reservation-server/internal/model"
	"lab-reservation-server/pkg/logger"
)

func newTestStore(t *testing.T) *Store {
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
	return NewStore(db)
}

func mustCreateDevice(t *testing.T, s *Store, status model.DeviceStatus) *model.Device {
	t.Helper()
	d := &model.Device{Name: "万用表", Type: "仪表", Status: status}
	if err := s.Devices.Create(context.Background(), d); err != nil {
		t.Fatalf("create device: %v", err)
	}
	return d
}

func TestTransactionRollback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Transaction(ctx, func(tx *Store) error {
		if err := tx.Rooms.Create(ctx, &model.Room{Location: "A101", Capacity: 30}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction() error = %v, want boom", err)
	}

	rooms, err := s.Rooms.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rooms) != 0 {
		t.Errorf("rooms after rollback = %d, want 0", len(rooms))
	}
}

func TestGetByIDNotFoundReturnsNil(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.Users.GetByID(ctx, 99)
	if err != nil || u != nil {
		t.Errorf("Users.GetByID() = %v, %v, want nil, nil", u, err)
	}
	d, err := s.Devices.GetByIDForUpdate(ctx, 99)
	if err != nil || d != nil {
		t.Errorf("Devices.GetByIDForUpdate() = %v, %v, want nil, nil", d, err)
	}
}

func TestCountConfirmedOverlap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dev := mustCreateDevice(t, s, model.DeviceFree)
	at := func(h int) time.Time { return time.Date(2025, 1, 10, h, 0, 0, 0, time.UTC) }

	seed := []model.Reservation{
		{UserID: 1, DeviceID: dev.ID, StartTime: at(10), EndTime: at(12), Status: model.ReservationConfirmed},
		{UserID: 1, DeviceID: dev.ID, StartTime: at(14), EndTime: at(16), Status: model.ReservationPending},
		{UserID: 1, DeviceID: dev.ID, StartTime: at(16), EndTime: at(18), Status: model.ReservationCancelled},
	}
	for i := range seed {
		if err := s.Reservations.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("create reservation: %v", err)
		}
	}

	tests := []struct {
		name       string
		start, end time.Time
		exclude    int64
		want       int64
	}{
		{name: "overlaps confirmed", start: at(11), end: at(13), want: 1},
		{name: "abuts confirmed", start: at(12), end: at(13), want: 0},
		{name: "ends at confirmed start", start: at(8), end: at(10), want: 0},
		{name: "overlaps pending only", start: at(14), end: at(15), want: 0},
		{name: "overlaps cancelled only", start: at(16), end: at(17), want: 0},
		{name: "excludes itself", start: at(10), end: at(12), exclude: seed[0].ID, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Reservations.CountConfirmedOverlap(ctx, dev.ID, tt.start, tt.end, tt.exclude)
			if err != nil {
				t.Fatalf("CountConfirmedOverlap() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CountConfirmedOverlap() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCancelActiveByDevice(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dev := mustCreateDevice(t, s, model.DeviceFree)
	other := mustCreateDevice(t, s, model.DeviceFree)
	start := time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)

	statuses := []model.ReservationStatus{
		model.ReservationPending,
		model.ReservationConfirmed,
		model.ReservationCompleted,
		model.ReservationCancelled,
	}
	for _, st := range statuses {
		r := &model.Reservation{UserID: 1, DeviceID: dev.ID, StartTime: start, EndTime: start.Add(time.Hour), Status: st}
		if err := s.Reservations.Create(ctx, r); err != nil {
			t.Fatalf("create reservation: %v", err)
		}
	}
	keep := &model.Reservation{UserID: 1, DeviceID: other.ID, StartTime: start, EndTime: start.Add(time.Hour), Status: model.ReservationConfirmed}
	if err := s.Reservations.Create(ctx, keep); err != nil {
		t.Fatalf("create reservation: %v", err)
	}

	cancelled, err := s.Reservations.CancelActiveByDevice(ctx, dev.ID)
	if err != nil {
		t.Fatalf("CancelActiveByDevice() error = %v", err)
	}
	if len(cancelled) != 2 {
		t.Fatalf("cancelled = %d, want 2", len(cancelled))
	}

	completed := model.ReservationCompleted
	rows, _ := s.Reservations.List(ctx, ReservationFilter{DeviceID: &dev.ID, Status: &completed})
	if len(rows) != 1 {
		t.Errorf("completed reservations = %d, want 1", len(rows))
	}

	got, _ := s.Reservations.GetByID(ctx, keep.ID)
	if got.Status != model.ReservationConfirmed {
		t.Errorf("other device reservation status = %v, want 已确认", got.Status)
	}
}

func TestListOverdue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dev := mustCreateDevice(t, s, model.DeviceMaintenance)
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

	records := []*model.Maintenance{
		{DeviceID: dev.ID, Issue: "23h59m", ReportTime: now.Add(-(23*time.Hour + 59*time.Minute)), Status: model.MaintenancePending},
		{DeviceID: dev.ID, Issue: "24h01m", ReportTime: now.Add(-(24*time.Hour + time.Minute)), Status: model.MaintenancePending},
		{DeviceID: dev.ID, Issue: "old but done", ReportTime: now.Add(-72 * time.Hour), Status: model.MaintenanceCompleted},
	}
	for _, m := range records {
		if err := s.Maintenances.Create(ctx, m); err != nil {
			t.Fatalf("create maintenance: %v", err)
		}
	}

	overdue, err := s.Maintenances.ListOverdue(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("ListOverdue() error = %v", err)
	}
	if len(overdue) != 1 || overdue[0].Issue != "24h01m" {
		t.Errorf("ListOverdue() = %+v, want only the 24h01m record", overdue)
	}
	if overdue[0].Device == nil || overdue[0].Device.Name != dev.Name {
		t.Errorf("ListOverdue() did not preload device")
	}
}

func TestAuditListAndCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	uid := int64(7)
	base := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	entries := []*model.AuditLog{
		{UserID: &uid, Action: model.ActionLogin, TargetTable: model.TableUsers, ActionTime: base},
		{UserID: &uid, Action: model.ActionInsert, TargetTable: model.TableReservations, ActionTime: base.Add(time.Minute)},
		{UserID: nil, Action: model.ActionInsert, TargetTable: model.TableUsers, ActionTime: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := s.Audit.Append(ctx, e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	insert := model.ActionInsert
	n, err := s.Audit.Count(ctx, AuditFilter{Action: &insert})
	if err != nil || n != 2 {
		t.Errorf("Count(INSERT) = %d, %v, want 2", n, err)
	}

	logs, err := s.Audit.List(ctx, AuditFilter{UserID: &uid}, false)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(logs) != 2 || logs[0].Action != model.ActionInsert {
		t.Errorf("List() = %+v, want newest first", logs)
	}
}
