package service

import (
	"context"
	"errors"
	"testing"

	"lab-reservation-server/internal/model"
	"lab-reservation-server/internal/repository"
	"lab-reservation-server/pkg/util"
)

func TestDeviceLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := &recordingNotifier{}
	env.devices.SetNotifier(rec)

	room, err := env.rooms.Create(ctx, env.admin, &RoomRequest{Location: util.StringPtr("实验楼 301"), Capacity: util.IntPtr(40)})
	if err != nil {
		t.Fatalf("Create room error = %v", err)
	}

	if _, err := env.devices.Create(ctx, env.teacher, &CreateDeviceRequest{Name: "x"}); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Create(teacher) error = %v, want ErrPermissionDenied", err)
	}
	missingRoom := int64(999)
	if _, err := env.devices.Create(ctx, env.admin, &CreateDeviceRequest{Name: "x", RoomID: &missingRoom}); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Create(missing room) error = %v, want ErrRoomNotFound", err)
	}

	d, err := env.devices.Create(ctx, env.admin, &CreateDeviceRequest{Name: " 示波器-01 ", Type: "示波器", RoomID: &room.ID})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if d.Name != "示波器-01" || d.Status != model.DeviceFree {
		t.Errorf("created = %+v, want trimmed name and 空闲", d)
	}

	got, err := env.devices.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Location == nil || *got.Location != "实验楼 301" {
		t.Errorf("Location = %v, want 实验楼 301", got.Location)
	}

	updated, err := env.devices.UpdateStatus(ctx, env.admin, d.ID, "in_use")
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if updated.Status != model.DeviceInUse || updated.Name != "示波器-01" {
		t.Errorf("updated = %+v", updated)
	}
	if len(rec.devices) != 1 || rec.devices[0] != model.DeviceInUse {
		t.Errorf("device notifications = %v", rec.devices)
	}
	_, err = env.devices.UpdateStatus(ctx, env.admin, d.ID, "损坏")
	wantKind(t, err, KindValidation)

	status := model.DeviceFree
	list, _ := env.devices.List(ctx, repository.DeviceFilter{Status: &status})
	if len(list) != 0 {
		t.Errorf("List(空闲) = %d rows, want 0", len(list))
	}
	detailed, _ := env.devices.ListDetailed(ctx, repository.DeviceFilter{RoomID: &room.ID})
	if len(detailed) != 1 || detailed[0].Location == nil {
		t.Errorf("ListDetailed(room) = %+v", detailed)
	}

	if err := env.devices.Delete(ctx, env.admin, d.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := env.devices.Get(ctx, d.ID); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Get(deleted) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRoomDeleteKeepsDevices(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	room, err := env.rooms.Create(ctx, env.admin, &RoomRequest{Location: util.StringPtr("实验楼 302")})
	if err != nil {
		t.Fatalf("Create room error = %v", err)
	}
	d, err := env.devices.Create(ctx, env.admin, &CreateDeviceRequest{Name: "万用表", RoomID: &room.ID})
	if err != nil {
		t.Fatalf("Create device error = %v", err)
	}

	detail, err := env.rooms.Get(ctx, room.ID)
	if err != nil {
		t.Fatalf("Get room error = %v", err)
	}
	if len(detail.Devices) != 1 {
		t.Errorf("room devices = %d, want 1", len(detail.Devices))
	}

	if err := env.rooms.Delete(ctx, env.admin, room.ID); err != nil {
		t.Fatalf("Delete room error = %v", err)
	}
	kept, err := env.devices.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("Get device error = %v", err)
	}
	if kept.RoomID != nil || kept.Location != nil {
		t.Errorf("device room = %v, want nil", kept.RoomID)
	}
	if _, err := env.rooms.Get(ctx, room.ID); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Get(deleted room) error = %v, want ErrRoomNotFound", err)
	}
}

func TestRoomValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		caller Caller
		req    *RoomRequest
		want   Kind
	}{
		{name: "no location", caller: env.admin, req: &RoomRequest{}, want: KindValidation},
		{name: "negative capacity", caller: env.admin, req: &RoomRequest{Location: util.StringPtr("A"), Capacity: util.IntPtr(-1)}, want: KindValidation},
		{name: "not admin", caller: env.teacher, req: &RoomRequest{Location: util.StringPtr("A")}, want: KindPermission},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.rooms.Create(ctx, tt.caller, tt.req)
			wantKind(t, err, tt.want)
		})
	}

	room, _ := env.rooms.Create(ctx, env.admin, &RoomRequest{Location: util.StringPtr("A"), OpenTime: util.StringPtr("08:00-22:00")})
	updated, err := env.rooms.Update(ctx, env.admin, room.ID, &RoomRequest{Capacity: util.IntPtr(30)})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Capacity != 30 || updated.OpenTime != "08:00-22:00" || updated.Location != "A" {
		t.Errorf("updated = %+v", updated)
	}
}
