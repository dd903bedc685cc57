package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"lab-reservation-server/internal/cache"
	"lab-reservation-server/internal/database"
	"lab-reservation-server/internal/middleware"
	"lab-reservation-server/internal/model"
	"lab-reservation-server/internal/repository"
	"lab-reservation-server/internal/service"
	"lab-reservation-server/pkg/jwt"
	"lab-reservation-server/pkg/logger"
	"lab-reservation-server/pkg/response"
	"lab-reservation-server/pkg/util"
)

type envelope struct {
	Status  string          `json:"status"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type apiEnv struct {
	router *gin.Engine
	store  *repository.Store
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

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
	redisCache := cache.NewRedisCacheFromClient(client)

	store := repository.NewStore(db)
	jwtService := jwt.NewJWTService("0123456789abcdef0123456789abcdef", 15*time.Minute, time.Hour)
	log := logger.Nop()

	authService := service.NewAuthService(store, redisCache, jwtService, log)
	userService := service.NewUserService(store, util.SchemeSHA256)
	h := &Handlers{
		Auth:        NewAuthHandler(authService, userService),
		User:        NewUserHandler(userService),
		Device:      NewDeviceHandler(service.NewDeviceService(store)),
		Room:        NewRoomHandler(service.NewRoomService(store)),
		Reservation: NewReservationHandler(service.NewReservationService(store, time.UTC, log)),
		Maintenance: NewMaintenanceHandler(service.NewMaintenanceService(store, time.UTC, 24*time.Hour, log)),
		Stats:       NewStatsHandler(service.NewStatsService(store, redisCache, 0, time.UTC, log)),
		Audit:       NewAuditHandler(service.NewAuditService(store, time.UTC)),
	}

	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	RegisterRoutes(router, h, middleware.AuthMiddleware(jwtService, redisCache))

	env := &apiEnv{router: router, store: store}
	env.seedUser(t, "S001", "张三", model.RoleStudent)
	env.seedUser(t, "S002", "李四", model.RoleStudent)
	env.seedUser(t, "T001", "王老师", model.RoleTeacher)
	env.seedUser(t, "A001", "管理员", model.RoleAdmin)
	return env
}

func (e *apiEnv) seedUser(t *testing.T, code, name string, role model.Role) {
	t.Helper()
	hash, _ := util.HashPassword("123456", util.SchemeSHA256)
	if err := e.store.Users.Create(context.Background(), &model.User{Code: code, Name: name, Role: role, PasswordHash: hash}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode body %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, env
}

func (e *apiEnv) login(t *testing.T, code string) string {
	t.Helper()
	return e.loginTokens(t, code).AccessToken
}

func (e *apiEnv) loginTokens(t *testing.T, code string) service.LoginResponse {
	t.Helper()
	status, env := e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"code": code, "password": "123456"})
	if status != http.StatusOK {
		t.Fatalf("login %s: status %d, %+v", code, status, env)
	}
	var data service.LoginResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return data
}

func expect(t *testing.T, what string, gotStatus int, got envelope, wantStatus, wantCode int) {
	t.Helper()
	if gotStatus != wantStatus || got.Code != wantCode {
		t.Fatalf("%s: got %d/%d (%s), want %d/%d", what, gotStatus, got.Code, got.Message, wantStatus, wantCode)
	}
	wantEnvelope := response.StatusSuccess
	if wantCode != response.CodeSuccess {
		wantEnvelope = response.StatusError
	}
	if got.Status != wantEnvelope {
		t.Errorf("%s: envelope status = %q, want %q", what, got.Status, wantEnvelope)
	}
}

func TestHealth(t *testing.T) {
	env := newAPIEnv(t)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("GET /health = %d", w.Code)
	}
}

func TestLoginAndLogout(t *testing.T) {
	env := newAPIEnv(t)

	status, body := env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"code": "S001", "password": "wrong"})
	expect(t, "wrong password", status, body, http.StatusUnauthorized, response.CodePasswordWrong)

	status, body = env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"code": "S001"})
	expect(t, "missing password", status, body, http.StatusBadRequest, response.CodeBadRequest)

	status, body = env.do(t, http.MethodGet, "/api/auth/profile", "", nil)
	expect(t, "no token", status, body, http.StatusUnauthorized, response.CodeUnauthorized)

	tokens := env.loginTokens(t, "S001")
	token := tokens.AccessToken
	status, body = env.do(t, http.MethodGet, "/api/auth/profile", token, nil)
	expect(t, "profile", status, body, http.StatusOK, response.CodeSuccess)
	var user model.User
	json.Unmarshal(body.Data, &user)
	if user.Code != "S001" || user.Role != model.RoleStudent {
		t.Errorf("profile = %+v", user)
	}

	status, body = env.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	expect(t, "logout", status, body, http.StatusOK, response.CodeSuccess)

	status, body = env.do(t, http.MethodGet, "/api/auth/profile", token, nil)
	expect(t, "token after logout", status, body, http.StatusUnauthorized, response.CodeUnauthorized)

	status, body = env.do(t, http.MethodPost, "/api/auth/refresh", "", gin.H{"refresh_token": tokens.RefreshToken})
	expect(t, "refresh after logout", status, body, http.StatusUnauthorized, response.CodeUnauthorized)
}

func TestRefreshKeepsSession(t *testing.T) {
	env := newAPIEnv(t)
	tokens := env.loginTokens(t, "T001")

	status, body := env.do(t, http.MethodPost, "/api/auth/refresh", "", gin.H{"refresh_token": tokens.RefreshToken})
	expect(t, "refresh", status, body, http.StatusOK, response.CodeSuccess)
	var refreshed service.RefreshTokenResponse
	json.Unmarshal(body.Data, &refreshed)

	// 用刷新得到的 Token 登出，整个会话失效
	status, body = env.do(t, http.MethodPost, "/api/auth/logout", refreshed.AccessToken, nil)
	expect(t, "logout", status, body, http.StatusOK, response.CodeSuccess)

	status, body = env.do(t, http.MethodGet, "/api/auth/profile", tokens.AccessToken, nil)
	expect(t, "original token after logout", status, body, http.StatusUnauthorized, response.CodeUnauthorized)
	status, body = env.do(t, http.MethodPost, "/api/auth/refresh", "", gin.H{"refresh_token": tokens.RefreshToken})
	expect(t, "refresh after logout", status, body, http.StatusUnauthorized, response.CodeUnauthorized)
}

func TestReservationFlow(t *testing.T) {
	env := newAPIEnv(t)
	student := env.login(t, "S001")
	student2 := env.login(t, "S002")
	teacher := env.login(t, "T001")
	admin := env.login(t, "A001")

	status, body := env.do(t, http.MethodPost, "/api/devices", student, gin.H{"dname": "示波器A", "type": "示波器"})
	expect(t, "student creates device", status, body, http.StatusForbidden, response.CodeForbidden)

	status, body = env.do(t, http.MethodPost, "/api/devices", admin, gin.H{"dname": "示波器A", "type": "示波器"})
	expect(t, "admin creates device", status, body, http.StatusCreated, response.CodeSuccess)
	var device struct {
		ID int64 `json:"did"`
	}
	json.Unmarshal(body.Data, &device)

	status, body = env.do(t, http.MethodGet, "/api/devices/999", student, nil)
	expect(t, "missing device", status, body, http.StatusNotFound, response.CodeDeviceNotFound)

	status, body = env.do(t, http.MethodGet, "/api/reservations/abc", student, nil)
	expect(t, "bad id", status, body, http.StatusBadRequest, response.CodeBadRequest)

	booking := gin.H{"did": device.ID, "start_time": "2099-01-10 10:00:00", "end_time": "2099-01-10 12:00:00"}
	status, body = env.do(t, http.MethodPost, "/api/reservations", student, booking)
	expect(t, "book", status, body, http.StatusCreated, response.CodeSuccess)
	var reservation service.ReservationView
	json.Unmarshal(body.Data, &reservation)
	if reservation.Status != model.ReservationPending || reservation.StartTime != "2099-01-10 10:00:00" {
		t.Errorf("reservation = %+v", reservation)
	}

	statusPath := fmt.Sprintf("/api/reservations/%d/status", reservation.ID)
	status, body = env.do(t, http.MethodPut, statusPath, student, gin.H{"status": "已确认"})
	expect(t, "student confirms", status, body, http.StatusForbidden, response.CodeForbidden)

	status, body = env.do(t, http.MethodPut, statusPath, teacher, gin.H{"status": "已确认"})
	expect(t, "teacher confirms", status, body, http.StatusOK, response.CodeSuccess)

	clash := gin.H{"did": device.ID, "start_time": "2099-01-10 11:00:00", "end_time": "2099-01-10 13:00:00"}
	status, body = env.do(t, http.MethodPost, "/api/reservations", student2, clash)
	expect(t, "overlapping booking", status, body, http.StatusConflict, response.CodeReservationClash)

	status, body = env.do(t, http.MethodPost, "/api/reservations", student2, gin.H{"did": device.ID, "start_time": "2099-01-10 13:00:00", "end_time": "2099-01-10 12:00:00"})
	expect(t, "reversed range", status, body, http.StatusBadRequest, response.CodeBadRequest)

	status, body = env.do(t, http.MethodGet, "/api/reservations", student2, nil)
	expect(t, "student2 list", status, body, http.StatusOK, response.CodeSuccess)
	var list struct {
		Reservations []service.ReservationView `json:"reservations"`
	}
	json.Unmarshal(body.Data, &list)
	if len(list.Reservations) != 0 {
		t.Errorf("student2 sees %d reservations, want 0", len(list.Reservations))
	}

	status, body = env.do(t, http.MethodPut, fmt.Sprintf("/api/devices/%d/status", device.ID), admin, gin.H{"status": "维修中"})
	expect(t, "device to maintenance", status, body, http.StatusOK, response.CodeSuccess)

	later := gin.H{"did": device.ID, "start_time": "2099-02-01 10:00:00", "end_time": "2099-02-01 11:00:00"}
	status, body = env.do(t, http.MethodPost, "/api/reservations", student2, later)
	expect(t, "device unavailable", status, body, http.StatusConflict, response.CodeDeviceUnavailable)

	status, body = env.do(t, http.MethodDelete, fmt.Sprintf("/api/reservations/%d", reservation.ID), teacher, nil)
	expect(t, "teacher deletes", status, body, http.StatusForbidden, response.CodeForbidden)
}

func TestStatsAndAuditAccess(t *testing.T) {
	env := newAPIEnv(t)
	student := env.login(t, "S001")
	admin := env.login(t, "A001")

	tests := []struct {
		path       string
		token      string
		wantStatus int
		wantCode   int
		wantKey    string
	}{
		{path: "/api/stats/device_usage", token: student, wantStatus: http.StatusOK, wantKey: "device_usage_stats"},
		{path: "/api/stats/user_role", token: student, wantStatus: http.StatusForbidden, wantCode: response.CodeForbidden},
		{path: "/api/stats/user_role", token: admin, wantStatus: http.StatusOK, wantKey: "user_role_stats"},
		{path: "/api/stats/monthly_usage", token: student, wantStatus: http.StatusForbidden, wantCode: response.CodeForbidden},
		{path: "/api/stats/dashboard", token: student, wantStatus: http.StatusOK, wantKey: "dashboard"},
		{path: "/api/audit/audit_logs", token: student, wantStatus: http.StatusForbidden, wantCode: response.CodeForbidden},
		{path: "/api/audit/audit_logs?detailed=true", token: admin, wantStatus: http.StatusOK, wantKey: "audit_logs"},
		{path: "/api/maintenances/overdue", token: student, wantStatus: http.StatusForbidden, wantCode: response.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			status, body := env.do(t, http.MethodGet, tt.path, tt.token, nil)
			expect(t, tt.path, status, body, tt.wantStatus, tt.wantCode)
			if tt.wantKey == "" {
				return
			}
			var data map[string]json.RawMessage
			json.Unmarshal(body.Data, &data)
			if _, ok := data[tt.wantKey]; !ok {
				t.Errorf("data keys = %v, want %s", data, tt.wantKey)
			}
		})
	}
}
