// Package main 是实验室设备预约服务的入口点
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"lab-reservation-server/internal/cache"
	"lab-reservation-server/internal/config"
	"lab-reservation-server/internal/database"
	"lab-reservation-server/internal/handler"
	"lab-reservation-server/internal/middleware"
	"lab-reservation-server/internal/repository"
	"lab-reservation-server/internal/service"
	"lab-reservation-server/internal/websocket"
	"lab-reservation-server/pkg/jwt"
	"lab-reservation-server/pkg/logger"
)

const serviceName = "lab-reservation-server"

func main() {
	// 加载配置
	cfg, err := config.Load("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: serviceName,
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	loc := cfg.Server.Location()

	// 初始化数据库
	db, err := database.Open(cfg, log)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	defer sqlDB.Close()
	log.Info().Str("driver", cfg.Database.Driver).Msg("database connected")

	// 自动迁移数据库表
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	// 初始化 Redis
	redisCache, err := cache.NewRedisCache(cfg)
	if err != nil {
		return fmt.Errorf("init redis: %w", err)
	}
	defer func() {
		if err := redisCache.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis failed")
		}
	}()

	// 初始化 JWT 服务
	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpire, cfg.JWT.RefreshExpire)

	// 初始化 Repository 层
	store := repository.NewStore(db)

	// 初始化 Service 层
	authService := service.NewAuthService(store, redisCache, jwtService, log)
	userService := service.NewUserService(store, cfg.Auth.PasswordScheme)
	deviceService := service.NewDeviceService(store)
	roomService := service.NewRoomService(store)
	reservationService := service.NewReservationService(store, loc, log)
	maintenanceService := service.NewMaintenanceService(store, loc, cfg.Maintenance.OverdueAfter, log)
	statsService := service.NewStatsService(store, redisCache, cfg.Stats.CacheTTL, loc, log)
	auditService := service.NewAuditService(store, loc)

	// 初始化 WebSocket Hub，业务事件经它推送
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	wsHub := websocket.NewHub(redisCache, loc, log)
	go wsHub.Run(ctx)
	reservationService.SetNotifier(wsHub)
	maintenanceService.SetNotifier(wsHub)
	deviceService.SetNotifier(wsHub)

	// 初始化 Handler 层
	handlers := &handler.Handlers{
		Auth:        handler.NewAuthHandler(authService, userService),
		User:        handler.NewUserHandler(userService),
		Device:      handler.NewDeviceHandler(deviceService),
		Room:        handler.NewRoomHandler(roomService),
		Reservation: handler.NewReservationHandler(reservationService),
		Maintenance: handler.NewMaintenanceHandler(maintenanceService),
		Stats:       handler.NewStatsHandler(statsService),
		Audit:       handler.NewAuditHandler(auditService),
	}
	wsHandler := websocket.NewHandler(wsHub, jwtService, redisCache, cfg.Server.CORS, log)

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 全局中间件
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.CORSMiddleware(middleware.DefaultCORSConfig(cfg.Server.CORS...)))

	// 注册路由
	handler.RegisterRoutes(router, handlers, middleware.AuthMiddleware(jwtService, redisCache))
	wsHandler.RegisterRoutes(router)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// 在 goroutine 中启动服务器
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down server")
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 先停止接收请求，再关闭实时连接
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	stop()

	log.Info().Msg("server exited")
	return nil
}
