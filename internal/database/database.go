// Package database 负责建立数据库连接和表结构迁移
// 生产环境使用 MySQL，本地开发和测试可以使用 SQLite
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"lab-reservation-server/internal/config"
	"lab-reservation-server/internal/model"
)

// Open 按配置的驱动打开数据库连接
// 参数:
//   - cfg: 应用配置
//   - log: 日志实例，GORM 的日志会转发到这里
//
// 返回:
//   - *gorm.DB: 数据库连接
//   - error: 连接错误
func Open(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	slow := 200 * time.Millisecond
	level := zerolog.DebugLevel
	if cfg.Server.Mode == "release" {
		level = zerolog.WarnLevel
	}
	// 关联只用于预加载，不在库里建外键，删除语义由业务层决定
	gormCfg := &gorm.Config{
		Logger:                                   NewGormLogger(log, level, slow),
		DisableForeignKeyConstraintWhenMigrating: true,
	}

	switch cfg.Database.Driver {
	case "sqlite":
		return openSQLite(cfg.Database.SQLitePath, gormCfg)
	default:
		return openMySQL(cfg.MySQL, gormCfg)
	}
}

func openMySQL(cfg config.MySQLConfig, gormCfg *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// 获取底层 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 配置连接池
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	return db, nil
}

// OpenSQLite 打开 SQLite 数据库
// path 为 ":memory:" 时创建内存数据库，测试使用
func OpenSQLite(path string, log zerolog.Logger) (*gorm.DB, error) {
	return openSQLite(path, &gorm.Config{
		Logger:                                   NewGormLogger(log, zerolog.WarnLevel, 200*time.Millisecond),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
}

func openSQLite(path string, gormCfg *gorm.Config) (*gorm.DB, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite dir: %w", err)
		}
		dsn = path + "?_foreign_keys=on&_busy_timeout=5000"
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// SQLite 同一时刻只允许一个写者，单连接让事务天然串行
	// 内存库也依赖单连接，否则每个连接看到的是不同的库
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// Migrate 自动迁移所有表
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Room{},
		&model.Device{},
		&model.Reservation{},
		&model.Maintenance{},
		&model.AuditLog{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}
