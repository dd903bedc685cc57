// Package config 负责加载和管理应用程序的配置
// 使用 viper 库支持 YAML 配置文件和环境变量覆盖
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 是应用程序的根配置结构
// 包含所有子配置模块
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`      // 服务器配置
	Database    DatabaseConfig    `mapstructure:"database"`    // 数据库驱动选择
	MySQL       MySQLConfig       `mapstructure:"mysql"`       // MySQL 配置
	Redis       RedisConfig       `mapstructure:"redis"`       // Redis 配置
	JWT         JWTConfig         `mapstructure:"jwt"`         // JWT 配置
	Log         LogConfig         `mapstructure:"log"`         // 日志配置
	Auth        AuthConfig        `mapstructure:"auth"`        // 认证配置
	Maintenance MaintenanceConfig `mapstructure:"maintenance"` // 维护规则配置
	Stats       StatsConfig       `mapstructure:"stats"`       // 统计配置
}

// ServerConfig 服务器相关配置
type ServerConfig struct {
	Port     int      `mapstructure:"port"`     // 监听端口，默认 8080
	Mode     string   `mapstructure:"mode"`     // 运行模式: debug / release
	CORS     []string `mapstructure:"cors"`     // CORS 允许的域名
	Timezone string   `mapstructure:"timezone"` // 边界时间字符串使用的时区，如 Asia/Shanghai
}

// DatabaseConfig 数据库驱动配置
type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"`      // mysql / sqlite
	SQLitePath string `mapstructure:"sqlite_path"` // sqlite 文件路径，仅 driver=sqlite 时使用
}

// MySQLConfig MySQL 数据库连接配置
type MySQLConfig struct {
	Host         string `mapstructure:"host"`           // 数据库主机地址
	Port         int    `mapstructure:"port"`           // 数据库端口
	Username     string `mapstructure:"username"`       // 数据库用户名
	Password     string `mapstructure:"password"`       // 数据库密码
	Database     string `mapstructure:"database"`       // 数据库名称
	Charset      string `mapstructure:"charset"`        // 字符集
	MaxIdleConns int    `mapstructure:"max_idle_conns"` // 最大空闲连接数
	MaxOpenConns int    `mapstructure:"max_open_conns"` // 最大打开连接数
	MaxLifetime  int    `mapstructure:"max_lifetime"`   // 连接最大生命周期（秒）
}

// DSN 构建 MySQL 连接字符串
func (m MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		m.Username,
		m.Password,
		m.Host,
		m.Port,
		m.Database,
		m.Charset,
	)
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Host     string `mapstructure:"host"`      // Redis 主机地址
	Port     int    `mapstructure:"port"`      // Redis 端口
	Username string `mapstructure:"username"`  // Redis 用户名
	Password string `mapstructure:"password"`  // Redis 密码
	DB       int    `mapstructure:"db"`        // 数据库索引 (0-15)
	PoolSize int    `mapstructure:"pool_size"` // 连接池大小
}

// JWTConfig JWT 认证配置
type JWTConfig struct {
	Secret        string        `mapstructure:"secret"`         // JWT 签名密钥，至少32字符
	AccessExpire  time.Duration `mapstructure:"access_expire"`  // Access Token 过期时间
	RefreshExpire time.Duration `mapstructure:"refresh_expire"` // Refresh Token 过期时间
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug/info/warn/error
	Format string `mapstructure:"format"` // 日志格式: json/text
}

// AuthConfig 认证相关配置
type AuthConfig struct {
	// PasswordScheme 新密码使用的哈希方案: sha256 / bcrypt
	// 校验时两种格式都能识别，已有的 sha256 十六进制摘要继续可用
	PasswordScheme string `mapstructure:"password_scheme"`
}

// MaintenanceConfig 维护规则配置
type MaintenanceConfig struct {
	OverdueAfter time.Duration `mapstructure:"overdue_after"` // 待处理多久算超期，默认 24h
}

// StatsConfig 统计配置
type StatsConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"` // 仪表盘缓存时间，0 表示不缓存
}

// Location 返回边界时间使用的时区
// 配置为空或无法识别时回退到本地时区
func (s ServerConfig) Location() *time.Location {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Load 从指定路径加载配置文件
// 支持 .env 文件和环境变量覆盖配置项
// 参数:
//   - configPath: 配置文件目录路径 (如 "./configs")
//
// 返回:
//   - *Config: 配置对象
//   - error: 如果加载失败则返回错误
func Load(configPath string) (*Config, error) {
	// 先加载 .env，文件不存在时忽略
	_ = godotenv.Load()

	// 创建新的 viper 实例
	v := viper.New()

	// 设置配置文件
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	// 启用环境变量
	// 例如: MYSQL_HOST -> mysql.host
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvVariables(v)
	setDefaults(v)

	// 读取配置文件（如果不存在则使用默认值和环境变量）
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate 校验互相依赖的配置项
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Auth.PasswordScheme {
	case "sha256", "bcrypt":
	default:
		return fmt.Errorf("unsupported password scheme %q", c.Auth.PasswordScheme)
	}
	if c.Maintenance.OverdueAfter <= 0 {
		return fmt.Errorf("maintenance.overdue_after must be positive")
	}
	return nil
}

// bindEnvVariables 绑定环境变量到配置项
func bindEnvVariables(v *viper.Viper) {
	// 服务器配置
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.timezone", "SERVER_TIMEZONE")

	// 数据库配置
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.sqlite_path", "DATABASE_SQLITE_PATH")

	// MySQL 配置
	v.BindEnv("mysql.host", "MYSQL_HOST")
	v.BindEnv("mysql.port", "MYSQL_PORT")
	v.BindEnv("mysql.username", "MYSQL_USERNAME")
	v.BindEnv("mysql.password", "MYSQL_PASSWORD")
	v.BindEnv("mysql.database", "MYSQL_DATABASE")

	// Redis 配置
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.username", "REDIS_USERNAME")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// JWT 配置
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// 日志配置
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.format", "LOG_FORMAT")

	v.BindEnv("auth.password_scheme", "AUTH_PASSWORD_SCHEME")
}

// setDefaults 设置配置项的默认值
// 当配置文件中没有指定某个值时，将使用这里设置的默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("server.timezone", "Local")

	// 数据库默认配置
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.sqlite_path", "./data/room_management.db")

	// MySQL 默认配置
	v.SetDefault("mysql.host", "localhost")
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("mysql.database", "RoomManagement")
	v.SetDefault("mysql.charset", "utf8mb4")
	v.SetDefault("mysql.max_idle_conns", 10)
	v.SetDefault("mysql.max_open_conns", 100)
	v.SetDefault("mysql.max_lifetime", 3600)

	// Redis 默认配置
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 100)

	// JWT 默认配置
	v.SetDefault("jwt.access_expire", "24h")
	v.SetDefault("jwt.refresh_expire", "168h")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("auth.password_scheme", "sha256")
	v.SetDefault("maintenance.overdue_after", "24h")
	v.SetDefault("stats.cache_ttl", "30s")
}
