// Package cli 实现管理命令行 labctl
// 直接连接数据库执行迁移、建用户等运维操作，不经过 HTTP 接口
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"lab-reservation-server/internal/config"
	"lab-reservation-server/internal/database"
	"lab-reservation-server/internal/repository"
	"lab-reservation-server/pkg/logger"
)

// options 全局参数
type options struct {
	configDir string
}

// NewRootCommand 创建 labctl 根命令
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "labctl",
		Short: "实验室设备预约系统管理工具",
		Long: `labctl 实验室设备预约系统管理工具

读取与服务端相同的配置文件，直接操作数据库。
首次部署时先执行 labctl migrate 建表，再用 labctl user create 创建管理员。`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configDir, "config", "c", "./configs", "配置文件目录")

	root.AddCommand(
		newMigrateCommand(opts),
		newUserCommand(opts),
		newMaintenanceCommand(opts),
		newStatusCommand(opts),
	)
	return root
}

// Execute 执行根命令
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// env 命令执行环境
type env struct {
	cfg   *config.Config
	db    *gorm.DB
	store *repository.Store
	log   zerolog.Logger
}

// open 加载配置并连接数据库，调用方负责 close
func (o *options) open() (*env, error) {
	cfg, err := config.Load(o.configDir)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	// 命令行输出给人看，日志走 stderr 的文本格式
	log := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      "text",
		ServiceName: "labctl",
		Output:      os.Stderr,
	})

	db, err := database.Open(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}
	return &env{cfg: cfg, db: db, store: repository.NewStore(db), log: log}, nil
}

func (e *env) close() {
	if sqlDB, err := e.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "创建或更新数据库表结构",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.close()

			if err := database.Migrate(e.db); err != nil {
				return fmt.Errorf("迁移失败: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ 数据库迁移完成")
			return nil
		},
	}
}
