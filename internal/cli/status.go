package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lab-reservation-server/internal/cache"
)

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "检查数据库和 Redis 连接，并输出数据概况",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.close()

			out := cmd.OutOrStdout()
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			if err := e.store.Ping(ctx); err != nil {
				fmt.Fprintf(out, "database: ✗ %v\n", err)
				return errors.New("数据库不可用")
			}
			fmt.Fprintf(out, "database: ✓ %s\n", e.cfg.Database.Driver)

			// Redis 不可用时服务端无法启动，但这里只报告不中断
			if redisCache, err := cache.NewRedisCache(e.cfg); err != nil {
				fmt.Fprintf(out, "redis: ✗ %v\n", err)
			} else {
				fmt.Fprintln(out, "redis: ✓")
				redisCache.Close()
			}

			users, err := e.store.Users.Count(ctx)
			if err != nil {
				return fmt.Errorf("统计用户失败: %w", err)
			}
			fmt.Fprintf(out, "users: %d\n", users)

			devices, err := e.store.Devices.CountByStatus(ctx)
			if err != nil {
				return fmt.Errorf("统计设备失败: %w", err)
			}
			fmt.Fprint(out, "devices:")
			for _, row := range devices {
				fmt.Fprintf(out, " %s=%d", row.Status, row.Count)
			}
			fmt.Fprintln(out)

			reservations, err := e.store.Reservations.CountByStatus(ctx)
			if err != nil {
				return fmt.Errorf("统计预约失败: %w", err)
			}
			fmt.Fprint(out, "reservations:")
			for _, row := range reservations {
				fmt.Fprintf(out, " %s=%d", row.Status, row.Count)
			}
			fmt.Fprintln(out)

			pending, err := e.store.Maintenances.ListPending(ctx)
			if err != nil {
				return fmt.Errorf("统计维护记录失败: %w", err)
			}
			fmt.Fprintf(out, "pending maintenances: %d\n", len(pending))
			return nil
		},
	}
}
