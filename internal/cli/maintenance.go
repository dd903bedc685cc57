package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lab-reservation-server/internal/service"
)

func newMaintenanceCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "维护记录",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "overdue",
		Short: "列出超期未处理的维护记录",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.close()

			svc := service.NewMaintenanceService(e.store, e.cfg.Server.Location(), e.cfg.Maintenance.OverdueAfter, e.log)
			records, err := svc.Overdue(cmd.Context())
			if err != nil {
				return fmt.Errorf("查询失败: %s", service.MessageOf(err))
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintf(out, "没有超过 %s 未处理的维护记录\n", e.cfg.Maintenance.OverdueAfter)
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MID\t设备\t上报时间\t问题")
			for _, m := range records {
				device := m.DeviceName
				if device == "" {
					device = fmt.Sprintf("#%d", m.DeviceID)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", m.ID, device, m.ReportTime, m.Issue)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "共 %d 条超期记录\n", len(records))
			return nil
		},
	})
	return cmd
}
