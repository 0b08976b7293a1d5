package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/noahxzhu/tiffin-client/internal/model"
	"github.com/noahxzhu/tiffin-client/internal/tiffin"
	"github.com/spf13/cobra"
)

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res := c.app.Stats(cmd.Context())
			var stats model.DashboardStats
			if err := res.Decode(&stats); err != nil {
				return c.fail(cmd.OutOrStdout(), tiffin.AsFailure(res, err))
			}
			return c.render(cmd.OutOrStdout(), stats, func(w io.Writer) {
				fmt.Fprintf(w, "Users:            %d\n", stats.TotalUsers)
				fmt.Fprintf(w, "Today:            %d of %d delivered\n", stats.TodayDelivered, stats.TodayScheduled)
				fmt.Fprintf(w, "Last 7 days:      %d of %d delivered\n", stats.WeekDelivered, stats.WeekTotal)
				fmt.Fprintf(w, "Active schedules: %d\n", len(stats.Schedules))
				if len(stats.RecentDeliveries) > 0 {
					fmt.Fprintln(w)
					writeDeliveries(w, stats.RecentDeliveries)
				}
			})
		},
	}
}

func (c *cli) deliveriesCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "deliveries",
		Short: "List your recent deliveries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res := c.app.MyDeliveries(cmd.Context(), days)
			var list []model.DeliveryRecord
			if err := res.Decode(&list); err != nil {
				return c.fail(cmd.OutOrStdout(), tiffin.AsFailure(res, err))
			}
			return c.render(cmd.OutOrStdout(), list, func(w io.Writer) {
				if len(list) == 0 {
					fmt.Fprintf(w, "No deliveries in the last %d days\n", effectiveDays(days))
					return
				}
				writeDeliveries(w, list)
			})
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", tiffin.DefaultDeliveryDays, "how many days back to look")
	return cmd
}

func (c *cli) deliverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deliver <delivery-id>",
		Short: "Mark a delivery as delivered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := c.app.MarkDelivered(cmd.Context(), args[0])
			var resp model.MarkDeliveredResponse
			if err := res.Decode(&resp); err != nil {
				return c.fail(cmd.OutOrStdout(), tiffin.AsFailure(res, err))
			}
			return c.render(cmd.OutOrStdout(), resp, func(w io.Writer) {
				fmt.Fprintln(w, orDefault(resp.Message, "Marked as delivered"))
			})
		},
	}
}

func writeDeliveries(w io.Writer, list []model.DeliveryRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTIME\tQTY\tSTATUS")
	for _, d := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", d.ID, d.DeliveryDate, d.ScheduledTime, max(d.Quantity, 1), d.StatusLabel())
	}
	tw.Flush()
}

func effectiveDays(days int) int {
	if days <= 0 {
		return tiffin.DefaultDeliveryDays
	}
	return days
}
