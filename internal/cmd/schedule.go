package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/noahxzhu/tiffin-client/internal/model"
	"github.com/noahxzhu/tiffin-client/internal/tiffin"
	"github.com/spf13/cobra"
)

func (c *cli) scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show or change your weekly delivery schedule",
	}
	cmd.AddCommand(c.scheduleShowCmd(), c.scheduleSetDayCmd())
	return cmd
}

func (c *cli) scheduleShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print your weekly schedule and holiday",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.printSchedule(cmd, c.app.MySchedule(cmd.Context()))
		},
	}
}

func (c *cli) scheduleSetDayCmd() *cobra.Command {
	var at string
	var off bool

	cmd := &cobra.Command{
		Use:   "set-day <day>",
		Short: "Enable, disable or retime one weekday",
		Long: `Enable, disable or retime one weekday. <day> is a name (monday),
an abbreviation (mon) or a number from 1 (Monday) to 7 (Sunday).`,
		Example: `  tiffin schedule set-day mon --time 12:30
  tiffin schedule set-day 7 --off`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := model.ParseWeekday(args[0])
			if err != nil {
				return err
			}
			return c.printUpdate(cmd, c.app.SetDay(cmd.Context(), day, !off, at))
		},
	}
	cmd.Flags().StringVarP(&at, "time", "t", "", "delivery time as HH:MM (keeps the current time when omitted)")
	cmd.Flags().BoolVar(&off, "off", false, "disable deliveries on this day")
	cmd.MarkFlagsMutuallyExclusive("time", "off")
	return cmd
}

func (c *cli) holidayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "holiday",
		Short: "Pause deliveries for a date range",
	}

	var h model.HolidayMode
	enable := &cobra.Command{
		Use:     "enable",
		Short:   "Pause deliveries between two dates (inclusive)",
		Example: `  tiffin holiday enable --from 2026-05-01 --to 2026-05-10 --reason travel`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h.Enabled = true
			return c.printUpdate(cmd, c.app.SetHoliday(cmd.Context(), h))
		},
	}
	enable.Flags().StringVar(&h.StartDate, "from", "", "first day off, YYYY-MM-DD")
	enable.Flags().StringVar(&h.EndDate, "to", "", "last day off, YYYY-MM-DD")
	enable.Flags().StringVar(&h.Reason, "reason", "", "optional note")
	_ = enable.MarkFlagRequired("from")
	_ = enable.MarkFlagRequired("to")

	disable := &cobra.Command{
		Use:   "disable",
		Short: "Resume deliveries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.printUpdate(cmd, c.app.SetHoliday(cmd.Context(), model.HolidayMode{}))
		},
	}

	cmd.AddCommand(enable, disable)
	return cmd
}

func (c *cli) schedulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedules",
		Short: "List every user's schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res := c.app.AllSchedules(cmd.Context())
			var all []model.Schedule
			if err := res.Decode(&all); err != nil {
				return c.fail(cmd.OutOrStdout(), tiffin.AsFailure(res, err))
			}
			return c.render(cmd.OutOrStdout(), all, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "USER\tDAYS\tHOLIDAY")
				for _, s := range all {
					fmt.Fprintf(tw, "%s\t%d\t%s\n", orDash(s.UserName), s.WeeklySchedule.EnabledDays(), holidayText(s.HolidayMode))
				}
				tw.Flush()
			})
		},
	}
}

func (c *cli) printSchedule(cmd *cobra.Command, res tiffin.Result) error {
	var sched model.Schedule
	if err := res.Decode(&sched); err != nil {
		return c.fail(cmd.OutOrStdout(), tiffin.AsFailure(res, err))
	}
	return c.render(cmd.OutOrStdout(), sched, func(w io.Writer) {
		writeWeek(w, sched)
	})
}

func (c *cli) printUpdate(cmd *cobra.Command, res tiffin.Result) error {
	var resp model.ScheduleUpdateResponse
	if err := res.Decode(&resp); err != nil {
		return c.fail(cmd.OutOrStdout(), tiffin.AsFailure(res, err))
	}
	return c.render(cmd.OutOrStdout(), resp, func(w io.Writer) {
		fmt.Fprintln(w, orDefault(resp.Message, "Schedule updated"))
		if resp.Schedule.UserID != "" {
			fmt.Fprintln(w)
			writeWeek(w, resp.Schedule)
		}
	})
}

func writeWeek(w io.Writer, sched model.Schedule) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, day := range model.Weekdays {
		ds := sched.WeeklySchedule.Day(day)
		state := "off"
		if ds.Enabled {
			state = ds.Time
		}
		fmt.Fprintf(tw, "%s\t%s\n", day.Title(), state)
	}
	fmt.Fprintf(tw, "Holiday\t%s\n", holidayText(sched.HolidayMode))
	tw.Flush()
}

func holidayText(h model.HolidayMode) string {
	if !h.Enabled {
		return "off"
	}
	s := h.StartDate + " to " + h.EndDate
	if h.Reason != "" {
		s += " (" + h.Reason + ")"
	}
	return s
}

func orDash(s string) string {
	return orDefault(s, "-")
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
