package app

import (
	"context"
	"strings"

	"github.com/noahxzhu/tiffin-client/internal/model"
	"github.com/noahxzhu/tiffin-client/internal/tiffin"
)

func (a *App) MySchedule(ctx context.Context) tiffin.Result {
	id, fail, ok := a.userID()
	if !ok {
		return fail
	}
	res := a.Gateway.GetMySchedule(ctx, id)
	if res.OK() {
		if missing := model.MissingWeekdays(res.Body); len(missing) > 0 {
			a.Logger.Warn("Schedule is missing weekdays, treating them as disabled", "user_id", id, "missing", missing)
		}
	}
	return res
}

// SaveSchedule validates locally and then writes the whole week. A nil
// holiday leaves the stored holiday untouched.
func (a *App) SaveSchedule(ctx context.Context, weekly model.WeeklySchedule, holiday *model.HolidayMode) tiffin.Result {
	id, fail, ok := a.userID()
	if !ok {
		return fail
	}
	msgs := weekly.Validate()
	if holiday != nil {
		msgs = append(msgs, holiday.Validate()...)
	}
	if len(msgs) > 0 {
		return tiffin.Failed(tiffin.KindValidation, msgs...)
	}
	return a.Gateway.UpdateSchedule(ctx, id, weekly, holiday)
}

// SetDay changes one weekday, keeping the rest of the stored schedule.
// An empty at keeps the day's current time.
func (a *App) SetDay(ctx context.Context, day model.Weekday, enabled bool, at string) tiffin.Result {
	ds := model.DaySchedule{Enabled: enabled, Time: strings.TrimSpace(at)}
	if msgs := model.Check(ds); len(msgs) > 0 {
		return tiffin.Failed(tiffin.KindValidation, msgs...)
	}

	res := a.MySchedule(ctx)
	var sched model.Schedule
	if err := res.Decode(&sched); err != nil {
		return tiffin.AsFailure(res, err)
	}

	current := sched.WeeklySchedule.Day(day)
	if ds.Time == "" {
		ds.Time = current.Time
	}
	if ds.Enabled && ds.Time == "" {
		ds.Time = model.DefaultDeliveryTime
	}
	if err := sched.WeeklySchedule.Set(day, ds); err != nil {
		return tiffin.Failed(tiffin.KindValidation, err.Error())
	}
	return a.SaveSchedule(ctx, sched.WeeklySchedule, nil)
}

// SetHoliday replaces the holiday window and resends the stored week.
func (a *App) SetHoliday(ctx context.Context, holiday model.HolidayMode) tiffin.Result {
	holiday = holiday.Normalize()
	if msgs := holiday.Validate(); len(msgs) > 0 {
		return tiffin.Failed(tiffin.KindValidation, msgs...)
	}

	res := a.MySchedule(ctx)
	var sched model.Schedule
	if err := res.Decode(&sched); err != nil {
		return tiffin.AsFailure(res, err)
	}
	return a.SaveSchedule(ctx, sched.WeeklySchedule, &holiday)
}

func (a *App) Stats(ctx context.Context) tiffin.Result {
	if _, fail, ok := a.userID(); !ok {
		return fail
	}
	return a.Gateway.GetDashboardStats(ctx)
}

func (a *App) AllSchedules(ctx context.Context) tiffin.Result {
	if _, fail, ok := a.userID(); !ok {
		return fail
	}
	return a.Gateway.GetAllSchedules(ctx)
}

func (a *App) MyDeliveries(ctx context.Context, days int) tiffin.Result {
	id, fail, ok := a.userID()
	if !ok {
		return fail
	}
	return a.Gateway.GetMyDeliveries(ctx, id, days)
}

func (a *App) MarkDelivered(ctx context.Context, deliveryID string) tiffin.Result {
	if _, fail, ok := a.userID(); !ok {
		return fail
	}
	deliveryID = strings.TrimSpace(deliveryID)
	if deliveryID == "" {
		return tiffin.Failed(tiffin.KindValidation, "Delivery id is required")
	}
	return a.Gateway.MarkDelivered(ctx, deliveryID)
}
