package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// Weekdays lists the schedule keys in calendar order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

const (
	DefaultDeliveryTime = "12:00"
	TimeLayout          = "15:04"
	DateLayout          = "2006-01-02"
)

// ParseWeekday accepts full names, three letter abbreviations and 1-7
// (monday = 1), case-insensitively.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, d := range Weekdays {
		if s == string(d) || s == string(d)[:3] || s == fmt.Sprint(i+1) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown weekday %q", s)
}

// Title returns the capitalized day name.
func (d Weekday) Title() string {
	if d == "" {
		return ""
	}
	return strings.ToUpper(string(d[:1])) + string(d[1:])
}

type DaySchedule struct {
	Enabled bool   `json:"enabled"`
	Time    string `json:"time" validate:"omitempty,datetime=15:04"`
}

// UnmarshalJSON accepts the canonical {enabled,time} object, a bare boolean
// and the backend's {enabled,deliveries:[{time}]} document.
func (d *DaySchedule) UnmarshalJSON(data []byte) error {
	var enabled bool
	if err := json.Unmarshal(data, &enabled); err == nil {
		*d = DaySchedule{Enabled: enabled}
		return nil
	}

	var raw struct {
		Enabled    bool   `json:"enabled"`
		Time       string `json:"time"`
		Deliveries []struct {
			Time string `json:"time"`
		} `json:"deliveries"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode day schedule: %w", err)
	}
	d.Enabled = raw.Enabled
	d.Time = raw.Time
	if d.Time == "" && len(raw.Deliveries) > 0 {
		d.Time = raw.Deliveries[0].Time
	}
	return nil
}

// WeeklySchedule always carries exactly one entry per weekday.
type WeeklySchedule struct {
	Monday    DaySchedule `json:"monday"`
	Tuesday   DaySchedule `json:"tuesday"`
	Wednesday DaySchedule `json:"wednesday"`
	Thursday  DaySchedule `json:"thursday"`
	Friday    DaySchedule `json:"friday"`
	Saturday  DaySchedule `json:"saturday"`
	Sunday    DaySchedule `json:"sunday"`
}

// MissingWeekdays lists the weekdays absent (or null) from the
// weekly_schedule of a schedule document. Decoding treats them as disabled.
func MissingWeekdays(schedule []byte) []Weekday {
	var doc struct {
		Weekly map[string]json.RawMessage `json:"weekly_schedule"`
	}
	if err := json.Unmarshal(schedule, &doc); err != nil {
		return nil
	}
	var missing []Weekday
	for _, day := range Weekdays {
		raw, ok := doc.Weekly[string(day)]
		if !ok || string(raw) == "null" {
			missing = append(missing, day)
		}
	}
	return missing
}

func (w *WeeklySchedule) slot(day Weekday) *DaySchedule {
	switch day {
	case Monday:
		return &w.Monday
	case Tuesday:
		return &w.Tuesday
	case Wednesday:
		return &w.Wednesday
	case Thursday:
		return &w.Thursday
	case Friday:
		return &w.Friday
	case Saturday:
		return &w.Saturday
	case Sunday:
		return &w.Sunday
	}
	return nil
}

func (w WeeklySchedule) Day(day Weekday) DaySchedule {
	if s := w.slot(day); s != nil {
		return *s
	}
	return DaySchedule{}
}

func (w *WeeklySchedule) Set(day Weekday, ds DaySchedule) error {
	s := w.slot(day)
	if s == nil {
		return fmt.Errorf("unknown weekday %q", day)
	}
	*s = ds
	return nil
}

// Toggle flips a day, filling in the default time when a day without one is
// enabled.
func (w *WeeklySchedule) Toggle(day Weekday) {
	s := w.slot(day)
	if s == nil {
		return
	}
	s.Enabled = !s.Enabled
	if s.Enabled && s.Time == "" {
		s.Time = DefaultDeliveryTime
	}
}

func (w WeeklySchedule) EnabledDays() int {
	n := 0
	for _, d := range Weekdays {
		if w.Day(d).Enabled {
			n++
		}
	}
	return n
}

// Validate returns one message per invalid day.
func (w WeeklySchedule) Validate() []string {
	var problems []string
	for _, d := range Weekdays {
		ds := w.Day(d)
		if ds.Enabled && ds.Time == "" {
			problems = append(problems, d.Title()+" needs a delivery time")
			continue
		}
		if ds.Time != "" {
			if _, err := time.Parse(TimeLayout, ds.Time); err != nil {
				problems = append(problems, d.Title()+" time must be HH:MM")
			}
		}
	}
	return problems
}

type HolidayMode struct {
	Enabled   bool   `json:"enabled"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Normalize drops the date range of a disabled holiday.
func (h HolidayMode) Normalize() HolidayMode {
	if !h.Enabled {
		return HolidayMode{Enabled: false}
	}
	return h
}

func (h HolidayMode) Validate() []string {
	if !h.Enabled {
		return nil
	}
	var problems []string
	start, err := time.Parse(DateLayout, h.StartDate)
	if err != nil {
		problems = append(problems, "Start date must be YYYY-MM-DD")
	}
	end, err2 := time.Parse(DateLayout, h.EndDate)
	if err2 != nil {
		problems = append(problems, "End date must be YYYY-MM-DD")
	}
	if err == nil && err2 == nil && end.Before(start) {
		problems = append(problems, "Start date must not be after end date")
	}
	return problems
}

// Covers reports whether the holiday is active on day.
func (h HolidayMode) Covers(day time.Time) bool {
	if !h.Enabled {
		return false
	}
	start, err := time.Parse(DateLayout, h.StartDate)
	if err != nil {
		return false
	}
	end, err := time.Parse(DateLayout, h.EndDate)
	if err != nil {
		return false
	}
	d, _ := time.Parse(DateLayout, day.Format(DateLayout))
	return !d.Before(start) && !d.After(end)
}

type Schedule struct {
	UserID         string         `json:"user_id"`
	UserName       string         `json:"user_name,omitempty"`
	WeeklySchedule WeeklySchedule `json:"weekly_schedule"`
	HolidayMode    HolidayMode    `json:"holiday_mode"`
}

// ScheduleUpdate is the PUT body; holiday_mode is left out unless supplied.
type ScheduleUpdate struct {
	WeeklySchedule WeeklySchedule `json:"weekly_schedule"`
	HolidayMode    *HolidayMode   `json:"holiday_mode,omitempty"`
}

type ScheduleUpdateResponse struct {
	Message  string   `json:"message"`
	Schedule Schedule `json:"schedule"`
}
