package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/noahxzhu/tiffin-client/internal/model"
	"github.com/noahxzhu/tiffin-client/internal/tiffin"
)

const recentShown = 5

type dashboardTab struct {
	loaded bool
	stats  model.DashboardStats
}

func (d dashboardTab) view() string {
	if !d.loaded {
		return mutedStyle.Render("Loading dashboard...")
	}
	s := d.stats
	var b strings.Builder
	fmt.Fprintf(&b, "Users:            %d\n", s.TotalUsers)
	fmt.Fprintf(&b, "Today:            %d of %d delivered\n", s.TodayDelivered, s.TodayScheduled)
	fmt.Fprintf(&b, "Last 7 days:      %d of %d delivered\n", s.WeekDelivered, s.WeekTotal)
	fmt.Fprintf(&b, "Active schedules: %d\n", len(s.Schedules))

	if len(s.RecentDeliveries) > 0 {
		b.WriteString("\nRecent deliveries\n")
		for i, r := range s.RecentDeliveries {
			if i == recentShown {
				break
			}
			fmt.Fprintf(&b, "  %s %s  %-12s %s\n", r.DeliveryDate, r.ScheduledTime, r.UserName, r.StatusLabel())
		}
	}
	return b.String()
}

type deliveriesTab struct {
	loaded bool
	list   []model.DeliveryRecord
	cursor int
}

func (d *deliveriesTab) set(list []model.DeliveryRecord) {
	d.list = list
	d.loaded = true
	if d.cursor >= len(list) {
		d.cursor = max(len(list)-1, 0)
	}
}

// markDelivered replaces the record with the server's copy, or flips the
// local one when the response carried none.
func (d *deliveriesTab) markDelivered(id string, updated model.DeliveryRecord) {
	for i := range d.list {
		if d.list[i].ID != id {
			continue
		}
		if updated.ID == id {
			d.list[i] = updated
		} else {
			d.list[i].Delivered = true
			d.list[i].Status = model.DeliveryDelivered
		}
		return
	}
}

func (m Model) updateDeliveries(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := &m.deliveries
	switch msg.String() {
	case "up", "k":
		if d.cursor > 0 {
			d.cursor--
		}
	case "down", "j":
		if d.cursor < len(d.list)-1 {
			d.cursor++
		}
	case "d", "enter":
		if len(d.list) == 0 {
			return m, nil
		}
		rec := d.list[d.cursor]
		if rec.Delivered {
			m.notice = "Already delivered"
			return m, nil
		}
		a, id := m.app, rec.ID
		cmd := m.dispatch(keyMarkPrefix+id, func(ctx context.Context) tiffin.Result {
			return a.MarkDelivered(ctx, id)
		})
		return m, cmd
	}
	return m, nil
}

func (d deliveriesTab) view(busy map[string]bool) string {
	if !d.loaded {
		return mutedStyle.Render("Loading deliveries...")
	}
	if len(d.list) == 0 {
		return mutedStyle.Render(fmt.Sprintf("No deliveries in the last %d days.", tiffin.DefaultDeliveryDays))
	}

	var b strings.Builder
	for i, r := range d.list {
		pointer := "  "
		if i == d.cursor {
			pointer = cursorStyle.Render("> ")
		}
		status := r.StatusLabel()
		switch {
		case busy[keyMarkPrefix+r.ID]:
			status = mutedStyle.Render("saving...")
		case r.Delivered:
			status = enabledStyle.Render(status)
		default:
			status = mutedStyle.Render(status)
		}
		fmt.Fprintf(&b, "%s%s %s  x%d  %s\n", pointer, r.DeliveryDate, r.ScheduledTime, max(r.Quantity, 1), status)
	}
	return b.String()
}
