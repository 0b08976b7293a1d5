package model

import "encoding/json"

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryCancelled DeliveryStatus = "cancelled"
	DeliveryHoliday   DeliveryStatus = "holiday"
)

type DeliveryRecord struct {
	ID            string         `json:"delivery_id"`
	UserName      string         `json:"user_name,omitempty"`
	DeliveryDate  string         `json:"delivery_date"`
	ScheduledTime string         `json:"scheduled_time"`
	Quantity      int            `json:"quantity,omitempty"`
	Delivered     bool           `json:"delivered"`
	Status        DeliveryStatus `json:"status,omitempty"`
	Notes         string         `json:"notes,omitempty"`
}

// UnmarshalJSON reads the identifier from "delivery_id", "id" or "_id".
func (d *DeliveryRecord) UnmarshalJSON(data []byte) error {
	type plain DeliveryRecord
	var raw struct {
		plain
		ID      string `json:"id"`
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = DeliveryRecord(raw.plain)
	if d.ID == "" {
		d.ID = raw.ID
	}
	if d.ID == "" {
		d.ID = raw.MongoID
	}
	return nil
}

// StatusLabel is the status shown to users; older records carry only the
// delivered flag.
func (d DeliveryRecord) StatusLabel() string {
	if d.Status != "" {
		return string(d.Status)
	}
	if d.Delivered {
		return string(DeliveryDelivered)
	}
	return string(DeliveryPending)
}

type MarkDeliveredResponse struct {
	Message  string         `json:"message"`
	Delivery DeliveryRecord `json:"delivery"`
}

// DashboardStats is a read-only projection computed by the backend.
type DashboardStats struct {
	TotalUsers       int              `json:"total_users"`
	TodayScheduled   int              `json:"today_scheduled"`
	TodayDelivered   int              `json:"today_delivered"`
	WeekTotal        int              `json:"week_total"`
	WeekDelivered    int              `json:"week_delivered"`
	Schedules        []Schedule       `json:"schedules"`
	RecentDeliveries []DeliveryRecord `json:"recent_deliveries"`
}
