package models

import "time"

// NotificationType classifies what a notification is about.
type NotificationType string

const (
	NotificationWorkOrderAssigned NotificationType = "wo_assigned"
	NotificationWorkOrderOverdue  NotificationType = "wo_overdue"
	NotificationPMDue             NotificationType = "pm_due"
	NotificationPMEscalation      NotificationType = "pm_escalation"
	NotificationEquipmentAlert    NotificationType = "equipment_alert"
)

// Channel is a delivery transport a notification asks for.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// Notification is a structured message handed to the delivery transports.
type Notification struct {
	ID          string           `json:"id" bson:"_id"`
	UserID      string           `json:"user_id" bson:"user_id"`
	Type        NotificationType `json:"type" bson:"type"`
	Title       string           `json:"title" bson:"title"`
	Message     string           `json:"message" bson:"message"`
	Priority    Priority         `json:"priority" bson:"priority"`
	Channels    []Channel        `json:"channels" bson:"channels"`
	Read        bool             `json:"read" bson:"read"`
	WorkOrderID string           `json:"work_order_id,omitempty" bson:"work_order_id,omitempty"`
	EquipmentID string           `json:"equipment_id,omitempty" bson:"equipment_id,omitempty"`
	WarehouseID string           `json:"warehouse_id" bson:"warehouse_id"`
	CreatedAt   time.Time        `json:"created_at" bson:"created_at"`
}
