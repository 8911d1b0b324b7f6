package models

import "time"

// EscalationAction records one escalation step for audit.
type EscalationAction struct {
	ID                string    `json:"id" bson:"_id"`
	WorkOrderID       string    `json:"work_order_id" bson:"work_order_id"`
	WarehouseID       string    `json:"warehouse_id" bson:"warehouse_id"`
	EscalationLevel   int       `json:"escalation_level" bson:"escalation_level"`
	EscalatedToUserID string    `json:"escalated_to_user_id" bson:"escalated_to_user_id"`
	EscalatedBy       string    `json:"escalated_by,omitempty" bson:"escalated_by,omitempty"`
	PreviousAssignee  string    `json:"previous_assignee,omitempty" bson:"previous_assignee,omitempty"`
	Reason            string    `json:"reason" bson:"reason"`
	Manual            bool      `json:"manual" bson:"manual"`
	EscalatedAt       time.Time `json:"escalated_at" bson:"escalated_at"`
}

// EscalationStats counts escalated work orders of a warehouse.
type EscalationStats struct {
	TotalEscalated int              `json:"total_escalated"`
	EscalatedToday int              `json:"escalated_today"`
	ByLevel        map[int]int      `json:"by_level"`
	ByPriority     map[Priority]int `json:"by_priority"`
}

// ComplianceEscalation is a notification raised for equipment below the compliance target.
type ComplianceEscalation struct {
	EquipmentID          string   `json:"equipment_id"`
	CompliancePercentage float64  `json:"compliance_percentage"`
	MissedPMCount        int      `json:"missed_pm_count"`
	NotifiedUserIDs      []string `json:"notified_user_ids"`
}
