package models

import "time"

// PMStatus classifies one template's obligation for one piece of equipment.
type PMStatus string

const (
	PMCompliant PMStatus = "compliant"
	PMDue       PMStatus = "due"
	PMOverdue   PMStatus = "overdue"
)

// PMSchedule is the computed state of one (equipment, template) pair.
type PMSchedule struct {
	EquipmentID     string     `json:"equipment_id"`
	TemplateID      string     `json:"template_id"`
	Component       string     `json:"component"`
	Action          string     `json:"action"`
	Frequency       Frequency  `json:"frequency"`
	LastCompletedAt *time.Time `json:"last_completed_at,omitempty"`
	NextDueDate     time.Time  `json:"next_due_date"`
	Status          PMStatus   `json:"status"`
	OpenWorkOrderID string     `json:"open_work_order_id,omitempty"`
	CompletedCount  int        `json:"completed_count"`
}

// Missed reports whether the obligation is past due with nothing open to cover it.
func (s *PMSchedule) Missed(now time.Time) bool {
	return s.NextDueDate.Before(now) && s.OpenWorkOrderID == ""
}

// ComplianceRecord summarises PM compliance for one piece of equipment.
type ComplianceRecord struct {
	EquipmentID          string       `json:"equipment_id"`
	AssetTag             string       `json:"asset_tag"`
	TotalPMCount         int          `json:"total_pm_count"`
	MissedPMCount        int          `json:"missed_pm_count"`
	LastPMDate           *time.Time   `json:"last_pm_date,omitempty"`
	NextPMDueDate        *time.Time   `json:"next_pm_due_date,omitempty"`
	CompliancePercentage float64      `json:"compliance_percentage"`
	Schedules            []PMSchedule `json:"schedules"`
}

// CompliancePercentage is (total - missed) / total * 100, or 100 when nothing applies.
func CompliancePercentage(total, missed int) float64 {
	if total <= 0 {
		return 100
	}
	return float64(total-missed) / float64(total) * 100
}

// WarehouseCompliance aggregates compliance over every active equipment of a warehouse.
type WarehouseCompliance struct {
	WarehouseID           string             `json:"warehouse_id"`
	OverallComplianceRate float64            `json:"overall_compliance_rate"`
	TotalPMsScheduled     int                `json:"total_pms_scheduled"`
	TotalPMsCompleted     int                `json:"total_pms_completed"`
	OverdueCount          int                `json:"overdue_count"`
	Equipment             []ComplianceRecord `json:"equipment"`
}
