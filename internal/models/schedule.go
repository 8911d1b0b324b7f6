package models

import "time"

// TriggerType says what fires a scheduling rule. Only time based triggers exist today.
type TriggerType string

const TriggerTimeBased TriggerType = "time_based"

// SchedulingRule is the in-memory projection of an active template used by one generation pass.
type SchedulingRule struct {
	ID              string      `json:"id"`
	TemplateID      string      `json:"template_id"`
	Name            string      `json:"name"`
	EquipmentModels []string    `json:"equipment_models"`
	Frequency       Frequency   `json:"frequency"`
	TriggerType     TriggerType `json:"trigger_type"`
	AutoGenerate    bool        `json:"auto_generate"`
	Active          bool        `json:"active"`
	Template        PmTemplate  `json:"template"`
}

// AppliesTo reports whether the rule covers the given equipment model.
func (r *SchedulingRule) AppliesTo(model string) bool {
	for _, m := range r.EquipmentModels {
		if MatchesModel(m, model) {
			return true
		}
	}
	return false
}

// ScheduledPM is one projected PM occurrence before it becomes a work order.
type ScheduledPM struct {
	EquipmentID       string      `json:"equipment_id"`
	AssetTag          string      `json:"asset_tag"`
	Criticality       Criticality `json:"criticality"`
	RuleID            string      `json:"rule_id"`
	TemplateID        string      `json:"template_id"`
	Component         string      `json:"component"`
	Action            string      `json:"action"`
	Description       string      `json:"description"`
	DueDate           time.Time   `json:"due_date"`
	ScheduledDate     time.Time   `json:"scheduled_date"`
	Priority          Priority    `json:"priority"`
	EstimatedDuration int         `json:"estimated_duration"` // in minutes
}

// ConflictType names why a scheduled PM collides with existing work.
type ConflictType string

const ConflictEquipmentOccupied ConflictType = "equipment_occupied"

// ResolutionCombine is the advice attached to equipment_occupied conflicts.
const ResolutionCombine = "Reschedule or combine with existing work order"

// Conflict is an advisory collision between a scheduled PM and open work.
type Conflict struct {
	EquipmentID   string       `json:"equipment_id"`
	RuleID        string       `json:"rule_id"`
	WorkOrderID   string       `json:"work_order_id"`
	ScheduledDate time.Time    `json:"scheduled_date"`
	ConflictType  ConflictType `json:"conflict_type"`
	Resolution    string       `json:"resolution"`
}

// ScheduleStatistics summarises a generated schedule.
type ScheduleStatistics struct {
	TotalScheduled        int              `json:"total_scheduled"`
	ConflictCount         int              `json:"conflict_count"`
	UtilizationRate       float64          `json:"utilization_rate"`
	WorkingDays           int              `json:"working_days"`
	TotalEstimatedMinutes int              `json:"total_estimated_minutes"`
	ByPriority            map[Priority]int `json:"by_priority"`
}

// ScheduleResult is the output of one schedule generation pass.
type ScheduleResult struct {
	WarehouseID  string             `json:"warehouse_id"`
	StartDate    time.Time          `json:"start_date"`
	EndDate      time.Time          `json:"end_date"`
	ScheduledPMs []ScheduledPM      `json:"scheduled_pms"`
	Conflicts    []Conflict         `json:"conflicts"`
	Statistics   ScheduleStatistics `json:"statistics"`
}
