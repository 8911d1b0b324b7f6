package models

import (
	"strings"
	"time"
)

// WorkOrderType distinguishes preventive from reactive work.
type WorkOrderType string

const (
	WorkOrderPreventive WorkOrderType = "preventive"
	WorkOrderCorrective WorkOrderType = "corrective"
	WorkOrderEmergency  WorkOrderType = "emergency"
)

// WorkOrderStatus is the lifecycle state of a work order.
type WorkOrderStatus string

const (
	StatusNew        WorkOrderStatus = "new"
	StatusAssigned   WorkOrderStatus = "assigned"
	StatusInProgress WorkOrderStatus = "in_progress"
	StatusCompleted  WorkOrderStatus = "completed"
	StatusVerified   WorkOrderStatus = "verified"
	StatusClosed     WorkOrderStatus = "closed"
)

// IsOpen reports whether work is still outstanding.
func (s WorkOrderStatus) IsOpen() bool {
	return s == StatusNew || s == StatusAssigned || s == StatusInProgress
}

// IsDone reports whether the work has been carried out.
func (s WorkOrderStatus) IsDone() bool {
	return s == StatusCompleted || s == StatusVerified || s == StatusClosed
}

// Priority of a work order or scheduled PM.
type Priority string

const (
	PriorityLow       Priority = "low"
	PriorityMedium    Priority = "medium"
	PriorityHigh      Priority = "high"
	PriorityCritical  Priority = "critical"
	PriorityEmergency Priority = "emergency"
)

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical, PriorityEmergency:
		return true
	}
	return false
}

// MaxEscalationLevel is the last level reachable by automatic escalation.
const MaxEscalationLevel = 3

// WorkOrder represents a unit of maintenance work.
type WorkOrder struct {
	ID              string          `json:"id" bson:"_id"`
	FONumber        string          `json:"fo_number" bson:"fo_number"`
	Type            WorkOrderType   `json:"type" bson:"type"` // "preventive", "corrective", "emergency"
	Description     string          `json:"description" bson:"description"`
	Status          WorkOrderStatus `json:"status" bson:"status"`
	Priority        Priority        `json:"priority" bson:"priority"`
	RequestedBy     string          `json:"requested_by" bson:"requested_by"`
	AssignedTo      string          `json:"assigned_to,omitempty" bson:"assigned_to,omitempty"`
	EquipmentID     string          `json:"equipment_id,omitempty" bson:"equipment_id,omitempty"`
	TemplateID      string          `json:"template_id,omitempty" bson:"template_id,omitempty"`
	DueDate         *time.Time      `json:"due_date,omitempty" bson:"due_date,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	EstimatedHours  float64         `json:"estimated_hours" bson:"estimated_hours"`
	Notes           string          `json:"notes,omitempty" bson:"notes,omitempty"`
	Escalated       bool            `json:"escalated" bson:"escalated"`
	EscalationLevel int             `json:"escalation_level" bson:"escalation_level"`
	LastEscalatedAt *time.Time      `json:"last_escalated_at,omitempty" bson:"last_escalated_at,omitempty"`
	WarehouseID     string          `json:"warehouse_id" bson:"warehouse_id"`
	CreatedAt       time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" bson:"updated_at"`
}

// CoversTemplate reports whether a preventive work order was raised for the template.
// Work orders created before template links existed are matched on component and action.
func (w *WorkOrder) CoversTemplate(t *PmTemplate) bool {
	if w.Type != WorkOrderPreventive {
		return false
	}
	if w.TemplateID != "" {
		return w.TemplateID == t.ID
	}
	if strings.TrimSpace(t.Component) == "" || strings.TrimSpace(t.Action) == "" {
		return false
	}
	desc := strings.ToLower(w.Description)
	return strings.Contains(desc, strings.ToLower(t.Component)) &&
		strings.Contains(desc, strings.ToLower(t.Action))
}

// CompletionDate returns when the work was done, falling back to the last update.
func (w *WorkOrder) CompletionDate() time.Time {
	if w.CompletedAt != nil && !w.CompletedAt.IsZero() {
		return *w.CompletedAt
	}
	return w.UpdatedAt
}

// EscalationClock is the instant the escalation threshold is measured from.
func (w *WorkOrder) EscalationClock() time.Time {
	if w.LastEscalatedAt != nil && !w.LastEscalatedAt.IsZero() {
		return *w.LastEscalatedAt
	}
	return w.CreatedAt
}

// WorkOrderFilter narrows getWorkOrders. Zero values match everything.
type WorkOrderFilter struct {
	Statuses    []WorkOrderStatus
	Type        WorkOrderType
	EquipmentID string
	// BelowEscalationLevel keeps orders whose level is strictly lower; zero disables it.
	BelowEscalationLevel int
}

// Matches applies the filter to a single work order.
func (f WorkOrderFilter) Matches(w *WorkOrder) bool {
	if f.Type != "" && w.Type != f.Type {
		return false
	}
	if f.EquipmentID != "" && w.EquipmentID != f.EquipmentID {
		return false
	}
	if f.BelowEscalationLevel > 0 && w.EscalationLevel >= f.BelowEscalationLevel {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if w.Status == s {
			return true
		}
	}
	return false
}

// WorkOrderPatch carries the fields updateWorkOrder may change. Nil fields are left alone.
type WorkOrderPatch struct {
	Status          *WorkOrderStatus `bson:"status,omitempty"`
	AssignedTo      *string          `bson:"assigned_to,omitempty"`
	Escalated       *bool            `bson:"escalated,omitempty"`
	EscalationLevel *int             `bson:"escalation_level,omitempty"`
	LastEscalatedAt *time.Time       `bson:"last_escalated_at,omitempty"`
	CompletedAt     *time.Time       `bson:"completed_at,omitempty"`
	UpdatedAt       time.Time        `bson:"updated_at"`
}

// Apply copies the set fields of the patch onto w.
func (p WorkOrderPatch) Apply(w *WorkOrder) {
	if p.Status != nil {
		w.Status = *p.Status
	}
	if p.AssignedTo != nil {
		w.AssignedTo = *p.AssignedTo
	}
	if p.Escalated != nil {
		w.Escalated = *p.Escalated
	}
	if p.EscalationLevel != nil {
		w.EscalationLevel = *p.EscalationLevel
	}
	if p.LastEscalatedAt != nil {
		t := *p.LastEscalatedAt
		w.LastEscalatedAt = &t
	}
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		w.CompletedAt = &t
	}
	if !p.UpdatedAt.IsZero() {
		w.UpdatedAt = p.UpdatedAt
	}
}
