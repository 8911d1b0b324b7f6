package models

import (
	"fmt"
	"time"
)

// EscalationRule maps a work-order priority to a time threshold and a target role.
type EscalationRule struct {
	ID             string    `json:"id" bson:"id"`
	Name           string    `json:"name" bson:"name"`
	Priority       Priority  `json:"priority" bson:"priority"`
	ThresholdHours float64   `json:"threshold_hours" bson:"threshold_hours"`
	EscalateToRole Role      `json:"escalate_to_role" bson:"escalate_to_role"`
	Channels       []Channel `json:"channels" bson:"channels"`
	Active         bool      `json:"active" bson:"active"`
}

// DefaultEscalationRules is the built-in threshold table.
func DefaultEscalationRules() []EscalationRule {
	return []EscalationRule{
		{ID: "critical-4h", Name: "Critical Work Orders", Priority: PriorityCritical, ThresholdHours: 4,
			EscalateToRole: RoleManager, Channels: []Channel{ChannelEmail, ChannelPush}, Active: true},
		{ID: "high-12h", Name: "High Priority Work Orders", Priority: PriorityHigh, ThresholdHours: 12,
			EscalateToRole: RoleSupervisor, Channels: []Channel{ChannelEmail, ChannelPush}, Active: true},
		{ID: "standard-24h", Name: "Standard Work Orders", Priority: PriorityMedium, ThresholdHours: 24,
			EscalateToRole: RoleSupervisor, Channels: []Channel{ChannelEmail}, Active: true},
		{ID: "low-72h", Name: "Low Priority Work Orders", Priority: PriorityLow, ThresholdHours: 72,
			EscalateToRole: RoleSupervisor, Channels: []Channel{ChannelEmail}, Active: true},
	}
}

// SchedulingSettings tunes schedule generation for one warehouse.
type SchedulingSettings struct {
	AutoSchedulingEnabled bool           `json:"auto_scheduling_enabled" bson:"auto_scheduling_enabled"`
	LeadTimeDays          int            `json:"lead_time_days" bson:"lead_time_days"`
	WorkingDays           []time.Weekday `json:"working_days" bson:"working_days"`
	MaxConcurrentPMs      int            `json:"max_concurrent_pms" bson:"max_concurrent_pms"`
}

// LeadTime returns the lead time as a duration.
func (s SchedulingSettings) LeadTime() time.Duration {
	return time.Duration(s.LeadTimeDays) * 24 * time.Hour
}

// IsWorkingDay reports whether d is a working weekday.
func (s SchedulingSettings) IsWorkingDay(d time.Weekday) bool {
	for _, w := range s.WorkingDays {
		if w == d {
			return true
		}
	}
	return false
}

// WarehousePolicy is the single source of scheduling and escalation rules for a warehouse.
type WarehousePolicy struct {
	WarehouseID      string             `json:"warehouse_id" bson:"_id"`
	Scheduling       SchedulingSettings `json:"scheduling" bson:"scheduling"`
	EscalationRules  []EscalationRule   `json:"escalation_rules" bson:"escalation_rules"`
	ComplianceTarget float64            `json:"compliance_target" bson:"compliance_target"`
	UpdatedAt        time.Time          `json:"updated_at" bson:"updated_at"`
}

// RuleFor returns the active rule for a priority. Emergency work falls back to the critical rule.
func (p *WarehousePolicy) RuleFor(priority Priority) (EscalationRule, bool) {
	for _, r := range p.EscalationRules {
		if r.Active && r.Priority == priority {
			return r, true
		}
	}
	if priority == PriorityEmergency {
		return p.RuleFor(PriorityCritical)
	}
	return EscalationRule{}, false
}

// Validate rejects policies the engine cannot evaluate.
func (p *WarehousePolicy) Validate() error {
	if p.WarehouseID == "" {
		return fmt.Errorf("%w: warehouse id is required", ErrValidation)
	}
	if p.ComplianceTarget <= 0 || p.ComplianceTarget > 100 {
		return fmt.Errorf("%w: compliance target must be within (0, 100]", ErrValidation)
	}
	if p.Scheduling.LeadTimeDays < 0 {
		return fmt.Errorf("%w: lead time must not be negative", ErrValidation)
	}
	if p.Scheduling.MaxConcurrentPMs <= 0 {
		return fmt.Errorf("%w: max concurrent PMs must be positive", ErrValidation)
	}
	for _, d := range p.Scheduling.WorkingDays {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("%w: invalid working day %d", ErrValidation, d)
		}
	}
	for _, r := range p.EscalationRules {
		if !r.Priority.IsValid() {
			return fmt.Errorf("%w: rule %q has unknown priority %q", ErrValidation, r.ID, r.Priority)
		}
		if r.ThresholdHours <= 0 {
			return fmt.Errorf("%w: rule %q needs a positive threshold", ErrValidation, r.ID)
		}
		if r.EscalateToRole.Rank() == 0 {
			return fmt.Errorf("%w: rule %q escalates to %q which is outside the escalation chain", ErrValidation, r.ID, r.EscalateToRole)
		}
	}
	return nil
}
