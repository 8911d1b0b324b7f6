// Package pm computes preventive-maintenance due dates and compliance, projects
// templates into schedules, and turns due PMs into work orders on a timer.
package pm

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/maintenance-pm/internal/db"
	"github.com/ukydev/maintenance-pm/internal/models"
)

// Store is the slice of the record store the PM engine reads and writes.
type Store interface {
	db.EquipmentCollection
	db.TemplateCollection
	db.WorkOrderCollection
	db.WarehouseCollection
}

// PolicySource resolves the effective policy of a warehouse.
type PolicySource interface {
	Get(ctx context.Context, warehouseID string) (models.WarehousePolicy, error)
}

// Calculator evaluates PM compliance from templates and work-order history.
type Calculator struct {
	store    Store
	policies PolicySource
	logger   logrus.FieldLogger
	now      func() time.Time
}

// NewCalculator creates a compliance calculator.
func NewCalculator(store Store, policies PolicySource, logger logrus.FieldLogger) *Calculator {
	return &Calculator{store: store, policies: policies, logger: logger, now: time.Now}
}

// SetClock overrides the time source.
func (c *Calculator) SetClock(now func() time.Time) { c.now = now }

// ScheduleFor computes the state of one template for one piece of equipment.
// workOrders may contain unrelated orders; they are ignored.
func ScheduleFor(equipment *models.Equipment, template *models.PmTemplate, workOrders []models.WorkOrder, now time.Time, leadTime time.Duration) (models.PMSchedule, error) {
	interval, err := template.Frequency.Interval()
	if err != nil {
		return models.PMSchedule{}, fmt.Errorf("template %s: %w", template.ID, err)
	}

	s := models.PMSchedule{
		EquipmentID: equipment.ID,
		TemplateID:  template.ID,
		Component:   template.Component,
		Action:      template.Action,
		Frequency:   template.Frequency,
	}
	var last time.Time
	for i := range workOrders {
		wo := &workOrders[i]
		if wo.EquipmentID != equipment.ID || !wo.CoversTemplate(template) {
			continue
		}
		switch {
		case wo.Status.IsDone():
			s.CompletedCount++
			if done := wo.CompletionDate(); done.After(last) {
				last = done
			}
		case wo.Status.IsOpen() && s.OpenWorkOrderID == "":
			s.OpenWorkOrderID = wo.ID
		}
	}

	if last.IsZero() {
		s.NextDueDate = equipment.Baseline()
	} else {
		completed := last
		s.LastCompletedAt = &completed
		s.NextDueDate = last.Add(interval)
	}

	switch {
	case s.NextDueDate.Before(now):
		s.Status = models.PMOverdue
	case !s.NextDueDate.After(now.Add(leadTime)):
		s.Status = models.PMDue
	default:
		s.Status = models.PMCompliant
	}
	return s, nil
}

// Evaluate builds the compliance record of one piece of equipment from the
// templates that apply to it and its preventive work orders.
func Evaluate(equipment *models.Equipment, templates []models.PmTemplate, workOrders []models.WorkOrder, now time.Time, leadTime time.Duration) (*models.ComplianceRecord, error) {
	rec := &models.ComplianceRecord{
		EquipmentID: equipment.ID,
		AssetTag:    equipment.AssetTag,
		Schedules:   []models.PMSchedule{},
	}
	for i := range templates {
		s, err := ScheduleFor(equipment, &templates[i], workOrders, now, leadTime)
		if err != nil {
			return nil, err
		}
		rec.TotalPMCount++
		if s.Missed(now) {
			rec.MissedPMCount++
		}
		if s.LastCompletedAt != nil && (rec.LastPMDate == nil || s.LastCompletedAt.After(*rec.LastPMDate)) {
			last := *s.LastCompletedAt
			rec.LastPMDate = &last
		}
		if rec.NextPMDueDate == nil || s.NextDueDate.Before(*rec.NextPMDueDate) {
			next := s.NextDueDate
			rec.NextPMDueDate = &next
		}
		rec.Schedules = append(rec.Schedules, s)
	}
	rec.CompliancePercentage = models.CompliancePercentage(rec.TotalPMCount, rec.MissedPMCount)
	return rec, nil
}

// ApplicableTemplates keeps the active templates whose model matches the equipment.
func ApplicableTemplates(equipment *models.Equipment, templates []models.PmTemplate) []models.PmTemplate {
	out := make([]models.PmTemplate, 0, len(templates))
	for _, t := range templates {
		if t.Active && models.MatchesModel(t.Model, equipment.Model) {
			out = append(out, t)
		}
	}
	return out
}

func (c *Calculator) leadTime(ctx context.Context, warehouseID string) (time.Duration, error) {
	p, err := c.policies.Get(ctx, warehouseID)
	if err != nil {
		return 0, err
	}
	return p.Scheduling.LeadTime(), nil
}

// CheckComplianceStatus computes the compliance record of one piece of equipment.
// The warehouse is trusted to match the equipment; callers validate that.
// Equipment that is not active is not scored and reports 100%.
func (c *Calculator) CheckComplianceStatus(ctx context.Context, equipmentID, warehouseID string) (*models.ComplianceRecord, error) {
	equipment, err := c.store.GetEquipmentByID(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	if !equipment.IsActive() {
		return Evaluate(equipment, nil, nil, c.now(), 0)
	}
	templates, err := c.store.GetPmTemplates(ctx, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("load templates for warehouse %s: %w", warehouseID, err)
	}
	workOrders, err := c.store.GetWorkOrders(ctx, warehouseID, models.WorkOrderFilter{
		Type:        models.WorkOrderPreventive,
		EquipmentID: equipment.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("load work orders for equipment %s: %w", equipment.ID, err)
	}
	leadTime, err := c.leadTime(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	return Evaluate(equipment, ApplicableTemplates(equipment, templates), workOrders, c.now(), leadTime)
}

// GetPMSchedule returns the per-template schedule of one piece of equipment.
func (c *Calculator) GetPMSchedule(ctx context.Context, equipmentID, warehouseID string) ([]models.PMSchedule, error) {
	rec, err := c.CheckComplianceStatus(ctx, equipmentID, warehouseID)
	if err != nil {
		return nil, err
	}
	return rec.Schedules, nil
}

// WarehouseCompliance aggregates compliance across the active equipment of a warehouse.
func (c *Calculator) WarehouseCompliance(ctx context.Context, warehouseID string) (*models.WarehouseCompliance, error) {
	equipment, err := c.store.GetEquipment(ctx, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("load equipment for warehouse %s: %w", warehouseID, err)
	}
	templates, err := c.store.GetPmTemplates(ctx, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("load templates for warehouse %s: %w", warehouseID, err)
	}
	workOrders, err := c.store.GetWorkOrders(ctx, warehouseID, models.WorkOrderFilter{Type: models.WorkOrderPreventive})
	if err != nil {
		return nil, fmt.Errorf("load work orders for warehouse %s: %w", warehouseID, err)
	}
	leadTime, err := c.leadTime(ctx, warehouseID)
	if err != nil {
		return nil, err
	}

	now := c.now()
	summary := &models.WarehouseCompliance{WarehouseID: warehouseID, Equipment: []models.ComplianceRecord{}}
	for i := range equipment {
		e := &equipment[i]
		if !e.IsActive() {
			continue
		}
		rec, err := Evaluate(e, ApplicableTemplates(e, templates), workOrders, now, leadTime)
		if err != nil {
			return nil, err
		}
		summary.TotalPMsScheduled += rec.TotalPMCount
		summary.TotalPMsCompleted += rec.TotalPMCount - rec.MissedPMCount
		summary.OverdueCount += rec.MissedPMCount
		summary.Equipment = append(summary.Equipment, *rec)
	}
	summary.OverallComplianceRate = models.CompliancePercentage(summary.TotalPMsScheduled, summary.TotalPMsScheduled-summary.TotalPMsCompleted)
	return summary, nil
}
