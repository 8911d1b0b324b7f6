package pm

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/maintenance-pm/internal/models"
)

// Generator projects active PM templates onto equipment over a date window.
type Generator struct {
	store    Store
	policies PolicySource
	logger   logrus.FieldLogger
	now      func() time.Time
}

// NewGenerator creates a schedule generator.
func NewGenerator(store Store, policies PolicySource, logger logrus.FieldLogger) *Generator {
	return &Generator{store: store, policies: policies, logger: logger, now: time.Now}
}

// SetClock overrides the time source.
func (g *Generator) SetClock(now func() time.Time) { g.now = now }

// RuleID derives the scheduling rule id of a template.
func RuleID(templateID string) string {
	return "rule_" + templateID
}

// BuildSchedulingRules turns active templates into time based rules, one per template.
func BuildSchedulingRules(templates []models.PmTemplate) ([]models.SchedulingRule, error) {
	rules := make([]models.SchedulingRule, 0, len(templates))
	for _, t := range templates {
		if !t.Active {
			continue
		}
		if _, err := t.Frequency.Interval(); err != nil {
			return nil, fmt.Errorf("template %s: %w", t.ID, err)
		}
		rules = append(rules, models.SchedulingRule{
			ID:              RuleID(t.ID),
			TemplateID:      t.ID,
			Name:            t.Model + " - " + t.Component,
			EquipmentModels: []string{t.Model},
			Frequency:       t.Frequency,
			TriggerType:     models.TriggerTimeBased,
			AutoGenerate:    true,
			Active:          true,
			Template:        t,
		})
	}
	return rules, nil
}

// BuildSchedulingRules loads the templates of a warehouse and projects them into rules.
func (g *Generator) BuildSchedulingRules(ctx context.Context, warehouseID string) ([]models.SchedulingRule, error) {
	templates, err := g.store.GetPmTemplates(ctx, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("load templates for warehouse %s: %w", warehouseID, err)
	}
	return BuildSchedulingRules(templates)
}

// GenerateOptimizedSchedule projects every rule onto matching active equipment
// and returns the PMs that fall due on or before endDate, with advisory conflicts
// against open work already scheduled in the window.
func (g *Generator) GenerateOptimizedSchedule(ctx context.Context, warehouseID string, startDate, endDate time.Time) (*models.ScheduleResult, error) {
	if startDate.After(endDate) {
		return nil, fmt.Errorf("window %s..%s: %w", startDate.Format(time.RFC3339), endDate.Format(time.RFC3339), models.ErrInvalidWindow)
	}

	rules, err := g.BuildSchedulingRules(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	equipment, err := g.store.GetEquipment(ctx, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("load equipment for warehouse %s: %w", warehouseID, err)
	}
	workOrders, err := g.store.GetWorkOrders(ctx, warehouseID, models.WorkOrderFilter{})
	if err != nil {
		return nil, fmt.Errorf("load work orders for warehouse %s: %w", warehouseID, err)
	}
	policy, err := g.policies.Get(ctx, warehouseID)
	if err != nil {
		return nil, err
	}

	now := g.now()
	leadTime := policy.Scheduling.LeadTime()
	result := &models.ScheduleResult{
		WarehouseID:  warehouseID,
		StartDate:    startDate,
		EndDate:      endDate,
		ScheduledPMs: []models.ScheduledPM{},
		Conflicts:    []models.Conflict{},
	}

	for i := range rules {
		rule := &rules[i]
		for j := range equipment {
			e := &equipment[j]
			if !e.IsActive() || !rule.AppliesTo(e.Model) {
				continue
			}
			s, err := ScheduleFor(e, &rule.Template, workOrders, now, leadTime)
			if err != nil {
				return nil, err
			}
			if s.NextDueDate.After(endDate) {
				continue
			}

			scheduled := s.NextDueDate
			if scheduled.Before(startDate) {
				scheduled = startDate
			}
			pm := models.ScheduledPM{
				EquipmentID:       e.ID,
				AssetTag:          e.AssetTag,
				Criticality:       e.Criticality,
				RuleID:            rule.ID,
				TemplateID:        rule.TemplateID,
				Component:         rule.Template.Component,
				Action:            rule.Template.Action,
				Description:       rule.Template.Title(),
				DueDate:           s.NextDueDate,
				ScheduledDate:     scheduled,
				Priority:          priorityFor(s.NextDueDate, now, leadTime),
				EstimatedDuration: rule.Template.EstimatedDuration,
			}
			if pm.EstimatedDuration <= 0 {
				pm.EstimatedDuration = models.DefaultEstimatedDuration
			}
			result.ScheduledPMs = append(result.ScheduledPMs, pm)

			if wo := occupyingWorkOrder(workOrders, e.ID, s.OpenWorkOrderID, startDate, endDate); wo != nil {
				result.Conflicts = append(result.Conflicts, models.Conflict{
					EquipmentID:   e.ID,
					RuleID:        rule.ID,
					WorkOrderID:   wo.ID,
					ScheduledDate: scheduled,
					ConflictType:  models.ConflictEquipmentOccupied,
					Resolution:    models.ResolutionCombine,
				})
			}
		}
	}

	sortScheduledPMs(result.ScheduledPMs)
	sort.SliceStable(result.Conflicts, func(i, j int) bool {
		a, b := result.Conflicts[i], result.Conflicts[j]
		if !a.ScheduledDate.Equal(b.ScheduledDate) {
			return a.ScheduledDate.Before(b.ScheduledDate)
		}
		if a.EquipmentID != b.EquipmentID {
			return a.EquipmentID < b.EquipmentID
		}
		return a.RuleID < b.RuleID
	})
	result.Statistics = statistics(result, policy.Scheduling)

	g.logger.WithFields(logrus.Fields{
		"warehouse_id": warehouseID,
		"scheduled":    result.Statistics.TotalScheduled,
		"conflicts":    result.Statistics.ConflictCount,
	}).Debug("Generated PM schedule")
	return result, nil
}

func priorityFor(due, now time.Time, leadTime time.Duration) models.Priority {
	switch {
	case due.Before(now):
		return models.PriorityHigh
	case !due.After(now.Add(leadTime)):
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// occupyingWorkOrder returns the earliest-due open work order of the equipment
// whose due date falls inside [start, end]. own is the work order already raised
// for the same template and never counts.
func occupyingWorkOrder(workOrders []models.WorkOrder, equipmentID, own string, start, end time.Time) *models.WorkOrder {
	var found *models.WorkOrder
	for i := range workOrders {
		wo := &workOrders[i]
		if wo.EquipmentID != equipmentID || !wo.Status.IsOpen() || wo.DueDate == nil {
			continue
		}
		if own != "" && wo.ID == own {
			continue
		}
		if wo.DueDate.Before(start) || wo.DueDate.After(end) {
			continue
		}
		if found == nil || wo.DueDate.Before(*found.DueDate) {
			found = wo
		}
	}
	return found
}

func sortScheduledPMs(pms []models.ScheduledPM) {
	sort.SliceStable(pms, func(i, j int) bool {
		a, b := pms[i], pms[j]
		if !a.ScheduledDate.Equal(b.ScheduledDate) {
			return a.ScheduledDate.Before(b.ScheduledDate)
		}
		if ra, rb := a.Criticality.Rank(), b.Criticality.Rank(); ra != rb {
			return ra > rb
		}
		if a.EquipmentID != b.EquipmentID {
			return a.EquipmentID < b.EquipmentID
		}
		return a.RuleID < b.RuleID
	})
}

// WorkingDays counts the calendar days in [start, end] that the settings mark as working days.
func WorkingDays(start, end time.Time, settings models.SchedulingSettings) int {
	if start.After(end) {
		return 0
	}
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, start.Location())
	count := 0
	for !day.After(last) {
		if settings.IsWorkingDay(day.Weekday()) {
			count++
		}
		day = day.AddDate(0, 0, 1)
	}
	return count
}

func statistics(result *models.ScheduleResult, settings models.SchedulingSettings) models.ScheduleStatistics {
	stats := models.ScheduleStatistics{
		TotalScheduled: len(result.ScheduledPMs),
		ConflictCount:  len(result.Conflicts),
		WorkingDays:    WorkingDays(result.StartDate, result.EndDate, settings),
		ByPriority:     map[models.Priority]int{},
	}
	for _, pm := range result.ScheduledPMs {
		stats.TotalEstimatedMinutes += pm.EstimatedDuration
		stats.ByPriority[pm.Priority]++
	}

	capacity := stats.WorkingDays * settings.MaxConcurrentPMs
	switch {
	case capacity > 0:
		stats.UtilizationRate = math.Min(100, float64(stats.TotalScheduled)/float64(capacity)*100)
	case stats.TotalScheduled > 0:
		stats.UtilizationRate = 100
	}
	return stats
}
