// Package escalation pushes stalled work up the supervisor, manager and admin
// chain and warns supervisors about equipment that falls behind on PM.
package escalation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/maintenance-pm/internal/db"
	"github.com/ukydev/maintenance-pm/internal/models"
)

// Store is the slice of the record store escalation needs.
type Store interface {
	db.WorkOrderCollection
	db.ProfileCollection
	db.EscalationCollection
	db.WarehouseCollection
}

// Notifier hands notifications to the delivery layer.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) (*models.Notification, error)
}

// ComplianceSource computes warehouse PM compliance.
type ComplianceSource interface {
	WarehouseCompliance(ctx context.Context, warehouseID string) (*models.WarehouseCompliance, error)
}

// PolicySource resolves and replaces warehouse policies.
type PolicySource interface {
	Get(ctx context.Context, warehouseID string) (models.WarehousePolicy, error)
	SaveEscalationRules(ctx context.Context, warehouseID string, rules []models.EscalationRule) (models.WarehousePolicy, error)
}

// ManualRequest asks to escalate one work order to a chosen user.
type ManualRequest struct {
	WorkOrderID  string `json:"work_order_id"`
	TargetUserID string `json:"target_user_id"`
	Reason       string `json:"reason"`
	ActorID      string `json:"-"`
}

// CheckResult summarises one time based escalation pass over a warehouse.
type CheckResult struct {
	WarehouseID string                    `json:"warehouse_id"`
	Checked     int                       `json:"checked"`
	Escalated   []models.EscalationAction `json:"escalated"`
	Failed      int                       `json:"failed"`
}

// Controller escalates overdue work orders and non-compliant equipment.
type Controller struct {
	store      Store
	policies   PolicySource
	notifier   Notifier
	compliance ComplianceSource
	logger     logrus.FieldLogger
	now        func() time.Time
}

// NewController creates an escalation controller.
func NewController(store Store, policies PolicySource, notifier Notifier, compliance ComplianceSource, logger logrus.FieldLogger) *Controller {
	return &Controller{
		store:      store,
		policies:   policies,
		notifier:   notifier,
		compliance: compliance,
		logger:     logger,
		now:        time.Now,
	}
}

// SetClock overrides the time source.
func (c *Controller) SetClock(now func() time.Time) { c.now = now }

// TargetRole is the role that owns a work order once it reaches level.
// Higher levels never hand work back down the chain.
func TargetRole(rule models.EscalationRule, level int) models.Role {
	byLevel := models.RoleForLevel(level)
	if byLevel.Rank() > rule.EscalateToRole.Rank() {
		return byLevel
	}
	return rule.EscalateToRole
}

// FindTarget returns the first active profile of the warehouse holding role.
func FindTarget(profiles []models.Profile, role models.Role, warehouseID string) (*models.Profile, error) {
	for i := range profiles {
		p := &profiles[i]
		if p.Active && p.Role == role && p.WarehouseID == warehouseID {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no active %s in warehouse %s: %w", role, warehouseID, models.ErrNoEligibleTarget)
}

// CheckForEscalations escalates every open work order of the warehouse that has
// waited longer than its priority's threshold. Items without a target are
// logged and skipped; store failures while reading abort the pass.
func (c *Controller) CheckForEscalations(ctx context.Context, warehouseID string) (*CheckResult, error) {
	policy, err := c.policies.Get(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	workOrders, err := c.store.GetWorkOrders(ctx, warehouseID, models.WorkOrderFilter{
		Statuses:             []models.WorkOrderStatus{models.StatusNew, models.StatusAssigned},
		BelowEscalationLevel: models.MaxEscalationLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("load work orders for warehouse %s: %w", warehouseID, err)
	}
	profiles, err := c.store.GetProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}

	now := c.now()
	res := &CheckResult{WarehouseID: warehouseID, Checked: len(workOrders), Escalated: []models.EscalationAction{}}
	for i := range workOrders {
		wo := &workOrders[i]
		rule, ok := policy.RuleFor(wo.Priority)
		if !ok {
			continue
		}
		idle := now.Sub(wo.EscalationClock()).Hours()
		if idle < rule.ThresholdHours {
			continue
		}

		action, err := c.escalate(ctx, wo, rule, profiles, idle, now)
		if err != nil {
			res.Failed++
			log := c.logger.WithFields(logrus.Fields{
				"warehouse_id":  warehouseID,
				"work_order_id": wo.ID,
				"level":         wo.EscalationLevel + 1,
			}).WithError(err)
			if errors.Is(err, models.ErrNoEligibleTarget) {
				log.Warn("Skipping escalation without eligible target")
			} else {
				log.Error("Failed to escalate work order")
			}
			continue
		}
		res.Escalated = append(res.Escalated, *action)
	}
	return res, nil
}

func (c *Controller) escalate(ctx context.Context, wo *models.WorkOrder, rule models.EscalationRule, profiles []models.Profile, idle float64, now time.Time) (*models.EscalationAction, error) {
	level := wo.EscalationLevel + 1
	role := TargetRole(rule, level)
	target, err := FindTarget(profiles, role, wo.WarehouseID)
	if err != nil {
		return nil, err
	}

	if _, err := c.store.UpdateWorkOrder(ctx, wo.ID, escalationPatch(target.ID, level, now)); err != nil {
		return nil, fmt.Errorf("update work order %s: %w", wo.ID, err)
	}

	action := models.EscalationAction{
		WorkOrderID:       wo.ID,
		WarehouseID:       wo.WarehouseID,
		EscalationLevel:   level,
		EscalatedToUserID: target.ID,
		PreviousAssignee:  wo.AssignedTo,
		Reason:            fmt.Sprintf("%s priority work order idle for %.1f hours (threshold %.0f)", wo.Priority, idle, rule.ThresholdHours),
		EscalatedAt:       now,
	}
	c.record(ctx, &action)
	c.notify(ctx, models.Notification{
		UserID:      target.ID,
		Type:        models.NotificationWorkOrderAssigned,
		Title:       fmt.Sprintf("Work Order Escalated - Level %d", level),
		Message:     fmt.Sprintf("Work order %s (%s) has been escalated to you: %s", displayNumber(wo), wo.Description, action.Reason),
		Priority:    wo.Priority,
		Channels:    rule.Channels,
		WorkOrderID: wo.ID,
		EquipmentID: wo.EquipmentID,
		WarehouseID: wo.WarehouseID,
	})

	c.logger.WithFields(logrus.Fields{
		"warehouse_id":  wo.WarehouseID,
		"work_order_id": wo.ID,
		"level":         level,
		"role":          role,
	}).Info("Escalated work order")
	return &action, nil
}

// ManuallyEscalate reassigns a work order to a chosen user regardless of
// elapsed time. It succeeds whenever the work order and the profile exist. The level still increments, capped at the top of the chain.
func (c *Controller) ManuallyEscalate(ctx context.Context, req ManualRequest) (*models.EscalationAction, error) {
	if req.WorkOrderID == "" || req.TargetUserID == "" {
		return nil, fmt.Errorf("work order and target user are required: %w", models.ErrValidation)
	}

	wo, err := c.store.GetWorkOrder(ctx, req.WorkOrderID)
	if err != nil {
		return nil, err
	}
	target, err := c.store.GetProfile(ctx, req.TargetUserID)
	if err != nil {
		return nil, err
	}
	if !target.Active {
		c.logger.WithFields(logrus.Fields{
			"work_order_id": wo.ID,
			"target_id":     target.ID,
		}).Warn("Manually escalating to an inactive profile")
	}

	now := c.now()
	level := wo.EscalationLevel + 1
	if level > models.MaxEscalationLevel {
		level = models.MaxEscalationLevel
	}
	if _, err := c.store.UpdateWorkOrder(ctx, wo.ID, escalationPatch(target.ID, level, now)); err != nil {
		return nil, fmt.Errorf("update work order %s: %w", wo.ID, err)
	}

	action := models.EscalationAction{
		WorkOrderID:       wo.ID,
		WarehouseID:       wo.WarehouseID,
		EscalationLevel:   level,
		EscalatedToUserID: target.ID,
		EscalatedBy:       req.ActorID,
		PreviousAssignee:  wo.AssignedTo,
		Reason:            manualReason(req.Reason),
		Manual:            true,
		EscalatedAt:       now,
	}
	c.record(ctx, &action)
	c.notify(ctx, models.Notification{
		UserID:      target.ID,
		Type:        models.NotificationWorkOrderAssigned,
		Title:       fmt.Sprintf("Work Order Escalated - Level %d", level),
		Message:     fmt.Sprintf("Work order %s (%s) has been escalated to you. %s", displayNumber(wo), wo.Description, action.Reason),
		Priority:    wo.Priority,
		Channels:    []models.Channel{models.ChannelEmail, models.ChannelPush},
		WorkOrderID: wo.ID,
		EquipmentID: wo.EquipmentID,
		WarehouseID: wo.WarehouseID,
	})

	c.logger.WithFields(logrus.Fields{
		"warehouse_id":  wo.WarehouseID,
		"work_order_id": wo.ID,
		"level":         level,
		"actor_id":      req.ActorID,
	}).Info("Manually escalated work order")
	return &action, nil
}

// ProcessMissedPMEscalations notifies every active supervisor of the warehouse
// about active equipment below the compliance target. Work orders are left alone.
func (c *Controller) ProcessMissedPMEscalations(ctx context.Context, warehouseID string) ([]models.ComplianceEscalation, error) {
	policy, err := c.policies.Get(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	summary, err := c.compliance.WarehouseCompliance(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	profiles, err := c.store.GetProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}

	var supervisors []models.Profile
	for _, p := range profiles {
		if p.Active && p.Role == models.RoleSupervisor && p.WarehouseID == warehouseID {
			supervisors = append(supervisors, p)
		}
	}

	out := []models.ComplianceEscalation{}
	for _, rec := range summary.Equipment {
		if rec.CompliancePercentage >= policy.ComplianceTarget {
			continue
		}
		esc := models.ComplianceEscalation{
			EquipmentID:          rec.EquipmentID,
			CompliancePercentage: rec.CompliancePercentage,
			MissedPMCount:        rec.MissedPMCount,
			NotifiedUserIDs:      []string{},
		}
		if len(supervisors) == 0 {
			c.logger.WithFields(logrus.Fields{
				"warehouse_id": warehouseID,
				"equipment_id": rec.EquipmentID,
			}).WithError(models.ErrNoEligibleTarget).Warn("No supervisor to notify about PM compliance")
		}
		for _, s := range supervisors {
			sent := c.notify(ctx, models.Notification{
				UserID:      s.ID,
				Type:        models.NotificationPMEscalation,
				Title:       "PM Escalation - Level 1",
				Message:     fmt.Sprintf("Equipment %s is at %.1f%% PM compliance (target %.0f%%) with %d missed PMs", rec.AssetTag, rec.CompliancePercentage, policy.ComplianceTarget, rec.MissedPMCount),
				Priority:    models.PriorityHigh,
				Channels:    []models.Channel{models.ChannelEmail, models.ChannelSMS},
				EquipmentID: rec.EquipmentID,
				WarehouseID: warehouseID,
			})
			if sent {
				esc.NotifiedUserIDs = append(esc.NotifiedUserIDs, s.ID)
			}
		}
		out = append(out, esc)
	}
	return out, nil
}

// GetEscalationStats counts the escalated work orders of a warehouse and the
// escalations recorded since local midnight.
func (c *Controller) GetEscalationStats(ctx context.Context, warehouseID string) (*models.EscalationStats, error) {
	workOrders, err := c.store.GetWorkOrders(ctx, warehouseID, models.WorkOrderFilter{})
	if err != nil {
		return nil, fmt.Errorf("load work orders for warehouse %s: %w", warehouseID, err)
	}
	stats := &models.EscalationStats{ByLevel: map[int]int{}, ByPriority: map[models.Priority]int{}}
	for _, wo := range workOrders {
		if !wo.Escalated {
			continue
		}
		stats.TotalEscalated++
		stats.ByLevel[wo.EscalationLevel]++
		stats.ByPriority[wo.Priority]++
	}

	now := c.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today, err := c.store.GetEscalations(ctx, warehouseID, midnight)
	if err != nil {
		return nil, fmt.Errorf("load escalation history for warehouse %s: %w", warehouseID, err)
	}
	stats.EscalatedToday = len(today)
	return stats, nil
}

// EscalationRules returns the rules in force for a warehouse.
func (c *Controller) EscalationRules(ctx context.Context, warehouseID string) ([]models.EscalationRule, error) {
	p, err := c.policies.Get(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	return p.EscalationRules, nil
}

// UpdateEscalationRules replaces the rules of a warehouse.
func (c *Controller) UpdateEscalationRules(ctx context.Context, warehouseID string, rules []models.EscalationRule) ([]models.EscalationRule, error) {
	p, err := c.policies.SaveEscalationRules(ctx, warehouseID, rules)
	if err != nil {
		return nil, err
	}
	return p.EscalationRules, nil
}

func escalationPatch(assignee string, level int, at time.Time) models.WorkOrderPatch {
	escalated := true
	return models.WorkOrderPatch{
		AssignedTo:      &assignee,
		Escalated:       &escalated,
		EscalationLevel: &level,
		LastEscalatedAt: &at,
		UpdatedAt:       at,
	}
}

func (c *Controller) record(ctx context.Context, action *models.EscalationAction) {
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	if err := c.store.RecordEscalation(ctx, *action); err != nil {
		c.logger.WithField("work_order_id", action.WorkOrderID).WithError(err).Error("Failed to record escalation")
	}
}

func (c *Controller) notify(ctx context.Context, n models.Notification) bool {
	if _, err := c.notifier.Notify(ctx, n); err != nil {
		c.logger.WithFields(logrus.Fields{
			"user_id":       n.UserID,
			"work_order_id": n.WorkOrderID,
			"equipment_id":  n.EquipmentID,
		}).WithError(err).Error("Failed to send notification")
		return false
	}
	return true
}

func manualReason(reason string) string {
	if reason = strings.TrimSpace(reason); reason == "" {
		return "Manual escalation"
	}
	return "Manual escalation: " + reason
}

func displayNumber(wo *models.WorkOrder) string {
	if wo.FONumber != "" {
		return wo.FONumber
	}
	return wo.ID
}
