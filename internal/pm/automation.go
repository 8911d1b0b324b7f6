package pm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/maintenance-pm/internal/models"
	"golang.org/x/sync/singleflight"
)

// SystemRequester is recorded as the requester of generated work orders.
const SystemRequester = "system"

// RunResult describes one automation pass over a warehouse.
type RunResult struct {
	WarehouseID string             `json:"warehouse_id"`
	WindowStart time.Time          `json:"window_start"`
	WindowEnd   time.Time          `json:"window_end"`
	Scheduled   int                `json:"scheduled"`
	Skipped     int                `json:"skipped"`
	Conflicts   int                `json:"conflicts"`
	Created     []models.WorkOrder `json:"created"`
}

// Status is a snapshot of the automation loop.
type Status struct {
	Running        bool       `json:"running"`
	Interval       string     `json:"interval"`
	LastRun        *time.Time `json:"last_run,omitempty"`
	NextRun        *time.Time `json:"next_run,omitempty"`
	GeneratedCount int        `json:"generated_count"`
}

// Automation periodically converts due PMs into work orders.
type Automation struct {
	generator *Generator
	store     Store
	policies  PolicySource
	interval  time.Duration
	logger    logrus.FieldLogger
	now       func() time.Time

	group singleflight.Group

	mu             sync.Mutex
	running        bool
	stop           chan struct{}
	done           chan struct{}
	lastRun        time.Time
	nextRun        time.Time
	generatedCount int
}

// NewAutomation creates a stopped automation loop.
func NewAutomation(generator *Generator, store Store, policies PolicySource, interval time.Duration, logger logrus.FieldLogger) *Automation {
	return &Automation{
		generator: generator,
		store:     store,
		policies:  policies,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock overrides the time source.
func (a *Automation) SetClock(now func() time.Time) { a.now = now }

// Start launches the loop. The first pass runs immediately. It returns false
// when the loop was already running.
func (a *Automation) Start() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return false
	}
	a.running = true
	a.stop = make(chan struct{})
	a.done = make(chan struct{})
	a.nextRun = a.now()
	go a.loop(a.stop, a.done)
	a.logger.WithField("interval", a.interval.String()).Info("PM automation started")
	return true
}

// Stop cancels future passes. A pass already in flight runs to completion.
// It returns false when the loop was not running.
func (a *Automation) Stop() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return false
	}
	a.running = false
	a.nextRun = time.Time{}
	close(a.stop)
	a.logger.Info("PM automation stopped")
	return true
}

// Shutdown stops the loop and waits for an in-flight pass, or for ctx to end.
func (a *Automation) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	a.Stop()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status reports whether the loop runs and when it last and next fires.
func (a *Automation) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := Status{
		Running:        a.running,
		Interval:       a.interval.String(),
		GeneratedCount: a.generatedCount,
	}
	if !a.lastRun.IsZero() {
		last := a.lastRun
		s.LastRun = &last
	}
	if a.running && !a.nextRun.IsZero() {
		next := a.nextRun
		s.NextRun = &next
	}
	return s
}

func (a *Automation) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.RunAll(context.Background())
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			select {
			case <-stop:
				return
			default:
			}
			a.RunAll(context.Background())
		}
	}
}

// RunAll performs one pass over every active warehouse with auto scheduling
// enabled. Failures are logged per warehouse and do not stop the pass.
func (a *Automation) RunAll(ctx context.Context) []RunResult {
	defer a.markRun()

	warehouses, err := a.store.GetWarehouses(ctx)
	if err != nil {
		a.logger.WithError(err).Error("PM automation could not list warehouses")
		return nil
	}

	var results []RunResult
	for _, w := range warehouses {
		if !w.Active {
			continue
		}
		log := a.logger.WithField("warehouse_id", w.ID)
		policy, err := a.policies.Get(ctx, w.ID)
		if err != nil {
			log.WithError(err).Error("PM automation could not load policy")
			continue
		}
		if !policy.Scheduling.AutoSchedulingEnabled {
			log.Debug("Auto scheduling disabled, skipping warehouse")
			continue
		}
		res, err := a.runWarehouse(ctx, w.ID)
		if err != nil {
			log.WithError(err).Error("PM automation pass failed")
		}
		if res != nil {
			results = append(results, *res)
		}
	}
	return results
}

// RunNow runs one pass for a single warehouse and returns its outcome.
// It ignores the auto scheduling flag.
func (a *Automation) RunNow(ctx context.Context, warehouseID string) (*RunResult, error) {
	if warehouseID == "" {
		return nil, fmt.Errorf("warehouse id is required: %w", models.ErrValidation)
	}
	defer a.markRun()
	return a.runWarehouse(ctx, warehouseID)
}

func (a *Automation) markRun() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastRun = a.now()
	if a.running {
		a.nextRun = a.lastRun.Add(a.interval)
	}
}

// runWarehouse collapses concurrent passes for the same warehouse into one.
func (a *Automation) runWarehouse(ctx context.Context, warehouseID string) (*RunResult, error) {
	v, err, _ := a.group.Do(warehouseID, func() (interface{}, error) {
		return a.generate(ctx, warehouseID)
	})
	res, _ := v.(*RunResult)
	return res, err
}

func (a *Automation) generate(ctx context.Context, warehouseID string) (*RunResult, error) {
	policy, err := a.policies.Get(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	now := a.now()
	end := now.Add(policy.Scheduling.LeadTime())
	schedule, err := a.generator.GenerateOptimizedSchedule(ctx, warehouseID, now, end)
	if err != nil {
		return nil, err
	}

	open, err := a.store.GetWorkOrders(ctx, warehouseID, models.WorkOrderFilter{
		Type:     models.WorkOrderPreventive,
		Statuses: []models.WorkOrderStatus{models.StatusNew, models.StatusAssigned, models.StatusInProgress},
	})
	if err != nil {
		return nil, fmt.Errorf("load open work orders for warehouse %s: %w", warehouseID, err)
	}

	res := &RunResult{
		WarehouseID: warehouseID,
		WindowStart: now,
		WindowEnd:   end,
		Scheduled:   len(schedule.ScheduledPMs),
		Conflicts:   len(schedule.Conflicts),
		Created:     []models.WorkOrder{},
	}
	for _, pm := range schedule.ScheduledPMs {
		if hasOpenWorkOrder(open, &pm) {
			res.Skipped++
			continue
		}
		wo, err := a.store.CreateWorkOrder(ctx, newPMWorkOrder(&pm, warehouseID, now))
		if err != nil {
			a.addGenerated(len(res.Created))
			return res, fmt.Errorf("create work order for equipment %s template %s: %w", pm.EquipmentID, pm.TemplateID, err)
		}
		open = append(open, *wo)
		res.Created = append(res.Created, *wo)
		a.logger.WithFields(logrus.Fields{
			"warehouse_id":  warehouseID,
			"equipment_id":  wo.EquipmentID,
			"template_id":   wo.TemplateID,
			"work_order_id": wo.ID,
		}).Info("Generated PM work order")
	}
	a.addGenerated(len(res.Created))
	return res, nil
}

func (a *Automation) addGenerated(n int) {
	a.mu.Lock()
	a.generatedCount += n
	a.mu.Unlock()
}

func hasOpenWorkOrder(open []models.WorkOrder, pm *models.ScheduledPM) bool {
	template := &models.PmTemplate{ID: pm.TemplateID, Component: pm.Component, Action: pm.Action}
	for i := range open {
		wo := &open[i]
		if wo.EquipmentID == pm.EquipmentID && wo.Status.IsOpen() && wo.CoversTemplate(template) {
			return true
		}
	}
	return false
}

// WorkOrderNumber formats a generated PM number as PM-YYYYMMDD-XXXXXX.
func WorkOrderNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("PM-%s-%s", at.Format("20060102"), suffix)
}

func newPMWorkOrder(pm *models.ScheduledPM, warehouseID string, now time.Time) models.WorkOrder {
	due := pm.ScheduledDate
	return models.WorkOrder{
		ID:             uuid.NewString(),
		FONumber:       WorkOrderNumber(now),
		Type:           models.WorkOrderPreventive,
		Description:    pm.Description,
		Status:         models.StatusNew,
		Priority:       pm.Priority,
		RequestedBy:    SystemRequester,
		EquipmentID:    pm.EquipmentID,
		TemplateID:     pm.TemplateID,
		DueDate:        &due,
		EstimatedHours: float64(pm.EstimatedDuration) / 60,
		WarehouseID:    warehouseID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
