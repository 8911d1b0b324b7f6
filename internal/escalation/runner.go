package escalation

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RunnerStatus is a snapshot of the periodic escalation checker.
type RunnerStatus struct {
	Running              bool       `json:"running"`
	Interval             string     `json:"interval"`
	LastRun              *time.Time `json:"last_run,omitempty"`
	NextRun              *time.Time `json:"next_run,omitempty"`
	LastComplianceRun    *time.Time `json:"last_compliance_run,omitempty"`
	EscalatedCount       int        `json:"escalated_count"`
	ComplianceAlertCount int        `json:"compliance_alert_count"`
}

// Runner drives the controller on a timer across every active warehouse.
// Compliance warnings run on their own, longer cadence.
type Runner struct {
	controller         *Controller
	store              Store
	interval           time.Duration
	complianceInterval time.Duration
	logger             logrus.FieldLogger
	now                func() time.Time

	mu              sync.Mutex
	running         bool
	stop            chan struct{}
	done            chan struct{}
	lastRun         time.Time
	nextRun         time.Time
	lastCompliance  time.Time
	escalated       int
	complianceAlert int
}

// NewRunner creates a stopped runner.
func NewRunner(controller *Controller, store Store, interval, complianceInterval time.Duration, logger logrus.FieldLogger) *Runner {
	return &Runner{
		controller:         controller,
		store:              store,
		interval:           interval,
		complianceInterval: complianceInterval,
		logger:             logger,
		now:                time.Now,
	}
}

// SetClock overrides the time source.
func (r *Runner) SetClock(now func() time.Time) { r.now = now }

// Start launches the checker; the first check runs immediately. It returns
// false when already running.
func (r *Runner) Start() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false
	}
	r.running = true
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	r.nextRun = r.now()
	go r.loop(r.stop, r.done)
	r.logger.WithField("interval", r.interval.String()).Info("Escalation checks started")
	return true
}

// Stop cancels future checks. It returns false when not running.
func (r *Runner) Stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return false
	}
	r.running = false
	r.nextRun = time.Time{}
	close(r.stop)
	r.logger.Info("Escalation checks stopped")
	return true
}

// Shutdown stops the runner and waits for an in-flight check, or for ctx to end.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	r.Stop()
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

// Status reports the runner state.
func (r *Runner) Status() RunnerStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := RunnerStatus{
		Running:              r.running,
		Interval:             r.interval.String(),
		EscalatedCount:       r.escalated,
		ComplianceAlertCount: r.complianceAlert,
	}
	if !r.lastRun.IsZero() {
		t := r.lastRun
		s.LastRun = &t
	}
	if r.running && !r.nextRun.IsZero() {
		t := r.nextRun
		s.NextRun = &t
	}
	if !r.lastCompliance.IsZero() {
		t := r.lastCompliance
		s.LastComplianceRun = &t
	}
	return s
}

func (r *Runner) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.RunAll(context.Background())
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
			r.RunAll(context.Background())
		}
	}
}

// RunAll checks every active warehouse once. Errors are logged per warehouse.
func (r *Runner) RunAll(ctx context.Context) []CheckResult {
	now := r.now()
	r.mu.Lock()
	withCompliance := r.lastCompliance.IsZero() || now.Sub(r.lastCompliance) >= r.complianceInterval
	if withCompliance {
		r.lastCompliance = now
	}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.lastRun = r.now()
		if r.running {
			r.nextRun = r.lastRun.Add(r.interval)
		}
		r.mu.Unlock()
	}()

	warehouses, err := r.store.GetWarehouses(ctx)
	if err != nil {
		r.logger.WithError(err).Error("Escalation check could not list warehouses")
		return nil
	}

	var results []CheckResult
	for _, w := range warehouses {
		if !w.Active {
			continue
		}
		log := r.logger.WithField("warehouse_id", w.ID)

		res, err := r.controller.CheckForEscalations(ctx, w.ID)
		if err != nil {
			log.WithError(err).Error("Escalation check failed")
		} else {
			results = append(results, *res)
			r.mu.Lock()
			r.escalated += len(res.Escalated)
			r.mu.Unlock()
		}

		if !withCompliance {
			continue
		}
		alerts, err := r.controller.ProcessMissedPMEscalations(ctx, w.ID)
		if err != nil {
			log.WithError(err).Error("PM compliance escalation failed")
			continue
		}
		r.mu.Lock()
		r.complianceAlert += len(alerts)
		r.mu.Unlock()
	}
	return results
}
