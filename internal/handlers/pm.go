package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/maintenance-pm/internal/models"
	"github.com/ukydev/maintenance-pm/internal/pm"
)

// Scheduler controls the PM automation loop.
type Scheduler interface {
	Start() bool
	Stop() bool
	Status() pm.Status
	RunNow(ctx context.Context, warehouseID string) (*pm.RunResult, error)
}

// ComplianceService reads PM compliance.
type ComplianceService interface {
	CheckComplianceStatus(ctx context.Context, equipmentID, warehouseID string) (*models.ComplianceRecord, error)
	GetPMSchedule(ctx context.Context, equipmentID, warehouseID string) ([]models.PMSchedule, error)
	WarehouseCompliance(ctx context.Context, warehouseID string) (*models.WarehouseCompliance, error)
}

// ScheduleGenerator projects PM templates over a window.
type ScheduleGenerator interface {
	GenerateOptimizedSchedule(ctx context.Context, warehouseID string, startDate, endDate time.Time) (*models.ScheduleResult, error)
}

// DefaultScheduleWindow is used when optimized-schedule gets no endDate.
const DefaultScheduleWindow = 30 * 24 * time.Hour

// PMHandler serves the scheduler, compliance and schedule endpoints
type PMHandler struct {
	scheduler  Scheduler
	compliance ComplianceService
	generator  ScheduleGenerator
	logger     logrus.FieldLogger
	now        func() time.Time
}

// NewPMHandler creates a new PM handler
func NewPMHandler(scheduler Scheduler, compliance ComplianceService, generator ScheduleGenerator, logger logrus.FieldLogger) *PMHandler {
	return &PMHandler{
		scheduler:  scheduler,
		compliance: compliance,
		generator:  generator,
		logger:     logger,
		now:        time.Now,
	}
}

// StartScheduler handles POST /api/pm-scheduler/start
func (h *PMHandler) StartScheduler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	started := h.scheduler.Start()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"started": started,
		"status":  h.scheduler.Status(),
	})
}

// StopScheduler handles POST /api/pm-scheduler/stop
func (h *PMHandler) StopScheduler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	stopped := h.scheduler.Stop()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stopped": stopped,
		"status":  h.scheduler.Status(),
	})
}

// SchedulerStatus handles GET /api/pm-scheduler/status
func (h *PMHandler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.scheduler.Status())
}

// RunScheduler handles POST /api/pm-scheduler/run
func (h *PMHandler) RunScheduler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	warehouse, err := warehouseID(r)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	res, err := h.scheduler.RunNow(r.Context(), warehouse)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Compliance handles GET /api/pm-engine/compliance/{equipmentId}
func (h *PMHandler) Compliance(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	equipmentID, warehouse, ok := h.equipmentRequest(w, r)
	if !ok {
		return
	}
	rec, err := h.compliance.CheckComplianceStatus(r.Context(), equipmentID, warehouse)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Schedule handles GET /api/pm-engine/schedule/{equipmentId}
func (h *PMHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	equipmentID, warehouse, ok := h.equipmentRequest(w, r)
	if !ok {
		return
	}
	schedules, err := h.compliance.GetPMSchedule(r.Context(), equipmentID, warehouse)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schedules)
}

// OptimizedSchedule handles GET /api/pm-engine/optimized-schedule
func (h *PMHandler) OptimizedSchedule(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	warehouse, err := warehouseID(r)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	start := h.now()
	if v := r.URL.Query().Get("startDate"); v != "" {
		if start, err = parseDate(v, false); err != nil {
			writeError(w, h.logger, r, err)
			return
		}
	}
	end := start.Add(DefaultScheduleWindow)
	if v := r.URL.Query().Get("endDate"); v != "" {
		if end, err = parseDate(v, true); err != nil {
			writeError(w, h.logger, r, err)
			return
		}
	}

	res, err := h.generator.GenerateOptimizedSchedule(r.Context(), warehouse, start, end)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// WarehouseCompliance handles GET /api/pm-compliance
func (h *PMHandler) WarehouseCompliance(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	warehouse, err := warehouseID(r)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	summary, err := h.compliance.WarehouseCompliance(r.Context(), warehouse)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *PMHandler) equipmentRequest(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	equipmentID := strings.TrimSpace(r.PathValue("equipmentId"))
	if equipmentID == "" {
		http.Error(w, "equipmentId is required", http.StatusBadRequest)
		return "", "", false
	}
	warehouse, err := warehouseID(r)
	if err != nil {
		writeError(w, h.logger, r, err)
		return "", "", false
	}
	return equipmentID, warehouse, true
}
