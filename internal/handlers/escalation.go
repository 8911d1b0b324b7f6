package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/maintenance-pm/internal/escalation"
	"github.com/ukydev/maintenance-pm/internal/middleware"
	"github.com/ukydev/maintenance-pm/internal/models"
)

// Escalator performs escalations on behalf of API callers.
type Escalator interface {
	CheckForEscalations(ctx context.Context, warehouseID string) (*escalation.CheckResult, error)
	ManuallyEscalate(ctx context.Context, req escalation.ManualRequest) (*models.EscalationAction, error)
	GetEscalationStats(ctx context.Context, warehouseID string) (*models.EscalationStats, error)
	EscalationRules(ctx context.Context, warehouseID string) ([]models.EscalationRule, error)
	UpdateEscalationRules(ctx context.Context, warehouseID string, rules []models.EscalationRule) ([]models.EscalationRule, error)
}

// EscalationRunner is the periodic escalation loop.
type EscalationRunner interface {
	RunAll(ctx context.Context) []escalation.CheckResult
	Status() escalation.RunnerStatus
}

// EscalationHandler serves the escalation endpoints
type EscalationHandler struct {
	controller Escalator
	runner     EscalationRunner
	logger     logrus.FieldLogger
}

// NewEscalationHandler creates a new escalation handler
func NewEscalationHandler(controller Escalator, runner EscalationRunner, logger logrus.FieldLogger) *EscalationHandler {
	return &EscalationHandler{
		controller: controller,
		runner:     runner,
		logger:     logger,
	}
}

// Manual handles POST /api/escalations/manual
func (h *EscalationHandler) Manual(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req escalation.ManualRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if claims, ok := middleware.GetUserFromContext(r.Context()); ok {
		req.ActorID = claims.UserID
	}

	action, err := h.controller.ManuallyEscalate(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"work_order_id": action.WorkOrderID,
		"escalated_to":  action.EscalatedToUserID,
		"actor_id":      req.ActorID,
	}).Info("Work order escalated manually")
	writeJSON(w, http.StatusOK, action)
}

// Check handles POST /api/escalations/check. Without a warehouse every active
// warehouse is checked.
func (h *EscalationHandler) Check(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	if id := strings.TrimSpace(r.URL.Query().Get("warehouseId")); id != "" {
		res, err := h.controller.CheckForEscalations(r.Context(), id)
		if err != nil {
			writeError(w, h.logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, []escalation.CheckResult{*res})
		return
	}
	writeJSON(w, http.StatusOK, h.runner.RunAll(r.Context()))
}

// Stats handles GET /api/escalations/stats
func (h *EscalationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	warehouse, err := warehouseID(r)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	stats, err := h.controller.GetEscalationStats(r.Context(), warehouse)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Rules handles GET and PUT /api/escalations/rules
func (h *EscalationHandler) Rules(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet, http.MethodPut) {
		return
	}
	warehouse, err := warehouseID(r)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	if r.Method == http.MethodGet {
		rules, err := h.controller.EscalationRules(r.Context(), warehouse)
		if err != nil {
			writeError(w, h.logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rules)
		return
	}

	var rules []models.EscalationRule
	if err := decodeBody(r, &rules); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	saved, err := h.controller.UpdateEscalationRules(r.Context(), warehouse, rules)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	h.logger.WithFields(logrus.Fields{
		"warehouse_id": warehouse,
		"rules":        len(saved),
	}).Info("Escalation rules updated")
	writeJSON(w, http.StatusOK, saved)
}

// Status handles GET /api/escalations/status
func (h *EscalationHandler) Status(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.runner.Status())
}
