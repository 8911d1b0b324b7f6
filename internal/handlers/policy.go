package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/maintenance-pm/internal/models"
)

// PolicyStore reads and replaces warehouse policies.
type PolicyStore interface {
	Get(ctx context.Context, warehouseID string) (models.WarehousePolicy, error)
	Save(ctx context.Context, p models.WarehousePolicy) (models.WarehousePolicy, error)
}

// PolicyHandler serves /api/policies
type PolicyHandler struct {
	policies PolicyStore
	logger   logrus.FieldLogger
}

// NewPolicyHandler creates a new policy handler
func NewPolicyHandler(policies PolicyStore, logger logrus.FieldLogger) *PolicyHandler {
	return &PolicyHandler{policies: policies, logger: logger}
}

// Policy handles GET and PUT /api/policies
func (h *PolicyHandler) Policy(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet, http.MethodPut) {
		return
	}
	warehouse, err := warehouseID(r)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	if r.Method == http.MethodGet {
		p, err := h.policies.Get(r.Context(), warehouse)
		if err != nil {
			writeError(w, h.logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
		return
	}

	var p models.WarehousePolicy
	if err := decodeBody(r, &p); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if p.WarehouseID == "" {
		p.WarehouseID = warehouse
	}
	if p.WarehouseID != warehouse {
		writeError(w, h.logger, r, fmt.Errorf("policy warehouse %q does not match %q: %w", p.WarehouseID, warehouse, models.ErrValidation))
		return
	}

	saved, err := h.policies.Save(r.Context(), p)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	h.logger.WithField("warehouse_id", warehouse).Info("Warehouse policy updated")
	writeJSON(w, http.StatusOK, saved)
}
