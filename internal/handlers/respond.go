package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/maintenance-pm/internal/middleware"
	"github.com/ukydev/maintenance-pm/internal/models"
)

const dateOnly = "2006-01-02"

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP status codes. Unexpected errors are
// logged and reported without detail.
func writeError(w http.ResponseWriter, logger logrus.FieldLogger, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, models.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrNoEligibleTarget):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		logger.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("Request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func requireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

// warehouseID takes the warehouseId query parameter, falling back to the caller's warehouse.
func warehouseID(r *http.Request) (string, error) {
	if id := strings.TrimSpace(r.URL.Query().Get("warehouseId")); id != "" {
		return id, nil
	}
	if claims, ok := middleware.GetUserFromContext(r.Context()); ok && claims.WarehouseID != "" {
		return claims.WarehouseID, nil
	}
	return "", fmt.Errorf("warehouseId is required: %w", models.ErrValidation)
}

// parseDate accepts RFC3339 timestamps or plain dates. A plain date used as
// the end of a window covers the whole day.
func parseDate(value string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, models.ErrValidation)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %v: %w", err, models.ErrValidation)
	}
	return nil
}
