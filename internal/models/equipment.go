package models

import (
	"strings"
	"time"
)

// EquipmentStatus is the lifecycle state of a physical asset.
type EquipmentStatus string

const (
	EquipmentActive      EquipmentStatus = "active"
	EquipmentInactive    EquipmentStatus = "inactive"
	EquipmentMaintenance EquipmentStatus = "maintenance"
	EquipmentRetired     EquipmentStatus = "retired"
)

// Criticality ranks how much an asset's downtime hurts operations.
type Criticality string

const (
	CriticalityLow      Criticality = "low"
	CriticalityMedium   Criticality = "medium"
	CriticalityHigh     Criticality = "high"
	CriticalityCritical Criticality = "critical"
)

// Rank returns a sortable weight; higher is more critical.
func (c Criticality) Rank() int {
	switch c {
	case CriticalityCritical:
		return 4
	case CriticalityHigh:
		return 3
	case CriticalityMedium:
		return 2
	case CriticalityLow:
		return 1
	default:
		return 0
	}
}

// Equipment represents a physical asset maintained by a warehouse.
type Equipment struct {
	ID          string          `json:"id" bson:"_id"`
	AssetTag    string          `json:"asset_tag" bson:"asset_tag"`
	Model       string          `json:"model" bson:"model"`
	Description string          `json:"description" bson:"description"`
	Area        string          `json:"area" bson:"area"`
	Status      EquipmentStatus `json:"status" bson:"status"`           // "active", "inactive", "maintenance", "retired"
	Criticality Criticality     `json:"criticality" bson:"criticality"` // "low", "medium", "high", "critical"
	InstallDate *time.Time      `json:"install_date,omitempty" bson:"install_date,omitempty"`
	WarehouseID string          `json:"warehouse_id" bson:"warehouse_id"`
	CreatedAt   time.Time       `json:"created_at" bson:"created_at"`
}

// IsActive reports whether the equipment participates in PM generation and scoring.
func (e *Equipment) IsActive() bool {
	return e.Status == EquipmentActive
}

// Baseline is the reference date for equipment that was never serviced.
func (e *Equipment) Baseline() time.Time {
	if e.InstallDate != nil && !e.InstallDate.IsZero() {
		return *e.InstallDate
	}
	return e.CreatedAt
}

// MatchesModel compares equipment models ignoring case and surrounding space.
func MatchesModel(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
