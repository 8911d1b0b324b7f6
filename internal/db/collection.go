package db

import (
	"context"
	"time"

	"github.com/ukydev/maintenance-pm/internal/models"
)

// EquipmentCollection defines the interface for equipment data operations.
type EquipmentCollection interface {
	GetEquipment(ctx context.Context, warehouseID string) ([]models.Equipment, error)
	GetEquipmentByID(ctx context.Context, id string) (*models.Equipment, error)
	InsertEquipment(ctx context.Context, equipment models.Equipment) (*models.Equipment, error)
}

// TemplateCollection defines the interface for PM template data operations.
type TemplateCollection interface {
	GetPmTemplates(ctx context.Context, warehouseID string) ([]models.PmTemplate, error)
	InsertPmTemplate(ctx context.Context, template models.PmTemplate) (*models.PmTemplate, error)
}

// WorkOrderCollection defines the interface for work order data operations.
type WorkOrderCollection interface {
	GetWorkOrders(ctx context.Context, warehouseID string, filter models.WorkOrderFilter) ([]models.WorkOrder, error)
	GetWorkOrder(ctx context.Context, id string) (*models.WorkOrder, error)
	CreateWorkOrder(ctx context.Context, workOrder models.WorkOrder) (*models.WorkOrder, error)
	UpdateWorkOrder(ctx context.Context, id string, patch models.WorkOrderPatch) (*models.WorkOrder, error)
}

// ProfileCollection defines the interface for profile data operations.
type ProfileCollection interface {
	GetProfiles(ctx context.Context) ([]models.Profile, error)
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	InsertProfile(ctx context.Context, profile models.Profile) (*models.Profile, error)
}

// WarehouseCollection defines the interface for warehouse data operations.
type WarehouseCollection interface {
	GetWarehouses(ctx context.Context) ([]models.Warehouse, error)
	InsertWarehouse(ctx context.Context, warehouse models.Warehouse) (*models.Warehouse, error)
}

// NotificationCollection defines the interface for notification data operations.
type NotificationCollection interface {
	CreateNotification(ctx context.Context, notification models.Notification) (*models.Notification, error)
	GetNotifications(ctx context.Context, userID string) ([]models.Notification, error)
}

// EscalationCollection stores the escalation audit trail.
type EscalationCollection interface {
	RecordEscalation(ctx context.Context, action models.EscalationAction) error
	GetEscalations(ctx context.Context, warehouseID string, since time.Time) ([]models.EscalationAction, error)
}

// PolicyCollection stores per-warehouse policy overrides.
type PolicyCollection interface {
	GetPolicy(ctx context.Context, warehouseID string) (*models.WarehousePolicy, error)
	SavePolicy(ctx context.Context, policy models.WarehousePolicy) error
}

// Store is everything the PM engine reads from and writes to.
// MongoStore is the persistent implementation and MemoryStore the in-process one.
type Store interface {
	EquipmentCollection
	TemplateCollection
	WorkOrderCollection
	ProfileCollection
	WarehouseCollection
	NotificationCollection
	EscalationCollection
	PolicyCollection
}

var (
	_ Store = (*MongoStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
