package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ukydev/maintenance-pm/internal/models"
)

// MemoryStore implements Store with id-keyed maps. It backs tests and single-node demos.
type MemoryStore struct {
	mu            sync.RWMutex
	equipment     map[string]models.Equipment
	templates     map[string]models.PmTemplate
	workOrders    map[string]models.WorkOrder
	profiles      map[string]models.Profile
	warehouses    map[string]models.Warehouse
	notifications map[string]models.Notification
	escalations   []models.EscalationAction
	policies      map[string]models.WarehousePolicy
	now           func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		equipment:     make(map[string]models.Equipment),
		templates:     make(map[string]models.PmTemplate),
		workOrders:    make(map[string]models.WorkOrder),
		profiles:      make(map[string]models.Profile),
		warehouses:    make(map[string]models.Warehouse),
		notifications: make(map[string]models.Notification),
		policies:      make(map[string]models.WarehousePolicy),
		now:           time.Now,
	}
}

// SetClock overrides the time source used to stamp records.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// sortedValues returns map values ordered by creation time, then id.
func sortedValues[T any](items map[string]T, created func(T) (time.Time, string), keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, v := range items {
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, idi := created(out[i])
		tj, idj := created(out[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return idi < idj
	})
	return out
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
}

// GetEquipment returns all equipment of a warehouse.
func (m *MemoryStore) GetEquipment(_ context.Context, warehouseID string) ([]models.Equipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.equipment,
		func(e models.Equipment) (time.Time, string) { return e.CreatedAt, e.ID },
		func(e models.Equipment) bool { return e.WarehouseID == warehouseID }), nil
}

// GetEquipmentByID finds equipment by its ID.
func (m *MemoryStore) GetEquipmentByID(_ context.Context, id string) (*models.Equipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.equipment[id]
	if !ok {
		return nil, notFound("equipment", id)
	}
	return &e, nil
}

// InsertEquipment stores an equipment record.
func (m *MemoryStore) InsertEquipment(_ context.Context, equipment models.Equipment) (*models.Equipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if equipment.ID == "" {
		equipment.ID = uuid.NewString()
	}
	if equipment.CreatedAt.IsZero() {
		equipment.CreatedAt = m.now()
	}
	m.equipment[equipment.ID] = equipment
	return &equipment, nil
}

// GetPmTemplates returns all PM templates of a warehouse, active or not.
func (m *MemoryStore) GetPmTemplates(_ context.Context, warehouseID string) ([]models.PmTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.templates,
		func(t models.PmTemplate) (time.Time, string) { return t.CreatedAt, t.ID },
		func(t models.PmTemplate) bool { return t.WarehouseID == warehouseID }), nil
}

// InsertPmTemplate stores a PM template.
func (m *MemoryStore) InsertPmTemplate(_ context.Context, template models.PmTemplate) (*models.PmTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	if template.CreatedAt.IsZero() {
		template.CreatedAt = m.now()
	}
	m.templates[template.ID] = template
	return &template, nil
}

// GetWorkOrders queries the work orders of a warehouse.
func (m *MemoryStore) GetWorkOrders(_ context.Context, warehouseID string, filter models.WorkOrderFilter) ([]models.WorkOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.workOrders,
		func(w models.WorkOrder) (time.Time, string) { return w.CreatedAt, w.ID },
		func(w models.WorkOrder) bool { return w.WarehouseID == warehouseID && filter.Matches(&w) }), nil
}

// GetWorkOrder finds a work order by its ID.
func (m *MemoryStore) GetWorkOrder(_ context.Context, id string) (*models.WorkOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.workOrders[id]
	if !ok {
		return nil, notFound("work order", id)
	}
	return &w, nil
}

// CreateWorkOrder stores a new work order.
func (m *MemoryStore) CreateWorkOrder(_ context.Context, workOrder models.WorkOrder) (*models.WorkOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if workOrder.ID == "" {
		workOrder.ID = uuid.NewString()
	}
	if _, exists := m.workOrders[workOrder.ID]; exists {
		return nil, fmt.Errorf("work order %s already exists", workOrder.ID)
	}
	if workOrder.CreatedAt.IsZero() {
		workOrder.CreatedAt = now
	}
	if workOrder.UpdatedAt.IsZero() {
		workOrder.UpdatedAt = now
	}
	m.workOrders[workOrder.ID] = workOrder
	return &workOrder, nil
}

// UpdateWorkOrder applies a patch and returns the updated work order.
func (m *MemoryStore) UpdateWorkOrder(_ context.Context, id string, patch models.WorkOrderPatch) (*models.WorkOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workOrders[id]
	if !ok {
		return nil, notFound("work order", id)
	}
	if patch.UpdatedAt.IsZero() {
		patch.UpdatedAt = m.now()
	}
	patch.Apply(&w)
	m.workOrders[id] = w
	return &w, nil
}

// GetProfiles returns every profile.
func (m *MemoryStore) GetProfiles(_ context.Context) ([]models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.profiles,
		func(p models.Profile) (time.Time, string) { return p.CreatedAt, p.ID }, nil), nil
}

// GetProfile finds a profile by its ID.
func (m *MemoryStore) GetProfile(_ context.Context, id string) (*models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, notFound("profile", id)
	}
	return &p, nil
}

// InsertProfile stores a profile.
func (m *MemoryStore) InsertProfile(_ context.Context, profile models.Profile) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = m.now()
	}
	m.profiles[profile.ID] = profile
	return &profile, nil
}

// GetWarehouses returns every warehouse.
func (m *MemoryStore) GetWarehouses(_ context.Context) ([]models.Warehouse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.warehouses,
		func(w models.Warehouse) (time.Time, string) { return w.CreatedAt, w.ID }, nil), nil
}

// InsertWarehouse stores a warehouse.
func (m *MemoryStore) InsertWarehouse(_ context.Context, warehouse models.Warehouse) (*models.Warehouse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if warehouse.ID == "" {
		warehouse.ID = uuid.NewString()
	}
	if warehouse.CreatedAt.IsZero() {
		warehouse.CreatedAt = m.now()
	}
	m.warehouses[warehouse.ID] = warehouse
	return &warehouse, nil
}

// CreateNotification stores a notification.
func (m *MemoryStore) CreateNotification(_ context.Context, notification models.Notification) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = m.now()
	}
	m.notifications[notification.ID] = notification
	return &notification, nil
}

// GetNotifications returns the notifications addressed to a user.
func (m *MemoryStore) GetNotifications(_ context.Context, userID string) ([]models.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.notifications,
		func(n models.Notification) (time.Time, string) { return n.CreatedAt, n.ID },
		func(n models.Notification) bool { return n.UserID == userID }), nil
}

// RecordEscalation appends an escalation action to the audit trail.
func (m *MemoryStore) RecordEscalation(_ context.Context, action models.EscalationAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	m.escalations = append(m.escalations, action)
	return nil
}

// GetEscalations returns the escalations of a warehouse at or after since.
func (m *MemoryStore) GetEscalations(_ context.Context, warehouseID string, since time.Time) ([]models.EscalationAction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.EscalationAction{}
	for _, a := range m.escalations {
		if a.WarehouseID == warehouseID && !a.EscalatedAt.Before(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

// GetPolicy returns the stored policy override of a warehouse.
func (m *MemoryStore) GetPolicy(_ context.Context, warehouseID string) (*models.WarehousePolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.policies[warehouseID]
	if !ok {
		return nil, notFound("policy", warehouseID)
	}
	return &p, nil
}

// SavePolicy replaces the stored policy of a warehouse.
func (m *MemoryStore) SavePolicy(_ context.Context, policy models.WarehousePolicy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[policy.WarehouseID] = policy
	return nil
}
