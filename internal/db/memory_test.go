package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/maintenance-pm/internal/models"
)

func TestMemoryStore_EquipmentByWarehouse(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.InsertEquipment(ctx, models.Equipment{ID: "e2", WarehouseID: "w1", CreatedAt: base})
	require.NoError(t, err)
	_, err = store.InsertEquipment(ctx, models.Equipment{ID: "e1", WarehouseID: "w1", CreatedAt: base})
	require.NoError(t, err)
	_, err = store.InsertEquipment(ctx, models.Equipment{ID: "e3", WarehouseID: "w2", CreatedAt: base})
	require.NoError(t, err)

	got, err := store.GetEquipment(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "e1", got[0].ID)
	assert.Equal(t, "e2", got[1].ID)

	_, err = store.GetEquipmentByID(ctx, "nope")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestMemoryStore_WorkOrderFilterAndPatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	created, err := store.CreateWorkOrder(ctx, models.WorkOrder{
		Type: models.WorkOrderPreventive, Status: models.StatusNew, WarehouseID: "w1", EquipmentID: "e1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, now, created.CreatedAt)

	_, err = store.CreateWorkOrder(ctx, models.WorkOrder{
		Type: models.WorkOrderCorrective, Status: models.StatusCompleted, WarehouseID: "w1",
	})
	require.NoError(t, err)

	open, err := store.GetWorkOrders(ctx, "w1", models.WorkOrderFilter{
		Statuses: []models.WorkOrderStatus{models.StatusNew, models.StatusAssigned},
	})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, created.ID, open[0].ID)

	assignee := "p1"
	updated, err := store.UpdateWorkOrder(ctx, created.ID, models.WorkOrderPatch{AssignedTo: &assignee})
	require.NoError(t, err)
	assert.Equal(t, "p1", updated.AssignedTo)

	reread, err := store.GetWorkOrder(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "p1", reread.AssignedTo)

	_, err = store.UpdateWorkOrder(ctx, "missing", models.WorkOrderPatch{})
	assert.True(t, errors.Is(err, models.ErrNotFound))

	_, err = store.CreateWorkOrder(ctx, models.WorkOrder{ID: created.ID})
	assert.Error(t, err)
}

func TestMemoryStore_EscalationsSince(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.RecordEscalation(ctx, models.EscalationAction{WarehouseID: "w1", EscalatedAt: day.Add(-time.Hour)}))
	require.NoError(t, store.RecordEscalation(ctx, models.EscalationAction{WarehouseID: "w1", EscalatedAt: day.Add(time.Hour)}))
	require.NoError(t, store.RecordEscalation(ctx, models.EscalationAction{WarehouseID: "w2", EscalatedAt: day.Add(time.Hour)}))

	got, err := store.GetEscalations(ctx, "w1", day)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMemoryStore_Policy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.GetPolicy(ctx, "w1")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	require.NoError(t, store.SavePolicy(ctx, models.WarehousePolicy{WarehouseID: "w1", ComplianceTarget: 80}))
	p, err := store.GetPolicy(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, 80.0, p.ComplianceTarget)
}
