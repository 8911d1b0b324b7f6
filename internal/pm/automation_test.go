package pm

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/maintenance-pm/internal/db"
	"github.com/ukydev/maintenance-pm/internal/models"
)

type failingCreateStore struct {
	*db.MemoryStore
}

func (s failingCreateStore) CreateWorkOrder(context.Context, models.WorkOrder) (*models.WorkOrder, error) {
	return nil, errors.New("write concern failed")
}

func (f *fixture) automation(store Store) *Automation {
	if store == nil {
		store = f.store
	}
	gen := NewGenerator(store, f.policies, f.logger)
	gen.SetClock(clock)
	a := NewAutomation(gen, store, f.policies, time.Hour, f.logger)
	a.SetClock(clock)
	return a
}

func (f *fixture) addWarehouse(t *testing.T, id string, active bool) {
	t.Helper()
	_, err := f.store.InsertWarehouse(context.Background(), models.Warehouse{ID: id, Name: id, Active: active})
	require.NoError(t, err)
}

// seedOverdue adds one overdue belt inspection for a new pump in the warehouse.
func (f *fixture) seedOverdue(t *testing.T, warehouseID string) {
	t.Helper()
	f.addEquipment(t, models.Equipment{ID: warehouseID + "-pump", Model: "CP-200", WarehouseID: warehouseID, InstallDate: timePtr(testNow.Add(-days(3)))})
	f.addTemplate(t, models.PmTemplate{ID: warehouseID + "-belt", Model: "CP-200", Component: "Belt", Action: "Inspect", Frequency: models.FrequencyWeekly, EstimatedDuration: 90, WarehouseID: warehouseID})
}

func TestRunNow_CreatesWorkOrders(t *testing.T) {
	f := newFixture(t)
	f.seedOverdue(t, "w1")

	res, err := f.automation(nil).RunNow(context.Background(), "w1")
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	assert.Equal(t, testNow, res.WindowStart)
	assert.Equal(t, testNow.Add(days(2)), res.WindowEnd)

	wo := res.Created[0]
	assert.Regexp(t, regexp.MustCompile(`^PM-20240315-[0-9A-F]{6}$`), wo.FONumber)
	assert.Equal(t, models.WorkOrderPreventive, wo.Type)
	assert.Equal(t, models.StatusNew, wo.Status)
	assert.Equal(t, models.PriorityHigh, wo.Priority)
	assert.Equal(t, SystemRequester, wo.RequestedBy)
	assert.Equal(t, "w1-pump", wo.EquipmentID)
	assert.Equal(t, "w1-belt", wo.TemplateID)
	assert.Equal(t, "Belt - Inspect", wo.Description)
	assert.Equal(t, 1.5, wo.EstimatedHours)
	require.NotNil(t, wo.DueDate)
	assert.Equal(t, testNow, *wo.DueDate)

	stored, err := f.store.GetWorkOrder(context.Background(), wo.ID)
	require.NoError(t, err)
	assert.Equal(t, wo.FONumber, stored.FONumber)
}

func TestRunNow_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seedOverdue(t, "w1")
	a := f.automation(nil)

	first, err := a.RunNow(context.Background(), "w1")
	require.NoError(t, err)
	assert.Len(t, first.Created, 1)

	second, err := a.RunNow(context.Background(), "w1")
	require.NoError(t, err)
	assert.Empty(t, second.Created)
	assert.Equal(t, 1, second.Skipped)

	all, err := f.store.GetWorkOrders(context.Background(), "w1", models.WorkOrderFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, 1, a.Status().GeneratedCount)
}

func TestRunNow_SkipsLegacyOpenWorkOrder(t *testing.T) {
	f := newFixture(t)
	f.seedOverdue(t, "w1")
	f.addWorkOrder(t, models.WorkOrder{ID: "manual", EquipmentID: "w1-pump", Description: "inspect the belt", Status: models.StatusInProgress})

	res, err := f.automation(nil).RunNow(context.Background(), "w1")
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Equal(t, 1, res.Skipped)
}

func TestRunNow_RequiresWarehouse(t *testing.T) {
	f := newFixture(t)
	_, err := f.automation(nil).RunNow(context.Background(), "")
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestRunNow_SurfacesStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.seedOverdue(t, "w1")

	_, err := f.automation(failingCreateStore{f.store}).RunNow(context.Background(), "w1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write concern failed")
}

func TestRunAll_ContinuesPastFailingWarehouse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addWarehouse(t, "w-bad", true)
	f.addWarehouse(t, "w1", true)
	f.addWarehouse(t, "w-closed", false)
	f.addWarehouse(t, "w-manual", true)
	f.seedOverdue(t, "w1")
	f.seedOverdue(t, "w-closed")
	f.seedOverdue(t, "w-manual")
	f.addTemplate(t, models.PmTemplate{ID: "broken", Model: "X", Component: "Belt", Action: "Inspect", Frequency: "hourly", WarehouseID: "w-bad"})

	manual := f.policies.Default("w-manual")
	manual.Scheduling.AutoSchedulingEnabled = false
	_, err := f.policies.Save(ctx, manual)
	require.NoError(t, err)

	a := f.automation(nil)
	results := a.RunAll(ctx)
	require.Len(t, results, 1)
	assert.Equal(t, "w1", results[0].WarehouseID)
	assert.Len(t, results[0].Created, 1)

	for _, w := range []string{"w-closed", "w-manual"} {
		wos, err := f.store.GetWorkOrders(ctx, w, models.WorkOrderFilter{})
		require.NoError(t, err)
		assert.Empty(t, wos, w)
	}

	var failed bool
	for _, entry := range f.hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel && entry.Data["warehouse_id"] == "w-bad" {
			failed = true
		}
	}
	assert.True(t, failed, "failure of w-bad should be logged")
	assert.NotNil(t, a.Status().LastRun)
}

func TestAutomation_StartStop(t *testing.T) {
	f := newFixture(t)
	f.addWarehouse(t, "w1", true)
	f.seedOverdue(t, "w1")
	a := f.automation(nil)

	assert.False(t, a.Status().Running)
	assert.False(t, a.Stop())

	require.True(t, a.Start())
	assert.False(t, a.Start(), "second start is a no-op")
	assert.True(t, a.Status().Running)

	assert.Eventually(t, func() bool { return a.Status().LastRun != nil }, 2*time.Second, 10*time.Millisecond)
	st := a.Status()
	assert.Equal(t, 1, st.GeneratedCount)
	require.NotNil(t, st.NextRun)
	assert.Equal(t, testNow.Add(time.Hour), *st.NextRun)
	assert.Equal(t, "1h0m0s", st.Interval)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.Shutdown(ctx))
	assert.False(t, a.Status().Running)
	assert.Nil(t, a.Status().NextRun)
	assert.False(t, a.Stop())

	res, err := a.RunNow(context.Background(), "w1")
	require.NoError(t, err)
	assert.Empty(t, res.Created)
}

func TestWorkOrderNumber(t *testing.T) {
	a := WorkOrderNumber(testNow)
	b := WorkOrderNumber(testNow)
	assert.Regexp(t, `^PM-20240315-[0-9A-F]{6}$`, a)
	assert.NotEqual(t, a, b)
}
