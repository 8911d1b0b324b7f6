package pm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/maintenance-pm/internal/db"
	"github.com/ukydev/maintenance-pm/internal/models"
	"github.com/ukydev/maintenance-pm/internal/policy"
)

// Friday, 15 March 2024.
var testNow = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

func timePtr(t time.Time) *time.Time { return &t }

type fixture struct {
	store    *db.MemoryStore
	policies *policy.Store
	logger   *logrus.Logger
	hook     *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := db.NewMemoryStore()
	store.SetClock(clock)
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return &fixture{
		store:    store,
		policies: policy.NewStore(store, policy.StandardDefaults()),
		logger:   logger,
		hook:     hook,
	}
}

func (f *fixture) calculator() *Calculator {
	c := NewCalculator(f.store, f.policies, f.logger)
	c.SetClock(clock)
	return c
}

func (f *fixture) addEquipment(t *testing.T, e models.Equipment) models.Equipment {
	t.Helper()
	if e.WarehouseID == "" {
		e.WarehouseID = "w1"
	}
	if e.Status == "" {
		e.Status = models.EquipmentActive
	}
	saved, err := f.store.InsertEquipment(context.Background(), e)
	require.NoError(t, err)
	return *saved
}

func (f *fixture) addTemplate(t *testing.T, tmpl models.PmTemplate) models.PmTemplate {
	t.Helper()
	if tmpl.WarehouseID == "" {
		tmpl.WarehouseID = "w1"
	}
	tmpl.Active = true
	saved, err := f.store.InsertPmTemplate(context.Background(), tmpl)
	require.NoError(t, err)
	return *saved
}

func (f *fixture) addWorkOrder(t *testing.T, wo models.WorkOrder) models.WorkOrder {
	t.Helper()
	if wo.WarehouseID == "" {
		wo.WarehouseID = "w1"
	}
	if wo.Type == "" {
		wo.Type = models.WorkOrderPreventive
	}
	saved, err := f.store.CreateWorkOrder(context.Background(), wo)
	require.NoError(t, err)
	return *saved
}

func TestCheckComplianceStatus_NeverServiced(t *testing.T) {
	f := newFixture(t)
	pump := f.addEquipment(t, models.Equipment{
		ID: "PUMP-001", AssetTag: "PUMP-001", Model: "CP-200", Criticality: models.CriticalityHigh,
		InstallDate: timePtr(testNow.Add(-days(90))),
	})
	f.addTemplate(t, models.PmTemplate{ID: "t-oil", Model: "CP-200", Component: "Oil Filter", Action: "Replace", Frequency: models.FrequencyMonthly})

	rec, err := f.calculator().CheckComplianceStatus(context.Background(), pump.ID, "w1")
	require.NoError(t, err)

	assert.Equal(t, 1, rec.TotalPMCount)
	assert.GreaterOrEqual(t, rec.MissedPMCount, 1)
	assert.Less(t, rec.CompliancePercentage, 100.0)
	assert.Nil(t, rec.LastPMDate)
	require.Len(t, rec.Schedules, 1)
	assert.Equal(t, models.PMOverdue, rec.Schedules[0].Status)
	assert.Equal(t, testNow.Add(-days(90)), rec.Schedules[0].NextDueDate)
}

func TestCheckComplianceStatus_NoTemplates(t *testing.T) {
	f := newFixture(t)
	e := f.addEquipment(t, models.Equipment{ID: "e1", Model: "Lonely"})
	f.addTemplate(t, models.PmTemplate{ID: "t1", Model: "Other", Component: "Belt", Action: "Inspect", Frequency: models.FrequencyWeekly})

	rec, err := f.calculator().CheckComplianceStatus(context.Background(), e.ID, "w1")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.TotalPMCount)
	assert.Equal(t, 100.0, rec.CompliancePercentage)
	assert.Nil(t, rec.NextPMDueDate)
}

func TestCheckComplianceStatus_InactiveEquipmentIsNotScored(t *testing.T) {
	f := newFixture(t)
	for _, status := range []models.EquipmentStatus{models.EquipmentInactive, models.EquipmentRetired} {
		e := f.addEquipment(t, models.Equipment{ID: "e-" + string(status), Model: "CP-200", Status: status, InstallDate: timePtr(testNow.Add(-days(400)))})
		f.addTemplate(t, models.PmTemplate{ID: "t-" + string(status), Model: "CP-200", Component: "Belt", Action: "Inspect", Frequency: models.FrequencyWeekly})

		rec, err := f.calculator().CheckComplianceStatus(context.Background(), e.ID, "w1")
		require.NoError(t, err)
		assert.Equal(t, 0, rec.TotalPMCount, status)
		assert.Equal(t, 0, rec.MissedPMCount, status)
		assert.Equal(t, 100.0, rec.CompliancePercentage, status)
		assert.Empty(t, rec.Schedules, status)
	}
}

func TestCheckComplianceStatus_UnknownEquipment(t *testing.T) {
	f := newFixture(t)
	_, err := f.calculator().CheckComplianceStatus(context.Background(), "ghost", "w1")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestCheckComplianceStatus_UnknownFrequency(t *testing.T) {
	f := newFixture(t)
	e := f.addEquipment(t, models.Equipment{ID: "e1", Model: "M"})
	f.addTemplate(t, models.PmTemplate{ID: "t1", Model: "M", Component: "Belt", Action: "Inspect", Frequency: "fortnightly"})

	_, err := f.calculator().CheckComplianceStatus(context.Background(), e.ID, "w1")
	assert.True(t, errors.Is(err, models.ErrValidation))
	assert.True(t, errors.Is(err, models.ErrInvalidFrequency))
}

func TestScheduleFor_StatusFromLastCompletion(t *testing.T) {
	e := &models.Equipment{ID: "e1", Model: "M", CreatedAt: testNow.Add(-days(400))}
	tmpl := &models.PmTemplate{ID: "t1", Component: "Belt", Action: "Inspect", Frequency: models.FrequencyWeekly}

	tests := []struct {
		name      string
		completed time.Time
		want      models.PMStatus
	}{
		{"compliant", testNow.Add(-days(2)), models.PMCompliant},
		{"due within lead time", testNow.Add(-days(6)), models.PMDue},
		{"overdue", testNow.Add(-days(8)), models.PMOverdue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wos := []models.WorkOrder{{
				ID: "wo", Type: models.WorkOrderPreventive, EquipmentID: "e1", TemplateID: "t1",
				Status: models.StatusCompleted, CompletedAt: timePtr(tt.completed),
			}}
			s, err := ScheduleFor(e, tmpl, wos, testNow, days(2))
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Status)
			assert.Equal(t, tt.completed.Add(days(7)), s.NextDueDate)
			assert.Equal(t, 1, s.CompletedCount)
		})
	}
}

func TestScheduleFor_MatchesLegacyDescriptions(t *testing.T) {
	e := &models.Equipment{ID: "e1", CreatedAt: testNow.Add(-days(100))}
	tmpl := &models.PmTemplate{ID: "t1", Component: "Oil Filter", Action: "Replace", Frequency: models.FrequencyMonthly}
	done := testNow.Add(-days(3))
	wos := []models.WorkOrder{
		{ID: "legacy", Type: models.WorkOrderPreventive, EquipmentID: "e1", Description: "Replace oil filter", Status: models.StatusClosed, CompletedAt: &done},
		{ID: "other-template", Type: models.WorkOrderPreventive, EquipmentID: "e1", TemplateID: "t2", Description: "Oil Filter - Replace", Status: models.StatusNew},
		{ID: "corrective", Type: models.WorkOrderCorrective, EquipmentID: "e1", Description: "Oil Filter - Replace", Status: models.StatusNew},
		{ID: "other-equipment", Type: models.WorkOrderPreventive, EquipmentID: "e2", TemplateID: "t1", Status: models.StatusNew},
	}

	s, err := ScheduleFor(e, tmpl, wos, testNow, days(2))
	require.NoError(t, err)
	require.NotNil(t, s.LastCompletedAt)
	assert.Equal(t, done, *s.LastCompletedAt)
	assert.Empty(t, s.OpenWorkOrderID)
	assert.Equal(t, models.PMCompliant, s.Status)
}

func TestCompliance_OpenWorkOrderIsNotMissed(t *testing.T) {
	f := newFixture(t)
	e := f.addEquipment(t, models.Equipment{ID: "e1", Model: "M", InstallDate: timePtr(testNow.Add(-days(60)))})
	tmpl := f.addTemplate(t, models.PmTemplate{ID: "t1", Model: "m", Component: "Belt", Action: "Inspect", Frequency: models.FrequencyMonthly})
	f.addWorkOrder(t, models.WorkOrder{ID: "open", EquipmentID: e.ID, TemplateID: tmpl.ID, Status: models.StatusAssigned})

	rec, err := f.calculator().CheckComplianceStatus(context.Background(), e.ID, "w1")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.MissedPMCount)
	assert.Equal(t, 100.0, rec.CompliancePercentage)
	assert.Equal(t, "open", rec.Schedules[0].OpenWorkOrderID)
	assert.Equal(t, models.PMOverdue, rec.Schedules[0].Status)
}

func TestCompliance_CompletingWorkDoesNotLowerCompliance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	calc := f.calculator()
	e := f.addEquipment(t, models.Equipment{ID: "e1", Model: "M", InstallDate: timePtr(testNow.Add(-days(120)))})
	t1 := f.addTemplate(t, models.PmTemplate{ID: "t1", Model: "M", Component: "Belt", Action: "Inspect", Frequency: models.FrequencyMonthly})
	f.addTemplate(t, models.PmTemplate{ID: "t2", Model: "M", Component: "Motor", Action: "Grease", Frequency: models.FrequencyQuarterly})

	before, err := calc.CheckComplianceStatus(ctx, e.ID, "w1")
	require.NoError(t, err)

	f.addWorkOrder(t, models.WorkOrder{ID: "done", EquipmentID: e.ID, TemplateID: t1.ID, Status: models.StatusCompleted, CompletedAt: timePtr(testNow.Add(-time.Hour))})

	after, err := calc.CheckComplianceStatus(ctx, e.ID, "w1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, after.CompliancePercentage, before.CompliancePercentage)
	assert.Equal(t, 50.0, after.CompliancePercentage)
	require.NotNil(t, after.LastPMDate)
	assert.Equal(t, testNow.Add(-time.Hour), *after.LastPMDate)
}

func TestGetPMSchedule(t *testing.T) {
	f := newFixture(t)
	e := f.addEquipment(t, models.Equipment{ID: "e1", Model: "M", InstallDate: timePtr(testNow.Add(days(10)))})
	f.addTemplate(t, models.PmTemplate{ID: "t1", Model: "M", Component: "Belt", Action: "Inspect", Frequency: models.FrequencyDaily})

	schedules, err := f.calculator().GetPMSchedule(context.Background(), e.ID, "w1")
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, "Belt", schedules[0].Component)
	assert.Equal(t, models.PMCompliant, schedules[0].Status)
}

func TestWarehouseCompliance(t *testing.T) {
	f := newFixture(t)
	f.addEquipment(t, models.Equipment{ID: "e1", Model: "M", InstallDate: timePtr(testNow.Add(-days(40)))})
	f.addEquipment(t, models.Equipment{ID: "e2", Model: "M", InstallDate: timePtr(testNow.Add(days(5)))})
	f.addEquipment(t, models.Equipment{ID: "e3", Model: "M", Status: models.EquipmentRetired})
	f.addTemplate(t, models.PmTemplate{ID: "t1", Model: "M", Component: "Belt", Action: "Inspect", Frequency: models.FrequencyMonthly})

	summary, err := f.calculator().WarehouseCompliance(context.Background(), "w1")
	require.NoError(t, err)
	assert.Len(t, summary.Equipment, 2)
	assert.Equal(t, 2, summary.TotalPMsScheduled)
	assert.Equal(t, 1, summary.TotalPMsCompleted)
	assert.Equal(t, 1, summary.OverdueCount)
	assert.Equal(t, 50.0, summary.OverallComplianceRate)
}

func TestWarehouseCompliance_Empty(t *testing.T) {
	f := newFixture(t)
	summary, err := f.calculator().WarehouseCompliance(context.Background(), "w1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, summary.OverallComplianceRate)
	assert.Empty(t, summary.Equipment)
}
