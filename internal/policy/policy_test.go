package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/maintenance-pm/internal/db"
	"github.com/ukydev/maintenance-pm/internal/models"
)

type failingBackend struct {
	getErr  error
	saveErr error
	gets    int
}

func (f *failingBackend) GetPolicy(ctx context.Context, warehouseID string) (*models.WarehousePolicy, error) {
	f.gets++
	return nil, f.getErr
}

func (f *failingBackend) SavePolicy(ctx context.Context, policy models.WarehousePolicy) error {
	return f.saveErr
}

func TestStore_DefaultsWhenNothingStored(t *testing.T) {
	s := NewStore(db.NewMemoryStore(), StandardDefaults())

	p, err := s.Get(context.Background(), "w1")
	require.NoError(t, err)
	assert.Equal(t, "w1", p.WarehouseID)
	assert.Equal(t, 95.0, p.ComplianceTarget)
	assert.Equal(t, 2, p.Scheduling.LeadTimeDays)
	assert.Equal(t, 10, p.Scheduling.MaxConcurrentPMs)
	assert.Len(t, p.Scheduling.WorkingDays, 5)
	assert.Len(t, p.EscalationRules, 4)
	assert.NoError(t, p.Validate())
}

func TestStore_SaveReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	backend := db.NewMemoryStore()
	s := NewStore(backend, StandardDefaults())

	p, err := s.Get(ctx, "w1")
	require.NoError(t, err)
	p.ComplianceTarget = 90
	p.Scheduling.WorkingDays = []time.Weekday{time.Saturday}

	saved, err := s.Save(ctx, p)
	require.NoError(t, err)
	assert.False(t, saved.UpdatedAt.IsZero())

	got, err := s.Get(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, 90.0, got.ComplianceTarget)
	assert.Equal(t, []time.Weekday{time.Saturday}, got.Scheduling.WorkingDays)

	stored, err := backend.GetPolicy(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, 90.0, stored.ComplianceTarget)
}

func TestStore_ReturnedPolicyIsACopy(t *testing.T) {
	s := NewStore(db.NewMemoryStore(), StandardDefaults())
	p, err := s.Get(context.Background(), "w1")
	require.NoError(t, err)
	p.EscalationRules[0].ThresholdHours = 1000

	again, err := s.Get(context.Background(), "w1")
	require.NoError(t, err)
	assert.Equal(t, 4.0, again.EscalationRules[0].ThresholdHours)
}

func TestStore_SaveRejectsInvalid(t *testing.T) {
	s := NewStore(db.NewMemoryStore(), StandardDefaults())
	p := s.Default("w1")
	p.ComplianceTarget = 0

	_, err := s.Save(context.Background(), p)
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestStore_SaveEscalationRules(t *testing.T) {
	ctx := context.Background()
	s := NewStore(db.NewMemoryStore(), StandardDefaults())
	rules := []models.EscalationRule{{ID: "r", Priority: models.PriorityHigh, ThresholdHours: 1, EscalateToRole: models.RoleManager, Active: true}}

	_, err := s.SaveEscalationRules(ctx, "w1", rules)
	require.NoError(t, err)

	got, err := s.EscalationRules(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.RoleManager, got[0].EscalateToRole)
}

func TestStore_BackendFailurePropagates(t *testing.T) {
	backend := &failingBackend{getErr: errors.New("db down")}
	s := NewStore(backend, StandardDefaults())

	_, err := s.Get(context.Background(), "w1")
	assert.Error(t, err)

	backend.getErr = models.ErrNotFound
	_, err = s.Get(context.Background(), "w1")
	require.NoError(t, err)
	_, err = s.Get(context.Background(), "w1")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.gets, "second successful read should be served from cache")

	s.Invalidate("w1")
	_, err = s.Get(context.Background(), "w1")
	require.NoError(t, err)
	assert.Equal(t, 3, backend.gets)
}
