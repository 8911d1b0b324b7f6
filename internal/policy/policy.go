// Package policy keeps the per-warehouse scheduling, escalation and compliance rules
// in one place. Stored overrides are cached and replaced wholesale on update.
package policy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ukydev/maintenance-pm/internal/db"
	"github.com/ukydev/maintenance-pm/internal/models"
)

// Defaults seed the policy of a warehouse that has no stored override.
type Defaults struct {
	AutoSchedulingEnabled bool
	LeadTimeDays          int
	WorkingDays           []time.Weekday
	MaxConcurrentPMs      int
	ComplianceTarget      float64
}

// StandardDefaults mirrors the shipped configuration: Monday to Friday, two days lead time,
// ten concurrent PMs and a 95% compliance target.
func StandardDefaults() Defaults {
	return Defaults{
		AutoSchedulingEnabled: true,
		LeadTimeDays:          2,
		WorkingDays:           []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		MaxConcurrentPMs:      10,
		ComplianceTarget:      95,
	}
}

// Store resolves the effective policy of a warehouse.
type Store struct {
	backend  db.PolicyCollection
	defaults Defaults

	mu    sync.RWMutex
	cache map[string]models.WarehousePolicy
	now   func() time.Time
}

// NewStore creates a policy store over backend.
func NewStore(backend db.PolicyCollection, defaults Defaults) *Store {
	return &Store{
		backend:  backend,
		defaults: defaults,
		cache:    make(map[string]models.WarehousePolicy),
		now:      time.Now,
	}
}

// Default builds the policy a warehouse gets without an override.
func (s *Store) Default(warehouseID string) models.WarehousePolicy {
	days := make([]time.Weekday, len(s.defaults.WorkingDays))
	copy(days, s.defaults.WorkingDays)
	return models.WarehousePolicy{
		WarehouseID: warehouseID,
		Scheduling: models.SchedulingSettings{
			AutoSchedulingEnabled: s.defaults.AutoSchedulingEnabled,
			LeadTimeDays:          s.defaults.LeadTimeDays,
			WorkingDays:           days,
			MaxConcurrentPMs:      s.defaults.MaxConcurrentPMs,
		},
		EscalationRules:  models.DefaultEscalationRules(),
		ComplianceTarget: s.defaults.ComplianceTarget,
	}
}

// Get returns the effective policy of a warehouse.
func (s *Store) Get(ctx context.Context, warehouseID string) (models.WarehousePolicy, error) {
	s.mu.RLock()
	cached, ok := s.cache[warehouseID]
	s.mu.RUnlock()
	if ok {
		return clone(cached), nil
	}

	stored, err := s.backend.GetPolicy(ctx, warehouseID)
	var p models.WarehousePolicy
	switch {
	case err == nil:
		p = *stored
	case errors.Is(err, models.ErrNotFound):
		p = s.Default(warehouseID)
	default:
		return models.WarehousePolicy{}, fmt.Errorf("load policy for warehouse %s: %w", warehouseID, err)
	}

	s.mu.Lock()
	s.cache[warehouseID] = p
	s.mu.Unlock()
	return clone(p), nil
}

// Save validates and replaces the policy of a warehouse.
func (s *Store) Save(ctx context.Context, p models.WarehousePolicy) (models.WarehousePolicy, error) {
	if err := p.Validate(); err != nil {
		return models.WarehousePolicy{}, err
	}
	p = clone(p)
	p.UpdatedAt = s.now()
	if err := s.backend.SavePolicy(ctx, p); err != nil {
		return models.WarehousePolicy{}, fmt.Errorf("save policy for warehouse %s: %w", p.WarehouseID, err)
	}

	s.mu.Lock()
	s.cache[p.WarehouseID] = p
	s.mu.Unlock()
	return clone(p), nil
}

// EscalationRules returns the escalation rules of a warehouse.
func (s *Store) EscalationRules(ctx context.Context, warehouseID string) ([]models.EscalationRule, error) {
	p, err := s.Get(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	return p.EscalationRules, nil
}

// SaveEscalationRules replaces only the escalation rules of a warehouse.
func (s *Store) SaveEscalationRules(ctx context.Context, warehouseID string, rules []models.EscalationRule) (models.WarehousePolicy, error) {
	p, err := s.Get(ctx, warehouseID)
	if err != nil {
		return models.WarehousePolicy{}, err
	}
	p.EscalationRules = rules
	return s.Save(ctx, p)
}

// Invalidate drops the cached policy of a warehouse.
func (s *Store) Invalidate(warehouseID string) {
	s.mu.Lock()
	delete(s.cache, warehouseID)
	s.mu.Unlock()
}

func clone(p models.WarehousePolicy) models.WarehousePolicy {
	out := p
	out.Scheduling.WorkingDays = append([]time.Weekday(nil), p.Scheduling.WorkingDays...)
	out.EscalationRules = make([]models.EscalationRule, len(p.EscalationRules))
	for i, r := range p.EscalationRules {
		r.Channels = append([]models.Channel(nil), r.Channels...)
		out.EscalationRules[i] = r
	}
	return out
}
