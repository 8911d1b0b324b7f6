package models

import (
	"fmt"
	"time"
)

// Frequency is how often a PM template recurs.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnually  Frequency = "annually"
)

const day = 24 * time.Hour

// Interval returns the fixed recurrence interval for the frequency.
func (f Frequency) Interval() (time.Duration, error) {
	switch f {
	case FrequencyDaily:
		return day, nil
	case FrequencyWeekly:
		return 7 * day, nil
	case FrequencyMonthly:
		return 30 * day, nil
	case FrequencyQuarterly:
		return 90 * day, nil
	case FrequencyAnnually:
		return 365 * day, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidFrequency, string(f))
	}
}

// DefaultEstimatedDuration is used when a template carries no duration, in minutes.
const DefaultEstimatedDuration = 60

// PmTemplate defines a recurring maintenance task for a class of equipment.
type PmTemplate struct {
	ID                string    `json:"id" bson:"_id"`
	Model             string    `json:"model" bson:"model"`
	Component         string    `json:"component" bson:"component"`
	Action            string    `json:"action" bson:"action"`
	Description       string    `json:"description" bson:"description"`
	Frequency         Frequency `json:"frequency" bson:"frequency"`
	EstimatedDuration int       `json:"estimated_duration" bson:"estimated_duration"` // in minutes
	Active            bool      `json:"active" bson:"active"`
	WarehouseID       string    `json:"warehouse_id" bson:"warehouse_id"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at"`
}

// Duration returns the estimated duration in minutes, falling back to the default.
func (t *PmTemplate) Duration() int {
	if t.EstimatedDuration <= 0 {
		return DefaultEstimatedDuration
	}
	return t.EstimatedDuration
}

// Title is the work-order description for this template.
func (t *PmTemplate) Title() string {
	return t.Component + " - " + t.Action
}
