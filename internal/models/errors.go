package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrNoEligibleTarget = errors.New("no eligible escalation target")
	ErrInvalidFrequency = fmt.Errorf("%w: unknown frequency", ErrValidation)
	ErrInvalidWindow    = fmt.Errorf("%w: start date is after end date", ErrValidation)
)
