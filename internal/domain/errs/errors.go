package errs

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError carries the exact shortfall for a fungible install.
// This is the hard-failure path; the expected shortfall branch during order
// creation is a normal outcome and never produces this error.
type InsufficientStockError struct {
	ConsumableID int64
	Requested    float64
	Available    float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for consumable %d: requested %.3f, available %.3f",
		e.ConsumableID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// TransitionError reports a serialized-unit transition outside the allowed graph.
type TransitionError struct {
	UnitID int64
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("serialized unit %d: transition %s -> %s is not allowed", e.UnitID, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }
