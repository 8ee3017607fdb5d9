package catalog

import (
	"fmt"

	"github.com/hectormarrufor/WR-sub004/internal/domain/errs"
)

// Criterion is the matching rule of a recommendation: exactly one of the three
// variants. The storage layer keeps three nullable columns; FromColumns refuses
// to build a criterion unless exactly one is populated, so the illegal states
// never reach resolution.
type Criterion interface {
	criterion()
	Kind() string
}

// Group matches every consumable whose equivalence group is GroupID.
type Group struct{ GroupID int64 }

// Technical matches on an exact category-specific attribute value.
type Technical struct{ Spec string }

// Individual matches a single consumable, no substitution allowed.
type Individual struct{ ConsumableID int64 }

func (Group) criterion()      {}
func (Technical) criterion()  {}
func (Individual) criterion() {}

func (Group) Kind() string      { return "group" }
func (Technical) Kind() string  { return "technical" }
func (Individual) Kind() string { return "individual" }

// Validate rejects a criterion that could never resolve. Rules are checked at
// creation time so malformed criteria never reach storage.
func Validate(c Criterion) error {
	switch v := c.(type) {
	case Group:
		if v.GroupID <= 0 {
			return fmt.Errorf("group criterion without group: %w", errs.ErrValidation)
		}
	case Technical:
		if v.Spec == "" {
			return fmt.Errorf("technical criterion with empty spec: %w", errs.ErrValidation)
		}
	case Individual:
		if v.ConsumableID <= 0 {
			return fmt.Errorf("individual criterion without consumable: %w", errs.ErrValidation)
		}
	case nil:
		return fmt.Errorf("rule without criterion: %w", errs.ErrValidation)
	default:
		return fmt.Errorf("unknown criterion %T: %w", c, errs.ErrValidation)
	}
	return nil
}

// FromColumns rebuilds a criterion from its nullable column representation.
func FromColumns(groupID *int64, spec *string, consumableID *int64) (Criterion, error) {
	n := 0
	if groupID != nil {
		n++
	}
	if spec != nil {
		n++
	}
	if consumableID != nil {
		n++
	}
	if n != 1 {
		return nil, fmt.Errorf("criterion must have exactly one variant populated, got %d: %w", n, errs.ErrValidation)
	}
	switch {
	case groupID != nil:
		return Group{GroupID: *groupID}, nil
	case spec != nil:
		if *spec == "" {
			return nil, fmt.Errorf("technical criterion with empty spec: %w", errs.ErrValidation)
		}
		return Technical{Spec: *spec}, nil
	default:
		return Individual{ConsumableID: *consumableID}, nil
	}
}

// Columns is the inverse of FromColumns, used on insert.
func Columns(c Criterion) (groupID *int64, spec *string, consumableID *int64) {
	switch v := c.(type) {
	case Group:
		groupID = &v.GroupID
	case Technical:
		spec = &v.Spec
	case Individual:
		consumableID = &v.ConsumableID
	}
	return
}

// Matches reports whether a consumable satisfies a criterion within the given
// component category. Resolution is read-only; it never touches stock.
func Matches(c Consumable, crit Criterion, category string) bool {
	if !c.Active || c.Category != category {
		return false
	}
	switch v := crit.(type) {
	case Group:
		return c.GroupID != nil && *c.GroupID == v.GroupID
	case Technical:
		return c.TechSpec != "" && c.TechSpec == v.Spec
	case Individual:
		return c.ID == v.ConsumableID
	default:
		return false
	}
}
