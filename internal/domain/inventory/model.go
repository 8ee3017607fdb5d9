package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	MoveIn  Direction = "in"
	MoveOut Direction = "out"
)

type Motive string

const (
	// Warehouse entries.
	MotiveReceipt            Motive = "recepcion"
	MotiveRequisitionReceipt Motive = "recepcion_requisicion"
	MotiveReturn             Motive = "devolucion_registro"
	// Warehouse/assigned exits.
	MotiveProvisioning Motive = "aprovisionamiento"
	MotiveInstall      Motive = "instalacion"
	MotiveWornOut      Motive = "baja_desgaste"
	// Assigned grows with no warehouse decrement: serial declared on the fly.
	// Deliberately breaks warehouse conservation; see the install engine.
	MotiveUnaudited Motive = "adquisicion_no_auditada"
)

// Movement is one immutable ledger row. Every change to a consumable's
// warehouse/assigned counters pairs with exactly one movement carrying the
// unit cost at that moment; corrections are new offsetting movements.
type Movement struct {
	ID           int64
	ConsumableID int64
	Qty          float64
	Direction    Direction
	UnitCost     decimal.Decimal
	Motive       Motive
	Note         string
	AssetID      *int64
	OrderID      *int64
	ActorID      int64
	CreatedAt    time.Time
}

type UnitState string

const (
	UnitInWarehouse UnitState = "in_warehouse"
	UnitAssigned    UnitState = "assigned"
	UnitInstalled   UnitState = "installed"
	UnitRetired     UnitState = "retired"
)

// SerializedUnit is one physical trackable item. Asset/subsystem references are
// present iff state is assigned or installed.
type SerializedUnit struct {
	ID                  int64
	ConsumableID        int64
	Serial              string
	State               UnitState
	AssetID             *int64
	SubsystemInstanceID *int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type RemovalMotive string

const (
	RemovalRegistrationError RemovalMotive = "registration_error"
	RemovalWornOut           RemovalMotive = "worn_out"
)

// InstalledComponent links a subsystem instance to a serialized unit or a
// fungible quantity. Removal terminates it, never deletes it.
type InstalledComponent struct {
	ID                  int64
	AssetID             int64
	SubsystemInstanceID int64
	ConsumableID        int64
	UnitID              *int64
	Qty                 float64
	RuleID              *int64
	LifeEstimate        *float64
	Active              bool
	InstalledAt         time.Time
	RemovedAt           *time.Time
	RemovalMotive       *RemovalMotive
	RemovalNote         string
	ActorID             int64
}
