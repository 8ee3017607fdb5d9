package assets

import (
	"time"

	"github.com/hectormarrufor/WR-sub004/internal/domain/catalog"
)

type Kind string

const (
	KindVehicle Kind = "vehicle"
	KindTrailer Kind = "trailer"
	KindMachine Kind = "machine"
)

type AssetStatus string

const (
	AssetActive  AssetStatus = "active"
	AssetRetired AssetStatus = "retired"
)

// AssetModel is the maintenance template: brand/model/year plus kind-specific
// attributes. Its subsystem templates are propagated onto every instance.
type AssetModel struct {
	ID    int64
	Kind  Kind
	Brand string
	Model string
	Year  int
	// Kind-specific attributes (axles, engine code, capacity...), stored as jsonb.
	Attrs     map[string]string
	CreatedAt time.Time
}

// SubsystemTemplate belongs to exactly one AssetModel and owns ordered
// recommendation rules.
type SubsystemTemplate struct {
	ID       int64
	ModelID  int64
	Name     string
	Category string
	Position int
	Rules    []RecommendationRule
}

// RecommendationRule describes an abstract consumable need of a subsystem.
type RecommendationRule struct {
	ID         int64
	TemplateID int64
	Category   string
	Quantity   float64
	Criterion  catalog.Criterion
	Position   int
}

// Asset is one physical unit. CurrentOdometer/CurrentHourMeter are derived
// projections of the meter log, updated transactionally with every log write.
type Asset struct {
	ID               int64
	ModelID          int64
	Kind             Kind
	DetailID         int64
	Status           AssetStatus
	CurrentOdometer  float64
	CurrentHourMeter float64
	PhotoURL         string
	CreatedAt        time.Time
}

// AssetDetail is the kind-specific instance record (plate, serials). One per
// asset, living in the vehicle/trailer/machine detail table matching its kind.
type AssetDetail struct {
	ID           int64
	Kind         Kind
	Plate        string
	VIN          string
	SerialNumber string
}

type SubsystemStatus string

const (
	SubsystemOK    SubsystemStatus = "ok"
	SubsystemFault SubsystemStatus = "fault"
)

// SubsystemInstance is the per-asset copy of a subsystem template. TemplateID
// is nullable: instances outlive template changes.
type SubsystemInstance struct {
	ID         int64
	AssetID    int64
	TemplateID *int64
	Name       string
	Category   string
	Status     SubsystemStatus
	CreatedAt  time.Time
}

type MeterKind string

const (
	MeterOdometer  MeterKind = "odometer"
	MeterHourMeter MeterKind = "hour_meter"
)

// MeterEntry is an immutable milestone in the odometer/hour-meter log, the
// source of truth behind the cached values on the asset row.
type MeterEntry struct {
	ID         int64
	AssetID    int64
	Kind       MeterKind
	Value      float64
	ActorID    int64
	RecordedAt time.Time
}
