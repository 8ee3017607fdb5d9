package maintenance

import "time"

type OrderState string

// Order lifecycle. Creation lands on esperando_stock when any line is short,
// por_ejecutar otherwise.
const (
	OrderDiagnostico    OrderState = "diagnostico"
	OrderEsperandoStock OrderState = "esperando_stock"
	OrderPorEjecutar    OrderState = "por_ejecutar"
	OrderEnEjecucion    OrderState = "en_ejecucion"
	OrderCompletada     OrderState = "completada"
)

var orderGraph = map[OrderState]map[OrderState]bool{
	OrderDiagnostico:    {OrderEsperandoStock: true, OrderPorEjecutar: true},
	OrderEsperandoStock: {OrderPorEjecutar: true},
	OrderPorEjecutar:    {OrderEnEjecucion: true},
	OrderEnEjecucion:    {OrderCompletada: true},
	OrderCompletada:     {},
}

func CanTransition(from, to OrderState) bool { return orderGraph[from][to] }

type LineState string

const (
	LineInStock    LineState = "in_stock"
	LineOutOfStock LineState = "out_of_stock"
)

type MaintenanceOrder struct {
	ID            int64
	AssetID       int64
	State         OrderState
	RequisitionID *int64
	Description   string
	ActorID       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type OrderLine struct {
	ID           int64
	OrderID      int64
	ConsumableID int64
	Quantity     float64
	State        LineState
}

type RequisitionState string

const (
	RequisitionOpen     RequisitionState = "abierta"
	RequisitionReceived RequisitionState = "recibida"
)

// Requisition is created automatically from order shortfalls or manually from
// the below-minimum listing. Code is the external document reference.
type Requisition struct {
	ID        int64
	Code      string
	OrderID   *int64
	State     RequisitionState
	ActorID   int64
	CreatedAt time.Time
}

// RequisitionLine quantities are the shortfall at order-creation time, never
// the full requested quantity.
type RequisitionLine struct {
	ID            int64
	RequisitionID int64
	ConsumableID  int64
	Quantity      float64
}

// Finding is a reported fault on a subsystem instance, attachable to an order.
type Finding struct {
	ID                  int64
	AssetID             int64
	SubsystemInstanceID int64
	Description         string
	OrderID             *int64
	ActorID             int64
	CreatedAt           time.Time
}
