package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AssetsProvisioned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleet_assets_provisioned_total",
		Help: "Assets created with full template propagation.",
	})
	InstallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleet_component_installs_total",
		Help: "Component installations committed.",
	})
	UninstallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_component_uninstalls_total",
		Help: "Component removals committed, by motive.",
	}, []string{"motive"})
	OrdersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_maintenance_orders_total",
		Help: "Maintenance orders created, by initial state.",
	}, []string{"state"})
	RequisitionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleet_requisitions_total",
		Help: "Purchase requisitions created.",
	})
	ShortfallQty = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleet_shortfall_quantity_total",
		Help: "Accumulated shortfall quantity recorded on requisition lines.",
	})
)
