package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the product registry.
type Metrics struct {
	ProductsRegistered prometheus.Counter
	OwnershipTransfers prometheus.Counter
	DuplicateSerials   prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		ProductsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "provenant_products_registered_total",
			Help: "Products added to the registry",
		}),
		OwnershipTransfers: promauto.NewCounter(prometheus.CounterOpts{
			Name: "provenant_product_transfers_total",
			Help: "Completed product ownership transfers",
		}),
		DuplicateSerials: promauto.NewCounter(prometheus.CounterOpts{
			Name: "provenant_product_duplicate_serials_total",
			Help: "Registrations rejected because the serial number was taken",
		}),
	}
}

func (m *Metrics) IncrementRegistered() {
	if m != nil {
		m.ProductsRegistered.Inc()
	}
}

func (m *Metrics) IncrementTransfer() {
	if m != nil {
		m.OwnershipTransfers.Inc()
	}
}

func (m *Metrics) IncrementDuplicateSerial() {
	if m != nil {
		m.DuplicateSerials.Inc()
	}
}
