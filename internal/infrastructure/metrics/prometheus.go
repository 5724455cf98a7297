// Package metrics contadores Prometheus del motor de stock.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/dealer-stock-api/internal/application/inventory"
)

var _ inventory.Observer = (*Observer)(nil)

// Observer implementa inventory.Observer con contadores etiquetados por tipo de ámbito
// (warehouse / dealer). El dueño del ámbito no se usa como etiqueta para acotar la cardinalidad.
type Observer struct {
	registry *prometheus.Registry

	commits     *prometheus.CounterVec
	reversals   *prometheus.CounterVec
	batches     *prometheus.CounterVec
	shortfalls  *prometheus.CounterVec
	aborts      *prometheus.CounterVec
	recertified *prometheus.CounterVec
}

// New registra los contadores en un registro propio (más los collectors de Go y proceso).
func New(namespace string) *Observer {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	counter := func(name, help string) *prometheus.CounterVec {
		c := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      name,
			Help:      help,
		}, []string{"scope"})
		reg.MustRegister(c)
		return c
	}
	return &Observer{
		registry:    reg,
		commits:     counter("commits_total", "Descuentos confirmados."),
		reversals:   counter("reversals_total", "Reversiones confirmadas."),
		batches:     counter("batch_movements_total", "Movimientos de lote confirmados."),
		shortfalls:  counter("shortfall_materials_total", "Materiales con stock insuficiente al validar."),
		aborts:      counter("concurrency_aborts_total", "Commits abortados porque el stock cambió."),
		recertified: counter("recertifications_total", "Lotes recertificados."),
	}
}

func (o *Observer) Committed(scope string, batches int) {
	o.commits.WithLabelValues(scope).Inc()
	o.batches.WithLabelValues(scope).Add(float64(batches))
}

func (o *Observer) Reversed(scope string, batches int) {
	o.reversals.WithLabelValues(scope).Inc()
	o.batches.WithLabelValues(scope).Add(float64(batches))
}

func (o *Observer) ShortfallDetected(scope string, materials int) {
	o.shortfalls.WithLabelValues(scope).Add(float64(materials))
}

func (o *Observer) ConcurrencyAborted(scope string) {
	o.aborts.WithLabelValues(scope).Inc()
}

func (o *Observer) Recertified(scope string) {
	o.recertified.WithLabelValues(scope).Inc()
}

// Handler expone el registro en formato de texto de Prometheus.
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{Registry: o.registry})
}
