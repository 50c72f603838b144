package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contadores Prometheus de los subsistemas del núcleo.
// Todos los métodos toleran receptor nil para que los tests puedan omitirlas.
type Metrics struct {
	registry *prometheus.Registry

	ScansReceived     prometheus.Counter
	ScansDeduplicated prometheus.Counter
	ReaderReconnects  *prometheus.CounterVec

	LedgerCommitted *prometheus.CounterVec
	LedgerRejected  *prometheus.CounterVec
	LedgerReplayed  prometheus.Counter

	LinkState      prometheus.Gauge
	LinkReconnects prometheus.Counter

	SyncCycles      prometheus.Counter
	SyncWriteErrors prometheus.Counter
	SyncStale       prometheus.Gauge
}

// New crea y registra las métricas en un registry propio.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ScansReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warehouse_rfid_scans_received_total",
			Help: "Eventos de escaneo recibidos de los lectores (antes de deduplicar)",
		}),
		ScansDeduplicated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warehouse_rfid_scans_deduplicated_total",
			Help: "Escaneos descartados por la ventana de deduplicación",
		}),
		ReaderReconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warehouse_rfid_reader_reconnects_total",
			Help: "Reintentos de conexión por lector",
		}, []string{"reader"}),
		LedgerCommitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warehouse_ledger_committed_total",
			Help: "Transacciones confirmadas por tipo",
		}, []string{"kind"}),
		LedgerRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warehouse_ledger_rejected_total",
			Help: "Transacciones rechazadas por motivo",
		}, []string{"reason"}),
		LedgerReplayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warehouse_ledger_replayed_total",
			Help: "Peticiones repetidas resueltas por clave de idempotencia",
		}),
		LinkState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "warehouse_opcua_link_state",
			Help: "Estado del enlace OPC UA (0=disconnected 1=connecting 2=connected 3=reconnecting 4=failed)",
		}),
		LinkReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warehouse_opcua_reconnects_total",
			Help: "Reintentos de conexión del cliente OPC UA",
		}),
		SyncCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warehouse_sync_cycles_total",
			Help: "Ciclos ejecutados por el lazo de sincronización",
		}),
		SyncWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warehouse_sync_write_errors_total",
			Help: "Escrituras al PLC fallidas durante la sincronización",
		}),
		SyncStale: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "warehouse_sync_stale",
			Help: "1 si el estado publicado en el PLC está desactualizado",
		}),
	}
	reg.MustRegister(
		m.ScansReceived, m.ScansDeduplicated, m.ReaderReconnects,
		m.LedgerCommitted, m.LedgerRejected, m.LedgerReplayed,
		m.LinkState, m.LinkReconnects,
		m.SyncCycles, m.SyncWriteErrors, m.SyncStale,
	)
	return m
}

// Handler expone el registry en formato Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Los incrementadores siguientes toleran m == nil (tests sin métricas).

func (m *Metrics) ScanReceived() {
	if m != nil {
		m.ScansReceived.Inc()
	}
}

func (m *Metrics) ScanDeduplicated() {
	if m != nil {
		m.ScansDeduplicated.Inc()
	}
}

func (m *Metrics) ReaderReconnect(reader string) {
	if m != nil {
		m.ReaderReconnects.WithLabelValues(reader).Inc()
	}
}

func (m *Metrics) TxCommitted(kind string) {
	if m != nil {
		m.LedgerCommitted.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) TxRejected(reason string) {
	if m != nil {
		m.LedgerRejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) TxReplayed() {
	if m != nil {
		m.LedgerReplayed.Inc()
	}
}

func (m *Metrics) SetLinkState(s int) {
	if m != nil {
		m.LinkState.Set(float64(s))
	}
}

func (m *Metrics) LinkReconnect() {
	if m != nil {
		m.LinkReconnects.Inc()
	}
}

func (m *Metrics) SyncCycle() {
	if m != nil {
		m.SyncCycles.Inc()
	}
}

func (m *Metrics) SyncWriteError() {
	if m != nil {
		m.SyncWriteErrors.Inc()
	}
}

func (m *Metrics) SetSyncStale(stale bool) {
	if m == nil {
		return
	}
	if stale {
		m.SyncStale.Set(1)
	} else {
		m.SyncStale.Set(0)
	}
}
