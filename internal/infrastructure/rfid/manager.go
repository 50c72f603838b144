package rfid

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/GeorgiDimov1228/warehouse-management/pkg/config"
	"github.com/GeorgiDimov1228/warehouse-management/pkg/logger"
	"github.com/GeorgiDimov1228/warehouse-management/pkg/metrics"
)

// listener lo que el manager necesita de cada transporte.
type listener interface {
	Run(ctx context.Context)
	Status() Status
}

// Manager arranca un listener por lector configurado (el esquema de la URL
// elige el transporte), deduplica y reúne todos los eventos en un solo canal.
type Manager struct {
	cfg       config.RFIDConfig
	deduper   Deduper
	log       *logger.Logger
	metrics   *metrics.Metrics
	events    chan ScanEvent
	listeners map[string]listener
}

// NewManager construye el manager. Los listeners se crean de una vez; Run los
// pone a correr.
func NewManager(cfg config.RFIDConfig, deduper Deduper, log *logger.Logger, m *metrics.Metrics) *Manager {
	mgr := &Manager{
		cfg:       cfg,
		deduper:   deduper,
		log:       log.Component("rfid-manager"),
		metrics:   m,
		events:    make(chan ScanEvent, 256),
		listeners: make(map[string]listener),
	}
	for id, rc := range cfg.Readers {
		mgr.listeners[id] = mgr.buildListener(id, rc)
	}
	return mgr
}

func (m *Manager) buildListener(id string, rc config.ReaderConfig) listener {
	u, err := url.Parse(rc.URL)
	scheme := ""
	if err == nil {
		scheme = strings.ToLower(u.Scheme)
	}
	switch scheme {
	case "ws", "wss":
		return NewStreamListener(id, rc.URL, m.cfg.InitialBackoff, m.cfg.MaxBackoff, m.deliver, m.log, m.metrics)
	default:
		return NewPollListener(id, rc.URL, rc.APIKey, rc.PollInterval, m.deliver, m.log, m.metrics)
	}
}

// deliver aplica deduplicación y entrega el evento; si nadie consume a tiempo
// el evento se descarta con aviso en lugar de frenar al lector.
func (m *Manager) deliver(ctx context.Context, ev ScanEvent) {
	if !m.deduper.FirstSeen(ctx, ev.Tag, ev.ReaderID) {
		m.metrics.ScanDeduplicated()
		return
	}
	m.metrics.ScanReceived()
	select {
	case m.events <- ev:
	default:
		m.log.Warn().Str("reader", ev.ReaderID).Str("rfid_tag", ev.Tag).Msg("canal de eventos lleno; lectura descartada")
	}
}

// Events canal de lecturas ya deduplicadas.
func (m *Manager) Events() <-chan ScanEvent { return m.events }

// Run arranca todos los listeners y espera a que terminen al cancelar ctx.
func (m *Manager) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for id, l := range m.listeners {
		wg.Add(1)
		go func(id string, l listener) {
			defer wg.Done()
			m.log.Info().Str("reader", id).Str("transport", l.Status().Transport).Msg("listener de lector iniciado")
			l.Run(ctx)
		}(id, l)
	}
	wg.Wait()
}

// Statuses estado de todos los lectores, ordenado por id.
func (m *Manager) Statuses() []Status {
	out := make([]Status, 0, len(m.listeners))
	for _, l := range m.listeners {
		out = append(out, l.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReaderID < out[j].ReaderID })
	return out
}
