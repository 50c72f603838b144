// Package plcsync implementa el lazo de sincronización con el PLC: publica el
// estado derivado del inventario (conteo, semáforo, estado HMI) y consume los
// comandos del panel del operario. El hardware nunca bloquea ni revierte una
// transacción local: si el enlace no está conectado el ciclo marca el espejo
// como desactualizado y sigue.
package plcsync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/repository"
	"github.com/GeorgiDimov1228/warehouse-management/pkg/logger"
	"github.com/GeorgiDimov1228/warehouse-management/pkg/metrics"
)

// Estados HMI publicados en el PLC.
const (
	HMIStatusIdle        = "IDLE"
	HMIStatusRunning     = "RUNNING"
	HMIStatusMaintenance = "MAINTENANCE"
	HMIStatusEmergency   = "EMERGENCY"
)

// Link lo que el lazo necesita del enlace con el PLC.
type Link interface {
	Connected() bool
	Read(ctx context.Context, nodeID string) (any, error)
	Write(ctx context.Context, nodeID string, value any) error
}

// Config parámetros del lazo.
type Config struct {
	Interval        time.Duration
	YellowThreshold float64 // ocupación a partir de la cual el semáforo pasa a amarillo
	RedThreshold    float64
}

// Status instantánea del lazo.
type Status struct {
	Stale       bool
	LastCycleAt time.Time
	HMIStatus   string
}

// Loop ejecuta ciclos a intervalo fijo y bajo demanda (Trigger tras cada
// transacción confirmada). Escribe solo los valores que cambiaron desde la
// última escritura exitosa.
type Loop struct {
	link        Link
	invRepo     repository.InventoryRepository
	cabinetRepo repository.CabinetRepository
	bindings    map[string]entity.NodeBinding
	cfg         Config
	log         *logger.Logger
	metrics     *metrics.Metrics

	trigger   chan struct{}
	onCommand func(cmd string)

	mu          sync.Mutex
	lastWritten map[string]any
	lastCycleAt time.Time
	hmiStatus   string
	opMode      string // LOAD, UNLOAD o vacío

	stale atomic.Bool
}

// NewLoop construye el lazo; bindings indexa las vinculaciones por nombre.
func NewLoop(link Link, invRepo repository.InventoryRepository, cabinetRepo repository.CabinetRepository,
	bindings []entity.NodeBinding, cfg Config, log *logger.Logger, m *metrics.Metrics) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.YellowThreshold <= 0 {
		cfg.YellowThreshold = 0.7
	}
	if cfg.RedThreshold <= 0 {
		cfg.RedThreshold = 0.9
	}
	byName := make(map[string]entity.NodeBinding, len(bindings))
	for _, b := range bindings {
		byName[b.Name] = b
	}
	l := &Loop{
		link:        link,
		invRepo:     invRepo,
		cabinetRepo: cabinetRepo,
		bindings:    byName,
		cfg:         cfg,
		log:         log.Component("plcsync"),
		metrics:     m,
		trigger:     make(chan struct{}, 1),
		lastWritten: make(map[string]any),
		hmiStatus:   HMIStatusIdle,
	}
	l.stale.Store(true) // hasta el primer ciclo exitoso el espejo no es confiable
	return l
}

// OnCommand registra el manejador de comandos HMI reconocidos.
func (l *Loop) OnCommand(fn func(cmd string)) { l.onCommand = fn }

// Trigger pide un ciclo inmediato; se colapsan los pedidos pendientes.
func (l *Loop) Trigger() {
	select {
	case l.trigger <- struct{}{}:
	default:
	}
}

// Run ejecuta el lazo hasta que ctx se cancele.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()
	l.Cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-l.trigger:
		}
		l.Cycle(ctx)
	}
}

// Cycle un ciclo completo: publicar señales y recoger comandos. Si el enlace
// no está conectado no se toca el PLC y el espejo queda marcado stale.
func (l *Loop) Cycle(ctx context.Context) {
	if !l.link.Connected() {
		l.markStale(true)
		l.log.Debug().Msg("enlace no conectado; ciclo de sincronización omitido")
		return
	}

	ok := l.publish(ctx)
	l.pollCommands(ctx)

	l.markStale(!ok)
	if ok {
		l.mu.Lock()
		l.lastCycleAt = time.Now()
		l.mu.Unlock()
		l.metrics.SyncCycle()
	}
}

// publish escribe las señales de salida que cambiaron. Devuelve false si
// alguna escritura falló.
func (l *Loop) publish(ctx context.Context) bool {
	ok := true

	total, err := l.invRepo.TotalQuantity()
	if err != nil {
		l.log.Error().Err(err).Msg("no se pudo leer el total de inventario")
		return false
	}
	if !l.writeIfChanged(ctx, entity.BindingItemCount, total) {
		ok = false
	}

	light, err := l.trafficLight(total)
	if err != nil {
		l.log.Error().Err(err).Msg("no se pudo calcular la ocupación")
		return false
	}
	if !l.writeIfChanged(ctx, entity.BindingTrafficLight, light) {
		ok = false
	}

	if !l.writeIfChanged(ctx, entity.BindingHMIStatus, l.HMIStatus()) {
		ok = false
	}
	return ok
}

// trafficLight semáforo según la ocupación de los estantes con capacidad
// finita. Una parada de emergencia fuerza rojo hasta el RESET.
func (l *Loop) trafficLight(total int64) (string, error) {
	if l.HMIStatus() == HMIStatusEmergency {
		return entity.TrafficLightRed, nil
	}
	shelves, err := l.cabinetRepo.ListShelves()
	if err != nil {
		return "", fmt.Errorf("listando estantes: %w", err)
	}
	var capacity int64
	for _, s := range shelves {
		if !s.Unlimited() {
			capacity += s.Capacity
		}
	}
	if capacity == 0 {
		return entity.TrafficLightGreen, nil
	}
	occupancy := float64(total) / float64(capacity)
	switch {
	case occupancy >= l.cfg.RedThreshold:
		return entity.TrafficLightRed, nil
	case occupancy >= l.cfg.YellowThreshold:
		return entity.TrafficLightYellow, nil
	default:
		return entity.TrafficLightGreen, nil
	}
}

// writeIfChanged escribe el binding solo si el valor difiere del último
// escrito con éxito. Un nombre sin binding configurado simplemente se omite.
func (l *Loop) writeIfChanged(ctx context.Context, name string, value any) bool {
	binding, ok := l.bindings[name]
	if !ok || binding.Direction == entity.DirectionRead {
		return true
	}

	l.mu.Lock()
	last, seen := l.lastWritten[name]
	l.mu.Unlock()
	if seen && last == value {
		return true
	}

	if err := l.link.Write(ctx, binding.NodeID, value); err != nil {
		l.metrics.SyncWriteError()
		l.log.Warn().Err(err).Str("binding", name).Msg("escritura al PLC fallida")
		return false
	}
	l.mu.Lock()
	l.lastWritten[name] = value
	l.mu.Unlock()
	l.log.Debug().Str("binding", name).Interface("value", value).Msg("señal publicada en el PLC")
	return true
}

// pollCommands lee el nodo de comando HMI y procesa lo que el operario pidió.
// Tras consumir un comando se escribe NONE de vuelta: sin el acuse el PLC
// repetiría el comando en cada ciclo.
func (l *Loop) pollCommands(ctx context.Context) {
	binding, ok := l.bindings[entity.BindingHMICommand]
	if !ok || binding.Direction == entity.DirectionWrite {
		return
	}

	raw, err := l.link.Read(ctx, binding.NodeID)
	if err != nil {
		l.log.Warn().Err(err).Msg("no se pudo leer el nodo de comando HMI")
		return
	}
	if raw == nil {
		return
	}
	cmd := strings.ToUpper(strings.TrimSpace(fmt.Sprintf("%v", raw)))
	if cmd == "" || cmd == entity.HMICommandNone {
		return
	}
	if !entity.IsHMICommand(cmd) {
		l.log.Warn().Str("command", cmd).Msg("comando HMI no reconocido; se ignora")
		return
	}

	l.HandleCommand(cmd)
	if err := l.link.Write(ctx, binding.NodeID, entity.HMICommandNone); err != nil {
		l.log.Warn().Err(err).Msg("no se pudo acusar el comando HMI")
	}
}

// HandleCommand aplica las transiciones de estado HMI y delega el resto al
// manejador registrado. También lo usa el endpoint de comandos por API.
func (l *Loop) HandleCommand(cmd string) {
	l.mu.Lock()
	switch cmd {
	case "START":
		if l.hmiStatus != HMIStatusEmergency {
			l.hmiStatus = HMIStatusRunning
		}
	case "STOP", "RESET":
		l.hmiStatus = HMIStatusIdle
		l.opMode = ""
	case "EMERGENCY_STOP":
		l.hmiStatus = HMIStatusEmergency
		l.opMode = ""
	case "MAINTENANCE_MODE":
		if l.hmiStatus != HMIStatusEmergency {
			l.hmiStatus = HMIStatusMaintenance
		}
	case entity.HMICommandLoad, entity.HMICommandUnload:
		if l.hmiStatus != HMIStatusEmergency {
			l.opMode = cmd
			l.hmiStatus = HMIStatusRunning
		}
	}
	l.mu.Unlock()

	l.log.Info().Str("command", cmd).Str("hmi_status", l.HMIStatus()).Msg("comando HMI procesado")
	if l.onCommand != nil {
		l.onCommand(cmd)
	}
	l.Trigger()
}

// OperationMode modo de operación vigente fijado desde el panel: LOAD, UNLOAD
// o vacío cuando no rige ninguno.
func (l *Loop) OperationMode() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opMode
}

// HMIStatus estado HMI vigente.
func (l *Loop) HMIStatus() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hmiStatus
}

// Stale indica si el espejo del PLC está desactualizado respecto al local.
func (l *Loop) Stale() bool { return l.stale.Load() }

// Status instantánea del lazo.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Status{Stale: l.stale.Load(), LastCycleAt: l.lastCycleAt, HMIStatus: l.hmiStatus}
}

func (l *Loop) markStale(v bool) {
	l.stale.Store(v)
	l.metrics.SetSyncStale(v)
}
