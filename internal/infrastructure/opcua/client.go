// Package opcua implementa el enlace con el PLC: una máquina de estados de
// conexión con reconexión automática y llamadas de lectura/escritura
// serializadas con timeout acotado. El transporte concreto es un puerto;
// producción usa gopcua, los tests un doble.
package opcua

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GeorgiDimov1228/warehouse-management/internal/domain"
	"github.com/GeorgiDimov1228/warehouse-management/pkg/logger"
	"github.com/GeorgiDimov1228/warehouse-management/pkg/metrics"
)

// Estados del enlace.
const (
	StateDisconnected int32 = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

// StateName nombre legible de un estado.
func StateName(s int32) string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

// Transport es el puerto hacia el protocolo OPC UA real.
type Transport interface {
	Connect(ctx context.Context) error
	Close() error
	Read(ctx context.Context, nodeID string) (any, error)
	Write(ctx context.Context, nodeID string, value any) error
}

// Config parámetros del enlace.
type Config struct {
	Endpoint       string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxRetries     int // intentos consecutivos antes de Failed; 0 = sin tope
}

// Status instantánea observable del enlace.
type Status struct {
	State        int32
	Endpoint     string
	Attempts     int64
	LastError    string
	LastChangeAt time.Time
}

// Client mantiene la sesión con el PLC. Las escrituras van serializadas (una
// en vuelo); las lecturas esperan detrás de una escritura pendiente. Un
// timeout es un error tipado para el llamador, no una avería del enlace.
type Client struct {
	cfg          Config
	newTransport func() Transport
	log          *logger.Logger
	metrics      *metrics.Metrics

	state    atomic.Int32
	attempts atomic.Int64

	callMu    sync.Mutex // serializa Read/Write hacia el transporte
	transport Transport

	statusMu     sync.Mutex
	lastErr      string
	lastChangeAt time.Time

	faults  chan struct{} // avisa al lazo de gestión de una avería
	resetCh chan struct{} // única salida del estado Failed
}

// NewClient construye el cliente sin conectar; Run maneja el ciclo de vida.
func NewClient(cfg Config, newTransport func() Transport, log *logger.Logger, m *metrics.Metrics) *Client {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 3 * time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	return &Client{
		cfg:          cfg,
		newTransport: newTransport,
		log:          log.Component("opcua"),
		metrics:      m,
		faults:       make(chan struct{}, 1),
		resetCh:      make(chan struct{}, 1),
	}
}

// Run gestiona la conexión hasta que ctx se cancele: conecta, vigila averías,
// reconecta con backoff exponencial y jitter, y tras agotar los reintentos
// queda en Failed hasta un Reset explícito.
func (c *Client) Run(ctx context.Context) {
	defer c.closeTransport()
	for {
		if !c.connectLoop(ctx) {
			return // ctx cancelado, o Failed sin Reset
		}
		// Conectado: esperar avería o cancelación.
		select {
		case <-ctx.Done():
			c.setState(StateDisconnected, "")
			return
		case <-c.faults:
			c.closeTransport()
			c.setState(StateReconnecting, c.lastError())
			c.metrics.LinkReconnect()
		}
	}
}

// connectLoop intenta conectar con backoff hasta lograrlo. Devuelve false si
// ctx se canceló o el enlace quedó en Failed y nadie lo reinició.
func (c *Client) connectLoop(ctx context.Context) bool {
	backoff := c.cfg.InitialBackoff
	consecutive := 0
	for {
		c.setState(StateConnecting, "")
		c.attempts.Add(1)
		err := c.connectOnce(ctx)
		if err == nil {
			c.setState(StateConnected, "")
			c.log.Info().Str("endpoint", c.cfg.Endpoint).Msg("enlace con el PLC establecido")
			return true
		}
		if ctx.Err() != nil {
			c.setState(StateDisconnected, "")
			return false
		}

		consecutive++
		c.log.Warn().Err(err).Int("attempt", consecutive).Msg("fallo al conectar con el PLC")
		if c.cfg.MaxRetries > 0 && consecutive >= c.cfg.MaxRetries {
			c.setState(StateFailed, err.Error())
			c.log.Error().Str("endpoint", c.cfg.Endpoint).Msg("enlace en estado failed; se requiere reset")
			select {
			case <-ctx.Done():
				return false
			case <-c.resetCh:
				c.setState(StateDisconnected, "")
				backoff = c.cfg.InitialBackoff
				consecutive = 0
				continue
			}
		}

		c.setState(StateReconnecting, err.Error())
		select {
		case <-ctx.Done():
			c.setState(StateDisconnected, "")
			return false
		case <-time.After(jitter(backoff)):
		}
		backoff *= 2
		if backoff > c.cfg.MaxBackoff {
			backoff = c.cfg.MaxBackoff
		}
	}
}

func (c *Client) connectOnce(ctx context.Context) error {
	t := c.newTransport()
	cctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()
	if err := t.Connect(cctx); err != nil {
		return fmt.Errorf("conectando a %s: %w", c.cfg.Endpoint, err)
	}
	c.callMu.Lock()
	c.transport = t
	c.callMu.Unlock()
	return nil
}

// Read lee un nodo. Solo en Connected; el timeout de la petición produce
// ErrHardwareTimeout sin marcar avería.
func (c *Client) Read(ctx context.Context, nodeID string) (any, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}
	c.callMu.Lock()
	defer c.callMu.Unlock()
	if c.transport == nil {
		return nil, domain.ErrNotConnected
	}

	rctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	value, err := c.transport.Read(rctx, nodeID)
	return value, c.afterCall(err, "read", nodeID)
}

// Write escribe un nodo. Una sola escritura en vuelo; mismas reglas de
// timeout y avería que Read.
func (c *Client) Write(ctx context.Context, nodeID string, value any) error {
	if err := c.ensureConnected(); err != nil {
		return err
	}
	c.callMu.Lock()
	defer c.callMu.Unlock()
	if c.transport == nil {
		return domain.ErrNotConnected
	}

	wctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	err := c.transport.Write(wctx, nodeID, value)
	return c.afterCall(err, "write", nodeID)
}

// afterCall clasifica el error de una llamada: timeout y rechazo son errores
// del llamador; cualquier otro marca avería y dispara la reconexión.
func (c *Client) afterCall(err error, op, nodeID string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		c.log.Warn().Str("op", op).Str("node_id", nodeID).Msg("timeout en llamada al PLC")
		return fmt.Errorf("%s %s: %w", op, nodeID, domain.ErrHardwareTimeout)
	case errors.Is(err, domain.ErrHardwareRejected):
		return err
	default:
		c.fault(err)
		return fmt.Errorf("%s %s: %w", op, nodeID, err)
	}
}

func (c *Client) ensureConnected() error {
	switch c.state.Load() {
	case StateConnected:
		return nil
	case StateFailed:
		return domain.ErrLinkFailed
	default:
		return domain.ErrNotConnected
	}
}

// fault registra la avería y despierta al lazo de gestión (sin bloquear si ya
// hay una pendiente).
func (c *Client) fault(err error) {
	c.statusMu.Lock()
	c.lastErr = err.Error()
	c.statusMu.Unlock()
	select {
	case c.faults <- struct{}{}:
	default:
	}
}

// Reset saca el enlace del estado Failed; en cualquier otro estado no hace nada.
func (c *Client) Reset() {
	if c.state.Load() != StateFailed {
		return
	}
	select {
	case c.resetCh <- struct{}{}:
		c.log.Info().Msg("reset del enlace solicitado")
	default:
	}
}

// State estado actual del enlace.
func (c *Client) State() int32 { return c.state.Load() }

// Connected indica si el enlace acepta llamadas ahora mismo.
func (c *Client) Connected() bool { return c.state.Load() == StateConnected }

// Status instantánea para diagnóstico.
func (c *Client) Status() Status {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	return Status{
		State:        c.state.Load(),
		Endpoint:     c.cfg.Endpoint,
		Attempts:     c.attempts.Load(),
		LastError:    c.lastErr,
		LastChangeAt: c.lastChangeAt,
	}
}

func (c *Client) setState(s int32, errMsg string) {
	c.state.Store(s)
	c.statusMu.Lock()
	if errMsg != "" {
		c.lastErr = errMsg
	}
	c.lastChangeAt = time.Now()
	c.statusMu.Unlock()
	c.metrics.SetLinkState(int(s))
}

func (c *Client) lastError() string {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	return c.lastErr
}

func (c *Client) closeTransport() {
	c.callMu.Lock()
	defer c.callMu.Unlock()
	if c.transport != nil {
		_ = c.transport.Close()
		c.transport = nil
	}
}

// jitter dispersa el backoff en ±25% para no sincronizar reconexiones.
func jitter(d time.Duration) time.Duration {
	if d < 2 {
		return d
	}
	delta := time.Duration(rand.Int63n(int64(d) / 2))
	return d*3/4 + delta
}
