package rfid

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/GeorgiDimov1228/warehouse-management/pkg/logger"
	"github.com/GeorgiDimov1228/warehouse-management/pkg/metrics"
)

// streamEnvelope mensaje empujado por un lector en modo streaming.
type streamEnvelope struct {
	EventType string   `json:"event_type"`
	ReaderID  string   `json:"reader_id"`
	RFIDTags  []string `json:"rfid_tags"`
	Timestamp string   `json:"timestamp"`
}

// initMessage primer mensaje tras abrir el socket.
type initMessage struct {
	Action   string `json:"action"`
	ReaderID string `json:"reader_id"`
}

// StreamListener recibe lecturas por websocket. Ante un corte reintenta con
// backoff exponencial acotado, sin perder el estado del lector.
type StreamListener struct {
	readerID string
	url      string
	initial  time.Duration
	max      time.Duration
	emit     func(context.Context, ScanEvent)
	state    *listenerState
	log      *logger.Logger
	metrics  *metrics.Metrics

	// dial se reemplaza en tests.
	dial func(ctx context.Context, url string) (wsConn, error)
}

// wsConn subconjunto de *websocket.Conn que usa el listener.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v any) error
	SetReadDeadline(t time.Time) error
	Close() error
}

// NewStreamListener construye el listener streaming de un lector.
func NewStreamListener(readerID, url string, initial, max time.Duration, emit func(context.Context, ScanEvent), log *logger.Logger, m *metrics.Metrics) *StreamListener {
	return &StreamListener{
		readerID: readerID,
		url:      url,
		initial:  initial,
		max:      max,
		emit:     emit,
		state:    newListenerState(readerID, "stream"),
		log:      log.Component("rfid-stream"),
		metrics:  m,
		dial: func(ctx context.Context, url string) (wsConn, error) {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
			return conn, err
		},
	}
}

// Status instantánea del listener.
func (l *StreamListener) Status() Status { return l.state.snapshot() }

// Run mantiene la conexión hasta que ctx se cancele.
func (l *StreamListener) Run(ctx context.Context) {
	l.state.setRunning(true)
	defer l.state.setRunning(false)

	attempt := 0
	for ctx.Err() == nil {
		if err := l.session(ctx); err != nil && ctx.Err() == nil {
			l.state.fail(err)
			l.log.Warn().Err(err).Str("reader", l.readerID).Msg("sesión con el lector caída")
		}
		if ctx.Err() != nil {
			return
		}
		l.state.reconnect()
		l.metrics.ReaderReconnect(l.readerID)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff(l.initial, l.max, attempt)):
		}
		attempt++
	}
}

// session abre el socket, manda la inicialización y consume mensajes hasta
// que algo falle.
func (l *StreamListener) session(ctx context.Context) error {
	conn, err := l.dial(ctx, l.url)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteJSON(initMessage{Action: "initialize", ReaderID: l.readerID}); err != nil {
		return err
	}
	l.state.setConnected(true)
	defer l.state.setConnected(false)
	l.log.Info().Str("reader", l.readerID).Str("url", l.url).Msg("lector conectado en modo streaming")

	// Cerrar el socket al cancelar destraba ReadMessage.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		l.state.activity()
		l.handle(ctx, payload)
	}
}

func (l *StreamListener) handle(ctx context.Context, payload []byte) {
	var env streamEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		l.state.fail(err)
		l.log.Warn().Err(err).Str("reader", l.readerID).Msg("mensaje del lector inválido")
		return
	}
	if env.EventType != "scan" {
		return // heartbeats y demás
	}
	ts, err := time.Parse(time.RFC3339, env.Timestamp)
	if err != nil {
		ts = time.Now()
	}
	for _, tag := range env.RFIDTags {
		if tag == "" {
			continue
		}
		l.emit(ctx, ScanEvent{Tag: tag, ReaderID: l.readerID, Timestamp: ts, Raw: payload})
	}
}
