package rfid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/GeorgiDimov1228/warehouse-management/pkg/logger"
	"github.com/GeorgiDimov1228/warehouse-management/pkg/metrics"
)

// pollResponse página de lecturas pendientes de un lector en modo sondeo.
type pollResponse struct {
	Scans []struct {
		ScanID    int64    `json:"scan_id"`
		RFIDTags  []string `json:"rfid_tags"`
		Timestamp string   `json:"timestamp"`
	} `json:"scans"`
}

// PollListener sondea un lector por HTTP con un cursor since_id: cada ciclo
// pide solo las lecturas posteriores a la última vista.
type PollListener struct {
	readerID string
	url      string
	apiKey   string
	interval time.Duration
	emit     func(context.Context, ScanEvent)
	state    *listenerState
	log      *logger.Logger
	metrics  *metrics.Metrics

	client *http.Client
	cursor int64
}

// NewPollListener construye el listener de sondeo de un lector.
func NewPollListener(readerID, url, apiKey string, interval time.Duration, emit func(context.Context, ScanEvent), log *logger.Logger, m *metrics.Metrics) *PollListener {
	if interval <= 0 {
		interval = time.Second
	}
	return &PollListener{
		readerID: readerID,
		url:      url,
		apiKey:   apiKey,
		interval: interval,
		emit:     emit,
		state:    newListenerState(readerID, "poll"),
		log:      log.Component("rfid-poll"),
		metrics:  m,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Status instantánea del listener.
func (l *PollListener) Status() Status { return l.state.snapshot() }

// Run sondea a intervalo fijo hasta que ctx se cancele.
func (l *PollListener) Run(ctx context.Context) {
	l.state.setRunning(true)
	defer l.state.setRunning(false)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		if err := l.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			l.state.fail(err)
			l.state.reconnect()
			l.metrics.ReaderReconnect(l.readerID)
			l.log.Warn().Err(err).Str("reader", l.readerID).Msg("sondeo del lector fallido")
		} else {
			l.state.setConnected(true)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// poll trae la página pendiente y avanza el cursor.
func (l *PollListener) poll(ctx context.Context) error {
	url := fmt.Sprintf("%s?since_id=%d", l.url, l.cursor)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if l.apiKey != "" {
		req.Header.Set("X-API-Key", l.apiKey)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("lector respondió %d", resp.StatusCode)
	}

	var page pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return fmt.Errorf("respuesta del lector inválida: %w", err)
	}

	for _, scan := range page.Scans {
		if scan.ScanID > l.cursor {
			l.cursor = scan.ScanID
		}
		ts, err := time.Parse(time.RFC3339, scan.Timestamp)
		if err != nil {
			ts = time.Now()
		}
		for _, tag := range scan.RFIDTags {
			if tag == "" {
				continue
			}
			l.state.activity()
			l.emit(ctx, ScanEvent{Tag: tag, ReaderID: l.readerID, Timestamp: ts})
		}
	}
	return nil
}
