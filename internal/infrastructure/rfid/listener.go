// Package rfid implementa los listeners de lectores RFID: transporte
// streaming (websocket) y de sondeo (HTTP), deduplicación de lecturas y el
// manager que los agrupa. Los listeners solo producen eventos; nunca tocan
// el inventario.
package rfid

import (
	"sync"
	"time"
)

// ScanEvent lectura canónica de un tag, independiente del transporte.
type ScanEvent struct {
	Tag       string
	ReaderID  string
	Timestamp time.Time
	Raw       []byte
}

// Status estado observable de un listener.
type Status struct {
	ReaderID          string
	Transport         string
	Connected         bool
	Running           bool
	ReconnectAttempts int64
	ErrorCount        int64
	LastActivity      time.Time
	LastError         string
}

// listenerState mantiene el Status bajo lock; lo comparten ambos transportes.
type listenerState struct {
	mu sync.Mutex
	st Status
}

func newListenerState(readerID, transport string) *listenerState {
	return &listenerState{st: Status{ReaderID: readerID, Transport: transport}}
}

func (s *listenerState) snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

func (s *listenerState) setRunning(v bool) {
	s.mu.Lock()
	s.st.Running = v
	if !v {
		s.st.Connected = false
	}
	s.mu.Unlock()
}

func (s *listenerState) setConnected(v bool) {
	s.mu.Lock()
	s.st.Connected = v
	s.mu.Unlock()
}

func (s *listenerState) activity() {
	s.mu.Lock()
	s.st.LastActivity = time.Now()
	s.mu.Unlock()
}

func (s *listenerState) reconnect() {
	s.mu.Lock()
	s.st.ReconnectAttempts++
	s.st.Connected = false
	s.mu.Unlock()
}

func (s *listenerState) fail(err error) {
	s.mu.Lock()
	s.st.ErrorCount++
	s.st.LastError = err.Error()
	s.mu.Unlock()
}

// backoff retardo exponencial con tope; step es el número de intento (desde 0).
func backoff(initial, max time.Duration, step int) time.Duration {
	d := initial
	for i := 0; i < step && d < max; i++ {
		d = d * 3 / 2
	}
	if d > max {
		d = max
	}
	return d
}
