package rfid

import (
	"context"
	"sync"
	"time"
)

// Deduper decide si una lectura es la primera dentro de la ventana de
// deduplicación. El mismo tag desde el mismo lector dentro de la ventana se
// colapsa a la primera ocurrencia.
type Deduper interface {
	FirstSeen(ctx context.Context, tag, readerID string) bool
}

// memoryDeduper deduplicación en proceso; suficiente con una sola instancia
// del servicio.
type memoryDeduper struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
}

// NewMemoryDeduper crea el deduper en memoria con la ventana dada.
func NewMemoryDeduper(window time.Duration) Deduper {
	return &memoryDeduper{window: window, seen: make(map[string]time.Time)}
}

func (d *memoryDeduper) FirstSeen(_ context.Context, tag, readerID string) bool {
	key := readerID + "|" + tag
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.seen[key]; ok && now.Sub(last) < d.window {
		return false
	}
	d.seen[key] = now
	if len(d.seen) > 4096 {
		d.prune(now)
	}
	return true
}

// prune descarta entradas fuera de la ventana; el llamador sostiene el lock.
func (d *memoryDeduper) prune(now time.Time) {
	for k, ts := range d.seen {
		if now.Sub(ts) >= d.window {
			delete(d.seen, k)
		}
	}
}
