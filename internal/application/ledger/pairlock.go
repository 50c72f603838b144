package ledger

import (
	"fmt"
	"sort"
	"sync"
)

// pairLocks exclusión mutua por par (item, estante). Transacciones sobre el
// mismo par se serializan; pares disjuntos avanzan en paralelo. Los moves
// toman sus dos pares en orden ordenado para no interbloquearse.
type pairLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPairLocks() *pairLocks {
	return &pairLocks{locks: make(map[string]*sync.Mutex)}
}

func pairKey(itemID, shelfID int64) string {
	return fmt.Sprintf("%d:%d", itemID, shelfID)
}

// acquire bloquea todas las claves (deduplicadas, en orden) y devuelve la
// función que las libera en orden inverso.
func (p *pairLocks) acquire(keys ...string) func() {
	uniq := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			uniq = append(uniq, k)
		}
	}
	sort.Strings(uniq)

	held := make([]*sync.Mutex, 0, len(uniq))
	for _, k := range uniq {
		p.mu.Lock()
		m, ok := p.locks[k]
		if !ok {
			m = &sync.Mutex{}
			p.locks[k] = m
		}
		p.mu.Unlock()
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
