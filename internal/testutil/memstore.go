// Package testutil contiene dobles de prueba en memoria para los puertos de
// persistencia. Solo lo usan los tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/GeorgiDimov1228/warehouse-management/internal/domain"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/repository"
)

type pair struct{ Item, Shelf int64 }

var (
	_ repository.TransactionRepository = lockedTx{}
	_ repository.InventoryRepository   = lockedInv{}
	_ repository.TrackingRepository    = lockedTrack{}
	_ repository.ItemRepository        = itemRepo{}
	_ repository.StaffRepository       = staffRepo{}
	_ repository.CabinetRepository     = cabinetRepo{}
	_ repository.InventoryRepository   = invRepo{}
	_ repository.TransactionRepository = txRepo{}
	_ repository.TrackingRepository    = trackRepo{}
	_ repository.CategoryRepository    = catRepo{}
)

// MemStore implementa todos los puertos de repositorio sobre mapas en memoria,
// y un TxRunner con semántica de transacción serializable: Run ejecuta bajo un
// lock global y revierte las mutaciones de inventario/ledger si fn falla.
type MemStore struct {
	mu sync.Mutex

	// cfgMu protege los mapas de configuración (items, personal, armarios,
	// estantes, categorías), que solo mutan las semillas previas al test. Un
	// lock aparte permite leer la configuración desde dentro de Run, que
	// sostiene mu durante todo el callback.
	cfgMu sync.Mutex

	Items      map[int64]*entity.Item
	Staff      map[int64]*entity.Staff
	Cabinets   map[int64]*entity.Cabinet
	Shelves    map[int64]*entity.Shelf
	Categories map[int64]*entity.Category

	Inventory    map[pair]*entity.InventoryRecord
	Transactions []*entity.Transaction
	byKey        map[string]*entity.Transaction
	Trackings    []*entity.TagTracking

	trackingSeq int64
}

// NewMemStore crea el almacén vacío.
func NewMemStore() *MemStore {
	return &MemStore{
		Items:      make(map[int64]*entity.Item),
		Staff:      make(map[int64]*entity.Staff),
		Cabinets:   make(map[int64]*entity.Cabinet),
		Shelves:    make(map[int64]*entity.Shelf),
		Categories: make(map[int64]*entity.Category),
		Inventory:  make(map[pair]*entity.InventoryRecord),
		byKey:      make(map[string]*entity.Transaction),
	}
}

// ── Semillas ──

func (m *MemStore) AddItem(it *entity.Item) *MemStore {
	m.Items[it.ID] = it
	return m
}

func (m *MemStore) AddStaff(s *entity.Staff) *MemStore {
	m.Staff[s.ID] = s
	return m
}

func (m *MemStore) AddShelf(s *entity.Shelf) *MemStore {
	m.Shelves[s.ID] = s
	if _, ok := m.Cabinets[s.CabinetID]; !ok {
		m.Cabinets[s.CabinetID] = &entity.Cabinet{ID: s.CabinetID}
	}
	return m
}

// SetQuantity fija directamente la cantidad de un par (estado inicial del test).
func (m *MemStore) SetQuantity(itemID, shelfID, qty int64) *MemStore {
	m.Inventory[pair{itemID, shelfID}] = &entity.InventoryRecord{
		ItemID: itemID, ShelfID: shelfID, Quantity: qty, UpdatedAt: time.Now(),
	}
	return m
}

// Quantity cantidad actual de un par.
func (m *MemStore) Quantity(itemID, shelfID int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.Inventory[pair{itemID, shelfID}]; ok {
		return rec.Quantity
	}
	return 0
}

// ── TxRunner ──

// Run ejecuta fn bajo el lock global; si falla, restaura inventario, ledger y
// bitácora al estado previo (rollback).
func (m *MemStore) Run(_ context.Context, fn func(
	txRepo repository.TransactionRepository,
	invRepo repository.InventoryRepository,
	trackRepo repository.TrackingRepository,
) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	invSnapshot := make(map[pair]*entity.InventoryRecord, len(m.Inventory))
	for k, v := range m.Inventory {
		cp := *v
		invSnapshot[k] = &cp
	}
	txLen, trackLen := len(m.Transactions), len(m.Trackings)

	if err := fn(lockedTx{m}, lockedInv{m}, lockedTrack{m}); err != nil {
		m.Inventory = invSnapshot
		m.Transactions = m.Transactions[:txLen]
		m.Trackings = m.Trackings[:trackLen]
		m.byKey = make(map[string]*entity.Transaction, len(m.Transactions))
		for _, tx := range m.Transactions {
			m.byKey[tx.IdempotencyKey] = tx
		}
		return err
	}
	return nil
}

// lockedTx, lockedInv y lockedTrack exponen los puertos sobre un MemStore
// cuyo lock ya sostiene Run.
type lockedTx struct{ m *MemStore }
type lockedInv struct{ m *MemStore }
type lockedTrack struct{ m *MemStore }

func (r lockedTx) Create(tx *entity.Transaction) error {
	if _, ok := r.m.byKey[tx.IdempotencyKey]; ok {
		return fmt.Errorf("clave de idempotencia repetida: %w", domain.ErrDuplicateKey)
	}
	cp := *tx
	r.m.Transactions = append(r.m.Transactions, &cp)
	r.m.byKey[cp.IdempotencyKey] = &cp
	return nil
}

func (r lockedTx) GetByIdempotencyKey(key string) (*entity.Transaction, error) {
	if tx, ok := r.m.byKey[key]; ok {
		cp := *tx
		return &cp, nil
	}
	return nil, nil
}

func (r lockedTx) GetByID(id string) (*entity.Transaction, error) {
	for _, tx := range r.m.Transactions {
		if tx.ID == id {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, nil
}

func (r lockedTx) ListOrdered(limit, offset int) ([]*entity.Transaction, error) {
	all, _ := r.ListAllOrdered()
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r lockedTx) ListAllOrdered() ([]*entity.Transaction, error) {
	out := make([]*entity.Transaction, 0, len(r.m.Transactions))
	for _, tx := range r.m.Transactions {
		cp := *tx
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (r lockedTx) LatestForItem(itemID int64) (*entity.Transaction, error) {
	var latest *entity.Transaction
	for _, tx := range r.m.Transactions {
		if tx.ItemID != itemID {
			continue
		}
		if latest == nil || tx.Timestamp.After(latest.Timestamp) {
			latest = tx
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

// ── InventoryRepository (dentro de Run) ──

func (r lockedInv) Get(itemID, shelfID int64) (*entity.InventoryRecord, error) {
	return r.GetForUpdate(itemID, shelfID)
}

func (r lockedInv) GetForUpdate(itemID, shelfID int64) (*entity.InventoryRecord, error) {
	if rec, ok := r.m.Inventory[pair{itemID, shelfID}]; ok {
		cp := *rec
		return &cp, nil
	}
	return &entity.InventoryRecord{ItemID: itemID, ShelfID: shelfID}, nil
}

func (r lockedInv) Upsert(rec *entity.InventoryRecord) error {
	cp := *rec
	r.m.Inventory[pair{rec.ItemID, rec.ShelfID}] = &cp
	return nil
}

func (r lockedInv) Snapshot() ([]*entity.InventoryRecord, error) {
	out := make([]*entity.InventoryRecord, 0, len(r.m.Inventory))
	for _, rec := range r.m.Inventory {
		if rec.Quantity > 0 {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ItemID != out[j].ItemID {
			return out[i].ItemID < out[j].ItemID
		}
		return out[i].ShelfID < out[j].ShelfID
	})
	return out, nil
}

func (r lockedInv) TotalQuantity() (int64, error) {
	var total int64
	for _, rec := range r.m.Inventory {
		total += rec.Quantity
	}
	return total, nil
}

func (r lockedInv) ShelfQuantity(shelfID int64) (int64, error) {
	var total int64
	for k, rec := range r.m.Inventory {
		if k.Shelf == shelfID {
			total += rec.Quantity
		}
	}
	return total, nil
}

func (r lockedInv) DeleteAll() error {
	r.m.Inventory = make(map[pair]*entity.InventoryRecord)
	return nil
}

// ── TrackingRepository (dentro de Run) ──

func (r lockedTrack) Create(t *entity.TagTracking) error {
	r.m.trackingSeq++
	cp := *t
	cp.ID = r.m.trackingSeq
	r.m.Trackings = append(r.m.Trackings, &cp)
	return nil
}

func (r lockedTrack) ListByTag(tag string, limit int) ([]*entity.TagTracking, error) {
	var out []*entity.TagTracking
	for i := len(r.m.Trackings) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if r.m.Trackings[i].RFIDTag == tag {
			cp := *r.m.Trackings[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ── Puertos de solo lectura fuera de Run (toman el lock) ──

// ItemRepo vista ItemRepository del almacén.
func (m *MemStore) ItemRepo() repository.ItemRepository { return itemRepo{m} }

// StaffRepo vista StaffRepository del almacén.
func (m *MemStore) StaffRepo() repository.StaffRepository { return staffRepo{m} }

// CabinetRepo vista CabinetRepository del almacén.
func (m *MemStore) CabinetRepo() repository.CabinetRepository { return cabinetRepo{m} }

// InventoryRepo vista InventoryRepository del almacén (lecturas sueltas).
func (m *MemStore) InventoryRepo() repository.InventoryRepository { return invRepo{m} }

// TransactionRepo vista TransactionRepository del almacén (lecturas sueltas).
func (m *MemStore) TransactionRepo() repository.TransactionRepository { return txRepo{m} }

// TrackingRepo vista TrackingRepository del almacén.
func (m *MemStore) TrackingRepo() repository.TrackingRepository { return trackRepo{m} }

// CategoryRepo vista CategoryRepository del almacén.
func (m *MemStore) CategoryRepo() repository.CategoryRepository { return catRepo{m} }

type catRepo struct{ m *MemStore }

func (r catRepo) GetByID(id int64) (*entity.Category, error) {
	r.m.cfgMu.Lock()
	defer r.m.cfgMu.Unlock()
	if cat, ok := r.m.Categories[id]; ok {
		cp := *cat
		return &cp, nil
	}
	return nil, nil
}

func (r catRepo) List() ([]*entity.Category, error) {
	r.m.cfgMu.Lock()
	defer r.m.cfgMu.Unlock()
	out := make([]*entity.Category, 0, len(r.m.Categories))
	for _, cat := range r.m.Categories {
		cp := *cat
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type itemRepo struct{ m *MemStore }

func (r itemRepo) GetByID(id int64) (*entity.Item, error) {
	r.m.cfgMu.Lock()
	defer r.m.cfgMu.Unlock()
	if it, ok := r.m.Items[id]; ok {
		cp := *it
		return &cp, nil
	}
	return nil, nil
}

func (r itemRepo) GetByRFIDTag(tag string) (*entity.Item, error) {
	r.m.cfgMu.Lock()
	defer r.m.cfgMu.Unlock()
	for _, it := range r.m.Items {
		if it.RFIDTag == tag {
			cp := *it
			return &cp, nil
		}
	}
	return nil, nil
}

func (r itemRepo) GetByBarcode(code string) (*entity.Item, error) {
	r.m.cfgMu.Lock()
	defer r.m.cfgMu.Unlock()
	for _, it := range r.m.Items {
		if it.Barcode == code {
			cp := *it
			return &cp, nil
		}
	}
	return nil, nil
}

func (r itemRepo) List(limit, offset int) ([]*entity.Item, error) {
	r.m.cfgMu.Lock()
	defer r.m.cfgMu.Unlock()
	out := make([]*entity.Item, 0, len(r.m.Items))
	for _, it := range r.m.Items {
		cp := *it
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type staffRepo struct{ m *MemStore }

func (r staffRepo) GetByID(id int64) (*entity.Staff, error) {
	r.m.cfgMu.Lock()
	defer r.m.cfgMu.Unlock()
	if s, ok := r.m.Staff[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (r staffRepo) GetByRFIDTag(tag string) (*entity.Staff, error) {
	r.m.cfgMu.Lock()
	defer r.m.cfgMu.Unlock()
	for _, s := range r.m.Staff {
		if s.RFIDTag == tag {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r staffRepo) GetByUsername(username string) (*entity.Staff, error) {
	r.m.cfgMu.Lock()
	defer r.m.cfgMu.Unlock()
	for _, s := range r.m.Staff {
		if s.Username == username {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

type cabinetRepo struct{ m *MemStore }

func (r cabinetRepo) GetCabinetByID(id int64) (*entity.Cabinet, error) {
	r.m.cfgMu.Lock()
	defer r.m.cfgMu.Unlock()
	if c, ok := r.m.Cabinets[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r cabinetRepo) ListCabinets() ([]*entity.Cabinet, error) {
	r.m.cfgMu.Lock()
	defer r.m.cfgMu.Unlock()
	out := make([]*entity.Cabinet, 0, len(r.m.Cabinets))
	for _, c := range r.m.Cabinets {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r cabinetRepo) GetShelfByID(id int64) (*entity.Shelf, error) {
	r.m.cfgMu.Lock()
	defer r.m.cfgMu.Unlock()
	if s, ok := r.m.Shelves[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (r cabinetRepo) ListShelves() ([]*entity.Shelf, error) {
	r.m.cfgMu.Lock()
	defer r.m.cfgMu.Unlock()
	out := make([]*entity.Shelf, 0, len(r.m.Shelves))
	for _, s := range r.m.Shelves {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r cabinetRepo) ListShelvesByCabinet(cabinetID int64) ([]*entity.Shelf, error) {
	all, _ := r.ListShelves()
	var out []*entity.Shelf
	for _, s := range all {
		if s.CabinetID == cabinetID {
			out = append(out, s)
		}
	}
	return out, nil
}

type invRepo struct{ m *MemStore }

func (r invRepo) Get(itemID, shelfID int64) (*entity.InventoryRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return lockedInv{r.m}.GetForUpdate(itemID, shelfID)
}

func (r invRepo) GetForUpdate(itemID, shelfID int64) (*entity.InventoryRecord, error) {
	return r.Get(itemID, shelfID)
}

func (r invRepo) Upsert(rec *entity.InventoryRecord) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return lockedInv{r.m}.Upsert(rec)
}

func (r invRepo) Snapshot() ([]*entity.InventoryRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return lockedInv{r.m}.Snapshot()
}

func (r invRepo) TotalQuantity() (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return lockedInv{r.m}.TotalQuantity()
}

func (r invRepo) ShelfQuantity(shelfID int64) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return lockedInv{r.m}.ShelfQuantity(shelfID)
}

func (r invRepo) DeleteAll() error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return lockedInv{r.m}.DeleteAll()
}

type txRepo struct{ m *MemStore }

func (r txRepo) Create(tx *entity.Transaction) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return lockedTx{r.m}.Create(tx)
}

func (r txRepo) GetByIdempotencyKey(key string) (*entity.Transaction, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return lockedTx{r.m}.GetByIdempotencyKey(key)
}

func (r txRepo) GetByID(id string) (*entity.Transaction, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return lockedTx{r.m}.GetByID(id)
}

func (r txRepo) ListOrdered(limit, offset int) ([]*entity.Transaction, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return lockedTx{r.m}.ListOrdered(limit, offset)
}

func (r txRepo) ListAllOrdered() ([]*entity.Transaction, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return lockedTx{r.m}.ListAllOrdered()
}

func (r txRepo) LatestForItem(itemID int64) (*entity.Transaction, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return lockedTx{r.m}.LatestForItem(itemID)
}

type trackRepo struct{ m *MemStore }

func (r trackRepo) Create(t *entity.TagTracking) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.trackingSeq++
	cp := *t
	cp.ID = r.m.trackingSeq
	r.m.Trackings = append(r.m.Trackings, &cp)
	return nil
}

func (r trackRepo) ListByTag(tag string, limit int) ([]*entity.TagTracking, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*entity.TagTracking
	for i := len(r.m.Trackings) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if r.m.Trackings[i].RFIDTag == tag {
			cp := *r.m.Trackings[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}
