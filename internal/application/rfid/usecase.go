// Package rfid implementa las operaciones disparadas por lecturas RFID:
// autenticación por credencial, carga, retiro y traslado de productos, y la
// identificación por lotes de tags provenientes de los lectores.
package rfid

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/GeorgiDimov1228/warehouse-management/internal/application/ledger"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/placement"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/repository"
	"github.com/GeorgiDimov1228/warehouse-management/pkg/logger"
)

// OpInput entrada común de las operaciones load/get/move. El producto se
// identifica por tag, id o código de barras (en ese orden de preferencia).
type OpInput struct {
	RFIDTag        string
	ItemID         int64
	Barcode        string
	Quantity       int64
	ShelfID        int64 // destino (load) u origen (get); 0 = resolver
	CabinetID      int64 // gabinete preferido al resolver ubicación
	FromShelfID    int64 // move; 0 = inferir del inventario
	ToShelfID      int64 // move; 0 = resolver ubicación
	StaffID        int64
	ReaderID       string
	IdempotencyKey string // vacío = derivar de tag+lector+timestamp
	Timestamp      time.Time
}

// OpResult resultado de una operación confirmada.
type OpResult struct {
	Tx       *entity.Transaction
	Shelf    *entity.Shelf
	Replayed bool
}

// ScanResult identificación de un tag dentro de un lote escaneado.
type ScanResult struct {
	Tag   string        `json:"rfid_tag"`
	Kind  string        `json:"kind"` // staff | item | unknown
	Item  *entity.Item  `json:"item,omitempty"`
	Staff *entity.Staff `json:"staff,omitempty"`
}

// Service orquesta las operaciones RFID contra el ledger.
type Service struct {
	itemRepo    repository.ItemRepository
	staffRepo   repository.StaffRepository
	cabinetRepo repository.CabinetRepository
	invRepo     repository.InventoryRepository
	trackRepo   repository.TrackingRepository
	ledger      *ledger.Service
	log         *logger.Logger
}

// NewService construye el servicio RFID.
func NewService(
	itemRepo repository.ItemRepository,
	staffRepo repository.StaffRepository,
	cabinetRepo repository.CabinetRepository,
	invRepo repository.InventoryRepository,
	trackRepo repository.TrackingRepository,
	ledgerSvc *ledger.Service,
	log *logger.Logger,
) *Service {
	return &Service{
		itemRepo:    itemRepo,
		staffRepo:   staffRepo,
		cabinetRepo: cabinetRepo,
		invRepo:     invRepo,
		trackRepo:   trackRepo,
		ledger:      ledgerSvc,
		log:         log.Component("rfid"),
	}
}

// Auth resuelve una credencial RFID de personal. Tag desconocido y personal
// inactivo son errores distintos.
func (s *Service) Auth(tag string) (*entity.Staff, error) {
	if tag == "" {
		return nil, domain.ErrInvalidInput
	}
	staff, err := s.staffRepo.GetByRFIDTag(tag)
	if err != nil {
		return nil, fmt.Errorf("buscando personal por tag: %w", err)
	}
	if staff == nil {
		return nil, domain.ErrUnknownTag
	}
	if !staff.Active {
		return nil, domain.ErrInactiveStaff
	}
	return staff, nil
}

// Load carga unidades de un producto en un estante. Sin estante explícito, el
// resolutor de ubicación elige uno compatible.
func (s *Service) Load(ctx context.Context, in OpInput) (*OpResult, error) {
	item, err := s.resolveItem(in)
	if err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now()
	}

	shelfID := in.ShelfID
	if shelfID == 0 {
		shelf, err := s.resolvePlacement(item, in.Quantity, in.CabinetID, 0)
		if err != nil {
			return nil, err
		}
		shelfID = shelf.ID
	}

	res, err := s.ledger.Append(ctx, ledger.Candidate{
		IdempotencyKey: s.opKey(in, item),
		Kind:           entity.KindLoad,
		ItemID:         item.ID,
		CategoryID:     item.CategoryID,
		ShelfID:        shelfID,
		Quantity:       in.Quantity,
		StaffID:        in.StaffID,
		RFIDTag:        item.RFIDTag,
		Timestamp:      in.Timestamp,
	})
	if err != nil {
		return nil, err
	}
	return s.opResult(res, shelfID)
}

// Get retira unidades de un producto. Sin estante explícito se infiere el
// único estante que lo contiene; con el producto repartido la petición debe
// indicar de cuál retirar.
func (s *Service) Get(ctx context.Context, in OpInput) (*OpResult, error) {
	item, err := s.resolveItem(in)
	if err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now()
	}

	shelfID := in.ShelfID
	if shelfID == 0 {
		if shelfID, err = s.inferShelf(item.ID); err != nil {
			return nil, err
		}
	}

	res, err := s.ledger.Append(ctx, ledger.Candidate{
		IdempotencyKey: s.opKey(in, item),
		Kind:           entity.KindUnload,
		ItemID:         item.ID,
		CategoryID:     item.CategoryID,
		ShelfID:        shelfID,
		Quantity:       in.Quantity,
		StaffID:        in.StaffID,
		RFIDTag:        item.RFIDTag,
		Timestamp:      in.Timestamp,
	})
	if err != nil {
		return nil, err
	}
	return s.opResult(res, shelfID)
}

// Move traslada unidades entre estantes. Origen y destino se infieren igual
// que en Get y Load cuando vienen vacíos.
func (s *Service) Move(ctx context.Context, in OpInput) (*OpResult, error) {
	item, err := s.resolveItem(in)
	if err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now()
	}

	fromID := in.FromShelfID
	if fromID == 0 {
		if fromID, err = s.inferShelf(item.ID); err != nil {
			return nil, err
		}
	}
	toID := in.ToShelfID
	if toID == 0 {
		shelf, err := s.resolvePlacement(item, in.Quantity, in.CabinetID, fromID)
		if err != nil {
			return nil, err
		}
		toID = shelf.ID
	}

	res, err := s.ledger.Append(ctx, ledger.Candidate{
		IdempotencyKey: s.opKey(in, item),
		Kind:           entity.KindMove,
		ItemID:         item.ID,
		CategoryID:     item.CategoryID,
		FromShelfID:    fromID,
		ToShelfID:      toID,
		Quantity:       in.Quantity,
		StaffID:        in.StaffID,
		RFIDTag:        item.RFIDTag,
		Timestamp:      in.Timestamp,
	})
	if err != nil {
		return nil, err
	}
	return s.opResult(res, toID)
}

// ProcessScan identifica un lote de tags leídos por un lector y deja rastro
// de cada avistamiento en la bitácora. No muta inventario.
func (s *Service) ProcessScan(_ context.Context, readerID string, tags []string) ([]ScanResult, error) {
	results := make([]ScanResult, 0, len(tags))
	now := time.Now()
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		res := ScanResult{Tag: tag, Kind: "unknown"}

		staff, err := s.staffRepo.GetByRFIDTag(tag)
		if err != nil {
			return nil, fmt.Errorf("identificando tag %s: %w", tag, err)
		}
		if staff != nil {
			res.Kind = "staff"
			res.Staff = staff
		} else {
			item, err := s.itemRepo.GetByRFIDTag(tag)
			if err != nil {
				return nil, fmt.Errorf("identificando tag %s: %w", tag, err)
			}
			if item != nil {
				res.Kind = "item"
				res.Item = item
			}
		}

		track := &entity.TagTracking{RFIDTag: tag, Status: entity.TrackingScanned, Timestamp: now}
		if res.Item != nil {
			track.ItemID = res.Item.ID
		}
		if err := s.trackRepo.Create(track); err != nil {
			s.log.Warn().Err(err).Str("rfid_tag", tag).Msg("no se pudo registrar el avistamiento")
		}
		results = append(results, res)
	}
	s.log.Debug().Str("reader", readerID).Int("tags", len(results)).Msg("lote de tags identificado")
	return results, nil
}

// ProcessEvent procesa una lectura suelta de un lector según el modo de
// operación fijado desde el panel: con LOAD un tag de producto carga una
// unidad y con UNLOAD la retira. Sin modo vigente, o si el tag no es de
// producto, la lectura solo deja rastro en la bitácora como un escaneo.
func (s *Service) ProcessEvent(ctx context.Context, readerID, tag string, ts time.Time, mode string) (*OpResult, error) {
	if tag == "" {
		return nil, domain.ErrInvalidInput
	}
	if ts.IsZero() {
		ts = time.Now()
	}

	if mode == entity.HMICommandLoad || mode == entity.HMICommandUnload {
		item, err := s.itemRepo.GetByRFIDTag(tag)
		if err != nil {
			return nil, fmt.Errorf("identificando tag %s: %w", tag, err)
		}
		if item != nil {
			in := OpInput{RFIDTag: tag, Quantity: 1, ReaderID: readerID, Timestamp: ts}
			if mode == entity.HMICommandLoad {
				return s.Load(ctx, in)
			}
			return s.Get(ctx, in)
		}
	}

	if _, err := s.ProcessScan(ctx, readerID, []string{tag}); err != nil {
		return nil, err
	}
	return nil, nil
}

// TagHistory historial de avistamientos de un tag, del más reciente al más
// antiguo. limit acota el número de entradas; cero aplica el tope por defecto.
func (s *Service) TagHistory(tag string, limit int) ([]*entity.TagTracking, error) {
	if tag == "" {
		return nil, domain.ErrInvalidInput
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	hist, err := s.trackRepo.ListByTag(tag, limit)
	if err != nil {
		return nil, fmt.Errorf("leyendo historial del tag %s: %w", tag, err)
	}
	return hist, nil
}

// resolveItem identifica el producto de la operación.
func (s *Service) resolveItem(in OpInput) (*entity.Item, error) {
	switch {
	case in.RFIDTag != "":
		item, err := s.itemRepo.GetByRFIDTag(in.RFIDTag)
		if err != nil {
			return nil, fmt.Errorf("buscando producto por tag: %w", err)
		}
		if item == nil {
			return nil, domain.ErrUnknownTag
		}
		return item, nil
	case in.ItemID != 0:
		item, err := s.itemRepo.GetByID(in.ItemID)
		if err != nil {
			return nil, fmt.Errorf("buscando producto por id: %w", err)
		}
		if item == nil {
			return nil, domain.ErrNotFound
		}
		return item, nil
	case in.Barcode != "":
		item, err := s.itemRepo.GetByBarcode(in.Barcode)
		if err != nil {
			return nil, fmt.Errorf("buscando producto por código: %w", err)
		}
		if item == nil {
			return nil, domain.ErrNotFound
		}
		return item, nil
	default:
		return nil, domain.ErrInvalidInput
	}
}

// resolvePlacement elige estante con el resolutor puro sobre una foto del
// inventario. excludeShelf descarta el estante de origen en un traslado.
func (s *Service) resolvePlacement(item *entity.Item, qty, cabinetID, excludeShelf int64) (*entity.Shelf, error) {
	shelves, err := s.cabinetRepo.ListShelves()
	if err != nil {
		return nil, fmt.Errorf("listando estantes: %w", err)
	}
	if excludeShelf != 0 {
		filtered := shelves[:0]
		for _, sh := range shelves {
			if sh.ID != excludeShelf {
				filtered = append(filtered, sh)
			}
		}
		shelves = filtered
	}
	records, err := s.invRepo.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("leyendo inventario: %w", err)
	}
	return placement.Resolve(item, qty, cabinetID, shelves, records)
}

// inferShelf devuelve el único estante que contiene el producto.
func (s *Service) inferShelf(itemID int64) (int64, error) {
	records, err := s.invRepo.Snapshot()
	if err != nil {
		return 0, fmt.Errorf("leyendo inventario: %w", err)
	}
	var shelfID int64
	for _, rec := range records {
		if rec.ItemID != itemID || rec.Quantity <= 0 {
			continue
		}
		if shelfID != 0 {
			// Repartido en varios estantes: exigimos estante explícito.
			return 0, domain.ErrInvalidInput
		}
		shelfID = rec.ShelfID
	}
	if shelfID == 0 {
		return 0, domain.ErrInsufficientStock
	}
	return shelfID, nil
}

// opKey clave de idempotencia de la operación: la del llamador, o una
// derivada determinista de tag+lector+timestamp para los reintentos de los
// lectores.
func (s *Service) opKey(in OpInput, item *entity.Item) string {
	if in.IdempotencyKey != "" {
		return in.IdempotencyKey
	}
	tag := in.RFIDTag
	if tag == "" {
		tag = item.RFIDTag
	}
	return DeriveKey(tag, in.ReaderID, in.Timestamp)
}

// DeriveKey deriva una clave de idempotencia estable a partir del tag, el
// lector y el instante de la lectura: la misma lectura reenviada produce la
// misma clave.
func DeriveKey(tag, readerID string, ts time.Time) string {
	name := fmt.Sprintf("%s|%s|%d", tag, readerID, ts.UnixMilli())
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

func (s *Service) opResult(res *ledger.Result, shelfID int64) (*OpResult, error) {
	shelf, err := s.cabinetRepo.GetShelfByID(shelfID)
	if err != nil {
		return nil, fmt.Errorf("leyendo estante %d: %w", shelfID, err)
	}
	return &OpResult{Tx: res.Tx, Shelf: shelf, Replayed: res.Replayed}, nil
}
