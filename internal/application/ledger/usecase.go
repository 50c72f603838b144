package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/GeorgiDimov1228/warehouse-management/internal/domain"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/repository"
	"github.com/GeorgiDimov1228/warehouse-management/pkg/logger"
	"github.com/GeorgiDimov1228/warehouse-management/pkg/metrics"
)

// Candidate transacción pendiente de validación y append.
type Candidate struct {
	IdempotencyKey string
	Kind           string // load | unload | move
	ItemID         int64
	CategoryID     int64 // categoría del item, para validar el estante destino
	ShelfID        int64 // load/unload
	FromShelfID    int64 // move
	ToShelfID      int64 // move
	Quantity       int64
	StaffID        int64
	RFIDTag        string // tag del producto, para la bitácora de seguimiento
	Timestamp      time.Time
}

// Result transacción confirmada. Replayed indica que la clave de idempotencia
// ya existía y se devolvió el resultado original sin mutar nada.
type Result struct {
	Tx       *entity.Transaction
	Replayed bool
}

// Service es el ledger de transacciones: único escritor del inventario.
// Serializa los appends concurrentes sobre el mismo par (item, estante) con un
// lock por par, y ejecuta append + actualización de la vista como una unidad
// atómica dentro del TxRunner.
type Service struct {
	txRunner    TxRunner
	cabinetRepo repository.CabinetRepository
	locks       *pairLocks
	log         *logger.Logger
	metrics     *metrics.Metrics
	onCommit    func()
}

// NewService construye el ledger.
func NewService(txRunner TxRunner, cabinetRepo repository.CabinetRepository, log *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		txRunner:    txRunner,
		cabinetRepo: cabinetRepo,
		locks:       newPairLocks(),
		log:         log.Component("ledger"),
		metrics:     m,
	}
}

// OnCommit registra el callback invocado tras cada transacción nueva confirmada
// (no en replays). El lazo de sincronización se engancha aquí.
func (s *Service) OnCommit(fn func()) { s.onCommit = fn }

// Append valida el candidato y lo añade al ledger. Repetir una clave de
// idempotencia devuelve el resultado original con Replayed=true, nunca una
// segunda transacción.
func (s *Service) Append(ctx context.Context, cand Candidate) (*Result, error) {
	if err := s.validate(&cand); err != nil {
		s.metrics.TxRejected("validation")
		return nil, err
	}

	// Exclusión mutua por par: los moves toman origen y destino en orden
	// ordenado para evitar interbloqueos.
	var release func()
	switch cand.Kind {
	case entity.KindMove:
		release = s.locks.acquire(
			pairKey(cand.ItemID, cand.FromShelfID),
			pairKey(cand.ItemID, cand.ToShelfID),
		)
	default:
		release = s.locks.acquire(pairKey(cand.ItemID, cand.ShelfID))
	}
	defer release()

	var result Result
	err := s.txRunner.Run(ctx, func(
		txRepo repository.TransactionRepository,
		invRepo repository.InventoryRepository,
		trackRepo repository.TrackingRepository,
	) error {
		prior, err := txRepo.GetByIdempotencyKey(cand.IdempotencyKey)
		if err != nil {
			return err
		}
		if prior != nil {
			result = Result{Tx: prior, Replayed: true}
			return nil
		}

		switch cand.Kind {
		case entity.KindLoad:
			err = s.applyLoad(invRepo, cand.ItemID, cand.ShelfID, cand.Quantity, cand.Timestamp)
		case entity.KindUnload:
			err = s.applyUnload(invRepo, cand.ItemID, cand.ShelfID, cand.Quantity, cand.Timestamp)
		case entity.KindMove:
			if err = s.applyUnload(invRepo, cand.ItemID, cand.FromShelfID, cand.Quantity, cand.Timestamp); err == nil {
				err = s.applyLoad(invRepo, cand.ItemID, cand.ToShelfID, cand.Quantity, cand.Timestamp)
			}
		}
		if err != nil {
			return err
		}

		tx := &entity.Transaction{
			ID:             uuid.New().String(),
			IdempotencyKey: cand.IdempotencyKey,
			Kind:           cand.Kind,
			ItemID:         cand.ItemID,
			ShelfID:        cand.ShelfID,
			FromShelfID:    cand.FromShelfID,
			ToShelfID:      cand.ToShelfID,
			Quantity:       cand.Quantity,
			StaffID:        cand.StaffID,
			Timestamp:      cand.Timestamp,
			Status:         entity.StatusCommitted,
		}
		if err := txRepo.Create(tx); err != nil {
			return err
		}
		if cand.RFIDTag != "" {
			shelfID := cand.ShelfID
			if cand.Kind == entity.KindMove {
				shelfID = cand.ToShelfID
			}
			track := &entity.TagTracking{
				RFIDTag:   cand.RFIDTag,
				ItemID:    cand.ItemID,
				ShelfID:   shelfID,
				Status:    trackingStatus(cand.Kind),
				Timestamp: cand.Timestamp,
			}
			if err := trackRepo.Create(track); err != nil {
				return err
			}
		}
		result = Result{Tx: tx}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return s.replayPrior(ctx, cand.IdempotencyKey)
		}
		s.metrics.TxRejected(rejectionReason(err))
		return nil, err
	}

	if result.Replayed {
		s.metrics.TxReplayed()
		s.log.Debug().Str("idempotency_key", cand.IdempotencyKey).Msg("clave repetida; se devuelve la transacción original")
		return &result, nil
	}

	s.metrics.TxCommitted(cand.Kind)
	s.log.Info().
		Str("tx_id", result.Tx.ID).
		Str("kind", cand.Kind).
		Int64("item_id", cand.ItemID).
		Int64("quantity", cand.Quantity).
		Msg("transacción confirmada")
	if s.onCommit != nil {
		s.onCommit()
	}
	return &result, nil
}

// replayPrior relee la transacción de una clave que otra instancia insertó
// entre nuestra lectura y el insert (el constraint único la delató). El
// resultado es el mismo que un replay detectado en la lectura inicial.
func (s *Service) replayPrior(ctx context.Context, key string) (*Result, error) {
	var prior *entity.Transaction
	err := s.txRunner.Run(ctx, func(
		txRepo repository.TransactionRepository,
		_ repository.InventoryRepository,
		_ repository.TrackingRepository,
	) error {
		var err error
		prior, err = txRepo.GetByIdempotencyKey(key)
		return err
	})
	if err != nil {
		return nil, err
	}
	if prior == nil {
		return nil, domain.ErrDuplicateKey
	}
	s.metrics.TxReplayed()
	s.log.Debug().Str("idempotency_key", key).Msg("clave insertada por otra instancia; se devuelve la transacción original")
	return &Result{Tx: prior, Replayed: true}, nil
}

// validate revisa forma y reglas estáticas antes de tocar nada.
func (s *Service) validate(cand *Candidate) error {
	if cand.Quantity <= 0 || cand.ItemID == 0 || cand.IdempotencyKey == "" {
		return domain.ErrInvalidInput
	}
	if cand.Timestamp.IsZero() {
		cand.Timestamp = time.Now()
	}
	switch cand.Kind {
	case entity.KindLoad:
		if cand.ShelfID == 0 {
			return domain.ErrInvalidInput
		}
		return s.checkShelfCategory(cand.ShelfID, cand.CategoryID)
	case entity.KindUnload:
		if cand.ShelfID == 0 {
			return domain.ErrInvalidInput
		}
		return nil
	case entity.KindMove:
		if cand.FromShelfID == 0 || cand.ToShelfID == 0 || cand.FromShelfID == cand.ToShelfID {
			return domain.ErrInvalidInput
		}
		return s.checkShelfCategory(cand.ToShelfID, cand.CategoryID)
	default:
		return domain.ErrInvalidInput
	}
}

// checkShelfCategory el estante receptor debe existir y admitir la categoría del item.
func (s *Service) checkShelfCategory(shelfID, categoryID int64) error {
	shelf, err := s.cabinetRepo.GetShelfByID(shelfID)
	if err != nil {
		return err
	}
	if shelf == nil {
		return domain.ErrNotFound
	}
	if !shelf.AllowsCategory(categoryID) {
		return domain.ErrInvalidShelfForCategory
	}
	return nil
}

// applyLoad suma unidades en el par, validando la capacidad del estante.
// La fila del par queda bloqueada (SELECT FOR UPDATE) hasta el commit.
func (s *Service) applyLoad(invRepo repository.InventoryRepository, itemID, shelfID, qty int64, now time.Time) error {
	shelf, err := s.cabinetRepo.GetShelfByID(shelfID)
	if err != nil {
		return err
	}
	if shelf == nil {
		return domain.ErrNotFound
	}
	rec, err := invRepo.GetForUpdate(itemID, shelfID)
	if err != nil {
		return err
	}
	if !shelf.Unlimited() {
		used, err := invRepo.ShelfQuantity(shelfID)
		if err != nil {
			return err
		}
		if used+qty > shelf.Capacity {
			return domain.ErrOverCapacity
		}
	}
	rec.Quantity += qty
	rec.UpdatedAt = now
	return invRepo.Upsert(rec)
}

// applyUnload resta unidades en el par; la cantidad resultante nunca baja de cero.
func (s *Service) applyUnload(invRepo repository.InventoryRepository, itemID, shelfID, qty int64, now time.Time) error {
	rec, err := invRepo.GetForUpdate(itemID, shelfID)
	if err != nil {
		return err
	}
	if rec.Quantity < qty {
		return domain.ErrInsufficientStock
	}
	rec.Quantity -= qty
	rec.UpdatedAt = now
	return invRepo.Upsert(rec)
}

// Rebuild reconstruye la vista de inventario reproduciendo el ledger completo
// en orden, dentro de una sola transacción. Tras un arranque el estado queda
// idéntico al previo: el ledger es la fuente de verdad.
func (s *Service) Rebuild(ctx context.Context) error {
	return s.txRunner.Run(ctx, func(
		txRepo repository.TransactionRepository,
		invRepo repository.InventoryRepository,
		_ repository.TrackingRepository,
	) error {
		all, err := txRepo.ListAllOrdered()
		if err != nil {
			return err
		}
		if err := invRepo.DeleteAll(); err != nil {
			return err
		}

		type pair struct{ item, shelf int64 }
		quantities := make(map[pair]int64)
		updated := make(map[pair]time.Time)
		apply := func(item, shelf, delta int64, at time.Time) {
			k := pair{item, shelf}
			quantities[k] += delta
			updated[k] = at
		}
		for _, tx := range all {
			switch tx.Kind {
			case entity.KindLoad:
				apply(tx.ItemID, tx.ShelfID, tx.Quantity, tx.Timestamp)
			case entity.KindUnload:
				apply(tx.ItemID, tx.ShelfID, -tx.Quantity, tx.Timestamp)
			case entity.KindMove:
				apply(tx.ItemID, tx.FromShelfID, -tx.Quantity, tx.Timestamp)
				apply(tx.ItemID, tx.ToShelfID, tx.Quantity, tx.Timestamp)
			}
		}
		for k, qty := range quantities {
			if qty == 0 {
				continue
			}
			rec := &entity.InventoryRecord{ItemID: k.item, ShelfID: k.shelf, Quantity: qty, UpdatedAt: updated[k]}
			if err := invRepo.Upsert(rec); err != nil {
				return err
			}
		}
		s.log.Info().Int("transactions", len(all)).Msg("vista de inventario reconstruida desde el ledger")
		return nil
	})
}

func trackingStatus(kind string) string {
	switch kind {
	case entity.KindLoad:
		return entity.TrackingAdded
	case entity.KindUnload:
		return entity.TrackingRemoved
	default:
		return entity.TrackingMoved
	}
}

// rejectionReason etiqueta de métrica para un rechazo.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrOverCapacity):
		return "over_capacity"
	case errors.Is(err, domain.ErrInvalidShelfForCategory):
		return "invalid_shelf_for_category"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidInput):
		return "validation"
	default:
		return "internal"
	}
}
