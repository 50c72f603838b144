package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/GeorgiDimov1228/warehouse-management/internal/application/dto"
	"github.com/GeorgiDimov1228/warehouse-management/internal/application/ledger"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/repository"
)

// InventoryHandler listados sobre la vista y el ledger, más la reconstrucción.
type InventoryHandler struct {
	invRepo     repository.InventoryRepository
	itemRepo    repository.ItemRepository
	cabinetRepo repository.CabinetRepository
	txRepo      repository.TransactionRepository
	catRepo     repository.CategoryRepository
	ledger      *ledger.Service
}

func NewInventoryHandler(invRepo repository.InventoryRepository, itemRepo repository.ItemRepository, cabinetRepo repository.CabinetRepository, txRepo repository.TransactionRepository, catRepo repository.CategoryRepository, ledgerSvc *ledger.Service) *InventoryHandler {
	return &InventoryHandler{invRepo: invRepo, itemRepo: itemRepo, cabinetRepo: cabinetRepo, txRepo: txRepo, catRepo: catRepo, ledger: ledgerSvc}
}

// List godoc
// @Summary      Inventario actual (cantidades > 0 por item y estante)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.InventoryRecordResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/inventory [get]
func (h *InventoryHandler) List(c *fiber.Ctx) error {
	records, err := h.invRepo.Snapshot()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	itemNames, shelfNames := h.nameIndexes(records)
	out := make([]dto.InventoryRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, dto.InventoryRecordResponse{
			ItemID:    r.ItemID,
			ItemName:  itemNames[r.ItemID],
			ShelfID:   r.ShelfID,
			ShelfName: shelfNames[r.ShelfID],
			Quantity:  r.Quantity,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return c.JSON(out)
}

// ItemLocation godoc
// @Summary      Ubicación actual de un producto
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path      int  true  "ID del producto"
// @Success      200  {array}   dto.ItemLocationResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/items/{id}/location [get]
func (h *InventoryHandler) ItemLocation(c *fiber.Ctx) error {
	itemID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || itemID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id de producto inválido"})
	}
	item, err := h.itemRepo.GetByID(itemID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	if item == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "producto no encontrado"})
	}

	records, err := h.invRepo.Snapshot()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	last, err := h.txRepo.LatestForItem(itemID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}

	_, shelfNames := h.nameIndexes(records)
	out := make([]dto.ItemLocationResponse, 0, 1)
	for _, r := range records {
		if r.ItemID != itemID {
			continue
		}
		loc := dto.ItemLocationResponse{
			ItemID:    itemID,
			ShelfID:   r.ShelfID,
			ShelfName: shelfNames[r.ShelfID],
			Quantity:  r.Quantity,
		}
		if last != nil {
			loc.Kind = last.Kind
			loc.Timestamp = last.Timestamp
		}
		out = append(out, loc)
	}
	return c.JSON(out)
}

// Transactions godoc
// @Summary      Ledger de transacciones en orden cronológico
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        limit   query     int  false  "máximo de filas (por defecto 50)"
// @Param        offset  query     int  false  "desplazamiento"
// @Success      200     {array}   dto.TransactionResponse
// @Failure      500     {object}  dto.ErrorResponse
// @Router       /api/transactions [get]
func (h *InventoryHandler) Transactions(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()
	if page.Limit > 500 {
		page.Limit = 500
	}

	txs, err := h.txRepo.ListOrdered(page.Limit, page.Offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	out := make([]dto.TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	return c.JSON(out)
}

// Categories godoc
// @Summary      Categorías de producto
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.CategoryResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/categories [get]
func (h *InventoryHandler) Categories(c *fiber.Ctx) error {
	cats, err := h.catRepo.List()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	out := make([]dto.CategoryResponse, 0, len(cats))
	for _, cat := range cats {
		out = append(out, dto.CategoryResponse{ID: cat.ID, Name: cat.Name, Description: cat.Description})
	}
	return c.JSON(out)
}

// Rebuild godoc
// @Summary      Reconstruir la vista de inventario desde el ledger
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/inventory/rebuild [post]
func (h *InventoryHandler) Rebuild(c *fiber.Ctx) error {
	if err := h.ledger.Rebuild(c.Context()); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// nameIndexes resuelve nombres de items y estantes presentes en los registros.
func (h *InventoryHandler) nameIndexes(records []*entity.InventoryRecord) (map[int64]string, map[int64]string) {
	itemNames := make(map[int64]string)
	shelfNames := make(map[int64]string)
	for _, r := range records {
		if _, ok := itemNames[r.ItemID]; !ok {
			if item, err := h.itemRepo.GetByID(r.ItemID); err == nil && item != nil {
				itemNames[r.ItemID] = item.Name
			}
		}
		if _, ok := shelfNames[r.ShelfID]; !ok {
			if shelf, err := h.cabinetRepo.GetShelfByID(r.ShelfID); err == nil && shelf != nil {
				shelfNames[r.ShelfID] = shelf.Name
			}
		}
	}
	return itemNames, shelfNames
}

func toTransactionResponse(tx *entity.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:          tx.ID,
		Kind:        tx.Kind,
		ItemID:      tx.ItemID,
		ShelfID:     tx.ShelfID,
		FromShelfID: tx.FromShelfID,
		ToShelfID:   tx.ToShelfID,
		Quantity:    tx.Quantity,
		StaffID:     tx.StaffID,
		Timestamp:   tx.Timestamp,
		Status:      tx.Status,
	}
}
