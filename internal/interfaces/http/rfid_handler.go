package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/GeorgiDimov1228/warehouse-management/internal/application/auth"
	"github.com/GeorgiDimov1228/warehouse-management/internal/application/dto"
	"github.com/GeorgiDimov1228/warehouse-management/internal/application/rfid"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain"
	rfidinfra "github.com/GeorgiDimov1228/warehouse-management/internal/infrastructure/rfid"
)

// ReaderStatusProvider estado de los listeners de lectores (lo implementa el manager).
type ReaderStatusProvider interface {
	Statuses() []rfidinfra.Status
}

// RFIDHandler maneja las operaciones disparadas por lecturas RFID.
type RFIDHandler struct {
	svc     *rfid.Service
	authUC  *auth.UseCase
	readers ReaderStatusProvider
}

// NewRFIDHandler construye el handler.
func NewRFIDHandler(svc *rfid.Service, authUC *auth.UseCase, readers ReaderStatusProvider) *RFIDHandler {
	return &RFIDHandler{svc: svc, authUC: authUC, readers: readers}
}

// Auth godoc
// @Summary      Autenticación por tarjeta RFID
// @Tags         rfid
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RFIDAuthRequest  true  "rfid_tag de la tarjeta"
// @Success      200   {object}  dto.RFIDAuthResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/rfid/auth [post]
func (h *RFIDHandler) Auth(c *fiber.Ctx) error {
	var in dto.RFIDAuthRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	staff, err := h.svc.Auth(in.RFIDTag)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "rfid_tag es requerido"})
		case errors.Is(err, domain.ErrUnknownTag):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "UNKNOWN_TAG", Message: "tarjeta no registrada"})
		case errors.Is(err, domain.ErrInactiveStaff):
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "INACTIVE_STAFF", Message: "personal inactivo"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
		}
	}
	token, err := h.authUC.TokenFor(staff)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(dto.RFIDAuthResponse{
		Status: "ok",
		Staff:  *auth.ToStaffResponse(staff),
		Token:  token,
	})
}

// Load godoc
// @Summary      Cargar producto a un estante
// @Tags         rfid
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RFIDOpRequest  true  "producto (tag/id/barcode), cantidad, estante opcional"
// @Success      200   {object}  dto.RFIDOpResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/rfid/load [post]
func (h *RFIDHandler) Load(c *fiber.Ctx) error {
	in, err := h.parseOp(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := h.svc.Load(c.Context(), in)
	if err != nil {
		return opError(c, err)
	}
	return c.JSON(toOpResponse(res))
}

// Get godoc
// @Summary      Retirar producto de un estante
// @Tags         rfid
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RFIDOpRequest  true  "producto, cantidad, estante opcional"
// @Success      200   {object}  dto.RFIDOpResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/rfid/get [post]
func (h *RFIDHandler) Get(c *fiber.Ctx) error {
	in, err := h.parseOp(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := h.svc.Get(c.Context(), in)
	if err != nil {
		return opError(c, err)
	}
	return c.JSON(toOpResponse(res))
}

// Move godoc
// @Summary      Trasladar producto entre estantes
// @Tags         rfid
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RFIDOpRequest  true  "producto, cantidad, from/to opcionales"
// @Success      200   {object}  dto.RFIDOpResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/rfid/move [post]
func (h *RFIDHandler) Move(c *fiber.Ctx) error {
	in, err := h.parseOp(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := h.svc.Move(c.Context(), in)
	if err != nil {
		return opError(c, err)
	}
	return c.JSON(toOpResponse(res))
}

// Scan godoc
// @Summary      Identificar un lote de tags escaneados
// @Tags         rfid
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ScanRequest  true  "reader_id y rfid_tags"
// @Success      200   {array}   rfid.ScanResult
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/rfid/scan [post]
func (h *RFIDHandler) Scan(c *fiber.Ctx) error {
	var in dto.ScanRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if len(in.RFIDTags) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "rfid_tags no puede estar vacío"})
	}
	results, err := h.svc.ProcessScan(c.Context(), in.ReaderID, in.RFIDTags)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(results)
}

// ReadersStatus godoc
// @Summary      Estado de los listeners de lectores
// @Tags         rfid
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.ReaderStatusResponse
// @Router       /api/rfid/readers/status [get]
func (h *RFIDHandler) ReadersStatus(c *fiber.Ctx) error {
	statuses := h.readers.Statuses()
	out := make([]dto.ReaderStatusResponse, 0, len(statuses))
	for _, st := range statuses {
		r := dto.ReaderStatusResponse{
			ReaderID:          st.ReaderID,
			Transport:         st.Transport,
			Connected:         st.Connected,
			Running:           st.Running,
			ReconnectAttempts: st.ReconnectAttempts,
			ErrorCount:        st.ErrorCount,
			LastError:         st.LastError,
		}
		if !st.LastActivity.IsZero() {
			r.LastActivity = st.LastActivity.Format("2006-01-02T15:04:05Z07:00")
		}
		out = append(out, r)
	}
	return c.JSON(out)
}

// TagHistory godoc
// @Summary      Historial de avistamientos de un tag
// @Tags         rfid
// @Security     Bearer
// @Produce      json
// @Param        tag    path   string  true   "tag RFID"
// @Param        limit  query  int     false  "máximo de entradas (default 50)"
// @Success      200  {array}   dto.TagTrackingResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/rfid/tags/{tag}/history [get]
func (h *RFIDHandler) TagHistory(c *fiber.Ctx) error {
	hist, err := h.svc.TagHistory(c.Params("tag"), c.QueryInt("limit"))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "tag es requerido"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	out := make([]dto.TagTrackingResponse, 0, len(hist))
	for _, tr := range hist {
		out = append(out, dto.TagTrackingResponse{
			RFIDTag:   tr.RFIDTag,
			ItemID:    tr.ItemID,
			ShelfID:   tr.ShelfID,
			Status:    tr.Status,
			Timestamp: tr.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return c.JSON(out)
}

// parseOp arma el OpInput común; la cantidad ausente vale 1 (una lectura = una unidad).
func (h *RFIDHandler) parseOp(c *fiber.Ctx) (rfid.OpInput, error) {
	var in dto.RFIDOpRequest
	if err := c.BodyParser(&in); err != nil {
		return rfid.OpInput{}, err
	}
	tag := in.RFIDTag
	if tag == "" {
		tag = in.ProductRFID
	}
	qty := in.Quantity
	if qty == 0 {
		qty = 1
	}
	return rfid.OpInput{
		RFIDTag:        tag,
		ItemID:         in.ProductID,
		Barcode:        in.Barcode,
		Quantity:       qty,
		ShelfID:        in.ShelfID,
		CabinetID:      in.CabinetID,
		FromShelfID:    in.FromShelfID,
		ToShelfID:      in.ToShelfID,
		StaffID:        GetStaffID(c),
		ReaderID:       in.ReaderID,
		IdempotencyKey: in.IdempotencyKey,
	}, nil
}

func toOpResponse(res *rfid.OpResult) dto.RFIDOpResponse {
	out := dto.RFIDOpResponse{
		Status:        "ok",
		TransactionID: res.Tx.ID,
		Quantity:      res.Tx.Quantity,
	}
	if res.Replayed {
		out.Status = "replayed"
	}
	if res.Shelf != nil {
		out.ShelfID = res.Shelf.ID
		out.ShelfName = res.Shelf.Name
	}
	return out
}

// opError mapea los errores de dominio de las operaciones RFID a códigos HTTP.
func opError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.Is(err, domain.ErrUnknownTag):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "UNKNOWN_TAG", Message: "tag no registrado"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "producto o estante no encontrado"})
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: "existencias insuficientes"})
	case errors.Is(err, domain.ErrOverCapacity):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "OVER_CAPACITY", Message: "el estante no tiene capacidad para esa cantidad"})
	case errors.Is(err, domain.ErrInvalidShelfForCategory):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INVALID_SHELF_FOR_CATEGORY", Message: "el estante no admite la categoría del producto"})
	case errors.Is(err, domain.ErrNoCapacity):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "NO_CAPACITY", Message: "ningún estante compatible tiene espacio"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
