package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/GeorgiDimov1228/warehouse-management/internal/application/dto"
	"github.com/GeorgiDimov1228/warehouse-management/internal/application/plcsync"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"
	"github.com/GeorgiDimov1228/warehouse-management/internal/infrastructure/opcua"
)

// OPCUAHandler expone el enlace con el PLC y el lazo de sincronización.
type OPCUAHandler struct {
	client   *opcua.Client
	loop     *plcsync.Loop
	bindings map[string]entity.NodeBinding
}

// NewOPCUAHandler construye el handler; bindings indexa por nombre de señal.
func NewOPCUAHandler(client *opcua.Client, loop *plcsync.Loop, bindings []entity.NodeBinding) *OPCUAHandler {
	byName := make(map[string]entity.NodeBinding, len(bindings))
	for _, b := range bindings {
		byName[b.Name] = b
	}
	return &OPCUAHandler{client: client, loop: loop, bindings: byName}
}

// Status godoc
// @Summary      Estado del enlace con el PLC
// @Tags         opcua
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.OPCUAStatusResponse
// @Router       /api/opcua/status [get]
func (h *OPCUAHandler) Status(c *fiber.Ctx) error {
	st := h.client.Status()
	out := dto.OPCUAStatusResponse{
		State:     opcua.StateName(st.State),
		Endpoint:  st.Endpoint,
		Attempts:  st.Attempts,
		LastError: st.LastError,
		Stale:     h.loop.Stale(),
	}
	if !st.LastChangeAt.IsZero() {
		out.LastChangeAt = st.LastChangeAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return c.JSON(out)
}

// Read godoc
// @Summary      Leer un nodo del PLC
// @Tags         opcua
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.OPCUAReadRequest  true  "node_id"
// @Success      200   {object}  dto.OPCUAReadResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/opcua/read [post]
func (h *OPCUAHandler) Read(c *fiber.Ctx) error {
	var in dto.OPCUAReadRequest
	if err := c.BodyParser(&in); err != nil || in.NodeID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "node_id es requerido"})
	}
	value, err := h.client.Read(c.Context(), in.NodeID)
	if err != nil {
		return hardwareError(c, err)
	}
	return c.JSON(dto.OPCUAReadResponse{NodeID: in.NodeID, Value: value})
}

// Write godoc
// @Summary      Escribir un nodo del PLC
// @Tags         opcua
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.OPCUAWriteRequest  true  "node_id y value"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/opcua/write [post]
func (h *OPCUAHandler) Write(c *fiber.Ctx) error {
	var in dto.OPCUAWriteRequest
	if err := c.BodyParser(&in); err != nil || in.NodeID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "node_id es requerido"})
	}
	if err := h.client.Write(c.Context(), in.NodeID, in.Value); err != nil {
		return hardwareError(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// ItemCount godoc
// @Summary      Conteo de items publicado en el PLC
// @Tags         opcua
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.OPCUAReadResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/opcua/item-count [get]
func (h *OPCUAHandler) ItemCount(c *fiber.Ctx) error {
	return h.readBinding(c, entity.BindingItemCount)
}

// TrafficLight godoc
// @Summary      Semáforo publicado en el PLC
// @Tags         opcua
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.OPCUAReadResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/opcua/traffic-light [get]
func (h *OPCUAHandler) TrafficLight(c *fiber.Ctx) error {
	return h.readBinding(c, entity.BindingTrafficLight)
}

// SetItemCount godoc
// @Summary      Forzar el conteo de items en el PLC
// @Tags         opcua
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.OPCUAWriteRequest  true  "value"
// @Success      200   {object}  map[string]string
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/opcua/item-count [post]
func (h *OPCUAHandler) SetItemCount(c *fiber.Ctx) error {
	return h.writeBinding(c, entity.BindingItemCount)
}

// SetTrafficLight godoc
// @Summary      Forzar el semáforo en el PLC
// @Tags         opcua
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.OPCUAWriteRequest  true  "value"
// @Success      200   {object}  map[string]string
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/opcua/traffic-light [post]
func (h *OPCUAHandler) SetTrafficLight(c *fiber.Ctx) error {
	return h.writeBinding(c, entity.BindingTrafficLight)
}

// HMICommand godoc
// @Summary      Inyectar un comando HMI (mismo camino que el panel físico)
// @Tags         opcua
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.HMICommandRequest  true  "comando"
// @Success      200   {object}  dto.SyncStatusResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/opcua/hmi-command [post]
func (h *OPCUAHandler) HMICommand(c *fiber.Ctx) error {
	var in dto.HMICommandRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	cmd := strings.ToUpper(strings.TrimSpace(in.Command))
	if !entity.IsHMICommand(cmd) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "comando HMI no reconocido"})
	}
	h.loop.HandleCommand(cmd)
	return c.JSON(h.syncStatus())
}

// Sync godoc
// @Summary      Forzar un ciclo de sincronización
// @Tags         opcua
// @Security     Bearer
// @Produce      json
// @Success      202  {object}  dto.SyncStatusResponse
// @Router       /api/opcua/sync [post]
func (h *OPCUAHandler) Sync(c *fiber.Ctx) error {
	h.loop.Trigger()
	return c.Status(fiber.StatusAccepted).JSON(h.syncStatus())
}

// Reset godoc
// @Summary      Sacar el enlace del estado failed
// @Tags         opcua
// @Security     Bearer
// @Produce      json
// @Success      202  {object}  dto.OPCUAStatusResponse
// @Router       /api/opcua/reset [post]
func (h *OPCUAHandler) Reset(c *fiber.Ctx) error {
	h.client.Reset()
	return c.Status(fiber.StatusAccepted).JSON(dto.OPCUAStatusResponse{
		State:    opcua.StateName(h.client.State()),
		Endpoint: h.client.Status().Endpoint,
		Stale:    h.loop.Stale(),
	})
}

func (h *OPCUAHandler) readBinding(c *fiber.Ctx, name string) error {
	binding, ok := h.bindings[name]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "señal sin binding configurado"})
	}
	value, err := h.client.Read(c.Context(), binding.NodeID)
	if err != nil {
		return hardwareError(c, err)
	}
	return c.JSON(dto.OPCUAReadResponse{NodeID: binding.NodeID, Value: value})
}

// writeBinding fuerza una señal publicada. El siguiente ciclo del lazo la
// vuelve a sobrescribir con el valor calculado.
func (h *OPCUAHandler) writeBinding(c *fiber.Ctx, name string) error {
	binding, ok := h.bindings[name]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "señal sin binding configurado"})
	}
	var in dto.OPCUAWriteRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := h.client.Write(c.Context(), binding.NodeID, in.Value); err != nil {
		return hardwareError(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *OPCUAHandler) syncStatus() dto.SyncStatusResponse {
	st := h.loop.Status()
	out := dto.SyncStatusResponse{Stale: st.Stale, HMIStatus: st.HMIStatus}
	if !st.LastCycleAt.IsZero() {
		out.LastCycleAt = st.LastCycleAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return out
}

// hardwareError mapea los errores del enlace a códigos HTTP.
func hardwareError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "node id o valor inválido"})
	case errors.Is(err, domain.ErrHardwareTimeout):
		return c.Status(fiber.StatusGatewayTimeout).JSON(dto.ErrorResponse{Code: "HARDWARE_TIMEOUT", Message: "el PLC no respondió a tiempo"})
	case errors.Is(err, domain.ErrHardwareRejected):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "HARDWARE_REJECTED", Message: "el PLC rechazó la operación"})
	case errors.Is(err, domain.ErrNotConnected), errors.Is(err, domain.ErrLinkFailed):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "NOT_CONNECTED", Message: "sin enlace con el PLC"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
