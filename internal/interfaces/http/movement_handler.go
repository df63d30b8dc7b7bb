package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/kardex/internal/application/dto"
	"github.com/jhoicas/kardex/internal/application/inventory"
	"github.com/jhoicas/kardex/internal/domain/entity"
	"github.com/jhoicas/kardex/pkg/logger"
)

// MovementHandler escritura en el libro: ajustes y traslados (protegido, admin|bodeguero).
type MovementHandler struct {
	orch *inventory.Orchestrator
	log  *logger.Logger
}

// NewMovementHandler construye el handler.
func NewMovementHandler(orch *inventory.Orchestrator, log *logger.Logger) *MovementHandler {
	return &MovementHandler{orch: orch, log: log}
}

// Adjust godoc
// @Summary      Registrar ajuste (entrada o salida según el signo)
// @Description  No valida saldo negativo. Kind por defecto "adjustment"; "transfer" no está permitido.
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustRequest  true  "product_id, warehouse_id, quantity con signo"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/movements/adjustments [post]
func (h *MovementHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	m, err := h.orch.Adjust(c.Context(), inventory.AdjustInput{
		BranchID:    GetBranchID(c),
		ActorID:     GetUserID(c),
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		Quantity:    in.Quantity,
		Kind:        entity.MovementKind(in.Kind),
		Reason:      in.Reason,
		Reference:   entity.Reference{Kind: entity.ReferenceKind(in.ReferenceKind), ID: in.ReferenceID},
		UnitCost:    in.UnitCost,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToMovementResponse(m))
}

// Transfer godoc
// @Summary      Trasladar entre bodegas
// @Description  Salida en origen y entrada en destino en una sola transacción. 409 si el origen no alcanza.
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "product_id, from_warehouse_id, to_warehouse_id, quantity > 0"
// @Success      201   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.InsufficientStockResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/movements/transfers [post]
func (h *MovementHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, inMov, err := h.orch.Transfer(c.Context(), inventory.TransferInput{
		BranchID:        GetBranchID(c),
		ActorID:         GetUserID(c),
		ProductID:       in.ProductID,
		Quantity:        in.Quantity,
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		ReferenceID:     in.ReferenceID,
		Reason:          in.Reason,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TransferResponse{
		TransferID: out.TransferID,
		Out:        dto.ToMovementResponse(out),
		In:         dto.ToMovementResponse(inMov),
	})
}
