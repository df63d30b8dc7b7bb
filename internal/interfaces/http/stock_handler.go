package http

import (
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/kardex/internal/application/dto"
	"github.com/jhoicas/kardex/internal/application/stock"
	"github.com/jhoicas/kardex/internal/domain/entity"
	"github.com/jhoicas/kardex/pkg/logger"
)

// StockHandler consultas de saldo, valoración e historial (protegido, sólo lectura).
type StockHandler struct {
	query *stock.QueryEngine
	log   *logger.Logger
}

// NewStockHandler construye el handler.
func NewStockHandler(query *stock.QueryEngine, log *logger.Logger) *StockHandler {
	return &StockHandler{query: query, log: log}
}

// CurrentQuantity godoc
// @Summary      Saldo actual de un producto
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        product_id    path   string  true   "Producto"
// @Param        warehouse_id  query  string  false  "Bodega. Vacío = total de la sucursal."
// @Success      200  {object}  dto.QuantityResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/{product_id} [get]
func (h *StockHandler) CurrentQuantity(c *fiber.Ctx) error {
	productID, warehouseID := c.Params("product_id"), c.Query("warehouse_id")
	qty, err := h.query.CurrentQuantity(c.Context(), GetBranchID(c), productID, warehouseID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.QuantityResponse{ProductID: productID, WarehouseID: warehouseID, Quantity: qty})
}

// Breakdown godoc
// @Summary      Saldo por bodega
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        product_id  path  string  true  "Producto"
// @Success      200  {object}  dto.BreakdownResponse
// @Router       /api/stock/{product_id}/warehouses [get]
func (h *StockHandler) Breakdown(c *fiber.Ctx) error {
	productID := c.Params("product_id")
	byWarehouse, err := h.query.PerWarehouseBreakdown(c.Context(), GetBranchID(c), productID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	resp := dto.BreakdownResponse{ProductID: productID, Warehouses: make([]dto.WarehouseQuantityDTO, 0, len(byWarehouse))}
	for w, q := range byWarehouse {
		resp.Warehouses = append(resp.Warehouses, dto.WarehouseQuantityDTO{WarehouseID: w, Quantity: q})
	}
	sort.Slice(resp.Warehouses, func(i, j int) bool { return resp.Warehouses[i].WarehouseID < resp.Warehouses[j].WarehouseID })
	return c.JSON(resp)
}

// Availability godoc
// @Summary      ¿Alcanza el saldo para una cantidad?
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        product_id    path   string  true   "Producto"
// @Param        quantity      query  string  true   "Cantidad solicitada"
// @Param        warehouse_id  query  string  false  "Bodega"
// @Success      200  {object}  dto.AvailabilityResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/{product_id}/availability [get]
func (h *StockHandler) Availability(c *fiber.Ctx) error {
	productID, warehouseID := c.Params("product_id"), c.Query("warehouse_id")
	requested, err := decimal.NewFromString(c.Query("quantity"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "quantity inválida"})
	}
	ok, err := h.query.IsAvailable(c.Context(), GetBranchID(c), productID, warehouseID, requested)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.AvailabilityResponse{ProductID: productID, WarehouseID: warehouseID, Requested: requested, Available: ok})
}

// Value godoc
// @Summary      Valoración de existencias (costo promedio)
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        product_id    path   string  true   "Producto"
// @Param        warehouse_id  query  string  false  "Bodega"
// @Success      200  {object}  dto.ValueResponse
// @Router       /api/stock/{product_id}/value [get]
func (h *StockHandler) Value(c *fiber.Ctx) error {
	productID, warehouseID := c.Params("product_id"), c.Query("warehouse_id")
	v, err := h.query.Valuation(c.Context(), GetBranchID(c), productID, warehouseID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ValueResponse{
		ProductID:       productID,
		WarehouseID:     warehouseID,
		Quantity:        v.Quantity,
		Value:           v.Value,
		AverageUnitCost: v.AverageUnitCost,
	})
}

// History godoc
// @Summary      Historial de movimientos (kardex)
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        product_id    path   string  true   "Producto"
// @Param        warehouse_id  query  string  false  "Bodega"
// @Param        limit         query  int     false  "1..100, por defecto 20"
// @Param        offset        query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.MovementListResponse
// @Router       /api/stock/{product_id}/movements [get]
func (h *StockHandler) History(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()
	list, err := h.query.History(c.Context(), GetBranchID(c), c.Params("product_id"), entity.MovementFilter{
		WarehouseID: c.Query("warehouse_id"),
		Limit:       page.Limit,
		Offset:      page.Offset,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	resp := dto.MovementListResponse{Items: make([]dto.MovementResponse, 0, len(list)), Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}}
	for _, m := range list {
		resp.Items = append(resp.Items, *dto.ToMovementResponse(m))
	}
	return c.JSON(resp)
}

// Transfer godoc
// @Summary      Detalle de un traslado
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "TransferID"
// @Success      200  {object}  dto.TransferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id} [get]
func (h *StockHandler) Transfer(c *fiber.Ctx) error {
	view, err := h.query.Transfer(c.Context(), GetBranchID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.TransferResponse{
		TransferID: view.TransferID,
		Out:        dto.ToMovementResponse(view.Out),
		In:         dto.ToMovementResponse(view.In),
	})
}
