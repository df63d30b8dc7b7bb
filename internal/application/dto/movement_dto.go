package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/kardex/internal/domain/entity"
)

// AdjustRequest body para POST /api/movements/adjustments.
type AdjustRequest struct {
	ProductID     string           `json:"product_id"`
	WarehouseID   string           `json:"warehouse_id"`
	Quantity      decimal.Decimal  `json:"quantity"` // con signo
	Kind          string           `json:"kind,omitempty"`
	Reason        string           `json:"reason,omitempty"`
	ReferenceKind string           `json:"reference_kind,omitempty"`
	ReferenceID   string           `json:"reference_id,omitempty"`
	UnitCost      *decimal.Decimal `json:"unit_cost,omitempty"`
}

// TransferRequest body para POST /api/movements/transfers.
type TransferRequest struct {
	ProductID       string          `json:"product_id"`
	FromWarehouseID string          `json:"from_warehouse_id"`
	ToWarehouseID   string          `json:"to_warehouse_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	ReferenceID     string          `json:"reference_id,omitempty"`
	Reason          string          `json:"reason,omitempty"`
}

// MovementResponse fila del libro.
type MovementResponse struct {
	ID          int64             `json:"id"`
	BranchID    string            `json:"branch_id"`
	ProductID   string            `json:"product_id"`
	WarehouseID string            `json:"warehouse_id"`
	Quantity    decimal.Decimal   `json:"quantity"`
	Direction   string            `json:"direction"`
	Kind        string            `json:"kind"`
	Reason      string            `json:"reason,omitempty"`
	Reference   *entity.Reference `json:"reference,omitempty"`
	TransferID  string            `json:"transfer_id,omitempty"`
	UnitCost    *decimal.Decimal  `json:"unit_cost,omitempty"`
	CreatedBy   string            `json:"created_by,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// TransferResponse patas de un traslado; la pata de otra sucursal se omite.
type TransferResponse struct {
	TransferID string            `json:"transfer_id"`
	Out        *MovementResponse `json:"out,omitempty"`
	In         *MovementResponse `json:"in,omitempty"`
}

// MovementListResponse página del historial.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// ToMovementResponse convierte la entidad a DTO. nil devuelve nil.
func ToMovementResponse(m *entity.Movement) *MovementResponse {
	if m == nil {
		return nil
	}
	out := &MovementResponse{
		ID:          m.ID,
		BranchID:    m.BranchID,
		ProductID:   m.ProductID,
		WarehouseID: m.WarehouseID,
		Quantity:    m.Quantity,
		Direction:   string(m.Direction),
		Kind:        string(m.Kind),
		Reason:      m.Reason,
		TransferID:  m.TransferID,
		CreatedBy:   m.CreatedBy,
		CreatedAt:   m.CreatedAt,
	}
	if m.Reference != (entity.Reference{}) {
		ref := m.Reference
		out.Reference = &ref
	}
	if m.UnitCost.Valid {
		c := m.UnitCost.Decimal
		out.UnitCost = &c
	}
	return out
}
