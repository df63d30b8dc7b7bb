package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/kardex/internal/domain"
)

// QuantityScale cantidad de decimales con que se persisten las cantidades (NUMERIC(20,4)).
const QuantityScale = 4

// Direction sentido del movimiento; redundante con el signo de Quantity.
type Direction string

const (
	DirectionIn  Direction = "in"  // entrada
	DirectionOut Direction = "out" // salida
)

// DirectionOf deriva la dirección a partir del signo de la cantidad.
func DirectionOf(qty decimal.Decimal) Direction {
	if qty.IsNegative() {
		return DirectionOut
	}
	return DirectionIn
}

// MovementKind clasificación informativa del movimiento. Nunca interviene en el cálculo del saldo.
type MovementKind string

const (
	MovementKindAdjustment MovementKind = "adjustment"
	MovementKindTransfer   MovementKind = "transfer"
	MovementKindSale       MovementKind = "sale"
	MovementKindPurchase   MovementKind = "purchase"
	MovementKindReturn     MovementKind = "return"
	MovementKindProduction MovementKind = "production"
	MovementKindCorrection MovementKind = "correction"
)

// Valid indica si el tipo es uno de los conocidos.
func (k MovementKind) Valid() bool {
	switch k {
	case MovementKindAdjustment, MovementKindTransfer, MovementKindSale, MovementKindPurchase,
		MovementKindReturn, MovementKindProduction, MovementKindCorrection:
		return true
	}
	return false
}

// ReferenceKind tipo del documento de negocio que originó el movimiento.
type ReferenceKind string

const (
	ReferenceNone       ReferenceKind = ""
	ReferenceSale       ReferenceKind = "sale"
	ReferencePurchase   ReferenceKind = "purchase"
	ReferenceTransfer   ReferenceKind = "transfer"
	ReferenceAdjustment ReferenceKind = "adjustment"
)

// Valid indica si el tipo de referencia es conocido.
func (k ReferenceKind) Valid() bool {
	switch k {
	case ReferenceNone, ReferenceSale, ReferencePurchase, ReferenceTransfer, ReferenceAdjustment:
		return true
	}
	return false
}

// Reference enlace tipado al documento de negocio (auditoría). En traslados lleva las bodegas
// origen y destino para poder reensamblar las dos patas.
type Reference struct {
	Kind            ReferenceKind `json:"kind,omitempty"`
	ID              string        `json:"id,omitempty"`
	FromWarehouseID string        `json:"from_warehouse_id,omitempty"`
	ToWarehouseID   string        `json:"to_warehouse_id,omitempty"`
}

// Movement evento inmutable del libro de existencias (kardex).
// Positivo = entrada, negativo = salida. Las correcciones son movimientos compensatorios nuevos.
type Movement struct {
	ID          int64
	BranchID    string
	ProductID   string
	WarehouseID string
	Quantity    decimal.Decimal
	Direction   Direction
	Kind        MovementKind
	Reason      string
	Reference   Reference
	TransferID  string              // enlaza las dos patas de un traslado
	UnitCost    decimal.NullDecimal // sólo valoración
	CreatedBy   string
	CreatedAt   time.Time
}

// Validate verifica las invariantes que el libro exige antes de persistir una fila.
func (m *Movement) Validate() error {
	if m.BranchID == "" || m.ProductID == "" || m.WarehouseID == "" {
		return fmt.Errorf("%w: sucursal, producto y bodega son obligatorios", domain.ErrInvalidMovement)
	}
	if m.Quantity.IsZero() {
		return fmt.Errorf("%w: cantidad cero", domain.ErrInvalidMovement)
	}
	if !m.Quantity.Equal(m.Quantity.Truncate(QuantityScale)) {
		return fmt.Errorf("%w: más de %d decimales en cantidad %s", domain.ErrInvalidMovement, QuantityScale, m.Quantity)
	}
	if m.Direction != DirectionIn && m.Direction != DirectionOut {
		return fmt.Errorf("%w: dirección desconocida %q", domain.ErrInvalidMovement, m.Direction)
	}
	if DirectionOf(m.Quantity) != m.Direction {
		return fmt.Errorf("%w: dirección %s no coincide con cantidad %s", domain.ErrInvalidMovement, m.Direction, m.Quantity)
	}
	if !m.Kind.Valid() {
		return fmt.Errorf("%w: tipo de movimiento desconocido %q", domain.ErrInvalidMovement, m.Kind)
	}
	if !m.Reference.Kind.Valid() {
		return fmt.Errorf("%w: tipo de referencia desconocido %q", domain.ErrInvalidMovement, m.Reference.Kind)
	}
	if m.UnitCost.Valid && m.UnitCost.Decimal.IsNegative() {
		return fmt.Errorf("%w: costo unitario negativo", domain.ErrInvalidMovement)
	}
	return nil
}

// Value valor del movimiento (cantidad * costo unitario; costo ausente cuenta como cero).
func (m *Movement) Value() decimal.Decimal {
	if !m.UnitCost.Valid {
		return decimal.Zero
	}
	return m.Quantity.Mul(m.UnitCost.Decimal)
}
