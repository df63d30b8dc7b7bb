package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/kardex/internal/domain/entity"
	"github.com/jhoicas/kardex/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementColumns = `
	id, branch_id, product_id, warehouse_id, quantity, direction, kind, reason,
	reference_kind, reference_id, from_warehouse_id, to_warehouse_id, transfer_id,
	unit_cost, created_by, created_at`

// MovementRepo libro de movimientos sobre PostgreSQL (usable con pool o tx).
// Sólo INSERT y SELECT: UPDATE/DELETE los rechaza además un trigger.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Append valida, inserta y devuelve la fila con id y created_at asignados por la base.
func (r *MovementRepo) Append(ctx context.Context, movement *entity.Movement) (*entity.Movement, error) {
	if err := movement.Validate(); err != nil {
		return nil, err
	}
	const query = `
		INSERT INTO stock_movements
			(branch_id, product_id, warehouse_id, quantity, direction, kind, reason,
			 reference_kind, reference_id, from_warehouse_id, to_warehouse_id, transfer_id,
			 unit_cost, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at`
	out := *movement
	err := r.q.QueryRow(ctx, query,
		out.BranchID, out.ProductID, out.WarehouseID, out.Quantity, string(out.Direction), string(out.Kind), out.Reason,
		string(out.Reference.Kind), out.Reference.ID,
		nullString(out.Reference.FromWarehouseID), nullString(out.Reference.ToWarehouseID), nullString(out.TransferID),
		out.UnitCost, out.CreatedBy,
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, mapError("append movement", err)
	}
	out.CreatedAt = out.CreatedAt.UTC()
	return &out, nil
}

// GetByID obtiene un movimiento de la sucursal; nil, nil si no existe.
func (r *MovementRepo) GetByID(ctx context.Context, branchID string, id int64) (*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE branch_id = $1 AND id = $2`
	m, err := scanMovement(r.q.QueryRow(ctx, query, branchID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get movement", err)
	}
	return m, nil
}

// ListByProduct historial del producto, más recientes primero.
func (r *MovementRepo) ListByProduct(ctx context.Context, branchID, productID string, filter entity.MovementFilter) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE branch_id = $1 AND product_id = $2`
	args := []any{branchID, productID}
	pos := 3
	if filter.WarehouseID != "" {
		query += fmt.Sprintf(" AND warehouse_id = $%d", pos)
		args = append(args, filter.WarehouseID)
		pos++
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", pos)
		args = append(args, filter.Limit)
		pos++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", pos)
		args = append(args, filter.Offset)
	}
	return r.list(ctx, "list movements by product", query, args...)
}

// ListByTransfer patas del traslado visibles para la sucursal.
func (r *MovementRepo) ListByTransfer(ctx context.Context, branchID, transferID string) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE transfer_id = $1 AND branch_id = $2 ORDER BY id`
	return r.list(ctx, "list movements by transfer", query, transferID, branchID)
}

// Scan recorre el libro completo en orden de id.
func (r *MovementRepo) Scan(ctx context.Context, fn func(*entity.Movement) error) error {
	rows, err := r.q.Query(ctx, `SELECT `+movementColumns+` FROM stock_movements ORDER BY id`)
	if err != nil {
		return mapError("scan ledger", err)
	}
	defer rows.Close()
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return fmt.Errorf("scan movement: %w", err)
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	return mapError("scan ledger rows", rows.Err())
}

func (r *MovementRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.Movement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()
	var list []*entity.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return list, nil
}

// pgxScanner abstrae pgx.Row y pgx.Rows.
type pgxScanner interface {
	Scan(dest ...any) error
}

func scanMovement(row pgxScanner) (*entity.Movement, error) {
	var (
		m                      entity.Movement
		direction, kind, rKind string
		from, to, transferID   *string
	)
	err := row.Scan(
		&m.ID, &m.BranchID, &m.ProductID, &m.WarehouseID, &m.Quantity, &direction, &kind, &m.Reason,
		&rKind, &m.Reference.ID, &from, &to, &transferID,
		&m.UnitCost, &m.CreatedBy, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Direction = entity.Direction(direction)
	m.Kind = entity.MovementKind(kind)
	m.Reference.Kind = entity.ReferenceKind(rKind)
	m.Reference.FromWarehouseID = derefString(from)
	m.Reference.ToWarehouseID = derefString(to)
	m.TransferID = derefString(transferID)
	m.CreatedAt = m.CreatedAt.UTC()
	return &m, nil
}
