package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/kardex/internal/domain/entity"
	"github.com/jhoicas/kardex/internal/domain/repository"
)

// Reglas que revisa VerifyLedger.
const (
	RuleRowInvariant      = "row_invariant"
	RuleCreatedOrder      = "created_order"
	RuleTransferLegs      = "transfer_legs"
	RuleTransferBalance   = "transfer_balance"
	RuleTransferProduct   = "transfer_product"
	RuleTransferDirection = "transfer_direction"
)

// Violation una fila o traslado que rompe una invariante del libro.
type Violation struct {
	MovementID int64  `json:"movement_id,omitempty"`
	TransferID string `json:"transfer_id,omitempty"`
	Rule       string `json:"rule"`
	Detail     string `json:"detail"`
}

// VerifyReport resultado de recorrer el libro completo.
type VerifyReport struct {
	Scanned    int         `json:"scanned"`
	Violations []Violation `json:"violations"`
}

// OK indica que no hubo violaciones.
func (r *VerifyReport) OK() bool { return len(r.Violations) == 0 }

// VerifyLedger recorre el libro en orden de id y revisa invariantes de fila y de traslado:
// cada TransferID tiene exactamente una salida y una entrada del mismo producto que suman cero.
// Dentro de un par (producto, bodega) los movimientos se escriben bajo bloqueo, así que created_at
// no puede retroceder al avanzar el id.
func VerifyLedger(ctx context.Context, ledger repository.MovementRepository) (*VerifyReport, error) {
	report := &VerifyReport{Violations: []Violation{}}
	legs := make(map[string][]*entity.Movement)
	lastCreated := make(map[entity.StockKey]*entity.Movement)

	err := ledger.Scan(ctx, func(m *entity.Movement) error {
		report.Scanned++
		if err := m.Validate(); err != nil {
			report.Violations = append(report.Violations, Violation{MovementID: m.ID, Rule: RuleRowInvariant, Detail: err.Error()})
		}
		key := entity.StockKey{ProductID: m.ProductID, WarehouseID: m.WarehouseID}
		if prev, ok := lastCreated[key]; ok && m.CreatedAt.Before(prev.CreatedAt) {
			report.Violations = append(report.Violations, Violation{
				MovementID: m.ID, Rule: RuleCreatedOrder,
				Detail: fmt.Sprintf("created_at %s anterior al de #%d (%s)",
					m.CreatedAt.Format(time.RFC3339Nano), prev.ID, prev.CreatedAt.Format(time.RFC3339Nano)),
			})
		} else {
			lastCreated[key] = m
		}
		if m.TransferID != "" {
			legs[m.TransferID] = append(legs[m.TransferID], m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(legs))
	for id := range legs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		report.Violations = append(report.Violations, checkTransfer(id, legs[id])...)
	}
	return report, nil
}

func checkTransfer(id string, legs []*entity.Movement) []Violation {
	if len(legs) != 2 {
		return []Violation{{TransferID: id, Rule: RuleTransferLegs, Detail: fmt.Sprintf("%d pata(s), se esperaban 2", len(legs))}}
	}
	var out []Violation
	a, b := legs[0], legs[1]
	if a.ProductID != b.ProductID {
		out = append(out, Violation{TransferID: id, Rule: RuleTransferProduct, Detail: fmt.Sprintf("productos %s y %s", a.ProductID, b.ProductID)})
	}
	if a.Direction == b.Direction {
		out = append(out, Violation{TransferID: id, Rule: RuleTransferDirection, Detail: fmt.Sprintf("ambas patas %s", a.Direction)})
	}
	if sum := a.Quantity.Add(b.Quantity); !sum.Equal(decimal.Zero) {
		out = append(out, Violation{TransferID: id, Rule: RuleTransferBalance, Detail: fmt.Sprintf("las patas suman %s", sum)})
	}
	return out
}
