package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/kardex/internal/application/stock"
	"github.com/jhoicas/kardex/internal/domain"
	"github.com/jhoicas/kardex/internal/domain/entity"
	"github.com/jhoicas/kardex/internal/domain/inventory"
	"github.com/jhoicas/kardex/internal/domain/repository"
	"github.com/jhoicas/kardex/pkg/logger"
)

// Orchestrator es el único componente que agrega movimientos al libro.
// Cada Adjust/Transfer corre en una transacción: bloquea los agregados (producto, bodega),
// valida contra el saldo leído dentro de la tx y agrega las filas; o todo o nada.
type Orchestrator struct {
	txRunner      TxRunner
	productRepo   repository.ProductRepository
	warehouseRepo repository.WarehouseRepository
	cache         stock.QuantityCache
	maxAttempts   int
	baseDelay     time.Duration
	log           *logger.Logger
}

// Options parámetros opcionales del orquestador.
type Options struct {
	MaxAttempts int           // intentos totales ante LockTimeout/transitorios; <1 = 1
	BaseDelay   time.Duration // primer intervalo del backoff exponencial
	Cache       stock.QuantityCache
	Logger      *logger.Logger
}

// NewOrchestrator construye el orquestador de movimientos.
func NewOrchestrator(
	txRunner TxRunner,
	productRepo repository.ProductRepository,
	warehouseRepo repository.WarehouseRepository,
	opts Options,
) *Orchestrator {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 50 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Orchestrator{
		txRunner:      txRunner,
		productRepo:   productRepo,
		warehouseRepo: warehouseRepo,
		cache:         opts.Cache,
		maxAttempts:   opts.MaxAttempts,
		baseDelay:     opts.BaseDelay,
		log:           opts.Logger.Component("orchestrator"),
	}
}

// AdjustInput entrada de un ajuste (también ventas, compras y devoluciones: cambian un solo par).
type AdjustInput struct {
	BranchID    string
	ActorID     string
	ProductID   string
	WarehouseID string
	Quantity    decimal.Decimal // con signo; positivo entra, negativo sale
	Kind        entity.MovementKind
	Reason      string
	Reference   entity.Reference
	UnitCost    *decimal.Decimal
}

// TransferInput entrada de un traslado entre bodegas.
type TransferInput struct {
	BranchID        string
	ActorID         string
	ProductID       string
	Quantity        decimal.Decimal
	FromWarehouseID string
	ToWarehouseID   string
	ReferenceID     string // documento de traslado opcional; por defecto el TransferID
	Reason          string
}

// Adjust agrega un movimiento con la dirección derivada del signo.
// No controla saldo negativo: esa política la decide la capa de negocio del llamador.
func (o *Orchestrator) Adjust(ctx context.Context, in AdjustInput) (*entity.Movement, error) {
	if in.BranchID == "" || in.ProductID == "" || in.WarehouseID == "" {
		return nil, fmt.Errorf("%w: sucursal, producto y bodega son obligatorios", domain.ErrInvalidArgument)
	}
	if err := checkQuantity(in.Quantity); err != nil {
		return nil, err
	}
	if in.Kind == "" {
		in.Kind = entity.MovementKindAdjustment
	}
	if !in.Kind.Valid() || in.Kind == entity.MovementKindTransfer {
		return nil, fmt.Errorf("%w: tipo de movimiento %q no permitido en ajuste", domain.ErrInvalidArgument, in.Kind)
	}
	if !in.Reference.Kind.Valid() {
		return nil, fmt.Errorf("%w: tipo de referencia %q", domain.ErrInvalidArgument, in.Reference.Kind)
	}
	var unitCost decimal.NullDecimal
	if in.UnitCost != nil {
		if in.UnitCost.IsNegative() {
			return nil, fmt.Errorf("%w: costo unitario negativo", domain.ErrInvalidArgument)
		}
		if !in.UnitCost.Equal(in.UnitCost.Truncate(inventory.CostScale)) {
			return nil, fmt.Errorf("%w: máximo %d decimales en costo unitario", domain.ErrInvalidArgument, inventory.CostScale)
		}
		unitCost = decimal.NewNullDecimal(*in.UnitCost)
	}

	product, err := o.loadProduct(ctx, in.BranchID, in.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.Stockable() {
		return nil, fmt.Errorf("%w: el producto %s no maneja existencias", domain.ErrInvalidArgument, product.ID)
	}
	wh, err := o.loadWarehouse(ctx, in.WarehouseID)
	if err != nil {
		return nil, err
	}
	if wh.BranchID != in.BranchID {
		return nil, fmt.Errorf("%w: bodega %s", domain.ErrNotFound, in.WarehouseID)
	}

	draft := entity.Movement{
		BranchID:    wh.BranchID,
		ProductID:   product.ID,
		WarehouseID: wh.ID,
		Quantity:    in.Quantity,
		Direction:   entity.DirectionOf(in.Quantity),
		Kind:        in.Kind,
		Reason:      in.Reason,
		Reference:   in.Reference,
		UnitCost:    unitCost,
		CreatedBy:   in.ActorID,
	}
	key := entity.StockKey{BranchID: wh.BranchID, ProductID: product.ID, WarehouseID: wh.ID}

	var saved *entity.Movement
	err = o.withRetry(ctx, "adjust", func() error {
		return o.txRunner.Run(ctx, func(
			ledger repository.MovementRepository,
			stockRepo repository.StockQueryRepository,
			locks repository.StockLockRepository,
		) error {
			if err := locks.Lock(ctx, []entity.StockKey{key}); err != nil {
				return err
			}
			mov := draft
			// Salida sin costo explícito: sale al costo promedio vigente de la bodega.
			if mov.Direction == entity.DirectionOut && !mov.UnitCost.Valid {
				avg, err := averageCost(ctx, stockRepo, key)
				if err != nil {
					return err
				}
				if avg.IsPositive() {
					mov.UnitCost = decimal.NewNullDecimal(avg)
				}
			}
			out, err := ledger.Append(ctx, &mov)
			if err != nil {
				return err
			}
			if err := locks.Bump(ctx, key); err != nil {
				return err
			}
			saved = out
			return nil
		})
	})
	if err != nil {
		o.logFailure(err, "adjust", in.ProductID)
		return nil, err
	}

	o.invalidate(ctx, key.BranchID, key.ProductID, key.WarehouseID)
	o.log.Info().
		Int64("movement_id", saved.ID).
		Str("branch_id", saved.BranchID).
		Str("product_id", saved.ProductID).
		Str("warehouse_id", saved.WarehouseID).
		Str("quantity", saved.Quantity.String()).
		Str("kind", string(saved.Kind)).
		Msg("ajuste registrado")
	return saved, nil
}

// Transfer mueve qty del origen al destino: salida en origen y entrada en destino en la misma tx.
// A diferencia de Adjust, el origen debe cubrir la cantidad (InsufficientStockError si no).
// La pata destino se atribuye a la sucursal de la bodega destino.
func (o *Orchestrator) Transfer(ctx context.Context, in TransferInput) (*entity.Movement, *entity.Movement, error) {
	if in.BranchID == "" || in.ProductID == "" || in.FromWarehouseID == "" || in.ToWarehouseID == "" {
		return nil, nil, fmt.Errorf("%w: sucursal, producto y bodegas son obligatorios", domain.ErrInvalidArgument)
	}
	if in.FromWarehouseID == in.ToWarehouseID {
		return nil, nil, fmt.Errorf("%w: bodega origen y destino iguales", domain.ErrInvalidArgument)
	}
	if !in.Quantity.IsPositive() {
		return nil, nil, fmt.Errorf("%w: la cantidad a trasladar debe ser positiva", domain.ErrInvalidArgument)
	}
	if err := checkQuantity(in.Quantity); err != nil {
		return nil, nil, err
	}

	product, err := o.loadProduct(ctx, in.BranchID, in.ProductID)
	if err != nil {
		return nil, nil, err
	}
	if !product.Stockable() {
		return nil, nil, fmt.Errorf("%w: el producto %s no maneja existencias", domain.ErrInvalidArgument, product.ID)
	}
	from, err := o.loadWarehouse(ctx, in.FromWarehouseID)
	if err != nil {
		return nil, nil, err
	}
	if from.BranchID != in.BranchID {
		return nil, nil, fmt.Errorf("%w: bodega %s", domain.ErrNotFound, in.FromWarehouseID)
	}
	to, err := o.loadWarehouse(ctx, in.ToWarehouseID)
	if err != nil {
		return nil, nil, err
	}

	transferID := uuid.New().String()
	ref := entity.Reference{
		Kind:            entity.ReferenceTransfer,
		ID:              in.ReferenceID,
		FromWarehouseID: from.ID,
		ToWarehouseID:   to.ID,
	}
	if ref.ID == "" {
		ref.ID = transferID
	}
	fromKey := entity.StockKey{BranchID: from.BranchID, ProductID: product.ID, WarehouseID: from.ID}
	toKey := entity.StockKey{BranchID: to.BranchID, ProductID: product.ID, WarehouseID: to.ID}
	keys := entity.SortStockKeys([]entity.StockKey{fromKey, toKey})

	var outMov, inMov *entity.Movement
	err = o.withRetry(ctx, "transfer", func() error {
		return o.txRunner.Run(ctx, func(
			ledger repository.MovementRepository,
			stockRepo repository.StockQueryRepository,
			locks repository.StockLockRepository,
		) error {
			if err := locks.Lock(ctx, keys); err != nil {
				return err
			}
			available, err := stockRepo.SumQuantity(ctx, from.BranchID, product.ID, from.ID)
			if err != nil {
				return err
			}
			if available.LessThan(in.Quantity) {
				return &domain.InsufficientStockError{Available: available, Requested: in.Quantity}
			}
			avg, err := averageCost(ctx, stockRepo, fromKey)
			if err != nil {
				return err
			}
			var unitCost decimal.NullDecimal
			if avg.IsPositive() {
				unitCost = decimal.NewNullDecimal(avg)
			}

			out, err := ledger.Append(ctx, &entity.Movement{
				BranchID:    from.BranchID,
				ProductID:   product.ID,
				WarehouseID: from.ID,
				Quantity:    in.Quantity.Neg(),
				Direction:   entity.DirectionOut,
				Kind:        entity.MovementKindTransfer,
				Reason:      in.Reason,
				Reference:   ref,
				TransferID:  transferID,
				UnitCost:    unitCost,
				CreatedBy:   in.ActorID,
			})
			if err != nil {
				return err
			}
			inm, err := ledger.Append(ctx, &entity.Movement{
				BranchID:    to.BranchID,
				ProductID:   product.ID,
				WarehouseID: to.ID,
				Quantity:    in.Quantity,
				Direction:   entity.DirectionIn,
				Kind:        entity.MovementKindTransfer,
				Reason:      in.Reason,
				Reference:   ref,
				TransferID:  transferID,
				UnitCost:    unitCost,
				CreatedBy:   in.ActorID,
			})
			if err != nil {
				return err
			}
			for _, k := range keys {
				if err := locks.Bump(ctx, k); err != nil {
					return err
				}
			}
			outMov, inMov = out, inm
			return nil
		})
	})
	if err != nil {
		o.logFailure(err, "transfer", in.ProductID)
		return nil, nil, err
	}

	o.invalidate(ctx, from.BranchID, product.ID, from.ID)
	o.invalidate(ctx, to.BranchID, product.ID, to.ID)
	o.log.Info().
		Str("transfer_id", transferID).
		Str("product_id", product.ID).
		Str("from_warehouse_id", from.ID).
		Str("to_warehouse_id", to.ID).
		Str("quantity", in.Quantity.String()).
		Bool("cross_branch", from.BranchID != to.BranchID).
		Msg("traslado registrado")
	return outMov, inMov, nil
}

// checkQuantity rechaza cero y más decimales de los que persiste el libro.
func checkQuantity(qty decimal.Decimal) error {
	if qty.IsZero() {
		return fmt.Errorf("%w: cantidad cero", domain.ErrInvalidArgument)
	}
	if !qty.Equal(qty.Truncate(entity.QuantityScale)) {
		return fmt.Errorf("%w: máximo %d decimales en cantidad", domain.ErrInvalidArgument, entity.QuantityScale)
	}
	return nil
}

// averageCost costo promedio del agregado leído dentro de la tx (ya bloqueado).
func averageCost(ctx context.Context, stockRepo repository.StockQueryRepository, key entity.StockKey) (decimal.Decimal, error) {
	qty, err := stockRepo.SumQuantity(ctx, key.BranchID, key.ProductID, key.WarehouseID)
	if err != nil {
		return decimal.Zero, err
	}
	value, err := stockRepo.SumValue(ctx, key.BranchID, key.ProductID, key.WarehouseID)
	if err != nil {
		return decimal.Zero, err
	}
	return inventory.AverageUnitCost(value, qty), nil
}

func (o *Orchestrator) loadProduct(ctx context.Context, branchID, productID string) (*entity.Product, error) {
	product, err := o.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	// Un producto de otra sucursal no existe para el llamador.
	if product == nil || product.BranchID != branchID {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, productID)
	}
	return product, nil
}

func (o *Orchestrator) loadWarehouse(ctx context.Context, warehouseID string) (*entity.Warehouse, error) {
	wh, err := o.warehouseRepo.GetByID(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	if wh == nil {
		return nil, fmt.Errorf("%w: bodega %s", domain.ErrNotFound, warehouseID)
	}
	return wh, nil
}

// withRetry repite fn completa sólo ante errores reintentables; las decisiones de validación
// (InvalidArgument, NotFound, InsufficientStock) se devuelven en el primer intento.
func (o *Orchestrator) withRetry(ctx context.Context, op string, fn func() error) error {
	if o.maxAttempts <= 1 {
		return fn()
	}
	attempt := 0
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.baseDelay
	b.MaxInterval = 20 * o.baseDelay

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := fn()
		if err == nil {
			return struct{}{}, nil
		}
		if !domain.IsRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		o.log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("conflicto de bloqueo, reintentando")
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(o.maxAttempts)))

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}

func (o *Orchestrator) logFailure(err error, op, productID string) {
	switch {
	case errors.Is(err, domain.ErrInvariantViolation):
		o.log.Error().Err(err).Str("op", op).Str("product_id", productID).Msg("violación de invariante, operación abortada")
	case domain.IsRetryable(err):
		o.log.Warn().Err(err).Str("op", op).Str("product_id", productID).Msg("operación abortada por contención")
	default:
		o.log.Debug().Err(err).Str("op", op).Str("product_id", productID).Msg("operación rechazada")
	}
}

// invalidate descarta saldos cacheados tras el commit. La caché no es autoritativa, un fallo sólo se registra.
func (o *Orchestrator) invalidate(ctx context.Context, branchID, productID, warehouseID string) {
	if o.cache == nil {
		return
	}
	if err := o.cache.Invalidate(ctx, branchID, productID, warehouseID); err != nil {
		o.log.Warn().Err(err).Str("product_id", productID).Msg("no se pudo invalidar caché de saldos")
	}
}
