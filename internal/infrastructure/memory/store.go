// Package memory implementa el libro de existencias en proceso, con las mismas garantías que el
// adaptador PostgreSQL: bloqueo por agregado (producto, bodega) con timeout, transacciones
// todo-o-nada y lectura sólo de filas confirmadas. Se usa en desarrollo (STORE_DRIVER=memory) y tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/kardex/internal/application/inventory"
	"github.com/jhoicas/kardex/internal/domain"
	"github.com/jhoicas/kardex/internal/domain/entity"
	"github.com/jhoicas/kardex/internal/domain/repository"
)

var _ inventory.TxRunner = (*Store)(nil)

type lockKey struct {
	productID   string
	warehouseID string
}

// Store libro en memoria.
type Store struct {
	mu         sync.RWMutex
	products   map[string]*entity.Product
	warehouses map[string]*entity.Warehouse
	movements  []*entity.Movement // confirmados
	nextID     int64
	versions   map[lockKey]int64

	lockMu      sync.Mutex
	locks       map[lockKey]chan struct{}
	lockTimeout time.Duration

	now func() time.Time
}

// NewStore crea un libro vacío; lockTimeout es la espera máxima por el bloqueo de un agregado.
func NewStore(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &Store{
		products:    make(map[string]*entity.Product),
		warehouses:  make(map[string]*entity.Warehouse),
		versions:    make(map[lockKey]int64),
		locks:       make(map[lockKey]chan struct{}),
		lockTimeout: lockTimeout,
		now:         time.Now,
	}
}

// AddProduct registra un producto del maestro.
func (s *Store) AddProduct(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = &p
}

// AddWarehouse registra una bodega del maestro.
func (s *Store) AddWarehouse(w entity.Warehouse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warehouses[w.ID] = &w
}

// Products adaptador del maestro de productos.
func (s *Store) Products() repository.ProductRepository { return productRepo{s} }

// Warehouses adaptador del maestro de bodegas.
func (s *Store) Warehouses() repository.WarehouseRepository { return warehouseRepo{s} }

// Ledger libro fuera de transacción: cada Append se confirma de inmediato.
func (s *Store) Ledger() repository.MovementRepository { return &ledgerRepo{s: s} }

// Queries consultas agregadas sobre filas confirmadas.
func (s *Store) Queries() repository.StockQueryRepository { return &queryRepo{rows: s.committed} }

// Version versión del agregado (producto, bodega); aumenta con cada commit que lo toca.
func (s *Store) Version(productID, warehouseID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions[lockKey{productID, warehouseID}]
}

// Run ejecuta fn en una transacción. Las filas agregadas sólo se hacen visibles si fn termina
// sin error; los bloqueos se liberan siempre al salir.
func (s *Store) Run(ctx context.Context, fn func(
	ledger repository.MovementRepository,
	stock repository.StockQueryRepository,
	locks repository.StockLockRepository,
) error) error {
	t := &tx{s: s, held: make(map[lockKey]bool)}
	defer t.release()

	ledger := &ledgerRepo{s: s, tx: t}
	queries := &queryRepo{rows: t.visible}
	if err := fn(ledger, queries, t); err != nil {
		return err
	}
	return t.commit()
}

func (s *Store) committed() []*entity.Movement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.Movement, len(s.movements))
	copy(out, s.movements)
	return out
}

func (s *Store) lockChan(k lockKey) chan struct{} {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	ch, ok := s.locks[k]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[k] = ch
	}
	return ch
}

// prepare valida invariantes e integridad referencial y asigna identidad.
func (s *Store) prepare(m *entity.Movement) (*entity.Movement, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[m.ProductID]; !ok {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, m.ProductID)
	}
	wh, ok := s.warehouses[m.WarehouseID]
	if !ok {
		return nil, fmt.Errorf("%w: bodega %s", domain.ErrNotFound, m.WarehouseID)
	}
	if wh.BranchID != m.BranchID {
		return nil, fmt.Errorf("%w: la bodega %s no pertenece a la sucursal %s", domain.ErrInvalidMovement, wh.ID, m.BranchID)
	}
	s.nextID++
	cp := *m
	cp.ID = s.nextID
	cp.CreatedAt = s.now().UTC()
	return &cp, nil
}

// tx estado de una transacción en curso.
type tx struct {
	s      *Store
	staged []*entity.Movement
	held   map[lockKey]bool
	order  []lockKey
	bumps  []lockKey
}

var _ repository.StockLockRepository = (*tx)(nil)

// Lock toma los bloqueos en el orden recibido; un bloqueo ya tomado por esta tx no se repite.
func (t *tx) Lock(ctx context.Context, keys []entity.StockKey) error {
	for _, k := range keys {
		lk := lockKey{k.ProductID, k.WarehouseID}
		if t.held[lk] {
			continue
		}
		ch := t.s.lockChan(lk)
		timer := time.NewTimer(t.s.lockTimeout)
		select {
		case ch <- struct{}{}:
			timer.Stop()
		case <-timer.C:
			return fmt.Errorf("%w: producto %s en bodega %s", domain.ErrLockTimeout, k.ProductID, k.WarehouseID)
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
		t.held[lk] = true
		t.order = append(t.order, lk)
	}
	return nil
}

// Bump registra el incremento de versión, aplicado en el commit.
func (t *tx) Bump(_ context.Context, key entity.StockKey) error {
	lk := lockKey{key.ProductID, key.WarehouseID}
	if !t.held[lk] {
		return fmt.Errorf("%w: versión de agregado sin bloqueo", domain.ErrInvariantViolation)
	}
	t.bumps = append(t.bumps, lk)
	return nil
}

func (t *tx) visible() []*entity.Movement {
	return append(t.s.committed(), t.staged...)
}

func (t *tx) commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.movements = append(t.s.movements, t.staged...)
	for _, k := range t.bumps {
		t.s.versions[k]++
	}
	return nil
}

func (t *tx) release() {
	for i := len(t.order) - 1; i >= 0; i-- {
		<-t.s.lockChan(t.order[i])
	}
	t.order = nil
}

// ledgerRepo adaptador del libro; con tx != nil agrega a la transacción.
type ledgerRepo struct {
	s  *Store
	tx *tx
}

var _ repository.MovementRepository = (*ledgerRepo)(nil)

func (r *ledgerRepo) Append(_ context.Context, movement *entity.Movement) (*entity.Movement, error) {
	m, err := r.s.prepare(movement)
	if err != nil {
		return nil, err
	}
	if r.tx != nil {
		r.tx.staged = append(r.tx.staged, m)
	} else {
		r.s.mu.Lock()
		r.s.movements = append(r.s.movements, m)
		r.s.mu.Unlock()
	}
	out := *m
	return &out, nil
}

func (r *ledgerRepo) rows() []*entity.Movement {
	if r.tx != nil {
		return r.tx.visible()
	}
	return r.s.committed()
}

func (r *ledgerRepo) GetByID(_ context.Context, branchID string, id int64) (*entity.Movement, error) {
	for _, m := range r.rows() {
		if m.ID == id && m.BranchID == branchID {
			out := *m
			return &out, nil
		}
	}
	return nil, nil
}

func (r *ledgerRepo) ListByProduct(_ context.Context, branchID, productID string, filter entity.MovementFilter) ([]*entity.Movement, error) {
	var list []*entity.Movement
	for _, m := range r.rows() {
		if m.BranchID != branchID || m.ProductID != productID {
			continue
		}
		if filter.WarehouseID != "" && m.WarehouseID != filter.WarehouseID {
			continue
		}
		out := *m
		list = append(list, &out)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	if filter.Offset >= len(list) {
		return nil, nil
	}
	list = list[filter.Offset:]
	if filter.Limit > 0 && len(list) > filter.Limit {
		list = list[:filter.Limit]
	}
	return list, nil
}

func (r *ledgerRepo) ListByTransfer(_ context.Context, branchID, transferID string) ([]*entity.Movement, error) {
	var list []*entity.Movement
	for _, m := range r.rows() {
		if m.TransferID == transferID && m.BranchID == branchID {
			out := *m
			list = append(list, &out)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (r *ledgerRepo) Scan(_ context.Context, fn func(*entity.Movement) error) error {
	rows := r.rows()
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	for _, m := range rows {
		out := *m
		if err := fn(&out); err != nil {
			return err
		}
	}
	return nil
}

// queryRepo agrega sobre el conjunto de filas visible.
type queryRepo struct {
	rows func() []*entity.Movement
}

var _ repository.StockQueryRepository = (*queryRepo)(nil)

func (r *queryRepo) match(branchID, productID, warehouseID string, fn func(m *entity.Movement)) {
	for _, m := range r.rows() {
		if m.BranchID == branchID && m.ProductID == productID && (warehouseID == "" || m.WarehouseID == warehouseID) {
			fn(m)
		}
	}
}

func (r *queryRepo) SumQuantity(_ context.Context, branchID, productID, warehouseID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	r.match(branchID, productID, warehouseID, func(m *entity.Movement) { sum = sum.Add(m.Quantity) })
	return sum, nil
}

func (r *queryRepo) SumByWarehouse(_ context.Context, branchID, productID string) ([]entity.WarehouseBalance, error) {
	totals := make(map[string]decimal.Decimal)
	r.match(branchID, productID, "", func(m *entity.Movement) {
		totals[m.WarehouseID] = totals[m.WarehouseID].Add(m.Quantity)
	})
	out := make([]entity.WarehouseBalance, 0, len(totals))
	for w, q := range totals {
		out = append(out, entity.WarehouseBalance{WarehouseID: w, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WarehouseID < out[j].WarehouseID })
	return out, nil
}

func (r *queryRepo) SumValue(_ context.Context, branchID, productID, warehouseID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	r.match(branchID, productID, warehouseID, func(m *entity.Movement) { sum = sum.Add(m.Value()) })
	return sum, nil
}

type productRepo struct{ s *Store }

func (r productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

type warehouseRepo struct{ s *Store }

func (r warehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.warehouses[id]
	if !ok {
		return nil, nil
	}
	out := *w
	return &out, nil
}
