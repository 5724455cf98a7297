package inventory_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	app "github.com/jhoicas/dealer-stock-api/internal/application/inventory"
	"github.com/jhoicas/dealer-stock-api/internal/domain"
	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/jhoicas/dealer-stock-api/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Almacén en memoria con rollback por snapshot (emula la transacción de PostgreSQL)
// ──────────────────────────────────────────────────────────────────────────────

type state struct {
	batches    map[string]entity.Batch
	materials  map[string]entity.RawMaterial
	movements  []entity.StockMovement
	history    []entity.RecertificationHistory
	warranties map[string]entity.Warranty
	deliveries map[string]entity.Delivery
	receipts   map[string]entity.Receipt
}

func (s state) clone() state {
	c := state{
		batches:    make(map[string]entity.Batch, len(s.batches)),
		materials:  make(map[string]entity.RawMaterial, len(s.materials)),
		movements:  append([]entity.StockMovement(nil), s.movements...),
		history:    append([]entity.RecertificationHistory(nil), s.history...),
		warranties: make(map[string]entity.Warranty, len(s.warranties)),
		deliveries: make(map[string]entity.Delivery, len(s.deliveries)),
		receipts:   make(map[string]entity.Receipt, len(s.receipts)),
	}
	for k, v := range s.batches {
		c.batches[k] = v
	}
	for k, v := range s.materials {
		c.materials[k] = v
	}
	for k, v := range s.warranties {
		c.warranties[k] = v
	}
	for k, v := range s.deliveries {
		c.deliveries[k] = v
	}
	for k, v := range s.receipts {
		c.receipts[k] = v
	}
	return c
}

type store struct {
	mu      sync.Mutex
	st      state
	recipes map[string]entity.Recipe
	txRuns  int
	// steal simula otra transacción que consumió stock entre validación y commit
	steal map[string]decimal.Decimal
}

func newStore() *store {
	return &store{
		st: state{
			batches:    map[string]entity.Batch{},
			materials:  map[string]entity.RawMaterial{},
			warranties: map[string]entity.Warranty{},
			deliveries: map[string]entity.Delivery{},
			receipts:   map[string]entity.Receipt{},
		},
		recipes: map[string]entity.Recipe{},
		steal:   map[string]decimal.Decimal{},
	}
}

func (s *store) repos() app.TxRepos {
	return app.TxRepos{
		Batches:          &batchRepo{s},
		Materials:        &materialRepo{s},
		Movements:        &movementRepo{s},
		Recertifications: &recertRepo{s},
		Warranties:       &warrantyRepo{s},
		Deliveries:       &deliveryRepo{s},
		Receipts:         &receiptRepo{s},
	}
}

// Run implementa app.TxRunner.
func (s *store) Run(ctx context.Context, fn func(ctx context.Context, repos app.TxRepos) error) error {
	s.mu.Lock()
	s.txRuns++
	snapshot := s.st.clone()
	s.mu.Unlock()

	if err := fn(ctx, s.repos()); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *store) batch(id string) (entity.Batch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.st.batches[id]
	return b, ok
}

func (s *store) material(id string) entity.RawMaterial {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.materials[id]
}

func (s *store) movementCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.movements)
}

func (s *store) batchCount(scope entity.Scope) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.st.batches {
		if b.Scope == scope {
			n++
		}
	}
	return n
}

func (s *store) findByNumber(scope entity.Scope, code, number string) (entity.Batch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.st.batches {
		if b.Scope == scope && b.MaterialCode == code && b.BatchNumber == number {
			return b, true
		}
	}
	return entity.Batch{}, false
}

// ── BatchRepository ──────────────────────────────────────────────────────────

type batchRepo struct{ s *store }

var _ repository.BatchRepository = (*batchRepo)(nil)

func (r *batchRepo) Create(_ context.Context, b *entity.Batch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.batches[b.ID]; ok {
		return domain.ErrDuplicate
	}
	for _, x := range r.s.st.batches {
		if x.Scope == b.Scope && x.MaterialCode == b.MaterialCode && x.BatchNumber == b.BatchNumber {
			return domain.ErrDuplicate
		}
	}
	r.s.st.batches[b.ID] = *b
	return nil
}

func (r *batchRepo) GetByID(_ context.Context, id string) (*entity.Batch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.st.batches[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *batchRepo) GetForUpdate(ctx context.Context, id string) (*entity.Batch, error) {
	r.s.mu.Lock()
	if qty, ok := r.s.steal[id]; ok {
		b := r.s.st.batches[id]
		b.CurrentStock = b.CurrentStock.Sub(qty)
		r.s.st.batches[id] = b
		delete(r.s.steal, id)
	}
	r.s.mu.Unlock()
	return r.GetByID(ctx, id)
}

func (r *batchRepo) GetByNumber(_ context.Context, scope entity.Scope, code, number string) (*entity.Batch, error) {
	b, ok := r.s.findByNumber(scope, code, number)
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *batchRepo) ListCandidates(_ context.Context, scope entity.Scope, codes []string) ([]*entity.Batch, error) {
	want := map[string]bool{}
	for _, c := range codes {
		want[c] = true
	}
	return r.list(func(b entity.Batch) bool {
		return b.Scope == scope && want[b.MaterialCode] && b.CurrentStock.IsPositive()
	}), nil
}

func (r *batchRepo) List(_ context.Context, f repository.BatchFilter) ([]*entity.Batch, error) {
	return r.list(func(b entity.Batch) bool {
		if b.Scope != f.Scope {
			return false
		}
		if f.MaterialCode != "" && b.MaterialCode != f.MaterialCode {
			return false
		}
		return !f.OnlyInStock || b.CurrentStock.IsPositive()
	}), nil
}

func (r *batchRepo) list(keep func(entity.Batch) bool) []*entity.Batch {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.Batch, 0)
	for _, b := range r.s.st.batches {
		if keep(b) {
			b := b
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReceivedDate.Equal(out[j].ReceivedDate) {
			return out[i].ReceivedDate.Before(out[j].ReceivedDate)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *batchRepo) AdjustStock(_ context.Context, id string, delta decimal.Decimal, status string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.st.batches[id]
	if !ok || b.CurrentStock.Add(delta).IsNegative() {
		return false, nil
	}
	b.CurrentStock = b.CurrentStock.Add(delta)
	b.Status = status
	b.UpdatedAt = at
	r.s.st.batches[id] = b
	return true, nil
}

func (r *batchRepo) UpdateRecertification(_ context.Context, b *entity.Batch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.batches[b.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.st.batches[b.ID] = *b
	return nil
}

func (r *batchRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.st.batches, id)
	return nil
}

// ── RawMaterialRepository ────────────────────────────────────────────────────

type materialRepo struct{ s *store }

func (r *materialRepo) GetByCode(_ context.Context, code string) (*entity.RawMaterial, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.st.materials {
		if m.Code == code {
			m := m
			return &m, nil
		}
	}
	return nil, nil
}

func (r *materialRepo) GetByID(_ context.Context, id string) (*entity.RawMaterial, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.st.materials[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r *materialRepo) AdjustStock(_ context.Context, id string, delta decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.st.materials[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.CurrentStock = decimal.Max(decimal.Zero, m.CurrentStock.Add(delta))
	r.s.st.materials[id] = m
	return nil
}

// ── StockMovementRepository / RecertificationRepository ──────────────────────

type movementRepo struct{ s *store }

func (r *movementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.st.movements = append(r.s.st.movements, *m)
	return nil
}

func (r *movementRepo) ListByReference(_ context.Context, refType, refID string) ([]*entity.StockMovement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.StockMovement
	for _, m := range r.s.st.movements {
		if m.ReferenceType == refType && m.ReferenceID == refID {
			m := m
			out = append(out, &m)
		}
	}
	return out, nil
}

func (r *movementRepo) ListByBatch(_ context.Context, batchID string, _, _ int) ([]*entity.StockMovement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.StockMovement
	for _, m := range r.s.st.movements {
		if m.BatchID == batchID {
			m := m
			out = append(out, &m)
		}
	}
	return out, nil
}

type recertRepo struct{ s *store }

func (r *recertRepo) Create(_ context.Context, h *entity.RecertificationHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.st.history = append(r.s.st.history, *h)
	return nil
}

func (r *recertRepo) ListByBatch(_ context.Context, batchID string) ([]*entity.RecertificationHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.RecertificationHistory
	for i := len(r.s.st.history) - 1; i >= 0; i-- {
		if h := r.s.st.history[i]; h.BatchID == batchID {
			out = append(out, &h)
		}
	}
	return out, nil
}

// ── Documentos ───────────────────────────────────────────────────────────────

type warrantyRepo struct{ s *store }

func (r *warrantyRepo) Create(_ context.Context, w *entity.Warranty) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.st.warranties[w.ID] = *w
	return nil
}

func (r *warrantyRepo) GetByID(_ context.Context, id string) (*entity.Warranty, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.st.warranties[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *warrantyRepo) GetForUpdate(ctx context.Context, id string) (*entity.Warranty, error) {
	return r.GetByID(ctx, id)
}

func (r *warrantyRepo) Update(_ context.Context, w *entity.Warranty) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.st.warranties[w.ID] = *w
	return nil
}

func (r *warrantyRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.st.warranties, id)
	return nil
}

type deliveryRepo struct{ s *store }

func (r *deliveryRepo) Create(_ context.Context, d *entity.Delivery) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.st.deliveries[d.ID] = *d
	return nil
}

func (r *deliveryRepo) GetByID(_ context.Context, id string) (*entity.Delivery, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.st.deliveries[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (r *deliveryRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.st.deliveries, id)
	return nil
}

type receiptRepo struct{ s *store }

func (r *receiptRepo) Create(_ context.Context, rc *entity.Receipt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.st.receipts[rc.ID] = *rc
	return nil
}

func (r *receiptRepo) GetByID(_ context.Context, id string) (*entity.Receipt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rc, ok := r.s.st.receipts[id]
	if !ok {
		return nil, nil
	}
	return &rc, nil
}

func (r *receiptRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.st.receipts, id)
	return nil
}

// ── RecipeRepository ─────────────────────────────────────────────────────────

type recipeRepo struct{ s *store }

func (r *recipeRepo) GetByID(_ context.Context, id string) (*entity.Recipe, error) {
	rc, ok := r.s.recipes[id]
	if !ok {
		return nil, nil
	}
	return &rc, nil
}

func (r *recipeRepo) GetByProductID(_ context.Context, productID string) (*entity.Recipe, error) {
	for _, rc := range r.s.recipes {
		if rc.ProductID == productID {
			rc := rc
			return &rc, nil
		}
	}
	return nil, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Observador y publicador de prueba
// ──────────────────────────────────────────────────────────────────────────────

type countingObserver struct {
	mu                                      sync.Mutex
	committed, reversed, shortfalls, aborts int
	recertified                             int
}

func (o *countingObserver) Committed(string, int) { o.mu.Lock(); o.committed++; o.mu.Unlock() }
func (o *countingObserver) Reversed(string, int)  { o.mu.Lock(); o.reversed++; o.mu.Unlock() }
func (o *countingObserver) ShortfallDetected(_ string, n int) {
	o.mu.Lock()
	o.shortfalls += n
	o.mu.Unlock()
}
func (o *countingObserver) ConcurrencyAborted(string) { o.mu.Lock(); o.aborts++; o.mu.Unlock() }
func (o *countingObserver) Recertified(string)        { o.mu.Lock(); o.recertified++; o.mu.Unlock() }

type recordingPublisher struct {
	mu     sync.Mutex
	events []app.StockEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev app.StockEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
