package inventory_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/jhoicas/dealer-stock-api/internal/application/inventory"
	"github.com/jhoicas/dealer-stock-api/internal/domain"
	"github.com/jhoicas/dealer-stock-api/internal/domain/entity"
	"github.com/jhoicas/dealer-stock-api/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixture
// ──────────────────────────────────────────────────────────────────────────────

var (
	t0     = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	dealer = entity.DealerScope("dealer-1")
	hq     = entity.WarehouseScope("hq")
)

type fixture struct {
	s   *store
	obs *countingObserver
	pub *recordingPublisher

	alloc     *app.AllocationUseCase
	commit    *app.CommitUseCase
	reversal  *app.ReversalUseCase
	lifecycle *app.LifecycleUseCase
	warranty  *app.WarrantyUseCase
	receipt   *app.ReceiptUseCase
	delivery  *app.DeliveryUseCase
}

func newFixture(parser app.ReceiptSheetParser) *fixture {
	s := newStore()
	f := &fixture{s: s, obs: &countingObserver{}, pub: &recordingPublisher{}}
	deps := app.Deps{
		Tx:       s,
		Observer: f.obs,
		Events:   f.pub,
		Now:      func() time.Time { return t0 },
	}
	repos := s.repos()
	f.alloc = app.NewAllocationUseCase(&recipeRepo{s}, repos.Batches, deps)
	f.commit = app.NewCommitUseCase(deps)
	f.reversal = app.NewReversalUseCase(deps)
	f.lifecycle = app.NewLifecycleUseCase(repos.Batches, repos.Recertifications, 0, deps)
	f.warranty = app.NewWarrantyUseCase(repos.Warranties, f.alloc, f.commit, f.reversal, deps)
	f.receipt = app.NewReceiptUseCase(repos.Receipts, f.reversal, parser, hq.OwnerID, deps)
	f.delivery = app.NewDeliveryUseCase(repos.Deliveries, f.reversal, hq.OwnerID, deps)
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "esperado %s, obtenido %s %v", want, got.String(), msgAndArgs)
}

func (f *fixture) addMaterial(code, stock string) entity.RawMaterial {
	m := entity.RawMaterial{ID: "mat-" + code, Code: code, Name: "Material " + code, Type: "CHEMICAL", Unit: "kg", CurrentStock: dec(stock)}
	f.s.st.materials[m.ID] = m
	return m
}

func (f *fixture) addBatch(scope entity.Scope, code, number, stock string, received time.Time, expiry *time.Time) entity.Batch {
	b := entity.Batch{
		ID:           scope.Kind + "-" + number,
		MaterialID:   "mat-" + code,
		MaterialCode: code,
		Scope:        scope,
		BatchNumber:  number,
		CurrentStock: dec(stock),
		ReceivedDate: received,
		ExpiryDate:   expiry,
		Status:       entity.BatchStatusAvailable,
		CreatedAt:    received,
		UpdatedAt:    received,
	}
	f.s.st.batches[b.ID] = b
	return b
}

func (f *fixture) addRecipe(productID string, items map[string]string) {
	r := entity.Recipe{ID: "recipe-" + productID, ProductID: productID, CalculationUnit: entity.CalculationUnitPerArea}
	for code, perUnit := range items {
		r.Items = append(r.Items, entity.RecipeItem{
			MaterialID: "mat-" + code, MaterialCode: code, MaterialName: "Material " + code,
			Unit: "kg", QuantityPerUnit: dec(perUnit),
		})
	}
	f.s.recipes[r.ID] = r
}

func (f *fixture) stock(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	b, ok := f.s.batch(id)
	require.True(t, ok, "el lote %s debe existir", id)
	return b.CurrentStock
}

func jan(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

// dealerFixture: material A con D1(5, 1 ene) y D2(10, 2 ene); receta p1 = 1.2 A por m².
func dealerFixture() *fixture {
	f := newFixture(nil)
	f.addMaterial("A", "0")
	f.addBatch(dealer, "A", "D1", "5", jan(1), nil)
	f.addBatch(dealer, "A", "D2", "10", jan(2), nil)
	f.addRecipe("p1", map[string]string{"A": "1.2"})
	return f
}

var ref = app.Reference{Type: entity.ReferenceWarranty, ID: "w-1", UserID: "u-1"}

// ──────────────────────────────────────────────────────────────────────────────
// Plan + Commit + Reverse
// ──────────────────────────────────────────────────────────────────────────────

func TestCommitYReverse_RestauraStockPrevio(t *testing.T) {
	ctx := context.Background()
	f := dealerFixture()

	plan, err := f.alloc.ExpandAndAllocate(ctx, app.PlanInput{ProductID: "p1", Area: dec("10"), Scope: dealer})
	require.NoError(t, err)

	rec, err := f.commit.Commit(ctx, plan, ref)
	require.NoError(t, err)

	d1, _ := f.s.batch("dealer-D1")
	assertDec(t, "0", d1.CurrentStock)
	assert.Equal(t, entity.BatchStatusOutOfStock, d1.Status, "lote en cero pasa a OUT_OF_STOCK")
	assertDec(t, "3", f.stock(t, "dealer-D2"))

	usage := rec.Materials["A"]
	assertDec(t, "12", usage.TotalQuantity)
	require.Len(t, usage.Batches, 2)
	assert.Equal(t, "D1", usage.Batches[0].BatchNumber)
	assertDec(t, "5", usage.Batches[0].QuantityUsed)
	assertDec(t, "5", usage.Batches[0].BatchStock)
	assertDec(t, "7", usage.Batches[1].QuantityUsed)
	assertDec(t, "10", usage.Batches[1].BatchStock)

	// el registro serializado debe sobrevivir ida y vuelta para poder revertir
	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	var decoded entity.AllocationRecord
	require.NoError(t, json.Unmarshal(raw, &decoded))
	again, err := json.Marshal(decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(again))

	require.NoError(t, f.reversal.Reverse(ctx, decoded, ref))

	d1, _ = f.s.batch("dealer-D1")
	assertDec(t, "5", d1.CurrentStock)
	assert.Equal(t, entity.BatchStatusAvailable, d1.Status, "vuelve a AVAILABLE al superar cero")
	assertDec(t, "10", f.stock(t, "dealer-D2"))

	assert.Equal(t, 4, f.s.movementCount(), "2 descuentos + 2 restauraciones")
	assert.Equal(t, []string{app.EventCommit, app.EventReversal}, f.pub.types())
	assert.Equal(t, 1, f.obs.committed)
	assert.Equal(t, 1, f.obs.reversed)
}

func TestCommit_AbortaSiElStockCambio(t *testing.T) {
	ctx := context.Background()
	f := dealerFixture()

	plan, err := f.alloc.ExpandAndAllocate(ctx, app.PlanInput{ProductID: "p1", Area: dec("10"), Scope: dealer})
	require.NoError(t, err)

	// otra transacción consume 5 de D2 entre la validación y el commit
	f.s.steal["dealer-D2"] = dec("5")

	_, err = f.commit.Commit(ctx, plan, ref)
	require.Error(t, err)

	var abort *domain.ConcurrencyAbortError
	require.True(t, errors.As(err, &abort))
	assert.Equal(t, "D2", abort.BatchNumber)
	assertDec(t, "7", abort.Planned)
	assertDec(t, "5", abort.Current)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	assert.True(t, errors.Is(err, domain.ErrConcurrentUpdate))

	assertDec(t, "5", f.stock(t, "dealer-D1"), "el descuento de D1 se revierte con la transacción")
	assert.Zero(t, f.s.movementCount())
	assert.Equal(t, 1, f.obs.aborts)
	assert.Empty(t, f.pub.types())
}

func TestCommit_LoteEliminadoAntesDelCommit(t *testing.T) {
	ctx := context.Background()
	f := dealerFixture()

	plan, err := f.alloc.ExpandAndAllocate(ctx, app.PlanInput{ProductID: "p1", Area: dec("10"), Scope: dealer})
	require.NoError(t, err)
	delete(f.s.st.batches, "dealer-D2")

	_, err = f.commit.Commit(ctx, plan, ref)
	var missing *domain.MissingBatchError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "dealer-D2", missing.BatchID)
	assert.True(t, errors.Is(err, domain.ErrBatchNotFound))
	assertDec(t, "5", f.stock(t, "dealer-D1"))
}

func TestCommit_PlanVacioNoTocaLotes(t *testing.T) {
	ctx := context.Background()
	f := dealerFixture()

	plan, err := f.alloc.ExpandAndAllocate(ctx, app.PlanInput{ProductID: "p1", Area: decimal.Zero, Scope: dealer})
	require.NoError(t, err)
	assert.True(t, plan.IsEmpty())

	rec, err := f.commit.Commit(ctx, plan, ref)
	require.NoError(t, err)
	assert.True(t, rec.IsEmpty())
	assert.Zero(t, f.s.movementCount())
	assert.Empty(t, f.pub.types(), "sin movimientos no se publica evento")
}

func TestCommit_BodegaAjustaAgregadoDeMateria(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	f.addMaterial("A", "15")
	f.addBatch(hq, "A", "W1", "5", jan(1), nil)
	f.addBatch(hq, "A", "W2", "10", jan(2), nil)
	f.addRecipe("p1", map[string]string{"A": "1.2"})

	plan, err := f.alloc.ExpandAndAllocate(ctx, app.PlanInput{ProductID: "p1", Area: dec("10"), Scope: hq})
	require.NoError(t, err)
	rec, err := f.commit.Commit(ctx, plan, ref)
	require.NoError(t, err)
	assertDec(t, "3", f.s.material("mat-A").CurrentStock)

	require.NoError(t, f.reversal.Reverse(ctx, rec, ref))
	assertDec(t, "15", f.s.material("mat-A").CurrentStock)
}

func TestCommit_BodegaSinIDDeMateriaAjustaIgualEnAmbosSentidos(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	f.addMaterial("A", "15")
	f.addBatch(hq, "A", "W1", "15", jan(1), nil)
	// receta con ítem sin ID de materia; se resuelve por código
	f.s.recipes["recipe-p1"] = entity.Recipe{
		ID: "recipe-p1", ProductID: "p1", CalculationUnit: entity.CalculationUnitPerArea,
		Items: []entity.RecipeItem{{MaterialCode: "A", MaterialName: "Material A", Unit: "kg", QuantityPerUnit: dec("1.2")}},
	}

	plan, err := f.alloc.ExpandAndAllocate(ctx, app.PlanInput{ProductID: "p1", Area: dec("10"), Scope: hq})
	require.NoError(t, err)
	rec, err := f.commit.Commit(ctx, plan, ref)
	require.NoError(t, err)
	assertDec(t, "3", f.s.material("mat-A").CurrentStock)

	require.NoError(t, f.reversal.Reverse(ctx, rec, ref))
	assertDec(t, "15", f.s.material("mat-A").CurrentStock)
	assertDec(t, "15", f.stock(t, "warehouse-W1"))
}

func TestCommit_AbortaSiElLoteVencioAntesDelBloqueo(t *testing.T) {
	ctx := context.Background()
	f := dealerFixture()

	plan, err := f.alloc.ExpandAndAllocate(ctx, app.PlanInput{ProductID: "p1", Area: dec("10"), Scope: dealer})
	require.NoError(t, err)

	// D2 vence entre la validación y el commit
	expired := t0.Add(-time.Hour)
	d2 := f.s.st.batches["dealer-D2"]
	d2.ExpiryDate = &expired
	f.s.st.batches["dealer-D2"] = d2

	_, err = f.commit.Commit(ctx, plan, ref)
	var abort *domain.ConcurrencyAbortError
	require.True(t, errors.As(err, &abort))
	assert.Equal(t, "D2", abort.BatchNumber)
	assert.True(t, errors.Is(err, domain.ErrConcurrentUpdate))

	assertDec(t, "5", f.stock(t, "dealer-D1"))
	assertDec(t, "10", f.stock(t, "dealer-D2"))
	assert.Zero(t, f.s.movementCount())
	assert.Equal(t, 1, f.obs.aborts)
}

func TestCommitYReverse_CantidadFraccionariaCuadraConLaEscala(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	f.addMaterial("A", "0")
	f.addBatch(dealer, "A", "D1", "0.1852", jan(1), nil)
	f.addRecipe("p1", map[string]string{"A": "0.123456"})

	plan, err := f.alloc.ExpandAndAllocate(ctx, app.PlanInput{ProductID: "p1", Area: dec("1.5"), Scope: dealer})
	require.NoError(t, err)
	rec, err := f.commit.Commit(ctx, plan, ref)
	require.NoError(t, err)
	assertDec(t, "0.1852", rec.Materials["A"].TotalQuantity)

	d1, _ := f.s.batch("dealer-D1")
	assertDec(t, "0", d1.CurrentStock)
	assert.Equal(t, entity.BatchStatusOutOfStock, d1.Status)

	require.NoError(t, f.reversal.Reverse(ctx, rec, ref))
	d1, _ = f.s.batch("dealer-D1")
	assertDec(t, "0.1852", d1.CurrentStock)
	assert.Equal(t, entity.BatchStatusAvailable, d1.Status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Validación
// ──────────────────────────────────────────────────────────────────────────────

func TestExpandAndAllocate_ListaCompletaDeFaltantes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	f.addBatch(dealer, "A", "A1", "3", jan(1), nil)
	f.addBatch(dealer, "A", "A2", "4", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), nil)
	f.addBatch(dealer, "B", "B1", "1", jan(1), nil)
	f.addRecipe("p2", map[string]string{"A": "1", "B": "1"})

	_, err := f.alloc.ExpandAndAllocate(ctx, app.PlanInput{ProductID: "p2", Area: dec("8"), Scope: dealer})

	var shortfall *domain.ShortfallError
	require.True(t, errors.As(err, &shortfall))
	require.Len(t, shortfall.Shortages, 2)
	byCode := map[string]domain.Shortage{}
	for _, s := range shortfall.Shortages {
		byCode[s.MaterialCode] = s
	}
	assertDec(t, "1", byCode["A"].Shortfall)
	assertDec(t, "7", byCode["B"].Shortfall)
	assert.Equal(t, 2, f.obs.shortfalls)
	assert.Zero(t, f.s.txRuns, "la validación no abre transacciones")
}

func TestExpandAndAllocate_IgnoraLotesVencidosYOtrosAmbitos(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	expired := t0.AddDate(0, 0, -1)
	f.addBatch(dealer, "A", "OLD", "100", jan(1), &expired)
	f.addBatch(dealer, "A", "NEW", "5", jan(2), nil)
	f.addBatch(hq, "A", "W1", "100", jan(1), nil)
	f.addBatch(entity.DealerScope("dealer-2"), "A", "X1", "100", jan(1), nil)
	f.addRecipe("p1", map[string]string{"A": "1"})

	_, err := f.alloc.ExpandAndAllocate(ctx, app.PlanInput{ProductID: "p1", Area: dec("8"), Scope: dealer})

	var shortfall *domain.ShortfallError
	require.True(t, errors.As(err, &shortfall))
	assertDec(t, "5", shortfall.Shortages[0].TotalAvailable)
}

func TestExpandAndAllocate_EntradasInvalidas(t *testing.T) {
	ctx := context.Background()
	f := dealerFixture()

	_, err := f.alloc.ExpandAndAllocate(ctx, app.PlanInput{ProductID: "no-existe", Area: dec("1"), Scope: dealer})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.alloc.ExpandAndAllocate(ctx, app.PlanInput{Area: dec("1"), Scope: dealer})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.alloc.ExpandAndAllocate(ctx, app.PlanInput{ProductID: "p1", Area: dec("1"), Scope: entity.Scope{Kind: "otro"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	plan, err := f.alloc.ExpandAndAllocate(ctx, app.PlanInput{RecipeID: "recipe-p1", Area: dec("1"), Scope: dealer})
	require.NoError(t, err)
	assert.False(t, plan.IsEmpty())
}

// ──────────────────────────────────────────────────────────────────────────────
// Reversión
// ──────────────────────────────────────────────────────────────────────────────

func TestReverse_RecreaLoteDeDistribuidorEliminado(t *testing.T) {
	ctx := context.Background()
	f := dealerFixture()
	expiry := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b := f.s.st.batches["dealer-D1"]
	b.ExpiryDate = &expiry
	f.s.st.batches["dealer-D1"] = b

	plan, err := f.alloc.ExpandAndAllocate(ctx, app.PlanInput{ProductID: "p1", Area: dec("2.5"), Scope: dealer})
	require.NoError(t, err)
	rec, err := f.commit.Commit(ctx, plan, ref)
	require.NoError(t, err)
	assertDec(t, "2", f.stock(t, "dealer-D1"))

	delete(f.s.st.batches, "dealer-D1")

	require.NoError(t, f.reversal.Reverse(ctx, rec, ref))
	recreated, ok := f.s.batch("dealer-D1")
	require.True(t, ok, "el lote se recrea en vez de fallar")
	assertDec(t, "3", recreated.CurrentStock)
	assert.Equal(t, "D1", recreated.BatchNumber)
	assert.Equal(t, jan(1), recreated.ReceivedDate)
	require.NotNil(t, recreated.ExpiryDate)
	assert.Equal(t, expiry, *recreated.ExpiryDate)
	assert.Equal(t, dealer, recreated.Scope)
}

func TestReverseMovements_RetiroEliminaLoteDeDistribuidorPeroNoDeBodega(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	f.addMaterial("A", "4")
	f.addBatch(dealer, "A", "D1", "4", jan(1), nil)
	f.addBatch(hq, "A", "W1", "4", jan(1), nil)

	withdraw := []app.Movement{{BatchID: "dealer-D1", BatchNumber: "D1", MaterialCode: "A", Quantity: dec("-4")}}
	require.NoError(t, f.reversal.ReverseMovements(ctx, dealer, withdraw, ref))
	_, ok := f.s.batch("dealer-D1")
	assert.False(t, ok, "lote de distribuidor vaciado por reversión se elimina")

	withdraw = []app.Movement{{BatchID: "warehouse-W1", BatchNumber: "W1", MaterialCode: "A", MaterialID: "mat-A", Quantity: dec("-4")}}
	require.NoError(t, f.reversal.ReverseMovements(ctx, hq, withdraw, ref))
	w1, ok := f.s.batch("warehouse-W1")
	require.True(t, ok, "lote de bodega persiste en cero")
	assertDec(t, "0", w1.CurrentStock)
	assert.Equal(t, entity.BatchStatusOutOfStock, w1.Status)
	assertDec(t, "0", f.s.material("mat-A").CurrentStock)
}

func TestReverseMovements_RetiroMayorAlStockAborta(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	f.addBatch(dealer, "A", "D1", "2", jan(1), nil)
	f.addBatch(dealer, "A", "D2", "9", jan(2), nil)

	list := []app.Movement{
		{BatchID: "dealer-D2", Quantity: dec("-1")},
		{BatchID: "dealer-D1", Quantity: dec("-3")},
	}
	err := f.reversal.ReverseMovements(ctx, dealer, list, ref)
	var abort *domain.ConcurrencyAbortError
	require.True(t, errors.As(err, &abort))
	assertDec(t, "9", f.stock(t, "dealer-D2"), "sin efecto parcial")

	err = f.reversal.ReverseMovements(ctx, dealer, []app.Movement{{BatchID: "nada", Quantity: dec("-1")}}, ref)
	assert.ErrorIs(t, err, domain.ErrBatchNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Garantías
// ──────────────────────────────────────────────────────────────────────────────

func TestWarranty_EmitirEditarEliminar(t *testing.T) {
	ctx := context.Background()
	f := dealerFixture()

	w, err := f.warranty.Issue(ctx, app.IssueWarrantyInput{DealerID: "dealer-1", ProductID: "p1", Area: dec("10"), UserID: "u-1", CustomerReference: "CLI-9"})
	require.NoError(t, err)
	assertDec(t, "0", f.stock(t, "dealer-D1"))
	assertDec(t, "3", f.stock(t, "dealer-D2"))
	assertDec(t, "12", w.MaterialUsage.Materials["A"].TotalQuantity)
	assert.Equal(t, dealer, w.MaterialUsage.Scope)

	w, err = f.warranty.UpdateArea(ctx, w.ID, dec("5"), "u-1")
	require.NoError(t, err)
	assertDec(t, "0", f.stock(t, "dealer-D1"))
	assertDec(t, "9", f.stock(t, "dealer-D2"))
	assertDec(t, "6", w.MaterialUsage.Materials["A"].TotalQuantity)
	assertDec(t, "5", w.Area)

	// el nuevo plan no alcanza: nada cambia
	_, err = f.warranty.UpdateArea(ctx, w.ID, dec("100"), "u-1")
	var shortfall *domain.ShortfallError
	require.True(t, errors.As(err, &shortfall))
	assertDec(t, "9", f.stock(t, "dealer-D2"))
	stored, err := f.warranty.Get(ctx, w.ID)
	require.NoError(t, err)
	assertDec(t, "5", stored.Area)

	require.NoError(t, f.warranty.Delete(ctx, w.ID, "u-1"))
	assertDec(t, "5", f.stock(t, "dealer-D1"))
	assertDec(t, "10", f.stock(t, "dealer-D2"))
	_, err = f.warranty.Get(ctx, w.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWarranty_IssueSinStockNoPersiste(t *testing.T) {
	ctx := context.Background()
	f := dealerFixture()

	_, err := f.warranty.Issue(ctx, app.IssueWarrantyInput{DealerID: "dealer-1", ProductID: "p1", Area: dec("50"), UserID: "u-1"})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Empty(t, f.s.st.warranties)
	assertDec(t, "5", f.stock(t, "dealer-D1"))

	_, err = f.warranty.Issue(ctx, app.IssueWarrantyInput{DealerID: "dealer-1", ProductID: "p1", Area: dec("-1"), UserID: "u-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Envíos y recepciones
// ──────────────────────────────────────────────────────────────────────────────

func TestDelivery_CrearYEliminar(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	expiry := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	f.addMaterial("A", "10")
	f.addBatch(hq, "A", "W1", "10", jan(5), &expiry)
	dealer2 := entity.DealerScope("dealer-2")

	d, err := f.delivery.Create(ctx, app.CreateDeliveryInput{
		DealerID: "dealer-2", UserID: "u-1",
		Items: []app.DeliveryItemInput{{WarehouseBatchID: "warehouse-W1", Quantity: dec("4")}},
	})
	require.NoError(t, err)
	require.Len(t, d.Items, 1)
	assertDec(t, "6", f.stock(t, "warehouse-W1"))
	assertDec(t, "6", f.s.material("mat-A").CurrentStock)

	db, ok := f.s.findByNumber(dealer2, "A", "W1")
	require.True(t, ok, "el lote del distribuidor se crea en la primera llegada")
	assertDec(t, "4", db.CurrentStock)
	assert.Equal(t, jan(5), db.ReceivedDate)
	require.NotNil(t, db.ExpiryDate)
	assert.Equal(t, expiry, *db.ExpiryDate)

	require.NoError(t, f.delivery.Delete(ctx, d.ID, "u-1"))
	assertDec(t, "10", f.stock(t, "warehouse-W1"))
	assertDec(t, "10", f.s.material("mat-A").CurrentStock)
	_, ok = f.s.findByNumber(dealer2, "A", "W1")
	assert.False(t, ok, "el lote del distribuidor vaciado se elimina")
	assert.Zero(t, f.s.batchCount(dealer2))
}

func TestDelivery_SinStockReportaFaltante(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	f.addMaterial("A", "10")
	f.addBatch(hq, "A", "W1", "10", jan(5), nil)

	_, err := f.delivery.Create(ctx, app.CreateDeliveryInput{
		DealerID: "dealer-2", UserID: "u-1",
		Items: []app.DeliveryItemInput{
			{WarehouseBatchID: "warehouse-W1", Quantity: dec("6")},
			{WarehouseBatchID: "warehouse-W1", Quantity: dec("6")},
		},
	})
	var shortfall *domain.ShortfallError
	require.True(t, errors.As(err, &shortfall))
	assertDec(t, "2", shortfall.Shortages[0].Shortfall)
	assertDec(t, "10", f.stock(t, "warehouse-W1"))
	assert.Zero(t, f.s.batchCount(entity.DealerScope("dealer-2")))
}

func TestDelivery_EliminarAbortaSiElDistribuidorYaConsumio(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	f.addMaterial("A", "10")
	f.addBatch(hq, "A", "W1", "10", jan(5), nil)

	d, err := f.delivery.Create(ctx, app.CreateDeliveryInput{
		DealerID: "dealer-2", UserID: "u-1",
		Items: []app.DeliveryItemInput{{WarehouseBatchID: "warehouse-W1", Quantity: dec("4")}},
	})
	require.NoError(t, err)

	db, _ := f.s.findByNumber(entity.DealerScope("dealer-2"), "A", "W1")
	ok, err := f.s.repos().Batches.AdjustStock(ctx, db.ID, dec("-3"), entity.BatchStatusAvailable, t0)
	require.NoError(t, err)
	require.True(t, ok)

	err = f.delivery.Delete(ctx, d.ID, "u-1")
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assertDec(t, "6", f.stock(t, "warehouse-W1"), "la bodega no recibe nada si la tx aborta")
}

func TestReceipt_CrearYEliminar(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	f.addMaterial("A", "0")
	expiry := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	r1, err := f.receipt.Create(ctx, app.CreateReceiptInput{UserID: "u-1", Items: []app.ReceiptItemInput{
		{MaterialCode: "A", BatchNumber: "L-100", Quantity: dec("8"), ReceivedDate: jan(10), ExpiryDate: &expiry},
	}})
	require.NoError(t, err)
	require.Len(t, r1.Items, 1)
	batchID := r1.Items[0].BatchID
	assertDec(t, "8", f.stock(t, batchID))
	assertDec(t, "8", f.s.material("mat-A").CurrentStock)

	r2, err := f.receipt.Create(ctx, app.CreateReceiptInput{UserID: "u-1", Items: []app.ReceiptItemInput{
		{MaterialCode: "A", BatchNumber: "L-100", Quantity: dec("2")},
	}})
	require.NoError(t, err)
	assert.Equal(t, batchID, r2.Items[0].BatchID, "mismo número de lote en bodega = mismo lote")
	assertDec(t, "10", f.stock(t, batchID))

	require.NoError(t, f.receipt.Delete(ctx, r1.ID, "u-1"))
	assertDec(t, "2", f.stock(t, batchID))

	require.NoError(t, f.receipt.Delete(ctx, r2.ID, "u-1"))
	b, ok := f.s.batch(batchID)
	require.True(t, ok, "el lote de bodega no se elimina")
	assertDec(t, "0", b.CurrentStock)
	assert.Equal(t, entity.BatchStatusOutOfStock, b.Status)
	assertDec(t, "0", f.s.material("mat-A").CurrentStock)

	assert.ErrorIs(t, f.receipt.Delete(ctx, r1.ID, "u-1"), domain.ErrNotFound)
}

func TestReceipt_MaterialDesconocidoNoCreaNada(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	f.addMaterial("A", "0")

	_, err := f.receipt.Create(ctx, app.CreateReceiptInput{UserID: "u-1", Items: []app.ReceiptItemInput{
		{MaterialCode: "A", BatchNumber: "L-1", Quantity: dec("1")},
		{MaterialCode: "ZZ", BatchNumber: "L-2", Quantity: dec("1")},
	}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, f.s.batchCount(hq))
	assertDec(t, "0", f.s.material("mat-A").CurrentStock)
}

func TestReceipt_EliminarAbortaSiYaSeDespacho(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	f.addMaterial("A", "0")

	r, err := f.receipt.Create(ctx, app.CreateReceiptInput{UserID: "u-1", Items: []app.ReceiptItemInput{
		{MaterialCode: "A", BatchNumber: "L-1", Quantity: dec("8")},
	}})
	require.NoError(t, err)
	_, err = f.delivery.Create(ctx, app.CreateDeliveryInput{
		DealerID: "dealer-1", UserID: "u-1",
		Items: []app.DeliveryItemInput{{WarehouseBatchID: r.Items[0].BatchID, Quantity: dec("5")}},
	})
	require.NoError(t, err)

	err = f.receipt.Delete(ctx, r.ID, "u-1")
	var abort *domain.ConcurrencyAbortError
	require.True(t, errors.As(err, &abort))
	assertDec(t, "3", f.stock(t, r.Items[0].BatchID))
}

type stubParser struct {
	items []app.ReceiptItemInput
	err   error
}

func (p stubParser) Parse(io.Reader) ([]app.ReceiptItemInput, error) { return p.items, p.err }

func TestReceipt_ImportXLSX(t *testing.T) {
	ctx := context.Background()
	f := newFixture(stubParser{items: []app.ReceiptItemInput{
		{MaterialCode: "A", BatchNumber: "X-1", Quantity: dec("3")},
		{MaterialCode: "A", BatchNumber: "X-2", Quantity: dec("4")},
	}})
	f.addMaterial("A", "0")

	r, err := f.receipt.ImportXLSX(ctx, nil, "Proveedor S.A.", "u-1")
	require.NoError(t, err)
	assert.Len(t, r.Items, 2)
	assertDec(t, "7", f.s.material("mat-A").CurrentStock)

	failing := newFixture(stubParser{err: domain.ErrInvalidInput})
	_, err = failing.receipt.ImportXLSX(ctx, nil, "", "u-1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	noParser := newFixture(nil)
	_, err = noParser.receipt.ImportXLSX(ctx, nil, "", "u-1")
	assert.Error(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ciclo de vida
// ──────────────────────────────────────────────────────────────────────────────

func TestLifecycle_RecertificarLoteVencido(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	expiry := t0.AddDate(0, 0, -10)
	f.addBatch(hq, "A", "W1", "3", jan(1), &expiry)

	list, err := f.lifecycle.ListBatches(ctx, repository.BatchFilter{Scope: hq})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entity.BatchStatusExpired, list[0].Status, "EXPIRED se deriva al leer")

	b, h, err := f.lifecycle.Recertify(ctx, app.RecertifyInput{BatchID: "warehouse-W1", UserID: "u-9", Reason: "análisis de laboratorio"})
	require.NoError(t, err)
	assert.Equal(t, entity.BatchStatusAvailable, b.Status)
	assert.Equal(t, 1, b.RecertificationCount)
	assert.True(t, b.IsRecertified)
	assert.Equal(t, expiry.AddDate(0, 0, 60), *b.ExpiryDate)
	assert.Equal(t, 60, h.ExtendedDays)
	assert.NotEmpty(t, h.ID)

	hist, err := f.lifecycle.History(ctx, "warehouse-W1")
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "u-9", hist[0].RecertifiedBy)

	// nuevamente, antes de volver a vencer
	_, _, err = f.lifecycle.Recertify(ctx, app.RecertifyInput{BatchID: "warehouse-W1", UserID: "u-9"})
	require.NoError(t, err)
	hist, _ = f.lifecycle.History(ctx, "warehouse-W1")
	assert.Len(t, hist, 2)
	assert.Equal(t, 2, f.obs.recertified)

	got, err := f.lifecycle.GetBatch(ctx, "warehouse-W1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.RecertificationCount)
	assert.Contains(t, f.pub.types(), app.EventRecertify)
}

func TestLifecycle_RecertificarRechazado(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	expiry := t0.AddDate(0, 0, -10)
	f.addBatch(hq, "A", "EMPTY", "0", jan(1), &expiry)
	f.addBatch(hq, "A", "NOEXP", "3", jan(1), nil)

	_, _, err := f.lifecycle.Recertify(ctx, app.RecertifyInput{BatchID: "warehouse-EMPTY", UserID: "u"})
	var lv *domain.LifecycleViolation
	require.True(t, errors.As(err, &lv))
	assert.Equal(t, domain.ReasonZeroStock, lv.Reason)

	_, _, err = f.lifecycle.Recertify(ctx, app.RecertifyInput{BatchID: "warehouse-NOEXP", UserID: "u"})
	require.True(t, errors.As(err, &lv))
	assert.Equal(t, domain.ReasonNoExpiry, lv.Reason)

	b, _ := f.s.batch("warehouse-EMPTY")
	assert.Equal(t, 0, b.RecertificationCount)
	assert.Equal(t, expiry, *b.ExpiryDate)
	hist, _ := f.lifecycle.History(ctx, "warehouse-EMPTY")
	assert.Empty(t, hist)

	_, _, err = f.lifecycle.Recertify(ctx, app.RecertifyInput{BatchID: "no-existe", UserID: "u"})
	assert.ErrorIs(t, err, domain.ErrBatchNotFound)
}

func TestLifecycle_RecertificarVencidoHaceMucho(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	expiry := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f.addBatch(hq, "A", "OLD", "3", jan(1), &expiry)

	_, _, err := f.lifecycle.Recertify(ctx, app.RecertifyInput{BatchID: "warehouse-OLD", UserID: "u"})
	var lv *domain.LifecycleViolation
	require.True(t, errors.As(err, &lv))
	assert.Equal(t, domain.ReasonTooLate, lv.Reason)

	got, err := f.lifecycle.GetBatch(ctx, "warehouse-OLD")
	require.NoError(t, err)
	assert.Equal(t, entity.BatchStatusExpired, got.Status)
	assert.Equal(t, 0, got.RecertificationCount)
	assert.Equal(t, expiry, *got.ExpiryDate)
	hist, _ := f.lifecycle.History(ctx, "warehouse-OLD")
	assert.Empty(t, hist)
	assert.Zero(t, f.obs.recertified)
}
