package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/domain"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/model"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/repository"
)

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(2))
}

type bookFixture struct {
	orders      *memOrderRepo
	charges     *memChargeRepo
	rooms       *memRoomRepo
	stock       *memStockRepo
	operators   *memOperatorRepo
	catalog     *fakeCatalog
	cashierRepo *memCashierRepo
	fiscalRepo  *memFiscalRepo
	printer     *fakePrinter
	dispatcher  *fakeDispatcher
	cashier     CashierService
	fiscal      FiscalPoolService
	svc         OrderBookService
	ledger      ChargeLedgerService
}

func newBookFixture(t *testing.T) *bookFixture {
	t.Helper()

	picanha := &model.Product{
		ID: "picanha", Name: "Picanha na Chapa", Category: "Carnes",
		Price: decimal.NewFromInt(100), ShouldPrint: true, PrinterID: "cozinha",
		Recipe: []model.RecipeLine{{IngredientID: "carne", Qty: decimal.NewFromFloat(0.5)}},
	}
	agua := &model.Product{
		ID: "agua", Name: "Água Mineral", Category: model.MinibarCategory,
		Price: decimal.NewFromInt(5),
	}
	couvert := &model.Product{
		ID: "couvert", Name: "Couvert Artístico", Category: "Serviços",
		Price: decimal.NewFromInt(15),
	}
	catalog := newFakeCatalog(picanha, agua, couvert)
	catalog.methods["Dinheiro"] = &model.PaymentMethod{Name: "Dinheiro", IsFiscal: true}
	catalog.methods["Cartão"] = &model.PaymentMethod{Name: "Cartão", IsFiscal: true}

	hash, err := bcrypt.GenerateFromPassword([]byte("senha123"), bcrypt.MinCost)
	require.NoError(t, err)
	operators := &memOperatorRepo{operators: []model.Operator{
		{ID: uuid.New(), Username: "gerente1", Role: model.RoleGerente, Active: true, PasswordHash: string(hash)},
	}}

	f := &bookFixture{
		orders:      newMemOrderRepo(),
		charges:     newMemChargeRepo(),
		rooms:       newMemRoomRepo("7"),
		stock:       newMemStockRepo(),
		operators:   operators,
		catalog:     catalog,
		cashierRepo: newMemCashierRepo(),
		fiscalRepo:  newMemFiscalRepo(),
		printer:     &fakePrinter{},
		dispatcher:  &fakeDispatcher{},
	}
	f.stock.balances["carne"] = decimal.NewFromInt(10)

	f.fiscal = NewFiscalPoolService(f.fiscalRepo, &fakeEmitter{}, nil, f.dispatcher, "11222333000181")
	f.cashier = NewCashierService(f.cashierRepo, f.fiscal, f.dispatcher)
	f.svc = NewOrderBookService(
		f.orders, f.charges, f.rooms, f.stock, f.operators,
		f.catalog, f.cashier, f.fiscal, f.printer, nil,
		OrderBookConfig{
			ServiceFeeRate:    decimal.NewFromFloat(0.10),
			StaffDiscountRate: decimal.NewFromFloat(0.20),
			LiveMusic:         true,
			CoverProductID:    "couvert",
		},
	)
	f.ledger = NewChargeLedgerService(
		f.charges, f.rooms, f.stock, f.catalog, f.cashier, f.fiscal,
		OrderBookConfig{ServiceFeeRate: decimal.NewFromFloat(0.10)},
	)
	return f
}

func (f *bookFixture) openGuestCashier(t *testing.T) {
	t.Helper()
	_, err := f.cashier.OpenSession(model.CashierGuestConsumption, "recepcao1", decimal.Zero)
	require.NoError(t, err)
}

func (f *bookFixture) openRestaurantCashier(t *testing.T) {
	t.Helper()
	_, err := f.cashier.OpenSession(model.CashierRestaurant, "caixa1", decimal.Zero)
	require.NoError(t, err)
}

func (f *bookFixture) waiter() *model.Operator {
	return &model.Operator{Username: "carlos", Role: model.RoleColaborador, Active: true}
}

func (f *bookFixture) manager() *model.Operator {
	return &model.Operator{Username: "gerente1", Role: model.RoleGerente, Active: true}
}

// ── Open ─────────────────────────────────────────────────────────────────────

func TestOpenTableDerivesStaffAccountID(t *testing.T) {
	f := newBookFixture(t)

	order, err := f.svc.Open(context.Background(), OpenTable{
		CustomerType: model.CustomerFuncionario,
		StaffName:    "Joao Silva",
	}, f.waiter())
	require.NoError(t, err)
	assert.Equal(t, "FUNC_JOAO_SILVA", order.TableID)
	assert.True(t, model.IsStaffTable(order.TableID))
}

func TestOpenRoomTableRequiresGuest(t *testing.T) {
	f := newBookFixture(t)

	_, err := f.svc.Open(context.Background(), OpenTable{TableID: "12"}, f.waiter())
	require.ErrorIs(t, err, domain.ErrRoomNotOccupied)

	order, err := f.svc.Open(context.Background(), OpenTable{TableID: "7"}, f.waiter())
	require.NoError(t, err)
	assert.Equal(t, model.CustomerHospede, order.CustomerType)
	assert.Equal(t, "07", order.RoomNumber)
}

func TestOpenTableIsIdempotent(t *testing.T) {
	f := newBookFixture(t)
	ctx := context.Background()

	first, err := f.svc.Open(ctx, OpenTable{TableID: "40", NumAdults: 2, Waiter: "carlos"}, f.waiter())
	require.NoError(t, err)
	second, err := f.svc.Open(ctx, OpenTable{TableID: "40", NumAdults: 5}, f.waiter())
	require.NoError(t, err)
	assert.Equal(t, first.NumAdults, second.NumAdults)
}

func TestOpenTableAddsLiveMusicCover(t *testing.T) {
	f := newBookFixture(t)

	order, err := f.svc.Open(context.Background(), OpenTable{
		TableID: "40", CustomerType: model.CustomerPassante, NumAdults: 3, Waiter: "carlos",
	}, f.waiter())
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, model.SourceAutoCover, order.Items[0].Source)
	assertDec(t, "3.00", order.Items[0].Qty)
	assertDec(t, "45.00", order.Total)

	// Guests and staff are never charged the cover.
	room, err := f.svc.Open(context.Background(), OpenTable{TableID: "7"}, f.waiter())
	require.NoError(t, err)
	assert.Empty(t, room.Items)
}

// ── AddItems ─────────────────────────────────────────────────────────────────

func TestAddItemsAppliesStaffDiscount(t *testing.T) {
	f := newBookFixture(t)
	ctx := context.Background()

	_, err := f.svc.Open(ctx, OpenTable{CustomerType: model.CustomerFuncionario, StaffName: "Ana"}, f.waiter())
	require.NoError(t, err)

	res, err := f.svc.AddItems(ctx, "FUNC_ANA", "b1", []ItemInput{{Product: "picanha"}}, "carlos", f.waiter())
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assertDec(t, "80.00", res.Items[0].Price)
	assert.True(t, res.Items[0].ServiceFeeExempt)

	order, err := f.svc.Find("FUNC_ANA")
	require.NoError(t, err)
	assertDec(t, "0.00", order.TaxableSubtotal())
}

func TestAddItemsRejectsLockedTable(t *testing.T) {
	f := newBookFixture(t)
	ctx := context.Background()

	_, err := f.svc.Open(ctx, OpenTable{TableID: "40"}, f.waiter())
	require.NoError(t, err)
	_, err = f.svc.PullBill(ctx, "40")
	require.NoError(t, err)

	_, err = f.svc.AddItems(ctx, "40", "b1", []ItemInput{{Product: "picanha"}}, "carlos", f.waiter())
	require.ErrorIs(t, err, domain.ErrTableLocked)
}

func TestAddItemsBatchDedupe(t *testing.T) {
	f := newBookFixture(t)
	ctx := context.Background()

	_, err := f.svc.Open(ctx, OpenTable{TableID: "40"}, f.waiter())
	require.NoError(t, err)

	res, err := f.svc.AddItems(ctx, "40", "batch-1", []ItemInput{{Product: "picanha"}}, "carlos", f.waiter())
	require.NoError(t, err)
	assert.False(t, res.Duplicate)

	// Immediate resend (double click): silent no-op.
	res, err = f.svc.AddItems(ctx, "40", "batch-1", []ItemInput{{Product: "picanha"}}, "carlos", f.waiter())
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Empty(t, res.Items)

	order, err := f.svc.Find("40")
	require.NoError(t, err)
	assert.Len(t, order.Items, 1)

	// Resend past the double-click window but within retention: surfaced.
	ob := f.svc.(*orderBookService)
	ob.batches.mu.Lock()
	ob.batches.seen["batch-1"] = time.Now().Add(-10 * time.Second)
	ob.batches.mu.Unlock()
	_, err = f.svc.AddItems(ctx, "40", "batch-1", []ItemInput{{Product: "picanha"}}, "carlos", f.waiter())
	require.ErrorIs(t, err, domain.ErrDuplicateSubmission)
}

func TestAddItemsDeductsStockAndWarnsLow(t *testing.T) {
	f := newBookFixture(t)
	ctx := context.Background()
	f.stock.balances["carne"] = decimal.NewFromFloat(3.4)

	_, err := f.svc.Open(ctx, OpenTable{TableID: "40"}, f.waiter())
	require.NoError(t, err)
	res, err := f.svc.AddItems(ctx, "40", "b1", []ItemInput{{Product: "picanha"}}, "carlos", f.waiter())
	require.NoError(t, err)

	balance, err := f.stock.Balance("carne")
	require.NoError(t, err)
	assertDec(t, "2.90", balance)
	assert.Contains(t, res.LowStock, "carne")
}

func TestAddItemsDispatchesPrintJobs(t *testing.T) {
	f := newBookFixture(t)
	ctx := context.Background()

	_, err := f.svc.Open(ctx, OpenTable{TableID: "40"}, f.waiter())
	require.NoError(t, err)
	res, err := f.svc.AddItems(ctx, "40", "b1",
		[]ItemInput{{Product: "picanha"}, {Product: "agua"}}, "carlos", f.waiter())
	require.NoError(t, err)

	// Only the kitchen item reaches the agent; the minibar product has no
	// print routing.
	require.Len(t, f.printer.jobs, 1)
	job := f.printer.jobs[0]
	require.Len(t, job.Items, 1)
	assert.Equal(t, "cozinha", job.PrinterRouting[job.Items[0].ID])

	order, err := f.svc.Find("40")
	require.NoError(t, err)
	for _, it := range order.Items {
		switch it.ProductID {
		case "picanha":
			assert.Equal(t, model.PrintPrinted, it.PrintStatus)
			assert.True(t, it.Printed)
		case "agua":
			assert.Equal(t, model.PrintSkipped, it.PrintStatus)
		}
	}
	assert.Empty(t, res.PrintErrors)
}

func TestAddItemsPrintFailureKeepsItems(t *testing.T) {
	f := newBookFixture(t)
	f.printer.err = domain.ErrPrinterTimeout
	ctx := context.Background()

	_, err := f.svc.Open(ctx, OpenTable{TableID: "40"}, f.waiter())
	require.NoError(t, err)
	res, err := f.svc.AddItems(ctx, "40", "b1", []ItemInput{{Product: "picanha"}}, "carlos", f.waiter())
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Len(t, res.PrintErrors, 1)

	order, err := f.svc.Find("40")
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, model.PrintError, order.Items[0].PrintStatus)
	assertDec(t, "100.00", order.Total)
}

func TestReprintRetriesFailedItems(t *testing.T) {
	f := newBookFixture(t)
	f.printer.err = domain.ErrPrinterTimeout
	ctx := context.Background()

	_, err := f.svc.Open(ctx, OpenTable{TableID: "40"}, f.waiter())
	require.NoError(t, err)
	_, err = f.svc.AddItems(ctx, "40", "b1", []ItemInput{{Product: "picanha"}}, "carlos", f.waiter())
	require.NoError(t, err)

	f.printer.err = nil
	res, err := f.svc.Reprint(ctx, "40")
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, model.PrintPrinted, res.Items[0].PrintStatus)

	order, err := f.svc.Find("40")
	require.NoError(t, err)
	assert.Equal(t, model.PrintPrinted, order.Items[0].PrintStatus)
}

// ── RemoveItem ───────────────────────────────────────────────────────────────

func TestRemoveItemAuthorization(t *testing.T) {
	f := newBookFixture(t)
	ctx := context.Background()

	_, err := f.svc.Open(ctx, OpenTable{TableID: "40"}, f.waiter())
	require.NoError(t, err)
	_, err = f.svc.AddItems(ctx, "40", "b1", []ItemInput{{Product: "picanha"}}, "carlos", f.waiter())
	require.NoError(t, err)

	err = f.svc.RemoveItem(ctx, "40", 1, decimal.Zero, "", f.manager(), "")
	require.ErrorIs(t, err, domain.ErrMissingJustification)

	err = f.svc.RemoveItem(ctx, "40", 1, decimal.Zero, "pedido errado", f.waiter(), "")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	err = f.svc.RemoveItem(ctx, "40", 1, decimal.Zero, "pedido errado", f.waiter(), "senha errada")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	// Waiter with a valid manager password override.
	err = f.svc.RemoveItem(ctx, "40", 1, decimal.Zero, "pedido errado", f.waiter(), "senha123")
	require.NoError(t, err)

	order, err := f.svc.Find("40")
	require.NoError(t, err)
	assert.Empty(t, order.Items)
	require.Len(t, order.RemovedItemsLog, 1)
	assert.Equal(t, "pedido errado", order.RemovedItemsLog[0].Reason)

	// Full removal refunds the recipe.
	balance, err := f.stock.Balance("carne")
	require.NoError(t, err)
	assertDec(t, "10.00", balance)
}

func TestRemoveItemAfterReopenIsFlagged(t *testing.T) {
	f := newBookFixture(t)
	ctx := context.Background()

	_, err := f.svc.Open(ctx, OpenTable{TableID: "40"}, f.waiter())
	require.NoError(t, err)
	_, err = f.svc.AddItems(ctx, "40", "b1", []ItemInput{{Product: "picanha"}}, "carlos", f.waiter())
	require.NoError(t, err)

	_, err = f.svc.PullBill(ctx, "40")
	require.NoError(t, err)
	require.NoError(t, f.svc.Unlock("40"))

	err = f.svc.RemoveItem(ctx, "40", 1, decimal.Zero, "cliente desistiu", f.manager(), "")
	require.NoError(t, err)

	order, err := f.svc.Find("40")
	require.NoError(t, err)
	assert.True(t, order.ReopenedAfterPull)
	assert.True(t, order.ItemsRemovedAfterReopen)
	require.Len(t, order.RemovedItemsLog, 1)
	assert.True(t, order.RemovedItemsLog[0].AfterPull)
}

func TestRemoveItemPartialQty(t *testing.T) {
	f := newBookFixture(t)
	ctx := context.Background()

	_, err := f.svc.Open(ctx, OpenTable{TableID: "40"}, f.waiter())
	require.NoError(t, err)
	_, err = f.svc.AddItems(ctx, "40", "b1",
		[]ItemInput{{Product: "picanha", Qty: decimal.NewFromInt(3)}}, "carlos", f.waiter())
	require.NoError(t, err)

	err = f.svc.RemoveItem(ctx, "40", 1, decimal.NewFromInt(1), "troca", f.manager(), "")
	require.NoError(t, err)

	order, err := f.svc.Find("40")
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assertDec(t, "2.00", order.Items[0].Qty)
	assertDec(t, "200.00", order.Total)
}

// ── Transfers ────────────────────────────────────────────────────────────────

func TestTransferItemRequiresManager(t *testing.T) {
	f := newBookFixture(t)
	ctx := context.Background()

	_, err := f.svc.Open(ctx, OpenTable{TableID: "40"}, f.waiter())
	require.NoError(t, err)
	_, err = f.svc.Open(ctx, OpenTable{TableID: "41"}, f.waiter())
	require.NoError(t, err)
	_, err = f.svc.AddItems(ctx, "40", "b1", []ItemInput{{Product: "picanha"}}, "carlos", f.waiter())
	require.NoError(t, err)

	err = f.svc.TransferItem(ctx, "40", "41", 1, decimal.Zero, f.waiter())
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	err = f.svc.TransferItem(ctx, "40", "41", 1, decimal.Zero, f.manager())
	require.NoError(t, err)

	src, err := f.svc.Find("40")
	require.NoError(t, err)
	dest, err := f.svc.Find("41")
	require.NoError(t, err)
	assert.Empty(t, src.Items)
	require.Len(t, dest.Items, 1)
	assert.Equal(t, "40", dest.Items[0].TransferredFrom)
	assert.Contains(t, dest.Items[0].Observations, "Transferido da mesa 40")
	assertDec(t, "100.00", dest.Total)
	require.NotNil(t, dest.LastTransfer)
	assert.Equal(t, "gerente1", dest.LastTransfer.Operator)
}

func TestTransferToRoomCreatesChargeAndDeletesTable(t *testing.T) {
	f := newBookFixture(t)
	ctx := context.Background()

	_, err := f.svc.Open(ctx, OpenTable{TableID: "40", Waiter: "carlos"}, f.waiter())
	require.NoError(t, err)
	_, err = f.svc.AddItems(ctx, "40", "b1", []ItemInput{{Product: "picanha"}}, "carlos", f.waiter())
	require.NoError(t, err)

	_, err = f.svc.TransferToRoom(ctx, "40", "15", f.waiter())
	require.ErrorIs(t, err, domain.ErrRoomNotOccupied)

	charge, err := f.svc.TransferToRoom(ctx, "40", "7", f.waiter())
	require.NoError(t, err)
	assert.Equal(t, "07", charge.RoomNumber)
	assert.Equal(t, "40", charge.TableID)
	assertDec(t, "100.00", charge.Total)
	assertDec(t, "10.00", charge.ServiceFee)
	assertDec(t, "110.00", charge.GrandTotal())
	assertDec(t, "110.00", charge.WaiterBreakdown["carlos"])
	assert.Equal(t, model.ChargePending, charge.Status)

	_, err = f.svc.Find("40")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

// ── PullBill / Unlock ────────────────────────────────────────────────────────

func TestPullBillLocksAndUnlockReopens(t *testing.T) {
	f := newBookFixture(t)
	ctx := context.Background()

	_, err := f.svc.Open(ctx, OpenTable{TableID: "40"}, f.waiter())
	require.NoError(t, err)

	_, err = f.svc.PullBill(ctx, "40")
	require.NoError(t, err)
	order, err := f.svc.Find("40")
	require.NoError(t, err)
	assert.True(t, order.Locked)

	require.NoError(t, f.svc.Unlock("40"))
	order, err = f.svc.Find("40")
	require.NoError(t, err)
	assert.False(t, order.Locked)
	assert.True(t, order.ReopenedAfterPull)
	assert.Equal(t, 1, order.ReopenCount)
}

// ── Close ────────────────────────────────────────────────────────────────────

func seatAndOrder(t *testing.T, f *bookFixture, tableID string) {
	t.Helper()
	_, err := f.svc.Open(context.Background(), OpenTable{TableID: tableID, Waiter: "carlos"}, f.waiter())
	require.NoError(t, err)
	_, err = f.svc.AddItems(context.Background(), tableID, "b-"+tableID,
		[]ItemInput{{Product: "picanha"}}, "carlos", f.waiter())
	require.NoError(t, err)
}

func TestCloseRequiresOpenCashier(t *testing.T) {
	f := newBookFixture(t)
	seatAndOrder(t, f, "40")

	_, err := f.svc.Close(context.Background(), "40", CloseTable{
		Payments: []PaymentInput{{Method: "Dinheiro", Amount: decimal.NewFromInt(110)}},
	}, f.waiter())
	require.ErrorIs(t, err, domain.ErrCashierNotOpen)
}

func TestCloseWithCashChange(t *testing.T) {
	f := newBookFixture(t)
	f.openRestaurantCashier(t)
	seatAndOrder(t, f, "40")

	res, err := f.svc.Close(context.Background(), "40", CloseTable{
		Payments: []PaymentInput{{Method: "Dinheiro", Amount: decimal.NewFromInt(150)}},
	}, f.waiter())
	require.NoError(t, err)
	assert.True(t, res.Closed)
	assertDec(t, "100.00", res.ItemsTotal)
	assertDec(t, "10.00", res.ServiceFee)
	assertDec(t, "110.00", res.GrandTotal)
	assertDec(t, "40.00", res.Change)

	// Change never enters the cashier.
	session, err := f.cashier.GetActive(model.CashierRestaurant)
	require.NoError(t, err)
	require.Len(t, session.Transactions, 1)
	assertDec(t, "110.00", session.Transactions[0].Amount)
	assert.Equal(t, "Venda Mesa 40 (Dinheiro)", session.Transactions[0].Description)
	assertDec(t, "110.00", session.Transactions[0].WaiterBreakdown["carlos"])

	_, err = f.svc.Find("40")
	require.ErrorIs(t, err, domain.ErrNotFound)

	entries, err := f.fiscal.List(repository.FiscalFilter{Origin: model.OriginRestaurant})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].OriginalID, "40_"))
	assertDec(t, "110.00", entries[0].TotalAmount)
	assert.Equal(t, model.FiscalPending, entries[0].Status)
}

func TestCloseOverpaymentNeedsCash(t *testing.T) {
	f := newBookFixture(t)
	f.openRestaurantCashier(t)
	seatAndOrder(t, f, "40")

	_, err := f.svc.Close(context.Background(), "40", CloseTable{
		Payments: []PaymentInput{{Method: "Cartão", Amount: decimal.NewFromInt(150)}},
	}, f.waiter())
	require.ErrorIs(t, err, domain.ErrOverpaymentNotAllowed)
}

func TestCloseInsufficientPayment(t *testing.T) {
	f := newBookFixture(t)
	f.openRestaurantCashier(t)
	seatAndOrder(t, f, "40")

	_, err := f.svc.Close(context.Background(), "40", CloseTable{
		Payments: []PaymentInput{{Method: "Cartão", Amount: decimal.NewFromInt(100)}},
	}, f.waiter())
	require.ErrorIs(t, err, domain.ErrInsufficientPayment)
}

func TestCloseWithinTolerance(t *testing.T) {
	f := newBookFixture(t)
	f.openRestaurantCashier(t)
	seatAndOrder(t, f, "40")

	res, err := f.svc.Close(context.Background(), "40", CloseTable{
		Payments: []PaymentInput{{Method: "Cartão", Amount: decimal.NewFromFloat(109.96)}},
	}, f.waiter())
	require.NoError(t, err)
	assert.True(t, res.Closed)
}

func TestCloseWithoutServiceFee(t *testing.T) {
	f := newBookFixture(t)
	f.openRestaurantCashier(t)
	seatAndOrder(t, f, "40")

	res, err := f.svc.Close(context.Background(), "40", CloseTable{
		Payments:         []PaymentInput{{Method: "Cartão", Amount: decimal.NewFromInt(100)}},
		RemoveServiceFee: true,
	}, f.waiter())
	require.NoError(t, err)
	assertDec(t, "0.00", res.ServiceFee)
	assertDec(t, "100.00", res.GrandTotal)

	session, err := f.cashier.GetActive(model.CashierRestaurant)
	require.NoError(t, err)
	require.Len(t, session.Transactions, 1)
	assert.True(t, session.Transactions[0].ServiceFeeRemoved)
	assert.Contains(t, session.Transactions[0].Flags, "sem_taxa_servico")
}

func TestClosePartialThenFinal(t *testing.T) {
	f := newBookFixture(t)
	f.openRestaurantCashier(t)
	seatAndOrder(t, f, "40")
	ctx := context.Background()

	res, err := f.svc.Close(ctx, "40", CloseTable{
		Payments:    []PaymentInput{{Method: "Cartão", Amount: decimal.NewFromInt(50)}},
		PartialOnly: true,
	}, f.waiter())
	require.NoError(t, err)
	assert.True(t, res.Partial)
	assert.False(t, res.Closed)
	assertDec(t, "50.00", res.PaidAmount)

	order, err := f.svc.Find("40")
	require.NoError(t, err)
	assertDec(t, "50.00", order.PaidAmount)

	res, err = f.svc.Close(ctx, "40", CloseTable{
		Payments: []PaymentInput{{Method: "Cartão", Amount: decimal.NewFromInt(60)}},
	}, f.waiter())
	require.NoError(t, err)
	assert.True(t, res.Closed)

	session, err := f.cashier.GetActive(model.CashierRestaurant)
	require.NoError(t, err)
	require.Len(t, session.Transactions, 2)

	entries, err := f.fiscal.List(repository.FiscalFilter{Origin: model.OriginRestaurant})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCloseDiscountAndZeroValue(t *testing.T) {
	f := newBookFixture(t)
	f.openRestaurantCashier(t)
	seatAndOrder(t, f, "40")
	ctx := context.Background()

	// Discount above the grand total floors at zero and closes cashierless.
	res, err := f.svc.Close(ctx, "40", CloseTable{Discount: decimal.NewFromInt(500)}, f.waiter())
	require.NoError(t, err)
	assert.True(t, res.Closed)
	assertDec(t, "0.00", res.GrandTotal)

	// Re-closing a settled table is a no-op.
	res, err = f.svc.Close(ctx, "40", CloseTable{}, f.waiter())
	require.NoError(t, err)
	assert.True(t, res.AlreadyClosed)
}

// ── Cancel ───────────────────────────────────────────────────────────────────

func TestCancelRefundsStock(t *testing.T) {
	f := newBookFixture(t)
	ctx := context.Background()
	seatAndOrder(t, f, "40")

	err := f.svc.Cancel(ctx, "40", "", f.manager())
	require.ErrorIs(t, err, domain.ErrMissingJustification)

	err = f.svc.Cancel(ctx, "40", "mesa de teste", f.waiter())
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, f.svc.Cancel(ctx, "40", "mesa de teste", f.manager()))
	_, err = f.svc.Find("40")
	require.ErrorIs(t, err, domain.ErrNotFound)

	balance, err := f.stock.Balance("carne")
	require.NoError(t, err)
	assertDec(t, "10.00", balance)
}

// ── batch cache ──────────────────────────────────────────────────────────────

func TestBatchCacheWindows(t *testing.T) {
	c := newBatchCache()

	assert.Equal(t, batchNew, c.check(""))
	assert.Equal(t, batchNew, c.check("b1"))
	assert.Equal(t, batchSilentDup, c.check("b1"))

	c.mu.Lock()
	c.seen["b1"] = time.Now().Add(-30 * time.Second)
	c.mu.Unlock()
	assert.Equal(t, batchDup, c.check("b1"))

	c.mu.Lock()
	c.seen["b1"] = time.Now().Add(-2 * time.Minute)
	c.mu.Unlock()
	assert.Equal(t, batchNew, c.check("b1"))
}
