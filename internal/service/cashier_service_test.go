package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/domain"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/model"
)

func newCashierFixture() (CashierService, *memCashierRepo, *fakeDispatcher) {
	repo := newMemCashierRepo()
	dispatcher := &fakeDispatcher{}
	return NewCashierService(repo, nil, dispatcher), repo, dispatcher
}

func TestOpenSessionOnePerType(t *testing.T) {
	svc, _, _ := newCashierFixture()

	_, err := svc.OpenSession("caixa_secreto", "ana", decimal.Zero)
	require.Error(t, err)
	_, err = svc.OpenSession(model.CashierRestaurant, "ana", decimal.NewFromInt(-1))
	require.Error(t, err)

	first, err := svc.OpenSession(model.CashierRestaurant, "ana", decimal.NewFromInt(200))
	require.NoError(t, err)
	assertDec(t, "200.00", first.OpeningBalance)

	_, err = svc.OpenSession(model.CashierRestaurant, "bruno", decimal.Zero)
	require.ErrorIs(t, err, domain.ErrDuplicateOpenSession)

	// A different type opens independently.
	_, err = svc.OpenSession(model.CashierGuestConsumption, "bruno", decimal.Zero)
	require.NoError(t, err)
}

func TestRecordRequiresOpenSession(t *testing.T) {
	svc, _, _ := newCashierFixture()

	_, err := svc.Record(model.CashierRestaurant, model.CashierTransaction{
		Type: model.TxSale, Amount: decimal.NewFromInt(50),
	})
	require.ErrorIs(t, err, domain.ErrCashierNotOpen)

	_, err = svc.OpenSession(model.CashierRestaurant, "ana", decimal.Zero)
	require.NoError(t, err)

	_, err = svc.Record(model.CashierRestaurant, model.CashierTransaction{
		Type: "transferencia", Amount: decimal.NewFromInt(50),
	})
	require.Error(t, err)
	_, err = svc.Record(model.CashierRestaurant, model.CashierTransaction{
		Type: model.TxSale, Amount: decimal.Zero,
	})
	require.Error(t, err)

	tx, err := svc.Record(model.CashierRestaurant, model.CashierTransaction{
		Type: model.TxSale, Amount: decimal.NewFromFloat(50.005), Description: "Venda Mesa 40",
	})
	require.NoError(t, err)
	assert.NotZero(t, tx.ID)
	assert.False(t, tx.Timestamp.IsZero())
	assertDec(t, "50.00", tx.Amount)
}

func TestCloseSessionDerivesBalances(t *testing.T) {
	svc, _, dispatcher := newCashierFixture()

	session, err := svc.OpenSession(model.CashierRestaurant, "ana", decimal.NewFromInt(100))
	require.NoError(t, err)

	for _, tx := range []model.CashierTransaction{
		{Type: model.TxSale, Amount: decimal.NewFromInt(250)},
		{Type: model.TxIn, Amount: decimal.NewFromInt(30)},
		{Type: model.TxWithdrawal, Amount: decimal.NewFromInt(80)},
	} {
		_, err := svc.Record(model.CashierRestaurant, tx)
		require.NoError(t, err)
	}

	counted := decimal.NewFromInt(295)
	closed, err := svc.CloseSession(context.Background(), session.ID, "ana", &counted)
	require.NoError(t, err)
	assert.Equal(t, model.SessionClosed, closed.Status)
	require.NotNil(t, closed.ClosingBalance)
	assertDec(t, "300.00", *closed.ClosingBalance)
	require.NotNil(t, closed.ClosingDiff)
	assertDec(t, "-5.00", *closed.ClosingDiff)

	// The closing report goes to the worker queue.
	assert.Contains(t, dispatcher.reports, session.ID)

	// Closing twice fails, and the type can reopen.
	_, err = svc.CloseSession(context.Background(), session.ID, "ana", nil)
	require.Error(t, err)
	_, err = svc.OpenSession(model.CashierRestaurant, "bruno", decimal.Zero)
	require.NoError(t, err)
}

func TestAmendSaleForCharge(t *testing.T) {
	svc, _, _ := newCashierFixture()

	session, err := svc.OpenSession(model.CashierGuestConsumption, "ana", decimal.Zero)
	require.NoError(t, err)
	_, err = svc.Record(model.CashierGuestConsumption, model.CashierTransaction{
		Type: model.TxSale, Amount: decimal.NewFromInt(110), RelatedChargeID: "charge-1",
	})
	require.NoError(t, err)

	// Unknown charge: nothing to amend.
	amended, err := svc.AmendSaleForCharge("charge-2", decimal.NewFromInt(90), "")
	require.NoError(t, err)
	assert.False(t, amended)

	amended, err = svc.AmendSaleForCharge("charge-1", decimal.NewFromInt(115), "ajuste: água")
	require.NoError(t, err)
	assert.True(t, amended)

	open, err := svc.GetActive(model.CashierGuestConsumption)
	require.NoError(t, err)
	require.Len(t, open.Transactions, 1)
	assertDec(t, "115.00", open.Transactions[0].Amount)
	assert.Contains(t, open.Transactions[0].Flags, "ajuste: água")

	// Once the paying session closes, amendment is refused.
	_, err = svc.CloseSession(context.Background(), session.ID, "ana", nil)
	require.NoError(t, err)
	amended, err = svc.AmendSaleForCharge("charge-1", decimal.NewFromInt(120), "")
	require.NoError(t, err)
	assert.False(t, amended)
}

func TestCanAdjustForCharge(t *testing.T) {
	svc, _, _ := newCashierFixture()

	// No cashier at all: nowhere for an adjustment to land.
	assert.False(t, svc.CanAdjustForCharge("charge-1"))

	session, err := svc.OpenSession(model.CashierGuestConsumption, "ana", decimal.Zero)
	require.NoError(t, err)
	_, err = svc.Record(model.CashierGuestConsumption, model.CashierTransaction{
		Type: model.TxSale, Amount: decimal.NewFromInt(110), RelatedChargeID: "charge-1",
	})
	require.NoError(t, err)
	assert.True(t, svc.CanAdjustForCharge("charge-1"))

	// After the paying session closes, only an open guest-consumption
	// cashier can take the compensating entry; another type cannot.
	_, err = svc.CloseSession(context.Background(), session.ID, "ana", nil)
	require.NoError(t, err)
	_, err = svc.OpenSession(model.CashierRestaurant, "ana", decimal.Zero)
	require.NoError(t, err)
	assert.False(t, svc.CanAdjustForCharge("charge-1"))

	_, err = svc.OpenSession(model.CashierGuestConsumption, "bruno", decimal.Zero)
	require.NoError(t, err)
	assert.True(t, svc.CanAdjustForCharge("charge-1"))
}

func TestHistoryFiltersByTypeAndWindow(t *testing.T) {
	svc, repo, _ := newCashierFixture()
	ctx := context.Background()

	s1, err := svc.OpenSession(model.CashierRestaurant, "ana", decimal.Zero)
	require.NoError(t, err)
	s2, err := svc.OpenSession(model.CashierGuestConsumption, "bruno", decimal.Zero)
	require.NoError(t, err)
	_, err = svc.CloseSession(ctx, s1.ID, "ana", nil)
	require.NoError(t, err)
	_, err = svc.CloseSession(ctx, s2.ID, "bruno", nil)
	require.NoError(t, err)

	require.NoError(t, repo.Update(s1.ID, func(s *model.CashierSession) error {
		s.OpenedAt = time.Now().Add(-48 * time.Hour)
		return nil
	}))

	recent, err := svc.History(time.Now().Add(-24*time.Hour), time.Now(), "")
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, model.CashierGuestConsumption, recent[0].Type)

	all, err := svc.History(time.Now().Add(-72*time.Hour), time.Now(), model.CashierRestaurant)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.CashierRestaurant, all[0].Type)

	// A session still open never shows in history.
	s3, err := svc.OpenSession(model.CashierRestaurant, "ana", decimal.Zero)
	require.NoError(t, err)
	none, err := svc.History(time.Time{}, time.Time{}, model.CashierRestaurant)
	require.NoError(t, err)
	for _, s := range none {
		assert.NotEqual(t, s3.ID, s.ID)
	}
}
