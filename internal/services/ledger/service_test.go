package ledger

import (
	"context"
	"testing"

	"coursewallet/internal/models"
	"coursewallet/internal/repositories/memstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopCache struct{}

func (nopCache) GetBalance(ctx context.Context, ownerID uint) (*models.Balance, error) {
	return nil, nil
}
func (nopCache) CacheBalance(ctx context.Context, balance *models.Balance) error { return nil }
func (nopCache) InvalidateBalance(ctx context.Context, ownerID uint) error       { return nil }

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestService(t *testing.T) (Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	svc := NewService(store.Ledger(), nopCache{}, Config{}, nil)
	return svc, store
}

func TestGetOrCreateBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t.Run("creates a zero balance on first call", func(t *testing.T) {
		balance, err := svc.GetOrCreateBalance(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, uint(7), balance.OwnerID)
		assert.True(t, balance.Amount.IsZero())
		assert.Equal(t, "USD", balance.Currency)
		assert.False(t, balance.IsMaster)
	})

	t.Run("returns the same balance on repeat calls", func(t *testing.T) {
		first, err := svc.GetOrCreateBalance(ctx, 8)
		require.NoError(t, err)
		second, err := svc.GetOrCreateBalance(ctx, 8)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})
}

func TestGetMasterBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	master, err := svc.GetMasterBalance(ctx)
	require.NoError(t, err)
	assert.True(t, master.IsMaster)
	assert.True(t, master.Amount.IsZero())

	again, err := svc.GetMasterBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, master.ID, again.ID)
}

func TestRecord(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, svc Service, ownerID uint, amount string) *models.Balance {
		t.Helper()
		balance, err := svc.GetOrCreateBalance(ctx, ownerID)
		require.NoError(t, err)
		if amount != "0" {
			_, err = svc.Record(ctx, RecordRequest{
				BalanceID:   balance.ID,
				Amount:      dec(amount),
				Kind:        models.KindDeposit,
				Source:      models.SourceAccountant,
				Description: "initial funds",
			})
			require.NoError(t, err)
		}
		return balance
	}

	t.Run("deposit credits the balance", func(t *testing.T) {
		svc, _ := newTestService(t)
		balance := seed(t, svc, 1, "0")

		txn, err := svc.Record(ctx, RecordRequest{
			BalanceID:   balance.ID,
			Amount:      dec("25.50"),
			Kind:        models.KindDeposit,
			Source:      models.SourceAccountant,
			Description: "Deposit by accountant",
		})
		require.NoError(t, err)
		assert.Equal(t, models.KindDeposit, txn.Kind)
		assert.NotEmpty(t, txn.Reference)

		updated, err := svc.GetBalanceByOwner(ctx, 1)
		require.NoError(t, err)
		assert.True(t, updated.Amount.Equal(dec("25.50")), "got %s", updated.Amount)
	})

	t.Run("expenditure deducts the balance", func(t *testing.T) {
		svc, _ := newTestService(t)
		balance := seed(t, svc, 1, "100")

		_, err := svc.Record(ctx, RecordRequest{
			BalanceID:   balance.ID,
			Amount:      dec("40"),
			Kind:        models.KindExpenditure,
			Source:      models.SourceAutomatic,
			Description: "course payment",
		})
		require.NoError(t, err)

		updated, err := svc.GetBalanceByOwner(ctx, 1)
		require.NoError(t, err)
		assert.True(t, updated.Amount.Equal(dec("60")), "got %s", updated.Amount)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		svc, _ := newTestService(t)
		balance := seed(t, svc, 1, "100")

		for _, amount := range []string{"0", "-5"} {
			_, err := svc.Record(ctx, RecordRequest{
				BalanceID: balance.ID,
				Amount:    dec(amount),
				Kind:      models.KindDeposit,
				Source:    models.SourceAccountant,
			})
			assert.ErrorIs(t, err, ErrInvalidAmount)
		}
	})

	t.Run("rejects unknown kinds", func(t *testing.T) {
		svc, _ := newTestService(t)
		balance := seed(t, svc, 1, "100")

		_, err := svc.Record(ctx, RecordRequest{
			BalanceID: balance.ID,
			Amount:    dec("10"),
			Kind:      models.TransactionKind("refund"),
			Source:    models.SourceAccountant,
		})
		assert.ErrorIs(t, err, ErrInvalidKind)
	})

	t.Run("overdraft fails and leaves no trace", func(t *testing.T) {
		svc, _ := newTestService(t)
		balance := seed(t, svc, 1, "30")

		_, err := svc.Record(ctx, RecordRequest{
			BalanceID:   balance.ID,
			Amount:      dec("40"),
			Kind:        models.KindExpenditure,
			Source:      models.SourceAutomatic,
			Description: "course payment",
		})
		assert.ErrorIs(t, err, ErrInsufficientFunds)

		updated, err := svc.GetBalanceByOwner(ctx, 1)
		require.NoError(t, err)
		assert.True(t, updated.Amount.Equal(dec("30")), "got %s", updated.Amount)

		history, err := svc.GetHistory(ctx, balance.ID, 10, 0)
		require.NoError(t, err)
		assert.Len(t, history, 1) // only the seed deposit
	})

	t.Run("missing balance", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.Record(ctx, RecordRequest{
			BalanceID: 999,
			Amount:    dec("10"),
			Kind:      models.KindDeposit,
			Source:    models.SourceAccountant,
		})
		assert.ErrorIs(t, err, ErrBalanceNotFound)
	})
}

func TestHasSufficientFunds(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	balance, err := svc.GetOrCreateBalance(ctx, 1)
	require.NoError(t, err)
	_, err = svc.Record(ctx, RecordRequest{
		BalanceID: balance.ID,
		Amount:    dec("50"),
		Kind:      models.KindDeposit,
		Source:    models.SourceAccountant,
	})
	require.NoError(t, err)

	ok, err := svc.HasSufficientFunds(ctx, balance.ID, dec("50"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasSufficientFunds(ctx, balance.ID, dec("50.01"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.HasSufficientFunds(ctx, balance.ID, dec("-1"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.HasSufficientFunds(ctx, 999, dec("1"))
	assert.ErrorIs(t, err, ErrBalanceNotFound)
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, fromAmount string) (Service, *models.Balance, *models.Balance) {
		t.Helper()
		svc, _ := newTestService(t)
		from, err := svc.GetOrCreateBalance(ctx, 1)
		require.NoError(t, err)
		to, err := svc.GetOrCreateBalance(ctx, 2)
		require.NoError(t, err)
		if fromAmount != "0" {
			_, err = svc.Record(ctx, RecordRequest{
				BalanceID: from.ID,
				Amount:    dec(fromAmount),
				Kind:      models.KindDeposit,
				Source:    models.SourceAccountant,
			})
			require.NoError(t, err)
		}
		return svc, from, to
	}

	t.Run("moves the amount and conserves the total", func(t *testing.T) {
		svc, from, to := setup(t, "100")

		result, err := svc.Transfer(ctx, ledgerTransfer(from.ID, to.ID, "40"))
		require.NoError(t, err)
		require.NotNil(t, result.Debit)
		require.NotNil(t, result.Credit)
		assert.Equal(t, models.KindExpenditure, result.Debit.Kind)
		assert.Equal(t, models.KindDeposit, result.Credit.Kind)

		fromAfter, err := svc.GetBalanceByOwner(ctx, 1)
		require.NoError(t, err)
		toAfter, err := svc.GetBalanceByOwner(ctx, 2)
		require.NoError(t, err)
		assert.True(t, fromAfter.Amount.Equal(dec("60")), "got %s", fromAfter.Amount)
		assert.True(t, toAfter.Amount.Equal(dec("40")), "got %s", toAfter.Amount)
	})

	t.Run("insufficient funds leaves both sides untouched", func(t *testing.T) {
		svc, from, to := setup(t, "30")

		_, err := svc.Transfer(ctx, ledgerTransfer(from.ID, to.ID, "40"))
		assert.ErrorIs(t, err, ErrInsufficientFunds)

		fromAfter, err := svc.GetBalanceByOwner(ctx, 1)
		require.NoError(t, err)
		toAfter, err := svc.GetBalanceByOwner(ctx, 2)
		require.NoError(t, err)
		assert.True(t, fromAfter.Amount.Equal(dec("30")), "got %s", fromAfter.Amount)
		assert.True(t, toAfter.Amount.IsZero(), "got %s", toAfter.Amount)

		history, err := svc.GetHistory(ctx, to.ID, 10, 0)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("rejects a transfer to the same balance", func(t *testing.T) {
		svc, from, _ := setup(t, "100")
		_, err := svc.Transfer(ctx, ledgerTransfer(from.ID, from.ID, "40"))
		assert.ErrorIs(t, err, ErrSameBalance)
	})

	t.Run("rejects kinds on the wrong side", func(t *testing.T) {
		svc, from, to := setup(t, "100")

		req := ledgerTransfer(from.ID, to.ID, "40")
		req.DebitKind = models.KindDeposit // credit kind on the debit side
		_, err := svc.Transfer(ctx, req)
		assert.ErrorIs(t, err, ErrInvalidKind)

		req = ledgerTransfer(from.ID, to.ID, "40")
		req.CreditKind = models.KindWithdraw
		_, err = svc.Transfer(ctx, req)
		assert.ErrorIs(t, err, ErrInvalidKind)
	})

	t.Run("rejects missing balances", func(t *testing.T) {
		svc, from, _ := setup(t, "100")
		_, err := svc.Transfer(ctx, ledgerTransfer(from.ID, 999, "40"))
		assert.ErrorIs(t, err, ErrBalanceNotFound)
	})
}

func TestCreateDeposit(t *testing.T) {
	ctx := context.Background()
	accountant := models.Actor{UserID: 9, Role: models.RoleAccountant}

	t.Run("accountant deposits with default description", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.GetOrCreateBalance(ctx, 3)
		require.NoError(t, err)

		txn, err := svc.CreateDeposit(ctx, accountant, 3, dec("75"), "")
		require.NoError(t, err)
		assert.Equal(t, "Deposit by accountant", txn.Description)
		assert.Equal(t, models.SourceAccountant, txn.Source)

		balance, err := svc.GetBalanceByOwner(ctx, 3)
		require.NoError(t, err)
		assert.True(t, balance.Amount.Equal(dec("75")), "got %s", balance.Amount)
	})

	t.Run("non-accountants are refused", func(t *testing.T) {
		svc, _ := newTestService(t)
		for _, role := range []models.Role{models.RoleStudent, models.RoleTeacher} {
			_, err := svc.CreateDeposit(ctx, models.Actor{UserID: 9, Role: role}, 3, dec("75"), "")
			assert.ErrorIs(t, err, ErrAccessDenied)
		}
	})

	t.Run("missing balance", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.CreateDeposit(ctx, accountant, 404, dec("75"), "")
		assert.ErrorIs(t, err, ErrBalanceNotFound)
	})
}

func TestGetHistory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	balance, err := svc.GetOrCreateBalance(ctx, 1)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := svc.Record(ctx, RecordRequest{
			BalanceID: balance.ID,
			Amount:    dec("10"),
			Kind:      models.KindDeposit,
			Source:    models.SourceAccountant,
		})
		require.NoError(t, err)
	}

	page, err := svc.GetHistory(ctx, balance.ID, 3, 0)
	require.NoError(t, err)
	assert.Len(t, page, 3)

	rest, err := svc.GetHistory(ctx, balance.ID, 3, 3)
	require.NoError(t, err)
	assert.Len(t, rest, 2)
}

func ledgerTransfer(fromID, toID uint, amount string) TransferRequest {
	return TransferRequest{
		FromBalanceID:     fromID,
		ToBalanceID:       toID,
		Amount:            dec(amount),
		DebitKind:         models.KindExpenditure,
		CreditKind:        models.KindDeposit,
		Source:            models.SourceAutomatic,
		DebitDescription:  "debit",
		CreditDescription: "credit",
	}
}
