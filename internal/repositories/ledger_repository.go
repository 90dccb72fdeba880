package repositories

import (
	"context"
	"errors"
	"time"

	"coursewallet/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrBalanceNotFound     = errors.New("balance not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDuplicateBalance    = errors.New("balance already exists for owner")
)

// LedgerRepository defines the database operations the ledger needs:
// balance rows and the append-only transaction log.
//
// Balance amounts are only ever written from inside ExecuteInTransaction,
// after the row has been fetched with GetBalanceForUpdate. That keeps every
// check-then-act sequence serialized per balance row.
type LedgerRepository interface {
	// Balance operations
	CreateBalance(balance *models.Balance) error
	GetBalanceByID(id uint) (*models.Balance, error)
	GetBalanceByOwnerID(ownerID uint) (*models.Balance, error)
	GetMasterBalance() (*models.Balance, error)
	// GetBalanceForUpdate fetches the balance row under a row-level
	// write lock. Only valid inside ExecuteInTransaction.
	GetBalanceForUpdate(id uint) (*models.Balance, error)
	UpdateBalanceAmount(id uint, amount decimal.Decimal) error

	// Transaction log operations. Rows are insert-only.
	CreateTransaction(tx *models.Transaction) error
	GetTransactionByID(id uint) (*models.Transaction, error)
	GetTransactionsByBalance(ctx context.Context, balanceID uint, limit, offset int) ([]models.Transaction, error)
	// SumExpenditures totals expenditure transactions against the given
	// courses within [start, end]. Used for bonus aggregation.
	SumExpenditures(ctx context.Context, courseIDs []uint, start, end time.Time) (decimal.Decimal, error)

	// ExecuteInTransaction runs fn against a transaction-scoped repository.
	// Everything fn does commits or rolls back as one unit.
	ExecuteInTransaction(fn func(LedgerRepository) error) error
}
