package ledger

import (
	"context"

	"coursewallet/internal/models"

	"github.com/shopspring/decimal"
)

// RecordRequest describes one ledger insertion against a single balance.
type RecordRequest struct {
	BalanceID   uint
	Amount      decimal.Decimal
	Kind        models.TransactionKind
	Source      models.TransactionSource
	Description string
	CourseID    *uint
	BonusID     *uint
	Metadata    models.JSON
}

// TransferRequest describes an atomic two-party movement: a deduction from
// one balance and a matching credit to another, for the same amount.
type TransferRequest struct {
	FromBalanceID     uint
	ToBalanceID       uint
	Amount            decimal.Decimal
	DebitKind         models.TransactionKind
	CreditKind        models.TransactionKind
	Source            models.TransactionSource
	DebitDescription  string
	CreditDescription string
	CourseID          *uint
	BonusID           *uint
}

// TransferResult holds the two transaction rows a transfer produced.
type TransferResult struct {
	Debit  *models.Transaction
	Credit *models.Transaction
}

// Config holds configuration for the ledger service.
type Config struct {
	// DefaultCurrency is assigned to newly created balances.
	DefaultCurrency string
	// MasterOwnerID is the fixed system identity the master balance is
	// created against when first needed.
	MasterOwnerID uint
}

// CacheOperator is the balance read cache the service invalidates on
// every mutation.
type CacheOperator interface {
	GetBalance(ctx context.Context, ownerID uint) (*models.Balance, error)
	CacheBalance(ctx context.Context, balance *models.Balance) error
	InvalidateBalance(ctx context.Context, ownerID uint) error
}

// MetricsCollector defines the interface for collecting ledger metrics.
type MetricsCollector interface {
	RecordTransaction(kind string, amount decimal.Decimal)
	RecordError(operation, errType string)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordTransaction(string, decimal.Decimal) {}
func (n *NoopMetricsCollector) RecordError(string, string)                {}
