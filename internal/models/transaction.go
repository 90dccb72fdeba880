package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind is the closed set of monetary movements the ledger knows.
type TransactionKind string

const (
	KindDeposit     TransactionKind = "deposit"
	KindExpenditure TransactionKind = "expenditure"
	KindWithdraw    TransactionKind = "withdraw"
	KindBonus       TransactionKind = "bonus"
)

// Valid reports whether k is a known transaction kind.
func (k TransactionKind) Valid() bool {
	switch k {
	case KindDeposit, KindExpenditure, KindWithdraw, KindBonus:
		return true
	}
	return false
}

// IsCredit reports whether the kind increases the referenced balance.
// Deposits and bonus payouts add funds; expenditures and withdrawals deduct.
func (k TransactionKind) IsCredit() bool {
	return k == KindDeposit || k == KindBonus
}

// TransactionSource records who initiated the movement.
type TransactionSource string

const (
	SourceAutomatic  TransactionSource = "automatic"
	SourceAccountant TransactionSource = "accountant"
)

// Transaction is one immutable monetary movement affecting exactly one
// balance. Rows are only ever inserted; corrections are made by recording
// an offsetting transaction, never by editing or deleting.
type Transaction struct {
	ID          uint              `gorm:"primarykey"`
	BalanceID   uint              `gorm:"index;not null"`
	Amount      decimal.Decimal   `gorm:"type:numeric(14,2);not null"`
	Kind        TransactionKind   `gorm:"not null"`
	Source      TransactionSource `gorm:"not null"`
	Description string            `gorm:"not null"`
	Reference   string            `gorm:"uniqueIndex"` // external reference ID
	CourseID    *uint             `gorm:"index"`
	BonusID     *uint             `gorm:"index"`
	Metadata    JSON              `gorm:"type:jsonb"`
	CreatedAt   time.Time         `gorm:"index"`
}
