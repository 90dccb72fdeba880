package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is the current spendable amount owned by one user. Exactly one
// balance system-wide carries IsMaster: the clearing account that receives
// course payments and funds teacher bonuses.
//
// Amount never goes below zero; every mutation happens through ledger
// transaction recording, never by writing the row directly.
type Balance struct {
	ID        uint            `gorm:"primarykey"`
	OwnerID   uint            `gorm:"uniqueIndex;not null"`
	Amount    decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	Currency  string          `gorm:"default:'USD'"`
	IsMaster  bool            `gorm:"default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
