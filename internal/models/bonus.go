package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BonusState is the lifecycle of a monthly teacher bonus record.
type BonusState string

const (
	BonusStateDraft      BonusState = "draft"
	BonusStateCalculated BonusState = "calculated"
	BonusStateSent       BonusState = "sent"
)

// DefaultBonusPercentage is the share of course revenue paid out to the
// teacher when no explicit percentage is set on the record.
const DefaultBonusPercentage = 70.0

// Bonus is a per-teacher, per-calendar-month payout derived from the
// expenditure transactions on that teacher's courses. Unique per
// (teacher, year, month); transitions draft -> calculated -> sent, and a
// sent bonus is final.
type Bonus struct {
	ID            uint            `gorm:"primarykey"`
	TeacherID     uint            `gorm:"not null;uniqueIndex:idx_bonus_teacher_month"`
	Year          int             `gorm:"not null;uniqueIndex:idx_bonus_teacher_month"`
	Month         int             `gorm:"not null;uniqueIndex:idx_bonus_teacher_month"`
	Percentage    float64         `gorm:"default:70"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	State         BonusState      `gorm:"default:'draft'"`
	Sent          bool            `gorm:"default:false"`
	TransactionID *uint
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DisplayName is the human-readable label used in payout descriptions.
func (b *Bonus) DisplayName() string {
	return fmt.Sprintf("%d/%d", b.Month, b.Year)
}

// Period returns the first and last instants of the bonus month in UTC.
func (b *Bonus) Period() (start, end time.Time) {
	start = time.Date(b.Year, time.Month(b.Month), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}
