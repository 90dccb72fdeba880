package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coursewallet/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// pgUniqueViolation is the postgres error code for unique constraint breaks.
const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) CreateBalance(balance *models.Balance) error {
	if err := r.db.Create(balance).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateBalance
		}
		return fmt.Errorf("failed to create balance: %w", err)
	}
	return nil
}

func (r *ledgerRepository) GetBalanceByID(id uint) (*models.Balance, error) {
	var balance models.Balance
	if err := r.db.First(&balance, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBalanceNotFound
		}
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return &balance, nil
}

func (r *ledgerRepository) GetBalanceByOwnerID(ownerID uint) (*models.Balance, error) {
	var balance models.Balance
	if err := r.db.Where("owner_id = ?", ownerID).First(&balance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBalanceNotFound
		}
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return &balance, nil
}

func (r *ledgerRepository) GetMasterBalance() (*models.Balance, error) {
	var balance models.Balance
	if err := r.db.Where("is_master = ?", true).First(&balance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBalanceNotFound
		}
		return nil, fmt.Errorf("failed to get master balance: %w", err)
	}
	return &balance, nil
}

func (r *ledgerRepository) GetBalanceForUpdate(id uint) (*models.Balance, error) {
	var balance models.Balance
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&balance, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBalanceNotFound
		}
		return nil, fmt.Errorf("failed to lock balance: %w", err)
	}
	return &balance, nil
}

func (r *ledgerRepository) UpdateBalanceAmount(id uint, amount decimal.Decimal) error {
	result := r.db.Model(&models.Balance{}).
		Where("id = ?", id).
		Update("amount", amount)
	if result.Error != nil {
		return fmt.Errorf("failed to update balance amount: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBalanceNotFound
	}
	return nil
}

func (r *ledgerRepository) CreateTransaction(tx *models.Transaction) error {
	if err := r.db.Create(tx).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *ledgerRepository) GetTransactionByID(id uint) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.First(&tx, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

func (r *ledgerRepository) GetTransactionsByBalance(ctx context.Context, balanceID uint, limit, offset int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := r.db.WithContext(ctx).
		Where("balance_id = ?", balanceID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&transactions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	return transactions, nil
}

func (r *ledgerRepository) SumExpenditures(ctx context.Context, courseIDs []uint, start, end time.Time) (decimal.Decimal, error) {
	if len(courseIDs) == 0 {
		return decimal.Zero, nil
	}

	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("course_id IN ? AND kind = ? AND created_at BETWEEN ? AND ?",
			courseIDs, models.KindExpenditure, start, end).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum expenditures: %w", err)
	}
	return total, nil
}

func (r *ledgerRepository) ExecuteInTransaction(fn func(LedgerRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerRepository{db: tx})
	})
}
