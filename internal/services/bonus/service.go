// Package bonus computes monthly teacher performance bonuses from ledger
// history and pays them out from the master balance.
//
// A bonus is unique per (teacher, year, month). Its amount is always
// derived fresh: a percentage of the expenditure transactions recorded
// against the teacher's courses during the calendar month. Paying out is
// a one-shot transition; a sent bonus rejects every further send.
package bonus

import (
	"context"
	"errors"
	"fmt"

	"coursewallet/internal/models"
	"coursewallet/internal/repositories"
	"coursewallet/internal/services/ledger"

	"github.com/shopspring/decimal"
)

// Service defines the bonus calculator interface.
type Service interface {
	// Compute derives (or re-derives) the bonus amount for one teacher
	// and month, creating the record in draft state if missing.
	Compute(ctx context.Context, actor models.Actor, teacherID uint, year, month int) (*models.Bonus, error)
	// Send pays a calculated bonus out of the master balance. Exactly one
	// concurrent send succeeds; the rest observe ErrAlreadySent.
	Send(ctx context.Context, actor models.Actor, bonusID uint) (*models.Transaction, error)
	// ComputeAll creates missing draft records for every teacher for the
	// given month. Idempotent: existing records are left untouched.
	ComputeAll(ctx context.Context, actor models.Actor, year, month int) (int, error)
	List(ctx context.Context, actor models.Actor, limit, offset int) ([]models.Bonus, error)
	Get(ctx context.Context, actor models.Actor, bonusID uint) (*models.Bonus, error)
}

type service struct {
	store     repositories.Store
	ledgerSvc ledger.Service
	cache     ledger.CacheOperator
}

// NewService creates a new bonus service.
func NewService(store repositories.Store, ledgerSvc ledger.Service, cache ledger.CacheOperator) Service {
	if store == nil {
		panic("store is required")
	}
	if ledgerSvc == nil {
		panic("ledger service is required")
	}
	if cache == nil {
		panic("cache is required")
	}
	return &service{
		store:     store,
		ledgerSvc: ledgerSvc,
		cache:     cache,
	}
}

func (s *service) Compute(ctx context.Context, actor models.Actor, teacherID uint, year, month int) (*models.Bonus, error) {
	if !actor.IsAccountant() {
		return nil, ErrAccessDenied
	}
	if month < 1 || month > 12 || year < 1 {
		return nil, ErrInvalidPeriod
	}

	bonus, err := s.findOrCreate(teacherID, year, month)
	if err != nil {
		return nil, err
	}
	if bonus.Sent {
		return nil, ErrAlreadySent
	}

	courseIDs, err := s.store.Courses().GetIDsByTeacher(teacherID)
	if err != nil {
		return nil, err
	}

	start, end := bonus.Period()
	total, err := s.store.Ledger().SumExpenditures(ctx, courseIDs, start, end)
	if err != nil {
		return nil, err
	}

	pct := decimal.NewFromFloat(bonus.Percentage).Div(decimal.NewFromInt(100))
	bonus.Amount = total.Mul(pct).Round(2)
	bonus.State = models.BonusStateCalculated

	if err := s.store.Bonuses().Update(bonus); err != nil {
		return nil, err
	}
	return bonus, nil
}

func (s *service) Send(ctx context.Context, actor models.Actor, bonusID uint) (*models.Transaction, error) {
	if !actor.IsAccountant() {
		return nil, ErrAccessDenied
	}

	// Resolve both balances before the payout transaction; creation is
	// idempotent so a lost race here is harmless.
	peek, err := s.store.Bonuses().GetByID(bonusID)
	if err != nil {
		if errors.Is(err, repositories.ErrBonusNotFound) {
			return nil, ErrBonusNotFound
		}
		return nil, err
	}
	masterBalance, err := s.ledgerSvc.GetMasterBalance(ctx)
	if err != nil {
		return nil, err
	}
	teacherBalance, err := s.ledgerSvc.GetOrCreateBalance(ctx, peek.TeacherID)
	if err != nil {
		return nil, err
	}

	teacher, err := s.store.Users().GetByID(peek.TeacherID)
	if err != nil {
		return nil, err
	}

	var payout *models.Transaction
	err = s.store.ExecuteInTransaction(func(tx repositories.Store) error {
		// The row lock serializes concurrent sends on the same bonus.
		bonus, err := tx.Bonuses().GetForUpdate(bonusID)
		if err != nil {
			if errors.Is(err, repositories.ErrBonusNotFound) {
				return ErrBonusNotFound
			}
			return err
		}
		if bonus.Sent {
			return ErrAlreadySent
		}
		if bonus.Amount.LessThanOrEqual(decimal.Zero) {
			return ErrNonPositiveAmount
		}

		result, err := ledger.TransferFunds(tx.Ledger(), ledger.TransferRequest{
			FromBalanceID:     masterBalance.ID,
			ToBalanceID:       teacherBalance.ID,
			Amount:            bonus.Amount,
			DebitKind:         models.KindExpenditure,
			CreditKind:        models.KindBonus,
			Source:            models.SourceAccountant,
			DebitDescription:  fmt.Sprintf("Bonus payout to %s for %s", teacher.Name, bonus.DisplayName()),
			CreditDescription: fmt.Sprintf("Bonus for %s", bonus.DisplayName()),
			BonusID:           &bonus.ID,
		})
		if err != nil {
			if errors.Is(err, ledger.ErrInsufficientFunds) {
				return ErrInsufficientMasterFunds
			}
			return err
		}

		payout = result.Credit
		bonus.Sent = true
		bonus.State = models.BonusStateSent
		bonus.TransactionID = &payout.ID
		return tx.Bonuses().Update(bonus)
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateBalance(ctx, masterBalance.OwnerID)
	s.cache.InvalidateBalance(ctx, teacherBalance.OwnerID)
	return payout, nil
}

func (s *service) ComputeAll(ctx context.Context, actor models.Actor, year, month int) (int, error) {
	if !actor.IsAccountant() {
		return 0, ErrAccessDenied
	}
	if month < 1 || month > 12 || year < 1 {
		return 0, ErrInvalidPeriod
	}

	// Teachers holding the master balance never receive bonuses.
	var exclude []uint
	if master, err := s.store.Ledger().GetMasterBalance(); err == nil {
		exclude = append(exclude, master.OwnerID)
	}

	teacherIDs, err := s.store.Users().GetTeacherIDs(exclude)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, teacherID := range teacherIDs {
		_, err := s.store.Bonuses().GetByTeacherMonth(teacherID, year, month)
		if err == nil {
			continue
		}
		if !errors.Is(err, repositories.ErrBonusNotFound) {
			return created, err
		}

		draft := &models.Bonus{
			TeacherID:  teacherID,
			Year:       year,
			Month:      month,
			Percentage: models.DefaultBonusPercentage,
			Amount:     decimal.Zero,
			State:      models.BonusStateDraft,
		}
		err = s.store.Bonuses().Create(draft)
		if errors.Is(err, repositories.ErrDuplicateBonus) {
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func (s *service) List(ctx context.Context, actor models.Actor, limit, offset int) ([]models.Bonus, error) {
	if !actor.IsAccountant() {
		return nil, ErrAccessDenied
	}
	return s.store.Bonuses().List(limit, offset)
}

func (s *service) Get(ctx context.Context, actor models.Actor, bonusID uint) (*models.Bonus, error) {
	if !actor.IsAccountant() {
		return nil, ErrAccessDenied
	}
	bonus, err := s.store.Bonuses().GetByID(bonusID)
	if err != nil {
		if errors.Is(err, repositories.ErrBonusNotFound) {
			return nil, ErrBonusNotFound
		}
		return nil, err
	}
	return bonus, nil
}

func (s *service) findOrCreate(teacherID uint, year, month int) (*models.Bonus, error) {
	bonus, err := s.store.Bonuses().GetByTeacherMonth(teacherID, year, month)
	if err == nil {
		return bonus, nil
	}
	if !errors.Is(err, repositories.ErrBonusNotFound) {
		return nil, err
	}

	bonus = &models.Bonus{
		TeacherID:  teacherID,
		Year:       year,
		Month:      month,
		Percentage: models.DefaultBonusPercentage,
		Amount:     decimal.Zero,
		State:      models.BonusStateDraft,
	}
	err = s.store.Bonuses().Create(bonus)
	if errors.Is(err, repositories.ErrDuplicateBonus) {
		return s.store.Bonuses().GetByTeacherMonth(teacherID, year, month)
	}
	if err != nil {
		return nil, err
	}
	return bonus, nil
}
