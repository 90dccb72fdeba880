package ledger

import (
	"context"
	"errors"
	"fmt"

	"coursewallet/internal/models"
	"coursewallet/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service defines the ledger service interface.
type Service interface {
	// Balance operations
	GetOrCreateBalance(ctx context.Context, ownerID uint) (*models.Balance, error)
	GetBalanceByOwner(ctx context.Context, ownerID uint) (*models.Balance, error)
	GetMasterBalance(ctx context.Context) (*models.Balance, error)
	HasSufficientFunds(ctx context.Context, balanceID uint, amount decimal.Decimal) (bool, error)

	// Ledger recording
	Record(ctx context.Context, req RecordRequest) (*models.Transaction, error)
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	CreateDeposit(ctx context.Context, actor models.Actor, userID uint, amount decimal.Decimal, description string) (*models.Transaction, error)

	// History
	GetHistory(ctx context.Context, balanceID uint, limit, offset int) ([]models.Transaction, error)
}

type service struct {
	repo    repositories.LedgerRepository
	cache   CacheOperator
	config  Config
	metrics MetricsCollector
}

// NewService creates a new ledger service.
func NewService(repo repositories.LedgerRepository, cache CacheOperator, config Config, metrics MetricsCollector) Service {
	if repo == nil {
		panic("repo is required")
	}
	if cache == nil {
		panic("cache is required")
	}

	if config.DefaultCurrency == "" {
		config.DefaultCurrency = "USD"
	}
	if config.MasterOwnerID == 0 {
		config.MasterOwnerID = 1
	}

	// Metrics is optional, create no-op collector if nil
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}

	return &service{
		repo:    repo,
		cache:   cache,
		config:  config,
		metrics: metrics,
	}
}

func (s *service) GetOrCreateBalance(ctx context.Context, ownerID uint) (*models.Balance, error) {
	if balance, err := s.cache.GetBalance(ctx, ownerID); err == nil && balance != nil {
		return balance, nil
	}

	balance, err := s.repo.GetBalanceByOwnerID(ownerID)
	if errors.Is(err, repositories.ErrBalanceNotFound) {
		balance = &models.Balance{
			OwnerID:  ownerID,
			Amount:   decimal.Zero,
			Currency: s.config.DefaultCurrency,
		}
		err = s.repo.CreateBalance(balance)
		if errors.Is(err, repositories.ErrDuplicateBalance) {
			// Lost a creation race; the row exists now.
			balance, err = s.repo.GetBalanceByOwnerID(ownerID)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get or create balance: %w", err)
	}

	s.cache.CacheBalance(ctx, balance)
	return balance, nil
}

func (s *service) GetBalanceByOwner(ctx context.Context, ownerID uint) (*models.Balance, error) {
	if balance, err := s.cache.GetBalance(ctx, ownerID); err == nil && balance != nil {
		return balance, nil
	}

	balance, err := s.repo.GetBalanceByOwnerID(ownerID)
	if err != nil {
		if errors.Is(err, repositories.ErrBalanceNotFound) {
			return nil, ErrBalanceNotFound
		}
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	s.cache.CacheBalance(ctx, balance)
	return balance, nil
}

func (s *service) GetMasterBalance(ctx context.Context) (*models.Balance, error) {
	balance, err := s.repo.GetMasterBalance()
	if errors.Is(err, repositories.ErrBalanceNotFound) {
		balance = &models.Balance{
			OwnerID:  s.config.MasterOwnerID,
			Amount:   decimal.Zero,
			Currency: s.config.DefaultCurrency,
			IsMaster: true,
		}
		err = s.repo.CreateBalance(balance)
		if errors.Is(err, repositories.ErrDuplicateBalance) {
			balance, err = s.repo.GetMasterBalance()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get master balance: %w", err)
	}
	return balance, nil
}

func (s *service) HasSufficientFunds(ctx context.Context, balanceID uint, amount decimal.Decimal) (bool, error) {
	if amount.IsNegative() {
		return false, ErrInvalidAmount
	}

	balance, err := s.repo.GetBalanceByID(balanceID)
	if err != nil {
		if errors.Is(err, repositories.ErrBalanceNotFound) {
			return false, ErrBalanceNotFound
		}
		return false, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance.Amount.GreaterThanOrEqual(amount), nil
}

func (s *service) Record(ctx context.Context, req RecordRequest) (*models.Transaction, error) {
	var (
		txn     *models.Transaction
		balance *models.Balance
	)
	err := s.repo.ExecuteInTransaction(func(tx repositories.LedgerRepository) error {
		var err error
		txn, balance, err = recordIn(tx, req)
		return err
	})
	if err != nil {
		s.metrics.RecordError("record", err.Error())
		return nil, err
	}

	s.cache.InvalidateBalance(ctx, balance.OwnerID)
	s.metrics.RecordTransaction(string(req.Kind), req.Amount)
	return txn, nil
}

func (s *service) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	var result *TransferResult
	err := s.repo.ExecuteInTransaction(func(tx repositories.LedgerRepository) error {
		var err error
		result, err = TransferFunds(tx, req)
		return err
	})
	if err != nil {
		s.metrics.RecordError("transfer", err.Error())
		return nil, err
	}

	s.invalidateTransferCaches(ctx, req)
	s.metrics.RecordTransaction(string(req.DebitKind), req.Amount)
	s.metrics.RecordTransaction(string(req.CreditKind), req.Amount)
	return result, nil
}

func (s *service) CreateDeposit(ctx context.Context, actor models.Actor, userID uint, amount decimal.Decimal, description string) (*models.Transaction, error) {
	if !actor.IsAccountant() {
		return nil, ErrAccessDenied
	}

	balance, err := s.repo.GetBalanceByOwnerID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrBalanceNotFound) {
			return nil, ErrBalanceNotFound
		}
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	if description == "" {
		description = "Deposit by accountant"
	}

	return s.Record(ctx, RecordRequest{
		BalanceID:   balance.ID,
		Amount:      amount,
		Kind:        models.KindDeposit,
		Source:      models.SourceAccountant,
		Description: description,
		Metadata:    models.JSON{"accountant_id": actor.UserID},
	})
}

func (s *service) GetHistory(ctx context.Context, balanceID uint, limit, offset int) ([]models.Transaction, error) {
	transactions, err := s.repo.GetTransactionsByBalance(ctx, balanceID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	return transactions, nil
}

func (s *service) invalidateTransferCaches(ctx context.Context, req TransferRequest) {
	for _, id := range []uint{req.FromBalanceID, req.ToBalanceID} {
		if balance, err := s.repo.GetBalanceByID(id); err == nil {
			s.cache.InvalidateBalance(ctx, balance.OwnerID)
		}
	}
}

// recordIn validates and applies one ledger insertion against a
// transaction-scoped repository. The transaction row and the balance
// mutation commit or roll back together with the surrounding transaction.
func recordIn(repo repositories.LedgerRepository, req RecordRequest) (*models.Transaction, *models.Balance, error) {
	if !req.Kind.Valid() {
		return nil, nil, ErrInvalidKind
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, ErrInvalidAmount
	}

	balance, err := repo.GetBalanceForUpdate(req.BalanceID)
	if err != nil {
		if errors.Is(err, repositories.ErrBalanceNotFound) {
			return nil, nil, ErrBalanceNotFound
		}
		return nil, nil, err
	}

	var newAmount decimal.Decimal
	if req.Kind.IsCredit() {
		newAmount = balance.Amount.Add(req.Amount)
	} else {
		newAmount = balance.Amount.Sub(req.Amount)
	}
	// amount >= 0 must hold after every mutation
	if newAmount.IsNegative() {
		return nil, nil, ErrInsufficientFunds
	}

	txn := &models.Transaction{
		BalanceID:   balance.ID,
		Amount:      req.Amount,
		Kind:        req.Kind,
		Source:      req.Source,
		Description: req.Description,
		Reference:   uuid.NewString(),
		CourseID:    req.CourseID,
		BonusID:     req.BonusID,
		Metadata:    req.Metadata,
	}
	if err := repo.CreateTransaction(txn); err != nil {
		return nil, nil, err
	}
	if err := repo.UpdateBalanceAmount(balance.ID, newAmount); err != nil {
		return nil, nil, err
	}
	balance.Amount = newAmount

	return txn, balance, nil
}

// TransferFunds moves req.Amount between two balances as two ledger rows
// inside the caller's transaction-scoped repository: a deduction from the
// source and a credit to the destination. Both rows and both balance
// mutations commit or roll back as one unit.
//
// Both balance rows are locked up front in ascending ID order, so a
// concurrent transfer touching the same pair in the opposite direction
// cannot deadlock.
func TransferFunds(repo repositories.LedgerRepository, req TransferRequest) (*TransferResult, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}
	if req.FromBalanceID == req.ToBalanceID {
		return nil, ErrSameBalance
	}
	if !req.DebitKind.Valid() || req.DebitKind.IsCredit() {
		return nil, ErrInvalidKind
	}
	if !req.CreditKind.Valid() || !req.CreditKind.IsCredit() {
		return nil, ErrInvalidKind
	}

	lockOrder := []uint{req.FromBalanceID, req.ToBalanceID}
	if lockOrder[1] < lockOrder[0] {
		lockOrder[0], lockOrder[1] = lockOrder[1], lockOrder[0]
	}
	for _, id := range lockOrder {
		if _, err := repo.GetBalanceForUpdate(id); err != nil {
			if errors.Is(err, repositories.ErrBalanceNotFound) {
				return nil, ErrBalanceNotFound
			}
			return nil, err
		}
	}

	debit, _, err := recordIn(repo, RecordRequest{
		BalanceID:   req.FromBalanceID,
		Amount:      req.Amount,
		Kind:        req.DebitKind,
		Source:      req.Source,
		Description: req.DebitDescription,
		CourseID:    req.CourseID,
		BonusID:     req.BonusID,
	})
	if err != nil {
		return nil, err
	}

	credit, _, err := recordIn(repo, RecordRequest{
		BalanceID:   req.ToBalanceID,
		Amount:      req.Amount,
		Kind:        req.CreditKind,
		Source:      req.Source,
		Description: req.CreditDescription,
		CourseID:    req.CourseID,
		BonusID:     req.BonusID,
	})
	if err != nil {
		return nil, err
	}

	return &TransferResult{Debit: debit, Credit: credit}, nil
}
