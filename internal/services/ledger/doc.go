/*
Package ledger owns all movement of money in the system: per-user balances
and the append-only transaction log that is their single source of truth.

Balances are never written directly. Every mutation goes through Record
(or TransferFunds for two-party moves), which inserts an immutable
transaction row and applies the matching balance change as one atomic
database transaction. If the change would take a balance below zero,
neither the row nor the balance change is committed.

Usage:

	svc := ledger.NewService(repo, cache, ledger.Config{}, nil)

	// Find or create a user's balance
	balance, err := svc.GetOrCreateBalance(ctx, userID)

	// Record a movement
	txn, err := svc.Record(ctx, ledger.RecordRequest{
	    BalanceID:   balance.ID,
	    Amount:      decimal.NewFromInt(100),
	    Kind:        models.KindDeposit,
	    Source:      models.SourceAccountant,
	    Description: "Deposit by accountant",
	})

	// Move money between two balances atomically
	result, err := svc.Transfer(ctx, ledger.TransferRequest{...})

Error handling:

Expected business outcomes are typed sentinel errors:
  - ErrInvalidAmount: non-positive amount supplied to a mutating call
  - ErrInsufficientFunds: a deduction would overdraft the balance
  - ErrAccessDenied: the acting user lacks the required role

Concurrency:

Every check-then-act sequence runs inside a database transaction holding
row-level write locks on the affected balances. Two-balance operations
acquire both locks in ascending balance-ID order so that concurrent
enrollment transfers and bonus payouts cannot deadlock on the master
balance.
*/
package ledger
