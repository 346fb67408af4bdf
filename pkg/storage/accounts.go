package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/soypete/autopilot/pkg/credits"
)

// CreateAccount inserts an account.
func (s *SQLStore) CreateAccount(ctx context.Context, a *Account) error {
	a.ID = newID(a.ID)
	a.CreatedAt = now()
	a.UpdatedAt = a.CreatedAt

	_, err := s.exec(ctx, `
		INSERT INTO accounts (id, email, subscription_credits, topup_credits, unlimited, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.Email, a.SubscriptionCredits, a.TopUpCredits, a.Unlimited, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by ID.
func (s *SQLStore) GetAccount(ctx context.Context, id string) (*Account, error) {
	a := &Account{}
	err := s.queryRow(ctx, `
		SELECT id, email, subscription_credits, topup_credits, unlimited, created_at, updated_at
		FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.Email, &a.SubscriptionCredits, &a.TopUpCredits, &a.Unlimited, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "account", id)
	}
	return a, nil
}

// Balance returns the account's credit buckets.
func (s *SQLStore) Balance(ctx context.Context, accountID string) (credits.Balance, error) {
	a, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return credits.Balance{}, err
	}
	return a.Balance(), nil
}

// DeductCredits charges cost inside a transaction. The update only applies
// when both buckets still hold the values that were read, so a concurrent
// charge forces a re-read instead of an overdraw.
func (s *SQLStore) DeductCredits(ctx context.Context, accountID string, cost int, memo string) (credits.Balance, error) {
	for attempt := 0; attempt < maxDeductAttempts; attempt++ {
		bal, err := s.tryDeduct(ctx, accountID, cost, memo)
		if errors.Is(err, ErrConflict) {
			continue
		}
		return bal, err
	}
	return credits.Balance{}, fmt.Errorf("deduct %d from %s: %w", cost, accountID, ErrConflict)
}

func (s *SQLStore) tryDeduct(ctx context.Context, accountID string, cost int, memo string) (credits.Balance, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return credits.Balance{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var bal credits.Balance
	err = tx.QueryRowContext(ctx, s.db.Rebind(
		`SELECT subscription_credits, topup_credits, unlimited FROM accounts WHERE id = $1`), accountID,
	).Scan(&bal.Subscription, &bal.TopUp, &bal.Unlimited)
	if err != nil {
		return credits.Balance{}, notFound(err, "account", accountID)
	}
	if bal.Unlimited {
		return bal, nil
	}

	sub, top, err := credits.Deduct(bal.Subscription, bal.TopUp, cost)
	if err != nil {
		return bal, err
	}

	ts := now()
	res, err := tx.ExecContext(ctx, s.db.Rebind(`
		UPDATE accounts SET subscription_credits = $1, topup_credits = $2, updated_at = $3
		WHERE id = $4 AND subscription_credits = $5 AND topup_credits = $6`),
		sub, top, ts, accountID, bal.Subscription, bal.TopUp,
	)
	if err != nil {
		return bal, fmt.Errorf("failed to update balance: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return bal, err
	} else if n == 0 {
		return bal, ErrConflict
	}

	_, err = tx.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO credit_transactions (id, account_id, amount, memo, subscription_after, topup_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`),
		newID(""), accountID, -cost, memo, sub, top, ts,
	)
	if err != nil {
		return bal, fmt.Errorf("failed to record transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return bal, fmt.Errorf("failed to commit deduction: %w", err)
	}
	return credits.Balance{Subscription: sub, TopUp: top}, nil
}

// CreditTransactions lists an account's ledger, oldest first.
func (s *SQLStore) CreditTransactions(ctx context.Context, accountID string) ([]CreditTransaction, error) {
	rows, err := s.query(ctx, `
		SELECT id, account_id, amount, memo, subscription_after, topup_after, created_at
		FROM credit_transactions WHERE account_id = $1 ORDER BY created_at, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var out []CreditTransaction
	for rows.Next() {
		var t CreditTransaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Amount, &t.Memo, &t.SubscriptionAfter, &t.TopUpAfter, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
