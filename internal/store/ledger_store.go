package store

import (
	"context"

	"github.com/shopspring/decimal"

	"campuscoin/internal/models"
)

type LedgerStore struct {
	db DB
}

type CoinEntryInput struct {
	ID           string
	UserID       string
	Amount       int64
	Kind         string
	Description  string
	BalanceAfter int64
}

type MessEntryInput struct {
	ID           string
	UserID       string
	Amount       decimal.Decimal
	Kind         string
	Description  string
	BalanceAfter decimal.Decimal
}

type CoinSummary struct {
	TotalEarned int64 `db:"total_earned" json:"total_earned"`
	TotalSpent  int64 `db:"total_spent" json:"total_spent"`
	Count       int64 `db:"transaction_count" json:"transaction_count"`
}

type MessSummary struct {
	TotalAdded decimal.Decimal `db:"total_added" json:"total_added"`
	TotalSpent decimal.Decimal `db:"total_spent" json:"total_spent"`
	Count      int64           `db:"transaction_count" json:"transaction_count"`
}

type ReconcileRow struct {
	UserID         string          `db:"user_id" json:"user_id"`
	Username       string          `db:"username" json:"username"`
	StoredCoins    int64           `db:"stored_coins" json:"stored_coins"`
	LedgerCoins    int64           `db:"ledger_coins" json:"ledger_coins"`
	CoinDifference int64           `db:"coin_difference" json:"coin_difference"`
	StoredMess     decimal.Decimal `db:"stored_mess" json:"stored_mess"`
	LedgerMess     decimal.Decimal `db:"ledger_mess" json:"ledger_mess"`
	MessDifference decimal.Decimal `db:"mess_difference" json:"mess_difference"`
}

func (r ReconcileRow) Balanced() bool {
	return r.CoinDifference == 0 && r.MessDifference.IsZero()
}

func NewLedgerStore(db DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) InsertCoinTransaction(ctx context.Context, tx Execer, entry CoinEntryInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO coin_transactions (id, user_id, amount, transaction_type, description, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.UserID, entry.Amount, entry.Kind, entry.Description, entry.BalanceAfter)
	return err
}

func (s *LedgerStore) InsertMessTransaction(ctx context.Context, tx Execer, entry MessEntryInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO mess_transactions (id, user_id, amount, transaction_type, description, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.UserID, entry.Amount, entry.Kind, entry.Description, entry.BalanceAfter)
	return err
}

func (s *LedgerStore) ListCoinByUser(ctx context.Context, userID string, limit int) ([]models.CoinTransaction, error) {
	var rows []models.CoinTransaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, amount, transaction_type, description, balance_after, created_at
		FROM coin_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, clampLimit(limit, 50, 500))
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *LedgerStore) ListMessByUser(ctx context.Context, userID string, limit int) ([]models.MessTransaction, error) {
	var rows []models.MessTransaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, amount, transaction_type, description, balance_after, created_at
		FROM mess_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, clampLimit(limit, 50, 500))
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *LedgerStore) CoinSummary(ctx context.Context, userID string) (CoinSummary, error) {
	var row CoinSummary
	err := s.db.GetContext(ctx, &row, `
		SELECT COALESCE(SUM(amount) FILTER (WHERE amount > 0), 0) AS total_earned,
		       COALESCE(-SUM(amount) FILTER (WHERE amount < 0), 0) AS total_spent,
		       COUNT(*) AS transaction_count
		FROM coin_transactions
		WHERE user_id = $1
	`, userID)
	return row, err
}

func (s *LedgerStore) MessSummary(ctx context.Context, userID string) (MessSummary, error) {
	var row MessSummary
	err := s.db.GetContext(ctx, &row, `
		SELECT COALESCE(SUM(amount) FILTER (WHERE amount > 0), 0) AS total_added,
		       COALESCE(-SUM(amount) FILTER (WHERE amount < 0), 0) AS total_spent,
		       COUNT(*) AS transaction_count
		FROM mess_transactions
		WHERE user_id = $1
	`, userID)
	return row, err
}

// Reconcile compares every wallet against the sum of its two ledgers.
func (s *LedgerStore) Reconcile(ctx context.Context) ([]ReconcileRow, error) {
	var rows []ReconcileRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT w.user_id,
		       u.username,
		       w.coin_balance AS stored_coins,
		       COALESCE(c.total, 0) AS ledger_coins,
		       w.coin_balance - COALESCE(c.total, 0) AS coin_difference,
		       w.mess_balance AS stored_mess,
		       COALESCE(m.total, 0) AS ledger_mess,
		       w.mess_balance - COALESCE(m.total, 0) AS mess_difference
		FROM wallets w
		JOIN users u ON u.id = w.user_id
		LEFT JOIN (SELECT user_id, SUM(amount) AS total FROM coin_transactions GROUP BY user_id) c ON c.user_id = w.user_id
		LEFT JOIN (SELECT user_id, SUM(amount) AS total FROM mess_transactions GROUP BY user_id) m ON m.user_id = w.user_id
		ORDER BY u.username
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
