package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"campuscoin/internal/models"
)

type WalletStore struct {
	db DB
}

type WalletWithUser struct {
	UserID      string          `db:"user_id" json:"user_id"`
	Username    string          `db:"username" json:"username"`
	Email       string          `db:"email" json:"email"`
	FullName    string          `db:"full_name" json:"full_name"`
	Role        string          `db:"role" json:"role"`
	CoinBalance int64           `db:"coin_balance" json:"coin_balance"`
	MessBalance decimal.Decimal `db:"mess_balance" json:"mess_balance"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

type WalletTotals struct {
	Users       int64           `db:"users" json:"users"`
	Students    int64           `db:"students" json:"students"`
	CoinBalance int64           `db:"coin_balance" json:"total_coin_balance"`
	MessBalance decimal.Decimal `db:"mess_balance" json:"total_mess_balance"`
}

func NewWalletStore(db DB) *WalletStore {
	return &WalletStore{db: db}
}

func (s *WalletStore) Create(ctx context.Context, tx Execer, userID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (user_id, coin_balance, mess_balance)
		VALUES ($1, 0, 0)
	`, userID)
	return err
}

func (s *WalletStore) GetByUser(ctx context.Context, userID string) (models.Wallet, error) {
	var row models.Wallet
	err := s.db.GetContext(ctx, &row, `
		SELECT user_id, coin_balance, mess_balance, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
	`, userID)
	return row, err
}

func (s *WalletStore) GetForUpdate(ctx context.Context, tx Getter, userID string) (models.Wallet, error) {
	var row models.Wallet
	err := tx.GetContext(ctx, &row, `
		SELECT user_id, coin_balance, mess_balance, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
		FOR UPDATE
	`, userID)
	return row, err
}

func (s *WalletStore) UpdateCoinBalance(ctx context.Context, tx Execer, userID string, balance int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET coin_balance = $1, updated_at = NOW()
		WHERE user_id = $2
	`, balance, userID)
	if err != nil {
		return err
	}
	return requireRows(res)
}

func (s *WalletStore) UpdateMessBalance(ctx context.Context, tx Execer, userID string, balance decimal.Decimal) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET mess_balance = $1, updated_at = NOW()
		WHERE user_id = $2
	`, balance, userID)
	if err != nil {
		return err
	}
	return requireRows(res)
}

// ListWithUsers filters by role and a username/email/full name search when those are set.
func (s *WalletStore) ListWithUsers(ctx context.Context, role, search string, limit int) ([]WalletWithUser, error) {
	var rows []WalletWithUser
	err := s.db.SelectContext(ctx, &rows, `
		SELECT u.id AS user_id, u.username, u.email, u.full_name, u.role,
		       COALESCE(w.coin_balance, 0) AS coin_balance,
		       COALESCE(w.mess_balance, 0) AS mess_balance,
		       u.created_at
		FROM users u
		LEFT JOIN wallets w ON w.user_id = u.id
		WHERE ($1 = '' OR u.role = $1)
		  AND ($2 = '' OR u.username ILIKE '%' || $2 || '%' OR u.email ILIKE '%' || $2 || '%' OR u.full_name ILIKE '%' || $2 || '%')
		ORDER BY u.created_at DESC
		LIMIT $3
	`, role, search, clampLimit(limit, 100, 500))
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *WalletStore) Totals(ctx context.Context) (WalletTotals, error) {
	var row WalletTotals
	err := s.db.GetContext(ctx, &row, `
		SELECT COUNT(u.id) AS users,
		       COUNT(u.id) FILTER (WHERE u.role = 'student') AS students,
		       COALESCE(SUM(w.coin_balance), 0) AS coin_balance,
		       COALESCE(SUM(w.mess_balance), 0) AS mess_balance
		FROM users u
		LEFT JOIN wallets w ON w.user_id = u.id
	`)
	return row, err
}
