package store

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"campuscoin/internal/models"
)

type MessPaymentStore struct {
	db DB
}

type PaymentFilter struct {
	UserID string
	Method string
	From   string
	To     string
	Limit  int
}

type PaymentMethodStats struct {
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	Count         int64           `db:"payment_count" json:"payment_count"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	CoinsUsed     int64           `db:"coins_used" json:"coins_used"`
	CashAmount    decimal.Decimal `db:"cash_amount" json:"cash_amount"`
}

type PaymentWithUser struct {
	models.MessPayment
	Username string `db:"username" json:"username"`
}

func NewMessPaymentStore(db DB) *MessPaymentStore {
	return &MessPaymentStore{db: db}
}

func (s *MessPaymentStore) Create(ctx context.Context, tx Execer, p models.MessPayment) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO mess_payments (id, user_id, amount, payment_method, coins_used, cash_amount, status, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.UserID, p.Amount, p.PaymentMethod, p.CoinsUsed, p.CashAmount, p.Status, p.Description)
	return err
}

func (s *MessPaymentStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.MessPayment, error) {
	var rows []models.MessPayment
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, amount, payment_method, coins_used, cash_amount, status, description, payment_date
		FROM mess_payments
		WHERE user_id = $1
		ORDER BY payment_date DESC
		LIMIT $2
	`, userID, clampLimit(limit, 50, 500))
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *MessPaymentStore) List(ctx context.Context, filter PaymentFilter) ([]PaymentWithUser, error) {
	query := `
		SELECT p.id, p.user_id, p.amount, p.payment_method, p.coins_used, p.cash_amount,
		       p.status, p.description, p.payment_date, u.username
		FROM mess_payments p
		JOIN users u ON u.id = p.user_id
		WHERE 1 = 1`
	var args []any
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		query += fmt.Sprintf(` AND p.user_id = $%d`, len(args))
	}
	if filter.Method != "" {
		args = append(args, filter.Method)
		query += fmt.Sprintf(` AND p.payment_method = $%d`, len(args))
	}
	if filter.From != "" && filter.To != "" {
		args = append(args, filter.From, filter.To)
		query += fmt.Sprintf(` AND p.payment_date::date BETWEEN $%d AND $%d`, len(args)-1, len(args))
	}
	args = append(args, clampLimit(filter.Limit, 100, 1000))
	query += fmt.Sprintf(` ORDER BY p.payment_date DESC LIMIT $%d`, len(args))

	var rows []PaymentWithUser
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *MessPaymentStore) Stats(ctx context.Context) ([]PaymentMethodStats, error) {
	var rows []PaymentMethodStats
	err := s.db.SelectContext(ctx, &rows, `
		SELECT payment_method,
		       COUNT(*) AS payment_count,
		       COALESCE(SUM(amount), 0) AS total_amount,
		       COALESCE(SUM(coins_used), 0) AS coins_used,
		       COALESCE(SUM(cash_amount), 0) AS cash_amount
		FROM mess_payments
		GROUP BY payment_method
		ORDER BY payment_method
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
