package store

import (
	"context"

	"github.com/shopspring/decimal"
)

type ReportStore struct {
	db DB
}

type AttendanceReportRow struct {
	UserID      string `db:"user_id" json:"user_id"`
	Username    string `db:"username" json:"username"`
	FullName    string `db:"full_name" json:"full_name"`
	TotalDays   int64  `db:"total_days" json:"total_days"`
	PresentDays int64  `db:"present_days" json:"present_days"`
	AbsentDays  int64  `db:"absent_days" json:"absent_days"`
	LateDays    int64  `db:"late_days" json:"late_days"`
}

type FinancialReportRow struct {
	UserID         string          `db:"user_id" json:"user_id"`
	Username       string          `db:"username" json:"username"`
	FullName       string          `db:"full_name" json:"full_name"`
	CoinBalance    int64           `db:"coin_balance" json:"coin_balance"`
	MessBalance    decimal.Decimal `db:"mess_balance" json:"mess_balance"`
	TotalPayments  decimal.Decimal `db:"total_payments" json:"total_payments"`
	TotalCoinsUsed int64           `db:"total_coins_used" json:"total_coins_used"`
}

func NewReportStore(db DB) *ReportStore {
	return &ReportStore{db: db}
}

func (s *ReportStore) Attendance(ctx context.Context, from, to string) ([]AttendanceReportRow, error) {
	var rows []AttendanceReportRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT u.id AS user_id, u.username, u.full_name,
		       COUNT(a.id) AS total_days,
		       COUNT(a.id) FILTER (WHERE a.status = 'present') AS present_days,
		       COUNT(a.id) FILTER (WHERE a.status = 'absent') AS absent_days,
		       COUNT(a.id) FILTER (WHERE a.status = 'late') AS late_days
		FROM users u
		LEFT JOIN attendance a ON a.user_id = u.id AND a.date BETWEEN $1 AND $2
		WHERE u.role = 'student'
		GROUP BY u.id, u.username, u.full_name
		ORDER BY u.full_name, u.username
	`, from, to)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *ReportStore) Financial(ctx context.Context, from, to string) ([]FinancialReportRow, error) {
	var rows []FinancialReportRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT u.id AS user_id, u.username, u.full_name,
		       COALESCE(w.coin_balance, 0) AS coin_balance,
		       COALESCE(w.mess_balance, 0) AS mess_balance,
		       COALESCE(SUM(p.amount), 0) AS total_payments,
		       COALESCE(SUM(p.coins_used), 0) AS total_coins_used
		FROM users u
		LEFT JOIN wallets w ON w.user_id = u.id
		LEFT JOIN mess_payments p ON p.user_id = u.id AND p.payment_date::date BETWEEN $1 AND $2
		WHERE u.role = 'student'
		GROUP BY u.id, u.username, u.full_name, w.coin_balance, w.mess_balance
		ORDER BY u.full_name, u.username
	`, from, to)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
