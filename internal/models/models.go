package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

type Ledger string

const (
	LedgerCoin Ledger = "coin"
	LedgerMess Ledger = "mess"
)

const (
	KindCredit       = "credit"
	KindDebit        = "debit"
	KindWeeklyCredit = "weekly_credit"
	KindMessPayment  = "mess_payment"
	KindRedemption   = "redemption"
)

const (
	RedemptionMessCredit = "mess_credit"
	RedemptionVoucher    = "voucher"
	RedemptionOther      = "other"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"
)

const (
	PaymentCoins  = "coins"
	PaymentMess   = "mess"
	PaymentCash   = "cash"
	PaymentOnline = "online"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	FullName     string    `db:"full_name" json:"full_name"`
	Role         string    `db:"role" json:"role"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Wallet struct {
	UserID      string          `db:"user_id" json:"user_id"`
	CoinBalance int64           `db:"coin_balance" json:"coin_balance"`
	MessBalance decimal.Decimal `db:"mess_balance" json:"mess_balance"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

type CoinTransaction struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	Amount          int64     `db:"amount" json:"amount"`
	TransactionType string    `db:"transaction_type" json:"transaction_type"`
	Description     string    `db:"description" json:"description"`
	BalanceAfter    int64     `db:"balance_after" json:"balance_after"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

type MessTransaction struct {
	ID              string          `db:"id" json:"id"`
	UserID          string          `db:"user_id" json:"user_id"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	TransactionType string          `db:"transaction_type" json:"transaction_type"`
	Description     string          `db:"description" json:"description"`
	BalanceAfter    decimal.Decimal `db:"balance_after" json:"balance_after"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

type WeeklyCredit struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	WeekStartDate   string    `db:"week_start_date" json:"week_start_date"`
	WeekEndDate     string    `db:"week_end_date" json:"week_end_date"`
	CoinsCredited   int64     `db:"coins_credited" json:"coins_credited"`
	AttendanceCount int64     `db:"attendance_count" json:"attendance_count"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

type Redemption struct {
	ID             string              `db:"id" json:"id"`
	UserID         string              `db:"user_id" json:"user_id"`
	CoinsRedeemed  int64               `db:"coins_redeemed" json:"coins_redeemed"`
	RedemptionType string              `db:"redemption_type" json:"redemption_type"`
	AmountCredited decimal.NullDecimal `db:"amount_credited" json:"amount_credited"`
	Status         string              `db:"status" json:"status"`
	Notes          string              `db:"notes" json:"notes"`
	RequestedAt    time.Time           `db:"requested_at" json:"requested_at"`
	ProcessedAt    *time.Time          `db:"processed_at" json:"processed_at,omitempty"`
	ProcessedBy    *string             `db:"processed_by" json:"processed_by,omitempty"`
}

type Attendance struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Date      string    `db:"date" json:"date"`
	Status    string    `db:"status" json:"status"`
	MarkedBy  *string   `db:"marked_by" json:"marked_by,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type MessPayment struct {
	ID            string          `db:"id" json:"id"`
	UserID        string          `db:"user_id" json:"user_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	CoinsUsed     int64           `db:"coins_used" json:"coins_used"`
	CashAmount    decimal.Decimal `db:"cash_amount" json:"cash_amount"`
	Status        string          `db:"status" json:"status"`
	Description   string          `db:"description" json:"description"`
	PaymentDate   time.Time       `db:"payment_date" json:"payment_date"`
}

type Setting struct {
	Key       string    `db:"setting_key" json:"setting_key"`
	Value     string    `db:"setting_value" json:"setting_value"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
