package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"campuscoin/internal/db"
	"campuscoin/internal/metrics"
	"campuscoin/internal/models"
	"campuscoin/internal/money"
	"campuscoin/internal/settings"
)

type PaymentRequest struct {
	UserID      string
	Amount      decimal.Decimal
	Method      string
	CoinsToUse  int64
	Description string
}

type PaymentResult struct {
	Payment     models.MessPayment `json:"payment"`
	CoinBalance int64              `json:"coin_balance"`
	MessBalance decimal.Decimal    `json:"mess_balance"`
}

type MessService struct {
	txRunner db.TxRunner
	recorder *Recorder
	wallets  WalletStore
	payments MessPaymentStore
	audit    AuditStore
	settings settings.Provider
	logger   *zap.Logger
}

func NewMessService(txRunner db.TxRunner, recorder *Recorder, wallets WalletStore, payments MessPaymentStore, audit AuditStore, provider settings.Provider, logger *zap.Logger) *MessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessService{
		txRunner: txRunner,
		recorder: recorder,
		wallets:  wallets,
		payments: payments,
		audit:    audit,
		settings: provider,
		logger:   logger,
	}
}

func validPaymentMethod(method string) bool {
	switch method {
	case models.PaymentCoins, models.PaymentMess, models.PaymentCash, models.PaymentOnline:
		return true
	}
	return false
}

// Pay records a mess payment. Coins may cover part of the amount with the
// remainder settled in cash; only the coins needed are debited.
func (s *MessService) Pay(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	amount := money.Round(req.Amount)
	if !amount.IsPositive() {
		return PaymentResult{}, ErrInvalidAmount
	}
	if !validPaymentMethod(req.Method) {
		return PaymentResult{}, ErrInvalidPaymentMethod
	}

	payment := models.MessPayment{
		ID:            uuid.NewString(),
		UserID:        req.UserID,
		Amount:        amount,
		PaymentMethod: req.Method,
		CashAmount:    decimal.Zero,
		Status:        "completed",
		Description:   req.Description,
		PaymentDate:   time.Now().UTC(),
	}

	var delta *Delta
	switch req.Method {
	case models.PaymentCoins:
		if req.CoinsToUse <= 0 {
			return PaymentResult{}, ErrInvalidAmount
		}
		rate, err := s.settings.CoinToRupeeRate(ctx)
		if err != nil {
			return PaymentResult{}, fmt.Errorf("coin to rupee rate: %w", err)
		}
		coins := coinsNeeded(amount, rate)
		if req.CoinsToUse < coins {
			coins = req.CoinsToUse
		}
		payment.CoinsUsed = coins
		payment.CashAmount = decimal.Max(decimal.Zero, amount.Sub(money.CoinValue(coins, rate)))
		delta = &Delta{
			UserID:      req.UserID,
			Ledger:      models.LedgerCoin,
			Amount:      decimal.NewFromInt(-coins),
			Kind:        models.KindMessPayment,
			Description: fmt.Sprintf("Mess payment #%s", payment.ID),
		}
	case models.PaymentMess:
		description := req.Description
		if description == "" {
			description = "Meal payment"
		}
		delta = &Delta{
			UserID:      req.UserID,
			Ledger:      models.LedgerMess,
			Amount:      amount.Neg(),
			Kind:        models.KindDebit,
			Description: description,
		}
	default:
		payment.CashAmount = amount
	}

	unlock := s.recorder.lock(req.UserID)
	defer unlock()

	var result PaymentResult
	var entry *Entry
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		entry = nil
		wallet, err := s.wallets.GetForUpdate(ctx, tx, req.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock wallet: %w", err)
		}
		if req.Method == models.PaymentCoins && req.CoinsToUse > wallet.CoinBalance {
			return ErrInsufficientBalance
		}
		result = PaymentResult{Payment: payment, CoinBalance: wallet.CoinBalance, MessBalance: wallet.MessBalance}
		if delta != nil {
			applied, err := s.recorder.applyInTx(ctx, tx, *delta)
			if err != nil {
				return err
			}
			entry = &applied
			if applied.Ledger == models.LedgerCoin {
				result.CoinBalance = applied.NewBalance.IntPart()
			} else {
				result.MessBalance = applied.NewBalance
			}
		}
		if err := s.payments.Create(ctx, tx, payment); err != nil {
			return fmt.Errorf("insert mess payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return PaymentResult{}, err
	}
	if entry != nil {
		s.recorder.committed(*entry)
	}
	metrics.MessPayments.WithLabelValues(req.Method).Inc()
	return result, nil
}

// PayMeal debits the prepaid mess balance without a payment record.
func (s *MessService) PayMeal(ctx context.Context, userID string, amount decimal.Decimal, description string) (Entry, error) {
	if !amount.IsPositive() {
		return Entry{}, ErrInvalidAmount
	}
	if description == "" {
		description = "Meal payment"
	}
	return s.recorder.ApplyDelta(ctx, Delta{
		UserID:      userID,
		Ledger:      models.LedgerMess,
		Amount:      amount.Neg(),
		Kind:        models.KindDebit,
		Description: description,
	})
}

func (s *MessService) CreditCoins(ctx context.Context, adminID, userID string, coins int64, description string) (Entry, error) {
	if coins <= 0 {
		return Entry{}, ErrInvalidAmount
	}
	if description == "" {
		description = "Manual credit by admin"
	}
	return s.adminCredit(ctx, adminID, "credit_coins", Delta{
		UserID:      userID,
		Ledger:      models.LedgerCoin,
		Amount:      decimal.NewFromInt(coins),
		Kind:        models.KindCredit,
		Description: description,
	})
}

func (s *MessService) AddMessBalance(ctx context.Context, adminID, userID string, amount decimal.Decimal, description string) (Entry, error) {
	if !amount.IsPositive() {
		return Entry{}, ErrInvalidAmount
	}
	if description == "" {
		description = "Balance added by admin"
	}
	return s.adminCredit(ctx, adminID, "add_mess_balance", Delta{
		UserID:      userID,
		Ledger:      models.LedgerMess,
		Amount:      amount,
		Kind:        models.KindCredit,
		Description: description,
	})
}

func (s *MessService) adminCredit(ctx context.Context, adminID, action string, delta Delta) (Entry, error) {
	unlock := s.recorder.lock(delta.UserID)
	defer unlock()

	var entry Entry
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		applied, err := s.recorder.applyInTx(ctx, tx, delta)
		if err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"transaction_id": applied.TransactionID,
			"ledger":         string(applied.Ledger),
			"amount":         applied.Amount.String(),
		})
		if err := s.audit.Log(ctx, tx, adminID, action, "wallet", delta.UserID, string(data)); err != nil {
			return fmt.Errorf("audit %s: %w", action, err)
		}
		entry = applied
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	s.recorder.committed(entry)
	return entry, nil
}

// coinsNeeded is the smallest whole number of coins worth at least amount.
func coinsNeeded(amount, rate decimal.Decimal) int64 {
	return amount.Div(rate).Ceil().IntPart()
}
