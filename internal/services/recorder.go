package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"campuscoin/internal/db"
	"campuscoin/internal/events"
	"campuscoin/internal/metrics"
	"campuscoin/internal/models"
	"campuscoin/internal/money"
	"campuscoin/internal/store"
)

type Delta struct {
	UserID      string
	Ledger      models.Ledger
	Amount      decimal.Decimal
	Kind        string
	Description string
}

type Entry struct {
	TransactionID string          `json:"transaction_id"`
	UserID        string          `json:"user_id"`
	Ledger        models.Ledger   `json:"ledger"`
	Kind          string          `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	NewBalance    decimal.Decimal `json:"new_balance"`
}

// Recorder is the only writer of wallet balances. Every change appends one
// ledger row carrying the resulting balance.
type Recorder struct {
	txRunner  db.TxRunner
	wallets   WalletStore
	ledger    LedgerStore
	locks     *accountLocks
	publisher *events.Publisher
	logger    *zap.Logger
}

func NewRecorder(txRunner db.TxRunner, wallets WalletStore, ledger LedgerStore, publisher *events.Publisher, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		txRunner:  txRunner,
		wallets:   wallets,
		ledger:    ledger,
		locks:     newAccountLocks(),
		publisher: publisher,
		logger:    logger,
	}
}

func (r *Recorder) ApplyDelta(ctx context.Context, delta Delta) (Entry, error) {
	delta, err := normalizeDelta(delta)
	if err != nil {
		metrics.LedgerRejections.WithLabelValues(rejectionReason(err)).Inc()
		return Entry{}, err
	}

	unlock := r.locks.Lock(delta.UserID)
	defer unlock()

	var entry Entry
	err = r.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		applied, err := r.applyInTx(ctx, tx, delta)
		if err != nil {
			return err
		}
		entry = applied
		return nil
	})
	if err != nil {
		metrics.LedgerRejections.WithLabelValues(rejectionReason(err)).Inc()
		return Entry{}, err
	}
	r.committed(entry)
	return entry, nil
}

// applyInTx runs on the caller's transaction. The caller must hold the
// account lock for delta.UserID and call committed after a successful commit.
func (r *Recorder) applyInTx(ctx context.Context, tx store.Tx, delta Delta) (Entry, error) {
	delta, err := normalizeDelta(delta)
	if err != nil {
		return Entry{}, err
	}
	wallet, err := r.wallets.GetForUpdate(ctx, tx, delta.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("lock wallet: %w", err)
	}

	entry := Entry{
		TransactionID: uuid.NewString(),
		UserID:        delta.UserID,
		Ledger:        delta.Ledger,
		Kind:          delta.Kind,
		Amount:        delta.Amount,
	}

	switch delta.Ledger {
	case models.LedgerCoin:
		amount := delta.Amount.IntPart()
		if amount > 0 && wallet.CoinBalance > math.MaxInt64-amount {
			return Entry{}, ErrInvalidAmount
		}
		newBalance := wallet.CoinBalance + amount
		if newBalance < 0 {
			return Entry{}, ErrInsufficientBalance
		}
		if err := r.wallets.UpdateCoinBalance(ctx, tx, delta.UserID, newBalance); err != nil {
			return Entry{}, fmt.Errorf("update coin balance: %w", err)
		}
		if err := r.ledger.InsertCoinTransaction(ctx, tx, store.CoinEntryInput{
			ID:           entry.TransactionID,
			UserID:       delta.UserID,
			Amount:       amount,
			Kind:         delta.Kind,
			Description:  delta.Description,
			BalanceAfter: newBalance,
		}); err != nil {
			return Entry{}, fmt.Errorf("insert coin transaction: %w", err)
		}
		entry.NewBalance = decimal.NewFromInt(newBalance)
	case models.LedgerMess:
		newBalance := wallet.MessBalance.Add(delta.Amount)
		if newBalance.IsNegative() {
			return Entry{}, ErrInsufficientBalance
		}
		if err := r.wallets.UpdateMessBalance(ctx, tx, delta.UserID, newBalance); err != nil {
			return Entry{}, fmt.Errorf("update mess balance: %w", err)
		}
		if err := r.ledger.InsertMessTransaction(ctx, tx, store.MessEntryInput{
			ID:           entry.TransactionID,
			UserID:       delta.UserID,
			Amount:       delta.Amount,
			Kind:         delta.Kind,
			Description:  delta.Description,
			BalanceAfter: newBalance,
		}); err != nil {
			return Entry{}, fmt.Errorf("insert mess transaction: %w", err)
		}
		entry.NewBalance = newBalance
	}
	return entry, nil
}

// committed publishes and counts entries whose transaction has committed.
func (r *Recorder) committed(entries ...Entry) {
	now := time.Now().UTC()
	for _, entry := range entries {
		metrics.LedgerMutations.WithLabelValues(string(entry.Ledger), entry.Kind).Inc()
		r.logger.Info("ledger entry recorded",
			zap.String("transaction_id", entry.TransactionID),
			zap.String("user_id", entry.UserID),
			zap.String("ledger", string(entry.Ledger)),
			zap.String("kind", entry.Kind),
			zap.String("amount", entry.Amount.String()),
			zap.String("new_balance", entry.NewBalance.String()),
		)
		r.publisher.Publish(events.SubjectLedgerRecorded, events.LedgerRecorded{
			TransactionID: entry.TransactionID,
			UserID:        entry.UserID,
			Ledger:        string(entry.Ledger),
			Kind:          entry.Kind,
			Amount:        entry.Amount.String(),
			NewBalance:    entry.NewBalance.String(),
			RecordedAt:    now,
		})
	}
}

func (r *Recorder) lock(userID string) func() {
	return r.locks.Lock(userID)
}

var maxCoinAmount = decimal.NewFromInt(math.MaxInt64)

func normalizeDelta(delta Delta) (Delta, error) {
	if delta.UserID == "" {
		return Delta{}, ErrNotFound
	}
	switch delta.Ledger {
	case models.LedgerCoin:
		if !delta.Amount.Equal(delta.Amount.Truncate(0)) || delta.Amount.Abs().GreaterThan(maxCoinAmount) {
			return Delta{}, ErrInvalidAmount
		}
	case models.LedgerMess:
		delta.Amount = money.Round(delta.Amount)
	default:
		return Delta{}, ErrInvalidLedger
	}
	if delta.Amount.IsZero() {
		return Delta{}, ErrInvalidAmount
	}
	return delta, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInvalidLedger):
		return "invalid_ledger"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "storage"
	}
}
