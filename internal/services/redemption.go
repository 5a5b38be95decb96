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
	"campuscoin/internal/events"
	"campuscoin/internal/metrics"
	"campuscoin/internal/models"
	"campuscoin/internal/money"
	"campuscoin/internal/settings"
	"campuscoin/internal/store"
)

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

type RedemptionRequest struct {
	UserID string
	Coins  int64
	Type   string
	Notes  string
}

type ProcessRequest struct {
	ID      string
	Action  string
	AdminID string
	Notes   string
}

type ProcessResult struct {
	Redemption models.Redemption `json:"redemption"`
	Entries    []Entry           `json:"entries,omitempty"`
}

type RedemptionService struct {
	txRunner    db.TxRunner
	recorder    *Recorder
	wallets     WalletStore
	redemptions RedemptionStore
	audit       AuditStore
	settings    settings.Provider
	publisher   *events.Publisher
	logger      *zap.Logger
}

func NewRedemptionService(txRunner db.TxRunner, recorder *Recorder, wallets WalletStore, redemptions RedemptionStore, audit AuditStore, provider settings.Provider, publisher *events.Publisher, logger *zap.Logger) *RedemptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedemptionService{
		txRunner:    txRunner,
		recorder:    recorder,
		wallets:     wallets,
		redemptions: redemptions,
		audit:       audit,
		settings:    provider,
		publisher:   publisher,
		logger:      logger,
	}
}

func validRedemptionType(value string) bool {
	switch value {
	case models.RedemptionMessCredit, models.RedemptionVoucher, models.RedemptionOther:
		return true
	}
	return false
}

// RequestRedemption records a pending request. Balances are untouched until approval.
func (s *RedemptionService) RequestRedemption(ctx context.Context, req RedemptionRequest) (models.Redemption, error) {
	if req.Coins <= 0 {
		return models.Redemption{}, ErrInvalidAmount
	}
	if !validRedemptionType(req.Type) {
		return models.Redemption{}, ErrInvalidRedemptionType
	}
	minCoins, err := s.settings.MinRedemptionCoins(ctx)
	if err != nil {
		return models.Redemption{}, fmt.Errorf("min redemption coins: %w", err)
	}
	if req.Coins < minCoins {
		return models.Redemption{}, ErrBelowMinimum
	}

	redemption := models.Redemption{
		ID:             uuid.NewString(),
		UserID:         req.UserID,
		CoinsRedeemed:  req.Coins,
		RedemptionType: req.Type,
		Status:         models.StatusPending,
		Notes:          req.Notes,
		RequestedAt:    time.Now().UTC(),
	}
	if req.Type == models.RedemptionMessCredit {
		rate, err := s.settings.CoinToRupeeRate(ctx)
		if err != nil {
			return models.Redemption{}, fmt.Errorf("coin to rupee rate: %w", err)
		}
		amount := money.CoinValue(req.Coins, rate)
		if !amount.IsPositive() {
			return models.Redemption{}, ErrInvalidAmount
		}
		redemption.AmountCredited = decimal.NewNullDecimal(amount)
	}

	unlock := s.recorder.lock(req.UserID)
	defer unlock()

	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		wallet, err := s.wallets.GetForUpdate(ctx, tx, req.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock wallet: %w", err)
		}
		if req.Coins > wallet.CoinBalance {
			return ErrInsufficientBalance
		}
		return s.redemptions.Create(ctx, tx, redemption)
	})
	if err != nil {
		return models.Redemption{}, err
	}
	metrics.RedemptionTransitions.WithLabelValues(models.StatusPending).Inc()
	s.logger.Info("redemption requested",
		zap.String("redemption_id", redemption.ID),
		zap.String("user_id", req.UserID),
		zap.Int64("coins", req.Coins),
		zap.String("type", req.Type),
	)
	return redemption, nil
}

// ProcessRedemption moves a pending redemption to approved or rejected.
// Approval debits coins and, for mess_credit, credits the mess balance in the
// same transaction as the status change.
func (s *RedemptionService) ProcessRedemption(ctx context.Context, req ProcessRequest) (ProcessResult, error) {
	if req.Action != ActionApprove && req.Action != ActionReject {
		return ProcessResult{}, ErrInvalidAction
	}
	current, err := s.redemptions.GetByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ProcessResult{}, ErrNotFound
		}
		return ProcessResult{}, fmt.Errorf("load redemption: %w", err)
	}
	if current.Status != models.StatusPending {
		return ProcessResult{}, ErrAlreadyProcessed
	}

	unlock := s.recorder.lock(current.UserID)
	defer unlock()

	var result ProcessResult
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		result = ProcessResult{}
		redemption, err := s.redemptions.GetForUpdate(ctx, tx, req.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock redemption: %w", err)
		}
		if redemption.Status != models.StatusPending {
			return ErrAlreadyProcessed
		}

		notes := req.Notes
		if notes == "" {
			notes = redemption.Notes
		}
		status := models.StatusRejected
		if req.Action == ActionApprove {
			status = models.StatusApproved
			debit, err := s.recorder.applyInTx(ctx, tx, Delta{
				UserID:      redemption.UserID,
				Ledger:      models.LedgerCoin,
				Amount:      decimal.NewFromInt(-redemption.CoinsRedeemed),
				Kind:        models.KindRedemption,
				Description: fmt.Sprintf("Redemption #%s", redemption.ID),
			})
			if err != nil {
				return err
			}
			result.Entries = append(result.Entries, debit)

			if redemption.RedemptionType == models.RedemptionMessCredit && redemption.AmountCredited.Valid && redemption.AmountCredited.Decimal.IsPositive() {
				credit, err := s.recorder.applyInTx(ctx, tx, Delta{
					UserID:      redemption.UserID,
					Ledger:      models.LedgerMess,
					Amount:      redemption.AmountCredited.Decimal,
					Kind:        models.KindCredit,
					Description: fmt.Sprintf("Coin redemption #%s", redemption.ID),
				})
				if err != nil {
					return err
				}
				result.Entries = append(result.Entries, credit)
			}
		}

		if err := s.redemptions.MarkProcessed(ctx, tx, redemption.ID, status, req.AdminID, notes); err != nil {
			if errors.Is(err, store.ErrNoRowsAffected) {
				return ErrAlreadyProcessed
			}
			return fmt.Errorf("mark redemption: %w", err)
		}
		data, _ := json.Marshal(map[string]any{
			"action":         req.Action,
			"user_id":        redemption.UserID,
			"coins_redeemed": redemption.CoinsRedeemed,
		})
		if err := s.audit.Log(ctx, tx, req.AdminID, "process_redemption", "redemption", redemption.ID, string(data)); err != nil {
			return fmt.Errorf("audit redemption: %w", err)
		}

		processedAt := time.Now().UTC()
		adminID := req.AdminID
		redemption.Status = status
		redemption.Notes = notes
		redemption.ProcessedAt = &processedAt
		redemption.ProcessedBy = &adminID
		result.Redemption = redemption
		return nil
	})
	if err != nil {
		return ProcessResult{}, err
	}

	s.recorder.committed(result.Entries...)
	metrics.RedemptionTransitions.WithLabelValues(result.Redemption.Status).Inc()
	event := events.RedemptionProcessed{
		RedemptionID:  result.Redemption.ID,
		UserID:        result.Redemption.UserID,
		Status:        result.Redemption.Status,
		CoinsRedeemed: result.Redemption.CoinsRedeemed,
		ProcessedBy:   req.AdminID,
		ProcessedAt:   *result.Redemption.ProcessedAt,
	}
	if result.Redemption.AmountCredited.Valid {
		event.AmountCredited = money.Format(result.Redemption.AmountCredited.Decimal)
	}
	s.publisher.Publish(events.SubjectRedemptionProcessed, event)
	return result, nil
}
