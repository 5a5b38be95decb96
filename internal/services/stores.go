package services

import (
	"context"

	"github.com/shopspring/decimal"

	"campuscoin/internal/models"
	"campuscoin/internal/store"
)

type WalletStore interface {
	GetByUser(ctx context.Context, userID string) (models.Wallet, error)
	GetForUpdate(ctx context.Context, tx store.Getter, userID string) (models.Wallet, error)
	UpdateCoinBalance(ctx context.Context, tx store.Execer, userID string, balance int64) error
	UpdateMessBalance(ctx context.Context, tx store.Execer, userID string, balance decimal.Decimal) error
}

type LedgerStore interface {
	InsertCoinTransaction(ctx context.Context, tx store.Execer, entry store.CoinEntryInput) error
	InsertMessTransaction(ctx context.Context, tx store.Execer, entry store.MessEntryInput) error
}

type WeeklyCreditStore interface {
	Exists(ctx context.Context, tx store.Getter, userID, weekStart string) (bool, error)
	Create(ctx context.Context, tx store.Execer, input store.WeeklyCreditInput) error
}

type AttendanceStore interface {
	Mark(ctx context.Context, tx store.Getter, id, userID, date, status, markedBy string) (bool, error)
	CountPresentByStudent(ctx context.Context, from, to string) ([]store.StudentAttendance, error)
}

type RedemptionStore interface {
	Create(ctx context.Context, tx store.Execer, r models.Redemption) error
	GetByID(ctx context.Context, id string) (models.Redemption, error)
	GetForUpdate(ctx context.Context, tx store.Getter, id string) (models.Redemption, error)
	MarkProcessed(ctx context.Context, tx store.Execer, id, status, adminID, notes string) error
}

type MessPaymentStore interface {
	Create(ctx context.Context, tx store.Execer, p models.MessPayment) error
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}
