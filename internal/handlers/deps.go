package handlers

import (
	"context"

	"github.com/shopspring/decimal"

	"campuscoin/internal/models"
	"campuscoin/internal/services"
	"campuscoin/internal/store"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, user models.User) error
	GetByLogin(ctx context.Context, login string) (models.User, error)
	GetByID(ctx context.Context, userID string) (models.User, error)
	UpdatePassword(ctx context.Context, tx store.Execer, userID, passwordHash string) error
}

type AdminStore interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
	SetRole(ctx context.Context, tx store.Execer, username, role string) error
	HasAnyAdmin(ctx context.Context, tx store.Getter) (bool, error)
}

type WalletStore interface {
	Create(ctx context.Context, tx store.Execer, userID string) error
	GetByUser(ctx context.Context, userID string) (models.Wallet, error)
	ListWithUsers(ctx context.Context, role, search string, limit int) ([]store.WalletWithUser, error)
	Totals(ctx context.Context) (store.WalletTotals, error)
}

type LedgerStore interface {
	ListCoinByUser(ctx context.Context, userID string, limit int) ([]models.CoinTransaction, error)
	ListMessByUser(ctx context.Context, userID string, limit int) ([]models.MessTransaction, error)
	CoinSummary(ctx context.Context, userID string) (store.CoinSummary, error)
	MessSummary(ctx context.Context, userID string) (store.MessSummary, error)
	Reconcile(ctx context.Context) ([]store.ReconcileRow, error)
}

type WeeklyCreditStore interface {
	List(ctx context.Context, userID string, limit int) ([]store.WeeklyCreditRow, error)
}

type RedemptionStore interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Redemption, error)
	List(ctx context.Context, status string, limit int) ([]store.RedemptionWithUser, error)
	CountPending(ctx context.Context) (int64, error)
}

type AttendanceStore interface {
	ListByUser(ctx context.Context, userID, from, to string, limit int) ([]models.Attendance, error)
	ListByDate(ctx context.Context, date string) ([]store.AttendanceWithUser, error)
	Stats(ctx context.Context, userID, from, to string) (store.AttendanceStats, error)
}

type PaymentStore interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]models.MessPayment, error)
	List(ctx context.Context, filter store.PaymentFilter) ([]store.PaymentWithUser, error)
	Stats(ctx context.Context) ([]store.PaymentMethodStats, error)
}

type SettingsStore interface {
	List(ctx context.Context) ([]models.Setting, error)
	Upsert(ctx context.Context, tx store.Execer, key, value string) error
}

type ReportStore interface {
	Attendance(ctx context.Context, from, to string) ([]store.AttendanceReportRow, error)
	Financial(ctx context.Context, from, to string) ([]store.FinancialReportRow, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	List(ctx context.Context, limit, offset int) ([]map[string]any, error)
}

// SettingsCache is notified after a setting is written.
type SettingsCache interface {
	Invalidate(ctx context.Context) error
}

type WeeklyCreditService interface {
	ProcessWeek(ctx context.Context, weekStart, weekEnd, actorID string) (services.WeekSummary, error)
}

type RedemptionService interface {
	RequestRedemption(ctx context.Context, req services.RedemptionRequest) (models.Redemption, error)
	ProcessRedemption(ctx context.Context, req services.ProcessRequest) (services.ProcessResult, error)
}

type MessService interface {
	Pay(ctx context.Context, req services.PaymentRequest) (services.PaymentResult, error)
	PayMeal(ctx context.Context, userID string, amount decimal.Decimal, description string) (services.Entry, error)
	CreditCoins(ctx context.Context, adminID, userID string, coins int64, description string) (services.Entry, error)
	AddMessBalance(ctx context.Context, adminID, userID string, amount decimal.Decimal, description string) (services.Entry, error)
}

type AttendanceService interface {
	MarkBulk(ctx context.Context, markerID, date string, marks []services.AttendanceMark) (services.BulkResult, error)
	Delete(ctx context.Context, actorID, id string) error
}
