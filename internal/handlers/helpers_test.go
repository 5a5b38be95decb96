package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"campuscoin/internal/config"
	"campuscoin/internal/middleware"
	"campuscoin/internal/models"
	"campuscoin/internal/services"
	"campuscoin/internal/store"
)

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubUserStore struct {
	createFn         func(ctx context.Context, tx store.Execer, user models.User) error
	getByLoginFn     func(ctx context.Context, login string) (models.User, error)
	getByIDFn        func(ctx context.Context, userID string) (models.User, error)
	updatePasswordFn func(ctx context.Context, tx store.Execer, userID, passwordHash string) error
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, user models.User) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, user)
}

func (s stubUserStore) GetByLogin(ctx context.Context, login string) (models.User, error) {
	if s.getByLoginFn == nil {
		return models.User{}, sql.ErrNoRows
	}
	return s.getByLoginFn(ctx, login)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{}, sql.ErrNoRows
	}
	return s.getByIDFn(ctx, userID)
}

func (s stubUserStore) UpdatePassword(ctx context.Context, tx store.Execer, userID, passwordHash string) error {
	if s.updatePasswordFn == nil {
		return nil
	}
	return s.updatePasswordFn(ctx, tx, userID, passwordHash)
}

type stubAdminStore struct {
	isAdminFn     func(ctx context.Context, userID string) (bool, error)
	setRoleFn     func(ctx context.Context, tx store.Execer, username, role string) error
	hasAnyAdminFn func(ctx context.Context, tx store.Getter) (bool, error)
}

func (s stubAdminStore) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if s.isAdminFn == nil {
		return false, nil
	}
	return s.isAdminFn(ctx, userID)
}

func (s stubAdminStore) SetRole(ctx context.Context, tx store.Execer, username, role string) error {
	if s.setRoleFn == nil {
		return nil
	}
	return s.setRoleFn(ctx, tx, username, role)
}

func (s stubAdminStore) HasAnyAdmin(ctx context.Context, tx store.Getter) (bool, error) {
	if s.hasAnyAdminFn == nil {
		return true, nil
	}
	return s.hasAnyAdminFn(ctx, tx)
}

type stubWalletStore struct {
	createFn        func(ctx context.Context, tx store.Execer, userID string) error
	getByUserFn     func(ctx context.Context, userID string) (models.Wallet, error)
	listWithUsersFn func(ctx context.Context, role, search string, limit int) ([]store.WalletWithUser, error)
	totalsFn        func(ctx context.Context) (store.WalletTotals, error)
}

func (s stubWalletStore) Create(ctx context.Context, tx store.Execer, userID string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, userID)
}

func (s stubWalletStore) GetByUser(ctx context.Context, userID string) (models.Wallet, error) {
	if s.getByUserFn == nil {
		return models.Wallet{UserID: userID}, nil
	}
	return s.getByUserFn(ctx, userID)
}

func (s stubWalletStore) ListWithUsers(ctx context.Context, role, search string, limit int) ([]store.WalletWithUser, error) {
	if s.listWithUsersFn == nil {
		return nil, nil
	}
	return s.listWithUsersFn(ctx, role, search, limit)
}

func (s stubWalletStore) Totals(ctx context.Context) (store.WalletTotals, error) {
	if s.totalsFn == nil {
		return store.WalletTotals{}, nil
	}
	return s.totalsFn(ctx)
}

type stubLedgerStore struct {
	listCoinFn  func(ctx context.Context, userID string, limit int) ([]models.CoinTransaction, error)
	listMessFn  func(ctx context.Context, userID string, limit int) ([]models.MessTransaction, error)
	reconcileFn func(ctx context.Context) ([]store.ReconcileRow, error)
}

func (s stubLedgerStore) ListCoinByUser(ctx context.Context, userID string, limit int) ([]models.CoinTransaction, error) {
	if s.listCoinFn == nil {
		return nil, nil
	}
	return s.listCoinFn(ctx, userID, limit)
}

func (s stubLedgerStore) ListMessByUser(ctx context.Context, userID string, limit int) ([]models.MessTransaction, error) {
	if s.listMessFn == nil {
		return nil, nil
	}
	return s.listMessFn(ctx, userID, limit)
}

func (s stubLedgerStore) CoinSummary(ctx context.Context, userID string) (store.CoinSummary, error) {
	return store.CoinSummary{}, nil
}

func (s stubLedgerStore) MessSummary(ctx context.Context, userID string) (store.MessSummary, error) {
	return store.MessSummary{}, nil
}

func (s stubLedgerStore) Reconcile(ctx context.Context) ([]store.ReconcileRow, error) {
	if s.reconcileFn == nil {
		return nil, nil
	}
	return s.reconcileFn(ctx)
}

type stubWeeklyCreditStore struct {
	listFn func(ctx context.Context, userID string, limit int) ([]store.WeeklyCreditRow, error)
}

func (s stubWeeklyCreditStore) List(ctx context.Context, userID string, limit int) ([]store.WeeklyCreditRow, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, userID, limit)
}

type stubRedemptionStore struct {
	listFn func(ctx context.Context, status string, limit int) ([]store.RedemptionWithUser, error)
}

func (s stubRedemptionStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.Redemption, error) {
	return nil, nil
}

func (s stubRedemptionStore) List(ctx context.Context, status string, limit int) ([]store.RedemptionWithUser, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, status, limit)
}

func (s stubRedemptionStore) CountPending(ctx context.Context) (int64, error) {
	return 0, nil
}

type stubAttendanceStore struct {
	listByUserFn func(ctx context.Context, userID, from, to string, limit int) ([]models.Attendance, error)
}

func (s stubAttendanceStore) ListByUser(ctx context.Context, userID, from, to string, limit int) ([]models.Attendance, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID, from, to, limit)
}

func (s stubAttendanceStore) ListByDate(ctx context.Context, date string) ([]store.AttendanceWithUser, error) {
	return nil, nil
}

func (s stubAttendanceStore) Stats(ctx context.Context, userID, from, to string) (store.AttendanceStats, error) {
	return store.AttendanceStats{}, nil
}

type stubPaymentStore struct {
	listFn func(ctx context.Context, filter store.PaymentFilter) ([]store.PaymentWithUser, error)
}

func (s stubPaymentStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.MessPayment, error) {
	return nil, nil
}

func (s stubPaymentStore) List(ctx context.Context, filter store.PaymentFilter) ([]store.PaymentWithUser, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, filter)
}

func (s stubPaymentStore) Stats(ctx context.Context) ([]store.PaymentMethodStats, error) {
	return nil, nil
}

type stubSettingsStore struct {
	upsertFn func(ctx context.Context, tx store.Execer, key, value string) error
}

func (s stubSettingsStore) List(ctx context.Context) ([]models.Setting, error) {
	return nil, nil
}

func (s stubSettingsStore) Upsert(ctx context.Context, tx store.Execer, key, value string) error {
	if s.upsertFn == nil {
		return nil
	}
	return s.upsertFn(ctx, tx, key, value)
}

type stubReportStore struct {
	attendanceFn func(ctx context.Context, from, to string) ([]store.AttendanceReportRow, error)
}

func (s stubReportStore) Attendance(ctx context.Context, from, to string) ([]store.AttendanceReportRow, error) {
	if s.attendanceFn == nil {
		return nil, nil
	}
	return s.attendanceFn(ctx, from, to)
}

func (s stubReportStore) Financial(ctx context.Context, from, to string) ([]store.FinancialReportRow, error) {
	return nil, nil
}

type stubAuditStore struct {
	logFn  func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	listFn func(ctx context.Context, limit, offset int) ([]map[string]any, error)
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

func (s stubAuditStore) List(ctx context.Context, limit, offset int) ([]map[string]any, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

type stubSettingsCache struct {
	invalidated *int
}

func (s stubSettingsCache) Invalidate(context.Context) error {
	*s.invalidated++
	return nil
}

type stubWeeklyService struct {
	processFn func(ctx context.Context, weekStart, weekEnd, actorID string) (services.WeekSummary, error)
}

func (s stubWeeklyService) ProcessWeek(ctx context.Context, weekStart, weekEnd, actorID string) (services.WeekSummary, error) {
	return s.processFn(ctx, weekStart, weekEnd, actorID)
}

type stubRedemptionService struct {
	requestFn func(ctx context.Context, req services.RedemptionRequest) (models.Redemption, error)
	processFn func(ctx context.Context, req services.ProcessRequest) (services.ProcessResult, error)
}

func (s stubRedemptionService) RequestRedemption(ctx context.Context, req services.RedemptionRequest) (models.Redemption, error) {
	return s.requestFn(ctx, req)
}

func (s stubRedemptionService) ProcessRedemption(ctx context.Context, req services.ProcessRequest) (services.ProcessResult, error) {
	return s.processFn(ctx, req)
}

type stubMessService struct {
	payFn        func(ctx context.Context, req services.PaymentRequest) (services.PaymentResult, error)
	payMealFn    func(ctx context.Context, userID string, amount decimal.Decimal, description string) (services.Entry, error)
	creditFn     func(ctx context.Context, adminID, userID string, coins int64, description string) (services.Entry, error)
	addBalanceFn func(ctx context.Context, adminID, userID string, amount decimal.Decimal, description string) (services.Entry, error)
}

func (s stubMessService) Pay(ctx context.Context, req services.PaymentRequest) (services.PaymentResult, error) {
	return s.payFn(ctx, req)
}

func (s stubMessService) PayMeal(ctx context.Context, userID string, amount decimal.Decimal, description string) (services.Entry, error) {
	return s.payMealFn(ctx, userID, amount, description)
}

func (s stubMessService) CreditCoins(ctx context.Context, adminID, userID string, coins int64, description string) (services.Entry, error) {
	return s.creditFn(ctx, adminID, userID, coins, description)
}

func (s stubMessService) AddMessBalance(ctx context.Context, adminID, userID string, amount decimal.Decimal, description string) (services.Entry, error) {
	return s.addBalanceFn(ctx, adminID, userID, amount, description)
}

type stubAttendanceService struct {
	markBulkFn func(ctx context.Context, markerID, date string, marks []services.AttendanceMark) (services.BulkResult, error)
	deleteFn   func(ctx context.Context, actorID, id string) error
}

func (s stubAttendanceService) MarkBulk(ctx context.Context, markerID, date string, marks []services.AttendanceMark) (services.BulkResult, error) {
	return s.markBulkFn(ctx, markerID, date, marks)
}

func (s stubAttendanceService) Delete(ctx context.Context, actorID, id string) error {
	return s.deleteFn(ctx, actorID, id)
}

// newTestHandler fills every unset dependency with a permissive stub.
func newTestHandler(deps Deps) *Handler {
	cfg := config.Config{
		AppEnv:             "test",
		Port:               "0",
		JWTSecret:          "secret",
		TokenTTL:           time.Minute,
		AllowedOrigins:     "*",
		RateLimitPerMinute: 1000,
	}
	if deps.TxRunner == nil {
		deps.TxRunner = fakeTxRunner{}
	}
	if deps.Users == nil {
		deps.Users = stubUserStore{}
	}
	if deps.Admin == nil {
		deps.Admin = stubAdminStore{}
	}
	if deps.Wallets == nil {
		deps.Wallets = stubWalletStore{}
	}
	if deps.Ledger == nil {
		deps.Ledger = stubLedgerStore{}
	}
	if deps.WeeklyCredits == nil {
		deps.WeeklyCredits = stubWeeklyCreditStore{}
	}
	if deps.Redemptions == nil {
		deps.Redemptions = stubRedemptionStore{}
	}
	if deps.Attendance == nil {
		deps.Attendance = stubAttendanceStore{}
	}
	if deps.Payments == nil {
		deps.Payments = stubPaymentStore{}
	}
	if deps.Settings == nil {
		deps.Settings = stubSettingsStore{}
	}
	if deps.Reports == nil {
		deps.Reports = stubReportStore{}
	}
	if deps.Audit == nil {
		deps.Audit = stubAuditStore{}
	}
	return New(cfg, deps, nil)
}

// newRequest builds a request carrying an authenticated user and chi URL params.
func newRequest(method, target, body, userID string, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	ctx := req.Context()
	if userID != "" {
		ctx = middleware.WithUserID(ctx, userID)
	}
	if len(params) > 0 {
		routeCtx := chi.NewRouteContext()
		for key, value := range params {
			routeCtx.URLParams.Add(key, value)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	}
	return req.WithContext(ctx)
}

type noopDriver struct{}

func (d noopDriver) Open(name string) (driver.Conn, error) {
	return &noopConn{}, nil
}

type noopConn struct{}

func (c *noopConn) Prepare(query string) (driver.Stmt, error) {
	return &noopStmt{}, nil
}

func (c *noopConn) Close() error {
	return nil
}

func (c *noopConn) Begin() (driver.Tx, error) {
	return &noopTx{}, nil
}

func (c *noopConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	return &noopTx{}, nil
}

type noopStmt struct{}

func (s *noopStmt) Close() error {
	return nil
}

func (s *noopStmt) NumInput() int {
	return -1
}

func (s *noopStmt) Exec(args []driver.Value) (driver.Result, error) {
	return noopResult{}, nil
}

func (s *noopStmt) Query(args []driver.Value) (driver.Rows, error) {
	return nil, nil
}

type noopTx struct {
	committed  *atomic.Int64
	rolledBack *atomic.Int64
}

func (t *noopTx) Commit() error {
	if t.committed != nil {
		t.committed.Add(1)
	}
	return nil
}

func (t *noopTx) Rollback() error {
	if t.rolledBack != nil {
		t.rolledBack.Add(1)
	}
	return nil
}

type noopResult struct{}

func (r noopResult) LastInsertId() (int64, error) {
	return 0, nil
}

func (r noopResult) RowsAffected() (int64, error) {
	return 1, nil
}

var noopDriverCounter uint64

// newTestTxRunner runs callbacks on a real *sqlx.Tx backed by a no-op driver.
func newTestTxRunner(t *testing.T) fakeTxRunner {
	t.Helper()
	name := fmt.Sprintf("campuscoin-noop-%d", atomic.AddUint64(&noopDriverCounter, 1))
	sql.Register(name, noopDriver{})
	dbConn, err := sql.Open(name, "")
	if err != nil {
		t.Fatalf("failed to open noop db: %v", err)
	}
	t.Cleanup(func() { _ = dbConn.Close() })
	xdb := sqlx.NewDb(dbConn, name)
	return fakeTxRunner{
		withTxFn: func(ctx context.Context, fn func(*sqlx.Tx) error) error {
			tx, err := xdb.BeginTxx(ctx, nil)
			if err != nil {
				return err
			}
			if err := fn(tx); err != nil {
				_ = tx.Rollback()
				return err
			}
			return tx.Commit()
		},
	}
}
