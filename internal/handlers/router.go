package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"campuscoin/internal/config"
	"campuscoin/internal/db"
	"campuscoin/internal/metrics"
	"campuscoin/internal/middleware"
)

// Deps carries every collaborator the HTTP layer needs.
type Deps struct {
	TxRunner      db.TxRunner
	Users         UserStore
	Admin         AdminStore
	Wallets       WalletStore
	Ledger        LedgerStore
	WeeklyCredits WeeklyCreditStore
	Redemptions   RedemptionStore
	Attendance    AttendanceStore
	Payments      PaymentStore
	Settings      SettingsStore
	Reports       ReportStore
	Audit         AuditStore
	SettingsCache SettingsCache

	WeeklyCreditService WeeklyCreditService
	RedemptionService   RedemptionService
	MessService         MessService
	AttendanceService   AttendanceService
}

type Handler struct {
	cfg     config.Config
	logger  *zap.Logger
	limiter *middleware.RateLimiter

	txRunner      db.TxRunner
	users         UserStore
	admin         AdminStore
	wallets       WalletStore
	ledger        LedgerStore
	weeklyCredits WeeklyCreditStore
	redemptions   RedemptionStore
	attendance    AttendanceStore
	payments      PaymentStore
	settings      SettingsStore
	reports       ReportStore
	audit         AuditStore
	settingsCache SettingsCache

	weeklyService     WeeklyCreditService
	redemptionService RedemptionService
	messService       MessService
	attendanceService AttendanceService
}

func New(cfg config.Config, deps Deps, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		cfg:               cfg,
		logger:            logger,
		limiter:           middleware.NewRateLimiter(cfg.RateLimitPerMinute),
		txRunner:          deps.TxRunner,
		users:             deps.Users,
		admin:             deps.Admin,
		wallets:           deps.Wallets,
		ledger:            deps.Ledger,
		weeklyCredits:     deps.WeeklyCredits,
		redemptions:       deps.Redemptions,
		attendance:        deps.Attendance,
		payments:          deps.Payments,
		settings:          deps.Settings,
		reports:           deps.Reports,
		audit:             deps.Audit,
		settingsCache:     deps.SettingsCache,
		weeklyService:     deps.WeeklyCreditService,
		redemptionService: deps.RedemptionService,
		messService:       deps.MessService,
		attendanceService: deps.AttendanceService,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.RequestLogger(h.logger))
	router.Use(middleware.Recoverer(h.logger))
	router.Use(metrics.Instrument)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticated := middleware.Auth(h.cfg.JWTSecret)
	adminOnly := middleware.RequireAdmin(h.admin)

	router.Route("/auth", func(r chi.Router) {
		r.With(h.limiter.Handler).Post("/register", h.Register)
		r.With(h.limiter.Handler).Post("/login", h.Login)
		r.With(authenticated).Get("/me", h.Me)
		r.With(authenticated, h.limiter.Handler).Post("/change-password", h.ChangePassword)
	})

	router.Route("/wallets", func(r chi.Router) {
		r.Use(authenticated)
		r.Get("/me", h.MyWallet)
		r.Get("/me/coin-transactions", h.MyCoinTransactions)
		r.Get("/me/mess-transactions", h.MyMessTransactions)
		r.Get("/me/redemptions", h.MyRedemptions)
		r.With(h.limiter.Handler).Post("/redeem", h.Redeem)
		r.Get("/users/{id}", h.UserWallet)
	})

	router.Route("/mess", func(r chi.Router) {
		r.Use(authenticated)
		r.Post("/pay", h.PayMeal)
		r.Post("/payment", h.Pay)
		r.Get("/me/payments", h.MyPayments)
	})

	router.Route("/attendance", func(r chi.Router) {
		r.Use(authenticated)
		r.Get("/me", h.MyAttendance)
		r.Get("/me/stats", h.MyAttendanceStats)
		r.Get("/me/weekly-credits", h.MyWeeklyCredits)
		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Post("/mark", h.MarkAttendance)
			r.Post("/mark-bulk", h.MarkAttendanceBulk)
			r.Post("/weekly-credit", h.RunWeeklyCredit)
			r.Get("/weekly-credits", h.ListWeeklyCredits)
			r.Get("/date/{date}", h.AttendanceByDate)
			r.Get("/users/{id}", h.UserAttendance)
			r.Delete("/{id}", h.DeleteAttendance)
		})
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(authenticated, adminOnly)
		r.Get("/users", h.AdminListUsers)
		r.Post("/roles", h.SetRole)
		r.Post("/credit-coins", h.CreditCoins)
		r.Post("/mess/add-balance", h.AddMessBalance)
		r.Get("/mess/payments", h.AdminListPayments)
		r.Get("/mess/stats", h.PaymentStats)
		r.Get("/redemptions", h.AdminListRedemptions)
		r.Post("/redemptions/{id}/process", h.ProcessRedemption)
		r.Get("/settings", h.ListSettings)
		r.Put("/settings/{key}", h.UpdateSetting)
		r.Get("/stats", h.Stats)
		r.Get("/reconcile", h.Reconcile)
		r.Get("/audit", h.ListAuditLogs)
		r.Get("/reports/attendance", h.AttendanceReport)
		r.Get("/reports/financial", h.FinancialReport)
	})

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
