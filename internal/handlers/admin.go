package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"campuscoin/internal/middleware"
	"campuscoin/internal/models"
	"campuscoin/internal/services"
	"campuscoin/internal/settings"
	"campuscoin/internal/store"
	"campuscoin/internal/validator"
	"campuscoin/internal/weeks"
)

type creditCoinsRequest struct {
	UserID      string `json:"user_id"`
	Coins       int64  `json:"coins"`
	Description string `json:"description"`
}

func (h *Handler) CreditCoins(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.UserIDFromContext(r.Context())
	var req creditCoinsRequest
	if err := decodeJSON(w, r, &req); err != nil || req.UserID == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	entry, err := h.messService.CreditCoins(r.Context(), adminID, req.UserID, req.Coins, validator.Sanitize(req.Description))
	if err != nil {
		h.respondServiceError(w, r, err, "credit_failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"transaction_id":   entry.TransactionID,
		"coins":            entry.Amount,
		"new_coin_balance": entry.NewBalance,
	})
}

type addMessBalanceRequest struct {
	UserID      string      `json:"user_id"`
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
}

func (h *Handler) AddMessBalance(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.UserIDFromContext(r.Context())
	var req addMessBalanceRequest
	if err := decodeJSON(w, r, &req); err != nil || req.UserID == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	entry, err := h.messService.AddMessBalance(r.Context(), adminID, req.UserID, amount, validator.Sanitize(req.Description))
	if err != nil {
		h.respondServiceError(w, r, err, "credit_failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"transaction_id":   entry.TransactionID,
		"amount":           entry.Amount,
		"new_mess_balance": entry.NewBalance,
	})
}

func (h *Handler) AdminListRedemptions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	rows, err := h.redemptions.List(r.Context(), query.Get("status"), parseInt(query.Get("limit"), 100))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load redemptions")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

type processRedemptionRequest struct {
	Action string `json:"action"`
	Notes  string `json:"notes"`
}

func (h *Handler) ProcessRedemption(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.UserIDFromContext(r.Context())
	var req processRedemptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	result, err := h.redemptionService.ProcessRedemption(r.Context(), services.ProcessRequest{
		ID:      chi.URLParam(r, "id"),
		Action:  req.Action,
		AdminID: adminID,
		Notes:   validator.Sanitize(req.Notes),
	})
	if err != nil {
		h.respondServiceError(w, r, err, "redemption_processing_failed")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) ListSettings(w http.ResponseWriter, r *http.Request) {
	rows, err := h.settings.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load settings")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

type updateSettingRequest struct {
	Value json.Number `json:"setting_value"`
}

func (h *Handler) UpdateSetting(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.UserIDFromContext(r.Context())
	key := chi.URLParam(r, "key")
	var req updateSettingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	value := strings.TrimSpace(req.Value.String())
	if err := settings.Validate(key, value); err != nil {
		h.respondServiceError(w, r, err, "setting_update_failed")
		return
	}
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.settings.Upsert(r.Context(), tx, key, value); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"value": value})
		return h.audit.Log(r.Context(), tx, adminID, "update_setting", "setting", key, string(data))
	})
	if err != nil {
		h.respondServiceError(w, r, err, "setting_update_failed")
		return
	}
	if h.settingsCache != nil {
		if err := h.settingsCache.Invalidate(r.Context()); err != nil {
			h.logger.Warn("invalidate settings cache", zap.Error(err))
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"setting_key":   key,
		"setting_value": value,
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	totals, err := h.wallets.Totals(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load stats")
		return
	}
	pending, err := h.redemptions.CountPending(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load stats")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"users":               totals.Users,
		"students":            totals.Students,
		"total_coin_balance":  totals.CoinBalance,
		"total_mess_balance":  totals.MessBalance,
		"pending_redemptions": pending,
	})
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	rows, err := h.ledger.Reconcile(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to reconcile balances")
		return
	}
	mismatched := make([]store.ReconcileRow, 0)
	for _, row := range rows {
		if !row.Balanced() {
			mismatched = append(mismatched, row)
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"accounts":   len(rows),
		"balanced":   len(mismatched) == 0,
		"mismatched": mismatched,
	})
}

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := parseInt(query.Get("limit"), 50)
	page := parseInt(query.Get("page"), 1)
	offset := (page - 1) * limit
	rows, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load audit logs")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// reportRange requires both bounds.
func reportRange(w http.ResponseWriter, r *http.Request) (weeks.Range, bool) {
	from, to := r.URL.Query().Get("start_date"), r.URL.Query().Get("end_date")
	if from == "" || to == "" {
		respondError(w, http.StatusBadRequest, "start_date and end_date are required")
		return weeks.Range{}, false
	}
	week, err := weeks.ParseRange(from, to)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_date_range")
		return weeks.Range{}, false
	}
	return week, true
}

func (h *Handler) AttendanceReport(w http.ResponseWriter, r *http.Request) {
	week, ok := reportRange(w, r)
	if !ok {
		return
	}
	rows, err := h.reports.Attendance(r.Context(), week.Start, week.End)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to build report")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"start_date": week.Start,
		"end_date":   week.End,
		"rows":       rows,
	})
}

func (h *Handler) FinancialReport(w http.ResponseWriter, r *http.Request) {
	week, ok := reportRange(w, r)
	if !ok {
		return
	}
	rows, err := h.reports.Financial(r.Context(), week.Start, week.End)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to build report")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"start_date": week.Start,
		"end_date":   week.End,
		"rows":       rows,
	})
}

type setRoleRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.UserIDFromContext(r.Context())
	var req setRoleRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Username == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Role != models.RoleAdmin && req.Role != models.RoleStudent {
		respondError(w, http.StatusBadRequest, "invalid_role")
		return
	}
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.admin.SetRole(r.Context(), tx, req.Username, req.Role); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"role": req.Role})
		return h.audit.Log(r.Context(), tx, adminID, "set_role", "user", req.Username, string(data))
	})
	if err != nil {
		if errors.Is(err, store.ErrNoRowsAffected) {
			respondError(w, http.StatusNotFound, "not_found")
			return
		}
		h.respondServiceError(w, r, err, "role_update_failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"username": req.Username, "role": req.Role})
}
