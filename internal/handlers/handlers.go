package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"campuscoin/internal/db"
	"campuscoin/internal/money"
	"campuscoin/internal/services"
	"campuscoin/internal/settings"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return decoder.Decode(dest)
}

var serviceErrors = []struct {
	err    error
	status int
	code   string
}{
	{services.ErrInsufficientBalance, http.StatusBadRequest, "insufficient_balance"},
	{services.ErrBelowMinimum, http.StatusBadRequest, "below_minimum"},
	{services.ErrInvalidPaymentMethod, http.StatusBadRequest, "invalid_payment_method"},
	{services.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{services.ErrInvalidLedger, http.StatusBadRequest, "invalid_ledger"},
	{services.ErrInvalidRedemptionType, http.StatusBadRequest, "invalid_redemption_type"},
	{services.ErrInvalidAction, http.StatusBadRequest, "invalid_action"},
	{services.ErrInvalidDateRange, http.StatusBadRequest, "invalid_date_range"},
	{services.ErrInvalidAttendanceStatus, http.StatusBadRequest, "invalid_attendance_status"},
	{services.ErrNotFound, http.StatusNotFound, "not_found"},
	{services.ErrAlreadyProcessed, http.StatusConflict, "already_processed"},
	{services.ErrDuplicateWeeklyCredit, http.StatusConflict, "duplicate_weekly_credit"},
	{settings.ErrInvalidSetting, http.StatusBadRequest, "invalid_setting"},
	{settings.ErrUnknownSetting, http.StatusNotFound, "unknown_setting"},
}

// respondServiceError maps domain errors to status codes. Anything unmapped
// is logged and reported as fallback with a 500.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	for _, mapped := range serviceErrors {
		if errors.Is(err, mapped.err) {
			respondError(w, mapped.status, mapped.code)
			return
		}
	}
	if db.IsInvalidText(err) {
		respondError(w, http.StatusNotFound, "not_found")
		return
	}
	h.logger.Error(fallback, zap.String("path", r.URL.Path), zap.Error(err))
	respondError(w, http.StatusInternalServerError, fallback)
}

func parseInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

// parseAmount accepts a JSON number or a numeric string with at most two decimals.
func parseAmount(raw json.Number) (decimal.Decimal, error) {
	amount, err := money.ParseAmount(raw.String())
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, services.ErrInvalidAmount
	}
	return amount, nil
}
