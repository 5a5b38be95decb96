package handlers

import (
	"encoding/json"
	"net/http"

	"campuscoin/internal/db"
	"campuscoin/internal/middleware"
	"campuscoin/internal/services"
	"campuscoin/internal/store"
	"campuscoin/internal/validator"
	"campuscoin/internal/weeks"
)

type payMealRequest struct {
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
}

// PayMeal debits the caller's prepaid mess balance.
func (h *Handler) PayMeal(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req payMealRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	entry, err := h.messService.PayMeal(r.Context(), userID, amount, validator.Sanitize(req.Description))
	if err != nil {
		h.respondServiceError(w, r, err, "payment_failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"transaction_id":   entry.TransactionID,
		"amount":           entry.Amount.Neg(),
		"new_mess_balance": entry.NewBalance,
	})
}

type paymentRequest struct {
	Amount        json.Number `json:"amount"`
	PaymentMethod string      `json:"payment_method"`
	CoinsToUse    int64       `json:"coins_to_use"`
	Description   string      `json:"description"`
}

func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req paymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	result, err := h.messService.Pay(r.Context(), services.PaymentRequest{
		UserID:      userID,
		Amount:      amount,
		Method:      req.PaymentMethod,
		CoinsToUse:  req.CoinsToUse,
		Description: validator.Sanitize(req.Description),
	})
	if err != nil {
		h.respondServiceError(w, r, err, "payment_failed")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"payment_id":       result.Payment.ID,
		"amount":           result.Payment.Amount,
		"payment_method":   result.Payment.PaymentMethod,
		"coins_used":       result.Payment.CoinsUsed,
		"cash_amount":      result.Payment.CashAmount,
		"new_coin_balance": result.CoinBalance,
		"new_mess_balance": result.MessBalance,
	})
}

func (h *Handler) MyPayments(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rows, err := h.payments.ListByUser(r.Context(), userID, parseInt(r.URL.Query().Get("limit"), 50))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load payments")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) AdminListPayments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.PaymentFilter{
		UserID: query.Get("user_id"),
		Method: query.Get("payment_method"),
		Limit:  parseInt(query.Get("limit"), 100),
	}
	if from, to := query.Get("start_date"), query.Get("end_date"); from != "" || to != "" {
		week, err := weeks.ParseRange(from, to)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_date_range")
			return
		}
		filter.From, filter.To = week.Start, week.End
	}
	rows, err := h.payments.List(r.Context(), filter)
	if err != nil {
		if db.IsInvalidText(err) {
			respondError(w, http.StatusNotFound, "not_found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load payments")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) PaymentStats(w http.ResponseWriter, r *http.Request) {
	rows, err := h.payments.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load payment stats")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}
